// Package persistence snapshots the currency registry and bridge groups to
// a local bolt database so the engine can warm-start without re-reading
// chain metadata.
package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	boltdb "github.com/andrew-solarstorm/bolt-db"
	"github.com/bytedance/sonic"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/hxuan190/omni-route/internal/common"
	"github.com/hxuan190/omni-route/internal/domain"
	"github.com/hxuan190/omni-route/internal/metrics"
)

const (
	CurrenciesBucket = "currencies"
	GroupsBucket     = "groups"

	DefaultDBPath = "./data/omni-route.db"
)

type StoredCurrency struct {
	ChainID  uint64 `json:"chainId"`
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol,omitempty"`
	Name     string `json:"name,omitempty"`
	LogoURI  string `json:"logoURI,omitempty"`
	Native   bool   `json:"native,omitempty"`
}

// StoredGroup is one multichain bridge group: the chain-scoped addresses of
// every member.
type StoredGroup struct {
	Members []StoredMember `json:"members"`
}

type StoredMember struct {
	ChainID uint64 `json:"chainId"`
	Address string `json:"address"`
}

type Storage struct {
	db     *boltdb.BoltDatabase
	dbPath string
	log    zerolog.Logger
}

func NewStorage(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	os.MkdirAll(filepath.Dir(dbPath), 0755)

	db := boltdb.NewBoltDatabase(dbPath)
	if db == nil {
		return nil, fmt.Errorf("failed to open database at %s", dbPath)
	}

	log := common.NewComponentLogger("storage")
	log.Info().Str("path", dbPath).Msg("opened database")

	return &Storage{db: db, dbPath: dbPath, log: log}, nil
}

func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func currencyKey(chainID uint64, addr ethcommon.Address) string {
	return strconv.FormatUint(chainID, 10) + ":" + strings.ToLower(addr.Hex())
}

func (s *Storage) SaveCurrencyBatch(currencies []*domain.Currency) error {
	if len(currencies) == 0 {
		return nil
	}

	batch := s.db.NewBatch()
	for _, c := range currencies {
		data, err := sonic.Marshal(currencyToStored(c))
		if err != nil {
			return fmt.Errorf("failed to marshal currency %s: %w", c, err)
		}
		value := data
		op := &boltdb.WriteOperation{
			Bucket: []byte(CurrenciesBucket),
			Key:    []byte(currencyKey(c.ChainID, c.Address)),
			Value:  &value,
			Op:     boltdb.OpSet,
		}
		if err := batch.Add(op); err != nil {
			return fmt.Errorf("failed to add currency %s to batch: %w", c, err)
		}
	}
	if err := batch.Execute(); err != nil {
		s.log.Error().Err(err).Int("count", len(currencies)).Msg("failed to save currency batch")
		return err
	}

	metrics.SnapshotSaves.Inc()
	s.log.Info().Int("count", len(currencies)).Msg("saved currency batch")
	return nil
}

func (s *Storage) LoadAllCurrencies() ([]*domain.Currency, error) {
	data, err := s.db.List(CurrenciesBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list currencies: %w", err)
	}

	currencies := make([]*domain.Currency, 0, len(data))
	failed := 0
	for key, value := range data {
		var stored StoredCurrency
		if err := sonic.Unmarshal(value, &stored); err != nil {
			s.log.Error().Str("key", key).Err(err).Msg("failed to unmarshal currency, skipping")
			failed++
			continue
		}
		currencies = append(currencies, storedToCurrency(&stored))
	}

	metrics.SnapshotLoads.Inc()
	if failed > 0 {
		s.log.Error().
			Int("total_in_db", len(data)).
			Int("loaded", len(currencies)).
			Int("failed", failed).
			Msg("currency loading completed with errors")
	} else {
		s.log.Info().
			Int("loaded", len(currencies)).
			Msg("currency loading completed")
	}
	return currencies, nil
}

// SaveGroup persists one bridge group under its label.
func (s *Storage) SaveGroup(label string, members []*domain.Currency) error {
	stored := StoredGroup{Members: make([]StoredMember, len(members))}
	for i, m := range members {
		stored.Members[i] = StoredMember{ChainID: m.ChainID, Address: strings.ToLower(m.Address.Hex())}
	}
	data, err := sonic.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal group %s: %w", label, err)
	}
	return s.db.Set(GroupsBucket, []byte(label), data)
}

// LoadAllGroups returns every stored bridge group as chain-scoped keys;
// the caller resolves them against the registry.
func (s *Storage) LoadAllGroups() (map[string][]StoredMember, error) {
	data, err := s.db.List(GroupsBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	groups := make(map[string][]StoredMember, len(data))
	for label, value := range data {
		var stored StoredGroup
		if err := sonic.Unmarshal(value, &stored); err != nil {
			s.log.Warn().Str("label", label).Err(err).Msg("failed to unmarshal group, skipping")
			continue
		}
		groups[label] = stored.Members
	}
	return groups, nil
}

func (s *Storage) GetCurrencyCount() (int, error) {
	data, err := s.db.List(CurrenciesBucket)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

func currencyToStored(c *domain.Currency) *StoredCurrency {
	return &StoredCurrency{
		ChainID:  c.ChainID,
		Address:  strings.ToLower(c.Address.Hex()),
		Decimals: c.Decimals,
		Symbol:   c.Symbol,
		Name:     c.Name,
		LogoURI:  c.LogoURI,
		Native:   c.Native,
	}
}

func storedToCurrency(stored *StoredCurrency) *domain.Currency {
	return &domain.Currency{
		ChainID:  stored.ChainID,
		Address:  ethcommon.HexToAddress(stored.Address),
		Decimals: stored.Decimals,
		Symbol:   stored.Symbol,
		Name:     stored.Name,
		LogoURI:  stored.LogoURI,
		Native:   stored.Native,
	}
}
