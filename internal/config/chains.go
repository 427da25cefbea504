package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// CurrencyConfig is one registered currency on one chain. Group labels link
// entries across chains into a bridge group; entries without a label are
// chain-local only.
type CurrencyConfig struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol,omitempty"`
	Name     string `json:"name,omitempty"`
	LogoURI  string `json:"logoURI,omitempty"`
	Native   bool   `json:"native,omitempty"`
	Group    string `json:"group,omitempty"`
}

// PoolPairConfig is a known liquidity pair used for route feasibility
// checks before any quoting happens.
type PoolPairConfig struct {
	Token0 string `json:"token0"`
	Token1 string `json:"token1"`
}

// ChainConfig is one chain's full deployment: RPC endpoint, contract
// addresses, hub currencies for multihop routing, registered currencies and
// known pools. Optional contracts are left empty and call sites skip the
// chain for the features they gate.
type ChainConfig struct {
	ChainID uint64 `json:"chainId"`
	RPCUrl  string `json:"rpcUrl"`

	Quoter  string `json:"quoter,omitempty"`
	Router  string `json:"router,omitempty"`
	Permit2 string `json:"permit2,omitempty"`
	Bridge  string `json:"bridge,omitempty"`

	Hubs       []string         `json:"hubs,omitempty"`
	Currencies []CurrencyConfig `json:"currencies"`
	Pools      []PoolPairConfig `json:"pools,omitempty"`
}

// ChainsConfig is parsed from the CHAINS_CONFIG env var (inline JSON) or
// the file CHAINS_CONFIG_FILE points at.
type ChainsConfig struct {
	Chains []ChainConfig `json:"chains"`
}

func (cc *ChainsConfig) Key() string {
	return CHAINS_CONFIG_KEY
}

func (cc *ChainsConfig) Load() error {
	raw := []byte(os.Getenv("CHAINS_CONFIG"))
	if len(raw) == 0 {
		path := os.Getenv("CHAINS_CONFIG_FILE")
		if path == "" {
			return errors.New("neither CHAINS_CONFIG nor CHAINS_CONFIG_FILE is set")
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read chains config %s: %w", path, err)
		}
		raw = data
	}
	if err := sonic.Unmarshal(raw, cc); err != nil {
		return fmt.Errorf("parse chains config: %w", err)
	}
	return cc.Validate()
}

func (cc *ChainsConfig) Validate() error {
	if len(cc.Chains) == 0 {
		return errors.New("chains config has no chains")
	}
	seen := make(map[uint64]struct{}, len(cc.Chains))
	for _, chain := range cc.Chains {
		if chain.ChainID == 0 {
			return errors.New("chain with zero chainId")
		}
		if _, dup := seen[chain.ChainID]; dup {
			return fmt.Errorf("duplicate chain %d", chain.ChainID)
		}
		seen[chain.ChainID] = struct{}{}
		if chain.RPCUrl == "" {
			return fmt.Errorf("chain %d has no rpcUrl", chain.ChainID)
		}
		for _, addr := range []string{chain.Quoter, chain.Router, chain.Permit2, chain.Bridge} {
			if addr != "" && !ethcommon.IsHexAddress(addr) {
				return fmt.Errorf("chain %d: invalid contract address %q", chain.ChainID, addr)
			}
		}
		for _, c := range chain.Currencies {
			if !c.Native && !ethcommon.IsHexAddress(c.Address) {
				return fmt.Errorf("chain %d: invalid currency address %q", chain.ChainID, c.Address)
			}
		}
		for _, hub := range chain.Hubs {
			if !ethcommon.IsHexAddress(hub) {
				return fmt.Errorf("chain %d: invalid hub address %q", chain.ChainID, hub)
			}
		}
		for _, p := range chain.Pools {
			if !ethcommon.IsHexAddress(p.Token0) || !ethcommon.IsHexAddress(p.Token1) {
				return fmt.Errorf("chain %d: invalid pool pair %q/%q", chain.ChainID, p.Token0, p.Token1)
			}
		}
	}
	return nil
}
