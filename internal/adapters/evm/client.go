// Package evm adapts the core services to EVM JSON-RPC endpoints: the
// meta-quoter contract, ERC-20 and permit2 state reads, and basket
// allocation lookups.
package evm

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/hxuan190/omni-route/internal/common"
)

// Caller is the contract-read surface the adapters need. *ethclient.Client
// satisfies it.
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, account ethcommon.Address, blockNumber *big.Int) ([]byte, error)
}

// ClientSet holds one RPC client per configured chain. Chains are looked up
// with an explicit ok check; a missing chain is a skip for multi-chain
// search, never an implicit fallback.
type ClientSet struct {
	mu      sync.RWMutex
	clients map[uint64]Caller
	log     zerolog.Logger
}

func NewClientSet() *ClientSet {
	return &ClientSet{
		clients: make(map[uint64]Caller),
		log:     common.NewComponentLogger("evm"),
	}
}

// Dial connects a chain's RPC endpoint and registers the client.
func (s *ClientSet) Dial(chainID uint64, rpcURL string) error {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return fmt.Errorf("dial chain %d: %w", chainID, err)
	}
	s.Add(chainID, client)
	s.log.Info().Uint64("chain", chainID).Msg("connected rpc endpoint")
	return nil
}

// Add registers a caller directly, used by construction and tests.
func (s *ClientSet) Add(chainID uint64, c Caller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[chainID] = c
}

// For resolves the client for a chain.
func (s *ClientSet) For(chainID uint64) (Caller, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[chainID]
	return c, ok
}

// Chains lists every connected chain.
func (s *ClientSet) Chains() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]uint64, 0, len(s.clients))
	for chainID := range s.clients {
		out = append(out, chainID)
	}
	return out
}

// Close shuts down every client that supports closing.
func (s *ClientSet) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for chainID, c := range s.clients {
		if closer, ok := c.(interface{ Close() }); ok {
			closer.Close()
		}
		delete(s.clients, chainID)
	}
}
