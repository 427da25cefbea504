package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/hxuan190/omni-route/internal/domain"
	"github.com/hxuan190/omni-route/internal/services/statediff"
	"github.com/hxuan190/omni-route/internal/services/tokengraph"
)

// StateReader implements the read side of the state-diff helpers and the
// basket allocation lookup against live chain state.
type StateReader struct {
	clients *ClientSet
	graph   *tokengraph.Graph
}

func NewStateReader(clients *ClientSet, graph *tokengraph.Graph) *StateReader {
	return &StateReader{clients: clients, graph: graph}
}

func (r *StateReader) call(ctx context.Context, chainID uint64, to ethcommon.Address, data []byte) ([]byte, error) {
	client, ok := r.clients.For(chainID)
	if !ok {
		return nil, fmt.Errorf("no rpc client for chain %d", chainID)
	}
	return client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

// Allowance reads an ERC-20 allowance.
func (r *StateReader) Allowance(ctx context.Context, chainID uint64, token, owner, spender ethcommon.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	res, err := r.call(ctx, chainID, token, data)
	if err != nil {
		return nil, fmt.Errorf("read allowance of %s: %w", token, err)
	}
	vals, err := erc20ABI.Unpack("allowance", res)
	if err != nil {
		return nil, fmt.Errorf("decode allowance: %w", err)
	}
	return vals[0].(*big.Int), nil
}

// PermitAllowance reads a permit2 delegated allowance and expiry.
func (r *StateReader) PermitAllowance(ctx context.Context, chainID uint64, permit2, owner, token, spender ethcommon.Address) (*statediff.PermitAllowance, error) {
	data, err := permit2ABI.Pack("allowance", owner, token, spender)
	if err != nil {
		return nil, err
	}
	res, err := r.call(ctx, chainID, permit2, data)
	if err != nil {
		return nil, fmt.Errorf("read permit allowance: %w", err)
	}
	vals, err := permit2ABI.Unpack("allowance", res)
	if err != nil {
		return nil, fmt.Errorf("decode permit allowance: %w", err)
	}
	return &statediff.PermitAllowance{
		Amount:     vals[0].(*big.Int),
		Expiration: vals[1].(*big.Int).Uint64(),
	}, nil
}

// Owners lists an account contract's owner set.
func (r *StateReader) Owners(ctx context.Context, chainID uint64, account ethcommon.Address) ([]ethcommon.Address, error) {
	data, err := ownersABI.Pack("getOwners")
	if err != nil {
		return nil, err
	}
	res, err := r.call(ctx, chainID, account, data)
	if err != nil {
		return nil, fmt.Errorf("read owners of %s: %w", account, err)
	}
	vals, err := ownersABI.Unpack("getOwners", res)
	if err != nil {
		return nil, fmt.Errorf("decode owners: %w", err)
	}
	return vals[0].([]ethcommon.Address), nil
}

// CodeAt checks deployed bytecode.
func (r *StateReader) CodeAt(ctx context.Context, chainID uint64, addr ethcommon.Address) ([]byte, error) {
	client, ok := r.clients.For(chainID)
	if !ok {
		return nil, fmt.Errorf("no rpc client for chain %d", chainID)
	}
	return client.CodeAt(ctx, addr, nil)
}

type basketAllocationOut struct {
	Currency   ethcommon.Address
	Weight     uint64
	FixedUnits *big.Int
}

// ReadBasket loads a basket contract's allocation list. Underlyings are
// resolved through the token graph; unknown addresses get a minimal
// currency entry so quoting can still proceed.
func (r *StateReader) ReadBasket(ctx context.Context, chainID uint64, basket ethcommon.Address) (*domain.Basket, error) {
	data, err := basketABI.Pack("getAllocations")
	if err != nil {
		return nil, err
	}
	res, err := r.call(ctx, chainID, basket, data)
	if err != nil {
		return nil, fmt.Errorf("read basket %s: %w", basket, err)
	}
	vals, err := basketABI.Unpack("getAllocations", res)
	if err != nil {
		return nil, fmt.Errorf("decode basket allocations: %w", err)
	}
	raw := *abi.ConvertType(vals[0], new([]basketAllocationOut)).(*[]basketAllocationOut)

	allocations := make([]domain.BasketAllocation, len(raw))
	for i, a := range raw {
		currency, ok := r.graph.Lookup(chainID, a.Currency)
		if !ok {
			currency = &domain.Currency{ChainID: chainID, Address: a.Currency, Decimals: 18}
		}
		allocations[i] = domain.BasketAllocation{
			Currency:   currency,
			Weight:     a.Weight,
			FixedUnits: a.FixedUnits,
		}
	}
	return &domain.Basket{
		ChainID:     chainID,
		Address:     basket,
		Allocations: allocations,
	}, nil
}
