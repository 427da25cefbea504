package statediff

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/hxuan190/omni-route/internal/common"
	"github.com/hxuan190/omni-route/internal/domain"
)

const erc20ApproveABI = `[{"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}]`

const permit2ApproveABI = `[{"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"spender","type":"address"},{"name":"amount","type":"uint160"},{"name":"expiration","type":"uint48"}],"outputs":[]}]`

const addOwnerABI = `[{"name":"addOwnerWithThreshold","type":"function","stateMutability":"nonpayable","inputs":[{"name":"owner","type":"address"},{"name":"_threshold","type":"uint256"}],"outputs":[]}]`

var (
	erc20ABI     = mustParseABI(erc20ApproveABI)
	permit2ABI   = mustParseABI(permit2ApproveABI)
	ownerableABI = mustParseABI(addOwnerABI)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// AllowanceReader reads an ERC-20 allowance.
type AllowanceReader interface {
	Allowance(ctx context.Context, chainID uint64, token, owner, spender ethcommon.Address) (*big.Int, error)
}

// ApproveParams describes a desired ERC-20 allowance. ApproveAmount
// defaults to the unlimited sentinel when nil.
type ApproveParams struct {
	ChainID       uint64
	Token         ethcommon.Address
	Owner         ethcommon.Address
	Spender       ethcommon.Address
	MinAmount     *big.Int
	ApproveAmount *big.Int
}

// ApproveIfNeeded emits zero calls when the live allowance already covers
// MinAmount, and exactly one approve call otherwise.
func ApproveIfNeeded(ctx context.Context, reader AllowanceReader, p ApproveParams) ([]domain.CallArgs, error) {
	approveAmount := p.ApproveAmount
	if approveAmount == nil {
		approveAmount = common.MaxUint256
	}
	if p.MinAmount == nil || p.MinAmount.Sign() < 0 {
		return nil, fmt.Errorf("%w: minAmount missing", ErrInvariant)
	}
	if approveAmount.Cmp(p.MinAmount) < 0 || approveAmount.Cmp(common.MaxUint256) > 0 {
		return nil, fmt.Errorf("%w: minAmount %s > approveAmount %s", ErrInvariant, p.MinAmount, approveAmount)
	}

	return Reconcile(ctx,
		func(ctx context.Context) (*big.Int, error) {
			return reader.Allowance(ctx, p.ChainID, p.Token, p.Owner, p.Spender)
		},
		func(allowance *big.Int) []domain.CallArgs {
			if allowance.Cmp(p.MinAmount) >= 0 {
				return nil
			}
			data, err := erc20ABI.Pack("approve", p.Spender, approveAmount)
			if err != nil {
				return nil
			}
			return []domain.CallArgs{{
				To: p.Token, Data: data, Value: new(big.Int), Signer: p.Owner,
			}}
		})
}

// PermitAllowance is the delegated-allowance state read from a permit2
// style contract.
type PermitAllowance struct {
	Amount     *big.Int
	Expiration uint64
}

// PermitReader reads a delegated allowance and its expiry.
type PermitReader interface {
	PermitAllowance(ctx context.Context, chainID uint64, permit2, owner, token, spender ethcommon.Address) (*PermitAllowance, error)
}

// PermitParams describes a desired delegated allowance with an expiry floor.
type PermitParams struct {
	ChainID           uint64
	Permit2           ethcommon.Address
	Token             ethcommon.Address
	Owner             ethcommon.Address
	Spender           ethcommon.Address
	MinAmount         *big.Int
	MinExpiration     uint64
	ApproveAmount     *big.Int
	ApproveExpiration uint64
}

// PermitIfNeeded emits one permit2 approve when either the live amount is
// below MinAmount or the live expiry is before MinExpiration.
func PermitIfNeeded(ctx context.Context, reader PermitReader, p PermitParams) ([]domain.CallArgs, error) {
	approveAmount := p.ApproveAmount
	if approveAmount == nil {
		approveAmount = common.MaxUint256
	}
	if p.MinAmount == nil || p.MinAmount.Sign() < 0 {
		return nil, fmt.Errorf("%w: minAmount missing", ErrInvariant)
	}
	if approveAmount.Cmp(p.MinAmount) < 0 || approveAmount.Cmp(common.MaxUint256) > 0 {
		return nil, fmt.Errorf("%w: minAmount %s > approveAmount %s", ErrInvariant, p.MinAmount, approveAmount)
	}
	if p.ApproveExpiration < p.MinExpiration {
		return nil, fmt.Errorf("%w: minExpiration %d > approveExpiration %d", ErrInvariant, p.MinExpiration, p.ApproveExpiration)
	}

	return Reconcile(ctx,
		func(ctx context.Context) (*PermitAllowance, error) {
			return reader.PermitAllowance(ctx, p.ChainID, p.Permit2, p.Owner, p.Token, p.Spender)
		},
		func(current *PermitAllowance) []domain.CallArgs {
			if current.Amount.Cmp(p.MinAmount) >= 0 && current.Expiration >= p.MinExpiration {
				return nil
			}
			data, err := permit2ABI.Pack("approve",
				p.Token, p.Spender, approveAmount, new(big.Int).SetUint64(p.ApproveExpiration))
			if err != nil {
				return nil
			}
			return []domain.CallArgs{{
				To: p.Permit2, Data: data, Value: new(big.Int), Signer: p.Owner,
			}}
		})
}

// OwnersReader lists an account contract's owners.
type OwnersReader interface {
	Owners(ctx context.Context, chainID uint64, account ethcommon.Address) ([]ethcommon.Address, error)
}

// AddOwnerIfNeeded emits one add-owner call when `owner` is not yet a
// member of the account's owner list.
func AddOwnerIfNeeded(ctx context.Context, reader OwnersReader, chainID uint64, account, owner ethcommon.Address, threshold *big.Int) ([]domain.CallArgs, error) {
	if threshold == nil || threshold.Sign() <= 0 {
		return nil, fmt.Errorf("%w: threshold must be positive", ErrInvariant)
	}

	return Reconcile(ctx,
		func(ctx context.Context) ([]ethcommon.Address, error) {
			return reader.Owners(ctx, chainID, account)
		},
		func(owners []ethcommon.Address) []domain.CallArgs {
			for _, o := range owners {
				if o == owner {
					return nil
				}
			}
			data, err := ownerableABI.Pack("addOwnerWithThreshold", owner, threshold)
			if err != nil {
				return nil
			}
			return []domain.CallArgs{{
				To: account, Data: data, Value: new(big.Int), Signer: account,
			}}
		})
}

// CodeReader checks deployed bytecode at an address.
type CodeReader interface {
	CodeAt(ctx context.Context, chainID uint64, addr ethcommon.Address) ([]byte, error)
}

// DeployIfNeeded emits the supplied factory call when no bytecode is
// deployed at the target address yet.
func DeployIfNeeded(ctx context.Context, reader CodeReader, chainID uint64, target, factory, signer ethcommon.Address, deployData hexutil.Bytes) ([]domain.CallArgs, error) {
	if len(deployData) == 0 {
		return nil, fmt.Errorf("%w: deploy calldata missing", ErrInvariant)
	}

	return Reconcile(ctx,
		func(ctx context.Context) ([]byte, error) {
			return reader.CodeAt(ctx, chainID, target)
		},
		func(code []byte) []domain.CallArgs {
			if len(code) > 0 {
				return nil
			}
			return []domain.CallArgs{{
				To: factory, Data: deployData, Value: new(big.Int), Signer: signer,
			}}
		})
}
