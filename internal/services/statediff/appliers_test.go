package statediff

import (
	"context"
	"errors"
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

type allowanceStub struct {
	allowance *big.Int
	err       error
	calls     int
}

func (a *allowanceStub) Allowance(context.Context, uint64, ethcommon.Address, ethcommon.Address, ethcommon.Address) (*big.Int, error) {
	a.calls++
	return a.allowance, a.err
}

func approveParams(min int64) ApproveParams {
	return ApproveParams{
		ChainID:   1,
		Token:     ethcommon.Address{0xa},
		Owner:     ethcommon.Address{0x1},
		Spender:   ethcommon.Address{0x2},
		MinAmount: big.NewInt(min),
	}
}

func TestApproveSatisfiedIsNoOp(t *testing.T) {
	reader := &allowanceStub{allowance: big.NewInt(1_000)}

	calls, err := ApproveIfNeeded(context.Background(), reader, approveParams(500))
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if len(calls) != 0 {
		t.Errorf("got %d calls, want none when allowance covers the minimum", len(calls))
	}
}

func TestApproveBelowMinimumEmitsOneCall(t *testing.T) {
	reader := &allowanceStub{allowance: big.NewInt(100)}
	p := approveParams(500)

	calls, err := ApproveIfNeeded(context.Background(), reader, p)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want exactly one approve", len(calls))
	}
	if calls[0].To != p.Token {
		t.Errorf("call targets %s, want the token", calls[0].To)
	}
	if calls[0].Signer != p.Owner {
		t.Errorf("signer = %s, want the owner", calls[0].Signer)
	}
	if calls[0].Value.Sign() != 0 {
		t.Errorf("approve carries value %s", calls[0].Value)
	}
}

// Bounds are checked synchronously: no read happens for a contradictory
// min/approve pair.
func TestApproveInvariantFailsBeforeRead(t *testing.T) {
	reader := &allowanceStub{allowance: big.NewInt(0)}
	p := approveParams(500)
	p.ApproveAmount = big.NewInt(100)

	_, err := ApproveIfNeeded(context.Background(), reader, p)
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("got %v, want ErrInvariant", err)
	}
	if reader.calls != 0 {
		t.Errorf("reader was called %d times, want 0", reader.calls)
	}
}

func TestApproveReadErrorPropagates(t *testing.T) {
	boom := errors.New("rpc down")
	reader := &allowanceStub{err: boom}

	_, err := ApproveIfNeeded(context.Background(), reader, approveParams(500))
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want the transport error", err)
	}
}

type permitStub struct {
	state *PermitAllowance
	calls int
}

func (p *permitStub) PermitAllowance(context.Context, uint64, ethcommon.Address, ethcommon.Address, ethcommon.Address, ethcommon.Address) (*PermitAllowance, error) {
	p.calls++
	return p.state, nil
}

func permitParams(min int64, minExp uint64) PermitParams {
	return PermitParams{
		ChainID:           1,
		Permit2:           ethcommon.Address{0x22},
		Token:             ethcommon.Address{0xa},
		Owner:             ethcommon.Address{0x1},
		Spender:           ethcommon.Address{0x2},
		MinAmount:         big.NewInt(min),
		MinExpiration:     minExp,
		ApproveExpiration: minExp + 3600,
	}
}

func TestPermitSatisfiedIsNoOp(t *testing.T) {
	reader := &permitStub{state: &PermitAllowance{Amount: big.NewInt(1_000), Expiration: 2_000}}

	calls, err := PermitIfNeeded(context.Background(), reader, permitParams(500, 1_500))
	if err != nil {
		t.Fatalf("permit: %v", err)
	}
	if len(calls) != 0 {
		t.Errorf("got %d calls, want none", len(calls))
	}
}

func TestPermitExpiredEmitsOneCall(t *testing.T) {
	// Amount sufficient, expiry in the past.
	reader := &permitStub{state: &PermitAllowance{Amount: big.NewInt(1_000), Expiration: 100}}
	p := permitParams(500, 1_500)

	calls, err := PermitIfNeeded(context.Background(), reader, p)
	if err != nil {
		t.Fatalf("permit: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want one", len(calls))
	}
	if calls[0].To != p.Permit2 {
		t.Errorf("call targets %s, want the permit2 contract", calls[0].To)
	}
}

func TestPermitExpirationInvariant(t *testing.T) {
	reader := &permitStub{state: &PermitAllowance{Amount: big.NewInt(0), Expiration: 0}}
	p := permitParams(500, 1_500)
	p.ApproveExpiration = 1_000 // before the required floor

	_, err := PermitIfNeeded(context.Background(), reader, p)
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("got %v, want ErrInvariant", err)
	}
	if reader.calls != 0 {
		t.Errorf("reader was called %d times, want 0", reader.calls)
	}
}

type ownersStub struct{ owners []ethcommon.Address }

func (o *ownersStub) Owners(context.Context, uint64, ethcommon.Address) ([]ethcommon.Address, error) {
	return o.owners, nil
}

func TestAddOwnerMembership(t *testing.T) {
	member := ethcommon.Address{0x5}
	account := ethcommon.Address{0x9}
	reader := &ownersStub{owners: []ethcommon.Address{member}}

	calls, err := AddOwnerIfNeeded(context.Background(), reader, 1, account, member, big.NewInt(1))
	if err != nil {
		t.Fatalf("add owner: %v", err)
	}
	if len(calls) != 0 {
		t.Errorf("existing member produced %d calls", len(calls))
	}

	calls, err = AddOwnerIfNeeded(context.Background(), reader, 1, account, ethcommon.Address{0x6}, big.NewInt(1))
	if err != nil {
		t.Fatalf("add owner: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("missing member produced %d calls, want 1", len(calls))
	}
	if calls[0].To != account {
		t.Errorf("call targets %s, want the account", calls[0].To)
	}
}

type codeStub struct{ code []byte }

func (c *codeStub) CodeAt(context.Context, uint64, ethcommon.Address) ([]byte, error) {
	return c.code, nil
}

func TestDeployIfNeeded(t *testing.T) {
	target := ethcommon.Address{0x7}
	factory := ethcommon.Address{0x8}
	signer := ethcommon.Address{0x1}
	deployData := []byte{0xfe, 0xed}

	calls, err := DeployIfNeeded(context.Background(), &codeStub{code: []byte{0x60}}, 1, target, factory, signer, deployData)
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if len(calls) != 0 {
		t.Errorf("deployed target produced %d calls", len(calls))
	}

	calls, err = DeployIfNeeded(context.Background(), &codeStub{}, 1, target, factory, signer, deployData)
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("bare target produced %d calls, want 1", len(calls))
	}
	if calls[0].To != factory {
		t.Errorf("call targets %s, want the factory", calls[0].To)
	}
}
