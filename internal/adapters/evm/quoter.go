package evm

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/hxuan190/omni-route/internal/common"
	"github.com/hxuan190/omni-route/internal/domain"
	"github.com/hxuan190/omni-route/internal/metrics"
	"github.com/hxuan190/omni-route/internal/services/quoter"
)

type abiPoolKey struct {
	Currency0   ethcommon.Address
	Currency1   ethcommon.Address
	Fee         *big.Int
	TickSpacing *big.Int
	Hooks       ethcommon.Address
}

type quoteParams struct {
	PoolKey     abiPoolKey
	ZeroForOne  bool
	ExactAmount *big.Int
	HookData    []byte
}

// MetaQuoter prices single pools through the deployed quoter contracts.
// Its Quote method satisfies quoter.QuoteFunc and its deployment map
// satisfies the selector's Deployments check.
type MetaQuoter struct {
	clients *ClientSet
	quoters map[uint64]ethcommon.Address
	log     zerolog.Logger
}

func NewMetaQuoter(clients *ClientSet, quoters map[uint64]ethcommon.Address) *MetaQuoter {
	return &MetaQuoter{
		clients: clients,
		quoters: quoters,
		log:     common.NewComponentLogger("metaquoter"),
	}
}

func (m *MetaQuoter) HasQuoter(chainID uint64) bool {
	_, ok := m.quoters[chainID]
	return ok
}

// Quote calls the quoter contract for one pool. A revert means the pool has
// no usable liquidity for the request and maps to ErrPoolUnavailable; any
// other failure is a transport error.
func (m *MetaQuoter) Quote(ctx context.Context, req quoter.PoolQuoteRequest) (*quoter.PoolQuote, error) {
	client, ok := m.clients.For(req.ChainID)
	if !ok {
		return nil, fmt.Errorf("no rpc client for chain %d", req.ChainID)
	}
	quoterAddr, ok := m.quoters[req.ChainID]
	if !ok {
		return nil, fmt.Errorf("no quoter deployment on chain %d", req.ChainID)
	}

	key, zeroForOne := domain.NewPoolKey(req.In, req.Out, req.Config)
	method := "quoteExactInputSingle"
	if !req.ExactIn {
		method = "quoteExactOutputSingle"
	}
	data, err := metaQuoterABI.Pack(method, quoteParams{
		PoolKey: abiPoolKey{
			Currency0:   key.Currency0,
			Currency1:   key.Currency1,
			Fee:         new(big.Int).SetUint64(uint64(key.Fee)),
			TickSpacing: big.NewInt(int64(key.TickSpacing)),
			Hooks:       key.Hooks,
		},
		ZeroForOne:  zeroForOne,
		ExactAmount: req.Amount,
		HookData:    []byte{},
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}

	chainLabel := strconv.FormatUint(req.ChainID, 10)
	started := time.Now()
	res, err := client.CallContract(ctx, ethereum.CallMsg{To: &quoterAddr, Data: data}, nil)
	metrics.RPCDuration.WithLabelValues(chainLabel, method).Observe(time.Since(started).Seconds())
	if err != nil {
		if isRevert(err) {
			metrics.RPCCalls.WithLabelValues(chainLabel, method, "revert").Inc()
			return nil, quoter.ErrPoolUnavailable
		}
		metrics.RPCCalls.WithLabelValues(chainLabel, method, "error").Inc()
		return nil, fmt.Errorf("call %s on chain %d: %w", method, req.ChainID, err)
	}
	metrics.RPCCalls.WithLabelValues(chainLabel, method, "ok").Inc()

	vals, err := metaQuoterABI.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", method, err)
	}
	amount, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("decode %s: unexpected amount type", method)
	}
	gasEstimate, ok := vals[1].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("decode %s: unexpected gas type", method)
	}
	return &quoter.PoolQuote{Amount: amount, GasEstimate: gasEstimate.Uint64()}, nil
}

// isRevert matches quoter reverts surfaced through JSON-RPC error strings.
func isRevert(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "execution reverted") || strings.Contains(msg, "revert")
}
