package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/omni-route/internal/adapters/evm"
	"github.com/hxuan190/omni-route/internal/adapters/persistence"
	"github.com/hxuan190/omni-route/internal/common"
	"github.com/hxuan190/omni-route/internal/config"
	"github.com/hxuan190/omni-route/internal/domain"
	"github.com/hxuan190/omni-route/internal/metrics"
	"github.com/hxuan190/omni-route/internal/services/basket"
	"github.com/hxuan190/omni-route/internal/services/builder"
	"github.com/hxuan190/omni-route/internal/services/quoter"
	"github.com/hxuan190/omni-route/internal/services/router"
	"github.com/hxuan190/omni-route/internal/services/statediff"
	"github.com/hxuan190/omni-route/internal/services/tokengraph"
)

const ENGINE_SERVICE = "engine-service"

var (
	// ErrNoRoute is the commit-path form of the classifier's "no route"
	// value: callers that must act on a route convert absence into this.
	ErrNoRoute = errors.New("no route for pair")

	ErrUnknownCurrency = errors.New("currency not registered")
	ErrUnknownChain    = errors.New("chain not configured")

	// Error aliases
	ErrNoLiquidity  = quoter.ErrNoLiquidity
	ErrSameCurrency = router.ErrSameCurrency
)

type Service struct {
	container.BaseDIInstance
	log zerolog.Logger

	registry   *Registry
	clients    *evm.ClientSet
	metaQuoter *evm.MetaQuoter
	reader     *evm.StateReader

	agg        *quoter.Aggregator
	classifier *router.Classifier
	selector   *router.Selector
	basketSvc  *basket.Service
	assembler  *builder.Assembler

	storage *persistence.Storage

	general    *config.GeneralConfig
	storageCfg *config.StorageConfig
}

func (svc *Service) ID() string {
	return ENGINE_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	svc.log = common.NewComponentLogger("engine")
	svc.general = c.GetConfig(config.GENERAL_CONFIG_KEY).(*config.GeneralConfig)
	svc.storageCfg = c.GetConfig(config.STORAGE_CONFIG_KEY).(*config.StorageConfig)
	chains := c.GetConfig(config.CHAINS_CONFIG_KEY).(*config.ChainsConfig)

	registry, err := BuildRegistry(chains)
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}
	svc.registry = registry

	svc.clients = evm.NewClientSet()
	for chainID, rpcURL := range registry.RPCs() {
		if err := svc.clients.Dial(chainID, rpcURL); err != nil {
			return err
		}
	}

	graph := registry.Graph()
	svc.metaQuoter = evm.NewMetaQuoter(svc.clients, registry.Quoters())
	svc.reader = evm.NewStateReader(svc.clients, graph)
	svc.agg = quoter.NewAggregator(svc.metaQuoter.Quote, nil)
	svc.selector = router.NewSelector(graph, svc.agg, registry, svc.metaQuoter)
	svc.classifier = router.NewClassifier(graph, registry)
	svc.classifier.UseSelector(svc.selector)
	svc.basketSvc = basket.NewService(svc.reader, svc.agg, registry)
	svc.assembler = builder.NewAssembler()
	return nil
}

func (svc *Service) Start() error {
	currencies := svc.registry.Currencies()
	metrics.CurrencyCount.Set(float64(len(currencies)))
	metrics.BridgeGroupCount.Set(float64(len(svc.registry.Groups())))

	if svc.storageCfg.PersistenceEnabled {
		storage, err := persistence.NewStorage(svc.storageCfg.DBPath)
		if err != nil {
			return err
		}
		svc.storage = storage
		if err := storage.SaveCurrencyBatch(currencies); err != nil {
			svc.log.Error().Err(err).Msg("failed to snapshot currencies")
		}
		for label, members := range svc.registry.Groups() {
			if err := storage.SaveGroup(label, members); err != nil {
				svc.log.Error().Err(err).Str("group", label).Msg("failed to snapshot group")
			}
		}
	}

	svc.log.Info().
		Int("currencies", len(currencies)).
		Int("groups", len(svc.registry.Groups())).
		Msg("engine started")
	return nil
}

func (svc *Service) Stop() error {
	svc.clients.Close()
	if svc.storage != nil {
		return svc.storage.Close()
	}
	return nil
}

func (svc *Service) Graph() *tokengraph.Graph { return svc.registry.Graph() }

// ResolveCurrency maps a chain-scoped address to its registered currency.
func (svc *Service) ResolveCurrency(chainID uint64, addr ethcommon.Address) (*domain.Currency, error) {
	if _, ok := svc.registry.RPCs()[chainID]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChain, chainID)
	}
	c, ok := svc.registry.Graph().Lookup(chainID, addr)
	if !ok {
		return nil, fmt.Errorf("%w: %s on chain %d", ErrUnknownCurrency, addr, chainID)
	}
	return c, nil
}

// Classify returns the flow list for a pair, nil when no route exists.
func (svc *Service) Classify(in, out *domain.Currency) (domain.RoutePlan, error) {
	plan, err := svc.classifier.Classify(in, out)
	if err != nil {
		metrics.RouteRequests.WithLabelValues("", "error").Inc()
		return nil, err
	}
	if plan == nil {
		metrics.RouteRequests.WithLabelValues("", "not_found").Inc()
		return nil, nil
	}
	metrics.RouteRequests.WithLabelValues(string(plan.Kind()), "ok").Inc()
	return plan, nil
}

// QuoteExactIn prices one chain-local swap leg.
func (svc *Service) QuoteExactIn(ctx context.Context, chainID uint64, in, out *domain.Currency, amountIn *big.Int) (*domain.Quote, error) {
	return svc.agg.QuoteExactIn(ctx, chainID, in, out, amountIn, svc.registry.Hubs(chainID))
}

// QuoteExactOut is the exact-output dual.
func (svc *Service) QuoteExactOut(ctx context.Context, chainID uint64, in, out *domain.Currency, amountOut *big.Int) (*domain.Quote, error) {
	return svc.agg.QuoteExactOut(ctx, chainID, in, out, amountOut, svc.registry.Hubs(chainID))
}

// SelectBestChain runs the multichain selection for a pair.
func (svc *Service) SelectBestChain(ctx context.Context, in, out *domain.Currency, amountIn *big.Int) (*domain.ChainQuote, bool, error) {
	return svc.selector.SelectBestChain(ctx, in, out, amountIn)
}

func (svc *Service) MintQuote(ctx context.Context, chainID uint64, basketAddr ethcommon.Address, in *domain.Currency, shares *big.Int) (*domain.BasketQuote, error) {
	return svc.basketSvc.MintQuote(ctx, chainID, basketAddr, in, shares)
}

func (svc *Service) BurnQuote(ctx context.Context, chainID uint64, basketAddr ethcommon.Address, out *domain.Currency, shares *big.Int) (*domain.BasketQuote, error) {
	return svc.basketSvc.BurnQuote(ctx, chainID, basketAddr, out, shares)
}

func (svc *Service) WeightedBuyQuote(ctx context.Context, chainID uint64, in *domain.Currency, amountIn *big.Int, allocations []domain.BasketAllocation) ([]domain.BasketQuoteLeg, error) {
	return svc.basketSvc.WeightedBuyQuote(ctx, chainID, in, amountIn, allocations)
}

// PlanRequest describes a conversion to turn into a signed-ready plan.
type PlanRequest struct {
	In       *domain.Currency
	Out      *domain.Currency
	AmountIn *big.Int
	Signer   ethcommon.Address

	SlippageCentiBps uint64
	DeadlineSeconds  uint64
	Permit           hexutil.Bytes
}

// PlanResult carries the assembled source-chain transaction plus the flow
// list it realizes. Quotes holds one entry per swap flow, in flow order, so
// bridge-then-swap plans still expose the destination-leg price.
type PlanResult struct {
	Plan   domain.RoutePlan       `json:"route"`
	Kind   domain.TransactionKind `json:"kind"`
	Quotes []*domain.Quote        `json:"quotes"`
	Exec   *domain.ExecutionPlan  `json:"executionPlan"`
	Calls  []domain.CallArgs      `json:"calls"`
}

// BuildPlan classifies the pair, prices its swap legs and assembles the
// source-chain transaction. Bridge continuation on the destination chain is
// carried by the bridge itself; the returned plan is the transaction the
// caller signs. Absent routes and dry legs are commit-path errors here.
func (svc *Service) BuildPlan(ctx context.Context, req PlanRequest) (*PlanResult, error) {
	flows, err := svc.classifier.ClassifyWithAmount(ctx, req.In, req.Out, req.AmountIn)
	if err != nil {
		return nil, err
	}
	if flows == nil {
		return nil, ErrNoRoute
	}

	// Price every swap flow in order; bridge flows pass the amount through
	// unchanged. A dry leg anywhere in the sequence is a commit-path error.
	quotes := make([]*domain.Quote, 0, 1)
	amount := req.AmountIn
	for _, flow := range flows {
		if flow.Kind != domain.FlowSwap {
			continue
		}
		q, err := svc.QuoteExactIn(ctx, flow.ChainID, flow.In, flow.Out, amount)
		if err != nil {
			return nil, err
		}
		if !q.HasLiquidity() {
			return nil, fmt.Errorf("%w: %s -> %s", quoter.ErrNoLiquidity, flow.In, flow.Out)
		}
		quotes = append(quotes, q)
		amount = q.AmountOut
	}

	slippage := req.SlippageCentiBps
	if slippage == 0 {
		slippage = svc.general.SlippageCentiBps
	}
	opts := builder.Options{
		SlippageCentiBps: slippage,
		DeadlineSeconds:  req.DeadlineSeconds,
		Permit:           req.Permit,
	}

	first := flows[0]
	srcChain := first.ChainID
	if first.Kind == domain.FlowBridge {
		srcChain = first.In.ChainID
	}

	assembleReq := builder.Request{ChainID: srcChain}

	switch first.Kind {
	case domain.FlowSwap:
		q := quotes[0]
		assembleReq.Legs = []builder.Leg{{Quote: q, ExactIn: true}}

		// Chain the swap output into a following bridge step.
		if len(flows) > 1 && flows[1].Kind == domain.FlowBridge {
			call, err := svc.bridgeCall(flows[1], builder.SlippageMinOut(q.AmountOut, slippage), req.Signer)
			if err != nil {
				return nil, err
			}
			bridgeAddr, _ := svc.registry.Bridge(srcChain)
			assembleReq.OutputReceivers = map[domain.CurrencyKey]ethcommon.Address{
				first.Out.Key(): bridgeAddr,
			}
			assembleReq.FollowUps = []builder.TargetCall{call}
		}

	case domain.FlowBridge:
		call, err := svc.bridgeCall(first, req.AmountIn, req.Signer)
		if err != nil {
			return nil, err
		}
		assembleReq.FollowUps = []builder.TargetCall{call}
	}

	// Bridge plans keep the builder's longer horizon; everything else
	// falls back to the configured default.
	if opts.DeadlineSeconds == 0 && len(assembleReq.FollowUps) == 0 {
		opts.DeadlineSeconds = svc.general.DeadlineSeconds
	}

	exec, err := svc.assembler.Assemble(assembleReq, opts)
	if err != nil {
		return nil, err
	}

	calls := make([]domain.CallArgs, 0, 1)
	if len(assembleReq.Legs) > 0 {
		routerAddr, ok := svc.registry.Router(srcChain)
		if !ok {
			return nil, fmt.Errorf("no router deployment on chain %d", srcChain)
		}
		call, err := svc.assembler.ToCallArgs(exec, routerAddr, req.Signer)
		if err != nil {
			return nil, err
		}
		calls = append(calls, *call)
	} else {
		// Bridge-only plans submit the deposit directly.
		for _, fu := range assembleReq.FollowUps {
			value := fu.Value
			if value == nil {
				value = new(big.Int)
			}
			calls = append(calls, domain.CallArgs{To: fu.To, Data: fu.Data, Value: value, Signer: req.Signer})
		}
	}

	return &PlanResult{
		Plan:   flows,
		Kind:   flows.Kind(),
		Quotes: quotes,
		Exec:   exec,
		Calls:  calls,
	}, nil
}

// bridgeCall builds the deposit sweeping `amount` of the flow's input into
// the configured bridge. Native deposits carry the amount as value.
func (svc *Service) bridgeCall(flow domain.AssetFlow, amount *big.Int, recipient ethcommon.Address) (builder.TargetCall, error) {
	srcChain := flow.In.ChainID
	bridgeAddr, ok := svc.registry.Bridge(srcChain)
	if !ok {
		return builder.TargetCall{}, fmt.Errorf("%w: no bridge deployment on chain %d", ErrNoRoute, srcChain)
	}
	data, err := evm.EncodeBridgeDeposit(flow.In.Address, amount, flow.Out.ChainID, recipient)
	if err != nil {
		return builder.TargetCall{}, fmt.Errorf("encode bridge deposit: %w", err)
	}
	call := builder.TargetCall{To: bridgeAddr, Data: data}
	if flow.In.IsNative() {
		call.Value = amount
	}
	return call, nil
}

// EnsureApprovals returns the approval calls needed before the router (or
// bridge) may pull `minAmount` of `token` from `owner`; empty when the live
// allowance already suffices.
func (svc *Service) EnsureApprovals(ctx context.Context, chainID uint64, token, owner, spender ethcommon.Address, minAmount *big.Int) ([]domain.CallArgs, error) {
	return statediff.ApproveIfNeeded(ctx, svc.reader, statediff.ApproveParams{
		ChainID:   chainID,
		Token:     token,
		Owner:     owner,
		Spender:   spender,
		MinAmount: minAmount,
	})
}
