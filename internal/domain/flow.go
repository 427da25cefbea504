package domain

// FlowKind discriminates the two atomic conversion steps.
type FlowKind uint8

const (
	FlowSwap FlowKind = iota
	FlowBridge
)

func (k FlowKind) String() string {
	if k == FlowBridge {
		return "bridge"
	}
	return "swap"
}

// AssetFlow is one step of a conversion: a same-chain swap or a cross-chain
// bridge. For swaps ChainID is the chain the swap executes on; for bridges
// the endpoints carry their own chain ids.
type AssetFlow struct {
	Kind FlowKind `json:"kind"`
	// ChainID is set for swap flows only.
	ChainID uint64    `json:"chainId,omitempty"`
	In      *Currency `json:"in"`
	Out     *Currency `json:"out"`
}

// RoutePlan is a non-empty ordered flow list whose endpoints chain:
// flow[i].Out feeds flow[i+1].In. The flow list is the authoritative
// representation of a conversion; TransactionKind is only a display view.
type RoutePlan []AssetFlow

// Valid checks the chaining invariant.
func (p RoutePlan) Valid() bool {
	if len(p) == 0 {
		return false
	}
	for i := 1; i < len(p); i++ {
		if !p[i-1].Out.Equal(p[i].In) {
			return false
		}
	}
	return true
}

// TransactionKind is the derived, display-only classification of a plan.
// It is deliberately not exhaustive: plans with three or more flows project
// to KindMultiLeg rather than being forced into the four named shapes.
type TransactionKind string

const (
	KindSwap       TransactionKind = "SWAP"
	KindBridge     TransactionKind = "BRIDGE"
	KindSwapBridge TransactionKind = "SWAP_BRIDGE"
	KindBridgeSwap TransactionKind = "BRIDGE_SWAP"
	KindMultiLeg   TransactionKind = "MULTI_LEG"
)

// Kind projects the flow list onto the named transaction type.
func (p RoutePlan) Kind() TransactionKind {
	switch len(p) {
	case 1:
		if p[0].Kind == FlowBridge {
			return KindBridge
		}
		return KindSwap
	case 2:
		if p[0].Kind == FlowSwap && p[1].Kind == FlowBridge {
			return KindSwapBridge
		}
		if p[0].Kind == FlowBridge && p[1].Kind == FlowSwap {
			return KindBridgeSwap
		}
		return KindMultiLeg
	default:
		return KindMultiLeg
	}
}
