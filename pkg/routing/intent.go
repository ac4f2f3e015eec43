package routing

// Tier is the confidence band of a routing decision.
type Tier string

const (
	TierNone   Tier = "none"
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// Intent is one routable destination. RequiredSlots is ordered: questions are
// asked in this order. RejectThreshold is the per-intent cosine distance above
// which the intent refuses the match.
type Intent struct {
	Name            string
	DisplayName     string
	RequiredSlots   []string
	RejectThreshold float64
	Priority        int

	references [][]float32
	centroid   []float32
}

// RouteResult is the outcome of routing one utterance. Intent is empty when
// Tier is TierNone.
type RouteResult struct {
	Intent   string
	Tier     Tier
	Score    float64 // 1 - Distance
	Distance float64
}
