package routing

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/embedding"
)

// Index routes utterances to intents by cosine distance against per-intent
// reference centroids.
type Index struct {
	provider embedding.EmbeddingProvider

	// Tier cut-offs on cosine distance, inclusive: <= high -> TierHigh,
	// <= medium -> TierMedium, otherwise TierLow (when not rejected).
	highThreshold   float64
	mediumThreshold float64

	mu      sync.RWMutex
	intents map[string]*Intent
	order   []string // intent names sorted by Priority, then name
}

func NewIndex(provider embedding.EmbeddingProvider, highThreshold, mediumThreshold float64) *Index {
	return &Index{
		provider:        provider,
		highThreshold:   highThreshold,
		mediumThreshold: mediumThreshold,
		intents:         make(map[string]*Intent),
	}
}

// Register adds an intent to the index. References are added separately via
// AddReference.
func (ix *Index) Register(intent Intent) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if intent.Name == "" {
		return fmt.Errorf("intent name is required")
	}
	if _, exists := ix.intents[intent.Name]; exists {
		return fmt.Errorf("intent %q already registered", intent.Name)
	}

	in := intent
	ix.intents[in.Name] = &in
	ix.order = append(ix.order, in.Name)
	sort.Slice(ix.order, func(i, j int) bool {
		a, b := ix.intents[ix.order[i]], ix.intents[ix.order[j]]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.Name < b.Name
	})
	return nil
}

// AddReference embeds a reference phrase and folds it into the intent's
// centroid. Called at startup while seeding the catalog.
func (ix *Index) AddReference(ctx context.Context, intentName string, phrase string) error {
	vector, err := ix.provider.Generate(ctx, phrase)
	if err != nil {
		return err
	}
	return ix.AddReferenceVector(intentName, vector)
}

// AddReferenceVector adds a pre-computed (normalized) reference vector.
func (ix *Index) AddReferenceVector(intentName string, vector []float32) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	intent, ok := ix.intents[intentName]
	if !ok {
		return fmt.Errorf("intent %q not registered", intentName)
	}

	intent.references = append(intent.references, vector)
	intent.centroid = centroid(intent.references)
	return nil
}

// Intent returns the registered intent by name.
func (ix *Index) Intent(name string) (*Intent, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	intent, ok := ix.intents[name]
	return intent, ok
}

// Route embeds the utterance and classifies it. Embedding failure is
// propagated, never mapped to TierNone.
func (ix *Index) Route(ctx context.Context, text string) (*RouteResult, []float32, error) {
	vector, err := ix.provider.Generate(ctx, text)
	if err != nil {
		return nil, nil, err
	}
	return ix.RouteVector(vector), vector, nil
}

// RouteVector classifies a pre-computed query vector. Pure math, no I/O:
// the same vector always yields the same result.
func (ix *Index) RouteVector(vector []float32) *RouteResult {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	best := (*Intent)(nil)
	bestDistance := 0.0

	// order is priority-sorted, so the first strictly-closest intent wins
	// and equal distances fall to the higher-priority one
	for _, name := range ix.order {
		intent := ix.intents[name]
		if intent.centroid == nil {
			continue
		}
		distance := CosineDistance(vector, intent.centroid)
		if distance > intent.RejectThreshold {
			continue
		}
		if best == nil || distance < bestDistance {
			best = intent
			bestDistance = distance
		}
	}

	if best == nil {
		return &RouteResult{Tier: TierNone}
	}

	tier := TierLow
	switch {
	case bestDistance <= ix.highThreshold:
		tier = TierHigh
	case bestDistance <= ix.mediumThreshold:
		tier = TierMedium
	}

	return &RouteResult{
		Intent:   best.Name,
		Tier:     tier,
		Score:    1 - bestDistance,
		Distance: bestDistance,
	}
}

// CosineDistance computes 1 - cosine similarity. Mismatched or zero-length
// vectors report maximal distance.
func CosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 1
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

func centroid(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	sum := make([]float32, dim)
	for _, vec := range vectors {
		if len(vec) != dim {
			continue
		}
		for i, v := range vec {
			sum[i] += v
		}
	}
	inv := 1 / float32(len(vectors))
	for i := range sum {
		sum[i] *= inv
	}
	return embedding.NormalizeVector(sum)
}
