package main

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/embedding"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/slots"
)

// hashEmbedder is a deterministic offline embedding provider: a bag-of-words
// projection into a fixed-size vector via token hashing. Texts sharing content
// words land close together, which is enough for the scripted demo to route
// without a model server. It is far coarser than a real embedding model, so
// offline mode widens the routing thresholds.
type hashEmbedder struct {
	dim int
}

func newHashEmbedder() *hashEmbedder {
	return &hashEmbedder{dim: 256}
}

var stopwords = map[string]bool{
	"i": true, "a": true, "an": true, "the": true, "to": true, "for": true,
	"my": true, "me": true, "do": true, "is": true, "are": true, "on": true,
	"of": true, "in": true, "it": true, "you": true, "your": true,
	"can": true, "how": true, "what": true, "whats": true, "tell": true,
	"about": true, "want": true, "need": true,
}

func (e *hashEmbedder) Generate(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	for _, raw := range strings.Fields(strings.ToLower(text)) {
		token := strings.Trim(raw, "?!.,'\"()")
		token = strings.TrimSuffix(token, "s")
		if token == "" || stopwords[token] {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(token))
		sum := h.Sum32()
		idx := int(sum % uint32(e.dim))
		if sum&0x80000000 != 0 {
			vec[idx] -= 1
		} else {
			vec[idx] += 1
		}
	}
	return embedding.NormalizeVector(vec), nil
}

var _ embedding.EmbeddingProvider = &hashEmbedder{}

// patternExtractor fills slots from deterministic text patterns only, so the
// demo needs no LLM either.
type patternExtractor struct{}

func (patternExtractor) Extract(_ context.Context, utterance string, pending []string, filled map[string]string) (map[string]slots.ExtractedValue, error) {
	known := make(map[string]bool, len(pending)+len(filled))
	for _, slot := range pending {
		known[slot] = true
	}
	for slot := range filled {
		known[slot] = true
	}

	values := make(map[string]slots.ExtractedValue)
	for slot, value := range slots.ParseCorrections(utterance, known) {
		values[slot] = slots.ExtractedValue{Value: value, Corrected: filled[slot] != ""}
	}
	for slot, value := range slots.ExtractPatterns(utterance, pending) {
		if _, seen := values[slot]; !seen {
			values[slot] = slots.ExtractedValue{Value: value}
		}
	}
	return values, nil
}
