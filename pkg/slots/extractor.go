package slots

import (
	"context"
	"regexp"
	"strings"
)

// ExtractedValue is one slot value pulled from an utterance. Corrected marks
// an explicit user correction of an already-filled slot; only corrected
// values may replace existing ones.
type ExtractedValue struct {
	Value     string
	Corrected bool
}

// Extractor pulls slot values out of a single utterance. An empty map with a
// nil error means nothing could be extracted (the caller re-asks); an error
// means the capability itself failed.
type Extractor interface {
	Extract(ctx context.Context, utterance string, pending []string, filled map[string]string) (map[string]ExtractedValue, error)
}

var (
	changeToPattern = regexp.MustCompile(`(?i)\bchange\s+(?:the\s+)?([a-z][a-z_ ]*?)\s+to\s+(.+)$`)
	slotColonLine   = regexp.MustCompile(`(?i)^([a-z][a-z_]*)\s*:\s*(.+)$`)
)

// ParseCorrections finds explicit corrections in the utterance, in either
// "change <slot> to <value>" or "<slot>: <value>" form. Only slot names in
// known are accepted.
func ParseCorrections(utterance string, known map[string]bool) map[string]string {
	corrections := make(map[string]string)

	if m := changeToPattern.FindStringSubmatch(utterance); m != nil {
		slot := normalizeSlotName(m[1])
		if known[slot] {
			corrections[slot] = strings.TrimSpace(m[2])
		}
	}

	for _, line := range strings.Split(utterance, "\n") {
		if m := slotColonLine.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			slot := normalizeSlotName(m[1])
			if known[slot] {
				corrections[slot] = strings.TrimSpace(m[2])
			}
		}
	}

	return corrections
}

func normalizeSlotName(raw string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "_")
}
