// Package decode converts per-token BIO/BIOES predictions into span-level
// outputs.
package decode

import (
	"github.com/dualtag/dualtag/internal/labels"
)

// Span is a contiguous run of tokens carrying one label. Start and End are
// inclusive token positions; Score is the mean confidence over the run.
type Span struct {
	Start int
	End   int
	Label string
	Score float64
}

// TokenLabel is a single token-level prediction kept by TokenLabels.
type TokenLabel struct {
	Position int
	Tag      string
	Score    float64
}

// legacyPlaceholder is an undocumented sentinel that older corpora emit in
// place of "O". It is skipped on output and never generated.
const legacyPlaceholder = "_"

// Spans decodes a per-token tag sequence with matching confidence scores
// into labeled spans. A span opens at "B-<label>" (or a singleton
// "S-<label>") and extends over following "I-"/"E-" tags of the same base
// label. Tags that continue a span they never opened start a new span, so
// malformed sequences still decode into contiguous non-overlapping spans.
func Spans(tags []string, scores []float64) []Span {
	var spans []Span

	current := -1 // start of the open span, -1 when closed
	currentLabel := ""
	var scoreSum float64

	flush := func(end int) {
		if current < 0 {
			return
		}
		n := float64(end - current + 1)
		spans = append(spans, Span{
			Start: current,
			End:   end,
			Label: currentLabel,
			Score: scoreSum / n,
		})
		current = -1
		scoreSum = 0
	}

	for i, tag := range tags {
		prefix, label := labels.SplitTag(tag)
		score := 0.0
		if i < len(scores) {
			score = scores[i]
		}

		switch prefix {
		case "B":
			flush(i - 1)
			current = i
			currentLabel = label
			scoreSum = score
		case "S":
			flush(i - 1)
			spans = append(spans, Span{Start: i, End: i, Label: label, Score: score})
		case "I", "E":
			if current >= 0 && currentLabel == label {
				scoreSum += score
				if prefix == "E" {
					flush(i)
				}
			} else {
				// Continuation without an opener: treat as a new span.
				flush(i - 1)
				current = i
				currentLabel = label
				scoreSum = score
				if prefix == "E" {
					flush(i)
				}
			}
		default:
			flush(i - 1)
		}
	}
	flush(len(tags) - 1)

	return spans
}

// TokenLabels returns the token-level predictions, omitting any token whose
// tag is "O" or the legacy "_" placeholder.
func TokenLabels(tags []string, scores []float64) []TokenLabel {
	var out []TokenLabel
	for i, tag := range tags {
		if tag == labels.Outside || tag == legacyPlaceholder {
			continue
		}
		score := 0.0
		if i < len(scores) {
			score = scores[i]
		}
		out = append(out, TokenLabel{Position: i, Tag: tag, Score: score})
	}
	return out
}
