// Package data holds the sentence/token/span object model, corpus loading,
// and batching used by the scorer.
package data

import (
	"strings"
	"unicode"
)

// Label is a typed annotation with a value and confidence score.
type Label struct {
	Type  string  `json:"type"`
	Value string  `json:"value"`
	Score float64 `json:"score"`
}

// Token is a single text unit inside a sentence. The embedding is set in
// place by a token encoder and is transient: it can be cleared between
// batches.
type Token struct {
	Text      string    `json:"text"`
	Embedding []float32 `json:"-"`
	labels    []Label
}

// AddLabel attaches a typed label to the token.
func (t *Token) AddLabel(typeName, value string, score float64) {
	t.labels = append(t.labels, Label{Type: typeName, Value: value, Score: score})
}

// GetLabel returns the first label of the given type, or a label with the
// fallback value when none is attached.
func (t *Token) GetLabel(typeName, fallback string) Label {
	for _, l := range t.labels {
		if l.Type == typeName {
			return l
		}
	}
	return Label{Type: typeName, Value: fallback, Score: 1.0}
}

// RemoveLabels drops all labels of the given type.
func (t *Token) RemoveLabels(typeName string) {
	kept := t.labels[:0]
	for _, l := range t.labels {
		if l.Type != typeName {
			kept = append(kept, l)
		}
	}
	t.labels = kept
}

// SpanAnnotation is a labeled contiguous token range. Start and End are
// inclusive token positions.
type SpanAnnotation struct {
	Start int     `json:"start"`
	End   int     `json:"end"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
	Type  string  `json:"type"`
}

// Sentence is an ordered sequence of tokens with optional span-level
// annotations per label type.
type Sentence struct {
	Tokens []*Token
	spans  []SpanAnnotation
}

// NewSentence builds a sentence from pre-split tokens.
func NewSentence(tokens []string) *Sentence {
	s := &Sentence{Tokens: make([]*Token, len(tokens))}
	for i, text := range tokens {
		s.Tokens[i] = &Token{Text: text}
	}
	return s
}

// NewSentenceFromText splits raw text on whitespace and punctuation, the
// way column corpora tokenize.
func NewSentenceFromText(text string) *Sentence {
	var tokens []string
	var current strings.Builder
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		case unicode.IsPunct(r):
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
			tokens = append(tokens, string(r))
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return NewSentence(tokens)
}

// Len returns the number of tokens.
func (s *Sentence) Len() int {
	return len(s.Tokens)
}

// Text reconstructs the sentence text with single spaces.
func (s *Sentence) Text() string {
	parts := make([]string, len(s.Tokens))
	for i, t := range s.Tokens {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}

// AddSpan attaches a span-level annotation. Out-of-range or inverted spans
// are ignored.
func (s *Sentence) AddSpan(typeName string, start, end int, label string, score float64) {
	if start < 0 || end >= len(s.Tokens) || start > end {
		return
	}
	s.spans = append(s.spans, SpanAnnotation{
		Start: start,
		End:   end,
		Label: label,
		Score: score,
		Type:  typeName,
	})
}

// Spans returns all span annotations of the given type.
func (s *Sentence) Spans(typeName string) []SpanAnnotation {
	var out []SpanAnnotation
	for _, sp := range s.spans {
		if sp.Type == typeName {
			out = append(out, sp)
		}
	}
	return out
}

// RemoveSpans drops all span annotations of the given type, and all token
// labels of the same type.
func (s *Sentence) RemoveSpans(typeName string) {
	kept := s.spans[:0]
	for _, sp := range s.spans {
		if sp.Type != typeName {
			kept = append(kept, sp)
		}
	}
	s.spans = kept
	for _, t := range s.Tokens {
		t.RemoveLabels(typeName)
	}
}

// ClearEmbeddings drops all token embeddings so the next batch re-embeds.
func (s *Sentence) ClearEmbeddings() {
	for _, t := range s.Tokens {
		t.Embedding = nil
	}
}
