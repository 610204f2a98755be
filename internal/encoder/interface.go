// Package encoder provides the embedding functions behind the dual
// encoder: one for tokens, one for verbalized label phrases. Both sides
// share a single interface so either can be backed by the deterministic
// hash encoder or the ONNX runtime encoder.
package encoder

import (
	"context"

	"github.com/dualtag/dualtag/internal/data"
)

// Encoder embeds text units into a fixed-dimension vector space.
type Encoder interface {
	// EmbedTokens sets the embedding of every token of every sentence in
	// place. Tokens that already carry an embedding are re-embedded.
	EmbedTokens(ctx context.Context, sentences []*data.Sentence) error

	// EmbedPhrases embeds whole phrases into single vectors, one per input.
	EmbedPhrases(ctx context.Context, phrases []string) ([][]float32, error)

	// Dim returns the embedding dimensionality.
	Dim() int

	// Config returns the serializable configuration that reconstructs this
	// encoder.
	Config() Config

	// Stats returns cumulative inference statistics.
	Stats() *Stats

	Close() error
}

var (
	_ Encoder = (*HashEncoder)(nil)
)
