package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dualtag/dualtag/internal/data"
	"github.com/dualtag/dualtag/internal/encoder"
)

// PhraseCache is the lookup/store surface CachedEncoder needs.
// *EmbeddingCache satisfies it.
type PhraseCache interface {
	Lookup(ctx context.Context, encoder, phrase string) (*LookupResult, error)
	StoreBatch(ctx context.Context, encoder string, phrases []string, embeddings [][]float32) error
}

var _ PhraseCache = (*EmbeddingCache)(nil)

// CachedEncoder wraps an encoder so phrase embeddings are served from
// the cache when present and written back on miss. Token embedding is
// contextual and passes through untouched. Cache failures degrade to
// plain encoding and are logged, never surfaced.
type CachedEncoder struct {
	inner  encoder.Encoder
	cache  PhraseCache
	name   string
	logger *zap.Logger
}

var _ encoder.Encoder = (*CachedEncoder)(nil)

// NewCachedEncoder wraps inner with a phrase-embedding cache. Keys are
// scoped by the inner encoder's type so backends never collide.
func NewCachedEncoder(inner encoder.Encoder, phraseCache PhraseCache, logger *zap.Logger) *CachedEncoder {
	return &CachedEncoder{
		inner:  inner,
		cache:  phraseCache,
		name:   string(inner.Config().Type),
		logger: logger,
	}
}

// EmbedPhrases serves cached phrases and delegates only the misses to
// the inner encoder, storing the fresh embeddings back afterwards.
func (ce *CachedEncoder) EmbedPhrases(ctx context.Context, phrases []string) ([][]float32, error) {
	out := make([][]float32, len(phrases))

	var missIndices []int
	var missPhrases []string
	for i, phrase := range phrases {
		result, err := ce.cache.Lookup(ctx, ce.name, phrase)
		if err == nil && result.CacheHit && result.Embedding != nil {
			out[i] = result.Embedding.Embedding
			continue
		}
		missIndices = append(missIndices, i)
		missPhrases = append(missPhrases, phrase)
	}

	if len(missPhrases) == 0 {
		return out, nil
	}

	fresh, err := ce.inner.EmbedPhrases(ctx, missPhrases)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missPhrases) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, expected %d",
			len(fresh), len(missPhrases))
	}

	for j, i := range missIndices {
		out[i] = fresh[j]
	}

	if err := ce.cache.StoreBatch(ctx, ce.name, missPhrases, fresh); err != nil {
		ce.logger.Warn("Failed to store phrase embeddings in cache", zap.Error(err))
	}

	return out, nil
}

// EmbedTokens delegates to the inner encoder.
func (ce *CachedEncoder) EmbedTokens(ctx context.Context, sentences []*data.Sentence) error {
	return ce.inner.EmbedTokens(ctx, sentences)
}

// Dim returns the inner encoder's embedding dimensionality.
func (ce *CachedEncoder) Dim() int {
	return ce.inner.Dim()
}

// Config returns the inner encoder's configuration.
func (ce *CachedEncoder) Config() encoder.Config {
	return ce.inner.Config()
}

// Stats returns the inner encoder's inference statistics.
func (ce *CachedEncoder) Stats() *encoder.Stats {
	return ce.inner.Stats()
}

// Close closes the inner encoder. The cache connection is owned by the
// caller and stays open.
func (ce *CachedEncoder) Close() error {
	return ce.inner.Close()
}
