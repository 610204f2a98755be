package cache

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/dualtag/dualtag/internal/encoder"
)

// memoryPhraseCache backs PhraseCache with a map for tests.
type memoryPhraseCache struct {
	entries map[string][]float32
	fail    bool
}

func newMemoryPhraseCache() *memoryPhraseCache {
	return &memoryPhraseCache{entries: make(map[string][]float32)}
}

func (m *memoryPhraseCache) key(enc, phrase string) string {
	return enc + "\x00" + phrase
}

func (m *memoryPhraseCache) Lookup(ctx context.Context, enc, phrase string) (*LookupResult, error) {
	if m.fail {
		return nil, errors.New("cache unavailable")
	}
	embedding, ok := m.entries[m.key(enc, phrase)]
	if !ok {
		return &LookupResult{CacheHit: false}, nil
	}
	return &LookupResult{
		Embedding: &CachedEmbedding{Phrase: phrase, Embedding: embedding, Encoder: enc},
		CacheHit:  true,
	}, nil
}

func (m *memoryPhraseCache) StoreBatch(ctx context.Context, enc string, phrases []string, embeddings [][]float32) error {
	if m.fail {
		return errors.New("cache unavailable")
	}
	for i, phrase := range phrases {
		m.entries[m.key(enc, phrase)] = embeddings[i]
	}
	return nil
}

// countingEncoder counts how many phrases reach the inner encoder.
type countingEncoder struct {
	encoder.Encoder
	phrasesEmbedded int
}

func (c *countingEncoder) EmbedPhrases(ctx context.Context, phrases []string) ([][]float32, error) {
	c.phrasesEmbedded += len(phrases)
	return c.Encoder.EmbedPhrases(ctx, phrases)
}

func newCountingEncoder(t *testing.T) *countingEncoder {
	t.Helper()
	hash, err := encoder.NewHashEncoder(encoder.Config{Dimensions: 32}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewHashEncoder failed: %v", err)
	}
	return &countingEncoder{Encoder: hash}
}

func TestCachedEncoder(t *testing.T) {
	ctx := context.Background()
	phrases := []string{"begin person", "inside person"}

	t.Run("MissThenHit", func(t *testing.T) {
		inner := newCountingEncoder(t)
		phraseCache := newMemoryPhraseCache()
		cached := NewCachedEncoder(inner, phraseCache, zap.NewNop())

		first, err := cached.EmbedPhrases(ctx, phrases)
		if err != nil {
			t.Fatalf("EmbedPhrases failed: %v", err)
		}
		if inner.phrasesEmbedded != 2 {
			t.Errorf("Cold cache should embed every phrase, embedded %d", inner.phrasesEmbedded)
		}
		if len(phraseCache.entries) != 2 {
			t.Errorf("Misses should be stored back, cache holds %d entries", len(phraseCache.entries))
		}

		second, err := cached.EmbedPhrases(ctx, phrases)
		if err != nil {
			t.Fatalf("EmbedPhrases failed: %v", err)
		}
		if inner.phrasesEmbedded != 2 {
			t.Errorf("Warm cache should embed nothing, embedded %d total", inner.phrasesEmbedded)
		}
		if !reflect.DeepEqual(first, second) {
			t.Error("Cached embeddings must match freshly computed ones")
		}
	})

	t.Run("PartialHit", func(t *testing.T) {
		inner := newCountingEncoder(t)
		phraseCache := newMemoryPhraseCache()
		cached := NewCachedEncoder(inner, phraseCache, zap.NewNop())

		if _, err := cached.EmbedPhrases(ctx, []string{"begin person"}); err != nil {
			t.Fatalf("EmbedPhrases failed: %v", err)
		}
		out, err := cached.EmbedPhrases(ctx, []string{"begin person", "other"})
		if err != nil {
			t.Fatalf("EmbedPhrases failed: %v", err)
		}
		if inner.phrasesEmbedded != 2 {
			t.Errorf("Only the miss should reach the encoder, embedded %d total", inner.phrasesEmbedded)
		}
		for i, embedding := range out {
			if len(embedding) != 32 {
				t.Errorf("Output %d has dimension %d, want 32", i, len(embedding))
			}
		}
	})

	t.Run("CacheFailureDegrades", func(t *testing.T) {
		inner := newCountingEncoder(t)
		phraseCache := newMemoryPhraseCache()
		phraseCache.fail = true
		cached := NewCachedEncoder(inner, phraseCache, zap.NewNop())

		out, err := cached.EmbedPhrases(ctx, phrases)
		if err != nil {
			t.Fatalf("Cache failure must not fail embedding: %v", err)
		}
		if len(out) != 2 {
			t.Fatalf("Expected 2 embeddings, got %d", len(out))
		}
		if inner.phrasesEmbedded != 2 {
			t.Errorf("All phrases should fall through to the encoder, embedded %d", inner.phrasesEmbedded)
		}
	})

	t.Run("DelegatesConfig", func(t *testing.T) {
		inner := newCountingEncoder(t)
		cached := NewCachedEncoder(inner, newMemoryPhraseCache(), zap.NewNop())
		if cached.Dim() != inner.Dim() {
			t.Error("Dim must delegate to the inner encoder")
		}
		if cached.Config().Type != encoder.TypeHash {
			t.Errorf("Config must delegate, got type %q", cached.Config().Type)
		}
	})
}
