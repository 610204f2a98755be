package encoder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dualtag/dualtag/internal/data"
)

// DefaultDimensions matches the MiniLM-class sentence transformers the ONNX
// encoder runs, so hash and ONNX embeddings are interchangeable in shape.
const DefaultDimensions = 384

// HashEncoder produces deterministic embeddings by seeding a PRNG with the
// SHA-256 of the normalized text. Identical inputs always map to identical
// unit vectors; unrelated inputs land nearly orthogonal. Phrases mix the
// vectors of their words so related phrases ("begin person", "inside
// person") stay close in the space.
type HashEncoder struct {
	config Config
	logger *zap.Logger
	stats  Stats
	mu     sync.Mutex
}

// NewHashEncoder creates a deterministic hash encoder.
func NewHashEncoder(config Config, logger *zap.Logger) (*HashEncoder, error) {
	if config.Dimensions <= 0 {
		config.Dimensions = DefaultDimensions
	}
	config.Type = TypeHash

	logger.Info("Hash encoder initialized",
		zap.Int("dimensions", config.Dimensions))

	return &HashEncoder{config: config, logger: logger}, nil
}

// EmbedTokens sets a deterministic embedding on every token.
func (e *HashEncoder) EmbedTokens(ctx context.Context, sentences []*data.Sentence) error {
	start := time.Now()
	units := 0
	for _, sentence := range sentences {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		for _, token := range sentence.Tokens {
			token.Embedding = e.embedText(token.Text)
			units++
		}
	}
	e.record(units, time.Since(start))
	return nil
}

// EmbedPhrases embeds each phrase as the normalized mean of its word
// vectors.
func (e *HashEncoder) EmbedPhrases(ctx context.Context, phrases []string) ([][]float32, error) {
	start := time.Now()
	out := make([][]float32, len(phrases))
	for i, phrase := range phrases {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		out[i] = e.embedPhrase(phrase)
	}
	e.record(len(phrases), time.Since(start))
	return out, nil
}

func (e *HashEncoder) embedText(text string) []float32 {
	text = strings.ToLower(strings.TrimSpace(text))

	hash := sha256.Sum256([]byte(text))
	seed := int64(binary.BigEndian.Uint64(hash[:8]))
	rng := rand.New(rand.NewSource(seed))

	vec := make([]float32, e.config.Dimensions)
	for i := range vec {
		vec[i] = float32(rng.NormFloat64())
	}
	normalize(vec)
	return vec
}

func (e *HashEncoder) embedPhrase(phrase string) []float32 {
	words := strings.Fields(strings.ToLower(phrase))
	if len(words) == 0 {
		return e.embedText("")
	}

	vec := make([]float32, e.config.Dimensions)
	for _, word := range words {
		wv := e.embedText(word)
		for i := range vec {
			vec[i] += wv[i]
		}
	}
	normalize(vec)
	return vec
}

// Dim returns the embedding dimensionality.
func (e *HashEncoder) Dim() int {
	return e.config.Dimensions
}

// Config returns the serializable encoder configuration.
func (e *HashEncoder) Config() Config {
	return e.config
}

// Stats returns a copy of the cumulative statistics.
func (e *HashEncoder) Stats() *Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	stats := e.stats
	return &stats
}

// Close releases nothing; the hash encoder holds no resources.
func (e *HashEncoder) Close() error {
	return nil
}

func (e *HashEncoder) record(units int, duration time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.TotalInferences++
	e.stats.TotalUnits += int64(units)
	e.stats.LastInference = time.Now()
	total := time.Duration(e.stats.TotalInferences-1)*e.stats.AvgInferenceTime + duration
	e.stats.AvgInferenceTime = total / time.Duration(e.stats.TotalInferences)
}

// normalize scales the vector to unit L2 norm in place.
func normalize(vec []float32) {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
}
