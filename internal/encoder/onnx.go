//go:build onnx
// +build onnx

package encoder

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/dualtag/dualtag/internal/data"
)

// ONNXEncoder runs a BERT-style transformer through ONNX Runtime. Token
// embeddings are the mean of each word's subword vectors from the last
// hidden state; phrase embeddings mean-pool the whole sequence.
type ONNXEncoder struct {
	config  Config
	session *ort.DynamicAdvancedSession
	vocab   *wordPieceVocab
	logger  *zap.Logger
	stats   Stats
	mu      sync.Mutex
}

// NewONNXEncoder loads the model and vocabulary and creates an inference
// session. The shared library path can be supplied via ONNXRUNTIME_SHARED_LIB.
func NewONNXEncoder(config Config, logger *zap.Logger) (*ONNXEncoder, error) {
	if config.Dimensions <= 0 {
		config.Dimensions = DefaultDimensions
	}
	if config.MaxLength <= 0 {
		config.MaxLength = 512
	}
	config.Type = TypeONNX

	if shlib := os.Getenv("ONNXRUNTIME_SHARED_LIB"); shlib != "" {
		ort.SetSharedLibraryPath(shlib)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("onnx runtime init failed: %w", err)
		}
	}

	vocab, err := loadWordPieceVocab(config.VocabPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}

	inputNames := []string{"input_ids", "attention_mask", "token_type_ids"}
	session, err := ort.NewDynamicAdvancedSession(config.ModelPath, inputNames, []string{"last_hidden_state"}, nil)
	if err != nil {
		return nil, fmt.Errorf("onnx session creation failed: %w", err)
	}

	logger.Info("ONNX encoder initialized",
		zap.String("model", config.ModelPath),
		zap.Int("dimensions", config.Dimensions),
		zap.Int("max_length", config.MaxLength))

	return &ONNXEncoder{config: config, session: session, vocab: vocab, logger: logger}, nil
}

// EmbedTokens embeds every token of every sentence in place.
func (e *ONNXEncoder) EmbedTokens(ctx context.Context, sentences []*data.Sentence) error {
	start := time.Now()
	units := 0
	for _, sentence := range sentences {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		words := make([]string, sentence.Len())
		for i, token := range sentence.Tokens {
			words[i] = token.Text
		}
		ids, wordSpans := e.vocab.encodeWords(words, e.config.MaxLength)

		hidden, seqLen, err := e.run(ids)
		if err != nil {
			return err
		}

		for i, token := range sentence.Tokens {
			span := wordSpans[i]
			vec := make([]float32, e.config.Dimensions)
			count := 0
			for pos := span[0]; pos < span[1] && pos < seqLen; pos++ {
				offset := pos * e.config.Dimensions
				for d := 0; d < e.config.Dimensions; d++ {
					vec[d] += hidden[offset+d]
				}
				count++
			}
			if count > 1 {
				inv := 1.0 / float32(count)
				for d := range vec {
					vec[d] *= inv
				}
			}
			normalize(vec)
			token.Embedding = vec
			units++
		}
	}
	e.record(units, time.Since(start))
	return nil
}

// EmbedPhrases embeds each phrase by mean-pooling its sequence output.
func (e *ONNXEncoder) EmbedPhrases(ctx context.Context, phrases []string) ([][]float32, error) {
	start := time.Now()
	out := make([][]float32, len(phrases))
	for i, phrase := range phrases {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		ids, _ := e.vocab.encodeWords(strings.Fields(phrase), e.config.MaxLength)
		hidden, seqLen, err := e.run(ids)
		if err != nil {
			return nil, err
		}

		vec := make([]float32, e.config.Dimensions)
		for pos := 0; pos < seqLen; pos++ {
			offset := pos * e.config.Dimensions
			for d := 0; d < e.config.Dimensions; d++ {
				vec[d] += hidden[offset+d]
			}
		}
		if seqLen > 0 {
			inv := 1.0 / float32(seqLen)
			for d := range vec {
				vec[d] *= inv
			}
		}
		normalize(vec)
		out[i] = vec
	}
	e.record(len(phrases), time.Since(start))
	return out, nil
}

// run executes one forward pass and returns the flat last hidden state and
// the sequence length.
func (e *ONNXEncoder) run(ids []int64) ([]float32, int, error) {
	seqLen := len(ids)
	if seqLen == 0 {
		return nil, 0, ErrInferenceFailed
	}

	shape := ort.NewShape(1, int64(seqLen))
	mask := make([]int64, seqLen)
	types := make([]int64, seqLen)
	for i := range mask {
		mask[i] = 1
	}

	idsTensor, err := ort.NewTensor[int64](shape, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor[int64](shape, mask)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()
	typeTensor, err := ort.NewTensor[int64](shape, types)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	defer typeTensor.Destroy()

	outputs := make([]ort.Value, 1)
	if err := e.session.Run([]ort.Value{idsTensor, maskTensor, typeTensor}, outputs); err != nil {
		return nil, 0, fmt.Errorf("onnx run failed: %w", err)
	}
	defer outputs[0].Destroy()

	outTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, 0, fmt.Errorf("unexpected output type (want float32 tensor)")
	}
	outShape := outTensor.GetShape()
	if len(outShape) != 3 || int(outShape[2]) != e.config.Dimensions {
		return nil, 0, fmt.Errorf("unexpected output shape %v (want [1, seq, %d])", outShape, e.config.Dimensions)
	}

	hidden := make([]float32, len(outTensor.GetData()))
	copy(hidden, outTensor.GetData())
	return hidden, int(outShape[1]), nil
}

// Dim returns the embedding dimensionality.
func (e *ONNXEncoder) Dim() int {
	return e.config.Dimensions
}

// Config returns the serializable encoder configuration.
func (e *ONNXEncoder) Config() Config {
	return e.config
}

// Stats returns a copy of the cumulative statistics.
func (e *ONNXEncoder) Stats() *Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	stats := e.stats
	return &stats
}

// Close destroys the inference session.
func (e *ONNXEncoder) Close() error {
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	return nil
}

func (e *ONNXEncoder) record(units int, duration time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.TotalInferences++
	e.stats.TotalUnits += int64(units)
	e.stats.LastInference = time.Now()
	total := time.Duration(e.stats.TotalInferences-1)*e.stats.AvgInferenceTime + duration
	e.stats.AvgInferenceTime = total / time.Duration(e.stats.TotalInferences)
}

// wordPieceVocab is a minimal WordPiece tokenizer over a vocab.txt file.
type wordPieceVocab struct {
	ids   map[string]int64
	clsID int64
	sepID int64
	unkID int64
}

func loadWordPieceVocab(path string) (*wordPieceVocab, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	v := &wordPieceVocab{ids: make(map[string]int64)}
	scanner := bufio.NewScanner(file)
	var idx int64
	for scanner.Scan() {
		v.ids[scanner.Text()] = idx
		idx++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	v.clsID = v.ids["[CLS]"]
	v.sepID = v.ids["[SEP]"]
	v.unkID = v.ids["[UNK]"]
	return v, nil
}

// encodeWords tokenizes pre-split words and returns the id sequence
// (bracketed by [CLS]/[SEP]) plus, per word, its [start, end) positions in
// that sequence.
func (v *wordPieceVocab) encodeWords(words []string, maxLength int) ([]int64, [][2]int) {
	ids := []int64{v.clsID}
	spans := make([][2]int, len(words))

	for wi, word := range words {
		start := len(ids)
		for _, piece := range v.wordPieces(strings.ToLower(word)) {
			if len(ids) >= maxLength-1 {
				break
			}
			if id, ok := v.ids[piece]; ok {
				ids = append(ids, id)
			} else {
				ids = append(ids, v.unkID)
			}
		}
		end := len(ids)
		if end == start {
			// Truncated away; point at [CLS] so the word still gets a vector.
			start, end = 0, 1
		}
		spans[wi] = [2]int{start, end}
	}

	ids = append(ids, v.sepID)
	return ids, spans
}

func (v *wordPieceVocab) wordPieces(word string) []string {
	if word == "" {
		return nil
	}
	runes := []rune(word)
	var pieces []string
	start := 0
	for start < len(runes) {
		end := len(runes)
		found := false
		for end > start {
			piece := string(runes[start:end])
			if start > 0 {
				piece = "##" + piece
			}
			if _, ok := v.ids[piece]; ok {
				pieces = append(pieces, piece)
				found = true
				break
			}
			end--
		}
		if !found {
			return []string{"[UNK]"}
		}
		start = end
	}
	return pieces
}
