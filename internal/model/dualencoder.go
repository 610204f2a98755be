// Package model implements the dual-encoder sequence labeler: tokens and
// verbalized label phrases are embedded into a shared space by two
// independently configurable encoders, and every (token, label) pair is
// scored by inner product.
package model

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/dualtag/dualtag/internal/data"
	"github.com/dualtag/dualtag/internal/decode"
	"github.com/dualtag/dualtag/internal/encoder"
	"github.com/dualtag/dualtag/internal/labels"
)

// Options configure model construction.
type Options struct {
	// TagFormat is "BIO" or "BIOES". Defaults to BIO.
	TagFormat string
	// Dropout is the training-time dropout rate. It is carried in the
	// model state for compatibility; scoring itself never applies it.
	Dropout float64
}

// DualEncoder scores (token, label) compatibility via two embedding
// functions sharing one vector space.
type DualEncoder struct {
	tokenEncoder encoder.Encoder
	labelEncoder encoder.Encoder

	dict         *labels.Dictionary // expanded, token-level
	verbalized   []string           // tag index -> phrase
	format       labels.Format
	tagType      string
	dropout      float64
	predictSpans bool

	labelMatrix [][]float32 // cached label-phrase embeddings
	logger      *zap.Logger
}

// New builds a dual encoder over a tag dictionary. Span-level dictionaries
// are expanded into the requested token-level tag format; token-level
// dictionaries are used as-is.
func New(tokenEnc, labelEnc encoder.Encoder, tagDict *labels.Dictionary, tagType string, opts Options, logger *zap.Logger) (*DualEncoder, error) {
	if opts.TagFormat == "" {
		opts.TagFormat = string(labels.FormatBIO)
	}
	format, err := labels.ParseFormat(opts.TagFormat)
	if err != nil {
		return nil, err
	}

	expanded, verbalized, err := labels.Expand(tagDict, format)
	if err != nil {
		return nil, err
	}

	m := &DualEncoder{
		tokenEncoder: tokenEnc,
		labelEncoder: labelEnc,
		dict:         expanded,
		verbalized:   verbalized,
		format:       format,
		tagType:      tagType,
		dropout:      opts.Dropout,
		predictSpans: tagDict.SpanLabels(),
		logger:       logger,
	}

	logger.Info("Dual encoder initialized",
		zap.String("tag_type", tagType),
		zap.String("tag_format", string(format)),
		zap.Int("tagset_size", expanded.Len()),
		zap.Bool("predict_spans", m.predictSpans))

	return m, nil
}

// TagsetSize returns the number of token-level tags the model predicts.
func (m *DualEncoder) TagsetSize() int {
	return m.dict.Len()
}

// TagType returns the label type the model reads and writes.
func (m *DualEncoder) TagType() string {
	return m.tagType
}

// Tags returns the expanded token-level tagset in index order.
func (m *DualEncoder) Tags() []string {
	return m.dict.Items()
}

// LabelEncoder returns the encoder used for label phrases.
func (m *DualEncoder) LabelEncoder() encoder.Encoder {
	return m.labelEncoder
}

// prediction is one token's decoded prediction.
type prediction struct {
	tag   string
	score float64
}

// forwardResult carries everything one forward pass produces.
type forwardResult struct {
	loss       float64
	tokenCount int
	// predictions per sentence, padding already discarded
	predictions [][]prediction
}

// labelEmbeddings embeds the verbalized tagset once and caches the matrix;
// the label space is fixed at construction.
func (m *DualEncoder) labelEmbeddings(ctx context.Context) ([][]float32, error) {
	if m.labelMatrix != nil {
		return m.labelMatrix, nil
	}
	matrix, err := m.labelEncoder.EmbedPhrases(ctx, m.verbalized)
	if err != nil {
		return nil, fmt.Errorf("failed to embed verbalized labels: %w", err)
	}
	m.labelMatrix = matrix
	return matrix, nil
}

// forward embeds the batch, scores every (token, label) pair by inner
// product, computes the summed cross-entropy loss against the gold tags,
// and (when inference is set) decodes per-token predictions split by
// sentence.
func (m *DualEncoder) forward(ctx context.Context, sentences []*data.Sentence, inference bool) (*forwardResult, error) {
	if err := m.tokenEncoder.EmbedTokens(ctx, sentences); err != nil {
		return nil, fmt.Errorf("failed to embed tokens: %w", err)
	}

	labelMatrix, err := m.labelEmbeddings(ctx)
	if err != nil {
		return nil, err
	}

	gold := data.GoldTags(sentences, m.tagType, m.format, m.predictSpans)

	result := &forwardResult{}
	if inference {
		result.predictions = make([][]prediction, len(sentences))
	}

	for si, sentence := range sentences {
		var preds []prediction
		if inference {
			preds = make([]prediction, sentence.Len())
		}

		for ti, token := range sentence.Tokens {
			logits := make([]float64, len(labelMatrix))
			for li, labelVec := range labelMatrix {
				logits[li] = dot(token.Embedding, labelVec)
			}

			logSum := logSumExp(logits)

			goldIdx, ok := m.dict.Index(gold[si][ti])
			if !ok {
				// Tags absent from the expanded dictionary (unseen test
				// labels) contribute as "O".
				goldIdx, _ = m.dict.Index(labels.Outside)
			}
			result.loss += logSum - logits[goldIdx]
			result.tokenCount++

			if inference {
				best := argmax(logits)
				tag, _ := m.dict.Item(best)
				preds[ti] = prediction{
					tag:   tag,
					score: math.Exp(logits[best] - logSum),
				}
			}
		}

		if inference {
			result.predictions[si] = preds
		}
	}

	return result, nil
}

// ForwardLoss computes the summed cross-entropy loss over all tokens of
// the batch, "O" tokens included, and the token count. An empty batch
// yields exactly zero loss and zero count.
func (m *DualEncoder) ForwardLoss(ctx context.Context, sentences []*data.Sentence) (float64, int, error) {
	if len(sentences) == 0 {
		return 0.0, 0, nil
	}
	result, err := m.forward(ctx, sentences, false)
	if err != nil {
		return 0, 0, err
	}
	return result.loss, result.tokenCount, nil
}

// PredictOptions configure batch inference.
type PredictOptions struct {
	// MiniBatchSize splits the input into batches. Defaults to 32.
	MiniBatchSize int
	// LabelName is the type predictions are attached under. Defaults to the
	// model's tag type.
	LabelName string
	// ReturnLoss accumulates the loss over all batches.
	ReturnLoss bool
	// ForceTokenPredictions attaches token-level labels even for span
	// models; "O" and legacy "_" predictions are skipped.
	ForceTokenPredictions bool
	// KeepEmbeddings retains token embeddings after inference instead of
	// clearing them.
	KeepEmbeddings bool
}

// Predict labels the sentences in place. Prior labels of the target type
// are removed first. Span models attach decoded spans; token models (and
// ForceTokenPredictions) attach per-token labels. The returned loss and
// count are zero unless ReturnLoss is set.
func (m *DualEncoder) Predict(ctx context.Context, sentences []*data.Sentence, opts PredictOptions) (float64, int, error) {
	if len(sentences) == 0 {
		return 0, 0, nil
	}
	labelName := opts.LabelName
	if labelName == "" {
		labelName = m.tagType
	}

	loader := data.NewLoader(sentences, opts.MiniBatchSize)

	var overallLoss float64
	var labelCount int

	for batch := loader.Next(); batch != nil; batch = loader.Next() {
		for _, sentence := range batch {
			sentence.RemoveSpans(labelName)
		}

		result, err := m.forward(ctx, batch, true)
		if err != nil {
			return overallLoss, labelCount, err
		}

		if opts.ReturnLoss {
			overallLoss += result.loss
			labelCount += result.tokenCount
		}

		for si, sentence := range batch {
			tags := make([]string, len(result.predictions[si]))
			scores := make([]float64, len(result.predictions[si]))
			for i, p := range result.predictions[si] {
				tags[i] = p.tag
				scores[i] = p.score
			}

			if m.predictSpans && !opts.ForceTokenPredictions {
				for _, span := range decode.Spans(tags, scores) {
					sentence.AddSpan(labelName, span.Start, span.End, span.Label, span.Score)
				}
			} else {
				for _, tl := range decode.TokenLabels(tags, scores) {
					sentence.Tokens[tl.Position].AddLabel(labelName, tl.Tag, tl.Score)
				}
			}
		}

		if !opts.KeepEmbeddings {
			for _, sentence := range batch {
				sentence.ClearEmbeddings()
			}
		}
	}

	return overallLoss, labelCount, nil
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func logSumExp(logits []float64) float64 {
	max := math.Inf(-1)
	for _, l := range logits {
		if l > max {
			max = l
		}
	}
	var sum float64
	for _, l := range logits {
		sum += math.Exp(l - max)
	}
	return max + math.Log(sum)
}

func argmax(logits []float64) int {
	best := 0
	for i, l := range logits {
		if l > logits[best] {
			best = i
		}
	}
	return best
}
