package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dualtag/dualtag/internal/data"
	"github.com/dualtag/dualtag/internal/etl"
	"github.com/dualtag/dualtag/internal/model"
	"github.com/dualtag/dualtag/internal/store"
	"github.com/dualtag/dualtag/internal/websocket"
)

// TagRequest is the body of POST /v1/tag. Either pre-tokenized
// sentences or raw texts may be supplied.
type TagRequest struct {
	Sentences [][]string `json:"sentences,omitempty"`
	Texts     []string   `json:"texts,omitempty"`
	// TokenLevel forces per-token output instead of spans
	TokenLevel bool `json:"token_level,omitempty"`
}

// TagSpan is one predicted entity span
type TagSpan struct {
	Start int     `json:"start"`
	End   int     `json:"end"`
	Text  string  `json:"text"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// TokenTag is one per-token prediction
type TokenTag struct {
	Position int     `json:"position"`
	Token    string  `json:"token"`
	Tag      string  `json:"tag"`
	Score    float64 `json:"score"`
}

// TaggedSentence is the per-sentence response payload
type TaggedSentence struct {
	Tokens []string   `json:"tokens"`
	Spans  []TagSpan  `json:"spans,omitempty"`
	Tags   []TokenTag `json:"tags,omitempty"`
}

// TagResponse is the body of a successful POST /v1/tag
type TagResponse struct {
	Sentences    []TaggedSentence `json:"sentences"`
	ProcessingMS float64          `json:"processing_ms"`
}

// handleTag runs the tagger over the request sentences
func (s *Server) handleTag(w http.ResponseWriter, r *http.Request) {
	var req TagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sentences := make([]*data.Sentence, 0, len(req.Sentences)+len(req.Texts))
	for _, tokens := range req.Sentences {
		sentences = append(sentences, data.NewSentence(tokens))
	}
	for _, text := range req.Texts {
		sentences = append(sentences, data.NewSentenceFromText(text))
	}

	if len(sentences) == 0 {
		http.Error(w, "no sentences provided", http.StatusBadRequest)
		return
	}

	start := time.Now()
	_, _, err := s.tagger.Predict(r.Context(), sentences, model.PredictOptions{
		MiniBatchSize:         s.config.Model.BatchSize,
		ForceTokenPredictions: req.TokenLevel,
	})
	if err != nil {
		s.logger.Error("Tagging failed", zap.Error(err))
		http.Error(w, "tagging failed", http.StatusInternalServerError)
		return
	}
	duration := time.Since(start)

	tagType := s.tagger.TagType()
	resp := TagResponse{
		Sentences:    make([]TaggedSentence, len(sentences)),
		ProcessingMS: float64(duration.Nanoseconds()) / 1e6,
	}

	totalTokens, totalSpans := 0, 0
	for i, sentence := range sentences {
		tagged := TaggedSentence{Tokens: make([]string, sentence.Len())}
		for j, tok := range sentence.Tokens {
			tagged.Tokens[j] = tok.Text
		}
		totalTokens += sentence.Len()

		if req.TokenLevel {
			for pos, tok := range sentence.Tokens {
				label := tok.GetLabel(tagType, "")
				if label.Value == "" {
					continue
				}
				tagged.Tags = append(tagged.Tags, TokenTag{
					Position: pos,
					Token:    tok.Text,
					Tag:      label.Value,
					Score:    label.Score,
				})
			}
		} else {
			for _, span := range sentence.Spans(tagType) {
				tagged.Spans = append(tagged.Spans, TagSpan{
					Start: span.Start,
					End:   span.End,
					Text:  spanText(sentence, span.Start, span.End),
					Label: span.Label,
					Score: span.Score,
				})
			}
			totalSpans += len(tagged.Spans)
		}

		resp.Sentences[i] = tagged
	}

	s.wsHub.BroadcastEvent(websocket.Event{
		Type:      websocket.EventTypeTagging,
		Timestamp: time.Now(),
		RequestID: getRequestID(r.Context()),
		Data: websocket.TaggingEvent{
			RequestID:    getRequestID(r.Context()),
			ClientIP:     getClientIP(r),
			Sentences:    len(sentences),
			Tokens:       totalTokens,
			Spans:        totalSpans,
			ProcessingMS: resp.ProcessingMS,
		},
	})

	writeJSON(w, http.StatusOK, resp)
}

// LabelsResponse is the body of GET /v1/labels
type LabelsResponse struct {
	TagType   string   `json:"tag_type"`
	TagFormat string   `json:"tag_format"`
	Tags      []string `json:"tags"`
}

// handleLabels reports the expanded tagset
func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LabelsResponse{
		TagType:   s.tagger.TagType(),
		TagFormat: s.config.Model.TagFormat,
		Tags:      s.tagger.Tags(),
	})
}

// SimilarRequest is the body of POST /v1/similar
type SimilarRequest struct {
	Text          string  `json:"text"`
	Limit         int     `json:"limit,omitempty"`
	MinSimilarity float32 `json:"min_similarity,omitempty"`
	Label         string  `json:"label,omitempty"`
}

// SimilarMention is one similarity search hit
type SimilarMention struct {
	Text       string  `json:"text"`
	Label      string  `json:"label"`
	Corpus     string  `json:"corpus,omitempty"`
	Similarity float32 `json:"similarity"`
}

// IngestRequest is the body of POST /v1/ingest
type IngestRequest struct {
	Records []*etl.MentionRecord `json:"records"`
	Corpus  string               `json:"corpus,omitempty"`
}

// IngestResponse reports what happened to the submitted mentions
type IngestResponse struct {
	TotalRecords    int64   `json:"total_records"`
	ProcessedOK     int64   `json:"processed_ok"`
	ProcessedFailed int64   `json:"processed_failed"`
	ProcessingMS    float64 `json:"processing_ms"`
}

// handleIngest embeds submitted mentions with the label encoder and
// writes them to the mention store
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Records) == 0 {
		http.Error(w, "no records provided", http.StatusBadRequest)
		return
	}
	if s.mentionStore == nil {
		http.Error(w, "mention store is not configured", http.StatusServiceUnavailable)
		return
	}

	ingestCfg := s.config.Ingest
	if req.Corpus != "" {
		ingestCfg.Corpus = req.Corpus
	}
	if ingestCfg.BatchSize <= 0 {
		ingestCfg.BatchSize = len(req.Records)
	}
	if ingestCfg.ProgressReport <= 0 {
		ingestCfg.ProgressReport = 1000
	}

	pipeline := etl.NewPipeline(s.mentionStore, s.tagger.LabelEncoder(), nil, &ingestCfg, s.logger.Logger)

	result, err := pipeline.ProcessRecords(r.Context(), req.Records)
	if err != nil {
		s.logger.Error("Ingest failed", zap.Error(err))
		http.Error(w, "ingest failed", http.StatusInternalServerError)
		return
	}

	s.wsHub.BroadcastEvent(websocket.Event{
		Type:      websocket.EventTypeIngest,
		Timestamp: time.Now(),
		RequestID: getRequestID(r.Context()),
		Data: websocket.IngestEvent{
			File:            "api",
			TotalRecords:    result.TotalRecords,
			ProcessedOK:     result.ProcessedOK,
			ProcessedFailed: result.ProcessedFailed,
		},
	})

	writeJSON(w, http.StatusOK, IngestResponse{
		TotalRecords:    result.TotalRecords,
		ProcessedOK:     result.ProcessedOK,
		ProcessedFailed: result.ProcessedFailed,
		ProcessingMS:    float64(result.Duration.Nanoseconds()) / 1e6,
	})
}

// handleSimilar searches the mention store for mentions close to the
// given text
func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	if s.mentionStore == nil {
		http.Error(w, "mention store is not configured", http.StatusServiceUnavailable)
		return
	}

	var req SimilarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if req.Limit <= 0 {
		req.Limit = 5
	}

	embeddings, err := s.tagger.LabelEncoder().EmbedPhrases(r.Context(), []string{req.Text})
	if err != nil || len(embeddings) != 1 {
		s.logger.Error("Failed to embed query text", zap.Error(err))
		http.Error(w, "embedding failed", http.StatusInternalServerError)
		return
	}

	results, err := s.mentionStore.FindSimilar(r.Context(), embeddings[0], &store.SearchOptions{
		Limit:         req.Limit,
		MinSimilarity: req.MinSimilarity,
		LabelFilter:   req.Label,
	})
	if err != nil {
		s.logger.Error("Similarity search failed", zap.Error(err))
		http.Error(w, "similarity search failed", http.StatusInternalServerError)
		return
	}

	mentions := make([]SimilarMention, len(results))
	for i, res := range results {
		mentions[i] = SimilarMention{
			Text:       res.Vector.Text,
			Label:      res.Vector.Label,
			Corpus:     res.Vector.Corpus,
			Similarity: res.Similarity,
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"mentions": mentions})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":          "dualtag",
		"version":       "0.1.0",
		"tag_type":      s.tagger.TagType(),
		"tag_format":    s.config.Model.TagFormat,
		"tagset_size":   s.tagger.TagsetSize(),
		"store_enabled": s.mentionStore != nil,
	})
}

// spanText joins the surface forms of a token range
func spanText(sentence *data.Sentence, start, end int) string {
	text := ""
	for i := start; i <= end && i < sentence.Len(); i++ {
		if i > start {
			text += " "
		}
		text += sentence.Tokens[i].Text
	}
	return text
}

// writeJSON writes a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
