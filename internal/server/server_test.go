package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/dualtag/dualtag/internal/config"
	"github.com/dualtag/dualtag/internal/encoder"
	"github.com/dualtag/dualtag/internal/etl"
	"github.com/dualtag/dualtag/internal/labels"
	"github.com/dualtag/dualtag/internal/logger"
	"github.com/dualtag/dualtag/internal/model"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.GetDefaults()

	log, err := logger.New(logger.Config{Level: "error", Format: "json"})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	nop := zap.NewNop()
	tokenEnc, err := encoder.NewHashEncoder(encoder.Config{Dimensions: 64}, nop)
	if err != nil {
		t.Fatalf("Failed to create token encoder: %v", err)
	}
	labelEnc, err := encoder.NewHashEncoder(encoder.Config{Dimensions: 64}, nop)
	if err != nil {
		t.Fatalf("Failed to create label encoder: %v", err)
	}

	dict := labels.NewSpanDictionary("person", "location")
	tagger, err := model.New(tokenEnc, labelEnc, dict, "ner", model.Options{TagFormat: "BIO"}, nop)
	if err != nil {
		t.Fatalf("Failed to create tagger: %v", err)
	}

	srv, err := New(cfg, log, tagger, nil)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return srv
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %q", body["status"])
	}
}

func TestHandleInfo(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/info", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if body["tag_type"] != "ner" {
		t.Errorf("Expected tag_type ner, got %v", body["tag_type"])
	}
	// 1 outside tag + B/I per label
	if body["tagset_size"].(float64) != 5 {
		t.Errorf("Expected tagset_size 5, got %v", body["tagset_size"])
	}
	if body["store_enabled"].(bool) {
		t.Error("Store should be reported disabled")
	}
}

func TestHandleLabels(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/v1/labels", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body LabelsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if len(body.Tags) != 5 {
		t.Errorf("Expected 5 tags, got %d: %v", len(body.Tags), body.Tags)
	}
	if body.Tags[0] != "O" {
		t.Errorf("First tag must be O, got %q", body.Tags[0])
	}
}

func TestHandleTag(t *testing.T) {
	srv := newTestServer(t)

	t.Run("TokenizedSentences", func(t *testing.T) {
		payload, _ := json.Marshal(TagRequest{
			Sentences: [][]string{{"John", "visits", "Berlin"}},
		})

		req := httptest.NewRequest("POST", "/v1/tag", bytes.NewReader(payload))
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var body TagResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("Invalid JSON response: %v", err)
		}
		if len(body.Sentences) != 1 {
			t.Fatalf("Expected 1 sentence, got %d", len(body.Sentences))
		}
		if len(body.Sentences[0].Tokens) != 3 {
			t.Errorf("Expected 3 tokens back, got %v", body.Sentences[0].Tokens)
		}
		for _, span := range body.Sentences[0].Spans {
			if span.Label == "O" {
				t.Error("Response spans must never carry the O label")
			}
			if span.Text == "" {
				t.Error("Span text should be filled from token surfaces")
			}
		}
	})

	t.Run("RawTexts", func(t *testing.T) {
		payload, _ := json.Marshal(TagRequest{Texts: []string{"John visits Berlin."}})

		req := httptest.NewRequest("POST", "/v1/tag", bytes.NewReader(payload))
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
	})

	t.Run("EmptyRequest", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/v1/tag", bytes.NewReader([]byte(`{}`)))
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for empty request, got %d", rec.Code)
		}
	})

	t.Run("InvalidBody", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/v1/tag", bytes.NewReader([]byte(`not json`)))
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for invalid body, got %d", rec.Code)
		}
	})
}

func TestHandleSimilarWithoutStore(t *testing.T) {
	srv := newTestServer(t)

	payload, _ := json.Marshal(SimilarRequest{Text: "Berlin"})
	req := httptest.NewRequest("POST", "/v1/similar", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without a store, got %d", rec.Code)
	}
}

func TestHandleIngest(t *testing.T) {
	srv := newTestServer(t)

	t.Run("NoRecords", func(t *testing.T) {
		payload, _ := json.Marshal(IngestRequest{})
		req := httptest.NewRequest("POST", "/v1/ingest", bytes.NewReader(payload))
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for empty record list, got %d", rec.Code)
		}
	})

	t.Run("InvalidBody", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/v1/ingest", bytes.NewReader([]byte("{broken")))
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for malformed body, got %d", rec.Code)
		}
	})

	t.Run("WithoutStore", func(t *testing.T) {
		payload, _ := json.Marshal(IngestRequest{
			Records: []*etl.MentionRecord{{Text: "Berlin", Label: "location"}},
		})
		req := httptest.NewRequest("POST", "/v1/ingest", bytes.NewReader(payload))
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected 503 without a store, got %d", rec.Code)
		}
	})
}

func TestIPRateLimiter(t *testing.T) {
	limiter := newIPRateLimiter(1, 2)

	if !limiter.allow("10.0.0.1") {
		t.Error("First request should pass")
	}
	if !limiter.allow("10.0.0.1") {
		t.Error("Second request should consume the burst")
	}
	if limiter.allow("10.0.0.1") {
		t.Error("Third immediate request should be limited")
	}
	if !limiter.allow("10.0.0.2") {
		t.Error("Other clients have their own bucket")
	}
}
