package store

import (
	"time"
)

// MentionVector represents an entity mention surface with its embedding
type MentionVector struct {
	ID        int64     `db:"id" json:"id"`
	Text      string    `db:"text" json:"text"`
	TextHash  string    `db:"text_hash" json:"text_hash"`
	Corpus    string    `db:"corpus" json:"corpus"`
	Label     string    `db:"label" json:"label"`
	Embedding []float32 `db:"embedding" json:"embedding"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SimilarityResult represents a vector similarity search result
type SimilarityResult struct {
	Vector     *MentionVector `json:"vector"`
	Similarity float32        `json:"similarity"`
	Distance   float32        `json:"distance"`
}

// SearchOptions contains options for vector similarity search
type SearchOptions struct {
	Limit         int     `json:"limit"`
	MinSimilarity float32 `json:"min_similarity"`
	LabelFilter   string  `json:"label_filter,omitempty"`
	CorpusFilter  string  `json:"corpus_filter,omitempty"`
}

// LabelCount is the number of stored mentions carrying one label
type LabelCount struct {
	Label string `db:"label" json:"label"`
	Count int64  `db:"count" json:"count"`
}

// MentionStats represents database statistics
type MentionStats struct {
	TotalVectors int64        `json:"total_vectors"`
	Corpora      int64        `json:"corpora"`
	Labels       []LabelCount `json:"labels"`
}

// BatchInsertResult represents the result of a batch insert operation
type BatchInsertResult struct {
	Inserted int64         `json:"inserted"`
	Failed   int64         `json:"failed"`
	Duration time.Duration `json:"duration"`
	Errors   []error       `json:"errors,omitempty"`
}
