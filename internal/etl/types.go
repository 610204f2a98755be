package etl

import (
	"strings"
	"time"
)

// MentionRecord represents a single entity mention from an input dataset
type MentionRecord struct {
	Text   string `csv:"text" parquet:"text" json:"text"`
	Label  string `csv:"label" parquet:"label" json:"label"`
	Corpus string `csv:"corpus" parquet:"corpus" json:"corpus"`
}

// ProcessingResult represents the result of processing a dataset
type ProcessingResult struct {
	TotalRecords    int64         `json:"total_records"`
	ProcessedOK     int64         `json:"processed_ok"`
	ProcessedFailed int64         `json:"processed_failed"`
	Duration        time.Duration `json:"duration"`
	EmbeddingTime   time.Duration `json:"embedding_time"`
	DatabaseTime    time.Duration `json:"database_time"`
	Errors          []string      `json:"errors,omitempty"`
}

// Config contains ingest pipeline configuration
type Config struct {
	BatchSize      int    `yaml:"batch_size" mapstructure:"batch_size"`           // 1000
	Corpus         string `yaml:"corpus" mapstructure:"corpus"`                   // fallback corpus name
	TagType        string `yaml:"tag_type" mapstructure:"tag_type"`               // annotation layer for column files
	ValidateData   bool   `yaml:"validate_data" mapstructure:"validate_data"`     // true
	CreateIndex    bool   `yaml:"create_index" mapstructure:"create_index"`       // true
	UpdateCache    bool   `yaml:"update_cache" mapstructure:"update_cache"`       // true
	ProgressReport int    `yaml:"progress_report" mapstructure:"progress_report"` // 1000
}

// ProcessingStats tracks real-time processing statistics
type ProcessingStats struct {
	StartTime      time.Time `json:"start_time"`
	RecordsRead    int64     `json:"records_read"`
	RecordsValid   int64     `json:"records_valid"`
	RecordsInvalid int64     `json:"records_invalid"`
	EmbeddingsGen  int64     `json:"embeddings_generated"`
	DatabaseWrites int64     `json:"database_writes"`
	CacheWrites    int64     `json:"cache_writes"`
}

// FileFormat represents supported file formats
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
	FormatJSON    FileFormat = "json"
	FormatColumn  FileFormat = "column"
)

// DetectFileFormat detects file format from extension. Plain .txt and
// .conll files are treated as column-annotated corpus splits.
func DetectFileFormat(filename string) FileFormat {
	switch {
	case strings.HasSuffix(filename, ".csv"):
		return FormatCSV
	case strings.HasSuffix(filename, ".parquet"):
		return FormatParquet
	case strings.HasSuffix(filename, ".json") || strings.HasSuffix(filename, ".jsonl"):
		return FormatJSON
	case strings.HasSuffix(filename, ".txt") || strings.HasSuffix(filename, ".conll"):
		return FormatColumn
	default:
		return FormatCSV
	}
}
