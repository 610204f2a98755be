// Package etl loads annotated corpora and mention datasets, embeds the
// mention surfaces, and writes them to the vector store and cache.
package etl

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/dualtag/dualtag/internal/cache"
	"github.com/dualtag/dualtag/internal/data"
	"github.com/dualtag/dualtag/internal/encoder"
	"github.com/dualtag/dualtag/internal/store"
)

// Pipeline handles ingest operations for mention datasets
type Pipeline struct {
	mentionStore *store.Store
	labelEncoder encoder.Encoder
	config       *Config
	logger       *zap.Logger
	stats        *ProcessingStats
	mu           sync.RWMutex
}

// NewPipeline creates a new ingest pipeline. When a cache is provided
// and config.UpdateCache is set, the label encoder is wrapped so phrase
// embeddings are read from the cache and misses are written back.
func NewPipeline(
	mentionStore *store.Store,
	labelEncoder encoder.Encoder,
	embeddingCache *cache.EmbeddingCache,
	config *Config,
	logger *zap.Logger,
) *Pipeline {
	if embeddingCache != nil && config.UpdateCache {
		labelEncoder = cache.NewCachedEncoder(labelEncoder, embeddingCache, logger)
	}
	return &Pipeline{
		mentionStore: mentionStore,
		labelEncoder: labelEncoder,
		config:       config,
		logger:       logger,
		stats: &ProcessingStats{
			StartTime: time.Now(),
		},
	}
}

// ProcessFile processes a dataset file (CSV, Parquet, JSON, or a
// column-annotated corpus split)
func (p *Pipeline) ProcessFile(ctx context.Context, filePath string) (*ProcessingResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	p.logger.Info("Starting ingest pipeline",
		zap.String("file", filePath),
		zap.Int("batch_size", p.config.BatchSize))

	start := time.Now()
	result := &ProcessingResult{}

	format := DetectFileFormat(filePath)
	p.logger.Info("Detected file format", zap.String("format", string(format)))

	p.resetStats()

	switch format {
	case FormatCSV:
		if err := p.processCSV(ctx, filePath, result); err != nil {
			return result, fmt.Errorf("CSV processing failed: %w", err)
		}
	case FormatParquet:
		if err := p.processParquet(ctx, filePath, result); err != nil {
			return result, fmt.Errorf("Parquet processing failed: %w", err)
		}
	case FormatJSON:
		if err := p.processJSON(ctx, filePath, result); err != nil {
			return result, fmt.Errorf("JSON processing failed: %w", err)
		}
	case FormatColumn:
		if err := p.processColumn(ctx, filePath, result); err != nil {
			return result, fmt.Errorf("column file processing failed: %w", err)
		}
	default:
		return result, fmt.Errorf("unsupported file format: %s", format)
	}

	result.Duration = time.Since(start)

	// Create vector index if requested and we have enough data
	if p.config.CreateIndex && result.ProcessedOK > 1000 {
		p.logger.Info("Creating vector similarity index...")
		indexStart := time.Now()
		if err := p.mentionStore.CreateIndex(ctx); err != nil {
			p.logger.Warn("Failed to create vector index", zap.Error(err))
		} else {
			p.logger.Info("Vector index created", zap.Duration("duration", time.Since(indexStart)))
		}
	}

	p.logger.Info("Ingest pipeline completed",
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("processed_ok", result.ProcessedOK),
		zap.Int64("processed_failed", result.ProcessedFailed),
		zap.Duration("total_duration", result.Duration),
		zap.Duration("embedding_time", result.EmbeddingTime),
		zap.Duration("database_time", result.DatabaseTime))

	return result, nil
}

// processCSV processes CSV files with text,label[,corpus] columns
func (p *Pipeline) processCSV(ctx context.Context, filePath string, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	p.logger.Info("CSV header detected", zap.Strings("columns", header))

	return p.processBatches(ctx, func() ([]*MentionRecord, error) {
		var batch []*MentionRecord

		for len(batch) < p.config.BatchSize {
			record, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read CSV record", zap.Error(err))
				continue
			}

			if len(record) < 2 {
				p.logger.Warn("Invalid CSV record length", zap.Int("length", len(record)))
				continue
			}

			mention := &MentionRecord{
				Text:  strings.TrimSpace(record[0]),
				Label: strings.TrimSpace(record[1]),
			}
			if len(record) > 2 {
				mention.Corpus = strings.TrimSpace(record[2])
			}

			if p.validateRecord(mention) {
				batch = append(batch, mention)
			}
		}

		return batch, nil
	}, result)
}

// processParquet processes Parquet files
func (p *Pipeline) processParquet(ctx context.Context, filePath string, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open Parquet file: %w", err)
	}
	defer file.Close()

	reader := parquet.NewReader(file)
	defer reader.Close()

	return p.processBatches(ctx, func() ([]*MentionRecord, error) {
		var batch []*MentionRecord

		for len(batch) < p.config.BatchSize {
			var record MentionRecord
			err := reader.Read(&record)
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read Parquet record", zap.Error(err))
				continue
			}

			if p.validateRecord(&record) {
				batch = append(batch, &record)
			}
		}

		return batch, nil
	}, result)
}

// processJSON processes JSON files (one object per line)
func (p *Pipeline) processJSON(ctx context.Context, filePath string, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open JSON file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)

	return p.processBatches(ctx, func() ([]*MentionRecord, error) {
		var batch []*MentionRecord

		for len(batch) < p.config.BatchSize {
			var record MentionRecord
			err := decoder.Decode(&record)
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read JSON record", zap.Error(err))
				continue
			}

			if p.validateRecord(&record) {
				batch = append(batch, &record)
			}
		}

		return batch, nil
	}, result)
}

// processColumn reads a column-annotated corpus split and ingests every
// annotated span as one mention record
func (p *Pipeline) processColumn(ctx context.Context, filePath string, result *ProcessingResult) error {
	tagType := p.config.TagType
	if tagType == "" {
		tagType = "ner"
	}

	sentences, err := data.ReadColumnFile(filePath, data.ColumnFormat{0: "text", 1: tagType}, tagType, nil)
	if err != nil {
		return fmt.Errorf("failed to read column file: %w", err)
	}

	records := p.recordsFromSentences(sentences, tagType, "")

	p.logger.Info("Column file parsed",
		zap.Int("sentences", len(sentences)),
		zap.Int("mentions", len(records)))

	return p.processRecordSlice(ctx, records, result)
}

// ProcessCorpus ingests every annotated span from all splits of a
// selected corpus
func (p *Pipeline) ProcessCorpus(ctx context.Context, corpus *data.Corpus) (*ProcessingResult, error) {
	start := time.Now()
	result := &ProcessingResult{}
	p.resetStats()

	tagType := corpus.TagType
	if tagType == "" {
		tagType = p.config.TagType
	}

	var records []*MentionRecord
	for _, split := range [][]*data.Sentence{corpus.Train, corpus.Dev, corpus.Test} {
		records = append(records, p.recordsFromSentences(split, tagType, corpus.Name)...)
	}

	p.logger.Info("Corpus parsed",
		zap.String("corpus", corpus.Name),
		zap.Int("mentions", len(records)))

	if err := p.processRecordSlice(ctx, records, result); err != nil {
		return result, err
	}

	result.Duration = time.Since(start)

	if p.config.CreateIndex && result.ProcessedOK > 1000 {
		if err := p.mentionStore.CreateIndex(ctx); err != nil {
			p.logger.Warn("Failed to create vector index", zap.Error(err))
		}
	}

	return result, nil
}

// ProcessRecords ingests an in-memory mention slice, such as records
// submitted over the API. Invalid records are counted as failed.
func (p *Pipeline) ProcessRecords(ctx context.Context, records []*MentionRecord) (*ProcessingResult, error) {
	start := time.Now()
	result := &ProcessingResult{}
	p.resetStats()

	valid := make([]*MentionRecord, 0, len(records))
	for _, record := range records {
		if p.validateRecord(record) {
			valid = append(valid, record)
		} else {
			result.TotalRecords++
			result.ProcessedFailed++
		}
	}

	if err := p.processRecordSlice(ctx, valid, result); err != nil {
		return result, err
	}

	result.Duration = time.Since(start)
	return result, nil
}

// recordsFromSentences flattens annotated spans into mention records
func (p *Pipeline) recordsFromSentences(sentences []*data.Sentence, tagType, corpus string) []*MentionRecord {
	var records []*MentionRecord
	for _, sentence := range sentences {
		for _, span := range sentence.Spans(tagType) {
			words := make([]string, 0, span.End-span.Start+1)
			for i := span.Start; i <= span.End && i < sentence.Len(); i++ {
				words = append(words, sentence.Tokens[i].Text)
			}
			mention := &MentionRecord{
				Text:   strings.Join(words, " "),
				Label:  span.Label,
				Corpus: corpus,
			}
			if p.validateRecord(mention) {
				records = append(records, mention)
			}
		}
	}
	return records
}

// processRecordSlice feeds an in-memory record slice through the batch loop
func (p *Pipeline) processRecordSlice(ctx context.Context, records []*MentionRecord, result *ProcessingResult) error {
	offset := 0
	return p.processBatches(ctx, func() ([]*MentionRecord, error) {
		if offset >= len(records) {
			return nil, nil
		}
		end := offset + p.config.BatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[offset:end]
		offset = end
		return batch, nil
	}, result)
}

// processBatches processes data in batches using the provided reader function
func (p *Pipeline) processBatches(ctx context.Context, readBatch func() ([]*MentionRecord, error), result *ProcessingResult) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := readBatch()
		if err != nil {
			return fmt.Errorf("failed to read batch: %w", err)
		}

		if len(batch) == 0 {
			break
		}

		if err := p.processBatch(ctx, batch, result); err != nil {
			p.logger.Error("Batch processing failed", zap.Error(err))
			result.TotalRecords += int64(len(batch))
			result.ProcessedFailed += int64(len(batch))
			result.Errors = append(result.Errors, err.Error())
			continue
		}

		result.TotalRecords += int64(len(batch))
		result.ProcessedOK += int64(len(batch))

		if result.TotalRecords%int64(p.config.ProgressReport) == 0 {
			p.reportProgress(result)
		}
	}

	return nil
}

// processBatch embeds one batch of mentions and writes it out
func (p *Pipeline) processBatch(ctx context.Context, batch []*MentionRecord, result *ProcessingResult) error {
	if len(batch) == 0 {
		return nil
	}

	texts := make([]string, len(batch))
	for i, record := range batch {
		texts[i] = record.Text
	}

	embeddingStart := time.Now()
	embeddings, err := p.labelEncoder.EmbedPhrases(ctx, texts)
	if err != nil {
		return fmt.Errorf("batch embedding failed: %w", err)
	}
	result.EmbeddingTime += time.Since(embeddingStart)

	if len(embeddings) != len(batch) {
		return fmt.Errorf("embedding count mismatch: got %d, expected %d",
			len(embeddings), len(batch))
	}

	vectors := make([]*store.MentionVector, len(batch))
	for i, record := range batch {
		corpus := record.Corpus
		if corpus == "" {
			corpus = p.config.Corpus
		}
		vectors[i] = &store.MentionVector{
			Text:      record.Text,
			TextHash:  computeTextHash(record.Text),
			Corpus:    corpus,
			Label:     record.Label,
			Embedding: embeddings[i],
		}
	}

	dbStart := time.Now()
	batchResult, err := p.mentionStore.BatchInsert(ctx, vectors)
	if err != nil {
		return fmt.Errorf("database batch insert failed: %w", err)
	}
	result.DatabaseTime += time.Since(dbStart)

	p.logger.Debug("Batch processed",
		zap.Int("batch_size", len(batch)),
		zap.Int64("inserted", batchResult.Inserted),
		zap.Duration("embedding_time", time.Since(embeddingStart)),
		zap.Duration("database_time", time.Since(dbStart)))

	return nil
}

// validateRecord validates a mention record
func (p *Pipeline) validateRecord(record *MentionRecord) bool {
	if !p.config.ValidateData {
		return true
	}

	if strings.TrimSpace(record.Text) == "" {
		p.logger.Debug("Invalid record: empty text")
		return false
	}

	if strings.TrimSpace(record.Label) == "" {
		p.logger.Debug("Invalid record: empty label")
		return false
	}

	if len(record.Text) > 10000 {
		p.logger.Debug("Invalid record: text too long", zap.Int("length", len(record.Text)))
		return false
	}

	return true
}

// reportProgress reports current processing progress
func (p *Pipeline) reportProgress(result *ProcessingResult) {
	elapsed := time.Since(p.stats.StartTime)
	rate := float64(result.TotalRecords) / elapsed.Seconds()

	p.logger.Info("Processing progress",
		zap.Int64("records_processed", result.TotalRecords),
		zap.Int64("records_ok", result.ProcessedOK),
		zap.Int64("records_failed", result.ProcessedFailed),
		zap.Float64("rate_per_sec", rate),
		zap.Duration("elapsed", elapsed))
}

// resetStats resets processing statistics
func (p *Pipeline) resetStats() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats = &ProcessingStats{
		StartTime: time.Now(),
	}
}

// GetStats returns current processing statistics
func (p *Pipeline) GetStats() *ProcessingStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := *p.stats
	return &stats
}

// computeTextHash computes the SHA-256 hash of the given text
func computeTextHash(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}
