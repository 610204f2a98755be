package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/dualtag/dualtag/internal/cache"
	"github.com/dualtag/dualtag/internal/config"
	"github.com/dualtag/dualtag/internal/data"
	"github.com/dualtag/dualtag/internal/encoder"
	"github.com/dualtag/dualtag/internal/etl"
	"github.com/dualtag/dualtag/internal/logger"
	"github.com/dualtag/dualtag/internal/model"
	"github.com/dualtag/dualtag/internal/store"
)

func main() {
	var (
		configPath  = flag.String("config", "configs/default.yaml", "Configuration file path")
		inputFile   = flag.String("input", "", "Input dataset file (CSV, Parquet, JSON, or column format)")
		corpusName  = flag.String("corpus", "", "Named corpus to ingest (wnut_17, conll_03, ontonotes, fewnerd)")
		granularity = flag.String("granularity", "", "Label granularity for fewnerd (fine or coarse)")
		dataDir     = flag.String("data-dir", "data", "Base directory for named corpora")
		batchSize   = flag.Int("batch-size", 1000, "Batch size for processing")
		skipCache   = flag.Bool("skip-cache", false, "Skip updating the Redis cache")
		skipIndex   = flag.Bool("skip-index", false, "Skip creating the vector index")
		evalOutput  = flag.String("eval", "", "Tag the corpus test split and write gold/predicted lines to this file")
		showStats   = flag.Bool("stats", false, "Show store statistics and exit")
	)
	flag.Parse()

	if *inputFile == "" && *corpusName == "" && !*showStats {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input mentions.csv --batch-size 500\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --corpus conll_03 --data-dir data\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --corpus fewnerd --granularity coarse --eval eval.txt\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --stats\n", os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting dualtag ingest",
		zap.String("version", "0.1.0"),
		zap.String("config", *configPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling operations...")
		cancel()
	}()

	services, err := initializeServices(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.cleanup()

	ingestConfig := cfg.Ingest
	ingestConfig.BatchSize = *batchSize
	ingestConfig.CreateIndex = ingestConfig.CreateIndex && !*skipIndex
	ingestConfig.UpdateCache = ingestConfig.UpdateCache && !*skipCache
	if ingestConfig.Corpus == "" {
		ingestConfig.Corpus = *corpusName
	}

	switch {
	case *showStats:
		if err := showStoreStats(ctx, services); err != nil {
			log.Fatal("Failed to show stats", zap.Error(err))
		}
	case *corpusName != "":
		if err := processCorpus(ctx, cfg, services, &ingestConfig, *corpusName, *granularity, *dataDir, *evalOutput, log); err != nil {
			log.Fatal("Corpus processing failed", zap.Error(err))
		}
	default:
		if err := processFile(ctx, services, &ingestConfig, *inputFile, log); err != nil {
			log.Fatal("File processing failed", zap.Error(err))
		}
	}

	log.Info("Ingest completed successfully")
}

// services holds all initialized backends
type services struct {
	mentionStore   *store.Store
	labelEncoder   encoder.Encoder
	embeddingCache *cache.EmbeddingCache
}

func (s *services) cleanup() {
	if s.labelEncoder != nil {
		s.labelEncoder.Close()
	}
	if s.mentionStore != nil {
		s.mentionStore.Close()
	}
	if s.embeddingCache != nil {
		s.embeddingCache.Close()
	}
}

// initializeServices connects the store, encoder, and optional cache
func initializeServices(cfg *config.Config, log *logger.Logger) (*services, error) {
	services := &services{}

	log.Info("Initializing mention store...")
	mentionStore, err := store.NewStore(&cfg.Store.Config, log.WithComponent("store").Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mention store: %w", err)
	}
	services.mentionStore = mentionStore

	log.Info("Initializing label encoder...")
	labelEncoder, err := encoder.New(cfg.Model.Label, log.WithComponent("label_encoder").Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize label encoder: %w", err)
	}
	services.labelEncoder = labelEncoder

	if cfg.Cache.Enabled {
		log.Info("Initializing embedding cache...")
		embeddingCache, err := cache.NewEmbeddingCache(&cfg.Cache.Config, log.WithComponent("cache").Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedding cache: %w", err)
		}
		services.embeddingCache = embeddingCache
	}

	return services, nil
}

// processFile ingests a single dataset file
func processFile(ctx context.Context, services *services, ingestConfig *etl.Config, inputFile string, log *logger.Logger) error {
	if _, err := os.Stat(inputFile); os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", inputFile)
	}

	pipeline := etl.NewPipeline(
		services.mentionStore,
		services.labelEncoder,
		services.embeddingCache,
		ingestConfig,
		log.Logger,
	)

	result, err := pipeline.ProcessFile(ctx, inputFile)
	if err != nil {
		return fmt.Errorf("pipeline processing failed: %w", err)
	}

	reportResult(inputFile, result, log)
	return nil
}

// processCorpus ingests a named corpus and optionally tags its test
// split for evaluation
func processCorpus(ctx context.Context, cfg *config.Config, services *services, ingestConfig *etl.Config, name, granularity, dataDir, evalOutput string, log *logger.Logger) error {
	corpus, err := data.SelectCorpus(name, granularity, dataDir)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}

	log.Info("Corpus loaded",
		zap.String("corpus", corpus.Name),
		zap.Int("train_sentences", len(corpus.Train)),
		zap.Int("dev_sentences", len(corpus.Dev)),
		zap.Int("test_sentences", len(corpus.Test)))

	pipeline := etl.NewPipeline(
		services.mentionStore,
		services.labelEncoder,
		services.embeddingCache,
		ingestConfig,
		log.Logger,
	)

	result, err := pipeline.ProcessCorpus(ctx, corpus)
	if err != nil {
		return fmt.Errorf("corpus processing failed: %w", err)
	}
	reportResult(corpus.Name, result, log)

	if evalOutput != "" {
		return evaluateCorpus(ctx, cfg, corpus, evalOutput, log)
	}
	return nil
}

// evaluateCorpus tags the test split and writes gold/predicted CoNLL
// lines for external scoring
func evaluateCorpus(ctx context.Context, cfg *config.Config, corpus *data.Corpus, outputPath string, log *logger.Logger) error {
	var tagger *model.DualEncoder
	var err error
	if cfg.Model.Path != "" {
		tagger, err = model.LoadFile(cfg.Model.Path, log.WithComponent("model").Logger)
	} else {
		var tokenEnc, labelEnc encoder.Encoder
		tokenEnc, err = encoder.New(cfg.Model.Token, log.WithComponent("token_encoder").Logger)
		if err != nil {
			return fmt.Errorf("token encoder: %w", err)
		}
		labelEnc, err = encoder.New(cfg.Model.Label, log.WithComponent("label_encoder").Logger)
		if err != nil {
			return fmt.Errorf("label encoder: %w", err)
		}
		tagger, err = model.New(tokenEnc, labelEnc, corpus.TagDictionary(), corpus.TagType, model.Options{
			TagFormat: cfg.Model.TagFormat,
		}, log.WithComponent("model").Logger)
	}
	if err != nil {
		return fmt.Errorf("failed to build tagger: %w", err)
	}

	const predictedType = "predicted"
	loss, count, err := tagger.Predict(ctx, corpus.Test, model.PredictOptions{
		MiniBatchSize: cfg.Model.BatchSize,
		LabelName:     predictedType,
		ReturnLoss:    true,
	})
	if err != nil {
		return fmt.Errorf("tagging test split failed: %w", err)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create eval output: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, line := range tagger.EvalLines(corpus.Test, corpus.TagType, predictedType) {
		fmt.Fprintln(writer, line)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to write eval output: %w", err)
	}

	avgLoss := 0.0
	if count > 0 {
		avgLoss = loss / float64(count)
	}
	log.Info("Evaluation output written",
		zap.String("path", outputPath),
		zap.Int("sentences", len(corpus.Test)),
		zap.Int("tokens", count),
		zap.Float64("avg_loss", avgLoss))

	return nil
}

// reportResult logs a pipeline run summary
func reportResult(source string, result *etl.ProcessingResult, log *logger.Logger) {
	rate := 0.0
	if result.Duration.Seconds() > 0 {
		rate = float64(result.TotalRecords) / result.Duration.Seconds()
	}

	log.Info("Dataset processing completed",
		zap.String("source", source),
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("processed_ok", result.ProcessedOK),
		zap.Int64("processed_failed", result.ProcessedFailed),
		zap.Duration("total_duration", result.Duration),
		zap.Duration("embedding_time", result.EmbeddingTime),
		zap.Duration("database_time", result.DatabaseTime),
		zap.Float64("records_per_second", rate))

	if len(result.Errors) > 0 {
		log.Warn("Processing completed with errors", zap.Strings("errors", result.Errors))
	}
}

// showStoreStats displays current store statistics
func showStoreStats(ctx context.Context, services *services) error {
	stats, err := services.mentionStore.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get store stats: %w", err)
	}

	fmt.Printf("\n=== Mention Store Statistics ===\n")
	fmt.Printf("Total Mentions:  %d\n", stats.TotalVectors)
	fmt.Printf("Corpora:         %d\n", stats.Corpora)
	for _, lc := range stats.Labels {
		fmt.Printf("  %-20s %d\n", lc.Label, lc.Count)
	}

	if services.embeddingCache != nil {
		cacheStats, err := services.embeddingCache.GetStats(ctx)
		if err == nil {
			fmt.Printf("\n=== Cache Statistics ===\n")
			fmt.Printf("Cache Hits:      %d\n", cacheStats.Hits)
			fmt.Printf("Cache Misses:    %d\n", cacheStats.Misses)
			fmt.Printf("Hit Rate:        %.1f%%\n", cacheStats.HitRate)
			fmt.Printf("Total Keys:      %d\n", cacheStats.TotalKeys)
			fmt.Printf("Memory Usage:    %.2f MB\n", float64(cacheStats.MemoryUsage)/1024/1024)
		}
	}

	encoderStats := services.labelEncoder.Stats()
	fmt.Printf("\n=== Encoder Statistics ===\n")
	fmt.Printf("Inferences:      %d\n", encoderStats.TotalInferences)
	fmt.Printf("Units Encoded:   %d\n", encoderStats.TotalUnits)
	fmt.Printf("Avg Time:        %v\n", encoderStats.AvgInferenceTime)

	return nil
}
