package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dualtag/dualtag/internal/cache"
	"github.com/dualtag/dualtag/internal/config"
	"github.com/dualtag/dualtag/internal/encoder"
	"github.com/dualtag/dualtag/internal/labels"
	"github.com/dualtag/dualtag/internal/logger"
	"github.com/dualtag/dualtag/internal/model"
	"github.com/dualtag/dualtag/internal/server"
	"github.com/dualtag/dualtag/internal/store"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("dualtag %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	if *healthCheck {
		performHealthCheck()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting dualtag",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.Int("port", cfg.Server.Port),
	)

	var embeddingCache *cache.EmbeddingCache
	if cfg.Cache.Enabled {
		embeddingCache, err = cache.NewEmbeddingCache(&cfg.Cache.Config, log.WithComponent("cache").Logger)
		if err != nil {
			log.Fatal("Failed to connect embedding cache", zap.Error(err))
		}
		defer embeddingCache.Close()
	}

	tagger, err := buildTagger(cfg, embeddingCache, log)
	if err != nil {
		log.Fatal("Failed to build tagger", zap.Error(err))
	}

	var mentionStore *store.Store
	if cfg.Store.Enabled {
		mentionStore, err = store.NewStore(&cfg.Store.Config, log.WithComponent("store").Logger)
		if err != nil {
			log.Fatal("Failed to connect mention store", zap.Error(err))
		}
		defer mentionStore.Close()
	}

	srv, err := server.New(cfg, log, tagger, mentionStore)
	if err != nil {
		log.Fatal("Failed to create server", zap.Error(err))
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Error("Server error", zap.Error(err))
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
			os.Exit(1)
		}

		log.Info("Server shutdown complete")
	}
}

// buildTagger restores a saved model or assembles a fresh one from the
// configured label set. When an embedding cache is provided, the label
// encoder reads phrase embeddings through it.
func buildTagger(cfg *config.Config, embeddingCache *cache.EmbeddingCache, log *logger.Logger) (*model.DualEncoder, error) {
	modelLog := log.WithComponent("model").Logger

	if cfg.Model.Path != "" {
		log.Info("Loading saved model", zap.String("path", cfg.Model.Path))
		return model.LoadFile(cfg.Model.Path, modelLog)
	}

	tokenEnc, err := encoder.New(cfg.Model.Token, log.WithComponent("token_encoder").Logger)
	if err != nil {
		return nil, fmt.Errorf("token encoder: %w", err)
	}
	var labelEnc encoder.Encoder
	labelEnc, err = encoder.New(cfg.Model.Label, log.WithComponent("label_encoder").Logger)
	if err != nil {
		return nil, fmt.Errorf("label encoder: %w", err)
	}
	if embeddingCache != nil {
		labelEnc = cache.NewCachedEncoder(labelEnc, embeddingCache, log.WithComponent("cache").Logger)
	}

	dict := labels.NewSpanDictionary(cfg.Model.Labels...)
	return model.New(tokenEnc, labelEnc, dict, cfg.Model.TagType, model.Options{
		TagFormat: cfg.Model.TagFormat,
	}, modelLog)
}

// performHealthCheck performs a health check against the running server
func performHealthCheck() {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get("http://localhost:8080/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
