package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/weatherdesk/degreeday/internal/adapter/http"
	kafkaadapter "github.com/weatherdesk/degreeday/internal/adapter/kafka"
	"github.com/weatherdesk/degreeday/internal/config"
	"github.com/weatherdesk/degreeday/internal/demand"
	"github.com/weatherdesk/degreeday/internal/domain"
	"github.com/weatherdesk/degreeday/internal/observability"
	"github.com/weatherdesk/degreeday/internal/pipeline"
	"github.com/weatherdesk/degreeday/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	recordStore, err := store.Open(cfg.StorePath, logger)
	if err != nil {
		logger.Error("failed to open record store", "path", cfg.StorePath, "error", err)
		os.Exit(1)
	}

	weights, err := loadWeights(cfg, logger)
	if err != nil {
		logger.Error("failed to load demand weights", "error", err)
		os.Exit(1)
	}

	normals, err := loadNormals(cfg, logger)
	if err != nil {
		logger.Error("failed to load normals", "path", cfg.NormalsPath, "error", err)
		os.Exit(1)
	}

	comparator := domain.DefaultComparator()
	comparator.Deadband = cfg.Deadband

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	processor := pipeline.NewProcessor(demand.DefaultGridSpec().Domain(), weights, logger, metrics)

	p := pipeline.New(reader, processor, recordStore, writer,
		comparator, normals, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, recordStore, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start aggregation pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if err := recordStore.Close(); err != nil {
		logger.Error("record store close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// loadWeights builds the demand-weight source from either a prebuilt
// artifact or a region table. With neither configured the service runs
// unweighted and records carry unweighted values only.
func loadWeights(cfg *config.Config, logger *slog.Logger) (domain.WeightSource, error) {
	switch {
	case cfg.WeightsPath != "":
		artifact, err := demand.LoadArtifact(cfg.WeightsPath)
		if err != nil {
			return nil, err
		}
		g, err := artifact.Grid()
		if err != nil {
			return nil, err
		}
		logger.Info("demand weights loaded", "path", cfg.WeightsPath, "built_at", artifact.BuiltAt)
		return demand.NewWeights(g, cfg.WeightCacheSize), nil

	case cfg.RegionsPath != "":
		regions, err := demand.LoadRegions(cfg.RegionsPath)
		if err != nil {
			return nil, err
		}
		g, err := demand.Build(regions, demand.DefaultGridSpec())
		if err != nil {
			return nil, err
		}
		logger.Info("demand weights built from regions", "path", cfg.RegionsPath, "regions", len(regions))
		return demand.NewWeights(g, cfg.WeightCacheSize), nil

	default:
		logger.Info("demand weighting disabled")
		return nil, nil
	}
}

func loadNormals(cfg *config.Config, logger *slog.Logger) (*domain.NormalSet, error) {
	if cfg.NormalsPath == "" {
		logger.Info("normals comparison disabled")
		return nil, nil
	}
	normals, err := domain.LoadNormals(cfg.NormalsPath)
	if err != nil {
		return nil, err
	}
	logger.Info("normals loaded", "path", cfg.NormalsPath)
	return normals, nil
}
