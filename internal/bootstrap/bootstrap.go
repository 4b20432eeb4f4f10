package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/collector-appraisal/internal/config"
	"github.com/kirillkom/collector-appraisal/internal/core/domain"
	"github.com/kirillkom/collector-appraisal/internal/core/ports"
	"github.com/kirillkom/collector-appraisal/internal/core/randsource"
	"github.com/kirillkom/collector-appraisal/internal/core/usecase"
	"github.com/kirillkom/collector-appraisal/internal/infrastructure/catalog"
	"github.com/kirillkom/collector-appraisal/internal/infrastructure/heuristics"
	"github.com/kirillkom/collector-appraisal/internal/infrastructure/imaging"
	"github.com/kirillkom/collector-appraisal/internal/infrastructure/queue/nats"
	"github.com/kirillkom/collector-appraisal/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/collector-appraisal/internal/infrastructure/resilience"
	"github.com/kirillkom/collector-appraisal/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/collector-appraisal/internal/infrastructure/vision/ollama"
)

// ShutdownTimeout bounds graceful shutdown of both processes.
const ShutdownTimeout = 10 * time.Second

// Observer receives analysis outcomes and backend resilience events.
type Observer interface {
	ports.AppraisalObserver
	resilience.Observer
}

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.ScanRepository
	Decoder   ports.ImageDecoder
	Grader    *usecase.ConditionGrader
	Appraisal *usecase.AppraisalUseCase
	CaptureUC *usecase.CaptureScanUseCase
	ProcessUC *usecase.ProcessScanUseCase

	closeFn func()
}

// New wires the appraisal pipeline and its adapters. observer may be nil.
func New(ctx context.Context, cfg config.Config, observer Observer) (*App, error) {
	gradingOpts, err := gradingOptions(cfg)
	if err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewScanRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		QueueGroup:         cfg.NATSQueueGroup,
		HandlerTimeout:     cfg.NATSHandlerTimeout,
		ResilienceExecutor: newExecutor(resilience.DefaultConfig(), observer),
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaVisionModel, cfg.OllamaOCRModel, newExecutor(visionPolicy(cfg), observer))

	rng := randsource.New(cfg.RandomSeed)

	classifier := usecase.NewCategoryClassifier(
		ollama.NewImageClassifier(ollamaClient),
		usecase.WithClassifierAttempts(cfg.ClassifierRetryAttempts),
		usecase.WithClassifierRandom(rng),
	)
	ocrSettings := usecase.DefaultOCRSettings()
	ocrSettings.Languages = cfg.OCRLanguages
	textEngine := usecase.NewTextExtractionEngine(ollama.NewRecognizerLoader(ollamaClient), ocrSettings)
	grader := usecase.NewConditionGrader(heuristics.NewRandomFactorScorer(rng), gradingOpts...)

	appraisalOpts := []usecase.AppraisalOption{
		usecase.WithAnalysisTimeout(cfg.AnalysisTimeout),
		usecase.WithAppraisalRandom(rng),
		usecase.WithBatchParallelism(cfg.BatchParallelism),
	}
	if observer != nil {
		appraisalOpts = append(appraisalOpts, usecase.WithAppraisalObserver(observer))
	}
	appraisal := usecase.NewAppraisalUseCase(
		classifier,
		textEngine,
		grader,
		heuristics.NewRandomPriceEstimator(rng),
		appraisalOpts...,
	)

	decoder := imaging.NewDecoder(cfg.ImageMaxDimension)

	return &App{
		Config:    cfg,
		Queue:     queue,
		Repo:      repo,
		Decoder:   decoder,
		Grader:    grader,
		Appraisal: appraisal,
		CaptureUC: usecase.NewCaptureScanUseCase(repo, storage, queue),
		ProcessUC: usecase.NewProcessScanUseCase(repo, storage, decoder, appraisal),

		closeFn: func() {
			if err := textEngine.Close(); err != nil {
				slog.Warn("ocr_close_failed", "error", err)
			}
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func gradingOptions(cfg config.Config) ([]usecase.GraderOption, error) {
	if cfg.GradingTablesPath == "" {
		return nil, nil
	}
	overrides, err := catalog.LoadGradingCriteria(cfg.GradingTablesPath)
	if err != nil {
		return nil, fmt.Errorf("load grading tables: %w", err)
	}
	categories := make([]domain.Category, 0, len(overrides))
	for category := range overrides {
		categories = append(categories, category)
	}
	slog.Info("grading_tables_loaded", "path", cfg.GradingTablesPath, "categories", categories)
	return []usecase.GraderOption{usecase.WithGradingCriteria(overrides)}, nil
}

func newExecutor(policy resilience.Config, observer Observer) *resilience.Executor {
	executor := resilience.NewExecutor(policy)
	if observer != nil {
		executor.WithObserver(observer)
	}
	return executor
}

// visionPolicy gives vision calls a single attempt; the classifier use case does its own retry.
func visionPolicy(cfg config.Config) resilience.Config {
	policy := resilience.DefaultConfig()
	policy.RetryMaxAttempts = 1
	policy.AttemptTimeout = cfg.AnalysisTimeout
	return policy
}
