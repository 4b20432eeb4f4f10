package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/collector-appraisal/internal/core/domain"
	"github.com/kirillkom/collector-appraisal/internal/core/ports"
	"github.com/kirillkom/collector-appraisal/internal/core/randsource"
)

const (
	defaultAnalysisTimeout  = 5 * time.Second
	defaultBatchParallelism = 4
	MaxBatchSize            = 20
)

const (
	analysisClassification = "classification"
	analysisText           = "text_extraction"
	analysisCondition      = "condition_grading"
	analysisPrice          = "price_estimation"
)

const (
	outcomeOK       = "ok"
	outcomeFallback = "fallback"
	outcomeTimeout  = "timeout"
	outcomePanic    = "panic"
	outcomeCanceled = "canceled"
)

// AppraisalUseCase fuses classification, text extraction and condition grading of one image
// into an appraisal record. A failing analysis is replaced by its fallback; only a missing
// image or a canceled context is reported as an error.
type AppraisalUseCase struct {
	classifier *CategoryClassifier
	text       *TextExtractionEngine
	grader     *ConditionGrader
	prices     ports.PriceEstimator
	observer   ports.AppraisalObserver
	rng        randsource.Source

	timeout          time.Duration
	batchParallelism int
}

type AppraisalOption func(*AppraisalUseCase)

// WithAnalysisTimeout bounds every individual analysis.
func WithAnalysisTimeout(timeout time.Duration) AppraisalOption {
	return func(uc *AppraisalUseCase) {
		if timeout > 0 {
			uc.timeout = timeout
		}
	}
}

func WithAppraisalObserver(observer ports.AppraisalObserver) AppraisalOption {
	return func(uc *AppraisalUseCase) {
		uc.observer = observer
	}
}

func WithAppraisalRandom(rng randsource.Source) AppraisalOption {
	return func(uc *AppraisalUseCase) {
		if rng != nil {
			uc.rng = rng
		}
	}
}

func WithBatchParallelism(n int) AppraisalOption {
	return func(uc *AppraisalUseCase) {
		if n > 0 {
			uc.batchParallelism = n
		}
	}
}

func NewAppraisalUseCase(
	classifier *CategoryClassifier,
	text *TextExtractionEngine,
	grader *ConditionGrader,
	prices ports.PriceEstimator,
	opts ...AppraisalOption,
) *AppraisalUseCase {
	uc := &AppraisalUseCase{
		classifier:       classifier,
		text:             text,
		grader:           grader,
		prices:           prices,
		rng:              randsource.New(0),
		timeout:          defaultAnalysisTimeout,
		batchParallelism: defaultBatchParallelism,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *AppraisalUseCase) ProduceAppraisal(ctx context.Context, image *domain.Image) (*domain.AppraisalRecord, error) {
	return uc.produce(ctx, image, randsource.Split(uc.rng))
}

func (uc *AppraisalUseCase) produce(ctx context.Context, image *domain.Image, rng randsource.Source) (*domain.AppraisalRecord, error) {
	if image.Empty() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "produce appraisal", errors.New("no image provided"))
	}

	start := time.Now()
	record, err := uc.fuse(ctx, image, newAnalysisStreams(rng))
	if err != nil {
		return nil, err
	}

	slog.Info("appraisal_produced",
		"category", record.Category,
		"grade", record.Condition.Grade,
		"confidence", record.Confidence,
		"identifiers", len(record.Identifiers),
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return record, nil
}

// ProduceBatch appraises images with bounded parallelism. Records keep input order; a bad
// image becomes an error entry instead of failing the batch. Random streams are split per
// item in input order, so a fixed seed gives the same records at any parallelism.
func (uc *AppraisalUseCase) ProduceBatch(ctx context.Context, images []*domain.Image) ([]domain.BatchItem, error) {
	if len(images) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "produce batch", errors.New("no images provided"))
	}
	if len(images) > MaxBatchSize {
		return nil, domain.WrapError(domain.ErrInvalidInput, "produce batch", fmt.Errorf("batch of %d exceeds limit %d", len(images), MaxBatchSize))
	}

	streams := make([]randsource.Source, len(images))
	for i := range streams {
		streams[i] = randsource.Split(uc.rng)
	}

	items := make([]domain.BatchItem, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.batchParallelism)
	for i, image := range images {
		g.Go(func() error {
			items[i] = domain.BatchItem{Index: i}
			record, err := uc.produce(gctx, image, streams[i])
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				items[i].Error = err.Error()
				return nil
			}
			items[i].Record = record
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// analysisStreams gives each random consumer of one appraisal its own stream, so concurrent
// branches never interleave draws.
type analysisStreams struct {
	classify randsource.Source
	grade    randsource.Source
	price    randsource.Source
	fallback randsource.Source
}

func newAnalysisStreams(rng randsource.Source) analysisStreams {
	return analysisStreams{
		classify: randsource.Split(rng),
		grade:    randsource.Split(rng),
		price:    randsource.Split(rng),
		fallback: randsource.Split(rng),
	}
}

// fuse runs classification and OCR recognition concurrently. Grading and token bucketing wait
// for the category so that the matching criteria and rules are used.
func (uc *AppraisalUseCase) fuse(ctx context.Context, image *domain.Image, streams analysisStreams) (*domain.AppraisalRecord, error) {
	var (
		category      domain.CategoryResult
		categoryState string
		tokens        []domain.TextToken
		condition     domain.ConditionAnalysis
	)
	categoryReady := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(categoryReady)
		category, categoryState = uc.classify(gctx, image, streams)
		return nil
	})
	g.Go(func() error {
		tokens = uc.recognize(gctx, image)
		return nil
	})
	g.Go(func() error {
		select {
		case <-categoryReady:
		case <-gctx.Done():
			return nil
		}
		condition = uc.grade(randsource.NewContext(gctx, streams.grade), image, category.Category)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if categoryState == outcomePanic {
		return uc.lastResort(streams.fallback), nil
	}

	text := uc.text.ClassifyTokens(tokens, category.Category)
	price := uc.estimatePrice(ctx, category.Category, condition.Score, streams)
	return buildRecord(category, text, condition, price), nil
}

func (uc *AppraisalUseCase) classify(ctx context.Context, image *domain.Image, streams analysisStreams) (domain.CategoryResult, string) {
	result, outcome := runBounded(randsource.NewContext(ctx, streams.classify), uc.timeout, func(c context.Context) domain.CategoryResult {
		return uc.classifier.Classify(c, image)
	})
	switch outcome {
	case outcomeOK:
		if result.Fallback {
			uc.observe(analysisClassification, outcomeFallback)
			return result, outcome
		}
	case outcomeTimeout, outcomeCanceled:
		result = uc.classifier.Fallback(randsource.NewContext(ctx, streams.fallback))
	}
	uc.observe(analysisClassification, outcome)
	return result, outcome
}

func (uc *AppraisalUseCase) recognize(ctx context.Context, image *domain.Image) []domain.TextToken {
	tokens, outcome := runBounded(ctx, uc.timeout, func(c context.Context) []domain.TextToken {
		return uc.text.RecognizeTokens(c, image)
	})
	uc.observe(analysisText, outcome)
	if outcome != outcomeOK {
		return nil
	}
	return tokens
}

type gradingResult struct {
	analysis domain.ConditionAnalysis
	err      error
}

func (uc *AppraisalUseCase) grade(ctx context.Context, image *domain.Image, category domain.Category) domain.ConditionAnalysis {
	res, outcome := runBounded(ctx, uc.timeout, func(c context.Context) gradingResult {
		analysis, err := uc.grader.AnalyzeCondition(c, image, category)
		return gradingResult{analysis: analysis, err: err}
	})
	if outcome == outcomeOK && res.err != nil {
		slog.Warn("condition_grading_fallback", "category", category, "error", res.err)
		outcome = outcomeFallback
	}
	uc.observe(analysisCondition, outcome)
	if outcome != outcomeOK {
		return domain.NeutralCondition(uc.grader.Criteria(category).Factors)
	}
	return res.analysis
}

type priceResult struct {
	value domain.PriceRange
	err   error
}

func (uc *AppraisalUseCase) estimatePrice(ctx context.Context, category domain.Category, conditionScore int, streams analysisStreams) domain.PriceEstimate {
	var (
		res     priceResult
		outcome = outcomeFallback
	)
	if uc.prices != nil {
		res, outcome = runBounded(randsource.NewContext(ctx, streams.price), uc.timeout, func(c context.Context) priceResult {
			value, err := uc.prices.Estimate(c, category)
			return priceResult{value: value, err: err}
		})
		if outcome == outcomeOK && res.err != nil {
			slog.Warn("price_estimation_fallback", "category", category, "error", res.err)
			outcome = outcomeFallback
		}
	}
	uc.observe(analysisPrice, outcome)
	if outcome != outcomeOK {
		res.value = randomFallbackRange(streams.fallback)
	}
	return ScalePriceRange(res.value, conditionScore)
}

// lastResort is returned when classification itself breaks down.
func (uc *AppraisalUseCase) lastResort(rng randsource.Source) *domain.AppraisalRecord {
	category := domain.BaseCategories[rng.IntN(len(domain.BaseCategories))]
	slog.Error("appraisal_last_resort", "category", category)
	return &domain.AppraisalRecord{
		Category:    category,
		Subcategory: fallbackSubcategory,
		Title:       lastResortTitle,
		Identifiers: []string{},
		Condition: domain.ConditionSummary{
			Grade: domain.UnknownGrade,
			Notes: ConditionNotes(domain.NeutralCondition(nil)),
		},
		AuthenticityFlags: []string{flagCategoryUncertain},
		PriceEstimateSEK:  UnscaledPriceRange(randomFallbackRange(rng)),
		NextShots:         []string{},
		Confidence:        fallbackClassifierConfidence,
		DetectedText:      []string{},
		HasText:           false,
	}
}

func randomFallbackRange(rng randsource.Source) domain.PriceRange {
	return domain.PriceRange{
		Low:     decimal.NewFromInt(int64(100 + rng.IntN(1000))),
		Mid:     decimal.NewFromInt(int64(500 + rng.IntN(2000))),
		High:    decimal.NewFromInt(int64(1000 + rng.IntN(5000))),
		Sources: []string{"fallback"},
	}
}

func (uc *AppraisalUseCase) observe(analysis, outcome string) {
	if uc.observer != nil {
		uc.observer.ObserveAnalysis(analysis, outcome)
	}
}

// runBounded runs fn with its own deadline. A timeout, cancellation or panic yields the zero
// value and the matching outcome; fn keeps running in the background until it notices ctx.
func runBounded[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) T) (T, string) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value    T
		panicked any
	}
	done := make(chan result, 1)
	go func() {
		var res result
		defer func() {
			if r := recover(); r != nil {
				res.panicked = r
			}
			done <- res
		}()
		res.value = fn(callCtx)
	}()

	var res result
	select {
	case res = <-done:
	case <-callCtx.Done():
		select {
		case res = <-done:
		default:
			var zero T
			if ctx.Err() != nil {
				return zero, outcomeCanceled
			}
			return zero, outcomeTimeout
		}
	}

	if res.panicked != nil {
		slog.Error("analysis_panic", "panic", fmt.Sprint(res.panicked))
		var zero T
		return zero, outcomePanic
	}
	return res.value, outcomeOK
}
