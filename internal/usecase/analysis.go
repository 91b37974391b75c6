package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/deeptrust/internal/analysis"
	"github.com/example/deeptrust/internal/imageinput"
	"github.com/example/deeptrust/internal/logging"
	"github.com/example/deeptrust/internal/metrics"
)

// Analyzer is the subset of the relay used by the analysis flow.
type Analyzer interface {
	Analyze(ctx context.Context, in imageinput.ImageInput) (*analysis.Result, error)
}

// AnalysisUseCase tags each relay call with a request id, logs the outcome
// and records metrics. It keeps no state between calls.
type AnalysisUseCase struct {
	analyzer Analyzer
	logger   *zap.Logger
	now      func() time.Time
}

// NewAnalysisUseCase constructs a new use case instance.
func NewAnalysisUseCase(analyzer Analyzer, logger *zap.Logger) *AnalysisUseCase {
	return &AnalysisUseCase{
		analyzer: analyzer,
		logger:   logger.Named("analysis_usecase"),
		now:      time.Now,
	}
}

// AnalyzeImage runs one relay call for in. Failures are always returned as
// *analysis.Error; the provider's raw detail is logged, not returned.
func (uc *AnalysisUseCase) AnalyzeImage(ctx context.Context, in imageinput.ImageInput) (string, *analysis.Result, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.analyze_image", requestID)

	input := "url"
	if in.Base64 != "" {
		input = "inline"
	}

	start := uc.now()
	result, err := uc.analyzer.Analyze(ctx, in)
	elapsed := uc.now().Sub(start)

	if err != nil {
		classified := analysis.AsError(err)
		metrics.ObserveAnalysis(elapsed, input, string(classified.Kind))

		fields := []zap.Field{
			zap.String("kind", string(classified.Kind)),
			zap.Duration("elapsed", elapsed),
			zap.Error(logging.NewOperationError("relay.analyze", requestID, err)),
		}
		if classified.Detail != "" {
			fields = append(fields, zap.String("provider_detail", classified.Detail))
		}
		switch classified.Kind {
		case analysis.KindBadRequest, analysis.KindRateLimited, analysis.KindUsageLimitReached:
			opLogger.Warn("analysis rejected", fields...)
		default:
			opLogger.Error("analysis failed", fields...)
		}
		return requestID, nil, classified
	}

	metrics.ObserveAnalysis(elapsed, input, metrics.OutcomeSuccess)
	opLogger.Info("analysis complete",
		zap.String("verdict", result.Verdict.String()),
		zap.Int("confidence", result.Confidence),
		zap.Int("signals", len(result.Signals)),
		zap.Duration("elapsed", elapsed),
	)
	return requestID, result, nil
}
