package usecase

import (
	"context"
	"time"

	"AnalystCouncil/internal/domain/models"
	"AnalystCouncil/internal/domain/repository"
	"AnalystCouncil/internal/domain/service"
	"AnalystCouncil/internal/service/llm"
	"AnalystCouncil/pkg/logger"
)

// ExpertRunner executes a single expert's analysis with the
// try-primary-then-fallback-once policy. It never retries beyond the
// one substitution and never mutates the shared spec.
type ExpertRunner struct {
	invoker        service.ModelInvoker
	attemptTimeout time.Duration
	log            *logger.Logger
	metrics        repository.Metrics
}

func NewExpertRunner(invoker service.ModelInvoker, attemptTimeout time.Duration, log *logger.Logger, metrics repository.Metrics) *ExpertRunner {
	if metrics == nil {
		metrics = repository.NopMetrics()
	}
	return &ExpertRunner{
		invoker:        invoker,
		attemptTimeout: attemptTimeout,
		log:            log,
		metrics:        metrics,
	}
}

// Run produces the terminal outcome for one expert. Every failure mode
// maps to a result, never a panic or a lost slot.
func (r *ExpertRunner) Run(ctx context.Context, spec models.ExpertSpec, req models.AnalysisRequest) models.AnalysisResult {
	return r.RunPrompt(ctx, spec, BuildExpertPrompt(req))
}

// RunPrompt applies the attempt policy to an explicit prompt. The
// chairman pass reuses this with its briefing.
func (r *ExpertRunner) RunPrompt(ctx context.Context, spec models.ExpertSpec, prompt string) models.AnalysisResult {
	spec = spec.Clone()
	start := time.Now()

	result := r.runAttempts(ctx, spec, prompt)
	result.Expert = spec.Identity
	result.Elapsed = time.Since(start)

	outcome := "success"
	if !result.OK {
		outcome = string(result.ErrKind)
		r.metrics.RecordError(string(result.ErrKind))
	}
	r.metrics.RecordExpertOutcome(spec.Identity.Name, outcome)
	r.metrics.RecordLatency("expert_analysis", result.Elapsed.Seconds())
	return result
}

func (r *ExpertRunner) runAttempts(ctx context.Context, spec models.ExpertSpec, prompt string) models.AnalysisResult {
	text, err := r.attempt(ctx, spec, spec.Primary, prompt)
	if err == nil {
		if text == "" {
			return failure(spec.Primary, false, models.ErrKindEmptyResponse, "model returned empty payload")
		}
		return success(spec.Primary, false, text)
	}

	kind := llm.KindOf(err)
	r.log.Warn("primary model attempt failed",
		logger.String("expert", spec.Identity.Name),
		logger.String("endpoint", spec.Primary.String()),
		logger.String("kind", string(kind)),
		logger.Error(err))

	if !spec.FallbackEnabled || !kind.FallbackEligible() {
		return failure(spec.Primary, false, kind, err.Error())
	}

	// One substitution, ever. The fallback attempt is final whatever
	// its outcome.
	r.metrics.RecordFallback(spec.Identity.Name)
	r.log.Info("substituting fallback model",
		logger.String("expert", spec.Identity.Name),
		logger.String("endpoint", spec.Fallback.String()))

	text, err = r.attempt(ctx, spec, spec.Fallback, prompt)
	if err != nil {
		return failure(spec.Fallback, true, llm.KindOf(err), err.Error())
	}
	if text == "" {
		return failure(spec.Fallback, true, models.ErrKindEmptyResponse, "model returned empty payload")
	}
	return success(spec.Fallback, true, text)
}

func (r *ExpertRunner) attempt(ctx context.Context, spec models.ExpertSpec, endpoint models.Endpoint, prompt string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
	defer cancel()

	return r.invoker.Invoke(attemptCtx, endpoint, prompt, service.InvokeOptions{
		SystemPrompt: spec.SystemPrompt,
		MaxTokens:    spec.MaxTokens,
		Temperature:  spec.Temperature,
	})
}

func success(endpoint models.Endpoint, usedFallback bool, text string) models.AnalysisResult {
	return models.AnalysisResult{
		OK:           true,
		Text:         text,
		Endpoint:     endpoint,
		UsedFallback: usedFallback,
	}
}

func failure(endpoint models.Endpoint, usedFallback bool, kind models.ErrorKind, detail string) models.AnalysisResult {
	return models.AnalysisResult{
		OK:           false,
		Endpoint:     endpoint,
		UsedFallback: usedFallback,
		ErrKind:      kind,
		ErrDetail:    detail,
	}
}
