package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"AnalystCouncil/internal/domain/models"
	"AnalystCouncil/internal/domain/service"
	"AnalystCouncil/internal/service/llm"
	"AnalystCouncil/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

// fakeInvoker scripts responses per endpoint and records every call.
type fakeInvoker struct {
	mu      sync.Mutex
	calls   []models.Endpoint
	respond func(endpoint models.Endpoint, prompt string) (string, error)
}

func (f *fakeInvoker) Invoke(ctx context.Context, endpoint models.Endpoint, prompt string, opts service.InvokeOptions) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, endpoint)
	f.mu.Unlock()
	return f.respond(endpoint, prompt)
}

func (f *fakeInvoker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testSpec() models.ExpertSpec {
	return models.ExpertSpec{
		Identity:        models.ExpertIdentity{Name: "warren_buffett", Role: "Value Investing Expert"},
		SystemPrompt:    "You are a value investor.",
		Primary:         models.Endpoint{Service: models.ServiceAnthropic, Model: "claude-sonnet-4-20250514"},
		Fallback:        models.Endpoint{Service: models.ServiceOpenAI, Model: "gpt-5"},
		MaxTokens:       2000,
		Temperature:     0.7,
		FallbackEnabled: true,
	}
}

func testRequest() models.AnalysisRequest {
	return models.AnalysisRequest{Symbol: "AAPL", RequestedAt: time.Now()}
}

func transientErr(endpoint models.Endpoint) error {
	return &llm.CallError{Kind: models.ErrKindTransientProvider, Endpoint: endpoint, Err: context.DeadlineExceeded}
}

func permanentErr(endpoint models.Endpoint) error {
	return &llm.CallError{Kind: models.ErrKindPermanentConfig, Endpoint: endpoint, Err: context.DeadlineExceeded}
}

func TestRunPrimarySuccess(t *testing.T) {
	spec := testSpec()
	inv := &fakeInvoker{respond: func(ep models.Endpoint, _ string) (string, error) {
		return "looks undervalued", nil
	}}
	runner := NewExpertRunner(inv, time.Minute, testLogger(t), nil)

	res := runner.Run(context.Background(), spec, testRequest())
	if !res.OK {
		t.Fatalf("expected success, got %s: %s", res.ErrKind, res.ErrDetail)
	}
	if res.Endpoint != spec.Primary {
		t.Fatalf("expected primary endpoint, got %s", res.Endpoint)
	}
	if res.UsedFallback {
		t.Fatalf("fallback must not be marked on primary success")
	}
	if inv.callCount() != 1 {
		t.Fatalf("expected 1 invocation, got %d", inv.callCount())
	}
}

func TestRunFallbackOnTransientFailure(t *testing.T) {
	spec := testSpec()
	inv := &fakeInvoker{respond: func(ep models.Endpoint, _ string) (string, error) {
		if ep == spec.Primary {
			return "", transientErr(ep)
		}
		return "fallback verdict", nil
	}}
	runner := NewExpertRunner(inv, time.Minute, testLogger(t), nil)

	res := runner.Run(context.Background(), spec, testRequest())
	if !res.OK {
		t.Fatalf("expected success via fallback, got %s", res.ErrKind)
	}
	if !res.UsedFallback {
		t.Fatalf("expected fallback flag")
	}
	if res.Endpoint != spec.Fallback {
		t.Fatalf("expected fallback endpoint, got %s", res.Endpoint)
	}
	if inv.callCount() != 2 {
		t.Fatalf("expected 2 invocations, got %d", inv.callCount())
	}
}

func TestRunFallbackOnPermanentFailure(t *testing.T) {
	spec := testSpec()
	inv := &fakeInvoker{respond: func(ep models.Endpoint, _ string) (string, error) {
		if ep == spec.Primary {
			return "", permanentErr(ep)
		}
		return "fallback verdict", nil
	}}
	runner := NewExpertRunner(inv, time.Minute, testLogger(t), nil)

	res := runner.Run(context.Background(), spec, testRequest())
	if !res.OK {
		t.Fatalf("misconfigured primary must still fall back, got %s", res.ErrKind)
	}
	if !res.UsedFallback || res.Endpoint != spec.Fallback {
		t.Fatalf("expected fallback endpoint, got %s", res.Endpoint)
	}
	if inv.callCount() != 2 {
		t.Fatalf("expected 2 invocations, got %d", inv.callCount())
	}
}

func TestRunPermanentFailureOnBothEndpoints(t *testing.T) {
	spec := testSpec()
	inv := &fakeInvoker{respond: func(ep models.Endpoint, _ string) (string, error) {
		return "", permanentErr(ep)
	}}
	runner := NewExpertRunner(inv, time.Minute, testLogger(t), nil)

	res := runner.Run(context.Background(), spec, testRequest())
	if res.OK {
		t.Fatalf("expected failure")
	}
	if res.ErrKind != models.ErrKindPermanentConfig {
		t.Fatalf("expected permanent_config, got %s", res.ErrKind)
	}
	if inv.callCount() != 2 {
		t.Fatalf("expected primary plus one fallback attempt, got %d calls", inv.callCount())
	}
	if !res.UsedFallback {
		t.Fatalf("final result must carry the fallback attempt")
	}
}

func TestRunEmptyPayloadIsTerminal(t *testing.T) {
	spec := testSpec()
	inv := &fakeInvoker{respond: func(ep models.Endpoint, _ string) (string, error) {
		return "", nil
	}}
	runner := NewExpertRunner(inv, time.Minute, testLogger(t), nil)

	res := runner.Run(context.Background(), spec, testRequest())
	if res.OK {
		t.Fatalf("expected failure on empty payload")
	}
	if res.ErrKind != models.ErrKindEmptyResponse {
		t.Fatalf("expected empty_response, got %s", res.ErrKind)
	}
	if inv.callCount() != 1 {
		t.Fatalf("empty payload must not trigger fallback, got %d calls", inv.callCount())
	}
}

func TestRunFallbackAtMostOnce(t *testing.T) {
	spec := testSpec()
	inv := &fakeInvoker{respond: func(ep models.Endpoint, _ string) (string, error) {
		return "", transientErr(ep)
	}}
	runner := NewExpertRunner(inv, time.Minute, testLogger(t), nil)

	res := runner.Run(context.Background(), spec, testRequest())
	if res.OK {
		t.Fatalf("expected failure")
	}
	if !res.UsedFallback {
		t.Fatalf("expected fallback attempt")
	}
	if inv.callCount() != 2 {
		t.Fatalf("expected exactly 2 invocations, got %d", inv.callCount())
	}
}

func TestRunFallbackDisabled(t *testing.T) {
	spec := testSpec()
	spec.FallbackEnabled = false
	inv := &fakeInvoker{respond: func(ep models.Endpoint, _ string) (string, error) {
		return "", transientErr(ep)
	}}
	runner := NewExpertRunner(inv, time.Minute, testLogger(t), nil)

	res := runner.Run(context.Background(), spec, testRequest())
	if res.OK {
		t.Fatalf("expected failure")
	}
	if inv.callCount() != 1 {
		t.Fatalf("disabled fallback must not fire, got %d calls", inv.callCount())
	}
}

func TestRunAttemptTimeout(t *testing.T) {
	spec := testSpec()
	spec.FallbackEnabled = false
	inv := &fakeInvoker{respond: func(ep models.Endpoint, _ string) (string, error) {
		return "", llm.NewCallError(ep, context.DeadlineExceeded)
	}}
	runner := NewExpertRunner(inv, time.Millisecond, testLogger(t), nil)

	res := runner.Run(context.Background(), spec, testRequest())
	if res.OK {
		t.Fatalf("expected timeout failure")
	}
	if res.ErrKind != models.ErrKindTimeout {
		t.Fatalf("expected timeout, got %s", res.ErrKind)
	}
}

func TestRunDoesNotMutateSharedSpec(t *testing.T) {
	spec := testSpec()
	original := spec
	inv := &fakeInvoker{respond: func(ep models.Endpoint, _ string) (string, error) {
		if ep == spec.Primary {
			return "", transientErr(ep)
		}
		return "ok", nil
	}}
	runner := NewExpertRunner(inv, time.Minute, testLogger(t), nil)

	_ = runner.Run(context.Background(), spec, testRequest())
	if spec != original {
		t.Fatalf("spec mutated by run")
	}
}
