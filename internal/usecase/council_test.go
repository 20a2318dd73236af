package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"AnalystCouncil/internal/domain/models"
)

func testSpecs(n int) []models.ExpertSpec {
	names := []string{"warren_buffett", "peter_lynch", "ray_dalio", "james_simons", "mark_minervini"}
	specs := make([]models.ExpertSpec, n)
	for i := 0; i < n; i++ {
		specs[i] = models.ExpertSpec{
			Identity:        models.ExpertIdentity{Name: names[i%len(names)], Role: "Expert"},
			Primary:         models.Endpoint{Service: models.ServiceAnthropic, Model: "claude-sonnet-4-20250514"},
			Fallback:        models.Endpoint{Service: models.ServiceOpenAI, Model: "gpt-5"},
			MaxTokens:       2000,
			Temperature:     0.7,
			FallbackEnabled: true,
		}
	}
	return specs
}

type capturedHistory struct {
	mu      sync.Mutex
	reports []*models.CouncilReport
}

func (h *capturedHistory) AppendAsync(r *models.CouncilReport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reports = append(h.reports, r)
}

func newCouncil(t *testing.T, specs []models.ExpertSpec, inv *fakeInvoker, threshold int, opts ...CouncilOption) *CouncilService {
	t.Helper()
	runner := NewExpertRunner(inv, time.Minute, testLogger(t), nil)
	svc, err := NewCouncilService(runner, specs, threshold, time.Minute, testLogger(t), nil, opts...)
	if err != nil {
		t.Fatalf("council: %v", err)
	}
	return svc
}

func TestRunAllSucceed(t *testing.T) {
	specs := testSpecs(5)
	inv := &fakeInvoker{respond: func(ep models.Endpoint, _ string) (string, error) {
		return "analysis", nil
	}}
	hist := &capturedHistory{}
	svc := newCouncil(t, specs, inv, 3, WithHistory(hist))

	report, err := svc.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(report.Results))
	}
	if report.Successes != 5 {
		t.Fatalf("expected 5 successes, got %d", report.Successes)
	}
	if report.Decision != models.DecisionSynthesize {
		t.Fatalf("expected synthesize, got %s", report.Decision)
	}
	if report.ID == "" {
		t.Fatalf("report needs an id")
	}
}

func TestRunResultsInConfiguredOrder(t *testing.T) {
	specs := testSpecs(5)
	// later experts finish first
	var n int
	var mu sync.Mutex
	inv := &fakeInvoker{respond: func(ep models.Endpoint, _ string) (string, error) {
		mu.Lock()
		n++
		d := time.Duration(60-n*10) * time.Millisecond
		mu.Unlock()
		time.Sleep(d)
		return "analysis", nil
	}}
	svc := newCouncil(t, specs, inv, 3)

	report, err := svc.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for i, res := range report.Results {
		if res.Expert.Name != specs[i].Identity.Name {
			t.Fatalf("slot %d: expected %s, got %s", i, specs[i].Identity.Name, res.Expert.Name)
		}
	}
}

func TestRunDeadlineFillsPendingSlots(t *testing.T) {
	specs := testSpecs(2)
	inv := &fakeInvoker{respond: func(ep models.Endpoint, _ string) (string, error) {
		// a provider that never looks at its context
		time.Sleep(500 * time.Millisecond)
		return "analysis", nil
	}}
	runner := NewExpertRunner(inv, time.Minute, testLogger(t), nil)
	svc, err := NewCouncilService(runner, specs, 3, 50*time.Millisecond, testLogger(t), nil)
	if err != nil {
		t.Fatalf("council: %v", err)
	}

	start := time.Now()
	report, err := svc.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Fatalf("join outlived the run deadline by %v", elapsed)
	}
	if len(report.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Results))
	}
	for i, res := range report.Results {
		if res.OK || res.ErrKind != models.ErrKindTimeout {
			t.Fatalf("slot %d: expected timeout failure, got ok=%v kind=%s", i, res.OK, res.ErrKind)
		}
		if res.Expert.Name != specs[i].Identity.Name {
			t.Fatalf("slot %d: expected %s, got %s", i, specs[i].Identity.Name, res.Expert.Name)
		}
	}
	if report.Decision != models.DecisionNone {
		t.Fatalf("expected none, got %s", report.Decision)
	}
}

func TestRunPartialFailureBelowQuorum(t *testing.T) {
	specs := testSpecs(5)
	var mu sync.Mutex
	succeeded := 0
	inv := &fakeInvoker{respond: func(ep models.Endpoint, _ string) (string, error) {
		// only the first two primary attempts succeed; every other
		// attempt, fallback included, fails
		mu.Lock()
		defer mu.Unlock()
		if ep.Service == models.ServiceAnthropic && succeeded < 2 {
			succeeded++
			return "analysis", nil
		}
		return "", permanentErr(ep)
	}}
	svc := newCouncil(t, specs, inv, 3)

	report, err := svc.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Successes != 2 {
		t.Fatalf("expected 2 successes, got %d", report.Successes)
	}
	if report.Decision != models.DecisionIndividualOnly {
		t.Fatalf("expected individual_only, got %s", report.Decision)
	}
	if report.Synthesis != nil {
		t.Fatalf("no synthesis below quorum")
	}
	if len(report.Results) != 5 {
		t.Fatalf("every slot must be filled, got %d", len(report.Results))
	}
}

func TestRunTotalFailure(t *testing.T) {
	specs := testSpecs(5)
	inv := &fakeInvoker{respond: func(ep models.Endpoint, _ string) (string, error) {
		return "", permanentErr(ep)
	}}
	svc := newCouncil(t, specs, inv, 3)

	report, err := svc.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Decision != models.DecisionNone {
		t.Fatalf("expected none, got %s", report.Decision)
	}
	if report.Successes != 0 {
		t.Fatalf("expected 0 successes, got %d", report.Successes)
	}
}

func TestRunSynthesisAtQuorum(t *testing.T) {
	specs := testSpecs(3)
	inv := &fakeInvoker{respond: func(ep models.Endpoint, prompt string) (string, error) {
		if strings.Contains(prompt, "Synthesize these views") {
			return "combined verdict", nil
		}
		return "analysis", nil
	}}
	runner := NewExpertRunner(inv, time.Minute, testLogger(t), nil)
	chairman := testSpec()
	chairman.Identity.Name = "chairman"
	syn := NewSynthesizer(runner, chairman, testLogger(t))
	svc := newCouncil(t, specs, inv, 3, WithSynthesizer(syn))

	report, err := svc.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Decision != models.DecisionSynthesize {
		t.Fatalf("expected synthesize, got %s", report.Decision)
	}
	if report.Synthesis == nil || report.Synthesis.Text != "combined verdict" {
		t.Fatalf("expected chairman synthesis, got %+v", report.Synthesis)
	}
}

func TestRunSynthesisFailureKeepsIndividuals(t *testing.T) {
	specs := testSpecs(3)
	inv := &fakeInvoker{respond: func(ep models.Endpoint, prompt string) (string, error) {
		if strings.Contains(prompt, "Synthesize these views") {
			return "", permanentErr(ep)
		}
		return "analysis", nil
	}}
	runner := NewExpertRunner(inv, time.Minute, testLogger(t), nil)
	chairman := testSpec()
	chairman.FallbackEnabled = false
	syn := NewSynthesizer(runner, chairman, testLogger(t))
	svc := newCouncil(t, specs, inv, 3, WithSynthesizer(syn))

	report, err := svc.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Synthesis == nil {
		t.Fatalf("expected synthesis attempt recorded")
	}
	if report.Synthesis.ErrKind != models.ErrKindPermanentConfig {
		t.Fatalf("expected permanent_config, got %s", report.Synthesis.ErrKind)
	}
	if report.Successes != 3 {
		t.Fatalf("individual analyses must survive chairman failure")
	}
}

func TestRunPanicBecomesInternalFailure(t *testing.T) {
	specs := testSpecs(3)
	var mu sync.Mutex
	calls := 0
	inv := &fakeInvoker{respond: func(ep models.Endpoint, _ string) (string, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			panic("boom")
		}
		return "analysis", nil
	}}
	svc := newCouncil(t, specs, inv, 3)

	report, err := svc.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Results) != 3 {
		t.Fatalf("panicking expert must still fill its slot")
	}
	internal := 0
	for _, res := range report.Results {
		if !res.OK && res.ErrKind == models.ErrKindInternal {
			internal++
		}
	}
	if internal != 1 {
		t.Fatalf("expected 1 internal failure, got %d", internal)
	}
	if report.Successes != 2 {
		t.Fatalf("expected 2 successes, got %d", report.Successes)
	}
}

func TestRunRejectsEmptySymbol(t *testing.T) {
	specs := testSpecs(2)
	inv := &fakeInvoker{respond: func(ep models.Endpoint, _ string) (string, error) {
		return "analysis", nil
	}}
	svc := newCouncil(t, specs, inv, 1)

	if _, err := svc.Run(context.Background(), models.AnalysisRequest{}); err == nil {
		t.Fatalf("expected error for empty symbol")
	}
}

func TestRunAppendsHistory(t *testing.T) {
	specs := testSpecs(2)
	inv := &fakeInvoker{respond: func(ep models.Endpoint, _ string) (string, error) {
		return "analysis", nil
	}}
	hist := &capturedHistory{}
	svc := newCouncil(t, specs, inv, 1, WithHistory(hist))

	report, err := svc.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	hist.mu.Lock()
	defer hist.mu.Unlock()
	if len(hist.reports) != 1 || hist.reports[0].ID != report.ID {
		t.Fatalf("expected report appended to history")
	}
}

func TestRunWithThresholdOverride(t *testing.T) {
	specs := testSpecs(5)
	inv := &fakeInvoker{respond: func(ep models.Endpoint, _ string) (string, error) {
		return "analysis", nil
	}}
	svc := newCouncil(t, specs, inv, 3)

	report, err := svc.RunWithThreshold(context.Background(), testRequest(), 6)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Decision != models.DecisionIndividualOnly {
		t.Fatalf("threshold above success count must withhold synthesis, got %s", report.Decision)
	}

	if _, err := svc.RunWithThreshold(context.Background(), testRequest(), 0); err == nil {
		t.Fatalf("expected error for zero threshold")
	}
}

func TestNewCouncilServiceValidation(t *testing.T) {
	inv := &fakeInvoker{respond: func(ep models.Endpoint, _ string) (string, error) { return "x", nil }}
	runner := NewExpertRunner(inv, time.Minute, testLogger(t), nil)

	if _, err := NewCouncilService(runner, nil, 3, time.Minute, testLogger(t), nil); err == nil {
		t.Fatalf("expected error for empty specs")
	}
	if _, err := NewCouncilService(runner, testSpecs(3), 0, time.Minute, testLogger(t), nil); err == nil {
		t.Fatalf("expected error for zero threshold")
	}
}
