package usecase

import (
	"testing"

	"AnalystCouncil/internal/domain/models"
)

func TestGateZeroSuccesses(t *testing.T) {
	if got := Gate(0, 3); got != models.DecisionNone {
		t.Fatalf("expected none, got %s", got)
	}
	// zero successes wins even with threshold 1
	if got := Gate(0, 1); got != models.DecisionNone {
		t.Fatalf("expected none, got %s", got)
	}
}

func TestGateBelowThreshold(t *testing.T) {
	for s := 1; s < 3; s++ {
		if got := Gate(s, 3); got != models.DecisionIndividualOnly {
			t.Fatalf("successes=%d: expected individual_only, got %s", s, got)
		}
	}
}

func TestGateAtAndAboveThreshold(t *testing.T) {
	for s := 3; s <= 5; s++ {
		if got := Gate(s, 3); got != models.DecisionSynthesize {
			t.Fatalf("successes=%d: expected synthesize, got %s", s, got)
		}
	}
}

func TestGateThresholdOne(t *testing.T) {
	if got := Gate(1, 1); got != models.DecisionSynthesize {
		t.Fatalf("expected synthesize, got %s", got)
	}
}

func TestGateDeterministic(t *testing.T) {
	// same inputs, same verdict, every time
	for i := 0; i < 100; i++ {
		if got := Gate(2, 3); got != models.DecisionIndividualOnly {
			t.Fatalf("iteration %d: got %s", i, got)
		}
	}
}

func TestCountSuccesses(t *testing.T) {
	results := []models.AnalysisResult{
		{OK: true},
		{OK: false, ErrKind: models.ErrKindTimeout},
		{OK: true},
		{OK: false, ErrKind: models.ErrKindEmptyResponse},
	}
	if got := CountSuccesses(results); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := CountSuccesses(nil); got != 0 {
		t.Fatalf("expected 0 for empty, got %d", got)
	}
}
