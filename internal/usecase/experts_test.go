package usecase

import (
	"testing"

	"AnalystCouncil/internal/domain/models"
	"AnalystCouncil/pkg/config"
)

func TestResolveEndpoint(t *testing.T) {
	cases := []struct {
		in      string
		service models.ServiceKind
		model   string
		fail    bool
	}{
		{in: "claude-sonnet-4-20250514", service: models.ServiceAnthropic, model: "claude-sonnet-4-20250514"},
		{in: "gpt-5", service: models.ServiceOpenAI, model: "gpt-5"},
		{in: "o3-mini", service: models.ServiceOpenAI, model: "o3-mini"},
		{in: "anthropic/claude-opus-4", service: models.ServiceAnthropic, model: "claude-opus-4"},
		{in: "openai/custom-model", service: models.ServiceOpenAI, model: "custom-model"},
		{in: "mistral/large", fail: true},
		{in: "llama-3", fail: true},
		{in: "", fail: true},
	}
	for _, tc := range cases {
		ep, err := ResolveEndpoint(tc.in)
		if tc.fail {
			if err == nil {
				t.Fatalf("%q: expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tc.in, err)
		}
		if ep.Service != tc.service || ep.Model != tc.model {
			t.Fatalf("%q: got %s/%s", tc.in, ep.Service, ep.Model)
		}
	}
}

func TestBuildSpecNoFallbackModel(t *testing.T) {
	spec, err := BuildSpec(config.ExpertConfig{
		Name:         "solo",
		Role:         "Expert",
		PrimaryModel: "claude-sonnet-4-20250514",
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if spec.FallbackEnabled {
		t.Fatalf("no fallback model must disable fallback")
	}
}

func TestBuildSpecFallbackOptOut(t *testing.T) {
	off := false
	spec, err := BuildSpec(config.ExpertConfig{
		Name:            "solo",
		Role:            "Expert",
		PrimaryModel:    "claude-sonnet-4-20250514",
		FallbackModel:   "gpt-5",
		FallbackEnabled: &off,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if spec.FallbackEnabled {
		t.Fatalf("explicit opt-out must disable fallback")
	}
	if spec.Fallback.Model != "gpt-5" {
		t.Fatalf("fallback endpoint still resolved, got %s", spec.Fallback.Model)
	}
}

func TestBuildSpecBadModel(t *testing.T) {
	if _, err := BuildSpec(config.ExpertConfig{Name: "bad", PrimaryModel: "mystery-9000"}); err == nil {
		t.Fatalf("expected error for unresolvable primary model")
	}
	if _, err := BuildSpec(config.ExpertConfig{
		Name:          "bad",
		PrimaryModel:  "claude-sonnet-4-20250514",
		FallbackModel: "mystery-9000",
	}); err == nil {
		t.Fatalf("expected error for unresolvable fallback model")
	}
}

func TestBuildSpecsDefaultsToBuiltinPanel(t *testing.T) {
	specs, err := BuildSpecs(nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(specs) != 5 {
		t.Fatalf("expected 5 built-in experts, got %d", len(specs))
	}
	seen := map[string]bool{}
	for _, s := range specs {
		if seen[s.Identity.Name] {
			t.Fatalf("duplicate built-in expert %s", s.Identity.Name)
		}
		seen[s.Identity.Name] = true
		if s.Primary.Service != models.ServiceAnthropic {
			t.Fatalf("%s: built-in primary must be anthropic", s.Identity.Name)
		}
		if !s.FallbackEnabled || s.Fallback.Service != models.ServiceOpenAI {
			t.Fatalf("%s: built-in fallback must be openai", s.Identity.Name)
		}
		if s.SystemPrompt == "" {
			t.Fatalf("%s: built-in expert needs a system prompt", s.Identity.Name)
		}
	}
}

func TestBuildChairmanSpecDefault(t *testing.T) {
	spec, err := BuildChairmanSpec(config.ExpertConfig{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if spec.Identity.Name != "chairman" {
		t.Fatalf("expected default chairman, got %s", spec.Identity.Name)
	}
	if spec.MaxTokens != 4000 {
		t.Fatalf("expected chairman token budget 4000, got %d", spec.MaxTokens)
	}
}
