package usecase

import (
	"fmt"
	"strings"

	"AnalystCouncil/internal/domain/models"
	"AnalystCouncil/pkg/config"
)

const (
	defaultPrimaryModel  = "claude-sonnet-4-20250514"
	defaultFallbackModel = "gpt-5"
)

// ResolveEndpoint maps a configured model string to a concrete
// endpoint. The service may be given explicitly as "service/model";
// otherwise it is inferred from well-known model name prefixes.
// Anything unrecognized is an error at load time.
func ResolveEndpoint(model string) (models.Endpoint, error) {
	if service, name, ok := strings.Cut(model, "/"); ok {
		switch models.ServiceKind(service) {
		case models.ServiceAnthropic, models.ServiceOpenAI:
			return models.Endpoint{Service: models.ServiceKind(service), Model: name}, nil
		}
		return models.Endpoint{}, fmt.Errorf("unknown model service '%s'", service)
	}
	switch {
	case strings.HasPrefix(model, "claude-"):
		return models.Endpoint{Service: models.ServiceAnthropic, Model: model}, nil
	case strings.HasPrefix(model, "gpt-"), strings.HasPrefix(model, "o1"),
		strings.HasPrefix(model, "o3"), strings.HasPrefix(model, "o4"):
		return models.Endpoint{Service: models.ServiceOpenAI, Model: model}, nil
	}
	return models.Endpoint{}, fmt.Errorf("cannot infer service for model '%s'", model)
}

// BuildSpec turns one configured expert into a resolved spec.
func BuildSpec(e config.ExpertConfig) (models.ExpertSpec, error) {
	primary, err := ResolveEndpoint(e.PrimaryModel)
	if err != nil {
		return models.ExpertSpec{}, fmt.Errorf("expert %s: primary: %w", e.Name, err)
	}
	spec := models.ExpertSpec{
		Identity: models.ExpertIdentity{
			Name:          e.Name,
			Role:          e.Role,
			AnalysisFocus: e.AnalysisFocus,
		},
		SystemPrompt:    e.SystemPrompt,
		Primary:         primary,
		MaxTokens:       e.MaxTokens,
		Temperature:     e.Temperature,
		FallbackEnabled: e.FallbackEnabled == nil || *e.FallbackEnabled,
	}
	if e.FallbackModel != "" {
		fallback, err := ResolveEndpoint(e.FallbackModel)
		if err != nil {
			return models.ExpertSpec{}, fmt.Errorf("expert %s: fallback: %w", e.Name, err)
		}
		spec.Fallback = fallback
	} else {
		spec.FallbackEnabled = false
	}
	return spec, nil
}

// BuildSpecs resolves the configured council, falling back to the
// built-in five-expert panel when none is configured.
func BuildSpecs(experts []config.ExpertConfig) ([]models.ExpertSpec, error) {
	if len(experts) == 0 {
		experts = DefaultExperts()
	}
	specs := make([]models.ExpertSpec, 0, len(experts))
	for _, e := range experts {
		spec, err := BuildSpec(e)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// BuildChairmanSpec resolves the synthesizer, defaulting when absent.
func BuildChairmanSpec(chairman config.ExpertConfig) (models.ExpertSpec, error) {
	if chairman.Name == "" {
		chairman = DefaultChairman()
	}
	return BuildSpec(chairman)
}

// DefaultExperts is the built-in council: five investment personas with
// distinct analytical mandates.
func DefaultExperts() []config.ExpertConfig {
	return []config.ExpertConfig{
		{
			Name:          "warren_buffett",
			Role:          "Value Investing Expert",
			AnalysisFocus: "intrinsic value, moat, management quality",
			SystemPrompt: "You are Warren Buffett, the legendary value investor. Analyze the " +
				"given stock through the lens of value investing: intrinsic value versus " +
				"market price, durability of the competitive moat, quality and candor of " +
				"management, and long-term owner earnings. Be direct about whether you " +
				"would buy, hold, or avoid, and why.",
			PrimaryModel:  defaultPrimaryModel,
			FallbackModel: defaultFallbackModel,
			MaxTokens:     2000,
			Temperature:   0.7,
		},
		{
			Name:          "peter_lynch",
			Role:          "Growth Investing Expert",
			AnalysisFocus: "earnings growth, PEG ratio, category of stock",
			SystemPrompt: "You are Peter Lynch, the growth-at-a-reasonable-price investor. " +
				"Classify the stock into one of your six categories, weigh its earnings " +
				"growth against its valuation via the PEG ratio, and judge whether the " +
				"story is still intact. Invest in what you understand.",
			PrimaryModel:  defaultPrimaryModel,
			FallbackModel: defaultFallbackModel,
			MaxTokens:     2000,
			Temperature:   0.7,
		},
		{
			Name:          "ray_dalio",
			Role:          "Macro Analysis Expert",
			AnalysisFocus: "macro cycles, rates, currency and systemic risk",
			SystemPrompt: "You are Ray Dalio, the macro investor. Place the stock in the " +
				"context of the economic machine: where we are in the debt cycle, the " +
				"interest rate environment, currency dynamics, and how diversification " +
				"and risk parity considerations bear on holding it.",
			PrimaryModel:  defaultPrimaryModel,
			FallbackModel: defaultFallbackModel,
			MaxTokens:     2000,
			Temperature:   0.7,
		},
		{
			Name:          "james_simons",
			Role:          "Quantitative Analysis Expert",
			AnalysisFocus: "statistical patterns, volatility, anomalies",
			SystemPrompt: "You are James Simons, the quantitative investor. Reason from " +
				"data: statistical properties of the price series, volatility regime, " +
				"notable anomalies, and what a systematic model would likely conclude. " +
				"State your confidence and the limits of the evidence.",
			PrimaryModel:  defaultPrimaryModel,
			FallbackModel: defaultFallbackModel,
			MaxTokens:     2000,
			Temperature:   0.7,
		},
		{
			Name:          "mark_minervini",
			Role:          "Momentum Trading Expert",
			AnalysisFocus: "trend templates, relative strength, entry points",
			SystemPrompt: "You are Mark Minervini, the momentum trader. Evaluate the stock " +
				"against your trend template: stage analysis, relative strength versus " +
				"the market, volume behavior, and whether a low-risk entry point exists " +
				"right now. Be specific about risk management.",
			PrimaryModel:  defaultPrimaryModel,
			FallbackModel: defaultFallbackModel,
			MaxTokens:     2000,
			Temperature:   0.7,
		},
	}
}

// DefaultChairman is the built-in synthesizer configuration.
func DefaultChairman() config.ExpertConfig {
	return config.ExpertConfig{
		Name:          "chairman",
		Role:          "Council Chairman",
		AnalysisFocus: "synthesis of the council's views",
		SystemPrompt: "You are the chairman of an investment analysis council. You have " +
			"received independent analyses from several experts, each with a different " +
			"methodology. Synthesize their views into a single balanced verdict: points " +
			"of agreement, material disagreements and why they arise, and an overall " +
			"assessment. Do not invent facts beyond what the experts provided.",
		PrimaryModel:  defaultPrimaryModel,
		FallbackModel: defaultFallbackModel,
		MaxTokens:     4000,
		Temperature:   0.3,
	}
}
