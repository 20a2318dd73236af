package usecase

import (
	"context"

	"AnalystCouncil/internal/domain/models"
	"AnalystCouncil/pkg/logger"
)

// Synthesizer runs the chairman pass over the successful analyses.
// The chairman uses the same attempt policy as any expert.
type Synthesizer struct {
	runner *ExpertRunner
	spec   models.ExpertSpec
	log    *logger.Logger
}

func NewSynthesizer(runner *ExpertRunner, spec models.ExpertSpec, log *logger.Logger) *Synthesizer {
	return &Synthesizer{runner: runner, spec: spec, log: log}
}

// Synthesize produces the combined verdict. A chairman failure is
// reported in the result rather than failing the run; the individual
// analyses already stand.
func (s *Synthesizer) Synthesize(ctx context.Context, req models.AnalysisRequest, results []models.AnalysisResult) *models.SynthesisResult {
	briefing := BuildChairmanBriefing(req, results)

	out := s.runner.RunPrompt(ctx, s.spec, briefing)
	if !out.OK {
		s.log.Error("chairman synthesis failed",
			logger.String("kind", string(out.ErrKind)),
			logger.String("detail", out.ErrDetail))
		return &models.SynthesisResult{
			Endpoint:  out.Endpoint,
			ErrKind:   out.ErrKind,
			ErrDetail: out.ErrDetail,
		}
	}
	return &models.SynthesisResult{
		Text:     out.Text,
		Endpoint: out.Endpoint,
	}
}
