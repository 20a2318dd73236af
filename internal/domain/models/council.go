package models

import (
	"fmt"
	"time"
)

// ServiceKind identifies which provider backs a model endpoint.
type ServiceKind string

const (
	ServiceAnthropic ServiceKind = "anthropic"
	ServiceOpenAI    ServiceKind = "openai"
)

// Endpoint is a fully resolved model target for one attempt.
type Endpoint struct {
	Service ServiceKind `json:"service"`
	Model   string      `json:"model"`
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s/%s", e.Service, e.Model)
}

// ExpertIdentity names one council member and its analytical persona.
type ExpertIdentity struct {
	Name          string `json:"name"`
	Role          string `json:"role"`
	AnalysisFocus string `json:"analysis_focus"`
}

// ExpertSpec is the complete call configuration for one expert. The
// runner works on a private copy so a fallback substitution for one
// request never leaks into concurrent runs.
type ExpertSpec struct {
	Identity        ExpertIdentity
	SystemPrompt    string
	Primary         Endpoint
	Fallback        Endpoint
	MaxTokens       int
	Temperature     float64
	FallbackEnabled bool
}

// Clone returns an independent copy safe to mutate for a single call.
func (s ExpertSpec) Clone() ExpertSpec {
	return s
}

// AnalysisRequest is the unit of work fanned out to every expert.
type AnalysisRequest struct {
	Symbol      string    `json:"symbol"`
	Quote       *Quote    `json:"quote,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// ErrorKind classifies why an expert attempt or analysis failed.
type ErrorKind string

const (
	ErrKindTransientProvider ErrorKind = "transient_provider"
	ErrKindPermanentConfig   ErrorKind = "permanent_config"
	ErrKindEmptyResponse     ErrorKind = "empty_response"
	ErrKindTimeout           ErrorKind = "timeout"
	ErrKindInternal          ErrorKind = "internal"
)

// FallbackEligible reports whether a failure of this kind should trigger
// the one-shot fallback substitution. Any invocation error qualifies,
// even a misconfigured primary: the fallback endpoint has its own
// service and key, so it can still succeed. An empty payload is a
// terminal outcome for the attempt chain, not an invocation error.
func (k ErrorKind) FallbackEligible() bool {
	return k != ErrKindEmptyResponse
}

// AnalysisResult is the terminal outcome of one expert's run, success
// or failure. Endpoint records which model actually produced the text
// (the fallback when substitution occurred).
type AnalysisResult struct {
	Expert       ExpertIdentity `json:"expert"`
	OK           bool           `json:"ok"`
	Text         string         `json:"text,omitempty"`
	Endpoint     Endpoint       `json:"endpoint"`
	UsedFallback bool           `json:"used_fallback"`
	ErrKind      ErrorKind      `json:"err_kind,omitempty"`
	ErrDetail    string         `json:"err_detail,omitempty"`
	Elapsed      time.Duration  `json:"elapsed"`
}

// GateDecision is the quorum gate's verdict over the joined results.
type GateDecision string

const (
	DecisionSynthesize     GateDecision = "synthesize"
	DecisionIndividualOnly GateDecision = "individual_only"
	DecisionNone           GateDecision = "none"
)

// SynthesisResult is the chairman's combined verdict, present only when
// the gate decided to synthesize and the chairman call succeeded.
type SynthesisResult struct {
	Text      string    `json:"text"`
	Endpoint  Endpoint  `json:"endpoint"`
	ErrKind   ErrorKind `json:"err_kind,omitempty"`
	ErrDetail string    `json:"err_detail,omitempty"`
}

// CouncilReport is the full record of one council run.
type CouncilReport struct {
	ID          string           `json:"id"`
	Request     AnalysisRequest  `json:"request"`
	Results     []AnalysisResult `json:"results"`
	Decision    GateDecision     `json:"decision"`
	Successes   int              `json:"successes"`
	Synthesis   *SynthesisResult `json:"synthesis,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at"`
}

// StatusLine renders the run summary the way operators read it in the
// history log.
func (r *CouncilReport) StatusLine() string {
	return fmt.Sprintf("%d/%d experts succeeded, decision=%s",
		r.Successes, len(r.Results), r.Decision)
}
