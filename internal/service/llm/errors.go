package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"

	"AnalystCouncil/internal/domain/models"
)

// CallError wraps a provider failure with its classified kind so the
// runner can decide whether a fallback attempt is warranted.
type CallError struct {
	Kind     models.ErrorKind
	Endpoint models.Endpoint
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s call failed (%s): %v", e.Endpoint, e.Kind, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// NewCallError classifies err and wraps it for the given endpoint.
func NewCallError(endpoint models.Endpoint, err error) *CallError {
	return &CallError{Kind: Classify(err), Endpoint: endpoint, Err: err}
}

// KindOf extracts the error kind from err, defaulting to internal for
// anything not produced by a provider client.
func KindOf(err error) models.ErrorKind {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return models.ErrKindInternal
}

// Classify maps SDK and context errors onto the failure taxonomy.
// Client-side misconfiguration (bad model, bad key, malformed request)
// is permanent; rate limits, conflicts, server faults and transport
// errors are transient.
func Classify(err error) models.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.ErrKindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return models.ErrKindTimeout
	}

	var ae *anthropic.Error
	if errors.As(err, &ae) {
		return classifyStatus(ae.StatusCode)
	}
	var oe *openai.Error
	if errors.As(err, &oe) {
		return classifyStatus(oe.StatusCode)
	}

	// Network-level failures reach us as plain transport errors.
	return models.ErrKindTransientProvider
}

func classifyStatus(status int) models.ErrorKind {
	switch status {
	case 400, 401, 403, 404, 422:
		return models.ErrKindPermanentConfig
	}
	return models.ErrKindTransientProvider
}
