package service

import (
	"context"

	"AnalystCouncil/internal/domain/models"
)

// InvokeOptions carries the per-call generation parameters.
type InvokeOptions struct {
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}

// ModelClient talks to a single provider. Implementations classify
// provider failures into models.ErrorKind via their returned errors.
type ModelClient interface {
	Kind() models.ServiceKind
	Invoke(ctx context.Context, model string, prompt string, opts InvokeOptions) (string, error)
}

// ModelInvoker routes an endpoint to the right provider client.
// Unknown services are rejected at call time, never silently remapped.
type ModelInvoker interface {
	Invoke(ctx context.Context, endpoint models.Endpoint, prompt string, opts InvokeOptions) (string, error)
}
