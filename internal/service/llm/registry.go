package llm

import (
	"context"
	"fmt"

	"AnalystCouncil/internal/domain/models"
	"AnalystCouncil/internal/domain/service"
)

// Registry routes endpoints to provider clients by service kind.
type Registry struct {
	clients map[models.ServiceKind]service.ModelClient
}

// NewRegistry builds a registry from the given clients. Later clients
// with the same kind win; callers wire one per provider.
func NewRegistry(clients ...service.ModelClient) *Registry {
	m := make(map[models.ServiceKind]service.ModelClient, len(clients))
	for _, c := range clients {
		m[c.Kind()] = c
	}
	return &Registry{clients: m}
}

// Invoke dispatches to the client for the endpoint's service. An
// unknown service is a permanent configuration error, not a guessable
// default.
func (r *Registry) Invoke(ctx context.Context, endpoint models.Endpoint, prompt string, opts service.InvokeOptions) (string, error) {
	client, ok := r.clients[endpoint.Service]
	if !ok {
		return "", &CallError{
			Kind:     models.ErrKindPermanentConfig,
			Endpoint: endpoint,
			Err:      fmt.Errorf("no client registered for service '%s'", endpoint.Service),
		}
	}
	return client.Invoke(ctx, endpoint.Model, prompt, opts)
}

var _ service.ModelInvoker = (*Registry)(nil)
