package llm

import (
	"context"
	"testing"

	"AnalystCouncil/internal/domain/models"
	"AnalystCouncil/internal/domain/service"
)

type stubClient struct {
	kind  models.ServiceKind
	model string
}

func (c *stubClient) Kind() models.ServiceKind { return c.kind }

func (c *stubClient) Invoke(ctx context.Context, model, prompt string, opts service.InvokeOptions) (string, error) {
	c.model = model
	return "ok from " + string(c.kind), nil
}

func TestRegistryDispatch(t *testing.T) {
	ac := &stubClient{kind: models.ServiceAnthropic}
	oc := &stubClient{kind: models.ServiceOpenAI}
	reg := NewRegistry(ac, oc)

	out, err := reg.Invoke(context.Background(),
		models.Endpoint{Service: models.ServiceOpenAI, Model: "gpt-5"}, "hi", service.InvokeOptions{})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if out != "ok from openai" {
		t.Fatalf("wrong client answered: %s", out)
	}
	if oc.model != "gpt-5" {
		t.Fatalf("model not passed through, got %s", oc.model)
	}
	if ac.model != "" {
		t.Fatalf("anthropic client must not be called")
	}
}

func TestRegistryUnknownService(t *testing.T) {
	reg := NewRegistry(&stubClient{kind: models.ServiceAnthropic})

	_, err := reg.Invoke(context.Background(),
		models.Endpoint{Service: "mistral", Model: "large"}, "hi", service.InvokeOptions{})
	if err == nil {
		t.Fatalf("expected error for unregistered service")
	}
	if got := KindOf(err); got != models.ErrKindPermanentConfig {
		t.Fatalf("unknown service must be permanent, got %s", got)
	}
}
