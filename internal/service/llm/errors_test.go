package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"

	"AnalystCouncil/internal/domain/models"
)

func TestClassifyContextErrors(t *testing.T) {
	if got := Classify(context.DeadlineExceeded); got != models.ErrKindTimeout {
		t.Fatalf("deadline exceeded: got %s", got)
	}
	if got := Classify(context.Canceled); got != models.ErrKindTimeout {
		t.Fatalf("canceled: got %s", got)
	}
	wrapped := fmt.Errorf("invoke: %w", context.DeadlineExceeded)
	if got := Classify(wrapped); got != models.ErrKindTimeout {
		t.Fatalf("wrapped deadline: got %s", got)
	}
}

func TestClassifyAnthropicStatus(t *testing.T) {
	cases := []struct {
		status int
		want   models.ErrorKind
	}{
		{400, models.ErrKindPermanentConfig},
		{401, models.ErrKindPermanentConfig},
		{403, models.ErrKindPermanentConfig},
		{404, models.ErrKindPermanentConfig},
		{422, models.ErrKindPermanentConfig},
		{429, models.ErrKindTransientProvider},
		{500, models.ErrKindTransientProvider},
		{529, models.ErrKindTransientProvider},
	}
	for _, tc := range cases {
		err := &anthropic.Error{StatusCode: tc.status}
		if got := Classify(err); got != tc.want {
			t.Fatalf("status %d: got %s, want %s", tc.status, got, tc.want)
		}
	}
}

func TestClassifyOpenAIStatus(t *testing.T) {
	if got := Classify(&openai.Error{StatusCode: 401}); got != models.ErrKindPermanentConfig {
		t.Fatalf("401: got %s", got)
	}
	if got := Classify(&openai.Error{StatusCode: 503}); got != models.ErrKindTransientProvider {
		t.Fatalf("503: got %s", got)
	}
}

func TestClassifyTransportError(t *testing.T) {
	if got := Classify(errors.New("dial tcp: connection refused")); got != models.ErrKindTransientProvider {
		t.Fatalf("transport error: got %s", got)
	}
}

func TestKindOf(t *testing.T) {
	ep := models.Endpoint{Service: models.ServiceAnthropic, Model: "claude-sonnet-4-20250514"}

	ce := NewCallError(ep, &anthropic.Error{StatusCode: 401})
	if ce.Kind != models.ErrKindPermanentConfig {
		t.Fatalf("call error kind: got %s", ce.Kind)
	}
	if got := KindOf(ce); got != models.ErrKindPermanentConfig {
		t.Fatalf("kind of call error: got %s", got)
	}

	wrapped := fmt.Errorf("attempt: %w", ce)
	if got := KindOf(wrapped); got != models.ErrKindPermanentConfig {
		t.Fatalf("kind of wrapped call error: got %s", got)
	}

	if got := KindOf(errors.New("something else")); got != models.ErrKindInternal {
		t.Fatalf("kind of plain error: got %s", got)
	}
}

func TestCallErrorUnwrap(t *testing.T) {
	ep := models.Endpoint{Service: models.ServiceOpenAI, Model: "gpt-5"}
	ce := NewCallError(ep, context.DeadlineExceeded)
	if !errors.Is(ce, context.DeadlineExceeded) {
		t.Fatalf("call error must unwrap to its cause")
	}
	if ce.Kind != models.ErrKindTimeout {
		t.Fatalf("deadline must classify as timeout, got %s", ce.Kind)
	}
}
