package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"AnalystCouncil/internal/domain/models"
)

func sampleReport(id, symbol string, completed time.Time) *models.CouncilReport {
	return &models.CouncilReport{
		ID: id,
		Request: models.AnalysisRequest{
			Symbol:      symbol,
			RequestedAt: completed.Add(-time.Minute),
			Quote: &models.Quote{
				Name:     "Apple Inc",
				Ticker:   symbol,
				Price:    231.50,
				Currency: "USD",
			},
		},
		Results: []models.AnalysisResult{
			{
				Expert:   models.ExpertIdentity{Name: "warren_buffett", Role: "Value Investing Expert"},
				OK:       true,
				Text:     "A wonderful company at a fair price.",
				Endpoint: models.Endpoint{Service: models.ServiceAnthropic, Model: "claude-sonnet-4-20250514"},
			},
			{
				Expert:    models.ExpertIdentity{Name: "peter_lynch", Role: "Growth Investing Expert"},
				OK:        false,
				ErrKind:   models.ErrKindTimeout,
				ErrDetail: "context deadline exceeded",
			},
		},
		Decision:    models.DecisionIndividualOnly,
		Successes:   1,
		StartedAt:   completed.Add(-time.Minute),
		CompletedAt: completed,
	}
}

func TestRenderMarkdown(t *testing.T) {
	r := sampleReport("r-1", "AAPL", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	r.Synthesis = &models.SynthesisResult{
		Text:     "On balance, hold.",
		Endpoint: models.Endpoint{Service: models.ServiceAnthropic, Model: "claude-sonnet-4-20250514"},
	}

	out := RenderMarkdown(r)

	for _, want := range []string{
		"## AAPL - 2026-03-01",
		"- Report: r-1",
		"- Company: Apple Inc",
		"- Price: 231.50 USD",
		"### warren_buffett (Value Investing Expert) via anthropic/claude-sonnet-4-20250514",
		"A wonderful company at a fair price.",
		"### peter_lynch (Growth Investing Expert) [failed: timeout]",
		"> context deadline exceeded",
		"### Chairman Synthesis via anthropic/claude-sonnet-4-20250514",
		"On balance, hold.",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("markdown missing %q:\n%s", want, out)
		}
	}
	if !strings.HasSuffix(out, "---\n\n") {
		t.Fatalf("entry must end with a separator")
	}
}

func TestRenderMarkdownFailedSynthesis(t *testing.T) {
	r := sampleReport("r-2", "MSFT", time.Now().UTC())
	r.Synthesis = &models.SynthesisResult{
		ErrKind:   models.ErrKindTransientProvider,
		ErrDetail: "overloaded",
	}

	out := RenderMarkdown(r)
	if !strings.Contains(out, "### Chairman Synthesis [failed: transient_provider]") {
		t.Fatalf("missing failed synthesis heading:\n%s", out)
	}
	if !strings.Contains(out, "> overloaded") {
		t.Fatalf("missing synthesis failure detail:\n%s", out)
	}
}

func TestFileHistoryAppendAndList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.md")
	store := NewFileHistory(path)
	ctx := context.Background()

	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		symbol := "AAPL"
		if i == 1 {
			symbol = "MSFT"
		}
		r := sampleReport(fmt.Sprintf("r-%d", i), symbol, base.Add(time.Duration(i)*time.Hour))
		if err := store.Append(ctx, r); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	all, err := store.List(ctx, "", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(all))
	}
	if all[0].ID != "r-2" || all[2].ID != "r-0" {
		t.Fatalf("expected newest first, got %s .. %s", all[0].ID, all[2].ID)
	}

	aapl, err := store.List(ctx, "AAPL", 10)
	if err != nil {
		t.Fatalf("list symbol: %v", err)
	}
	if len(aapl) != 2 {
		t.Fatalf("expected 2 AAPL reports, got %d", len(aapl))
	}

	limited, err := store.List(ctx, "", 1)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "r-2" {
		t.Fatalf("limit must keep the newest report")
	}

	md, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	// anchor to line starts so expert subheadings do not count
	if got := strings.Count("\n"+string(md), "\n## "); got != 3 {
		t.Fatalf("expected 3 markdown entries, got %d", got)
	}
}

func TestFileHistoryListMissingFile(t *testing.T) {
	store := NewFileHistory(filepath.Join(t.TempDir(), "absent.md"))
	reports, err := store.List(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if reports != nil {
		t.Fatalf("expected no reports for missing sidecar")
	}
}

func TestFileHistorySkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.md")
	store := NewFileHistory(path)
	ctx := context.Background()

	r := sampleReport("r-ok", "AAPL", time.Now().UTC())
	if err := store.Append(ctx, r); err != nil {
		t.Fatalf("append: %v", err)
	}

	f, err := os.OpenFile(path+".jsonl", os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open sidecar: %v", err)
	}
	if _, err := f.WriteString("{not json\n"); err != nil {
		t.Fatalf("corrupt sidecar: %v", err)
	}
	f.Close()

	reports, err := store.List(ctx, "", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reports) != 1 || reports[0].ID != "r-ok" {
		t.Fatalf("corrupt line must be skipped, got %d reports", len(reports))
	}
}
