package repository

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"AnalystCouncil/internal/domain/models"
	"AnalystCouncil/internal/domain/repository"
)

// FileHistory implements HistoryStore as an append-only markdown log,
// the format operators actually read. A JSONL sidecar next to the log
// keeps List cheap without parsing markdown back.
type FileHistory struct {
	path string
	mu   sync.Mutex
}

// NewFileHistory creates a file-backed history store.
func NewFileHistory(path string) repository.HistoryStore {
	return &FileHistory{path: path}
}

func (s *FileHistory) sidecarPath() string {
	return s.path + ".jsonl"
}

func (s *FileHistory) Init(ctx context.Context) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	return f.Close()
}

func (s *FileHistory) Append(ctx context.Context, r *models.CouncilReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := RenderMarkdown(r)
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}

	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	sf, err := os.OpenFile(s.sidecarPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history sidecar: %w", err)
	}
	defer sf.Close()
	if _, err := sf.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append history sidecar: %w", err)
	}
	return nil
}

func (s *FileHistory) List(ctx context.Context, symbol string, limit int) ([]*models.CouncilReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.sidecarPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open history sidecar: %w", err)
	}
	defer f.Close()

	var reports []*models.CouncilReport
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r models.CouncilReport
		if err := json.Unmarshal(line, &r); err != nil {
			continue // skip corrupt lines
		}
		if symbol != "" && r.Request.Symbol != symbol {
			continue
		}
		reports = append(reports, &r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan history sidecar: %w", err)
	}

	// newest first
	for i, j := 0, len(reports)-1; i < j; i, j = i+1, j-1 {
		reports[i], reports[j] = reports[j], reports[i]
	}
	if limit > 0 && len(reports) > limit {
		reports = reports[:limit]
	}
	return reports, nil
}

func (s *FileHistory) Health(ctx context.Context) error {
	_, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *FileHistory) Close() error { return nil }

// RenderMarkdown formats one report as a history log entry.
func RenderMarkdown(r *models.CouncilReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## %s - %s\n\n",
		r.Request.Symbol, r.Request.RequestedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "- Report: %s\n", r.ID)
	if q := r.Request.Quote; q != nil {
		name := q.Name
		if name == "" {
			name = q.Ticker
		}
		fmt.Fprintf(&b, "- Company: %s\n", name)
		fmt.Fprintf(&b, "- Price: %.2f %s\n", q.Price, q.Currency)
	}
	fmt.Fprintf(&b, "- Status: %s\n\n", r.StatusLine())

	for _, res := range r.Results {
		if res.OK {
			fmt.Fprintf(&b, "### %s (%s) via %s\n\n", res.Expert.Name, res.Expert.Role, res.Endpoint)
			b.WriteString(res.Text)
			b.WriteString("\n\n")
		} else {
			fmt.Fprintf(&b, "### %s (%s) [failed: %s]\n\n", res.Expert.Name, res.Expert.Role, res.ErrKind)
			if res.ErrDetail != "" {
				fmt.Fprintf(&b, "> %s\n\n", res.ErrDetail)
			}
		}
	}

	if r.Synthesis != nil {
		if r.Synthesis.ErrKind != "" {
			fmt.Fprintf(&b, "### Chairman Synthesis [failed: %s]\n\n", r.Synthesis.ErrKind)
			if r.Synthesis.ErrDetail != "" {
				fmt.Fprintf(&b, "> %s\n\n", r.Synthesis.ErrDetail)
			}
		} else {
			fmt.Fprintf(&b, "### Chairman Synthesis via %s\n\n", r.Synthesis.Endpoint)
			b.WriteString(r.Synthesis.Text)
			b.WriteString("\n\n")
		}
	}

	b.WriteString("---\n\n")
	return b.String()
}
