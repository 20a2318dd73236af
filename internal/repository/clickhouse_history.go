package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"AnalystCouncil/internal/domain/models"
	"AnalystCouncil/internal/domain/repository"
)

// ClickHouseHistory implements HistoryStore on ClickHouse. Indexed
// columns carry the queryable facts; the full report travels as JSON
// in the payload column.
type ClickHouseHistory struct {
	db    *sql.DB
	table string
}

// NewClickHouseHistory creates a ClickHouse-backed history store.
func NewClickHouseHistory(db *sql.DB, table string) repository.HistoryStore {
	return &ClickHouseHistory{db: db, table: table}
}

// SchemaStatements returns the idempotent DDL for the history table.
func SchemaStatements(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id String,
			symbol String,
			requested_at DateTime,
			completed_at DateTime,
			decision String,
			successes UInt8,
			expert_count UInt8,
			payload String
		) ENGINE=MergeTree ORDER BY (symbol, completed_at)`, table),
	}
}

func (s *ClickHouseHistory) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseHistory) Append(ctx context.Context, r *models.CouncilReport) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	q := fmt.Sprintf("INSERT INTO %s (id, symbol, requested_at, completed_at, decision, successes, expert_count, payload) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err = s.db.ExecContext(ctx, q,
		r.ID,
		r.Request.Symbol,
		r.Request.RequestedAt,
		r.CompletedAt,
		string(r.Decision),
		uint8(r.Successes),
		uint8(len(r.Results)),
		string(payload),
	)
	return err
}

func (s *ClickHouseHistory) List(ctx context.Context, symbol string, limit int) ([]*models.CouncilReport, error) {
	q := fmt.Sprintf("SELECT payload FROM %s", s.table)
	var args []interface{}
	if symbol != "" {
		q += " WHERE symbol = ?"
		args = append(args, symbol)
	}
	q += " ORDER BY completed_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*models.CouncilReport
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var r models.CouncilReport
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		reports = append(reports, &r)
	}
	return reports, rows.Err()
}

func (s *ClickHouseHistory) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseHistory) Close() error {
	return nil // Managed by pkg
}
