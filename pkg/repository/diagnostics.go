package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/dskvich/pmc-assistant/pkg/domain"
)

type DiagnosticSink interface {
	Record(ctx context.Context, rec domain.DiagnosticRecord) error
}

// diagnosticFile appends one JSON document per line.
type diagnosticFile struct {
	mu   sync.Mutex
	path string
}

func NewDiagnosticFile(path string) *diagnosticFile {
	return &diagnosticFile{path: path}
}

func (d *diagnosticFile) Record(_ context.Context, rec domain.DiagnosticRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding diagnostic record: %w", err)
	}
	line = append(line, '\n')

	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := os.OpenFile(d.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening diagnostic log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing diagnostic log: %w", err)
	}
	return f.Close()
}

type diagnosticRepository struct {
	db *sql.DB
}

func NewDiagnosticRepository(db *sql.DB) *diagnosticRepository {
	return &diagnosticRepository{db: db}
}

func (d *diagnosticRepository) Record(ctx context.Context, rec domain.DiagnosticRecord) error {
	const query = `
		INSERT INTO chat_diagnostics (created_at, session_id, language, resolution, query, answer, record)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding diagnostic record: %w", err)
	}

	_, err = d.db.ExecContext(ctx, query,
		rec.Timestamp, rec.SessionID, string(rec.Language), string(rec.Resolution), rec.Query, rec.Answer, string(payload))
	if err != nil {
		return fmt.Errorf("saving diagnostic record: %w", err)
	}
	return nil
}

// DiagnosticFanout writes every record to all sinks and reports every failure.
type DiagnosticFanout []DiagnosticSink

func (f DiagnosticFanout) Record(ctx context.Context, rec domain.DiagnosticRecord) error {
	var result error
	for _, sink := range f {
		if err := sink.Record(ctx, rec); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}
