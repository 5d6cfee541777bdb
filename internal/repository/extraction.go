package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/SelahattinNazli/OCR-Service/constants"
)

// Extraction is one row of extraction history.
type Extraction struct {
	ID           uuid.UUID
	Status       constants.ExtractionStatus
	TextLen      int
	FieldCount   int
	RawReply     string
	RecordJSON   string
	FallbackUsed bool
	SchemaValid  bool
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// ExtractionRepository records the lifecycle of parse-fields calls. The
// pipeline works without one; history is an operational aid, not a cache.
type ExtractionRepository interface {
	Start(ctx context.Context, textLen, fieldCount int) (uuid.UUID, error)
	FinishSuccess(ctx context.Context, id uuid.UUID, rawReply, recordJSON []byte, fallbackUsed, schemaValid bool) error
	FinishFailure(ctx context.Context, id uuid.UUID, message string) error
	List(ctx context.Context, limit int) ([]Extraction, error)
}

type extractionRepo struct {
	db  *sql.DB
	log *slog.Logger
}

func NewExtractionRepository(db *sql.DB, log *slog.Logger) ExtractionRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractionRepo{db: db, log: log}
}

// EnsureSchema creates the extractions table when missing. Types are kept to
// TEXT/INTEGER so the statement runs unchanged on Postgres and sqlite.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS extractions (
			id            TEXT PRIMARY KEY,
			status        TEXT NOT NULL,
			text_len      INTEGER NOT NULL,
			field_count   INTEGER NOT NULL,
			raw_reply     TEXT NOT NULL DEFAULT '',
			record_json   TEXT NOT NULL DEFAULT '',
			fallback_used INTEGER NOT NULL DEFAULT 0,
			schema_valid  INTEGER NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT '',
			started_at    TEXT NOT NULL,
			finished_at   TEXT NOT NULL DEFAULT ''
		)`)
	return err
}

func (r *extractionRepo) Start(ctx context.Context, textLen, fieldCount int) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO extractions (id, status, text_len, field_count, started_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		id.String(), string(constants.ExtractionRunning), textLen, fieldCount,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		r.log.Error("extraction start failed", "err", err)
		return uuid.Nil, err
	}
	r.log.Info("extraction started", "extraction_id", id, "text_len", textLen, "field_count", fieldCount)
	return id, nil
}

func (r *extractionRepo) FinishSuccess(ctx context.Context, id uuid.UUID, rawReply, recordJSON []byte, fallbackUsed, schemaValid bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE extractions
		 SET status = $1, raw_reply = $2, record_json = $3, fallback_used = $4,
		     schema_valid = $5, finished_at = $6
		 WHERE id = $7`,
		string(constants.ExtractionOK), string(rawReply), string(recordJSON),
		boolToInt(fallbackUsed), boolToInt(schemaValid),
		time.Now().UTC().Format(time.RFC3339Nano), id.String(),
	)
	if err != nil {
		r.log.Error("extraction finish(OK) failed", "extraction_id", id, "err", err)
		return err
	}
	r.log.Info("extraction finished (OK)", "extraction_id", id, "fallback_used", fallbackUsed, "schema_valid", schemaValid)
	return nil
}

func (r *extractionRepo) FinishFailure(ctx context.Context, id uuid.UUID, message string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE extractions
		 SET status = $1, error_message = $2, finished_at = $3
		 WHERE id = $4`,
		string(constants.ExtractionFailed), message,
		time.Now().UTC().Format(time.RFC3339Nano), id.String(),
	)
	if err != nil {
		r.log.Error("extraction finish(FAILED) failed", "extraction_id", id, "err", err)
		return err
	}
	r.log.Warn("extraction finished (FAILED)", "extraction_id", id, "error", message)
	return nil
}

func (r *extractionRepo) List(ctx context.Context, limit int) ([]Extraction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, status, text_len, field_count, raw_reply, record_json,
		        fallback_used, schema_valid, error_message, started_at, finished_at
		 FROM extractions
		 ORDER BY started_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		r.log.Error("extraction list failed", "err", err)
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.log.Warn("extraction rows close error", "err", err)
		}
	}()

	var out []Extraction
	for rows.Next() {
		var e Extraction
		var id, status, startedAt, finishedAt string
		var fallbackInt, validInt int
		if err := rows.Scan(&id, &status, &e.TextLen, &e.FieldCount, &e.RawReply,
			&e.RecordJSON, &fallbackInt, &validInt, &e.ErrorMessage,
			&startedAt, &finishedAt); err != nil {
			return nil, err
		}
		e.ID, _ = uuid.Parse(id)
		e.Status = constants.ExtractionStatus(status)
		e.FallbackUsed = fallbackInt != 0
		e.SchemaValid = validInt != 0
		e.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		if finishedAt != "" {
			e.FinishedAt, _ = time.Parse(time.RFC3339Nano, finishedAt)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
