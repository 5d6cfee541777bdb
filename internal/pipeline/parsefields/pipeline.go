package parsefields

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/SelahattinNazli/OCR-Service/internal/llm"
	"github.com/SelahattinNazli/OCR-Service/internal/repository"
)

// Config holds behavior flags for the parse pipeline.
type Config struct {
	// FallbackKeyword selects the single field eligible for the digit-run
	// fallback: the first declared field whose display name contains it.
	FallbackKeyword string
}

// Pipeline runs the full extraction: prompt -> generation call -> staged
// recovery -> coercion -> all-null fallback. Each Run is independent and
// stateless; the only blocking point is the generation request.
type Pipeline struct {
	Logger    *slog.Logger
	Cfg       Config
	Generator llm.Generator
	History   repository.ExtractionRepository // optional; nil disables persistence
}

func NewPipeline(logger *slog.Logger, cfg Config, gen llm.Generator, history repository.ExtractionRepository) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{Logger: logger, Cfg: cfg, Generator: gen, History: history}
}

// Run extracts the declared fields from rawText. The returned record always
// has exactly one entry per declared key. The only error that crosses this
// boundary is a generation-API failure; every parsing or coercion problem
// degrades to null fields instead.
func (p *Pipeline) Run(ctx context.Context, rawText string, fields llm.FieldSpecSet) (llm.Record, error) {
	start := time.Now()

	if err := fields.Validate(); err != nil {
		return llm.Record{}, fmt.Errorf("invalid field set: %w", err)
	}

	var extractionID uuid.UUID
	if p.History != nil {
		id, err := p.History.Start(ctx, len(rawText), len(fields))
		if err != nil {
			// History is best-effort; the extraction itself proceeds.
			p.Logger.Warn("parsefields.history_start_failed", "error", err)
		} else {
			extractionID = id
		}
	}

	p.Logger.Info("parsefields.start",
		"text_len", len(rawText),
		"field_count", len(fields),
	)

	prompt := llm.BuildPrompt(rawText, fields)
	reply, err := p.Generator.Generate(ctx, prompt)
	if err != nil {
		p.finishFailure(ctx, extractionID, err)
		p.Logger.Error("parsefields.generate_failed",
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Record{}, err
	}

	mapping, candidate := llm.RecoverMapping(reply)

	schemaValid := false
	if candidate != nil {
		schema := llm.BuildFieldsJSONSchema(fields)
		if vErr := llm.ValidateJSONAgainstSchema(schema, candidate); vErr != nil {
			p.Logger.Warn("parsefields.schema_invalid", "error", vErr)
		} else {
			schemaValid = true
		}
	} else {
		p.Logger.Warn("parsefields.unparsable_reply", "reply_bytes", len(reply))
	}

	rec := llm.CoerceFields(mapping, fields)

	fallbackUsed := false
	if rec.AllNull() {
		fallbackUsed = llm.ApplyFallback(rec, rawText, fields, p.Cfg.FallbackKeyword)
		if fallbackUsed {
			p.Logger.Info("parsefields.fallback_applied", "keyword", p.Cfg.FallbackKeyword)
		}
	}

	p.finishSuccess(ctx, extractionID, reply, rec, fallbackUsed, schemaValid)

	p.Logger.Info("parsefields.ok",
		"field_count", len(fields),
		"schema_valid", schemaValid,
		"fallback_used", fallbackUsed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}

func (p *Pipeline) finishFailure(ctx context.Context, id uuid.UUID, cause error) {
	if p.History == nil || id == uuid.Nil {
		return
	}
	if err := p.History.FinishFailure(ctx, id, cause.Error()); err != nil {
		p.Logger.Warn("parsefields.history_finish_failed", "extraction_id", id, "error", err)
	}
}

func (p *Pipeline) finishSuccess(ctx context.Context, id uuid.UUID, reply string, rec llm.Record, fallbackUsed, schemaValid bool) {
	if p.History == nil || id == uuid.Nil {
		return
	}
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		p.Logger.Warn("parsefields.history_encode_failed", "extraction_id", id, "error", err)
		recordJSON = nil
	}
	if err := p.History.FinishSuccess(ctx, id, []byte(reply), recordJSON, fallbackUsed, schemaValid); err != nil {
		p.Logger.Warn("parsefields.history_finish_failed", "extraction_id", id, "error", err)
	}
}
