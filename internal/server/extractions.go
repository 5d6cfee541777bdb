package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

type extractionRow struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	TextLen      int             `json:"text_len"`
	FieldCount   int             `json:"field_count"`
	FallbackUsed bool            `json:"fallback_used"`
	SchemaValid  bool            `json:"schema_valid"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Record       json.RawMessage `json:"record,omitempty"`
	StartedAt    string          `json:"started_at"`
	FinishedAt   string          `json:"finished_at,omitempty"`
}

func (s *Server) handleListExtractions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	rows, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("server.extractions.list_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "listing extractions failed")
		return
	}

	out := make([]extractionRow, 0, len(rows))
	for _, e := range rows {
		row := extractionRow{
			ID:           e.ID.String(),
			Status:       string(e.Status),
			TextLen:      e.TextLen,
			FieldCount:   e.FieldCount,
			FallbackUsed: e.FallbackUsed,
			SchemaValid:  e.SchemaValid,
			ErrorMessage: e.ErrorMessage,
			StartedAt:    e.StartedAt.Format(time.RFC3339),
		}
		if json.Valid([]byte(e.RecordJSON)) {
			row.Record = json.RawMessage(e.RecordJSON)
		}
		if !e.FinishedAt.IsZero() {
			row.FinishedAt = e.FinishedAt.Format(time.RFC3339)
		}
		out = append(out, row)
	}
	writeJSON(w, http.StatusOK, map[string]any{"extractions": out})
}

func (s *Server) handleExportExtractions(w http.ResponseWriter, r *http.Request) {
	limit := 500
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	b, err := s.export.ExportExtractionsXLSX(r.Context(), limit)
	if err != nil {
		s.logger.Error("server.extractions.export_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	name := fmt.Sprintf("extractions-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// decodeJSONBody decodes a request body, rejecting trailing garbage.
func decodeJSONBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid request body: unexpected trailing data")
	}
	return nil
}
