package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/SelahattinNazli/OCR-Service/internal/common"
	"github.com/SelahattinNazli/OCR-Service/internal/llm"
)

type parseFieldsRequest struct {
	RawText string           `json:"raw_text"`
	Fields  llm.FieldSpecSet `json:"fields"`
}

// handleParseFields runs the full extraction pipeline for one document.
// Response is the extracted record, keys in declared order. A generation-API
// failure maps to 502; malformed input to 400.
func (s *Server) handleParseFields(w http.ResponseWriter, r *http.Request) {
	var req parseFieldsRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.RawText) == "" {
		writeError(w, http.StatusBadRequest, "raw_text is required")
		return
	}
	if err := req.Fields.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.pipeline.Run(r.Context(), req.RawText, req.Fields)
	if err != nil {
		var apiErr *common.GenerationAPIError
		if errors.As(err, &apiErr) {
			s.logger.Error("server.parse_fields.upstream_failed", "error", err)
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		s.logger.Error("server.parse_fields.failed", "error", err)
		writeError(w, http.StatusInternalServerError, "extraction failed")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}
