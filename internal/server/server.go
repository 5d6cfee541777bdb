package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/SelahattinNazli/OCR-Service/internal/export"
	"github.com/SelahattinNazli/OCR-Service/internal/pipeline/parsefields"
	"github.com/SelahattinNazli/OCR-Service/internal/repository"
)

// Server wires the parse pipeline and optional history endpoints onto an
// http.ServeMux.
type Server struct {
	logger   *slog.Logger
	pipeline *parsefields.Pipeline
	history  repository.ExtractionRepository // nil when no database is configured
	export   *export.Service
}

func New(logger *slog.Logger, pipeline *parsefields.Pipeline, history repository.ExtractionRepository, exporter *export.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{logger: logger, pipeline: pipeline, history: history, export: exporter}
}

// Routes builds the HTTP surface. History endpoints respond 404 when no
// database is configured.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/parse-fields", s.handleParseFields)
	if s.history != nil {
		mux.HandleFunc("GET /api/extractions", s.handleListExtractions)
		mux.HandleFunc("GET /api/extractions/export", s.handleExportExtractions)
	}
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
