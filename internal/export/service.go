package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SelahattinNazli/OCR-Service/internal/repository"
)

// Service is a tiny façade over the history repository that produces XLSX
// bytes for exports.
type Service struct {
	history repository.ExtractionRepository
	logger  *slog.Logger
}

func NewService(history repository.ExtractionRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{history: history, logger: logger}
}

// ExportExtractionsXLSX returns an XLSX workbook (as bytes) with the most
// recent extraction rows, newest first.
func (s *Service) ExportExtractionsXLSX(ctx context.Context, limit int) ([]byte, error) {
	start := time.Now()

	rows, err := s.history.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query extractions: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Extractions"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Extraction ID",
		"Status",
		"Text Length",
		"Field Count",
		"Fallback Used",
		"Schema Valid",
		"Error",
		"Started At",
		"Finished At",
		"Record",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, e := range rows {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, e.ID.String())
		write(2, string(e.Status))
		write(3, e.TextLen)
		write(4, e.FieldCount)
		write(5, e.FallbackUsed)
		write(6, e.SchemaValid)
		write(7, e.ErrorMessage)
		if !e.StartedAt.IsZero() {
			write(8, e.StartedAt.Format(time.RFC3339))
		}
		if !e.FinishedAt.IsZero() {
			write(9, e.FinishedAt.Format(time.RFC3339))
		}
		write(10, e.RecordJSON)
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("export.extractions.ok",
		"rows", len(rows),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
