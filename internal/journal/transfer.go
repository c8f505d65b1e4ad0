package journal

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"trade-journal/internal/csvio"
	"trade-journal/internal/models"
	"trade-journal/internal/trace"
)

// DateFormatHint is shown when any import row failed on a date or time value.
const DateFormatHint = "Dates must be DD-MM-YYYY and times HH:MM or HH:MM:SS (24h)."

var (
	// ErrNothingToImport is returned when the file has no complete data rows.
	ErrNothingToImport = errors.New("no importable rows: every row needs symbol and entry_price")
	// ErrImportFailed wraps the first row error when no row could be imported.
	ErrImportFailed = errors.New("import failed")
)

// ImportReport summarizes a CSV import for the caller.
type ImportReport struct {
	Imported       int              `json:"imported"`
	Failed         int              `json:"failed"`
	Dropped        int              `json:"dropped"`
	Trades         []models.Trade   `json:"trades"`
	Errors         []csvio.RowError `json:"errors"`
	DateFormatHint string           `json:"date_format_hint,omitempty"`
}

// Partial reports whether some rows were imported and some failed.
func (r *ImportReport) Partial() bool {
	return r.Imported > 0 && r.Failed > 0
}

// ImportCSV reads a CSV stream and inserts its rows for userID. When every
// row fails, the first row error is returned as a hard failure alongside
// the report; partial failures are reported, not raised.
func (s *Service) ImportCSV(ctx context.Context, userID string, r io.Reader) (*ImportReport, error) {
	ctx, span := trace.StartSpan(ctx, "journal.ImportCSV")
	defer span.End()

	rows, err := csvio.ReadRows(r)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	res := s.importer.Import(ctx, userID, rows)
	report := &ImportReport{
		Imported: len(res.Results),
		Failed:   len(res.Errors),
		Dropped:  res.Dropped,
		Trades:   res.Results,
		Errors:   res.Errors,
	}
	for _, rowErr := range res.Errors {
		if rowErr.IsDateTimeFormat() {
			report.DateFormatHint = DateFormatHint
			break
		}
	}
	span.SetAttributes(
		attribute.Int("import.imported", report.Imported),
		attribute.Int("import.failed", report.Failed),
		attribute.Int("import.dropped", report.Dropped),
	)

	switch {
	case report.Imported == 0 && report.Failed > 0:
		err := fmt.Errorf("%w: %w", ErrImportFailed, res.Errors[0])
		span.RecordError(err)
		return report, err
	case report.Imported == 0:
		return report, ErrNothingToImport
	}

	if report.Partial() {
		s.logger.Warn("CSV import partially succeeded",
			append(trace.Fields(ctx),
				zap.String("user_id", userID),
				zap.Int("imported", report.Imported),
				zap.Int("failed", report.Failed),
			)...,
		)
	}
	return report, nil
}

// ExportCSV writes every trade of userID as CSV. csvio.ErrNoTrades is
// returned, before anything is written, when there is nothing to export.
func (s *Service) ExportCSV(ctx context.Context, userID string, w io.Writer) error {
	trades, err := s.store.ListTrades(ctx, userID)
	if err != nil {
		return err
	}
	return csvio.Export(w, trades)
}

// WriteTemplate writes the blank import template.
func (s *Service) WriteTemplate(w io.Writer) error {
	return csvio.Template(w)
}
