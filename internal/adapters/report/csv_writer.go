package report

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/mikey/gmail-spam-detector/internal/core"
	"go.uber.org/zap"
)

// Header is the first row of every report
var Header = []string{"mail_id", "Pct_spam"}

// CSVWriter is an implementation of the ReportWriter interface producing a
// CSV file with CRLF line endings
type CSVWriter struct {
	logger *zap.Logger
}

// NewCSVWriter creates a new CSV report writer
func NewCSVWriter(logger *zap.Logger) *CSVWriter {
	return &CSVWriter{logger: logger}
}

// Write replaces the file at path with one row per result, in order
func (w *CSVWriter) Write(path string, results []core.SpamResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}

	cw := csv.NewWriter(f)
	cw.UseCRLF = true

	if err := cw.Write(Header); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report header: %w", err)
	}
	for _, r := range results {
		if err := cw.Write([]string{r.MailID, FormatPercent(r.PctSpam)}); err != nil {
			f.Close()
			return fmt.Errorf("failed to write report row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}

	w.logger.Debug("Report written", zap.String("path", path), zap.Int("rows", len(results)))
	return nil
}

// FormatPercent renders a percentage the way Python prints floats: integral
// values keep one decimal and others use the shortest exact form
func FormatPercent(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e16 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
