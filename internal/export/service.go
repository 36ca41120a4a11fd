package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/workorder-sorter/internal/entity"
	"github.com/joseph-ayodele/workorder-sorter/internal/repository"
)

const (
	outcomesSheet = "Outcomes"
	summarySheet  = "Summary"
)

// Service renders batch runs as XLSX workbooks.
type Service struct {
	runs   repository.RunRepository
	logger *slog.Logger
}

// NewService builds the report service. runs may be nil when no ledger is configured;
// only RunReportXLSX needs it.
func NewService(runs repository.RunRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{runs: runs, logger: logger}
}

// RunReportXLSX loads a recorded run from the ledger and renders it.
func (s *Service) RunReportXLSX(ctx context.Context, batchID string) ([]byte, error) {
	if s.runs == nil {
		return nil, errors.New("no run ledger configured")
	}
	run, err := s.runs.GetRun(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", batchID, err)
	}
	return s.BatchReportXLSX(run)
}

// BatchReportXLSX returns a workbook with one row per file and a summary sheet.
func (s *Service) BatchReportXLSX(run entity.BatchRun) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), outcomesSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(outcomesSheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"File",
		"Status",
		"Matched",
		"Work Order No.",
		"Equipment No.",
		"New Path",
		"Error",
		"Extraction Error",
		"Input Tokens",
		"Output Tokens",
		"Attempts",
		"Seconds",
		"Checksum",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(outcomesSheet, cell, h)
	}

	for i, o := range run.Outcomes {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(outcomesSheet, cell, v)
		}
		write(1, o.Filename)
		write(2, string(o.Status))
		write(3, o.Matched)
		write(4, o.WorkOrder)
		write(5, o.Equipment)
		write(6, o.NewPath)
		write(7, truncate(o.Error, 240))
		write(8, truncate(o.ExtractionError, 240))
		write(9, o.InputTokens)
		write(10, o.OutputTokens)
		write(11, o.Attempts)
		write(12, o.Duration.Round(time.Millisecond).Seconds())
		write(13, o.Checksum)
	}

	_ = f.SetColWidth(outcomesSheet, "A", "A", 28) // file
	_ = f.SetColWidth(outcomesSheet, "B", "C", 10)
	_ = f.SetColWidth(outcomesSheet, "D", "E", 16) // identifiers
	_ = f.SetColWidth(outcomesSheet, "F", "F", 60) // path
	_ = f.SetColWidth(outcomesSheet, "G", "H", 40) // errors

	summary := [][2]any{
		{"Batch ID", run.ID},
		{"State", string(run.State)},
		{"Source Folder", run.SourceFolder},
		{"Model", run.Model},
		{"Started", run.StartedAt.Format(time.RFC3339)},
		{"Elapsed (s)", run.Elapsed().Round(time.Millisecond).Seconds()},
		{"Files Total", run.Total},
		{"Processed", run.Processed},
		{"Succeeded", run.Succeeded},
		{"Failed", run.Failed},
		{"Skipped", run.Skipped},
		{"Extraction Failures", run.Degraded},
		{"API Calls", run.APICalls},
		{"Input Tokens", run.InputTokens},
		{"Output Tokens", run.OutputTokens},
		{"Cost (USD)", run.CostUSD},
		{"Cost (THB)", run.CostTHB},
		{"Files / Minute", run.Throughput()},
		{"Error", run.Error},
	}
	for i, kv := range summary {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", i+1), kv[0])
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+1), kv[1])
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 22)
	_ = f.SetColWidth(summarySheet, "B", "B", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"batch_id", run.ID,
		"rows", len(run.Outcomes),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
