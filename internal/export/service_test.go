package export

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/workorder-sorter/constants"
	"github.com/joseph-ayodele/workorder-sorter/internal/entity"
	"github.com/joseph-ayodele/workorder-sorter/internal/repository"
)

func sampleRun() entity.BatchRun {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	return entity.BatchRun{
		ID:           "b-1",
		StartedAt:    start,
		FinishedAt:   start.Add(2 * time.Minute),
		State:        constants.BatchCompleted,
		SourceFolder: "workOrderPDF",
		Model:        "gpt-4.1-nano",
		Total:        2,
		Processed:    2,
		Succeeded:    2,
		APICalls:     2,
		InputTokens:  1600,
		OutputTokens: 60,
		CostUSD:      0.000184,
		CostTHB:      0.006072,
		Outcomes: []entity.FileOutcome{
			{Filename: "a.pdf", Status: constants.FileRenamed, Success: true, Matched: true,
				WorkOrder: "20501234", Equipment: "PUMP01", NewPath: "workOrderPDF/CS-20501234-PUMP01.pdf"},
			{Filename: "b.pdf", Status: constants.FileHeld, Success: true, WorkOrder: "99999999",
				NewPath: "not_match/b.pdf"},
		},
	}
}

func TestBatchReportXLSX(t *testing.T) {
	s := NewService(nil, nil)
	b, err := s.BatchReportXLSX(sampleRun())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{outcomesSheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(outcomesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "File", rows[0][0])
	assert.Equal(t, "a.pdf", rows[1][0])
	assert.Equal(t, "RENAMED", rows[1][1])
	assert.Equal(t, "20501234", rows[1][3])
	assert.Equal(t, "HELD", rows[2][1])

	state, err := f.GetCellValue(summarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", state)
	tput, err := f.GetCellValue(summarySheet, "B18")
	require.NoError(t, err)
	assert.Equal(t, "1", tput)
}

func TestRunReportXLSXNeedsLedger(t *testing.T) {
	_, err := NewService(nil, nil).RunReportXLSX(context.Background(), "b-1")
	assert.Error(t, err)
}

func TestRunReportXLSXFromLedger(t *testing.T) {
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{DSN: filepath.Join(t.TempDir(), "ledger.db")}, nil)
	require.NoError(t, err)
	defer db.Close(nil)

	runs := repository.NewRunRepository(db, nil)
	run := sampleRun()
	require.NoError(t, runs.StartRun(ctx, run))
	for _, o := range run.Outcomes {
		require.NoError(t, runs.RecordOutcome(ctx, run.ID, o))
	}
	require.NoError(t, runs.FinishRun(ctx, run))

	b, err := NewService(runs, nil).RunReportXLSX(ctx, run.ID)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(outcomesSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}
