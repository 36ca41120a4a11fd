package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/workorder-sorter/internal/batch"
	"github.com/joseph-ayodele/workorder-sorter/internal/common"
	"github.com/joseph-ayodele/workorder-sorter/internal/cost"
	"github.com/joseph-ayodele/workorder-sorter/internal/entity"
	"github.com/joseph-ayodele/workorder-sorter/internal/export"
	"github.com/joseph-ayodele/workorder-sorter/internal/ingest"
	"github.com/joseph-ayodele/workorder-sorter/internal/llm"
	"github.com/joseph-ayodele/workorder-sorter/internal/llm/openai"
	"github.com/joseph-ayodele/workorder-sorter/internal/placement"
	"github.com/joseph-ayodele/workorder-sorter/internal/render"
	repo "github.com/joseph-ayodele/workorder-sorter/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg := common.LoadConfig()

	var (
		dir       = flag.String("dir", cfg.Paths.SourceFolder, "folder containing work-order PDFs")
		holding   = flag.String("holding", cfg.Paths.HoldingFolder, "folder for unmatched PDFs")
		ref       = flag.String("ref", cfg.Paths.ReferenceFile, "reference list of known work orders (.csv/.txt/.xlsx)")
		model     = flag.String("model", cfg.LLM.Model, "vision model")
		workers   = flag.Int("workers", cfg.Batch.Workers, "concurrent files")
		report    = flag.String("report", "", "write an XLSX report of the run to this path")
		watch     = flag.Bool("watch", false, "keep running and process PDFs as they arrive")
		ledger    = flag.String("ledger", cfg.Ledger.DSN, "run ledger DSN (sqlite path or postgres:// URL)")
		heartbeat = flag.Duration("heartbeat", 0, "emit a progress line at this interval (0 disables)")
	)
	flag.Parse()

	cfg.Paths.SourceFolder = *dir
	cfg.Paths.HoldingFolder = *holding
	cfg.Paths.ReferenceFile = *ref
	cfg.LLM.Model = *model
	cfg.Batch.Workers = *workers
	cfg.Ledger.DSN = *ledger

	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		return 2
	}

	logger := common.NewLogger(os.Stdout, cfg.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional run ledger
	var recorder batch.Recorder
	var runs repo.RunRepository
	if cfg.Ledger.DSN != "" {
		db, err := repo.Open(ctx, repo.Config{
			DSN:             cfg.Ledger.DSN,
			MaxConns:        4,
			MaxConnLifetime: 30 * time.Minute,
			DialTimeout:     3 * time.Second,
		}, logger)
		if err != nil {
			logger.Error("failed to open run ledger", "error", err)
			return 1
		}
		defer db.Close(logger)
		runs = repo.NewRunRepository(db, logger)
		recorder = runs
	}

	// Renderer: pdftoppm first, mutool as fallback
	renderCfg := render.Config{DPI: cfg.Render.DPI, Pdftoppm: cfg.Render.Pdftoppm}
	if cfg.Render.Fallback {
		renderCfg.Mutool = cfg.Render.Mutool
	}
	renderer := render.NewRenderer(renderCfg, logger)

	client := openai.NewClient(openai.Config{
		BaseURL:        cfg.LLM.BaseURL,
		Timeout:        cfg.LLM.Timeout,
		MaxTokens:      cfg.LLM.MaxTokens,
		RequestsPerSec: cfg.LLM.RequestsPerSec,
	}, logger)
	extractor := llm.NewRetryingExtractor(client, logger,
		llm.WithMaxAttempts(cfg.LLM.MaxAttempts),
		llm.WithInitialBackoff(cfg.LLM.InitialBackoff),
	)

	accountant := cost.NewAccountant(logger)
	processor := batch.NewProcessor(logger, renderer, extractor, placement.NewPlacer(logger), accountant)

	opts := []batch.Option{
		batch.WithTaskTimeout(cfg.Batch.TaskTimeout),
		batch.WithHeartbeat(*heartbeat),
		batch.WithProgress(printProgress),
	}
	if recorder != nil {
		opts = append(opts, batch.WithRecorder(recorder))
	}
	orch := batch.NewOrchestrator(processor, logger, opts...)
	reports := export.NewService(runs, logger)

	// SIGINT/SIGTERM: stop dispatching, let in-flight files finish.
	go func() {
		<-ctx.Done()
		orch.Stop()
	}()

	pc := cfg.ProcessingConfig()
	exitCode := 0
	runOnce := func() {
		br, err := orch.Run(ctx, pc)
		if err != nil && br.ID == "" {
			printError("Error: %v\n", err)
			exitCode = 2
			return
		}
		printSummary(br)
		if err != nil {
			exitCode = 1
		}
		if *report != "" {
			if err := writeReport(reports, br, *report); err != nil {
				logger.Error("failed to write report", "path", *report, "error", err)
				exitCode = 1
			}
		}
	}

	runOnce()
	if !*watch || ctx.Err() != nil {
		return exitCode
	}

	bursts, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Root:     cfg.Paths.SourceFolder,
		Debounce: 2 * time.Second,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to start watcher", "error", err)
		return 1
	}
	logger.Info("watching for new work orders", "dir", cfg.Paths.SourceFolder)
	for {
		select {
		case names, ok := <-bursts:
			if !ok {
				return exitCode
			}
			logger.Info("new files detected", "count", len(names))
			runOnce()
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			logger.Warn("watcher reported an error", "error", err)
		case <-ctx.Done():
			logger.Info("shutting down")
			return exitCode
		}
	}
}

func printProgress(p batch.Progress) {
	switch p.Phase {
	case batch.PhaseFileDone:
		o := p.Outcome
		line := fmt.Sprintf("[%d/%d] %s %s", p.Processed, p.Total, o.Filename, o.Status)
		if o.NewPath != "" {
			line += " -> " + o.NewPath
		}
		if o.Error != "" {
			line += " (" + o.Error + ")"
		}
		fmt.Println(line)
	case batch.PhaseHeartbeat:
		fmt.Printf("... %d/%d done, %d ok, %d failed (%.1f files/min)\n",
			p.Processed, p.Total, p.SuccessCount, p.FailCount, p.Throughput)
	case batch.PhaseStarted:
		fmt.Printf("Processing %d file(s)\n", p.Total)
	}
}

func printSummary(run entity.BatchRun) {
	fmt.Printf("Batch %s: %s\n", run.ID, run.State)
	fmt.Printf("- Files: %d (processed %d, skipped %d)\n", run.Total, run.Processed, run.Skipped)
	fmt.Printf("- Succeeded: %d, Failed: %d, Extraction failures: %d\n", run.Succeeded, run.Failed, run.Degraded)
	fmt.Printf("- Tokens: %d in / %d out over %d call(s)\n", run.InputTokens, run.OutputTokens, run.APICalls)
	fmt.Printf("- Cost: $%.6f (%.4f THB)\n", run.CostUSD, run.CostTHB)
	fmt.Printf("- Elapsed: %s (%.1f files/min)\n", run.Elapsed().Round(time.Millisecond), run.Throughput())
	if run.Error != "" {
		fmt.Printf("- Error: %s\n", run.Error)
	}
}

func writeReport(s *export.Service, run entity.BatchRun, path string) error {
	if run.ID == "" {
		return errors.New("no run to report")
	}
	b, err := s.BatchReportXLSX(run)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
