package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joseph-ayodele/form-filler/internal/async"
	"github.com/joseph-ayodele/form-filler/internal/common"
	"github.com/joseph-ayodele/form-filler/internal/ingest"
	"github.com/joseph-ayodele/form-filler/internal/pipeline"
	"github.com/joseph-ayodele/form-filler/internal/report"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		docs          = flag.String("docs", "", "directory with the source documents")
		form          = flag.String("form", "", "form to fill (.xlsx or .json structure)")
		reference     = flag.String("reference", "", "filled sample form used for quality checks (optional)")
		out           = flag.String("out", "", "where to save the filled form (defaults to <output_dir>/<form>_filled.<ext>)")
		reportDir     = flag.String("report-dir", "", "directory for JSON run reports (defaults to paths.report_dir)")
		dsn           = flag.String("db", "", "report store DSN: postgres://..., sqlite:<path> or :memory:")
		maxIterations = flag.Int("max-iterations", -1, "maximum quality correction iterations")
		inbox         = flag.String("inbox", "", "run every *.job.yaml manifest under this directory instead of -docs/-form")
		export        = flag.String("export", "", "write a review workbook of this invocation's runs (.xlsx)")
		verbose       = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}
	if *dsn != "" {
		cfg.Storage.DSN = *dsn
	}
	if *maxIterations >= 0 {
		cfg.Quality.MaxIterations = *maxIterations
	}
	if *reportDir != "" {
		cfg.Paths.ReportDir = *reportDir
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}

	var jobs []async.Job
	if *inbox != "" {
		results, stats, err := ingest.ScanManifests(*inbox)
		if err != nil {
			printError("Error: %v\n", err)
			os.Exit(1)
		}
		for _, r := range results {
			if r.Err != "" {
				logger.Error("formfill.manifest.invalid", "path", r.Path, "error", r.Err)
				continue
			}
			if r.Job.ReportDir == "" {
				r.Job.ReportDir = cfg.Paths.ReportDir
			}
			jobs = append(jobs, async.NewJob(r.Job, r.Path))
		}
		logger.Info("formfill.inbox.scanned",
			"inbox", *inbox,
			"scanned", stats.Scanned,
			"matched", stats.Matched,
			"loaded", stats.Loaded,
			"failed", stats.Failed,
		)
	} else {
		if *docs == "" || *form == "" {
			printError("Error: -docs and -form are required (or use -inbox)\n")
			flag.Usage()
			os.Exit(2)
		}
		job := pipeline.Job{
			Documents: *docs,
			Form:      *form,
			Reference: *reference,
			Output:    *out,
			ReportDir: cfg.Paths.ReportDir,
		}
		if job.Output == "" {
			job.Output = defaultOutput(cfg.Paths.OutputDir, *form)
		}
		jobs = append(jobs, async.NewJob(job, ""))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wiring, err := pipeline.Wire(ctx, cfg, logger)
	if err != nil {
		logger.Error("formfill.wire.failed", "error", err)
		os.Exit(1)
	}
	defer wiring.Close()

	for _, j := range jobs {
		if j.Fill.Output != "" {
			if err := os.MkdirAll(filepath.Dir(j.Fill.Output), 0o755); err != nil {
				logger.Error("formfill.output_dir.failed", "path", j.Fill.Output, "error", err)
				os.Exit(1)
			}
		}
	}

	var (
		mu       sync.Mutex
		runs     []*report.Run
		failures int
	)
	queue := async.NewSessionQueue(wiring.Session, logger,
		async.WithWorkers(cfg.Daemon.Workers),
		async.WithQueueSize(len(jobs)+1),
		async.WithJobTimeout(cfg.Daemon.JobTimeout),
		async.WithResultHandler(func(job async.Job, res pipeline.Outcome, err error) {
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				printError("FAILED %s: %v\n", job.Fill.Form, err)
				return
			}
			runs = append(runs, res.Run)
			printSummary(job, res)
		}),
	)
	for _, j := range jobs {
		if err := queue.Enqueue(ctx, j); err != nil {
			logger.Error("formfill.enqueue.failed", "form", j.Fill.Form, "error", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Daemon.JobTimeout+time.Minute)
	defer cancel()
	queue.Shutdown(shutdownCtx)

	if *export != "" && len(runs) > 0 {
		b, err := report.ExportXLSX(runs)
		if err != nil {
			logger.Error("formfill.export.failed", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*export, b, 0o644); err != nil {
			logger.Error("formfill.export.failed", "path", *export, "error", err)
			os.Exit(1)
		}
		fmt.Printf("Review workbook: %s\n", *export)
	}

	if failures > 0 {
		os.Exit(1)
	}
}

func defaultOutput(dir, form string) string {
	base := filepath.Base(form)
	ext := filepath.Ext(base)
	return filepath.Join(dir, strings.TrimSuffix(base, ext)+"_filled"+ext)
}

func printSummary(job async.Job, res pipeline.Outcome) {
	fmt.Printf("Form: %s\n", job.Fill.Form)
	fmt.Printf("- Fields filled: %d\n", len(res.Mappings))
	fmt.Printf("- Fields unfilled: %d\n", len(res.Unfilled))
	fmt.Printf("- Quality score: %.2f (%d/%d checks)\n", res.Assessment.Score, res.Assessment.PassedChecks, res.Assessment.TotalChecks)
	fmt.Printf("- Correction iterations: %d\n", res.Iterations)
	for _, is := range res.Issues {
		fmt.Printf("  [%s] %s (%s): %s\n", is.Severity, is.FieldName, is.Type, is.Suggestion)
	}
	if job.Fill.Output != "" {
		fmt.Printf("- Output: %s\n", job.Fill.Output)
	}
	if res.ReportPath != "" {
		fmt.Printf("- Report: %s\n", res.ReportPath)
	}
}
