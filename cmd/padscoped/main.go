// Command padscoped is the padscope ingestion daemon. It watches the
// capture drop directory, loads artifact files landed there by the capture
// collaborators, stores them per session, and runs the structural analyses
// automatically: layout captures are reconciled on arrival, and a diff-run
// artifact, which carries both input-method branches, is diffed on arrival.
// Single-branch submission captures are not an ingestible kind; they reach
// the store only as part of a diff run.
//
// Derivation testing is deliberately not automated here; it needs the known
// plaintext, which stays out of the daemon (see padscope-derive).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"padscope/internal/artifact"
	"padscope/internal/capture"
	"padscope/internal/config"
	"padscope/internal/logging"
	"padscope/internal/reconcile"
	"padscope/internal/store"
	"padscope/internal/subdiff"
	"padscope/internal/watcher"
)

func main() {
	configPath := flag.String("config", "", "config file path (default: XDG config dir)")
	flag.Parse()

	cfg, created, err := config.LoadOrCreate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logging: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(log)
	if created {
		log.Info("created default config", "path", config.ConfigPath())
	}

	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		log.Error("open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	w, err := watcher.New(cfg.Captures.DropDir, time.Duration(cfg.Captures.DebounceMs)*time.Millisecond)
	if err != nil {
		log.Error("create watcher", "error", err)
		os.Exit(1)
	}
	if err := w.Start(); err != nil {
		log.Error("start watcher", "error", err)
		os.Exit(1)
	}
	defer w.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ing := &ingester{cfg: cfg, store: st, log: log}
	log.Info("padscoped running", "drop_dir", cfg.Captures.DropDir, "store", cfg.Storage.Path)

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return
		case event, ok := <-w.Events():
			if !ok {
				return
			}
			ing.ingest(event)
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			log.Warn("watch error", "error", err)
		}
	}
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	return logging.New(&logging.Config{
		Level:     level,
		Format:    format,
		Output:    cfg.Logging.Output,
		Component: "padscoped",
	}), nil
}

// ingester loads dropped artifact files and dispatches them by kind.
type ingester struct {
	cfg   *config.Config
	store *store.Store
	log   *logging.Logger
}

func (g *ingester) ingest(event watcher.Event) {
	log := g.log.Logger.With("file", filepath.Base(event.Path), "size", event.Size)

	data, err := os.ReadFile(event.Path)
	if err != nil {
		log.Warn("read artifact", "error", err)
		return
	}

	// A diff run has both capture branches; everything else is tried as a
	// layout capture. Ambiguity is resolved by shape, not by filename.
	if run, err := g.parseDiffRun(data); err == nil {
		g.ingestDiffRun(log, run)
	} else if layout, lerr := g.parseLayout(data); lerr == nil {
		g.ingestLayout(log, layout, data)
	} else {
		log.Warn("unrecognized artifact", "diff_run_error", err, "layout_error", lerr)
		return
	}

	g.archive(log, event.Path)
}

func (g *ingester) parseDiffRun(data []byte) (*artifact.DiffRun, error) {
	if g.cfg.Captures.ValidateSchema {
		if err := artifact.Validate(artifact.SchemaDiffRun, data); err != nil {
			return nil, err
		}
	}
	return artifact.ParseDiffRun(data)
}

func (g *ingester) parseLayout(data []byte) (*capture.LayoutCapture, error) {
	if g.cfg.Captures.ValidateSchema {
		if err := artifact.Validate(artifact.SchemaLayout, data); err != nil {
			return nil, err
		}
	}
	return artifact.ParseLayout(data)
}

func (g *ingester) ingestLayout(log *slog.Logger, layout *capture.LayoutCapture, raw []byte) {
	sessionID := layout.SessionID()
	if _, err := g.store.InsertLayoutCapture(sessionID, raw); err != nil {
		log.Error("store layout", "session", sessionID, "error", err)
		return
	}

	report, err := reconcile.Reconcile(layout, layout.Dimensions())
	if err != nil {
		log.Error("reconcile", "session", sessionID, "error", err)
		return
	}
	if _, err := g.store.InsertAnalysis(sessionID, store.AnalysisMapping, report); err != nil {
		log.Error("store mapping", "session", sessionID, "error", err)
		return
	}

	log.Info("layout ingested", "session", sessionID,
		"mapped", len(report.Classes),
		"out_of_bounds", len(report.OutOfBounds),
		"conflicts", len(report.Conflicts))
	if len(report.Conflicts) > 0 {
		log.Warn("token class conflicts detected", "session", sessionID, "count", len(report.Conflicts))
	}
}

func (g *ingester) ingestDiffRun(log *slog.Logger, run *artifact.DiffRun) {
	sessionID := g.sessionID(run.Virtual)

	if _, err := g.store.InsertSubmission(sessionID, run.Virtual); err != nil {
		log.Error("store virtual capture", "session", sessionID, "error", err)
		return
	}
	if _, err := g.store.InsertSubmission(sessionID, run.Hardware); err != nil {
		log.Error("store hardware capture", "session", sessionID, "error", err)
		return
	}

	differ := subdiff.New(subdiff.Config{ExpectedDivergent: g.cfg.Diff.ExpectedDivergent})
	report, err := differ.Diff(run.Virtual, run.Hardware)
	if err != nil {
		log.Error("diff", "session", sessionID, "error", err)
		return
	}
	if _, err := g.store.InsertAnalysis(sessionID, store.AnalysisDiff, report); err != nil {
		log.Error("store diff", "session", sessionID, "error", err)
		return
	}

	log.Info("diff run ingested", "session", sessionID,
		"shared", len(report.SharedFields),
		"divergent", len(report.Divergences),
		"expected_divergent", len(report.ExpectedDivergences))
}

// sessionID picks the session identifier from the configured session key
// fields, first match wins.
func (g *ingester) sessionID(sub *capture.SubmissionCapture) string {
	for _, key := range g.cfg.Derive.SessionKeys {
		if v, ok := sub.Value(key); ok && v != "" {
			return v
		}
	}
	return "unkeyed"
}

// archive moves an ingested file into the processed subdirectory so the
// drop directory only holds pending captures.
func (g *ingester) archive(log *slog.Logger, path string) {
	dir := filepath.Join(filepath.Dir(path), "processed")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn("create processed dir", "error", err)
		return
	}
	dest := filepath.Join(dir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		log.Warn("archive artifact", "error", err)
	}
}
