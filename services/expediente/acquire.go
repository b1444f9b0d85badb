package expediente

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	"tybafetch/services/expediente/db"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// fallbackDirName is used under $HOME when the configured output root
// cannot be created.
const fallbackDirName = "TYBA_Downloads"

// AcquireOptions are the per-run switches.
type AcquireOptions struct {
	// SkipNotifications deletes documents classified as mere notifications
	// instead of keeping them.
	SkipNotifications bool
}

// Acquire runs one full acquisition for a case number: search, both
// document tabs, classification, manifest. The returned Run always reflects
// everything completed before err (if any) occurred, and the manifest on
// disk is written even on a fatal failure.
func (s *Service) Acquire(ctx context.Context, radicado string, opts AcquireOptions) (*Run, error) {
	ctx, span := tracer.Start(ctx, "Acquire")
	defer span.End()
	span.SetAttributes(attribute.String("radicado", radicado))

	dir, err := s.ensureCaseDir(radicado)
	if err != nil {
		return nil, fmt.Errorf("create case directory: %w", err)
	}
	run := newRun(radicado, dir, opts.SkipNotifications)
	slog.InfoContext(ctx, "starting acquisition", "radicado", radicado, "dir", dir)

	ledger, err := db.Open(filepath.Join(dir, "ledger.db"))
	if err != nil {
		// the ledger is a convenience record; a run must not die for it
		slog.WarnContext(ctx, "ledger unavailable for this run", "err", err)
		ledger = nil
	}

	fatal := s.acquire(ctx, run)
	if fatal != nil {
		span.RecordError(fatal)
		span.SetStatus(codes.Error, "acquisition aborted")
		s.captureDiagnostic(ctx, run)
	}

	if err := s.writeManifest(run); err != nil {
		slog.WarnContext(ctx, "failed to write manifest", "err", err)
	}
	if ledger != nil {
		s.recordLedger(ctx, ledger, run)
		if err := ledger.Close(); err != nil {
			slog.DebugContext(ctx, "ledger close", "err", err)
		}
	}

	slog.InfoContext(ctx, "acquisition finished",
		"radicado", radicado,
		"kept", len(run.Entries),
		"discarded", len(run.Discarded),
		"errors", len(run.Errors),
		"admission", run.AdmissionDate)
	return run, fatal
}

func (s *Service) acquire(ctx context.Context, run *Run) error {
	if err := s.search(ctx, run.Radicado); err != nil {
		return err
	}
	if err := s.processSteps(ctx, run); err != nil {
		return err
	}
	return s.processCaseFiles(ctx, run)
}

// ensureCaseDir creates <OutputDir>/<radicado>, falling back to a
// directory under the user's home when the configured root is unusable
// (read-only mounts, typoed configs).
func (s *Service) ensureCaseDir(radicado string) (string, error) {
	dir := filepath.Join(s.cfg.OutputDir, radicado)
	if err := os.MkdirAll(dir, 0755); err == nil {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir = filepath.Join(home, fallbackDirName, radicado)
	slog.Warn("configured output dir unusable, falling back", "dir", dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// captureDiagnostic snapshots the portal state next to the downloads so a
// fatal failure can be diagnosed after the fact. Best effort only.
func (s *Service) captureDiagnostic(ctx context.Context, run *Run) {
	name := fmt.Sprintf("error_%s.html", time.Now().Format("20060102_150405"))
	path := filepath.Join(run.Dir, name)
	if err := s.driver.Screenshot(ctx, path); err != nil {
		slog.DebugContext(ctx, "diagnostic capture failed", "err", err)
		return
	}
	slog.InfoContext(ctx, "portal state captured for diagnosis", "path", path)
}

func (s *Service) recordLedger(ctx context.Context, ledger *db.Ledger, run *Run) {
	now := time.Now()
	record := func(e ManifestEntry, verdict string) {
		err := ledger.RecordAttachment(ctx, db.Attachment{
			Radicado:  run.Radicado,
			Name:      e.Name,
			Kind:      string(e.Kind),
			Date:      e.Date,
			Verdict:   verdict,
			SizeBytes: e.Size,
			Path:      filepath.Join(run.Dir, e.Name+".pdf"),
			FetchedAt: now,
		})
		if err != nil {
			slog.DebugContext(ctx, "ledger write failed", "name", e.Name, "err", err)
		}
	}
	for _, e := range run.Entries {
		record(e, "keep")
	}
	for _, e := range run.Discarded {
		record(e, "discard")
	}
	for _, rec := range run.Errors {
		err := ledger.RecordError(ctx, db.RunError{
			Radicado: run.Radicado,
			Item:     rec.Item,
			Date:     rec.Date,
			Message:  rec.Message,
			At:       now,
		})
		if err != nil {
			slog.DebugContext(ctx, "ledger write failed", "item", rec.Item, "err", err)
		}
	}
}
