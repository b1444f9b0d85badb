package expediente

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"tybafetch/lib/portal"
	"tybafetch/lib/retry"
	"tybafetch/lib/textutil"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// attachment is one document descriptor as discovered in a listing.
type attachment struct {
	Title string
	Date  string
	Kind  Kind
}

// downloadFunc fetches one document into path and returns its byte size.
// Implementations differ between the case-level viewer flow and the
// procedural child-window generator flow.
type downloadFunc func(ctx context.Context, path string) (int64, error)

// fetchAttachment is the per-item state machine: idempotent skip of
// already-downloaded files, reclassification of pre-existing ones, bounded
// download retries, classify-then-keep-or-delete. Exhausted retries append
// an ErrorRecord and never abort the run.
func (s *Service) fetchAttachment(ctx context.Context, run *Run, att attachment, attempts int, backoff retry.BackoffFunc, download downloadFunc) {
	ctx, span := tracer.Start(ctx, "fetchAttachment")
	defer span.End()
	span.SetAttributes(
		attribute.String("title", att.Title),
		attribute.String("kind", string(att.Kind)),
	)

	name := textutil.SanitizeFilename(att.Title)
	if name == "" {
		name = fmt.Sprintf("documento_%s", att.Kind)
	}
	path := filepath.Join(run.Dir, name+".pdf")

	if info, err := os.Stat(path); err == nil && info.Size() > s.cfg.MinExistingSize {
		verdict := s.classifier.Classify(att.Title, s.firstPageOrEmpty(path))
		if verdict == VerdictDiscard && run.SkipNotifications {
			slog.InfoContext(ctx, "existing file reclassified as notification, removing",
				"name", name)
			if err := os.Remove(path); err != nil {
				slog.WarnContext(ctx, "failed to remove reclassified file", "path", path, "err", err)
			}
			// fall through to download so the final verdict comes from
			// fresh bytes
		} else {
			slog.InfoContext(ctx, "already downloaded, keeping", "name", name)
			run.addEntry(ManifestEntry{Date: att.Date, Name: name, Kind: att.Kind, Size: info.Size()})
			return
		}
	}

	size, err := retry.Do(ctx, attempts, backoff, func(ctx context.Context) (int64, error) {
		return download(ctx, path)
	})
	if err != nil {
		span.SetStatus(codes.Error, "download retries exhausted")
		slog.WarnContext(ctx, "download failed after retries",
			"name", name, "date", att.Date, "err", err)
		run.addError(name, att.Date, err.Error())
		return
	}

	verdict := s.classifier.Classify(att.Title, s.firstPageOrEmpty(path))
	if verdict == VerdictDiscard && run.SkipNotifications {
		slog.InfoContext(ctx, "skipping notification", "name", name)
		if err := os.Remove(path); err != nil {
			slog.WarnContext(ctx, "failed to remove notification", "path", path, "err", err)
		}
		run.addDiscard(ManifestEntry{Date: att.Date, Name: name, Kind: att.Kind, Size: size})
		return
	}

	slog.InfoContext(ctx, "downloaded", "name", name, "bytes", size)
	run.addEntry(ManifestEntry{Date: att.Date, Name: name, Kind: att.Kind, Size: size})
}

// persist writes the full body to a staging file, sanity-checks it and
// only then publishes it under its final name, so a crash mid-write can
// never surface as a valid download on resume.
func (s *Service) persist(path string, body []byte) (int64, error) {
	if int64(len(body)) <= s.cfg.MinDownloadSize {
		return 0, fmt.Errorf("body too small (%d bytes), likely an error page", len(body))
	}
	staging := path + ".part"
	if err := os.WriteFile(staging, body, 0644); err != nil {
		return 0, err
	}
	if s.validate != nil {
		if err := s.validate(staging); err != nil {
			os.Remove(staging)
			return 0, fmt.Errorf("downloaded body is not a valid pdf: %w", err)
		}
	}
	if err := os.Rename(staging, path); err != nil {
		os.Remove(staging)
		return 0, err
	}
	return int64(len(body)), nil
}

// downloadCaseFile is the viewer flow of the "Archivos" tab: clicking the
// row button loads an inline PDF viewer whose iframe src points at the
// generated document.
func (s *Service) downloadCaseFile(buttonSel string) downloadFunc {
	return func(ctx context.Context, path string) (int64, error) {
		if err := s.driver.Click(ctx, buttonSel); err != nil {
			return 0, err
		}
		if err := s.driver.WaitFor(ctx, selViewerFrame, s.cfg.ViewerWait); err != nil {
			s.closeViewer(ctx)
			return 0, err
		}
		src, err := s.driver.Attribute(ctx, selViewerFrame, "src")
		if err != nil || src == "" {
			s.closeViewer(ctx)
			return 0, fmt.Errorf("viewer frame exposes no document url")
		}
		docURL := portal.ResolveURL(s.driver.URL(), src)

		body, err := s.driver.FetchBytes(ctx, docURL, s.cfg.FetchTimeout)
		s.closeViewer(ctx)
		if err != nil {
			return 0, err
		}
		return s.persist(path, body)
	}
}

func (s *Service) closeViewer(ctx context.Context) {
	visible, err := s.driver.IsVisible(ctx, selViewerClose)
	if err != nil || !visible {
		return
	}
	if err := s.driver.Click(ctx, selViewerClose); err != nil {
		slog.DebugContext(ctx, "failed to close pdf viewer", "err", err)
	}
}

// downloadStepFile is the child-window flow of the "Actuaciones" tab:
// clicking the row button spawns a page that either is the generator
// itself or embeds it in an iframe. The transient page is closed on every
// exit path.
func (s *Service) downloadStepFile(buttonSel string) downloadFunc {
	return func(ctx context.Context, path string) (int64, error) {
		page, err := s.driver.OpenPage(ctx, func() error {
			return s.driver.Click(ctx, buttonSel)
		})
		if err != nil {
			return 0, err
		}
		defer page.Close()

		var target string
		if strings.Contains(page.URL(), generatorURLMarker) {
			target = page.URL()
		} else {
			if err := page.WaitFor(ctx, selGeneratorFrame, s.cfg.GeneratorWait); err != nil {
				return 0, fmt.Errorf("pdf generator never resolved: %w", err)
			}
			src, err := page.Attribute(ctx, selGeneratorFrame, "src")
			if err != nil || src == "" {
				return 0, fmt.Errorf("generator frame exposes no source url")
			}
			target = portal.ResolveURL(page.URL(), src)
		}

		body, err := page.FetchBytes(ctx, target, s.cfg.GenFetchTime)
		if err != nil {
			return 0, err
		}
		return s.persist(path, body)
	}
}
