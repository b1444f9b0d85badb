package expediente

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"tybafetch/lib/portal"
	"tybafetch/lib/retry"

	"go.opentelemetry.io/otel/codes"
)

// ErrCaptchaRejected signals that the portal refused the submitted
// verification challenge. Always recoverable within the search budget.
var ErrCaptchaRejected = errors.New("expediente: captcha value rejected")

// ErrCaseNotFound is returned when the search retries are exhausted
// without the result row ever appearing.
var ErrCaseNotFound = errors.New("expediente: case not found after search retries")

// search drives the consultation form until the result row for the case
// appears, then opens the detail view and waits for the document-tabs UI.
// A detail view that never stabilizes is fatal for the run and is not
// retried here.
func (s *Service) search(ctx context.Context, radicado string) error {
	ctx, span := tracer.Start(ctx, "search")
	defer span.End()

	if err := s.driver.Navigate(ctx, s.cfg.SearchURL); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open consultation form")
		return err
	}

	attempt := 0
	_, err := retry.Do(ctx, s.cfg.SearchAttempts, s.cfg.SearchBackoff, func(ctx context.Context) (struct{}, error) {
		attempt++
		slog.InfoContext(ctx, "submitting case search", "radicado", radicado, "attempt", attempt)

		if err := s.submitSearch(ctx, radicado); err != nil {
			return struct{}{}, retry.Permanent(err)
		}

		err := s.driver.WaitFor(ctx, selFirstResultRow, s.cfg.ResultWait)
		if err == nil {
			return struct{}{}, nil
		}
		if !errors.Is(err, portal.ErrWaitTimeout) {
			return struct{}{}, retry.Permanent(err)
		}

		if s.captchaRejected(ctx) {
			slog.WarnContext(ctx, "captcha rejected, refreshing challenge", "attempt", attempt)
			s.refreshCaptcha(ctx)
			return struct{}{}, ErrCaptchaRejected
		}

		// no rejection message: assume the server is slow rather than
		// hostile and re-poll once before burning the attempt
		if err := s.driver.WaitFor(ctx, selFirstResultRow, 5*time.Second); err == nil {
			return struct{}{}, nil
		}
		return struct{}{}, fmt.Errorf("result row did not appear: %w", err)
	})
	if err != nil {
		span.SetStatus(codes.Error, "search retries exhausted")
		return fmt.Errorf("%w: %s: %v", ErrCaseNotFound, radicado, err)
	}

	return s.openDetailView(ctx)
}

func (s *Service) submitSearch(ctx context.Context, radicado string) error {
	if err := s.driver.Fill(ctx, selSearchInput, ""); err != nil {
		return err
	}
	if err := s.driver.Fill(ctx, selSearchInput, radicado); err != nil {
		return err
	}
	return s.driver.Click(ctx, selSearchButton)
}

func (s *Service) captchaRejected(ctx context.Context) bool {
	for _, msg := range captchaRejectionMessages {
		visible, err := s.driver.IsVisible(ctx, fmt.Sprintf("*:contains('%s')", msg))
		if err == nil && visible {
			return true
		}
	}
	return false
}

func (s *Service) refreshCaptcha(ctx context.Context) {
	visible, err := s.driver.IsVisible(ctx, selCaptchaImage)
	if err != nil || !visible {
		return
	}
	if err := s.driver.Click(ctx, selCaptchaImage); err != nil {
		slog.DebugContext(ctx, "captcha refresh click failed", "err", err)
	}
}

// openDetailView clicks into the found case and blocks until the document
// tabs render. Failure here propagates as fatal: the session is in an
// unknown state and re-searching will not fix it.
func (s *Service) openDetailView(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "openDetailView")
	defer span.End()

	if err := s.driver.Click(ctx, selFirstResultRow); err != nil {
		span.RecordError(err)
		return fmt.Errorf("open case detail: %w", err)
	}
	if err := s.driver.WaitFor(ctx, selFilesTab, s.cfg.DetailWait); err != nil {
		span.SetStatus(codes.Error, "document tabs never stabilized")
		return fmt.Errorf("case detail view did not stabilize: %w", err)
	}
	return nil
}
