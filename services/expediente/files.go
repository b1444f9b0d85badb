package expediente

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"tybafetch/lib/portal"
	"tybafetch/lib/textutil"
)

// processCaseFiles walks the "Archivos" tab: case-level documents that
// belong to the file itself rather than to any procedural step. Many cases
// have none; an empty tab is not an error.
func (s *Service) processCaseFiles(ctx context.Context, run *Run) error {
	ctx, span := tracer.Start(ctx, "processCaseFiles")
	defer span.End()

	if err := s.driver.Click(ctx, selFilesTab); err != nil {
		return fmt.Errorf("open archivos tab: %w", err)
	}
	if err := s.driver.WaitFor(ctx, selCaseFileButtons, 10*time.Second); err != nil {
		if errors.Is(err, portal.ErrWaitTimeout) {
			slog.InfoContext(ctx, "case has no top-level files")
			return nil
		}
		return fmt.Errorf("archivos grid: %w", err)
	}

	count, err := s.driver.Count(ctx, selCaseFileButtons)
	if err != nil {
		return fmt.Errorf("count archivos: %w", err)
	}
	rows, err := s.driver.Table(ctx, selCaseFilesGrid)
	if err != nil {
		rows = nil
	}
	slog.InfoContext(ctx, "processing case-level files", "count", count)

	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		title := firstCell(stepRow(rows, i))
		if textutil.SanitizeFilename(title) == "" {
			title = fmt.Sprintf("Archivo_%d", i)
		}
		s.fetchAttachment(ctx, run,
			attachment{Title: title, Date: NoDate, Kind: KindCaseFile},
			s.cfg.CaseFileAttempts, s.cfg.CaseFileBackoff,
			s.downloadCaseFile(fmt.Sprintf(selCaseFileFmt, i)),
		)
	}
	return nil
}
