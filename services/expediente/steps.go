package expediente

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"tybafetch/lib/textutil"

	"go.opentelemetry.io/otel/codes"
)

// stepColumns locates the date and description columns from the grid's
// header row. The portal has shuffled columns between releases, so the
// indices are discovered rather than hardcoded.
type stepColumns struct {
	date int
	desc int
}

func discoverStepColumns(header []string) stepColumns {
	cols := stepColumns{date: -1, desc: -1}
	for idx, h := range header {
		text := textutil.Normalize(h)
		if strings.Contains(text, "FECHA") && !strings.Contains(text, "REGISTRO") {
			cols.date = idx
		}
		if strings.Contains(text, "ACTUACION") || strings.Contains(text, "DESCRIPCION") {
			cols.desc = idx
		}
	}
	return cols
}

func (c stepColumns) step(index int, row []string) ProceduralStep {
	step := ProceduralStep{Index: index, Date: NoDate, Name: fmt.Sprintf("Actuacion_%d", index)}
	if c.date >= 0 && c.date < len(row) {
		step.Date = strings.TrimSpace(row[c.date])
	}
	if c.desc >= 0 && c.desc < len(row) {
		if name := strings.TrimSpace(row[c.desc]); name != "" {
			step.Name = name
		}
	}
	return step
}

// processSteps walks the "Actuaciones" tab: every row of every result
// page, each row's attachment sub-list, and the admission-date rule.
// Per-attachment failures are recorded and skipped; only a grid that never
// renders is a structural failure worth aborting over.
func (s *Service) processSteps(ctx context.Context, run *Run) error {
	ctx, span := tracer.Start(ctx, "processSteps")
	defer span.End()

	if err := s.driver.Click(ctx, selStepsTab); err != nil {
		return fmt.Errorf("open actuaciones tab: %w", err)
	}
	if err := s.driver.WaitFor(ctx, selStepsGrid, 10*time.Second); err != nil {
		span.SetStatus(codes.Error, "actuaciones grid never rendered")
		return fmt.Errorf("actuaciones grid: %w", err)
	}

	rows, err := s.driver.Table(ctx, selStepsGrid)
	if err != nil || len(rows) == 0 {
		return fmt.Errorf("read actuaciones grid: %w", err)
	}
	cols := discoverStepColumns(rows[0])

	for pageNum := 1; ; pageNum++ {
		count, err := s.driver.Count(ctx, selStepButtons)
		if err != nil {
			return fmt.Errorf("count actuaciones: %w", err)
		}
		rows, err = s.driver.Table(ctx, selStepsGrid)
		if err != nil {
			return fmt.Errorf("read actuaciones grid: %w", err)
		}
		slog.InfoContext(ctx, "processing actuaciones page", "page", pageNum, "rows", count)

		for i := 0; i < count; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			step := cols.step(i, stepRow(rows, i))
			if run.noteAdmission(step) {
				slog.InfoContext(ctx, "admission date detected", "date", run.AdmissionDate, "step", step.Name)
			}
			s.processStepAttachments(ctx, run, step)
		}

		more, err := s.nextStepsPage(ctx, pageNum)
		if err != nil {
			slog.WarnContext(ctx, "pagination check failed, stopping at current page", "err", err)
			return nil
		}
		if !more {
			return nil
		}
	}
}

// stepRow maps button index i to its data row: row 0 is the header, the
// pager (when present) trails the data rows and is never indexed by a
// row button.
func stepRow(rows [][]string, i int) []string {
	if i+1 < len(rows) {
		return rows[i+1]
	}
	return nil
}

// processStepAttachments opens one step's detail view, downloads each
// attachment, and returns to the list view, confirming the grid reloaded
// before the caller touches the next row (stale-DOM guard).
func (s *Service) processStepAttachments(ctx context.Context, run *Run, step ProceduralStep) {
	ctx, span := tracer.Start(ctx, "processStepAttachments")
	defer span.End()

	slog.DebugContext(ctx, "opening actuacion", "index", step.Index, "name", step.Name, "date", step.Date)

	if err := s.driver.Click(ctx, fmt.Sprintf(selStepButtonFmt, step.Index)); err != nil {
		run.addError(step.Name, step.Date, fmt.Sprintf("open actuacion: %v", err))
		return
	}

	if err := s.driver.WaitFor(ctx, selStepReturn, 20*time.Second); err != nil {
		span.SetStatus(codes.Error, "detail view never rendered")
		run.addError(step.Name, step.Date, fmt.Sprintf("actuacion detail view: %v", err))
		s.returnToStepList(ctx)
		return
	}

	// the attachment grid renders late on slow connections and is absent
	// entirely for steps without files; both are fine
	if err := s.driver.WaitFor(ctx, selStepFilesGrid, 5*time.Second); err != nil {
		slog.DebugContext(ctx, "no attachment grid for actuacion", "name", step.Name)
	}

	count, err := s.driver.Count(ctx, selStepFileButtons)
	if err != nil {
		run.addError(step.Name, step.Date, fmt.Sprintf("list attachments: %v", err))
		s.returnToStepList(ctx)
		return
	}
	if count == 0 {
		slog.DebugContext(ctx, "actuacion has no attachments", "name", step.Name)
		s.returnToStepList(ctx)
		return
	}

	fileRows, err := s.driver.Table(ctx, selStepFilesGrid)
	if err != nil {
		fileRows = nil
	}

	for j := 0; j < count; j++ {
		title := firstCell(stepRow(fileRows, j))
		if textutil.SanitizeFilename(title) == "" {
			title = fmt.Sprintf("%s_%d", textutil.SanitizeFilename(step.Name), j)
		}
		s.fetchAttachment(ctx, run,
			attachment{Title: title, Date: step.Date, Kind: KindProcedural},
			s.cfg.StepFileAttempts, s.cfg.StepFileBackoff,
			s.downloadStepFile(fmt.Sprintf(selStepFileFmt, j)),
		)
	}

	s.returnToStepList(ctx)
}

func (s *Service) returnToStepList(ctx context.Context) {
	if err := s.driver.Click(ctx, selStepReturn); err != nil {
		slog.WarnContext(ctx, "failed to return to actuaciones list", "err", err)
		return
	}
	if err := s.driver.WaitFor(ctx, selStepsGrid, s.cfg.GridWait); err != nil {
		slog.WarnContext(ctx, "actuaciones grid did not reload after returning", "err", err)
	}
}

// nextStepsPage advances the grid's numeric pager when a next page exists.
func (s *Service) nextStepsPage(ctx context.Context, fallbackCurrent int) (bool, error) {
	visible, err := s.driver.IsVisible(ctx, selPagerRow)
	if err != nil || !visible {
		return false, err
	}

	current := fallbackCurrent
	if text, err := s.driver.Text(ctx, selPagerCurrent); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(text)); err == nil {
			current = n
		}
	}

	nextSel := fmt.Sprintf(selPagerLinkFmt, current+1)
	visible, err = s.driver.IsVisible(ctx, nextSel)
	if err != nil || !visible {
		return false, err
	}

	slog.InfoContext(ctx, "advancing to next actuaciones page", "page", current+1)
	if err := s.driver.Click(ctx, nextSel); err != nil {
		return false, err
	}
	if err := s.driver.WaitFor(ctx, selStepsGrid, 10*time.Second); err != nil {
		return false, err
	}
	return true, nil
}

func firstCell(row []string) string {
	for _, cell := range row {
		if trimmed := strings.TrimSpace(cell); trimmed != "" {
			// grids render multi-line cells; the first line is the name
			if i := strings.IndexByte(trimmed, '\n'); i >= 0 {
				trimmed = strings.TrimSpace(trimmed[:i])
			}
			return trimmed
		}
	}
	return ""
}
