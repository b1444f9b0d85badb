package expediente

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"tybafetch/lib/textutil"

	"github.com/jedib0t/go-pretty/v6/table"
)

const manifestName = "lista.txt"

// writeManifest renders the run's outcome as a plain-text report next to
// the downloads: case-level documents first, then the procedural history in
// discovery order, then any exhausted-retry failures.
func (s *Service) writeManifest(run *Run) error {
	var b strings.Builder

	fmt.Fprintf(&b, "EXPEDIENTE: %s\n", run.Radicado)
	fmt.Fprintf(&b, "Generado: %s\n", time.Now().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Fecha de admision: %s\n\n", run.AdmissionDate)

	caseFiles := run.entriesByKind(KindCaseFile)
	if len(caseFiles) > 0 {
		b.WriteString("DOCUMENTOS DEL EXPEDIENTE\n")
		b.WriteString(renderEntries(caseFiles, run.AdmissionDate))
		b.WriteString("\n")
	}

	procedural := run.entriesByKind(KindProcedural)
	if len(procedural) > 0 {
		b.WriteString("DOCUMENTOS DE ACTUACIONES\n")
		b.WriteString(renderEntries(procedural, run.AdmissionDate))
		b.WriteString("\n")
	}

	if len(run.Discarded) > 0 {
		fmt.Fprintf(&b, "Notificaciones omitidas: %d\n", len(run.Discarded))
		for _, e := range run.Discarded {
			fmt.Fprintf(&b, "  - %s\n", e.Name)
		}
		b.WriteString("\n")
	}

	if len(run.Errors) > 0 {
		b.WriteString("ERRORES\n")
		t := table.NewWriter()
		t.AppendHeader(table.Row{"Documento", "Fecha", "Detalle"})
		for _, rec := range run.Errors {
			t.AppendRow(table.Row{rec.Item, rec.Date, rec.Message})
		}
		b.WriteString(t.Render())
		b.WriteString("\n")
	}

	return os.WriteFile(filepath.Join(run.Dir, manifestName), []byte(b.String()), 0644)
}

func renderEntries(entries []ManifestEntry, admissionDate string) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Fecha", "Documento", "Tamano"})
	for _, e := range entries {
		t.AppendRow(table.Row{entryDate(e, admissionDate), e.Name, formatSize(e.Size)})
	}
	return t.Render() + "\n"
}

// entryDate resolves the date column. Case-level files carry no date of
// their own; the claim document inherits the admission date so the report
// reads chronologically.
func entryDate(e ManifestEntry, admissionDate string) string {
	if e.Kind == KindCaseFile && strings.Contains(textutil.Normalize(e.Name), "DEMANDA") {
		return admissionDate
	}
	return e.Date
}

func formatSize(bytes int64) string {
	const kb = 1024
	switch {
	case bytes >= kb*kb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(kb*kb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/kb)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
