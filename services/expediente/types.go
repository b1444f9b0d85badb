package expediente

import "tybafetch/lib/textutil"

// Kind distinguishes where a document was discovered.
type Kind string

const (
	// KindCaseFile is a document attached to the case itself
	// (the portal's "Archivos" tab).
	KindCaseFile Kind = "archivo"
	// KindProcedural is a document attached to one procedural step
	// (the "Actuaciones" tab).
	KindProcedural Kind = "actuacion"
)

// AdmissionPending is the AdmissionDate sentinel before any admitting
// step has been seen.
const AdmissionPending = "Sin fecha"

// NoDate is the date column value for case-level files, which carry no
// procedural date of their own.
const NoDate = "N/A"

// ProceduralStep is one row of the case's chronological history, as
// rendered by the portal. Dates stay in portal-native string form; they are
// report data, not something this system computes with.
type ProceduralStep struct {
	Index int
	Date  string
	Name  string
}

// ManifestEntry is one kept document projected into the final report.
type ManifestEntry struct {
	Date string
	Name string
	Kind Kind
	Size int64
}

// ErrorRecord is one exhausted-retry failure. Appended, never removed,
// for the duration of one run.
type ErrorRecord struct {
	Item    string
	Date    string
	Message string
}

// Run is the per-run context that owns everything one Acquire call
// accumulates. It replaces the legacy workflow's instance-level counters:
// state lives here, is created at the start of a run and is never shared
// across runs.
type Run struct {
	Radicado          string
	Dir               string
	SkipNotifications bool

	Entries       []ManifestEntry
	Discarded     []ManifestEntry
	Errors        []ErrorRecord
	AdmissionDate string
}

func newRun(radicado, dir string, skip bool) *Run {
	return &Run{
		Radicado:          radicado,
		Dir:               dir,
		SkipNotifications: skip,
		AdmissionDate:     AdmissionPending,
	}
}

func (r *Run) addEntry(e ManifestEntry) {
	// idempotent resume: re-listing an already-recorded document must not
	// duplicate its manifest entry
	for _, existing := range r.Entries {
		if existing.Name == e.Name && existing.Kind == e.Kind {
			return
		}
	}
	r.Entries = append(r.Entries, e)
}

// addDiscard tracks a document deleted by the notification filter, so the
// ledger can answer "why is this file gone" after the run.
func (r *Run) addDiscard(e ManifestEntry) {
	for _, existing := range r.Discarded {
		if existing.Name == e.Name && existing.Kind == e.Kind {
			return
		}
	}
	r.Discarded = append(r.Discarded, e)
}

func (r *Run) addError(item, date, message string) {
	r.Errors = append(r.Errors, ErrorRecord{Item: item, Date: date, Message: message})
}

// noteAdmission records the date of the first step that admits the claim;
// later matches never overwrite it.
func (r *Run) noteAdmission(step ProceduralStep) bool {
	if r.AdmissionDate != AdmissionPending {
		return false
	}
	name := textutil.Normalize(step.Name)
	if !containsToken(name, "AUTO") {
		return false
	}
	if _, ok := textutil.ContainsAny(name, admissionStepTokens); !ok {
		return false
	}
	r.AdmissionDate = step.Date
	return true
}

func containsToken(normalized, token string) bool {
	_, ok := textutil.ContainsAny(normalized, []string{token})
	return ok
}

// entriesByKind returns kept entries of one kind in discovery order.
func (r *Run) entriesByKind(kind Kind) []ManifestEntry {
	var out []ManifestEntry
	for _, e := range r.Entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
