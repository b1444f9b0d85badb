package expediente

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
	"tybafetch/lib/portal"
	"tybafetch/lib/retry"
	"tybafetch/lib/telemetry"

	"github.com/stretchr/testify/require"
)

const testRadicado = "11001400300120240012300"

type fakeStep struct {
	date  string
	name  string
	files []string
}

// fakeDriver scripts the portal: procedural steps with attachments (one
// slice per result page) plus case-level files. Click tracks which grid row
// is open so the attachment listings answer per-step.
type fakeDriver struct {
	url       string
	pages     [][]fakeStep
	caseFiles []string

	// resultFound controls whether the search ever succeeds;
	// captchaFails rejects that many submissions first.
	resultFound  bool
	captchaFails int
	fetch        func(url string) ([]byte, error)

	searchSubmits int
	captchaClicks int
	fetchCalls    map[string]int
	pageIdx       int
	currentStep   int
	currentFile   int
	screenshots   []string
}

func newFakeDriver() *fakeDriver {
	d := &fakeDriver{resultFound: true, currentStep: -1, fetchCalls: map[string]int{}}
	d.fetch = func(string) ([]byte, error) {
		return []byte("%PDF-1.4\n" + strings.Repeat("x", 300)), nil
	}
	return d
}

func (d *fakeDriver) currentSteps() []fakeStep {
	if d.pageIdx < len(d.pages) {
		return d.pages[d.pageIdx]
	}
	return nil
}

func (d *fakeDriver) Navigate(_ context.Context, url string) error {
	d.url = url
	return nil
}

func (d *fakeDriver) Fill(context.Context, string, string) error { return nil }

func (d *fakeDriver) Click(_ context.Context, selector string) error {
	switch {
	case selector == selSearchButton:
		d.searchSubmits++
	case selector == selCaptchaImage:
		d.captchaClicks++
	case selector == selStepReturn:
		d.currentStep = -1
	default:
		if n, ok := pagerTarget(selector); ok {
			d.pageIdx = n - 1
			return nil
		}
		if idx, ok := trailingIndex(selector, "#MainContent_grdActuaciones_imgbConsultarGrilla_"); ok {
			d.currentStep = idx
		}
		if idx, ok := trailingIndex(selector, "#MainContent_grdArchivosActuaciones_imgDescargaArchivos_"); ok {
			d.currentFile = idx
		}
		if idx, ok := trailingIndex(selector, "#MainContent_grdArchivos_imgbConsultarGrillaArchivos_"); ok {
			d.currentFile = idx
		}
	}
	return nil
}

func trailingIndex(selector, prefix string) (int, bool) {
	rest := strings.TrimPrefix(selector, prefix)
	if rest == selector {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	return n, err == nil
}

// pagerTarget extracts the page number from a pager link selector.
func pagerTarget(selector string) (int, bool) {
	const marker = "tr.Paginacion a:contains('"
	i := strings.Index(selector, marker)
	if i < 0 {
		return 0, false
	}
	rest := selector[i+len(marker):]
	j := strings.Index(rest, "'")
	if j < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(rest[:j])
	return n, err == nil
}

func (d *fakeDriver) captchaRejecting() bool {
	return d.searchSubmits <= d.captchaFails
}

func (d *fakeDriver) WaitFor(_ context.Context, selector string, _ time.Duration) error {
	switch selector {
	case selFirstResultRow:
		if d.resultFound && !d.captchaRejecting() {
			return nil
		}
		return portal.ErrWaitTimeout
	case selCaseFileButtons:
		if len(d.caseFiles) > 0 {
			return nil
		}
		return portal.ErrWaitTimeout
	}
	return nil
}

func (d *fakeDriver) IsVisible(_ context.Context, selector string) (bool, error) {
	switch {
	case selector == selPagerRow:
		return len(d.pages) > 1, nil
	case selector == selCaptchaImage:
		return true, nil
	case strings.HasPrefix(selector, "*:contains("):
		return d.captchaRejecting(), nil
	}
	if n, ok := pagerTarget(selector); ok {
		return n-1 < len(d.pages), nil
	}
	return false, nil
}

func (d *fakeDriver) Attribute(_ context.Context, selector, name string) (string, error) {
	if selector == selViewerFrame && name == "src" {
		// the portal emits backslashed relative refs
		return fmt.Sprintf("Docs\\case_%d.pdf", d.currentFile), nil
	}
	return "", nil
}

func (d *fakeDriver) Text(_ context.Context, selector string) (string, error) {
	if selector == selPagerCurrent {
		return strconv.Itoa(d.pageIdx + 1), nil
	}
	return "", nil
}

func (d *fakeDriver) TextAll(context.Context, string) ([]string, error) { return nil, nil }

func (d *fakeDriver) Count(_ context.Context, selector string) (int, error) {
	switch selector {
	case selStepButtons:
		return len(d.currentSteps()), nil
	case selStepFileButtons:
		steps := d.currentSteps()
		if d.currentStep < 0 || d.currentStep >= len(steps) {
			return 0, nil
		}
		return len(steps[d.currentStep].files), nil
	case selCaseFileButtons:
		return len(d.caseFiles), nil
	}
	return 0, nil
}

func (d *fakeDriver) Table(_ context.Context, selector string) ([][]string, error) {
	switch selector {
	case selStepsGrid:
		rows := [][]string{{"Fecha de Actuación", "Actuación"}}
		for _, s := range d.currentSteps() {
			rows = append(rows, []string{s.date, s.name})
		}
		return rows, nil
	case selStepFilesGrid:
		rows := [][]string{{"Archivo"}}
		steps := d.currentSteps()
		if d.currentStep >= 0 && d.currentStep < len(steps) {
			for _, f := range steps[d.currentStep].files {
				rows = append(rows, []string{f})
			}
		}
		return rows, nil
	case selCaseFilesGrid:
		rows := [][]string{{"Archivo"}}
		for _, f := range d.caseFiles {
			rows = append(rows, []string{f})
		}
		return rows, nil
	}
	return nil, nil
}

func (d *fakeDriver) URL() string { return d.url }

func (d *fakeDriver) FetchBytes(_ context.Context, url string, _ time.Duration) ([]byte, error) {
	d.fetchCalls[url]++
	return d.fetch(url)
}

func (d *fakeDriver) OpenPage(_ context.Context, trigger func() error) (portal.Page, error) {
	if err := trigger(); err != nil {
		return nil, err
	}
	return &fakePage{
		fakeDriver: d,
		pageURL: fmt.Sprintf("https://portal.example/app/Descargando.aspx?doc=%d_%d_%d",
			d.pageIdx, d.currentStep, d.currentFile),
	}, nil
}

func (d *fakeDriver) Screenshot(_ context.Context, path string) error {
	d.screenshots = append(d.screenshots, path)
	return os.WriteFile(path, []byte("<html></html>"), 0644)
}

type fakePage struct {
	*fakeDriver
	pageURL string
}

func (p *fakePage) URL() string { return p.pageURL }
func (p *fakePage) Close()      {}

func testConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.SearchURL = "https://portal.example/app/frmConsulta.aspx"
	cfg.OutputDir = t.TempDir()
	cfg.SearchBackoff = retry.Fixed(0)
	cfg.CaseFileBackoff = retry.Fixed(0)
	cfg.StepFileBackoff = retry.Fixed(0)
	return cfg
}

func newTestService(t *testing.T, driver portal.Driver, cfg Config) *Service {
	t.Cleanup(telemetry.SetupForTesting(t, "test:services/expediente"))

	svc := NewService(driver, cfg)
	// the fake bodies are not real PDFs; validation and text extraction
	// are exercised in lib/pdftext's own tests
	svc.validate = nil
	svc.extractText = func(string) (string, error) { return "", errors.New("not a pdf") }
	return svc
}

func TestAcquireFullRun(t *testing.T) {
	driver := newFakeDriver()
	driver.pages = [][]fakeStep{{
		{date: "2024-02-01", name: "Auto admite demanda", files: []string{"Auto admisorio"}},
		{date: "2024-03-10", name: "Oficio remisorio", files: []string{"Oficio 123"}},
	}}
	driver.caseFiles = []string{"Demanda"}

	svc := newTestService(t, driver, testConfig(t))

	run, err := svc.Acquire(context.Background(), testRadicado, AcquireOptions{})
	require.NoError(t, err)
	require.Equal(t, "2024-02-01", run.AdmissionDate)
	require.Len(t, run.Entries, 3)
	require.Empty(t, run.Errors)

	for _, e := range run.Entries {
		info, err := os.Stat(filepath.Join(run.Dir, e.Name+".pdf"))
		require.NoError(t, err)
		require.Equal(t, info.Size(), e.Size)
	}

	manifest, err := os.ReadFile(filepath.Join(run.Dir, "lista.txt"))
	require.NoError(t, err)
	require.Contains(t, string(manifest), "EXPEDIENTE: "+testRadicado)
	require.Contains(t, string(manifest), "Auto admisorio")
	require.Contains(t, string(manifest), "Demanda")

	_, err = os.Stat(filepath.Join(run.Dir, "ledger.db"))
	require.NoError(t, err)
}

func TestAcquireFollowsPagination(t *testing.T) {
	driver := newFakeDriver()
	driver.pages = [][]fakeStep{
		{{date: "2024-01-10", name: "Auto admite demanda", files: []string{"Auto admisorio"}}},
		{{date: "2024-05-20", name: "Sentencia", files: []string{"Sentencia de primera instancia"}}},
	}

	svc := newTestService(t, driver, testConfig(t))
	run, err := svc.Acquire(context.Background(), testRadicado, AcquireOptions{})
	require.NoError(t, err)

	var names []string
	for _, e := range run.Entries {
		names = append(names, e.Name)
	}
	require.Equal(t, []string{"Auto admisorio", "Sentencia de primera instancia"}, names)

	// enumeration stopped on the last page: no link to a third page exists
	require.Equal(t, 1, driver.pageIdx)
}

func TestSearchRecoversFromCaptchaRejection(t *testing.T) {
	driver := newFakeDriver()
	driver.captchaFails = 2
	driver.pages = [][]fakeStep{{
		{date: "2024-02-01", name: "Auto admite demanda"},
	}}

	svc := newTestService(t, driver, testConfig(t))
	run, err := svc.Acquire(context.Background(), testRadicado, AcquireOptions{})
	require.NoError(t, err)
	require.Equal(t, "2024-02-01", run.AdmissionDate)

	// two rejected submissions, each followed by a challenge refresh,
	// then success on the third within the attempt budget
	require.Equal(t, 3, driver.searchSubmits)
	require.Equal(t, 2, driver.captchaClicks)
}

func TestAcquireToleratesPerItemFailures(t *testing.T) {
	driver := newFakeDriver()
	driver.pages = [][]fakeStep{{
		{date: "2024-02-01", name: "Auto admite demanda", files: []string{"Oficio A", "Oficio B", "Oficio C"}},
	}}
	driver.fetch = func(url string) ([]byte, error) {
		if strings.Contains(url, "doc=0_0_1") {
			return nil, errors.New("gateway timeout")
		}
		return []byte("%PDF-1.4\n" + strings.Repeat("x", 300)), nil
	}

	svc := newTestService(t, driver, testConfig(t))
	run, err := svc.Acquire(context.Background(), testRadicado, AcquireOptions{})
	require.NoError(t, err)

	require.Len(t, run.Entries, 2)
	require.Len(t, run.Errors, 1)
	require.Equal(t, "Oficio B", run.Errors[0].Item)
	require.Equal(t, "2024-02-01", run.Errors[0].Date)

	// the broken item was retried to its budget, the rest were not
	brokenURL := "https://portal.example/app/Descargando.aspx?doc=0_0_1"
	require.Equal(t, svc.cfg.StepFileAttempts, driver.fetchCalls[brokenURL])
}

func TestAcquireSkipsNotifications(t *testing.T) {
	driver := newFakeDriver()
	driver.pages = [][]fakeStep{{
		{date: "2024-04-02", name: "Notificacion", files: []string{"Notificacion por estado", "Auto que resuelve"}},
	}}

	svc := newTestService(t, driver, testConfig(t))
	run, err := svc.Acquire(context.Background(), testRadicado, AcquireOptions{SkipNotifications: true})
	require.NoError(t, err)

	require.Len(t, run.Entries, 1)
	require.Equal(t, "Auto que resuelve", run.Entries[0].Name)
	require.Len(t, run.Discarded, 1)
	require.Equal(t, "Notificacion por estado", run.Discarded[0].Name)

	_, err = os.Stat(filepath.Join(run.Dir, "Notificacion por estado.pdf"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestAcquireResumeSkipsExistingFiles(t *testing.T) {
	driver := newFakeDriver()
	driver.pages = [][]fakeStep{{
		{date: "2024-02-01", name: "Auto admite demanda", files: []string{"Auto admisorio"}},
	}}

	cfg := testConfig(t)
	dir := filepath.Join(cfg.OutputDir, testRadicado)
	require.NoError(t, os.MkdirAll(dir, 0755))
	existing := filepath.Join(dir, "Auto admisorio.pdf")
	require.NoError(t, os.WriteFile(existing, []byte(strings.Repeat("x", 2000)), 0644))

	svc := newTestService(t, driver, cfg)
	run, err := svc.Acquire(context.Background(), testRadicado, AcquireOptions{})
	require.NoError(t, err)

	require.Len(t, run.Entries, 1)
	require.Equal(t, int64(2000), run.Entries[0].Size)
	require.Empty(t, driver.fetchCalls)
}

func TestAcquireSearchExhaustion(t *testing.T) {
	driver := newFakeDriver()
	driver.resultFound = false

	cfg := testConfig(t)
	cfg.SearchAttempts = 3
	cfg.ResultWait = 10 * time.Millisecond

	svc := newTestService(t, driver, cfg)
	run, err := svc.Acquire(context.Background(), testRadicado, AcquireOptions{})
	require.ErrorIs(t, err, ErrCaseNotFound)
	require.NotNil(t, run)
	require.Equal(t, 3, driver.searchSubmits)

	// a fatal run still leaves its manifest and a diagnostic snapshot
	_, statErr := os.Stat(filepath.Join(run.Dir, "lista.txt"))
	require.NoError(t, statErr)
	require.Len(t, driver.screenshots, 1)
}

func TestAdmissionDateFirstMatchWins(t *testing.T) {
	driver := newFakeDriver()
	driver.pages = [][]fakeStep{{
		{date: "2024-01-15", name: "Auto admisorio de la demanda"},
		{date: "2024-06-20", name: "Auto que admite reforma"},
	}}

	svc := newTestService(t, driver, testConfig(t))
	run, err := svc.Acquire(context.Background(), testRadicado, AcquireOptions{})
	require.NoError(t, err)
	require.Equal(t, "2024-01-15", run.AdmissionDate)
}

func TestNewServiceKeepsCallerConfig(t *testing.T) {
	cfg := Config{
		SearchURL: "https://portal.example/custom/frmConsulta.aspx",
		OutputDir: filepath.Join(t.TempDir(), "casos"),
	}
	svc := NewService(newFakeDriver(), cfg)

	require.Equal(t, "https://portal.example/custom/frmConsulta.aspx", svc.cfg.SearchURL)
	require.Equal(t, cfg.OutputDir, svc.cfg.OutputDir)

	// unset knobs still pick up production defaults
	def := DefaultConfig()
	require.Equal(t, def.SearchAttempts, svc.cfg.SearchAttempts)
	require.Equal(t, def.MinExistingSize, svc.cfg.MinExistingSize)
	require.NotNil(t, svc.cfg.SearchBackoff)
	require.Equal(t, def.GridWait, svc.cfg.GridWait)
}

func TestManifestClaimInheritsAdmissionDate(t *testing.T) {
	run := newRun(testRadicado, t.TempDir(), false)
	run.AdmissionDate = "2024-02-01"
	run.addEntry(ManifestEntry{Date: NoDate, Name: "Demanda", Kind: KindCaseFile, Size: 1024})
	run.addEntry(ManifestEntry{Date: NoDate, Name: "Anexos", Kind: KindCaseFile, Size: 2048})
	run.addEntry(ManifestEntry{Date: "2024-03-10", Name: "Oficio 123", Kind: KindProcedural, Size: 512})

	svc := newTestService(t, newFakeDriver(), testConfig(t))
	require.NoError(t, svc.writeManifest(run))

	body, err := os.ReadFile(filepath.Join(run.Dir, "lista.txt"))
	require.NoError(t, err)
	text := string(body)

	require.Contains(t, text, "Fecha de admision: 2024-02-01")
	claimLine := lineContaining(t, text, "Demanda ")
	require.Contains(t, claimLine, "2024-02-01")
	annexLine := lineContaining(t, text, "Anexos")
	require.Contains(t, annexLine, NoDate)

	// case-level documents render before the procedural history
	require.Less(t, strings.Index(text, "DOCUMENTOS DEL EXPEDIENTE"), strings.Index(text, "DOCUMENTOS DE ACTUACIONES"))
}

func lineContaining(t *testing.T, text, needle string) string {
	t.Helper()
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, needle) {
			return line
		}
	}
	t.Fatalf("no line containing %q", needle)
	return ""
}
