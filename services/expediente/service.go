// Package expediente acquires every document attached to a judicial case
// file on the consultation portal, decides which of them are substantive,
// and produces a deduplicated, ordered manifest of what was kept.
//
// One Acquire call is one run: a single portal session driven sequentially
// (the portal is session-stateful, clicking a row replaces server-rendered
// content), with bounded retries around the hostile parts and a hard rule
// that already-fetched work is never lost to a later failure.
package expediente

import (
	"time"
	"tybafetch/lib/pdftext"
	"tybafetch/lib/portal"
	"tybafetch/lib/retry"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/expediente")

// Config carries the tuning knobs of an acquisition run. The defaults are
// the battle-tested values of the legacy workflow; tests shrink the waits.
type Config struct {
	// SearchURL is the consultation form address.
	SearchURL string
	// OutputDir is the root under which per-case directories are created.
	OutputDir string

	// SearchAttempts bounds captcha-rejected search submissions.
	SearchAttempts int
	// CaseFileAttempts bounds download retries for case-level files.
	CaseFileAttempts int
	// StepFileAttempts bounds download retries for step attachments.
	StepFileAttempts int

	// MinExistingSize guards resume against previously-truncated files.
	MinExistingSize int64
	// MinDownloadSize guards against error pages saved as documents.
	MinDownloadSize int64

	// SearchBackoff, CaseFileBackoff and StepFileBackoff control the
	// politeness delays between retries.
	SearchBackoff   retry.BackoffFunc
	CaseFileBackoff retry.BackoffFunc
	StepFileBackoff retry.BackoffFunc

	// Wait timeouts for the portal's slower renders.
	ResultWait    time.Duration // search result row
	DetailWait    time.Duration // document-tabs UI after opening the case
	ViewerWait    time.Duration // PDF viewer iframe
	GeneratorWait time.Duration // child-window PDF generator
	FetchTimeout  time.Duration // case-level document fetch
	GenFetchTime  time.Duration // generator fetch, servers are very slow here
	GridWait      time.Duration // grid reload after returning from a detail view
}

// DefaultConfig returns production tuning.
func DefaultConfig() Config {
	return Config{
		SearchURL:        "https://procesojudicial.ramajudicial.gov.co/Justicia21/Administracion/Ciudadanos/frmConsulta.aspx",
		OutputDir:        ".",
		SearchAttempts:   8,
		CaseFileAttempts: 2,
		StepFileAttempts: 3,
		MinExistingSize:  1000,
		MinDownloadSize:  100,
		SearchBackoff:    retry.Incremental(5*time.Second, 2*time.Second),
		CaseFileBackoff:  retry.Fixed(2 * time.Second),
		StepFileBackoff:  retry.Incremental(3*time.Second, 2*time.Second),
		ResultWait:       8 * time.Second,
		DetailWait:       45 * time.Second,
		ViewerWait:       30 * time.Second,
		GeneratorWait:    30 * time.Second,
		FetchTimeout:     60 * time.Second,
		GenFetchTime:     120 * time.Second,
		GridWait:         15 * time.Second,
	}
}

// Service runs acquisitions against one portal driver.
type Service struct {
	driver     portal.Driver
	classifier Classifier
	cfg        Config

	// extractText is swappable so classification tests don't need real
	// PDFs; the default treats any extraction failure as "no content".
	extractText func(path string) (string, error)
	// validate structurally checks a downloaded body once written; nil
	// result means plausible PDF. Swappable for the same reason.
	validate func(path string) error
}

func NewService(driver portal.Driver, cfg Config) *Service {
	return &Service{
		driver:      driver,
		cfg:         withDefaults(cfg),
		extractText: pdftext.FirstPageText,
		validate:    pdftext.Validate,
	}
}

// withDefaults fills only the zero-valued knobs; fields the caller set
// deliberately are never overwritten.
func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.SearchURL == "" {
		cfg.SearchURL = def.SearchURL
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = def.OutputDir
	}
	if cfg.SearchAttempts == 0 {
		cfg.SearchAttempts = def.SearchAttempts
	}
	if cfg.CaseFileAttempts == 0 {
		cfg.CaseFileAttempts = def.CaseFileAttempts
	}
	if cfg.StepFileAttempts == 0 {
		cfg.StepFileAttempts = def.StepFileAttempts
	}
	if cfg.MinExistingSize == 0 {
		cfg.MinExistingSize = def.MinExistingSize
	}
	if cfg.MinDownloadSize == 0 {
		cfg.MinDownloadSize = def.MinDownloadSize
	}
	if cfg.SearchBackoff == nil {
		cfg.SearchBackoff = def.SearchBackoff
	}
	if cfg.CaseFileBackoff == nil {
		cfg.CaseFileBackoff = def.CaseFileBackoff
	}
	if cfg.StepFileBackoff == nil {
		cfg.StepFileBackoff = def.StepFileBackoff
	}
	if cfg.ResultWait == 0 {
		cfg.ResultWait = def.ResultWait
	}
	if cfg.DetailWait == 0 {
		cfg.DetailWait = def.DetailWait
	}
	if cfg.ViewerWait == 0 {
		cfg.ViewerWait = def.ViewerWait
	}
	if cfg.GeneratorWait == 0 {
		cfg.GeneratorWait = def.GeneratorWait
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = def.FetchTimeout
	}
	if cfg.GenFetchTime == 0 {
		cfg.GenFetchTime = def.GenFetchTime
	}
	if cfg.GridWait == 0 {
		cfg.GridWait = def.GridWait
	}
	return cfg
}

// firstPageOrEmpty extracts first-page text, degrading extraction failure
// to "no content available" as the classifier contract requires.
func (s *Service) firstPageOrEmpty(path string) string {
	text, err := s.extractText(path)
	if err != nil {
		return ""
	}
	return text
}
