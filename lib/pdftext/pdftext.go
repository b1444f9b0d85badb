// Package pdftext reads just enough of a downloaded PDF to support
// classification: the text of the first page, and a structural sanity check
// that catches portal error pages saved with a .pdf extension.
//
// Extraction failure is a normal outcome here. Scanned documents have no
// text layer and the portal occasionally serves half-generated files;
// callers must treat an error as "no content available", never as fatal.
package pdftext

import (
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// FirstPageText extracts the plain text of page 1.
func FirstPageText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	if reader.NumPage() < 1 {
		return "", fmt.Errorf("pdf %s has no pages", path)
	}

	page := reader.Page(1)
	if page.V.IsNull() {
		return "", fmt.Errorf("pdf %s: first page is null", path)
	}

	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extract text from %s: %w", path, err)
	}
	return text, nil
}

// Validate runs pdfcpu's structural validation over the file. A body the
// portal produced by rendering an HTML error page will fail here even when
// it clears the minimum byte threshold.
func Validate(path string) error {
	if err := api.ValidateFile(path, nil); err != nil {
		return fmt.Errorf("validate %s: %w", path, err)
	}
	n, err := PageCount(path)
	if err != nil {
		return err
	}
	if n < 1 {
		return fmt.Errorf("validate %s: document has no pages", path)
	}
	return nil
}

// PageCount returns the number of pages in the document.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("page count of %s: %w", path, err)
	}
	return n, nil
}
