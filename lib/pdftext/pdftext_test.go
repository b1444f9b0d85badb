package pdftext

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFirstPageTextMissingFile(t *testing.T) {
	_, err := FirstPageText(filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
}

func TestFirstPageTextGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notapdf.pdf")
	err := os.WriteFile(path, []byte("<html><body>Error del servidor</body></html>"), 0644)
	require.NoError(t, err)

	_, err = FirstPageText(path)
	require.Error(t, err)
}

func TestValidateGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pdf")
	err := os.WriteFile(path, []byte("%PDF-1.4 truncated"), 0644)
	require.NoError(t, err)

	require.Error(t, Validate(path))
}

func TestPageCountGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pdf")
	err := os.WriteFile(path, []byte("<html>504 Gateway Timeout</html>"), 0644)
	require.NoError(t, err)

	_, err = PageCount(path)
	require.Error(t, err)
}
