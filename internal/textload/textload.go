package textload

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/kra-data/notice-cli/internal/config"
)

// Method identifies how a document's text was acquired.
type Method string

const (
	MethodPDFText Method = "pdf-text"
	MethodPDFOCR  Method = "pdf-ocr"
	MethodDocx    Method = "docx"
)

// Loader pulls plain text out of notice documents. PDFs go through
// pdftotext with an image OCR fallback for scanned files; Word documents
// are unpacked directly.
type Loader struct {
	pdf  *pdfLoader
	docx *docxLoader
}

// New creates a Loader from OCR configuration.
func New(cfg config.OCRConfig) *Loader {
	return &Loader{
		pdf:  newPDFLoader(cfg),
		docx: &docxLoader{},
	}
}

// Load extracts text from the document at path, dispatching on extension.
// It reports which acquisition method produced the text.
func (l *Loader) Load(ctx context.Context, path string) (string, Method, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return l.pdf.load(ctx, path)
	case ".docx", ".doc":
		text, err := l.docx.load(path)
		return text, MethodDocx, err
	default:
		return "", "", eris.Errorf("textload: unsupported file type %q", filepath.Ext(path))
	}
}

// Supported reports whether the loader can handle the file at path.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".docx", ".doc":
		return true
	}
	return false
}
