package textload

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kra-data/notice-cli/internal/config"
)

// pdfLoader extracts PDF text with the poppler and tesseract CLI tools.
type pdfLoader struct {
	pdftotext string
	pdftoppm  string
	tesseract string
	dpi       int
	// minTextLen is the digital-text threshold. pdftotext output shorter
	// than this means a scanned document, which needs image OCR instead.
	minTextLen int
}

func newPDFLoader(cfg config.OCRConfig) *pdfLoader {
	l := &pdfLoader{
		pdftotext:  cfg.PdfToTextPath,
		pdftoppm:   cfg.PdfToPpmPath,
		tesseract:  cfg.TesseractPath,
		dpi:        cfg.DPI,
		minTextLen: cfg.MinTextLen,
	}
	if l.pdftotext == "" {
		l.pdftotext = "pdftotext"
	}
	if l.pdftoppm == "" {
		l.pdftoppm = "pdftoppm"
	}
	if l.tesseract == "" {
		l.tesseract = "tesseract"
	}
	if l.dpi <= 0 {
		l.dpi = 300
	}
	if l.minTextLen <= 0 {
		l.minTextLen = 100
	}
	return l
}

func (l *pdfLoader) load(ctx context.Context, path string) (string, Method, error) {
	text, err := l.digitalText(ctx, path)
	if err != nil {
		return "", "", err
	}
	if len(strings.TrimSpace(text)) >= l.minTextLen {
		return text, MethodPDFText, nil
	}

	zap.L().Info("textload: short digital text, falling back to image OCR",
		zap.String("path", path),
		zap.Int("chars", len(strings.TrimSpace(text))),
	)
	ocrText, err := l.imageOCR(ctx, path)
	if err != nil {
		// A scanned PDF with no OCR toolchain still yields whatever
		// pdftotext found rather than failing the document outright.
		zap.L().Warn("textload: image OCR failed, keeping digital text",
			zap.String("path", path),
			zap.Error(err),
		)
		return text, MethodPDFText, nil
	}
	return ocrText, MethodPDFOCR, nil
}

// digitalText runs pdftotext -layout and returns stdout.
func (l *pdfLoader) digitalText(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, l.pdftotext, "-layout", path, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "textload: pdftotext failed for %s: %s", path, stderr.String())
	}
	return stdout.String(), nil
}

// imageOCR renders each page to PNG with pdftoppm and recognizes it with
// tesseract, concatenating the page texts in order.
func (l *pdfLoader) imageOCR(ctx context.Context, path string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "notice-ocr-*")
	if err != nil {
		return "", eris.Wrap(err, "textload: create temp dir")
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	render := exec.CommandContext(ctx, l.pdftoppm,
		"-r", strconv.Itoa(l.dpi), "-png", path, prefix)
	var stderr bytes.Buffer
	render.Stderr = &stderr
	if err := render.Run(); err != nil {
		return "", eris.Wrapf(err, "textload: pdftoppm failed for %s: %s", path, stderr.String())
	}

	pages, err := filepath.Glob(prefix + "*.png")
	if err != nil {
		return "", eris.Wrap(err, "textload: glob pages")
	}
	if len(pages) == 0 {
		return "", eris.Errorf("textload: pdftoppm produced no pages for %s", path)
	}
	sort.Strings(pages)

	var sb strings.Builder
	for _, page := range pages {
		recognize := exec.CommandContext(ctx, l.tesseract, page, "stdout")
		var out, rerr bytes.Buffer
		recognize.Stdout = &out
		recognize.Stderr = &rerr
		if err := recognize.Run(); err != nil {
			return "", eris.Wrapf(err, "textload: tesseract failed for %s: %s", page, rerr.String())
		}
		sb.WriteString(out.String())
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}
