package textload

import (
	"archive/zip"
	"encoding/xml"
	"strings"

	"github.com/rotisserie/eris"
)

// docxLoader reads Word documents. A docx file is a zip archive whose main
// body lives in word/document.xml; text runs sit in w:t elements and
// paragraphs become line breaks.
type docxLoader struct{}

type docxDocument struct {
	Body docxBody `xml:"body"`
}

type docxBody struct {
	Paragraphs []docxParagraph `xml:"p"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Texts []string `xml:"t"`
}

func (d *docxLoader) load(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", eris.Wrapf(err, "textload: open docx %s", path)
	}
	defer archive.Close()

	for _, file := range archive.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", eris.Wrap(err, "textload: open document.xml")
		}
		defer rc.Close()

		var doc docxDocument
		if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
			return "", eris.Wrap(err, "textload: decode document.xml")
		}

		var sb strings.Builder
		for _, para := range doc.Body.Paragraphs {
			for _, run := range para.Runs {
				for _, t := range run.Texts {
					sb.WriteString(t)
				}
			}
			sb.WriteByte('\n')
		}
		return sb.String(), nil
	}
	return "", eris.Errorf("textload: no document body in %s", path)
}
