// Package extract turns uploaded resume files into plain text.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatDOC  Format = "doc"
)

// Size caps for decoded content. Compressed uploads can expand far beyond the
// upload limit.
var (
	maxDocumentPartBytes int64 = 32 << 20
	maxTextBytes               = 2 << 20
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format, please use PDF, DOC, or DOCX")
	ErrLegacyDoc         = errors.New("DOC files cannot be read, please convert to PDF or DOCX")
	ErrNoText            = errors.New("failed to extract text from file")
)

// FormatFromFilename maps a file name to its format by extension.
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	case ".doc":
		return FormatDOC, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// Text extracts plain text. An empty result is reported as ErrNoText.
func Text(format Format, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch format {
	case FormatPDF:
		text, err = pdfText(data)
	case FormatDOCX:
		text, err = docxText(data)
	case FormatDOC:
		return "", ErrLegacyDoc
	default:
		return "", ErrUnsupportedFormat
	}
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoText
	}
	if len(text) > maxTextBytes {
		return "", fmt.Errorf("%w: text exceeds %d bytes", ErrNoText, maxTextBytes)
	}
	return text, nil
}

func pdfText(data []byte) (text string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: malformed pdf: %v", ErrNoText, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %v", ErrNoText, err)
	}
	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("%w: read page %d: %v", ErrNoText, i, err)
		}
		var lines []string
		for _, row := range rows {
			var b strings.Builder
			for _, word := range row.Content {
				b.WriteString(word.S)
			}
			if line := strings.TrimSpace(b.String()); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			pages = append(pages, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(pages, "\n"), nil
}

const docxBody = "word/document.xml"

// docxText reads the paragraphs of the main document part, one per line.
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: open docx: %v", ErrNoText, err)
	}
	var part *zip.File
	for _, f := range zr.File {
		if f.Name == docxBody {
			part = f
			break
		}
	}
	if part == nil {
		return "", fmt.Errorf("%w: %s missing", ErrNoText, docxBody)
	}
	if part.UncompressedSize64 > uint64(maxDocumentPartBytes) {
		return "", fmt.Errorf("%w: %s is %d bytes uncompressed", ErrNoText, docxBody, part.UncompressedSize64)
	}
	rc, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", ErrNoText, docxBody, err)
	}
	defer rc.Close()
	// The header size can lie, so the stream is capped as well.
	return paragraphs(io.LimitReader(rc, maxDocumentPartBytes))
}

func paragraphs(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		out     []string
		current strings.Builder
		inText  bool
		size    int
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: parse docx: %v", ErrNoText, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			case "br":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if line := strings.TrimSpace(current.String()); line != "" {
					out = append(out, line)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				size += len(t)
				if size > maxTextBytes {
					return "", fmt.Errorf("%w: text exceeds %d bytes", ErrNoText, maxTextBytes)
				}
				current.Write(t)
			}
		}
	}
	return strings.Join(out, "\n"), nil
}
