package resume

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

var ErrNoText = errors.New("resume: no text could be extracted")

// ExtractText returns the plain text of an uploaded file. Legacy .doc files
// are only readable when they are in fact OOXML containers.
func ExtractText(contentType string, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch mt := NormalizeMime(contentType); mt {
	case MimeText:
		text = string(data)
	case MimePDF:
		text, err = extractPDFText(bytes.NewReader(data))
	case MimeDOCX, MimeDOC:
		text, err = extractDocxText(bytes.NewReader(data))
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mt)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

// extractPDFText turns panics from the pdf reader on malformed input into
// errors.
func extractPDFText(reader *bytes.Reader) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("failed to read pdf: %v", r)
		}
	}()
	pdfReader, err := pdf.NewReader(reader, reader.Size())
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}
	var textBuilder strings.Builder
	numPages := pdfReader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		textBuilder.WriteString(pageText)
	}
	return textBuilder.String(), nil
}

func extractDocxText(reader io.ReaderAt) (string, error) {
	size := int64(0)
	if r, ok := reader.(*bytes.Reader); ok {
		size = r.Size()
	}
	doc, err := docx.ReadDocxFromMemory(reader, size)
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return stripTags(doc.Editable().GetContent()), nil
}

// stripTags reduces document.xml to its text runs, one paragraph per line.
func stripTags(xml string) string {
	var b strings.Builder
	inTag := false
	var tag strings.Builder
	for _, r := range xml {
		switch {
		case r == '<':
			inTag = true
			tag.Reset()
		case r == '>' && inTag:
			inTag = false
			switch tagName(tag.String()) {
			case "/w:p", "w:br", "w:cr":
				b.WriteByte('\n')
			case "w:tab":
				b.WriteByte('\t')
			}
		case inTag:
			tag.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return unescapeXML(b.String())
}

func tagName(t string) string {
	if i := strings.IndexAny(t, " \t\r\n"); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSuffix(t, "/")
}

var xmlUnescaper = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

func unescapeXML(s string) string { return xmlUnescaper.Replace(s) }
