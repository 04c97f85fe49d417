package datasource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/Abraxas-365/finrag/document"
	"golang.org/x/net/html"
)

// Format is a document encoding a loader knows how to turn into pages.
type Format string

const (
	FormatUnknown Format = ""
	FormatPDF     Format = "pdf"
	FormatText    Format = "text"
	FormatHTML    Format = "html"
)

// PageBreak separates pages in extracted text.
const PageBreak = "\f"

var textExtensions = map[string]bool{
	".txt": true, ".text": true, ".md": true, ".markdown": true,
	".csv": true, ".tsv": true, ".json": true, ".log": true,
}

// DetectFormat classifies a document by content type, then by extension.
func DetectFormat(name, contentType string) Format {
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			switch {
			case mt == "application/pdf":
				return FormatPDF
			case mt == "text/html" || mt == "application/xhtml+xml":
				return FormatHTML
			case strings.HasPrefix(mt, "text/"):
				return FormatText
			}
		}
	}

	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case ext == ".pdf":
		return FormatPDF
	case ext == ".html" || ext == ".htm":
		return FormatHTML
	case textExtensions[ext]:
		return FormatText
	}
	return FormatUnknown
}

// SplitPages splits text on form feeds into 1-based pages. Blank pages are
// dropped but still advance the page number.
func SplitPages(text string) []document.Page {
	var pages []document.Page
	for i, part := range strings.Split(text, PageBreak) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		pages = append(pages, document.Page{Text: part, Number: i + 1})
	}
	return pages
}

// Parse converts raw document bytes into pages.
func Parse(ctx context.Context, source string, data []byte, contentType string, opts LoadOptions) ([]document.Page, error) {
	switch DetectFormat(DisplayName(source), contentType) {
	case FormatPDF:
		return PDFBytesPages(ctx, opts.PDFToText, data)
	case FormatHTML:
		text, err := HTMLText(bytes.NewReader(data))
		if err != nil {
			return nil, newError(source, "Parse", ErrCodeInvalidFormat, "failed to parse html", err)
		}
		return SplitPages(text), nil
	case FormatText:
		return SplitPages(string(data)), nil
	}

	if utf8.Valid(data) {
		return SplitPages(string(data)), nil
	}
	return nil, newError(source, "Parse", ErrCodeInvalidFormat, "unsupported document format", nil)
}

// PDFPages extracts the pages of the PDF at path with pdftotext.
func PDFPages(ctx context.Context, bin, path string) ([]document.Page, error) {
	if bin == "" {
		bin = DefaultPDFToText
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-enc", "UTF-8", "-layout", path, "-")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, newError(path, "PDFPages", ErrCodeExtractFailed,
			fmt.Sprintf("pdftotext failed: %s", strings.TrimSpace(stderr.String())), err)
	}

	return SplitPages(stdout.String()), nil
}

// PDFBytesPages writes data to a temporary file and extracts it.
func PDFBytesPages(ctx context.Context, bin string, data []byte) ([]document.Page, error) {
	f, err := os.CreateTemp("", "finrag-*.pdf")
	if err != nil {
		return nil, newError("", "PDFBytesPages", ErrCodeInternal, "failed to create temp file", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, newError("", "PDFBytesPages", ErrCodeInternal, "failed to write temp file", err)
	}
	if err := f.Close(); err != nil {
		return nil, newError("", "PDFBytesPages", ErrCodeInternal, "failed to close temp file", err)
	}

	return PDFPages(ctx, bin, f.Name())
}

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"table": true, "section": true, "article": true,
}

// HTMLText returns the visible text of an HTML document. Block elements
// become paragraph breaks.
func HTMLText(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	var b strings.Builder
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return "", err
			}
			return strings.TrimSpace(b.String()), nil
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" || tag == "noscript" {
				skip++
			} else if blockTags[tag] {
				b.WriteString("\n\n")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style" || tag == "noscript") && skip > 0 {
				skip--
			} else if blockTags[tag] {
				b.WriteString("\n\n")
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			if text := strings.Join(strings.Fields(string(z.Text())), " "); text != "" {
				if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
					b.WriteByte(' ')
				}
				b.WriteString(text)
			}
		}
	}
}
