package datasource

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Abraxas-365/finrag/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLoader struct {
	pages []document.Page
	got   string
}

func (l *staticLoader) Load(ctx context.Context, source string) (<-chan document.Page, <-chan error) {
	l.got = source
	return Stream(ctx, func(emit func(document.Page) bool) error {
		for _, p := range l.pages {
			if !emit(p) {
				return nil
			}
		}
		return nil
	})
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"/data/reports/q3.pdf", "q3.pdf"},
		{"file:///data/reports/q3.pdf", "q3.pdf"},
		{"reports/annual.txt", "annual.txt"},
		{"s3://bucket/2024/annual.pdf", "annual.pdf"},
		{"https://example.com/ir/10-k.html?x=1", "10-k.html"},
		{"https://example.com/", "example.com"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DisplayName(tt.source), tt.source)
	}
}

func TestScheme(t *testing.T) {
	assert.Equal(t, "file", Scheme("/tmp/a.pdf"))
	assert.Equal(t, "file", Scheme(`C:\docs\a.pdf`))
	assert.Equal(t, "s3", Scheme("S3://bucket/key"))
	assert.Equal(t, "https", Scheme("https://example.com"))
}

func TestRouter(t *testing.T) {
	files := &staticLoader{pages: []document.Page{{Text: "local", Number: 1}}}
	web := &staticLoader{pages: []document.Page{{Text: "web", Number: 1}}}

	r := NewRouter().Register(files, "file").Register(web, "http", "https")

	pages, err := Collect(r.Load(context.Background(), "/tmp/a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "local", pages[0].Text)

	pages, err = Collect(r.Load(context.Background(), "https://example.com/a"))
	require.NoError(t, err)
	assert.Equal(t, "web", pages[0].Text)
	assert.Equal(t, "https://example.com/a", web.got)

	_, err = Collect(r.Load(context.Background(), "ftp://example.com/a"))
	var dsErr *DataSourceError
	require.True(t, errors.As(err, &dsErr))
	assert.Equal(t, ErrCodeInvalidSource, dsErr.Code)
}

func TestStream_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := &staticLoader{pages: []document.Page{{Text: "a", Number: 1}, {Text: "b", Number: 2}, {Text: "c", Number: 3}}}

	pages, errs := l.Load(ctx, "x")
	first := <-pages
	assert.Equal(t, "a", first.Text)
	cancel()

	for range pages {
	}
	assert.ErrorIs(t, <-errs, context.Canceled)
}

func TestStream_ProducerError(t *testing.T) {
	boom := errors.New("boom")
	pages, err := Collect(Stream(context.Background(), func(emit func(document.Page) bool) error {
		emit(document.Page{Text: "a", Number: 1})
		return boom
	}))
	assert.Len(t, pages, 1)
	assert.ErrorIs(t, err, boom)
}

func TestSplitPages(t *testing.T) {
	pages := SplitPages("first\fsecond\f  \ffourth\f")
	require.Len(t, pages, 3)
	assert.Equal(t, document.Page{Text: "first", Number: 1}, pages[0])
	assert.Equal(t, document.Page{Text: "second", Number: 2}, pages[1])
	assert.Equal(t, document.Page{Text: "fourth", Number: 4}, pages[2])

	assert.Empty(t, SplitPages("   "))
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name, contentType string
		want              Format
	}{
		{"a.pdf", "", FormatPDF},
		{"A.PDF", "", FormatPDF},
		{"a.md", "", FormatText},
		{"a.htm", "", FormatHTML},
		{"a.docx", "", FormatUnknown},
		{"download", "application/pdf", FormatPDF},
		{"page", "text/html; charset=utf-8", FormatHTML},
		{"x.bin", "text/plain", FormatText},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectFormat(tt.name, tt.contentType), tt.name)
	}
}

func TestHTMLText(t *testing.T) {
	doc := `<html><head><style>p{}</style><script>var x=1;</script></head>
<body><h1>Annual   Report</h1><p>Revenue was <b>$1B</b>.</p><p>Costs fell.</p></body></html>`

	text, err := HTMLText(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Contains(t, text, "Annual Report")
	assert.Contains(t, text, "Revenue was $1B .")
	assert.Contains(t, text, "Costs fell.")
	assert.NotContains(t, text, "var x")
	assert.NotContains(t, text, "p{}")
}

func TestParse(t *testing.T) {
	opts := DefaultLoadOptions()

	pages, err := Parse(context.Background(), "notes.txt", []byte("one\ftwo"), "", opts)
	require.NoError(t, err)
	assert.Len(t, pages, 2)

	pages, err = Parse(context.Background(), "https://x/page", []byte("<p>hello</p>"), "text/html", opts)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "hello", pages[0].Text)

	_, err = Parse(context.Background(), "blob.bin", []byte{0xff, 0xfe, 0x00}, "", opts)
	var dsErr *DataSourceError
	require.True(t, errors.As(err, &dsErr))
	assert.Equal(t, ErrCodeInvalidFormat, dsErr.Code)
}

func TestLoadOptions_Accept(t *testing.T) {
	o := ApplyOptions(WithFilter(func(name string) bool { return !strings.HasPrefix(name, "draft") }))
	assert.True(t, o.Accept("report.pdf"))
	assert.False(t, o.Accept("draft.pdf"))
	assert.False(t, o.Accept("image.png"))
}
