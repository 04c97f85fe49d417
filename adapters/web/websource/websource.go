package websource

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/Abraxas-365/finrag/datasource"
	"github.com/Abraxas-365/finrag/document"
)

const DefaultTimeout = 60 * time.Second

// WebSource loads http(s) URLs.
type WebSource struct {
	client *http.Client
	opts   datasource.LoadOptions
}

var _ datasource.Loader = (*WebSource)(nil)

func NewWebSource(timeout time.Duration, opts ...datasource.Option) *WebSource {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &WebSource{
		client: &http.Client{
			Timeout: timeout,
		},
		opts: datasource.ApplyOptions(opts...),
	}
}

func (w *WebSource) Load(ctx context.Context, url string) (<-chan document.Page, <-chan error) {
	return datasource.Stream(ctx, func(emit func(document.Page) bool) error {
		content, contentType, err := w.fetchURL(ctx, url)
		if err != nil {
			return err
		}

		pages, err := datasource.Parse(ctx, url, content, contentType, w.opts)
		if err != nil {
			return err
		}
		for _, p := range pages {
			if !emit(p) {
				return nil
			}
		}
		return nil
	})
}

func (w *WebSource) fetchURL(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", &datasource.DataSourceError{
			Source:  url,
			Op:      "fetchURL",
			Err:     err,
			Code:    datasource.ErrCodeInvalidSource,
			Message: "invalid URL",
		}
	}

	resp, err := w.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		return nil, "", &datasource.DataSourceError{
			Source:  url,
			Op:      "fetchURL",
			Err:     err,
			Code:    datasource.ErrCodeInternal,
			Message: "failed to fetch URL",
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		code := datasource.ErrCodeInternal
		switch resp.StatusCode {
		case http.StatusNotFound, http.StatusGone:
			code = datasource.ErrCodeNotFound
		case http.StatusUnauthorized, http.StatusForbidden:
			code = datasource.ErrCodeAccessDenied
		}
		return nil, "", &datasource.DataSourceError{
			Source:  url,
			Op:      "fetchURL",
			Code:    code,
			Message: "failed to fetch URL: " + resp.Status,
		}
	}

	reader := io.Reader(resp.Body)
	if w.opts.MaxBytes > 0 {
		reader = io.LimitReader(resp.Body, w.opts.MaxBytes+1)
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", &datasource.DataSourceError{
			Source:  url,
			Op:      "fetchURL",
			Err:     err,
			Code:    datasource.ErrCodeInternal,
			Message: "failed to read response body",
		}
	}
	if w.opts.MaxBytes > 0 && int64(len(content)) > w.opts.MaxBytes {
		return nil, "", &datasource.DataSourceError{
			Source:  url,
			Op:      "fetchURL",
			Code:    datasource.ErrCodeTooLarge,
			Message: "response exceeds size limit",
		}
	}

	return content, resp.Header.Get("Content-Type"), nil
}
