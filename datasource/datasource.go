package datasource

import (
	"context"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/Abraxas-365/finrag/document"
)

// Loader turns a source into a lazy stream of pages.
//
// The page channel is closed when loading ends. The error channel then
// yields at most one error and is closed. Loading stops early when ctx is
// cancelled, in which case ctx.Err() is reported.
type Loader interface {
	Load(ctx context.Context, source string) (<-chan document.Page, <-chan error)
}

// Stream runs produce on its own goroutine and adapts it to the Loader
// channel contract. emit returns false once ctx is cancelled.
func Stream(ctx context.Context, produce func(emit func(document.Page) bool) error) (<-chan document.Page, <-chan error) {
	pages := make(chan document.Page)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(pages)

		emit := func(p document.Page) bool {
			select {
			case pages <- p:
				return true
			case <-ctx.Done():
				return false
			}
		}

		err := produce(emit)
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			errs <- err
		}
	}()

	return pages, errs
}

// Fail returns a finished stream carrying err.
func Fail(err error) (<-chan document.Page, <-chan error) {
	pages := make(chan document.Page)
	errs := make(chan error, 1)
	close(pages)
	errs <- err
	close(errs)
	return pages, errs
}

// Collect drains a page stream.
func Collect(pages <-chan document.Page, errs <-chan error) ([]document.Page, error) {
	var out []document.Page
	for p := range pages {
		out = append(out, p)
	}
	if err := <-errs; err != nil {
		return out, err
	}
	return out, nil
}

// Router picks a loader by the source's URL scheme. Sources without a
// scheme go to the "file" loader.
type Router struct {
	loaders map[string]Loader
}

var _ Loader = (*Router)(nil)

func NewRouter() *Router {
	return &Router{loaders: make(map[string]Loader)}
}

// Register routes the given schemes to l.
func (r *Router) Register(l Loader, schemes ...string) *Router {
	for _, s := range schemes {
		r.loaders[strings.ToLower(s)] = l
	}
	return r
}

func (r *Router) Load(ctx context.Context, source string) (<-chan document.Page, <-chan error) {
	scheme := Scheme(source)
	l, ok := r.loaders[scheme]
	if !ok {
		return Fail(&DataSourceError{
			Source:  source,
			Op:      "Load",
			Code:    ErrCodeInvalidSource,
			Message: "no loader registered for scheme " + scheme,
		})
	}
	return l.Load(ctx, source)
}

// Scheme returns the lower-cased URL scheme of source, or "file" for plain
// paths (including Windows drive paths).
func Scheme(source string) string {
	u, err := url.Parse(source)
	if err != nil || len(u.Scheme) <= 1 {
		return "file"
	}
	return strings.ToLower(u.Scheme)
}

// DisplayName returns the file name shown for a source in citations.
func DisplayName(source string) string {
	if Scheme(source) != "file" {
		u, err := url.Parse(source)
		if err == nil {
			if base := path.Base(u.Path); base != "/" && base != "." {
				return base
			}
			if u.Host != "" {
				return u.Host
			}
		}
		return source
	}
	return filepath.Base(strings.TrimPrefix(source, "file://"))
}
