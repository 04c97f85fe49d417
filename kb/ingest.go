package kb

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/Abraxas-365/finrag/datasource"
	"github.com/Abraxas-365/finrag/document"
	"github.com/Abraxas-365/finrag/embedding"
)

// ProgressFunc receives ingestion progress as a percentage in [0, 100].
// Reported values never decrease.
type ProgressFunc func(percent int)

// IngestResult summarises a successful ingestion.
type IngestResult struct {
	Source   string
	FileName string
	Pages    int
	Chunks   int
	Duration time.Duration
}

// Progress milestones of an ingestion run.
const (
	progressStart     = 5
	progressLoaded    = 20
	progressChunked   = 40
	progressEmbedded  = 80
	progressCompleted = 100
)

// progress keeps reported values monotonic and mirrors them to the catalog.
type progress struct {
	kb     *KnowledgeBase
	ctx    context.Context
	source string
	fn     ProgressFunc
	last   int
}

func (p *progress) report(percent int) {
	if percent <= p.last {
		return
	}
	p.last = percent

	if p.fn != nil {
		p.fn(percent)
	}
	if c := p.kb.opts.Catalog; c != nil && percent < progressCompleted {
		if err := c.Progress(p.ctx, p.source, percent); err != nil {
			p.kb.logger.Warn("catalog progress update failed", "source", p.source, "error", err)
		}
	}
}

// Ingest loads source, chunks its pages, embeds every chunk and upserts
// them into the collection in one call. On cancellation nothing is
// written and the error matches ErrCancelled.
func (kb *KnowledgeBase) Ingest(ctx context.Context, source string, fn ProgressFunc) (*IngestResult, error) {
	start := time.Now()
	name := datasource.DisplayName(source)
	logger := kb.logger.With("source", source)

	// Catalog writes must land even after ctx is cancelled.
	bookkeeping := context.WithoutCancel(ctx)
	kb.register(bookkeeping, logger, source, name)

	p := &progress{kb: kb, ctx: bookkeeping, source: source, fn: fn}
	p.report(progressStart)
	logger.Info("ingestion started")

	result, err := kb.ingest(ctx, logger, source, name, p)
	if err != nil {
		logger.Error("ingestion failed", "error", err, "progress", p.last)
		if c := kb.opts.Catalog; c != nil {
			if cerr := c.Failed(bookkeeping, source, p.last, err); cerr != nil {
				logger.Warn("catalog update failed", "error", cerr)
			}
		}
		return nil, err
	}

	result.Duration = time.Since(start)
	if c := kb.opts.Catalog; c != nil {
		if err := c.Ingested(bookkeeping, source, result.Chunks); err != nil {
			logger.Warn("catalog update failed", "error", err)
		}
	}
	logger.Info("ingestion complete", "pages", result.Pages, "chunks", result.Chunks, "duration", result.Duration)

	return result, nil
}

func (kb *KnowledgeBase) register(ctx context.Context, logger *slog.Logger, source, name string) {
	c := kb.opts.Catalog
	if c == nil {
		return
	}

	var size int64
	if datasource.Scheme(source) == "file" {
		if info, err := os.Stat(source); err == nil {
			size = info.Size()
		}
	}
	if _, err := c.Register(ctx, source, name, size); err != nil {
		logger.Warn("catalog register failed", "error", err)
	}
}

func (kb *KnowledgeBase) ingest(ctx context.Context, logger *slog.Logger, source, name string, p *progress) (*IngestResult, error) {
	pages, err := kb.loadPages(ctx, source, p)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, emptyDocumentError(source, "no pages loaded")
	}
	p.report(progressLoaded)
	logger.Debug("pages loaded", "pages", len(pages))

	var chunks []document.Chunk
	for i, page := range pages {
		chunks = append(chunks, kb.splitter.Chunk(page, name)...)
		p.report(progressLoaded + (progressChunked-progressLoaded)*(i+1)/len(pages))
	}
	if len(chunks) == 0 {
		return nil, emptyDocumentError(source, "no chunks produced")
	}
	logger.Debug("pages chunked", "chunks", len(chunks))

	for i := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, cancelledError("Ingest", source, err)
		}

		vector, err := kb.embedder.Embed(ctx, chunks[i].Text)
		if err != nil {
			if isCancellation(ctx, err) {
				return nil, cancelledError("Ingest", source, ctxErr(ctx, err))
			}
			return nil, newError("Ingest", ErrCodeEmbedFailed, source, "failed to embed chunk "+chunks[i].ID, err)
		}
		if len(vector) == 0 {
			return nil, newError("Ingest", ErrCodeEmbedFailed, source, "failed to embed chunk "+chunks[i].ID,
				embedding.ErrEmptyResponse("Embed"))
		}
		chunks[i].Vector = vector

		p.report(progressChunked + (progressEmbedded-progressChunked)*(i+1)/len(chunks))
	}

	if err := ctx.Err(); err != nil {
		return nil, cancelledError("Ingest", source, err)
	}
	p.report(progressEmbedded)

	if err := kb.vStore.Upsert(ctx, kb.opts.Collection, chunks); err != nil {
		if isCancellation(ctx, err) {
			return nil, cancelledError("Ingest", source, ctxErr(ctx, err))
		}
		return nil, newError("Ingest", ErrCodeStoreFailed, source, "failed to store chunks", err)
	}
	p.report(progressCompleted)

	return &IngestResult{
		Source:   source,
		FileName: name,
		Pages:    len(pages),
		Chunks:   len(chunks),
	}, nil
}

// loadPages drains the loader, reporting progress between start and the
// loaded milestone. The page count is unknown up front, so each page moves
// progress one point until the milestone is nearly reached.
func (kb *KnowledgeBase) loadPages(ctx context.Context, source string, p *progress) ([]document.Page, error) {
	pageCh, errCh := kb.loader.Load(ctx, source)

	var pages []document.Page
	for page := range pageCh {
		if err := ctx.Err(); err != nil {
			return nil, cancelledError("Ingest", source, err)
		}
		pages = append(pages, page)
		p.report(min(progressStart+len(pages), progressLoaded-1))
	}

	if err := <-errCh; err != nil {
		if isCancellation(ctx, err) {
			return nil, cancelledError("Ingest", source, ctxErr(ctx, err))
		}
		return nil, newError("Ingest", ErrCodeLoadFailed, source, "failed to load document", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelledError("Ingest", source, err)
	}
	return pages, nil
}

// ctxErr prefers the context's own error so callers can match it.
func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
