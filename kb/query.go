package kb

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/Abraxas-365/finrag/llm"
	"github.com/Abraxas-365/finrag/prompt"
	"github.com/Abraxas-365/finrag/vectorstore"
)

// NoContextNotice replaces the context when retrieval finds nothing.
const NoContextNotice = "No relevant context was found in the ingested documents."

// RerankKind tells how the final result list was produced.
type RerankKind int

const (
	Reranked RerankKind = iota
	FallbackUsed
)

func (k RerankKind) String() string {
	if k == Reranked {
		return "reranked"
	}
	return "fallback"
}

// RerankOutcome is the result of the rerank step. When Kind is
// FallbackUsed, Results are the first TopN retrieval results in retrieval
// order and Reason says why.
type RerankOutcome struct {
	Kind    RerankKind
	Results []vectorstore.SearchResult
	Reason  string
}

// Source is a citation for a context entry.
type Source struct {
	FileName   string
	PageNumber int
	Score      float32
}

// Retrieve returns up to CandidateLimit results for question.
func (kb *KnowledgeBase) Retrieve(ctx context.Context, question string) ([]vectorstore.SearchResult, error) {
	results, err := kb.vStore.Search(ctx, kb.opts.Collection, question, kb.opts.CandidateLimit)
	if err != nil {
		if isCancellation(ctx, err) {
			return nil, cancelledError("Query", "", ctxErr(ctx, err))
		}
		return nil, newError("Query", ErrCodeSearchFailed, "", "retrieval failed", err)
	}
	return results, nil
}

// Rerank narrows candidates to TopN. Reranker failures never propagate;
// they turn into a fallback to retrieval order.
func (kb *KnowledgeBase) Rerank(ctx context.Context, question string, candidates []vectorstore.SearchResult) RerankOutcome {
	topN := kb.opts.TopN
	fallback := func(reason string) RerankOutcome {
		return RerankOutcome{
			Kind:    FallbackUsed,
			Results: candidates[:min(topN, len(candidates))],
			Reason:  reason,
		}
	}

	if kb.opts.Reranker == nil {
		return fallback("no reranker configured")
	}

	results, err := kb.opts.Reranker.Rerank(ctx, question, candidates, topN)
	if err != nil {
		kb.logger.Warn("reranker failed, falling back to vector results", "top_n", topN, "error", err)
		return fallback(err.Error())
	}
	if len(results) > topN {
		results = results[:topN]
	}
	return RerankOutcome{Kind: Reranked, Results: results}
}

// BuildContext formats results into a context block of at most maxChars
// characters. Entries are added in order until the next one would exceed
// the budget; the first entry is always kept. Empty results yield
// NoContextNotice.
func BuildContext(results []vectorstore.SearchResult, maxChars int) string {
	text, _ := buildContext(results, maxChars)
	return text
}

func buildContext(results []vectorstore.SearchResult, maxChars int) (string, int) {
	if len(results) == 0 {
		return NoContextNotice, 0
	}

	var b strings.Builder
	length, used := 0, 0
	for _, r := range results {
		entry := fmt.Sprintf("Source: %s (Page %d)\nContent: %s\n---\n", r.Source, r.PageNumber, r.Text)
		n := utf8.RuneCountInString(entry)
		if length+n > maxChars && length > 0 {
			break
		}
		b.WriteString(entry)
		length += n
		used++
	}
	return b.String(), used
}

// Fragment is a piece of a generated answer. A fragment with Err set is
// the last one.
type Fragment struct {
	Text string
	Err  error
}

// Answer is a streaming answer to a question.
type Answer struct {
	Question string
	Outcome  RerankOutcome
	Sources  []Source
	Context  string
	Prompt   string

	fragments <-chan Fragment
	ctx       context.Context
	cancel    context.CancelFunc
	completed atomic.Bool
}

// Fragments yields the answer in generation order. The channel closes when
// generation ends, fails, or is cancelled.
func (a *Answer) Fragments() <-chan Fragment {
	return a.fragments
}

// Close stops generation. It is safe to call more than once.
func (a *Answer) Close() {
	a.cancel()
}

// Text drains the answer and returns the full text. If generation was cut
// short by cancellation the error matches ErrCancelled.
func (a *Answer) Text() (string, error) {
	defer a.Close()

	var b strings.Builder
	for f := range a.fragments {
		if f.Err != nil {
			return b.String(), f.Err
		}
		b.WriteString(f.Text)
	}
	if !a.completed.Load() {
		cause := a.ctx.Err()
		if cause == nil {
			cause = context.Canceled
		}
		return b.String(), cancelledError("Query", "", cause)
	}
	return b.String(), nil
}

// Query answers question from the ingested documents: retrieve, rerank,
// build a bounded context, render the prompt and stream the generation.
func (kb *KnowledgeBase) Query(ctx context.Context, question string) (*Answer, error) {
	if kb.opts.Generator == nil {
		return nil, newError("Query", ErrCodeNoGenerator, "", "cannot answer without a generator", ErrNoGenerator)
	}
	start := time.Now()

	kb.logger.Info("rag query: retrieval", "collection", kb.opts.Collection, "limit", kb.opts.CandidateLimit)
	candidates, err := kb.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}
	kb.logger.Info("rag query: retrieved", "results", len(candidates))

	kb.logger.Info("rag query: rerank", "candidates", len(candidates), "top_n", kb.opts.TopN)
	outcome := kb.Rerank(ctx, question, candidates)

	contextText, used := buildContext(outcome.Results, kb.opts.MaxContextChars)
	kb.logger.Debug("rag query: context built",
		"chars", utf8.RuneCountInString(contextText),
		"estimated_tokens", kb.opts.Tokenizer.CountTokens(contextText),
		"sources", used,
	)

	tmpl, err := kb.opts.Prompts.Load(kb.opts.PromptName)
	if err != nil {
		return nil, newError("Query", ErrCodePromptFailed, "", "failed to load prompt template", err)
	}
	rendered, err := tmpl.Render(prompt.Data{Context: contextText, Question: question})
	if err != nil {
		return nil, newError("Query", ErrCodePromptFailed, "", "failed to render prompt", err)
	}

	kb.logger.Info("rag query: generation", "prompt_chars", len(rendered))
	genCtx, cancel := context.WithCancel(ctx)
	stream, err := kb.opts.Generator.Stream(genCtx, rendered, kb.opts.GenerateOptions...)
	if err != nil {
		cancel()
		if isCancellation(ctx, err) {
			return nil, cancelledError("Query", "", ctxErr(ctx, err))
		}
		return nil, newError("Query", ErrCodeGenerateFail, "", "failed to start generation", err)
	}

	sources := make([]Source, used)
	for i, r := range outcome.Results[:used] {
		sources[i] = Source{FileName: r.Source, PageNumber: r.PageNumber, Score: r.Score}
	}

	answer := &Answer{
		Question: question,
		Outcome:  outcome,
		Sources:  sources,
		Context:  contextText,
		Prompt:   rendered,
		ctx:      genCtx,
		cancel:   cancel,
	}
	answer.fragments = kb.relay(genCtx, answer, stream, start)
	return answer, nil
}

// relay forwards generator responses as fragments until the stream ends or
// ctx is cancelled.
func (kb *KnowledgeBase) relay(ctx context.Context, a *Answer, stream <-chan llm.StreamResponse, start time.Time) <-chan Fragment {
	out := make(chan Fragment)

	send := func(f Fragment) bool {
		select {
		case out <- f:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(out)
		defer a.cancel()

		fragments := 0
		for {
			select {
			case <-ctx.Done():
				return
			case resp, ok := <-stream:
				if !ok {
					if ctx.Err() == nil {
						a.completed.Store(true)
					}
					kb.logger.Info("rag query: complete", "fragments", fragments, "duration", time.Since(start))
					return
				}
				if resp.Error != nil {
					kb.logger.Error("rag query: generation failed", "error", resp.Error)
					send(Fragment{Err: newError("Query", ErrCodeGenerateFail, "", "generation failed", resp.Error)})
					return
				}
				if resp.Content != "" {
					fragments++
					if !send(Fragment{Text: resp.Content}) {
						return
					}
				}
				if resp.Done {
					a.completed.Store(true)
					kb.logger.Info("rag query: complete", "fragments", fragments, "duration", time.Since(start))
					return
				}
			}
		}
	}()

	return out
}
