// Command finrag ingests financial documents and answers questions about
// them with retrieval-augmented generation.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/Abraxas-365/finrag/catalog"
	"github.com/Abraxas-365/finrag/config"
	"github.com/Abraxas-365/finrag/kb"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "finrag",
		Short:         "Question answering over financial documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to finrag.yaml (default: ./finrag.yaml if present)")

	root.AddCommand(ingestCmd())
	root.AddCommand(queryCmd())
	root.AddCommand(documentsCmd())
	root.AddCommand(resetCmd())
	root.AddCommand(warmupCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// withApp loads configuration, applies flag overrides, wires the
// application and runs fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error, overrides ...func(*config.Config)) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	for _, override := range overrides {
		override(cfg)
	}
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func ingestCmd() *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "ingest <source>...",
		Short: "Ingest files, directories, s3:// objects or URLs",
		Long: `Ingest files, directories, s3:// objects or URLs.

Chunks are identified by the document's base name, page and position, so
base names must be unique per collection: ingesting a/2023/annual.pdf and
then b/2024/annual.pdf replaces the first document's chunks.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				sources, err := a.expand(ctx, args)
				if err != nil {
					return err
				}
				if len(sources) == 0 {
					return errors.New("no loadable documents found")
				}

				failed := 0
				for _, source := range sources {
					res, err := a.kb.Ingest(ctx, source, progressPrinter(source))
					fmt.Fprintln(os.Stderr)
					if errors.Is(err, kb.ErrCancelled) {
						return err
					}
					if err != nil {
						failed++
						fmt.Fprintf(os.Stderr, "failed %s: %v\n", source, err)
						continue
					}
					fmt.Printf("ingested %s: %d pages, %d chunks in %s\n",
						res.FileName, res.Pages, res.Chunks, res.Duration.Round(time.Millisecond))
				}

				if failed > 0 {
					return fmt.Errorf("%d of %d documents failed", failed, len(sources))
				}
				return nil
			}, func(cfg *config.Config) {
				if recursive {
					cfg.Loader.Recursive = true
				}
			})
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "descend into subdirectories and s3 sub-prefixes")
	return cmd
}

func progressPrinter(source string) kb.ProgressFunc {
	return func(percent int) {
		fmt.Fprintf(os.Stderr, "\r%s %3d%%", source, percent)
	}
}

func queryCmd() *cobra.Command {
	var showContext bool

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Answer a question from the ingested documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				answer, err := a.kb.Query(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				defer answer.Close()

				if showContext {
					fmt.Fprintf(os.Stderr, "%s\n", answer.Context)
				}
				if answer.Outcome.Kind == kb.FallbackUsed {
					a.logger.Debug("rerank skipped", "reason", answer.Outcome.Reason)
				}

				for frag := range answer.Fragments() {
					if frag.Err != nil {
						fmt.Println()
						return frag.Err
					}
					fmt.Print(frag.Text)
				}
				fmt.Println()
				if err := ctx.Err(); err != nil {
					return err
				}

				if len(answer.Sources) > 0 {
					fmt.Println("\nSources:")
					for _, s := range answer.Sources {
						fmt.Printf("  %s (page %d, score %.3f)\n", s.FileName, s.PageNumber, s.Score)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&showContext, "show-context", false, "print the assembled context to stderr")
	return cmd
}

func documentsCmd() *cobra.Command {
	var (
		statuses []string
		search   string
	)

	cmd := &cobra.Command{
		Use:   "documents",
		Short: "List catalog entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := catalog.Filter{Search: search}
			for _, s := range statuses {
				status := catalog.Status(s)
				if !status.Valid() {
					return fmt.Errorf("unknown status %q", s)
				}
				filter.Statuses = append(filter.Statuses, status)
			}

			return withApp(cmd, func(ctx context.Context, a *app) error {
				docs, err := a.kb.Documents(ctx, filter)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "FILE\tSTATUS\tPROGRESS\tCHUNKS\tUPDATED\tERROR")
				for _, d := range docs {
					fmt.Fprintf(w, "%s\t%s\t%d%%\t%d\t%s\t%s\n",
						d.FileName, d.Status, d.Progress, d.ChunkCount, d.UpdatedAt.Format("2006-01-02 15:04"), d.Error)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "filter by status (pending, processing, ingested, archived, error)")
	cmd.Flags().StringVar(&search, "search", "", "filter by file name substring")
	return cmd
}

func resetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the collection and clear the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return errors.New("refusing to reset without --force")
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.kb.Reset(ctx); err != nil {
					return err
				}
				fmt.Printf("collection %q reset\n", a.cfg.VectorStore.Collection)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "confirm deletion of all ingested data")
	return cmd
}

func warmupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "warmup",
		Short: "Load the embedding, reranking and generation models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				for _, r := range a.kb.WarmUp(ctx) {
					status := "ok"
					if r.Err != nil {
						status = r.Err.Error()
					}
					fmt.Printf("%-10s %s\n", r.Component, status)
				}
				return nil
			})
		},
	}
}
