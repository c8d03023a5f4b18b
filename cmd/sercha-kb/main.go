// Package main is the sercha-kb entry point: the HTTP API and the
// operator CLI share one wiring.
package main

// @title           Sercha KB API
// @version         1.0
// @description     Knowledge base API. Ingests documents into entities and chunks, answers entity, chunk and hybrid vector searches, governs relationship claims and records lineage.

// @contact.name   Sercha OSS
// @contact.url    https://github.com/custodia-labs/sercha-kb/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	_ "github.com/custodia-labs/sercha-kb/docs"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/connectors/filesystem"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-kb/internal/normalisers"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "sercha-kb",
		Short:         "Knowledge base indexing, search and graph governance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML); defaults to $SERCHA_KB_CONFIG or sercha-kb.yaml")

	// withApp wires the services for one command and releases them after
	withApp := func(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return run(cmd, a, args)
		}
	}

	cmd.AddCommand(
		serveCmd(withApp),
		ingestCmd(withApp),
		searchCmd(withApp),
		materializeCmd(withApp),
		promoteCmd(withApp),
		claimsCmd(withApp),
		embedCmd(withApp),
		lineageCmd(withApp),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "sercha-kb %s\n", version)
			},
		},
	)
	return cmd
}

type wrapFunc func(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error

func serveCmd(withApp wrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			server := http.NewServer(http.Config{
				Host:           a.cfg.Server.Host,
				Port:           a.cfg.Server.Port,
				Version:        version,
				AllowedOrigins: a.cfg.Server.AllowedOrigins,
			}, http.Services{
				Indexer:   a.indexer,
				Search:    a.search,
				Promotion: a.promotion,
				Lineage:   a.lineage,
				Runtime:   a.runtime.Config(),
			}, a.metrics, a.components, a.logger)

			a.logger.Info("API server starting", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port, "version", version)
			return server.Start(cmd.Context())
		}),
	}
}

func ingestCmd(withApp wrapFunc) *cobra.Command {
	var agent string

	cmd := &cobra.Command{
		Use:   "ingest [path...]",
		Short: "Ingest files, or every matching file under directories",
		Long: `Ingest reads each path. A file is ingested on its own; a directory is
walked with the source include and exclude globs and ingested as one run.
Without arguments the configured source root is ingested.`,
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if len(args) == 0 {
				args = []string{a.cfg.Source.Root}
			}
			opts := driving.BatchOptions{RunType: domain.RunManual, AgentName: agent}

			var files []domain.SourceDocument
			for _, p := range args {
				info, err := os.Stat(p)
				if err != nil {
					return err
				}
				if !info.IsDir() {
					doc, err := readDocument(p)
					if err != nil {
						return err
					}
					files = append(files, doc)
					continue
				}

				fsCfg := filesystem.DefaultConfig(p)
				fsCfg.Include = a.cfg.Source.Include
				fsCfg.Exclude = a.cfg.Source.Exclude
				source, err := filesystem.NewSource(fsCfg, a.logger)
				if err != nil {
					return err
				}
				res, err := a.indexer.IngestSource(cmd.Context(), source, opts)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			}

			if len(files) > 0 {
				res, err := a.indexer.IngestBatch(cmd.Context(), files, opts)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&agent, "agent", "", "Agent name recorded on the run")
	return cmd
}

func searchCmd(withApp wrapFunc) *cobra.Command {
	var (
		mode            string
		query           domain.HybridQuery
		contentMaxChars int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search entities, chunks, or both",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			query.Text = args[0]
			query.ContentMaxChars = contentMaxChars
			ctx := cmd.Context()

			var (
				res any
				err error
			)
			switch mode {
			case "entities":
				res, err = a.search.SearchEntities(ctx, query.SearchQuery)
			case "chunks":
				res, err = a.search.SearchChunks(ctx, query.SearchQuery)
			case "hybrid":
				res, err = a.search.SearchHybrid(ctx, query)
			default:
				return fmt.Errorf("%w: unknown search mode %q", domain.ErrValidation, mode)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		}),
	}
	f := cmd.Flags()
	f.StringVarP(&mode, "mode", "m", "hybrid", "Search mode (entities, chunks, hybrid)")
	f.StringVar(&query.Filters.Corpus, "corpus", "", "Restrict to a corpus")
	f.StringVar(&query.Filters.ContentType, "content-type", "", "Restrict to a content type")
	f.StringVar(&query.Filters.LifecycleStage, "lifecycle", "", "Restrict entities to a lifecycle stage")
	f.IntVarP(&query.Limit, "limit", "n", 0, "Maximum results")
	f.IntVar(&query.TopEntities, "top-entities", 0, "Entities considered by hybrid search")
	f.IntVar(&query.ChunksPerEntity, "chunks-per-entity", 0, "Chunks returned per entity by hybrid search")
	f.IntVar(&contentMaxChars, "max-chars", 0, "Truncate chunk content to this many characters")
	return cmd
}

func materializeCmd(withApp wrapFunc) *cobra.Command {
	var opts driving.MaterializeOptions

	cmd := &cobra.Command{
		Use:   "materialize",
		Short: "Project detected edges into the exploration graph",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			report, err := a.promotion.Materialize(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		}),
	}
	cmd.Flags().BoolVar(&opts.Clear, "clear", false, "Rebuild the exploration graph from scratch")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Count without writing")
	return cmd
}

func promoteCmd(withApp wrapFunc) *cobra.Command {
	var (
		reviewer string
		dstType  string
		reject   bool
		reason   string
		rules    bool
	)

	cmd := &cobra.Command{
		Use:   "promote [source target predicate]",
		Short: "Commit or reject a claim, or apply the promotion rules",
		Args: func(cmd *cobra.Command, args []string) error {
			if rules {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(3)(cmd, args)
		},
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			ctx := cmd.Context()
			if rules {
				report, err := a.promotion.ApplyRules(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			}

			key := domain.NewClaimKey(args[0], args[1], args[2])
			var (
				out *driving.PromotionOutcome
				err error
			)
			if reject {
				out, err = a.promotion.Reject(ctx, key, reviewer, reason)
			} else {
				out, err = a.promotion.Promote(ctx, driving.PromotionRequest{
					Key:      key,
					DstType:  domain.EndpointType(dstType),
					Reviewer: reviewer,
				})
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		}),
	}
	f := cmd.Flags()
	f.StringVar(&reviewer, "reviewer", os.Getenv("USER"), "Reviewer recorded on the decision")
	f.StringVar(&dstType, "dst-type", "", "Endpoint type of the target (entity, pattern, surface)")
	f.BoolVar(&reject, "reject", false, "Reject the claim instead of committing it")
	f.StringVar(&reason, "reason", "", "Reason recorded with a rejection")
	f.BoolVar(&rules, "rules", false, "Apply the configured promotion rules")
	return cmd
}

func claimsCmd(withApp wrapFunc) *cobra.Command {
	var (
		status    string
		neighbors string
	)

	cmd := &cobra.Command{
		Use:   "claims",
		Short: "List claims, or the neighbors of a graph node",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if neighbors != "" {
				out, err := a.promotion.Neighbors(cmd.Context(), neighbors)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			}
			out, err := a.promotion.Claims(cmd.Context(), domain.ClaimStatus(status))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		}),
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (proposed, exploratory, committed, rejected)")
	cmd.Flags().StringVar(&neighbors, "neighbors", "", "Show direct neighbors of this node instead")
	return cmd
}

func embedCmd(withApp wrapFunc) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Compute embeddings left pending by earlier failures",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			report, err := a.indexer.EmbedPending(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum entities and chunks read")
	return cmd
}

func lineageCmd(withApp wrapFunc) *cobra.Command {
	var run bool

	cmd := &cobra.Command{
		Use:   "lineage <id>",
		Short: "Show the episodes recorded for a target, or for a run",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			ctx := cmd.Context()
			if run {
				r, err := a.lineage.GetRun(ctx, args[0])
				if err != nil {
					return err
				}
				episodes, err := a.lineage.RunEpisodes(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{"run": r, "episodes": episodes})
			}
			episodes, err := a.lineage.Lineage(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), episodes)
		}),
	}
	cmd.Flags().BoolVar(&run, "run", false, "Treat the id as a run id")
	return cmd
}

// readDocument loads one file as a source document
func readDocument(path string) (domain.SourceDocument, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.SourceDocument{}, err
	}
	return domain.SourceDocument{
		Path:     filepath.ToSlash(filepath.Clean(path)),
		Content:  string(content),
		MimeType: normalisers.MIMETypeForPath(path),
	}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
