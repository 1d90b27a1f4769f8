// Package main provides the codegraph CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/codegraph"
	"github.com/siherrmann/codegraph/core/extractor"
	"github.com/siherrmann/codegraph/core/graph"
	"github.com/siherrmann/codegraph/core/parser"
	"github.com/siherrmann/codegraph/core/scanner"
	"github.com/siherrmann/codegraph/helper"
	"github.com/siherrmann/codegraph/model"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd(out io.Writer) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "codegraph",
		Short: "Analyze source code into a graph and search it",
		Long: `Analyze source code into a code graph stored in Postgres, embed its nodes
and answer questions about it.

The database is configured with DB_HOST, DB_PORT, DB_DATABASE, DB_USERNAME,
DB_PASSWORD, DB_SCHEMA and DB_SSLMODE, everything else with CODEGRAPH_*
variables and ANTHROPIC_API_KEY. A .env file in the working directory is loaded.

Examples:
  codegraph analyze ./src --clean
  codegraph embed
  codegraph search "where is the config loaded" --top-k 3
  codegraph ask "how are requests authenticated?"
  codegraph summary
  codegraph parse main.py --entities
`,
		SilenceUsage: true,
	}
	cmd.SetOut(out)
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Minute, "Timeout for the whole command")

	run := func(fn func(ctx context.Context, cg *codegraph.CodeGraph) (any, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			cg, err := open()
			if err != nil {
				return err
			}
			defer cg.Close()

			result, err := fn(ctx, cg)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		}
	}

	cmd.AddCommand(
		analyzeCmd(run),
		embedCmd(run),
		searchCmd(run),
		askCmd(run),
		summaryCmd(run),
		traverseCmd(run),
		detailsCmd(run),
		parseCmd(),
	)

	return cmd
}

type runner func(fn func(ctx context.Context, cg *codegraph.CodeGraph) (any, error)) func(*cobra.Command, []string) error

func analyzeCmd(run runner) *cobra.Command {
	var (
		clean    bool
		excludes []string
	)

	cmd := &cobra.Command{
		Use:   "analyze <dir>",
		Short: "Analyze all source files below a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := scanner.Config{}
			if len(excludes) > 0 {
				config.Excludes = append(append([]string{}, scanner.DefaultExcludes...), excludes...)
			}
			return run(func(ctx context.Context, cg *codegraph.CodeGraph) (any, error) {
				return cg.AnalyzeDirectory(ctx, args[0], config, clean)
			})(cmd, args)
		},
	}

	cmd.Flags().BoolVar(&clean, "clean", false, "Remove entities stored for a file before analyzing it")
	cmd.Flags().StringSliceVar(&excludes, "exclude", nil, "Additional doublestar patterns to skip")

	return cmd
}

func embedCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "embed",
		Short: "Embed all graph nodes and replace the stored vectors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cg *codegraph.CodeGraph) (any, error) {
				if err := cg.UseDefaultEncoder(); err != nil {
					return nil, err
				}
				events, err := cg.StartEmbeddingPipeline(ctx)
				if err != nil {
					return nil, err
				}

				var last model.ProgressEvent
				for event := range events {
					fmt.Fprintf(cmd.ErrOrStderr(), "%5.1f%% %s\n", event.Percent, event.Message)
					last = event
				}
				if last.State == model.ProgressFailed {
					return nil, fmt.Errorf("embedding failed: %s", last.Message)
				}
				return last, nil
			})(cmd, args)
		},
	}
}

func searchCmd(run runner) *cobra.Command {
	var (
		topK        int
		withContext bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find the nodes most similar to a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cg *codegraph.CodeGraph) (any, error) {
				if err := cg.UseDefaultEncoder(); err != nil {
					return nil, err
				}
				config := &model.SearchConfig{TopK: topK}
				if withContext {
					return cg.SearchWithContext(ctx, args[0], config)
				}
				return cg.Search(ctx, args[0], config)
			})(cmd, args)
		},
	}

	cmd.Flags().IntVar(&topK, "top-k", model.DefaultSearchConfig().TopK, "Number of results")
	cmd.Flags().BoolVar(&withContext, "context", false, "Expand results with snippets and relations")

	return cmd
}

func askCmd(run runner) *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Answer a question about the analyzed code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cg *codegraph.CodeGraph) (any, error) {
				if err := cg.UseDefaultEncoder(); err != nil {
					return nil, err
				}
				return cg.Ask(ctx, args[0], &model.SearchConfig{TopK: topK})
			})(cmd, args)
		},
	}

	cmd.Flags().IntVar(&topK, "top-k", model.DefaultSearchConfig().TopK, "Number of context nodes")

	return cmd
}

func summaryCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Count nodes and relationships per type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cg *codegraph.CodeGraph) (any, error) {
				return cg.Summary(ctx)
			})(cmd, args)
		},
	}
}

func traverseCmd(run runner) *cobra.Command {
	var (
		hops       int
		depthFirst bool
		direction  string
		relTypes   []string
	)

	cmd := &cobra.Command{
		Use:   "traverse <id>",
		Short: "Walk the graph from a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid node id %q: %w", args[0], err)
			}
			opts, err := traversalOptions(hops, direction, relTypes)
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, cg *codegraph.CodeGraph) (any, error) {
				return cg.Traverse(ctx, id, opts, depthFirst)
			})(cmd, args)
		},
	}

	cmd.Flags().IntVar(&hops, "hops", 2, "Maximum distance from the start node")
	cmd.Flags().BoolVar(&depthFirst, "dfs", false, "Traverse depth first")
	cmd.Flags().StringVar(&direction, "direction", "out", "Relationships to follow: out, in or both")
	cmd.Flags().StringSliceVar(&relTypes, "rel", nil, "Relationship types to follow, all if empty")

	return cmd
}

func detailsCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "details <id>",
		Short: "Show a node with its incoming and outgoing relationships",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid node id %q: %w", args[0], err)
			}
			return run(func(ctx context.Context, cg *codegraph.CodeGraph) (any, error) {
				return cg.Details(ctx, id)
			})(cmd, args)
		},
	}
}

// parseCmd works without a database.
func parseCmd() *cobra.Command {
	var entities bool

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Print the syntax tree or the extracted entities of a single file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			tree, err := parser.Parse(cmd.Context(), source, model.DetectLanguage(args[0]))
			if err != nil {
				return err
			}
			defer tree.Close()

			if !entities {
				return writeJSON(cmd.OutOrStdout(), tree.Dump())
			}
			x := extractor.NewExtractor(extractor.Config{DeterministicIDs: true}, helper.NewLogger(cmd.ErrOrStderr(), slog.LevelWarn))
			return writeJSON(cmd.OutOrStdout(), x.Extract(cmd.Context(), tree, args[0]))
		},
	}

	cmd.Flags().BoolVar(&entities, "entities", false, "Print extracted entities and relationships instead of the tree")

	return cmd
}

func traversalOptions(hops int, direction string, relTypes []string) (graph.Options, error) {
	opts := graph.Options{MaxHops: hops}
	switch direction {
	case "out":
		opts.Direction = graph.Outgoing
	case "in":
		opts.Direction = graph.Incoming
	case "both":
		opts.Direction = graph.Both
	default:
		return opts, fmt.Errorf("unknown direction %q", direction)
	}
	for _, t := range relTypes {
		relType := model.RelationType(t)
		if !relType.Valid() {
			return opts, fmt.Errorf("unknown relationship type %q", t)
		}
		opts.RelTypes = append(opts.RelTypes, relType)
	}
	return opts, nil
}

func open() (*codegraph.CodeGraph, error) {
	dbConfig, err := helper.NewDatabaseConfiguration()
	if err != nil {
		return nil, err
	}
	config, err := helper.NewConfiguration()
	if err != nil {
		return nil, err
	}
	return codegraph.NewCodeGraph(dbConfig, config)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
