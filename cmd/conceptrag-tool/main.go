// Package main implements conceptrag-tool, a direct-invocation CLI over
// conceptrag's nine retrieval and browsing operations (spec.md §4.8),
// useful for scripting and manual inspection of a seeded catalog.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conceptrag/conceptrag/internal/app"
	"github.com/conceptrag/conceptrag/internal/config"
	"github.com/conceptrag/conceptrag/internal/retrieval"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "conceptrag-tool",
	Short: "Run a single conceptrag retrieval or browsing operation",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (optional)")
	rootCmd.AddCommand(
		catalogSearchCmd(),
		broadChunkSearchCmd(),
		scopedChunkSearchCmd(),
		conceptSearchCmd(),
		extractConceptsCmd(),
		listCategoriesCmd(),
		categoryBrowseCmd(),
		conceptsInCategoryCmd(),
		conceptToSourcesCmd(),
	)
}

func openEngine() (*app.Container, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("conceptrag-tool: loading config: %w", err)
	}
	return app.New(cfg)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func catalogSearchCmd() *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "catalog-search [text]",
		Short: "Rank every document against free text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openEngine()
			if err != nil {
				return err
			}
			defer c.Close()
			out, err := c.Retrieval.CatalogSearch(cmd.Context(), retrieval.CatalogSearchInput{Text: args[0], Debug: debug})
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "include the per-signal score breakdown")
	return cmd
}

func broadChunkSearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "broad-chunk-search [text]",
		Short: "Rank chunks across the entire corpus against free text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openEngine()
			if err != nil {
				return err
			}
			defer c.Close()
			out, err := c.Retrieval.BroadChunkSearch(cmd.Context(), retrieval.BroadChunkSearchInput{Text: args[0], Limit: limit})
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "result count (0 uses the default)")
	return cmd
}

func scopedChunkSearchCmd() *cobra.Command {
	var source string
	var debug bool
	cmd := &cobra.Command{
		Use:   "scoped-chunk-search [text]",
		Short: "Rank chunks within a single document against free text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openEngine()
			if err != nil {
				return err
			}
			defer c.Close()
			out, err := c.Retrieval.ScopedChunkSearch(cmd.Context(), retrieval.ScopedChunkSearchInput{
				Text: args[0], Source: source, Debug: debug,
			})
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "document source path or title fragment (required)")
	cmd.Flags().BoolVar(&debug, "debug", false, "include the per-signal score breakdown")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func conceptSearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "concept-search [concept]",
		Short: "Resolve a concept and rank its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openEngine()
			if err != nil {
				return err
			}
			defer c.Close()
			out, err := c.Retrieval.ConceptSearch(cmd.Context(), retrieval.ConceptSearchInput{Concept: args[0], Limit: limit})
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "result count (0 uses the default)")
	return cmd
}

func extractConceptsCmd() *cobra.Command {
	var format string
	var includeSummary bool
	cmd := &cobra.Command{
		Use:   "extract-concepts [document-query]",
		Short: "Resolve a document and list its concepts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openEngine()
			if err != nil {
				return err
			}
			defer c.Close()
			out, err := c.Retrieval.ExtractConcepts(cmd.Context(), retrieval.ExtractConceptsInput{
				DocumentQuery: args[0], Format: format, IncludeSummary: includeSummary,
			})
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&format, "format", "names", "\"names\" or \"full\"")
	cmd.Flags().BoolVar(&includeSummary, "include-summary", false, "include each concept's summary")
	return cmd
}

func listCategoriesCmd() *cobra.Command {
	var substring, sortBy string
	cmd := &cobra.Command{
		Use:   "list-categories",
		Short: "List categories, optionally filtered and sorted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openEngine()
			if err != nil {
				return err
			}
			defer c.Close()
			out, err := c.Retrieval.ListCategories(retrieval.ListCategoriesInput{Substring: substring, SortBy: sortBy})
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&substring, "filter", "", "substring filter")
	cmd.Flags().StringVar(&sortBy, "sort-by", "name", "\"name\", \"popularity\", or \"documentCount\"")
	return cmd
}

func categoryBrowseCmd() *cobra.Command {
	var includeChildren bool
	var limit int
	cmd := &cobra.Command{
		Use:   "category-browse [name]",
		Short: "List documents belonging to a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openEngine()
			if err != nil {
				return err
			}
			defer c.Close()
			out, err := c.Retrieval.CategoryBrowse(retrieval.CategoryBrowseInput{
				Name: args[0], IncludeChildren: includeChildren, Limit: limit,
			})
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().BoolVar(&includeChildren, "include-children", false, "include documents from descendant categories")
	cmd.Flags().IntVar(&limit, "limit", 0, "result count (0 uses the default)")
	return cmd
}

func conceptsInCategoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "concepts-in-category [name]",
		Short: "List every concept attached to a document in a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openEngine()
			if err != nil {
				return err
			}
			defer c.Close()
			out, err := c.Retrieval.ConceptsInCategory(args[0])
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	return cmd
}

func conceptToSourcesCmd() *cobra.Command {
	var perConcept bool
	cmd := &cobra.Command{
		Use:   "concept-to-sources [concepts...]",
		Short: "List source documents for one or more concepts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openEngine()
			if err != nil {
				return err
			}
			defer c.Close()
			if perConcept {
				out, err := c.Retrieval.ConceptToSourcesPerConcept(args)
				if err != nil {
					return err
				}
				return printJSON(out)
			}
			out, err := c.Retrieval.ConceptToSourcesUnion(args)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().BoolVar(&perConcept, "per-concept", false, "return one source list per concept instead of a merged union")
	return cmd
}
