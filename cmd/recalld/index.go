package main

import (
	"github.com/spf13/cobra"
)

var (
	indexDocType  string
	indexMetadata map[string]string
	searchK       int
	searchMin     float64
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Operate on the project's embedding index",
}

func init() {
	indexCmd.AddCommand(indexAddCmd)
	indexCmd.AddCommand(indexSearchCmd)
	indexCmd.AddCommand(indexRebuildCmd)
	indexCmd.AddCommand(indexStatsCmd)

	indexAddCmd.Flags().StringVar(&indexDocType, "type", "note", "document type")
	indexAddCmd.Flags().StringToStringVar(&indexMetadata, "meta", nil, "metadata key=value pairs")
	indexSearchCmd.Flags().StringVar(&indexDocType, "type", "", "restrict to a document type")
	indexSearchCmd.Flags().IntVar(&searchK, "k", 5, "number of results")
	indexSearchCmd.Flags().Float64Var(&searchMin, "min-score", 0, "minimum cosine similarity")
}

var indexAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Index a document",
	Long: `Add embeds a document and stores it in the project's index. Adding
identical text of the same type is idempotent.

Examples:
  recalld index add --type error "connection refused on port 8080"
  recalld index add --type note --meta source=review "prefer context timeouts"`,
	Args: cobra.ExactArgs(1),
	RunE: runIndexAdd,
}

func runIndexAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	eng, _, err := a.projectEngine(cmd)
	if err != nil {
		return err
	}

	docID, err := eng.Index.Add(cmd.Context(), indexDocType, args[0], indexMetadata, "")
	if err != nil {
		return err
	}
	return printJSON(map[string]any{"doc_id": docID})
}

var indexSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the project's index",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexSearch,
}

func runIndexSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	eng, _, err := a.projectEngine(cmd)
	if err != nil {
		return err
	}

	results, err := eng.Index.Search(cmd.Context(), args[0], searchK, indexDocType, searchMin)
	if err != nil {
		return err
	}
	return printJSON(results)
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Re-embed every document in the index",
	Long: `Rebuild re-embeds all documents with the current provider. Use it
after the embedding model or its dimension changed; a drifted index is
treated as empty until rebuilt.`,
	RunE: runIndexRebuild,
}

func runIndexRebuild(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	eng, _, err := a.projectEngine(cmd)
	if err != nil {
		return err
	}

	n, err := eng.Index.Rebuild(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(map[string]any{"documents_indexed": n})
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index diagnostics",
	RunE:  runIndexStats,
}

func runIndexStats(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	eng, identity, err := a.projectEngine(cmd)
	if err != nil {
		return err
	}

	return printJSON(map[string]any{
		"project": identity,
		"index":   eng.Index.Stats(),
	})
}
