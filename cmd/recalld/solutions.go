package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/recalld/internal/solutions"
)

var (
	solutionScope string
	listLimit     int
)

var solutionsCmd = &cobra.Command{
	Use:   "solutions",
	Short: "Save and retrieve error solutions",
}

func init() {
	solutionsCmd.AddCommand(solutionsSaveCmd)
	solutionsCmd.AddCommand(solutionsFindCmd)
	solutionsCmd.AddCommand(solutionsListCmd)
	solutionsCmd.AddCommand(solutionsSuccessCmd)
	solutionsCmd.AddCommand(solutionsDeleteCmd)

	solutionsListCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum entries to return")
	for _, cmd := range []*cobra.Command{solutionsSaveCmd, solutionsListCmd, solutionsSuccessCmd, solutionsDeleteCmd} {
		cmd.Flags().StringVar(&solutionScope, "scope", "personal", "scope: personal or team")
	}
}

var solutionsSaveCmd = &cobra.Command{
	Use:   "save <error> <solution>",
	Short: "Store an error/fix pair in the project's memory",
	Long: `Save stores an error message and its solution, registering the
normalized error with the lexical matcher and the embedding index.

Examples:
  recalld solutions save "TypeError: x is undefined" "guard the access"
  recalld solutions save --scope team "ECONNREFUSED" "start the broker"`,
	Args: cobra.ExactArgs(2),
	RunE: runSolutionsSave,
}

func runSolutionsSave(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	eng, _, err := a.projectEngine(cmd)
	if err != nil {
		return err
	}

	id, err := eng.Solutions.Save(cmd.Context(), solutions.Scope(solutionScope), args[0], args[1])
	if err != nil {
		return err
	}
	return printJSON(map[string]any{"solution_id": id})
}

var solutionsFindCmd = &cobra.Command{
	Use:   "find <error>",
	Short: "Look up a solution with the hybrid matcher",
	Long: `Find runs the tiered lookup: semantic, lexical, exact, then
substring, over the personal scope and then the team scope.

Examples:
  recalld solutions find "Cannot read property 'name' of undefined"`,
	Args: cobra.ExactArgs(1),
	RunE: runSolutionsFind,
}

func runSolutionsFind(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	eng, _, err := a.projectEngine(cmd)
	if err != nil {
		return err
	}

	result, err := eng.Solutions.FindHybrid(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if result == nil {
		return printJSON(map[string]any{"match": false})
	}
	return printJSON(result)
}

var solutionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored solutions, newest first",
	RunE:  runSolutionsList,
}

func runSolutionsList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	eng, _, err := a.projectEngine(cmd)
	if err != nil {
		return err
	}

	items, err := eng.Solutions.List(cmd.Context(), solutions.Scope(solutionScope), listLimit)
	if err != nil {
		return err
	}
	return printJSON(items)
}

var solutionsSuccessCmd = &cobra.Command{
	Use:   "success <id>",
	Short: "Record that a solution worked",
	Args:  cobra.ExactArgs(1),
	RunE:  runSolutionsSuccess,
}

func runSolutionsSuccess(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid solution id %q", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	eng, _, err := a.projectEngine(cmd)
	if err != nil {
		return err
	}

	eng.Solutions.IncrementSuccess(cmd.Context(), solutions.Scope(solutionScope), id)
	return nil
}

var solutionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a stored solution",
	Args:  cobra.ExactArgs(1),
	RunE:  runSolutionsDelete,
}

func runSolutionsDelete(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid solution id %q", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	eng, _, err := a.projectEngine(cmd)
	if err != nil {
		return err
	}

	deleted, err := eng.Solutions.Delete(cmd.Context(), solutions.Scope(solutionScope), id)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{"deleted": deleted})
}
