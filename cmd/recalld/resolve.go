package main

import (
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [path]",
	Short: "Resolve a directory to its stable project identity",
	Long: `Resolve derives the project id for a directory using the hybrid
strategy: git remote, then git root, then a persisted UUID marker.

Examples:
  recalld resolve
  recalld resolve ~/Projects/Alpha`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	path := projectDir
	if len(args) == 1 {
		path = args[0]
	}

	identity, err := a.resolver.Resolve(path)
	if err != nil {
		return err
	}
	return printJSON(identity)
}
