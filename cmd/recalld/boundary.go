package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/project"
	"github.com/fyrsmithlabs/recalld/internal/watcher"
)

var detectApply bool

func init() {
	detectCmd.Flags().BoolVar(&detectApply, "apply", false, "execute the transition when approved")
}

var validateCmd = &cobra.Command{
	Use:   "validate <cwd> <project-root>",
	Short: "Check that a directory is within a project root",
	Long: `Validate fails with a project mismatch unless cwd equals the project
root or is a strict descendant of it. Paths are compared per component,
so /proj-test is not inside /proj.`,
	Args: cobra.ExactArgs(2),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	if err := project.Validate(args[0], args[1]); err != nil {
		return err
	}
	return printJSON(map[string]any{"ok": true})
}

var detectCmd = &cobra.Command{
	Use:   "detect <file-path>",
	Short: "Run boundary detection for a single file path",
	Long: `Detect evaluates one path against the active project boundary and
prints the approved transition, if any. With --apply the transition is
also executed.

Examples:
  recalld detect ~/Projects/Beta/main.go
  recalld detect --apply ~/Projects/Beta/main.go`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func runDetect(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	event, err := a.monitor.Detect(args[0])
	if err != nil {
		return err
	}
	if event == nil {
		return printJSON(map[string]any{"switch": false})
	}
	if detectApply {
		if _, err := a.monitor.Apply(event); err != nil {
			return err
		}
	}
	return printJSON(event)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active project and boundary state",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := a.monitor.Status()
	if err != nil {
		return err
	}
	return printJSON(status)
}

var selectCmd = &cobra.Command{
	Use:   "select [path]",
	Short: "Manually select the active project",
	Long: `Select marks a project as the active one. Manual selections
suppress automatic boundary switching for ten minutes.

Examples:
  recalld select ~/Projects/Alpha`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSelect,
}

func runSelect(cmd *cobra.Command, args []string) error {
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
	if err := a.monitor.SelectProject(identity.ProjectID, path); err != nil {
		return err
	}
	return printJSON(identity)
}

var watchCmd = &cobra.Command{
	Use:   "watch <dir> [dir...]",
	Short: "Watch directories and switch projects on boundary changes",
	Long: `Watch observes file activity under the given directories. When a
file lands outside the active project boundary and the detection rules
approve it, the active project switches automatically.

Examples:
  recalld watch ~/Projects`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	w, err := watcher.New(a.monitor, a.logger)
	if err != nil {
		return err
	}
	defer w.Stop()

	for _, dir := range args {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	ctx := cmd.Context()
	w.Start(ctx)
	a.logger.Info("watching for boundary changes", zap.Strings("dirs", args))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case event := <-w.Events():
			fmt.Printf("switched: %s -> %s (%s, %s)\n",
				event.OldProjectID, event.NewProjectID, event.Reason, event.Confidence)
		case <-sig:
			a.logger.Info("shutting down")
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}
