// Package main implements the recalld CLI: project identity
// resolution, solution memory, embedding-index operations and
// boundary watching.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/boundary"
	"github.com/fyrsmithlabs/recalld/internal/config"
	"github.com/fyrsmithlabs/recalld/internal/embeddings"
	"github.com/fyrsmithlabs/recalld/internal/logging"
	"github.com/fyrsmithlabs/recalld/internal/project"
	"github.com/fyrsmithlabs/recalld/internal/registry"
)

var (
	configPath string
	projectDir string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "recalld",
	Short: "Developer memory: project-scoped error solutions and boundary tracking",
	Long: `recalld keeps a per-project memory of solved errors and watches file
activity for project boundary changes. Solutions are retrieved through
a hybrid semantic, lexical, exact and substring lookup.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.config/recalld/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&projectDir, "project", ".", "project directory")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(solutionsCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(watchCmd)
}

// app wires the daemon's services for one command invocation.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	provider embeddings.Provider
	registry *registry.Registry
	resolver *project.Resolver
	monitor  *boundary.Monitor
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	provider, err := embeddings.NewProvider(cfg.Embeddings, logger)
	if err != nil {
		return nil, err
	}

	reg := registry.New(cfg, provider, logger)
	resolver := project.NewResolver(logger)

	monitor, err := boundary.NewMonitor(boundary.Config{
		DataDir:           cfg.Data.Dir,
		Cooldown:          cfg.Boundary.Cooldown.Duration(),
		FreshFolderAge:    cfg.Boundary.FreshFolderAge.Duration(),
		ManualWindow:      cfg.Boundary.ManualWindow.Duration(),
		LockTimeout:       cfg.Data.LockTimeout.Duration(),
		AutoCreateMarkers: !cfg.Boundary.DisableAutoCreate,
	}, resolver, reg, logger)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		provider: provider,
		registry: reg,
		resolver: resolver,
		monitor:  monitor,
	}, nil
}

func (a *app) Close() {
	if err := a.registry.Close(); err != nil {
		a.logger.Warn("registry close failed", zap.Error(err))
	}
	if err := a.provider.Close(); err != nil {
		a.logger.Warn("provider close failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// projectEngine resolves the --project directory and returns its
// engine, provisioning the memory when needed.
func (a *app) projectEngine(cmd *cobra.Command) (*registry.Engine, project.Identity, error) {
	identity, err := a.resolver.Resolve(projectDir)
	if err != nil {
		return nil, project.Identity{}, err
	}
	if err := a.registry.EnsureProject(identity.ProjectID, projectDir); err != nil {
		return nil, identity, err
	}
	eng, err := a.registry.Engine(cmd.Context(), identity.ProjectID)
	if err != nil {
		return nil, identity, err
	}
	return eng, identity, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
