package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"leaddesk-engine/internal/backend"
	"leaddesk-engine/internal/config"
	"leaddesk-engine/internal/secrets"
)

type App struct {
	DataDir string
	JSON    bool

	cfgPath string
}

func newRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "engine",
		Short:        "Local engine for the lead desk: list, watch and export leads",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the HTTP API the desktop UI talks to
  engine

  # Page through leads from the terminal
  engine leads ls --status 3 --page 2

  # Export everything matching a filter
  engine export --search ravi --out ./exports
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => serve.
			return runServe(cmd.Context(), app)
		},
	}
	cmd.PersistentFlags().StringVar(&app.DataDir, "data-dir", "", "engine data directory (default $LEADDESK_DATA_DIR or .)")
	cmd.PersistentFlags().BoolVar(&app.JSON, "json", false, "print JSON instead of tables")

	cmd.AddCommand(
		newServeCmd(app),
		newLeadsCmd(app),
		newExportCmd(app),
		newWatchCmd(app),
		newOptionsCmd(app),
		newTokenCmd(app),
	)
	return cmd
}

// dataDir resolves --data-dir, then LEADDESK_DATA_DIR, then the working
// directory.
func (a *App) dataDir() string {
	if a.DataDir != "" {
		return a.DataDir
	}
	if d := os.Getenv("LEADDESK_DATA_DIR"); d != "" {
		return d
	}
	return "."
}

// loadConfig bootstraps and reads the user config, applies environment
// overrides and refuses to continue on validation errors.
func (a *App) loadConfig() (config.Config, error) {
	dir := a.dataDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return config.Config{}, err
	}
	path, err := config.EnsureUserConfig(dir)
	if err != nil {
		return config.Config{}, fmt.Errorf("config bootstrap failed: %w", err)
	}
	a.cfgPath = path

	cfg, vr, err := a.resolveConfig()
	if err != nil {
		return config.Config{}, err
	}
	for _, w := range vr.Warnings {
		log.Printf("[config] warning: %s", w)
	}
	if !vr.OK() {
		return config.Config{}, invalidConfig(vr)
	}
	return cfg, nil
}

// resolveConfig reads the config file with environment overrides applied.
// Startup, hot reload and PUT /config all use it so overrides never drop
// out after a save.
func (a *App) resolveConfig() (config.Config, config.Validation, error) {
	cfg, vr, err := config.Resolve(a.cfgPath, os.Getenv)
	if err != nil {
		return config.Config{}, vr, fmt.Errorf("config %s: %w", a.cfgPath, err)
	}
	cfg.App.DataDir = a.dataDir()
	return cfg, vr, nil
}

// reloadConfig is resolveConfig for callers that only want a usable config.
func (a *App) reloadConfig() (config.Config, error) {
	cfg, vr, err := a.resolveConfig()
	if err != nil {
		return config.Config{}, err
	}
	if !vr.OK() {
		return config.Config{}, invalidConfig(vr)
	}
	return cfg, nil
}

func invalidConfig(vr config.Validation) error {
	return errors.Join(config.ErrInvalid, errors.New(strings.Join(vr.Errors, "; ")))
}

// newClient builds the backend client. account is read on every request so
// a config reload that switches accounts takes effect without a restart.
func newClient(cfg config.Config, account func() string) (*backend.Client, error) {
	return backend.New(backend.Config{
		BaseURL:    cfg.Backend.BaseURL,
		Timeout:    cfg.BackendTimeout(),
		UserAgent:  cfg.Backend.UserAgent,
		RatePerSec: cfg.Backend.RatePerSec,
		Burst:      cfg.Backend.Burst,
		Token:      secrets.Source(account),
	})
}

func fixedAccount(cfg config.Config) func() string {
	return func() string { return cfg.Auth.KeyringAccount }
}
