package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/rmz-go/internal/config"
	"github.com/tonimelisma/rmz-go/internal/engine"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
	flagDebug      bool
	flagQuiet      bool
)

// Exit codes form the contract with scripts wrapping rmz.
const (
	exitOK          = 0
	exitAllFailed   = 1
	exitPartial     = 2
	exitInvalidArgs = 3
	exitProtected   = 4
	exitIntegrity   = 5
)

// exitError carries an explicit exit code out of a RunE handler. The
// wrapped error (if any) is printed before exiting.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}

	return fmt.Sprintf("exit %d", e.code)
}

func (e *exitError) Unwrap() error {
	return e.err
}

// classifyExit maps an error with no explicit code onto the exit-code
// contract via the engine's error taxonomy.
func classifyExit(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidArgument), errors.Is(err, engine.ErrAmbiguous):
		return exitInvalidArgs
	case errors.Is(err, engine.ErrProtected):
		return exitProtected
	case errors.Is(err, engine.ErrIntegrity):
		return exitIntegrity
	default:
		return exitAllFailed
	}
}

// outcomeExit converts a multi-path result into the exit-code contract:
// everything succeeded → 0; a mix → 2; everything failed → 4 when a
// protected refusal is among the causes, 1 otherwise.
func outcomeExit(succeeded, failed int, failures []engine.PathFailure) error {
	switch {
	case failed == 0:
		return nil
	case succeeded > 0:
		return &exitError{code: exitPartial}
	}

	for _, f := range failures {
		if errors.Is(f.Err, engine.ErrProtected) {
			return &exitError{code: exitProtected}
		}
	}

	return &exitError{code: exitAllFailed}
}

// printError prints a user-friendly error message to stderr.
func printError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

// CLIContext bundles the resolved trash root, config, and logger.
// Created once in PersistentPreRunE so RunE handlers share one view of
// the environment.
type CLIContext struct {
	Root   string
	Cfg    *config.Config
	Env    config.EnvOverrides
	Logger *slog.Logger
}

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// mustCLIContext extracts the CLIContext or panics with an actionable
// message. Panics are programmer errors — PersistentPreRunE populates
// the context before any RunE executes.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		panic("BUG: CLIContext not found in context — PersistentPreRunE did not run")
	}

	return cc
}

// Engine opens the trash engine with the standard interactive callbacks.
func (cc *CLIContext) Engine() (*engine.Engine, error) {
	return engine.Open(cc.Root, cc.Cfg, stdCallbacks(cc), cc.Logger)
}

// newRootCmd builds and returns the fully-assembled root command with
// all subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rmz",
		Short:   "Safe rm replacement with a restorable trash zone",
		Long: `rmz moves files into a user-owned trash zone instead of unlinking them,
keeping enough metadata to restore each one to its original place. Purge
permanently removes staged files when you explicitly choose to.`,
		Version: version,
		// Silence Cobra's default error/usage printing — main handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadContext(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "settings file path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "show detailed output")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.MarkFlagsMutuallyExclusive("verbose", "debug", "quiet")

	// Register subcommands.
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newRestoreCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newPurgeCmd())
	cmd.AddCommand(newProtectCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newCompletionsCmd())

	return cmd
}

// loadContext resolves the trash root and configuration, builds the
// final logger, and stores the CLIContext for subcommands.
func loadContext(cmd *cobra.Command) error {
	// Bootstrap logger derived from CLI flags only (config not read yet).
	logger := buildLogger(nil)

	env := config.ReadEnvOverrides()

	root, err := config.ResolveRoot(env)
	if err != nil {
		return &exitError{code: exitInvalidArgs, err: err}
	}

	settingsPath := config.SettingsPath(root)
	if env.ConfigPath != "" {
		settingsPath = env.ConfigPath
	}

	if flagConfigPath != "" {
		settingsPath = flagConfigPath
	}

	cfg, err := config.Load(settingsPath, logger)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// The settings file may relocate the payload root.
	if cfg.TrashRoot != "" {
		root = cfg.TrashRoot
	}

	finalLogger := buildLogger(cfg)
	setupColor(cfg, env)

	cc := &CLIContext{Root: root, Cfg: cfg, Env: env, Logger: finalLogger}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))

	finalLogger.Debug("context resolved", "root", root, "settings", settingsPath)

	return nil
}

// buildLogger creates an slog.Logger configured by the settings file and
// CLI flags. Pass nil for pre-config bootstrap. The config log level is
// the baseline; --verbose, --debug, and --quiet override it because CLI
// flags always win (Cobra enforces their mutual exclusion).
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelWarn

	if cfg != nil {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelInfo
	}

	if flagDebug {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// setupColor decides whether output gets color: RMZ_NO_COLOR and --json
// always win, then the config setting, then TTY detection.
func setupColor(cfg *config.Config, env config.EnvOverrides) {
	switch {
	case env.NoColor || flagJSON:
		color.NoColor = true
	case cfg.Color == config.ColorNever:
		color.NoColor = true
	case cfg.Color == config.ColorAlways:
		color.NoColor = false
	default:
		color.NoColor = !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())
	}
}
