// Package main provides the sash CLI application entry point.
// sash is a mode-based command shell with variable substitution.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Neverlord/sash/internal/app"
	"github.com/Neverlord/sash/internal/backend"
	"github.com/Neverlord/sash/internal/config"
	"github.com/Neverlord/sash/internal/logger"
	"github.com/Neverlord/sash/internal/metrics"
	"github.com/Neverlord/sash/internal/mode"
	"github.com/Neverlord/sash/internal/shell"
	"github.com/Neverlord/sash/internal/version"
	"github.com/Neverlord/sash/pkg/sashtypes"
)

var (
	v          = config.NewViper()
	cfg        *config.Config
	configFile string
	keepGoing  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "sash",
	Short:        "sash - a mode-based command shell",
	Long:         `sash is an interactive command shell with a stack of modes, tab completion and shell-style variable substitution.`,
	SilenceUsage: true,
	RunE:         runShell, // Default behavior is to run the interactive shell
}

// shellCmd represents the shell command (explicit version of default behavior)
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start interactive shell mode",
	RunE:  runShell,
}

// batchCmd executes a file of commands without user interaction
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Execute a file of commands in batch mode",
	Long: `Execute every line of a file as if it was typed at the prompt.
Lines starting with # are ignored. Execution stops at the first failing line
unless --keep-going is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, _ []string) {
		if v.GetString(config.KeyLogLevel) == "debug" {
			fmt.Fprintln(cmd.OutOrStdout(), version.Detailed())
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), version.Short())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Config file (default searches sash.yaml)")
	flags.String(config.KeyLogLevel, "", "Set log level (debug|info|warn|error) [default: warn]")
	flags.String(config.KeyLogFile, "", "Write logs to file instead of stderr")
	flags.Bool(config.KeyTestMode, false, "Run in deterministic test mode")
	flags.String(config.KeyBackend, backend.KindReadline, "Line editing backend (readline|liner)")
	flags.String("history-dir", "", "Directory for per-mode history files")
	flags.String(config.KeyPrompt, "sash> ", "Prompt of the default mode")
	flags.String(config.KeyPromptColor, "green", "Prompt color of the default mode")
	flags.String(config.KeyVariablesFile, "", "File with predefined variables (.env or .yaml)")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address")

	// Bind flags to viper
	bind(v, config.KeyLogLevel, config.KeyLogLevel)
	bind(v, config.KeyLogFile, config.KeyLogFile)
	bind(v, config.KeyTestMode, config.KeyTestMode)
	bind(v, config.KeyBackend, config.KeyBackend)
	bind(v, config.KeyHistoryDir, "history-dir")
	bind(v, config.KeyPrompt, config.KeyPrompt)
	bind(v, config.KeyPromptColor, config.KeyPromptColor)
	bind(v, config.KeyVariablesFile, config.KeyVariablesFile)
	bind(v, config.KeyMetricsAddr, "metrics-addr")

	batchCmd.Flags().BoolVar(&keepGoing, "keep-going", false, "Continue after failing lines")

	// Add subcommands
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentPreRunE = initConfig
}

func bind(v *viper.Viper, key, flag string) {
	if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding %s flag: %v\n", flag, err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(v, configFile)
	if err != nil {
		return err
	}
	cfg = loaded

	// Configure logger with CLI flags
	if err := logger.Configure(cfg.LogLevel, cfg.LogFile, cfg.TestMode); err != nil {
		return fmt.Errorf("error configuring logger: %w", err)
	}
	logger.Debug("Configuration loaded", "command", cmd.Name(), "file", v.ConfigFileUsed())
	return nil
}

// terminalFactory creates the configured line-editing backend for each mode.
func terminalFactory(spec mode.Spec) (sashtypes.Backend, error) {
	return backend.New(cfg.Backend, backend.Options{
		HistoryFile:   spec.HistoryFile,
		HistorySize:   spec.HistorySize,
		HistoryUnique: spec.HistoryUnique,
	})
}

// scriptFactory creates backends for batch runs. Input comes from the batch
// source, so the backends never read.
func scriptFactory(spec mode.Spec) (sashtypes.Backend, error) {
	return backend.NewScriptString("", backend.Options{
		HistoryFile:   spec.HistoryFile,
		HistorySize:   spec.HistorySize,
		HistoryUnique: spec.HistoryUnique,
	}), nil
}

// newApp builds the demo application and starts the metrics server if configured.
func newApp(ctx context.Context, factory shell.BackendFactory) (*app.App, error) {
	opts := app.Options{Factory: factory, Out: os.Stdout, ErrOut: os.Stderr}

	if cfg.MetricsAddr != "" {
		m, err := metrics.New(nil, nil)
		if err != nil {
			return nil, err
		}
		opts.ShellOptions = append(opts.ShellOptions, shell.WithObserver(m.Observe))
		go func() {
			if err := m.Serve(ctx, cfg.MetricsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
	}

	return app.New(cfg, opts)
}

func runShell(_ *cobra.Command, _ []string) error {
	logger.Info("Starting sash", "version", version.Version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !backend.IsTerminal() {
		// piped input behaves like a batch file
		a, err := newApp(ctx, scriptFactory)
		if err != nil {
			return err
		}
		return errors.Join(a.RunBatch(os.Stdin, true), a.Close())
	}

	a, err := newApp(ctx, terminalFactory)
	if err != nil {
		return err
	}

	fmt.Printf("%s - type 'help' for commands, 'quit' to leave.\n", version.Short())
	return errors.Join(a.Run(), a.Close())
}

func runBatch(_ *cobra.Command, args []string) error {
	scriptPath := args[0]
	logger.Info("Starting batch mode", "version", version.Version, "script", scriptPath)

	f, err := os.Open(scriptPath)
	if err != nil {
		return fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, scriptFactory)
	if err != nil {
		return err
	}
	if err := errors.Join(a.RunBatch(f, keepGoing), a.Close()); err != nil {
		return err
	}

	logger.Info("Script executed successfully", "script", scriptPath)
	return nil
}
