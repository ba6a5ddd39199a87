// Package cli implements the candle command line: compile, validate,
// tables, show and test.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootOptions holds global flags for all commands. Resolve fills Settings
// and Logger before any subcommand runs.
type RootOptions struct {
	Config string

	Settings *Settings
	Logger   *zap.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for the candle CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "candle",
		Short: "candle - installer authoring compiler",
		Long: `Compile XML installer authoring into intermediate object files.

Configuration is read from flags, CANDLE_* environment variables and
.candle.yaml (working directory or $HOME/.config/candle), in that order.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.Resolve(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.Logger != nil {
				_ = opts.Logger.Sync()
			}
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.Config, "config", "", "config file (default .candle.yaml)")
	flags.BoolP(cfgKeyVerbose, "v", false, "verbose output and debug logging")
	flags.String(cfgKeyFormat, "text", "output format (text|json|yaml)")
	flags.String(cfgKeyPedantic, "easy", "pedantic level (easy|heroic|legendary)")
	flags.Bool(cfgKeySuppressValidation, false, "skip schema validation")
	flags.Bool(cfgKeyWarningsAsErrors, false, "treat warnings as errors")
	flags.StringSlice(cfgKeySuppressWarnings, nil, "suppress warning codes (repeatable)")
	flags.StringSlice(cfgKeyExtensions, nil, "register a built-in extension (repeatable)")

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTablesCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Resolve loads settings and builds the logger for cmd.
func (o *RootOptions) Resolve(cmd *cobra.Command) error {
	settings, err := loadSettings(cmd, o.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeConfigFailed+": invalid configuration", err)
	}
	logger, err := newLogger(settings)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeConfigFailed+": build logger", err)
	}
	o.Settings = settings
	o.Logger = logger.Named("candle")
	if settings.ConfigFile != "" {
		o.Logger.Debug("loaded config", zap.String("file", settings.ConfigFile))
	}
	return nil
}

// formatter returns an output formatter for cmd using the resolved settings.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Settings.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Diagnostics go to stderr to avoid corrupting JSON
		Verbose:   o.Settings.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return lo.Contains(ValidFormats, format)
}

// Execute runs the CLI with os.Args and returns the process exit code.
func Execute() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()
	if err != nil {
		fmt.Fprintf(stderr, "candle: %v\n", err)
	}
	return GetExitCode(err)
}
