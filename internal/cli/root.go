package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/maxim/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "text" | "json" | "yaml"
	Config  string // optional YAML config path
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for the maxim CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "maxim",
		Short: "maxim - surface graph compiler",
		Long: `Compile surface graphs into lifecycle procedures.

Surfaces are described in CUE. Nodes fed by extractor sockets are moved
into child surfaces that run once per live voice slot.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to a YAML config file")

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewExtractCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewSimulateCommand(opts))

	return cmd
}

// LoadConfig returns the config named by --config, or the defaults.
func (o *RootOptions) LoadConfig() (*config.Config, error) {
	if o.Config == "" {
		return config.Default(), nil
	}
	return config.Load(o.Config)
}

// Logger builds the command logger. --verbose lowers the level to debug.
func (o *RootOptions) Logger(cfg *config.Config, w io.Writer) *slog.Logger {
	c := *cfg
	if o.Verbose {
		c.Log.Level = "debug"
	}
	return c.Logger(w)
}

// setup prepares the formatter, config and logger shared by every command.
// Logs go to stderr so structured stdout stays parseable.
func setup(opts *RootOptions, cmd *cobra.Command) (*OutputFormatter, *config.Config, *slog.Logger, error) {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := opts.LoadConfig()
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return nil, nil, nil, WrapExitError(ExitCommandError, ErrCodeConfig, err)
	}
	return formatter, cfg, opts.Logger(cfg, cmd.ErrOrStderr()), nil
}
