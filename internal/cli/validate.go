package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/maxim/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid" yaml:"valid"`
	Surfaces int                        `json:"surfaces" yaml:"surfaces"`
	Blocks   int                        `json:"blocks" yaml:"blocks"`
	Errors   []compiler.ValidationError `json:"errors,omitempty" yaml:"errors,omitempty"`
	Cycles   []compiler.CycleError      `json:"cycles,omitempty" yaml:"cycles,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <graph>",
		Short: "Validate a surface graph without compiling it",
		Long: `Validate a CUE surface graph without running extraction or code generation.

Reports every dangling block or surface reference, out-of-range socket and
extract index, duplicate name, and surface reference cycle.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, graphPath string, cmd *cobra.Command) error {
	formatter, _, _, err := setup(opts, cmd)
	if err != nil {
		return err
	}

	loaded, err := LoadGraph(graphPath)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Loaded %d CUE file(s) from %s", loaded.FileCount, graphPath)

	errs := compiler.Validate(loaded.Graph)
	// Cycle analysis needs resolvable references.
	var cycles []compiler.CycleError
	if len(errs) == 0 {
		cycles = compiler.AnalyzeSurfaceCycles(loaded.Graph)
	}
	if len(errs) > 0 || len(cycles) > 0 {
		return outputValidationErrors(formatter, errs, cycles, ExitFailure)
	}

	return outputValidateSuccess(formatter, ValidationResult{
		Valid:    true,
		Surfaces: len(loaded.Graph.Surfaces()),
		Blocks:   len(loaded.Graph.Blocks()),
	})
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Structured() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Graph valid: %d surface(s), %d block(s)\n", result.Surfaces, result.Blocks)
	return nil
}

// outputValidationErrors outputs every validation error and cycle, returning
// an ExitError with exitCode.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError, cycles []compiler.CycleError, exitCode int) error {
	total := len(errs) + len(cycles)
	exitErr := NewExitError(exitCode, fmt.Sprintf("validation failed with %d error(s)", total))

	if formatter.Structured() {
		first := &CLIError{Code: ErrCodeSurfaceCycle}
		if len(errs) > 0 {
			first = &CLIError{Code: errs[0].Code, Message: errs[0].Error()}
		} else {
			first.Message = cycles[0].Message
		}
		if err := formatter.Encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs, Cycles: cycles},
			Error:  first,
		}); err != nil {
			return err
		}
		return exitErr
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", err.Code, err.Field, err.Message)
	}
	for _, c := range cycles {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", ErrCodeSurfaceCycle, c.Message)
	}

	return exitErr
}
