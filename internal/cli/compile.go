package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/maxim/internal/codegen"
	"github.com/roach88/maxim/internal/compiler"
	"github.com/roach88/maxim/internal/pipeline"
	"github.com/roach88/maxim/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output   string // module text output path
	DB       string // procedure cache path
	Capacity int    // overrides the configured target capacity when > 0
}

// CompileSummary is the structured output of a successful compile.
type CompileSummary struct {
	BuildID    string             `json:"build_id" yaml:"build_id"`
	Target     string             `json:"target" yaml:"target"`
	Surfaces   []SurfaceSummary   `json:"surfaces" yaml:"surfaces"`
	Procedures []ProcedureSummary `json:"procedures" yaml:"procedures"`
	Cached     int                `json:"cached" yaml:"cached"`
	Output     string             `json:"output,omitempty" yaml:"output,omitempty"`
}

// SurfaceSummary describes one emitted surface.
type SurfaceSummary struct {
	Name      string `json:"name" yaml:"name"`
	ID        uint64 `json:"id" yaml:"id"`
	Hash      string `json:"hash" yaml:"hash"`
	Extracted bool   `json:"extracted" yaml:"extracted"`
}

// ProcedureSummary describes one emitted procedure.
type ProcedureSummary struct {
	Name      string `json:"name" yaml:"name"`
	Surface   string `json:"surface" yaml:"surface"`
	Lifecycle string `json:"lifecycle" yaml:"lifecycle"`
	Cached    bool   `json:"cached" yaml:"cached"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <graph>",
		Short: "Compile a surface graph to lifecycle procedures",
		Long: `Compile a CUE surface graph to construct, update and destruct procedures.

The graph is validated, extractor-fed nodes are moved into child surfaces,
and every surface is emitted children first. <graph> is a .cue file or a
directory holding one CUE package.

With --db, each procedure is recorded in a SQLite cache keyed by surface
hash, procedure name and target.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write module text to this file")
	cmd.Flags().StringVar(&opts.DB, "db", "", "record procedures in this SQLite database")
	cmd.Flags().IntVar(&opts.Capacity, "capacity", 0, "voice capacity (overrides config)")

	return cmd
}

func runCompile(ctx context.Context, opts *CompileOptions, graphPath string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter, cfg, logger, err := setup(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	target := cfg.Target
	if opts.Capacity > 0 {
		target.Capacity = opts.Capacity
	}

	loaded, err := LoadGraph(graphPath)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Loaded %d CUE file(s) from %s", loaded.FileCount, graphPath)

	result, err := pipeline.Run(ctx, loaded.Graph, loaded.Alloc,
		pipeline.WithTarget(target),
		pipeline.WithLogger(logger),
	)
	if err != nil {
		return outputPipelineError(formatter, err)
	}

	summary := summarize(result)

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(result.Module.String()), 0644); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
		summary.Output = opts.Output
	}

	if opts.DB != "" {
		if err := recordBuild(ctx, opts.DB, result, &summary, logger); err != nil {
			return outputCommandError(formatter, ErrCodeStore, err.Error())
		}
	}

	return outputCompileSuccess(formatter, summary)
}

// summarize builds the command output from a pipeline result.
func summarize(result *pipeline.Result) CompileSummary {
	extracted := make(map[uint64]bool, len(result.Extracted))
	for _, s := range result.Extracted {
		extracted[s.ID.ID] = true
	}

	summary := CompileSummary{
		BuildID:    result.BuildID,
		Target:     result.Target.String(),
		Surfaces:   make([]SurfaceSummary, 0, len(result.Order)),
		Procedures: make([]ProcedureSummary, 0, len(result.Procedures)),
	}
	for _, s := range result.Order {
		summary.Surfaces = append(summary.Surfaces, SurfaceSummary{
			Name:      s.ID.DebugName,
			ID:        s.ID.ID,
			Hash:      result.Hashes[s.ID.ID],
			Extracted: extracted[s.ID.ID],
		})
	}
	for _, p := range result.Procedures {
		summary.Procedures = append(summary.Procedures, ProcedureSummary{
			Name:      p.Name,
			Surface:   p.Surface.String(),
			Lifecycle: p.Lifecycle.String(),
		})
	}
	return summary
}

// recordBuild stores the build and its procedures, marking cache hits in
// summary.
func recordBuild(ctx context.Context, path string, result *pipeline.Result, summary *CompileSummary, logger *slog.Logger) error {
	st, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	target := result.Target.String()
	seq, err := st.RecordBuild(ctx, result.BuildID, result.Module.Name, target)
	if err != nil {
		return err
	}

	for i, p := range result.Procedures {
		cached, err := st.PutProcedure(ctx, result.BuildID, store.Procedure{
			SurfaceHash: p.SurfaceHash,
			Name:        p.Name,
			Target:      target,
			Surface:     p.Surface.String(),
			Lifecycle:   p.Lifecycle.String(),
			Text:        p.Text,
		})
		if err != nil {
			return fmt.Errorf("store %s: %w", p.Name, err)
		}
		summary.Procedures[i].Cached = cached
		if cached {
			summary.Cached++
		}
	}

	logger.Info("build recorded",
		"build_id", result.BuildID,
		"seq", seq,
		"procedures", len(result.Procedures),
		"cached", summary.Cached,
	)
	return nil
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, summary CompileSummary) error {
	if formatter.Structured() {
		return formatter.Success(summary)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d surface(s), %d procedure(s) [%s]\n\n",
		len(summary.Surfaces), len(summary.Procedures), summary.Target)

	fmt.Fprintln(w, "Surfaces:")
	for _, s := range summary.Surfaces {
		marker := ""
		if s.Extracted {
			marker = " (extracted)"
		}
		fmt.Fprintf(w, "  %s#%d%s\n", s.Name, s.ID, marker)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Build: %s\n", summary.BuildID)
	if summary.Cached > 0 {
		fmt.Fprintf(w, "Cached: %d of %d procedure(s)\n", summary.Cached, len(summary.Procedures))
	}
	if summary.Output != "" {
		fmt.Fprintf(w, "Wrote module to %s\n", summary.Output)
	}
	return nil
}

// outputLoadError reports a graph that could not be loaded.
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}
	var details any
	if loadErr.Pos.IsValid() {
		details = map[string]any{
			"file":   loadErr.Pos.Filename(),
			"line":   loadErr.Pos.Line(),
			"column": loadErr.Pos.Column(),
		}
	}
	_ = formatter.Error(loadErr.Code, loadErr.Message, details)
	return WrapExitError(ExitCommandError, loadErr.Code, loadErr)
}

// outputPipelineError maps pipeline failures to codes. Structural validation
// failures list every error.
func outputPipelineError(formatter *OutputFormatter, err error) error {
	var vf *pipeline.ValidationFailedError
	if errors.As(err, &vf) {
		return outputValidationErrors(formatter, vf.Errors, nil, ExitCommandError)
	}
	var cycle *compiler.CycleError
	if errors.As(err, &cycle) {
		_ = formatter.Error(ErrCodeSurfaceCycle, cycle.Message, map[string]any{"path": cycle.Path})
		return WrapExitError(ExitCommandError, ErrCodeSurfaceCycle, err)
	}
	var internal *codegen.InternalError
	if errors.As(err, &internal) && internal.Code == codegen.ErrCodeBadTarget {
		return outputCommandError(formatter, ErrCodeConfig, err.Error())
	}
	return outputCommandError(formatter, ErrCodeCodegen, err.Error())
}

// outputCommandError outputs a single command-level error (exit code 2).
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}
