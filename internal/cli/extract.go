package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/maxim/internal/mir"
	"github.com/roach88/maxim/internal/pipeline"
)

// ExtractResult lists every surface after group extraction.
type ExtractResult struct {
	Surfaces  []*mir.Surface `json:"surfaces" yaml:"surfaces"`
	Extracted []string       `json:"extracted" yaml:"extracted"`
}

// NewExtractCommand creates the extract command.
func NewExtractCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <graph>",
		Short: "Show surfaces after group extraction",
		Long: `Run group extraction on a CUE surface graph and print the result.

Every frontend surface is shown rewritten, followed by the child surfaces
created for extractor-fed nodes. No code is generated.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd.Context(), rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runExtract(ctx context.Context, opts *RootOptions, graphPath string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter, _, logger, err := setup(opts, cmd)
	if err != nil {
		return err
	}

	loaded, err := LoadGraph(graphPath)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	children, err := pipeline.Extract(ctx, loaded.Graph, loaded.Alloc, pipeline.WithLogger(logger))
	if err != nil {
		return outputPipelineError(formatter, err)
	}

	result := ExtractResult{
		Surfaces:  loaded.Graph.Surfaces(),
		Extracted: make([]string, len(children)),
	}
	for i, c := range children {
		result.Extracted[i] = c.ID.String()
	}

	if formatter.Structured() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Extracted %d child surface(s)\n\n", len(children))
	for _, s := range result.Surfaces {
		writeSurface(formatter.Writer, s)
	}
	return nil
}

// writeSurface prints a surface as an indented node list.
func writeSurface(w io.Writer, s *mir.Surface) {
	fmt.Fprintf(w, "surface %s\n", s.ID)
	for i, g := range s.Groups {
		fmt.Fprintf(w, "  group %d: %s source=%s", i, g.ValueType, g.Source.Kind)
		if g.Source.Kind == mir.SourceKindSocket {
			fmt.Fprintf(w, "(%d)", g.Source.Socket)
		}
		fmt.Fprintln(w)
	}
	for i, n := range s.Nodes {
		switch data := n.Data.(type) {
		case mir.Custom:
			fmt.Fprintf(w, "  node %d: block %s", i, data.Block)
		case mir.Group:
			fmt.Fprintf(w, "  node %d: group %s", i, data.Surface)
		case mir.ExtractGroup:
			fmt.Fprintf(w, "  node %d: extract %s sources=%v dests=%v", i, data.Surface, data.SourceSockets, data.DestSockets)
		}
		fmt.Fprintf(w, " sockets=%s\n", formatSockets(n.Sockets))
	}
	fmt.Fprintln(w)
}

func formatSockets(sockets []mir.ValueSocket) string {
	out := "["
	for i, s := range sockets {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%d:", s.GroupID)
		if s.ValueRead {
			out += "r"
		}
		if s.ValueWritten {
			out += "w"
		}
		if s.IsExtractor {
			out += "x"
		}
	}
	return out + "]"
}
