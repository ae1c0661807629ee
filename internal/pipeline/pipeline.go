// Package pipeline runs a frontend graph through validation, group
// extraction, emission ordering and lifecycle code generation.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/maxim/internal/codegen"
	"github.com/roach88/maxim/internal/compiler"
	"github.com/roach88/maxim/internal/lir"
	"github.com/roach88/maxim/internal/mir"
	"github.com/roach88/maxim/internal/pass"
)

// DefaultModuleName names the emitted module when no name is configured.
const DefaultModuleName = "maxim"

// Option configures a pipeline run.
type Option func(*options)

type options struct {
	target     codegen.TargetProperties
	moduleName string
	ids        IDGenerator
	layouts    codegen.LayoutProvider
	logger     *slog.Logger
}

// WithTarget sets the code generation target. Defaults to
// codegen.DefaultTarget().
func WithTarget(t codegen.TargetProperties) Option {
	return func(o *options) { o.target = t }
}

// WithModuleName sets the emitted module's name.
func WithModuleName(name string) Option {
	return func(o *options) { o.moduleName = name }
}

// WithIDGenerator sets the build id source. Defaults to UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) { o.ids = g }
}

// WithLayouts sets the layout provider passed to the code generator.
func WithLayouts(p codegen.LayoutProvider) Option {
	return func(o *options) { o.layouts = p }
}

// WithLogger sets the logger for the run and every stage below it.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Procedure is one emitted lifecycle procedure.
type Procedure struct {
	Surface     mir.SurfaceID     `json:"surface" yaml:"surface"`
	Lifecycle   codegen.Lifecycle `json:"lifecycle" yaml:"lifecycle"`
	Name        string            `json:"name" yaml:"name"`
	SurfaceHash string            `json:"surface_hash" yaml:"surface_hash"`
	Text        string            `json:"text" yaml:"text"`
}

// Result is the outcome of a successful run.
type Result struct {
	BuildID string
	Target  codegen.TargetProperties
	// Context holds the frontend surfaces (rewritten by extraction) plus every
	// extracted child.
	Context *mir.Context
	// Extracted lists the child surfaces created by extraction, in creation
	// order.
	Extracted []*mir.Surface
	// Order is the emission order: every surface after the surfaces it
	// instantiates.
	Order      []*mir.Surface
	Module     *lir.Module
	Hashes     map[uint64]string
	Procedures []Procedure
}

// Procedure returns the emitted procedure with the given name.
func (r *Result) Procedure(name string) (Procedure, bool) {
	for _, p := range r.Procedures {
		if p.Name == name {
			return p, true
		}
	}
	return Procedure{}, false
}

func newOptions(opts []Option) options {
	o := options{
		target:     codegen.DefaultTarget(),
		moduleName: DefaultModuleName,
		ids:        UUIDv7Generator{},
		layouts:    codegen.SequentialLayouts{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Extract validates graph and runs group extraction on every frontend
// surface, registering the children in graph. It returns the children in
// creation order. Only WithLogger applies.
func Extract(ctx context.Context, graph *mir.Context, alloc *mir.IDAllocator, opts ...Option) ([]*mir.Surface, error) {
	o := newOptions(opts)
	return extract(ctx, graph, alloc, o)
}

func extract(ctx context.Context, graph *mir.Context, alloc *mir.IDAllocator, o options) ([]*mir.Surface, error) {
	if errs := compiler.Validate(graph); len(errs) > 0 {
		return nil, &ValidationFailedError{Errors: errs}
	}

	frontend := graph.Surfaces()
	var extracted []*mir.Surface
	for _, s := range frontend {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("extract: %w", err)
		}
		children, err := pass.GroupExtracted(s, alloc, pass.WithLogger(o.logger))
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", s.ID, err)
		}
		for _, c := range children {
			graph.AddSurface(c)
		}
		extracted = append(extracted, children...)
	}
	return extracted, nil
}

// Run compiles graph. Extraction rewrites the frontend surfaces in place and
// registers the children in graph; alloc must be the allocator graph's ids
// came from so child ids stay unique.
//
// Each frontend surface is extracted exactly once; children are never
// re-extracted.
func Run(ctx context.Context, graph *mir.Context, alloc *mir.IDAllocator, opts ...Option) (*Result, error) {
	o := newOptions(opts)

	if err := o.target.Validate(); err != nil {
		return nil, err
	}
	extracted, err := extract(ctx, graph, alloc, o)
	if err != nil {
		return nil, err
	}

	order, err := compiler.EmissionOrder(graph)
	if err != nil {
		return nil, err
	}

	module := lir.NewModule(o.moduleName)
	gen, err := codegen.NewGenerator(module, graph, o.target,
		codegen.WithLayouts(o.layouts),
		codegen.WithLogger(o.logger),
	)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Target:    o.target,
		Context:   graph,
		Extracted: extracted,
		Order:     order,
		Module:    module,
		Hashes:    make(map[uint64]string, len(order)),
	}

	for _, s := range order {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("codegen: %w", err)
		}
		if err := gen.BuildFuncs(s); err != nil {
			return nil, fmt.Errorf("codegen %s: %w", s.ID, err)
		}

		hash, err := mir.SurfaceHash(s)
		if err != nil {
			return nil, fmt.Errorf("hash %s: %w", s.ID, err)
		}
		result.Hashes[s.ID.ID] = hash

		for _, lifecycle := range codegen.Lifecycles {
			fn := gen.LifecycleFunc(s, lifecycle)
			result.Procedures = append(result.Procedures, Procedure{
				Surface:     s.ID,
				Lifecycle:   lifecycle,
				Name:        fn.Name,
				SurfaceHash: hash,
				Text:        fn.String(),
			})
		}
	}

	result.BuildID = o.ids.Generate()
	o.logger.Info("pipeline complete",
		"build_id", result.BuildID,
		"surfaces", len(order),
		"extracted", len(extracted),
		"procedures", len(result.Procedures),
		"target", o.target.String(),
	)
	return result, nil
}
