package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/roach88/maxim/internal/codegen"
	"github.com/roach88/maxim/internal/compiler"
	"github.com/roach88/maxim/internal/engine"
	"github.com/roach88/maxim/internal/mir"
	"github.com/roach88/maxim/internal/pipeline"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// BuildID is the pipeline build id of the compiled graph.
	BuildID string `json:"build_id"`

	// Function is the executed lifecycle procedure.
	Function string `json:"function"`

	// Trace holds every call made while executing Function.
	Trace engine.Trace `json:"-"`

	// Memory is the machine memory after the run.
	Memory *engine.Memory `json:"-"`

	// Errors contains assertion failure messages.
	Errors []string `json:"errors,omitempty"`
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Option configures a scenario run.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	maxSteps int
}

// WithLogger sets the logger passed to the pipeline and the engine.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMaxSteps sets the engine's instruction quota.
func WithMaxSteps(n int) Option {
	return func(o *options) { o.maxSteps = n }
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Load the CUE graph with a fresh id allocator
//  2. Compile it through the pipeline with a fixed build id
//  3. Seed memory from bindings and values
//  4. Execute the root surface's lifecycle procedure
//  5. Evaluate assertions against trace and memory
//
// Failures in steps 1-4 are returned as errors; assertion failures are
// recorded in the result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		maxSteps: engine.DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(&o)
	}

	lifecycle, ok := codegen.ParseLifecycle(scenario.Lifecycle)
	if !ok {
		return nil, fmt.Errorf("unknown lifecycle %q", scenario.Lifecycle)
	}

	alloc := mir.NewIDAllocator()
	graph, err := compiler.LoadFile(scenario.Graph, alloc)
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}

	target := codegen.DefaultTarget()
	if scenario.Target != nil {
		target = *scenario.Target
	}
	buildID := scenario.BuildID
	if buildID == "" {
		buildID = DefaultBuildID
	}

	built, err := pipeline.Run(ctx, graph, alloc,
		pipeline.WithTarget(target),
		pipeline.WithIDGenerator(pipeline.NewFixedGenerator(buildID)),
		pipeline.WithLogger(o.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("compile graph: %w", err)
	}

	res := &resolver{ctx: built.Context, lifecycle: lifecycle}
	function, err := res.surfaceFunc(scenario.Root, "")
	if err != nil {
		return nil, err
	}

	mem, err := seedMemory(scenario)
	if err != nil {
		return nil, err
	}

	machine := engine.New(built.Module,
		engine.WithMemory(mem),
		engine.WithMaxSteps(o.maxSteps),
		engine.WithLogger(o.logger),
	)
	if err := machine.CallLifecycle(ctx, function); err != nil {
		return nil, fmt.Errorf("execute %s: %w", function, err)
	}

	result := &Result{
		Pass:     true,
		BuildID:  built.BuildID,
		Function: function,
		Trace:    machine.Trace(),
		Memory:   mem,
	}
	for _, msg := range evaluateAssertions(result, scenario.Assertions, res) {
		result.AddError(msg)
	}

	o.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"function", function,
		"calls", len(result.Trace),
		"pass", result.Pass,
	)
	return result, nil
}

// seedMemory applies bindings then values, each in address order.
func seedMemory(s *Scenario) (*engine.Memory, error) {
	mem := engine.NewMemory()

	for _, path := range sortedKeys(s.Bindings) {
		if err := mem.Bind(path, s.Bindings[path]); err != nil {
			return nil, fmt.Errorf("bindings: %w", err)
		}
	}
	for _, path := range sortedKeys(s.Values) {
		if err := mem.Set(path, s.Values[path]); err != nil {
			return nil, fmt.Errorf("values: %w", err)
		}
	}
	return mem, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// resolver maps surface and block names to procedure names.
type resolver struct {
	ctx       *mir.Context
	lifecycle codegen.Lifecycle
}

func (r *resolver) lifecycleOr(name string) (codegen.Lifecycle, error) {
	if name == "" {
		return r.lifecycle, nil
	}
	l, ok := codegen.ParseLifecycle(name)
	if !ok {
		return 0, fmt.Errorf("unknown lifecycle %q", name)
	}
	return l, nil
}

func (r *resolver) surfaceFunc(name, lifecycle string) (string, error) {
	l, err := r.lifecycleOr(lifecycle)
	if err != nil {
		return "", err
	}
	s, ok := r.ctx.SurfaceByName(name)
	if !ok {
		return "", fmt.Errorf("unknown surface %q", name)
	}
	return codegen.LifecycleFuncName(s.ID, l), nil
}

func (r *resolver) blockFunc(name, lifecycle string) (string, error) {
	l, err := r.lifecycleOr(lifecycle)
	if err != nil {
		return "", err
	}
	for _, b := range r.ctx.Blocks() {
		if b.ID.DebugName == name {
			return codegen.BlockFuncName(b.ID, l), nil
		}
	}
	return "", fmt.Errorf("unknown block %q", name)
}

func (r *resolver) callFunc(ref CallRef, lifecycle string) (string, error) {
	if ref.Surface != "" {
		return r.surfaceFunc(ref.Surface, lifecycle)
	}
	return r.blockFunc(ref.Block, lifecycle)
}
