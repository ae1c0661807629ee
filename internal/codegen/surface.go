package codegen

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/maxim/internal/lir"
	"github.com/roach88/maxim/internal/mir"
)

// Generator emits lifecycle procedures for surfaces into one module.
//
// Thread-safety: a Generator is not safe for concurrent use; it shares the
// module's symbol table with every surface it compiles.
type Generator struct {
	module  *lir.Module
	mir     *mir.Context
	target  TargetProperties
	layouts LayoutProvider
	blocks  BlockCompiler
	arrays  ArrayAccessor
	logger  *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithLayouts sets the layout provider. Defaults to SequentialLayouts.
func WithLayouts(p LayoutProvider) Option {
	return func(g *Generator) { g.layouts = p }
}

// WithBlockCompiler sets the leaf block compiler. Defaults to
// ExternBlockCompiler.
func WithBlockCompiler(c BlockCompiler) Option {
	return func(g *Generator) { g.blocks = c }
}

// WithArrayAccessor sets the array bitmap accessor. Defaults to
// FieldArrayAccessor{BitmapField: DefaultBitmapField}.
func WithArrayAccessor(a ArrayAccessor) Option {
	return func(g *Generator) { g.arrays = a }
}

// WithLogger sets the logger used for debug records.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator creates a generator emitting into module.
func NewGenerator(module *lir.Module, mirCtx *mir.Context, target TargetProperties, opts ...Option) (*Generator, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	g := &Generator{
		module:  module,
		mir:     mirCtx,
		target:  target,
		layouts: SequentialLayouts{},
		blocks:  ExternBlockCompiler{},
		arrays:  FieldArrayAccessor{BitmapField: DefaultBitmapField},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Module returns the module being emitted into.
func (g *Generator) Module() *lir.Module {
	return g.module
}

// LifecycleFuncName returns the stable procedure name of a surface lifecycle.
func LifecycleFuncName(id mir.SurfaceID, lifecycle Lifecycle) string {
	return fmt.Sprintf("maxim.surface.%d.%s.%s", id.ID, id.DebugName, lifecycle)
}

// LifecycleFunc returns the surface's lifecycle procedure, declaring it on
// first use.
func (g *Generator) LifecycleFunc(surface *mir.Surface, lifecycle Lifecycle) *lir.Function {
	return g.module.GetOrCreateFunc(LifecycleFuncName(surface.ID, lifecycle), func() lir.Signature {
		return lir.Signature{
			Ret: lir.Void,
			Params: []lir.ParamSpec{
				{Name: "scratch", Type: lir.Ptr},
				{Name: "pointers", Type: lir.Ptr},
			},
		}
	})
}

// BuildFuncs emits the construct, update and destruct procedures of surface.
func (g *Generator) BuildFuncs(surface *mir.Surface) error {
	for _, lifecycle := range Lifecycles {
		if err := g.BuildLifecycleFunc(surface, lifecycle); err != nil {
			return err
		}
	}
	return nil
}

// BuildLifecycleFunc emits one lifecycle procedure of surface. A procedure
// that already has a body is left alone. On error the procedure is reset to a
// declaration; procedures already defined in the module are untouched.
func (g *Generator) BuildLifecycleFunc(surface *mir.Surface, lifecycle Lifecycle) error {
	fn := g.LifecycleFunc(surface, lifecycle)
	if !fn.IsDeclaration() {
		return nil
	}

	if err := g.buildBody(fn, surface, lifecycle); err != nil {
		fn.Reset()
		return err
	}

	g.logger.Debug("built lifecycle procedure",
		"surface", surface.ID.String(),
		"lifecycle", lifecycle.String(),
		"function", fn.Name,
		"blocks", len(fn.Blocks),
	)
	return nil
}

// BuildLifecycleCall emits a call to surface's lifecycle procedure.
func (g *Generator) BuildLifecycleCall(b *lir.Builder, surface *mir.Surface, lifecycle Lifecycle, scratch, pointers lir.Value) {
	b.Call(g.LifecycleFunc(surface, lifecycle), scratch, pointers)
}

func (g *Generator) buildBody(fn *lir.Function, surface *mir.Surface, lifecycle Lifecycle) error {
	layout, err := g.layouts.SurfaceLayout(surface)
	if err != nil {
		return err
	}

	b := lir.NewBuilder(fn)
	b.PositionAtEnd(fn.AppendBlock("entry"))
	scratch := fn.Params[0]
	pointers := fn.Params[1]

	for nodeIndex := range surface.Nodes {
		scratchIndex, ok := layout.NodeScratchIndex(nodeIndex)
		if !ok {
			return layoutMiss(surface, nodeIndex, "scratch")
		}
		pointerIndex, ok := layout.NodePointerIndex(nodeIndex)
		if !ok {
			return layoutMiss(surface, nodeIndex, "pointer")
		}

		nodeScratch := b.StructGEP(scratch, scratchIndex, "")
		nodePointers := b.StructGEP(pointers, pointerIndex, "")
		if err := g.buildNodeCall(b, surface, nodeIndex, lifecycle, nodeScratch, nodePointers); err != nil {
			return err
		}
	}

	b.RetVoid()
	return nil
}

func (g *Generator) buildNodeCall(b *lir.Builder, surface *mir.Surface, nodeIndex int, lifecycle Lifecycle, scratch, pointers lir.Value) error {
	node := surface.Nodes[nodeIndex]

	switch data := node.Data.(type) {
	case mir.Custom:
		block, ok := g.mir.Block(data.Block)
		if !ok {
			return &InternalError{
				Code:    ErrCodeUndefinedBlock,
				Message: fmt.Sprintf("block %s is not defined", data.Block),
				Surface: surface.ID,
				Node:    nodeIndex,
			}
		}
		dataPtr := b.StructGEP(scratch, 0, "")
		var uiPtr lir.Value
		if g.target.IncludeUI {
			uiPtr = b.StructGEP(scratch, 1, "")
		}
		return g.blocks.BuildLifecycleCall(g.module, b, block, lifecycle, dataPtr, pointers, uiPtr)

	case mir.Group:
		nested, err := g.nestedSurface(surface, nodeIndex, data.Surface)
		if err != nil {
			return err
		}
		g.BuildLifecycleCall(b, nested, lifecycle, scratch, pointers)
		return nil

	case mir.ExtractGroup:
		nested, err := g.nestedSurface(surface, nodeIndex, data.Surface)
		if err != nil {
			return err
		}
		for _, socket := range append(append([]int(nil), data.SourceSockets...), data.DestSockets...) {
			if socket < 0 || socket >= len(node.Sockets) {
				return &InternalError{
					Code:    ErrCodeSocketRange,
					Message: fmt.Sprintf("socket %d out of range (node has %d sockets)", socket, len(node.Sockets)),
					Surface: surface.ID,
					Node:    nodeIndex,
				}
			}
		}
		g.buildExtractGroupCall(b, nested, data, lifecycle, scratch, pointers)
		return nil

	default:
		return &InternalError{
			Code:    ErrCodeUndefinedSurface,
			Message: fmt.Sprintf("unknown node data %T", node.Data),
			Surface: surface.ID,
			Node:    nodeIndex,
		}
	}
}

// buildExtractGroupCall emits the bounded voice loop:
//
//	entry:             [bitmap = OR of source bitmaps]; index = 0
//	voice.check:       if index < Capacity goto voice.checkactive else voice.end
//	voice.checkactive: index' = index + 1; [if bit index of bitmap is clear goto voice.check]
//	voice.run:         call nested(scratch[index], pointers[index]); goto voice.check
//	voice.end:         [update only: write bitmap to every destination array]
func (g *Generator) buildExtractGroupCall(b *lir.Builder, nested *mir.Surface, data mir.ExtractGroup, lifecycle Lifecycle, scratch, pointers lir.Value) {
	fn := b.Function()
	bitmapType := g.target.BitmapType()

	var activeBitmap lir.Value
	if lifecycle == Update && len(data.SourceSockets) > 0 {
		for i, socket := range data.SourceSockets {
			bitmap := g.arrays.GetBitmap(b, g.socketArray(b, pointers, socket), bitmapType)
			if i == 0 {
				activeBitmap = bitmap
			} else {
				activeBitmap = b.Or(activeBitmap, bitmap, "")
			}
		}
	}

	indexPtr := b.Alloca(bitmapType, "voiceindex.ptr")
	b.Store(indexPtr, lir.ConstInt(bitmapType, 0))

	checkBlock := fn.AppendBlock("voice.check")
	checkActiveBlock := fn.AppendBlock("voice.checkactive")
	runBlock := fn.AppendBlock("voice.run")
	endBlock := fn.AppendBlock("voice.end")

	b.Br(checkBlock)
	b.PositionAtEnd(checkBlock)

	currentIndex := b.Load(bitmapType, indexPtr, "voiceindex")
	canContinue := b.ICmpULT(currentIndex, lir.ConstInt(bitmapType, uint64(g.target.Capacity)), "cancontinue")
	b.CondBr(canContinue, checkActiveBlock, endBlock)
	b.PositionAtEnd(checkActiveBlock)

	nextIndex := b.Add(currentIndex, lir.ConstInt(bitmapType, 1), "nextindex")
	b.Store(indexPtr, nextIndex)

	if activeBitmap != nil {
		bitmask := b.Shl(lir.ConstInt(bitmapType, 1), currentIndex, "bitmask")
		activeBits := b.And(activeBitmap, bitmask, "activebits")
		activeBit := b.Trunc(b.LShr(activeBits, currentIndex, "activebit"), lir.I1, "")
		b.CondBr(activeBit, runBlock, checkBlock)
	} else {
		b.Br(runBlock)
	}

	b.PositionAtEnd(runBlock)
	voiceScratch := b.GEP(scratch, currentIndex, "scratchptr")
	voicePointers := b.GEP(pointers, currentIndex, "pointersptr")
	g.BuildLifecycleCall(b, nested, lifecycle, voiceScratch, voicePointers)
	b.Br(checkBlock)

	b.PositionAtEnd(endBlock)

	if lifecycle != Update {
		return
	}
	resultBitmap := activeBitmap
	if resultBitmap == nil {
		resultBitmap = lir.ConstInt(bitmapType, g.target.AllSlotsMask())
	}
	for _, socket := range data.DestSockets {
		g.arrays.SetBitmap(b, g.socketArray(b, pointers, socket), resultBitmap)
	}
}

// socketArray loads the array bound to a socket of the node whose pointer
// sub-block is pointers.
func (g *Generator) socketArray(b *lir.Builder, pointers lir.Value, socket int) lir.Value {
	return b.Load(lir.Ptr, b.StructGEP(pointers, socket, ""), "")
}

func (g *Generator) nestedSurface(surface *mir.Surface, nodeIndex int, id mir.SurfaceID) (*mir.Surface, error) {
	nested, ok := g.mir.Surface(id)
	if !ok {
		return nil, &InternalError{
			Code:    ErrCodeUndefinedSurface,
			Message: fmt.Sprintf("surface %s is not defined", id),
			Surface: surface.ID,
			Node:    nodeIndex,
		}
	}
	return nested, nil
}

func layoutMiss(surface *mir.Surface, nodeIndex int, which string) *InternalError {
	return &InternalError{
		Code:    ErrCodeLayoutMiss,
		Message: fmt.Sprintf("layout has no %s entry for node", which),
		Surface: surface.ID,
		Node:    nodeIndex,
	}
}
