package codegen

import (
	"fmt"

	"github.com/roach88/maxim/internal/lir"
	"github.com/roach88/maxim/internal/mir"
)

// BlockCompiler emits the call to a leaf block's lifecycle procedure.
//
// data is the node's data sub-block, pointers the node's pointer sub-block and
// ui the UI sub-block, nil unless the target includes UI support.
type BlockCompiler interface {
	BuildLifecycleCall(m *lir.Module, b *lir.Builder, block *mir.Block, lifecycle Lifecycle, data, pointers, ui lir.Value) error
}

// BlockFuncName returns the name of a block's lifecycle procedure.
func BlockFuncName(id mir.BlockID, lifecycle Lifecycle) string {
	return fmt.Sprintf("maxim.block.%d.%s.%s", id.ID, id.DebugName, lifecycle)
}

// ExternBlockCompiler treats every block lifecycle as an external procedure
// resolved at link time.
type ExternBlockCompiler struct{}

// BuildLifecycleCall implements BlockCompiler.
func (ExternBlockCompiler) BuildLifecycleCall(m *lir.Module, b *lir.Builder, block *mir.Block, lifecycle Lifecycle, data, pointers, ui lir.Value) error {
	args := []lir.Value{data, pointers}
	if ui != nil {
		args = append(args, ui)
	}
	fn := m.GetOrCreateFunc(BlockFuncName(block.ID, lifecycle), func() lir.Signature {
		params := []lir.ParamSpec{{Name: "data", Type: lir.Ptr}, {Name: "pointers", Type: lir.Ptr}}
		if ui != nil {
			params = append(params, lir.ParamSpec{Name: "ui", Type: lir.Ptr})
		}
		return lir.Signature{Ret: lir.Void, Params: params}
	})
	b.Call(fn, args...)
	return nil
}
