package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/maxim/internal/mir"
)

// LoadFile compiles one CUE file and parses its surfaces. Positions in errors
// carry path.
func LoadFile(path string, alloc *mir.IDAllocator) (*mir.Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph: %w", err)
	}
	v := cuecontext.New().CompileBytes(data, cue.Filename(path))
	return LoadSurfaces(v, alloc)
}
