// Package compiler is the graph frontend: it turns CUE surface descriptions
// into a mir.Context, validates the result, and orders surfaces for emission.
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/maxim/internal/mir"
)

// LoadSurfaces parses the top-level "block" and "surface" structs of v into a
// fresh mir.Context.
//
// Blocks receive ids first, then surfaces, each in declaration order, so the
// same CUE input always yields the same procedure names for a given
// allocator start.
//
//	block: osc: controls: ["freq"]
//	surface: root: {
//		groups: [{type: "num[]"}, {type: "num", source: socket: 0}]
//		nodes: [
//			{block: "osc", sockets: [{group: 0, write: true, extractor: true}]},
//			{surface: "inner", sockets: [{group: 0, read: true}]},
//			{extract: "voice", sources: [0], dests: [1], sockets: [...]},
//		]
//	}
func LoadSurfaces(v cue.Value, alloc *mir.IDAllocator) (*mir.Context, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	ctx := mir.NewContext()
	blocks := make(map[string]mir.BlockID)
	surfaces := make(map[string]mir.SurfaceID)

	blockVal := v.LookupPath(cue.ParsePath("block"))
	if blockVal.Exists() {
		iter, err := blockVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			name := iter.Label()
			controls, err := parseStrings(iter.Value().LookupPath(cue.ParsePath("controls")), "block."+name+".controls")
			if err != nil {
				return nil, err
			}
			id := mir.NewBlockID(name, alloc)
			blocks[name] = id
			ctx.AddBlock(mir.NewBlock(id, controls))
		}
	}

	surfaceVal := v.LookupPath(cue.ParsePath("surface"))
	if !surfaceVal.Exists() {
		return nil, &CompileError{Field: "surface", Message: "at least one surface is required", Pos: v.Pos()}
	}

	// Allocate every surface id before parsing bodies so nodes can reference
	// surfaces declared later.
	iter, err := surfaceVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var order []string
	bodies := make(map[string]cue.Value)
	for iter.Next() {
		name := iter.Label()
		surfaces[name] = mir.NewSurfaceID(name, alloc)
		order = append(order, name)
		bodies[name] = iter.Value()
	}
	if len(order) == 0 {
		return nil, &CompileError{Field: "surface", Message: "at least one surface is required", Pos: surfaceVal.Pos()}
	}

	p := &surfaceParser{blocks: blocks, surfaces: surfaces}
	for _, name := range order {
		s, err := p.parseSurface(surfaces[name], bodies[name])
		if err != nil {
			return nil, err
		}
		ctx.AddSurface(s)
	}

	return ctx, nil
}

type surfaceParser struct {
	blocks   map[string]mir.BlockID
	surfaces map[string]mir.SurfaceID
}

func (p *surfaceParser) parseSurface(id mir.SurfaceID, v cue.Value) (*mir.Surface, error) {
	field := "surface." + id.DebugName

	groups := []mir.ValueGroup{}
	groupsVal := v.LookupPath(cue.ParsePath("groups"))
	if groupsVal.Exists() {
		list, err := groupsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; list.Next(); i++ {
			g, err := parseGroup(list.Value(), fmt.Sprintf("%s.groups[%d]", field, i))
			if err != nil {
				return nil, err
			}
			groups = append(groups, g)
		}
	}

	nodes := []mir.Node{}
	nodesVal := v.LookupPath(cue.ParsePath("nodes"))
	if nodesVal.Exists() {
		list, err := nodesVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; list.Next(); i++ {
			n, err := p.parseNode(list.Value(), fmt.Sprintf("%s.nodes[%d]", field, i))
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		}
	}

	return mir.NewSurface(id, groups, nodes), nil
}

func parseGroup(v cue.Value, field string) (mir.ValueGroup, error) {
	typ, err := requiredString(v, "type", field)
	if err != nil {
		return mir.ValueGroup{}, err
	}

	source := mir.SourceNone()
	socketVal := v.LookupPath(cue.ParsePath("source.socket"))
	if socketVal.Exists() {
		socket, err := socketVal.Int64()
		if err != nil {
			return mir.ValueGroup{}, formatCUEError(err)
		}
		if socket < 0 {
			return mir.ValueGroup{}, &CompileError{Field: field + ".source.socket", Message: "must be non-negative", Pos: socketVal.Pos()}
		}
		source = mir.SourceSocket(int(socket))
	}

	return mir.NewValueGroup(mir.ParseValueType(typ), source), nil
}

func (p *surfaceParser) parseNode(v cue.Value, field string) (mir.Node, error) {
	sockets, err := parseSockets(v.LookupPath(cue.ParsePath("sockets")), field+".sockets")
	if err != nil {
		return mir.Node{}, err
	}

	var kinds []string
	for _, k := range []string{"block", "surface", "extract"} {
		if v.LookupPath(cue.ParsePath(k)).Exists() {
			kinds = append(kinds, k)
		}
	}
	if len(kinds) != 1 {
		return mir.Node{}, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("node must name exactly one of block, surface or extract (found %d)", len(kinds)),
			Pos:     v.Pos(),
		}
	}

	name, err := requiredString(v, kinds[0], field)
	if err != nil {
		return mir.Node{}, err
	}
	pos := v.LookupPath(cue.ParsePath(kinds[0])).Pos()

	switch kinds[0] {
	case "block":
		id, ok := p.blocks[name]
		if !ok {
			return mir.Node{}, &CompileError{Field: field + ".block", Message: fmt.Sprintf("undefined block %q", name), Pos: pos}
		}
		return mir.NewNode(sockets, mir.Custom{Block: id}), nil

	case "surface":
		id, ok := p.surfaces[name]
		if !ok {
			return mir.Node{}, &CompileError{Field: field + ".surface", Message: fmt.Sprintf("undefined surface %q", name), Pos: pos}
		}
		return mir.NewNode(sockets, mir.Group{Surface: id}), nil

	default:
		id, ok := p.surfaces[name]
		if !ok {
			return mir.Node{}, &CompileError{Field: field + ".extract", Message: fmt.Sprintf("undefined surface %q", name), Pos: pos}
		}
		sources, err := parseInts(v.LookupPath(cue.ParsePath("sources")), field+".sources")
		if err != nil {
			return mir.Node{}, err
		}
		dests, err := parseInts(v.LookupPath(cue.ParsePath("dests")), field+".dests")
		if err != nil {
			return mir.Node{}, err
		}
		return mir.NewNode(sockets, mir.ExtractGroup{Surface: id, SourceSockets: sources, DestSockets: dests}), nil
	}
}

func parseSockets(v cue.Value, field string) ([]mir.ValueSocket, error) {
	sockets := []mir.ValueSocket{}
	if !v.Exists() {
		return sockets, nil
	}
	list, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; list.Next(); i++ {
		sv := list.Value()
		sf := fmt.Sprintf("%s[%d]", field, i)

		groupVal := sv.LookupPath(cue.ParsePath("group"))
		if !groupVal.Exists() {
			return nil, &CompileError{Field: sf + ".group", Message: "group is required", Pos: sv.Pos()}
		}
		group, err := groupVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}

		write, err := optionalBool(sv, "write")
		if err != nil {
			return nil, err
		}
		read, err := optionalBool(sv, "read")
		if err != nil {
			return nil, err
		}
		extractor, err := optionalBool(sv, "extractor")
		if err != nil {
			return nil, err
		}
		sockets = append(sockets, mir.NewValueSocket(int(group), write, read, extractor))
	}
	return sockets, nil
}

func parseInts(v cue.Value, field string) ([]int, error) {
	out := []int{}
	if !v.Exists() {
		return out, nil
	}
	list, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for list.Next() {
		n, err := list.Value().Int64()
		if err != nil {
			return nil, &CompileError{Field: field, Message: "must be a list of integers", Pos: list.Value().Pos()}
		}
		out = append(out, int(n))
	}
	return out, nil
}

func parseStrings(v cue.Value, field string) ([]string, error) {
	if !v.Exists() {
		return nil, nil
	}
	list, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for list.Next() {
		s, err := list.Value().String()
		if err != nil {
			return nil, &CompileError{Field: field, Message: "must be a list of strings", Pos: list.Value().Pos()}
		}
		out = append(out, s)
	}
	return out, nil
}

func requiredString(v cue.Value, key, field string) (string, error) {
	sv := v.LookupPath(cue.ParsePath(key))
	if !sv.Exists() {
		return "", &CompileError{Field: field + "." + key, Message: key + " is required", Pos: v.Pos()}
	}
	s, err := sv.String()
	if err != nil {
		return "", &CompileError{Field: field + "." + key, Message: "must be a string", Pos: sv.Pos()}
	}
	return s, nil
}

func optionalBool(v cue.Value, key string) (bool, error) {
	bv := v.LookupPath(cue.ParsePath(key))
	if !bv.Exists() {
		return false, nil
	}
	b, err := bv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
