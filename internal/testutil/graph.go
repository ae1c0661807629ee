// Package testutil provides builders for surface graphs used in tests.
package testutil

import "github.com/roach88/maxim/internal/mir"

// Graph builds surfaces and blocks into one mir.Context with a shared id
// allocator.
//
// Ids are handed out in call order starting at 1, so a test that builds the
// same graph twice gets the same procedure names both times.
type Graph struct {
	Alloc *mir.IDAllocator
	Ctx   *mir.Context
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{Alloc: mir.NewIDAllocator(), Ctx: mir.NewContext()}
}

// Block registers a leaf block and returns its id.
func (g *Graph) Block(name string, controls ...string) mir.BlockID {
	id := mir.NewBlockID(name, g.Alloc)
	g.Ctx.AddBlock(mir.NewBlock(id, controls))
	return id
}

// Surface starts a new surface. The id is allocated immediately so nested
// references can be made before Build.
func (g *Graph) Surface(name string) *SurfaceBuilder {
	return &SurfaceBuilder{graph: g, id: mir.NewSurfaceID(name, g.Alloc)}
}

// SurfaceBuilder accumulates the groups and nodes of one surface.
type SurfaceBuilder struct {
	graph  *Graph
	id     mir.SurfaceID
	groups []mir.ValueGroup
	nodes  []mir.Node
}

// ID returns the surface id.
func (s *SurfaceBuilder) ID() mir.SurfaceID {
	return s.id
}

// Group adds an unsourced value group and returns its index. Types ending in
// "[]" are arrays.
func (s *SurfaceBuilder) Group(typ string) int {
	s.groups = append(s.groups, mir.NewValueGroup(mir.ParseValueType(typ), mir.SourceNone()))
	return len(s.groups) - 1
}

// SocketGroup adds a value group fed by the enclosing node's socket.
func (s *SurfaceBuilder) SocketGroup(typ string, socket int) int {
	s.groups = append(s.groups, mir.NewValueGroup(mir.ParseValueType(typ), mir.SourceSocket(socket)))
	return len(s.groups) - 1
}

// Custom adds a leaf node and returns its index.
func (s *SurfaceBuilder) Custom(block mir.BlockID, sockets ...mir.ValueSocket) int {
	return s.add(sockets, mir.Custom{Block: block})
}

// Nested adds a statically instantiated nested surface.
func (s *SurfaceBuilder) Nested(surface mir.SurfaceID, sockets ...mir.ValueSocket) int {
	return s.add(sockets, mir.Group{Surface: surface})
}

// Extract adds a dynamically instantiated nested surface.
func (s *SurfaceBuilder) Extract(surface mir.SurfaceID, sources, dests []int, sockets ...mir.ValueSocket) int {
	return s.add(sockets, mir.ExtractGroup{Surface: surface, SourceSockets: sources, DestSockets: dests})
}

func (s *SurfaceBuilder) add(sockets []mir.ValueSocket, data mir.NodeData) int {
	if sockets == nil {
		sockets = []mir.ValueSocket{}
	}
	s.nodes = append(s.nodes, mir.NewNode(sockets, data))
	return len(s.nodes) - 1
}

// Build registers the surface in the graph's context and returns it.
func (s *SurfaceBuilder) Build() *mir.Surface {
	groups := s.groups
	if groups == nil {
		groups = []mir.ValueGroup{}
	}
	nodes := s.nodes
	if nodes == nil {
		nodes = []mir.Node{}
	}
	surface := mir.NewSurface(s.id, groups, nodes)
	s.graph.Ctx.AddSurface(surface)
	return surface
}

// Reads is a plain socket reading group.
func Reads(group int) mir.ValueSocket {
	return mir.NewValueSocket(group, false, true, false)
}

// Writes is a plain socket writing group.
func Writes(group int) mir.ValueSocket {
	return mir.NewValueSocket(group, true, false, false)
}

// ReadsWrites is a plain socket that both reads and writes group.
func ReadsWrites(group int) mir.ValueSocket {
	return mir.NewValueSocket(group, true, true, false)
}

// ExtractWrites is an extractor socket producing group; the group becomes a
// source of the extracted cluster.
func ExtractWrites(group int) mir.ValueSocket {
	return mir.NewValueSocket(group, true, false, true)
}

// ExtractReads is an extractor socket consuming group; the group becomes a
// destination of the extracted cluster.
func ExtractReads(group int) mir.ValueSocket {
	return mir.NewValueSocket(group, false, true, true)
}
