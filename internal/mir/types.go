package mir

import (
	"encoding/json"
	"slices"
	"strings"
)

// ValueType is the opaque type carried by a value group. Only one property is
// observed by the compiler core: whether the type is an array, and if so its
// element type.
type ValueType struct {
	Name string     `json:"name" yaml:"name"`
	Elem *ValueType `json:"elem,omitempty" yaml:"elem,omitempty"`
}

// Scalar returns a non-array value type.
func Scalar(name string) ValueType {
	return ValueType{Name: name}
}

// Array returns the array type holding elements of elem.
func Array(elem ValueType) ValueType {
	return ValueType{Name: elem.Name + "[]", Elem: &elem}
}

// ParseValueType parses the textual form used by the frontend: a trailing
// "[]" marks an array.
func ParseValueType(s string) ValueType {
	if strings.HasSuffix(s, "[]") {
		return Array(ParseValueType(strings.TrimSuffix(s, "[]")))
	}
	return Scalar(s)
}

// IsArray reports whether t is an array type.
func (t ValueType) IsArray() bool {
	return t.Elem != nil
}

// BaseType returns the element type of an array type.
func (t ValueType) BaseType() (ValueType, bool) {
	if t.Elem == nil {
		return ValueType{}, false
	}
	return *t.Elem, true
}

func (t ValueType) clone() ValueType {
	if t.Elem == nil {
		return t
	}
	elem := t.Elem.clone()
	return ValueType{Name: t.Name, Elem: &elem}
}

func (t ValueType) String() string {
	return t.Name
}

// SourceKind describes how a value group's value is produced.
type SourceKind string

const (
	// SourceKindNone means the value is produced by sockets inside the surface.
	SourceKindNone SourceKind = "none"
	// SourceKindSocket means the value is forwarded from a socket on the
	// enclosing Group or ExtractGroup node.
	SourceKindSocket SourceKind = "socket"
)

// ValueGroupSource is the source descriptor of a value group.
type ValueGroupSource struct {
	Kind   SourceKind `json:"kind" yaml:"kind"`
	Socket int        `json:"socket,omitempty" yaml:"socket,omitempty"`
}

// SourceNone returns a source descriptor for an internally produced value.
func SourceNone() ValueGroupSource {
	return ValueGroupSource{Kind: SourceKindNone}
}

// SourceSocket returns a source descriptor forwarding socket index of the
// enclosing node.
func SourceSocket(index int) ValueGroupSource {
	return ValueGroupSource{Kind: SourceKindSocket, Socket: index}
}

// ValueGroup is a single logical value slot shared by every socket bound to it.
type ValueGroup struct {
	ValueType ValueType        `json:"value_type" yaml:"value_type"`
	Source    ValueGroupSource `json:"source" yaml:"source"`
}

// NewValueGroup creates a value group.
func NewValueGroup(valueType ValueType, source ValueGroupSource) ValueGroup {
	return ValueGroup{ValueType: valueType, Source: source}
}

// ValueSocket binds a node to a value group.
type ValueSocket struct {
	GroupID      int  `json:"group_id" yaml:"group_id"`
	IsExtractor  bool `json:"is_extractor" yaml:"is_extractor"`
	ValueWritten bool `json:"value_written" yaml:"value_written"`
	ValueRead    bool `json:"value_read" yaml:"value_read"`
}

// NewValueSocket creates a socket bound to groupID.
func NewValueSocket(groupID int, written, read, extractor bool) ValueSocket {
	return ValueSocket{
		GroupID:      groupID,
		IsExtractor:  extractor,
		ValueWritten: written,
		ValueRead:    read,
	}
}

// NodeData is the closed set of node variants: Custom, Group and ExtractGroup.
type NodeData interface {
	nodeData()
	// Kind returns the variant name used in encodings and diagnostics.
	Kind() string
}

// Custom is a leaf computation delegated to the block compiler.
type Custom struct {
	Block BlockID
}

// Group is a statically instantiated nested surface (exactly one instance).
type Group struct {
	Surface SurfaceID
}

// ExtractGroup is a dynamically instantiated nested surface. SourceSockets and
// DestSockets index into the node's own sockets; the arrays bound to them carry
// per-slot liveness bitmaps.
type ExtractGroup struct {
	Surface       SurfaceID
	SourceSockets []int
	DestSockets   []int
}

func (Custom) nodeData()       {}
func (Group) nodeData()        {}
func (ExtractGroup) nodeData() {}

func (Custom) Kind() string       { return "custom" }
func (Group) Kind() string        { return "group" }
func (ExtractGroup) Kind() string { return "extract_group" }

// Node is a graph vertex. Sockets are positional.
type Node struct {
	Sockets []ValueSocket
	Data    NodeData
}

// NewNode creates a node.
func NewNode(sockets []ValueSocket, data NodeData) Node {
	return Node{Sockets: sockets, Data: data}
}

type nodeView struct {
	Kind          string        `json:"kind" yaml:"kind"`
	Block         *BlockID      `json:"block,omitempty" yaml:"block,omitempty"`
	Surface       *SurfaceID    `json:"surface,omitempty" yaml:"surface,omitempty"`
	SourceSockets []int         `json:"source_sockets,omitempty" yaml:"source_sockets,omitempty"`
	DestSockets   []int         `json:"dest_sockets,omitempty" yaml:"dest_sockets,omitempty"`
	Sockets       []ValueSocket `json:"sockets" yaml:"sockets"`
}

func (n Node) view() nodeView {
	v := nodeView{Sockets: n.Sockets}
	if v.Sockets == nil {
		v.Sockets = []ValueSocket{}
	}
	switch data := n.Data.(type) {
	case Custom:
		v.Kind = data.Kind()
		v.Block = &data.Block
	case Group:
		v.Kind = data.Kind()
		v.Surface = &data.Surface
	case ExtractGroup:
		v.Kind = data.Kind()
		v.Surface = &data.Surface
		v.SourceSockets = data.SourceSockets
		v.DestSockets = data.DestSockets
	}
	return v
}

// MarshalJSON encodes the node with an explicit variant tag.
func (n Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.view())
}

// MarshalYAML encodes the node with an explicit variant tag.
func (n Node) MarshalYAML() (any, error) {
	return n.view(), nil
}

// Surface is a named graph of nodes and value groups.
type Surface struct {
	ID     SurfaceID    `json:"id" yaml:"id"`
	Groups []ValueGroup `json:"groups" yaml:"groups"`
	Nodes  []Node       `json:"nodes" yaml:"nodes"`
}

// NewSurface creates a surface.
func NewSurface(id SurfaceID, groups []ValueGroup, nodes []Node) *Surface {
	return &Surface{ID: id, Groups: groups, Nodes: nodes}
}

// Clone returns a deep copy of the surface.
func (s *Surface) Clone() *Surface {
	out := &Surface{
		ID:     s.ID,
		Groups: make([]ValueGroup, len(s.Groups)),
		Nodes:  make([]Node, len(s.Nodes)),
	}
	for i, g := range s.Groups {
		out.Groups[i] = g
		out.Groups[i].ValueType = g.ValueType.clone()
	}
	for i, n := range s.Nodes {
		sockets := slices.Clone(n.Sockets)
		data := n.Data
		if eg, ok := data.(ExtractGroup); ok {
			eg.SourceSockets = slices.Clone(eg.SourceSockets)
			eg.DestSockets = slices.Clone(eg.DestSockets)
			data = eg
		}
		out.Nodes[i] = Node{Sockets: sockets, Data: data}
	}
	return out
}

// SocketCount returns the total number of sockets across all nodes.
func (s *Surface) SocketCount() int {
	count := 0
	for _, n := range s.Nodes {
		count += len(n.Sockets)
	}
	return count
}

// Block describes a leaf computation. Its code is produced by the block
// compiler; the core only needs its identity.
type Block struct {
	ID       BlockID  `json:"id" yaml:"id"`
	Controls []string `json:"controls,omitempty" yaml:"controls,omitempty"`
}

// NewBlock creates a block descriptor.
func NewBlock(id BlockID, controls []string) *Block {
	return &Block{ID: id, Controls: controls}
}
