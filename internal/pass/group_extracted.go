package pass

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/maxim/internal/mir"
)

// Option configures a pass.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for debug records.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// GroupExtracted moves every cluster of nodes that depends on an extractor
// socket into a new child surface and replaces it in surface with a single
// ExtractGroup node. The parent is mutated in place; the new child surfaces are
// returned in extraction order.
//
// A surface without extractor sockets is left untouched and yields no
// children. On error the surface is untouched.
func GroupExtracted(surface *mir.Surface, alloc *mir.IDAllocator, opts ...Option) ([]*mir.Surface, error) {
	e := &groupExtractor{surface: surface, opts: buildOptions(opts)}
	return e.extractGroups(alloc)
}

// extractGroup accumulates one cluster while the pass runs. It never escapes
// the pass.
type extractGroup struct {
	sources      []int
	destinations []int
	nodes        []int
	valueGroups  []int
}

func (g *extractGroup) empty() bool {
	return len(g.nodes) == 0
}

type socketRef struct {
	node   int
	socket int
}

const unassigned = -1

// groupTracker owns the pass-local lookup tables. groupOwner and nodeOwner map
// a value group / node index to its extract group, or unassigned.
type groupTracker struct {
	groups     []*extractGroup
	groupOwner []int
	nodeOwner  []int
}

func newGroupTracker(groupCount, nodeCount int) *groupTracker {
	t := &groupTracker{
		groupOwner: make([]int, groupCount),
		nodeOwner:  make([]int, nodeCount),
	}
	for i := range t.groupOwner {
		t.groupOwner[i] = unassigned
	}
	for i := range t.nodeOwner {
		t.nodeOwner[i] = unassigned
	}
	return t
}

func (t *groupTracker) newGroup() int {
	t.groups = append(t.groups, &extractGroup{})
	return len(t.groups) - 1
}

// merge folds src into dest. The remap is eager: every table entry owned by
// src is rewritten, so src is left as an empty tombstone and never consulted
// again.
func (t *groupTracker) merge(dest, src int) {
	if dest == src {
		return
	}
	for i, owner := range t.groupOwner {
		if owner == src {
			t.groupOwner[i] = dest
		}
	}
	for i, owner := range t.nodeOwner {
		if owner == src {
			t.nodeOwner[i] = dest
		}
	}

	from, to := t.groups[src], t.groups[dest]
	to.sources = appendUnique(to.sources, from.sources...)
	to.destinations = appendUnique(to.destinations, from.destinations...)
	to.nodes = append(to.nodes, from.nodes...)
	to.valueGroups = append(to.valueGroups, from.valueGroups...)

	t.groups[src] = &extractGroup{}
}

type groupExtractor struct {
	surface *mir.Surface
	opts    options
}

func (e *groupExtractor) extractGroups(alloc *mir.IDAllocator) ([]*mir.Surface, error) {
	groups, err := e.findExtractedGroups()
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, nil
	}

	plans, err := e.planExtraction(groups)
	if err != nil {
		return nil, err
	}

	return e.applyExtraction(alloc, plans), nil
}

// findExtractedGroups runs the seed/index scan and the breadth-first
// propagation, returning the non-empty extract groups.
func (e *groupExtractor) findExtractedGroups() ([]*extractGroup, error) {
	s := e.surface
	groupSockets := make([][]socketRef, len(s.Groups))
	t := newGroupTracker(len(s.Groups), len(s.Nodes))
	var queue []int

	// One scan both indexes the sockets bound to each group and seeds the
	// search from extractor sockets. Written extractor sockets are sources of
	// their extract group; read ones are destinations.
	for nodeIndex, node := range s.Nodes {
		for socketIndex, socket := range node.Sockets {
			if socket.GroupID < 0 || socket.GroupID >= len(s.Groups) {
				return nil, newInvalidGroupRef(s.ID, nodeIndex, socketIndex, socket.GroupID, len(s.Groups))
			}
			groupSockets[socket.GroupID] = append(groupSockets[socket.GroupID], socketRef{nodeIndex, socketIndex})

			if !socket.IsExtractor {
				continue
			}
			owner := t.groupOwner[socket.GroupID]
			if owner == unassigned {
				owner = t.newGroup()
				t.groupOwner[socket.GroupID] = owner
				queue = append(queue, socket.GroupID)
			}
			if socket.ValueWritten {
				t.groups[owner].sources = appendUnique(t.groups[owner].sources, socket.GroupID)
			}
			if socket.ValueRead {
				t.groups[owner].destinations = appendUnique(t.groups[owner].destinations, socket.GroupID)
			}
		}
	}

	// Breadth-first over value groups. A node joins the current extract group
	// only through a non-extractor socket that reads the group; a node that
	// already belongs to another extract group causes a merge instead.
	for len(queue) > 0 {
		groupIndex := queue[0]
		queue = queue[1:]

		current := t.groupOwner[groupIndex]
		t.groups[current].valueGroups = append(t.groups[current].valueGroups, groupIndex)

		for _, ref := range groupSockets[groupIndex] {
			node := s.Nodes[ref.node]
			socket := node.Sockets[ref.socket]

			if owner := t.nodeOwner[ref.node]; owner != unassigned {
				t.merge(current, owner)
				continue
			}
			if socket.IsExtractor || !socket.ValueRead {
				continue
			}

			t.nodeOwner[ref.node] = current
			t.groups[current].nodes = append(t.groups[current].nodes, ref.node)

			for _, other := range node.Sockets {
				if owner := t.groupOwner[other.GroupID]; owner != unassigned {
					t.merge(current, owner)
					continue
				}
				t.groupOwner[other.GroupID] = current
				queue = append(queue, other.GroupID)
			}
		}
	}

	// Tombstones and seeds that never reached a node are bookkeeping residue.
	var result []*extractGroup
	for _, g := range t.groups {
		if !g.empty() {
			result = append(result, g)
		}
	}
	return result, nil
}

// extractPlan is the fully validated description of one child surface.
type extractPlan struct {
	group      *extractGroup
	childIndex map[int]int
}

// planExtraction validates every index the rewrite will touch. Nothing is
// mutated here.
func (e *groupExtractor) planExtraction(groups []*extractGroup) ([]extractPlan, error) {
	s := e.surface
	plans := make([]extractPlan, 0, len(groups))

	for _, g := range groups {
		// Removal by offset requires strictly increasing node indices; the
		// breadth-first order does not guarantee it.
		slices.Sort(g.nodes)
		for i := 1; i < len(g.nodes); i++ {
			if g.nodes[i] <= g.nodes[i-1] {
				return nil, newNodeOrderError(s.ID, g.nodes[i])
			}
		}

		childIndex := make(map[int]int, len(g.valueGroups))
		for _, parentGroup := range g.valueGroups {
			if _, seen := childIndex[parentGroup]; !seen {
				childIndex[parentGroup] = len(childIndex)
			}
		}
		g.valueGroups = dedupe(g.valueGroups)

		for _, nodeIndex := range g.nodes {
			for socketIndex, socket := range s.Nodes[nodeIndex].Sockets {
				if _, ok := childIndex[socket.GroupID]; !ok {
					return nil, newUnmappedGroupError(s.ID, nodeIndex, socketIndex, socket.GroupID)
				}
			}
		}
		for _, groupIndex := range append(slices.Clone(g.sources), g.destinations...) {
			if _, ok := childIndex[groupIndex]; !ok {
				return nil, &Error{
					Code:    ErrCodeUnmappedGroup,
					Message: fmt.Sprintf("boundary group %d is not forwarded into the extracted surface", groupIndex),
					Surface: s.ID,
					Node:    -1,
					Socket:  -1,
				}
			}
		}

		plans = append(plans, extractPlan{group: g, childIndex: childIndex})
	}

	return plans, nil
}

// applyExtraction performs the rewrite planned by planExtraction.
func (e *groupExtractor) applyExtraction(alloc *mir.IDAllocator, plans []extractPlan) []*mir.Surface {
	s := e.surface

	// Relocate nodes for every plan in one ascending sweep so the offset
	// accounts for nodes removed by earlier plans as well.
	type relocation struct {
		node int
		plan int
	}
	var relocations []relocation
	for planIndex, plan := range plans {
		for _, nodeIndex := range plan.group.nodes {
			relocations = append(relocations, relocation{node: nodeIndex, plan: planIndex})
		}
	}
	slices.SortFunc(relocations, func(a, b relocation) int { return a.node - b.node })

	moved := make([][]mir.Node, len(plans))
	for removed, r := range relocations {
		realIndex := r.node - removed
		moved[r.plan] = append(moved[r.plan], s.Nodes[realIndex])
		s.Nodes = slices.Delete(s.Nodes, realIndex, realIndex+1)
	}

	children := make([]*mir.Surface, 0, len(plans))
	for ordinal, plan := range plans {
		child := e.buildChild(alloc, ordinal, plan, moved[ordinal])
		children = append(children, child)
	}
	return children
}

// buildChild creates the child surface for one plan and appends the
// forwarding ExtractGroup node to the parent.
func (e *groupExtractor) buildChild(alloc *mir.IDAllocator, ordinal int, plan extractPlan, nodes []mir.Node) *mir.Surface {
	s := e.surface
	g := plan.group

	childGroups := make([]mir.ValueGroup, len(g.valueGroups))
	forwardSockets := make([]mir.ValueSocket, len(g.valueGroups))
	for _, parentGroup := range g.valueGroups {
		childGroup := plan.childIndex[parentGroup]
		parentType := s.Groups[parentGroup].ValueType

		// The parent group is an array once it is referenced through the
		// boundary; inside the child each slot sees a single element.
		elemType, ok := parentType.BaseType()
		if !ok {
			elemType = parentType
		}
		childGroups[childGroup] = mir.NewValueGroup(elemType, mir.SourceSocket(childGroup))
		forwardSockets[childGroup] = mir.NewValueSocket(parentGroup, false, false, false)
	}

	for i := range nodes {
		for j := range nodes[i].Sockets {
			socket := &nodes[i].Sockets[j]
			remapped := plan.childIndex[socket.GroupID]
			socket.GroupID = remapped
			if socket.ValueWritten {
				forwardSockets[remapped].ValueWritten = true
			}
			if socket.ValueRead {
				forwardSockets[remapped].ValueRead = true
			}
		}
	}

	child := mir.NewSurface(
		mir.NewSurfaceID(fmt.Sprintf("%s.extracted%d", s.ID.DebugName, ordinal), alloc),
		childGroups,
		nodes,
	)

	s.Nodes = append(s.Nodes, mir.NewNode(forwardSockets, mir.ExtractGroup{
		Surface:       child.ID,
		SourceSockets: remapAll(g.sources, plan.childIndex),
		DestSockets:   remapAll(g.destinations, plan.childIndex),
	}))

	e.opts.logger.Debug("extracted group",
		"surface", s.ID.String(),
		"child", child.ID.String(),
		"nodes", len(nodes),
		"value_groups", len(childGroups),
		"sources", len(g.sources),
		"destinations", len(g.destinations),
	)

	return child
}

func remapAll(groups []int, index map[int]int) []int {
	out := make([]int, len(groups))
	for i, g := range groups {
		out[i] = index[g]
	}
	return out
}

func appendUnique(list []int, values ...int) []int {
	for _, v := range values {
		if !slices.Contains(list, v) {
			list = append(list, v)
		}
	}
	return list
}

func dedupe(list []int) []int {
	return appendUnique(nil, list...)
}
