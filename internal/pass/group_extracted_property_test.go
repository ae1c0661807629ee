package pass

import (
	"io"
	"log/slog"
	"math/rand"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/roach88/maxim/internal/mir"
)

// randomSurface builds a well-formed surface from seed. extractorRate is the
// probability (in percent) that a socket is an extractor.
func randomSurface(seed int64, extractorRate int) (*mir.Surface, *mir.IDAllocator) {
	rng := rand.New(rand.NewSource(seed))
	alloc := mir.NewIDAllocator()
	block := mir.NewBlockID("blk", alloc)

	groups := make([]mir.ValueGroup, 1+rng.Intn(6))
	for i := range groups {
		typ := mir.Scalar("num")
		if rng.Intn(2) == 0 {
			typ = mir.Array(typ)
		}
		groups[i] = mir.NewValueGroup(typ, mir.SourceNone())
	}

	nodes := make([]mir.Node, rng.Intn(9))
	for i := range nodes {
		sockets := make([]mir.ValueSocket, rng.Intn(4))
		for j := range sockets {
			sockets[j] = mir.NewValueSocket(
				rng.Intn(len(groups)),
				rng.Intn(2) == 0,
				rng.Intn(2) == 0,
				rng.Intn(100) < extractorRate,
			)
		}
		nodes[i] = mir.NewNode(sockets, mir.Custom{Block: block})
	}

	return mir.NewSurface(mir.NewSurfaceID("root", alloc), groups, nodes), alloc
}

func discard() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGroupExtracted_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("surfaces without extractors are untouched", prop.ForAll(
		func(seed int64) bool {
			surface, alloc := randomSurface(seed, 0)
			before := surface.Clone()

			children, err := GroupExtracted(surface, alloc, discard())
			if err != nil || len(children) != 0 {
				return false
			}
			return reflect.DeepEqual(before, surface)
		},
		gen.Int64(),
	))

	properties.Property("every socket references a valid group", prop.ForAll(
		func(seed int64, rate int) bool {
			surface, alloc := randomSurface(seed, rate)

			children, err := GroupExtracted(surface, alloc, discard())
			if err != nil {
				return false
			}
			for _, s := range append([]*mir.Surface{surface}, children...) {
				for _, n := range s.Nodes {
					for _, sock := range n.Sockets {
						if sock.GroupID < 0 || sock.GroupID >= len(s.Groups) {
							return false
						}
					}
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(0, 100),
	))

	properties.Property("each child is forwarded once per boundary group", prop.ForAll(
		func(seed int64, rate int) bool {
			surface, alloc := randomSurface(seed, rate)
			groupsBefore := len(surface.Groups)

			children, err := GroupExtracted(surface, alloc, discard())
			if err != nil || len(surface.Groups) != groupsBefore {
				return false
			}

			appended := surface.Nodes[len(surface.Nodes)-len(children):]
			for i, child := range children {
				node := appended[i]
				eg, ok := node.Data.(mir.ExtractGroup)
				if !ok || eg.Surface != child.ID {
					return false
				}
				if len(node.Sockets) != len(child.Groups) {
					return false
				}
				seen := make(map[int]bool)
				for _, sock := range node.Sockets {
					if seen[sock.GroupID] || sock.IsExtractor {
						return false
					}
					seen[sock.GroupID] = true
				}
				for childGroup, g := range child.Groups {
					if g.Source != mir.SourceSocket(childGroup) {
						return false
					}
				}
				for _, idx := range append(append([]int(nil), eg.SourceSockets...), eg.DestSockets...) {
					if idx < 0 || idx >= len(node.Sockets) {
						return false
					}
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(0, 100),
	))

	properties.Property("nodes are moved, never lost or duplicated", prop.ForAll(
		func(seed int64, rate int) bool {
			surface, alloc := randomSurface(seed, rate)
			nodesBefore := len(surface.Nodes)
			socketsBefore := surface.SocketCount()

			children, err := GroupExtracted(surface, alloc, discard())
			if err != nil {
				return false
			}

			nodesAfter := len(surface.Nodes) - len(children)
			socketsAfter := surface.SocketCount()
			for i, child := range children {
				nodesAfter += len(child.Nodes)
				socketsAfter += child.SocketCount()
				socketsAfter -= len(surface.Nodes[len(surface.Nodes)-len(children)+i].Sockets)
				if len(child.Nodes) == 0 {
					return false
				}
			}
			return nodesAfter == nodesBefore && socketsAfter == socketsBefore
		},
		gen.Int64(),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}
