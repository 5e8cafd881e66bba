package stream

import (
	"sync"

	"github.com/google/uuid"
)

// MemGraph is an in-memory Graph. Reads may run concurrently; mutations are
// expected to come from a single editing session.
type MemGraph struct {
	Name string

	mu    sync.RWMutex
	nodes []*Node
	links []*Link
}

// NewGraph creates an empty MemGraph.
func NewGraph(name string) *MemGraph {
	return &MemGraph{Name: name}
}

func (g *MemGraph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

func (g *MemGraph) Links() []*Link {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Link, len(g.links))
	copy(out, g.links)
	return out
}

func (g *MemGraph) Node(id string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, n := range g.nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

func (g *MemGraph) Link(id string) (*Link, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, l := range g.links {
		if l.ID == id {
			return l, true
		}
	}
	return nil, false
}

func (g *MemGraph) ConnectedLinks(nodeID string, dir Direction) []*Link {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*Link
	for _, l := range g.links {
		switch dir {
		case Inbound:
			if l.Target.ID == nodeID {
				out = append(out, l)
			}
		case Outbound:
			if l.Source.ID == nodeID {
				out = append(out, l)
			}
		default:
			if l.Touches(nodeID) {
				out = append(out, l)
			}
		}
	}
	return out
}

func (g *MemGraph) NodesInArea(r Rect) []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*Node
	for _, n := range g.nodes {
		if n.Bounds().Intersects(r) {
			out = append(out, n)
		}
	}
	return out
}

// AddNode stores n, replacing any node with the same ID.
func (g *MemGraph) AddNode(n *Node) *Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	for i, existing := range g.nodes {
		if existing.ID == n.ID {
			g.nodes[i] = n
			return n
		}
	}
	g.nodes = append(g.nodes, n)
	return n
}

// RemoveNode deletes the node and every link attached to it.
func (g *MemGraph) RemoveNode(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := -1
	for i, n := range g.nodes {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	g.nodes = append(g.nodes[:idx], g.nodes[idx+1:]...)
	kept := g.links[:0]
	for _, l := range g.links {
		if !l.Touches(id) {
			kept = append(kept, l)
		}
	}
	g.links = kept
	return true
}

func (g *MemGraph) AddLink(l *Link) *Link {
	g.mu.Lock()
	defer g.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	g.links = append(g.links, l)
	return l
}

func (g *MemGraph) RemoveLink(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, l := range g.links {
		if l.ID == id {
			g.links = append(g.links[:i], g.links[i+1:]...)
			return true
		}
	}
	return false
}

// Connect is a convenience for AddLink with a primary output→input link.
func (g *MemGraph) Connect(from, to string) *Link {
	return g.AddLink(&Link{
		Source: End{ID: from, Port: PortOutput},
		Target: End{ID: to, Port: PortInput},
	})
}
