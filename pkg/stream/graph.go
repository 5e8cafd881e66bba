package stream

import (
	"errors"
	"math"
)

var (
	ErrNodeNotFound = errors.New("stream: node not found")
	ErrLinkNotFound = errors.New("stream: link not found")
)

// Group is the application type a node was registered under.
type Group string

const (
	GroupNone      Group = ""
	GroupSource    Group = "source"
	GroupProcessor Group = "processor"
	GroupSink      Group = "sink"
	GroupTask      Group = "task"
	GroupApp       Group = "app"
)

// Symbolic names of the structural (non-application) nodes.
const (
	NameTap         = "tap"
	NameDestination = "destination"
)

// Kind is the validation variant a node falls into.
type Kind int

const (
	KindOther Kind = iota
	KindSource
	KindProcessor
	KindSink
	KindTask
	KindTap
	KindDestination
)

func (k Kind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindProcessor:
		return "processor"
	case KindSink:
		return "sink"
	case KindTask:
		return "task"
	case KindTap:
		return "tap"
	case KindDestination:
		return "destination"
	default:
		return "other"
	}
}

// Metadata classifies a node. A node without metadata is not validated.
type Metadata struct {
	Group      Group
	Name       string
	Unresolved bool
}

// Kind derives the validation variant. The group takes precedence over the
// symbolic name.
func (m *Metadata) Kind() Kind {
	if m == nil {
		return KindOther
	}
	switch m.Group {
	case GroupSource:
		return KindSource
	case GroupProcessor:
		return KindProcessor
	case GroupSink:
		return KindSink
	case GroupTask:
		return KindTask
	}
	switch m.Name {
	case NameTap:
		return KindTap
	case NameDestination:
		return KindDestination
	}
	return KindOther
}

// PortKind names a connection point on a node.
type PortKind string

const (
	PortNone   PortKind = ""
	PortInput  PortKind = "input"
	PortOutput PortKind = "output"
	PortTap    PortKind = "tap"
)

// Port is a connection point a node advertises. A hidden port exists but is
// not currently offered for drop targeting.
type Port struct {
	Kind   PortKind
	Hidden bool
	Offset Point // relative to the node position
}

// Point is a position on the editing surface.
type Point struct {
	X, Y float64
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Size is the extent of a node's bounding box.
type Size struct {
	Width, Height float64
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X, Y, Width, Height float64
}

// Around returns the square of half-width r centred on p.
func Around(p Point, r float64) Rect {
	return Rect{X: p.X - r, Y: p.Y - r, Width: 2 * r, Height: 2 * r}
}

// Intersects reports whether r and o overlap (touching edges count).
func (r Rect) Intersects(o Rect) bool {
	return r.X <= o.X+o.Width && o.X <= r.X+r.Width &&
		r.Y <= o.Y+o.Height && o.Y <= r.Y+r.Height
}

// Node is an application instance or a structural marker in a stream graph.
type Node struct {
	ID       string
	Metadata *Metadata
	Props    map[string]string
	Ports    []Port // nil until laid out; empty means no ports
	Position Point
	Size     Size
	Parent   string // non-empty for nodes embedded in another node
	Range    *Range
}

// Kind returns the validation variant of the node.
func (n *Node) Kind() Kind {
	return n.Metadata.Kind()
}

// Group returns the node's group, or GroupNone without metadata.
func (n *Node) Group() Group {
	if n.Metadata == nil {
		return GroupNone
	}
	return n.Metadata.Group
}

// Name returns the node's symbolic name, or "" without metadata.
func (n *Node) Name() string {
	if n.Metadata == nil {
		return ""
	}
	return n.Metadata.Name
}

// HasPort reports whether the node advertises a port of the given kind.
func (n *Node) HasPort(kind PortKind) bool {
	_, ok := n.port(kind)
	return ok
}

// ExposesPort reports whether the node advertises a visible port of the
// given kind.
func (n *Node) ExposesPort(kind PortKind) bool {
	p, ok := n.port(kind)
	return ok && !p.Hidden
}

// PortCenter returns the absolute position of a port.
func (n *Node) PortCenter(p Port) Point {
	return Point{X: n.Position.X + p.Offset.X, Y: n.Position.Y + p.Offset.Y}
}

// Bounds returns the node's bounding box.
func (n *Node) Bounds() Rect {
	return Rect{X: n.Position.X, Y: n.Position.Y, Width: n.Size.Width, Height: n.Size.Height}
}

func (n *Node) port(kind PortKind) (Port, bool) {
	for _, p := range n.Ports {
		if p.Kind == kind {
			return p, true
		}
	}
	return Port{}, false
}

// End is one extremity of a link. An empty ID is a dangling end, which only
// occurs while a link is being drawn.
type End struct {
	ID   string   `json:"node"`
	Port PortKind `json:"port"`
}

// Link is a directed connection between two nodes.
type Link struct {
	ID     string
	Source End
	Target End
	Tap    bool // side-channel tap rather than the primary data flow
}

// Touches reports whether either end of the link is attached to nodeID.
func (l *Link) Touches(nodeID string) bool {
	return l.Source.ID == nodeID || l.Target.ID == nodeID
}

// Direction filters connected-link queries.
type Direction int

const (
	Both Direction = iota
	Inbound
	Outbound
)

// Graph is the view of a stream graph the validator and editor work against.
// Implementations own the nodes and links; callers mutate only through
// AddNode, RemoveNode, AddLink and RemoveLink.
type Graph interface {
	// Nodes returns all nodes in insertion order.
	Nodes() []*Node
	// Links returns all links in insertion order.
	Links() []*Link
	Node(id string) (*Node, bool)
	Link(id string) (*Link, bool)
	// ConnectedLinks returns the links attached to the node. Inbound selects
	// links targeting it, Outbound links leaving it.
	ConnectedLinks(nodeID string, dir Direction) []*Link
	// NodesInArea returns the nodes whose bounds intersect r.
	NodesInArea(r Rect) []*Node

	AddNode(n *Node) *Node
	RemoveNode(id string) bool
	// AddLink stores l, assigning an ID when it has none, and returns it.
	AddLink(l *Link) *Link
	RemoveLink(id string) bool
}
