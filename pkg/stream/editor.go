package stream

import (
	"log/slog"
	"math"
)

// PaletteContext is the SourceComponent of drags that start in the palette,
// i.e. drops that create a new node rather than move an existing one.
const PaletteContext = "palette"

// DefaultDropRange is the radius searched around the pointer for a port to
// attach a dragged node to.
const DefaultDropRange = 30.0

// EditorConfig holds the editor's behaviour switches.
type EditorConfig struct {
	// NodeDropping enables dropping a node onto another node's port to
	// insert it before or after that node.
	NodeDropping bool
	// AutoLink connects a node dropped from the palette to the only open
	// port in the graph that suits it.
	AutoLink bool
	// DropRange is the port search radius. Zero means DefaultDropRange.
	DropRange float64
}

// Side selects where a node is inserted relative to a pivot node.
type Side int

const (
	// SideLeft inserts the node upstream of the pivot.
	SideLeft Side = iota
	// SideRight inserts the node downstream of the pivot.
	SideRight
)

// Editor keeps a stream graph topologically consistent while it is edited.
// It holds no graph state; every operation takes the graph to act on.
type Editor struct {
	cfg EditorConfig
}

// NewEditor creates an Editor.
func NewEditor(cfg EditorConfig) *Editor {
	if cfg.DropRange <= 0 {
		cfg.DropRange = DefaultDropRange
	}
	return &Editor{cfg: cfg}
}

// Config returns the effective configuration.
func (e *Editor) Config() EditorConfig {
	return e.cfg
}

// RepairDamage removes every link attached to nodeID and reconnects the
// node's former neighbours directly when that is unambiguous: a single
// upstream node is linked to every downstream node, or every upstream node
// is linked to a single downstream node. Many-to-many is left disconnected.
func (e *Editor) RepairDamage(g Graph, nodeID string) {
	var sources, targets []string
	seenSource := map[string]bool{}
	seenTarget := map[string]bool{}
	for _, l := range g.ConnectedLinks(nodeID, Both) {
		switch {
		case l.Target.ID == nodeID:
			g.RemoveLink(l.ID)
			if id := l.Source.ID; id != "" && id != nodeID && !seenSource[id] {
				seenSource[id] = true
				sources = append(sources, id)
			}
		case l.Source.ID == nodeID:
			g.RemoveLink(l.ID)
			if id := l.Target.ID; id != "" && id != nodeID && !seenTarget[id] {
				seenTarget[id] = true
				targets = append(targets, id)
			}
		}
	}

	created := 0
	switch {
	case len(sources) == 1:
		source, ok := g.Node(sources[0])
		if !ok || !source.HasPort(PortOutput) {
			break
		}
		for _, id := range targets {
			if target, ok := g.Node(id); ok && target.HasPort(PortInput) {
				createPrimaryLink(g, source.ID, target.ID)
				created++
			}
		}
	case len(targets) == 1:
		target, ok := g.Node(targets[0])
		if !ok || !target.HasPort(PortInput) {
			break
		}
		for _, id := range sources {
			if source, ok := g.Node(id); ok && source.HasPort(PortOutput) {
				createPrimaryLink(g, source.ID, target.ID)
				created++
			}
		}
	}
	slog.Debug("repaired links", "node", nodeID,
		"sources", len(sources), "targets", len(targets), "created", created)
}

// PreDelete prepares nodeID for deletion by bridging over it.
func (e *Editor) PreDelete(g Graph, nodeID string) bool {
	if _, ok := g.Node(nodeID); !ok {
		return false
	}
	e.RepairDamage(g, nodeID)
	return true
}

// DeleteNode repairs the damage around nodeID and removes it.
func (e *Editor) DeleteNode(g Graph, nodeID string) bool {
	if !e.PreDelete(g, nodeID) {
		return false
	}
	return g.RemoveNode(nodeID)
}

// CanSwap reports whether inserting dropee on the given side of target would
// change the graph. It is false when dropee already feeds target (left) or
// is already fed by target (right).
func (e *Editor) CanSwap(g Graph, dropeeID, targetID string, side Side) bool {
	if dropeeID == targetID {
		return false
	}
	for _, l := range g.ConnectedLinks(dropeeID, Both) {
		if side == SideLeft && l.Target.ID == targetID && l.Source.ID == dropeeID {
			return false
		}
		if side == SideRight && l.Target.ID == dropeeID && l.Source.ID == targetID {
			return false
		}
	}
	return true
}

// MoveNodeOnNode splices nodeID in next to pivotID. On the left the pivot's
// upstream nodes are redirected into the node, which then feeds the pivot;
// on the right the pivot feeds the node, which takes over the pivot's
// downstream links.
func (e *Editor) MoveNodeOnNode(g Graph, nodeID, pivotID string, side Side, repair bool) bool {
	if !e.CanSwap(g, nodeID, pivotID, side) {
		return false
	}
	if repair {
		e.RepairDamage(g, nodeID)
	}
	switch side {
	case SideLeft:
		var sources []string
		for _, l := range g.ConnectedLinks(pivotID, Inbound) {
			sources = append(sources, l.Source.ID)
			g.RemoveLink(l.ID)
		}
		for _, s := range sources {
			createPrimaryLink(g, s, nodeID)
		}
		createPrimaryLink(g, nodeID, pivotID)
	case SideRight:
		var targets []string
		for _, l := range g.ConnectedLinks(pivotID, Outbound) {
			targets = append(targets, l.Target.ID)
			g.RemoveLink(l.ID)
		}
		for _, t := range targets {
			createPrimaryLink(g, nodeID, t)
		}
		createPrimaryLink(g, pivotID, nodeID)
	}
	slog.Debug("node moved onto node", "node", nodeID, "pivot", pivotID, "side", side)
	return true
}

// MoveNodeOnLink splices nodeID into linkID: the link is replaced by one
// from its source to the node, keeping the source port kind, and one from
// the node to its target.
func (e *Editor) MoveNodeOnLink(g Graph, nodeID, linkID string, repair bool) bool {
	link, ok := g.Link(linkID)
	if !ok {
		return false
	}
	if _, ok := g.Node(nodeID); !ok {
		return false
	}
	if repair {
		e.RepairDamage(g, nodeID)
	}
	g.RemoveLink(link.ID)

	if link.Source.ID != "" {
		port := PortOutput
		if link.Source.Port == PortTap {
			port = PortTap
		}
		g.AddLink(&Link{
			Source: End{ID: link.Source.ID, Port: port},
			Target: End{ID: nodeID, Port: PortInput},
			Tap:    link.Tap,
		})
	}
	if link.Target.ID != "" {
		createPrimaryLink(g, nodeID, link.Target.ID)
	}
	slog.Debug("node moved onto link", "node", nodeID, "link", linkID,
		"from", link.Source.ID, "to", link.Target.ID)
	return true
}

// Hit identifies what lies under the pointer: a node, a link, or nothing.
type Hit struct {
	NodeID string
	LinkID string
}

// DragRequest is the state of an in-progress drag.
type DragRequest struct {
	// NodeID is the node being dragged.
	NodeID string
	// Under is the element under the pointer, if any.
	Under           Hit
	Point           Point
	SourceComponent string
}

// DragTarget is the element a drag would drop onto. Port is set for port
// matches and is PortNone when dropping directly onto a node or a link.
type DragTarget struct {
	NodeID string
	LinkID string
	Port   PortKind
}

// DragDescriptor describes the drop a drag implies. A nil Target is a plain
// move.
type DragDescriptor struct {
	SourceComponent string
	NodeID          string
	// SourcePort is the dragged node's port that would be connected.
	SourcePort PortKind
	Target     *DragTarget
	// Range is the distance to the matched port.
	Range float64
}

// CalculateDragDescriptor decides which drop interaction a drag implies. It
// returns nil when the drag has no valid drop target.
func (e *Editor) CalculateDragDescriptor(g Graph, req DragRequest) *DragDescriptor {
	dragged, ok := g.Node(req.NodeID)
	if !ok {
		return nil
	}
	move := &DragDescriptor{SourceComponent: req.SourceComponent, NodeID: dragged.ID}

	underLink, overLink := g.Link(req.Under.LinkID)
	underNode, overNode := g.Node(req.Under.NodeID)
	if !e.cfg.NodeDropping && !(overLink && relinkable(underLink)) {
		return move
	}

	// Taps attach to whatever they are dropped on.
	if overNode && dragged.Name() == NameTap {
		move.Target = &DragTarget{NodeID: underNode.ID}
		return move
	}

	// The dragged node's tap port is never offered.
	if !dragged.ExposesPort(PortInput) && !dragged.ExposesPort(PortOutput) {
		return nil
	}
	if best := e.closestPort(g, dragged, req.Point); best != nil {
		best.SourceComponent = req.SourceComponent
		return best
	}

	if overLink && canDropOnLink(g, dragged) {
		move.Target = &DragTarget{LinkID: underLink.ID}
		return move
	}
	return nil
}

// closestPort searches around p for the nearest port on another node that
// the dragged node could connect to. Ties keep the first port found.
func (e *Editor) closestPort(g Graph, dragged *Node, p Point) *DragDescriptor {
	hasIn := dragged.ExposesPort(PortInput)
	hasOut := dragged.ExposesPort(PortOutput)

	var best *DragDescriptor
	minDistance := math.MaxFloat64
	for _, n := range g.NodesInArea(Around(p, e.cfg.DropRange)) {
		if n.ID == dragged.ID {
			continue
		}
		targetIn := n.ExposesPort(PortInput)
		targetOut := n.ExposesPort(PortOutput) || n.ExposesPort(PortTap)
		for _, port := range n.Ports {
			compatible := (port.Kind == PortInput && targetIn && hasOut) ||
				(port.Kind == PortOutput && targetOut && hasIn)
			if !compatible {
				continue
			}
			d := p.Distance(n.PortCenter(port))
			if d < e.cfg.DropRange && d < minDistance {
				minDistance = d
				sourcePort := PortOutput
				if port.Kind == PortOutput {
					sourcePort = PortInput
				}
				best = &DragDescriptor{
					NodeID:     dragged.ID,
					SourcePort: sourcePort,
					Target:     &DragTarget{NodeID: n.ID, Port: port.Kind},
					Range:      d,
				}
			}
		}
	}
	return best
}

// relinkable reports whether a link can have a node spliced into it. Links
// still being drawn have a dangling end and cannot, nor can tap links.
func relinkable(l *Link) bool {
	return l.Source.ID != "" && l.Target.ID != "" && !l.Tap
}

func canDropOnLink(g Graph, n *Node) bool {
	if n.Name() == NameDestination {
		return false
	}
	switch n.Group() {
	case GroupSink, GroupSource:
		return false
	}
	return len(g.ConnectedLinks(n.ID, Both)) == 0
}

// HandleNodeDropping applies the drop described by d and reports whether the
// graph changed.
func (e *Editor) HandleNodeDropping(g Graph, d DragDescriptor) bool {
	source, ok := g.Node(d.NodeID)
	if !ok {
		return false
	}
	relinking := d.SourceComponent == PaletteContext

	if t := d.Target; t != nil && t.NodeID != "" && e.cfg.NodeDropping {
		if target, ok := g.Node(t.NodeID); ok && target.Name() != "" {
			switch t.Port {
			case PortOutput:
				return e.MoveNodeOnNode(g, source.ID, target.ID, SideRight, true)
			case PortInput:
				return e.MoveNodeOnNode(g, source.ID, target.ID, SideLeft, true)
			case PortTap:
				g.AddLink(&Link{
					Source: End{ID: target.ID, Port: PortOutput},
					Target: End{ID: source.ID, Port: PortInput},
					Tap:    true,
				})
				return true
			}
			return false
		}
	}

	if t := d.Target; t != nil && t.LinkID != "" {
		if name := source.Name(); name != NameTap && name != NameDestination {
			return e.MoveNodeOnLink(g, source.ID, t.LinkID, false)
		}
		return false
	}

	if e.cfg.AutoLink && relinking {
		return e.AutoLink(g, source.ID)
	}
	return false
}

type openPort struct {
	nodeID string
	port   PortKind
}

// AutoLink connects nodeID to the single open port in the graph that suits
// its group. Nothing happens when there are zero or several candidates.
func (e *Editor) AutoLink(g Graph, nodeID string) bool {
	node, ok := g.Node(nodeID)
	if !ok {
		return false
	}
	var wantInput, wantOutput bool
	switch node.Group() {
	case GroupSource:
		wantInput = true
	case GroupSink:
		wantOutput = true
	case GroupProcessor:
		wantInput = true
		wantOutput = true
	default:
		return false
	}

	var open []openPort
	for _, n := range g.Nodes() {
		if n.ID == nodeID || n.Name() == "" {
			continue
		}
		group := n.Group()
		if wantOutput && (group == GroupSource || group == GroupProcessor) {
			if primaryOutbound(g, n.ID) == nil {
				open = append(open, openPort{nodeID: n.ID, port: PortOutput})
			}
		}
		if wantInput && (group == GroupSink || group == GroupProcessor) {
			if len(g.ConnectedLinks(n.ID, Inbound)) == 0 {
				open = append(open, openPort{nodeID: n.ID, port: PortInput})
			}
		}
	}
	if len(open) != 1 {
		slog.Debug("auto-link skipped", "node", nodeID, "candidates", len(open))
		return false
	}

	match := open[0]
	if match.port == PortInput {
		createPrimaryLink(g, nodeID, match.nodeID)
	} else {
		createPrimaryLink(g, match.nodeID, nodeID)
	}
	slog.Debug("auto-linked", "node", nodeID, "peer", match.nodeID, "port", match.port)
	return true
}

func createPrimaryLink(g Graph, from, to string) *Link {
	return g.AddLink(&Link{
		Source: End{ID: from, Port: PortOutput},
		Target: End{ID: to, Port: PortInput},
	})
}
