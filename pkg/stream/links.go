package stream

// LinkCandidate describes a link the user is drawing but has not committed.
type LinkCandidate struct {
	Source End
	Target End
	// LinkID identifies the in-progress link if the graph already holds it.
	// It is ignored when counting existing connections.
	LinkID string
}

// ValidateLink reports whether the candidate link may be created. It is
// called on every pointer move while a connection is dragged, so it only
// reads the graph.
func ValidateLink(g Graph, c LinkCandidate) bool {
	// Ports are strictly directional.
	if c.Source.Port == PortInput {
		return false
	}
	if c.Target.Port == PortOutput || c.Target.Port == PortTap {
		return false
	}
	// Attached ends must name a port: out of output or tap, into input.
	if c.Source.ID != "" && c.Target.ID != "" {
		if c.Source.Port != PortOutput && c.Source.Port != PortTap {
			return false
		}
		if c.Target.Port != PortInput {
			return false
		}
	}
	if c.Source.ID == c.Target.ID {
		return false
	}

	source, ok := g.Node(c.Source.ID)
	if !ok || source.Metadata == nil {
		return true
	}
	target, ok := g.Node(c.Target.ID)
	if !ok || target.Metadata == nil {
		return true
	}

	switch target.Group() {
	case GroupSource, GroupApp:
		return false
	}
	if target.Name() == NameTap {
		return false
	}
	switch source.Group() {
	case GroupSink, GroupTask, GroupApp:
		return false
	}

	incoming := excludeLink(g.ConnectedLinks(target.ID, Inbound), c.LinkID)
	outgoing := excludeLink(g.ConnectedLinks(source.ID, Outbound), c.LinkID)

	// Only destinations fan in.
	if len(incoming) > 0 && target.Name() != NameDestination {
		return false
	}
	for _, l := range outgoing {
		if l.Target.ID == target.ID {
			return false
		}
	}
	return true
}

func excludeLink(links []*Link, id string) []*Link {
	if id == "" {
		return links
	}
	out := links[:0:0]
	for _, l := range links {
		if l.ID != id {
			out = append(out, l)
		}
	}
	return out
}

// classifiedLinks is the connectivity of one node as seen by the validator.
type classifiedLinks struct {
	incoming        []*Link
	outgoing        []*Link
	tap             []*Link
	invalidIncoming []*Link
	invalidOutgoing []*Link
}

// classifyLinks sorts the links attached to n by direction and checks that
// each attaches through a port of the matching kind.
func classifyLinks(g Graph, n *Node) classifiedLinks {
	var c classifiedLinks
	for _, l := range g.ConnectedLinks(n.ID, Both) {
		switch {
		case l.Source.ID == n.ID:
			if l.Source.Port == PortOutput {
				c.outgoing = append(c.outgoing, l)
			} else {
				c.invalidOutgoing = append(c.invalidOutgoing, l)
			}
			if l.Tap {
				c.tap = append(c.tap, l)
			}
		case l.Target.ID == n.ID:
			if l.Target.Port == PortInput {
				c.incoming = append(c.incoming, l)
			} else {
				c.invalidIncoming = append(c.invalidIncoming, l)
			}
		}
	}
	return c
}

func countNonTap(links []*Link) int {
	n := 0
	for _, l := range links {
		if !l.Tap {
			n++
		}
	}
	return n
}

// primaryOutbound returns the first non-tap link leaving nodeID, if any.
func primaryOutbound(g Graph, nodeID string) *Link {
	for _, l := range g.ConnectedLinks(nodeID, Outbound) {
		if !l.Tap {
			return l
		}
	}
	return nil
}
