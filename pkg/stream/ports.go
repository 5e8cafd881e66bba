package stream

import "strings"

// PortStylesheet holds CSS-like rules that decide which ports a node shows.
type PortStylesheet struct {
	Rules []PortRule
}

// PortRule applies a port layout to nodes matching a selector.
type PortRule struct {
	Selector string // e.g. "group[sink]", "name[tap]", "id[log]" or "*"
	Ports    []PortKind
	Hidden   []PortKind
}

// DefaultPorts returns the ports a node of the given kind is created with.
func DefaultPorts(k Kind) []PortKind {
	switch k {
	case KindSource:
		return []PortKind{PortOutput, PortTap}
	case KindProcessor:
		return []PortKind{PortInput, PortOutput, PortTap}
	case KindSink, KindTask:
		return []PortKind{PortInput}
	case KindTap:
		return []PortKind{PortOutput}
	default:
		return []PortKind{PortInput, PortOutput}
	}
}

// ApplyPortLayout gives every node without a declared layout its default
// ports, then lets matching stylesheet rules override them. Later rules win.
// A nil Ports slice means undeclared; an empty non-nil slice is a node that
// exposes no ports and is left alone.
func ApplyPortLayout(g Graph, ss *PortStylesheet) {
	for _, n := range g.Nodes() {
		if n.Ports != nil {
			continue
		}
		kinds := DefaultPorts(n.Kind())
		var hidden []PortKind
		if ss != nil {
			for _, rule := range ss.Rules {
				if !matchesSelector(rule.Selector, n) {
					continue
				}
				if rule.Ports != nil {
					kinds = rule.Ports
				}
				if rule.Hidden != nil {
					hidden = rule.Hidden
				}
			}
		}
		n.Ports = layoutPorts(n.Size, kinds, hidden)
	}
}

// layoutPorts places input on the left edge, output on the right edge and
// tap on the bottom edge of the node.
func layoutPorts(size Size, kinds, hidden []PortKind) []Port {
	ports := make([]Port, 0, len(kinds))
	for _, k := range kinds {
		p := Port{Kind: k}
		switch k {
		case PortInput:
			p.Offset = Point{X: 0, Y: size.Height / 2}
		case PortOutput:
			p.Offset = Point{X: size.Width, Y: size.Height / 2}
		case PortTap:
			p.Offset = Point{X: size.Width / 2, Y: size.Height}
		}
		for _, h := range hidden {
			if h == k {
				p.Hidden = true
			}
		}
		ports = append(ports, p)
	}
	return ports
}

// matchesSelector returns true if the node matches the given selector.
// Supported selectors:
//   - "*":           all nodes
//   - "group[sink]": nodes in group sink
//   - "name[tap]":   nodes with symbolic name tap
//   - "id[log]":     node with id log
func matchesSelector(selector string, n *Node) bool {
	selector = strings.TrimSpace(selector)
	if selector == "*" {
		return true
	}
	if want, ok := selectorArg(selector, "group"); ok {
		return string(n.Group()) == want
	}
	if want, ok := selectorArg(selector, "name"); ok {
		return n.Name() == want
	}
	if want, ok := selectorArg(selector, "id"); ok {
		return n.ID == want
	}
	return false
}

func selectorArg(selector, prefix string) (string, bool) {
	prefix += "["
	if strings.HasPrefix(selector, prefix) && strings.HasSuffix(selector, "]") {
		return selector[len(prefix) : len(selector)-1], true
	}
	return "", false
}

// parsePortStylesheet parses rules of the form
// `group[sink] { ports: input; hidden: tap }`.
func parsePortStylesheet(src string) *PortStylesheet {
	ss := &PortStylesheet{}
	for _, part := range strings.Split(strings.TrimSpace(src), "}") {
		part = strings.TrimSpace(part)
		braceIdx := strings.Index(part, "{")
		if braceIdx < 0 {
			continue
		}
		rule := PortRule{Selector: strings.TrimSpace(part[:braceIdx])}
		for _, decl := range strings.Split(part[braceIdx+1:], ";") {
			kv := strings.SplitN(strings.TrimSpace(decl), ":", 2)
			if len(kv) != 2 {
				continue
			}
			v := strings.Trim(strings.TrimSpace(kv[1]), `"`)
			switch strings.TrimSpace(kv[0]) {
			case "ports":
				rule.Ports = parsePortList(v)
			case "hidden":
				rule.Hidden = parsePortList(v)
			}
		}
		ss.Rules = append(ss.Rules, rule)
	}
	return ss
}

// parsePortList parses "input,output" or "input output". "none" yields an
// empty, non-nil list.
func parsePortList(s string) []PortKind {
	out := []PortKind{}
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		switch k := PortKind(strings.TrimSpace(f)); k {
		case PortInput, PortOutput, PortTap:
			out = append(out, k)
		}
	}
	return out
}
