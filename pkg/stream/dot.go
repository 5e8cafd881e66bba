package stream

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	gographviz "github.com/awalterschulze/gographviz"
)

// propPrefix marks node attributes that carry declared app properties.
const propPrefix = "prop_"

// ParseDOT parses a Graphviz DOT string into a stream graph. Port layout is
// applied before returning, so every node carries its ports.
//
// Recognised node attributes: group, name, unresolved, parent, pos="x,y",
// width, height, ports, hidden, line, and prop_<key> for declared
// properties. Edges may use port syntax (a:output -> b:input) or
// tailport/headport, and carry tap=true and id.
func ParseDOT(src string) (*MemGraph, error) {
	graphAst, err := gographviz.ParseString(src)
	if err != nil {
		return nil, fmt.Errorf("dot parse error: %w", err)
	}

	// Use a custom permissive graph collector that accepts any attribute name
	// without the strict validation that gographviz.Graph performs.
	collector := newDOTCollector()
	if err := gographviz.Analyse(graphAst, collector); err != nil {
		return nil, fmt.Errorf("dot analyse error: %w", err)
	}

	g := NewGraph(collector.name)
	for _, id := range collector.order {
		n, err := buildNode(id, collector.nodes[id])
		if err != nil {
			return nil, err
		}
		g.AddNode(n)
	}

	seen := map[string]int{}
	for _, e := range collector.edges {
		l, err := buildLink(e)
		if err != nil {
			return nil, err
		}
		if l.ID == "" {
			l.ID = defaultLinkID(l.Source.ID, l.Target.ID)
			seen[l.ID]++
			if c := seen[l.ID]; c > 1 {
				l.ID = fmt.Sprintf("%s#%d", l.ID, c)
			}
		}
		g.AddLink(l)
	}

	var ss *PortStylesheet
	if raw, ok := collector.graphAttrs["port_stylesheet"]; ok {
		ss = parsePortStylesheet(raw)
	}
	ApplyPortLayout(g, ss)
	return g, nil
}

func defaultLinkID(from, to string) string {
	return from + "->" + to
}

func buildNode(id string, attrs map[string]string) (*Node, error) {
	n := &Node{ID: id, Parent: attrs["parent"]}

	group, name := Group(attrs["group"]), attrs["name"]
	if group != GroupNone || name != "" {
		if name == "" {
			name = id
		}
		n.Metadata = &Metadata{Group: group, Name: name, Unresolved: isTrue(attrs["unresolved"])}
	}

	for k, v := range attrs {
		if strings.HasPrefix(k, propPrefix) {
			if n.Props == nil {
				n.Props = make(map[string]string)
			}
			n.Props[strings.TrimPrefix(k, propPrefix)] = v
		}
	}

	if pos := attrs["pos"]; pos != "" {
		p, err := parsePoint(pos)
		if err != nil {
			return nil, fmt.Errorf("node %q: pos: %w", id, err)
		}
		n.Position = p
	}
	var err error
	if n.Size.Width, err = parseFloatAttr(attrs, "width"); err != nil {
		return nil, fmt.Errorf("node %q: %w", id, err)
	}
	if n.Size.Height, err = parseFloatAttr(attrs, "height"); err != nil {
		return nil, fmt.Errorf("node %q: %w", id, err)
	}

	if line := attrs["line"]; line != "" {
		l, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("node %q: line: %w", id, err)
		}
		n.Range = &Range{Start: Position{Line: l}, End: Position{Line: l}}
	}

	if ports, ok := attrs["ports"]; ok {
		n.Ports = layoutPorts(n.Size, parsePortList(ports), parsePortList(attrs["hidden"]))
	}
	return n, nil
}

func buildLink(e rawEdge) (*Link, error) {
	l := &Link{
		ID:     e.attrs["id"],
		Source: End{ID: e.from, Port: PortOutput},
		Target: End{ID: e.to, Port: PortInput},
		Tap:    isTrue(e.attrs["tap"]),
	}
	if p := firstNonEmpty(e.fromPort, e.attrs["tailport"]); p != "" {
		l.Source.Port = PortKind(p)
	}
	if p := firstNonEmpty(e.toPort, e.attrs["headport"]); p != "" {
		l.Target.Port = PortKind(p)
	}
	for _, port := range []PortKind{l.Source.Port, l.Target.Port} {
		switch port {
		case PortInput, PortOutput, PortTap:
		default:
			return nil, fmt.Errorf("edge %q→%q: unknown port %q", e.from, e.to, port)
		}
	}
	return l, nil
}

// FormatDOT renders g as a canonical DOT digraph that ParseDOT reads back.
func FormatDOT(name string, g Graph) string {
	var sb strings.Builder
	if name == "" {
		name = "stream"
	}
	fmt.Fprintf(&sb, "digraph %s {\n", dotQuote(name))

	for _, n := range g.Nodes() {
		var parts []string
		if md := n.Metadata; md != nil {
			if md.Group != GroupNone {
				parts = append(parts, "group="+dotQuote(string(md.Group)))
			}
			parts = append(parts, "name="+dotQuote(md.Name))
			if md.Unresolved {
				parts = append(parts, "unresolved=true")
			}
		}
		if n.Parent != "" {
			parts = append(parts, "parent="+dotQuote(n.Parent))
		}
		if n.Range != nil {
			parts = append(parts, "line="+strconv.Itoa(n.Range.Start.Line))
		}
		if n.Position != (Point{}) {
			parts = append(parts, "pos="+dotQuote(formatFloat(n.Position.X)+","+formatFloat(n.Position.Y)))
		}
		if n.Size != (Size{}) {
			parts = append(parts, "width="+formatFloat(n.Size.Width), "height="+formatFloat(n.Size.Height))
		}
		var shown, hidden []string
		for _, p := range n.Ports {
			shown = append(shown, string(p.Kind))
			if p.Hidden {
				hidden = append(hidden, string(p.Kind))
			}
		}
		if len(shown) == 0 {
			parts = append(parts, "ports=none")
		} else {
			parts = append(parts, "ports="+dotQuote(strings.Join(shown, ",")))
		}
		if len(hidden) > 0 {
			parts = append(parts, "hidden="+dotQuote(strings.Join(hidden, ",")))
		}
		keys := make([]string, 0, len(n.Props))
		for k := range n.Props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, dotQuote(propPrefix+k)+"="+dotQuote(n.Props[k]))
		}
		fmt.Fprintf(&sb, "    %s [%s]\n", dotQuote(n.ID), strings.Join(parts, " "))
	}

	for _, l := range g.Links() {
		var attrs []string
		if l.ID != defaultLinkID(l.Source.ID, l.Target.ID) {
			attrs = append(attrs, "id="+dotQuote(l.ID))
		}
		if l.Tap {
			attrs = append(attrs, "tap=true")
		}
		line := fmt.Sprintf("    %s:%s -> %s:%s",
			dotQuote(l.Source.ID), l.Source.Port, dotQuote(l.Target.ID), l.Target.Port)
		if len(attrs) > 0 {
			line += " [" + strings.Join(attrs, " ") + "]"
		}
		sb.WriteString(line + "\n")
	}

	sb.WriteString("}\n")
	return sb.String()
}

// ─── permissive DOT collector ─────────────────────────────────────────────────

type rawEdge struct {
	from, fromPort string
	to, toPort     string
	attrs          map[string]string
}

// dotCollector implements gographviz.Interface without attribute validation.
type dotCollector struct {
	name       string
	order      []string
	nodes      map[string]map[string]string // id → attrs
	edges      []rawEdge
	graphAttrs map[string]string
}

func newDOTCollector() *dotCollector {
	return &dotCollector{
		nodes:      make(map[string]map[string]string),
		graphAttrs: make(map[string]string),
	}
}

func (c *dotCollector) SetStrict(_ bool) error { return nil }
func (c *dotCollector) SetDir(_ bool) error    { return nil }
func (c *dotCollector) SetName(n string) error { c.name = unquote(n); return nil }
func (c *dotCollector) String() string         { return c.name }

func (c *dotCollector) AddNode(_ string, name string, attrs map[string]string) error {
	id := unquote(name)
	if _, ok := c.nodes[id]; !ok {
		c.nodes[id] = make(map[string]string, len(attrs))
		c.order = append(c.order, id)
	}
	for k, v := range attrs {
		c.nodes[id][unquote(k)] = unquote(v)
	}
	return nil
}

func (c *dotCollector) AddEdge(src, dst string, directed bool, attrs map[string]string) error {
	return c.AddPortEdge(src, "", dst, "", directed, attrs)
}

func (c *dotCollector) AddPortEdge(src, srcPort, dst, dstPort string, _ bool, attrs map[string]string) error {
	e := rawEdge{
		from:     unquote(src),
		fromPort: portName(srcPort),
		to:       unquote(dst),
		toPort:   portName(dstPort),
		attrs:    make(map[string]string, len(attrs)),
	}
	for k, v := range attrs {
		e.attrs[unquote(k)] = unquote(v)
	}
	c.edges = append(c.edges, e)
	return nil
}

func (c *dotCollector) AddAttr(_ string, field, value string) error {
	c.graphAttrs[unquote(field)] = unquote(value)
	return nil
}

func (c *dotCollector) AddSubGraph(_, _ string, _ map[string]string) error { return nil }

// ─── helpers ─────────────────────────────────────────────────────────────────

// unquote strips surrounding double-quotes from a DOT attribute value.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// portName extracts the port id from a DOT port reference such as
// ":output" or ":output:e".
func portName(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), ":")
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[:i]
	}
	return unquote(s)
}

// dotQuote returns the value as a DOT-safe string, quoting if necessary.
func dotQuote(s string) string {
	needsQuote := s == "" ||
		strings.ContainsAny(s, " \t\n\\\"{}[]<>=;,:-.#")
	if needsQuote {
		escaped := strings.ReplaceAll(s, `\`, `\\`)
		escaped = strings.ReplaceAll(escaped, `"`, `\"`)
		return `"` + escaped + `"`
	}
	return s
}

func isTrue(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func parsePoint(s string) (Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return Point{}, fmt.Errorf("want \"x,y\", got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return Point{}, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return Point{}, err
	}
	return Point{X: x, Y: y}, nil
}

func parseFloatAttr(attrs map[string]string, key string) (float64, error) {
	v, ok := attrs[key]
	if !ok || v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
