package stream

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"
)

// PropertySchema lists the properties an application accepts.
type PropertySchema interface {
	// Properties returns the accepted property names for the app described
	// by md. ok is false when the app is not known to the schema.
	Properties(md *Metadata) (names []string, ok bool)
}

// Validator computes diagnostic markers for a stream graph.
type Validator struct {
	// Schema, when set, enables checking of declared node properties.
	Schema PropertySchema
}

// roleRule checks the connectivity of one kind of node.
type roleRule func(n *Node, c classifiedLinks) []Marker

var roleRules = map[Kind]roleRule{
	KindSource:      validateSource,
	KindProcessor:   validateProcessor,
	KindSink:        validateSink,
	KindTask:        validateTask,
	KindTap:         validateTap,
	KindDestination: validateDestination,
}

// Validate checks every top-level node that has metadata and returns the
// markers found for each. Nodes are validated concurrently; each only reads
// the graph. The only possible error is ctx cancellation.
func (v *Validator) Validate(ctx context.Context, g Graph) (Markers, error) {
	var nodes []*Node
	for _, n := range g.Nodes() {
		if n.Parent == "" && n.Metadata != nil {
			nodes = append(nodes, n)
		}
	}

	results := make([][]Marker, len(nodes))
	eg, ectx := errgroup.WithContext(ctx)
	for i, n := range nodes {
		eg.Go(func() error {
			if err := ectx.Err(); err != nil {
				return err
			}
			results[i] = v.ValidateNode(g, n)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	markers := make(Markers, len(nodes))
	for i, n := range nodes {
		markers[n.ID] = results[i]
	}
	slog.Debug("graph validated", "nodes", len(nodes),
		"errors", markers.Count(SeverityError), "warnings", markers.Count(SeverityWarning))
	return markers, nil
}

// ValidateNode runs every check against a single node. The result is never
// nil so that a clean node still owns an entry.
func (v *Validator) ValidateNode(g Graph, n *Node) []Marker {
	markers := []Marker{}
	markers = append(markers, validateMetadata(n)...)
	markers = append(markers, validateConnectedLinks(g, n)...)
	markers = append(markers, v.validateProperties(n)...)
	return markers
}

func validateMetadata(n *Node) []Marker {
	if n.Metadata == nil || n.Metadata.Unresolved {
		return []Marker{errorMarker(n, unknownElementMessage(n))}
	}
	return nil
}

func validateConnectedLinks(g Graph, n *Node) []Marker {
	c := classifyLinks(g, n)
	var markers []Marker
	if len(c.invalidIncoming) > 0 {
		markers = append(markers, errorMarker(n, invalidLinksMessage("incoming", len(c.invalidIncoming))))
	}
	if len(c.invalidOutgoing) > 0 {
		markers = append(markers, errorMarker(n, invalidLinksMessage("outgoing", len(c.invalidOutgoing))))
	}
	if rule, ok := roleRules[n.Kind()]; ok {
		markers = append(markers, rule(n, c)...)
	}
	return markers
}

func (v *Validator) validateProperties(n *Node) []Marker {
	if v == nil || v.Schema == nil || len(n.Props) == 0 {
		return nil
	}
	known, ok := v.Schema.Properties(n.Metadata)
	if !ok {
		return nil
	}
	accepted := make(map[string]bool, len(known))
	for _, name := range known {
		accepted[name] = true
	}
	var unknown []string
	for name := range n.Props {
		if !accepted[name] {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	var markers []Marker
	for _, name := range unknown {
		markers = append(markers, errorMarker(n, unrecognizedOptionMessage(name, n.Name())))
	}
	return markers
}

func validateSource(n *Node, c classifiedLinks) []Marker {
	var markers []Marker
	if len(c.incoming) != 0 {
		markers = append(markers, errorMarker(n, MsgSourcesMustBeAtStart))
	}
	return append(markers, validatePrimaryOutput(n, c.outgoing, MsgOnlyOneNonTapLinkFromSource)...)
}

func validateProcessor(n *Node, c classifiedLinks) []Marker {
	markers := validateSingleInput(n, c.incoming)
	return append(markers, validatePrimaryOutput(n, c.outgoing, MsgOnlyOneNonTapLinkFromProcessor)...)
}

func validateSink(n *Node, c classifiedLinks) []Marker {
	markers := validateSingleInput(n, c.incoming)
	if len(c.outgoing) != 0 {
		markers = append(markers, errorMarker(n, MsgSinkShouldBeAtEnd))
	}
	return markers
}

func validateTask(n *Node, c classifiedLinks) []Marker {
	markers := validateSingleInput(n, c.incoming)
	if len(c.outgoing) != 0 {
		markers = append(markers, errorMarker(n, MsgTaskShouldBeAtEnd))
	}
	if len(c.tap) != 0 {
		markers = append(markers, errorMarker(n, MsgCannotTapTask))
	}
	return markers
}

func validateTap(n *Node, c classifiedLinks) []Marker {
	var markers []Marker
	if len(c.incoming) != 0 {
		markers = append(markers, errorMarker(n, MsgTapMustBeAtStart))
	}
	if len(c.outgoing) == 0 {
		markers = append(markers, errorMarker(n, MsgNeedsOutputConnection))
	}
	if len(c.tap) != 0 {
		markers = append(markers, errorMarker(n, MsgTapSourceCannotBeTapped))
	}
	return markers
}

func validateDestination(n *Node, c classifiedLinks) []Marker {
	var markers []Marker
	if len(c.tap) != 0 {
		markers = append(markers, errorMarker(n, MsgDestinationCannotBeTapped))
	}
	if n.Props["name"] == "" {
		markers = append(markers, errorMarker(n, MsgDestinationShouldBeNamed))
	}
	return markers
}

func validateSingleInput(n *Node, incoming []*Link) []Marker {
	switch len(incoming) {
	case 1:
		return nil
	case 0:
		return []Marker{errorMarker(n, MsgNeedsInputConnection)}
	default:
		return []Marker{errorMarker(n, MsgInputFromOneAppOnly)}
	}
}

// validatePrimaryOutput requires at least one outgoing link, exactly one of
// which carries the primary flow.
func validatePrimaryOutput(n *Node, outgoing []*Link, tooMany string) []Marker {
	if len(outgoing) == 0 {
		return []Marker{errorMarker(n, MsgNeedsOutputConnection)}
	}
	switch countNonTap(outgoing) {
	case 1:
		return nil
	case 0:
		return []Marker{errorMarker(n, MsgNeedsNonTapOutputConnection)}
	default:
		return []Marker{errorMarker(n, tooMany)}
	}
}

func errorMarker(n *Node, msg string) Marker {
	return Marker{Severity: SeverityError, Message: msg, Range: n.Range}
}
