package stream

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Severity of a Marker.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	switch str {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	default:
		return fmt.Errorf("unknown severity %q", str)
	}
	return nil
}

// Position is a line/column location in the textual stream definition.
type Position struct {
	Line int `json:"line"`
	Ch   int `json:"ch"`
}

// Range locates the text a node was parsed from. The validator only copies it.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Marker is a non-fatal diagnostic attached to a node.
type Marker struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Range    *Range   `json:"range,omitempty"`
}

func (m Marker) String() string {
	return fmt.Sprintf("%s: %s", m.Severity, m.Message)
}

// Markers maps node IDs to the diagnostics found for them. Every validated
// node has an entry, possibly empty.
type Markers map[string][]Marker

// Count returns the number of markers with the given severity.
func (ms Markers) Count(sev Severity) int {
	n := 0
	for _, list := range ms {
		for _, m := range list {
			if m.Severity == sev {
				n++
			}
		}
	}
	return n
}

// NodeIDs returns the keys in sorted order.
func (ms Markers) NodeIDs() []string {
	ids := make([]string, 0, len(ms))
	for id := range ms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validation messages.
const (
	MsgNeedsOutputConnection          = "Should direct its output to an app"
	MsgNeedsInputConnection           = "Should have an input connection from an app"
	MsgDestinationShouldBeNamed       = "Destination should be named"
	MsgDestinationCannotBeTapped      = "Cannot tap into a destination app"
	MsgTapSourceCannotBeTapped        = "Cannot tap into a tap source"
	MsgSourcesMustBeAtStart           = "Sources must appear at the start of a stream"
	MsgSinkShouldBeAtEnd              = "Sink should be at the end of a stream"
	MsgOnlyOneNonTapLinkFromSource    = "Only one non-tap link allowed from source"
	MsgOnlyOneNonTapLinkFromProcessor = "Only one non-tap link allowed from processor"
	MsgNeedsNonTapOutputConnection    = "Element needs exactly one non-tapping output connection"
	MsgInputFromOneAppOnly            = "Input should come from one app only"
	MsgTaskShouldBeAtEnd              = "Task should be at the end of a stream"
	MsgCannotTapTask                  = "Cannot tap into a task app"
	MsgTapMustBeAtStart               = "Tap must appear at the start of a stream"
)

func invalidLinksMessage(direction string, count int) string {
	msg := "Invalid " + direction + " link"
	if count > 1 {
		msg += "s"
	}
	return msg
}

func unknownElementMessage(n *Node) string {
	msg := fmt.Sprintf("Unknown element '%s'", n.Name())
	if g := n.Group(); g != GroupNone {
		msg += fmt.Sprintf(" from group '%s'.", g)
	}
	return msg
}

func unrecognizedOptionMessage(prop, app string) string {
	return fmt.Sprintf("unrecognized option '%s' for app '%s'", prop, app)
}
