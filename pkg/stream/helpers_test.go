package stream_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ravi-parthasarathy/streamflo/pkg/stream"
)

// app creates a 100x40 node at the origin; newGraph gives it default ports.
func app(id string, group stream.Group, name string) *stream.Node {
	return &stream.Node{
		ID:       id,
		Metadata: &stream.Metadata{Group: group, Name: name},
		Size:     stream.Size{Width: 100, Height: 40},
	}
}

func newGraph(t *testing.T, nodes ...*stream.Node) *stream.MemGraph {
	t.Helper()
	g := stream.NewGraph("test")
	for _, n := range nodes {
		g.AddNode(n)
	}
	stream.ApplyPortLayout(g, nil)
	return g
}

func mustParse(t *testing.T, src string) *stream.MemGraph {
	t.Helper()
	g, err := stream.ParseDOT(src)
	require.NoError(t, err)
	return g
}

// linkPairs renders the graph's links as "from:port->to:port" strings.
func linkPairs(g stream.Graph) []string {
	var out []string
	for _, l := range g.Links() {
		s := l.Source.ID + ":" + string(l.Source.Port) + "->" + l.Target.ID + ":" + string(l.Target.Port)
		if l.Tap {
			s += " tap"
		}
		out = append(out, s)
	}
	return out
}

func messages(ms []stream.Marker) []string {
	out := []string{}
	for _, m := range ms {
		out = append(out, m.Message)
	}
	return out
}
