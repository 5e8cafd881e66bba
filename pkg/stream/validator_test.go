package stream_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravi-parthasarathy/streamflo/pkg/stream"
)

func validate(t *testing.T, g stream.Graph) stream.Markers {
	t.Helper()
	v := &stream.Validator{}
	ms, err := v.Validate(context.Background(), g)
	require.NoError(t, err)
	return ms
}

// ─── Source ───────────────────────────────────────────────────────────────────

func TestValidate_SourceClean(t *testing.T) {
	g := newGraph(t, app("time", stream.GroupSource, "time"), app("log", stream.GroupSink, "log"))
	g.Connect("time", "log")
	ms := validate(t, g)
	assert.Empty(t, ms["time"])
	assert.Empty(t, ms["log"])
}

func TestValidate_SourceNeedsOutput(t *testing.T) {
	g := newGraph(t, app("time", stream.GroupSource, "time"))
	assert.Equal(t, []string{stream.MsgNeedsOutputConnection}, messages(validate(t, g)["time"]))
}

func TestValidate_SourceWithIncoming(t *testing.T) {
	g := newGraph(t,
		app("up", stream.GroupProcessor, "transform"),
		app("time", stream.GroupSource, "time"),
		app("log", stream.GroupSink, "log"),
	)
	g.Connect("up", "time")
	g.Connect("time", "log")
	assert.Equal(t, []string{stream.MsgSourcesMustBeAtStart}, messages(validate(t, g)["time"]))
}

func TestValidate_SourceTapOnly(t *testing.T) {
	g := newGraph(t, app("time", stream.GroupSource, "time"), app("log", stream.GroupSink, "log"))
	g.AddLink(&stream.Link{
		Source: stream.End{ID: "time", Port: stream.PortOutput},
		Target: stream.End{ID: "log", Port: stream.PortInput},
		Tap:    true,
	})
	assert.Equal(t, []string{stream.MsgNeedsNonTapOutputConnection}, messages(validate(t, g)["time"]))
}

func TestValidate_SourceTwoPrimaryLinks(t *testing.T) {
	g := newGraph(t,
		app("time", stream.GroupSource, "time"),
		app("a", stream.GroupSink, "log"),
		app("b", stream.GroupSink, "file"),
	)
	g.Connect("time", "a")
	g.Connect("time", "b")
	assert.Equal(t, []string{stream.MsgOnlyOneNonTapLinkFromSource}, messages(validate(t, g)["time"]))
}

func TestValidate_SourceExtraTapLinksAllowed(t *testing.T) {
	g := newGraph(t,
		app("time", stream.GroupSource, "time"),
		app("a", stream.GroupSink, "log"),
		app("b", stream.GroupSink, "file"),
		app("c", stream.GroupSink, "jdbc"),
	)
	g.Connect("time", "a")
	for _, to := range []string{"b", "c"} {
		g.AddLink(&stream.Link{
			Source: stream.End{ID: "time", Port: stream.PortOutput},
			Target: stream.End{ID: to, Port: stream.PortInput},
			Tap:    true,
		})
	}
	assert.Empty(t, validate(t, g)["time"])
}

// ─── Processor / Sink / Task ──────────────────────────────────────────────────

func TestValidate_Processor(t *testing.T) {
	tests := []struct {
		name  string
		setup func(g *stream.MemGraph)
		want  []string
	}{
		{
			name:  "unconnected",
			setup: func(*stream.MemGraph) {},
			want:  []string{stream.MsgNeedsInputConnection, stream.MsgNeedsOutputConnection},
		},
		{
			name: "two inputs",
			setup: func(g *stream.MemGraph) {
				g.Connect("s1", "p")
				g.Connect("s2", "p")
				g.Connect("p", "k1")
			},
			want: []string{stream.MsgInputFromOneAppOnly},
		},
		{
			name: "two outputs",
			setup: func(g *stream.MemGraph) {
				g.Connect("s1", "p")
				g.Connect("p", "k1")
				g.Connect("p", "k2")
			},
			want: []string{stream.MsgOnlyOneNonTapLinkFromProcessor},
		},
		{
			name: "clean",
			setup: func(g *stream.MemGraph) {
				g.Connect("s1", "p")
				g.Connect("p", "k1")
			},
			want: []string{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := newGraph(t,
				app("s1", stream.GroupSource, "time"),
				app("s2", stream.GroupSource, "http"),
				app("p", stream.GroupProcessor, "transform"),
				app("k1", stream.GroupSink, "log"),
				app("k2", stream.GroupSink, "file"),
			)
			tc.setup(g)
			assert.Equal(t, tc.want, messages(validate(t, g)["p"]))
		})
	}
}

func TestValidate_SinkNeverNeedsOutput(t *testing.T) {
	g := newGraph(t,
		app("time", stream.GroupSource, "time"),
		app("log", stream.GroupSink, "log"),
		app("after", stream.GroupSink, "file"),
	)
	assert.Equal(t, []string{stream.MsgNeedsInputConnection}, messages(validate(t, g)["log"]))

	g.Connect("time", "log")
	assert.Empty(t, validate(t, g)["log"])

	g.Connect("log", "after")
	got := messages(validate(t, g)["log"])
	assert.Equal(t, []string{stream.MsgSinkShouldBeAtEnd}, got)
	assert.NotContains(t, got, stream.MsgNeedsOutputConnection)
}

func TestValidate_Task(t *testing.T) {
	g := newGraph(t,
		app("time", stream.GroupSource, "time"),
		app("job", stream.GroupTask, "timestamp"),
		app("log", stream.GroupSink, "log"),
	)
	g.Connect("time", "job")
	g.AddLink(&stream.Link{
		Source: stream.End{ID: "job", Port: stream.PortOutput},
		Target: stream.End{ID: "log", Port: stream.PortInput},
		Tap:    true,
	})
	assert.Equal(t,
		[]string{stream.MsgTaskShouldBeAtEnd, stream.MsgCannotTapTask},
		messages(validate(t, g)["job"]))
}

// ─── Tap / Destination ───────────────────────────────────────────────────────

func TestValidate_Tap(t *testing.T) {
	g := newGraph(t,
		app("time", stream.GroupSource, "time"),
		app("tap", stream.GroupNone, stream.NameTap),
	)
	g.Connect("time", "tap")
	assert.Equal(t,
		[]string{stream.MsgTapMustBeAtStart, stream.MsgNeedsOutputConnection},
		messages(validate(t, g)["tap"]))
}

func TestValidate_TapTapped(t *testing.T) {
	g := newGraph(t,
		app("tap", stream.GroupNone, stream.NameTap),
		app("log", stream.GroupSink, "log"),
	)
	g.AddLink(&stream.Link{
		Source: stream.End{ID: "tap", Port: stream.PortOutput},
		Target: stream.End{ID: "log", Port: stream.PortInput},
		Tap:    true,
	})
	assert.Equal(t, []string{stream.MsgTapSourceCannotBeTapped}, messages(validate(t, g)["tap"]))
}

func TestValidate_Destination(t *testing.T) {
	dest := app("orders", stream.GroupNone, stream.NameDestination)
	g := newGraph(t, dest, app("log", stream.GroupSink, "log"))
	g.AddLink(&stream.Link{
		Source: stream.End{ID: "orders", Port: stream.PortOutput},
		Target: stream.End{ID: "log", Port: stream.PortInput},
		Tap:    true,
	})
	assert.Equal(t,
		[]string{stream.MsgDestinationCannotBeTapped, stream.MsgDestinationShouldBeNamed},
		messages(validate(t, g)["orders"]))

	dest.Props = map[string]string{"name": "orders"}
	assert.Equal(t, []string{stream.MsgDestinationCannotBeTapped}, messages(validate(t, g)["orders"]))
}

// ─── Metadata / link classification ──────────────────────────────────────────

func TestValidate_UnknownElement(t *testing.T) {
	n := app("mystery", stream.GroupProcessor, "mystery")
	n.Metadata.Unresolved = true
	g := newGraph(t, n)
	got := messages(validate(t, g)["mystery"])
	// Role checks still run for unresolved elements.
	assert.Equal(t, []string{
		"Unknown element 'mystery' from group 'processor'.",
		stream.MsgNeedsInputConnection,
		stream.MsgNeedsOutputConnection,
	}, got)
}

func TestValidate_UnknownElementWithoutGroup(t *testing.T) {
	n := app("x", stream.GroupNone, "gizmo")
	n.Metadata.Unresolved = true
	g := newGraph(t, n)
	assert.Equal(t, []string{"Unknown element 'gizmo'"}, messages(validate(t, g)["x"]))
}

func TestValidate_InvalidLinks(t *testing.T) {
	g := newGraph(t,
		app("time", stream.GroupSource, "time"),
		app("p", stream.GroupProcessor, "transform"),
		app("log", stream.GroupSink, "log"),
	)
	g.Connect("time", "p")
	g.Connect("p", "log")
	g.AddLink(&stream.Link{
		Source: stream.End{ID: "time", Port: stream.PortInput},
		Target: stream.End{ID: "log", Port: stream.PortOutput},
	})
	g.AddLink(&stream.Link{
		Source: stream.End{ID: "time", Port: stream.PortTap},
		Target: stream.End{ID: "log", Port: stream.PortTap},
	})
	ms := validate(t, g)
	assert.Equal(t, []string{"Invalid outgoing links"}, messages(ms["time"]))
	assert.Equal(t, []string{"Invalid incoming links"}, messages(ms["log"]))
}

func TestValidate_InvalidSingleLink(t *testing.T) {
	g := newGraph(t,
		app("time", stream.GroupSource, "time"),
		app("log", stream.GroupSink, "log"),
	)
	g.Connect("time", "log")
	g.AddLink(&stream.Link{
		Source: stream.End{ID: "time", Port: stream.PortOutput},
		Target: stream.End{ID: "log", Port: stream.PortOutput},
	})
	ms := validate(t, g)
	assert.Equal(t, []string{"Invalid incoming link"}, messages(ms["log"]))
	assert.Equal(t, []string{stream.MsgOnlyOneNonTapLinkFromSource}, messages(ms["time"]))
}

// ─── Aggregate behaviour ─────────────────────────────────────────────────────

func TestValidate_EntryPerValidatedNode(t *testing.T) {
	child := app("child", stream.GroupSink, "log")
	child.Parent = "time"
	g := newGraph(t,
		app("time", stream.GroupSource, "time"),
		app("log", stream.GroupSink, "log"),
		&stream.Node{ID: "label"},
		child,
	)
	g.Connect("time", "log")
	ms := validate(t, g)
	assert.ElementsMatch(t, []string{"time", "log"}, ms.NodeIDs())
	assert.NotNil(t, ms["time"])
	assert.Len(t, ms["time"], 0)
}

func TestValidate_Idempotent(t *testing.T) {
	g := mustParse(t, `digraph s {
		time   [group=source]
		filter [group=processor]
		log    [group=sink]
		extra  [group=sink]
		orders [name=destination]
		time -> filter
		filter -> log
		filter -> extra
		time -> orders [tap=true]
	}`)
	first := validate(t, g)
	second := validate(t, g)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("markers changed between runs (-first +second):\n%s", diff)
	}
	assert.Positive(t, first.Count(stream.SeverityError))
}

func TestValidate_CarriesRange(t *testing.T) {
	g := mustParse(t, `digraph s {
		time [group=source, line=3]
	}`)
	ms := validate(t, g)
	require.Len(t, ms["time"], 1)
	require.NotNil(t, ms["time"][0].Range)
	assert.Equal(t, 3, ms["time"][0].Range.Start.Line)
	assert.Equal(t, stream.SeverityError, ms["time"][0].Severity)
}

func TestValidate_Cancelled(t *testing.T) {
	g := newGraph(t, app("time", stream.GroupSource, "time"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v := &stream.Validator{}
	_, err := v.Validate(ctx, g)
	assert.ErrorIs(t, err, context.Canceled)
}

// ─── Property schema ─────────────────────────────────────────────────────────

type schemaMap map[string][]string

func (s schemaMap) Properties(md *stream.Metadata) ([]string, bool) {
	props, ok := s[md.Name]
	return props, ok
}

func TestValidate_PropertySchema(t *testing.T) {
	timeNode := app("time", stream.GroupSource, "time")
	timeNode.Props = map[string]string{"fixed-delay": "5", "colour": "red", "bogus": "1"}
	logNode := app("log", stream.GroupSink, "log")
	logNode.Props = map[string]string{"anything": "goes"}
	g := newGraph(t, timeNode, logNode)
	g.Connect("time", "log")

	v := &stream.Validator{Schema: schemaMap{"time": {"fixed-delay", "time-unit"}}}
	ms, err := v.Validate(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"unrecognized option 'bogus' for app 'time'",
		"unrecognized option 'colour' for app 'time'",
	}, messages(ms["time"]))
	// Apps unknown to the schema are not checked.
	assert.Empty(t, ms["log"])
}
