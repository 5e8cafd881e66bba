package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ravi-parthasarathy/streamflo/pkg/stream"
)

var (
	errLinkRejected = errors.New("link rejected")
	errNoDrop       = errors.New("drop changed nothing")
)

// ─── link ─────────────────────────────────────────────────────────────────────

func linkCmd() *cobra.Command {
	var (
		tap   bool
		apply bool
	)

	cmd := &cobra.Command{
		Use:   "link <stream.dot> <from[:port]> <to[:port]>",
		Short: "Check whether a link may be drawn, optionally adding it",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := readGraph(args[0])
			if err != nil {
				return err
			}
			c := stream.LinkCandidate{
				Source: parseEnd(args[1], stream.PortOutput),
				Target: parseEnd(args[2], stream.PortInput),
			}
			for _, id := range []string{c.Source.ID, c.Target.ID} {
				if _, ok := g.Node(id); !ok {
					return fmt.Errorf("%w: %q", stream.ErrNodeNotFound, id)
				}
			}

			valid := stream.ValidateLink(g, c)
			slog.Debug("link checked", "from", c.Source.ID, "to", c.Target.ID, "valid", valid)
			if !valid {
				return fmt.Errorf("%w: %s -> %s", errLinkRejected, args[1], args[2])
			}
			if !apply {
				fmt.Fprintln(cmd.OutOrStdout(), "OK: link is valid")
				return nil
			}
			g.AddLink(&stream.Link{Source: c.Source, Target: c.Target, Tap: tap})
			return writeGraph(cmd.OutOrStdout(), g)
		},
	}

	cmd.Flags().BoolVar(&tap, "tap", false, "mark the new link as a tap")
	cmd.Flags().BoolVar(&apply, "apply", false, "add the link and print the resulting graph")
	return cmd
}

// ─── delete ───────────────────────────────────────────────────────────────────

func deleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <stream.dot> <node>",
		Short: "Remove a node, reconnecting its neighbours, and print the graph",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := readGraph(args[0])
			if err != nil {
				return err
			}
			ed := stream.NewEditor(opts.cfg.Editor.Stream())
			if !ed.DeleteNode(g, args[1]) {
				return fmt.Errorf("%w: %q", stream.ErrNodeNotFound, args[1])
			}
			return writeGraph(cmd.OutOrStdout(), g)
		},
	}
}

// ─── drop ─────────────────────────────────────────────────────────────────────

type dropOptions struct {
	onLink  string
	onNode  string
	port    string
	at      string
	palette bool
}

func dropCmd(opts *globalOptions) *cobra.Command {
	var d dropOptions

	cmd := &cobra.Command{
		Use:   "drop <stream.dot> <node>",
		Short: "Drop a node onto a link, a node port, or empty canvas",
		Long: `drop replays a drag-and-drop of <node> and prints the resulting graph.

With --at x,y the drop target is computed from the pointer position the
way the editor does it; otherwise --on-link or --on-node/--port name it.
--palette marks the node as freshly created, which enables auto-linking.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := readGraph(args[0])
			if err != nil {
				return err
			}
			nodeID := args[1]
			if _, ok := g.Node(nodeID); !ok {
				return fmt.Errorf("%w: %q", stream.ErrNodeNotFound, nodeID)
			}
			if d.onLink != "" {
				if _, ok := g.Link(d.onLink); !ok {
					return fmt.Errorf("%w: %q", stream.ErrLinkNotFound, d.onLink)
				}
			}

			ed := stream.NewEditor(opts.cfg.Editor.Stream())
			desc, err := d.descriptor(ed, g, nodeID)
			if err != nil {
				return err
			}
			if !ed.HandleNodeDropping(g, *desc) {
				return errNoDrop
			}
			return writeGraph(cmd.OutOrStdout(), g)
		},
	}

	cmd.Flags().StringVar(&d.onLink, "on-link", "", "link to splice the node into")
	cmd.Flags().StringVar(&d.onNode, "on-node", "", "node to drop onto")
	cmd.Flags().StringVar(&d.port, "port", "", "port of --on-node: input, output or tap")
	cmd.Flags().StringVar(&d.at, "at", "", "pointer position x,y")
	cmd.Flags().BoolVar(&d.palette, "palette", false, "the node comes from the palette")
	return cmd
}

func (d dropOptions) descriptor(ed *stream.Editor, g stream.Graph, nodeID string) (*stream.DragDescriptor, error) {
	component := ""
	if d.palette {
		component = stream.PaletteContext
	}

	if d.at != "" {
		p, err := parseXY(d.at)
		if err != nil {
			return nil, fmt.Errorf("--at: %w", err)
		}
		desc := ed.CalculateDragDescriptor(g, stream.DragRequest{
			NodeID:          nodeID,
			Under:           stream.Hit{NodeID: d.onNode, LinkID: d.onLink},
			Point:           p,
			SourceComponent: component,
		})
		if desc == nil {
			return nil, errNoDrop
		}
		return desc, nil
	}

	desc := &stream.DragDescriptor{SourceComponent: component, NodeID: nodeID}
	switch {
	case d.onLink != "":
		desc.Target = &stream.DragTarget{LinkID: d.onLink}
	case d.onNode != "":
		desc.Target = &stream.DragTarget{NodeID: d.onNode, Port: stream.PortKind(d.port)}
	}
	return desc, nil
}

func parseXY(s string) (stream.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return stream.Point{}, fmt.Errorf("want x,y, got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return stream.Point{}, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return stream.Point{}, err
	}
	return stream.Point{X: x, Y: y}, nil
}
