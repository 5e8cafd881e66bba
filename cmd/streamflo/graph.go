package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ravi-parthasarathy/streamflo/pkg/stream"
)

func graphCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "graph <stream.dot>",
		Short: "Print a human-readable summary of a stream graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := readGraph(args[0])
			if err != nil {
				return err
			}

			switch strings.ToLower(format) {
			case "dot":
				return writeGraph(cmd.OutOrStdout(), g)
			case "text", "":
				fmt.Fprint(cmd.OutOrStdout(), renderText(g))
			default:
				return fmt.Errorf("unknown format %q: use text or dot", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text or dot")
	return cmd
}

// flowOrder returns node IDs in BFS order from every node without inbound
// links; nodes only reachable through cycles are appended sorted.
func flowOrder(g stream.Graph) []string {
	var queue []string
	for _, n := range g.Nodes() {
		if len(g.ConnectedLinks(n.ID, stream.Inbound)) == 0 {
			queue = append(queue, n.ID)
		}
	}

	visited := map[string]bool{}
	var order []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		order = append(order, cur)
		for _, l := range g.ConnectedLinks(cur, stream.Outbound) {
			if !visited[l.Target.ID] {
				queue = append(queue, l.Target.ID)
			}
		}
	}

	var rest []string
	for _, n := range g.Nodes() {
		if !visited[n.ID] {
			rest = append(rest, n.ID)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

// truncate shortens s to maxLen chars, appending "…" if needed.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "…"
}

func renderText(g *stream.MemGraph) string {
	var sb strings.Builder

	nodes, links := g.Nodes(), g.Links()
	fmt.Fprintf(&sb, "Stream: %s  (%d nodes, %d links)\n", g.Name, len(nodes), len(links))

	maxIDLen := 4
	for _, n := range nodes {
		if len(n.ID) > maxIDLen {
			maxIDLen = len(n.ID)
		}
	}

	fmt.Fprintf(&sb, "\nNodes:\n")
	for _, id := range flowOrder(g) {
		n, _ := g.Node(id)
		parts := []string{}
		if name := n.Name(); name != "" && name != n.ID {
			parts = append(parts, "name="+name)
		}
		keys := make([]string, 0, len(n.Props))
		for k := range n.Props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, k+"="+truncate(n.Props[k], 60))
		}
		fmt.Fprintf(&sb, "  %-*s  %-12s  %s\n", maxIDLen, id, n.Kind(), strings.Join(parts, " "))
	}

	fmt.Fprintf(&sb, "\nLinks:\n")
	maxFromLen := 4
	for _, l := range links {
		if w := len(l.Source.ID) + len(l.Source.Port) + 1; w > maxFromLen {
			maxFromLen = w
		}
	}
	for _, l := range links {
		from := l.Source.ID + ":" + string(l.Source.Port)
		to := l.Target.ID + ":" + string(l.Target.Port)
		if l.Tap {
			fmt.Fprintf(&sb, "  %-*s  →  %s  [tap]\n", maxFromLen, from, to)
		} else {
			fmt.Fprintf(&sb, "  %-*s  →  %s\n", maxFromLen, from, to)
		}
	}
	return sb.String()
}
