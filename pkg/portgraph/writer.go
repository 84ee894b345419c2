package portgraph

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// WriteText writes the graph in the format accepted by ReadGraph.
// Edges are grouped under their source node in input order.
func (g *Graph) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n", g.NumNodes())
	for n := 0; n < g.NumNodes(); n++ {
		fmt.Fprintf(bw, "%d\n", len(g.labels[n]))
		for _, l := range g.labels[n] {
			fmt.Fprintf(bw, "%d\n", l)
		}
		fmt.Fprintf(bw, "%d\n", len(g.outgoing[n]))
		for _, ei := range g.outgoing[n] {
			e := g.edges[ei]
			fmt.Fprintf(bw, "%s %d %s\n", e.SrcPort, e.Dst, e.DstPort)
		}
	}
	return bw.Flush()
}

// DOT renders the graph as a Graphviz digraph. Each node is a record whose
// left column lists the ports used by incoming edges and whose right column
// lists the ports used by outgoing edges; edges connect port to port.
func (g *Graph) DOT(name string) string {
	return g.dot(name, nil)
}

// AnnotatedDOT is DOT with some nodes highlighted. Each key of notes is a
// node index; the node is filled and its value is appended to its title.
func (g *Graph) AnnotatedDOT(name string, notes map[int]string) string {
	return g.dot(name, notes)
}

func (g *Graph) dot(name string, notes map[int]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", name)
	b.WriteString("node [shape=record];\n")

	inIDs := make([]map[string]string, g.NumNodes())
	outIDs := make([]map[string]string, g.NumNodes())
	for n := 0; n < g.NumNodes(); n++ {
		in := g.portNames(g.incoming[n], false)
		out := g.portNames(g.outgoing[n], true)
		inIDs[n] = portIDs(in, "i")
		outIDs[n] = portIDs(out, "o")

		fields := make([]string, 0, 3)
		if len(in) > 0 {
			fields = append(fields, "{"+recordPorts(in, inIDs[n])+"}")
		}
		title := fmt.Sprintf("n%d %v", n, g.labels[n])
		note, marked := notes[n]
		if marked && note != "" {
			title += " " + note
		}
		fields = append(fields, escapeRecord(title))
		if len(out) > 0 {
			fields = append(fields, "{"+recordPorts(out, outIDs[n])+"}")
		}
		style := ""
		if marked {
			style = ", style=filled, fillcolor=lightblue"
		}
		fmt.Fprintf(&b, "n%d [label=\"%s\"%s];\n", n, strings.Join(fields, "|"), style)
	}

	for _, e := range g.edges {
		fmt.Fprintf(&b, "n%d:%s -> n%d:%s;\n", e.Src, outIDs[e.Src][e.SrcPort], e.Dst, inIDs[e.Dst][e.DstPort])
	}
	b.WriteString("}\n")
	return b.String()
}

func (g *Graph) portNames(edgeIdx []int, source bool) []string {
	seen := make(map[string]struct{}, len(edgeIdx))
	for _, ei := range edgeIdx {
		e := g.edges[ei]
		if source {
			seen[e.SrcPort] = struct{}{}
		} else {
			seen[e.DstPort] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// portIDs names record fields by position; port tokens may hold characters
// Graphviz does not accept in a field id.
func portIDs(ports []string, prefix string) map[string]string {
	ids := make(map[string]string, len(ports))
	for i, p := range ports {
		ids[p] = fmt.Sprintf("%s%d", prefix, i)
	}
	return ids
}

func recordPorts(ports []string, ids map[string]string) string {
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = fmt.Sprintf("<%s> %s", ids[p], escapeRecord(p))
	}
	return strings.Join(parts, "|")
}

var recordEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	`|`, `\|`,
	`{`, `\{`,
	`}`, `\}`,
	`<`, `\<`,
	`>`, `\>`,
)

// escapeRecord quotes text for a field of a record label.
func escapeRecord(s string) string {
	return recordEscaper.Replace(s)
}
