package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/playground/pkg/domain"
)

// Overlay carries run state to paint on the graph, keyed by node ID.
type Overlay struct {
	Status map[string]domain.RunStatus
}

// OverlayFromResults builds an Overlay from engine results.
func OverlayFromResults(results []domain.Result) *Overlay {
	o := &Overlay{Status: make(map[string]domain.RunStatus, len(results))}
	for _, r := range results {
		o.Status[r.NodeID] = r.Status
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart (left to right) from a graph snapshot.
// Shapes:
// - Source (no incoming edge): ([Stadium])
// - Default: [Rectangle]
// Edges are labeled with the target slot. Animated edges are drawn thick (==>).
// Overlay statuses become classes (pending, success, error).
func GenerateMermaid(g domain.Graph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	hasInput := make(map[string]bool, len(g.Edges))
	for _, e := range g.Edges {
		hasInput[e.Target] = true
	}

	nodes := domain.CloneNodes(g.Nodes)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	for _, node := range nodes {
		opener, closer := "[", "]"
		if !hasInput[node.ID] {
			opener, closer = "([", "])"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s<br/><i>%s</i>\"%s\n",
			sanitizeMermaidID(node.ID), opener, escape(node.ID), escape(node.Kind), closer)
	}

	edges := domain.CloneEdges(g.Edges)
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
	for _, e := range edges {
		arrow := "-->"
		if e.Animated {
			arrow = "==>"
		}
		label := ""
		if e.TargetHandle != "" {
			label = fmt.Sprintf("|%s|", escape(e.TargetHandle))
		}
		fmt.Fprintf(&sb, "    %s %s%s %s\n", sanitizeMermaidID(e.Source), arrow, label, sanitizeMermaidID(e.Target))
	}

	if overlay != nil && len(overlay.Status) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef pending fill:#fff8e1,stroke:#f9a825,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef success fill:#e8f5e9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef error fill:#ffebee,stroke:#c62828,stroke-width:3px,color:#000;\n")

		ids := make([]string, 0, len(overlay.Status))
		for id := range overlay.Status {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if _, ok := g.Node(id); !ok {
				continue
			}
			switch st := overlay.Status[id]; st {
			case domain.StatusPending, domain.StatusSuccess, domain.StatusError:
				fmt.Fprintf(&sb, "    class %s %s;\n", sanitizeMermaidID(id), st)
			}
		}
	}

	return sb.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
