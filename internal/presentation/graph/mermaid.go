package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart of the node tree, walking it depth
// first from the root so the output is stable. Shapes follow the node kind:
//   - Root: ((Circle))
//   - Canvas: [[Subroutine]]
//   - Component: [Rectangle]
//
// Ordered children are linked with solid arrows, linked canvases with dotted ones.
// When state is given, holders of exclusive flags and the drop target are styled.
func GenerateMermaid(tree *domain.Tree, state *domain.State) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	var walk func(id string)
	walk = func(id string) {
		node, ok := tree.Nodes[id]
		if !ok {
			return
		}
		safeID := sanitizeMermaidID(id)

		opener, closer := "[", "]"
		switch {
		case node.IsRoot():
			opener, closer = "((", "))"
		case node.IsCanvas():
			opener, closer = "[[", "]]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s <br/> %s\"%s\n", safeID, opener, escape(id), escape(node.Data.Type.Name), closer)

		for i, child := range node.Data.Nodes {
			fmt.Fprintf(&sb, "    %s -- \"%d\" --> %s\n", safeID, i, sanitizeMermaidID(child))
		}
		for _, child := range node.Data.LinkedNodes {
			fmt.Fprintf(&sb, "    %s -.-> %s\n", safeID, sanitizeMermaidID(child))
		}
		for _, child := range node.Data.Nodes {
			walk(child)
		}
		for _, child := range node.Data.LinkedNodes {
			walk(child)
		}
	}
	walk(domain.RootNodeID)

	if state != nil {
		writeOverlay(&sb, tree, state)
	}
	return sb.String()
}

func writeOverlay(sb *strings.Builder, tree *domain.Tree, state *domain.State) {
	sb.WriteString("\n    %% Overlay Styles\n")
	// Black text keeps contrast on both light and dark themes.
	sb.WriteString("    classDef active fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
	sb.WriteString("    classDef hover fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef dragging fill:#fce4ec,stroke:#c2185b,stroke-dasharray:5 5,color:#000;\n")
	sb.WriteString("    classDef drop fill:#e8f5e9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")

	for _, event := range domain.DefaultExclusiveEvents {
		if id, ok := state.Holder(event); ok && tree.Has(id) {
			fmt.Fprintf(sb, "    class %s %s;\n", sanitizeMermaidID(id), event)
		}
	}
	if p := state.Events.Placeholder; p != nil && p.Placement != nil && p.Placement.Parent != nil {
		fmt.Fprintf(sb, "    class %s drop;\n", sanitizeMermaidID(p.Placement.Parent.ID))
	}
}

func escape(label string) string {
	return strings.ReplaceAll(label, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
}
