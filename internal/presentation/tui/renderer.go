package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/aretw0/arbor/pkg/domain"
)

// NewRenderer returns a function that renders markdown using glamour.
// Non-interactive output uses the plain ASCII style.
func NewRenderer(interactive bool) (func(string) (string, error), error) {
	opt := glamour.WithAutoStyle()
	if !interactive {
		opt = glamour.WithStandardStyle("ascii")
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(100))
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	return r.Render, nil
}

// Outline describes the tree as a nested markdown list, one item per node with its
// component, props and raised flags. Linked canvases are marked as such.
func Outline(state *domain.State) string {
	var sb strings.Builder
	tree := state.Current
	fmt.Fprintf(&sb, "# Document tree\n\n%d nodes\n\n", len(tree.Nodes))

	var walk func(id string, depth int, linked bool)
	walk = func(id string, depth int, linked bool) {
		node, ok := tree.Nodes[id]
		if !ok {
			return
		}
		sb.WriteString(strings.Repeat("  ", depth))
		fmt.Fprintf(&sb, "- **%s** `%s`", node.Data.Type.Name, id)
		if linked {
			sb.WriteString(" _(linked)_")
		}
		if props := formatProps(node.Data.Props); props != "" {
			fmt.Fprintf(&sb, " %s", props)
		}
		if flags := formatFlags(node.Events); flags != "" {
			fmt.Fprintf(&sb, " [%s]", flags)
		}
		sb.WriteString("\n")

		for _, child := range node.Data.Nodes {
			walk(child, depth+1, false)
		}
		for _, child := range node.Data.LinkedNodes {
			walk(child, depth+1, true)
		}
	}
	walk(domain.RootNodeID, 0, false)
	return sb.String()
}

func formatProps(props domain.Props) string {
	if len(props) == 0 {
		return ""
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, props[k])
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatFlags(events map[string]bool) string {
	var flags []string
	for name, on := range events {
		if on {
			flags = append(flags, name)
		}
	}
	sort.Strings(flags)
	return strings.Join(flags, ", ")
}
