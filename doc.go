/*
Package arbor manages the node tree of a visual page-building editor.

A document is a tree of nodes rooted at a canvas. Canvas nodes hold ordered children;
other components may declare linked canvases that they own but that cannot be moved on
their own. Every change goes through a small set of actions that either commit a new
immutable snapshot or are rejected, with a coded error, before anything is mutated.

# Concept

The Editor is the action executor. Hosts (a browser bridge, the HTTP or MCP servers,
scripts, tests) create nodes from registered components, then add, move and edit them.
Drag and drop is expressed with placeholders: ComputePlaceholder resolves where a
dragged node would land from pointer coordinates, and Drop performs the move or insert.

# Key Features

  - Structural policies: drops into non-canvas nodes, into a node's own subtree, or
    refused by incoming and outgoing callbacks are rejected with stable error codes.
  - Atomic batches: Add inserts several nodes in one commit or none at all.
  - Transient events: exclusive flags such as active or hover move between nodes
    without entering the undo history.
  - History: optional undo and redo of structural snapshots.
  - Observation: subscribers receive each commit with a diff of the snapshots.

# Usage

	package main

	import (
		"fmt"

		"github.com/aretw0/arbor"
		"github.com/aretw0/arbor/pkg/domain"
		"github.com/aretw0/arbor/pkg/factory"
	)

	func main() {
		ed := arbor.New(arbor.WithHistory(50))
		ed.Registry().Register(domain.ComponentType{Name: "h3"})

		title, _ := ed.Create("h3", factory.WithProps(domain.Props{"text": "Hello"}))
		if err := ed.Add(domain.RootNodeID, title); err != nil {
			panic(err)
		}
		fmt.Println(ed.State().Current.Root().Data.Nodes)
	}

# Hosts

  - pkg/adapters/http: JSON API with a Server-Sent Events stream of commit diffs.
  - pkg/adapters/mcp: Model Context Protocol tools for AI agents.
  - pkg/script: YAML scripts replayed on an editor, used as fixtures and by the CLI.
  - pkg/session: one editor per document, with per-document locking.
*/
package arbor
