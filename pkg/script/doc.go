/*
Package script replays editor sessions described in YAML.

A script declares the component types it uses and a list of steps. Each step names
one editor action and its arguments; a step may expect a rejection by error code.
Scripts are used as fixtures by tests and by the `arbor run` command.

	name: hero section
	components:
	  - name: h3
	steps:
	  - add: {parent: ROOT, nodes: [{id: hero, type: Canvas}]}
	  - add: {parent: hero, nodes: [{id: title, type: h3, props: {text: Hi}}]}
	  - move: {node: hero, parent: hero}
	    expect_error: ERROR_MOVE_TO_DESCENDANT
*/
package script
