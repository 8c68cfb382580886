/*
Package domain contains the core domain models of the Arbor editor.

It defines the component tree manipulated by a visual page builder: nodes, their
drag/drop capability record, the immutable state snapshot committed after every
action, and the drop placeholder shown while dragging. This package is kept pure and
free of external dependencies like I/O or rendering.

# Key Entities

  - Node: A component instance. Canvas nodes hold an ordered list of children.
  - Ref: The live element handle plus the incoming/outgoing/canDrag policy callbacks.
  - Tree: The id-indexed node collection rooted at RootNodeID, with its invariants.
  - State: The committed snapshot (tree plus transient events).
  - PlaceholderInfo: The resolved insertion point of an in-progress drag.
  - Error: The coded rejection returned by every refused action.
*/
package domain
