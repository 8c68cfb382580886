/*
Package ports defines the driving and driven ports (interfaces) of the Arbor editor.

These interfaces decouple the hosts (HTTP, MCP, scripts, CLI) from the concrete editor
and from optional infrastructure such as distributed locks.

# Key Interfaces

  - Editor: The tree-mutation surface a host drives.
  - DistributedLocker: Provides distributed locking for documents edited by several replicas.
*/
package ports
