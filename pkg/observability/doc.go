/*
Package observability provides tools for monitoring the Arbor editor.

It turns the editor's lifecycle hooks into Prometheus metrics (commits, rejections
by error code, commit latency and tree size) and into structured audit logs.
*/
package observability
