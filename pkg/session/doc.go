/*
Package session hosts the editors of several documents.

It serialises access to each document's editor with reference-counted local locks,
optionally backed by a distributed locker when several replicas serve the same
documents.
*/
package session
