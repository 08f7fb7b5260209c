// Package docstore provides a path-keyed JSON document store backed by Redis.
//
// # Overview
//
// Concord records every collaboration artifact (protocol schemas, evolution
// threads, discovery markers) as a JSON document addressed by a repository-style
// path such as ".ai/protocols/registry.json". The docstore is the single storage
// collaborator for all of these documents: create, update, and read of whole
// documents, with no partial writes.
//
// # Core Concepts
//
// A Document is UTF-8 JSON text plus bookkeeping: a monotonically increasing
// version (starting at 1), the commit-style message supplied with the write,
// and the wall-clock time of the last write.
//
// Every write is a whole-document replacement. Callers follow a
// read-modify-write cycle: load the document, mutate the in-memory model,
// serialize, write back. UpdateDocument optionally takes the version the
// caller read; a mismatch fails with ErrConflict so lost updates can be
// detected when the caller opts in. With no expected version, last write wins.
//
// # Multi-Instance Support
//
// All Redis keys and the event channel are namespaced by instance name, so
// multiple Concord instances can share one Redis server without interference.
//
// # Redis Schema
//
// Documents:  concord:{instance}:doc:{path}   (hash: content, version, message, updated_at_ms)
// Path index: concord:{instance}:docs         (set of known paths)
// Events:     concord:{instance}:doc_events   (pub/sub, JSON DocumentEvent per write)
package docstore
