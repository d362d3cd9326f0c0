// Package shadows holds the staging representation of registry state.
//
// Processors build a tree of shadow nodes for each external record: one
// ObjectShadow carrying MetadataShadow and FileShadow fragments plus any
// related objects. Committing the tree reconciles it against the live
// registry: get-or-create object, revision-preserving metadata upserts,
// reuse-or-create files, orphan file cleanup, duplicate unpublishing and
// idempotent publish window changes.
//
// A shadow tree lives for exactly one record. Resolution and commit results
// are memoized, so committing the same tree twice is a no-op.
package shadows
