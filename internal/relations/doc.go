// Package relations owns the root->children relation graph.
//
// Ownership boundary:
// - id and cached-name lookups over the graph
// - validated mutation primitives for the authoring surface
// - pruning of deleted units and name resync against a resolver
// - the single apply/persist write path
//
// Reads return copies; callers never observe later mutation through them.
package relations
