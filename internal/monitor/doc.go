// Package monitor keeps the relation graph consistent with the content store.
//
// Ownership boundary:
// - change batches (imported, deleted, moved-to, moved-from locations)
// - pruning deleted units from the relation graph
// - re-deriving cached names after moves
// - the filesystem notification feed producing change batches
package monitor
