// Package guard composes a root's children while the root is open for
// editing and locks them against direct selection.
//
// Ownership boundary:
// - per-session state machine: idle, composing, locked, unlocking
// - the set of children this guard opened and locked
// - the pre-runtime name resync hook
//
// The guard only unlocks what it locked. Units that were already open when
// the root was opened are left alone.
package guard
