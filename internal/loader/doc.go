// Package loader composes a root unit with its declared children.
//
// Ownership boundary:
// - exclusive root load followed by additive child loads in store order
// - best-effort composition: a failed child is logged and skipped
// - fan-out/fan-in unload of the active root's loaded children
// - the loaded set for the current active root
//
// The loader never retries and never rolls back a partial composition.
package loader
