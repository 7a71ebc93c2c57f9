// Package engine defines the collaborator contracts the composition layer is
// driven through.
//
// Ownership boundary:
// - unit load/unload primitive (exclusive and additive modes)
// - per-request completion signal used by the asynchronous variants
// - runtime unit state (active root, loaded units)
// - authoring-environment surface (open by location, picking lock)
//
// The package also carries Headless, an in-process engine used for dry runs
// and for serving lifecycle hooks without an attached host.
package engine
