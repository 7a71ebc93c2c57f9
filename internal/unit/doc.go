// Package unit owns the relation data model shared by every component.
//
// Ownership boundary:
// - unit reference shape (stable id + cached display name)
// - root relation and graph shapes
// - id format and location naming rules
//
// The id is authoritative. Names are a derived cache and are only valid after
// an explicit resync against the content catalog.
package unit
