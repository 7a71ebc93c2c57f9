package unit

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var ErrInvalidRef = errors.New("unit: invalid ref")

// ValidateRef checks the id is present and well formed. Names are not checked;
// an empty name is a valid stale cache entry.
func ValidateRef(ref Ref) error {
	id := strings.TrimSpace(ref.ID)
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRef)
	}
	if !IsValidID(id) {
		return fmt.Errorf("%w: invalid id format %q", ErrInvalidRef, ref.ID)
	}
	return nil
}

// IsValidID accepts ascii letters, digits, and single '.', '-', '_' separators
// that neither lead nor trail.
func IsValidID(id string) bool {
	if id == "" {
		return false
	}
	lastSep := false
	for i := 0; i < len(id); i++ {
		c := id[i]
		isAlpha := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isDigit := c >= '0' && c <= '9'
		isSep := c == '.' || c == '-' || c == '_'
		if !(isAlpha || isDigit || isSep) {
			return false
		}
		if (i == 0 || i == len(id)-1) && isSep {
			return false
		}
		if isSep && lastSep {
			return false
		}
		lastSep = isSep
	}
	return true
}

// IsUnitLocation reports whether location names a unit file with extension ext.
// The comparison is case-insensitive.
func IsUnitLocation(location, ext string) bool {
	if location == "" || ext == "" {
		return false
	}
	return strings.EqualFold(filepath.Ext(location), ext)
}

// NameFromLocation derives the display name of the unit stored at location:
// the file name without its extension. ok is false when location is not a unit.
func NameFromLocation(location, ext string) (string, bool) {
	if !IsUnitLocation(location, ext) {
		return "", false
	}
	base := filepath.Base(location)
	return strings.TrimSuffix(base, filepath.Ext(base)), true
}
