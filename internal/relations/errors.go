package relations

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/unitctl/internal/unit"
)

var (
	ErrDuplicateUnit   = errors.New("relations: duplicate unit")
	ErrRootNotFound    = errors.New("relations: root not found")
	ErrIndexOutOfRange = errors.New("relations: index out of range")
	ErrStoreExists     = errors.New("relations: store already exists")
)

func duplicateError(ref unit.Ref, scope string) error {
	return fmt.Errorf("%w: %s is already registered %s", ErrDuplicateUnit, describe(ref), scope)
}

func describe(ref unit.Ref) string {
	if ref.Name != "" {
		return fmt.Sprintf("unit %q (%s)", ref.Name, ref.ID)
	}
	return fmt.Sprintf("unit %s", ref.ID)
}

// IsConflict reports whether err is a user-facing registration conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateUnit)
}

// ConflictMessage renders a conflict for display, empty when err is not one.
func ConflictMessage(err error) string {
	if !IsConflict(err) {
		return ""
	}
	return strings.TrimPrefix(err.Error(), ErrDuplicateUnit.Error()+": ")
}
