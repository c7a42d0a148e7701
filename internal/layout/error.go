package layout

import (
	"fmt"
	"strings"

	"zulonc/internal/types"
)

// ErrorKind enumerates types of layout calculation errors.
type ErrorKind uint8

const (
	// ErrRecursiveUnsized indicates a recursive value type with no fixed size.
	ErrRecursiveUnsized ErrorKind = iota + 1
	ErrLengthConversion
	ErrNegativeLength
)

// Error represents an error encountered while computing a type's ABI layout.
type Error struct {
	Kind  ErrorKind
	Type  types.TypeID
	Cycle []types.TypeID // for ErrRecursiveUnsized
	Value int64          // for ErrNegativeLength
	Err   error          // for ErrLengthConversion
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case ErrRecursiveUnsized:
		if len(e.Cycle) == 0 {
			return fmt.Sprintf("recursive value type has infinite size (type#%d)", e.Type)
		}
		parts := make([]string, 0, len(e.Cycle))
		for _, id := range e.Cycle {
			parts = append(parts, fmt.Sprintf("type#%d", id))
		}
		return fmt.Sprintf("recursive value type has infinite size (cycle: %s)", strings.Join(parts, " -> "))
	case ErrLengthConversion:
		if e.Err != nil {
			return fmt.Sprintf("array length conversion error (type#%d): %v", e.Type, e.Err)
		}
		return fmt.Sprintf("array length conversion error (type#%d)", e.Type)
	case ErrNegativeLength:
		return fmt.Sprintf("negative array length: %d (type#%d)", e.Value, e.Type)
	default:
		return fmt.Sprintf("layout error kind=%d type#%d", e.Kind, e.Type)
	}
}
