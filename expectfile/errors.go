package expectfile

import (
	"errors"
	"fmt"
)

// CorruptFormatError indicates an existing baseline file whose content could
// not be parsed. It is fatal: proceeding with a silently-empty baseline
// would report every known failure as new breakage (or mask it), so the
// session must abort and surface the offending path instead.
type CorruptFormatError struct {
	Path   string
	Line   int
	Reason string
}

func (e *CorruptFormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("corrupt baseline file (line %d): %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("corrupt baseline file %s (line %d): %s", e.Path, e.Line, e.Reason)
}

// IsCorruptFormatError checks if the error is or wraps a CorruptFormatError
func IsCorruptFormatError(err error) bool {
	var corrupt *CorruptFormatError
	return err != nil && errors.As(err, &corrupt)
}
