package compiler

import "fmt"

// Error is a compile-time diagnostic (§7.1). Only the first one encountered
// is ever retained: the panic-mode flag in Compiler suppresses every error
// that would otherwise cascade from the same malformed construct, and
// Compile returns this single Error rather than a list.
type Error struct {
	Line    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}
