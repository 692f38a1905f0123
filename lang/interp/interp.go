// Package interp wires the scanner, compiler and machine together behind
// the single entry point the CLI calls (§2: "scan -> compile -> run").
package interp

import (
	"io"

	"github.com/andrewfurey21/sting/lang/compiler"
	"github.com/andrewfurey21/sting/lang/machine"
	"github.com/andrewfurey21/sting/lang/value"
)

// Status is the three-way result the CLI maps to an exit code (§6, §7).
type Status int

const (
	// OK: the program ran to completion.
	OK Status = iota
	// CompileError: compilation failed; the program never ran.
	CompileError
	// RuntimeError: compilation succeeded but execution aborted.
	RuntimeError
)

// Result is what Interpret returns: the outcome and, on failure, the error
// that produced it.
type Result struct {
	Status Status
	Err    error
}

// Interpret compiles and runs src, writing PRINT output to stdout and
// natives bound ahead of the run. It never panics on guest-language
// errors: compile and runtime failures are both reported through Result.
func Interpret(src []byte, stdout io.Writer) Result {
	pool := value.NewPool()

	fn, err := compiler.Compile(src, pool)
	if err != nil {
		return Result{Status: CompileError, Err: err}
	}

	m := machine.New(machine.DefaultNatives(), pool)
	m.Stdout = stdout
	if err := m.Run(fn); err != nil {
		return Result{Status: RuntimeError, Err: err}
	}
	return Result{Status: OK}
}
