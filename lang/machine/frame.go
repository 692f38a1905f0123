package machine

import "github.com/andrewfurey21/sting/lang/object"

// Frame is one call frame (§3.6): the closure under execution, its program
// counter into that closure's function's chunk, and the base pointer
// indexing the machine's shared value stack at which this frame's locals
// (its arguments, first) begin.
type Frame struct {
	closure *object.Closure
	pc      int
	bp      int
}
