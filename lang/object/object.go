// Package object implements the three callable/capture value kinds that sit
// between the bytecode container and the machine that runs it (§3.3-3.5):
// Function (a compiled, immutable body), Closure (a function paired with
// its captured upvalues), and Upvalue (the cell a closure shares with the
// call frame that owns the captured slot, or with sibling closures).
//
// This package depends on lang/bytecode (for Chunk) and lang/value (for
// Value and StringObject); lang/value itself stays a leaf so these types
// can be minted as value.Value via the generic value.Of constructor
// without creating an import cycle.
package object

import (
	"fmt"

	"github.com/andrewfurey21/sting/lang/bytecode"
	"github.com/andrewfurey21/sting/lang/value"
)

// Function packages a name, arity, and one chunk (§3.3). It is produced
// once by the compiler and never mutated after its `fun` declaration (or
// the top-level script) finishes compiling. UpvalueCount is the number of
// (is_local, index) pairs the compiler attached to the MAKE_CLOSURE
// instruction that will wrap this function; it fixes the length of every
// Closure built from it (§3.4's invariant).
type Function struct {
	Name         *value.StringObject
	Arity        int
	Chunk        *bytecode.Chunk
	UpvalueCount int
}

func (f *Function) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.String())
}

// Value wraps f as a value.Value.
func (f *Function) Value() value.Value { return value.Of(value.KindFunction, f) }

// AsFunction extracts the *Function handle from v. Callers must have
// checked v.Kind() == value.KindFunction first.
func AsFunction(v value.Value) *Function { return v.Heap().(*Function) }

// Native is a builtin implemented in Go (§6: clock()). NativeFn receives
// its arguments already popped off the value stack, in left-to-right
// order.
type NativeFn func(args []value.Value) (value.Value, error)

type Native struct {
	Name  string
	Arity int
	Fn    NativeFn
}

func (n *Native) String() string { return fmt.Sprintf("<native %s>", n.Name) }

func (n *Native) Value() value.Value { return value.Of(value.KindNative, n) }

func AsNative(v value.Value) *Native { return v.Heap().(*Native) }

// Closure wraps a Function with a vector of upvalue handles (§3.4). It is
// minted only by the machine's MAKE_CLOSURE handler. Upvalues is fixed in
// length at creation, matching Function.UpvalueCount.
type Closure struct {
	Fn       *Function
	Upvalues []*Upvalue
}

func (c *Closure) String() string { return c.Fn.String() }

func (c *Closure) Value() value.Value { return value.Of(value.KindClosure, c) }

func AsClosure(v value.Value) *Closure { return v.Heap().(*Closure) }

// NewClosure allocates a closure around fn with count empty upvalue slots,
// filled in by the capture routine as MAKE_CLOSURE processes its operand
// pairs.
func NewClosure(fn *Function) *Closure {
	return &Closure{Fn: fn, Upvalues: make([]*Upvalue, fn.UpvalueCount)}
}

// Upvalue is the cell described in §3.5: it starts Open, referencing a
// live slot on the machine's value stack by index, never by address (see
// §9's stack-address-stability note), and transitions to Closed exactly
// once, at which point it owns its value directly and every closure
// sharing the cell observes the same stored value thereafter.
type Upvalue struct {
	// StackIndex is meaningful only while Closed is false.
	StackIndex int
	Closed     bool
	Value      value.Value

	// Next links open upvalues into the machine's intrusive list, ordered by
	// strictly descending StackIndex (§3.7, P3). Unused once Closed.
	Next *Upvalue
}

// NewOpenUpvalue creates a cell pointing at stackIndex.
func NewOpenUpvalue(stackIndex int) *Upvalue {
	return &Upvalue{StackIndex: stackIndex}
}

// Get dereferences the cell: the live stack slot if open, the stored
// value if closed.
func (u *Upvalue) Get(stack []value.Value) value.Value {
	if u.Closed {
		return u.Value
	}
	return stack[u.StackIndex]
}

// Set stores through the cell.
func (u *Upvalue) Set(stack []value.Value, v value.Value) {
	if u.Closed {
		u.Value = v
		return
	}
	stack[u.StackIndex] = v
}

// Close transitions the cell from Open to Closed, capturing the value
// currently at its stack slot. The caller must do this before that slot is
// popped or overwritten. Closing an already-closed cell is a no-op: the
// open-upvalue list guarantees Close is only ever invoked once per cell
// (it is unlinked from the list as part of closing), but the guard keeps
// the operation idempotent for callers that might race a frame-exit close
// against an explicit CLOSE_VALUE for the same slot.
func (u *Upvalue) Close(stack []value.Value) {
	if u.Closed {
		return
	}
	u.Value = stack[u.StackIndex]
	u.Closed = true
}
