// Package machine implements the dispatch loop that executes compiled
// chunks (§4.5): one loop over the topmost call frame's bytecode,
// operating on a value stack shared by every frame, incrementing pc before
// executing the fetched instruction.
package machine

import (
	"fmt"
	"io"
	"os"

	"github.com/andrewfurey21/sting/lang/bytecode"
	"github.com/andrewfurey21/sting/lang/object"
	"github.com/andrewfurey21/sting/lang/value"
)

// stringPool is the narrow interface the machine needs out of a
// value.Pool: interning the result of runtime string concatenation into
// the same canonical table the compiler used for its string constants.
type stringPool interface {
	Intern(s string) *value.StringObject
}

// Machine owns every piece of mutable VM state (§3.7): the call-frame
// stack, the value stack, the globals table, the open-upvalue list (head
// only; see captureUpvalue/closeUpvaluesFrom), and the return slot used to
// bridge a RETURN's value across the stack truncation that unwinds its
// frame.
type Machine struct {
	// Stdout is where PRINT writes. Defaults to os.Stdout.
	Stdout io.Writer

	frames []*Frame
	stack  []value.Value

	globals      *Globals
	openUpvalues *object.Upvalue
	returnSlot   value.Value
	strings      stringPool
}

// New returns a machine whose globals are pre-populated with natives.
// strings interns the results of runtime string concatenation into the
// same pool the compiler used for its string constants (§3.8): callers
// should pass the *value.Pool given to compiler.Compile for the program
// being run.
func New(natives Natives, strings stringPool) *Machine {
	m := &Machine{
		Stdout:  os.Stdout,
		globals: NewGlobals(),
		strings: strings,
	}
	for name, n := range natives {
		// Define never fails here: the registry only ever holds unique names.
		_ = m.globals.Define(name, n.Value())
	}
	return m
}

// Run executes script, sting's synthetic top-level function, to
// completion. It returns nil on the script frame's RETURN (§4.5's "OK")
// and a *RuntimeError on any fatal dispatch failure.
func (m *Machine) Run(script *object.Function) error {
	m.frames = append(m.frames, &Frame{closure: object.NewClosure(script)})
	return m.dispatch()
}

func (m *Machine) push(v value.Value) { m.stack = append(m.stack, v) }

func (m *Machine) pop() value.Value {
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v
}

func (m *Machine) peek() value.Value { return m.stack[len(m.stack)-1] }

func (m *Machine) dispatch() error {
	for {
		fr := m.frames[len(m.frames)-1]
		chunk := fr.closure.Fn.Chunk
		if fr.pc >= len(chunk.Code) {
			return m.runtimeError("pc ran past the end of %s's chunk", fr.closure.String())
		}
		ins := chunk.Code[fr.pc]
		fr.pc++

		switch ins.Op {
		case bytecode.LOAD_CONST:
			m.push(chunk.Constants[ins.Operands[0]])

		case bytecode.NIL:
			m.push(value.Nil)
		case bytecode.TRUE:
			m.push(value.Bool(true))
		case bytecode.FALSE:
			m.push(value.Bool(false))

		case bytecode.POP:
			m.pop()
		case bytecode.POPN:
			n := int(ins.Operands[0])
			m.stack = m.stack[:len(m.stack)-n]

		case bytecode.NEGATE:
			v := m.peek()
			if !v.IsNumber() {
				return m.runtimeError("%s", &value.TypeError{Op: "-", Kind: v.Kind()})
			}
			m.stack[len(m.stack)-1] = value.Number(-v.AsNumber())

		case bytecode.NOT:
			v := m.peek()
			m.stack[len(m.stack)-1] = value.Bool(!v.Truthy())

		case bytecode.ADD, bytecode.SUB, bytecode.MUL, bytecode.DIV:
			b := m.pop()
			a := m.pop()
			res, err := m.binaryArithmetic(ins.Op, a, b)
			if err != nil {
				return m.runtimeError("%s", err)
			}
			m.push(res)

		case bytecode.EQUAL:
			b := m.pop()
			a := m.pop()
			m.push(value.Bool(a.Equal(b)))

		case bytecode.GREATER, bytecode.LESS:
			b := m.pop()
			a := m.pop()
			if !a.IsNumber() || !b.IsNumber() {
				return m.runtimeError("operands must be numbers")
			}
			res := a.AsNumber() > b.AsNumber()
			if ins.Op == bytecode.LESS {
				res = a.AsNumber() < b.AsNumber()
			}
			m.push(value.Bool(res))

		case bytecode.PRINT:
			fmt.Fprintln(m.Stdout, m.pop().Format())

		case bytecode.DEFINE_GLOBAL:
			name := chunk.Constants[ins.Operands[0]].AsString().String()
			if err := m.globals.Define(name, m.pop()); err != nil {
				return m.runtimeError("%s", err)
			}

		case bytecode.GET_GLOBAL:
			name := chunk.Constants[ins.Operands[0]].AsString().String()
			v, ok := m.globals.Get(name)
			if !ok {
				return m.runtimeError("undefined variable %q", name)
			}
			m.push(v)

		case bytecode.SET_GLOBAL:
			name := chunk.Constants[ins.Operands[0]].AsString().String()
			if err := m.globals.Set(name, m.peek()); err != nil {
				return m.runtimeError("%s", err)
			}

		case bytecode.GET_LOCAL:
			m.push(m.stack[fr.bp+int(ins.Operands[0])])
		case bytecode.SET_LOCAL:
			m.stack[fr.bp+int(ins.Operands[0])] = m.peek()

		case bytecode.GET_UPVALUE:
			up := fr.closure.Upvalues[ins.Operands[0]]
			m.push(up.Get(m.stack))
		case bytecode.SET_UPVALUE:
			up := fr.closure.Upvalues[ins.Operands[0]]
			up.Set(m.stack, m.peek())

		case bytecode.BRANCH_FALSE:
			if !m.peek().Truthy() {
				fr.pc += int(ins.Operands[0])
			}
		case bytecode.BRANCH:
			fr.pc += int(ins.Operands[0])
		case bytecode.LOOP:
			fr.pc -= int(ins.Operands[0])

		case bytecode.CALL:
			if err := m.call(int(ins.Operands[0])); err != nil {
				return err
			}

		case bytecode.MAKE_CLOSURE:
			m.makeClosure(fr, ins.Operands)

		case bytecode.CLOSE_VALUE:
			m.closeUpvaluesFrom(len(m.stack) - 1)
			m.pop()

		case bytecode.SAVE_VALUE:
			m.returnSlot = m.pop()
		case bytecode.LOAD_VALUE:
			m.push(m.returnSlot)

		case bytecode.RETURN:
			m.returnSlot = m.pop()
			m.closeUpvaluesFrom(fr.bp)
			m.frames = m.frames[:len(m.frames)-1]
			if len(m.frames) == 0 {
				m.stack = m.stack[:fr.bp]
				return nil
			}
			// drop the frame's locals and the callee slot just below them, so
			// the call leaves only its result, as a native call does
			m.stack = m.stack[:fr.bp-1]
			m.push(m.returnSlot)

		default:
			return m.runtimeError("unknown opcode %s", ins.Op)
		}
	}
}

// binaryArithmetic implements ADD/SUB/MUL/DIV (§3.1, §8 scenario 4): ADD
// also concatenates two strings, matching `print "ab" + "cd";` => `abcd`.
func (m *Machine) binaryArithmetic(op bytecode.Opcode, a, b value.Value) (value.Value, error) {
	if op == bytecode.ADD && a.IsString() && b.IsString() {
		concatenated := a.AsString().String() + b.AsString().String()
		return value.String(m.strings.Intern(concatenated)), nil
	}
	if !a.IsNumber() || !b.IsNumber() {
		badKind := a.Kind()
		if a.IsNumber() {
			badKind = b.Kind()
		}
		return value.Nil, &value.TypeError{Op: op.String(), Kind: badKind}
	}
	x, y := a.AsNumber(), b.AsNumber()
	switch op {
	case bytecode.ADD:
		return value.Number(x + y), nil
	case bytecode.SUB:
		return value.Number(x - y), nil
	case bytecode.MUL:
		return value.Number(x * y), nil
	case bytecode.DIV:
		return value.Number(x / y), nil
	default:
		panic("unreachable")
	}
}

func (m *Machine) call(n int) error {
	calleeIdx := len(m.stack) - n - 1
	if calleeIdx < 0 {
		return m.runtimeError("stack underflow during call")
	}
	callee := m.stack[calleeIdx]

	switch callee.Kind() {
	case value.KindClosure:
		cl := object.AsClosure(callee)
		if cl.Fn.Arity != n {
			return m.runtimeError("%s expects %d arguments but got %d", cl.String(), cl.Fn.Arity, n)
		}
		m.frames = append(m.frames, &Frame{closure: cl, bp: calleeIdx + 1})
		return nil

	case value.KindNative:
		nat := object.AsNative(callee)
		if nat.Arity != n {
			return m.runtimeError("%s expects %d arguments but got %d", nat.Name, nat.Arity, n)
		}
		args := append([]value.Value(nil), m.stack[calleeIdx+1:]...)
		result, err := nat.Fn(args)
		if err != nil {
			return m.runtimeError("%s", err)
		}
		m.stack = m.stack[:calleeIdx]
		m.push(result)
		return nil

	default:
		return m.runtimeError("can only call functions and closures, not %s", callee.Kind())
	}
}

// makeClosure implements MAKE_CLOSURE (§4.1, §4.4): the compiled Function
// is on top of the stack (pushed by the LOAD_CONST that always immediately
// precedes this instruction); operands[0] is the upvalue count k, followed
// by k (is_local, index) pairs capturing either a slot in the currently
// executing frame (is_local) or forwarding an upvalue already held by that
// frame's own closure (chain capture).
func (m *Machine) makeClosure(fr *Frame, operands []uint32) {
	fn := object.AsFunction(m.pop())
	cl := object.NewClosure(fn)

	k := int(operands[0])
	for i := 0; i < k; i++ {
		isLocal := operands[1+2*i] == 1
		idx := int(operands[2+2*i])
		if isLocal {
			cl.Upvalues[i] = m.captureUpvalue(fr.bp + idx)
		} else {
			cl.Upvalues[i] = fr.closure.Upvalues[idx]
		}
	}
	m.push(cl.Value())
}

// captureUpvalue implements §4.4's Capture(i): the open-upvalue list is
// kept sorted by strictly descending stack index so a linear walk from the
// head either finds the existing cell for i or the insertion point that
// preserves the order.
func (m *Machine) captureUpvalue(stackIndex int) *object.Upvalue {
	var prev *object.Upvalue
	cur := m.openUpvalues
	for cur != nil && cur.StackIndex > stackIndex {
		prev = cur
		cur = cur.Next
	}
	if cur != nil && cur.StackIndex == stackIndex {
		return cur
	}
	created := object.NewOpenUpvalue(stackIndex)
	created.Next = cur
	if prev == nil {
		m.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

// closeUpvaluesFrom implements §4.4's "Close down to depth d": every open
// cell with stack_index >= d is detached, frozen at its current stack
// value, and removed from the list. Used by RETURN (d = bp) and by
// CLOSE_VALUE (d = the one slot being torn down).
func (m *Machine) closeUpvaluesFrom(d int) {
	for m.openUpvalues != nil && m.openUpvalues.StackIndex >= d {
		up := m.openUpvalues
		up.Close(m.stack)
		m.openUpvalues = up.Next
	}
}
