package bytecode

import (
	"fmt"

	"github.com/andrewfurey21/sting/lang/value"
)

// Instruction is one (opcode, operand-vector) tuple. Most opcodes carry 0
// or 1 operand; MAKE_CLOSURE carries 1 + 2*k (§4.1: k, then k (is_local,
// idx) pairs).
type Instruction struct {
	Op       Opcode
	Operands []uint32
}

// Chunk is the compiled form of one function body: an instruction stream,
// an indexed constant pool, and a parallel source-line table (§3.2).
// Constants are appended once and never rewritten; their index is the
// value LOAD_CONST (and the *_GLOBAL family) addresses.
type Chunk struct {
	Code      []Instruction
	Constants []value.Value
	Lines     []int
}

// NewChunk returns an empty chunk.
func NewChunk() *Chunk {
	return &Chunk{}
}

// Emit appends an instruction at source line and returns its index. This is
// the single point where P2 (|bytecode| == |lines|) is maintained: Code and
// Lines always grow together.
func (c *Chunk) Emit(op Opcode, line int, operands ...uint32) int {
	c.Code = append(c.Code, Instruction{Op: op, Operands: operands})
	c.Lines = append(c.Lines, line)
	return len(c.Code) - 1
}

// AddConstant appends v to the constant pool and returns its index.
func (c *Chunk) AddConstant(v value.Value) uint32 {
	c.Constants = append(c.Constants, v)
	return uint32(len(c.Constants) - 1)
}

// PatchJump back-patches the distance operand of the jump instruction at
// index so that it lands just past the chunk's current end (the "Lend:"
// label in §4.2's statement emission sketches). Per §4.1, distances are
// always positive; BRANCH/BRANCH_FALSE carry a forward distance added to
// pc, LOOP carries a backward one subtracted from pc.
func (c *Chunk) PatchJump(index int) {
	distance := uint32(len(c.Code) - index - 1)
	c.Code[index].Operands[0] = distance
}

// EmitLoop emits a LOOP instruction whose distance takes pc back to start.
func (c *Chunk) EmitLoop(start int, line int) int {
	distance := uint32(len(c.Code) - start + 1)
	return c.Emit(LOOP, line, distance)
}

// Len returns the number of instructions currently in the chunk.
func (c *Chunk) Len() int { return len(c.Code) }

// LastOp returns the opcode of the last emitted instruction, used by the
// compiler to decide whether an implicit "return nil;" must be appended
// when a function body falls off the end (§4.2).
func (c *Chunk) LastOp() (Opcode, bool) {
	if len(c.Code) == 0 {
		return 0, false
	}
	return c.Code[len(c.Code)-1].Op, true
}

// ValidJumpTargets reports whether every jump instruction's back-patched
// destination lands within [0, len(Code)], the P5 invariant. A target equal
// to len(Code) is accepted: it is the slot the next emitted instruction
// takes, where a just-patched forward jump lands.
func (c *Chunk) ValidJumpTargets() error {
	for pc, ins := range c.Code {
		if !ins.Op.IsJump() {
			continue
		}
		d := int(ins.Operands[0])
		var target int
		if ins.Op == LOOP {
			target = pc + 1 - d
		} else {
			target = pc + 1 + d
		}
		if target < 0 || target > len(c.Code) {
			return fmt.Errorf("invalid jump target at pc %d: %d out of range [0,%d]", pc, target, len(c.Code))
		}
	}
	return nil
}
