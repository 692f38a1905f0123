package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders chunk as a human-readable instruction listing, one
// line per instruction: "pc line OPCODE operand operand", where the line
// column shows "|" when the source line repeats the previous one. This plays
// the same role the teacher's pseudo-assembly dump does for its own
// machine (lang/compiler/asm.go in the reference repo): a stable textual
// form tests assert against instead of comparing raw instruction structs
// field by field, and a debugging aid the CLI's -dump flag exposes.
func Disassemble(name string, c *Chunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	for pc, ins := range c.Code {
		disassembleInstruction(&b, c, pc, ins)
	}
	return b.String()
}

func disassembleInstruction(b *strings.Builder, c *Chunk, pc int, ins Instruction) {
	fmt.Fprintf(b, "%04d ", pc)
	if pc > 0 && c.Lines[pc] == c.Lines[pc-1] {
		fmt.Fprint(b, "   | ")
	} else {
		fmt.Fprintf(b, "%4d ", c.Lines[pc])
	}

	fmt.Fprint(b, ins.Op.String())
	switch {
	case ins.Op == LOAD_CONST || ins.Op == DEFINE_GLOBAL || ins.Op == GET_GLOBAL || ins.Op == SET_GLOBAL:
		idx := ins.Operands[0]
		fmt.Fprintf(b, " %d", idx)
		if int(idx) < len(c.Constants) {
			fmt.Fprintf(b, " (%s)", c.Constants[idx].Format())
		}
	case ins.Op == MAKE_CLOSURE:
		k := ins.Operands[0]
		fmt.Fprintf(b, " %d", k)
		for i := uint32(0); i < k; i++ {
			isLocal := ins.Operands[1+2*i]
			idx := ins.Operands[2+2*i]
			kind := "upvalue"
			if isLocal != 0 {
				kind = "local"
			}
			fmt.Fprintf(b, " (%s %d)", kind, idx)
		}
	default:
		for _, op := range ins.Operands {
			fmt.Fprintf(b, " %d", op)
		}
	}
	b.WriteByte('\n')
}
