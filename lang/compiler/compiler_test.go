package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andrewfurey21/sting/lang/bytecode"
	"github.com/andrewfurey21/sting/lang/object"
	"github.com/andrewfurey21/sting/lang/value"
)

func opsOf(fn *object.Function) []bytecode.Opcode {
	out := make([]bytecode.Opcode, len(fn.Chunk.Code))
	for i, ins := range fn.Chunk.Code {
		out[i] = ins.Op
	}
	return out
}

func TestArithmeticPrecedence(t *testing.T) {
	fn, err := Compile([]byte("print 1 + 2 * 3;"), value.NewPool())
	require.NoError(t, err)

	require.Equal(t, []bytecode.Opcode{
		bytecode.LOAD_CONST, bytecode.LOAD_CONST, bytecode.LOAD_CONST,
		bytecode.MUL, bytecode.ADD, bytecode.PRINT, bytecode.NIL, bytecode.RETURN,
	}, opsOf(fn))
}

func TestGroupingOverridesPrecedence(t *testing.T) {
	fn, err := Compile([]byte("print (1 + 2) * 3;"), value.NewPool())
	require.NoError(t, err)
	require.Equal(t, []bytecode.Opcode{
		bytecode.LOAD_CONST, bytecode.LOAD_CONST, bytecode.ADD, bytecode.LOAD_CONST,
		bytecode.MUL, bytecode.PRINT, bytecode.NIL, bytecode.RETURN,
	}, opsOf(fn))
}

func TestGlobalVarDefineGetSet(t *testing.T) {
	fn, err := Compile([]byte("var a = 2; a = a + 3; print a;"), value.NewPool())
	require.NoError(t, err)
	ops := opsOf(fn)
	require.Contains(t, ops, bytecode.DEFINE_GLOBAL)
	require.Contains(t, ops, bytecode.SET_GLOBAL)
	require.Contains(t, ops, bytecode.GET_GLOBAL)
}

func TestLocalVarUsesSlotOpcodes(t *testing.T) {
	fn, err := Compile([]byte("{ var a = 1; a = a + 1; print a; }"), value.NewPool())
	require.NoError(t, err)
	ops := opsOf(fn)
	require.Contains(t, ops, bytecode.GET_LOCAL)
	require.Contains(t, ops, bytecode.SET_LOCAL)
	require.NotContains(t, ops, bytecode.DEFINE_GLOBAL)
}

func TestSelfReferentialVarIsCompileError(t *testing.T) {
	_, err := Compile([]byte("{ var a = a; }"), value.NewPool())
	require.Error(t, err)
}

func TestDuplicateLocalInSameScopeIsError(t *testing.T) {
	_, err := Compile([]byte("{ var a = 1; var a = 2; }"), value.NewPool())
	require.Error(t, err)
}

func TestShadowingAcrossDepthsIsAllowed(t *testing.T) {
	_, err := Compile([]byte("{ var a = 1; { var a = 2; } }"), value.NewPool())
	require.NoError(t, err)
}

func TestReturnOutsideFunctionIsError(t *testing.T) {
	_, err := Compile([]byte("return 1;"), value.NewPool())
	require.Error(t, err)
}

func TestOnlyFirstCompileErrorIsReported(t *testing.T) {
	_, err := Compile([]byte("var; var;"), value.NewPool())
	require.Error(t, err)
	cerr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, 1, cerr.Line)
}

// functionConstantBefore returns the Function loaded by the LOAD_CONST that
// immediately precedes the i'th MAKE_CLOSURE in chunk's code.
func functionConstantBefore(chunk *bytecode.Chunk, makeClosureAt int) *object.Function {
	prev := chunk.Code[makeClosureAt-1]
	return object.AsFunction(chunk.Constants[prev.Operands[0]])
}

func TestFunctionClosesOverEnclosingLocal(t *testing.T) {
	src := `fun make() { var c = 0; fun inc() { c = c + 1; return c; } return inc; }`
	fn, err := Compile([]byte(src), value.NewPool())
	require.NoError(t, err)
	require.Contains(t, opsOf(fn), bytecode.MAKE_CLOSURE)

	var makeFn *object.Function
	for i, ins := range fn.Chunk.Code {
		if ins.Op == bytecode.MAKE_CLOSURE {
			makeFn = functionConstantBefore(fn.Chunk, i)
		}
	}
	require.NotNil(t, makeFn)

	var incFn *object.Function
	for i, ins := range makeFn.Chunk.Code {
		if ins.Op == bytecode.MAKE_CLOSURE {
			incFn = functionConstantBefore(makeFn.Chunk, i)
		}
	}
	require.NotNil(t, incFn)
	require.Equal(t, 1, incFn.UpvalueCount)
	require.Contains(t, opsOf(incFn), bytecode.GET_UPVALUE)
	require.Contains(t, opsOf(incFn), bytecode.SET_UPVALUE)
}

func TestArityRecordedOnFunction(t *testing.T) {
	fn, err := Compile([]byte("fun add(a,b){ return a+b; }"), value.NewPool())
	require.NoError(t, err)
	var addFn *object.Function
	for i, ins := range fn.Chunk.Code {
		if ins.Op == bytecode.MAKE_CLOSURE {
			addFn = functionConstantBefore(fn.Chunk, i)
		}
	}
	require.NotNil(t, addFn)
	require.Equal(t, 2, addFn.Arity)
}

func TestUndefinedGlobalCompilesButFailsAtRuntime(t *testing.T) {
	// §4.7: GET_GLOBAL of an undefined name is a *runtime*, not compile-time,
	// error -- compilation must still succeed here.
	_, err := Compile([]byte("print nope;"), value.NewPool())
	require.NoError(t, err)
}

func TestCallEmitsCallOpcodeWithArgCount(t *testing.T) {
	fn, err := Compile([]byte("fun add(a,b){return a+b;} print add(40,2);"), value.NewPool())
	require.NoError(t, err)
	for _, ins := range fn.Chunk.Code {
		if ins.Op == bytecode.CALL {
			require.Equal(t, uint32(2), ins.Operands[0])
			return
		}
	}
	t.Fatal("expected a CALL instruction")
}
