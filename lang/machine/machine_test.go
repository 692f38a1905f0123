package machine_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andrewfurey21/sting/lang/compiler"
	"github.com/andrewfurey21/sting/lang/machine"
	"github.com/andrewfurey21/sting/lang/value"
)

// run compiles and executes src, returning everything written by PRINT.
func run(t *testing.T, src string) (string, error) {
	t.Helper()
	pool := value.NewPool()
	fn, err := compiler.Compile([]byte(src), pool)
	require.NoError(t, err)

	var out bytes.Buffer
	m := machine.New(machine.DefaultNatives(), pool)
	m.Stdout = &out
	err = m.Run(fn)
	return out.String(), err
}

func TestArithmeticPrecedence(t *testing.T) {
	out, err := run(t, "print 1 + 2 * 3;")
	require.NoError(t, err)
	require.Equal(t, "7\n", out)
}

func TestGroupingOverridesPrecedence(t *testing.T) {
	out, err := run(t, "print (1 + 2) * 3;")
	require.NoError(t, err)
	require.Equal(t, "9\n", out)
}

func TestGlobalVarMutation(t *testing.T) {
	out, err := run(t, "var a = 2; a = a + 3; print a;")
	require.NoError(t, err)
	require.Equal(t, "5\n", out)
}

func TestStringConcat(t *testing.T) {
	out, err := run(t, `print "ab" + "cd";`)
	require.NoError(t, err)
	require.Equal(t, "abcd\n", out)
}

func TestFunctionCall(t *testing.T) {
	out, err := run(t, "fun add(a,b){return a+b;} print add(40,2);")
	require.NoError(t, err)
	require.Equal(t, "42\n", out)
}

func TestClosureCapturesAndMutatesAcrossCalls(t *testing.T) {
	src := `fun make(){ var c = 0; fun inc(){ c = c + 1; return c; } return inc; }
	var f = make(); print f(); print f(); print f();`
	out, err := run(t, src)
	require.NoError(t, err)
	require.Equal(t, "1\n2\n3\n", out)
}

func TestWhileLoop(t *testing.T) {
	out, err := run(t, "var i = 0; while (i < 3) { print i; i = i + 1; }")
	require.NoError(t, err)
	require.Equal(t, "0\n1\n2\n", out)
}

func TestBangTrueEqualsFalse(t *testing.T) {
	out, err := run(t, "print !true == false;")
	require.NoError(t, err)
	require.Equal(t, "true\n", out)
}

func TestArityMismatchIsRuntimeError(t *testing.T) {
	_, err := run(t, "fun f(x){} f(1,2);")
	require.Error(t, err)
	var rerr *machine.RuntimeError
	require.ErrorAs(t, err, &rerr)
}

func TestUndefinedGlobalIsRuntimeError(t *testing.T) {
	_, err := run(t, "print nope;")
	require.Error(t, err)
}

func TestCallingANonCallableIsRuntimeError(t *testing.T) {
	_, err := run(t, "var a = 1; a();")
	require.Error(t, err)
}

func TestRedefiningAGlobalIsRuntimeError(t *testing.T) {
	_, err := run(t, "var a = 1; var a = 2;")
	require.Error(t, err)
}

func TestForLoopDesugaring(t *testing.T) {
	out, err := run(t, "for (var i = 0; i < 3; i = i + 1) { print i; }")
	require.NoError(t, err)
	require.Equal(t, "0\n1\n2\n", out)
}
