// Package maincmd implements the single-command CLI surface described in
// §6: one positional source-file argument, an optional disassembly dump,
// and the three-way (plus generic-fatal) exit code contract.
package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/andrewfurey21/sting/internal/sourcefile"
	"github.com/andrewfurey21/sting/lang/bytecode"
	"github.com/andrewfurey21/sting/lang/compiler"
	"github.com/andrewfurey21/sting/lang/interp"
	"github.com/andrewfurey21/sting/lang/value"
)

const binName = "sting"

const defaultSourceFile = "main.sting"

var shortUsage = fmt.Sprintf(`
usage: %s [-dump] [<path>]
Run '%[1]s --help' for details.
`, binName)

var longUsage = fmt.Sprintf(`usage: %s [-dump] [<path>]
       %[1]s -h|--help

Compiles and runs a sting source file. <path> defaults to %s.

Valid flag options are:
       -h --help     Show this help and exit.
       -dump         Print the compiled chunk's disassembly to stdout
                     instead of running it.

Exit codes: 0 ok, 1 compile error, 2 runtime error, -1 other failure.
`, binName, defaultSourceFile)

// Cmd is the single mainer.Cmd implementation sting exposes: it reads its
// positional argument and flags directly, rather than dispatching to a
// sub-command table, since the language surface (§6) never needed more
// than one verb.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help bool `flag:"h,help"`
	Dump bool `flag:"dump"`

	path string
}

func (c *Cmd) SetArgs(args []string) {
	c.path = defaultSourceFile
	if len(args) > 0 {
		c.path = args[0]
	}
}

func (c *Cmd) SetFlags(map[string]bool) {}

func (c *Cmd) Validate() error {
	return nil
}

// Main implements mainer.Cmd. It never lets a guest-language error escape
// as a Go panic: compile and runtime failures are both reported on stderr
// and mapped to the exit codes §6 and §7 specify.
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	if c.Help {
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	}

	_ = mainer.CancelOnSignal(context.Background(), os.Interrupt) // reserved: the VM has no suspension points (§5)

	src, err := sourcefile.Read(c.path)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return mainer.ExitCode(-1)
	}

	if c.Dump {
		return c.dump(stdio, src)
	}

	result := interp.Interpret(src, stdio.Stdout)
	switch result.Status {
	case interp.OK:
		return mainer.Success
	case interp.CompileError:
		fmt.Fprintln(stdio.Stderr, result.Err)
		return mainer.ExitCode(1)
	case interp.RuntimeError:
		fmt.Fprintln(stdio.Stderr, result.Err)
		return mainer.ExitCode(2)
	default:
		fmt.Fprintln(stdio.Stderr, result.Err)
		return mainer.ExitCode(-1)
	}
}

// dump compiles src and prints its disassembly instead of running it,
// supplementing §6 with an introspection mode in the spirit of the
// parse/resolve/tokenize sub-commands of the CLI this one is modeled on.
func (c *Cmd) dump(stdio mainer.Stdio, src []byte) mainer.ExitCode {
	pool := value.NewPool()
	fn, err := compiler.Compile(src, pool)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return mainer.ExitCode(1)
	}
	fmt.Fprint(stdio.Stdout, bytecode.Disassemble("script", fn.Chunk))
	return mainer.Success
}
