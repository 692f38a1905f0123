package machine

import (
	"fmt"

	"github.com/dolthub/swiss"

	"github.com/andrewfurey21/sting/lang/value"
)

// Globals is the VM's name -> Value table (§3.7), backed by an
// open-addressing hash map keyed by the global's string content (§4.7)
// rather than a hand-rolled FNV-1a probe sequence, since the source treats
// the table itself as an external collaborator.
type Globals struct {
	m *swiss.Map[string, value.Value]
}

// NewGlobals returns an empty globals table.
func NewGlobals() *Globals {
	return &Globals{m: swiss.NewMap[string, value.Value](64)}
}

// Define binds name for the first time. It refuses to overwrite an
// existing key (§4.7): redeclaring a global, including a top-level
// function, is a fatal runtime error.
func (g *Globals) Define(name string, v value.Value) error {
	if _, ok := g.m.Get(name); ok {
		return fmt.Errorf("global %q already defined", name)
	}
	g.m.Put(name, v)
	return nil
}

// Get looks up name, reporting whether it is defined.
func (g *Globals) Get(name string) (value.Value, bool) {
	return g.m.Get(name)
}

// Set assigns through an existing binding; it is an error to assign a name
// that was never defined.
func (g *Globals) Set(name string, v value.Value) error {
	if _, ok := g.m.Get(name); !ok {
		return fmt.Errorf("undefined variable %q", name)
	}
	g.m.Put(name, v)
	return nil
}
