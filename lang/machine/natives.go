package machine

import (
	"time"

	"github.com/andrewfurey21/sting/lang/object"
	"github.com/andrewfurey21/sting/lang/value"
)

// Natives is a registry of builtins bound as globals before a program's
// first instruction runs. It generalizes the single `clock()` builtin §6
// names into something a host embedding the machine can extend.
type Natives map[string]*object.Native

var processStart = time.Now()

// DefaultNatives returns the builtins every sting program has available.
func DefaultNatives() Natives {
	return Natives{
		"clock": {
			Name:  "clock",
			Arity: 0,
			Fn: func(args []value.Value) (value.Value, error) {
				return value.Number(float32(time.Since(processStart).Seconds() * 1000)), nil
			},
		},
	}
}
