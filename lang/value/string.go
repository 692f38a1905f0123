package value

import (
	"github.com/dolthub/swiss"
)

// StringObject is the heap object backing the String variant: an immutable
// byte sequence. Equality is content-equality (§3.1); identity is collapsed
// by interning (§3.8) so two Values built from equal content share one
// StringObject, which makes Value.Equal's pointer-first fast path correct
// and GET_GLOBAL's map key (by content, see machine.Globals) cheap to hash
// once.
type StringObject struct {
	data string
}

func (s *StringObject) String() string { return s.data }
func (s *StringObject) Len() int       { return len(s.data) }

func (s *StringObject) Equal(o *StringObject) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil {
		return false
	}
	return s.data == o.data
}

// internPool deduplicates string objects by content so that the compiler's
// constant pool and the VM's global-name lookups both observe the one
// canonical StringObject for a given byte sequence. Backed by an
// open-addressing hash map (dolthub/swiss, via the project's own fork) per
// §4.7/§9's requirement for content-keyed, open-addressed lookup: a real
// SwissTable rather than a hand-rolled FNV-1a probe sequence, since the
// spec treats the container itself as an external collaborator.
type internPool struct {
	m *swiss.Map[string, *StringObject]
}

func newInternPool() *internPool {
	return &internPool{m: swiss.NewMap[string, *StringObject](64)}
}

// Intern returns the canonical StringObject for s, copying s into a new
// heap-owned object the first time its content is seen. The returned
// object is detached from whatever buffer s referenced (the source
// buffer, typically), satisfying §3.8's "copied into heap-owned string
// objects at compile time".
func (p *internPool) Intern(s string) *StringObject {
	if existing, ok := p.m.Get(s); ok {
		return existing
	}
	// copy so the StringObject never aliases a caller-owned buffer (e.g. the
	// source bytes, which the caller may discard after compilation).
	cp := string(append([]byte(nil), s...))
	obj := &StringObject{data: cp}
	p.m.Put(cp, obj)
	return obj
}

// Pool is an intern pool for one compile-and-run. The source's own design is a
// process-lived table that is never torn down mid-run (§3.8, §9); sting
// keeps one pool per VM/compile pipeline invocation instead of a single
// global, so that repeated Interpret calls in the same process (as the
// test suite does) don't leak across unrelated programs, while still never
// freeing individual strings within one run.
type Pool struct {
	interned *internPool
}

// NewPool creates a fresh intern pool.
func NewPool() *Pool {
	return &Pool{interned: newInternPool()}
}

// Intern returns the canonical StringObject for s.
func (p *Pool) Intern(s string) *StringObject {
	return p.interned.Intern(s)
}
