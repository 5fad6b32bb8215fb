// Package scope implements the lexical activation stack described in
// §3/§4.4: a Scope carries named bindings plus the frozen resume pointers
// that let function return, conditional exit, and loop exit unwind
// deterministically, and a Context is the stack of Scopes a Machine walks
// during lookup/define/assign.
package scope

import "github.com/cosmopole-org/elpian-vm/internal/value"

// Scope is one entry on the activation stack. Tag is purely diagnostic
// ("funcBody", "ifBody", "loopBody", "switchBody", ...); FrozenPointer and
// FrozenEnd record where the parent scope resumes and at what cursor
// position this scope terminates.
type Scope struct {
	Tag           string
	FrozenPointer int
	FrozenEnd     int
	memory        map[string]value.Value
}

// NewScope creates a Scope with the given diagnostic tag and end boundary.
func NewScope(tag string, frozenEnd int) *Scope {
	return &Scope{Tag: tag, FrozenEnd: frozenEnd, memory: make(map[string]value.Value)}
}

// Lookup returns the binding for name in this scope only (no outer walk).
func (s *Scope) Lookup(name string) (value.Value, bool) {
	v, ok := s.memory[name]
	return v, ok
}

// Define binds name unconditionally in this scope, shadowing any outer
// binding with the same name.
func (s *Scope) Define(name string, v value.Value) {
	s.memory[name] = v
}

// Context is a stack of Scopes; index 0 is the global scope and is never
// popped (§3).
type Context struct {
	scopes []*Scope
}

// NewContext returns a Context with a single global scope. frozenEnd for
// the global scope is the length of the program byte stream: the cursor
// never legitimately reaches it before the machine terminates.
func NewContext(programLen int) *Context {
	global := NewScope("global", programLen)
	return &Context{scopes: []*Scope{global}}
}

// Global returns the bottom (index 0) scope.
func (c *Context) Global() *Scope { return c.scopes[0] }

// Top returns the innermost scope.
func (c *Context) Top() *Scope { return c.scopes[len(c.scopes)-1] }

// Len returns the number of scopes currently on the stack.
func (c *Context) Len() int { return len(c.scopes) }

// At returns the scope at the given stack depth (0 = global).
func (c *Context) At(depth int) *Scope { return c.scopes[depth] }

// Push adds a new innermost scope.
func (c *Context) Push(s *Scope) { c.scopes = append(c.scopes, s) }

// Pop removes and returns the innermost scope. It is a no-op returning nil
// when only the global scope remains, since the global scope is never
// popped.
func (c *Context) Pop() *Scope {
	if len(c.scopes) <= 1 {
		return nil
	}
	top := c.scopes[len(c.scopes)-1]
	c.scopes = c.scopes[:len(c.scopes)-1]
	return top
}

// Lookup walks scopes innermost to outermost; the first bound name wins. It
// returns the null value (not an error) if the name is unbound anywhere,
// per §3's "returns the null value if unbound" rule.
func (c *Context) Lookup(name string) value.Value {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if v, ok := c.scopes[i].Lookup(name); ok {
			return v
		}
	}
	return value.Null()
}

// Define binds name in the current (innermost) scope unconditionally,
// per §4.4.
func (c *Context) Define(name string, v value.Value) {
	c.Top().Define(name, v)
}

// Assign walks scopes innermost to outermost and updates the first scope
// that already binds name; if none do, it defines the name in the
// innermost scope (§4.4).
func (c *Context) Assign(name string, v value.Value) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if _, ok := c.scopes[i].Lookup(name); ok {
			c.scopes[i].Define(name, v)
			return
		}
	}
	c.Define(name, v)
}
