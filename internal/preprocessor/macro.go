package preprocessor

import "github.com/fwessels/shaderpp/internal/token"

// Macro is a named replacement. Function parameters are bound as Macros too,
// for the duration of one expansion.
type Macro struct {
	Name         string
	FunctionLike bool
	Params       []string
	Body         *token.Token // nil when the replacement text is empty

	param bool
}

// MacroTable is a stack of scopes. Lookups walk from the innermost scope to
// the outermost one, so parameter bindings shadow global definitions.
type MacroTable struct {
	scopes []map[string]*Macro
}

// NewMacroTable returns a table holding only the global scope.
func NewMacroTable() *MacroTable {
	return &MacroTable{scopes: []map[string]*Macro{{}}}
}

// Depth returns the number of scopes, the global one included.
func (t *MacroTable) Depth() int {
	return len(t.scopes)
}

// Push opens a new innermost scope and returns the depth before the push,
// suitable for PopTo.
func (t *MacroTable) Push() int {
	depth := len(t.scopes)
	t.scopes = append(t.scopes, map[string]*Macro{})
	return depth
}

// PopTo drops every scope above depth. The global scope is never dropped.
func (t *MacroTable) PopTo(depth int) {
	if depth < 1 {
		depth = 1
	}
	for i := depth; i < len(t.scopes); i++ {
		t.scopes[i] = nil
	}
	if depth < len(t.scopes) {
		t.scopes = t.scopes[:depth]
	}
}

// Define registers m in the global scope and returns the definition it
// replaced, if any.
func (t *MacroTable) Define(m *Macro) *Macro {
	prev := t.scopes[0][m.Name]
	t.scopes[0][m.Name] = m
	return prev
}

// Bind registers m in the innermost scope.
func (t *MacroTable) Bind(m *Macro) {
	t.scopes[len(t.scopes)-1][m.Name] = m
}

// Undefine removes the innermost binding of name.
func (t *MacroTable) Undefine(name string) bool {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if _, ok := t.scopes[i][name]; ok {
			delete(t.scopes[i], name)
			return true
		}
	}
	return false
}

// Lookup returns the innermost macro called name, or nil.
func (t *MacroTable) Lookup(name string) *Macro {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if m, ok := t.scopes[i][name]; ok {
			return m
		}
	}
	return nil
}

// IsDefined reports whether name is bound in any scope.
func (t *MacroTable) IsDefined(name string) bool {
	return t.Lookup(name) != nil
}
