package preprocessor

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fwessels/shaderpp/internal/token"
)

func TestMacroTable(t *testing.T) {
	tab := NewMacroTable()
	if tab.Depth() != 1 {
		t.Fatalf("new table depth = %d", tab.Depth())
	}

	if prev := tab.Define(&Macro{Name: "A"}); prev != nil {
		t.Errorf("first definition replaced %v", prev)
	}
	if prev := tab.Define(&Macro{Name: "A", FunctionLike: true}); prev == nil || prev.FunctionLike {
		t.Errorf("redefinition returned %v", prev)
	}

	depth := tab.Push()
	if depth != 1 || tab.Depth() != 2 {
		t.Fatalf("Push = %d, depth %d", depth, tab.Depth())
	}
	body := token.Token{Kind: token.Int, Value: "1"}
	tab.Bind(&Macro{Name: "A", Body: &body, param: true})
	if m := tab.Lookup("A"); m == nil || !m.param {
		t.Errorf("binding does not shadow the global definition: %v", m)
	}

	// Define always targets the global scope
	tab.Define(&Macro{Name: "B"})
	tab.PopTo(depth)
	if !tab.IsDefined("B") {
		t.Error("global definition lost with the inner scope")
	}
	if m := tab.Lookup("A"); m == nil || !m.FunctionLike {
		t.Errorf("global definition not restored: %v", m)
	}

	tab.PopTo(0)
	if tab.Depth() != 1 {
		t.Errorf("global scope dropped, depth %d", tab.Depth())
	}

	if !tab.Undefine("A") || tab.IsDefined("A") {
		t.Error("Undefine failed")
	}
	if tab.Undefine("A") {
		t.Error("Undefine of an undefined name succeeded")
	}
}

func TestMacroTableUndefineInnermost(t *testing.T) {
	tab := NewMacroTable()
	tab.Define(&Macro{Name: "x"})
	tab.Push()
	tab.Bind(&Macro{Name: "x", param: true})

	tab.Undefine("x")
	m := tab.Lookup("x")
	if m == nil || m.param {
		t.Errorf("Undefine removed the wrong binding, lookup = %v", m)
	}
}

func TestCondStack(t *testing.T) {
	var c condStack
	if _, ok := c.Top(); ok {
		t.Error("empty stack has a top")
	}
	if c.Pop() {
		t.Error("Pop of an empty stack succeeded")
	}

	ifTok := token.Token{Kind: token.Keyword, Value: "if"}
	ifdefTok := token.Token{Kind: token.Ident, Value: "ifdef"}
	c.Push(ForbidElse, ifTok)
	c.Push(AllowElse, ifdefTok)
	if diff := cmp.Diff([]CondState{ForbidElse, AllowElse}, c.States()); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(ifdefTok, c.Unclosed()); diff != "" {
		t.Errorf("unclosed mismatch (-want +got):\n%s", diff)
	}

	// #else switches the innermost frame in place
	top, _ := c.Top()
	top.state = ForbidElse
	if diff := cmp.Diff([]CondState{ForbidElse, ForbidElse}, c.States()); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}

	c.Pop()
	c.Pop()
	if c.Depth() != 0 {
		t.Errorf("depth = %d", c.Depth())
	}
}
