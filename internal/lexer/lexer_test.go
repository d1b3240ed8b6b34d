package lexer

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fwessels/shaderpp/internal/token"
)

// ----------------------------------------------------------------------------
// Test Helpers
// ----------------------------------------------------------------------------

func drain(input string) []token.Token {
	l := New(DefaultTypeNames())
	l.Setup(input, "test.glsl", token.Position{})
	var toks []token.Token
	for {
		tok := l.Next()
		if tok.IsEOF() {
			return toks
		}
		toks = append(toks, tok)
	}
}

func values(toks []token.Token) string {
	var vals []string
	for _, t := range toks {
		vals = append(vals, t.Value)
	}
	return strings.Join(vals, ".")
}

func kinds(toks []token.Token) []token.Kind {
	var ks []token.Kind
	for _, t := range toks {
		ks = append(ks, t.Kind)
	}
	return ks
}

// ----------------------------------------------------------------------------
// Tests
// ----------------------------------------------------------------------------

func TestNext(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		output string
	}{
		{"empty", "", ""},
		{"simple", "1 (a)", "1.(.a.)"},
		{"operators", "a<=b&&c!=d>>=2", "a.<=.b.&&.c.!=.d.>>=.2"},
		{"comments", "a // line\n/* block\n */ b", "a.b"},
		{"directive", "#define A(x) x+1\nA(2)", "#.define.A.(.x.).x.+.1.A.(.2.)"},
		{"numbers", "0x1F 1.5 2e3 3u 4.0f .5", "0x1F.1.5.2e3.3u.4.0f..5"},
		{"string", `#include "common.glsl"`, `#.include."common.glsl"`},
		{"continuation", "a \\\n b", "a.b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.output, values(drain(tt.input))); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestKinds(t *testing.T) {
	got := kinds(drain(`vec3 v = if true 1 2.0 "s" # ; $`))
	want := []token.Kind{
		token.TypeName, token.Ident, token.Punct, token.Keyword, token.Bool,
		token.Int, token.Float, token.String, token.Hash, token.Punct, token.Error,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSharedTypeNames(t *testing.T) {
	types := NewTypeNames()
	a, b := New(types), New(types)
	a.Setup("Light", "a.glsl", token.Position{})
	b.Setup("Light", "b.glsl", token.Position{})

	if got := a.Next().Kind; got != token.Ident {
		t.Fatalf("before Add: got %v, want identifier", got)
	}
	types.Add("Light")
	if got := b.Next().Kind; got != token.TypeName {
		t.Fatalf("after Add: got %v, want type name", got)
	}
}

func TestPositions(t *testing.T) {
	toks := drain("a\n  bb\n")
	want := []token.Range{
		{Start: token.Position{Offset: 0, Line: 1, Column: 1}, End: token.Position{Offset: 1, Line: 1, Column: 2}},
		{Start: token.Position{Offset: 4, Line: 2, Column: 3}, End: token.Position{Offset: 6, Line: 2, Column: 5}},
	}
	var got []token.Range
	for _, tok := range toks {
		got = append(got, tok.Range)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if toks[0].Index != 0 || toks[1].Index != 1 {
		t.Errorf("indexes: got %d, %d", toks[0].Index, toks[1].Index)
	}
}

func TestSetupOffset(t *testing.T) {
	l := New(nil)
	l.Setup("x +\ny", "m.glsl", token.Position{Offset: 20, Line: 3, Column: 9})

	want := []token.Position{
		{Offset: 20, Line: 3, Column: 9},
		{Offset: 22, Line: 3, Column: 11},
		{Offset: 24, Line: 4, Column: 1},
	}
	for i, w := range want {
		tok := l.Next()
		if diff := cmp.Diff(w, tok.Range.Start); diff != "" {
			t.Errorf("token %d mismatch (-want +got):\n%s", i, diff)
		}
		if tok.URI != "m.glsl" {
			t.Errorf("token %d: uri %q", i, tok.URI)
		}
	}
}

func TestNextLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  string
		after string
	}{
		{"rest of line", "#define A 1 + 2  \nA", "A 1 + 2", "A"},
		{"empty", "#endif\nx", "", "x"},
		{"continuation", "#define A 1 \\\n  2\nB", "A 1 \\\n  2", "B"},
		{"eof", "#pragma once", "once", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(nil)
			l.Setup(tt.input, "t.glsl", token.Position{})
			l.Next() // #
			l.Next() // keyword
			line := l.NextLine()
			if line.Kind != token.MacroText {
				t.Fatalf("kind: got %v", line.Kind)
			}
			if diff := cmp.Diff(tt.line, line.Value); diff != "" {
				t.Errorf("line mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.after, l.Next().Value); diff != "" {
				t.Errorf("after mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIsIdentifier(t *testing.T) {
	for s, want := range map[string]bool{
		"FOO": true, "_x1": true, "1x": false, "": false, "a-b": false,
	} {
		if got := IsIdentifier(s); got != want {
			t.Errorf("%q: got %v, want %v", s, got, want)
		}
	}
}
