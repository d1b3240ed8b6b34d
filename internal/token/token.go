// Package token defines the lexical units exchanged between the lexer, the
// preprocessor and the parser.
package token

import "fmt"

// Kind classifies a token.
type Kind uint8

const (
	EOF Kind = iota
	Error

	Ident    // identifier that is not a known type name
	TypeName // identifier registered in the shared type name set
	Keyword
	Int
	Float
	Bool
	String
	Punct

	Hash      // '#' starting a directive
	MacroText // opaque rest-of-line text of a directive or a macro body
)

var kindNames = [...]string{
	EOF:       "EOF",
	Error:     "error",
	Ident:     "identifier",
	TypeName:  "type name",
	Keyword:   "keyword",
	Int:       "int",
	Float:     "float",
	Bool:      "bool",
	String:    "string",
	Punct:     "punctuation",
	Hash:      "#",
	MacroText: "macro text",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Position is a location in a source text.
type Position struct {
	Offset int // Byte offset (0-based)
	Line   int // Line number (1-based)
	Column int // Column number (1-based)
}

// Before reports whether p comes strictly before q.
func (p Position) Before(q Position) bool {
	return p.Offset < q.Offset
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Range is a half-open span [Start, End) in a source text.
type Range struct {
	Start Position
	End   Position
}

// Empty reports whether r covers no bytes.
func (r Range) Empty() bool {
	return r.End.Offset <= r.Start.Offset
}

// Hull returns the smallest range covering both a and b.
func Hull(a, b Range) Range {
	h := a
	if b.Start.Before(h.Start) {
		h.Start = b.Start
	}
	if h.End.Before(b.End) {
		h.End = b.End
	}
	return h
}

func (r Range) String() string {
	return fmt.Sprintf("%s-%s", r.Start, r.End)
}

// SyntheticIndex marks tokens that were not produced by a lexer.
const SyntheticIndex = -1

// Token is an immutable lexical unit.
type Token struct {
	Kind  Kind
	Name  string // grammar terminal name
	Value string
	URI   string
	Range Range
	Index int // position in the producing lexer's stream, SyntheticIndex if synthesized
}

// IsEOF reports whether t ends a stream.
func (t Token) IsEOF() bool {
	return t.Kind == EOF
}

// IsIdentifier reports whether t is identifier-class, i.e. may name a macro.
func (t Token) IsIdentifier() bool {
	return t.Kind == Ident || t.Kind == TypeName
}

// Synthesize builds a token that does not come from a lexer. Its range is the
// hull of the source tokens.
func Synthesize(kind Kind, value string, from ...Token) Token {
	t := Token{
		Kind:  kind,
		Name:  kind.String(),
		Value: value,
		Index: SyntheticIndex,
	}
	for i, f := range from {
		if i == 0 {
			t.Range = f.Range
			t.URI = f.URI
			continue
		}
		t.Range = Hull(t.Range, f.Range)
	}
	return t
}

func (t Token) String() string {
	if t.Kind == EOF {
		return "EOF"
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Value)
}
