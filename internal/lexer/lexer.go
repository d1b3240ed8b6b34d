// Package lexer provides tokenization of shader source text for the
// preprocessor.
//
// A Lexer can be re-targeted with Setup at any offset of a source so that a
// macro body or the text of a directive is lexed with the positions it had in
// the file it came from. Identifiers that are registered in a shared TypeNames
// set are reported as type names, which keeps the identifier/type name split
// consistent across all lexers of a preprocessing session.
package lexer

import (
	"strings"

	"github.com/fwessels/shaderpp/internal/token"
)

// ----------------------------------------------------------------------------
// Type names
// ----------------------------------------------------------------------------

// TypeNames is the set of identifiers the lexer reports as token.TypeName.
type TypeNames struct {
	names map[string]struct{}
}

// NewTypeNames returns a set holding names.
func NewTypeNames(names ...string) *TypeNames {
	t := &TypeNames{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		t.Add(n)
	}
	return t
}

// DefaultTypeNames returns the builtin GLSL and HLSL scalar, vector, matrix
// and sampler types.
func DefaultTypeNames() *TypeNames {
	t := NewTypeNames("void", "bool", "int", "uint", "float", "double", "half",
		"sampler2D", "sampler3D", "samplerCube", "sampler2DShadow",
		"Texture2D", "Texture3D", "TextureCube", "SamplerState")
	for _, base := range []string{"vec", "ivec", "uvec", "bvec", "dvec", "mat",
		"float", "int", "uint", "bool", "half"} {
		for n := 2; n <= 4; n++ {
			t.Add(base + string(rune('0'+n)))
		}
	}
	for _, base := range []string{"mat", "float", "half"} {
		for r := 2; r <= 4; r++ {
			for c := 2; c <= 4; c++ {
				t.Add(base + string(rune('0'+r)) + "x" + string(rune('0'+c)))
			}
		}
	}
	return t
}

// Add registers name as a type name.
func (t *TypeNames) Add(name string) {
	t.names[name] = struct{}{}
}

// Has reports whether name is a registered type name.
func (t *TypeNames) Has(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.names[name]
	return ok
}

// ----------------------------------------------------------------------------
// Keywords
// ----------------------------------------------------------------------------

// Keywords are the statement and qualifier words of the shader grammar. They
// are never subject to macro expansion.
var Keywords = map[string]bool{
	"if": true, "else": true, "for": true, "while": true, "do": true,
	"switch": true, "case": true, "default": true, "break": true,
	"continue": true, "return": true, "discard": true, "struct": true,
	"in": true, "out": true, "inout": true, "uniform": true, "const": true,
	"layout": true, "precision": true, "highp": true, "mediump": true,
	"lowp": true, "varying": true, "attribute": true, "cbuffer": true,
}

// Punctuators ordered longest first so the scanner can take the first match.
var punctuators = []string{
	"<<=", ">>=",
	"&&", "||", "==", "!=", "<=", ">=", "<<", ">>", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "->", "::",
	"+", "-", "*", "/", "%", "&", "|", "^", "~", "!", "<", ">", "=",
	".", ",", ";", ":", "?", "(", ")", "[", "]", "{", "}", "@",
}

// ----------------------------------------------------------------------------
// Lexer
// ----------------------------------------------------------------------------

// Lexer tokenizes one source text.
type Lexer struct {
	types *TypeNames

	source string
	uri    string
	base   token.Position
	pos    int
	index  int

	// incremental line tracking for posAt
	scanned   int
	line      int
	lineStart int
}

// New creates a lexer sharing the given type name set. Call Setup before use.
func New(types *TypeNames) *Lexer {
	return &Lexer{types: types}
}

// Setup points the lexer at source. offset is the position of the first byte
// of source in the file identified by uri.
func (l *Lexer) Setup(source, uri string, offset token.Position) {
	if offset.Line == 0 {
		offset.Line = 1
	}
	if offset.Column == 0 {
		offset.Column = 1
	}
	*l = Lexer{
		types:  l.types,
		source: source,
		uri:    uri,
		base:   offset,
	}
}

// URI returns the identifier of the file being lexed.
func (l *Lexer) URI() string {
	return l.uri
}

// Next returns the next token, or an EOF token at the end of the source.
func (l *Lexer) Next() token.Token {
	l.skipWhitespaceAndComments()

	if l.pos >= len(l.source) {
		return l.make(token.EOF, "EOF", l.pos, l.pos)
	}

	start := l.pos
	ch := l.source[start]

	switch {
	case ch == '#':
		l.pos++
		return l.make(token.Hash, "#", start, l.pos)
	case isIdentStart(ch):
		return l.scanIdent()
	case isDigit(ch) || (ch == '.' && l.pos+1 < len(l.source) && isDigit(l.source[l.pos+1])):
		return l.scanNumber()
	case ch == '"':
		return l.scanString()
	}

	for _, p := range punctuators {
		if strings.HasPrefix(l.source[l.pos:], p) {
			l.pos += len(p)
			return l.make(token.Punct, p, start, l.pos)
		}
	}

	l.pos++
	return l.make(token.Error, "error", start, l.pos)
}

// NextLine returns the remainder of the current physical line as a single
// MacroText token. Lines ending in a backslash continue onto the next line;
// the backslash-newline pairs are kept in the value and lex as whitespace.
// Leading blanks are skipped and trailing blanks trimmed.
func (l *Lexer) NextLine() token.Token {
	for l.pos < len(l.source) && (l.source[l.pos] == ' ' || l.source[l.pos] == '\t') {
		l.pos++
	}
	start := l.pos
	for l.pos < len(l.source) {
		ch := l.source[l.pos]
		if ch == '\\' && l.continuesLine(l.pos) {
			l.pos = l.skipContinuation(l.pos)
			continue
		}
		if ch == '\n' {
			break
		}
		l.pos++
	}
	end := l.pos
	for end > start && isBlank(l.source[end-1]) {
		end--
	}
	return l.make(token.MacroText, "MACRO_TEXT", start, end)
}

func (l *Lexer) make(kind token.Kind, name string, start, end int) token.Token {
	tok := token.Token{
		Kind:  kind,
		Name:  name,
		Value: l.source[start:end],
		URI:   l.uri,
		Range: token.Range{Start: l.posAt(start), End: l.posAt(end)},
		Index: l.index,
	}
	l.index++
	return tok
}

// posAt converts a byte index of the source into a file position. Calls must
// use non-decreasing indexes.
func (l *Lexer) posAt(i int) token.Position {
	for ; l.scanned < i; l.scanned++ {
		if l.source[l.scanned] == '\n' {
			l.line++
			l.lineStart = l.scanned + 1
		}
	}
	p := token.Position{
		Offset: l.base.Offset + i,
		Line:   l.base.Line + l.line,
	}
	if l.line == 0 {
		p.Column = l.base.Column + i
	} else {
		p.Column = i - l.lineStart + 1
	}
	return p
}

// ----------------------------------------------------------------------------
// Scanning Helpers
// ----------------------------------------------------------------------------

func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.source) {
		ch := l.source[l.pos]

		if isBlank(ch) || ch == '\n' {
			l.pos++
			continue
		}

		if ch == '\\' && l.continuesLine(l.pos) {
			l.pos = l.skipContinuation(l.pos)
			continue
		}

		if ch == '/' && l.pos+1 < len(l.source) && l.source[l.pos+1] == '/' {
			l.pos += 2
			for l.pos < len(l.source) && l.source[l.pos] != '\n' {
				l.pos++
			}
			continue
		}

		if ch == '/' && l.pos+1 < len(l.source) && l.source[l.pos+1] == '*' {
			end := strings.Index(l.source[l.pos+2:], "*/")
			if end < 0 {
				l.pos = len(l.source)
			} else {
				l.pos += 2 + end + 2
			}
			continue
		}

		break
	}
}

// continuesLine reports whether the backslash at i is followed only by blanks
// up to the end of the line.
func (l *Lexer) continuesLine(i int) bool {
	for j := i + 1; j < len(l.source); j++ {
		switch l.source[j] {
		case ' ', '\t', '\r':
			continue
		case '\n':
			return true
		default:
			return false
		}
	}
	return false
}

func (l *Lexer) skipContinuation(i int) int {
	for i < len(l.source) && l.source[i] != '\n' {
		i++
	}
	return i + 1
}

func (l *Lexer) scanIdent() token.Token {
	start := l.pos
	for l.pos < len(l.source) && isIdentPart(l.source[l.pos]) {
		l.pos++
	}
	text := l.source[start:l.pos]

	switch {
	case text == "true" || text == "false":
		return l.make(token.Bool, text, start, l.pos)
	case Keywords[text]:
		return l.make(token.Keyword, text, start, l.pos)
	case l.types.Has(text):
		return l.make(token.TypeName, "TYPE_NAME", start, l.pos)
	}
	return l.make(token.Ident, "IDENTIFIER", start, l.pos)
}

func (l *Lexer) scanNumber() token.Token {
	start := l.pos
	kind := token.Int

	if l.pos+1 < len(l.source) && l.source[l.pos] == '0' &&
		(l.source[l.pos+1] == 'x' || l.source[l.pos+1] == 'X') {
		l.pos += 2
		for l.pos < len(l.source) && isHexDigit(l.source[l.pos]) {
			l.pos++
		}
	} else {
		for l.pos < len(l.source) && isDigit(l.source[l.pos]) {
			l.pos++
		}
		if l.pos < len(l.source) && l.source[l.pos] == '.' {
			kind = token.Float
			l.pos++
			for l.pos < len(l.source) && isDigit(l.source[l.pos]) {
				l.pos++
			}
		}
		if l.pos < len(l.source) && (l.source[l.pos] == 'e' || l.source[l.pos] == 'E') {
			j := l.pos + 1
			if j < len(l.source) && (l.source[j] == '+' || l.source[j] == '-') {
				j++
			}
			if j < len(l.source) && isDigit(l.source[j]) {
				kind = token.Float
				l.pos = j
				for l.pos < len(l.source) && isDigit(l.source[l.pos]) {
					l.pos++
				}
			}
		}
	}

	// suffixes: u, U, f, F, h, H, lf, LF
	for l.pos < len(l.source) && strings.IndexByte("uUfFhHlL", l.source[l.pos]) >= 0 {
		if c := l.source[l.pos]; c == 'f' || c == 'F' || c == 'h' || c == 'H' {
			kind = token.Float
		}
		l.pos++
	}

	if kind == token.Float {
		return l.make(kind, "FLOAT_LITERAL", start, l.pos)
	}
	return l.make(kind, "INT_LITERAL", start, l.pos)
}

func (l *Lexer) scanString() token.Token {
	start := l.pos
	l.pos++
	for l.pos < len(l.source) {
		ch := l.source[l.pos]
		if ch == '\\' && l.pos+1 < len(l.source) {
			l.pos += 2
			continue
		}
		if ch == '\n' {
			return l.make(token.Error, "error", start, l.pos)
		}
		l.pos++
		if ch == '"' {
			return l.make(token.String, "STRING_LITERAL", start, l.pos)
		}
	}
	return l.make(token.Error, "error", start, l.pos)
}

func isBlank(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\f' || b == '\v'
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || isDigit(b)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

// IsIdentifier reports whether s is a well-formed identifier.
func IsIdentifier(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}
