// Package preprocessor implements the macro-aware front-end that sits between
// the shader lexer and the parser.
//
// A Session rewrites the token stream of one shader transparently: #include
// pushes the included file, #define'd names expand in place and the branches
// of #if chains that are not taken never reach the consumer. The consumer pulls
// tokens one at a time and reports directive lines back through the
// DirectiveHandler interface, as the grammar recognises them.
package preprocessor

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/fwessels/shaderpp/internal/diagnostic"
	"github.com/fwessels/shaderpp/internal/lexer"
	"github.com/fwessels/shaderpp/internal/token"
)

// DefaultMaxExpansionDepth bounds the number of nested macro expansions.
const DefaultMaxExpansionDepth = 256

// Resolver turns an #include path into a URI, relative to the including file.
type Resolver interface {
	Resolve(path, base string) (string, error)
}

// Fetcher loads the text behind a URI.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (string, error)
}

// Options configure a Session. The zero value is usable: diagnostics are
// discarded, nothing is logged and #include always fails.
type Options struct {
	Types             *lexer.TypeNames
	Sink              diagnostic.Sink
	Resolver          Resolver
	Fetcher           Fetcher
	Log               *logrus.Entry
	MaxExpansionDepth int
}

// UnreachableRange is a span of source skipped by a conditional directive.
type UnreachableRange struct {
	URI   string
	Range token.Range
}

// Session preprocesses one shader. It is not safe for concurrent use.
type Session struct {
	types    *lexer.TypeNames
	sink     diagnostic.Sink
	resolver Resolver
	fetcher  Fetcher
	log      *logrus.Entry
	maxDepth int

	contexts []*lexerContext
	macros   *MacroTable
	conds    condStack
	pending  []token.Token

	includes    map[string]token.Range
	unreachable []UnreachableRange
	resolving   map[string]bool
	from        *lexerContext // context of the last token lexed
	afterHash   bool
	collecting  int // nesting of macro argument lists being read
	err         error
}

// NewSession starts preprocessing source, identified by uri.
func NewSession(source, uri string, opts Options) *Session {
	s := &Session{
		types:     opts.Types,
		sink:      opts.Sink,
		resolver:  opts.Resolver,
		fetcher:   opts.Fetcher,
		log:       opts.Log,
		maxDepth:  opts.MaxExpansionDepth,
		macros:    NewMacroTable(),
		includes:  map[string]token.Range{},
		resolving: map[string]bool{},
	}
	if s.types == nil {
		s.types = lexer.DefaultTypeNames()
	}
	if s.sink == nil {
		s.sink = diagnostic.Discard
	}
	if s.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.log = logrus.NewEntry(l)
	}
	if s.maxDepth <= 0 {
		s.maxDepth = DefaultMaxExpansionDepth
	}
	s.includes[uri] = token.Range{}
	s.pushInclude(source, uri)
	s.from = s.top()
	return s
}

// Includes returns every file entered so far, with the range of the
// directive that first included it. The root file maps to an empty range.
func (s *Session) Includes() map[string]token.Range {
	out := make(map[string]token.Range, len(s.includes))
	for k, v := range s.includes {
		out[k] = v
	}
	return out
}

// UnreachableRanges returns the skipped conditional branches, in source order
// of discovery.
func (s *Session) UnreachableRanges() []UnreachableRange {
	return append([]UnreachableRange(nil), s.unreachable...)
}

// Err returns the critical diagnostic that stopped the session, if any.
func (s *Session) Err() error {
	return s.err
}

// Macros gives access to the macro table, e.g. for predefinitions.
func (s *Session) Macros() *MacroTable {
	return s.macros
}

// Define predefines an object-like macro.
func (s *Session) Define(name, body string) {
	s.macros.Define(&Macro{Name: name, Body: predefinedBody(body)})
}

// DefineFunc predefines a function-like macro.
func (s *Session) DefineFunc(name string, params []string, body string) {
	s.macros.Define(&Macro{Name: name, FunctionLike: true, Params: params, Body: predefinedBody(body)})
}

func predefinedBody(body string) *token.Token {
	if isBlankText(body) {
		return nil
	}
	return &token.Token{
		Kind:  token.MacroText,
		Name:  "MACRO_TEXT",
		Value: body,
		URI:   "<predefined>",
		Index: token.SyntheticIndex,
	}
}

// NextToken returns the next token the parser should see. Tokens pushed back
// are returned first and are not examined for macros again, and neither is
// the token that follows a '#' that may start a directive, so directive
// keywords reach the grammar as written. An EOF token is returned only once every context is exhausted; a
// critical diagnostic is returned as the error and ends the session.
func (s *Session) NextToken() (token.Token, error) {
	raw := s.afterHash
	s.afterHash = false
	tok, err := s.nextToken(raw)
	s.afterHash = err == nil && tok.Kind == token.Hash && s.directiveHash()
	return tok, err
}

// directiveHash reports whether the '#' just read may start a directive line.
// One that came in through a macro argument never does.
func (s *Session) directiveHash() bool {
	return !s.from.param
}

func (s *Session) nextToken(raw bool) (token.Token, error) {
	if s.err != nil {
		return s.eof(), s.err
	}
	if len(s.pending) > 0 {
		tok := s.pending[0]
		s.pending = s.pending[1:]
		return tok, nil
	}
	tok := s.rawToken()
	if tok.IsEOF() {
		if s.conds.Depth() > 0 {
			return tok, s.critical(diagnostic.At(diagnostic.Critical, diagnostic.EndifNotFound,
				s.conds.Unclosed(), "#endif not found"))
		}
		return tok, nil
	}
	if raw {
		return tok, nil
	}
	return s.tryExpandMacro(tok)
}

// rawToken returns the next token without macro examination, popping every
// exhausted context but the root one.
func (s *Session) rawToken() token.Token {
	if len(s.pending) > 0 {
		tok := s.pending[0]
		s.pending = s.pending[1:]
		return tok
	}
	for {
		s.from = s.top()
		tok := s.from.lexer.Next()
		if !tok.IsEOF() || len(s.contexts) == 1 {
			return tok
		}
		s.popContext()
	}
}

func (s *Session) pushBack(toks ...token.Token) {
	s.pending = append(s.pending, toks...)
}

func (s *Session) eof() token.Token {
	return token.Token{Kind: token.EOF, Name: "EOF", URI: s.contexts[0].uri, Index: token.SyntheticIndex}
}

// ----------------------------------------------------------------------------
// Diagnostics
// ----------------------------------------------------------------------------

func (s *Session) report(sev diagnostic.Severity, code diagnostic.Code, at token.Token, format string, args ...any) {
	s.sink.Report(diagnostic.At(sev, code, at, format, args...))
}

func (s *Session) warnf(code diagnostic.Code, at token.Token, format string, args ...any) {
	s.report(diagnostic.Warning, code, at, format, args...)
}

func (s *Session) errorf(code diagnostic.Code, at token.Token, format string, args ...any) {
	s.report(diagnostic.Error, code, at, format, args...)
}

// critical reports d and stops the session; the returned error is d.
func (s *Session) critical(d diagnostic.Diagnostic) error {
	d.Severity = diagnostic.Critical
	s.sink.Report(d)
	s.err = &d
	s.log.WithField("code", d.Code).Debug("session stopped")
	return s.err
}
