package preprocessor

import (
	"context"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/fwessels/shaderpp/internal/diagnostic"
	"github.com/fwessels/shaderpp/internal/lexer"
	"github.com/fwessels/shaderpp/internal/token"
)

// Event names a point of the directive line lifecycle.
type Event uint8

const (
	OnDirectiveLineStart Event = iota // '#' and the keyword were read
	OnDirectiveLineEnd                // the rest of the line was read
)

func (e Event) String() string {
	if e == OnDirectiveLineStart {
		return "directive line start"
	}
	return "directive line end"
}

// DirectiveHandler is notified by the grammar when it reduces a directive.
type DirectiveHandler interface {
	// OnDirectiveLineStart captures the rest of the current line as one
	// MacroText token, which becomes the next token of the stream.
	OnDirectiveLineStart() error
	// OnDirectiveLineEnd executes the directive.
	OnDirectiveLineEnd(ctx context.Context, hash, keyword, text token.Token) error
}

var _ DirectiveHandler = (*Session)(nil)

// directiveNames are the keywords OnDirectiveLineEnd knows.
var directiveNames = map[string]bool{
	"define": true, "undef": true,
	"ifdef": true, "ifndef": true, "if": true, "elif": true, "else": true, "endif": true,
	"error": true, "include": true, "pragma": true,
	"version": true, "extension": true, "line": true,
}

// OnDirectiveLineStart implements DirectiveHandler.
func (s *Session) OnDirectiveLineStart() error {
	if s.err != nil {
		return s.err
	}
	text := s.top().lexer.NextLine()
	s.log.WithField("event", OnDirectiveLineStart).Debug(text.Value)
	s.pushBack(text)
	return nil
}

// OnDirectiveLineEnd implements DirectiveHandler.
func (s *Session) OnDirectiveLineEnd(ctx context.Context, hash, keyword, text token.Token) error {
	if s.err != nil {
		return s.err
	}
	s.log.WithFields(logrus.Fields{
		"event":     OnDirectiveLineEnd,
		"directive": keyword.Value,
		"uri":       hash.URI,
		"line":      hash.Range.Start.Line,
	}).Debug(text.Value)

	switch keyword.Value {
	case "define":
		s.define(keyword, text)
	case "undef":
		s.undef(keyword, text)
	case "ifdef":
		return s.branch(keyword, s.evaluate(text, DefinedCheck) != 0)
	case "ifndef":
		return s.branch(keyword, s.evaluate(text, DefinedCheck) == 0)
	case "if":
		return s.branch(keyword, s.evaluate(text, FullExpression) != 0)
	case "elif":
		return s.elif(keyword, text)
	case "else":
		return s.elseBranch(keyword)
	case "endif":
		if !s.conds.Pop() {
			s.errorf(diagnostic.MisplacedEndif, keyword, "#endif without #if")
		}
	case "error":
		return s.critical(diagnostic.At(diagnostic.Critical, diagnostic.ErrorDirective,
			token.Synthesize(token.MacroText, text.Value, hash, keyword, text), "%s", errorMessage(text.Value)))
	case "include":
		s.include(ctx, hash, text)
	case "pragma", "version", "extension", "line":
		// left to the shader compiler
	default:
		s.errorf(diagnostic.UnknownDirective, keyword, "unknown directive #%s", keyword.Value)
	}
	return nil
}

func errorMessage(text string) string {
	text = strings.ReplaceAll(text, "\\\n", " ")
	if unq, err := strconv.Unquote(text); err == nil {
		return unq
	}
	return text
}

// ----------------------------------------------------------------------------
// #define and #undef
// ----------------------------------------------------------------------------

func (s *Session) define(keyword, text token.Token) {
	lx := s.newLexer(text)
	name := lx.Next()
	if !name.IsIdentifier() {
		at := keyword
		if !name.IsEOF() {
			at = name
		}
		s.errorf(diagnostic.BadDefine, at, "macro name must be an identifier")
		return
	}
	m := &Macro{Name: name.Value}

	// a parameter list only when '(' immediately follows the name
	rest := text.Value[name.Range.End.Offset-text.Range.Start.Offset:]
	if strings.HasPrefix(rest, "(") {
		params, ok := s.parseParams(lx, name)
		if !ok {
			return
		}
		m.FunctionLike = true
		m.Params = params
	}

	if body := lx.NextLine(); !isBlankText(body.Value) {
		m.Body = &body
	}
	if prev := s.macros.Define(m); prev != nil {
		s.warnf(diagnostic.MacroRedefined, name, "macro %q redefined", m.Name)
	}
}

// parseParams reads `( ident (, ident)* )` or `()`.
func (s *Session) parseParams(lx *lexer.Lexer, name token.Token) ([]string, bool) {
	open := lx.Next()
	params := []string{}
	seen := map[string]bool{}
	expectName := true
	for {
		tok := lx.Next()
		switch {
		case isPunct(tok, ")") && (!expectName || len(params) == 0):
			return params, true
		case expectName && tok.IsIdentifier():
			if seen[tok.Value] {
				s.errorf(diagnostic.BadParameterList, tok, "duplicate parameter %q of macro %q", tok.Value, name.Value)
				return nil, false
			}
			seen[tok.Value] = true
			params = append(params, tok.Value)
			expectName = false
		case !expectName && isPunct(tok, ","):
			expectName = true
		default:
			at := tok
			if tok.IsEOF() {
				at = open
			}
			s.errorf(diagnostic.BadParameterList, at, "malformed parameter list of macro %q", name.Value)
			return nil, false
		}
	}
}

func (s *Session) undef(keyword, text token.Token) {
	name := s.newLexer(text).Next()
	if !name.IsIdentifier() {
		s.errorf(diagnostic.BadDefine, keyword, "#undef expects a macro name")
		return
	}
	s.macros.Undefine(name.Value)
}

// ----------------------------------------------------------------------------
// Conditionals
// ----------------------------------------------------------------------------

// branch opens a chain with #if, #ifdef or #ifndef.
func (s *Session) branch(keyword token.Token, taken bool) error {
	if taken {
		s.conds.Push(ForbidElse, keyword)
		return nil
	}
	s.conds.Push(AllowElse, keyword)
	return s.skipUnreachableCode(keyword)
}

func (s *Session) elif(keyword, text token.Token) error {
	top, ok := s.conds.Top()
	if !ok {
		s.errorf(diagnostic.MisplacedElif, keyword, "#elif without #if")
		return nil
	}
	if top.state == AllowElse && s.evaluate(text, FullExpression) != 0 {
		top.state = ForbidElse
		return nil
	}
	return s.skipUnreachableCode(keyword)
}

func (s *Session) elseBranch(keyword token.Token) error {
	top, ok := s.conds.Top()
	if !ok {
		s.errorf(diagnostic.MisplacedElse, keyword, "#else without #if")
		return nil
	}
	if top.state == AllowElse {
		top.state = ForbidElse
		return nil
	}
	return s.skipUnreachableCode(keyword)
}

// ----------------------------------------------------------------------------
// #include
// ----------------------------------------------------------------------------

func (s *Session) include(ctx context.Context, hash, text token.Token) {
	site := token.Synthesize(token.MacroText, text.Value, hash, text)
	path, ok := includePath(text.Value)
	if !ok {
		s.errorf(diagnostic.MalformedDirective, site, "#include expects \"path\" or <path>")
		return
	}
	if s.resolver == nil || s.fetcher == nil {
		s.errorf(diagnostic.IncludeFailed, site, "cannot include %q: no source configured", path)
		return
	}

	uri, err := s.resolver.Resolve(path, s.includeURI())
	if err != nil {
		s.errorf(diagnostic.IncludeFailed, site, "cannot resolve %q: %v", path, err)
		return
	}
	if first, ok := s.includes[uri]; ok {
		s.warnf(diagnostic.IncludeRepeated, site, "%s was already included at %s", uri, first.Start)
		return
	}

	s.log.WithField("uri", uri).Debug("fetch include")
	source, err := s.fetcher.Fetch(ctx, uri)
	if err != nil {
		s.errorf(diagnostic.IncludeFailed, site, "cannot include %q: %v", path, err)
		return
	}
	s.includes[uri] = site.Range
	s.pushInclude(source, uri)
}

func includePath(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if len(text) >= 2 && text[0] == '<' && text[len(text)-1] == '>' {
		return text[1 : len(text)-1], true
	}
	if len(text) >= 2 && text[0] == '"' {
		if path, err := strconv.Unquote(text); err == nil && path != "" {
			return path, true
		}
	}
	return "", false
}
