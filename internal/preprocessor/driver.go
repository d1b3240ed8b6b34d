package preprocessor

import (
	"context"

	"github.com/fwessels/shaderpp/internal/diagnostic"
	"github.com/fwessels/shaderpp/internal/token"
)

// Driver plays the part of the grammar for the directive rule
//
//	directive: '#' keyword MACRO_TEXT
//
// It reads tokens through a Session, reports every directive line back to it
// and hands all other tokens to the caller.
type Driver struct {
	s *Session
}

// NewDriver returns a Driver reading from s.
func NewDriver(s *Session) *Driver {
	return &Driver{s: s}
}

// Next returns the next token that is not part of a directive line.
func (d *Driver) Next(ctx context.Context) (token.Token, error) {
	tok, err := d.s.NextToken()
	for err == nil && tok.Kind == token.Hash && d.s.directiveHash() {
		if err = ctx.Err(); err != nil {
			break
		}
		var plain bool
		if tok, plain, err = d.directive(ctx, tok); plain {
			break
		}
	}
	return tok, err
}

// directive handles the line started by hash and returns the token after it.
// plain reports that hash is an ordinary token of a macro body instead, in
// which case hash itself is returned.
func (d *Driver) directive(ctx context.Context, hash token.Token) (tok token.Token, plain bool, err error) {
	s := d.s
	inMacro := s.from.kind == ContextMacroBody
	keyword, err := s.NextToken()
	if err != nil {
		return keyword, false, err
	}

	// in a macro body only a directive name makes a directive
	if inMacro && !directiveNames[keyword.Value] {
		next, err := s.tryExpandMacro(keyword)
		if err != nil {
			return next, false, err
		}
		if !next.IsEOF() {
			s.pushBack(next)
		}
		return hash, true, nil
	}

	// a lone '#' is a null directive
	if keyword.IsEOF() || keyword.URI != hash.URI || keyword.Range.Start.Line != hash.Range.Start.Line {
		if keyword.IsEOF() || keyword.Kind == token.Hash {
			return keyword, false, nil
		}
		tok, err = s.tryExpandMacro(keyword)
		return tok, false, err
	}

	if err := s.OnDirectiveLineStart(); err != nil {
		return s.eof(), false, err
	}
	text, err := s.NextToken()
	if err != nil {
		return text, false, err
	}

	switch keyword.Kind {
	case token.Ident, token.TypeName, token.Keyword, token.Bool:
		if err := s.OnDirectiveLineEnd(ctx, hash, keyword, text); err != nil {
			return s.eof(), false, err
		}
	default:
		s.errorf(diagnostic.MalformedDirective, keyword, "%q is not a directive", keyword.Value)
	}
	tok, err = s.NextToken()
	return tok, false, err
}

// Drain reads d to the end and returns every token it yields, EOF excluded.
// Reading stops at the first critical diagnostic.
func Drain(ctx context.Context, d *Driver) ([]token.Token, error) {
	var toks []token.Token
	for {
		tok, err := d.Next(ctx)
		if err != nil {
			return toks, err
		}
		if tok.IsEOF() {
			return toks, nil
		}
		toks = append(toks, tok)
	}
}
