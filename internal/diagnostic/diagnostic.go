// Package diagnostic provides the warnings, errors and critical failures the
// preprocessor reports while rewriting a token stream.
//
// Every diagnostic carries the source range of the offending tokens, including
// synthesized ranges at macro expansion sites, so editors can highlight them.
package diagnostic

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/fwessels/shaderpp/internal/token"
)

// Severity represents the severity level of a diagnostic.
type Severity uint8

const (
	// Warning is a non-blocking issue.
	Warning Severity = iota
	// Error is reported and preprocessing continues where structurally possible.
	Error
	// Critical aborts the preprocessing session.
	Critical
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// Code identifies the kind of a diagnostic.
type Code string

const (
	MacroRedefined     Code = "macro-redefined"
	MacroWithoutCall   Code = "macro-without-call"
	RecursiveMacro     Code = "recursive-macro"
	UndefinedName      Code = "undefined-name"
	IncludeRepeated    Code = "include-repeated"
	BadDefine          Code = "bad-define"
	BadParameterList   Code = "bad-parameter-list"
	MacroArity         Code = "macro-arity"
	UnterminatedCall   Code = "unterminated-call"
	ExpansionDepth     Code = "expansion-depth"
	BadOperator        Code = "bad-operator"
	BadExpression      Code = "bad-expression"
	DivisionByZero     Code = "division-by-zero"
	MisplacedElif      Code = "misplaced-elif"
	MisplacedElse      Code = "misplaced-else"
	MisplacedEndif     Code = "misplaced-endif"
	MalformedDirective Code = "malformed-directive"
	UnknownDirective   Code = "unknown-directive"
	IncludeFailed      Code = "include-failed"
	ErrorDirective     Code = "error-directive"
	EndifNotFound      Code = "endif-not-found"
)

// Diagnostic represents a single diagnostic message.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	URI      string
	Range    token.Range
}

// Error returns a formatted error string.
func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.URI, d.Range.Start.Line, d.Range.Start.Column, d.Severity, d.Message)
}

// At builds a diagnostic located at tok.
func At(sev Severity, code Code, tok token.Token, format string, args ...any) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		URI:      tok.URI,
		Range:    tok.Range,
	}
}

// Sink receives diagnostics as they are produced.
type Sink interface {
	Report(d Diagnostic)
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Report(Diagnostic) {}

// ----------------------------------------------------------------------------
// List
// ----------------------------------------------------------------------------

// List is a Sink collecting diagnostics in report order.
type List struct {
	diagnostics []Diagnostic
}

// Report implements Sink.
func (l *List) Report(d Diagnostic) {
	l.diagnostics = append(l.diagnostics, d)
}

// Diagnostics returns all collected diagnostics.
func (l *List) Diagnostics() []Diagnostic {
	return l.diagnostics
}

// Filter returns the diagnostics of the given severity.
func (l *List) Filter(sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range l.diagnostics {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

// Codes returns the codes of all collected diagnostics, in order.
func (l *List) Codes() []Code {
	codes := make([]Code, 0, len(l.diagnostics))
	for _, d := range l.diagnostics {
		codes = append(codes, d.Code)
	}
	return codes
}

// HasErrors reports whether an Error or Critical diagnostic was collected.
func (l *List) HasErrors() bool {
	for _, d := range l.diagnostics {
		if d.Severity >= Error {
			return true
		}
	}
	return false
}

// ----------------------------------------------------------------------------
// LogSink
// ----------------------------------------------------------------------------

// LogSink logs each diagnostic and forwards it to Next, if set.
type LogSink struct {
	Log  *logrus.Entry
	Next Sink
}

// NewLogSink returns a LogSink writing to log.
func NewLogSink(log *logrus.Entry, next Sink) *LogSink {
	return &LogSink{Log: log, Next: next}
}

// Report implements Sink.
func (s *LogSink) Report(d Diagnostic) {
	entry := s.Log.WithFields(logrus.Fields{
		"code": d.Code,
		"uri":  d.URI,
		"line": d.Range.Start.Line,
		"col":  d.Range.Start.Column,
	})
	switch d.Severity {
	case Warning:
		entry.Warn(d.Message)
	default:
		entry.Error(d.Message)
	}
	if s.Next != nil {
		s.Next.Report(d)
	}
}
