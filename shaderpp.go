/*
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package shaderpp preprocesses shader sources: it expands #include and
// #define'd macros and drops the branches of #if chains that are not taken,
// producing the token stream a shader parser consumes.
package shaderpp

import (
	"context"
	"maps"
	"net/http"
	"slices"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/fwessels/shaderpp/internal/diagnostic"
	"github.com/fwessels/shaderpp/internal/lexer"
	"github.com/fwessels/shaderpp/internal/preprocessor"
	"github.com/fwessels/shaderpp/internal/source"
	"github.com/fwessels/shaderpp/internal/token"
)

type (
	Token            = token.Token
	Range            = token.Range
	Diagnostic       = diagnostic.Diagnostic
	UnreachableRange = preprocessor.UnreachableRange
)

// Options configure Preprocess and PreprocessFile.
type Options struct {
	// Defines are predefined object-like macros.
	Defines   map[string]string
	// TypeNames are reported as type names in addition to the shader built-ins.
	TypeNames []string

	// Fs holds the include files, the OS file system when nil.
	Fs               afero.Fs
	// IncludeRoot confines file includes to a directory of Fs.
	IncludeRoot      string
	// HTTPClient fetches http(s) includes, http.DefaultClient when nil.
	HTTPClient       *http.Client
	IncludeCacheSize int

	MaxExpansionDepth int

	// Log receives debug traces and every diagnostic. Nothing is logged when
	// nil.
	Log *logrus.Entry
}

// Result is everything one run produces. Tokens excludes the final EOF.
type Result struct {
	Tokens      []Token
	Diagnostics []Diagnostic
	Includes    map[string]Range
	Unreachable []UnreachableRange
}

// HasErrors reports whether an Error or Critical diagnostic was produced.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity >= diagnostic.Error {
			return true
		}
	}
	return false
}

// Preprocess runs source, identified by uri, to the end. The result is
// returned even when a critical diagnostic stops the run; the error is that
// diagnostic.
func Preprocess(ctx context.Context, src, uri string, opts Options) (*Result, error) {
	fetcher, err := opts.fetcher()
	if err != nil {
		return nil, err
	}
	return run(ctx, src, uri, opts, fetcher)
}

// PreprocessFile reads path from the include file system and preprocesses it.
func PreprocessFile(ctx context.Context, path string, opts Options) (*Result, error) {
	fetcher, err := opts.fetcher()
	if err != nil {
		return nil, err
	}
	src, err := fetcher.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	return run(ctx, src, path, opts, fetcher)
}

func (o Options) fetcher() (source.Fetcher, error) {
	fs := o.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return source.New(fs, o.IncludeRoot, o.HTTPClient, o.IncludeCacheSize)
}

func run(ctx context.Context, src, uri string, opts Options, fetcher source.Fetcher) (*Result, error) {
	types := lexer.DefaultTypeNames()
	for _, name := range opts.TypeNames {
		types.Add(name)
	}

	diags := &diagnostic.List{}
	var sink diagnostic.Sink = diags
	if opts.Log != nil {
		sink = diagnostic.NewLogSink(opts.Log, diags)
	}

	s := preprocessor.NewSession(src, uri, preprocessor.Options{
		Types:             types,
		Sink:              sink,
		Resolver:          source.URLResolver{},
		Fetcher:           fetcher,
		Log:               opts.Log,
		MaxExpansionDepth: opts.MaxExpansionDepth,
	})
	for _, name := range slices.Sorted(maps.Keys(opts.Defines)) {
		s.Define(name, opts.Defines[name])
	}

	toks, err := preprocessor.Drain(ctx, preprocessor.NewDriver(s))
	return &Result{
		Tokens:      toks,
		Diagnostics: diags.Diagnostics(),
		Includes:    s.Includes(),
		Unreachable: s.UnreachableRanges(),
	}, err
}
