// Package source resolves #include paths to URIs and loads the text behind
// them, from a file system or over HTTP.
package source

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// MaxSize bounds the size of a fetched source.
const MaxSize = 16 << 20

// Fetcher loads the text behind a URI.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (string, error)
}

// ---------------- Resolution ----------------

// URLResolver resolves include paths as URI references. Paths of files
// included from a URL resolve against that URL; plain paths resolve against
// the directory of the including file.
type URLResolver struct{}

// Resolve implements preprocessor.Resolver.
func (URLResolver) Resolve(p, base string) (string, error) {
	ref, err := url.Parse(filepath.ToSlash(p))
	if err != nil {
		return "", errors.Wrapf(err, "include path %q", p)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	if b, err := url.Parse(base); err == nil && b.IsAbs() {
		return b.ResolveReference(ref).String(), nil
	}
	if path.IsAbs(ref.Path) {
		return path.Clean(ref.Path), nil
	}
	return path.Join(path.Dir(filepath.ToSlash(base)), ref.Path), nil
}

// ---------------- Fetchers ----------------

// FSFetcher reads plain paths and file:// URIs from a file system.
type FSFetcher struct {
	fs afero.Fs
}

// NewFSFetcher returns a fetcher reading from fs. A non-empty root confines
// every path to that directory.
func NewFSFetcher(fs afero.Fs, root string) *FSFetcher {
	if root != "" {
		fs = afero.NewBasePathFs(fs, root)
	}
	return &FSFetcher{fs: fs}
}

// Fetch implements preprocessor.Fetcher.
func (f *FSFetcher) Fetch(ctx context.Context, uri string) (string, error) {
	p := strings.TrimPrefix(uri, "file://")
	fi, err := f.fs.Stat(p)
	if err != nil {
		return "", errors.Wrapf(err, "stat %s", uri)
	}
	if fi.IsDir() {
		return "", errors.Errorf("%s is a directory", uri)
	}
	if fi.Size() > MaxSize {
		return "", errors.Errorf("%s is larger than %d bytes", uri, MaxSize)
	}
	data, err := afero.ReadFile(f.fs, p)
	if err != nil {
		return "", errors.Wrapf(err, "read %s", uri)
	}
	return string(data), nil
}

// HTTPFetcher downloads http:// and https:// URIs.
type HTTPFetcher struct {
	Client *http.Client // http.DefaultClient when nil
}

// Fetch implements preprocessor.Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, uri string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", errors.Wrapf(err, "request %s", uri)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "get %s", uri)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("get %s: %s", uri, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxSize+1))
	if err != nil {
		return "", errors.Wrapf(err, "read %s", uri)
	}
	if len(data) > MaxSize {
		return "", errors.Errorf("%s is larger than %d bytes", uri, MaxSize)
	}
	return string(data), nil
}

// Mux dispatches on the URI scheme. The empty scheme stands for plain paths.
type Mux map[string]Fetcher

// Fetch implements preprocessor.Fetcher.
func (m Mux) Fetch(ctx context.Context, uri string) (string, error) {
	scheme := ""
	if u, err := url.Parse(uri); err == nil {
		scheme = strings.ToLower(u.Scheme)
	}
	f, ok := m[scheme]
	if !ok {
		return "", errors.Errorf("%s: unsupported scheme %q", uri, scheme)
	}
	return f.Fetch(ctx, uri)
}

// CachedFetcher keeps the most recently fetched sources in memory. Failures
// are not cached.
type CachedFetcher struct {
	next  Fetcher
	cache *lru.Cache[string, string]
}

// NewCachedFetcher wraps next with a cache of size entries.
func NewCachedFetcher(next Fetcher, size int) (*CachedFetcher, error) {
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, errors.Wrap(err, "include cache")
	}
	return &CachedFetcher{next: next, cache: cache}, nil
}

// Fetch implements preprocessor.Fetcher.
func (c *CachedFetcher) Fetch(ctx context.Context, uri string) (string, error) {
	if src, ok := c.cache.Get(uri); ok {
		return src, nil
	}
	src, err := c.next.Fetch(ctx, uri)
	if err != nil {
		return "", err
	}
	c.cache.Add(uri, src)
	return src, nil
}

// Len returns the number of cached sources.
func (c *CachedFetcher) Len() int {
	return c.cache.Len()
}

// New returns the fetcher used by default: files from fs below root,
// http(s) URIs through client, all behind a cache of cacheSize entries.
// A cacheSize of zero disables the cache.
func New(fs afero.Fs, root string, client *http.Client, cacheSize int) (Fetcher, error) {
	files := NewFSFetcher(fs, root)
	web := &HTTPFetcher{Client: client}
	var f Fetcher = Mux{"": files, "file": files, "http": web, "https": web}
	if cacheSize <= 0 {
		return f, nil
	}
	return NewCachedFetcher(f, cacheSize)
}
