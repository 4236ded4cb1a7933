package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrUnknownExample is returned for names missing from the registry
var ErrUnknownExample = errors.New("unknown example")

// BuiltinExamples maps example names to files below the examples base URL
var BuiltinExamples = map[string]string{
	"cad_model": "42400-IDGH.stl",
}

// ExampleLoader resolves a named example and downloads it into a local
// cache directory before parsing it with FileLoader
type ExampleLoader struct {
	BaseURL  string
	Registry map[string]string
	CacheDir string
	Client   *http.Client
	Files    FileLoader
	Log      *slog.Logger
}

// NewExampleLoader merges extra entries over the builtin registry
func NewExampleLoader(baseURL, cacheDir string, timeout time.Duration, extra map[string]string, log *slog.Logger) *ExampleLoader {
	registry := make(map[string]string, len(BuiltinExamples)+len(extra))
	for k, v := range BuiltinExamples {
		registry[k] = v
	}
	for k, v := range extra {
		registry[k] = v
	}
	return &ExampleLoader{
		BaseURL:  baseURL,
		Registry: registry,
		CacheDir: cacheDir,
		Client:   &http.Client{Timeout: timeout},
		Log:      log,
	}
}

func (e *ExampleLoader) Name() string { return "example" }

// Names lists the registered example names in order
func (e *ExampleLoader) Names() []string {
	names := make([]string, 0, len(e.Registry))
	for k := range e.Registry {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (e *ExampleLoader) Load(ctx context.Context, arg string) (*Source, error) {
	if arg == "" {
		return nil, ErrNoSource
	}
	name := strings.TrimPrefix(arg, "download_")
	ref, ok := e.Registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExample, name)
	}

	path, err := e.fetch(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch example %q: %w", name, err)
	}
	src, err := e.Files.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	src.Mesh.Name = name
	return src, nil
}

// fetch returns a local path for ref, downloading it when it is a URL or
// a file name below BaseURL that is not cached yet
func (e *ExampleLoader) fetch(ctx context.Context, ref string) (string, error) {
	if !strings.Contains(ref, "://") && filepath.IsAbs(ref) {
		return ref, nil
	}

	target, err := e.resolve(ref)
	if err != nil {
		return "", err
	}
	local := filepath.Join(e.CacheDir, cacheName(target))
	if _, err := os.Stat(local); err == nil {
		e.Log.DebugContext(ctx, "example cache hit", "path", local)
		return local, nil
	}
	if err := os.MkdirAll(e.CacheDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	e.Log.InfoContext(ctx, "downloading example", "url", target.String(), "path", local)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return "", err
	}
	resp, err := e.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: unexpected status %s", target, resp.Status)
	}

	// interrupted downloads must not leave a partial file in the cache
	tmp, err := os.CreateTemp(e.CacheDir, ".download-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("download %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), local); err != nil {
		return "", err
	}
	return local, nil
}

func (e *ExampleLoader) resolve(ref string) (*url.URL, error) {
	if strings.Contains(ref, "://") {
		return url.Parse(ref)
	}
	base, err := url.Parse(e.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid examples base URL: %w", err)
	}
	return base.JoinPath(ref), nil
}

// cacheName is the cache file name for a download URL
func cacheName(u *url.URL) string {
	name := filepath.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		name = "download"
	}
	return name
}
