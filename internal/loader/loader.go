// Package loader selects the base mesh from an ordered list of strategies.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/philipparndt/meshdash/pkg/mesh"
)

// ErrNoSource is returned by a loader that has nothing to load for an
// empty argument. Chains skip such loaders without reporting a failure.
var ErrNoSource = errors.New("no source given")

// Loader turns the command line argument into a mesh
type Loader interface {
	Name() string
	Load(ctx context.Context, arg string) (*Source, error)
}

// Source is a loaded mesh plus the local files it came from
type Source struct {
	Mesh *mesh.Mesh
	// Files lists the local files the mesh was read from, for reload watching
	Files []string
}

// Attempt records one failed strategy
type Attempt struct {
	Loader string
	Err    error
}

// Result is the outcome of a chain run
type Result struct {
	*Source
	Loader   string
	Attempts []Attempt
}

// Chain tries loaders in order; the first success wins
type Chain struct {
	loaders []Loader
	log     *slog.Logger
}

func NewChain(log *slog.Logger, loaders ...Loader) *Chain {
	return &Chain{loaders: loaders, log: log}
}

// Load runs the chain. Each failure is captured in Result.Attempts and
// logged; an error is returned only when every loader failed.
func (c *Chain) Load(ctx context.Context, arg string) (*Result, error) {
	res := &Result{}
	for _, l := range c.loaders {
		src, err := l.Load(ctx, arg)
		if err == nil {
			res.Source = src
			res.Loader = l.Name()
			c.log.InfoContext(ctx, "mesh loaded",
				"loader", l.Name(),
				"arg", arg,
				"points", src.Mesh.NPoints(),
				"faces", src.Mesh.NFaces(),
				"failed_attempts", len(res.Attempts))
			return res, nil
		}
		if errors.Is(err, ErrNoSource) {
			continue
		}
		res.Attempts = append(res.Attempts, Attempt{Loader: l.Name(), Err: err})
		c.log.WarnContext(ctx, "mesh loader failed", "loader", l.Name(), "arg", arg, "err", err)
	}

	errs := make([]error, 0, len(res.Attempts))
	for _, a := range res.Attempts {
		errs = append(errs, fmt.Errorf("%s: %w", a.Loader, a.Err))
	}
	return res, fmt.Errorf("no loader could load %q: %w", arg, errors.Join(errs...))
}

// DefaultLoader always yields the fallback sphere
type DefaultLoader struct{}

func (DefaultLoader) Name() string { return "default" }

func (DefaultLoader) Load(context.Context, string) (*Source, error) {
	return &Source{Mesh: mesh.DefaultSphere()}, nil
}
