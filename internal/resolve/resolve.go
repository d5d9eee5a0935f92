// Package resolve loads the reference collections a form needs (positions
// for an employee, stations for a route) concurrently, tolerating partial
// failure.
package resolve

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"railctl/internal/log"

	"golang.org/x/sync/errgroup"
)

// Fetcher loads one reference collection.
type Fetcher func(ctx context.Context) (any, error)

// Set is the outcome of one resolution. A name is in exactly one of
// Succeeded or Failed.
type Set struct {
	Succeeded map[string]any
	Failed    []string
	Errors    map[string]error
}

// OK reports whether every requested name resolved.
func (s Set) OK() bool {
	return len(s.Failed) == 0
}

// Has reports whether name resolved.
func (s Set) Has(name string) bool {
	_, ok := s.Succeeded[name]
	return ok
}

// Lookup returns the resolved value for name as a T.
func Lookup[T any](s Set, name string) (T, bool) {
	v, ok := s.Succeeded[name]
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Resolver maps names to fetchers. Register before first use; Resolve is
// safe for concurrent use.
type Resolver struct {
	mu       sync.RWMutex
	fetchers map[string]Fetcher
	limit    int
}

// New creates a resolver running at most limit fetches at once (<=0 means unlimited).
func New(limit int) *Resolver {
	return &Resolver{fetchers: map[string]Fetcher{}, limit: limit}
}

// Register adds or replaces the fetcher for name.
func (r *Resolver) Register(name string, f Fetcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchers[name] = f
}

// Names returns the registered names, sorted.
func (r *Resolver) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.fetchers))
	for n := range r.fetchers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve fetches every name concurrently and waits for all of them. One
// failure does not cancel the others. Nothing is cached between calls.
func (r *Resolver) Resolve(ctx context.Context, names ...string) Set {
	set := Set{Succeeded: map[string]any{}, Errors: map[string]error{}}
	if len(names) == 0 {
		return set
	}

	var mu sync.Mutex
	record := func(name string, v any, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			set.Errors[name] = err
			set.Failed = append(set.Failed, name)
			return
		}
		set.Succeeded[name] = v
	}

	// Plain errgroup: goroutines report through record and return nil,
	// so the group's context is never cancelled by a single failure.
	var g errgroup.Group
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}

	seen := map[string]bool{}
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		r.mu.RLock()
		f, ok := r.fetchers[name]
		r.mu.RUnlock()
		if !ok {
			record(name, nil, fmt.Errorf("no fetcher registered for %q", name))
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				record(name, nil, err)
				return nil
			}
			v, err := f(ctx)
			record(name, v, err)
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(set.Failed)
	if len(set.Failed) > 0 {
		log.LogWithFields(log.F("failed", set.Failed), log.F("resolved", len(set.Succeeded))).Warn("dependency resolution incomplete")
	}
	return set
}
