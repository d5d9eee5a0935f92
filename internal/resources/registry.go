// Package resources describes every collection the console can manage:
// record and payload types, typed filters, cross-field rules and the
// reference collections each form depends on.
package resources

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"railctl/internal/api"
	"railctl/internal/binding"
	"railctl/internal/console"
	"railctl/internal/errors"
	"railctl/internal/filter"
	"railctl/internal/resolve"

	"github.com/gobwas/glob"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Env is what a descriptor needs to open a console.
type Env struct {
	Client   *api.Client
	Resolver *resolve.Resolver
	Options  []console.Option
}

// Descriptor describes one managed collection.
type Descriptor struct {
	Name    string // collection path segment, e.g. "route-stops"
	Noun    string
	Group   string
	Names   bool     // supports the /names projection
	Filters []string // accepted filter keys
	Fields  []string // payload fields
	Depends []string // reference collections the form resolves

	open  func(Env) console.Console
	fetch func(*api.Client) resolve.Fetcher
}

// Open creates a console for the collection. Callers Close it.
func (d Descriptor) Open(env Env) console.Console {
	return d.open(env)
}

// Filterable reports whether the collection accepts filter criteria.
func (d Descriptor) Filterable() bool {
	return len(d.Filters) > 0
}

// ListNames fetches the name projection.
func (d Descriptor) ListNames(ctx context.Context, c *api.Client) ([]string, error) {
	if !d.Names {
		return nil, errors.Newf("%s has no name projection", d.Name)
	}
	return api.NewResource[struct{}](c, d.Name).Names(ctx)
}

type filterSpec struct {
	decode console.FilterDecoder
	keys   []string
}

func filters[F filter.Typed]() filterSpec {
	var zero F
	return filterSpec{decode: binding.Filter[F], keys: binding.FieldNames(zero)}
}

func unfiltered() filterSpec {
	return filterSpec{}
}

func define[T console.Entity, P any](group string, spec console.Spec[T, P], f filterSpec, names bool) Descriptor {
	var zero P
	path := spec.Resource
	return Descriptor{
		Name:    spec.Resource,
		Noun:    spec.Noun,
		Group:   group,
		Names:   names,
		Filters: f.keys,
		Fields:  binding.FieldNames(zero),
		Depends: spec.Dependencies,
		open: func(env Env) console.Console {
			var deps console.Dependencies
			if env.Resolver != nil {
				deps = env.Resolver
			}
			src := api.NewResource[T](env.Client, path)
			ctl := console.New[T, P](src, deps, spec, env.Options...)
			return console.Bind(ctl, f.decode)
		},
		fetch: func(c *api.Client) resolve.Fetcher {
			src := api.NewResource[T](c, path)
			return func(ctx context.Context) (any, error) {
				return src.List(ctx, nil)
			}
		},
	}
}

// Registry is the set of known collections.
type Registry struct {
	byName map[string]Descriptor
	order  []string
}

// NewRegistry returns a registry holding ds in the given order.
func NewRegistry(ds ...Descriptor) *Registry {
	r := &Registry{byName: map[string]Descriptor{}}
	for _, d := range ds {
		if _, dup := r.byName[d.Name]; !dup {
			r.order = append(r.order, d.Name)
		}
		r.byName[d.Name] = d
	}
	return r
}

// Default returns the registry of every railway collection.
func Default() *Registry {
	return NewRegistry(
		departments(), positions(), employees(), brigades(), medicalExaminations(),
		stations(), routeCategories(), routes(), routeStops(),
		trainTypes(), trains(), cars(), seats(), maintenances(),
		schedules(), passengers(), luggage(), tickets(),
	)
}

// All returns every descriptor in registration order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.byName[n])
	}
	return out
}

// Lookup finds a collection by name or singular noun.
func (r *Registry) Lookup(name string) (Descriptor, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if d, ok := r.byName[key]; ok {
		return d, nil
	}
	for _, n := range r.order {
		d := r.byName[n]
		if d.Noun == key || strings.ReplaceAll(d.Noun, " ", "-") == key {
			return d, nil
		}
	}
	msg := fmt.Sprintf("unknown resource %q", name)
	if s := r.Suggest(key); len(s) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(s, ", "))
	}
	return Descriptor{}, errors.NewValidationError("resource", msg, nil)
}

// Suggest returns up to three collection names close to name.
func (r *Registry) Suggest(name string) []string {
	ranks := fuzzy.RankFindNormalizedFold(name, r.order)
	sort.Sort(ranks)
	out := make([]string, 0, 3)
	for _, rank := range ranks {
		if len(out) == 3 {
			break
		}
		out = append(out, rank.Target)
	}
	return out
}

// Match returns the collections whose names match a glob pattern such as
// "route*". An empty pattern matches everything.
func (r *Registry) Match(pattern string) ([]Descriptor, error) {
	if pattern == "" {
		return r.All(), nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, errors.NewValidationError("pattern", fmt.Sprintf("invalid pattern %q: %v", pattern, err), err)
	}
	var out []Descriptor
	for _, n := range r.order {
		if g.Match(n) {
			out = append(out, r.byName[n])
		}
	}
	return out, nil
}

// RegisterDependencies makes every collection resolvable by name.
func (r *Registry) RegisterDependencies(res *resolve.Resolver, c *api.Client) {
	for _, n := range r.order {
		res.Register(n, r.byName[n].fetch(c))
	}
}

// Env builds the environment consoles are opened with, registering every
// collection as a dependency on a fresh resolver.
func (r *Registry) Env(c *api.Client, concurrency int, opts ...console.Option) Env {
	res := resolve.New(concurrency)
	r.RegisterDependencies(res, c)
	return Env{Client: c, Resolver: res, Options: opts}
}
