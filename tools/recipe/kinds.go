// Package recipe defines the AutoPkg recipe kinds recipe-robot knows how to
// generate, the per-run state kept for each kind, and the typed recipe
// document that is written to disk.
package recipe

import (
	"fmt"
	"strings"
)

// Kind names.
const (
	KindDownload = "download"
	KindMunki    = "munki"
	KindPkg      = "pkg"
	KindInstall  = "install"
	KindJSS      = "jss"
	KindAbsolute = "absolute"
	KindSCCM     = "sccm"
	KindDS       = "ds"
)

// Kind is one recipe type. Parent is nil only for the root kind.
type Kind struct {
	Name        string
	Description string
	Parent      *Kind
}

// ParentName returns the parent's name, or "" for the root kind.
func (k *Kind) ParentName() string {
	if k.Parent == nil {
		return ""
	}
	return k.Parent.Name
}

// FileSuffix is the ".<kind>.recipe" suffix used in recipe file names.
func (k *Kind) FileSuffix() string {
	return "." + k.Name + ".recipe"
}

// Registry is an immutable set of kinds forming a forest rooted at download.
type Registry struct {
	kinds  []*Kind
	byName map[string]*Kind
	order  []*Kind
}

// KindSpec describes a kind to register. Parent must name a kind registered
// earlier in the same call, or be empty.
type KindSpec struct {
	Name        string
	Description string
	Parent      string
}

// DefaultKindSpecs lists the built-in kinds in registry order.
var DefaultKindSpecs = []KindSpec{
	{KindDownload, "Downloads an app in whatever format the developer provides.", ""},
	{KindMunki, "Imports into your Munki repository.", KindDownload},
	{KindPkg, "Creates a standard pkg installer file.", KindDownload},
	{KindInstall, "Installs the app on the computer running AutoPkg.", KindDownload},
	{KindJSS, "Imports into your Casper JSS and creates necessary groups, policies, etc.", KindPkg},
	{KindAbsolute, "Imports into your Absolute Manage server.", KindPkg},
	{KindSCCM, "Creates a cmmac package for deploying via Microsoft SCCM.", KindPkg},
	{KindDS, "Imports into your DeployStudio Packages folder.", KindDownload},
}

var defaultRegistry = MustRegistry(DefaultKindSpecs)

// DefaultRegistry returns the process-wide registry of built-in kinds.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// NewRegistry builds a registry from specs. Names must be unique and every
// parent must already be registered, which also rules out cycles.
func NewRegistry(specs []KindSpec) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Kind, len(specs))}
	for _, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("kind name must not be empty")
		}
		if _, dup := r.byName[s.Name]; dup {
			return nil, fmt.Errorf("duplicate kind %q", s.Name)
		}
		k := &Kind{Name: s.Name, Description: s.Description}
		if s.Parent != "" {
			p, ok := r.byName[s.Parent]
			if !ok {
				return nil, fmt.Errorf("kind %q: unknown parent %q", s.Name, s.Parent)
			}
			k.Parent = p
		}
		r.kinds = append(r.kinds, k)
		r.byName[k.Name] = k
	}
	r.order = r.topoOrder()
	return r, nil
}

// MustRegistry is NewRegistry that panics on error.
func MustRegistry(specs []KindSpec) *Registry {
	r, err := NewRegistry(specs)
	if err != nil {
		panic(err)
	}
	return r
}

// Names returns the kind names in registry order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.kinds))
	for _, k := range r.kinds {
		names = append(names, k.Name)
	}
	return names
}

// Lookup resolves a kind by name.
func (r *Registry) Lookup(name string) (*Kind, bool) {
	k, ok := r.byName[name]
	return k, ok
}

// Walk returns every kind with each parent ahead of its children. Ties are
// broken by registry order so the walk is deterministic.
func (r *Registry) Walk() []*Kind {
	out := make([]*Kind, len(r.order))
	copy(out, r.order)
	return out
}

// KindFromRecipePath returns the kind named by a recipe file name such as
// "Foo.munki.recipe", "Foo.munki.recipe.yaml" or "Foo.munki.recipe.plist".
func (r *Registry) KindFromRecipePath(path string) (*Kind, bool) {
	lower := strings.ToLower(strings.TrimRight(path, "/"))
	for _, ext := range []string{".recipe", ".recipe.yaml", ".recipe.plist"} {
		if !strings.HasSuffix(lower, ext) {
			continue
		}
		stem := strings.TrimSuffix(lower, ext)
		for _, k := range r.kinds {
			if strings.HasSuffix(stem, "."+k.Name) {
				return k, true
			}
		}
	}
	return nil, false
}

func (r *Registry) topoOrder() []*Kind {
	index := make(map[*Kind]int, len(r.kinds))
	indegree := make([]int, len(r.kinds))
	for i, k := range r.kinds {
		index[k] = i
		if k.Parent != nil {
			indegree[i] = 1
		}
	}

	order := make([]*Kind, 0, len(r.kinds))
	done := make([]bool, len(r.kinds))
	for len(order) < len(r.kinds) {
		// lowest registry index among ready kinds
		next := -1
		for i := range r.kinds {
			if !done[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			break
		}
		done[next] = true
		order = append(order, r.kinds[next])
		for i, k := range r.kinds {
			if k.Parent != nil && index[k.Parent] == next {
				indegree[i]--
			}
		}
	}
	return order
}
