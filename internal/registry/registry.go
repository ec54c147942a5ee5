// Package registry is the namespaced plugin catalog described in spec.md
// §4.1. It is grounded on the source system's RegistryCenter
// (core/registry.py) — register/register_lazy/create/list over a
// (namespace, name) key — generalized from a Python dynamic-dispatch
// table to a typed Go registry of factory closures, per spec.md §9
// DESIGN NOTES: "the registry stores type-erased factory closures keyed
// by (namespace, name); downcasting happens at the boundary where the
// scheduler hands the plugin to the engine." Lazy dotted-path imports
// become a resolver closure supplied by a static plugin table, since the
// plugin set here is closed at build time rather than dynamically
// imported.
package registry

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/qphase-sched/qphase-sched/internal/errs"
)

// Well-known namespaces. Ad-hoc namespaces are still accepted, to allow
// third-party plugins, exactly as the source system permits.
const (
	NSEngine        = "engine"
	NSBackend       = "backend"
	NSIntegrator    = "integrator"
	NSModel         = "model"
	NSNoiseModel    = "noise_model"
	NSAnalysis      = "analysis"
	NSVisualization = "visualization"
	NSLoader        = "loader"
	NSDefault       = "default"
)

// Factory builds a plugin instance from its validated parameters.
type Factory func(params map[string]any) (any, error)

// Resolver lazily produces a Factory the first time it's needed. It
// stands in for the source system's dotted-path import: the symbol isn't
// pulled in (and its heavy dependencies with it) until Create actually
// needs it.
type Resolver func() (Factory, error)

type entryKind int

const (
	kindCallable entryKind = iota
	kindLazy
)

type entry struct {
	kind           entryKind
	builder        Factory
	resolver       Resolver
	target         string
	returnCallable bool
	meta           map[string]any
}

// Option customizes a registration.
type Option func(*entry)

// ReturnCallable marks an entry whose Create should hand back the builder
// itself rather than invoking it — for plugin kinds that are themselves
// factories the engine wants to call repeatedly (e.g. per-trajectory RNG
// seeding).
func ReturnCallable() Option {
	return func(e *entry) { e.returnCallable = true }
}

// WithMeta attaches introspection metadata (returned by Describe and
// printed by `show`; `list` prints names only).
func WithMeta(meta map[string]any) Option {
	return func(e *entry) {
		for k, v := range meta {
			e.meta[k] = v
		}
	}
}

// Registry is a namespaced catalog of plugin factories. The zero value is
// not usable; construct with New.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]map[string]*entry
}

// New returns an empty Registry. Tests and third-party callers should
// construct their own isolated Registry rather than share the process
// default (per spec.md §9 DESIGN NOTES).
func New() *Registry {
	return &Registry{tables: make(map[string]map[string]*entry)}
}

func normalize(namespace, name string) (string, string) {
	ns := strings.ToLower(strings.TrimSpace(namespace))
	if ns == "" {
		ns = NSDefault
	}
	return ns, strings.ToLower(strings.TrimSpace(name))
}

func (r *Registry) table(ns string) map[string]*entry {
	t, ok := r.tables[ns]
	if !ok {
		t = make(map[string]*entry)
		r.tables[ns] = t
	}
	return t
}

// Register adds an in-process factory under (namespace, name). It fails
// with errs.DuplicateRegistration if the key exists and overwrite is
// false.
func (r *Registry) Register(namespace, name string, builder Factory, overwrite bool, opts ...Option) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ns, nm := normalize(namespace, name)
	t := r.table(ns)
	if _, exists := t[nm]; exists && !overwrite {
		return errs.New(errs.DuplicateRegistration, "duplicate registration: %s:%s", ns, nm)
	}

	e := &entry{kind: kindCallable, builder: builder, meta: map[string]any{
		"registered_at": time.Now().UTC().Format(time.RFC3339),
		"kind":          "callable",
	}}
	for _, opt := range opts {
		opt(e)
	}
	t[nm] = e
	return nil
}

// RegisterLazy adds a dotted-path entry under (namespace, name). resolve
// is not invoked until the first Create call for this key — the lazy
// half of spec.md §4.1's "several plugin implementations pull in heavy
// numerical dependencies; the registry must enumerate and document them
// without importing them."
func (r *Registry) RegisterLazy(namespace, name, target string, resolve Resolver, overwrite bool, opts ...Option) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ns, nm := normalize(namespace, name)
	t := r.table(ns)
	if _, exists := t[nm]; exists && !overwrite {
		return errs.New(errs.DuplicateRegistration, "duplicate lazy registration: %s:%s", ns, nm)
	}

	e := &entry{kind: kindLazy, resolver: resolve, target: target, meta: map[string]any{
		"registered_at":  time.Now().UTC().Format(time.RFC3339),
		"kind":           "dotted",
		"delayed_import": true,
		"target":         target,
	}}
	for _, opt := range opts {
		opt(e)
	}
	t[nm] = e
	return nil
}

// Create splits fullName on ":" into (namespace, name), defaulting to the
// "default" namespace when absent, resolves the entry, and invokes its
// builder with params (unless the entry carries ReturnCallable, in which
// case the builder itself is returned).
func (r *Registry) Create(fullName string, params map[string]any) (any, error) {
	ns, nm := splitFullName(fullName)

	r.mu.RLock()
	t, ok := r.tables[ns]
	var e *entry
	if ok {
		e, ok = t[nm]
	}
	r.mu.RUnlock()
	if !ok {
		return nil, errs.New(errs.UnknownKey, "unknown registry key: %s:%s", ns, nm)
	}

	switch e.kind {
	case kindCallable:
		if e.returnCallable {
			return e.builder, nil
		}
		v, err := e.builder(params)
		if err != nil {
			return nil, errs.Wrap(errs.PluginBuildFailed, err, "building %s:%s", ns, nm)
		}
		return v, nil
	case kindLazy:
		builder, err := e.resolver()
		if err != nil {
			return nil, unresolvableErr(ns, nm, e.target, err)
		}
		// Cache the resolved builder so subsequent Create calls for this
		// key skip re-resolving.
		r.mu.Lock()
		e.kind = kindCallable
		e.builder = builder
		r.mu.Unlock()

		if e.returnCallable {
			return builder, nil
		}
		v, err := builder(params)
		if err != nil {
			return nil, errs.Wrap(errs.PluginBuildFailed, err, "building %s:%s", ns, nm)
		}
		return v, nil
	default:
		return nil, errs.New(errs.UnknownKey, "unknown registry key: %s:%s", ns, nm)
	}
}

func unresolvableErr(ns, nm, target string, cause error) error {
	switch ns {
	case NSBackend:
		return errs.Wrap(errs.UnresolvableTarget, cause, "failed to import backend %q from %q", nm, target)
	case NSVisualization:
		return errs.Wrap(errs.UnresolvableTarget, cause, "failed to import visualizer %q from %q", nm, target)
	default:
		return errs.Wrap(errs.UnresolvableTarget, cause, "failed to import %s:%s from %q", ns, nm, target)
	}
}

func splitFullName(fullName string) (namespace, name string) {
	if idx := strings.Index(fullName, ":"); idx >= 0 {
		return normalize(fullName[:idx], fullName[idx+1:])
	}
	return normalize(NSDefault, fullName)
}

// List enumerates registered names. If namespace is empty, it returns a
// map of namespace -> sorted names for introspection/CLI display; if
// namespace is non-empty, it returns only that namespace's sorted names.
func (r *Registry) List(namespace string) map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]string)
	if namespace == "" {
		for ns, t := range r.tables {
			out[ns] = sortedKeys(t)
		}
		return out
	}
	ns, _ := normalize(namespace, "")
	out[ns] = sortedKeys(r.tables[ns])
	return out
}

// Describe returns the introspection metadata for a single (namespace,
// name) pair, used by the `show` CLI command.
func (r *Registry) Describe(fullName string) (map[string]any, error) {
	ns, nm := splitFullName(fullName)
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tables[ns]
	if !ok {
		return nil, errs.New(errs.UnknownKey, "unknown registry key: %s:%s", ns, nm)
	}
	e, ok := t[nm]
	if !ok {
		return nil, errs.New(errs.UnknownKey, "unknown registry key: %s:%s", ns, nm)
	}
	out := make(map[string]any, len(e.meta))
	for k, v := range e.meta {
		out[k] = v
	}
	return out, nil
}

func sortedKeys(t map[string]*entry) []string {
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Default is the process-wide registry used by the CLI for convenience.
// Tests and embedders should prefer New() for isolation.
var Default = New()
