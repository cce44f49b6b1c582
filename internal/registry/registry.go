package registry

import (
	"sort"
	"strings"

	"github.com/grindlemire/go-pugfmt/internal/log"
)

// PatternFunc renders a pattern from the resolved values of its declared
// inputs and the caller's arguments.
type PatternFunc func(inputs []string, args ...string) string

// HelperFunc renders the PHP code of a helper. deps holds the storage access
// expressions of the helper's declared dependencies, in declaration order.
type HelperFunc func(deps []string) string

// Helper is one emitted runtime helper.
type Helper struct {
	Name string
	Code string
}

type pattern struct {
	tmpl   string
	inputs []string
	fn     PatternFunc
}

type helper struct {
	fn   HelperFunc
	deps []string
}

// Storage names the PHP variable holding emitted helpers and how a helper is
// accessed in it.
type Storage struct {
	Name   string
	Getter func(storage, name string) string
}

// DefaultStorage is the storage used when none is configured.
var DefaultStorage = Storage{Name: "pugModule"}

// Registry is the pattern table and helper registry of one compilation.
// It is not safe for concurrent use.
type Registry struct {
	patterns  map[string]pattern
	resolving []string

	helpers  map[string]helper
	required []string
	isReq    map[string]bool

	storage Storage
}

// New creates an empty registry using storage for helper access.
func New(storage Storage) *Registry {
	if storage.Name == "" {
		storage.Name = DefaultStorage.Name
	}
	return &Registry{
		patterns: make(map[string]pattern),
		helpers:  make(map[string]helper),
		isReq:    make(map[string]bool),
		storage:  storage,
	}
}

// StorageName returns the PHP variable name (without $) holding helpers.
func (r *Registry) StorageName() string {
	return r.storage.Name
}

// RegisterPattern stores a sprintf template under name, replacing any
// previous pattern of that name.
func (r *Registry) RegisterPattern(name, tmpl string) {
	r.patterns[name] = pattern{tmpl: tmpl}
}

// RegisterPatternFunc stores a producer under name. The inputs are pattern
// names resolved each time the pattern is rendered, not at registration.
func (r *Registry) RegisterPatternFunc(name string, inputs []string, fn PatternFunc) {
	r.patterns[name] = pattern{inputs: inputs, fn: fn}
}

// HasPattern reports whether name is registered.
func (r *Registry) HasPattern(name string) bool {
	_, ok := r.patterns[name]
	return ok
}

// PatternNames returns the registered pattern names, sorted.
func (r *Registry) PatternNames() []string {
	names := make([]string, 0, len(r.patterns))
	for name := range r.patterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pattern renders the named pattern with args. Called without arguments, a
// template pattern is returned verbatim, %% included, so producers and
// runtime helpers can compose raw templates. Use Render for output text.
func (r *Registry) Pattern(name string, args ...string) (string, error) {
	return r.pattern(name, false, args)
}

// Render is Pattern for output text: a template is always formatted, so
// "%%" collapses to "%" even without arguments.
func (r *Registry) Render(name string, args ...string) (string, error) {
	return r.pattern(name, true, args)
}

func (r *Registry) pattern(name string, render bool, args []string) (string, error) {
	p, ok := r.patterns[name]
	if !ok {
		return "", &UnknownPatternError{Name: name}
	}
	for i, n := range r.resolving {
		if n == name {
			chain := append(append([]string{}, r.resolving[i:]...), name)
			return "", &CyclicPatternError{Chain: chain}
		}
	}
	if p.fn == nil {
		if len(args) == 0 && !render {
			return p.tmpl, nil
		}
		return Sprintf(p.tmpl, args...), nil
	}

	r.resolving = append(r.resolving, name)
	defer func() { r.resolving = r.resolving[:len(r.resolving)-1] }()

	inputs := make([]string, len(p.inputs))
	for i, in := range p.inputs {
		v, err := r.Pattern(in)
		if err != nil {
			return "", err
		}
		inputs[i] = v
	}
	return p.fn(inputs, args...), nil
}

// RegisterHelper declares a helper and the helpers it depends on.
// Declaring does not require it.
func (r *Registry) RegisterHelper(name string, fn HelperFunc, deps ...string) {
	r.helpers[name] = helper{fn: fn, deps: deps}
}

// HasHelper reports whether name is declared.
func (r *Registry) HasHelper(name string) bool {
	_, ok := r.helpers[name]
	return ok
}

// RequireHelper flags a helper for emission and returns the expression that
// accesses it at runtime. Requiring the same helper again has no effect.
func (r *Registry) RequireHelper(name string) (string, error) {
	if _, ok := r.helpers[name]; !ok {
		return "", &UnknownHelperError{Name: name}
	}
	if !r.isReq[name] {
		r.isReq[name] = true
		r.required = append(r.required, name)
		log.Deps("require %s", name)
	}
	return r.Accessor(name), nil
}

// IsRequired reports whether name was required since the last
// InitDependencies.
func (r *Registry) IsRequired(name string) bool {
	return r.isReq[name]
}

// Required returns the directly required helpers in require order.
func (r *Registry) Required() []string {
	return append([]string(nil), r.required...)
}

// Checkpoint returns a mark of the required helpers for Rollback.
func (r *Registry) Checkpoint() int {
	return len(r.required)
}

// Rollback forgets the helpers required since checkpoint.
func (r *Registry) Rollback(checkpoint int) {
	if checkpoint < 0 || checkpoint >= len(r.required) {
		return
	}
	for _, name := range r.required[checkpoint:] {
		delete(r.isReq, name)
	}
	r.required = r.required[:checkpoint]
}

// InitDependencies forgets every required helper. Helpers required afterwards
// form a fresh emission bundle.
func (r *Registry) InitDependencies() {
	r.required = nil
	r.isReq = make(map[string]bool)
}

// Accessor returns the PHP expression reading a helper from storage.
func (r *Registry) Accessor(name string) string {
	if r.storage.Getter != nil {
		return r.storage.Getter(r.storage.Name, name)
	}
	return "$" + r.storage.Name + "['" + phpSingleQuote(name) + "']"
}

// Dependencies returns the transitive closure of the required helpers,
// each exactly once, every helper after its dependencies. The order is
// stable: required helpers are visited in require order and dependencies in
// declaration order.
func (r *Registry) Dependencies() ([]Helper, error) {
	var out []Helper
	done := make(map[string]bool)
	var visiting []string

	var visit func(name, requiredBy string) error
	visit = func(name, requiredBy string) error {
		if done[name] {
			return nil
		}
		for i, n := range visiting {
			if n == name {
				chain := append(append([]string{}, visiting[i:]...), name)
				return &CyclicPatternError{Chain: chain}
			}
		}
		h, ok := r.helpers[name]
		if !ok {
			return &UnknownHelperError{Name: name, RequiredBy: requiredBy}
		}
		visiting = append(visiting, name)
		deps := make([]string, len(h.deps))
		for i, dep := range h.deps {
			if err := visit(dep, name); err != nil {
				return err
			}
			deps[i] = r.Accessor(dep)
		}
		visiting = visiting[:len(visiting)-1]
		done[name] = true
		out = append(out, Helper{Name: name, Code: h.fn(deps)})
		return nil
	}

	for _, name := range r.required {
		if err := visit(name, ""); err != nil {
			return nil, err
		}
	}
	log.Deps("emitting %d helper(s) for %d required", len(out), len(r.required))
	return out, nil
}

// phpSingleQuote escapes s for use inside a single-quoted PHP string.
func phpSingleQuote(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

// Quote returns s as a single-quoted PHP string literal.
func Quote(s string) string {
	return "'" + phpSingleQuote(s) + "'"
}
