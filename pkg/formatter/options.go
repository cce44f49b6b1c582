package formatter

import (
	"fmt"
	"strings"

	"github.com/grindlemire/go-pugfmt/internal/registry"
	"github.com/grindlemire/go-pugfmt/pkg/element"
)

// Option is a functional option for configuring a Formatter.
type Option func(*Formatter) error

// AssignmentHandler may consume an assignment of owner before the built-in
// class, style and attributes handlers run. Returning true consumes it;
// returning false lets later handlers and the built-ins see it. A handler may
// add attributes to owner and require helpers through f.
type AssignmentHandler func(f *Formatter, owner element.AttributedNode, a *element.Assignment) (bool, error)

// PatternFunc renders a pattern from the resolved values of its inputs and
// the caller's arguments.
type PatternFunc = registry.PatternFunc

// DefaultIndent is the indentation used by WithPretty(true).
const DefaultIndent = "  "

// DefaultMaxDepth bounds recursion through the tree and mixin expansions.
const DefaultMaxDepth = 256

// WithPretty enables newlines and indentation around block tags.
func WithPretty(pretty bool) Option {
	return func(f *Formatter) error {
		f.pretty = pretty
		return nil
	}
}

// WithIndent enables pretty printing with a custom indent string made of
// spaces and tabs.
func WithIndent(indent string) Option {
	return func(f *Formatter) error {
		if indent == "" || strings.Trim(indent, " \t") != "" {
			return fmt.Errorf("indent must be a non-empty run of spaces and tabs, got %q", indent)
		}
		f.pretty = true
		f.indent = indent
		return nil
	}
}

// WithDebug wraps the output so runtime failures report template
// coordinates.
func WithDebug(debug bool) Option {
	return func(f *Formatter) error {
		f.debug = debug
		return nil
	}
}

// WithDefaultFormat sets the format used when Format receives no selector
// and the tree has no doctype. Default is "basic".
func WithDefaultFormat(alias string) Option {
	return func(f *Formatter) error {
		if strings.TrimSpace(alias) == "" {
			return fmt.Errorf("default format cannot be empty")
		}
		f.defaultFormat = alias
		return nil
	}
}

// WithFormat registers factory under alias, overriding a built-in alias of
// the same name.
func WithFormat(alias string, factory FormatFactory) Option {
	return func(f *Formatter) error {
		key := strings.ToLower(strings.TrimSpace(alias))
		if key == "" {
			return fmt.Errorf("format alias cannot be empty")
		}
		if factory == nil {
			return fmt.Errorf("format %q: factory cannot be nil", alias)
		}
		f.formats[key] = factory
		return nil
	}
}

// WithPatterns overrides pattern templates for every format.
func WithPatterns(patterns map[string]string) Option {
	return func(f *Formatter) error {
		for name, tmpl := range patterns {
			if name == "" {
				return fmt.Errorf("pattern name cannot be empty")
			}
			f.patterns[name] = tmpl
		}
		return nil
	}
}

// WithPatternFunc registers a producer pattern. inputs name the patterns
// resolved each time it renders.
func WithPatternFunc(name string, inputs []string, fn PatternFunc) Option {
	return func(f *Formatter) error {
		if name == "" {
			return fmt.Errorf("pattern name cannot be empty")
		}
		if fn == nil {
			return fmt.Errorf("pattern %q: function cannot be nil", name)
		}
		f.patternFuncs[name] = patternFunc{inputs: inputs, fn: fn}
		return nil
	}
}

// WithAssignmentHandlers appends handlers tried, in order, before the
// built-in assignment handlers.
func WithAssignmentHandlers(handlers ...AssignmentHandler) Option {
	return func(f *Formatter) error {
		for i, h := range handlers {
			if h == nil {
				return fmt.Errorf("assignment handler %d is nil", i)
			}
		}
		f.handlers = append(f.handlers, handlers...)
		return nil
	}
}

// WithDependenciesStorage names the PHP variable holding runtime helpers.
// Default is "pugModule".
func WithDependenciesStorage(name string) Option {
	return func(f *Formatter) error {
		name = strings.TrimPrefix(name, "$")
		if !isIdentifier(name) {
			return fmt.Errorf("dependencies storage %q is not a valid variable name", name)
		}
		f.storage.Name = name
		return nil
	}
}

// WithDependenciesStorageGetter customizes how a helper is read from
// storage, e.g. func(s, n string) string { return "$" + s + "->" + n }.
func WithDependenciesStorageGetter(getter func(storage, name string) string) Option {
	return func(f *Formatter) error {
		if getter == nil {
			return fmt.Errorf("dependencies storage getter cannot be nil")
		}
		f.storage.Getter = getter
		return nil
	}
}

// WithMaxDepth bounds the recursion depth. Default is DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(f *Formatter) error {
		if depth < 1 {
			return fmt.Errorf("max depth must be at least 1")
		}
		f.maxDepth = depth
		return nil
	}
}

// WithSourceFile names the template file in source maps and for nodes whose
// origin has no file.
func WithSourceFile(path string) Option {
	return func(f *Formatter) error {
		f.sourceFile = path
		return nil
	}
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= 0x80:
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
