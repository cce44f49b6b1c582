package formatter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/grindlemire/go-pugfmt/internal/log"
	"github.com/grindlemire/go-pugfmt/pkg/element"
	"github.com/grindlemire/go-pugfmt/pkg/phpexpr"
)

// Format is an output dialect: its syntax patterns and tag classification.
type Format interface {
	// Name identifies the format in errors and logs.
	Name() string
	// Patterns returns the pattern templates of the format.
	Patterns() map[string]string
	// IsSelfClosingTag reports whether m is written without a closing tag.
	IsSelfClosingTag(m *element.Markup) bool
	// IsBlockTag reports whether m starts a new line when pretty printing.
	IsBlockTag(m *element.Markup) bool
}

// TokenHandlerProvider is implemented by formats that wrap tokens of
// embedded expressions. Each pattern receives the token text as %s.
type TokenHandlerProvider interface {
	TokenHandlers() map[phpexpr.TokenType]string
}

// FormatFactory creates a Format.
type FormatFactory func() Format

// requiredPatterns must be provided by every format. The other patterns
// have defaults.
var requiredPatterns = []string{
	"open_pair_tag",
	"close_pair_tag",
	"self_closing_tag",
	"attribute_pattern",
	"boolean_attribute_pattern",
	"php_handle_code",
	"php_display_code",
}

// formatAliases maps format names and doctype shorthands to formats.
var formatAliases = map[string]FormatFactory{
	"basic":        func() Format { return NewBasic() },
	"xml":          func() Format { return NewXML() },
	"plist":        func() Format { return NewXML() },
	"html":         func() Format { return NewHTML() },
	"5":            func() Format { return NewHTML() },
	"xhtml":        func() Format { return NewXHTML() },
	"transitional": func() Format { return NewXHTML() },
	"strict":       func() Format { return NewXHTML() },
	"frameset":     func() Format { return NewXHTML() },
	"1.1":          func() Format { return NewXHTML() },
	"mobile":       func() Format { return NewXHTML() },
}

// doctypes are the declarations written for doctype shorthands.
var doctypes = map[string]string{
	"html":         `<!DOCTYPE html>`,
	"5":            `<!DOCTYPE html>`,
	"xml":          xmlDeclaration,
	"transitional": `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">`,
	"strict":       `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">`,
	"frameset":     `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Frameset//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-frameset.dtd">`,
	"1.1":          `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd">`,
	"basic":        `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML Basic 1.1//EN" "http://www.w3.org/TR/xhtml-basic/xhtml-basic11.dtd">`,
	"mobile":       `<!DOCTYPE html PUBLIC "-//WAPFORUM//DTD XHTML Mobile 1.2//EN" "http://www.openmobilealliance.org/tech/DTD/xhtml-mobile12.dtd">`,
	"plist":        `<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">`,
}

// Aliases returns the format names accepted by Format, sorted.
func Aliases() []string {
	names := make([]string, 0, len(formatAliases))
	for name := range formatAliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// selectFormat resolves a selector into a validated Format.
//
// selector may be nil, an alias string, a Format, a FormatFactory or a
// func() Format. With nil, the first doctype of n picks the format, then the
// configured default.
func (f *Formatter) selectFormat(n element.Node, selector any) (Format, error) {
	var (
		format Format
		label  string
	)
	switch s := selector.(type) {
	case nil:
		alias := f.defaultFormat
		if dt := findDoctype(n); dt != nil && dt.Value != "" {
			alias = dt.Value
		}
		format, label = f.formatFromAlias(alias), alias
	case string:
		format, label = f.formatFromAlias(s), s
	case Format:
		format, label = s, fmt.Sprintf("%T", s)
	case FormatFactory:
		format, label = s(), "factory"
	case func() Format:
		format, label = s(), "factory"
	default:
		return nil, &InvalidFormatError{
			nodeError: nodeError{n},
			Selector:  fmt.Sprintf("%T", selector),
			Reason:    "selector must be an alias, a Format or a FormatFactory",
		}
	}
	if format == nil {
		return nil, &InvalidFormatError{nodeError: nodeError{n}, Selector: label, Reason: "factory returned nil"}
	}
	if missing := f.missingPatterns(format); len(missing) > 0 {
		return nil, &InvalidFormatError{
			nodeError: nodeError{n},
			Selector:  label,
			Reason:    "required patterns are not defined",
			Missing:   missing,
		}
	}
	log.Format("selected %s for %q", format.Name(), label)
	return format, nil
}

// formatFromAlias returns the format registered for alias, falling back to
// Basic for unknown names.
func (f *Formatter) formatFromAlias(alias string) Format {
	key := strings.ToLower(strings.TrimSpace(alias))
	if factory, ok := f.formats[key]; ok {
		return factory()
	}
	if factory, ok := formatAliases[key]; ok {
		return factory()
	}
	log.Format("unknown format %q, falling back to basic", alias)
	return NewBasic()
}

// missingPatterns lists required patterns neither the format nor the options
// provide.
func (f *Formatter) missingPatterns(format Format) []string {
	patterns := format.Patterns()
	var missing []string
	for _, name := range requiredPatterns {
		if _, ok := patterns[name]; ok {
			continue
		}
		if _, ok := f.patterns[name]; ok {
			continue
		}
		if _, ok := f.patternFuncs[name]; ok {
			continue
		}
		missing = append(missing, name)
	}
	return missing
}

func findDoctype(n element.Node) *element.Doctype {
	var found *element.Doctype
	element.Walk(n, func(c element.Node) bool {
		if found != nil {
			return false
		}
		if dt, ok := c.(*element.Doctype); ok {
			found = dt
			return false
		}
		return true
	})
	return found
}

// doctypeFor returns the declaration for a doctype value. An empty value
// uses the format's own doctype pattern.
func doctypeFor(value string) (string, bool) {
	if value == "" {
		return "", false
	}
	if dt, ok := doctypes[strings.ToLower(value)]; ok {
		return dt, true
	}
	return "<!DOCTYPE " + value + ">", true
}
