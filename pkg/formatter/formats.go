package formatter

import (
	"maps"
	"strings"

	"golang.org/x/net/html/atom"

	"github.com/grindlemire/go-pugfmt/pkg/element"
	"github.com/grindlemire/go-pugfmt/pkg/phpexpr"
)

const xmlDeclaration = `<<?= "?" ?>xml version="1.0" encoding="utf-8" ?>`

// basicPatterns are the patterns of the Basic format. They also serve as the
// defaults of every other format.
var basicPatterns = map[string]string{
	"doctype":                   "",
	"open_pair_tag":             "<%s>",
	"close_pair_tag":            "</%s>",
	"self_closing_tag":          "<%s />",
	"attribute_pattern":         ` %s="%s"`,
	"boolean_attribute_pattern": ` %s="%s"`,
	"html_expression_escape":    "htmlspecialchars(%s)",
	"php_handle_code":           "<?php %s ?>",
	"php_display_code":          "<?= %s ?>",
	"php_block_code":            " {%s}",
	"php_nested_html":           " ?>%s<?php ",
	"test_value":                "isset(%s)",
	"empty_value":               "''",
}

// selfClosingTags are void elements in HTML.
var selfClosingTags = tagSet{
	atom.Area: true, atom.Base: true, atom.Br: true, atom.Col: true,
	atom.Embed: true, atom.Hr: true, atom.Img: true, atom.Input: true,
	atom.Link: true, atom.Meta: true, atom.Param: true, atom.Source: true,
	atom.Track: true, atom.Wbr: true,
}

// inlineTags never start a new line when pretty printing.
var inlineTags = tagSet{
	atom.A: true, atom.Abbr: true, atom.Acronym: true, atom.B: true,
	atom.Br: true, atom.Code: true, atom.Em: true, atom.Font: true,
	atom.I: true, atom.Img: true, atom.Ins: true, atom.Kbd: true,
	atom.Map: true, atom.Samp: true, atom.Small: true, atom.Span: true,
	atom.Strong: true, atom.Sub: true, atom.Sup: true,
}

type tagSet map[atom.Atom]bool

// has reports whether the static name of m is in the set.
func (s tagSet) has(m *element.Markup) bool {
	name, ok := m.StaticName()
	if !ok {
		return false
	}
	a := atom.Lookup([]byte(strings.ToLower(name)))
	return a != 0 && s[a]
}

// isBlock is the block rule shared by the built-in formats: a tag is block
// when it is not inline and its nearest enclosing tag, if any, is block.
func isBlock(m *element.Markup) bool {
	if inlineTags.has(m) {
		return false
	}
	for p := m.Parent(); p != nil; p = p.Parent() {
		if parent, ok := p.(*element.Markup); ok {
			return isBlock(parent)
		}
	}
	return true
}

// Basic writes XML-like markup without a doctype.
type Basic struct {
	name          string
	patterns      map[string]string
	tokenHandlers map[phpexpr.TokenType]string
}

// NewBasic creates the Basic format.
func NewBasic() *Basic {
	return &Basic{
		name:          "basic",
		patterns:      maps.Clone(basicPatterns),
		tokenHandlers: make(map[phpexpr.TokenType]string),
	}
}

// Name returns the format name.
func (b *Basic) Name() string { return b.name }

// Patterns returns a copy of the format's patterns.
func (b *Basic) Patterns() map[string]string { return maps.Clone(b.patterns) }

// SetPattern overrides one pattern of this format instance.
func (b *Basic) SetPattern(name, tmpl string) { b.patterns[name] = tmpl }

// SetTokenHandler wraps every token of type t in pattern, e.g. "(%s)".
func (b *Basic) SetTokenHandler(t phpexpr.TokenType, pattern string) {
	b.tokenHandlers[t] = pattern
}

// RemoveTokenHandler removes the handler of t.
func (b *Basic) RemoveTokenHandler(t phpexpr.TokenType) {
	delete(b.tokenHandlers, t)
}

// TokenHandlers returns a copy of the token handler table.
func (b *Basic) TokenHandlers() map[phpexpr.TokenType]string {
	return maps.Clone(b.tokenHandlers)
}

// IsSelfClosingTag reports tags without children or written as auto-closed.
func (b *Basic) IsSelfClosingTag(m *element.Markup) bool {
	return m.AutoClosed || !m.HasChildren()
}

// IsBlockTag applies the inline tag set and block inheritance.
func (b *Basic) IsBlockTag(m *element.Markup) bool { return isBlock(m) }

// XML is Basic with an XML declaration as doctype.
type XML struct {
	*Basic
}

// NewXML creates the XML format.
func NewXML() *XML {
	b := NewBasic()
	b.name = "xml"
	b.patterns["doctype"] = xmlDeclaration
	return &XML{Basic: b}
}

// HTML writes void elements without a slash and boolean attributes as bare
// keys.
type HTML struct {
	*XML
}

// NewHTML creates the HTML format.
func NewHTML() *HTML {
	x := NewXML()
	x.name = "html"
	x.patterns["doctype"] = doctypes["html"]
	x.patterns["self_closing_tag"] = "<%s>"
	x.patterns["boolean_attribute_pattern"] = " %s"
	return &HTML{XML: x}
}

// IsSelfClosingTag reports void elements and auto-closed tags. Other tags
// always get a closing tag, even when empty.
func (h *HTML) IsSelfClosingTag(m *element.Markup) bool {
	return m.AutoClosed || selfClosingTags.has(m)
}

// XHTML is HTML with XML syntax for void elements and boolean attributes.
type XHTML struct {
	*HTML
}

// NewXHTML creates the XHTML format.
func NewXHTML() *XHTML {
	h := NewHTML()
	h.name = "xhtml"
	h.patterns["doctype"] = doctypes["transitional"]
	h.patterns["self_closing_tag"] = "<%s />"
	h.patterns["boolean_attribute_pattern"] = ` %s="%s"`
	return &XHTML{HTML: h}
}
