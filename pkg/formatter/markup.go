package formatter

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/grindlemire/go-pugfmt/pkg/element"
	"github.com/grindlemire/go-pugfmt/pkg/phpexpr"
)

// renderMarkup writes a tag with its attributes and children. In pretty
// mode, block tags start on a new indented line, and their closing tag does
// too when a block tag was rendered inside.
func (f *Formatter) renderMarkup(m *element.Markup) (string, error) {
	name, err := f.tagName(m)
	if err != nil {
		return "", err
	}
	selfClosing := f.format.IsSelfClosingTag(m)
	if selfClosing && m.HasChildren() {
		tag := m.Name
		if m.NameExpr != nil {
			tag = m.NameExpr.Value
		}
		return "", &IncompatibleChildrenError{nodeError: nodeError{m}, Tag: tag}
	}
	attrs, err := f.renderAttributes(m)
	if err != nil {
		return "", err
	}
	block := f.format.IsBlockTag(m)

	var sb strings.Builder
	if f.pretty && block {
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat(f.indent, f.level))
	}
	sb.WriteString(f.mark(m))

	if selfClosing {
		tag, err := f.pattern(m, "self_closing_tag", name+attrs)
		if err != nil {
			return "", err
		}
		sb.WriteString(tag)
	} else {
		open, err := f.pattern(m, "open_pair_tag", name+attrs)
		if err != nil {
			return "", err
		}
		closing, err := f.pattern(m, "close_pair_tag", name)
		if err != nil {
			return "", err
		}

		outerSeen := f.blockSeen
		f.blockSeen = false
		if block {
			f.level++
		}
		children, err := f.renderChildren(m)
		if block {
			f.level--
		}
		innerBlock := f.blockSeen
		f.blockSeen = outerSeen
		if err != nil {
			return "", err
		}

		sb.WriteString(open)
		sb.WriteString(children)
		if f.pretty && block && innerBlock {
			sb.WriteString("\n")
			sb.WriteString(strings.Repeat(f.indent, f.level))
		}
		sb.WriteString(closing)
	}

	if block {
		f.blockSeen = true
	}
	return sb.String(), nil
}

// tagName returns the static name, or code displaying the dynamic one.
func (f *Formatter) tagName(m *element.Markup) (string, error) {
	if name, ok := m.StaticName(); ok {
		return name, nil
	}
	code, err := f.php(m.NameExpr, m.NameExpr.Value, m.NameExpr.Checked)
	if err != nil {
		return "", err
	}
	return f.pattern(m, "php_display_code", code)
}

// renderAttributes writes the attributes of owner. Assignments, duplicated
// class or style keys and dynamic class or style values go through the merge
// path.
func (f *Formatter) renderAttributes(owner element.AttributedNode) (string, error) {
	assignments, err := f.resolveAssignments(owner)
	if err != nil {
		return "", err
	}
	attrs := owner.Attributes()
	if len(assignments) > 0 || f.needsMerge(attrs) {
		return f.mergedAttributes(owner, attrs, assignments)
	}

	var sb strings.Builder
	for _, a := range attrs {
		s, err := f.renderAttribute(a)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

// needsMerge reports attribute lists whose class or style must be merged.
func (f *Formatter) needsMerge(attrs []*element.Attribute) bool {
	seen := make(map[string]bool)
	for _, a := range attrs {
		name, ok := a.StaticName()
		if !ok || (name != "class" && name != "style") {
			continue
		}
		if seen[name] {
			return true
		}
		seen[name] = true
		if e, ok := a.Value.(*element.Expression); ok {
			if v, ok := f.constant(e); !ok || !isScalar(v) {
				return true
			}
		}
	}
	return false
}

// renderAttribute writes one attribute outside the merge path.
func (f *Formatter) renderAttribute(a *element.Attribute) (string, error) {
	switch v := a.Value.(type) {
	case nil:
		return f.booleanAttribute(a)
	case *element.Text:
		value := v.Value
		if v.Escape {
			value = html.EscapeString(value)
		}
		return f.attributePair(a, value)
	case *element.Expression:
		switch strings.ToLower(strings.TrimSpace(v.Value)) {
		case "true":
			return f.booleanAttribute(a)
		case "false", "null", "undefined":
			return "", nil
		}
		if c, ok := f.constant(v); ok && isScalar(c) {
			switch c {
			case true:
				return f.booleanAttribute(a)
			case false, nil:
				return "", nil
			}
			value := phpexpr.ToString(c)
			if v.Escape {
				value = html.EscapeString(value)
			}
			return f.attributePair(a, value)
		}
		code, err := f.php(v, v.Value, v.Checked)
		if err != nil {
			return "", err
		}
		name := "php_display_code"
		if v.Escape {
			name = "php_display_escaped"
		}
		value, err := f.pattern(v, name, code)
		if err != nil {
			return "", err
		}
		return f.attributePair(a, value)
	}
	return "", &UnexpectedNodeError{nodeError{a.Value}}
}

func (f *Formatter) attributePair(a *element.Attribute, value string) (string, error) {
	key, err := f.attributeKey(a)
	if err != nil {
		return "", err
	}
	return f.pattern(a, "attribute_pattern", key, value)
}

// attributeKey returns the static key, or code displaying the dynamic one.
func (f *Formatter) attributeKey(a *element.Attribute) (string, error) {
	if name, ok := a.StaticName(); ok {
		return name, nil
	}
	code, err := f.php(a.NameExpr, a.NameExpr.Value, a.NameExpr.Checked)
	if err != nil {
		return "", err
	}
	return f.pattern(a, "php_display_code", code)
}

// booleanAttribute writes a key-only attribute. A dynamic key is evaluated
// once into a temporary variable since the pattern may display it twice.
func (f *Formatter) booleanAttribute(a *element.Attribute) (string, error) {
	if name, ok := a.StaticName(); ok {
		return f.pattern(a, "boolean_attribute_pattern", name, name)
	}
	code, err := f.php(a.NameExpr, a.NameExpr.Value, a.NameExpr.Checked)
	if err != nil {
		return "", err
	}
	tmp := "$__pug_key_" + strconv.Itoa(f.keyVars)
	f.keyVars++
	assign, err := f.pattern(a, "php_handle_code", tmp+" = "+code+";")
	if err != nil {
		return "", err
	}
	key, err := f.pattern(a, "php_display_code", tmp)
	if err != nil {
		return "", err
	}
	attr, err := f.pattern(a, "boolean_attribute_pattern", key, key)
	if err != nil {
		return "", err
	}
	return assign + attr, nil
}
