package formatter

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/grindlemire/go-pugfmt/internal/log"
	"github.com/grindlemire/go-pugfmt/internal/registry"
	"github.com/grindlemire/go-pugfmt/pkg/element"
	"github.com/grindlemire/go-pugfmt/pkg/phpexpr"
)

// builtinAssignments are merged by the formatter itself.
var builtinAssignments = map[string]bool{
	"attributes": true,
	"class":      true,
	"style":      true,
}

// resolveAssignments offers each assignment of owner to the user handlers in
// order, then keeps those the built-in merge handles. The tree is not
// modified.
func (f *Formatter) resolveAssignments(owner element.AttributedNode) ([]*element.Assignment, error) {
	var remaining []*element.Assignment
	for _, a := range owner.Assignments() {
		consumed := false
		for i, h := range f.handlers {
			ok, err := h(f, owner, a)
			if err != nil {
				return nil, err
			}
			if ok {
				log.Format("assignment &%s consumed by handler %d", a.Name, i)
				consumed = true
				break
			}
		}
		if consumed {
			continue
		}
		if !builtinAssignments[a.Name] {
			return nil, &UnhandledAssignmentError{nodeError: nodeError{a}, Name: a.Name}
		}
		remaining = append(remaining, a)
	}
	return remaining, nil
}

// contribution is one attribute set fed to the merge.
type contribution struct {
	value *phpexpr.Array // known at compile time, nil otherwise
	code  string         // PHP expression of the set

	entry string // "key => value" when the set is a single attribute
	key   string // static key of entry, "" when dynamic
}

// contributions lists the sets of attrs followed by those of assignments.
func (f *Formatter) contributions(attrs []*element.Attribute, assignments []*element.Assignment) ([]contribution, error) {
	var out []contribution
	for _, a := range attrs {
		c, err := f.attributeContribution(a)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	for _, a := range assignments {
		for _, e := range a.Expressions() {
			c, err := f.assignmentContribution(a.Name, e)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *Formatter) attributeContribution(a *element.Attribute) (contribution, error) {
	var c contribution
	name, static := a.StaticName()
	keyCode := registry.Quote(name)
	if !static {
		code, err := f.php(a.NameExpr, a.NameExpr.Value, a.NameExpr.Checked)
		if err != nil {
			return c, err
		}
		keyCode = code
	}

	value, known, valueCode, err := f.attributeValue(a)
	if err != nil {
		return c, err
	}
	c.entry = keyCode + " => " + valueCode
	c.code = "[" + c.entry + "]"
	if static {
		c.key = name
		if known {
			c.value = phpexpr.NewArray()
			c.value.Set(name, value)
		}
	}
	return c, nil
}

// attributeValue returns the compile-time value of an attribute, when known,
// and the PHP code computing it.
func (f *Formatter) attributeValue(a *element.Attribute) (phpexpr.Value, bool, string, error) {
	switch v := a.Value.(type) {
	case nil:
		return true, true, "true", nil
	case *element.Text:
		return v.Value, true, registry.Quote(v.Value), nil
	case *element.Expression:
		switch strings.ToLower(strings.TrimSpace(v.Value)) {
		case "true":
			return true, true, "true", nil
		case "false":
			return false, true, "false", nil
		case "null", "undefined":
			return nil, true, "null", nil
		}
		code, err := f.php(v, v.Value, v.Checked)
		if err != nil {
			return nil, false, "", err
		}
		if c, ok := f.constant(v); ok {
			return c, true, code, nil
		}
		return nil, false, code, nil
	}
	return nil, false, "", &UnexpectedNodeError{nodeError{a.Value}}
}

// assignmentContribution turns one value of &attributes, &class or &style
// into a set.
func (f *Formatter) assignmentContribution(name string, e *element.Expression) (contribution, error) {
	var c contribution
	code, err := f.php(e, e.Value, e.Checked)
	if err != nil {
		return c, err
	}
	v, known := f.constant(e)
	if name == "attributes" {
		c.code = code
		if arr, ok := v.(*phpexpr.Array); known && ok {
			c.value = arr
		} else if known && v == nil {
			c.value = phpexpr.NewArray()
		}
		return c, nil
	}
	c.code = "[" + registry.Quote(name) + " => " + code + "]"
	if known {
		c.value = phpexpr.NewArray()
		c.value.Set(name, v)
	}
	return c, nil
}

// constantSets returns the compile-time values of cs, or false when one is
// only known at runtime.
func constantSets(cs []contribution) ([]*phpexpr.Array, bool) {
	sets := make([]*phpexpr.Array, 0, len(cs))
	for _, c := range cs {
		if c.value == nil {
			return nil, false
		}
		sets = append(sets, c.value)
	}
	return sets, true
}

// setCodes groups consecutive single attributes with distinct static keys
// into one array literal.
func setCodes(cs []contribution) []string {
	var codes, entries []string
	keys := make(map[string]bool)
	flush := func() {
		if len(entries) > 0 {
			codes = append(codes, "["+strings.Join(entries, ", ")+"]")
		}
		entries = nil
		keys = make(map[string]bool)
	}
	for _, c := range cs {
		if c.entry == "" {
			flush()
			codes = append(codes, c.code)
			continue
		}
		if c.key != "" && keys[c.key] {
			flush()
		}
		if c.key != "" {
			keys[c.key] = true
		}
		entries = append(entries, c.entry)
	}
	flush()
	return codes
}

// mergedAttributes writes attributes through MergeAttributes when every set
// is constant, and through the attributes_assignment helper otherwise.
func (f *Formatter) mergedAttributes(owner element.AttributedNode, attrs []*element.Attribute, assignments []*element.Assignment) (string, error) {
	cs, err := f.contributions(attrs, assignments)
	if err != nil {
		return "", err
	}
	if sets, ok := constantSets(cs); ok {
		return f.staticAttributes(owner, MergeAttributes(sets...))
	}
	accessor, err := f.reg.RequireHelper(helperAttributesAssignment)
	if err != nil {
		return "", wrapRegistryError(owner, err)
	}
	return f.pattern(owner, "php_display_code", accessor+"("+strings.Join(setCodes(cs), ", ")+")")
}

// staticAttributes writes a merged attribute array known at compile time.
func (f *Formatter) staticAttributes(owner element.Node, arr *phpexpr.Array) (string, error) {
	var sb strings.Builder
	var err error
	arr.Each(func(key any, v phpexpr.Value) {
		if err != nil {
			return
		}
		name := phpexpr.ToString(key)
		if v == nil || v == false {
			return
		}
		if (name == "class" || name == "style") && phpexpr.ToString(v) == "" {
			return
		}
		var s string
		if v == true {
			s, err = f.pattern(owner, "boolean_attribute_pattern", name, name)
		} else {
			s, err = f.pattern(owner, "attribute_pattern", name, html.EscapeString(phpexpr.ToString(v)))
		}
		sb.WriteString(s)
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

// valueLiteral writes a constant as PHP code.
func valueLiteral(v phpexpr.Value) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case bool:
		if x {
			return "true"
		}
		return "false"
	case string:
		return registry.Quote(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case *phpexpr.Array:
		entries := make([]string, 0, x.Len())
		x.Each(func(key any, item phpexpr.Value) {
			entries = append(entries, valueLiteral(key)+" => "+valueLiteral(item))
		})
		return "[" + strings.Join(entries, ", ") + "]"
	}
	return "null"
}
