package element

import (
	"fmt"
	"strings"
)

// Origin locates a node in the template it was parsed from.
// Line is 1-based, Offset is the 0-based column offset on that line.
type Origin struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line"`
	Offset int    `json:"offset"`
}

// String renders the origin as file:line:offset.
func (o *Origin) String() string {
	if o == nil {
		return ""
	}
	if o.File == "" {
		return fmt.Sprintf("%d:%d", o.Line, o.Offset)
	}
	return fmt.Sprintf("%s:%d:%d", o.File, o.Line, o.Offset)
}

// Node is the interface implemented by all tree nodes.
type Node interface {
	Parent() Node
	Children() []Node
	HasChildren() bool
	Origin() *Origin
	SetOrigin(o *Origin)
	base() *tree // marker method restricting implementations to this package
}

// tree holds the links shared by every variant.
type tree struct {
	parent   Node
	children []Node
	origin   *Origin
}

func (t *tree) base() *tree { return t }

// Parent returns the parent node, or nil for a root.
func (t *tree) Parent() Node { return t.parent }

// Children returns the ordered child nodes. The slice must not be modified;
// use the functions in tree.go instead.
func (t *tree) Children() []Node { return t.children }

// HasChildren reports whether the node has at least one child.
func (t *tree) HasChildren() bool { return len(t.children) > 0 }

// Origin returns the source coordinates, or nil when none were recorded.
func (t *tree) Origin() *Origin { return t.origin }

// SetOrigin attaches source coordinates to the node.
func (t *tree) SetOrigin(o *Origin) { t.origin = o }

// Document is the root of a template.
type Document struct {
	tree
}

// Doctype is a document type declaration, e.g. "html" or "xml".
type Doctype struct {
	tree
	Value string
}

// Markup is a tag: <name attrs>children</name>.
type Markup struct {
	tree
	attributeSet
	Name       string
	NameExpr   *Expression // dynamic tag name, takes precedence over Name
	AutoClosed bool        // written as self-closing in the template (img/)
}

// Text is literal output.
type Text struct {
	tree
	Value  string
	Escape bool // HTML-escape Value at compile time
	Inline bool // continues the previous text on the same line, no separator
	End    bool // no separator is written after this node
}

// Code is a raw PHP statement. With children it opens a control structure.
type Code struct {
	tree
	Value string
}

// Expression is a PHP expression whose value is displayed.
type Expression struct {
	tree
	Value   string
	Escape  bool // wrap in the HTML escape call
	Checked bool // guard undefined variables
}

// Attribute is a single key/value pair on a Markup or MixinCall.
type Attribute struct {
	tree
	Name     string
	NameExpr *Expression // dynamic key, takes precedence over Name
	Value    Node        // *Text or *Expression
}

// Assignment is a pending bundle of attribute contributions, e.g.
// &attributes($attrs) or &class($list). Its children are *Expression nodes.
type Assignment struct {
	tree
	Name string
}

// MixinDeclaration declares a reusable fragment. Its children are the body.
type MixinDeclaration struct {
	tree
	Name     string
	Params   []string
	Variadic string // name of the ...rest parameter, empty when absent
}

// Argument is one positional argument of a mixin call.
type Argument struct {
	Packed bool // spread at runtime: +mixin(...$list)
	Expr   *Expression
}

// MixinCall expands a mixin. Its children fill the mixin's block.
type MixinCall struct {
	tree
	attributeSet
	Name string
	Args []*Argument
}

// MixinBlock marks where a mixin body renders the call site's children.
type MixinBlock struct {
	tree
}

// Variable binds the value of an expression to a PHP lvalue.
type Variable struct {
	tree
	Name  string // left-hand side code, e.g. "$title"
	Value *Expression
}

// AttributedNode is implemented by nodes owning attributes and assignments.
type AttributedNode interface {
	Node
	Attributes() []*Attribute
	Assignments() []*Assignment
	set() *attributeSet
}

// attributeSet holds the resolved attributes and merge-pending assignments of
// a Markup or MixinCall.
type attributeSet struct {
	attributes  []*Attribute
	assignments []*Assignment
}

func (s *attributeSet) set() *attributeSet { return s }

// Attributes returns the attributes in declaration order.
func (s *attributeSet) Attributes() []*Attribute { return s.attributes }

// Assignments returns the assignment bundles in declaration order.
func (s *attributeSet) Assignments() []*Assignment { return s.assignments }

// Expressions returns the contributed values in order.
func (a *Assignment) Expressions() []*Expression {
	exprs := make([]*Expression, 0, len(a.children))
	for _, c := range a.children {
		if e, ok := c.(*Expression); ok {
			exprs = append(exprs, e)
		}
	}
	return exprs
}

// StaticName returns the tag name when it is not dynamic.
func (m *Markup) StaticName() (string, bool) {
	if m.NameExpr != nil {
		return "", false
	}
	return m.Name, true
}

// StaticName returns the attribute key when it is not dynamic.
func (a *Attribute) StaticName() (string, bool) {
	if a.NameExpr != nil {
		return "", false
	}
	return a.Name, true
}

// NewDocument creates a document root holding children.
func NewDocument(children ...Node) *Document {
	d := &Document{}
	AppendChild(d, children...)
	return d
}

// NewDoctype creates a doctype declaration.
func NewDoctype(value string) *Doctype {
	return &Doctype{Value: strings.TrimSpace(value)}
}

// NewMarkup creates a tag with a static name.
func NewMarkup(name string, children ...Node) *Markup {
	m := &Markup{Name: name}
	AppendChild(m, children...)
	return m
}

// NewDynamicMarkup creates a tag whose name is computed at runtime.
func NewDynamicMarkup(name *Expression, children ...Node) *Markup {
	m := &Markup{NameExpr: name}
	name.parent = m
	AppendChild(m, children...)
	return m
}

// NewText creates unescaped literal text.
func NewText(value string) *Text {
	return &Text{Value: value}
}

// NewEscapedText creates literal text escaped at compile time.
func NewEscapedText(value string) *Text {
	return &Text{Value: value, Escape: true}
}

// NewCode creates a PHP statement. Children make it a block opener.
func NewCode(value string, children ...Node) *Code {
	c := &Code{Value: value}
	AppendChild(c, children...)
	return c
}

// NewExpression creates a checked, unescaped expression.
func NewExpression(value string) *Expression {
	return &Expression{Value: value, Checked: true}
}

// NewEscapedExpression creates a checked expression displayed through the
// HTML escape call.
func NewEscapedExpression(value string) *Expression {
	return &Expression{Value: value, Checked: true, Escape: true}
}

// NewUncheckedExpression creates an expression whose variables are not guarded.
func NewUncheckedExpression(value string) *Expression {
	return &Expression{Value: value}
}

// NewAttribute creates a static-keyed attribute. value is a *Text or *Expression.
func NewAttribute(name string, value Node) *Attribute {
	a := &Attribute{Name: name, Value: value}
	if value != nil {
		value.base().parent = a
	}
	return a
}

// NewDynamicAttribute creates an attribute whose key is computed at runtime.
func NewDynamicAttribute(name *Expression, value Node) *Attribute {
	a := NewAttribute("", value)
	a.NameExpr = name
	name.parent = a
	return a
}

// NewAssignment creates an assignment bundle targeting name.
func NewAssignment(name string, exprs ...*Expression) *Assignment {
	a := &Assignment{Name: name}
	for _, e := range exprs {
		AppendChild(a, e)
	}
	return a
}

// NewMixinDeclaration creates a mixin declaration. A final parameter written
// as ...name becomes the variadic parameter.
func NewMixinDeclaration(name string, params []string, body ...Node) (*MixinDeclaration, error) {
	d := &MixinDeclaration{Name: name}
	for i, p := range params {
		p = strings.TrimPrefix(strings.TrimSpace(p), "$")
		if rest, ok := strings.CutPrefix(p, "..."); ok {
			if i != len(params)-1 {
				return nil, fmt.Errorf("mixin %s: variadic parameter ...%s must be last", name, rest)
			}
			d.Variadic = strings.TrimPrefix(rest, "$")
			continue
		}
		d.Params = append(d.Params, p)
	}
	AppendChild(d, body...)
	return d, nil
}

// NewArgument creates a call argument. A leading ... marks it packed.
func NewArgument(src string) *Argument {
	src = strings.TrimSpace(src)
	if rest, ok := strings.CutPrefix(src, "..."); ok {
		return &Argument{Packed: true, Expr: NewExpression(strings.TrimSpace(rest))}
	}
	return &Argument{Expr: NewExpression(src)}
}

// NewMixinCall creates a mixin call with positional arguments.
func NewMixinCall(name string, args ...*Argument) *MixinCall {
	c := &MixinCall{Name: name, Args: args}
	for _, a := range args {
		if a.Expr != nil {
			a.Expr.parent = c
		}
	}
	return c
}

// NewMixinBlock creates a block placeholder.
func NewMixinBlock() *MixinBlock {
	return &MixinBlock{}
}

// NewVariable creates a binding of value to the lvalue name.
func NewVariable(name string, value *Expression) *Variable {
	v := &Variable{Name: name, Value: value}
	if value != nil {
		value.parent = v
	}
	return v
}
