package formatter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/grindlemire/go-pugfmt/internal/log"
	"github.com/grindlemire/go-pugfmt/internal/registry"
	"github.com/grindlemire/go-pugfmt/pkg/element"
	"github.com/grindlemire/go-pugfmt/pkg/phpexpr"
)

// Fragment sentinels mark where a node's output starts. They are replaced by
// debug markers, or removed, once the whole tree is rendered.
const (
	sentinelOpen  = '\x00'
	sentinelClose = '\x01'
)

// blockKeywords open a PHP control structure whose body is the children of a
// code node.
var blockKeywords = map[string]bool{
	"catch": true, "class": true, "do": true, "else": true, "elseif": true,
	"extends": true, "finally": true, "for": true, "foreach": true,
	"function": true, "if": true, "implements": true, "interface": true,
	"namespace": true, "switch": true, "trait": true, "try": true, "while": true,
}

type patternFunc struct {
	inputs []string
	fn     PatternFunc
}

// syntax holds the raw templates embedded in runtime helpers.
type syntax struct {
	attribute string
	boolean   string
	escape    string
}

// Formatter renders element trees. It owns the pattern table and helper
// registry of one compilation session.
type Formatter struct {
	pretty        bool
	indent        string
	debug         bool
	defaultFormat string
	formats       map[string]FormatFactory
	patterns      map[string]string
	patternFuncs  map[string]patternFunc
	handlers      []AssignmentHandler
	storage       registry.Storage
	maxDepth      int
	sourceFile    string

	reg       *registry.Registry
	format    Format
	syntax    syntax
	checked   *phpexpr.Rewriter
	unchecked *phpexpr.Rewriter
	fallback  string
	guardErr  error

	mixins map[string]*element.MixinDeclaration
	frames []*mixinFrame

	depth     int  // recursion depth of the current walk
	level     int  // indentation level
	blockSeen bool // a block tag was rendered in the current child list
	keyVars   int
	scopeVars int

	fragments    map[int]element.Origin
	nextFragment int
	sourceMap    *SourceMap
}

// New creates a Formatter with the given options.
func New(opts ...Option) (*Formatter, error) {
	f := &Formatter{
		indent:        DefaultIndent,
		defaultFormat: "basic",
		formats:       make(map[string]FormatFactory),
		patterns:      make(map[string]string),
		patternFuncs:  make(map[string]patternFunc),
		storage:       registry.DefaultStorage,
		maxDepth:      DefaultMaxDepth,
		fragments:     make(map[int]element.Origin),
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	f.reg = registry.New(f.storage)
	f.registerHelpers()
	return f, nil
}

// Format renders n with the format chosen by selector: nil (doctype or
// default format), an alias such as "html", a Format, or a FormatFactory.
// On error no output is returned, and the helpers and debug fragments the
// call recorded are forgotten.
func (f *Formatter) Format(n element.Node, selector any) (string, error) {
	if n == nil {
		return "", fmt.Errorf("formatter: cannot format a nil node")
	}
	required, fragment := f.reg.Checkpoint(), f.nextFragment
	out, err := f.formatTree(n, selector)
	if err != nil {
		f.reg.Rollback(required)
		for id := fragment + 1; id <= f.nextFragment; id++ {
			delete(f.fragments, id)
		}
		f.nextFragment = fragment
		return "", err
	}
	return out, nil
}

func (f *Formatter) formatTree(n element.Node, selector any) (string, error) {
	format, err := f.selectFormat(n, selector)
	if err != nil {
		return "", err
	}
	if err := f.install(format, n); err != nil {
		return "", err
	}

	f.mixins = collectMixins(n)
	f.frames = nil
	f.depth, f.level = 0, 0
	f.blockSeen = false
	f.keyVars, f.scopeVars = 0, 0

	body, err := f.render(n)
	if err != nil {
		log.Format("format failed: %v", err)
		return "", err
	}
	return f.finish(n, body)
}

// SourceMap returns the source map of the last successful Format call.
func (f *Formatter) SourceMap() *SourceMap {
	return f.sourceMap
}

// CurrentFormat returns the format of the last Format call.
func (f *Formatter) CurrentFormat() Format {
	return f.format
}

// Pattern renders a registered pattern with args. Without arguments a
// template is returned verbatim.
func (f *Formatter) Pattern(name string, args ...string) (string, error) {
	s, err := f.reg.Pattern(name, args...)
	if err != nil {
		return "", wrapRegistryError(nil, err)
	}
	return s, nil
}

// install loads the pattern table of format, then the option overrides.
func (f *Formatter) install(format Format, n element.Node) error {
	f.format = format
	for name, tmpl := range basicPatterns {
		f.reg.RegisterPattern(name, tmpl)
	}
	f.reg.RegisterPatternFunc("checked_variable", []string{"test_value"}, func(in []string, args ...string) string {
		ref, fallback := argAt(args, 0), argAt(args, 1)
		return "(" + registry.Sprintf(in[0], ref) + " ? " + ref + " : " + fallback + ")"
	})
	f.reg.RegisterPatternFunc("php_display_escaped", []string{"php_display_code", "html_expression_escape"}, func(in []string, args ...string) string {
		return registry.Sprintf(in[0], registry.Sprintf(in[1], args...))
	})
	for name, tmpl := range format.Patterns() {
		f.reg.RegisterPattern(name, tmpl)
	}
	for name, tmpl := range f.patterns {
		f.reg.RegisterPattern(name, tmpl)
	}
	for name, p := range f.patternFuncs {
		f.reg.RegisterPatternFunc(name, p.inputs, p.fn)
	}

	var err error
	if f.syntax.attribute, err = f.reg.Pattern("attribute_pattern"); err != nil {
		return wrapRegistryError(n, err)
	}
	if f.syntax.boolean, err = f.reg.Pattern("boolean_attribute_pattern"); err != nil {
		return wrapRegistryError(n, err)
	}
	if f.syntax.escape, err = f.reg.Pattern("html_expression_escape"); err != nil {
		return wrapRegistryError(n, err)
	}
	if f.fallback, err = f.reg.Pattern("empty_value"); err != nil {
		return wrapRegistryError(n, err)
	}

	var handlers map[phpexpr.TokenType]func(string) string
	if p, ok := format.(TokenHandlerProvider); ok {
		for t, pattern := range p.TokenHandlers() {
			if handlers == nil {
				handlers = make(map[phpexpr.TokenType]func(string) string)
			}
			handlers[t] = func(text string) string { return registry.Sprintf(pattern, text) }
		}
	}
	f.unchecked = &phpexpr.Rewriter{Handlers: handlers}
	f.checked = &phpexpr.Rewriter{Handlers: handlers, Guard: f.guard}
	return nil
}

// guard wraps a variable reference in the checked_variable pattern.
func (f *Formatter) guard(ref string) string {
	s, err := f.reg.Pattern("checked_variable", ref, f.fallback)
	if err != nil {
		f.guardErr = err
		return ref
	}
	return s
}

// php rewrites embedded code, guarding variables when checked.
func (f *Formatter) php(n element.Node, src string, checked bool) (string, error) {
	rw := f.unchecked
	if checked {
		rw = f.checked
	}
	f.guardErr = nil
	out, err := rw.Rewrite(src)
	if err != nil {
		var syn *phpexpr.SyntaxError
		if errors.As(err, &syn) {
			return "", &ExpressionSyntaxError{nodeError: nodeError{n}, Expression: src, Err: syn}
		}
		return "", err
	}
	if f.guardErr != nil {
		return "", wrapRegistryError(n, f.guardErr)
	}
	return out, nil
}

// pattern renders output text from a pattern on behalf of n.
func (f *Formatter) pattern(n element.Node, name string, args ...string) (string, error) {
	s, err := f.reg.Render(name, args...)
	if err != nil {
		return "", wrapRegistryError(n, err)
	}
	return s, nil
}

// nested wraps rendered markup so it can sit inside a PHP block.
func (f *Formatter) nested(n element.Node, markup string) (string, error) {
	return f.pattern(n, "php_nested_html", markup)
}

// mark returns the fragment sentinel of n, or "" when n has no origin.
func (f *Formatter) mark(n element.Node) string {
	o := n.Origin()
	if o == nil {
		return ""
	}
	origin := *o
	if origin.File == "" {
		origin.File = f.sourceFile
	}
	f.nextFragment++
	f.fragments[f.nextFragment] = origin
	return string(sentinelOpen) + strconv.Itoa(f.nextFragment) + string(sentinelClose)
}

// render dispatches on the node variant.
func (f *Formatter) render(n element.Node) (string, error) {
	f.depth++
	defer func() { f.depth-- }()
	if f.depth > f.maxDepth {
		return "", &MaxDepthExceededError{nodeError: nodeError{n}, Limit: f.maxDepth}
	}

	var (
		s   string
		err error
	)
	switch v := n.(type) {
	case *element.Markup:
		return f.renderMarkup(v)
	case *element.MixinDeclaration:
		return "", nil
	case *element.Document:
		s, err = f.renderChildren(v)
	case *element.Doctype:
		s, err = f.renderDoctype(v)
	case *element.Text:
		s = renderText(v)
	case *element.Code:
		s, err = f.renderCode(v)
	case *element.Expression:
		s, err = f.renderExpression(v)
	case *element.Variable:
		s, err = f.renderVariable(v)
	case *element.MixinCall:
		s, err = f.renderMixinCall(v)
	case *element.MixinBlock:
		s, err = f.renderMixinBlock(v)
	default:
		return "", &UnexpectedNodeError{nodeError{n}}
	}
	if err != nil {
		return "", err
	}
	return f.mark(n) + s, nil
}

// renderChildren concatenates the children of n. Consecutive texts are
// separated by a space unless the first is an end or the second is inline.
func (f *Formatter) renderChildren(n element.Node) (string, error) {
	var sb strings.Builder
	var prevText *element.Text
	for _, c := range n.Children() {
		s, err := f.render(c)
		if err != nil {
			return "", err
		}
		if t, ok := c.(*element.Text); ok {
			if prevText != nil && !prevText.End && !t.Inline {
				sb.WriteByte(' ')
			}
			prevText = t
		} else {
			prevText = nil
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

func (f *Formatter) renderDoctype(d *element.Doctype) (string, error) {
	if dt, ok := doctypeFor(d.Value); ok {
		return dt, nil
	}
	return f.pattern(d, "doctype")
}

func renderText(t *element.Text) string {
	if t.Escape {
		return html.EscapeString(t.Value)
	}
	return t.Value
}

// renderCode writes a statement. With children, a control structure keyword
// wraps them in a block; other statements are simply followed by them.
func (f *Formatter) renderCode(c *element.Code) (string, error) {
	code, err := f.php(c, c.Value, false)
	if err != nil {
		return "", err
	}
	if !c.HasChildren() {
		return f.pattern(c, "php_handle_code", code)
	}
	children, err := f.renderChildren(c)
	if err != nil {
		return "", err
	}
	if !blockKeywords[phpexpr.FirstKeyword(c.Value)] {
		stmt, err := f.pattern(c, "php_handle_code", code)
		if err != nil {
			return "", err
		}
		return stmt + children, nil
	}
	inner, err := f.nested(c, children)
	if err != nil {
		return "", err
	}
	block, err := f.pattern(c, "php_block_code", inner)
	if err != nil {
		return "", err
	}
	return f.pattern(c, "php_handle_code", code+block)
}

// renderExpression displays an expression. Scalar constants are written as
// text at compile time.
func (f *Formatter) renderExpression(e *element.Expression) (string, error) {
	if v, ok := f.constant(e); ok && isScalar(v) {
		s := phpexpr.ToString(v)
		if e.Escape {
			s = html.EscapeString(s)
		}
		return s, nil
	}
	code, err := f.php(e, e.Value, e.Checked)
	if err != nil {
		return "", err
	}
	if e.Escape {
		return f.pattern(e, "php_display_escaped", code)
	}
	return f.pattern(e, "php_display_code", code)
}

func (f *Formatter) renderVariable(v *element.Variable) (string, error) {
	if v.Value == nil {
		return "", &UnexpectedNodeError{nodeError{v}}
	}
	rhs, err := f.php(v.Value, v.Value.Value, v.Value.Checked)
	if err != nil {
		return "", err
	}
	return f.pattern(v, "php_handle_code", v.Name+" = "+rhs)
}

// constant folds e when its value is known at compile time. Inside a mixin
// expansion, $attributes is known when the call site's attributes are.
func (f *Formatter) constant(e *element.Expression) (phpexpr.Value, bool) {
	if strings.TrimSpace(e.Value) == "$attributes" {
		if fr := f.frame(); fr != nil && fr.static != nil {
			return fr.static, true
		}
		return nil, false
	}
	return phpexpr.Evaluate(e.Value)
}

func isScalar(v phpexpr.Value) bool {
	_, isArray := v.(*phpexpr.Array)
	return !isArray
}

// finish resolves fragment sentinels, trims the leading newline of pretty
// output, records the source map and applies the debug wrapper.
func (f *Formatter) finish(n element.Node, body string) (string, error) {
	f.sourceMap = NewSourceMap(f.sourceFile)

	var out output
	if f.debug {
		open, err := f.pattern(n, "php_handle_code", "$__pug_debug_id = 0; try {")
		if err != nil {
			return "", err
		}
		out.write(open)
	}

	leading := f.pretty
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == sentinelOpen {
			end := strings.IndexByte(body[i:], sentinelClose)
			if end > 0 {
				id, err := strconv.Atoi(body[i+1 : i+end])
				if err == nil {
					if err := f.fragment(n, &out, id); err != nil {
						return "", err
					}
					i += end
					continue
				}
			}
		}
		if leading && c == '\n' {
			leading = false
			continue
		}
		leading = false
		out.writeByte(c)
	}

	if f.debug {
		rethrow, err := f.reg.RequireHelper(helperDebugRethrow)
		if err != nil {
			return "", wrapRegistryError(n, err)
		}
		closing, err := f.pattern(n, "php_handle_code",
			"} catch (\\Throwable $__pug_error) { "+rethrow+"($__pug_error, $__pug_debug_id); }")
		if err != nil {
			return "", err
		}
		out.write(closing)
	}
	log.Format("rendered %d bytes, %d fragment(s)", out.Len(), len(f.sourceMap.Mappings))
	return out.String(), nil
}

// fragment records the output position of fragment id and writes its debug
// marker.
func (f *Formatter) fragment(n element.Node, out *output, id int) error {
	o, ok := f.fragments[id]
	if !ok {
		return nil
	}
	f.sourceMap.AddMapping(SourceMapping{
		ID:         id,
		OutputLine: out.line,
		OutputCol:  out.col,
		File:       o.File,
		Line:       o.Line,
		Offset:     o.Offset,
	})
	if !f.debug {
		return nil
	}
	marker, err := f.pattern(n, "php_handle_code", "$__pug_debug_id = "+strconv.Itoa(id)+";")
	if err != nil {
		return err
	}
	out.write(marker)
	return nil
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
