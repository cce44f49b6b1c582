package formatter

import (
	"strconv"
	"strings"

	"github.com/grindlemire/go-pugfmt/internal/log"
	"github.com/grindlemire/go-pugfmt/pkg/element"
	"github.com/grindlemire/go-pugfmt/pkg/phpexpr"
)

// Binding is the result of matching a mixin call against its declaration.
type Binding struct {
	// Params has one entry per declared parameter, in order.
	Params []ParamBinding
	// Rest are the surplus positional arguments bound to the variadic
	// parameter.
	Rest []*element.Argument
	// Dropped are surplus positional arguments of a mixin without variadic
	// parameter.
	Dropped []*element.Argument
	// Attributes are the call attributes not consumed as named parameters.
	Attributes []*element.Attribute
	// Runtime is set when a packed argument makes the binding depend on a
	// length only known at runtime. Params then only hold the positional
	// arguments written before the first packed one.
	Runtime bool
}

// ParamBinding binds one declared parameter to a positional argument or a
// same-named call attribute. Both are nil for an unbound parameter.
type ParamBinding struct {
	Name      string
	Arg       *element.Argument
	Attribute *element.Attribute
}

// Bound reports whether the parameter received a value.
func (p ParamBinding) Bound() bool {
	return p.Arg != nil || p.Attribute != nil
}

// Bind matches call against decl. Positional arguments bind left to right,
// surplus ones go to the variadic parameter or are dropped, and static call
// attributes named like an unbound parameter bind to it.
func Bind(decl *element.MixinDeclaration, call *element.MixinCall) (*Binding, error) {
	if decl == nil {
		return nil, &UndeclaredMixinError{nodeError: nodeError{call}, Name: call.Name}
	}
	b := &Binding{}
	positional := call.Args
	for i, a := range call.Args {
		if a.Packed {
			positional = call.Args[:i]
			b.Runtime = true
			break
		}
	}

	used := make(map[*element.Attribute]bool)
	for i, name := range decl.Params {
		p := ParamBinding{Name: name}
		if i < len(positional) {
			p.Arg = positional[i]
		} else if !b.Runtime {
			p.Attribute = namedAttribute(call, name, used)
		}
		b.Params = append(b.Params, p)
	}

	if !b.Runtime && len(call.Args) > len(decl.Params) {
		surplus := call.Args[len(decl.Params):]
		if decl.Variadic != "" {
			b.Rest = surplus
		} else {
			b.Dropped = surplus
		}
	}

	for _, a := range call.Attributes() {
		if !used[a] {
			b.Attributes = append(b.Attributes, a)
		}
	}
	return b, nil
}

// namedAttribute returns the first unused static attribute called name.
func namedAttribute(call *element.MixinCall, name string, used map[*element.Attribute]bool) *element.Attribute {
	for _, a := range call.Attributes() {
		if key, ok := a.StaticName(); ok && key == name && !used[a] {
			used[a] = true
			return a
		}
	}
	return nil
}

// mixinFrame is the expansion being rendered.
type mixinFrame struct {
	name string
	// static holds the call attributes when known at compile time, which
	// lets $attributes fold inside the body.
	static *phpexpr.Array
}

func (f *Formatter) frame() *mixinFrame {
	if len(f.frames) == 0 {
		return nil
	}
	return f.frames[len(f.frames)-1]
}

// collectMixins indexes declarations by name. A later declaration replaces
// an earlier one.
func collectMixins(n element.Node) map[string]*element.MixinDeclaration {
	mixins := make(map[string]*element.MixinDeclaration)
	element.Walk(n, func(c element.Node) bool {
		if d, ok := c.(*element.MixinDeclaration); ok {
			mixins[d.Name] = d
			return false
		}
		return true
	})
	return mixins
}

// renderMixinCall expands the declaration body inside an immediately invoked
// closure receiving the call attributes, the children block and the
// arguments.
func (f *Formatter) renderMixinCall(call *element.MixinCall) (string, error) {
	decl, ok := f.mixins[call.Name]
	if !ok {
		return "", &UndeclaredMixinError{nodeError: nodeError{call}, Name: call.Name}
	}
	b, err := Bind(decl, call)
	if err != nil {
		return "", err
	}
	if len(b.Dropped) > 0 {
		log.Mixin("%s: dropping %d surplus argument(s)", call.Name, len(b.Dropped))
	}

	var prelude string
	children := "null"
	if call.HasChildren() {
		body, err := f.renderChildren(call)
		if err != nil {
			return "", err
		}
		scope := "$__pug_scope_" + strconv.Itoa(f.scopeVars)
		f.scopeVars++
		inner, err := f.nested(call, body)
		if err != nil {
			return "", err
		}
		prelude = scope + " = get_defined_vars(); "
		children = "function () use (" + f.closureUses(scope) + ") { extract(" + scope + ");" + inner + "}"
	}

	attrs, static, err := f.callAttributes(call, decl, b)
	if err != nil {
		return "", err
	}
	args, err := f.callArguments(call, decl, b)
	if err != nil {
		return "", err
	}
	if b.Runtime && decl.Variadic == "attributes" {
		// The surplus is only known at runtime: evaluate the arguments once,
		// pass the leading ones as parameters and merge the rest.
		list, err := f.argumentList(call)
		if err != nil {
			return "", err
		}
		argsVar := "$__pug_args_" + strconv.Itoa(f.scopeVars)
		f.scopeVars++
		accessor, err := f.reg.RequireHelper(helperMergeAttributes)
		if err != nil {
			return "", wrapRegistryError(call, err)
		}
		n := strconv.Itoa(len(decl.Params))
		prelude += argsVar + " = " + list + "; "
		attrs = accessor + "(" + attrs + ", ...array_slice(" + argsVar + ", " + n + "))"
		static = nil
		args = []string{"...array_slice(" + argsVar + ", 0, " + n + ")"}
		log.Mixin("%s: merging spread arguments into attributes at runtime", call.Name)
	}

	params := []string{"$attributes", "$__pug_children"}
	for _, p := range decl.Params {
		params = append(params, "$"+p+" = null")
	}
	// A variadic attributes sink is already merged into $attributes.
	if decl.Variadic != "" && decl.Variadic != "attributes" {
		params = append(params, "...$"+decl.Variadic)
	}

	log.Mixin("expanding %s (depth %d)", call.Name, len(f.frames)+1)
	f.frames = append(f.frames, &mixinFrame{name: call.Name, static: static})
	body, err := f.renderChildren(decl)
	f.frames = f.frames[:len(f.frames)-1]
	if err != nil {
		return "", err
	}
	inner, err := f.nested(call, body)
	if err != nil {
		return "", err
	}

	invoke := append([]string{attrs, children}, args...)
	code := prelude + "(function (" + strings.Join(params, ", ") + ") use (" + f.closureUses() + ") {" +
		inner + "})(" + strings.Join(invoke, ", ") + ");"
	return f.pattern(call, "php_handle_code", code)
}

// renderMixinBlock calls the children block of the current expansion.
// Outside a mixin it renders nothing.
func (f *Formatter) renderMixinBlock(b *element.MixinBlock) (string, error) {
	if f.frame() == nil {
		return "", nil
	}
	return f.pattern(b, "php_handle_code", "if ($__pug_children) { $__pug_children(); }")
}

// closureUses lists the variables captured by reference by generated
// closures.
func (f *Formatter) closureUses(extra ...string) string {
	uses := []string{"&$" + f.reg.StorageName()}
	if f.debug {
		uses = append(uses, "&$__pug_debug_id")
	}
	for _, v := range extra {
		uses = append(uses, "&"+v)
	}
	return strings.Join(uses, ", ")
}

// callAttributes returns the code of the $attributes argument and its value
// when known at compile time. Surplus arguments of a mixin whose variadic
// parameter is named attributes are merged in as attribute sets.
func (f *Formatter) callAttributes(call *element.MixinCall, decl *element.MixinDeclaration, b *Binding) (string, *phpexpr.Array, error) {
	assignments, err := f.resolveAssignments(call)
	if err != nil {
		return "", nil, err
	}
	cs, err := f.contributions(b.Attributes, assignments)
	if err != nil {
		return "", nil, err
	}
	if decl.Variadic == "attributes" {
		for _, a := range b.Rest {
			c, err := f.assignmentContribution("attributes", a.Expr)
			if err != nil {
				return "", nil, err
			}
			cs = append(cs, c)
		}
	}

	if sets, ok := constantSets(cs); ok {
		merged := MergeAttributes(sets...)
		return valueLiteral(merged), merged, nil
	}
	codes := setCodes(cs)
	if len(codes) == 1 && cs[0].entry != "" && len(cs) == len(b.Attributes) && !duplicateKeys(cs) {
		return codes[0], nil, nil
	}
	accessor, err := f.reg.RequireHelper(helperMergeAttributes)
	if err != nil {
		return "", nil, wrapRegistryError(call, err)
	}
	return accessor + "(" + strings.Join(codes, ", ") + ")", nil, nil
}

// duplicateKeys reports static keys given more than once.
func duplicateKeys(cs []contribution) bool {
	seen := make(map[string]bool)
	for _, c := range cs {
		if c.key == "" {
			continue
		}
		if seen[c.key] {
			return true
		}
		seen[c.key] = true
	}
	return false
}

// callArguments returns the argument codes passed after $attributes and
// $__pug_children.
func (f *Formatter) callArguments(call *element.MixinCall, decl *element.MixinDeclaration, b *Binding) ([]string, error) {
	if b.Runtime {
		return f.spreadArguments(call)
	}

	var args []string
	for _, p := range b.Params {
		switch {
		case p.Arg != nil:
			code, err := f.php(p.Arg.Expr, p.Arg.Expr.Value, p.Arg.Expr.Checked)
			if err != nil {
				return nil, err
			}
			args = append(args, code)
		case p.Attribute != nil:
			_, _, code, err := f.attributeValue(p.Attribute)
			if err != nil {
				return nil, err
			}
			args = append(args, code)
		default:
			args = append(args, "null")
		}
	}
	if decl.Variadic != "" && decl.Variadic != "attributes" {
		for _, a := range b.Rest {
			code, err := f.php(a.Expr, a.Expr.Value, a.Expr.Checked)
			if err != nil {
				return nil, err
			}
			args = append(args, code)
		}
	}
	for len(args) > 0 && args[len(args)-1] == "null" {
		args = args[:len(args)-1]
	}
	return args, nil
}

// spreadArguments passes the call arguments as written. When a positional
// argument follows a packed one, all arguments are combined with array_merge
// and spread once, since PHP rejects positional arguments after unpacking.
func (f *Formatter) spreadArguments(call *element.MixinCall) ([]string, error) {
	codes, err := f.argumentCodes(call)
	if err != nil {
		return nil, err
	}
	mixed, packedSeen := false, false
	for _, a := range call.Args {
		if a.Packed {
			packedSeen = true
		} else if packedSeen {
			mixed = true
		}
	}
	if mixed {
		return []string{"..." + mergedArguments(call, codes)}, nil
	}
	args := make([]string, len(codes))
	for i, a := range call.Args {
		args[i] = codes[i]
		if a.Packed {
			args[i] = "..." + codes[i]
		}
	}
	return args, nil
}

// argumentList returns code building the flat list of all call arguments.
func (f *Formatter) argumentList(call *element.MixinCall) (string, error) {
	codes, err := f.argumentCodes(call)
	if err != nil {
		return "", err
	}
	return mergedArguments(call, codes), nil
}

// argumentCodes rewrites the call arguments. A guard would replace an
// undefined list with '', which cannot be unpacked, so packed arguments are
// left unchecked.
func (f *Formatter) argumentCodes(call *element.MixinCall) ([]string, error) {
	codes := make([]string, len(call.Args))
	for i, a := range call.Args {
		code, err := f.php(a.Expr, a.Expr.Value, a.Expr.Checked && !a.Packed)
		if err != nil {
			return nil, err
		}
		codes[i] = code
	}
	return codes, nil
}

// mergedArguments joins runs of plain arguments into array literals and
// combines them with the packed ones through array_merge.
func mergedArguments(call *element.MixinCall, codes []string) string {
	var parts, plain []string
	flush := func() {
		if len(plain) > 0 {
			parts = append(parts, "["+strings.Join(plain, ", ")+"]")
			plain = nil
		}
	}
	for i, a := range call.Args {
		if !a.Packed {
			plain = append(plain, codes[i])
			continue
		}
		flush()
		parts = append(parts, codes[i])
		log.Mixin("%s: spreading %s at runtime", call.Name, a.Expr.Value)
	}
	flush()
	return "array_merge(" + strings.Join(parts, ", ") + ")"
}
