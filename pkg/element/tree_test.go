package element

import (
	"errors"
	"testing"
)

func names(nodes []Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		switch v := n.(type) {
		case *Markup:
			out = append(out, v.Name)
		case *Text:
			out = append(out, v.Value)
		default:
			out = append(out, "?")
		}
	}
	return out
}

func equalNames(a []string, b ...string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAppendChild_SetsParent(t *testing.T) {
	a, b := NewMarkup("a"), NewMarkup("b")
	root := NewMarkup("root", a, b)

	if got := names(root.Children()); !equalNames(got, "a", "b") {
		t.Fatalf("children = %v", got)
	}
	if a.Parent() != root || b.Parent() != root {
		t.Error("children should point to root")
	}
	if !root.HasChildren() || a.HasChildren() {
		t.Error("HasChildren mismatch")
	}
}

func TestAppendChild_MovesFromOldParent(t *testing.T) {
	child := NewMarkup("child")
	first := NewMarkup("first", child)
	second := NewMarkup("second")

	AppendChild(second, child)

	if len(first.Children()) != 0 {
		t.Error("child should be detached from its first parent")
	}
	if child.Parent() != second {
		t.Error("child should belong to second")
	}
}

func TestAppendChild_Cycle(t *testing.T) {
	inner := NewMarkup("inner")
	outer := NewMarkup("outer", inner)
	leaf := NewText("x")

	if err := AppendChild(inner, leaf, outer); !errors.Is(err, ErrCycle) {
		t.Fatalf("err = %v, want ErrCycle", err)
	}
	if outer.Parent() != nil {
		t.Error("outer must not be attached to its descendant")
	}
	if leaf.Parent() != inner {
		t.Error("children before the cycle stay appended")
	}
	if err := AppendChild(inner, nil); err != nil {
		t.Errorf("nil child: err = %v", err)
	}
}

func TestInsertChild(t *testing.T) {
	type tc struct {
		index int
		want  []string
	}

	tests := map[string]tc{
		"front":          {index: 0, want: []string{"x", "a", "b", "c"}},
		"middle":         {index: 2, want: []string{"a", "b", "x", "c"}},
		"end":            {index: 3, want: []string{"a", "b", "c", "x"}},
		"past end":       {index: 10, want: []string{"a", "b", "c", "x"}},
		"negative index": {index: -1, want: []string{"a", "b", "c", "x"}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			root := NewMarkup("root", NewMarkup("a"), NewMarkup("b"), NewMarkup("c"))
			if err := InsertChild(root, tt.index, NewMarkup("x")); err != nil {
				t.Fatal(err)
			}
			if got := names(root.Children()); !equalNames(got, tt.want...) {
				t.Errorf("children = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInsertChild_ReorderWithinParent(t *testing.T) {
	a, b, c := NewMarkup("a"), NewMarkup("b"), NewMarkup("c")
	root := NewMarkup("root", a, b, c)

	if err := InsertChild(root, 3, a); err != nil {
		t.Fatal(err)
	}
	if got := names(root.Children()); !equalNames(got, "b", "c", "a") {
		t.Errorf("children = %v", got)
	}
}

func TestInsertChild_Cycle(t *testing.T) {
	root := NewMarkup("root")
	if err := InsertChild(root, 0, root); !errors.Is(err, ErrCycle) {
		t.Errorf("err = %v, want ErrCycle", err)
	}
}

func TestRemoveChild(t *testing.T) {
	a, b, c := NewMarkup("a"), NewMarkup("b"), NewMarkup("c")
	root := NewMarkup("root", a, b, c)

	if !RemoveChild(root, b) {
		t.Fatal("RemoveChild should find b")
	}
	if got := names(root.Children()); !equalNames(got, "a", "c") {
		t.Errorf("children = %v", got)
	}
	if b.Parent() != nil {
		t.Error("removed child should have no parent")
	}
	if RemoveChild(root, b) {
		t.Error("second RemoveChild should report false")
	}

	RemoveAllChildren(root)
	if root.HasChildren() || a.Parent() != nil || c.Parent() != nil {
		t.Error("RemoveAllChildren should detach everything")
	}
}

func TestReplaceChild(t *testing.T) {
	a, b := NewMarkup("a"), NewMarkup("b")
	root := NewMarkup("root", a, b)
	r := NewMarkup("r")

	ok, err := ReplaceChild(root, a, r)
	if err != nil || !ok {
		t.Fatalf("ReplaceChild = %v, %v", ok, err)
	}
	if got := names(root.Children()); !equalNames(got, "r", "b") {
		t.Errorf("children = %v", got)
	}
	if a.Parent() != nil || r.Parent() != root {
		t.Error("parents not updated")
	}

	ok, err = ReplaceChild(root, a, NewMarkup("z"))
	if ok || err != nil {
		t.Errorf("replacing a non-child = %v, %v", ok, err)
	}

	inner := NewMarkup("inner")
	AppendChild(b, inner)
	if _, err := ReplaceChild(inner.Parent(), inner, root); !errors.Is(err, ErrCycle) {
		t.Errorf("err = %v, want ErrCycle", err)
	}
}

func TestReplaceChild_SiblingMove(t *testing.T) {
	a, b, c := NewMarkup("a"), NewMarkup("b"), NewMarkup("c")
	root := NewMarkup("root", a, b, c)

	if _, err := ReplaceChild(root, c, a); err != nil {
		t.Fatal(err)
	}
	if got := names(root.Children()); !equalNames(got, "b", "a") {
		t.Errorf("children = %v", got)
	}
}

func TestSiblingsAndDepth(t *testing.T) {
	leaf := NewText("leaf")
	a, b := NewMarkup("a", leaf), NewMarkup("b")
	doc := NewDocument(a, b)

	if NextSibling(a) != b || NextSibling(b) != nil {
		t.Error("NextSibling mismatch")
	}
	if PreviousSibling(b) != a || PreviousSibling(a) != nil {
		t.Error("PreviousSibling mismatch")
	}
	if NextSibling(doc) != nil || PreviousSibling(doc) != nil {
		t.Error("root has no siblings")
	}
	if Depth(doc) != 0 || Depth(a) != 1 || Depth(leaf) != 2 {
		t.Errorf("depths = %d %d %d", Depth(doc), Depth(a), Depth(leaf))
	}
}

func TestWalk(t *testing.T) {
	doc := NewDocument(
		NewMarkup("a", NewMarkup("skip", NewMarkup("hidden"))),
		NewMarkup("b", NewText("t")),
	)

	var visited []string
	Walk(doc, func(n Node) bool {
		if m, ok := n.(*Markup); ok {
			visited = append(visited, m.Name)
			return m.Name != "skip"
		}
		return true
	})

	if !equalNames(visited, "a", "skip", "b") {
		t.Errorf("visited = %v", visited)
	}
}

func TestAttributesAndAssignments(t *testing.T) {
	m := NewMarkup("div")
	href := NewAttribute("href", NewExpression("$url"))
	AddAttribute(m, href, nil)
	AddAssignment(m, NewAssignment("class", NewExpression("$classes")))

	if len(m.Attributes()) != 1 || href.Parent() != m {
		t.Fatal("attribute not attached")
	}
	if href.Value.Parent() != href {
		t.Error("attribute value should point to its attribute")
	}
	if got := m.Assignments()[0].Expressions(); len(got) != 1 || got[0].Value != "$classes" {
		t.Errorf("assignment expressions = %v", got)
	}

	SetAttributes(m, NewAttribute("id", NewText("x")))
	if len(m.Attributes()) != 1 || href.Parent() != nil {
		t.Error("SetAttributes should replace the set")
	}
	SetAssignments(m)
	if len(m.Assignments()) != 0 {
		t.Error("SetAssignments with no args should clear")
	}
}

func TestStaticName(t *testing.T) {
	if name, ok := NewMarkup("p").StaticName(); !ok || name != "p" {
		t.Errorf("StaticName = %q, %v", name, ok)
	}
	dyn := NewDynamicMarkup(NewExpression("$tag"))
	if _, ok := dyn.StaticName(); ok {
		t.Error("dynamic markup should have no static name")
	}
	if dyn.NameExpr.Parent() != dyn {
		t.Error("name expression should point to its markup")
	}
	attr := NewDynamicAttribute(NewExpression("$k"), NewText("v"))
	if _, ok := attr.StaticName(); ok {
		t.Error("dynamic attribute should have no static name")
	}
}

func TestNewMixinDeclaration(t *testing.T) {
	type tc struct {
		params       []string
		wantParams   []string
		wantVariadic string
		wantErr      bool
	}

	tests := map[string]tc{
		"plain": {
			params:     []string{"a", "$b"},
			wantParams: []string{"a", "b"},
		},
		"variadic": {
			params:       []string{"a", "...rest"},
			wantParams:   []string{"a"},
			wantVariadic: "rest",
		},
		"variadic with dollar": {
			params:       []string{"...$items"},
			wantVariadic: "items",
		},
		"variadic not last": {
			params:  []string{"...rest", "a"},
			wantErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			d, err := NewMixinDeclaration("m", tt.params)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !equalNames(d.Params, tt.wantParams...) {
				t.Errorf("params = %v, want %v", d.Params, tt.wantParams)
			}
			if d.Variadic != tt.wantVariadic {
				t.Errorf("variadic = %q, want %q", d.Variadic, tt.wantVariadic)
			}
		})
	}
}

func TestNewArgument(t *testing.T) {
	if a := NewArgument(" $x "); a.Packed || a.Expr.Value != "$x" {
		t.Errorf("NewArgument($x) = %+v", a)
	}
	if a := NewArgument("...$list"); !a.Packed || a.Expr.Value != "$list" {
		t.Errorf("NewArgument(...$list) = %+v", a)
	}
	call := NewMixinCall("m", NewArgument("1"))
	if call.Args[0].Expr.Parent() != call {
		t.Error("argument expression should point to its call")
	}
}

func TestOriginString(t *testing.T) {
	var nilOrigin *Origin
	tests := map[string]struct {
		o    *Origin
		want string
	}{
		"nil":       {o: nilOrigin, want: ""},
		"no file":   {o: &Origin{Line: 3, Offset: 4}, want: "3:4"},
		"with file": {o: &Origin{File: "a.pug", Line: 1, Offset: 0}, want: "a.pug:1:0"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := tt.o.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
