package element

import (
	"strings"
	"testing"
)

func TestDecode(t *testing.T) {
	input := `{
	  "type": "document",
	  "children": [
	    {"type": "doctype", "value": " html "},
	    {"type": "markup", "name": "a", "origin": {"file": "page.pug", "line": 2, "offset": 4},
	     "attributes": [
	       {"name": "href", "value": {"type": "expression", "value": "$url"}},
	       {"nameExpr": {"type": "expression", "value": "$key", "unchecked": true},
	        "value": {"type": "text", "value": "x", "escape": true}}
	     ],
	     "assignments": [
	       {"name": "class", "expressions": [{"type": "expression", "value": "$classes"}]}
	     ],
	     "children": [{"type": "text", "value": "home", "inline": true}]},
	    {"type": "mixin", "name": "card", "params": ["title", "...rest"],
	     "children": [{"type": "block"}]},
	    {"type": "call", "name": "card", "args": ["'Hi'", "...$more"]},
	    {"type": "variable", "name": "$title", "expr": {"type": "expression", "value": "'T'"}},
	    {"type": "code", "value": "if ($a)", "children": [{"type": "expression", "value": "$a", "escape": true}]},
	    {"type": "markup", "nameExpr": {"type": "expression", "value": "$tag"}, "autoClosed": true}
	  ]
	}`

	root, err := Decode([]byte(input))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	doc, ok := root.(*Document)
	if !ok {
		t.Fatalf("root is %T", root)
	}
	kids := doc.Children()
	if len(kids) != 7 {
		t.Fatalf("got %d children", len(kids))
	}

	if dt := kids[0].(*Doctype); dt.Value != "html" {
		t.Errorf("doctype = %q", dt.Value)
	}

	a := kids[1].(*Markup)
	if a.Name != "a" || a.Origin().String() != "page.pug:2:4" {
		t.Errorf("markup = %q at %s", a.Name, a.Origin())
	}
	if len(a.Attributes()) != 2 {
		t.Fatalf("attributes = %d", len(a.Attributes()))
	}
	href := a.Attributes()[0]
	if e, ok := href.Value.(*Expression); !ok || e.Value != "$url" || !e.Checked {
		t.Errorf("href value = %#v", href.Value)
	}
	dyn := a.Attributes()[1]
	if dyn.NameExpr == nil || dyn.NameExpr.Checked {
		t.Errorf("dynamic key = %#v", dyn.NameExpr)
	}
	if txt, ok := dyn.Value.(*Text); !ok || !txt.Escape {
		t.Errorf("dynamic value = %#v", dyn.Value)
	}
	if got := a.Assignments()[0].Expressions(); len(got) != 1 || got[0].Value != "$classes" {
		t.Errorf("assignment = %v", got)
	}
	if txt := a.Children()[0].(*Text); !txt.Inline || txt.Value != "home" {
		t.Errorf("text = %#v", txt)
	}

	mixin := kids[2].(*MixinDeclaration)
	if mixin.Variadic != "rest" || len(mixin.Params) != 1 {
		t.Errorf("mixin = %#v", mixin)
	}
	if _, ok := mixin.Children()[0].(*MixinBlock); !ok {
		t.Error("mixin body should hold a block")
	}

	call := kids[3].(*MixinCall)
	if len(call.Args) != 2 || call.Args[0].Packed || !call.Args[1].Packed {
		t.Errorf("call args = %#v", call.Args)
	}

	v := kids[4].(*Variable)
	if v.Name != "$title" || v.Value.Value != "'T'" {
		t.Errorf("variable = %#v", v)
	}

	code := kids[5].(*Code)
	if code.Value != "if ($a)" || !code.Children()[0].(*Expression).Escape {
		t.Errorf("code = %#v", code)
	}

	tag := kids[6].(*Markup)
	if _, ok := tag.StaticName(); ok || !tag.AutoClosed {
		t.Errorf("dynamic markup = %#v", tag)
	}
}

func TestDecode_Errors(t *testing.T) {
	type tc struct {
		input   string
		wantErr string
	}

	tests := map[string]tc{
		"invalid json": {
			input:   `{"type":`,
			wantErr: "decoding element tree",
		},
		"unknown type": {
			input:   `{"type": "widget"}`,
			wantErr: `unknown node type "widget"`,
		},
		"variable without expression": {
			input:   `{"type": "variable", "name": "$a"}`,
			wantErr: "missing node",
		},
		"name expression of wrong type": {
			input:   `{"type": "markup", "nameExpr": {"type": "text", "value": "x"}}`,
			wantErr: "expected expression",
		},
		"variadic parameter not last": {
			input:   `{"type": "mixin", "name": "m", "params": ["...a", "b"]}`,
			wantErr: "must be last",
		},
		"attribute with bad value": {
			input:   `{"type": "markup", "name": "a", "attributes": [{"name": "x", "value": {"type": "widget"}}]}`,
			wantErr: "attribute x",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestDecode_BooleanAttribute(t *testing.T) {
	n, err := Decode([]byte(`{"type": "markup", "name": "input", "attributes": [{"name": "checked"}]}`))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	attrs := n.(*Markup).Attributes()
	if len(attrs) != 1 || attrs[0].Name != "checked" || attrs[0].Value != nil {
		t.Errorf("attributes = %#v, want one valueless attribute", attrs)
	}
}
