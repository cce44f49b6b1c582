package element

import (
	"encoding/json"
	"fmt"
)

// jsonNode is the wire form of a tree handed over by an external parser.
type jsonNode struct {
	Type        string           `json:"type"`
	Name        string           `json:"name,omitempty"`
	NameExpr    *jsonNode        `json:"nameExpr,omitempty"`
	Value       string           `json:"value,omitempty"`
	Expr        *jsonNode        `json:"expr,omitempty"`
	Escape      bool             `json:"escape,omitempty"`
	Unchecked   bool             `json:"unchecked,omitempty"`
	Inline      bool             `json:"inline,omitempty"`
	End         bool             `json:"end,omitempty"`
	AutoClosed  bool             `json:"autoClosed,omitempty"`
	Params      []string         `json:"params,omitempty"`
	Args        []string         `json:"args,omitempty"`
	Attributes  []jsonAttribute  `json:"attributes,omitempty"`
	Assignments []jsonAssignment `json:"assignments,omitempty"`
	Children    []*jsonNode      `json:"children,omitempty"`
	Origin      *Origin          `json:"origin,omitempty"`
}

type jsonAttribute struct {
	Name     string    `json:"name,omitempty"`
	NameExpr *jsonNode `json:"nameExpr,omitempty"`
	Value    *jsonNode `json:"value"`
	Origin   *Origin   `json:"origin,omitempty"`
}

type jsonAssignment struct {
	Name        string      `json:"name"`
	Expressions []*jsonNode `json:"expressions"`
	Origin      *Origin     `json:"origin,omitempty"`
}

// Decode builds a tree from its JSON wire form.
//
//	{"type": "markup", "name": "a",
//	 "attributes": [{"name": "href", "value": {"type": "expression", "value": "$url"}}],
//	 "children": [{"type": "text", "value": "home"}]}
func Decode(data []byte) (Node, error) {
	var root jsonNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decoding element tree: %w", err)
	}
	return root.build()
}

func (j *jsonNode) build() (Node, error) {
	if j == nil {
		return nil, fmt.Errorf("element: missing node")
	}
	var n Node
	switch j.Type {
	case "document":
		n = &Document{}
	case "doctype":
		n = NewDoctype(j.Value)
	case "markup":
		m := &Markup{Name: j.Name, AutoClosed: j.AutoClosed}
		if j.NameExpr != nil {
			e, err := j.NameExpr.expression()
			if err != nil {
				return nil, err
			}
			m.NameExpr = e
			e.parent = m
		}
		if err := j.buildAttributes(m); err != nil {
			return nil, err
		}
		n = m
	case "text":
		n = &Text{Value: j.Value, Escape: j.Escape, Inline: j.Inline, End: j.End}
	case "code":
		n = NewCode(j.Value)
	case "expression":
		n = &Expression{Value: j.Value, Escape: j.Escape, Checked: !j.Unchecked}
	case "mixin":
		d, err := NewMixinDeclaration(j.Name, j.Params)
		if err != nil {
			return nil, err
		}
		n = d
	case "call":
		args := make([]*Argument, 0, len(j.Args))
		for _, a := range j.Args {
			args = append(args, NewArgument(a))
		}
		c := NewMixinCall(j.Name, args...)
		if err := j.buildAttributes(c); err != nil {
			return nil, err
		}
		n = c
	case "block":
		n = NewMixinBlock()
	case "variable":
		e, err := j.Expr.expression()
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", j.Name, err)
		}
		n = NewVariable(j.Name, e)
	default:
		return nil, fmt.Errorf("element: unknown node type %q", j.Type)
	}
	n.SetOrigin(j.Origin)
	for _, c := range j.Children {
		child, err := c.build()
		if err != nil {
			return nil, err
		}
		if err := InsertChild(n, len(n.Children()), child); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (j *jsonNode) expression() (*Expression, error) {
	n, err := j.build()
	if err != nil {
		return nil, err
	}
	e, ok := n.(*Expression)
	if !ok {
		return nil, fmt.Errorf("element: expected expression, got %q", j.Type)
	}
	return e, nil
}

func (j *jsonNode) buildAttributes(owner AttributedNode) error {
	for _, ja := range j.Attributes {
		// An attribute without value is a boolean one.
		var value Node
		if ja.Value != nil {
			v, err := ja.Value.build()
			if err != nil {
				return fmt.Errorf("attribute %s: %w", ja.Name, err)
			}
			value = v
		}
		var a *Attribute
		if ja.NameExpr != nil {
			key, err := ja.NameExpr.expression()
			if err != nil {
				return err
			}
			a = NewDynamicAttribute(key, value)
		} else {
			a = NewAttribute(ja.Name, value)
		}
		a.SetOrigin(ja.Origin)
		AddAttribute(owner, a)
	}
	for _, jas := range j.Assignments {
		as := NewAssignment(jas.Name)
		for _, je := range jas.Expressions {
			e, err := je.expression()
			if err != nil {
				return fmt.Errorf("assignment %s: %w", jas.Name, err)
			}
			AppendChild(as, e)
		}
		as.SetOrigin(jas.Origin)
		AddAssignment(owner, as)
	}
	return nil
}
