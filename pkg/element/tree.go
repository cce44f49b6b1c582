package element

import "errors"

// ErrCycle is returned when a node would become its own ancestor.
var ErrCycle = errors.New("element: node cannot be appended to its own descendant")

// AppendChild appends children to parent. A child that already has a parent
// is detached from it first. Nil children are ignored. Appending an ancestor
// of parent fails with ErrCycle; children before it stay appended.
func AppendChild(parent Node, children ...Node) error {
	for _, child := range children {
		if child == nil {
			continue
		}
		if err := InsertChild(parent, len(parent.base().children), child); err != nil {
			return err
		}
	}
	return nil
}

// InsertChild inserts child at index i of parent's children.
func InsertChild(parent Node, i int, child Node) error {
	if isAncestor(child, parent) {
		return ErrCycle
	}
	if old := child.base().parent; old != nil {
		if old == parent {
			if idx := indexOf(old, child); idx >= 0 && idx < i {
				i--
			}
		}
		RemoveChild(old, child)
	}
	t := parent.base()
	if i < 0 || i > len(t.children) {
		i = len(t.children)
	}
	t.children = append(t.children, nil)
	copy(t.children[i+1:], t.children[i:])
	t.children[i] = child
	child.base().parent = parent
	return nil
}

// RemoveChild removes child from parent, preserving the order of the
// remaining children. Returns true if the child was found and removed.
func RemoveChild(parent, child Node) bool {
	t := parent.base()
	i := indexOf(parent, child)
	if i < 0 {
		return false
	}
	t.children = append(t.children[:i], t.children[i+1:]...)
	child.base().parent = nil
	return true
}

// RemoveAllChildren detaches every child of parent.
func RemoveAllChildren(parent Node) {
	t := parent.base()
	for _, child := range t.children {
		child.base().parent = nil
	}
	t.children = nil
}

// ReplaceChild puts replacement in the position of old.
// Returns false if old is not a child of parent.
func ReplaceChild(parent, old, replacement Node) (bool, error) {
	i := indexOf(parent, old)
	if i < 0 {
		return false, nil
	}
	if isAncestor(replacement, parent) {
		return false, ErrCycle
	}
	if p := replacement.base().parent; p != nil {
		RemoveChild(p, replacement)
		i = indexOf(parent, old)
	}
	t := parent.base()
	t.children[i] = replacement
	old.base().parent = nil
	replacement.base().parent = parent
	return true, nil
}

// SetAttributes replaces the attribute set of n.
func SetAttributes(n AttributedNode, attrs ...*Attribute) {
	s := n.set()
	for _, a := range s.attributes {
		a.parent = nil
	}
	s.attributes = nil
	AddAttribute(n, attrs...)
}

// AddAttribute appends attributes to n.
func AddAttribute(n AttributedNode, attrs ...*Attribute) {
	s := n.set()
	for _, a := range attrs {
		if a == nil {
			continue
		}
		a.parent = n
		s.attributes = append(s.attributes, a)
	}
}

// SetAssignments replaces the assignment set of n.
func SetAssignments(n AttributedNode, assignments ...*Assignment) {
	s := n.set()
	for _, a := range s.assignments {
		a.parent = nil
	}
	s.assignments = nil
	AddAssignment(n, assignments...)
}

// AddAssignment appends assignment bundles to n.
func AddAssignment(n AttributedNode, assignments ...*Assignment) {
	s := n.set()
	for _, a := range assignments {
		if a == nil {
			continue
		}
		a.parent = n
		s.assignments = append(s.assignments, a)
	}
}

// NextSibling returns the node following n under the same parent.
func NextSibling(n Node) Node {
	p := n.Parent()
	if p == nil {
		return nil
	}
	siblings := p.Children()
	if i := indexOf(p, n); i >= 0 && i+1 < len(siblings) {
		return siblings[i+1]
	}
	return nil
}

// PreviousSibling returns the node preceding n under the same parent.
func PreviousSibling(n Node) Node {
	p := n.Parent()
	if p == nil {
		return nil
	}
	if i := indexOf(p, n); i > 0 {
		return p.Children()[i-1]
	}
	return nil
}

// Walk visits n and its descendants depth-first. Returning false from fn
// skips the children of the visited node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}

// Depth returns the number of ancestors of n.
func Depth(n Node) int {
	d := 0
	for p := n.Parent(); p != nil; p = p.Parent() {
		d++
	}
	return d
}

func indexOf(parent, child Node) int {
	for i, c := range parent.base().children {
		if c == child {
			return i
		}
	}
	return -1
}

// isAncestor reports whether a is n or one of n's ancestors.
func isAncestor(a, n Node) bool {
	for p := n; p != nil; p = p.Parent() {
		if p == a {
			return true
		}
	}
	return false
}
