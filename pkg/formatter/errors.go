package formatter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/grindlemire/go-pugfmt/internal/registry"
	"github.com/grindlemire/go-pugfmt/pkg/element"
	"github.com/grindlemire/go-pugfmt/pkg/phpexpr"
)

// FormatterError is implemented by every error raised while formatting a
// tree. Node returns the element being formatted when the error occurred,
// which may be nil for errors raised before the walk starts.
type FormatterError interface {
	error
	Node() element.Node
}

// nodeError carries the offending node and renders its origin.
type nodeError struct {
	node element.Node
}

// Node returns the element the error was raised for.
func (e nodeError) Node() element.Node { return e.node }

// message renders msg prefixed with the node's origin, if any:
// "file:line:offset: error: msg".
func (e nodeError) message(msg string) string {
	var sb strings.Builder
	if e.node != nil {
		if o := e.node.Origin(); o != nil {
			sb.WriteString(o.String())
			sb.WriteString(": ")
		}
	}
	sb.WriteString("error: ")
	sb.WriteString(msg)
	return sb.String()
}

// InvalidFormatError reports a format selector that does not yield a usable
// Format.
type InvalidFormatError struct {
	nodeError
	Selector string
	Reason   string
	Missing  []string // required patterns the format does not provide
}

func (e *InvalidFormatError) Error() string {
	msg := fmt.Sprintf("invalid format %s: %s", e.Selector, e.Reason)
	if len(e.Missing) > 0 {
		msg += " (missing " + strings.Join(e.Missing, ", ") + ")"
	}
	return e.message(msg)
}

// UnknownPatternError reports a pattern or helper that was never registered.
type UnknownPatternError struct {
	nodeError
	Name   string
	Helper bool
	Err    error
}

func (e *UnknownPatternError) Error() string {
	kind := "pattern"
	if e.Helper {
		kind = "helper"
	}
	return e.message(fmt.Sprintf("unknown %s %q", kind, e.Name))
}

func (e *UnknownPatternError) Unwrap() error { return e.Err }

// CyclicPatternError reports a pattern or helper that depends on itself.
type CyclicPatternError struct {
	nodeError
	Chain []string
	Err   error
}

func (e *CyclicPatternError) Error() string {
	return e.message("cyclic pattern dependency: " + strings.Join(e.Chain, " -> "))
}

func (e *CyclicPatternError) Unwrap() error { return e.Err }

// ExpressionSyntaxError reports embedded code that cannot be tokenized.
type ExpressionSyntaxError struct {
	nodeError
	Expression string
	Err        *phpexpr.SyntaxError
}

func (e *ExpressionSyntaxError) Error() string {
	return e.message(fmt.Sprintf("invalid expression %q: %s at offset %d", e.Expression, e.Err.Message, e.Err.Offset))
}

func (e *ExpressionSyntaxError) Unwrap() error { return e.Err }

// IncompatibleChildrenError reports a self-closing tag that has children.
type IncompatibleChildrenError struct {
	nodeError
	Tag string
}

func (e *IncompatibleChildrenError) Error() string {
	return e.message(fmt.Sprintf("<%s> is self-closing and cannot have children", e.Tag))
}

// UnhandledAssignmentError reports an assignment no handler consumed.
type UnhandledAssignmentError struct {
	nodeError
	Name string
}

func (e *UnhandledAssignmentError) Error() string {
	return e.message(fmt.Sprintf("unable to handle &%s assignment", e.Name))
}

// UndeclaredMixinError reports a call of a mixin that was never declared.
type UndeclaredMixinError struct {
	nodeError
	Name string
}

func (e *UndeclaredMixinError) Error() string {
	return e.message(fmt.Sprintf("unknown mixin %q", e.Name))
}

// MaxDepthExceededError reports a tree, or a mixin recursion, deeper than
// the configured limit.
type MaxDepthExceededError struct {
	nodeError
	Limit int
}

func (e *MaxDepthExceededError) Error() string {
	return e.message(fmt.Sprintf("maximum nesting depth of %d exceeded", e.Limit))
}

// UnexpectedNodeError reports a node kind that cannot appear where it was
// found, e.g. an attribute in a child list.
type UnexpectedNodeError struct {
	nodeError
}

func (e *UnexpectedNodeError) Error() string {
	return e.message(fmt.Sprintf("unexpected %T in children", e.node))
}

// LocatedError is a failure translated back to template coordinates.
type LocatedError struct {
	Origin element.Origin
	Err    error
}

func (e *LocatedError) Error() string {
	return e.Origin.String() + ": error: " + e.Err.Error()
}

func (e *LocatedError) Unwrap() error { return e.Err }

// wrapRegistryError attaches n to an error returned by the registry.
func wrapRegistryError(n element.Node, err error) error {
	var unknownPattern *registry.UnknownPatternError
	var unknownHelper *registry.UnknownHelperError
	var cyclic *registry.CyclicPatternError
	switch {
	case errors.As(err, &unknownPattern):
		return &UnknownPatternError{nodeError: nodeError{n}, Name: unknownPattern.Name, Err: err}
	case errors.As(err, &unknownHelper):
		return &UnknownPatternError{nodeError: nodeError{n}, Name: unknownHelper.Name, Helper: true, Err: err}
	case errors.As(err, &cyclic):
		return &CyclicPatternError{nodeError: nodeError{n}, Chain: cyclic.Chain, Err: err}
	}
	return err
}
