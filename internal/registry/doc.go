// Package registry holds the named syntax patterns and the lazily emitted
// runtime helpers of one compilation session.
//
// Patterns are PHP sprintf templates or producer functions whose inputs are
// other patterns, resolved at call time. Helpers are declared eagerly with
// their dependencies and only emitted once required; [Registry.Dependencies]
// returns the transitive closure of the required set in dependency order.
package registry
