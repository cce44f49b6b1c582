// Package element defines the input tree consumed by the formatter.
//
// A tree is produced by an external parser. Each construct is one variant of
// the [Node] sum type:
//   - [Document], [Doctype]: roots and document type declarations
//   - [Markup], [Attribute], [Assignment]: tags and their attribute bundles
//   - [Text], [Code], [Expression], [Variable]: literal text and embedded PHP
//   - [MixinDeclaration], [MixinCall], [MixinBlock]: reusable fragments
//
// Nodes are treated as read-only by the formatter except through the narrow
// mutation API in tree.go, which keeps parent and child links consistent.
package element
