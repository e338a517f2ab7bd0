// Package ast defines the typed representation of a loaded rule catalog:
// rules, their condition trees and the diagnostic events they emit.
//
// Condition trees are a tagged variant: a node is either a combinator
// (all/any) over child nodes or a leaf comparing a single fact against a
// value. Comparison values are themselves tagged: a literal, a dictionary
// reference (resolved at catalog load time) or a fact reference (resolved
// per request against the fact table). A fully loaded catalog contains no
// dictionary references, and a request-resolved rule set contains no fact
// references.
//
// All types are immutable after load. Clone produces the deep copies the
// per-request resolution steps work on.
package ast
