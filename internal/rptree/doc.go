// Package rptree implements random projection trees and ensembles of them.
//
// # Tree Layout
//
// A tree is an arena of nodes addressed by int32 index; the root is node 0.
// Split nodes carry a projection vector, a threshold and two child indices.
// Leaves carry the ordinals (positions in the population snapshot) of the
// vectors routed to them. Every ordinal appears in exactly one leaf.
//
// # Construction
//
// Each split draws a fresh standard-normal projection vector and splits at
// the median projected value: projection < threshold goes left, everything
// else goes right. Recursion stops at the configured depth, at sets of one
// element, or when a split would leave one side empty (a degenerate
// direction). The last case is expected for identical or collinear inputs.
//
// # Determinism
//
// Tree i of an ensemble draws from its own PCG stream seeded by
// xxhash(seed, i), so a tree's shape depends only on the seed, its index and
// the population, never on how many trees are built or in which order.
package rptree
