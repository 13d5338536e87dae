// Package indexing computes, per synapse matrix representation, the
// integer expressions that address weights, pre-indices, post-indices,
// and bitmask bits (§4.4).
//
// Polymorphism over connectivity kind is four closed variants (DENSE,
// BITMASK, SPARSE_YALE, SPARSE_RAGGED); this package is the single
// dispatch point every other pass goes through rather than each having
// its own type switch. Adding a fifth kind is then a single new case in
// each of the methods below.
package indexing

import (
	"fmt"

	"github.com/nscgen/nscgen/internal/ir"
)

// Strategy carries the sizes and struct name an address expression for
// one SynapseGroup is built from. Cheap to construct; restartable — the
// same Strategy value is reused across the dynamics, propagation, and
// post-learning sub-passes for a group.
type Strategy struct {
	Struct string // connectivity struct name, e.g. "Csyn"
	Target int    // |target| — size of the postsynaptic population
	Source int    // |source| — size of the presynaptic population
	MaxRow int     // maxRowConnections (SPARSE_RAGGED forward stride)
	MaxSrc int     // maxSourceConnections (SPARSE_RAGGED reverse stride)
}

// New builds a Strategy for a SynapseGroup, deriving the struct name from
// the group's own name as `C<name>`.
func New(g *ir.SynapseGroup) Strategy {
	return Strategy{
		Struct: "C" + g.Name,
		Target: g.Target.Size,
		Source: g.Source.Size,
		MaxRow: g.MaxRowConnections,
		MaxSrc: g.MaxSourceConnections,
	}
}

// ForwardWeightAddress returns the expression addressing individual
// weight variable v at (ipre, j-th neighbour, ipost), per the table in
// §4.4. ok is false for BITMASK, which never carries individual weights.
func (s Strategy) ForwardWeightAddress(kind ir.ConnectivityKind, v, ipre, j, ipost string) (expr string, ok bool) {
	switch kind {
	case ir.Dense:
		return fmt.Sprintf("%s[%s * %d + %s]", v, ipre, s.Target, ipost), true
	case ir.Bitmask:
		return "", false
	case ir.SparseYale:
		return fmt.Sprintf("%s[%s.indInG[%s] + %s]", v, s.Struct, ipre, j), true
	case ir.SparseRagged:
		return fmt.Sprintf("%s[%s * %d + %s]", v, ipre, s.MaxRow, j), true
	default:
		return "", false
	}
}

// ForwardPostIndex returns the expression that resolves ipost from ipre
// and j for the SPARSE kinds. For DENSE and BITMASK, ipost is the row
// loop's own variable rather than a derived expression, so ok is false.
func (s Strategy) ForwardPostIndex(kind ir.ConnectivityKind, ipre, j string) (expr string, ok bool) {
	switch kind {
	case ir.SparseYale:
		return fmt.Sprintf("%s.ind[%s.indInG[%s] + %s]", s.Struct, s.Struct, ipre, j), true
	case ir.SparseRagged:
		return fmt.Sprintf("%s.ind[%s * %d + %s]", s.Struct, ipre, s.MaxRow, j), true
	default:
		return "", false
	}
}

// ForwardRowLength returns the inner-loop bound for the row of ipre in
// the forward (dynamics/propagation) direction.
func (s Strategy) ForwardRowLength(kind ir.ConnectivityKind, ipre string) string {
	switch kind {
	case ir.SparseYale:
		return fmt.Sprintf("%s.indInG[%s + 1] - %s.indInG[%s]", s.Struct, ipre, s.Struct, ipre)
	case ir.SparseRagged:
		return fmt.Sprintf("%s.rowLength[%s]", s.Struct, ipre)
	default:
		return fmt.Sprintf("%d", s.Target)
	}
}

// GlobalID returns the packed-bit index `gid` for BITMASK connectivity:
// gid = ipre * |target| + ipost. Note that ipost is a loop variable
// declared before this expression is used, even inside the loop that
// still binds it (§9's open question — verified safe: gid is only ever
// referenced after ipost's declaring loop iteration has begun).
func (s Strategy) GlobalID(ipre, ipost string) string {
	return fmt.Sprintf("(%s * %dull + %s)", ipre, s.Target, ipost)
}

// BitTest returns the guard expression testing bit `gid` of a packed
// 32-bit connectivity word array.
func (s Strategy) BitTest(bitArray, gid string) string {
	return fmt.Sprintf("(B(%s[%s / 32], %s & 31))", bitArray, gid, gid)
}

// ReverseRowLength returns the inner-loop bound over the column of a
// postsynaptic spike lSpk, for the post-learning sub-pass.
func (s Strategy) ReverseRowLength(kind ir.ConnectivityKind, lSpk string) string {
	switch kind {
	case ir.SparseYale:
		return fmt.Sprintf("%s.revIndInG[%s + 1] - %s.revIndInG[%s]", s.Struct, lSpk, s.Struct, lSpk)
	case ir.SparseRagged:
		return fmt.Sprintf("%s.colLength[%s]", s.Struct, lSpk)
	default:
		return fmt.Sprintf("%d", s.Source)
	}
}

// ReverseSynapseIndex returns the forward synapse-index expression for
// the l-th entry of lSpk's reverse row (YALE/RAGGED only — DENSE
// post-learning addresses weights directly, see DenseReverseWeightAddress).
func (s Strategy) ReverseSynapseIndex(kind ir.ConnectivityKind, lSpk, l string) string {
	switch kind {
	case ir.SparseYale:
		return fmt.Sprintf("%s.revIndInG[%s] + %s", s.Struct, lSpk, l)
	case ir.SparseRagged:
		return fmt.Sprintf("%s * %d + %s", lSpk, s.MaxSrc, l)
	default:
		return ""
	}
}

// ReverseWeightAddress addresses weight variable v during post-learning
// for YALE/RAGGED via the remap array: v[Csyn.remap[ipreIdx]].
func (s Strategy) ReverseWeightAddress(v, ipreIdx string) string {
	return fmt.Sprintf("%s[%s.remap[%s]]", v, s.Struct, ipreIdx)
}

// ReversePreIndex derives the presynaptic index during post-learning.
// YALE reads it directly from revInd; RAGGED derives it by dividing the
// forward synapse index by the row stride.
func (s Strategy) ReversePreIndex(kind ir.ConnectivityKind, ipreIdx string) string {
	switch kind {
	case ir.SparseYale:
		return fmt.Sprintf("%s.revInd[%s]", s.Struct, ipreIdx)
	case ir.SparseRagged:
		return fmt.Sprintf("%s.remap[%s] / %d", s.Struct, ipreIdx, s.MaxRow)
	default:
		return ""
	}
}

// DenseReverseWeightAddress addresses weight variable v during
// post-learning for DENSE connectivity: v[lSpk + |target| * ipre].
func (s Strategy) DenseReverseWeightAddress(v, lSpk, ipre string) string {
	return fmt.Sprintf("%s[%s + %d * %s]", v, lSpk, s.Target, ipre)
}
