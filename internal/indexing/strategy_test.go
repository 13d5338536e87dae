package indexing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nscgen/nscgen/internal/ir"
)

func TestForwardWeightAddress_Dense(t *testing.T) {
	s := Strategy{Struct: "Csyn", Target: 10}
	expr, ok := s.ForwardWeightAddress(ir.Dense, "w", "ipre", "j", "ipost")
	assert.True(t, ok)
	assert.Equal(t, "w[ipre * 10 + ipost]", expr)
}

func TestForwardWeightAddress_BitmaskUnsupported(t *testing.T) {
	s := Strategy{Struct: "Csyn", Target: 10}
	_, ok := s.ForwardWeightAddress(ir.Bitmask, "w", "ipre", "j", "ipost")
	assert.False(t, ok)
}

func TestForwardWeightAddress_SparseYale(t *testing.T) {
	s := Strategy{Struct: "Csyn"}
	expr, ok := s.ForwardWeightAddress(ir.SparseYale, "w", "ipre", "j", "ipost")
	assert.True(t, ok)
	assert.Equal(t, "w[Csyn.indInG[ipre] + j]", expr)

	post, ok := s.ForwardPostIndex(ir.SparseYale, "ipre", "j")
	assert.True(t, ok)
	assert.Equal(t, "Csyn.ind[Csyn.indInG[ipre] + j]", post)
}

func TestForwardWeightAddress_SparseRagged(t *testing.T) {
	s := Strategy{Struct: "Csyn", MaxRow: 8}
	expr, ok := s.ForwardWeightAddress(ir.SparseRagged, "w", "ipre", "j", "ipost")
	assert.True(t, ok)
	assert.Equal(t, "w[ipre * 8 + j]", expr)
}

func TestForwardRowLength_Yale(t *testing.T) {
	s := Strategy{Struct: "Csyn"}
	assert.Equal(t, "Csyn.indInG[ipre + 1] - Csyn.indInG[ipre]", s.ForwardRowLength(ir.SparseYale, "ipre"))
}

func TestGlobalIDAndBitTest(t *testing.T) {
	s := Strategy{Struct: "Csyn", Target: 10}
	gid := s.GlobalID("ipre", "ipost")
	assert.Equal(t, "(ipre * 10ull + ipost)", gid)
	assert.Equal(t, "(B(gpsyn[(ipre * 10ull + ipost) / 32], (ipre * 10ull + ipost) & 31))", s.BitTest("gpsyn", gid))
}

func TestReverseRagged(t *testing.T) {
	s := Strategy{Struct: "Csyn", MaxSrc: 4, MaxRow: 8}
	idx := s.ReverseSynapseIndex(ir.SparseRagged, "lSpk", "l")
	assert.Equal(t, "lSpk * 4 + l", idx)
	assert.Equal(t, "w[Csyn.remap[lSpk * 4 + l]]", s.ReverseWeightAddress("w", idx))
	assert.Equal(t, "Csyn.remap[lSpk * 4 + l] / 8", s.ReversePreIndex(ir.SparseRagged, idx))
}

func TestDenseReverseWeightAddress(t *testing.T) {
	s := Strategy{Target: 10}
	assert.Equal(t, "w[lSpk + 10 * ipre]", s.DenseReverseWeightAddress("w", "lSpk", "ipre"))
}
