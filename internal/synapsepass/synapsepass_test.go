package synapsepass

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nscgen/nscgen/internal/emit"
	"github.com/nscgen/nscgen/internal/ir"
)

func neurons(name string, size int) *ir.NeuronGroup {
	return &ir.NeuronGroup{Name: name, Size: size, Model: &ir.NeuronModel{Name: "N"}}
}

func TestEmitPropagation_SparseYaleAddsToInSyn(t *testing.T) {
	src := neurons("pre", 20)
	trg := neurons("post", 10)
	g := &ir.SynapseGroup{
		Name:          "syn",
		Source:        src,
		Target:        trg,
		Connectivity:  ir.SparseYale,
		WeightKind:    ir.Individual,
		PSMTarget:     "syn",
		WeightVarName: "w",
		AxonalDelaySlot:   -1,
		BackPropDelaySlot: -1,
		WeightUpdate: &ir.WeightUpdateModel{
			Name:    "WU",
			SimCode: "$(addToInSyn, $(w));",
		},
	}
	sink := emit.New()
	EmitPropagation(sink, g, ir.Double, "t")
	text, err := sink.Finish()
	require.NoError(t, err)

	assert.Contains(t, text, "for (unsigned int i = 0; i < glbSpkCntpre[0]; i++)")
	assert.Contains(t, text, "const unsigned int ipre = glbSpkpre[0 + i];")
	assert.Contains(t, text, "Csyn.indInG[ipre + 1] - Csyn.indInG[ipre]")
	assert.Contains(t, text, "Csyn.ind[Csyn.indInG[ipre] + j]")
	assert.Contains(t, text, "inSynsyn[ipost] += (w[Csyn.indInG[ipre] + j]);")
}

func TestEmitPropagation_BitmaskEventGuardCombinesBitTestAndCondition(t *testing.T) {
	src := neurons("pre", 10)
	trg := neurons("post", 10)
	g := &ir.SynapseGroup{
		Name:          "syn",
		Source:        src,
		Target:        trg,
		Connectivity:  ir.Bitmask,
		WeightKind:    ir.Global,
		PSMTarget:     "syn",
		WeightVarName: "w",
		AxonalDelaySlot:   -1,
		BackPropDelaySlot: -1,
		WeightUpdate: &ir.WeightUpdateModel{
			Name:               "WU",
			EventCode:          "$(addToInSyn, $(w));",
			EventThresholdCode: "V_pre > -0.02",
		},
	}
	sink := emit.New()
	EmitPropagation(sink, g, ir.Double, "t")
	text, err := sink.Finish()
	require.NoError(t, err)

	assert.Contains(t, text, "const uint64_t")
	assert.Contains(t, text, "(ipre * 10ull + ipost)")
	assert.Contains(t, text, "(B(gpsyn[")
	assert.Contains(t, text, "V_pre > -0.02")
}

func TestEmitPropagation_DendriticDelayUsesDenDelayNoAlias(t *testing.T) {
	src := neurons("pre", 10)
	trg := neurons("post", 10)
	trg.MergedInSyns = []ir.MergedInSyn{{Name: "syn", MaxDendriticDelaySlots: 8}}
	g := &ir.SynapseGroup{
		Name:                   "syn",
		Source:                 src,
		Target:                 trg,
		Connectivity:           ir.Dense,
		WeightKind:             ir.Global,
		PSMTarget:              "syn",
		WeightVarName:          "g",
		DendriticDelayRequired: true,
		AxonalDelaySlot:        -1,
		BackPropDelaySlot:      -1,
		WeightUpdate: &ir.WeightUpdateModel{
			Name:    "WU",
			SimCode: "$(addToInSynDelay, $(g)*$(x_pre), $(d));",
		},
	}
	sink := emit.New()
	EmitPropagation(sink, g, ir.Double, "t")
	text, err := sink.Finish()
	require.NoError(t, err)

	assert.Contains(t, text, "denDelaysyn[")
	assert.NotContains(t, text, "addtoinSyn")
	assert.NotContains(t, text, "updatelinsyn")
}

func TestEmitPropagation_DeprecatedUpdateLinSynAliasResolvesToDeclaredScratchLocal(t *testing.T) {
	src := neurons("pre", 10)
	trg := neurons("post", 10)
	g := &ir.SynapseGroup{
		Name:              "syn",
		Source:            src,
		Target:            trg,
		Connectivity:      ir.Dense,
		WeightKind:        ir.Global,
		PSMTarget:         "syn",
		WeightVarName:     "g",
		AxonalDelaySlot:   -1,
		BackPropDelaySlot: -1,
		WeightUpdate: &ir.WeightUpdateModel{
			Name:    "WU",
			SimCode: "$(addtoinSyn) = $(g); $(updatelinsyn);",
		},
	}
	sink := emit.New()
	EmitPropagation(sink, g, ir.Double, "t")
	text, err := sink.Finish()
	require.NoError(t, err)

	assert.Contains(t, text, "double addtoinSyn;")
	assert.Contains(t, text, "addtoinSyn = g")
	assert.Contains(t, text, "inSynsyn[ipost] += addtoinSyn;")
	assert.NotContains(t, text, "linSyn")
}

func TestEmitDynamics_DeprecatedUpdateLinSynAliasResolvesToDeclaredScratchLocal(t *testing.T) {
	src := neurons("pre", 10)
	trg := neurons("post", 10)
	g := &ir.SynapseGroup{
		Name:              "syn",
		Source:            src,
		Target:            trg,
		Connectivity:      ir.Dense,
		WeightKind:        ir.Global,
		PSMTarget:         "syn",
		WeightVarName:     "g",
		AxonalDelaySlot:   -1,
		BackPropDelaySlot: -1,
		WeightUpdate: &ir.WeightUpdateModel{
			Name:               "WU",
			SynapseDynamicsCode: "$(addtoinSyn) = $(g) * DT; $(updatelinsyn);",
		},
	}
	sink := emit.New()
	EmitDynamics(sink, g, ir.Double, "t")
	text, err := sink.Finish()
	require.NoError(t, err)

	assert.Contains(t, text, "addtoinSyn = g")
	assert.Contains(t, text, "inSynsyn[ipost] += addtoinSyn;")
	assert.NotContains(t, text, "linSyn")
}

func TestEmitPostLearn_RaggedAddressesViaRemap(t *testing.T) {
	src := neurons("pre", 20)
	trg := neurons("post", 10)
	g := &ir.SynapseGroup{
		Name:                 "syn",
		Source:               src,
		Target:               trg,
		Connectivity:         ir.SparseRagged,
		WeightKind:           ir.Individual,
		PSMTarget:            "syn",
		WeightVarName:        "w",
		MaxRowConnections:    5,
		MaxSourceConnections: 5,
		AxonalDelaySlot:      -1,
		BackPropDelaySlot:    -1,
		WeightUpdate: &ir.WeightUpdateModel{
			Name:          "WU",
			LearnPostCode: "$(w) = $(sT_pre);",
		},
	}
	sink := emit.New()
	EmitPostLearn(sink, g, ir.Double, "t")
	text, err := sink.Finish()
	require.NoError(t, err)

	assert.Contains(t, text, "for (int l = 0; l < Csyn.colLength[lSpk]; l++)")
	assert.Contains(t, text, "ipre = lSpk * 5 + l;")
	assert.Contains(t, text, "w[Csyn.remap[ipre]]")
}

func TestEmitDynamics_SkippedWhenNoSynapseDynamicsCode(t *testing.T) {
	src := neurons("pre", 10)
	trg := neurons("post", 10)
	g := &ir.SynapseGroup{
		Name:         "syn",
		Source:       src,
		Target:       trg,
		Connectivity: ir.Dense,
		WeightUpdate: &ir.WeightUpdateModel{Name: "WU"},
	}
	sink := emit.New()
	diags := EmitDynamics(sink, g, ir.Double, "t")
	assert.Empty(t, diags)
	text, err := sink.Finish()
	require.NoError(t, err)
	assert.Empty(t, text)
}
