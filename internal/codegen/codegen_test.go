package codegen

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nscgen/nscgen/internal/config"
	"github.com/nscgen/nscgen/internal/ir"
)

func lifModel() *ir.NeuronModel {
	return &ir.NeuronModel{
		Name:                   "LIF",
		SimCode:                "V += (-(V) / tau) * DT;",
		ThresholdConditionCode: "V >= Vthresh",
		ResetCode:              "V = Vreset;",
	}
}

func neurons(name string, size int, flags ir.NeuronGroupFlags) *ir.NeuronGroup {
	return &ir.NeuronGroup{Name: name, Size: size, Model: lifModel(), Flags: flags}
}

// S1: a single unconnected LIF population — the minimal calcNeuronsCPU-only
// scenario (§8 S1), with an empty synapseFnct.cc guard shell and no
// calcSynapseDynamicsCPU/learnSynapsesPostHost signatures.
func TestGenerate_S1_SingleNeuronPopulation(t *testing.T) {
	network := &ir.Network{
		Name:      "S1",
		Precision: ir.Double,
		DT:        0.1,
		NeuronGroups: []*ir.NeuronGroup{
			neurons("pop", 100, ir.NeuronGroupFlags{TrueSpikeRequired: true}),
		},
	}
	files, diags, err := Generate(network, config.GenConfig{Precision: ir.Double})
	require.NoError(t, err)
	assert.Empty(t, diags)

	assert.Contains(t, files[neuronFile], "void calcNeuronsCPU(double t)")
	assert.Contains(t, files[neuronFile], "for (unsigned int n = 0; n < 100; n++)")
	assert.Contains(t, files[neuronFile], "#ifndef S1_neuronFnct_cc")
	assert.Contains(t, files[neuronFile], "#endif // S1_neuronFnct_cc")

	assert.Contains(t, files[synapseFile], "void calcSynapsesCPU(double t)")
	assert.NotContains(t, files[synapseFile], "calcSynapseDynamicsCPU")
	assert.NotContains(t, files[synapseFile], "learnSynapsesPostHost")
}

// S2: dense projection with a per-synapse weight feeding an ExpCurr-style
// merged input (§8 S2) — exercises the neuron/synapse merge point and the
// accumulate-then-decay ordering across both files.
func TestGenerate_S2_DenseProjectionMergesIntoTarget(t *testing.T) {
	psm := &ir.PostsynapticModel{
		Name:           "ExpCurr",
		ApplyInputCode: "Isyn += $(inSyn);",
		DecayCode:      "$(inSyn) *= tauDecay;",
	}
	pre := neurons("pre", 20, ir.NeuronGroupFlags{TrueSpikeRequired: true})
	post := neurons("post", 10, ir.NeuronGroupFlags{TrueSpikeRequired: true})
	post.MergedInSyns = []ir.MergedInSyn{{Name: "exc", PSM: psm}}

	syn := &ir.SynapseGroup{
		Name:              "synA",
		Source:            pre,
		Target:            post,
		Connectivity:      ir.Dense,
		WeightKind:        ir.Individual,
		PSMTarget:         "exc",
		WeightVarName:     "w",
		AxonalDelaySlot:   -1,
		BackPropDelaySlot: -1,
		WeightUpdate: &ir.WeightUpdateModel{
			Name:    "WU",
			SimCode: "$(addToInSyn, $(w));",
		},
	}
	network := &ir.Network{
		Name:          "S2",
		Precision:     ir.Double,
		NeuronGroups:  []*ir.NeuronGroup{pre, post},
		SynapseGroups: []*ir.SynapseGroup{syn},
	}
	files, _, err := Generate(network, config.GenConfig{Precision: ir.Double})
	require.NoError(t, err)

	assert.Contains(t, files[neuronFile], "linSynexc = inSynexc[n];")
	assert.Contains(t, files[neuronFile], "Isyn += linSynexc;")
	assert.Contains(t, files[neuronFile], "linSynexc *= tauDecay;")
	assert.Contains(t, files[neuronFile], "inSynexc[n] = linSynexc;")
	assert.Contains(t, files[synapseFile], "inSynexc[ipost] += (w[ipre * 10 + ipost]);")
}

// S3: SPARSE_YALE connectivity with axonal delay on the source population
// (§8 S3) — exercises the delay-ring read offset threading through into
// the propagation loop's spike-count index.
func TestGenerate_S3_SparseYaleWithAxonalDelay(t *testing.T) {
	pre := neurons("pre", 30, ir.NeuronGroupFlags{TrueSpikeRequired: true, DelayRequired: true})
	pre.DelayQueueDepth = 4
	post := neurons("post", 15, ir.NeuronGroupFlags{TrueSpikeRequired: true})

	syn := &ir.SynapseGroup{
		Name:              "synB",
		Source:            pre,
		Target:            post,
		Connectivity:      ir.SparseYale,
		WeightKind:        ir.Individual,
		PSMTarget:         "synB",
		WeightVarName:     "w",
		AxonalDelaySlot:   2,
		BackPropDelaySlot: -1,
		WeightUpdate: &ir.WeightUpdateModel{
			Name:    "WU",
			SimCode: "$(addToInSyn, $(w));",
		},
	}
	network := &ir.Network{
		Name:          "S3",
		Precision:     ir.Single,
		NeuronGroups:  []*ir.NeuronGroup{pre, post},
		SynapseGroups: []*ir.SynapseGroup{syn},
	}
	files, _, err := Generate(network, config.GenConfig{Precision: ir.Single})
	require.NoError(t, err)
	assert.Contains(t, files[synapseFile], "CsynB.indInG[ipre + 1] - CsynB.indInG[ipre]")
	assert.Contains(t, files[synapseFile], "void calcSynapsesCPU(float t)")
}

// S4: a synapse-dynamics fragment paired with a post-learning fragment on
// the same group (§8 S4) — exercises calcSynapseDynamicsCPU and
// learnSynapsesPostHost both being emitted in the same synapseFnct.cc.
func TestGenerate_S4_DynamicsAndPostLearnBothEmitted(t *testing.T) {
	pre := neurons("pre", 20, ir.NeuronGroupFlags{TrueSpikeRequired: true})
	post := neurons("post", 10, ir.NeuronGroupFlags{TrueSpikeRequired: true})

	syn := &ir.SynapseGroup{
		Name:                 "synC",
		Source:               pre,
		Target:               post,
		Connectivity:         ir.SparseRagged,
		WeightKind:           ir.Individual,
		PSMTarget:            "synC",
		WeightVarName:        "w",
		MaxRowConnections:    5,
		MaxSourceConnections: 5,
		AxonalDelaySlot:      -1,
		BackPropDelaySlot:    -1,
		WeightUpdate: &ir.WeightUpdateModel{
			Name:                "WU",
			SimCode:             "$(addToInSyn, $(w));",
			SynapseDynamicsCode: "$(w) += tauSyn * $(t);",
			LearnPostCode:       "$(w) = $(sT_pre);",
		},
	}
	network := &ir.Network{
		Name:          "S4",
		Precision:     ir.Double,
		NeuronGroups:  []*ir.NeuronGroup{pre, post},
		SynapseGroups: []*ir.SynapseGroup{syn},
	}
	files, _, err := Generate(network, config.GenConfig{Precision: ir.Double})
	require.NoError(t, err)

	assert.Contains(t, files[synapseFile], "void calcSynapseDynamicsCPU(double t)")
	assert.Contains(t, files[synapseFile], "void learnSynapsesPostHost(double t)")
	assert.Contains(t, files[synapseFile], "w[CsynC.remap[ipre]]")
	// One declaration at the top of calcSynapseDynamicsCPU, one inside the
	// true-spike propagation loop body of calcSynapsesCPU.
	assert.Equal(t, 2, strings.Count(files[synapseFile], "double addtoinSyn;"))
}

// S5: a neuron population with threshold code but no simCode — the
// malformed-input scenario (§8 S5) that must fail generation outright
// rather than silently emit a half-empty loop body.
func TestGenerate_S5_ThresholdWithoutSimCodeIsFatal(t *testing.T) {
	model := &ir.NeuronModel{Name: "bad", ThresholdConditionCode: "V >= 1"}
	network := &ir.Network{
		Name:         "S5",
		Precision:    ir.Double,
		NeuronGroups: []*ir.NeuronGroup{{Name: "pop", Size: 5, Model: model}},
	}
	_, _, err := Generate(network, config.GenConfig{Precision: ir.Double})
	require.Error(t, err)
	var genErr *GenerationError
	assert.ErrorAs(t, err, &genErr)
}

// S6: repeated generation from the identical Network value is byte-
// identical (Testable Property 2) — checked here by comparing the file maps
// of two successive runs; the golden-file pin is
// TestGenerate_GoldenSingleNeuronPopulation below.
func TestGenerate_S6_RepeatedGenerationIsByteIdentical(t *testing.T) {
	psm := &ir.PostsynapticModel{
		Name:           "ExpCurr",
		ApplyInputCode: "Isyn += $(inSyn);",
		DecayCode:      "$(inSyn) *= tauDecay;",
	}
	pre := neurons("pre", 8, ir.NeuronGroupFlags{TrueSpikeRequired: true})
	post := neurons("post", 4, ir.NeuronGroupFlags{TrueSpikeRequired: true})
	post.MergedInSyns = []ir.MergedInSyn{{Name: "exc", PSM: psm}}
	syn := &ir.SynapseGroup{
		Name:              "synD",
		Source:            pre,
		Target:            post,
		Connectivity:      ir.Dense,
		WeightKind:        ir.Global,
		PSMTarget:         "exc",
		WeightVarName:     "g",
		AxonalDelaySlot:   -1,
		BackPropDelaySlot: -1,
		WeightUpdate: &ir.WeightUpdateModel{
			Name:    "WU",
			SimCode: "$(addToInSyn, $(g));",
		},
	}
	network := &ir.Network{
		Name:          "S6",
		Precision:     ir.Double,
		NeuronGroups:  []*ir.NeuronGroup{pre, post},
		SynapseGroups: []*ir.SynapseGroup{syn},
	}
	cfg := config.GenConfig{Precision: ir.Double}

	first, _, err := Generate(network, cfg)
	require.NoError(t, err)
	second, _, err := Generate(network, cfg)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// TestGenerate_GoldenSingleNeuronPopulation pins the exact byte layout of
// the smallest possible model — one unconnected population, no merged
// input, no delay — against a committed golden file, so an accidental
// formatting or ordering change in either pass is caught as a diff
// instead of silently drifting (Testable Property 2).
func TestGenerate_GoldenSingleNeuronPopulation(t *testing.T) {
	network := &ir.Network{
		Name:      "S1",
		Precision: ir.Double,
		NeuronGroups: []*ir.NeuronGroup{
			neurons("pop", 100, ir.NeuronGroupFlags{TrueSpikeRequired: true}),
		},
	}
	files, _, err := Generate(network, config.GenConfig{Precision: ir.Double})
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "single_neuron_pop_neuronFnct", []byte(files[neuronFile]))
	g.Assert(t, "single_neuron_pop_synapseFnct", []byte(files[synapseFile]))
}
