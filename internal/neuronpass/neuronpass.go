// Package neuronpass emits the body of calcNeuronsCPU: one guarded,
// scoped block per NeuronGroup, in the fixed step order of §4.6.
//
// This package is a pure function of its inputs — it never logs, never
// touches the filesystem, and returns any non-fatal observation as a
// Diagnostic rather than a side effect (§10.1). The top-level driver
// (internal/codegen) owns aggregating Diagnostics across groups and
// mirroring them to the ambient logger.
package neuronpass

import (
	"fmt"
	"strings"

	"github.com/nscgen/nscgen/internal/delay"
	"github.com/nscgen/nscgen/internal/emit"
	"github.com/nscgen/nscgen/internal/ir"
	"github.com/nscgen/nscgen/internal/stdsubst"
)

// synAccumulator is the local variable name a merged in-synapse
// accumulates into before being folded into Isyn — "linSyn" by
// convention. Unrelated to the deprecated $(addtoinSyn) alias, which
// resolves to a synapsepass-declared scratch local of the same name.
func synAccumulator(mergeName string) string { return "linSyn" + mergeName }

// Emit writes NeuronGroup g's calcNeuronsCPU body into sink and returns
// any non-fatal diagnostics. timeVar is the name of the enclosing
// function's time parameter (normally "t").
func Emit(sink *emit.Sink, g *ir.NeuronGroup, precision ir.Precision, timeVar string) []ir.Diagnostic {
	var diags []ir.Diagnostic

	if g.Model == nil {
		diags = append(diags, ir.Diagnostic{
			Severity: ir.SeverityWarning,
			Group:    g.Name,
			Message:  "neuron group has no model; skipping emission",
		})
		return diags
	}

	skipSpiking := g.Model.ThresholdConditionCode == ""
	if skipSpiking {
		diags = append(diags, ir.Diagnostic{
			Severity: ir.SeverityWarning,
			Group:    g.Name,
			Message:  "neuron group has no thresholdConditionCode; spike emission skipped",
		})
	}

	sink.Printf("// neuron group %s", g.Name)
	sink.OpenScope()

	quePtr := "spkQuePtr" + g.Name
	ring := delay.Ring{N: g.Size, D: g.DelayQueueDepth}

	// The event ring and the true-spike ring are gated independently: a
	// group can have DelayRequired for its spike-like-event consumers
	// while no downstream synapse ever reads its delayed true spikes, so
	// the true-spike count/write slot only rings when both flags hold
	// (generateCPU.cc:359-364 vs. :380-387).
	eventCountIdx := "0"
	if g.Flags.DelayRequired {
		eventCountIdx = quePtr
	}
	trueSpikeCountIdx := "0"
	if g.Flags.DelayRequired && g.Flags.TrueSpikeRequired {
		trueSpikeCountIdx = quePtr
	}
	sink.Printf("glbSpkCnt%s[%s] = 0;", g.Name, trueSpikeCountIdx)
	if g.Flags.SpikeEventRequired {
		sink.Printf("glbSpkCntEvnt%s[%s] = 0;", g.Name, eventCountIdx)
	}
	if g.Flags.DelayRequired {
		sink.Printf("%s = (%s + 1) %% %d;", quePtr, quePtr, g.DelayQueueDepth)
	}

	readIdx, writeIdx := "n", "n"
	if g.Flags.DelayRequired {
		sink.Printf("const unsigned int readDelayOffset = %s;", ring.ReadOffset(quePtr))
		sink.Printf("const unsigned int writeDelayOffset = %s;", ring.WriteOffset(quePtr))
		readIdx, writeIdx = "readDelayOffset + n", "writeDelayOffset + n"
	}

	sink.Printf("for (unsigned int n = 0; n < %d; n++)", g.Size)
	sink.OpenScope()

	cType := precision.CType()
	for _, v := range g.Model.Vars {
		sink.Printf("%s %s = %s%s[%s];", cType, v.Name, v.Name, g.Name, readIdx)
	}

	referencesIsyn := len(g.MergedInSyns) > 0 || strings.Contains(g.Model.SimCode, "Isyn")
	if referencesIsyn {
		sink.Printf("%s Isyn = 0;", cType)
	}

	for _, a := range g.Model.AdditionalInputVars {
		sink.Printf("%s %s = %s;", a.Type, a.Name, a.InitialValue)
	}

	env := stdsubst.Env{
		Precision:         precision,
		TimeVar:           timeVar,
		IDExpr:            "n",
		Params:            g.Model.Params,
		DerivedParams:     g.Model.DerivedParams,
		ExtraGlobalParams: g.Model.ExtraGlobalParams,
		SupportNamespace:  g.Model.SupportCodeNamespace,
		SupportFunctionNames: g.Model.SupportFunctionNames,
		VarAddress: func(name string) (string, bool) {
			for _, v := range g.Model.Vars {
				if v.Name == name {
					return name, true
				}
			}
			for _, a := range g.Model.AdditionalInputVars {
				if a.Name == name {
					return name, true
				}
			}
			if g.Flags.IsPoisson && name == "lrate" {
				return fmt.Sprintf("%s[n + %s]", g.PoissonRateArray, g.PoissonOffsetVar), true
			}
			return "", false
		},
	}

	for _, m := range g.MergedInSyns {
		acc := synAccumulator(m.Name)
		psm := m.PSM
		sink.OpenScope()
		if psm != nil && psm.HasDendriticDelay {
			front := "denDelayPtr" + m.Name
			offset := delay.DendriticOffset(front, "0", m.MaxDendriticDelaySlots, g.Size)
			sink.Printf("%s %s = denDelay%s[%s + n];", cType, acc, m.Name, offset)
			sink.Printf("denDelay%s[%s + n] = 0;", m.Name, offset)
		} else {
			sink.Printf("%s %s = inSyn%s[n];", cType, acc, m.Name)
		}
		if psm != nil {
			for _, v := range psm.Vars {
				sink.Printf("%s %s%s = %s%s[n];", cType, v.Name, m.Name, v.Name, m.Name)
			}
			if psm.ApplyInputCode != "" {
				psmEnv := env
				psmEnv.InSynAccumulator = acc
				psmEnv.VarAddress = func(name string) (string, bool) {
					for _, v := range psm.Vars {
						if v.Name == name {
							return v.Name + m.Name, true
						}
					}
					return env.VarAddress(name)
				}
				sink.Raw(indentedLine(psmEnv.Apply(psm.ApplyInputCode)))
			}
		}
		sink.Printf("Isyn += %s;", acc)
		sink.CloseScope()
	}

	if !skipSpiking && g.Flags.AutoRefractoryEnabled {
		sink.Printf("const bool oldSpike = (%s);", env.Apply(g.Model.ThresholdConditionCode))
	}

	if g.Model.SimCode != "" {
		sink.Raw(indentedLine(env.Apply(g.Model.SimCode)))
	} else if !skipSpiking {
		diags = append(diags, ir.Diagnostic{
			Severity: ir.SeverityWarning,
			Group:    g.Name,
			Message:  "neuron group has no simCode",
		})
	}

	if !skipSpiking {
		threshold := env.Apply(g.Model.ThresholdConditionCode)

		if g.Flags.SpikeEventRequired && g.Model.EventThresholdCode != "" {
			eventCond := env.Apply(g.Model.EventThresholdCode)
			sink.Printf("if (%s)", eventCond)
			sink.OpenScope()
			sink.Printf("glbSpkEvnt%s[%s + glbSpkCntEvnt%s[%s]++] = n;", g.Name, eventWriteIdxOrZero(g), g.Name, eventCountIdx)
			sink.CloseScope()
		}

		cond := "(" + threshold + ")"
		if g.Flags.AutoRefractoryEnabled {
			cond = "(" + threshold + ") && !oldSpike"
		}
		sink.Printf("if (%s)", cond)
		sink.OpenScope()
		sink.Printf("glbSpk%s[%s + glbSpkCnt%s[%s]++] = n;", g.Name, trueSpikeWriteIdxOrZero(g), g.Name, trueSpikeCountIdx)
		if g.Flags.SpikeTimeRequired {
			sink.Printf("sT%s[%s] = %s;", g.Name, writeIdx, timeVar)
		}
		if g.Model.ResetCode != "" {
			sink.Raw(indentedLine(env.Apply(g.Model.ResetCode)))
		}
		sink.CloseScope()
	}

	for _, v := range g.Model.Vars {
		sink.Printf("%s%s[%s] = %s;", v.Name, g.Name, writeIdx, v.Name)
	}

	for _, m := range g.MergedInSyns {
		acc := synAccumulator(m.Name)
		psm := m.PSM
		if psm == nil {
			continue
		}
		if psm.DecayCode != "" {
			decayEnv := env
			decayEnv.InSynAccumulator = acc
			decayEnv.DendriticDelay = psm.HasDendriticDelay
			decayEnv.VarAddress = func(name string) (string, bool) {
				for _, v := range psm.Vars {
					if v.Name == name {
						return v.Name + m.Name, true
					}
				}
				return env.VarAddress(name)
			}
			sink.Raw(indentedLine(decayEnv.Apply(psm.DecayCode)))
		}
		if !psm.HasDendriticDelay {
			sink.Printf("inSyn%s[n] = %s;", m.Name, acc)
		}
		for _, v := range psm.Vars {
			sink.Printf("%s%s[n] = %s%s;", v.Name, m.Name, v.Name, m.Name)
		}
	}

	sink.CloseScope() // for loop
	sink.CloseScope() // group scope

	return diags
}

// eventWriteIdxOrZero returns the spike-queue write offset for a
// group's spike-like-event ring: the delayed write-slot offset if delay
// is required, else a bare "0" — glbSpkEvnt<grp> is not delay-ringed
// when the group has no delay queue.
func eventWriteIdxOrZero(g *ir.NeuronGroup) string {
	if g.Flags.DelayRequired {
		return "writeDelayOffset"
	}
	return "0"
}

// trueSpikeWriteIdxOrZero returns the spike-queue write offset for a
// group's true-spike ring. Unlike the event ring, this one requires
// both DelayRequired and TrueSpikeRequired: a group can have downstream
// consumers of its delayed spike-like events without any consumer ever
// reading its delayed true spikes, in which case glbSpk<grp> is written
// at a bare "0" regardless of DelayRequired (generateCPU.cc:380-387).
func trueSpikeWriteIdxOrZero(g *ir.NeuronGroup) string {
	if g.Flags.DelayRequired && g.Flags.TrueSpikeRequired {
		return "writeDelayOffset"
	}
	return "0"
}

// indentedLine appends a trailing newline to a substituted fragment so
// Raw-spliced user code always ends its own line cleanly, without
// forcing this package to track the caller's indentation depth for
// text it did not originate.
func indentedLine(s string) string {
	if s == "" {
		return s
	}
	if s[len(s)-1] == '\n' {
		return s
	}
	return s + "\n"
}
