// Package synapsepass emits the three synapse-related function bodies
// calcSynapseDynamicsCPU, calcSynapsesCPU, and learnSynapsesPostHost —
// one guarded, scoped block per SynapseGroup per sub-pass, per §4.7.
//
// Like internal/neuronpass, this package is a pure function of its
// inputs: no logging, no I/O, diagnostics returned as data.
package synapsepass

import (
	"fmt"

	"github.com/nscgen/nscgen/internal/delay"
	"github.com/nscgen/nscgen/internal/emit"
	"github.com/nscgen/nscgen/internal/indexing"
	"github.com/nscgen/nscgen/internal/ir"
	"github.com/nscgen/nscgen/internal/stdsubst"
)

// weightEnv builds the stdsubst.Env every synapse fragment kind shares,
// parameterized by which model supplies the params/derived-params/extra
// globals and how the weight variable itself addresses.
func weightEnv(precision ir.Precision, timeVar string, m *ir.WeightUpdateModel, weightAddr func(string) (string, bool)) stdsubst.Env {
	env := stdsubst.Env{
		Precision: precision,
		TimeVar:   timeVar,
	}
	if m == nil {
		env.VarAddress = weightAddr
		return env
	}
	env.Params = m.Params
	env.DerivedParams = m.DerivedParams
	env.ExtraGlobalParams = m.ExtraGlobalParams
	env.SupportNamespace = m.SupportCodeNamespace
	env.SupportFunctionNames = m.SupportFunctionNames
	env.VarAddress = weightAddr
	return env
}

// EmitDynamics writes SynapseGroup g's contribution to
// calcSynapseDynamicsCPU, if it has any (§4.7 "Synapse dynamics").
func EmitDynamics(sink *emit.Sink, g *ir.SynapseGroup, precision ir.Precision, timeVar string) []ir.Diagnostic {
	if !g.RequiresDynamics() {
		return nil
	}
	strat := indexing.New(g)

	sink.Printf("// synapse group %s dynamics", g.Name)
	sink.OpenScope()
	sink.Printf("for (unsigned int ipre = 0; ipre < %d; ipre++)", g.Source.Size)
	sink.OpenScope()
	sink.Printf("const unsigned int npost = %s;", strat.ForwardRowLength(g.Connectivity, "ipre"))
	loopVar := forwardLoopVar(g)
	sink.Printf("for (unsigned int %s = 0; %s < npost; %s++)", loopVar, loopVar, loopVar)
	sink.OpenScope()

	ipost := resolveIpost(sink, strat, g, "ipre", loopVar)

	weightAddr := func(name string) (string, bool) {
		if name != g.WeightVarName {
			return "", false
		}
		return weightAddress(strat, g, name, "ipre", loopVar, ipost)
	}
	env := weightEnv(precision, timeVar, g.WeightUpdate, weightAddr)
	env.IDExpr = fmt.Sprintf("(ipre, %s)", ipost)

	if g.DendriticDelayRequired {
		front := "denDelayPtr" + g.PSMTarget
		offset := func(d string) string {
			return delay.DendriticOffset(front, d, maxDendriticSlots(g), g.Target.Size)
		}
		env.DendriticDelay = true
		env.AddToInSynDelay = stdsubst.AddToInSynDelayExpr(g.PSMTarget, ipost, offset)
	} else {
		env.InSynAccumulator = fmt.Sprintf("inSyn%s[%s]", g.PSMTarget, ipost)
		env.AddToInSyn = stdsubst.AddToInSynExpr(g.PSMTarget, ipost)
	}

	sink.Raw(rawLine(env.Apply(g.WeightUpdate.SynapseDynamicsCode)))

	sink.CloseScope()
	sink.CloseScope()
	sink.CloseScope()
	return nil
}

// EmitPropagation writes SynapseGroup g's contribution to
// calcSynapsesCPU — the true-spike pass and, if applicable, the event
// pass (§4.7 "Spike / event propagation").
func EmitPropagation(sink *emit.Sink, g *ir.SynapseGroup, precision ir.Precision, timeVar string) []ir.Diagnostic {
	var diags []ir.Diagnostic

	if !g.RequiresTrueSpikePropagation() && !g.RequiresEventPropagation() {
		return nil
	}

	sink.Printf("// synapse group %s propagation", g.Name)
	sink.OpenScope()

	if g.HasAxonalDelay() {
		ring := delay.Ring{N: g.Source.Size, D: g.Source.DelayQueueDepth}
		sink.Printf("const unsigned int preReadDelaySlot = %s;", ring.SlotAtDelay("spkQuePtr"+g.Source.Name, g.AxonalDelaySlot))
		sink.Printf("const unsigned int preReadDelayOffset = %s;", ring.OffsetAtDelay("spkQuePtr"+g.Source.Name, g.AxonalDelaySlot))
	}

	tag := 0
	for _, postfix := range []string{"Evnt", ""} {
		if postfix == "Evnt" && !g.RequiresEventPropagation() {
			continue
		}
		if postfix == "" && !g.RequiresTrueSpikePropagation() {
			continue
		}
		emitPropagationVariant(sink, g, precision, timeVar, postfix, &tag)
	}

	sink.CloseScope()
	return diags
}

func emitPropagationVariant(sink *emit.Sink, g *ir.SynapseGroup, precision ir.Precision, timeVar, postfix string, tag *int) {
	countSlot := "0"
	offsetExpr := "0"
	if g.HasAxonalDelay() {
		countSlot = "preReadDelaySlot"
		offsetExpr = "preReadDelayOffset"
	}

	sink.Printf("for (unsigned int i = 0; i < glbSpkCnt%s%s[%s]; i++)", postfix, g.Source.Name, countSlot)
	sink.OpenScope()
	sink.Printf("const unsigned int ipre = glbSpk%s%s[%s + i];", postfix, g.Source.Name, offsetExpr)

	strat := indexing.New(g)
	loopVar := forwardLoopVar(g)

	sink.Printf("for (unsigned int %s = 0; %s < %s; %s++)", loopVar, loopVar, forwardBound(strat, g), loopVar)
	sink.OpenScope()

	ipost := resolveIpost(sink, strat, g, "ipre", loopVar)

	if g.Connectivity == ir.Bitmask {
		sink.Printf("const uint64_t gid = %s;", strat.GlobalID("ipre", ipost))
	}

	var guard string
	switch {
	case postfix == "Evnt":
		eventEnv := weightEnv(precision, timeVar, g.WeightUpdate, weightAddrFor(strat, g, "ipre", loopVar, ipost))
		eventEnv.IDExpr = fmt.Sprintf("(ipre, %s)", ipost)
		cond := eventEnv.Apply(g.WeightUpdate.EventThresholdCode)
		if g.Connectivity == ir.Bitmask {
			guard = fmt.Sprintf("(%s) && (%s)", strat.BitTest("gp"+g.Name, "gid"), cond)
		} else {
			guard = fmt.Sprintf("(%s)", cond)
		}
	case g.Connectivity == ir.Bitmask:
		guard = strat.BitTest("gp"+g.Name, "gid")
	}

	if guard != "" {
		myTag := *tag
		*tag++
		sink.Printf("if (%s)", guard)
		sink.OpenLabelled(myTag)
		emitPropagationBody(sink, g, precision, timeVar, postfix, strat, ipost)
		sink.CloseLabelled(myTag)
	} else {
		emitPropagationBody(sink, g, precision, timeVar, postfix, strat, ipost)
	}

	sink.CloseScope()
	sink.CloseScope()
}

func emitPropagationBody(sink *emit.Sink, g *ir.SynapseGroup, precision ir.Precision, timeVar, postfix string, strat indexing.Strategy, ipost string) {
	weightAddr := weightAddrFor(strat, g, "ipre", forwardLoopVar(g), ipost)
	env := weightEnv(precision, timeVar, g.WeightUpdate, weightAddr)
	env.IDExpr = fmt.Sprintf("(ipre, %s)", ipost)

	// Backward propagation never applies axonal delay (§4.7 note) — that
	// only ever gates the presynaptic side declared above.
	if g.DendriticDelayRequired {
		front := "denDelayPtr" + g.PSMTarget
		offset := func(d string) string {
			return delay.DendriticOffset(front, d, maxDendriticSlots(g), g.Target.Size)
		}
		env.DendriticDelay = true
		env.AddToInSynDelay = stdsubst.AddToInSynDelayExpr(g.PSMTarget, ipost, offset)
	} else {
		env.InSynAccumulator = fmt.Sprintf("inSyn%s[%s]", g.PSMTarget, ipost)
		env.AddToInSyn = stdsubst.AddToInSynExpr(g.PSMTarget, ipost)
		// Declared unconditionally on the non-dendritic-delay path so the
		// deprecated $(updatelinsyn)/$(addtoinSyn) aliases always have a
		// live local to resolve to, whether or not this fragment uses them.
		sink.Printf("%s addtoinSyn;", precision.CType())
	}

	code := g.WeightUpdate.SimCode
	if postfix == "Evnt" {
		code = g.WeightUpdate.EventCode
	}
	sink.Raw(rawLine(env.Apply(code)))
}

// EmitPostLearn writes SynapseGroup g's contribution to
// learnSynapsesPostHost, if it has any (§4.7 "Post-learning").
func EmitPostLearn(sink *emit.Sink, g *ir.SynapseGroup, precision ir.Precision, timeVar string) []ir.Diagnostic {
	if !g.RequiresPostLearn() {
		return nil
	}
	strat := indexing.New(g)

	sink.Printf("// synapse group %s post-learning", g.Name)
	sink.OpenScope()
	sink.Printf("unsigned int ipost;")
	sink.Printf("unsigned int ipre;")
	sink.Printf("unsigned int lSpk;")
	if g.Connectivity == ir.SparseRagged {
		sink.Printf("unsigned int npre;")
	}

	countSlot := "0"
	offsetExpr := "0"
	if g.HasBackPropDelay() {
		ring := delay.Ring{N: g.Target.Size, D: g.Target.DelayQueueDepth}
		countSlot = ring.SlotAtDelay("spkQuePtr"+g.Target.Name, g.BackPropDelaySlot)
		offsetExpr = ring.OffsetAtDelay("spkQuePtr"+g.Target.Name, g.BackPropDelaySlot)
	}

	sink.Printf("for (unsigned int ipost = 0; ipost < glbSpkCnt%s[%s]; ipost++)", g.Target.Name, countSlot)
	sink.OpenScope()
	sink.Printf("lSpk = glbSpk%s[%s + ipost];", g.Target.Name, offsetExpr)

	var innerBound string
	switch g.Connectivity {
	case ir.SparseYale:
		innerBound = strat.ReverseRowLength(g.Connectivity, "lSpk")
	case ir.SparseRagged:
		innerBound = strat.ReverseRowLength(g.Connectivity, "lSpk")
	default:
		innerBound = fmt.Sprintf("%d", g.Source.Size)
	}
	sink.Printf("for (int l = 0; l < %s; l++)", innerBound)
	sink.OpenScope()

	var weightAddr, preIndex string
	switch g.Connectivity {
	case ir.SparseYale:
		ipreIdx := strat.ReverseSynapseIndex(g.Connectivity, "lSpk", "l")
		sink.Printf("ipre = %s;", ipreIdx)
		weightAddr = strat.ReverseWeightAddress(g.WeightVarName, "ipre")
		preIndex = strat.ReversePreIndex(g.Connectivity, "ipre")
	case ir.SparseRagged:
		ipreIdx := strat.ReverseSynapseIndex(g.Connectivity, "lSpk", "l")
		sink.Printf("ipre = %s;", ipreIdx)
		weightAddr = strat.ReverseWeightAddress(g.WeightVarName, "ipre")
		preIndex = strat.ReversePreIndex(g.Connectivity, "ipre")
	default: // DENSE
		sink.Printf("ipre = l;")
		weightAddr = strat.DenseReverseWeightAddress(g.WeightVarName, "lSpk", "ipre")
		preIndex = "ipre"
	}

	env := weightEnv(precision, timeVar, g.WeightUpdate, func(name string) (string, bool) {
		if name != g.WeightVarName {
			return "", false
		}
		return weightAddr, true
	})
	env.IDExpr = fmt.Sprintf("(%s, lSpk)", preIndex)
	sink.Raw(rawLine(env.Apply(g.WeightUpdate.LearnPostCode)))

	sink.CloseScope()
	sink.CloseScope()
	sink.CloseScope()
	return nil
}

func resolveIpost(sink *emit.Sink, strat indexing.Strategy, g *ir.SynapseGroup, ipre, loopVar string) string {
	switch g.Connectivity {
	case ir.SparseYale, ir.SparseRagged:
		expr, _ := strat.ForwardPostIndex(g.Connectivity, ipre, loopVar)
		sink.Printf("const unsigned int ipost = %s;", expr)
		return "ipost"
	default: // DENSE, BITMASK: the loop variable is itself named "ipost"
		return loopVar
	}
}

// forwardLoopVar names the forward inner-loop index: "j" ranges over a
// sparse row's neighbours, while DENSE/BITMASK iterate ipost directly.
func forwardLoopVar(g *ir.SynapseGroup) string {
	switch g.Connectivity {
	case ir.SparseYale, ir.SparseRagged:
		return "j"
	default:
		return "ipost"
	}
}

func forwardBound(strat indexing.Strategy, g *ir.SynapseGroup) string {
	return strat.ForwardRowLength(g.Connectivity, "ipre")
}

func weightAddrFor(strat indexing.Strategy, g *ir.SynapseGroup, ipre, j, ipost string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		if name != g.WeightVarName {
			return "", false
		}
		return weightAddress(strat, g, name, ipre, j, ipost)
	}
}

func weightAddress(strat indexing.Strategy, g *ir.SynapseGroup, v, ipre, j, ipost string) (string, bool) {
	if g.WeightKind == ir.Global {
		return v, true
	}
	return strat.ForwardWeightAddress(g.Connectivity, v, ipre, j, ipost)
}

func maxDendriticSlots(g *ir.SynapseGroup) int {
	if g.Target == nil {
		return 1
	}
	for _, m := range g.Target.MergedInSyns {
		if m.Name == g.PSMTarget {
			return m.MaxDendriticDelaySlots
		}
	}
	return 1
}

func rawLine(s string) string {
	if s == "" || s[len(s)-1] == '\n' {
		return s
	}
	return s + "\n"
}
