package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// DomainNetwork is the domain-separation prefix used when hashing a
// Network for the generation cache (internal/genstore). The hash never
// influences emitted text; it exists purely so a cache can decide whether
// two generation requests are identical.
const DomainNetwork = "nscgen/network/v1"

// ContentHash computes a stable, order-sensitive digest of a Network. Two
// networks that differ only in field ordering that this package does not
// otherwise treat as significant (e.g. map iteration order) still hash
// identically, because every input is walked in a fixed, explicit order
// and every string is NFC-normalized before hashing — mirroring the
// domain-separated-SHA-256 approach used elsewhere in this codebase for
// content-addressed identity, extended with Unicode normalization so a
// fragment re-saved with a different normal form does not appear to be a
// different model.
func ContentHash(n *Network, extra ...string) string {
	h := sha256.New()
	h.Write([]byte(DomainNetwork))
	h.Write([]byte{0x00})

	write := func(s string) {
		h.Write([]byte(norm.NFC.String(s)))
		h.Write([]byte{0x1f}) // unit separator; never appears in source fragments
	}
	writeInt := func(i int) { write(strconv.Itoa(i)) }
	writeFloat := func(f float64) { write(strconv.FormatFloat(f, 'g', -1, 64)) }
	writeBool := func(b bool) { write(strconv.FormatBool(b)) }

	write(n.Name)
	writeInt(int(n.Precision))
	writeFloat(n.DT)

	for _, g := range n.NeuronGroups {
		write("neuron")
		write(g.Name)
		writeInt(g.Size)
		writeNeuronModel(write, writeFloat, g.Model)
		hashFlags(write, writeBool, g.Flags)
		writeInt(g.DelayQueueDepth)
		for _, m := range g.MergedInSyns {
			write("merged")
			write(m.Name)
			writeInt(m.MaxDendriticDelaySlots)
			writePostsynapticModel(write, writeFloat, writeBool, m.PSM)
		}
	}

	for _, s := range n.SynapseGroups {
		write("synapse")
		write(s.Name)
		if s.Source != nil {
			write(s.Source.Name)
		}
		if s.Target != nil {
			write(s.Target.Name)
		}
		writeInt(int(s.Connectivity))
		writeInt(int(s.WeightKind))
		write(s.PSMTarget)
		writeBool(s.DendriticDelayRequired)
		writeInt(s.MaxRowConnections)
		writeInt(s.MaxSourceConnections)
		writeInt(s.AxonalDelaySlot)
		writeInt(s.BackPropDelaySlot)
		write(s.WeightVarName)
		writeWeightUpdateModel(write, writeFloat, s.WeightUpdate)
		writePostsynapticModel(write, writeFloat, writeBool, s.Postsynaptic)
	}

	for _, e := range extra {
		write(e)
	}

	return hex.EncodeToString(h.Sum(nil))
}

func hashFlags(write func(string), writeBool func(bool), f NeuronGroupFlags) {
	writeBool(f.DelayRequired)
	writeBool(f.SpikeEventRequired)
	writeBool(f.TrueSpikeRequired)
	writeBool(f.SpikeTimeRequired)
	writeBool(f.AutoRefractoryEnabled)
	writeBool(f.IsPoisson)
}

func writeCodeModel(write func(string), writeFloat func(float64), m codeModel) {
	write(m.SupportCodeNamespace)
	for _, v := range m.Vars {
		write(v.Name)
		write(v.InitialValue)
	}
	for _, p := range m.Params {
		write(p.Name)
		writeFloat(p.Value)
	}
	for _, p := range m.DerivedParams {
		write(p.Name)
		writeFloat(p.Value)
	}
	for _, e := range m.ExtraGlobalParams {
		write(e.Name)
		write(e.Type)
	}
}

func writeNeuronModel(write func(string), writeFloat func(float64), m *NeuronModel) {
	if m == nil {
		write("<nil-neuron-model>")
		return
	}
	write(m.Name)
	writeCodeModel(write, writeFloat, m.codeModel)
	write(m.SimCode)
	write(m.ThresholdConditionCode)
	write(m.ResetCode)
	write(m.EventCode)
	write(m.EventThresholdCode)
}

func writeWeightUpdateModel(write func(string), writeFloat func(float64), m *WeightUpdateModel) {
	if m == nil {
		write("<nil-weight-update-model>")
		return
	}
	write(m.Name)
	writeCodeModel(write, writeFloat, m.codeModel)
	write(m.SimCode)
	write(m.EventCode)
	write(m.EventThresholdCode)
	write(m.SynapseDynamicsCode)
	write(m.LearnPostCode)
}

func writePostsynapticModel(write func(string), writeFloat func(float64), writeBool func(bool), m *PostsynapticModel) {
	if m == nil {
		write("<nil-postsynaptic-model>")
		return
	}
	write(m.Name)
	writeCodeModel(write, writeFloat, m.codeModel)
	write(m.DecayCode)
	write(m.ApplyInputCode)
	writeBool(m.HasDendriticDelay)
}
