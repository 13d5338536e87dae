package ir

import "fmt"

// Validation error codes (E200-E219), following the same
// stable-code-plus-message discipline used throughout this module's
// error types.
const (
	ErrEmptyNetworkName     = "E200" // network name is required
	ErrNonPositiveDT        = "E201" // timestep must be > 0
	ErrDuplicateGroupName   = "E202" // neuron/synapse group name reused
	ErrNonPositiveSize      = "E203" // neuron group size must be > 0
	ErrDanglingSource       = "E204" // synapse group source not in network
	ErrDanglingTarget       = "E205" // synapse group target not in network
	ErrRaggedNoMaxRow       = "E206" // SPARSE_RAGGED requires maxRowConnections > 0
	ErrBitmaskIndividual    = "E207" // BITMASK connectivity cannot carry individual weights
	ErrDendriticNoBuffer    = "E208" // dendritic delay requested but PSM has no buffer
	ErrDendriticNoSlots     = "E209" // dendritic delay requested with zero slots
	ErrEventNoThreshold     = "E210" // spike-event population has no incoming event-threshold code
	ErrMissingPSMTarget     = "E211" // synapse group's PSMTarget not declared on its target group
	ErrMissingWeightUpdate  = "E212" // synapse group has no weight-update model
	ErrMissingPostsynaptic  = "E213" // synapse group has no postsynaptic model
	ErrMissingNeuronModel   = "E214" // neuron group has no neuron model
	ErrDelayNoDepth         = "E215" // delay required but queue depth <= 0
)

// ValidationError reports one violated Network invariant. Validate never
// fail-fasts: it collects every violation it finds so a caller sees the
// whole picture in one pass, mirroring the collect-all-errors discipline
// the rest of this module's validators use.
type ValidationError struct {
	Field   string
	Message string
	Code    string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a Network against the invariants of §3: dangling
// references, contradictory flags, non-positive sizes, and the
// connectivity-specific structural rules. It never mutates n.
func Validate(n *Network) []ValidationError {
	var errs []ValidationError

	if n.Name == "" {
		errs = append(errs, ValidationError{"Name", "network name must not be empty", ErrEmptyNetworkName})
	}
	if n.DT <= 0 {
		errs = append(errs, ValidationError{"DT", "timestep must be > 0", ErrNonPositiveDT})
	}

	seen := make(map[string]bool, len(n.NeuronGroups)+len(n.SynapseGroups))
	neurons := make(map[string]*NeuronGroup, len(n.NeuronGroups))

	for _, g := range n.NeuronGroups {
		if seen[g.Name] {
			errs = append(errs, ValidationError{"Name", fmt.Sprintf("duplicate group name %q", g.Name), ErrDuplicateGroupName})
		}
		seen[g.Name] = true
		neurons[g.Name] = g

		if g.Size <= 0 {
			errs = append(errs, ValidationError{g.Name, "neuron group size must be > 0", ErrNonPositiveSize})
		}
		if g.Model == nil {
			errs = append(errs, ValidationError{g.Name, "neuron group has no neuron model", ErrMissingNeuronModel})
		}
		if g.Flags.DelayRequired && g.DelayQueueDepth <= 0 {
			errs = append(errs, ValidationError{g.Name, "delay required but DelayQueueDepth <= 0", ErrDelayNoDepth})
		}
	}

	for _, g := range n.SynapseGroups {
		if seen[g.Name] {
			errs = append(errs, ValidationError{"Name", fmt.Sprintf("duplicate group name %q", g.Name), ErrDuplicateGroupName})
		}
		seen[g.Name] = true

		if g.Source == nil || neurons[g.Source.Name] != g.Source {
			errs = append(errs, ValidationError{g.Name, "source neuron group is not present in the network", ErrDanglingSource})
		}
		if g.Target == nil || neurons[g.Target.Name] != g.Target {
			errs = append(errs, ValidationError{g.Name, "target neuron group is not present in the network", ErrDanglingTarget})
		}
		if g.Connectivity == SparseRagged && g.MaxRowConnections <= 0 {
			errs = append(errs, ValidationError{g.Name, "SPARSE_RAGGED requires maxRowConnections > 0", ErrRaggedNoMaxRow})
		}
		if g.Connectivity == Bitmask && g.WeightKind == Individual {
			errs = append(errs, ValidationError{g.Name, "BITMASK connectivity cannot carry individual weights", ErrBitmaskIndividual})
		}
		if g.WeightUpdate == nil {
			errs = append(errs, ValidationError{g.Name, "synapse group has no weight-update model", ErrMissingWeightUpdate})
		}
		if g.Postsynaptic == nil {
			errs = append(errs, ValidationError{g.Name, "synapse group has no postsynaptic model", ErrMissingPostsynaptic})
		}

		if g.DendriticDelayRequired {
			if g.Postsynaptic == nil || !g.Postsynaptic.HasDendriticDelay {
				errs = append(errs, ValidationError{g.Name, "dendritic delay requested but postsynaptic model has no dendritic-delay buffer", ErrDendriticNoBuffer})
			}
			if g.Target != nil {
				if m, ok := findMergedInSyn(g.Target, g.PSMTarget); ok && m.MaxDendriticDelaySlots < 1 {
					errs = append(errs, ValidationError{g.Name, "dendritic delay requested with zero slots", ErrDendriticNoSlots})
				}
			}
		}

		if g.Target != nil {
			if _, ok := findMergedInSyn(g.Target, g.PSMTarget); !ok {
				errs = append(errs, ValidationError{g.Name, fmt.Sprintf("PSM target %q not declared on target group %q", g.PSMTarget, g.Target.Name), ErrMissingPSMTarget})
			}
		}
	}

	for _, g := range n.NeuronGroups {
		if !g.Flags.SpikeEventRequired {
			continue
		}
		if !anyIncomingHasEventThreshold(n, g) {
			errs = append(errs, ValidationError{g.Name, "spike-event population has no incoming weight-update model with event-threshold code", ErrEventNoThreshold})
		}
	}

	return errs
}

func findMergedInSyn(g *NeuronGroup, name string) (MergedInSyn, bool) {
	for _, m := range g.MergedInSyns {
		if m.Name == name {
			return m, true
		}
	}
	return MergedInSyn{}, false
}

func anyIncomingHasEventThreshold(n *Network, target *NeuronGroup) bool {
	for _, s := range n.IncomingTo(target) {
		if s.WeightUpdate != nil && s.WeightUpdate.EventThresholdCode != "" {
			return true
		}
	}
	return false
}
