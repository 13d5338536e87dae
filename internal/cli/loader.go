// Package cli wires the cobra command tree and the run-manifest / cache
// bookkeeping around the pure internal/codegen driver (§11.1). Nothing in
// internal/codegen touches the filesystem or a logger; this package is
// where that ambient plumbing lives.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nscgen/nscgen/internal/ir"
)

// LoadError reports a single network-file loading failure — malformed
// JSON, or a synapse group referencing a neuron group that was never
// declared — following the same stable-code discipline as
// ir.ValidationError and config.LoadError.
type LoadError struct {
	Field   string
	Message string
	Code    string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

const (
	ErrNetworkReadFailed   = "E400" // network file could not be read
	ErrNetworkParseFailed  = "E401" // network file is not valid JSON
	ErrNetworkDanglingRef  = "E402" // a synapse group names an undeclared neuron group
)

// wireNetwork is the on-disk JSON shape a `generate`/`validate` invocation
// takes as input. It differs from ir.Network only in how synapse groups
// reference their source/target populations: by name, resolved into
// pointers by LoadNetwork, rather than embedding the population twice.
type wireNetwork struct {
	Name          string              `json:"name"`
	Precision     string              `json:"precision"`
	DT            float64             `json:"dt"`
	NeuronGroups  []wireNeuronGroup   `json:"neuronGroups"`
	SynapseGroups []wireSynapseGroup  `json:"synapseGroups"`
}

type wireNeuronGroup struct {
	Name             string                 `json:"name"`
	Size             int                    `json:"size"`
	Model            *ir.NeuronModel        `json:"model"`
	InitialValues    map[string]string      `json:"initialValues,omitempty"`
	Flags            ir.NeuronGroupFlags    `json:"flags"`
	DelayQueueDepth  int                    `json:"delayQueueDepth,omitempty"`
	MergedInSyns     []wireMergedInSyn      `json:"mergedInSyns,omitempty"`
	PoissonRateArray string                 `json:"poissonRateArray,omitempty"`
	PoissonOffsetVar string                 `json:"poissonOffsetVar,omitempty"`
}

type wireMergedInSyn struct {
	Name                   string                  `json:"name"`
	PSM                    *ir.PostsynapticModel   `json:"psm"`
	MaxDendriticDelaySlots int                     `json:"maxDendriticDelaySlots,omitempty"`
}

type wireSynapseGroup struct {
	Name                   string                  `json:"name"`
	Source                 string                  `json:"source"`
	Target                 string                  `json:"target"`
	Connectivity           string                  `json:"connectivity"`
	WeightKind             string                  `json:"weightKind"`
	PSMTarget              string                  `json:"psmTarget"`
	DendriticDelayRequired bool                    `json:"dendriticDelayRequired,omitempty"`
	MaxRowConnections      int                     `json:"maxRowConnections,omitempty"`
	MaxSourceConnections   int                     `json:"maxSourceConnections,omitempty"`
	AxonalDelaySlot        int                     `json:"axonalDelaySlot"`
	BackPropDelaySlot      int                     `json:"backPropDelaySlot"`
	WeightUpdate           *ir.WeightUpdateModel   `json:"weightUpdate"`
	Postsynaptic           *ir.PostsynapticModel   `json:"postsynaptic"`
	WeightVarName          string                  `json:"weightVarName"`
}

var connectivityNames = map[string]ir.ConnectivityKind{
	"DENSE":         ir.Dense,
	"BITMASK":       ir.Bitmask,
	"SPARSE_YALE":   ir.SparseYale,
	"SPARSE_RAGGED": ir.SparseRagged,
}

var weightKindNames = map[string]ir.WeightKind{
	"GLOBAL":     ir.Global,
	"INDIVIDUAL": ir.Individual,
}

// LoadNetwork reads and resolves a network JSON file at path into an
// ir.Network, collecting every reference error it finds rather than
// stopping at the first one (the same collect-all discipline
// config.Load and ir.Validate follow).
func LoadNetwork(path string) (*ir.Network, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{&LoadError{Field: "path", Message: err.Error(), Code: ErrNetworkReadFailed}}
	}

	var wire wireNetwork
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, []error{&LoadError{Field: "json", Message: err.Error(), Code: ErrNetworkParseFailed}}
	}

	var errs []error

	precision := ir.Double
	if wire.Precision == "single" {
		precision = ir.Single
	}

	neurons := make(map[string]*ir.NeuronGroup, len(wire.NeuronGroups))
	network := &ir.Network{Name: wire.Name, Precision: precision, DT: wire.DT}

	for _, wg := range wire.NeuronGroups {
		g := &ir.NeuronGroup{
			Name:             wg.Name,
			Size:             wg.Size,
			Model:            wg.Model,
			InitialValues:    wg.InitialValues,
			Flags:            wg.Flags,
			DelayQueueDepth:  wg.DelayQueueDepth,
			PoissonRateArray: wg.PoissonRateArray,
			PoissonOffsetVar: wg.PoissonOffsetVar,
		}
		for _, wm := range wg.MergedInSyns {
			g.MergedInSyns = append(g.MergedInSyns, ir.MergedInSyn{
				Name:                   wm.Name,
				PSM:                    wm.PSM,
				MaxDendriticDelaySlots: wm.MaxDendriticDelaySlots,
			})
		}
		neurons[g.Name] = g
		network.NeuronGroups = append(network.NeuronGroups, g)
	}

	for _, ws := range wire.SynapseGroups {
		source, ok := neurons[ws.Source]
		if !ok {
			errs = append(errs, &LoadError{
				Field:   ws.Name,
				Message: fmt.Sprintf("source group %q not declared", ws.Source),
				Code:    ErrNetworkDanglingRef,
			})
		}
		target, ok := neurons[ws.Target]
		if !ok {
			errs = append(errs, &LoadError{
				Field:   ws.Name,
				Message: fmt.Sprintf("target group %q not declared", ws.Target),
				Code:    ErrNetworkDanglingRef,
			})
		}

		network.SynapseGroups = append(network.SynapseGroups, &ir.SynapseGroup{
			Name:                   ws.Name,
			Source:                 source,
			Target:                 target,
			Connectivity:           connectivityNames[ws.Connectivity],
			WeightKind:             weightKindNames[ws.WeightKind],
			PSMTarget:              ws.PSMTarget,
			DendriticDelayRequired: ws.DendriticDelayRequired,
			MaxRowConnections:      ws.MaxRowConnections,
			MaxSourceConnections:   ws.MaxSourceConnections,
			AxonalDelaySlot:        ws.AxonalDelaySlot,
			BackPropDelaySlot:      ws.BackPropDelaySlot,
			WeightUpdate:           ws.WeightUpdate,
			Postsynaptic:           ws.Postsynaptic,
			WeightVarName:          ws.WeightVarName,
		})
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return network, nil
}
