// Package codegen is the top-level driver (§4.8): it walks a Network in
// its own deterministic order, dispatches each group to neuronpass or
// synapsepass, and assembles the two include-guarded output files the
// runner (internal/cli) writes to disk.
//
// Generate is the package's only entry point and its only side effect
// is none: it returns text and diagnostics, never touching the
// filesystem or a logger (§10.1). Diagnostic collection follows the
// teacher compiler's (result, []error) convention rather than failing
// on the first problem.
package codegen

import (
	"fmt"

	"github.com/nscgen/nscgen/internal/config"
	"github.com/nscgen/nscgen/internal/emit"
	"github.com/nscgen/nscgen/internal/ir"
	"github.com/nscgen/nscgen/internal/neuronpass"
	"github.com/nscgen/nscgen/internal/synapsepass"
)

// Diagnostic is a non-fatal generation-time observation. It is an alias
// for ir.Diagnostic so neuronpass/synapsepass can build one without
// importing this package (which imports them).
type Diagnostic = ir.Diagnostic

// GenerationError reports a fatal per-group failure — one that stops
// generation for that model outright rather than degrading gracefully
// (§7): a non-empty neuron population with no simCode, for example.
type GenerationError struct {
	Group  string
	Reason string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("codegen: group %s: %s", e.Group, e.Reason)
}

const (
	timeVar        = "t"
	neuronFile     = "neuronFnct.cc"
	synapseFile    = "synapseFnct.cc"
)

// Generate walks network in its own group order and emits the two
// output files a model needs, per §4.8/§6. It returns the emitted
// filename -> text map and every non-fatal Diagnostic collected along
// the way. A malformed IR should be rejected with ir.Validate before
// calling Generate — Generate itself does not re-validate, mirroring
// the teacher compiler's "validate, then compile" staging.
func Generate(network *ir.Network, cfg config.GenConfig) (files map[string]string, diags []Diagnostic, err error) {
	defer func() {
		if r := recover(); r != nil {
			if unbalanced, ok := r.(*emit.ErrUnbalancedScope); ok {
				err = fmt.Errorf("codegen: %w", unbalanced)
				return
			}
			err = fmt.Errorf("codegen: internal error: %v", r)
		}
	}()

	for _, g := range network.NeuronGroups {
		if g.Model != nil && g.Size > 0 && g.Model.SimCode == "" {
			return nil, diags, &GenerationError{Group: g.Name, Reason: "non-empty neuron group has no simCode"}
		}
	}

	neuronBody := emit.New()
	for _, g := range network.NeuronGroups {
		diags = append(diags, neuronpass.Emit(neuronBody, g, cfg.Precision, timeVar)...)
	}
	neuronText, ferr := neuronBody.Finish()
	if ferr != nil {
		return nil, diags, fmt.Errorf("codegen: neuron pass: %w", ferr)
	}

	dynamicsSink := emit.New()
	for _, g := range network.DynamicsGroups() {
		diags = append(diags, synapsepass.EmitDynamics(dynamicsSink, g, cfg.Precision, timeVar)...)
	}
	dynamicsText, ferr := dynamicsSink.Finish()
	if ferr != nil {
		return nil, diags, fmt.Errorf("codegen: synapse dynamics pass: %w", ferr)
	}

	propagationSink := emit.New()
	for _, g := range network.SynapseGroups {
		diags = append(diags, synapsepass.EmitPropagation(propagationSink, g, cfg.Precision, timeVar)...)
	}
	propagationText, ferr := propagationSink.Finish()
	if ferr != nil {
		return nil, diags, fmt.Errorf("codegen: synapse propagation pass: %w", ferr)
	}

	postLearnSink := emit.New()
	for _, g := range network.PostLearnGroups() {
		diags = append(diags, synapsepass.EmitPostLearn(postLearnSink, g, cfg.Precision, timeVar)...)
	}
	postLearnText, ferr := postLearnSink.Finish()
	if ferr != nil {
		return nil, diags, fmt.Errorf("codegen: post-learning pass: %w", ferr)
	}

	cType := cfg.Precision.CType()

	files = map[string]string{
		neuronFile: wrapGuard(network.Name, "neuronFnct", fmt.Sprintf("void calcNeuronsCPU(%s t)\n{\n%s}\n", cType, neuronText)),
		synapseFile: wrapGuard(network.Name, "synapseFnct", buildSynapseFile(cType, dynamicsText, propagationText, postLearnText)),
	}

	return files, diags, nil
}

func buildSynapseFile(cType, dynamicsText, propagationText, postLearnText string) string {
	out := ""
	if dynamicsText != "" {
		// addtoinSyn is declared once, at the top of the function, ahead of
		// every group's dynamics block — the deprecated $(updatelinsyn)
		// alias resolves to this shared scratch local wherever it appears,
		// not to a per-group redeclaration.
		out += fmt.Sprintf("void calcSynapseDynamicsCPU(%s t)\n{\n%s addtoinSyn;\n%s}\n\n", cType, cType, dynamicsText)
	}
	out += fmt.Sprintf("void calcSynapsesCPU(%s t)\n{\n%s}\n", cType, propagationText)
	if postLearnText != "" {
		out += fmt.Sprintf("\nvoid learnSynapsesPostHost(%s t)\n{\n%s}\n", cType, postLearnText)
	}
	return out
}

func wrapGuard(model, file, body string) string {
	guard := fmt.Sprintf("%s_%s_cc", model, file)
	return fmt.Sprintf("#ifndef %s\n#define %s\n\n%s\n#endif // %s\n", guard, guard, body, guard)
}
