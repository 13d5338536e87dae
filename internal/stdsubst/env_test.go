package stdsubst

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nscgen/nscgen/internal/ir"
)

func TestApply_TimeAndID(t *testing.T) {
	e := Env{TimeVar: "t", IDExpr: "n"}
	assert.Equal(t, "$(x) = t;", e.Apply("$(x) = $(t);"))
}

func TestApply_IDLeftAloneWhenEmpty(t *testing.T) {
	e := Env{TimeVar: "t"}
	assert.Equal(t, "$(id)", e.Apply("$(id)"))
}

func TestApply_VariableAddressing(t *testing.T) {
	e := Env{
		TimeVar: "t",
		IDExpr:  "n",
		VarAddress: func(name string) (string, bool) {
			if name == "V" {
				return "Vpop[n]", true
			}
			return "", false
		},
	}
	assert.Equal(t, "Vpop[n] += 1;", e.Apply("$(V) += 1;"))
}

func TestApply_ParamsAndDerivedParamsBecomeLiterals(t *testing.T) {
	e := Env{
		Precision:     ir.Single,
		Params:        []ir.Param{{Name: "gL", Value: 0.1}},
		DerivedParams: []ir.DerivedParam{{Name: "ExpTC", Value: 0.99}},
	}
	assert.Equal(t, "0.1f * 0.99f", e.Apply("$(gL) * $(ExpTC)"))
}

func TestApply_ExtraGlobalParamIsArrayName(t *testing.T) {
	e := Env{ExtraGlobalParams: []ir.ExtraGlobalParam{{Name: "lut", Type: "scalar"}}}
	assert.Equal(t, "lut[0]", e.Apply("$(lut)[0]"))
}

func TestApply_SupportFunctionGetsNamespacePrefix(t *testing.T) {
	e := Env{SupportNamespace: "pop_neuron", SupportFunctionNames: []string{"clip"}}
	assert.Equal(t, "pop_neuron::clip(x)", e.Apply("$(clip)(x)"))
}

func TestApply_AddToInSyn(t *testing.T) {
	e := Env{
		AddToInSyn: AddToInSynExpr("syn", "ipost"),
	}
	assert.Equal(t, "inSynsyn[ipost] += (w);", e.Apply("$(addToInSyn, w);"))
}

func TestApply_AddToInSynDelay(t *testing.T) {
	offset := func(d string) string { return "off(" + d + ")" }
	e := Env{
		AddToInSynDelay: AddToInSynDelayExpr("syn", "ipost", offset),
	}
	assert.Equal(t, "denDelaysyn[off(d) + ipost] += (g);", e.Apply("$(addToInSynDelay, g, d);"))
}

func TestApply_DeprecatedAliasesExpandInNonDelayPath(t *testing.T) {
	e := Env{
		InSynAccumulator: "inSynsyn[ipost]",
		DendriticDelay:   false,
	}
	assert.Equal(t, "inSynsyn[ipost] += addtoinSyn;", e.Apply("$(updatelinsyn);"))
}

func TestApply_DeprecatedAliasesSkippedUnderDendriticDelay(t *testing.T) {
	e := Env{
		InSynAccumulator: "inSynsyn[ipost]",
		DendriticDelay:   true,
	}
	// The alias name itself never resolves, so it passes through
	// unrecognized rather than expanding.
	got := e.Apply("$(updatelinsyn);")
	assert.Contains(t, got, "$(updatelinsyn)")
}

func TestApply_UnrecognizedTokenPassesThrough(t *testing.T) {
	e := Env{}
	assert.Equal(t, "$(mystery)", e.Apply("$(mystery)"))
}
