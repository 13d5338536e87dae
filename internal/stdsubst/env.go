// Package stdsubst implements the standard substitution library (§4.3):
// the fixed composition of $(t), $(id), variable, parameter,
// derived-parameter, extra-global-parameter, addToInSyn/addToInSynDelay,
// deprecated-alias, and support-function-name rewrites every code
// fragment goes through regardless of which pass emitted it.
//
// Everything here is built on top of internal/subst's two primitives;
// this package owns no scanning logic of its own, only the table of
// names and call forms a fragment may reference and what each resolves
// to for a given group.
package stdsubst

import (
	"fmt"

	"github.com/nscgen/nscgen/internal/ir"
	"github.com/nscgen/nscgen/internal/numfmt"
	"github.com/nscgen/nscgen/internal/subst"
)

// Env is the immutable substitution environment a single code fragment
// is rewritten against. One Env is built per (group, sub-pass) and
// reused for every fragment that sub-pass emits.
type Env struct {
	Precision ir.Precision

	// TimeVar is what $(t) resolves to, normally the literal "t" — the
	// parameter name of the enclosing calc*CPU function.
	TimeVar string

	// IDExpr is what $(id) resolves to: the current per-entity loop
	// index. Left empty for fragments where $(id) has no meaning, so an
	// accidental use surfaces as an unrecognized token (Property 5)
	// rather than silently vanishing.
	IDExpr string

	// VarAddress resolves a declared variable name to the expression
	// that reads or writes it in the current loop context. Neuron
	// fragments address a flat array by $(id); synapse fragments go
	// through internal/indexing.
	VarAddress func(name string) (string, bool)

	Params            []ir.Param
	DerivedParams     []ir.DerivedParam
	ExtraGlobalParams []ir.ExtraGlobalParam

	SupportNamespace     string
	SupportFunctionNames []string

	// InSynAccumulator is the expression $(inSyn) resolves to, e.g.
	// "inSynsyn[ipost]" in a synapse weight-update fragment or the merge
	// accumulator local in a postsynaptic applyInput/decay fragment. Left
	// empty where $(inSyn) has no meaning (e.g. LearnPostCode); while it is
	// empty, $(inSyn), $(updatelinsyn) and $(addtoinSyn) are not rewritten.
	InSynAccumulator string

	// DendriticDelay, when true, suppresses every deprecated-alias
	// rewrite: a synapse group with dendritic delay never had a
	// well-defined non-delayed accumulator to alias in the first place,
	// and §4.3 requires the aliases be preserved verbatim only for the
	// non-delayed path (verified by Testable Property 4's dendritic
	// delay scenario, S4).
	DendriticDelay bool

	// AddToInSyn and AddToInSynDelay build the addToInSyn(x) /
	// addToInSynDelay(x, d) call substitutions for the fragment's own
	// merge point. Nil disables the corresponding call form entirely
	// (a fragment with no incoming merge, e.g. LearnPostCode, has
	// neither).
	AddToInSyn      func(x string) string
	AddToInSynDelay func(x, d string) string
}

// AddToInSynExpr returns the standard addToInSyn(x) expansion for a
// merge point named psm feeding accumulator inSyn<psm>[ipost] (§4.3):
// inSyn<psm>[ipost] += (x).
func AddToInSynExpr(psm, ipost string) func(x string) string {
	return func(x string) string {
		return fmt.Sprintf("inSyn%s[%s] += (%s)", psm, ipost, x)
	}
}

// AddToInSynDelayExpr returns the standard addToInSynDelay(x, d)
// expansion for a merge point named psm whose dendritic ring buffer
// offset for delay amount d is computed by offset: denDelay<psm>[offset
// (d) + ipost] += (x).
func AddToInSynDelayExpr(psm, ipost string, offset func(d string) string) func(x, d string) string {
	return func(x, d string) string {
		return fmt.Sprintf("denDelay%s[%s + %s] += (%s)", psm, offset(d), ipost, x)
	}
}

// Apply performs the full standard substitution composition on fragment
// in the fixed order §4.3 specifies: deprecated aliases first (so their
// expansion is itself subject to every later rewrite), then the two
// addToInSyn call forms, then one name-substitution pass covering
// $(t), $(id), variables, parameters, derived parameters, extra global
// parameters, and support-code function names.
func (e Env) Apply(fragment string) string {
	out := fragment

	if e.InSynAccumulator != "" && !e.DendriticDelay {
		out = subst.Name(out, map[string]bool{"updatelinsyn": true}, func(string) string {
			return "$(inSyn) += $(addtoinSyn)"
		})
	}

	if e.AddToInSyn != nil {
		out = subst.Rewrite(out, func(parts []string) (string, bool) {
			if len(parts) != 2 || parts[0] != "addToInSyn" {
				return "", false
			}
			return e.AddToInSyn(parts[1]), true
		})
	}
	if e.AddToInSynDelay != nil {
		out = subst.Rewrite(out, func(parts []string) (string, bool) {
			if len(parts) != 3 || parts[0] != "addToInSynDelay" {
				return "", false
			}
			return e.AddToInSynDelay(parts[1], parts[2]), true
		})
	}

	return e.applyNames(out)
}

// applyNames performs the single name-substitution pass shared by every
// fragment kind (§4.3, items 1, 2, 3, 4, 5, and support-function
// prefixing). It never recurses into its own output — a variable whose
// address expression happens to contain another recognized name is
// emitted verbatim (§4.2).
func (e Env) applyNames(fragment string) string {
	return subst.Rewrite(fragment, func(parts []string) (string, bool) {
		if len(parts) != 1 {
			return "", false
		}
		n := parts[0]

		switch {
		case n == "t":
			return e.TimeVar, true
		case n == "id" && e.IDExpr != "":
			return e.IDExpr, true
		case n == "inSyn" && e.InSynAccumulator != "" && !e.DendriticDelay:
			return e.InSynAccumulator, true
		case n == "addtoinSyn" && e.InSynAccumulator != "" && !e.DendriticDelay:
			// The deprecated $(updatelinsyn)/$(addtoinSyn) alias resolves to
			// the scratch local the emitting pass declares alongside it, not
			// to any merge-time accumulator (§4.3).
			return "addtoinSyn", true
		}

		for _, p := range e.Params {
			if p.Name == n {
				return numfmt.Literal(p.Value, e.Precision), true
			}
		}
		for _, p := range e.DerivedParams {
			if p.Name == n {
				return numfmt.Literal(p.Value, e.Precision), true
			}
		}
		for _, g := range e.ExtraGlobalParams {
			if g.Name == n {
				return g.Name, true
			}
		}
		for _, f := range e.SupportFunctionNames {
			if f == n {
				return e.SupportNamespace + "::" + n, true
			}
		}

		if e.VarAddress != nil {
			if addr, ok := e.VarAddress(n); ok {
				return addr, true
			}
		}

		return "", false
	})
}
