// Package config carries the immutable process-wide generation
// preferences the driver reads once at startup (§4.9, §10.3): floating
// -point precision, timestep, and the global emission-preference flags.
// A GenConfig is never mutated after Load returns it; codegen.Generate
// takes it by value.
package config

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/nscgen/nscgen/internal/ir"
)

//go:embed schema.cue
var schemaCUE string

// GenConfig is the resolved, immutable set of generation preferences
// (§4.9's "global preference flags" and the model-level precision/Δt).
type GenConfig struct {
	Precision          ir.Precision
	DT                 float64
	AutoRefractory     bool
	AutoInitSparseVars bool
	DefaultVarMode     string
}

// LoadError reports a single CUE validation failure, following the same
// stable-code discipline as ir.ValidationError.
type LoadError struct {
	Field   string
	Message string
	Code    string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

const (
	ErrCUEParse       = "E300" // the CUE source failed to parse
	ErrCUEValidate    = "E301" // the CUE value failed schema validation
	ErrCUEDecode      = "E302" // a validated value failed to decode into GenConfig
	ErrUnknownPrecision = "E303"
)

// Load parses and validates src (CUE source text) against the embedded
// schema, then decodes it into a GenConfig. It never fail-fasts within
// CUE's own validation: cue.Value.Validate(cue.Concrete(true)) already
// collects every field error into a single cue.Error the caller can
// range over with errors.As, mirroring the collect-all-errors
// discipline the rest of this module's loaders use.
func Load(src []byte) (GenConfig, []error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return GenConfig{}, []error{&LoadError{Field: "schema", Message: err.Error(), Code: ErrCUEParse}}
	}

	val := ctx.CompileBytes(src)
	if err := val.Err(); err != nil {
		return GenConfig{}, []error{&LoadError{Field: "genConfig", Message: err.Error(), Code: ErrCUEParse}}
	}

	unified := schema.Unify(val).LookupPath(cue.ParsePath("genConfig"))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		var errs []error
		for _, e := range cueErrors(err) {
			errs = append(errs, &LoadError{Field: "genConfig", Message: e, Code: ErrCUEValidate})
		}
		return GenConfig{}, errs
	}

	var raw struct {
		Precision          string  `json:"precision"`
		DT                 float64 `json:"dt"`
		AutoRefractory     bool    `json:"autoRefractory"`
		AutoInitSparseVars bool    `json:"autoInitSparseVars"`
		DefaultVarMode     string  `json:"defaultVarMode"`
	}
	if err := unified.Decode(&raw); err != nil {
		return GenConfig{}, []error{&LoadError{Field: "genConfig", Message: err.Error(), Code: ErrCUEDecode}}
	}

	precision, err := parsePrecision(raw.Precision)
	if err != nil {
		return GenConfig{}, []error{err}
	}

	return GenConfig{
		Precision:          precision,
		DT:                 raw.DT,
		AutoRefractory:     raw.AutoRefractory,
		AutoInitSparseVars: raw.AutoInitSparseVars,
		DefaultVarMode:     raw.DefaultVarMode,
	}, nil
}

func parsePrecision(s string) (ir.Precision, error) {
	switch s {
	case "single":
		return ir.Single, nil
	case "double", "":
		return ir.Double, nil
	default:
		return 0, &LoadError{Field: "precision", Message: fmt.Sprintf("unknown precision %q", s), Code: ErrUnknownPrecision}
	}
}

func cueErrors(err error) []string {
	type errorList interface{ Errors() []error }
	if el, ok := err.(errorList); ok {
		var out []string
		for _, e := range el.Errors() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
