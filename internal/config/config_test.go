package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nscgen/nscgen/internal/ir"
)

func TestLoad_ValidConfig(t *testing.T) {
	src := []byte(`genConfig: {
		precision: "single"
		dt: 0.05
		autoRefractory: true
	}`)
	cfg, errs := Load(src)
	require.Empty(t, errs)
	assert.Equal(t, ir.Single, cfg.Precision)
	assert.Equal(t, 0.05, cfg.DT)
	assert.True(t, cfg.AutoRefractory)
	assert.True(t, cfg.AutoInitSparseVars) // schema default
}

func TestLoad_DefaultsApplyWhenFieldsOmitted(t *testing.T) {
	cfg, errs := Load([]byte(`genConfig: {}`))
	require.Empty(t, errs)
	assert.Equal(t, ir.Double, cfg.Precision)
	assert.Equal(t, 0.1, cfg.DT)
}

func TestLoad_NonPositiveDTIsRejected(t *testing.T) {
	_, errs := Load([]byte(`genConfig: { dt: -1 }`))
	require.NotEmpty(t, errs)
}

func TestLoad_UnknownPrecisionIsRejected(t *testing.T) {
	_, errs := Load([]byte(`genConfig: { precision: "half" }`))
	require.NotEmpty(t, errs)
}
