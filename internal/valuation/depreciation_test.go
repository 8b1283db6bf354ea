package valuation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudcurio/arbfinder/internal/domain"
)

func TestDepreciateLinear(t *testing.T) {
	p := DepreciationParams{Model: domain.DepreciationLinear, Rate: 0.02}

	v, err := Depreciate(100, 0, p)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, v, 1e-9)

	v, err = Depreciate(100, 25, p)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, v, 1e-9)

	// Past the zero crossing the value floors at zero.
	v, err = Depreciate(100, 100, p)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestDepreciateExponential(t *testing.T) {
	p := DepreciationParams{Model: domain.DepreciationExponential, K: 0.05}

	v, err := Depreciate(100, 0, p)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, v, 1e-9)

	v, err = Depreciate(100, 12, p)
	require.NoError(t, err)
	assert.InDelta(t, 100*math.Exp(-0.6), v, 1e-9)
}

func TestDepreciateSCurve(t *testing.T) {
	p := DepreciationParams{
		Model:    domain.DepreciationSCurve,
		Floor:    0.2,
		Slope:    0.5,
		Midpoint: 24,
	}

	// At the midpoint the curve sits halfway between 1 and the floor.
	v, err := Depreciate(100, 24, p)
	require.NoError(t, err)
	assert.InDelta(t, 60.0, v, 1e-9)

	// Far past the midpoint it settles near the floor.
	v, err = Depreciate(100, 240, p)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, v, 0.1)

	// Fresh items stay near full value but never above base.
	v, err = Depreciate(100, 0, p)
	require.NoError(t, err)
	assert.LessOrEqual(t, v, 100.0)
	assert.Greater(t, v, 99.0)
}

func TestDepreciateNegativeAge(t *testing.T) {
	p := DepreciationParams{Model: domain.DepreciationLinear, Rate: 0.02}
	_, err := Depreciate(100, -1, p)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDepreciateUnknownModel(t *testing.T) {
	_, err := Depreciate(100, 12, DepreciationParams{Model: "parabolic"})
	assert.ErrorIs(t, err, domain.ErrCategoryConfig)
}
