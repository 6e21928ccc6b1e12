package shapeeval

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailstorm-dev/hailstorm/internal/simerr"
)

func TestRectMatchesPiecewiseDefinition(t *testing.T) {
	shape, err := Compile("rect(t)")
	require.NoError(t, err)
	assert.Equal(t, 1.0, shape(0))
	assert.Equal(t, 0.5, shape(0.5))
	assert.Equal(t, 0.5, shape(-0.5))
	assert.Equal(t, 0.0, shape(0.6))
}

func TestTriMatchesPiecewiseDefinition(t *testing.T) {
	shape, err := Compile("tri(t)")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, shape(0), 1e-9)
	assert.InDelta(t, 0.5, shape(0.5), 1e-9)
	assert.Equal(t, 0.0, shape(1.0))
	assert.Equal(t, 0.0, shape(2.0))
}

func TestStepMatchesPiecewiseDefinition(t *testing.T) {
	shape, err := Compile("step(t)")
	require.NoError(t, err)
	assert.Equal(t, 0.0, shape(-1))
	assert.Equal(t, 0.5, shape(0))
	assert.Equal(t, 1.0, shape(1))
}

func TestTrapzAndCostrapzAgreeAtPlateauAndZero(t *testing.T) {
	trapzShape, err := Compile("trapz(t,2,1)")
	require.NoError(t, err)
	costrapzShape, err := Compile("costrapz(t,2,1)")
	require.NoError(t, err)

	for _, x := range []float64{0, 0.3, -0.45} {
		assert.InDelta(t, 1.0, trapzShape(x), 1e-9)
		assert.InDelta(t, 1.0, costrapzShape(x), 1e-9)
	}
	assert.Equal(t, 0.0, trapzShape(2))
	assert.Equal(t, 0.0, costrapzShape(2))
}

func TestCompileRealScaledShape(t *testing.T) {
	shape, err := Compile("rect(t-5)*10")
	require.NoError(t, err)
	assert.Equal(t, 0.0, shape(4))
	assert.Equal(t, 10.0, shape(5))
}

func TestCompileRejectsGarbage(t *testing.T) {
	_, err := Compile("this is not an expression (")
	require.Error(t, err)
	assert.True(t, errors.Is(err, simerr.ErrBadShape))
}
