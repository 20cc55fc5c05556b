package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateBMI(t *testing.T) {
	bmi, err := CalculateBMI(175, 80)
	require.NoError(t, err)
	assert.InDelta(t, 26.12, bmi, 0.01)

	_, err = CalculateBMI(0, 80)
	assert.Error(t, err)
	_, err = CalculateBMI(175, 0)
	assert.Error(t, err)
	_, err = CalculateBMI(300, 80)
	assert.Error(t, err)
}

func TestBMICategory(t *testing.T) {
	assert.Equal(t, "Underweight", BMICategory(17.0))
	assert.Equal(t, "Normal weight", BMICategory(22.0))
	assert.Equal(t, "Overweight", BMICategory(27.0))
	assert.Equal(t, "Obesity class I", BMICategory(32.0))
	assert.Equal(t, "Obesity class III", BMICategory(42.0))
}
