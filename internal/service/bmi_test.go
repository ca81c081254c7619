package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBMI(t *testing.T) {
	got := BMI(floatPtr(70), floatPtr(175))
	require.NotNil(t, got)
	assert.Equal(t, 22.9, *got)

	assert.Nil(t, BMI(nil, floatPtr(175)))
	assert.Nil(t, BMI(floatPtr(70), nil))
	assert.Nil(t, BMI(floatPtr(70), floatPtr(0)))
	assert.Nil(t, BMI(floatPtr(0), floatPtr(175)))
}

func TestBMICategory(t *testing.T) {
	assert.Equal(t, "unknown", BMICategory(nil))
	assert.Equal(t, "Underweight", BMICategory(floatPtr(18.4)))
	assert.Equal(t, "Normal", BMICategory(floatPtr(18.5)))
	assert.Equal(t, "Normal", BMICategory(floatPtr(24.9)))
	assert.Equal(t, "Overweight", BMICategory(floatPtr(25)))
	assert.Equal(t, "Overweight", BMICategory(floatPtr(29.9)))
	assert.Equal(t, "Obese", BMICategory(floatPtr(30)))
}
