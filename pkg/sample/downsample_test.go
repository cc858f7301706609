package sample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownsample_NoDownsampling(t *testing.T) {
	now := time.Now()
	samples := []Sample{
		{Timestamp: now, Raw: 1, Voltage: 1.0},
		{Timestamp: now.Add(100 * time.Millisecond), Raw: 2, Voltage: 1.1},
		{Timestamp: now.Add(200 * time.Millisecond), Raw: 3, Voltage: 1.2},
	}

	result := Downsample(nil, samples, 10)
	require.Equal(t, samples, result)

	dst := make([]Sample, 0, 10)
	result = Downsample(dst, samples, 10)
	require.Equal(t, samples, result)
	assert.Equal(t, cap(dst), cap(result), "Should reuse dst")
}

func TestDownsample_WithDownsampling(t *testing.T) {
	now := time.Now()
	samples := make([]Sample, 100)
	for i := range samples {
		samples[i] = Sample{
			Timestamp: now.Add(time.Duration(i) * 10 * time.Millisecond),
			Voltage:   float64(i) * 0.01,
		}
	}

	dst := make([]Sample, 0, 20)
	result := Downsample(dst, samples, 10)
	require.Len(t, result, 10)
	assert.Equal(t, samples[0], result[0])
	assert.GreaterOrEqual(t, result[len(result)-1].Voltage, 0.8, "Should span the whole range")
	assert.Equal(t, 20, cap(result))
}

func TestDownsample_DestinationReuse(t *testing.T) {
	values1 := []float64{1, 2}
	values2 := []float64{3, 4, 5}

	dst := make([]float64, 0, 10)
	result1 := Downsample(dst, values1, 10)
	assert.Equal(t, values1, result1)

	result2 := Downsample(result1, values2, 10)
	assert.Equal(t, values2, result2)
	assert.Equal(t, cap(dst), cap(result2))
}

func TestDownsample_SmallDestination(t *testing.T) {
	values := make([]float64, 50)
	for i := range values {
		values[i] = float64(i)
	}

	result := Downsample(make([]float64, 0, 2), values, 5)
	assert.Equal(t, []float64{0, 10, 20, 30, 40}, result)

	result = Downsample(nil, values[:3], 5)
	assert.Equal(t, []float64{0, 1, 2}, result)
}
