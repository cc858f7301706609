package ads1110

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/anadig/pkg/ads11xx"
)

func TestInterval(t *testing.T) {
	want := map[Sampling]time.Duration{
		Rate240: 4 * time.Millisecond,
		Rate60:  17 * time.Millisecond,
		Rate30:  34 * time.Millisecond,
		Rate15:  67 * time.Millisecond,
	}
	for rate, d := range want {
		got, err := Interval(uint8(rate))
		require.NoError(t, err, rate)
		assert.Equal(t, d, got, rate)
	}
	_, err := Interval(7)
	assert.ErrorIs(t, err, ads11xx.ErrInvalidRate)
}

func TestParseSampling(t *testing.T) {
	s, err := ParseSampling(60)
	require.NoError(t, err)
	assert.Equal(t, Rate60, s)

	_, err = ParseSampling(128)
	assert.ErrorIs(t, err, ads11xx.ErrInvalidRate)
}

func TestVariant(t *testing.T) {
	assert.True(t, Variant.PollReadyInPeriodic)
	assert.Equal(t, float32(2048), Variant.VDD)
	assert.True(t, Variant.Ready(0x0C), "DRDY low means a new result")
	assert.False(t, Variant.Ready(0x8C))
}

func TestVoltageAtFullScale(t *testing.T) {
	d := ads11xx.Data{Raw: 32767, Rate: uint8(Rate15), PGA: ads11xx.Gain1, VDD: VDD, Factor: 1}
	assert.InDelta(t, 2047.94, d.DifferentialVoltage(), 0.01)

	d.Factor = DefaultFactor
	assert.InDelta(t, 2047.94*6.1, d.DifferentialVoltage(), 0.1)
}
