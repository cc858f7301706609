package gp8413

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/anadig/pkg/sim"
)

func setup(t *testing.T) (*Device, *sim.GP8413) {
	t.Helper()
	chip := sim.NewGP8413()
	bus := sim.NewBus()
	bus.Attach(DefaultAddress, chip)
	return New(bus), chip
}

func TestBegin(t *testing.T) {
	d, chip := setup(t)
	require.NoError(t, d.Begin(DefaultConfig()))
	assert.Equal(t, uint8(0x77), chip.Range)
	assert.Equal(t, float32(10000), d.MaximumVoltage(Channel1))

	require.NoError(t, d.WriteOutputRange(Range5V, Range10V))
	assert.Equal(t, uint8(0x75), chip.Range)
	assert.Equal(t, Range5V, d.Range(Channel0))
	assert.Equal(t, Range10V, d.Range(Channel1))
}

func TestBeginFailure(t *testing.T) {
	d, chip := setup(t)
	chip.FailWrite = errors.New("nack")
	assert.Error(t, d.Begin(DefaultConfig()))
	assert.Equal(t, Range5V, d.Range(Channel0), "ranges unchanged")
}

func TestWriteVoltage(t *testing.T) {
	d, chip := setup(t)
	require.NoError(t, d.WriteOutputRange(Range5V, Range10V))

	tests := []struct {
		ch   Channel
		mv   float32
		want uint16
	}{
		{Channel0, 0, 0},
		{Channel0, 5000, Resolution},
		{Channel0, 6000, Resolution},
		{Channel0, -1, 0},
		{Channel1, 5000, 16383},
		{Channel1, 10000, Resolution},
	}
	for _, tt := range tests {
		require.NoError(t, d.WriteVoltage(tt.ch, tt.mv))
		assert.Equal(t, tt.want, chip.Channel[tt.ch], "%v mV on channel %d", tt.mv, tt.ch)
	}

	assert.ErrorIs(t, d.WriteVoltage(2, 100), ErrInvalidChannel)
	assert.ErrorIs(t, d.WriteRaw(2, 100), ErrInvalidChannel)
}

func TestWriteBoth(t *testing.T) {
	d, chip := setup(t)
	require.NoError(t, d.Begin(DefaultConfig()))

	require.NoError(t, d.WriteBothVoltage(10000, 0))
	assert.Equal(t, [2]uint16{Resolution, 0}, chip.Channel)

	require.NoError(t, d.WriteBothRaw(0xFFFF, 0x1234))
	assert.Equal(t, [2]uint16{Resolution, 0x1234}, chip.Channel)
}

func TestParseOutput(t *testing.T) {
	o, err := ParseOutput(5)
	require.NoError(t, err)
	assert.Equal(t, Range5V, o)
	_, err = ParseOutput(3)
	assert.Error(t, err)
}
