package mcp4725

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/anadig/pkg/clock"
	"github.com/itohio/anadig/pkg/sim"
)

func setup(t *testing.T, eeprom uint16, pd uint8) (*Device, *sim.MCP4725, *clock.Fake) {
	t.Helper()
	c := clock.NewFake(0)
	chip := sim.NewMCP4725(c, eeprom, pd)
	bus := sim.NewBus()
	bus.Attach(DefaultAddress, chip)
	return New(bus, WithClock(c)), chip, c
}

func TestVoltageToRaw(t *testing.T) {
	assert.Equal(t, uint16(0), VoltageToRaw(-10, 5000))
	assert.Equal(t, uint16(2702), VoltageToRaw(3300, 5000))
	assert.Equal(t, uint16(2702), VoltageToRaw(4000, 5000), "clamped")
	assert.Equal(t, uint16(Resolution), VoltageToRaw(3300, 3300))
	assert.InDelta(t, 3300, RawToVoltage(Resolution, 3300), 1e-3)
}

func TestBegin(t *testing.T) {
	d, chip, _ := setup(t, 0x800, uint8(Ohm100K))
	chip.DAC = 0

	require.NoError(t, d.Begin(Config{}))
	assert.Equal(t, float32(DefaultSupplyVoltage), d.SupplyVoltage())
	assert.Equal(t, uint16(0), chip.DAC, "EEPROM not applied")

	require.NoError(t, d.Begin(Config{UseEEPROM: true, SupplyVoltage: 3300}))
	assert.Equal(t, Ohm100K, d.PowerDown())
	assert.Equal(t, uint16(0x800), chip.DAC)
	assert.Equal(t, uint8(Ohm100K), chip.PD)

	assert.ErrorIs(t, d.Begin(Config{SupplyVoltage: -1}), ErrInvalidSupply)
}

func TestBeginNotDetected(t *testing.T) {
	d := New(sim.NewBus(), WithClock(clock.NewFake(0)))
	err := d.Begin(Config{})
	assert.ErrorIs(t, err, ErrNotDetected)
	assert.ErrorIs(t, err, sim.ErrNack)
}

func TestWrite(t *testing.T) {
	d, chip, _ := setup(t, 0, 0)
	require.NoError(t, d.Begin(Config{SupplyVoltage: 3300}))

	require.NoError(t, d.WriteVoltage(1650))
	assert.Equal(t, uint16(2047), chip.DAC)
	assert.Equal(t, uint16(2047), d.LastValue())

	require.NoError(t, d.WritePowerDown(Ohm1K))
	assert.Equal(t, uint8(Ohm1K), chip.PD)
	assert.Equal(t, uint16(2047), chip.DAC, "output kept")

	require.NoError(t, d.WriteDAC(0x123))
	assert.Equal(t, uint16(0x123), chip.DAC)
	assert.Equal(t, uint16(0), chip.EEPROM)

	pd, raw, err := d.ReadDACRegister()
	require.NoError(t, err)
	assert.Equal(t, Ohm1K, pd)
	assert.Equal(t, uint16(0x123), raw)
}

func TestWriteNegativeVoltage(t *testing.T) {
	d, chip, _ := setup(t, 0, 0)
	require.NoError(t, d.Begin(Config{SupplyVoltage: 3300}))
	require.NoError(t, d.WriteVoltage(1650))

	assert.ErrorIs(t, d.WriteVoltage(-1), ErrInvalidVoltage)
	assert.ErrorIs(t, d.WriteVoltageAndEEPROM(-0.5, true), ErrInvalidVoltage)
	assert.Equal(t, uint16(2047), chip.DAC, "output kept")
	assert.Equal(t, uint16(0), chip.EEPROM)
	assert.False(t, chip.Busy())

	require.NoError(t, d.WriteVoltage(0))
	assert.Equal(t, uint16(0), chip.DAC)
}

func TestWriteEEPROM(t *testing.T) {
	d, chip, c := setup(t, 0, 0)
	require.NoError(t, d.Begin(Config{SupplyVoltage: 3300}))

	start := c.Now()
	require.NoError(t, d.WriteVoltageAndEEPROM(3300, true))
	assert.Equal(t, uint16(Resolution), chip.EEPROM)
	assert.False(t, chip.Busy())
	assert.GreaterOrEqual(t, c.Now()-start, sim.EEPROMWriteTime)

	require.NoError(t, d.WriteRawAndEEPROM(0x10, false))
	assert.True(t, chip.Busy())

	pd, raw, err := d.ReadEEPROM()
	require.NoError(t, err)
	assert.Equal(t, Normal, pd)
	assert.Equal(t, uint16(0x10), raw)
}

func TestWriteEEPROMTimeout(t *testing.T) {
	d, chip, c := setup(t, 0, 0)
	require.NoError(t, d.Begin(Config{}))
	require.NoError(t, d.WriteRawAndEEPROM(1, false))

	chip.FailRead = errors.New("stuck")
	start := c.Now()
	assert.ErrorIs(t, d.WriteRawAndEEPROM(2, true), ErrEEPROMTimeout)
	assert.GreaterOrEqual(t, c.Now()-start, 50*time.Millisecond)
}

func TestGeneralReset(t *testing.T) {
	d, chip, _ := setup(t, 0x321, uint8(Ohm500K))
	require.NoError(t, d.Begin(Config{}))
	require.NoError(t, d.WriteRaw(0xFFF))
	assert.Equal(t, uint16(0xFFF), chip.DAC)

	require.NoError(t, d.GeneralReset())
	assert.Equal(t, uint16(0x321), chip.DAC)
	assert.Equal(t, uint16(0x321), d.LastValue())
	assert.Equal(t, Ohm500K, d.PowerDown())
}
