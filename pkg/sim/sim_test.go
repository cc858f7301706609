package sim

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/anadig/pkg/clock"
)

func readConfig(t *testing.T, b *Bus) uint8 {
	t.Helper()
	var buf [3]byte
	require.NoError(t, b.Tx(0x48, nil, buf[:]))
	return buf[2]
}

func TestBusRouting(t *testing.T) {
	b := NewBus()
	c := clock.NewFake(0)
	b.Attach(0x48, NewADC(ADS1100, c))

	assert.Equal(t, uint8(0x8C), readConfig(t, b))
	assert.ErrorIs(t, b.Tx(0x49, nil, make([]byte, 2)), ErrNack)
	assert.Equal(t, 2, b.Transfers())
}

func TestGeneralCallResetsEveryone(t *testing.T) {
	b := NewBus()
	c := clock.NewFake(0)
	adc := NewADC(ADS1110, c)
	dac := NewMCP4725(c, 0x123, 0)
	b.Attach(0x48, adc)
	b.Attach(0x60, dac)

	require.NoError(t, b.Tx(0x48, []byte{0x13}, nil))
	require.NoError(t, b.Tx(0x60, []byte{0x0F, 0xFF}, nil))
	assert.Equal(t, uint16(0xFFF), dac.DAC)

	err := b.Tx(0, []byte{0x06}, nil)
	assert.ErrorIs(t, err, ErrNack)
	assert.Equal(t, uint8(0x8C), adc.Config())
	assert.Equal(t, uint16(0x123), dac.DAC)
}

func TestADS1110Continuous(t *testing.T) {
	c := clock.NewFake(0)
	a := NewADC(ADS1110, c)
	a.Input = Constant(1024)

	var buf [3]byte
	require.NoError(t, a.Tx([]byte{0x0C}, nil)) // continuous, 15 SPS
	require.NoError(t, a.Tx(nil, buf[:]))
	assert.NotZero(t, buf[2]&cfgST, "no result yet")

	c.Advance(67 * time.Millisecond)
	require.NoError(t, a.Tx(nil, buf[:]))
	assert.Zero(t, buf[2]&cfgST, "fresh result")
	assert.Equal(t, int16(16384), int16(uint16(buf[0])<<8|uint16(buf[1])))

	require.NoError(t, a.Tx(nil, buf[:]))
	assert.NotZero(t, buf[2]&cfgST, "cleared by the previous read")
}

func TestADS1100Continuous(t *testing.T) {
	c := clock.NewFake(0)
	a := NewADC(ADS1100, c)
	a.Input = Constant(-5000)

	c.Advance(time.Second)
	var buf [2]byte
	require.NoError(t, a.Tx(nil, buf[:]))
	assert.Equal(t, int16(-32768), int16(uint16(buf[0])<<8|uint16(buf[1])), "saturated")
	assert.Equal(t, uint8(0x8C), a.Config(), "ST/BSY always set in continuous mode")
}

func TestSingleConversion(t *testing.T) {
	for _, kind := range []Kind{ADS1100, ADS1110} {
		t.Run(kind.String(), func(t *testing.T) {
			c := clock.NewFake(0)
			a := NewADC(kind, c)
			a.Input = Constant(100)

			require.NoError(t, a.Tx([]byte{0x90}, nil)) // single, fastest rate, start
			assert.NotZero(t, a.Config()&cfgST, "converting")

			c.Advance(10 * time.Millisecond)
			assert.Zero(t, a.Config()&cfgST, "done")

			var buf [2]byte
			require.NoError(t, a.Tx(nil, buf[:]))
			assert.NotZero(t, int16(uint16(buf[0])<<8|uint16(buf[1])))
		})
	}
}

func TestFailureInjection(t *testing.T) {
	c := clock.NewFake(0)
	a := NewADC(ADS1110, c)
	fail := errors.New("bus stuck")
	a.FailRead = fail

	assert.ErrorIs(t, a.Tx(nil, make([]byte, 2)), fail)
	require.NoError(t, a.Tx([]byte{0x1C}, nil))
	assert.Equal(t, 1, a.Reads())
	assert.Equal(t, 1, a.Writes())
}

func TestMCP4725(t *testing.T) {
	c := clock.NewFake(0)
	m := NewMCP4725(c, 0, 0)

	require.NoError(t, m.Tx([]byte{0x60 | 1<<1, 0xAB, 0xC0}, nil))
	assert.Equal(t, uint16(0xABC), m.DAC)
	assert.Equal(t, uint8(1), m.PD)

	var st [5]byte
	require.NoError(t, m.Tx(nil, st[:]))
	assert.Zero(t, st[0]&0x80, "EEPROM busy")
	assert.Equal(t, uint16(0xABC), uint16(st[3]&0x0F)<<8|uint16(st[4]))
	assert.Equal(t, uint8(1), (st[3]>>5)&0x03)

	c.Advance(EEPROMWriteTime)
	require.NoError(t, m.Tx(nil, st[:]))
	assert.NotZero(t, st[0]&0x80)
}

func TestGP8413(t *testing.T) {
	g := NewGP8413()
	require.NoError(t, g.Tx([]byte{0x01, 0x77}, nil))
	require.NoError(t, g.Tx([]byte{0x02, 0xFF, 0x7F, 0x34, 0x12}, nil))
	assert.Equal(t, uint8(0x77), g.Range)
	assert.Equal(t, [2]uint16{0x7FFF, 0x1234}, g.Channel)

	require.NoError(t, g.Tx([]byte{0x04, 0x01, 0x00}, nil))
	assert.Equal(t, uint16(1), g.Channel[1])
	assert.ErrorIs(t, g.Tx(nil, make([]byte, 1)), ErrNack)
}

func TestSine(t *testing.T) {
	s := Sine(100, 50, time.Second, 0)
	assert.InDelta(t, 100, s(0), 1e-3)
	assert.InDelta(t, 150, s(250*time.Millisecond), 1e-2)
}
