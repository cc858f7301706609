package sim

import (
	"time"

	"github.com/itohio/anadig/pkg/clock"
)

// EEPROMWriteTime is how long a simulated MCP4725 stays busy after an EEPROM write.
const EEPROMWriteTime = 30 * time.Millisecond

// MCP4725 simulates the 12-bit DAC with its EEPROM.
type MCP4725 struct {
	clock clock.Clock

	// FailRead and FailWrite, when set, are returned by the corresponding transfers.
	FailRead  error
	FailWrite error

	DAC      uint16 // DAC register, 12 bit
	PD       uint8  // DAC power down bits
	EEPROM   uint16
	EEPROMPD uint8

	busyUntil time.Duration
}

// NewMCP4725 returns a DAC with the given EEPROM contents loaded into its DAC register.
func NewMCP4725(c clock.Clock, eeprom uint16, pd uint8) *MCP4725 {
	m := &MCP4725{clock: c, EEPROM: eeprom & 0x0FFF, EEPROMPD: pd & 0x03}
	m.Reset()
	return m
}

// Reset reloads the DAC register from EEPROM.
func (m *MCP4725) Reset() {
	m.DAC = m.EEPROM
	m.PD = m.EEPROMPD
}

// Busy reports whether an EEPROM write is in progress.
func (m *MCP4725) Busy() bool { return m.clock.Now() < m.busyUntil }

// Tx handles fast mode writes, write DAC (0x40) and write DAC+EEPROM (0x60) commands
// and the 5-byte status read.
func (m *MCP4725) Tx(w, r []byte) error {
	if len(w) > 0 {
		if m.FailWrite != nil {
			return m.FailWrite
		}
		m.write(w)
	}
	if len(r) > 0 {
		if m.FailRead != nil {
			return m.FailRead
		}
		m.status(r)
	}
	return nil
}

func (m *MCP4725) write(w []byte) {
	if w[0]&0xC0 == 0 {
		if len(w) < 2 {
			return
		}
		m.PD = (w[0] >> 4) & 0x03
		m.DAC = uint16(w[0]&0x0F)<<8 | uint16(w[1])
		return
	}
	if len(w) < 3 {
		return
	}
	m.PD = (w[0] >> 1) & 0x03
	m.DAC = uint16(w[1])<<4 | uint16(w[2]>>4)
	if w[0]&0xE0 == 0x60 {
		m.EEPROM = m.DAC
		m.EEPROMPD = m.PD
		m.busyUntil = m.clock.Now() + EEPROMWriteTime
	}
}

func (m *MCP4725) status(r []byte) {
	var b [5]byte
	if !m.Busy() {
		b[0] = 0x80
	}
	b[0] |= m.PD << 1
	b[1] = byte(m.DAC >> 4)
	b[2] = byte(m.DAC << 4)
	b[3] = m.EEPROMPD<<5 | byte(m.EEPROM>>8)&0x0F
	b[4] = byte(m.EEPROM)
	copy(r, b[:])
}

// GP8413 simulates the dual 15-bit DAC. It is write-only.
type GP8413 struct {
	// FailWrite, when set, is returned by writes.
	FailWrite error

	Range   uint8     // raw output range register
	Channel [2]uint16 // channel registers
}

// NewGP8413 returns a DAC with both outputs at zero.
func NewGP8413() *GP8413 { return &GP8413{} }

// Reset clears the channel registers.
func (g *GP8413) Reset() { g.Channel = [2]uint16{} }

// Tx handles register writes: range at 0x01, channels at 0x02 and 0x04 with address
// auto-increment across both channels.
func (g *GP8413) Tx(w, r []byte) error {
	if g.FailWrite != nil {
		return g.FailWrite
	}
	if len(r) > 0 || len(w) < 2 {
		return ErrNack
	}
	switch reg, data := w[0], w[1:]; reg {
	case 0x01:
		g.Range = data[0]
	case 0x02, 0x04:
		ch := int(reg-0x02) / 2
		for i := 0; i+1 < len(data) && ch < 2; i, ch = i+2, ch+1 {
			g.Channel[ch] = uint16(data[i]) | uint16(data[i+1])<<8
		}
	default:
		return ErrNack
	}
	return nil
}
