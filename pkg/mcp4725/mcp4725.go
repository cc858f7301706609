// Package mcp4725 drives the Microchip MCP4725 12-bit DAC with EEPROM.
package mcp4725

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"tinygo.org/x/drivers"

	"github.com/itohio/anadig/pkg/clock"
)

// DefaultAddress is the factory address of the M5Stack DAC unit.
const DefaultAddress = 0x60

const (
	// Resolution is the full scale code.
	Resolution = 0x0FFF
	// MaximumVoltage is the highest output the unit supports, mV.
	MaximumVoltage = 3300
	// DefaultSupplyVoltage is the supply (reference) voltage, mV.
	DefaultSupplyVoltage = 5000

	cmdWriteDAC       = 0x40
	cmdWriteDACEEPROM = 0x60

	eepromWriteDelay   = 25 * time.Millisecond
	eepromWriteTimeout = 25 * time.Millisecond
	resetDelay         = 50 * time.Millisecond
	pollDelay          = time.Millisecond

	generalCallAddress = 0x00
	generalCallReset   = 0x06
)

// Errors returned by the driver.
var (
	// ErrInvalidSupply is returned by Begin for a negative supply voltage.
	ErrInvalidSupply = errors.New("mcp4725: invalid supply voltage")
	// ErrInvalidVoltage is returned for a negative output voltage.
	ErrInvalidVoltage = errors.New("mcp4725: invalid output voltage")
	// ErrNotDetected is returned by Begin when the EEPROM cannot be read.
	ErrNotDetected = errors.New("mcp4725: device not detected")
	// ErrEEPROMTimeout is returned when a blocking EEPROM write does not finish in time.
	ErrEEPROMTimeout = errors.New("mcp4725: EEPROM write timeout")
)

// PowerDown selects the output load while powered down.
type PowerDown uint8

const (
	Normal   PowerDown = iota // output enabled
	Ohm1K                     // 1kΩ to ground
	Ohm100K                   // 100kΩ to ground
	Ohm500K                   // 500kΩ to ground
)

func (p PowerDown) String() string {
	switch p {
	case Normal:
		return "normal"
	case Ohm1K:
		return "1k"
	case Ohm100K:
		return "100k"
	case Ohm500K:
		return "500k"
	}
	return fmt.Sprintf("PowerDown(%d)", uint8(p))
}

// Config holds the settings applied by Begin.
type Config struct {
	// UseEEPROM applies the power-down mode and output stored in EEPROM.
	UseEEPROM bool
	// SupplyVoltage in mV. Zero means DefaultSupplyVoltage.
	SupplyVoltage float32
}

// Device is an MCP4725 on an I2C bus.
type Device struct {
	bus     drivers.I2C
	Address uint16

	clock clock.Clock
	log   logr.Logger

	supply    float32
	powerDown PowerDown
	lastValue uint16
}

// Option configures a Device.
type Option func(*Device)

// WithAddress sets the I2C address. Defaults to DefaultAddress.
func WithAddress(addr uint16) Option { return func(d *Device) { d.Address = addr } }

// WithClock sets the time source used for EEPROM and reset waits.
func WithClock(c clock.Clock) Option { return func(d *Device) { d.clock = c } }

// WithLogger sets the logger. Defaults to logr.Discard().
func WithLogger(l logr.Logger) Option { return func(d *Device) { d.log = l } }

// New creates a driver. It does not touch the bus.
func New(bus drivers.I2C, opts ...Option) *Device {
	d := &Device{
		bus:     bus,
		Address: DefaultAddress,
		clock:   clock.System(),
		log:     logr.Discard(),
		supply:  DefaultSupplyVoltage,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Begin probes the device by reading its EEPROM and optionally restores the stored output.
func (d *Device) Begin(cfg Config) error {
	supply := cfg.SupplyVoltage
	if supply == 0 {
		supply = DefaultSupplyVoltage
	}
	if supply < 0 {
		return fmt.Errorf("%w: %v mV", ErrInvalidSupply, supply)
	}
	d.supply = supply

	pd, raw, err := d.ReadEEPROM()
	if err != nil {
		d.log.Error(err, "cannot detect MCP4725")
		return fmt.Errorf("%w: %w", ErrNotDetected, err)
	}
	if !cfg.UseEEPROM {
		return nil
	}
	d.powerDown = pd
	return d.WriteRaw(raw)
}

// PowerDown returns the power-down mode used for subsequent writes.
func (d *Device) PowerDown() PowerDown { return d.powerDown }

// LastValue returns the last code written to the DAC register.
func (d *Device) LastValue() uint16 { return d.lastValue }

// SupplyVoltage returns the configured reference in mV.
func (d *Device) SupplyVoltage() float32 { return d.supply }

// WritePowerDown changes the power-down mode, keeping the output code.
func (d *Device) WritePowerDown(pd PowerDown) error {
	d.powerDown = pd & 0x03
	return d.WriteRaw(d.lastValue)
}

// WriteVoltage sets the output in mV using a fast mode write. Values above
// MaximumVoltage are clamped; negative values are rejected.
func (d *Device) WriteVoltage(mv float32) error {
	if mv < 0 {
		return fmt.Errorf("%w: %v mV", ErrInvalidVoltage, mv)
	}
	return d.WriteRaw(VoltageToRaw(mv, d.supply))
}

// WriteRaw sets the 12-bit output code using a fast mode write.
func (d *Device) WriteRaw(raw uint16) error {
	raw &= Resolution
	buf := []byte{byte(d.powerDown)<<4 | byte(raw>>8)&0x0F, byte(raw)}
	if err := d.bus.Tx(d.Address, buf, nil); err != nil {
		return fmt.Errorf("write DAC: %w", err)
	}
	d.lastValue = raw
	return nil
}

// WriteVoltageAndEEPROM sets the output and stores it in EEPROM. When blocking it waits
// for the EEPROM write to finish.
func (d *Device) WriteVoltageAndEEPROM(mv float32, blocking bool) error {
	if mv < 0 {
		return fmt.Errorf("%w: %v mV", ErrInvalidVoltage, mv)
	}
	return d.WriteRawAndEEPROM(VoltageToRaw(mv, d.supply), blocking)
}

// WriteRawAndEEPROM sets the output code and stores it in EEPROM.
func (d *Device) WriteRawAndEEPROM(raw uint16, blocking bool) error {
	raw &= Resolution
	buf := []byte{cmdWriteDACEEPROM | byte(d.powerDown)<<1, byte(raw >> 4), byte(raw << 4)}
	if err := d.bus.Tx(d.Address, buf, nil); err != nil {
		return fmt.Errorf("write DAC and EEPROM: %w", err)
	}
	d.lastValue = raw
	if !blocking {
		return nil
	}

	// typ 25ms, max 50ms
	d.clock.Sleep(eepromWriteDelay)
	deadline := d.clock.Now() + eepromWriteTimeout
	for {
		if ready, err := d.eepromReady(); err == nil && ready {
			return nil
		}
		if d.clock.Now() >= deadline {
			return ErrEEPROMTimeout
		}
		d.clock.Sleep(pollDelay)
	}
}

// WriteDAC sets the output code using the 3-byte write DAC command.
func (d *Device) WriteDAC(raw uint16) error {
	raw &= Resolution
	buf := []byte{cmdWriteDAC | byte(d.powerDown)<<1, byte(raw >> 4), byte(raw << 4)}
	if err := d.bus.Tx(d.Address, buf, nil); err != nil {
		return fmt.Errorf("write DAC: %w", err)
	}
	d.lastValue = raw
	return nil
}

// GeneralReset resets every device on the bus with a general call. The MCP4725 reloads
// its DAC register from EEPROM, which is then read back.
func (d *Device) GeneralReset() error {
	_ = d.bus.Tx(generalCallAddress, []byte{generalCallReset}, nil)
	d.clock.Sleep(resetDelay)

	pd, raw, err := d.ReadDACRegister()
	if err != nil {
		return err
	}
	d.powerDown, d.lastValue = pd, raw
	return nil
}

// ReadDACRegister reads the current power-down mode and output code.
func (d *Device) ReadDACRegister() (PowerDown, uint16, error) {
	var buf [5]byte
	if err := d.readStatus(buf[:]); err != nil {
		return 0, 0, err
	}
	return PowerDown(buf[0]>>1) & 0x03, uint16(buf[1])<<4 | uint16(buf[2]>>4), nil
}

// ReadEEPROM reads the power-down mode and output code stored in EEPROM.
func (d *Device) ReadEEPROM() (PowerDown, uint16, error) {
	var buf [5]byte
	if err := d.readStatus(buf[:]); err != nil {
		return 0, 0, err
	}
	return PowerDown(buf[3]>>5) & 0x03, uint16(buf[3]&0x0F)<<8 | uint16(buf[4]), nil
}

func (d *Device) eepromReady() (bool, error) {
	var buf [5]byte
	if err := d.readStatus(buf[:]); err != nil {
		return false, err
	}
	return buf[0]&0x80 != 0, nil
}

func (d *Device) readStatus(buf []byte) error {
	if err := d.bus.Tx(d.Address, nil, buf); err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	return nil
}

// VoltageToRaw converts mV to an output code for the given supply voltage.
func VoltageToRaw(mv, supply float32) uint16 {
	mv = min(max(mv, 0), MaximumVoltage)
	return uint16(mv / supply * Resolution)
}

// RawToVoltage converts an output code to mV for the given supply voltage.
func RawToVoltage(raw uint16, supply float32) float32 {
	return float32(raw) * supply / Resolution
}
