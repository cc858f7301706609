// Package gp8413 drives the Guestgood GP8413 dual channel 15-bit DAC (0-5V / 0-10V).
//
// The device is write-only.
package gp8413

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"tinygo.org/x/drivers"
)

// DefaultAddress is the factory address of the M5Stack DAC2 unit.
const DefaultAddress = 0x59

// Resolution is the full scale code.
const Resolution = 0x7FFF

const (
	regOutputRange = 0x01
	regChannel0    = 0x02
	regChannel1    = 0x04
)

// ErrInvalidChannel is returned for a channel other than Channel0 or Channel1.
var ErrInvalidChannel = errors.New("gp8413: invalid channel")

// Output is the output voltage range of a channel.
type Output uint8

const (
	Range5V Output = iota
	Range10V
)

// MaximumVoltage returns the full scale output in mV.
func (o Output) MaximumVoltage() float32 {
	if o == Range5V {
		return 5000
	}
	return 10000
}

// nibble returns the range register value for o.
//
// The datasheet documents 0x0 (5V) and 0x1 (10V). Those require shifting the output code
// and make channel 1 oscillate at 5V. 0x5 and 0x7 need no shift and do not oscillate.
func (o Output) nibble() uint8 {
	if o == Range5V {
		return 0x05
	}
	return 0x07
}

func (o Output) String() string {
	if o == Range5V {
		return "5V"
	}
	return "10V"
}

// ParseOutput maps a full scale in volts (5 or 10) to an Output.
func ParseOutput(volts int) (Output, error) {
	switch volts {
	case 5:
		return Range5V, nil
	case 10:
		return Range10V, nil
	}
	return 0, fmt.Errorf("gp8413: invalid output range %dV", volts)
}

// Channel selects one of the two outputs.
type Channel uint8

const (
	Channel0 Channel = iota
	Channel1
)

// Config holds the output ranges applied by Begin.
type Config struct {
	Range0 Output
	Range1 Output
}

// DefaultConfig selects 0-10V on both channels.
func DefaultConfig() Config {
	return Config{Range0: Range10V, Range1: Range10V}
}

// Device is a GP8413 on an I2C bus.
type Device struct {
	bus     drivers.I2C
	Address uint16
	log     logr.Logger

	ranges [2]Output
}

// Option configures a Device.
type Option func(*Device)

// WithAddress sets the I2C address. Defaults to DefaultAddress.
func WithAddress(addr uint16) Option { return func(d *Device) { d.Address = addr } }

// WithLogger sets the logger. Defaults to logr.Discard().
func WithLogger(l logr.Logger) Option { return func(d *Device) { d.log = l } }

// New creates a driver. It does not touch the bus.
func New(bus drivers.I2C, opts ...Option) *Device {
	d := &Device{bus: bus, Address: DefaultAddress, log: logr.Discard()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Begin writes the output ranges.
func (d *Device) Begin(cfg Config) error {
	if err := d.WriteOutputRange(cfg.Range0, cfg.Range1); err != nil {
		d.log.Error(err, "cannot configure GP8413")
		return err
	}
	return nil
}

// WriteOutputRange sets the output range of both channels.
func (d *Device) WriteOutputRange(range0, range1 Output) error {
	v := range0.nibble() | range1.nibble()<<4
	if err := d.bus.Tx(d.Address, []byte{regOutputRange, v}, nil); err != nil {
		return fmt.Errorf("write output range: %w", err)
	}
	d.ranges = [2]Output{range0, range1}
	return nil
}

// Range returns the output range of ch.
func (d *Device) Range(ch Channel) Output {
	if ch > Channel1 {
		return Range10V
	}
	return d.ranges[ch]
}

// MaximumVoltage returns the full scale output of ch in mV.
func (d *Device) MaximumVoltage(ch Channel) float32 {
	return d.Range(ch).MaximumVoltage()
}

// WriteVoltage sets the output of ch in mV, clamped to the channel range.
func (d *Device) WriteVoltage(ch Channel, mv float32) error {
	if ch > Channel1 {
		return fmt.Errorf("%w: %d", ErrInvalidChannel, ch)
	}
	return d.WriteRaw(ch, d.voltageToRaw(ch, mv))
}

// WriteRaw sets the 15-bit output code of ch.
func (d *Device) WriteRaw(ch Channel, raw uint16) error {
	reg := byte(regChannel0)
	switch ch {
	case Channel0:
	case Channel1:
		reg = regChannel1
	default:
		return fmt.Errorf("%w: %d", ErrInvalidChannel, ch)
	}
	raw &= Resolution
	if err := d.bus.Tx(d.Address, []byte{reg, byte(raw), byte(raw >> 8)}, nil); err != nil {
		return fmt.Errorf("write channel %d: %w", ch, err)
	}
	return nil
}

// WriteBothVoltage sets both outputs in mV in one transfer.
func (d *Device) WriteBothVoltage(mv0, mv1 float32) error {
	return d.WriteBothRaw(d.voltageToRaw(Channel0, mv0), d.voltageToRaw(Channel1, mv1))
}

// WriteBothRaw sets both output codes in one transfer.
func (d *Device) WriteBothRaw(raw0, raw1 uint16) error {
	raw0 &= Resolution
	raw1 &= Resolution
	buf := []byte{regChannel0, byte(raw0), byte(raw0 >> 8), byte(raw1), byte(raw1 >> 8)}
	if err := d.bus.Tx(d.Address, buf, nil); err != nil {
		return fmt.Errorf("write channels: %w", err)
	}
	return nil
}

func (d *Device) voltageToRaw(ch Channel, mv float32) uint16 {
	top := d.MaximumVoltage(ch)
	mv = min(max(mv, 0), top)
	return uint16(mv / top * Resolution)
}
