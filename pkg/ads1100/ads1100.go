// Package ads1100 drives the TI ADS1100 self-calibrating 16-bit ADC.
//
// The ADS1100 uses its supply voltage as the reference. In continuous mode the ST/BSY
// bit always reads 1, so periodic reads are throttled by time only.
package ads1100

import (
	"fmt"
	"time"

	"tinygo.org/x/drivers"

	"github.com/itohio/anadig/pkg/ads11xx"
)

// DefaultAddress is the address of ADS1100A0.
const DefaultAddress = ads11xx.DefaultAddress

// Sampling is the data rate.
type Sampling uint8

const (
	Rate128 Sampling = iota // 128 SPS, 12 bit
	Rate32                  // 32 SPS, 14 bit
	Rate16                  // 16 SPS, 15 bit
	Rate8                   // 8 SPS, 16 bit (default)
)

// SPS returns the nominal samples per second, or 0 for an unknown rate.
func (s Sampling) SPS() int {
	switch s {
	case Rate128:
		return 128
	case Rate32:
		return 32
	case Rate16:
		return 16
	case Rate8:
		return 8
	}
	return 0
}

func (s Sampling) String() string { return fmt.Sprintf("%dSPS", s.SPS()) }

// ParseSampling maps samples per second to a Sampling.
func ParseSampling(sps int) (Sampling, error) {
	switch sps {
	case 128:
		return Rate128, nil
	case 32:
		return Rate32, nil
	case 16:
		return Rate16, nil
	case 8:
		return Rate8, nil
	}
	return 0, fmt.Errorf("%w: %d SPS", ads11xx.ErrInvalidRate, sps)
}

// Interval returns the time between conversions, rounded up to whole milliseconds.
func Interval(rate uint8) (time.Duration, error) {
	switch Sampling(rate) {
	case Rate128:
		return 8 * time.Millisecond, nil
	case Rate32:
		return 32 * time.Millisecond, nil
	case Rate16:
		return 63 * time.Millisecond, nil
	case Rate8:
		return 125 * time.Millisecond, nil
	}
	return 0, fmt.Errorf("%w: %d", ads11xx.ErrInvalidRate, rate)
}

// Variant describes the ADS1100 to the shared engine.
var Variant = ads11xx.Variant{
	Name:                "ADS1100",
	DefaultRegister:     ads11xx.DefaultRegister,
	PollReadyInPeriodic: false,
	Ready:               ads11xx.BusyHigh,
	Interval:            Interval,
}

// Config is the ADS1100 flavour of ads11xx.Config.
type Config struct {
	StartPeriodic bool
	Sampling      Sampling
	PGA           ads11xx.PGA
	VDD           float32 // supply voltage, mV
	Factor        float32
	StoredSize    int
}

// DefaultConfig returns periodic 32 SPS, gain 1 on a 3.3V supply behind a 1:4 divider.
func DefaultConfig() Config {
	return Config{
		StartPeriodic: true,
		Sampling:      Rate32,
		PGA:           ads11xx.Gain1,
		VDD:           3300,
		Factor:        0.25,
		StoredSize:    8,
	}
}

func (c Config) engine() ads11xx.Config {
	return ads11xx.Config{
		StartPeriodic: c.StartPeriodic,
		Rate:          uint8(c.Sampling),
		PGA:           c.PGA,
		VDD:           c.VDD,
		Factor:        c.Factor,
		StoredSize:    c.StoredSize,
	}
}

// Device is an ADS1100 on an I2C bus. All ads11xx.Device methods are available.
type Device struct {
	*ads11xx.Device
}

// New creates an ADS1100 driver. It does not touch the bus.
func New(bus drivers.I2C, opts ...ads11xx.Option) Device {
	return Device{ads11xx.New(bus, Variant, opts...)}
}

// Begin configures the device.
func (d Device) Begin(cfg Config) error { return d.Device.Begin(cfg.engine()) }

// StartPeriodic starts continuous conversion.
func (d Device) StartPeriodic(rate Sampling, pga ads11xx.PGA) error {
	return d.Device.StartPeriodic(uint8(rate), pga)
}

// MeasureSingleshot runs one blocking conversion.
func (d Device) MeasureSingleshot(rate Sampling, pga ads11xx.PGA) (ads11xx.Data, error) {
	return d.Device.MeasureSingleshot(uint8(rate), pga)
}

// ReadSamplingRate reads the data rate from the device.
func (d Device) ReadSamplingRate() (Sampling, error) {
	r, err := d.Device.ReadRate()
	return Sampling(r), err
}

// WriteSamplingRate sets the data rate. Fails while periodic measurement is running.
func (d Device) WriteSamplingRate(rate Sampling) error {
	return d.Device.WriteRate(uint8(rate))
}
