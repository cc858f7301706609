// Package ads1110 drives the TI ADS1110 16-bit ADC with a 2.048V internal reference.
package ads1110

import (
	"fmt"
	"time"

	"tinygo.org/x/drivers"

	"github.com/itohio/anadig/pkg/ads11xx"
)

// DefaultAddress is the address of ADS1110A0.
const DefaultAddress = ads11xx.DefaultAddress

// VDD is the internal reference voltage, mV.
const VDD = 2048

// DefaultFactor matches a 100k/510k input divider.
const DefaultFactor = float32(100.0 / 610.0)

type Sampling uint8

const (
	Rate240 Sampling = iota // 240 SPS, 12 bit
	Rate60                  // 60 SPS, 14 bit
	Rate30                  // 30 SPS, 15 bit
	Rate15                  // 15 SPS, 16 bit (default)
)

func (s Sampling) SPS() int {
	switch s {
	case Rate240:
		return 240
	case Rate60:
		return 60
	case Rate30:
		return 30
	case Rate15:
		return 15
	}
	return 0
}

func (s Sampling) String() string { return fmt.Sprintf("%dSPS", s.SPS()) }

func ParseSampling(sps int) (Sampling, error) {
	switch sps {
	case 240:
		return Rate240, nil
	case 60:
		return Rate60, nil
	case 30:
		return Rate30, nil
	case 15:
		return Rate15, nil
	}
	return 0, fmt.Errorf("%w: %d SPS", ads11xx.ErrInvalidRate, sps)
}

// Interval returns the conversion period rounded up to whole milliseconds.
func Interval(rate uint8) (time.Duration, error) {
	switch Sampling(rate) {
	case Rate240:
		return 4 * time.Millisecond, nil
	case Rate60:
		return 17 * time.Millisecond, nil
	case Rate30:
		return 34 * time.Millisecond, nil
	case Rate15:
		return 67 * time.Millisecond, nil
	}
	return 0, fmt.Errorf("%w: %d", ads11xx.ErrInvalidRate, rate)
}

// Variant describes the ADS1110 to the shared engine. ST/DRDY goes low when a
// new result is ready, both in continuous and single mode.
var Variant = ads11xx.Variant{
	Name:                "ADS1110",
	DefaultRegister:     ads11xx.DefaultRegister,
	PollReadyInPeriodic: true,
	Ready:               ads11xx.ReadyLow,
	Interval:            Interval,
	VDD:                 VDD,
}

// Config is the ADS1110 flavour of ads11xx.Config. The reference is fixed.
type Config struct {
	StartPeriodic bool
	Sampling      Sampling
	PGA           ads11xx.PGA
	Factor        float32
	StoredSize    int
}

func DefaultConfig() Config {
	return Config{
		StartPeriodic: true,
		Sampling:      Rate15,
		PGA:           ads11xx.Gain1,
		Factor:        DefaultFactor,
		StoredSize:    8,
	}
}

func (c Config) engine() ads11xx.Config {
	return ads11xx.Config{
		StartPeriodic: c.StartPeriodic,
		Rate:          uint8(c.Sampling),
		PGA:           c.PGA,
		Factor:        c.Factor,
		StoredSize:    c.StoredSize,
	}
}

type Device struct {
	*ads11xx.Device
}

func New(bus drivers.I2C, opts ...ads11xx.Option) Device {
	return Device{ads11xx.New(bus, Variant, opts...)}
}

func (d Device) Begin(cfg Config) error { return d.Device.Begin(cfg.engine()) }

func (d Device) StartPeriodic(rate Sampling, pga ads11xx.PGA) error {
	return d.Device.StartPeriodic(uint8(rate), pga)
}

func (d Device) MeasureSingleshot(rate Sampling, pga ads11xx.PGA) (ads11xx.Data, error) {
	return d.Device.MeasureSingleshot(uint8(rate), pga)
}

func (d Device) ReadSamplingRate() (Sampling, error) {
	r, err := d.Device.ReadRate()
	return Sampling(r), err
}

func (d Device) WriteSamplingRate(rate Sampling) error {
	return d.Device.WriteRate(uint8(rate))
}
