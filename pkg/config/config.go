package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/itohio/anadig/pkg/ads1100"
	"github.com/itohio/anadig/pkg/ads1110"
	"github.com/itohio/anadig/pkg/ads11xx"
	"github.com/itohio/anadig/pkg/gp8413"
)

// Bus kinds.
const (
	BusMock   = "mock"
	BusLinux  = "linux"
	BusSerial = "serial"
)

// Chip names.
const (
	ChipADS1100 = "ads1100"
	ChipADS1110 = "ads1110"
	ChipMCP4725 = "mcp4725"
	ChipGP8413  = "gp8413"
	ChipNone    = "none"
)

// Config represents the application configuration.
type Config struct {
	Bus         BusConfig         `yaml:"bus"`
	ADC         ADCConfig         `yaml:"adc"`
	DAC         DACConfig         `yaml:"dac"`
	Measurement MeasurementConfig `yaml:"measurement"`
	Mock        MockConfig        `yaml:"mock"`
}

// BusConfig selects where samples come from.
type BusConfig struct {
	Kind string `yaml:"kind"` // mock, linux or serial
	Name string `yaml:"name"` // host I2C bus name, empty for the first one
	Port string `yaml:"port"` // serial port of the streaming firmware
	Baud int    `yaml:"baud"`
}

// ADCConfig contains converter settings.
type ADCConfig struct {
	Chip       string        `yaml:"chip"`
	Address    uint16        `yaml:"address"`
	StoredSize int           `yaml:"stored_size"`
	SingleShot bool          `yaml:"single_shot"` // measure on every tick instead of periodic mode
	Rate       int           `yaml:"rate"`        // samples per second, 0 for the chip default
	Gain       int           `yaml:"gain"`        // 1, 2, 4 or 8
	VDD        float64       `yaml:"vdd"`         // supply voltage (mV), ADS1100 only
	Factor     float64       `yaml:"factor"`      // input divider ratio, 0 for the chip default
	Tick       time.Duration `yaml:"tick"`        // host update period
}

// DACConfig contains settings of an optional DAC driven next to the converter.
type DACConfig struct {
	Chip          string    `yaml:"chip"`
	Address       uint16    `yaml:"address"`
	SupplyVoltage float64   `yaml:"supply_voltage"` // mV, MCP4725 only
	UseEEPROM     bool      `yaml:"use_eeprom"`
	Ranges        []int     `yaml:"ranges"` // full scale volts per channel, GP8413 only
	Output        []float64 `yaml:"output"` // mV per channel
}

// MeasurementConfig contains measurement parameters.
type MeasurementConfig struct {
	WindowSeconds  float64 `yaml:"window_seconds"`
	AverageSamples int     `yaml:"average_samples"` // Number of samples to average (0 = disabled, default)
	AverageRaw     bool    `yaml:"average_raw"`     // Average converter codes before calibration
	Scale          float64 `yaml:"scale"`           // Calibration gain applied to converter voltages
	Offset         float64 `yaml:"offset"`          // Calibration offset (mV)
}

// MockConfig contains the simulated input signal.
type MockConfig struct {
	Offset    float64       `yaml:"offset"`    // mV
	Amplitude float64       `yaml:"amplitude"` // mV
	Period    time.Duration `yaml:"period"`
	Noise     float64       `yaml:"noise"` // mV
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Bus: BusConfig{
			Kind: BusMock,
			Port: "/dev/ttyACM0",
			Baud: 115200,
		},
		ADC: ADCConfig{
			Chip:       ChipADS1110,
			Address:    ads11xx.DefaultAddress,
			StoredSize: 8,
			Gain:       1,
			VDD:        3300,
			Tick:       10 * time.Millisecond,
		},
		DAC: DACConfig{
			Chip: ChipNone,
		},
		Measurement: MeasurementConfig{
			WindowSeconds:  10,
			AverageSamples: 0, // No averaging by default
			Scale:          1,
		},
		Mock: MockConfig{
			Offset:    1000,
			Amplitude: 500,
			Period:    2 * time.Second,
			Noise:     2,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Bus.Kind == "" {
		c.Bus.Kind = def.Bus.Kind
	}
	if c.Bus.Baud == 0 {
		c.Bus.Baud = def.Bus.Baud
	}

	if c.ADC.Chip == "" {
		c.ADC.Chip = def.ADC.Chip
	}
	if c.ADC.Address == 0 {
		c.ADC.Address = def.ADC.Address
	}
	if c.ADC.StoredSize == 0 {
		c.ADC.StoredSize = def.ADC.StoredSize
	}
	if c.ADC.Gain == 0 {
		c.ADC.Gain = def.ADC.Gain
	}
	if c.ADC.VDD == 0 {
		c.ADC.VDD = def.ADC.VDD
	}
	if c.ADC.Tick == 0 {
		c.ADC.Tick = def.ADC.Tick
	}

	if c.DAC.Chip == "" {
		c.DAC.Chip = def.DAC.Chip
	}

	if c.Measurement.WindowSeconds == 0 {
		c.Measurement.WindowSeconds = def.Measurement.WindowSeconds
	}
	if c.Measurement.Scale == 0 {
		c.Measurement.Scale = def.Measurement.Scale
	}

	if c.Mock.Period == 0 {
		c.Mock.Period = def.Mock.Period
	}
}

// Converter maps the ADC section to the driver variant and its configuration.
func (a ADCConfig) Converter() (ads11xx.Variant, ads11xx.Config, error) {
	var (
		v      ads11xx.Variant
		rate   uint8
		factor = float32(a.Factor)
	)
	switch a.Chip {
	case ChipADS1100:
		def := ads1100.DefaultConfig()
		s := def.Sampling
		if a.Rate != 0 {
			var err error
			if s, err = ads1100.ParseSampling(a.Rate); err != nil {
				return v, ads11xx.Config{}, err
			}
		}
		if factor == 0 {
			factor = def.Factor
		}
		v, rate = ads1100.Variant, uint8(s)
	case ChipADS1110:
		def := ads1110.DefaultConfig()
		s := def.Sampling
		if a.Rate != 0 {
			var err error
			if s, err = ads1110.ParseSampling(a.Rate); err != nil {
				return v, ads11xx.Config{}, err
			}
		}
		if factor == 0 {
			factor = def.Factor
		}
		v, rate = ads1110.Variant, uint8(s)
	default:
		return v, ads11xx.Config{}, fmt.Errorf("unknown ADC chip %q", a.Chip)
	}

	pga, err := ads11xx.ParsePGA(a.Gain)
	if err != nil {
		return v, ads11xx.Config{}, err
	}

	return v, ads11xx.Config{
		StartPeriodic: !a.SingleShot,
		Rate:          rate,
		PGA:           pga,
		VDD:           float32(a.VDD),
		Factor:        factor,
		StoredSize:    a.StoredSize,
	}, nil
}

// OutputRanges maps the GP8413 ranges, defaulting missing channels to 10V.
func (d DACConfig) OutputRanges() (gp8413.Config, error) {
	cfg := gp8413.DefaultConfig()
	dst := []*gp8413.Output{&cfg.Range0, &cfg.Range1}
	for i, volts := range d.Ranges {
		if i >= len(dst) {
			return cfg, fmt.Errorf("GP8413 has %d channels, got %d ranges", len(dst), len(d.Ranges))
		}
		o, err := gp8413.ParseOutput(volts)
		if err != nil {
			return cfg, err
		}
		*dst[i] = o
	}
	return cfg, nil
}
