package main

import (
	"fmt"

	"github.com/go-logr/logr"
	"tinygo.org/x/drivers"

	"github.com/itohio/anadig/pkg/ads11xx"
	"github.com/itohio/anadig/pkg/bus"
	"github.com/itohio/anadig/pkg/config"
	"github.com/itohio/anadig/pkg/gp8413"
	"github.com/itohio/anadig/pkg/mcp4725"
	"github.com/itohio/anadig/pkg/stream"
)

// openSource creates the sample source selected by cfg.Bus.Kind. The returned bus is
// nil for sources that do not share an I2C bus with this process (serial).
func openSource(cfg *config.Config, log logr.Logger) (stream.Device, drivers.I2C, error) {
	switch cfg.Bus.Kind {
	case config.BusMock:
		src, err := stream.NewMock(cfg, stream.DefaultBufferSize)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Bus(), nil

	case config.BusLinux:
		variant, adcCfg, err := cfg.ADC.Converter()
		if err != nil {
			return nil, nil, err
		}
		host, err := bus.Open(cfg.Bus.Name)
		if err != nil {
			return nil, nil, err
		}
		log.Info("opened I2C bus", "bus", host.Name())
		dev := ads11xx.New(host, variant,
			ads11xx.WithAddress(cfg.ADC.Address),
			ads11xx.WithLogger(log.WithName(variant.Name)),
		)
		return stream.NewLocal(host, dev, adcCfg, cfg.ADC.Tick, stream.DefaultBufferSize), host, nil

	case config.BusSerial:
		return stream.NewSerial(cfg.Bus.Port, cfg.Bus.Baud, stream.DefaultBufferSize), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown bus kind %q", cfg.Bus.Kind)
}

// output is a DAC with one or more channels addressed by index.
type output interface {
	Channels() int
	MaximumVoltage(ch int) float32
	WriteVoltage(ch int, mv float32) error
}

type mcp4725Output struct{ *mcp4725.Device }

func (mcp4725Output) Channels() int { return 1 }

func (o mcp4725Output) MaximumVoltage(int) float32 {
	return min(o.SupplyVoltage(), mcp4725.MaximumVoltage)
}

func (o mcp4725Output) WriteVoltage(ch int, mv float32) error {
	if ch != 0 {
		return fmt.Errorf("mcp4725: invalid channel %d", ch)
	}
	return o.Device.WriteVoltage(mv)
}

type gp8413Output struct{ *gp8413.Device }

func (gp8413Output) Channels() int { return 2 }

func (o gp8413Output) MaximumVoltage(ch int) float32 {
	return o.Device.MaximumVoltage(gp8413.Channel(ch))
}

func (o gp8413Output) WriteVoltage(ch int, mv float32) error {
	return o.Device.WriteVoltage(gp8413.Channel(ch), mv)
}

// openOutput initializes the configured DAC on bus and applies cfg.DAC.Output.
// It returns nil when no DAC is configured.
func openOutput(cfg *config.Config, bus drivers.I2C, log logr.Logger) (output, error) {
	if cfg.DAC.Chip == "" || cfg.DAC.Chip == config.ChipNone {
		return nil, nil
	}
	if bus == nil {
		return nil, fmt.Errorf("%s needs a local I2C bus, got %q", cfg.DAC.Chip, cfg.Bus.Kind)
	}

	var out output
	switch cfg.DAC.Chip {
	case config.ChipMCP4725:
		opts := []mcp4725.Option{mcp4725.WithLogger(log.WithName(config.ChipMCP4725))}
		if cfg.DAC.Address != 0 {
			opts = append(opts, mcp4725.WithAddress(cfg.DAC.Address))
		}
		dev := mcp4725.New(bus, opts...)
		if err := dev.Begin(mcp4725.Config{
			UseEEPROM:     cfg.DAC.UseEEPROM,
			SupplyVoltage: float32(cfg.DAC.SupplyVoltage),
		}); err != nil {
			return nil, err
		}
		out = mcp4725Output{dev}

	case config.ChipGP8413:
		ranges, err := cfg.DAC.OutputRanges()
		if err != nil {
			return nil, err
		}
		opts := []gp8413.Option{gp8413.WithLogger(log.WithName(config.ChipGP8413))}
		if cfg.DAC.Address != 0 {
			opts = append(opts, gp8413.WithAddress(cfg.DAC.Address))
		}
		dev := gp8413.New(bus, opts...)
		if err := dev.Begin(ranges); err != nil {
			return nil, err
		}
		out = gp8413Output{dev}

	default:
		return nil, fmt.Errorf("unknown DAC chip %q", cfg.DAC.Chip)
	}

	for ch, mv := range cfg.DAC.Output {
		if ch >= out.Channels() {
			return nil, fmt.Errorf("%s has %d channels, got %d outputs", cfg.DAC.Chip, out.Channels(), len(cfg.DAC.Output))
		}
		if err := out.WriteVoltage(ch, float32(mv)); err != nil {
			return nil, err
		}
		log.V(1).Info("DAC output set", "chip", cfg.DAC.Chip, "channel", ch, "mV", mv)
	}
	return out, nil
}
