package stream

import (
	"time"

	"github.com/itohio/anadig/pkg/ads11xx"
	"github.com/itohio/anadig/pkg/clock"
	"github.com/itohio/anadig/pkg/config"
	"github.com/itohio/anadig/pkg/gp8413"
	"github.com/itohio/anadig/pkg/mcp4725"
	"github.com/itohio/anadig/pkg/sim"
)

// NewMock creates a Local source on a simulated bus carrying the configured converter
// and both DACs at their default addresses. The converter input follows cfg.Mock.
func NewMock(cfg *config.Config, bufSize int) (*Local, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	variant, adcCfg, err := cfg.ADC.Converter()
	if err != nil {
		return nil, err
	}

	kind := sim.ADS1110
	if cfg.ADC.Chip == config.ChipADS1100 {
		kind = sim.ADS1100
	}

	clk := clock.System()
	adc := sim.NewADC(kind, clk)
	if kind == sim.ADS1100 {
		adc.VDD = float32(cfg.ADC.VDD)
	}
	adc.Input = scaled(sim.Sine(
		float32(cfg.Mock.Offset),
		float32(cfg.Mock.Amplitude),
		cfg.Mock.Period,
		float32(cfg.Mock.Noise),
	), adcCfg.Factor)

	bus := sim.NewBus()
	bus.Attach(cfg.ADC.Address, adc)
	bus.Attach(mcp4725.DefaultAddress, sim.NewMCP4725(clk, 0, 0))
	bus.Attach(gp8413.DefaultAddress, sim.NewGP8413())

	dev := ads11xx.New(bus, variant, ads11xx.WithClock(clk), ads11xx.WithAddress(cfg.ADC.Address))
	return NewLocal(bus, dev, adcCfg, cfg.ADC.Tick, bufSize), nil
}

// scaled turns a signal at the divider input into the voltage the converter sees.
func scaled(s sim.Signal, factor float32) sim.Signal {
	if factor == 0 {
		return s
	}
	return func(t time.Duration) float32 { return s(t) * factor }
}
