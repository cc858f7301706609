package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/anadig/pkg/clock"
	"github.com/itohio/anadig/pkg/config"
	"github.com/itohio/anadig/pkg/gp8413"
	"github.com/itohio/anadig/pkg/mcp4725"
	"github.com/itohio/anadig/pkg/meter"
	"github.com/itohio/anadig/pkg/sample"
	"github.com/itohio/anadig/pkg/sim"
	"github.com/itohio/anadig/pkg/stream"
)

func TestOpenSource_Mock(t *testing.T) {
	cfg := config.Default()

	device, bus, err := openSource(cfg, logr.Discard())
	require.NoError(t, err)
	assert.IsType(t, &stream.Local{}, device)
	assert.NotNil(t, bus)
}

func TestOpenSource_Serial(t *testing.T) {
	cfg := config.Default()
	cfg.Bus.Kind = config.BusSerial

	device, bus, err := openSource(cfg, logr.Discard())
	require.NoError(t, err)
	assert.IsType(t, &stream.Serial{}, device)
	assert.Nil(t, bus)
	assert.False(t, device.IsConnected())
}

func TestOpenSource_Unknown(t *testing.T) {
	cfg := config.Default()
	cfg.Bus.Kind = "spi"

	_, _, err := openSource(cfg, logr.Discard())
	assert.Error(t, err)
}

func TestOpenOutput_None(t *testing.T) {
	out, err := openOutput(config.Default(), nil, logr.Discard())
	assert.NoError(t, err)
	assert.Nil(t, out)
}

func TestOpenOutput_NeedsBus(t *testing.T) {
	cfg := config.Default()
	cfg.DAC.Chip = config.ChipMCP4725

	_, err := openOutput(cfg, nil, logr.Discard())
	assert.Error(t, err)
}

func TestOpenOutput_MCP4725(t *testing.T) {
	bus := sim.NewBus()
	dac := sim.NewMCP4725(clock.NewFake(0), 0, 0)
	bus.Attach(mcp4725.DefaultAddress, dac)

	cfg := config.Default()
	cfg.DAC.Chip = config.ChipMCP4725
	cfg.DAC.SupplyVoltage = 5000
	cfg.DAC.Output = []float64{2500}

	out, err := openOutput(cfg, bus, logr.Discard())
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, 1, out.Channels())
	assert.Equal(t, float32(mcp4725.MaximumVoltage), out.MaximumVoltage(0))
	assert.Equal(t, mcp4725.VoltageToRaw(2500, 5000), dac.DAC)

	assert.Error(t, out.WriteVoltage(1, 100))
}

func TestOpenOutput_GP8413(t *testing.T) {
	bus := sim.NewBus()
	dac := sim.NewGP8413()
	bus.Attach(gp8413.DefaultAddress, dac)

	cfg := config.Default()
	cfg.DAC.Chip = config.ChipGP8413
	cfg.DAC.Ranges = []int{5, 10}
	cfg.DAC.Output = []float64{2500, 10000}

	out, err := openOutput(cfg, bus, logr.Discard())
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, 2, out.Channels())
	assert.Equal(t, float32(5000), out.MaximumVoltage(0))
	assert.Equal(t, float32(10000), out.MaximumVoltage(1))
	assert.InDelta(t, gp8413.Resolution/2, int(dac.Channel[0]), 1)
	assert.Equal(t, uint16(gp8413.Resolution), dac.Channel[1])
}

func TestOpenOutput_TooManyOutputs(t *testing.T) {
	bus := sim.NewBus()
	bus.Attach(mcp4725.DefaultAddress, sim.NewMCP4725(clock.NewFake(0), 0, 0))

	cfg := config.Default()
	cfg.DAC.Chip = config.ChipMCP4725
	cfg.DAC.Output = []float64{100, 200}

	_, err := openOutput(cfg, bus, logr.Discard())
	assert.Error(t, err)
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := printer(&buf)

	now := time.Now()
	samples := []sample.Sample{
		{Timestamp: now, Raw: 100, Voltage: 10},
		{Timestamp: now.Add(10 * time.Millisecond), Raw: 120, Voltage: 12.345},
	}
	p(samples[:1], nil, meter.Stats{})
	p(samples, []float64{234.5}, meter.Stats{})
	// Same newest sample is not printed twice
	p(samples, []float64{234.5}, meter.Stats{})
	p(nil, nil, meter.Stats{})

	assert.Equal(t,
		">Raw:100\n>Voltage(mV):10.00\n"+
			">Raw:120\n>Voltage(mV):12.35\n>dV/dt(mV/s):234.50\n",
		buf.String())
}

func collect(t *testing.T, out <-chan sample.Sample) []sample.Sample {
	t.Helper()
	var got []sample.Sample
	timeout := time.After(2 * time.Second)
	for {
		select {
		case s, ok := <-out:
			if !ok {
				return got
			}
			got = append(got, s)
		case <-timeout:
			t.Fatal("converter output did not close")
		}
	}
}

func rawSamples(mv ...float32) <-chan stream.RawSample {
	in := make(chan stream.RawSample, len(mv))
	now := time.Now()
	for i, v := range mv {
		in <- stream.RawSample{Timestamp: now.Add(time.Duration(i) * time.Millisecond), Raw: int16(i + 1), Millivolts: v}
	}
	close(in)
	return in
}

func TestConverterChain_NoAveraging(t *testing.T) {
	cfg := config.Default()
	cfg.Measurement.Scale = 2
	cfg.Measurement.Offset = 1

	got := collect(t, converterChain(cfg)(rawSamples(10, 20, 30)))
	require.Len(t, got, 3)
	assert.Equal(t, 21.0, got[0].Voltage)
	assert.Equal(t, 61.0, got[2].Voltage)
}

func TestConverterChain_AverageRaw(t *testing.T) {
	cfg := config.Default()
	cfg.Measurement.AverageSamples = 4
	cfg.Measurement.AverageRaw = true
	cfg.Measurement.Scale = 2
	cfg.Measurement.Offset = 1

	in := rawSamples(10, 20, 30, 40)
	got := collect(t, converterChain(cfg)(in))
	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.InDelta(t, 51.0, last.Voltage, 1e-6) // 25 mV * 2 + 1
	assert.Equal(t, int16(3), last.Raw)         // 2.5 rounds away from zero
}

func TestConverterChain_AverageConverted(t *testing.T) {
	cfg := config.Default()
	cfg.Measurement.AverageSamples = 4
	cfg.Measurement.Scale = 2
	cfg.Measurement.Offset = 1

	got := collect(t, converterChain(cfg)(rawSamples(10, 20, 30, 40)))
	require.NotEmpty(t, got)
	assert.InDelta(t, 51.0, got[len(got)-1].Voltage, 1e-6)
}

func TestChain_Mock(t *testing.T) {
	cfg := config.Default()
	cfg.ADC.Tick = time.Millisecond
	cfg.ADC.Rate = 240

	device, _, err := openSource(cfg, logr.Discard())
	require.NoError(t, err)

	m := meter.New(cfg)
	chain, err := startChain(cfg, device, m)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return m.Stats().Count >= 5
	}, 2*time.Second, 10*time.Millisecond)

	closeMeasurementChain(chain)
	assert.False(t, device.IsConnected())

	st := m.Stats()
	// Sine around 1000 mV with 500 mV amplitude
	assert.GreaterOrEqual(t, st.Min, 450.0)
	assert.LessOrEqual(t, st.Max, 1550.0)
}
