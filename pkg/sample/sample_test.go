package sample

import (
	"testing"
	"time"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/anadig/pkg/config"
	"github.com/itohio/anadig/pkg/stream"
)

func TestCalibrate(t *testing.T) {
	tests := []struct {
		name   string
		mv     float64
		scale  float64
		offset float64
		want   float64
	}{
		{name: "identity", mv: 1000, scale: 1, want: 1000},
		{name: "zero scale means identity", mv: 1000, want: 1000},
		{name: "gain", mv: 1000, scale: 1.01, want: 1010},
		{name: "offset", mv: -5, scale: 1, offset: 5, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calibrate(tt.mv, tt.scale, tt.offset)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestConvertSample(t *testing.T) {
	cfg := config.Default()
	cfg.Measurement.Offset = 1
	now := time.Now()

	got, err := convertSample(stream.RawSample{Timestamp: now, Raw: 1024, Millivolts: 6243.5}, cfg)
	require.NoError(t, err)
	assert.Equal(t, now, got.Timestamp)
	assert.Equal(t, int16(1024), got.Raw)
	assert.InDelta(t, 6244.5, got.Voltage, 1e-3)

	_, err = convertSample(stream.RawSample{Timestamp: now, Millivolts: math32.NaN()}, cfg)
	assert.Error(t, err)
	_, err = convertSample(stream.RawSample{Timestamp: now, Millivolts: math32.Inf(1)}, cfg)
	assert.Error(t, err)
}

func TestNewConverter_ChannelProcessing(t *testing.T) {
	cfg := config.Default()
	converter := NewConverter(cfg, 10)

	in := make(chan stream.RawSample, 5)
	out := converter(in)

	now := time.Now()
	for i := 0; i < 3; i++ {
		in <- stream.RawSample{
			Timestamp:  now.Add(time.Duration(i) * time.Second),
			Raw:        int16(100 * (i + 1)),
			Millivolts: float32(10 * (i + 1)),
		}
	}
	in <- stream.RawSample{Timestamp: now, Millivolts: math32.NaN()} // dropped

	close(in)

	var samples []Sample
	for sample := range out {
		samples = append(samples, sample)
	}

	require.Len(t, samples, 3, "Should receive 3 samples")
	for i, s := range samples {
		assert.Equal(t, now.Add(time.Duration(i)*time.Second), s.Timestamp)
		assert.Equal(t, int16(100*(i+1)), s.Raw)
		assert.InDelta(t, float64(10*(i+1)), s.Voltage, 1e-6)
	}
}

func TestNewConverter_EmptyChannel(t *testing.T) {
	converter := NewConverter(config.Default(), 10)

	in := make(chan stream.RawSample)
	out := converter(in)

	close(in)

	_, ok := <-out
	assert.False(t, ok, "Output channel should be closed")
}
