package sample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/anadig/pkg/config"
	"github.com/itohio/anadig/pkg/stream"
)

func TestNewAveragingConverter_BasicAveraging(t *testing.T) {
	converter := NewAveragingConverter(config.Default(), 3, 10)

	in := make(chan stream.RawSample, 10)
	out := converter(in)

	now := time.Now()
	for i := 0; i < 5; i++ {
		in <- stream.RawSample{
			Timestamp:  now.Add(time.Duration(i) * time.Millisecond),
			Raw:        int16(1000 + i*100),
			Millivolts: float32(100 + i*10),
		}
	}

	// Wait for the ticker to fire
	time.Sleep(150 * time.Millisecond)
	close(in)

	var samples []Sample
	for sample := range out {
		samples = append(samples, sample)
	}

	require.NotEmpty(t, samples, "Should receive at least one averaged sample")
	// Window of 3 keeps the last three inputs
	last := samples[len(samples)-1]
	assert.Equal(t, int16(1300), last.Raw)
	assert.InDelta(t, 130, last.Voltage, 1e-3)
	assert.Equal(t, now.Add(4*time.Millisecond), last.Timestamp)
}

func TestAverageAndConvertSamples(t *testing.T) {
	cfg := config.Default()
	now := time.Now()

	avg, err := averageAndConvertSamples([]stream.RawSample{
		{Timestamp: now, Raw: -3, Millivolts: -1},
		{Timestamp: now.Add(time.Second), Raw: -4, Millivolts: -2},
	}, cfg)
	require.NoError(t, err)
	assert.Equal(t, int16(-4), avg.Raw, "rounds half away from zero")
	assert.InDelta(t, -1.5, avg.Voltage, 1e-6)
	assert.Equal(t, now.Add(time.Second), avg.Timestamp)

	avg, err = averageAndConvertSamples(nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, Sample{}, avg)
}

func TestAverageConvertedSamples(t *testing.T) {
	now := time.Now()
	avg := averageConvertedSamples([]Sample{
		{Timestamp: now, Raw: 10, Voltage: 1},
		{Timestamp: now.Add(time.Second), Raw: 20, Voltage: 2},
		{Timestamp: now.Add(2 * time.Second), Raw: 30, Voltage: 3},
	})
	assert.Equal(t, int16(20), avg.Raw)
	assert.InDelta(t, 2, avg.Voltage, 1e-9)
	assert.Equal(t, now.Add(2*time.Second), avg.Timestamp)

	assert.Equal(t, Sample{}, averageConvertedSamples(nil))
}

// TestAveragingConverter_GracefulShutdown tests that averaging converter
// closes output channel when input channel is closed.
func TestAveragingConverter_GracefulShutdown(t *testing.T) {
	converter := NewAveragingConverterForSamples(3, 10)
	input := make(chan Sample, 10)
	output := converter(input)

	received := make(chan int, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		count := 0
		for range output {
			count++
		}
		received <- count
	}()

	now := time.Now()
	for i := 0; i < 5; i++ {
		input <- Sample{
			Timestamp: now.Add(time.Duration(i) * 100 * time.Millisecond),
			Voltage:   float64(i),
		}
	}

	close(input)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Output channel did not close within timeout")
	}

	count := <-received
	assert.Greater(t, count, 0, "Should flush the buffer on close")
	assert.LessOrEqual(t, count, 5)
}
