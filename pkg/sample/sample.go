package sample

import (
	"fmt"
	"log"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/anadig/pkg/config"
	"github.com/itohio/anadig/pkg/stream"
)

// Sample represents a processed measurement sample.
type Sample struct {
	Timestamp time.Time
	Raw       int16   // converter output code
	Voltage   float64 // calibrated input voltage (mV)
}

// Converter is a function type that converts RawSample channel to Sample channel.
type Converter func(in <-chan stream.RawSample) <-chan Sample

// NewConverter creates a converter function that transforms RawSample to Sample.
func NewConverter(cfg *config.Config, bufSize int) Converter {
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan stream.RawSample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			for raw := range in {
				sample, err := convertSample(raw, cfg)
				if err != nil {
					log.Printf("Failed to convert sample: %v", err)
					continue
				}

				select {
				case out <- sample:
				case <-time.After(time.Second):
					log.Printf("Converter output channel full, dropping sample")
				}
			}
		}()

		return out
	}
}

// convertSample converts a RawSample to Sample using the measurement calibration.
func convertSample(raw stream.RawSample, cfg *config.Config) (Sample, error) {
	if math32.IsNaN(raw.Millivolts) || math32.IsInf(raw.Millivolts, 0) {
		return Sample{}, fmt.Errorf("invalid voltage %v for raw value %d", raw.Millivolts, raw.Raw)
	}

	return Sample{
		Timestamp: raw.Timestamp,
		Raw:       raw.Raw,
		Voltage:   calibrate(float64(raw.Millivolts), cfg.Measurement.Scale, cfg.Measurement.Offset),
	}, nil
}

// calibrate applies a linear correction: V = V_measured * scale + offset.
func calibrate(mv, scale, offset float64) float64 {
	if scale == 0 {
		scale = 1
	}
	return mv*scale + offset
}
