package sample

import (
	"log"
	"time"

	"github.com/itohio/anadig/pkg/config"
	"github.com/itohio/anadig/pkg/stream"
)

// averagingPeriod is the output rate of averaging converters.
const averagingPeriod = 100 * time.Millisecond

// NewAveragingConverter creates a converter that averages N consecutive RawSamples
// and converts them to Samples. This reduces noise in the measurements.
func NewAveragingConverter(cfg *config.Config, windowSize int, bufSize int) Converter {
	if windowSize <= 0 {
		windowSize = 1 // No averaging if invalid
	}
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan stream.RawSample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			var buffer []stream.RawSample
			ticker := time.NewTicker(averagingPeriod)
			defer ticker.Stop()

			for {
				select {
				case raw, ok := <-in:
					if !ok {
						// Input closed, output any remaining samples
						if len(buffer) > 0 {
							avg, err := averageAndConvertSamples(buffer, cfg)
							if err == nil {
								select {
								case out <- avg:
								default:
								}
							}
						}
						return
					}

					buffer = append(buffer, raw)
					if len(buffer) > windowSize {
						buffer = buffer[1:] // Remove oldest
					}

				case <-ticker.C:
					if len(buffer) > 0 {
						avg, err := averageAndConvertSamples(buffer, cfg)
						if err != nil {
							log.Printf("Failed to convert averaged sample: %v", err)
							continue
						}
						select {
						case out <- avg:
						default:
							log.Printf("Averaging converter output channel full")
						}
					}
				}
			}
		}()

		return out
	}
}

// averageAndConvertSamples averages a slice of RawSamples and converts to Sample.
// Uses the most recent sample's timestamp.
func averageAndConvertSamples(samples []stream.RawSample, cfg *config.Config) (Sample, error) {
	if len(samples) == 0 {
		return Sample{}, nil
	}

	var (
		sumRaw int64
		sumMV  float64
	)
	for _, s := range samples {
		sumRaw += int64(s.Raw)
		sumMV += float64(s.Millivolts)
	}

	n := float64(len(samples))
	avgRaw := stream.RawSample{
		Timestamp:  samples[len(samples)-1].Timestamp,
		Raw:        int16(roundHalfAway(float64(sumRaw) / n)),
		Millivolts: float32(sumMV / n),
	}

	return convertSample(avgRaw, cfg)
}

func roundHalfAway(v float64) float64 {
	if v < 0 {
		return float64(int64(v - 0.5))
	}
	return float64(int64(v + 0.5))
}

// NewAveragingConverterForSamples creates an averaging converter that works on already-converted Samples.
func NewAveragingConverterForSamples(windowSize int, bufSize int) func(in <-chan Sample) <-chan Sample {
	if windowSize <= 0 {
		windowSize = 1
	}
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan Sample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			var buffer []Sample
			ticker := time.NewTicker(averagingPeriod)
			defer ticker.Stop()

			for {
				select {
				case sample, ok := <-in:
					if !ok {
						if len(buffer) > 0 {
							select {
							case out <- averageConvertedSamples(buffer):
							default:
							}
						}
						return
					}

					buffer = append(buffer, sample)
					if len(buffer) > windowSize {
						buffer = buffer[1:]
					}

				case <-ticker.C:
					if len(buffer) > 0 {
						select {
						case out <- averageConvertedSamples(buffer):
						default:
							log.Printf("Averaging converter output channel full")
						}
					}
				}
			}
		}()

		return out
	}
}

// averageConvertedSamples averages a slice of converted Samples.
func averageConvertedSamples(samples []Sample) Sample {
	if len(samples) == 0 {
		return Sample{}
	}

	var (
		sumRaw     int64
		sumVoltage float64
	)
	for _, s := range samples {
		sumRaw += int64(s.Raw)
		sumVoltage += s.Voltage
	}

	n := float64(len(samples))
	return Sample{
		Timestamp: samples[len(samples)-1].Timestamp,
		Raw:       int16(roundHalfAway(float64(sumRaw) / n)),
		Voltage:   sumVoltage / n,
	}
}
