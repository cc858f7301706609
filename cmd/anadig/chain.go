package main

import (
	"github.com/itohio/anadig/pkg/config"
	"github.com/itohio/anadig/pkg/meter"
	"github.com/itohio/anadig/pkg/sample"
	"github.com/itohio/anadig/pkg/stream"
)

// measurementChain tracks the components of the measurement chain for graceful shutdown.
type measurementChain struct {
	device         stream.Device
	samplesStream  <-chan sample.Sample
	meterGoroutine chan struct{} // Closed when meter goroutine exits
}

// startChain connects device and feeds its samples through the converters into m.
// Callbacks must be registered on m before calling it.
func startChain(cfg *config.Config, device stream.Device, m *meter.Meter) (*measurementChain, error) {
	if err := device.Connect(); err != nil {
		return nil, err
	}

	// Reset meter shutdown flag for new chain
	m.ResetShutdown()

	samplesStream := converterChain(cfg)(device.Samples())

	meterDone := make(chan struct{})
	go func() {
		defer close(meterDone)
		m.ProcessSamples(samplesStream)
	}()

	return &measurementChain{
		device:         device,
		samplesStream:  samplesStream,
		meterGoroutine: meterDone,
	}, nil
}

// converterChain selects the converters between raw samples and the meter. Averaging
// runs either on raw samples before calibration or on converted samples after it.
func converterChain(cfg *config.Config) sample.Converter {
	n := cfg.Measurement.AverageSamples
	switch {
	case n > 0 && cfg.Measurement.AverageRaw:
		return sample.NewAveragingConverter(cfg, n, 500)
	case n > 0:
		base := sample.NewConverter(cfg, 500)
		averaging := sample.NewAveragingConverterForSamples(n, 500)
		return func(in <-chan stream.RawSample) <-chan sample.Sample {
			return averaging(base(in))
		}
	}
	return sample.NewConverter(cfg, 500)
}

// closeMeasurementChain gracefully closes the measurement chain.
// Waits for all goroutines to finish and channels to drain.
func closeMeasurementChain(chain *measurementChain) {
	if chain == nil {
		return
	}

	// Close device - this will close the raw samples channel
	if chain.device != nil {
		chain.device.Close()
	}

	// The meter goroutine exits when samplesStream closes,
	// which happens once the converters finish draining
	if chain.meterGoroutine != nil {
		<-chain.meterGoroutine
	}
}
