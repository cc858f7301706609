package meter

import (
	"math"
	"sync"
	"time"

	"github.com/itohio/anadig/pkg/config"
	"github.com/itohio/anadig/pkg/sample"
)

var _ Voltmeter = (*Meter)(nil)

// Stats summarizes the samples inside the window. Voltages are in mV.
type Stats struct {
	Count  int
	Last   float64
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	RMS    float64
}

// PeakToPeak returns Max - Min.
func (s Stats) PeakToPeak() float64 { return s.Max - s.Min }

// Voltmeter processes samples and maintains a time window of them.
type Voltmeter interface {
	ProcessSamples(input <-chan sample.Sample)
	Samples() []sample.Sample                                                   // Current window (FIFO, ordered first to last)
	Derivatives() []float64                                                     // dV/dt in mV/s, n-1 derivatives for n samples
	Stats() Stats                                                               // Statistics over the current window
	OnUpdate(func(samples []sample.Sample, derivatives []float64, stats Stats)) // Register callback for updates
}

// Meter implements Voltmeter.
//
// Samples and derivatives are FIFO buffers ordered oldest first; removal is based on
// the sample timestamps, not on count. derivative[i] = (sample[i+1] - sample[i]) / dt.
type Meter struct {
	samples     []sample.Sample
	derivatives []float64

	mu sync.RWMutex

	callbacks []func(samples []sample.Sample, derivatives []float64, stats Stats)
	cbMu      sync.RWMutex

	windowDuration time.Duration

	// Set when the input channel closes, prevents further callbacks
	shutdown bool
}

// New creates a new Meter instance.
func New(cfg *config.Config) *Meter {
	return &Meter{
		samples:        make([]sample.Sample, 0),
		derivatives:    make([]float64, 0),
		windowDuration: time.Duration(cfg.Measurement.WindowSeconds * float64(time.Second)),
	}
}

// ProcessSamples processes samples from the input channel until it is closed.
// When the input channel closes, it sets shutdown flag to prevent further callbacks.
func (m *Meter) ProcessSamples(input <-chan sample.Sample) {
	for s := range input {
		m.processSample(s)
	}
	m.mu.Lock()
	m.shutdown = true
	m.mu.Unlock()
}

// processSample adds a sample to the window and updates derivatives.
func (m *Meter) processSample(s sample.Sample) {
	m.mu.Lock()

	m.samples = append(m.samples, s)

	// Samples at or before cutoff are outside the window
	cutoffTime := s.Timestamp.Add(-m.windowDuration)
	cutoffIndex := 0
	for i, sample := range m.samples {
		if sample.Timestamp.After(cutoffTime) {
			cutoffIndex = i
			break
		}
	}
	if cutoffIndex > 0 {
		m.samples = m.samples[cutoffIndex:]
		// Derivatives involving removed samples go too
		if cutoffIndex <= len(m.derivatives) {
			m.derivatives = m.derivatives[cutoffIndex:]
		} else {
			m.derivatives = m.derivatives[:0]
		}
	}

	if len(m.samples) >= 2 {
		lastIdx := len(m.samples) - 1
		prev := m.samples[lastIdx-1]
		curr := m.samples[lastIdx]

		dt := curr.Timestamp.Sub(prev.Timestamp).Seconds()
		if dt <= 0 {
			// Keep n samples = n-1 derivatives even for duplicate timestamps
			dt = math.Inf(1)
		}
		m.derivatives = append(m.derivatives, (curr.Voltage-prev.Voltage)/dt)
		if len(m.derivatives) > len(m.samples)-1 {
			m.derivatives = m.derivatives[1:]
		}
	}

	shouldNotify := !m.shutdown
	m.mu.Unlock()

	if shouldNotify {
		m.notifyCallbacks()
	}
}

// Samples returns a copy of the current samples buffer.
func (m *Meter) Samples() []sample.Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]sample.Sample, len(m.samples))
	copy(result, m.samples)
	return result
}

// Derivatives returns a copy of the current derivatives buffer.
func (m *Meter) Derivatives() []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]float64, len(m.derivatives))
	copy(result, m.derivatives)
	return result
}

// Stats returns statistics over the current window.
func (m *Meter) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return computeStats(m.samples)
}

// OnUpdate registers a callback function that will be called when samples are updated.
// The callback should copy data quickly and return as fast as possible.
func (m *Meter) OnUpdate(callback func(samples []sample.Sample, derivatives []float64, stats Stats)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// ResetShutdown resets the shutdown flag, allowing callbacks to be sent again.
// This should be called before starting a new measurement chain.
func (m *Meter) ResetShutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = false
}

// notifyCallbacks invokes all registered callbacks with copies of the current data.
func (m *Meter) notifyCallbacks() {
	m.mu.RLock()
	samplesCopy := make([]sample.Sample, len(m.samples))
	copy(samplesCopy, m.samples)
	derivativesCopy := make([]float64, len(m.derivatives))
	copy(derivativesCopy, m.derivatives)
	stats := computeStats(m.samples)
	m.mu.RUnlock()

	m.cbMu.RLock()
	callbacks := make([]func(samples []sample.Sample, derivatives []float64, stats Stats), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(samplesCopy, derivativesCopy, stats)
		}
	}
}

func computeStats(samples []sample.Sample) Stats {
	if len(samples) == 0 {
		return Stats{}
	}

	st := Stats{
		Count: len(samples),
		Last:  samples[len(samples)-1].Voltage,
		Min:   math.Inf(1),
		Max:   math.Inf(-1),
	}
	var sum, sumSq float64
	for _, s := range samples {
		v := s.Voltage
		st.Min = math.Min(st.Min, v)
		st.Max = math.Max(st.Max, v)
		sum += v
		sumSq += v * v
	}

	n := float64(len(samples))
	st.Mean = sum / n
	st.RMS = math.Sqrt(sumSq / n)
	st.StdDev = math.Sqrt(math.Max(sumSq/n-st.Mean*st.Mean, 0))
	return st
}
