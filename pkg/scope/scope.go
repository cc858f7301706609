package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/anadig/pkg/config"
	"github.com/itohio/anadig/pkg/meter"
	"github.com/itohio/anadig/pkg/sample"
)

// ScopeWidget is a custom Fyne widget that displays the voltage window and its rate of change.
type ScopeWidget struct {
	widget.BaseWidget

	cfg *config.Config

	// Data (protected by mu)
	mu    sync.RWMutex
	stats meter.Stats
	mode  string

	// Display buffers (reused for downsampling)
	displaySamples     []sample.Sample
	displayDerivatives []float64

	// Auto-scaling. Voltage and dV/dt have their own vertical ranges.
	yMin, yMax float64
	dMin, dMax float64
	xMin, xMax time.Time

	maxDisplayPoints int
}

// New creates a new ScopeWidget instance.
func New(cfg *config.Config) *ScopeWidget {
	s := &ScopeWidget{
		cfg:                cfg,
		displaySamples:     make([]sample.Sample, 0, 1000),
		displayDerivatives: make([]float64, 0, 1000),
		maxDisplayPoints:   1000, // Limit points for efficient rendering
	}
	s.ExtendBaseWidget(s)
	s.mu.Lock()
	s.updateAutoScale()
	s.mu.Unlock()
	s.Refresh()
	return s
}

// UpdateData updates the widget with new measurement data.
// This should be called from the measurement callback using fyne.Do().
func (s *ScopeWidget) UpdateData(samples []sample.Sample, derivatives []float64, stats meter.Stats) {
	s.mu.Lock()

	s.displaySamples = sample.Downsample(s.displaySamples, samples, s.maxDisplayPoints)
	s.displayDerivatives = sample.Downsample(s.displayDerivatives, derivatives, s.maxDisplayPoints)
	s.stats = stats

	s.updateAutoScale()

	s.mu.Unlock()

	// Refresh outside the lock, the renderer takes a read lock
	s.Refresh()
}

// SetMode sets the acquisition mode caption shown in the plot corner.
func (s *ScopeWidget) SetMode(mode string) {
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
	s.Refresh()
}

// updateAutoScale calculates axis ranges from current data.
func (s *ScopeWidget) updateAutoScale() {
	window := time.Duration(s.cfg.Measurement.WindowSeconds * float64(time.Second))
	if window <= 0 {
		window = 10 * time.Second
	}

	if len(s.displaySamples) == 0 {
		s.yMin, s.yMax = 0, 1
		s.dMin, s.dMax = -1, 1
		s.xMin = time.Now()
		s.xMax = s.xMin.Add(window)
		return
	}

	s.yMin = s.displaySamples[0].Voltage
	s.yMax = s.displaySamples[0].Voltage
	for _, sample := range s.displaySamples {
		s.yMin = min(s.yMin, sample.Voltage)
		s.yMax = max(s.yMax, sample.Voltage)
	}
	s.yMin, s.yMax = withMargin(s.yMin, s.yMax)

	s.dMin, s.dMax = -1, 1
	if len(s.displayDerivatives) > 0 {
		s.dMin = s.displayDerivatives[0]
		s.dMax = s.displayDerivatives[0]
		for _, deriv := range s.displayDerivatives {
			s.dMin = min(s.dMin, deriv)
			s.dMax = max(s.dMax, deriv)
		}
		s.dMin, s.dMax = withMargin(s.dMin, s.dMax)
	}

	s.xMin = s.displaySamples[0].Timestamp
	s.xMax = s.displaySamples[len(s.displaySamples)-1].Timestamp
	// Ensure minimum window
	if s.xMax.Sub(s.xMin) < window {
		s.xMax = s.xMin.Add(window)
	}
}

// withMargin widens [lo, hi] by 10% on both sides.
func withMargin(lo, hi float64) (float64, float64) {
	span := hi - lo
	if span == 0 {
		span = 1
	}
	margin := span * 0.1
	return lo - margin, hi + margin
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	grid := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255}) // Dark background
	return &scopeRenderer{
		scope:   s,
		grid:    grid,
		objects: []fyne.CanvasObject{grid},
	}
}
