package scope

import (
	"fmt"
	"image/color"
	"math"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"

	"github.com/itohio/anadig/pkg/meter"
	"github.com/itohio/anadig/pkg/sample"
)

var (
	gridColor       = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor      = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	voltageColor    = color.RGBA{R: 255, G: 165, B: 0, A: 255}   // Orange
	derivativeColor = color.RGBA{R: 100, G: 200, B: 255, A: 255} // Light blue
	meanColor       = color.RGBA{R: 0, G: 100, B: 200, A: 255}   // Dark blue
	statsColor      = color.RGBA{R: 200, G: 200, B: 200, A: 255} // Light gray
)

// plotArea is the rectangle the traces are drawn into.
type plotArea struct {
	x, y, width, height float32
	xMin, xMax          time.Time
}

func (p plotArea) xAt(t time.Time) float32 {
	return p.x + float32(t.Sub(p.xMin).Seconds()/p.xMax.Sub(p.xMin).Seconds())*p.width
}

func (p plotArea) yAt(v, lo, hi float64) float32 {
	return p.y + p.height - float32((v-lo)/(hi-lo))*p.height
}

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	// Background
	grid *canvas.Rectangle

	// Objects list for Fyne
	objects []fyne.CanvasObject

	// Track last size to detect changes
	lastSize fyne.Size
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	r.grid.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		// Redraw with new dimensions
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh updates the widget display.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	samples := r.scope.displaySamples
	derivatives := r.scope.displayDerivatives
	stats := r.scope.stats
	mode := r.scope.mode
	yMin, yMax := r.scope.yMin, r.scope.yMax
	dMin, dMax := r.scope.dMin, r.scope.dMax
	area := plotArea{xMin: r.scope.xMin, xMax: r.scope.xMax}
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.grid}

	marginLeft := float32(70.0)
	marginRight := float32(70.0)
	marginTop := float32(20.0)
	marginBottom := float32(40.0)

	area.x = marginLeft
	area.y = marginTop
	area.width = size.Width - marginLeft - marginRight
	area.height = size.Height - marginTop - marginBottom

	r.drawGrid(area, yMin, yMax, dMin, dMax)

	if stats.Count > 0 {
		r.drawMean(area, stats.Mean, yMin, yMax)
	}
	if len(samples) > 1 {
		r.drawSampleLine(area, samples, yMin, yMax)
	}
	if len(derivatives) > 0 && len(samples) > 1 {
		r.drawDerivativeLine(area, derivatives, samples, dMin, dMax)
	}
	r.drawStats(area, stats, mode)
}

// drawGrid draws the oscilloscope-style grid. Voltage labels go on the left, dV/dt on the right.
func (r *scopeRenderer) drawGrid(area plotArea, yMin, yMax, dMin, dMax float64) {
	numHLines := 8
	for i := 0; i < numHLines+1; i++ {
		y := area.y + float32(i)*area.height/float32(numHLines)
		r.addLine(gridColor, 1, fyne.NewPos(area.x, y), fyne.NewPos(area.x+area.width, y))

		value := yMax - float64(i)*(yMax-yMin)/float64(numHLines)
		r.addText(formatVoltage(value), labelColor, 10, fyne.TextAlignTrailing, fyne.NewPos(area.x-5, y-6))

		rate := dMax - float64(i)*(dMax-dMin)/float64(numHLines)
		r.addText(formatRate(rate), derivativeColor, 10, fyne.TextAlignLeading, fyne.NewPos(area.x+area.width+5, y-6))
	}

	numVLines := 10
	span := area.xMax.Sub(area.xMin)
	for i := 0; i < numVLines+1; i++ {
		x := area.x + float32(i)*area.width/float32(numVLines)
		r.addLine(gridColor, 1, fyne.NewPos(x, area.y), fyne.NewPos(x, area.y+area.height))

		offset := time.Duration(float64(i) * float64(span) / float64(numVLines))
		r.addText(formatTime(offset), labelColor, 10, fyne.TextAlignCenter, fyne.NewPos(x-20, area.y+area.height+5))
	}
}

// drawSampleLine draws the voltage curve (orange).
func (r *scopeRenderer) drawSampleLine(area plotArea, samples []sample.Sample, yMin, yMax float64) {
	points := make([]fyne.Position, 0, len(samples))
	for _, s := range samples {
		points = append(points, fyne.NewPos(area.xAt(s.Timestamp), area.yAt(s.Voltage, yMin, yMax)))
	}
	r.addPolyline(voltageColor, 1.5, points)
}

// drawDerivativeLine draws the dV/dt curve (light blue, thicker) on its own scale.
func (r *scopeRenderer) drawDerivativeLine(area plotArea, derivatives []float64, samples []sample.Sample, dMin, dMax float64) {
	// Derivatives correspond to sample pairs, so we use sample timestamps
	points := make([]fyne.Position, 0, len(derivatives))
	for i, deriv := range derivatives {
		if i+1 >= len(samples) {
			break
		}
		midTime := samples[i].Timestamp.Add(samples[i+1].Timestamp.Sub(samples[i].Timestamp) / 2)
		points = append(points, fyne.NewPos(area.xAt(midTime), area.yAt(deriv, dMin, dMax)))
	}
	r.addPolyline(derivativeColor, 2.5, points)
}

// drawMean draws a horizontal marker at the window mean (dark blue).
func (r *scopeRenderer) drawMean(area plotArea, mean, yMin, yMax float64) {
	y := area.yAt(mean, yMin, yMax)
	r.addLine(meanColor, 1, fyne.NewPos(area.x, y), fyne.NewPos(area.x+area.width, y))
}

// drawStats draws the window statistics in the top left corner of the plot.
func (r *scopeRenderer) drawStats(area plotArea, stats meter.Stats, mode string) {
	lines := statsText(stats)
	if mode != "" {
		lines = append([]string{mode}, lines...)
	}
	for i, line := range lines {
		r.addText(line, statsColor, 11, fyne.TextAlignLeading, fyne.NewPos(area.x+10, area.y+10+float32(i)*14))
	}
}

func (r *scopeRenderer) addLine(c color.Color, width float32, from, to fyne.Position) {
	line := canvas.NewLine(c)
	line.Position1 = from
	line.Position2 = to
	line.StrokeWidth = width
	r.objects = append(r.objects, line)
}

func (r *scopeRenderer) addPolyline(c color.Color, width float32, points []fyne.Position) {
	for i := 0; i < len(points)-1; i++ {
		r.addLine(c, width, points[i], points[i+1])
	}
}

func (r *scopeRenderer) addText(s string, c color.Color, size float32, align fyne.TextAlign, pos fyne.Position) {
	text := canvas.NewText(s, c)
	text.TextSize = size
	text.Alignment = align
	text.Move(pos)
	r.objects = append(r.objects, text)
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {}

func statsText(stats meter.Stats) []string {
	if stats.Count == 0 {
		return []string{"no samples"}
	}
	return []string{
		"last " + formatVoltage(stats.Last),
		"mean " + formatVoltage(stats.Mean) + " rms " + formatVoltage(stats.RMS),
		"min " + formatVoltage(stats.Min) + " max " + formatVoltage(stats.Max),
		"p-p " + formatVoltage(stats.PeakToPeak()) + " sd " + formatVoltage(stats.StdDev),
	}
}

// formatVoltage formats a value in mV, switching to V above one volt.
func formatVoltage(mv float64) string {
	if math.Abs(mv) >= 1000 {
		return fmt.Sprintf("%.3fV", mv/1000)
	}
	return fmt.Sprintf("%.2fmV", mv)
}

func formatRate(mvs float64) string {
	if math.Abs(mvs) >= 1000 {
		return fmt.Sprintf("%.2fV/s", mvs/1000)
	}
	return fmt.Sprintf("%.1fmV/s", mvs)
}

func formatTime(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
