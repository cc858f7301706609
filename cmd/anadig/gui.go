package main

import (
	"fmt"
	"log"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/go-logr/logr"

	"github.com/itohio/anadig/pkg/config"
	"github.com/itohio/anadig/pkg/meter"
	"github.com/itohio/anadig/pkg/sample"
	"github.com/itohio/anadig/pkg/scope"
	"github.com/itohio/anadig/pkg/stream"
)

// appState holds the application state.
type appState struct {
	cfg         *config.Config
	configPath  string
	log         logr.Logger
	device      stream.Device
	output      output
	voltmeter   *meter.Meter
	scopeWidget *scope.ScopeWidget
	window      fyne.Window
	connectBtn  *widget.Button
	modeBtn     *widget.Button
	outputBtn   *widget.Button
	singleShot  bool
	chain       *measurementChain // Current measurement chain (nil if not connected)

	// Throttling for scope updates
	lastUpdateTime time.Time
	updateMu       sync.Mutex
}

func runGUI(cfg *config.Config, configPath string, logger logr.Logger) {
	application := app.NewWithID("com.itohio.anadig")

	window := application.NewWindow("Analog I/O")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	state := &appState{
		cfg:        cfg,
		configPath: configPath,
		log:        logger,
		voltmeter:  meter.New(cfg),
		window:     window,
		singleShot: cfg.ADC.SingleShot,
	}

	toolbar := createToolbar(state)

	state.scopeWidget = scope.New(cfg)
	state.scopeWidget.SetMode(modeCaption(state.singleShot))
	registerScopeUpdates(state)

	window.SetContent(container.NewBorder(toolbar, nil, nil, nil, state.scopeWidget))
	window.SetOnClosed(func() {
		closeMeasurementChain(state.chain)
	})
	window.ShowAndRun()
}

// createToolbar creates the application toolbar with Connect, Settings, mode and DAC buttons.
func createToolbar(state *appState) fyne.CanvasObject {
	connectBtn := widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	state.connectBtn = connectBtn

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	modeBtn := widget.NewButtonWithIcon(modeCaption(state.singleShot), theme.MediaPlayIcon(), func() {
		handleModeToggle(state)
	})
	modeBtn.Disable()
	state.modeBtn = modeBtn

	outputBtn := widget.NewButtonWithIcon("DAC", theme.UploadIcon(), func() {
		showOutputDialog(state)
	})
	outputBtn.Disable()
	state.outputBtn = outputBtn

	return container.NewBorder(
		nil, // top
		nil, // bottom
		container.NewHBox(connectBtn, settingsBtn), // left
		container.NewHBox(modeBtn, outputBtn),      // right
		nil, // center (spacer)
	)
}

// registerScopeUpdates forwards meter updates to the scope widget.
// Throttle updates to ~60 FPS (16.67ms between updates) to ensure smooth UI.
func registerScopeUpdates(state *appState) {
	const updateInterval = 16 * time.Millisecond

	state.voltmeter.OnUpdate(func(samples []sample.Sample, derivatives []float64, stats meter.Stats) {
		state.updateMu.Lock()
		now := time.Now()
		if now.Sub(state.lastUpdateTime) < updateInterval {
			state.updateMu.Unlock()
			return
		}
		state.lastUpdateTime = now
		state.updateMu.Unlock()

		// Scope widget handles downsampling internally, so pass full data
		fyne.Do(func() {
			state.scopeWidget.UpdateData(samples, derivatives, stats)
		})
	})
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.device != nil && state.device.IsConnected() {
		disconnect(state)
		fmt.Printf("Disconnected from %s source\n", state.cfg.Bus.Kind)
		return
	}

	state.cfg.ADC.SingleShot = state.singleShot
	device, bus, err := openSource(state.cfg, state.log)
	if err != nil {
		dialog.ShowError(fmt.Errorf("failed to open %s source: %w", state.cfg.Bus.Kind, err), state.window)
		return
	}

	chain, err := startChain(state.cfg, device, state.voltmeter)
	if err != nil {
		dialog.ShowError(fmt.Errorf("failed to connect to %s source: %w", state.cfg.Bus.Kind, err), state.window)
		return
	}
	state.device = device
	state.chain = chain
	fmt.Printf("Connected to %s source\n", state.cfg.Bus.Kind)

	out, err := openOutput(state.cfg, bus, state.log)
	if err != nil {
		dialog.ShowError(fmt.Errorf("failed to set up DAC: %w", err), state.window)
	}
	state.output = out

	state.modeBtn.Enable()
	if state.output != nil {
		state.outputBtn.Enable()
	}
}

func disconnect(state *appState) {
	closeMeasurementChain(state.chain)
	state.chain = nil
	state.device = nil
	state.output = nil
	state.modeBtn.Disable()
	state.outputBtn.Disable()
}

// reconnect restarts the measurement chain after a settings change.
func reconnect(state *appState) {
	if state.device == nil || !state.device.IsConnected() {
		return
	}
	disconnect(state)
	handleConnect(state)
}

func saveConfig(state *appState) {
	if err := state.cfg.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
		return
	}
	log.Printf("Saved configuration to %s", state.configPath)
}
