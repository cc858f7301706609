package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/anadig/pkg/bus"
	"github.com/itohio/anadig/pkg/config"
	"github.com/itohio/anadig/pkg/meter"
	"github.com/itohio/anadig/pkg/stream"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createBusTab(state),
		createConverterTab(state),
		createMeasurementTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

// createBusTab creates the source selection tab.
func createBusTab(state *appState) *container.TabItem {
	kindSelect := widget.NewSelect([]string{config.BusMock, config.BusLinux, config.BusSerial}, nil)
	kindSelect.SetSelected(state.cfg.Bus.Kind)

	// Host I2C buses, empty selects the first one
	busNames, err := bus.List()
	if err != nil {
		state.log.V(1).Info("cannot list I2C buses", "error", err.Error())
	}
	nameSelect := widget.NewSelect(append([]string{""}, busNames...), nil)
	nameSelect.SetSelected(state.cfg.Bus.Name)

	portOptions, portMap := serialPortOptions(state.cfg.Bus.Port)
	portSelect := widget.NewSelect(portOptions, nil)
	for display, port := range portMap {
		if port == state.cfg.Bus.Port {
			portSelect.SetSelected(display)
		}
	}

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Bus.Baud))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Source", Widget: kindSelect},
			{Text: "I2C Bus", Widget: nameSelect},
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
		},
		OnSubmit: func() {
			if kindSelect.Selected != "" {
				state.cfg.Bus.Kind = kindSelect.Selected
			}
			state.cfg.Bus.Name = nameSelect.Selected
			if portSelect.Selected != "" {
				selectedPort := portMap[portSelect.Selected]
				if selectedPort == "" {
					selectedPort = portSelect.Selected // Fallback to selected text
				}
				state.cfg.Bus.Port = selectedPort
			}
			if baud, err := strconv.Atoi(baudEntry.Text); err == nil && baud > 0 {
				state.cfg.Bus.Baud = baud
			}
			saveConfig(state)
			reconnect(state)
		},
	}

	return container.NewTabItem("Source", form)
}

// serialPortOptions maps display names of the available serial ports to port names.
// The current port is listed even if it is not present.
func serialPortOptions(current string) ([]string, map[string]string) {
	options := []string{}
	portMap := make(map[string]string)

	if ports, err := stream.Ports(); err == nil {
		for _, port := range ports {
			displayName := port.Name
			if port.Description != "" && port.Description != port.Name {
				displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			options = append(options, displayName)
			portMap[displayName] = port.Name
		}
	}

	for _, port := range portMap {
		if port == current {
			return options, portMap
		}
	}
	if current != "" {
		options = append(options, current)
		portMap[current] = current
	}
	return options, portMap
}

// createConverterTab creates the ADC configuration tab.
func createConverterTab(state *appState) *container.TabItem {
	chipSelect := widget.NewSelect([]string{config.ChipADS1100, config.ChipADS1110}, nil)
	chipSelect.SetSelected(state.cfg.ADC.Chip)

	addressEntry := widget.NewEntry()
	addressEntry.SetText(fmt.Sprintf("0x%02X", state.cfg.ADC.Address))

	rateEntry := widget.NewEntry()
	rateEntry.SetText(strconv.Itoa(state.cfg.ADC.Rate))

	gainSelect := widget.NewSelect([]string{"1", "2", "4", "8"}, nil)
	gainSelect.SetSelected(strconv.Itoa(state.cfg.ADC.Gain))

	vddEntry := widget.NewEntry()
	vddEntry.SetText(fmt.Sprintf("%.0f", state.cfg.ADC.VDD))

	factorEntry := widget.NewEntry()
	factorEntry.SetText(fmt.Sprintf("%.6f", state.cfg.ADC.Factor))

	storedSizeEntry := widget.NewEntry()
	storedSizeEntry.SetText(strconv.Itoa(state.cfg.ADC.StoredSize))

	tickEntry := widget.NewEntry()
	tickEntry.SetText(state.cfg.ADC.Tick.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Chip", Widget: chipSelect},
			{Text: "Address", Widget: addressEntry},
			{Text: "Rate (SPS, 0=default)", Widget: rateEntry},
			{Text: "Gain", Widget: gainSelect},
			{Text: "VDD (mV, ADS1100)", Widget: vddEntry},
			{Text: "Factor (0=default)", Widget: factorEntry},
			{Text: "Stored Samples", Widget: storedSizeEntry},
			{Text: "Update Tick", Widget: tickEntry},
		},
		OnSubmit: func() {
			adc := state.cfg.ADC
			if chipSelect.Selected != "" {
				adc.Chip = chipSelect.Selected
			}
			if addr, err := strconv.ParseUint(addressEntry.Text, 0, 7); err == nil {
				adc.Address = uint16(addr)
			}
			if rate, err := strconv.Atoi(rateEntry.Text); err == nil {
				adc.Rate = rate
			}
			if gain, err := strconv.Atoi(gainSelect.Selected); err == nil {
				adc.Gain = gain
			}
			if vdd, err := strconv.ParseFloat(vddEntry.Text, 64); err == nil {
				adc.VDD = vdd
			}
			if factor, err := strconv.ParseFloat(factorEntry.Text, 64); err == nil {
				adc.Factor = factor
			}
			if size, err := strconv.Atoi(storedSizeEntry.Text); err == nil {
				adc.StoredSize = size
			}
			if tick, err := time.ParseDuration(tickEntry.Text); err == nil {
				adc.Tick = tick
			}

			if _, _, err := adc.Converter(); err != nil {
				dialog.ShowError(fmt.Errorf("invalid converter settings: %w", err), state.window)
				return
			}
			state.cfg.ADC = adc
			saveConfig(state)
			reconnect(state)
		},
	}

	return container.NewTabItem("Converter", form)
}

// createMeasurementTab creates the Measurement configuration tab.
func createMeasurementTab(state *appState) *container.TabItem {
	windowSecondsEntry := widget.NewEntry()
	windowSecondsEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Measurement.WindowSeconds))

	averageSamplesEntry := widget.NewEntry()
	averageSamplesEntry.SetText(strconv.Itoa(state.cfg.Measurement.AverageSamples))

	averageRawCheck := widget.NewCheck("", nil)
	averageRawCheck.SetChecked(state.cfg.Measurement.AverageRaw)

	scaleEntry := widget.NewEntry()
	scaleEntry.SetText(fmt.Sprintf("%.6f", state.cfg.Measurement.Scale))

	offsetEntry := widget.NewEntry()
	offsetEntry.SetText(fmt.Sprintf("%.3f", state.cfg.Measurement.Offset))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Window (seconds)", Widget: windowSecondsEntry},
			{Text: "Average Samples (0=disabled)", Widget: averageSamplesEntry},
			{Text: "Average Raw Codes", Widget: averageRawCheck},
			{Text: "Scale", Widget: scaleEntry},
			{Text: "Offset (mV)", Widget: offsetEntry},
		},
		OnSubmit: func() {
			if ws, err := strconv.ParseFloat(windowSecondsEntry.Text, 64); err == nil && ws > 0 {
				state.cfg.Measurement.WindowSeconds = ws
			}
			if avg, err := strconv.Atoi(averageSamplesEntry.Text); err == nil {
				state.cfg.Measurement.AverageSamples = avg
			}
			state.cfg.Measurement.AverageRaw = averageRawCheck.Checked
			if scale, err := strconv.ParseFloat(scaleEntry.Text, 64); err == nil {
				state.cfg.Measurement.Scale = scale
			}
			if offset, err := strconv.ParseFloat(offsetEntry.Text, 64); err == nil {
				state.cfg.Measurement.Offset = offset
			}
			saveConfig(state)

			// The window length is fixed per meter
			wasConnected := state.device != nil && state.device.IsConnected()
			if wasConnected {
				disconnect(state)
			}
			state.voltmeter = meter.New(state.cfg)
			registerScopeUpdates(state)
			if wasConnected {
				handleConnect(state)
			}
		},
	}

	return container.NewTabItem("Measurement", form)
}

// createMockTab creates the simulated signal configuration tab.
func createMockTab(state *appState) *container.TabItem {
	offsetEntry := widget.NewEntry()
	offsetEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Mock.Offset))

	amplitudeEntry := widget.NewEntry()
	amplitudeEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Mock.Amplitude))

	periodEntry := widget.NewEntry()
	periodEntry.SetText(state.cfg.Mock.Period.String())

	noiseEntry := widget.NewEntry()
	noiseEntry.SetText(fmt.Sprintf("%.3f", state.cfg.Mock.Noise))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Offset (mV)", Widget: offsetEntry},
			{Text: "Amplitude (mV)", Widget: amplitudeEntry},
			{Text: "Period", Widget: periodEntry},
			{Text: "Noise (mV)", Widget: noiseEntry},
		},
		OnSubmit: func() {
			if offset, err := strconv.ParseFloat(offsetEntry.Text, 64); err == nil {
				state.cfg.Mock.Offset = offset
			}
			if amp, err := strconv.ParseFloat(amplitudeEntry.Text, 64); err == nil {
				state.cfg.Mock.Amplitude = amp
			}
			if period, err := time.ParseDuration(periodEntry.Text); err == nil && period > 0 {
				state.cfg.Mock.Period = period
			}
			if noise, err := strconv.ParseFloat(noiseEntry.Text, 64); err == nil {
				state.cfg.Mock.Noise = noise
			}
			saveConfig(state)
			if state.cfg.Bus.Kind == config.BusMock {
				reconnect(state)
			}
		},
	}

	return container.NewTabItem("Mock", form)
}
