package main

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

func modeCaption(single bool) string {
	if single {
		return "Single shot"
	}
	return "Periodic"
}

// handleModeToggle switches the converter between periodic and single shot measurement.
func handleModeToggle(state *appState) {
	if state.device == nil || !state.device.IsConnected() {
		return
	}

	single := !state.singleShot
	if err := state.device.SetSingleShot(single); err != nil {
		dialog.ShowError(fmt.Errorf("failed to switch to %s mode: %w", modeCaption(single), err), state.window)
		return
	}
	state.singleShot = single
	updateModeButton(state.modeBtn, single)
	state.scopeWidget.SetMode(modeCaption(single))
}

// updateModeButton updates the mode button's visual state.
func updateModeButton(btn *widget.Button, single bool) {
	btn.SetText(modeCaption(single))
	if single {
		btn.Importance = widget.HighImportance
	} else {
		btn.Importance = widget.MediumImportance
	}
	btn.Refresh()
}

// showOutputDialog lets the user set every DAC channel in mV.
func showOutputDialog(state *appState) {
	if state.output == nil {
		return
	}

	entries := make([]*widget.Entry, state.output.Channels())
	items := make([]*widget.FormItem, len(entries))
	for ch := range entries {
		entry := widget.NewEntry()
		if ch < len(state.cfg.DAC.Output) {
			entry.SetText(fmt.Sprintf("%.1f", state.cfg.DAC.Output[ch]))
		}
		entries[ch] = entry
		items[ch] = widget.NewFormItem(
			fmt.Sprintf("Channel %d (0..%.0f mV)", ch, state.output.MaximumVoltage(ch)),
			entry,
		)
	}

	d := dialog.NewForm("DAC output", "Apply", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		if err := applyOutput(state, entries); err != nil {
			dialog.ShowError(err, state.window)
		}
	}, state.window)
	d.Resize(fyne.NewSize(400, 200))
	d.Show()
}

func applyOutput(state *appState, entries []*widget.Entry) error {
	values := make([]float64, len(entries))
	for ch, entry := range entries {
		mv, err := strconv.ParseFloat(entry.Text, 64)
		if err != nil {
			return fmt.Errorf("channel %d: %w", ch, err)
		}
		if err := state.output.WriteVoltage(ch, float32(mv)); err != nil {
			return fmt.Errorf("channel %d: %w", ch, err)
		}
		values[ch] = mv
	}
	state.cfg.DAC.Output = values
	return nil
}
