//go:build tinygo

package main

import "machine"

const (
	// Sampling configuration
	UPDATE_INTERVAL_MS = 2  // Driver update period, shorter than the fastest conversion
	STORED_SAMPLES     = 16 // Converter ring buffer size

	// Converter configuration
	ADC_SAMPLING = 60 // samples per second: 15, 30, 60 or 240
	ADC_GAIN     = 1  // 1, 2, 4 or 8

	// I2C configuration
	I2C_FREQUENCY = 400 * machine.KHz

	// Serial configuration
	// Format "unix_micros,raw,millivolts\n"
	// Example: "1234567890123456,-32768,-2048.00\n" = ~35 bytes max per line
	// 240 outputs/sec * 35 bytes/line = 8,400 bytes/sec
	// 115200 8N1 carries 11,520 bytes/sec
	UART_BAUD_RATE = 115200
)

var (
	PIN_SDA = machine.SDA_PIN
	PIN_SCL = machine.SCL_PIN
)
