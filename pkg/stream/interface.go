package stream

import "time"

// DefaultBufferSize is the default size for the samples channel buffer.
const DefaultBufferSize = 100

// RawSample is one converter reading as delivered by a source.
type RawSample struct {
	Timestamp  time.Time
	Raw        int16   // signed output code
	Millivolts float32 // input voltage, divider factor applied
}

// Device defines the interface for sample sources (local bus, firmware stream or mock).
type Device interface {
	Connect() error
	Close() error
	Samples() <-chan RawSample
	// SetSingleShot switches between periodic sampling and one single conversion per tick.
	SetSingleShot(single bool) error
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Local implements Device.
var _ Device = (*Local)(nil)
