package ads11xx

import "time"

// Variant describes what differs between the chips sharing this driver.
type Variant struct {
	Name string
	// DefaultRegister is the configuration read back after a general reset.
	DefaultRegister Register
	// PollReadyInPeriodic requires Ready to report true before each periodic read.
	// Chips without a data-ready flag in continuous mode are read unconditionally.
	PollReadyInPeriodic bool
	// Ready interprets the ST bit of a configuration read.
	Ready func(Register) bool
	// Interval maps a data rate code to the minimum time between periodic reads.
	Interval func(rate uint8) (time.Duration, error)
	// VDD is a fixed internal reference in mV. Zero means the reference is the
	// supply voltage given in Config.
	VDD float32
}

// Both flags read as "result available" when bit 7 is clear. They differ only in what
// the bit means while set, so the two predicates share a body.

// BusyHigh interprets ST as ST/BSY: set while a single conversion is in progress.
func BusyHigh(r Register) bool { return !r.ST() }

// ReadyLow interprets ST as ST/DRDY: cleared when a new result is available.
func ReadyLow(r Register) bool { return !r.ST() }
