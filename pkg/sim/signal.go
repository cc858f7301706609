package sim

import (
	"time"

	"github.com/chewxy/math32"
)

// Signal returns the simulated input voltage in mV at time t.
type Signal func(t time.Duration) float32

// Constant returns a fixed voltage.
func Constant(mV float32) Signal {
	return func(time.Duration) float32 { return mV }
}

// Sine returns offset + amplitude*sin(2πt/period) with a small deterministic ripple of
// the given amplitude on top.
func Sine(offset, amplitude float32, period time.Duration, noise float32) Signal {
	return func(t time.Duration) float32 {
		s := float32(t.Seconds())
		v := offset
		if period > 0 {
			v += amplitude * math32.Sin(2*math32.Pi*s/float32(period.Seconds()))
		}
		return v + noise*math32.Sin(s*1000)*math32.Cos(s*1234.5)
	}
}
