package sim

import (
	"time"

	"github.com/itohio/anadig/pkg/clock"
)

// Kind selects the converter being simulated.
type Kind int

const (
	ADS1100 Kind = iota
	ADS1110
)

func (k Kind) String() string {
	if k == ADS1110 {
		return "ADS1110"
	}
	return "ADS1100"
}

const (
	cfgST       = 0x80
	cfgSC       = 0x10
	cfgWritable = 0x1F
	cfgDefault  = 0x8C
)

// ADC simulates an ADS1100 or ADS1110.
//
// In continuous mode a conversion completes every period of the selected data rate.
// ADS1100 reports ST/BSY=1 in continuous mode. ADS1110 clears ST/DRDY when a result
// nobody has read yet is available. In single mode writing ST=1 starts one conversion;
// the ST bit reads busy/not-ready until it completes.
type ADC struct {
	kind  Kind
	clock clock.Clock

	// Input is the differential input voltage.
	Input Signal
	// VDD is the reference in mV; fixed to 2048 for ADS1110.
	VDD float32
	// FailRead and FailWrite, when set, are returned by the corresponding transfers.
	FailRead  error
	FailWrite error

	cfg    uint8 // SC, DR and PGA bits
	output int16

	start    time.Duration // continuous conversion start
	consumed int64         // continuous conversions already read

	converting bool
	doneAt     time.Duration
	unread     bool // single result not read yet

	reads, writes int
}

// NewADC returns a converter in its power-on state.
func NewADC(kind Kind, c clock.Clock) *ADC {
	a := &ADC{
		kind:  kind,
		clock: c,
		Input: Constant(0),
		VDD:   3300,
	}
	if kind == ADS1110 {
		a.VDD = 2048
	}
	a.Reset()
	return a
}

// Reset restores the power-on configuration and restarts continuous conversion.
func (a *ADC) Reset() {
	a.cfg = cfgDefault &^ cfgST
	a.startContinuous()
	a.converting = false
	a.unread = false
}

// Config returns the configuration byte as it would be read now.
func (a *ADC) Config() uint8 {
	a.advance()
	return a.cfg | a.st()
}

// Reads returns the number of read transfers.
func (a *ADC) Reads() int { return a.reads }

// Writes returns the number of write transfers.
func (a *ADC) Writes() int { return a.writes }

// Tx handles a configuration write (one byte) or an output read (up to three bytes).
func (a *ADC) Tx(w, r []byte) error {
	if len(w) > 0 {
		a.writes++
		if a.FailWrite != nil {
			return a.FailWrite
		}
		a.write(w[0])
	}
	if len(r) > 0 {
		a.reads++
		if a.FailRead != nil {
			return a.FailRead
		}
		a.read(r)
	}
	return nil
}

func (a *ADC) write(b uint8) {
	a.advance()
	a.cfg = b & cfgWritable
	switch {
	case !a.single():
		a.startContinuous()
	case b&cfgST != 0:
		a.converting = true
		a.unread = false
		a.doneAt = a.clock.Now() + a.period()
	}
}

func (a *ADC) read(r []byte) {
	a.advance()
	cfg := a.cfg | a.st()
	buf := [3]byte{byte(uint16(a.output) >> 8), byte(a.output), cfg}
	copy(r, buf[:])

	if a.single() {
		a.unread = false
	} else {
		a.consumed = a.conversions()
	}
}

func (a *ADC) st() uint8 {
	if a.single() {
		switch {
		case a.converting:
			return cfgST
		case a.kind == ADS1110 && !a.unread:
			return cfgST
		}
		return 0
	}
	if a.kind == ADS1100 || a.conversions() <= a.consumed {
		return cfgST
	}
	return 0
}

// advance latches results of conversions completed by now.
func (a *ADC) advance() {
	now := a.clock.Now()
	if a.single() {
		if a.converting && now >= a.doneAt {
			a.converting = false
			a.unread = true
			a.output = a.code(a.doneAt)
		}
		return
	}
	if n := a.conversions(); n > 0 {
		a.output = a.code(a.start + time.Duration(n)*a.period())
	}
}

func (a *ADC) startContinuous() {
	a.start = a.clock.Now()
	a.consumed = 0
}

func (a *ADC) conversions() int64 {
	return int64((a.clock.Now() - a.start) / a.period())
}

func (a *ADC) single() bool { return a.cfg&cfgSC != 0 }

func (a *ADC) rate() uint8 { return (a.cfg >> 2) & 0x03 }

func (a *ADC) period() time.Duration {
	sps := []int{128, 32, 16, 8}
	if a.kind == ADS1110 {
		sps = []int{240, 60, 30, 15}
	}
	return time.Second / time.Duration(sps[a.rate()])
}

// code converts the input at t to an output code, saturating at the rate's range.
func (a *ADC) code(t time.Duration) int16 {
	lowest := [...]float32{-2048, -8192, -16384, -32768}[a.rate()]
	gain := float32(int(1) << (a.cfg & 0x03))
	v := a.Input(t) * -lowest / a.VDD * gain
	switch {
	case v < lowest:
		v = lowest
	case v > -lowest-1:
		v = -lowest - 1
	}
	return int16(v)
}
