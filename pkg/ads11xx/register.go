package ads11xx

import "fmt"

// PGA is the programmable gain amplifier setting.
type PGA uint8

const (
	Gain1 PGA = iota // 1 (default)
	Gain2            // 2
	Gain4            // 4
	Gain8            // 8
)

// Multiplier returns the amplifier gain.
func (p PGA) Multiplier() int {
	switch p {
	case Gain1:
		return 1
	case Gain2:
		return 2
	case Gain4:
		return 4
	case Gain8:
		return 8
	}
	return 0
}

// Valid reports whether p is one of the four gain settings.
func (p PGA) Valid() bool { return p.Multiplier() != 0 }

func (p PGA) String() string {
	if !p.Valid() {
		return fmt.Sprintf("PGA(%d)", uint8(p))
	}
	return fmt.Sprintf("x%d", p.Multiplier())
}

// ParsePGA maps a gain multiplier (1, 2, 4, 8) to its PGA code.
func ParsePGA(gain int) (PGA, error) {
	switch gain {
	case 1:
		return Gain1, nil
	case 2:
		return Gain2, nil
	case 4:
		return Gain4, nil
	case 8:
		return Gain8, nil
	}
	return 0, fmt.Errorf("%w: gain %d", ErrInvalidPGA, gain)
}

// Register is the chip configuration byte.
//
//	bit 7    ST/BSY (ADS1100) or ST/DRDY (ADS1110)
//	bit 4    SC: 0 continuous, 1 single conversion
//	bit 3-2  DR: data rate code
//	bit 1-0  PGA
//
// All setters return a modified copy; none of them touch the bus.
type Register uint8

const (
	regST    Register = 0x80
	regSC    Register = 0x10
	regRate  Register = 0x0C
	regPGA   Register = 0x03
	rateBits          = 2
)

// DefaultRegister is the power-on and post-reset value of both ADS1100 and ADS1110:
// ST set, continuous, slowest rate, gain 1.
const DefaultRegister Register = 0x8C

// Rate returns the 2-bit data rate code.
func (r Register) Rate() uint8 { return uint8(r&regRate) >> rateBits }

// PGA returns the gain code.
func (r Register) PGA() PGA { return PGA(r & regPGA) }

// Continuous reports whether continuous conversion is selected.
func (r Register) Continuous() bool { return r&regSC == 0 }

// Single reports whether single conversion is selected.
func (r Register) Single() bool { return !r.Continuous() }

// ST returns the raw ST bit. Its meaning on read depends on the chip variant.
func (r Register) ST() bool { return r&regST != 0 }

// WithRate returns r with the data rate code replaced. Only the low 2 bits of rate are used.
func (r Register) WithRate(rate uint8) Register {
	return r&^regRate | Register(rate&0x03)<<rateBits
}

// WithPGA returns r with the gain code replaced.
func (r Register) WithPGA(p PGA) Register {
	return r&^regPGA | Register(p)&regPGA
}

// WithContinuous returns r in continuous (true) or single (false) conversion mode.
func (r Register) WithContinuous(enable bool) Register {
	if enable {
		return r &^ regSC
	}
	return r | regSC
}

// WithSingle returns r in single conversion mode.
func (r Register) WithSingle() Register { return r.WithContinuous(false) }

// WithST returns r with the ST bit set or cleared.
// Writing ST=1 in single mode starts a conversion.
func (r Register) WithST(b bool) Register {
	if b {
		return r | regST
	}
	return r &^ regST
}

func (r Register) String() string {
	mode := "continuous"
	if r.Single() {
		mode = "single"
	}
	return fmt.Sprintf("0x%02X(rate=%d pga=%v %s st=%t)", uint8(r), r.Rate(), r.PGA(), mode, r.ST())
}
