package ads11xx

import "github.com/chewxy/math32"

// Data is one measurement together with the settings needed to convert it.
type Data struct {
	Raw    int16   // signed output code
	Rate   uint8   // data rate code (meaning depends on the variant)
	PGA    PGA
	VDD    float32 // reference voltage (mV)
	Factor float32 // correction factor, e.g. an input voltage divider ratio
}

// DifferentialValue returns the signed output code.
func (d Data) DifferentialValue() int16 { return d.Raw }

// decodeRaw converts the big-endian conversion register to a signed code.
func decodeRaw(b []byte) int16 {
	return int16(uint16(b[0])<<8 | uint16(b[1]))
}

// DifferentialVoltage returns the differential input voltage in mV.
// It returns NaN if the record carries an invalid rate, gain or factor.
func (d Data) DifferentialVoltage() float32 {
	lowest := minCode(d.Rate)
	gain := d.PGA.Multiplier()
	if lowest == 0 || gain == 0 || d.VDD == 0 || d.Factor == 0 {
		return math32.NaN()
	}
	return float32(d.DifferentialValue()) / (-float32(lowest) / d.VDD * float32(gain)) / d.Factor
}

// minCode returns the most negative output code for a data rate code.
// Slower rates resolve more bits.
func minCode(rate uint8) int32 {
	switch rate {
	case 0:
		return -2048
	case 1:
		return -8192
	case 2:
		return -16384
	case 3:
		return -32768
	}
	return 0
}
