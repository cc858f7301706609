package ads11xx

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestDecodeRaw(t *testing.T) {
	assert.Equal(t, int16(0x1234), decodeRaw([]byte{0x12, 0x34}))
	assert.Equal(t, int16(-1), decodeRaw([]byte{0xFF, 0xFF}))
	assert.Equal(t, int16(-32768), decodeRaw([]byte{0x80, 0x00}))
}

func TestDifferentialVoltage(t *testing.T) {
	tests := []struct {
		name string
		data Data
		want float32
	}{
		{"zero", Data{Raw: 0, Rate: 3, PGA: Gain1, VDD: 2048, Factor: 1}, 0},
		{"16 bit", Data{Raw: 16384, Rate: 3, PGA: Gain1, VDD: 2048, Factor: 1}, 1024},
		{"12 bit", Data{Raw: 1024, Rate: 0, PGA: Gain1, VDD: 2048, Factor: 1}, 1024},
		{"gain", Data{Raw: 16384, Rate: 3, PGA: Gain2, VDD: 2048, Factor: 1}, 512},
		{"negative", Data{Raw: -8192, Rate: 1, PGA: Gain1, VDD: 3300, Factor: 1}, -3300},
		{"factor", Data{Raw: 4096, Rate: 2, PGA: Gain1, VDD: 3300, Factor: 0.25}, 3300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.data.DifferentialVoltage(), 1e-3)
		})
	}
}

func TestDifferentialVoltageInvalid(t *testing.T) {
	assert.True(t, math32.IsNaN(Data{Raw: 1, Rate: 4, PGA: Gain1, VDD: 2048, Factor: 1}.DifferentialVoltage()))
	assert.True(t, math32.IsNaN(Data{Raw: 1, Rate: 0, PGA: 7, VDD: 2048, Factor: 1}.DifferentialVoltage()))
	assert.True(t, math32.IsNaN(Data{Raw: 1, Rate: 0, PGA: Gain1, VDD: 2048}.DifferentialVoltage()))
}
