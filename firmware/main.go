//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"strconv"
	"time"

	"github.com/itohio/anadig/pkg/ads1110"
	"github.com/itohio/anadig/pkg/ads11xx"
)

var (
	i2c  = machine.I2C0
	uart = machine.UART0

	adc      ads1110.Device
	sampling ads1110.Sampling
	gain     ads11xx.PGA

	singleShot bool

	// Timing
	lastUpdate time.Time

	// Output line buffer
	line [48]byte
)

func main() {
	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	if err := i2c.Configure(machine.I2CConfig{
		Frequency: I2C_FREQUENCY,
		SDA:       PIN_SDA,
		SCL:       PIN_SCL,
	}); err != nil {
		fail("i2c", err)
	}

	var err error
	if sampling, err = ads1110.ParseSampling(ADC_SAMPLING); err != nil {
		fail("sampling", err)
	}
	if gain, err = ads11xx.ParsePGA(ADC_GAIN); err != nil {
		fail("gain", err)
	}

	adc = ads1110.New(i2c)
	cfg := ads1110.DefaultConfig()
	cfg.Sampling = sampling
	cfg.PGA = gain
	cfg.StoredSize = STORED_SAMPLES
	for err := adc.Begin(cfg); err != nil; err = adc.Begin(cfg) {
		comment("begin", err)
		time.Sleep(time.Second)
	}

	lastUpdate = time.Now()

	for {
		now := time.Now()

		// Check for serial input (non-blocking)
		processSerial()

		if now.Sub(lastUpdate) >= UPDATE_INTERVAL_MS*time.Millisecond {
			lastUpdate = now
			if singleShot {
				measureSingle()
			} else {
				update()
			}
		}

		time.Sleep(100 * time.Microsecond)
	}
}

func update() {
	adc.Update(false)
	for !adc.Empty() {
		d, _ := adc.Oldest()
		adc.Discard()
		output(d)
	}
}

func measureSingle() {
	d, err := adc.MeasureSingleshot(sampling, gain)
	if err != nil {
		comment("single", err)
		return
	}
	output(d)
}

// output writes "unix_micros,raw,millivolts\n".
func output(d ads11xx.Data) {
	b := line[:0]
	b = strconv.AppendInt(b, time.Now().UnixMicro(), 10)
	b = append(b, ',')
	b = strconv.AppendInt(b, int64(d.DifferentialValue()), 10)
	b = append(b, ',')
	b = strconv.AppendFloat(b, float64(d.DifferentialVoltage()), 'f', 2, 32)
	b = append(b, '\n')
	uart.Write(b)
}

// comment writes a line the host skips.
func comment(what string, err error) {
	uart.Write([]byte("# " + what + ": " + err.Error() + "\n"))
}

func fail(what string, err error) {
	for {
		comment(what, err)
		time.Sleep(time.Second)
	}
}

func processSerial() {
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		switch data {
		case 's':
			setSingleShot(true)
		case 'p':
			setSingleShot(false)
		}
		// Newlines, whitespace and unknown commands are ignored
	}
}

func setSingleShot(single bool) {
	if single == singleShot {
		return
	}

	var err error
	if single {
		err = adc.StopPeriodic()
	} else {
		err = adc.StartPeriodic(sampling, gain)
	}
	if err != nil {
		comment("mode", err)
		return
	}
	singleShot = single
}
