// Package ads11xx implements the measurement engine shared by the ADS1100 and ADS1110
// 16-bit delta-sigma converters.
//
// The engine runs either idle or in periodic (continuous conversion) mode. In periodic
// mode the host calls Update on its own cadence; reads are throttled to the chip data
// rate and accepted samples are kept in a fixed-size ring buffer:
//
//	d := ads11xx.New(bus, ads1110.Variant)
//	if err := d.Begin(cfg); err != nil { ... }
//	for {
//		d.Update(false)
//		for !d.Empty() {
//			s, _ := d.Oldest()
//			d.Discard()
//			use(s.DifferentialVoltage())
//		}
//	}
//
// MeasureSingleshot performs one blocking conversion while the engine is idle.
//
// A Device is not safe for concurrent use.
package ads11xx

import (
	"fmt"
	"time"

	"github.com/chewxy/math32"
	"github.com/go-logr/logr"
	"tinygo.org/x/drivers"

	"github.com/itohio/anadig/pkg/clock"
	"github.com/itohio/anadig/pkg/ring"
)

// DefaultAddress is the factory I2C address of ADS1100A0 / ADS1110A0.
const DefaultAddress = 0x48

const (
	generalCallAddress = 0x00
	generalCallReset   = 0x06

	resetTimeout      = 100 * time.Millisecond
	singleshotTimeout = 100 * time.Millisecond
	pollDelay         = time.Millisecond

	defaultVDD = 2048 // mV
)

// Config holds the settings applied by Begin.
type Config struct {
	// StartPeriodic starts periodic measurement at Rate/PGA; otherwise the chip is
	// switched to single conversion mode.
	StartPeriodic bool
	Rate          uint8
	PGA           PGA
	// VDD is the supply voltage in mV. Ignored by variants with a fixed reference.
	VDD float32
	// Factor is the correction applied to voltages (input divider ratio etc). Zero means 1.
	Factor float32
	// StoredSize is the capacity of the sample buffer.
	StoredSize int
}

// Option configures a Device.
type Option func(*Device)

// WithAddress overrides DefaultAddress.
func WithAddress(addr uint16) Option {
	return func(d *Device) { d.Address = addr }
}

// WithClock sets the time source. Defaults to clock.System().
func WithClock(c clock.Clock) Option {
	return func(d *Device) { d.clock = c }
}

// WithLogger sets the logger. Defaults to logr.Discard().
func WithLogger(l logr.Logger) Option {
	return func(d *Device) { d.log = l }
}

// Device is an ADS11xx converter on an I2C bus.
type Device struct {
	bus     drivers.I2C
	Address uint16

	variant Variant
	clock   clock.Clock
	log     logr.Logger

	data     *ring.Buffer[Data]
	periodic bool
	interval time.Duration
	latest   time.Duration // time of the last accepted sample
	sampled  bool          // latest is valid
	updated  bool

	// settings attached to every record, refreshed on each register write
	pga    PGA
	rate   uint8
	vdd    float32
	factor float32

	buf [3]byte
}

// New creates a driver for one converter. It does not touch the bus.
func New(bus drivers.I2C, v Variant, opts ...Option) *Device {
	d := &Device{
		bus:     bus,
		Address: DefaultAddress,
		variant: v,
		clock:   clock.System(),
		log:     logr.Discard(),
		vdd:     defaultVDD,
		factor:  1,
	}
	if v.VDD > 0 {
		d.vdd = v.VDD
	}
	d.data, _ = ring.New[Data](1)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Begin allocates the sample buffer, resets and probes the device, then starts
// periodic measurement or switches to single conversion mode as configured.
func (d *Device) Begin(cfg Config) error {
	if cfg.StoredSize <= 0 {
		return fmt.Errorf("%w: stored size %d", ErrInvalidCapacity, cfg.StoredSize)
	}
	if cfg.StoredSize != d.data.Capacity() {
		if d.periodic {
			return ErrPeriodicRunning
		}
		data, err := ring.New[Data](cfg.StoredSize)
		if err != nil {
			return err
		}
		d.data = data
	}
	if d.variant.VDD == 0 && cfg.VDD > 0 {
		d.vdd = cfg.VDD
	}
	d.factor = 1
	if cfg.Factor != 0 {
		d.factor = cfg.Factor
	}

	// A failed reset shows up as a register mismatch below.
	_ = d.generalReset()

	reg, err := d.readRegister()
	if err != nil {
		d.log.Error(err, "cannot detect device", "variant", d.variant.Name)
		return fmt.Errorf("%w: %w", ErrNotDetected, err)
	}
	if reg != d.variant.DefaultRegister {
		d.log.Error(ErrNotDetected, "cannot detect device", "variant", d.variant.Name, "register", reg)
		return fmt.Errorf("%w: register %v", ErrNotDetected, reg)
	}
	// The chip is back in its power-on continuous mode.
	d.periodic = false
	d.pga = reg.PGA()
	d.rate = reg.Rate()

	if cfg.StartPeriodic {
		return d.StartPeriodic(cfg.Rate, cfg.PGA)
	}
	return d.stop()
}

// Update advances periodic measurement by one step. It reads a new sample when
// force is set or at least Interval has passed since the last accepted sample.
// Bus errors and not-ready results simply produce no sample; Updated reports
// whether this call stored one.
func (d *Device) Update(force bool) {
	d.updated = false
	if !d.periodic {
		return
	}

	now := d.clock.Now()
	if !force && d.sampled && now < d.latest+d.interval {
		return
	}

	raw, err := d.readIfReadyInPeriodic()
	if err != nil {
		d.log.V(2).Info("no sample", "reason", err)
		return
	}
	d.data.Push(d.record(raw))
	d.latest = now
	d.sampled = true
	d.updated = true
}

// Updated reports whether the last Update stored a new sample.
func (d *Device) Updated() bool { return d.updated }

// UpdatedAt returns the clock time of the last accepted sample.
func (d *Device) UpdatedAt() time.Duration { return d.latest }

// InPeriodic reports whether periodic measurement is running.
func (d *Device) InPeriodic() bool { return d.periodic }

// Interval returns the minimum time between periodic reads.
func (d *Device) Interval() time.Duration { return d.interval }

// Variant returns the chip description the driver was created with.
func (d *Device) Variant() Variant { return d.variant }

// StartPeriodic starts continuous conversion with the given rate code and gain.
func (d *Device) StartPeriodic(rate uint8, pga PGA) error {
	if d.periodic {
		d.log.V(1).Info("periodic measurements are running")
		return ErrPeriodicRunning
	}
	interval, err := d.variant.Interval(rate)
	if err != nil {
		return err
	}
	if !pga.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidPGA, pga)
	}
	reg, err := d.readRegister()
	if err != nil {
		return err
	}
	return d.startPeriodic(reg.WithRate(rate).WithPGA(pga), interval)
}

// StartPeriodicCurrent starts continuous conversion with the rate and gain currently
// configured on the device.
func (d *Device) StartPeriodicCurrent() error {
	if d.periodic {
		d.log.V(1).Info("periodic measurements are running")
		return ErrPeriodicRunning
	}
	reg, err := d.readRegister()
	if err != nil {
		return err
	}
	interval, err := d.variant.Interval(reg.Rate())
	if err != nil {
		return err
	}
	return d.startPeriodic(reg, interval)
}

func (d *Device) startPeriodic(reg Register, interval time.Duration) error {
	if err := d.writeRegister(reg.WithContinuous(true)); err != nil {
		return err
	}
	d.interval = interval
	d.sampled = false
	d.periodic = true
	return nil
}

// StopPeriodic stops continuous conversion by switching the chip to single mode.
// On error the engine stays periodic.
func (d *Device) StopPeriodic() error {
	if !d.periodic {
		return ErrNotPeriodic
	}
	return d.stop()
}

func (d *Device) stop() error {
	reg, err := d.readRegister()
	if err != nil {
		return err
	}
	if err := d.writeRegister(reg.WithSingle().WithST(false)); err != nil {
		return err
	}
	d.periodic = false
	return nil
}

// MeasureSingleshot runs one conversion with the given rate code and gain and waits
// for the result. It blocks for up to the larger of 100 ms and two sample periods.
// The device settings are overwritten.
func (d *Device) MeasureSingleshot(rate uint8, pga PGA) (Data, error) {
	if d.periodic {
		d.log.V(1).Info("periodic measurements are running")
		return Data{}, ErrPeriodicRunning
	}
	interval, err := d.variant.Interval(rate)
	if err != nil {
		return Data{}, err
	}
	if !pga.Valid() {
		return Data{}, fmt.Errorf("%w: %v", ErrInvalidPGA, pga)
	}
	reg, err := d.readRegister()
	if err != nil {
		return Data{}, err
	}
	return d.measureSingleshot(reg.WithRate(rate).WithPGA(pga), interval)
}

// MeasureSingleshotCurrent runs one conversion using the current device settings.
func (d *Device) MeasureSingleshotCurrent() (Data, error) {
	if d.periodic {
		d.log.V(1).Info("periodic measurements are running")
		return Data{}, ErrPeriodicRunning
	}
	reg, err := d.readRegister()
	if err != nil {
		return Data{}, err
	}
	interval, err := d.variant.Interval(reg.Rate())
	if err != nil {
		return Data{}, err
	}
	return d.measureSingleshot(reg, interval)
}

func (d *Device) measureSingleshot(reg Register, interval time.Duration) (Data, error) {
	if err := d.writeRegister(reg.WithSingle().WithST(true)); err != nil {
		return Data{}, err
	}

	timeout := max(singleshotTimeout, 2*interval)
	deadline := d.clock.Now() + timeout
	for {
		raw, err := d.readIfReady()
		if err == nil {
			return d.record(raw), nil
		}
		if d.clock.Now() >= deadline {
			return Data{}, fmt.Errorf("%w: single conversion after %v: %w", ErrTimeout, timeout, err)
		}
		d.clock.Sleep(pollDelay)
	}
}

// ReadPGA reads the gain from the device.
func (d *Device) ReadPGA() (PGA, error) {
	reg, err := d.readRegister()
	if err != nil {
		return 0, err
	}
	return reg.PGA(), nil
}

// WritePGA changes the gain. Fails while periodic measurement is running.
func (d *Device) WritePGA(pga PGA) error {
	if d.periodic {
		d.log.V(1).Info("periodic measurements are running")
		return ErrPeriodicRunning
	}
	if !pga.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidPGA, pga)
	}
	reg, err := d.readRegister()
	if err != nil {
		return err
	}
	return d.writeRegister(reg.WithPGA(pga).WithST(false))
}

// ReadRate reads the data rate code from the device.
func (d *Device) ReadRate() (uint8, error) {
	reg, err := d.readRegister()
	if err != nil {
		return 0, err
	}
	return reg.Rate(), nil
}

// WriteRate changes the data rate code. Fails while periodic measurement is running.
func (d *Device) WriteRate(rate uint8) error {
	if d.periodic {
		d.log.V(1).Info("periodic measurements are running")
		return ErrPeriodicRunning
	}
	if _, err := d.variant.Interval(rate); err != nil {
		return err
	}
	reg, err := d.readRegister()
	if err != nil {
		return err
	}
	return d.writeRegister(reg.WithRate(rate).WithST(false))
}

// GeneralReset resets the device with an I2C general call and waits until it reports
// its default configuration. The engine is then idle with the chip in single mode.
//
// The general call reaches every device on the bus that implements it.
func (d *Device) GeneralReset() error {
	if err := d.generalReset(); err != nil {
		return err
	}
	return d.stop()
}

func (d *Device) generalReset() error {
	// Nobody acknowledges a general call reset; the bus error is expected.
	_ = d.bus.Tx(generalCallAddress, []byte{generalCallReset}, nil)

	deadline := d.clock.Now() + resetTimeout
	for {
		reg, err := d.readRegister()
		if err == nil && reg == d.variant.DefaultRegister {
			return nil
		}
		if d.clock.Now() >= deadline {
			return fmt.Errorf("%w: general reset", ErrTimeout)
		}
		d.clock.Sleep(pollDelay)
	}
}

// Oldest returns the oldest stored sample. ok is false when no sample is stored.
func (d *Device) Oldest() (Data, bool) { return d.data.Oldest() }

// Latest returns the newest stored sample. ok is false when no sample is stored.
func (d *Device) Latest() (Data, bool) { return d.data.Latest() }

// Discard drops the oldest stored sample.
func (d *Device) Discard() { d.data.Discard() }

// Flush drops all stored samples.
func (d *Device) Flush() { d.data.Flush() }

// Available returns the number of stored samples.
func (d *Device) Available() int { return d.data.Available() }

// Capacity returns the sample buffer size.
func (d *Device) Capacity() int { return d.data.Capacity() }

// Empty reports whether no sample is stored.
func (d *Device) Empty() bool { return d.data.Empty() }

// Full reports whether the sample buffer is full.
func (d *Device) Full() bool { return d.data.Full() }

// Samples copies the stored samples, oldest first, into dst without consuming them.
func (d *Device) Samples(dst []Data) []Data { return d.data.Slice(dst) }

// DifferentialValue returns the code of the oldest sample, or 0 when empty.
func (d *Device) DifferentialValue() int16 {
	if s, ok := d.data.Oldest(); ok {
		return s.DifferentialValue()
	}
	return 0
}

// DifferentialVoltage returns the voltage (mV) of the oldest sample, or NaN when empty.
func (d *Device) DifferentialVoltage() float32 {
	if s, ok := d.data.Oldest(); ok {
		return s.DifferentialVoltage()
	}
	return math32.NaN()
}

func (d *Device) record(raw int16) Data {
	return Data{
		Raw:    raw,
		Rate:   d.rate,
		PGA:    d.pga,
		VDD:    d.vdd,
		Factor: d.factor,
	}
}

func (d *Device) readIfReadyInPeriodic() (int16, error) {
	if d.variant.PollReadyInPeriodic {
		return d.readIfReady()
	}
	return d.readMeasurement()
}

func (d *Device) readIfReady() (int16, error) {
	reg, err := d.readRegister()
	if err != nil {
		return 0, err
	}
	if !d.variant.Ready(reg) {
		return 0, ErrNotReady
	}
	return d.readMeasurement()
}

// readRegister reads output register and configuration; the configuration is the third byte.
func (d *Device) readRegister() (Register, error) {
	if err := d.bus.Tx(d.Address, nil, d.buf[:3]); err != nil {
		return 0, fmt.Errorf("read config: %w", err)
	}
	return Register(d.buf[2]), nil
}

func (d *Device) writeRegister(reg Register) error {
	d.buf[0] = byte(reg)
	if err := d.bus.Tx(d.Address, d.buf[:1], nil); err != nil {
		return fmt.Errorf("write config %v: %w", reg, err)
	}
	d.pga = reg.PGA()
	d.rate = reg.Rate()
	return nil
}

func (d *Device) readMeasurement() (int16, error) {
	if err := d.bus.Tx(d.Address, nil, d.buf[:2]); err != nil {
		return 0, fmt.Errorf("read measurement: %w", err)
	}
	return decodeRaw(d.buf[:2]), nil
}
