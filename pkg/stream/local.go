package stream

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"tinygo.org/x/drivers"

	"github.com/itohio/anadig/pkg/ads11xx"
)

// Local runs the converter driver on a bus owned by this process. A single goroutine
// drives the device: it calls Update every tick and forwards every stored sample.
type Local struct {
	bus     drivers.I2C
	dev     *ads11xx.Device
	cfg     ads11xx.Config
	tick    time.Duration
	bufSize int

	samples   chan RawSample
	pending   []ads11xx.Data
	modes     chan modeRequest
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	connected bool
}

type modeRequest struct {
	single bool
	err    chan error
}

// NewLocal creates a source for the converter dev on bus. cfg is applied on Connect.
func NewLocal(bus drivers.I2C, dev *ads11xx.Device, cfg ads11xx.Config, tick time.Duration, bufSize int) *Local {
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Local{
		bus:     bus,
		dev:     dev,
		cfg:     cfg,
		tick:    tick,
		bufSize: bufSize,
		samples: make(chan RawSample, bufSize),
		modes:   make(chan modeRequest),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Bus returns the bus the converter is on, so other chips can share it.
func (l *Local) Bus() drivers.I2C { return l.bus }

// Connect configures the converter and starts sampling.
func (l *Local) Connect() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.connected {
		return fmt.Errorf("already connected")
	}
	if err := l.dev.Begin(l.cfg); err != nil {
		return fmt.Errorf("failed to start converter: %w", err)
	}

	l.connected = true
	go l.run(!l.cfg.StartPeriodic)

	return nil
}

// Close stops sampling. The converter is left in single conversion mode and the bus
// is closed if it can be.
func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.connected {
		return nil
	}

	l.cancel()
	<-l.done
	l.connected = false
	close(l.samples)

	if c, ok := l.bus.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to close bus: %w", err)
		}
	}

	return nil
}

// Samples returns the channel for reading samples.
func (l *Local) Samples() <-chan RawSample {
	return l.samples
}

// SetSingleShot switches the sampling mode. It waits until the sampling goroutine applied it.
func (l *Local) SetSingleShot(single bool) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.connected {
		return fmt.Errorf("not connected")
	}

	req := modeRequest{single: single, err: make(chan error, 1)}
	select {
	case l.modes <- req:
	case <-l.ctx.Done():
		return l.ctx.Err()
	}
	return <-req.err
}

// IsConnected returns whether the device is currently connected.
func (l *Local) IsConnected() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.connected
}

func (l *Local) run(single bool) {
	defer close(l.done)
	defer func() {
		if l.dev.InPeriodic() {
			if err := l.dev.StopPeriodic(); err != nil {
				log.Printf("Failed to stop periodic measurement: %v", err)
			}
		}
	}()

	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()

	for {
		select {
		case <-l.ctx.Done():
			return
		case req := <-l.modes:
			req.err <- l.setMode(req.single)
			single = !l.dev.InPeriodic()
		case <-ticker.C:
			if single {
				l.measureSingle()
			} else {
				l.update()
			}
		}
	}
}

func (l *Local) setMode(single bool) error {
	switch {
	case single && l.dev.InPeriodic():
		return l.dev.StopPeriodic()
	case !single && !l.dev.InPeriodic():
		return l.dev.StartPeriodic(l.cfg.Rate, l.cfg.PGA)
	}
	return nil
}

func (l *Local) update() {
	l.dev.Update(false)
	if l.dev.Empty() {
		return
	}
	l.pending = l.dev.Samples(l.pending[:0])
	l.dev.Flush()
	for _, d := range l.pending {
		l.publish(d)
	}
}

func (l *Local) measureSingle() {
	d, err := l.dev.MeasureSingleshot(l.cfg.Rate, l.cfg.PGA)
	if err != nil {
		log.Printf("Single shot measurement failed: %v", err)
		return
	}
	l.publish(d)
}

func (l *Local) publish(d ads11xx.Data) {
	sample := RawSample{
		Timestamp:  time.Now(),
		Raw:        d.DifferentialValue(),
		Millivolts: d.DifferentialVoltage(),
	}
	select {
	case l.samples <- sample:
	case <-l.ctx.Done():
	default:
		log.Printf("Samples channel full, dropping sample")
	}
}
