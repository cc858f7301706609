// Package sim simulates an I2C bus with ADS1100/ADS1110 converters and MCP4725/GP8413
// DACs attached. It backs the mock mode of the host tool and the driver tests.
//
// Chips run on a clock.Clock; with clock.Fake the whole bus is deterministic.
package sim

import (
	"errors"
	"fmt"
	"sync"

	"tinygo.org/x/drivers"
)

// ErrNack is returned for transfers nobody acknowledges.
var ErrNack = errors.New("sim: no acknowledge")

const (
	generalCallAddress = 0x00
	generalCallReset   = 0x06
)

// Target is a chip attached to the bus.
type Target interface {
	// Tx performs one transfer addressed to the chip: write w, then read into r.
	Tx(w, r []byte) error
	// Reset is invoked on a general call reset.
	Reset()
}

// Bus routes transfers to attached chips by address.
type Bus struct {
	mu        sync.Mutex
	targets   map[uint16]Target
	transfers int
}

var _ drivers.I2C = (*Bus)(nil)

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{targets: make(map[uint16]Target)}
}

// Attach puts t on the bus at addr, replacing any previous chip there.
func (b *Bus) Attach(addr uint16, t Target) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.targets[addr] = t
}

// Tx implements drivers.I2C.
//
// A general call reset resets every chip and, like real hardware, reports no acknowledge.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transfers++

	if addr == generalCallAddress {
		if len(w) == 1 && w[0] == generalCallReset {
			for _, t := range b.targets {
				t.Reset()
			}
		}
		return fmt.Errorf("%w: general call", ErrNack)
	}

	t, ok := b.targets[addr]
	if !ok {
		return fmt.Errorf("%w: address 0x%02X", ErrNack, addr)
	}
	return t.Tx(w, r)
}

// Transfers returns the number of transfers seen so far, general calls included.
func (b *Bus) Transfers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.transfers
}
