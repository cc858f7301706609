// Package bus opens host I2C buses through periph.io.
package bus

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"
)

// FastMode is the I2C clock used by the DACs.
const FastMode = 400 * physic.KiloHertz

var initOnce = sync.OnceValue(func() error {
	_, err := host.Init()
	return err
})

// Host is an I2C bus of the host system. It satisfies drivers.I2C.
type Host struct {
	i2c.BusCloser
	name string
}

var _ drivers.I2C = (*Host)(nil)

// Open opens the named bus. An empty name selects the first bus found.
func Open(name string) (*Host, error) {
	if err := initOnce(); err != nil {
		return nil, fmt.Errorf("init host drivers: %w", err)
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open I2C bus %q: %w", name, err)
	}
	return &Host{BusCloser: b, name: b.String()}, nil
}

// Name returns the name the bus was registered with.
func (h *Host) Name() string { return h.name }

// List returns the names of the buses available on this host.
func List() ([]string, error) {
	if err := initOnce(); err != nil {
		return nil, fmt.Errorf("init host drivers: %w", err)
	}
	var names []string
	for _, ref := range i2creg.All() {
		names = append(names, ref.Name)
	}
	return names, nil
}
