package ads11xx

import (
	"errors"

	"github.com/itohio/anadig/pkg/ring"
)

// Errors returned by the driver.
var (
	// ErrPeriodicRunning is returned by operations that require periodic measurement to be stopped.
	ErrPeriodicRunning = errors.New("ads11xx: periodic measurement is running")
	// ErrNotPeriodic is returned when stopping a measurement that is not running.
	ErrNotPeriodic = errors.New("ads11xx: periodic measurement is not running")
	// ErrNotReady is returned while a conversion is still in progress.
	ErrNotReady = errors.New("ads11xx: not ready")
	// ErrTimeout is returned when polling for a conversion or a reset exceeds its deadline.
	ErrTimeout = errors.New("ads11xx: timeout")
	// ErrNotDetected is returned when the device does not report its default configuration after reset.
	ErrNotDetected = errors.New("ads11xx: device not detected")
	// ErrInvalidRate is returned for a data rate code outside of the variant table.
	ErrInvalidRate = errors.New("ads11xx: invalid data rate")
	// ErrInvalidPGA is returned for an unknown gain code.
	ErrInvalidPGA = errors.New("ads11xx: invalid gain")
	// ErrInvalidCapacity is returned when the sample buffer size is not positive.
	ErrInvalidCapacity = ring.ErrInvalidCapacity
)
