package session

import (
	"time"
)

// Timed is implemented by keys that carry the Clock slot they were created in.
type Timed interface {
	T() int64
}

// Clock counts elapsed slots of a fixed duration since Init.
type Clock struct {
	t0   time.Time
	step time.Duration
}

// Init starts the Clock with slots lasting step.
// It errors if step <= 0
func (self *Clock) Init(step time.Duration) error {
	if step <= 0 {
		return newError(Error, "invalid clock step %s", step)
	}
	self.step = step
	self.t0 = time.Now()

	return nil
}

// Step returns the slot duration.
func (self Clock) Step() time.Duration {
	return self.step
}

// T returns the index of the current slot.
func (self Clock) T() int64 {
	return int64(time.Since(self.t0) / self.step)
}

var _ Timed = Clock{}
