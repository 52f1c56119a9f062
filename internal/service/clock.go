package service

import "time"

// clock is the time source of a service. Readings are UTC and truncated to
// microseconds so every supported database stores and compares them exactly.
type clock func() time.Time

func (c clock) now() time.Time {
	if c == nil {
		c = time.Now
	}
	return c().UTC().Truncate(time.Microsecond)
}
