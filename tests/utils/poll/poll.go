// SPDX-License-Identifier: Apache-2.0

// Package poll implements the small wait-for-condition loops the live
// cluster tests rely on. Volume binding and object deletion are both
// asynchronous; tests probe until the condition holds or the context
// deadline expires.
package poll

import (
	"context"
	"errors"
	"time"
)

var errCondUnset = errors.New("probe condition is unset")

// Cond reports whether the awaited condition holds. A non-nil error
// aborts polling immediately.
type Cond func() (bool, error)

// Probe pairs a condition with the interval between attempts.
type Probe struct {
	Cond     Cond
	Interval time.Duration
}

func (p *Probe) interval() time.Duration {
	if p.Interval == 0 {
		return 200 * time.Millisecond
	}
	return p.Interval
}

// TryUntil probes until the condition holds, the condition errors, or
// the context is done. The context error is returned on timeout.
func TryUntil(ctx context.Context, p *Probe) error {
	if p.Cond == nil {
		return errCondUnset
	}
	for {
		ok, err := p.Cond()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		time.Sleep(p.interval())
	}
}
