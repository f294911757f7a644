package application

import "time"

// SetNow replaces the scheduler clock.
func (s *ResetScheduler) SetNow(now func() time.Time) { s.now = now }

// SetNow replaces the recorder clock.
func (u *UsageRecorder) SetNow(now func() time.Time) { u.now = now }

// SetNow replaces the clocks of the pool's reset scheduler and usage recorder.
func (p *Pool) SetNow(now func() time.Time) {
	p.scheduler.now = now
	p.recorder.now = now
}
