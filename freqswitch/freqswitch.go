// Package freqswitch converts a pulse train on a digital input into a
// three-state switch (Stopped/Low/High) by measuring the period
// between rising edges.
//
// Period measurement is the right tool for the ~1-120 Hz band this
// targets: pulse counting loses resolution at the low end, while at
// the high end the exponential smoothing soaks up jitter. Signals
// slower than the stopped threshold are classified Stopped -- "no
// signal" is a first-class state here, not an error.
//
// Concurrency contract: exactly one producer calls Sample (typically a
// goroutine servicing edge interrupts) and exactly one consumer calls
// Tick and State. The handoff runs over atomic int64 fields, so the
// consumer never observes torn values; Sample is lock-free and runs in
// constant time.
package freqswitch

import (
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// State of the switch.
type State int

const (
	// Stopped means no edges within the stopped threshold, or a
	// measured period beyond it: the signal is absent or too slow to
	// measure meaningfully (below ~2 Hz with the default thresholds).
	Stopped State = iota
	// Low frequency: period above the upper threshold.
	Low
	// High frequency: period below the lower threshold.
	High
)

func (s State) String() string {
	switch s {
	case Low:
		return "low"
	case High:
		return "high"
	default:
		return "stopped"
	}
}

// Smoothing weight for new samples is 1 / 2^smoothingShift.
const smoothingShift = 2

// Thresholds are periods, not frequencies: Lower period means higher
// frequency. Lower < Upper < Stopped. The band between Lower and Upper
// is the hysteresis dead band, no transition happens inside it.
type Thresholds struct {
	Lower   time.Duration
	Upper   time.Duration
	Stopped time.Duration
}

type Switch struct {
	thresholds Thresholds

	// Written only by the producer (Sample), read by the consumer.
	lastEdge    atomic.Int64 // ns timestamp of last rising edge, 0 = not armed
	accumulator atomic.Int64 // smoothing accumulator, ns
	smoothed    atomic.Int64 // accumulator >> smoothingShift, ns

	// Owned by the consumer (Tick).
	state State
}

func New(thresholds Thresholds) (*Switch, error) {
	if thresholds.Lower <= 0 {
		return nil, errors.Errorf("lower threshold must be positive, got %v", thresholds.Lower)
	}
	if thresholds.Lower >= thresholds.Upper || thresholds.Upper >= thresholds.Stopped {
		return nil, errors.Errorf("thresholds must satisfy lower < upper < stopped, got %v", thresholds)
	}

	return &Switch{thresholds: thresholds}, nil
}

// Sample records a rising edge. Producer side: call from the edge
// servicing goroutine only. No locks, no floating point, bounded time.
//
// The very first edge only arms the timestamp; smoothing starts with
// the second edge, once a real period exists.
func (s *Switch) Sample(now time.Time) {
	nowNs := now.UnixNano()

	last := s.lastEdge.Load()
	if last == 0 {
		s.lastEdge.Store(nowNs)
		return
	}

	delta := nowNs - last
	accumulator := s.accumulator.Load() + delta - s.smoothed.Load()
	s.accumulator.Store(accumulator)
	s.smoothed.Store(accumulator >> smoothingShift)
	s.lastEdge.Store(nowNs)
}

// Period returns the smoothed period between edges.
func (s *Switch) Period() time.Duration {
	return time.Duration(s.smoothed.Load())
}

// State returns the state computed by the last Tick. Consumer side.
func (s *Switch) State() State {
	return s.state
}

// Tick evaluates the switch state and returns it. Consumer side: call
// periodically, never from the edge producer.
//
// Edge silence longer than the stopped threshold forces Stopped
// unconditionally. Otherwise the state moves through a hysteresis
// cycle: Low and High swap only when the period crosses the lower or
// upper threshold, and the dead band between the two keeps the switch
// from chattering around a single boundary.
func (s *Switch) Tick(now time.Time) State {
	last := s.lastEdge.Load()
	if last == 0 || now.UnixNano()-last > int64(s.thresholds.Stopped) {
		s.state = Stopped
		return s.state
	}

	period := time.Duration(s.smoothed.Load())

	switch s.state {
	case Stopped:
		if period < s.thresholds.Stopped {
			if period > s.thresholds.Upper {
				s.state = Low
			} else {
				s.state = High
			}
		}
	case Low:
		if period > s.thresholds.Stopped {
			s.state = Stopped
		} else if period < s.thresholds.Lower {
			s.state = High
		}
	case High:
		if period > s.thresholds.Stopped {
			s.state = Stopped
		} else if period > s.thresholds.Upper {
			s.state = Low
		}
	}

	return s.state
}
