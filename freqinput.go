package io22d08

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hubertat/io22d08/board"
	"github.com/hubertat/io22d08/drivers"
	"github.com/hubertat/io22d08/freqswitch"
)

// Threshold defaults put the switching band at 5-20 Hz and classify
// anything slower than 1 Hz as stopped.
const defaultLowerPeriod = 50 * time.Millisecond
const defaultUpperPeriod = 200 * time.Millisecond
const defaultStoppedPeriod = time.Second

const edgePollInterval = 500 * time.Microsecond
const statePollInterval = time.Millisecond

// FreqInput converts a pulse train on an input pin into a relay state:
// frequency above the band switches the relay on, below the band or no
// signal switches it off. A producer goroutine started by StartSampling
// stands in for the edge interrupt; Sync evaluates the switch on the
// kit cadence.
type FreqInput struct {
	Name       string
	DriverName string
	InPin      uint16
	Relay      uint8

	// Periods, not frequencies: Lower < Upper < Stopped.
	LowerPeriod   string
	UpperPeriod   string
	StoppedPeriod string

	board *board.Board
	mask  uint8
	input drivers.DigitalInput
	sw    *freqswitch.Switch
}

func (fi *FreqInput) GetDriverName() string {
	return fi.DriverName
}

func parsePeriod(value string, fallback time.Duration) (time.Duration, error) {
	if len(value) == 0 {
		return fallback, nil
	}
	return time.ParseDuration(value)
}

func (fi *FreqInput) Init(driver drivers.IoDriver, b *board.Board) error {
	if !strings.EqualFold(driver.String(), fi.DriverName) {
		return errors.Errorf("freq input %s: mismatched or incorrect driver", fi.Name)
	}
	if !driver.IsReady() {
		return errors.Errorf("freq input %s: driver not ready", fi.Name)
	}
	if fi.Relay < 1 || fi.Relay > board.NumRelays {
		return errors.Errorf("freq input %s: relay number %d out of range (1-%d)", fi.Name, fi.Relay, board.NumRelays)
	}

	fi.board = b
	fi.mask = board.RelayNumToMask(fi.Relay)

	var err error
	fi.input, err = driver.GetInput(fi.InPin)
	if err != nil {
		return errors.Wrapf(err, "freq input %s failed on getting input", fi.Name)
	}

	thresholds := freqswitch.Thresholds{}
	thresholds.Lower, err = parsePeriod(fi.LowerPeriod, defaultLowerPeriod)
	if err != nil {
		return errors.Wrapf(err, "freq input %s: bad LowerPeriod", fi.Name)
	}
	thresholds.Upper, err = parsePeriod(fi.UpperPeriod, defaultUpperPeriod)
	if err != nil {
		return errors.Wrapf(err, "freq input %s: bad UpperPeriod", fi.Name)
	}
	thresholds.Stopped, err = parsePeriod(fi.StoppedPeriod, defaultStoppedPeriod)
	if err != nil {
		return errors.Wrapf(err, "freq input %s: bad StoppedPeriod", fi.Name)
	}

	fi.sw, err = freqswitch.New(thresholds)
	if err != nil {
		return errors.Wrapf(err, "freq input %s", fi.Name)
	}

	return nil
}

// StartSampling launches the edge producer goroutine. Inputs with a
// hardware edge latch are polled for latched edges; others fall back
// to rising-transition detection on raw state reads, which caps the
// measurable frequency at the polling rate.
func (fi *FreqInput) StartSampling(ctx context.Context) {
	poller, canLatch := fi.input.(drivers.EdgePoller)
	if canLatch {
		if err := poller.StartEdgeDetect(); err != nil {
			canLatch = false
		}
	}

	go func() {
		if canLatch {
			defer poller.StopEdgeDetect()
			for ctx.Err() == nil {
				if poller.EdgeDetected() {
					fi.sw.Sample(time.Now())
				}
				time.Sleep(edgePollInterval)
			}
			return
		}

		previous := false
		for ctx.Err() == nil {
			state, err := fi.input.GetState()
			if err == nil && state && !previous {
				fi.sw.Sample(time.Now())
			}
			if err == nil {
				previous = state
			}
			time.Sleep(statePollInterval)
		}
	}()
}

// Sync evaluates the switch and maps it onto the relay: High means on,
// Low and Stopped mean off.
func (fi *FreqInput) Sync() error {
	state := fi.sw.Tick(time.Now())

	if state == freqswitch.High {
		fi.board.RelaySet(fi.mask, board.RelayOn)
	} else {
		fi.board.RelaySet(fi.mask, board.RelayOff)
	}

	return nil
}

// State returns the switch state from the last Sync.
func (fi *FreqInput) State() freqswitch.State {
	return fi.sw.State()
}

// Period returns the smoothed period between input edges.
func (fi *FreqInput) Period() time.Duration {
	return fi.sw.Period()
}
