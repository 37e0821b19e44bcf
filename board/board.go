// Package board drives the IO22D08 relay/display board: 8 relays and a
// 4 digit 7-segment display behind three daisy-chained 74HC595 shift
// registers on a single 3-wire bus, plus an output-enable line for the
// relay driver.
//
// All state lives in a Board value, there is no package level state.
// Display and relay writes only touch the buffers; Refresh clocks the
// buffered state out to the hardware and must be called continuously
// (the display is multiplexed, one digit lit at a time).
package board

import (
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/hubertat/io22d08/drivers"
)

// Default BCM pin numbers for a Raspberry Pi header wired to the board
// connector, overridable from config.
const (
	defaultDataPin   uint16 = 10
	defaultClockPin  uint16 = 11
	defaultLatchPin  uint16 = 9
	defaultEnablePin uint16 = 8
)

type Board struct {
	DriverName string

	// Bus lines: data feeds the first register in the chain, clock and
	// latch are shared by all three. EnablePin gates the relay driver
	// outputs (active low) independently of the serial frame.
	DataPin   uint16
	ClockPin  uint16
	LatchPin  uint16
	EnablePin uint16

	displayBuffer [NumDisplayDigits]uint16
	relayBuffer   uint8
	displayColon  bool

	data, clock, latch, enable drivers.DigitalOutput
	driver                     drivers.IoDriver
	ready                      bool

	lock sync.Mutex
}

// Pins returns the output pins the board needs from its driver, for
// driver setup.
func (b *Board) Pins() []uint16 {
	b.applyPinDefaults()
	return []uint16{b.DataPin, b.ClockPin, b.LatchPin, b.EnablePin}
}

func (b *Board) applyPinDefaults() {
	if b.DataPin == 0 && b.ClockPin == 0 && b.LatchPin == 0 && b.EnablePin == 0 {
		b.DataPin = defaultDataPin
		b.ClockPin = defaultClockPin
		b.LatchPin = defaultLatchPin
		b.EnablePin = defaultEnablePin
	}
}

func (b *Board) GetDriverName() string {
	return b.DriverName
}

// Init wires the board to its pin driver. Relays start disabled; call
// EnableRelays once the relay buffer holds the intended state.
func (b *Board) Init(driver drivers.IoDriver) error {
	if !strings.EqualFold(driver.String(), b.DriverName) {
		return errors.Errorf("board init failed, mismatched or incorrect driver (%s)", driver)
	}

	if !driver.IsReady() {
		return errors.New("board init failed, driver not ready")
	}

	b.applyPinDefaults()
	b.driver = driver

	var err error
	b.data, err = driver.GetOutput(b.DataPin)
	if err != nil {
		return errors.Wrap(err, "board init failed on data pin")
	}
	b.clock, err = driver.GetOutput(b.ClockPin)
	if err != nil {
		return errors.Wrap(err, "board init failed on clock pin")
	}
	b.latch, err = driver.GetOutput(b.LatchPin)
	if err != nil {
		return errors.Wrap(err, "board init failed on latch pin")
	}
	b.enable, err = driver.GetOutput(b.EnablePin)
	if err != nil {
		return errors.Wrap(err, "board init failed on enable pin")
	}

	err = b.DisableRelays()
	if err != nil {
		return errors.Wrap(err, "board init failed disabling relays")
	}

	b.ready = true
	return nil
}

func (b *Board) IsReady() bool {
	return b.ready
}

// EnableRelays energizes the relay driver outputs (OE low).
func (b *Board) EnableRelays() error {
	return b.enable.Set(false)
}

// DisableRelays cuts all relay driver outputs at once (OE high),
// without touching the relay buffer. Re-enabling restores the
// previously buffered state, no reserialization needed.
func (b *Board) DisableRelays() error {
	return b.enable.Set(true)
}

// Refresh transmits the complete board state: for each digit word it
// pulls latch low, shifts out the word's low byte (U4, furthest down
// the chain), the high byte (U3) and the relay buffer (U5, nearest the
// data pin), then latches. The relay byte rides along on every digit
// frame because all three registers share the chain and one latch
// pulse commits them together.
//
// Must be called on a fast cadence; each call lights each digit once.
func (b *Board) Refresh() error {
	b.lock.Lock()
	defer b.lock.Unlock()

	for _, word := range b.displayBuffer {
		err := b.latch.Set(false)
		if err != nil {
			return errors.Wrap(err, "refresh failed on latch")
		}

		err = b.shiftOut(uint8(word))
		if err == nil {
			err = b.shiftOut(uint8(word >> 8))
		}
		if err == nil {
			err = b.shiftOut(b.relayBuffer)
		}
		if err != nil {
			return errors.Wrap(err, "refresh failed shifting out")
		}

		err = b.latch.Set(true)
		if err != nil {
			return errors.Wrap(err, "refresh failed on latch")
		}
	}

	return nil
}

// shiftOut clocks one byte onto the bus, MSB first.
func (b *Board) shiftOut(value uint8) error {
	for bit := 7; bit >= 0; bit-- {
		err := b.data.Set(value&(1<<uint(bit)) != 0)
		if err != nil {
			return err
		}
		err = b.clock.Set(true)
		if err != nil {
			return err
		}
		err = b.clock.Set(false)
		if err != nil {
			return err
		}
	}

	return nil
}

// Close turns everything off: relays disabled and buffers cleared.
func (b *Board) Close() error {
	b.RelaySet(RelaysAll, RelayOff)
	b.ready = false

	if b.enable == nil {
		return nil
	}
	return b.DisableRelays()
}
