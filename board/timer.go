package board

import (
	"math"
	"time"
)

// NoActiveTimer is returned by Remaining while the timer is idle.
// Callers use it as the "nothing scheduled" sentinel when picking the
// soonest-expiring timer of a set.
const NoActiveTimer = time.Duration(math.MaxInt64)

// RelayTimer turns a relay group on and back off after a timeout, the
// classic staircase-light pattern this board is sold for. Timers are
// created once per channel with a caller-supplied channel number and
// live forever, Start and Stop only reset them.
//
// Tick drives the countdown and must be called from the sync loop.
// Multiple timers may target overlapping masks; the relay buffer then
// holds whatever the last Start/expiry wrote for the shared bits.
type RelayTimer struct {
	board   *Board
	channel int
	mask    uint8
	timeout time.Duration

	startedAt time.Time
	active    bool

	now func() time.Time
}

// NewRelayTimer creates an idle timer for the relays in mask. A zero
// mask yields a timer that counts but switches nothing, by
// construction of RelaySet.
func NewRelayTimer(b *Board, channel int, mask uint8, timeout time.Duration) *RelayTimer {
	return &RelayTimer{
		board:   b,
		channel: channel,
		mask:    mask,
		timeout: timeout,
		now:     time.Now,
	}
}

func (rt *RelayTimer) Channel() int {
	return rt.channel
}

func (rt *RelayTimer) Active() bool {
	return rt.active
}

// Start switches the relays on and (re)arms the countdown.
func (rt *RelayTimer) Start() {
	rt.startedAt = rt.now()
	rt.active = true
	rt.board.RelaySet(rt.mask, RelayOn)
}

// Tick expires the timer once the timeout has elapsed, switching the
// relays off. Does nothing while idle.
func (rt *RelayTimer) Tick() {
	if !rt.active {
		return
	}

	if rt.now().Sub(rt.startedAt) > rt.timeout {
		rt.active = false
		rt.board.RelaySet(rt.mask, RelayOff)
	}
}

// Stop switches the relays off immediately, regardless of elapsed time.
func (rt *RelayTimer) Stop() {
	rt.active = false
	rt.board.RelaySet(rt.mask, RelayOff)
}

// Remaining returns the time left until expiry, or NoActiveTimer while
// idle. The value is advisory: if the timeout elapsed since the last
// Tick the result can be momentarily negative. Active() is the
// authoritative state.
func (rt *RelayTimer) Remaining() time.Duration {
	if !rt.active {
		return NoActiveTimer
	}

	return rt.timeout - rt.now().Sub(rt.startedAt)
}
