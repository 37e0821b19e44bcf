package io22d08

import (
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/brutella/hap/accessory"
	"github.com/pkg/errors"

	"github.com/hubertat/io22d08/board"
	"github.com/hubertat/io22d08/drivers"
	"github.com/hubertat/io22d08/mqtt"
)

// Channel is one relay output with optional delayed-off behavior:
// switching it on with DelayOff configured arms a countdown that
// switches it back off, the staircase-light pattern. Channels show up
// as HomeKit switches and react to push events from bound inputs.
type Channel struct {
	Name           string
	Relay          uint8
	DelayOff       string
	DisableHomekit bool

	ControlBy []ControllingDevice

	board    *board.Board
	mask     uint8
	timer    *board.RelayTimer
	delayOff time.Duration

	hk *accessory.Switch

	publisher     mqtt.Publisher
	stateTopic    string
	setTopic      string
	lastPublished bool
	everPublished bool

	lock sync.Mutex
}

// ControllingDevice points at an input pin whose push events drive
// this channel. Empty DriverName falls back to the board's driver.
type ControllingDevice struct {
	Pin        uint16
	DriverName string
}

func (ch *Channel) GetUniqueId() uint64 {
	hash := fnv.New64()
	hash.Write([]byte("Channel_" + ch.Name))
	return hash.Sum64()
}

func (ch *Channel) Init(b *board.Board) error {
	if ch.Relay < 1 || ch.Relay > board.NumRelays {
		return errors.Errorf("channel %s: relay number %d out of range (1-%d)", ch.Name, ch.Relay, board.NumRelays)
	}

	ch.board = b
	ch.mask = board.RelayNumToMask(ch.Relay)

	if len(ch.DelayOff) > 0 {
		var err error
		ch.delayOff, err = time.ParseDuration(ch.DelayOff)
		if err != nil {
			return errors.Wrapf(err, "channel %s: bad DelayOff", ch.Name)
		}
		if ch.delayOff <= 0 {
			return errors.Errorf("channel %s: DelayOff must be positive", ch.Name)
		}
		ch.timer = board.NewRelayTimer(b, int(ch.Relay), ch.mask, ch.delayOff)
	}

	if !ch.DisableHomekit {
		ch.hk = accessory.NewSwitch(accessory.Info{
			Name:         ch.Name,
			SerialNumber: fmt.Sprintf("channel:relay:%02d", ch.Relay),
		})
		ch.hk.Switch.On.OnValueRemoteUpdate(ch.SetValue)
	}

	return nil
}

func (ch *Channel) IsOn() bool {
	return ch.board.RelayGet(ch.mask) != 0
}

// SetValue switches the channel. With DelayOff configured, switching
// on arms (or re-arms) the countdown.
func (ch *Channel) SetValue(state bool) {
	ch.lock.Lock()
	defer ch.lock.Unlock()

	switch {
	case state && ch.timer != nil:
		ch.timer.Start()
	case state:
		ch.board.RelaySet(ch.mask, board.RelayOn)
	case ch.timer != nil:
		ch.timer.Stop()
	default:
		ch.board.RelaySet(ch.mask, board.RelayOff)
	}
}

func (ch *Channel) Toggle() {
	ch.SetValue(!ch.IsOn())
}

// Remaining returns the delayed-off countdown, or board.NoActiveTimer
// when none is running.
func (ch *Channel) Remaining() time.Duration {
	if ch.timer == nil {
		return board.NoActiveTimer
	}
	return ch.timer.Remaining()
}

// Sync drives the countdown and propagates relay state to HomeKit and
// MQTT. Called from the kit sync loop.
func (ch *Channel) Sync() error {
	ch.lock.Lock()
	defer ch.lock.Unlock()

	if ch.timer != nil {
		ch.timer.Tick()
	}

	state := ch.board.RelayGet(ch.mask) != 0

	if ch.hk != nil {
		ch.hk.Switch.On.SetValue(state)
	}

	if ch.publisher != nil && (!ch.everPublished || state != ch.lastPublished) {
		payload := "off"
		if state {
			payload = "on"
		}
		err := ch.publisher.Publish(ch.stateTopic, []byte(payload))
		if err != nil {
			return errors.Wrapf(err, "channel %s failed to publish state", ch.Name)
		}
		ch.lastPublished = state
		ch.everPublished = true
	}

	return nil
}

func (ch *Channel) GetHk() *accessory.A {
	if ch.hk == nil {
		return nil
	}
	return ch.hk.A
}

// FireEvent reacts to push events from a bound input: single press
// toggles, double press forces on, long press forces off.
func (ch *Channel) FireEvent(event drivers.PushEvent) {
	switch event {
	case drivers.PushEventSinglePress:
		ch.Toggle()
	case drivers.PushEventDoublePress:
		ch.SetValue(true)
	case drivers.PushEventLongPress:
		ch.SetValue(false)
	}
}

// SetMqtt attaches a publisher and derives the channel topics from the
// kit name. Returns the channel as a command handler.
func (ch *Channel) SetMqtt(publisher mqtt.Publisher, kitName string) mqtt.MqttHandler {
	ch.publisher = publisher
	ch.stateTopic = fmt.Sprintf("%s/relay/%d/state", kitName, ch.Relay)
	ch.setTopic = fmt.Sprintf("%s/relay/%d/set", kitName, ch.Relay)
	return ch
}

func (ch *Channel) MqttSubscribeTopic() string {
	return ch.setTopic
}

func (ch *Channel) MqttHandle(payload []byte) {
	switch strings.ToLower(strings.TrimSpace(string(payload))) {
	case "on", "1", "true":
		ch.SetValue(true)
	case "off", "0", "false":
		ch.SetValue(false)
	case "toggle":
		ch.Toggle()
	}
}
