package io22d08

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hubertat/io22d08/board"
	"github.com/hubertat/io22d08/drivers"
)

func testKit(t testing.TB, channels []*Channel, freqInputs []*FreqInput) *Kit {
	t.Helper()

	kit := &Kit{
		Name:       "test_kit",
		Board:      &board.Board{DriverName: "mock_driver"},
		Channels:   channels,
		FreqInputs: freqInputs,
		FakeDriver: &drivers.MockIoDriver{},
	}

	err := kit.InitDrivers(context.Background())
	if err != nil {
		t.Fatalf("init drivers failed: %v", err)
	}
	err = kit.InitIos()
	if err != nil {
		t.Fatalf("init ios failed: %v", err)
	}

	return kit
}

func TestKitPinGathering(t *testing.T) {
	kit := &Kit{
		Board: &board.Board{DriverName: "mock_driver"},
		Channels: []*Channel{
			{Name: "a", Relay: 1, ControlBy: []ControllingDevice{{Pin: 17}}},
			{Name: "b", Relay: 2, ControlBy: []ControllingDevice{{Pin: 22, DriverName: "gpio"}}},
		},
		FreqInputs: []*FreqInput{
			{Name: "f", DriverName: "mock_driver", InPin: 27, Relay: 3},
		},
	}

	inPins := kit.getInPins("mock_driver")
	assertUint16Pins(t, inPins, []uint16{27, 17})

	gpioPins := kit.getInPins("gpio")
	assertUint16Pins(t, gpioPins, []uint16{22})

	outPins := kit.getOutPins("mock_driver")
	assertUint16Pins(t, outPins, kit.Board.Pins())

	if len(kit.getOutPins("gpio")) != 0 {
		t.Error("no outputs expected on a driver the board does not use")
	}
}

func assertUint16Pins(t testing.TB, got, want []uint16) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("pin slice length mismatch: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pin mismatch at %d: got %d want %d", i, got[i], want[i])
		}
	}
}

func TestKitInitDriversErrors(t *testing.T) {
	missingBoard := &Kit{}
	if missingBoard.InitDrivers(context.Background()) == nil {
		t.Error("expected error for kit without board")
	}

	missingDriver := &Kit{Board: &board.Board{DriverName: "gpio"}}
	if missingDriver.InitDrivers(context.Background()) == nil {
		t.Error("expected error when the board driver is not configured")
	}

	missingFreqDriver := &Kit{
		Board:      &board.Board{DriverName: "mock_driver"},
		FakeDriver: &drivers.MockIoDriver{},
		FreqInputs: []*FreqInput{{Name: "f", DriverName: "gpio", InPin: 4, Relay: 1}},
	}
	if missingFreqDriver.InitDrivers(context.Background()) == nil {
		t.Error("expected error when a freq input driver is not configured")
	}
}

func TestKitMatchControllers(t *testing.T) {
	kit := testKit(t, []*Channel{
		{Name: "switched", Relay: 2, DisableHomekit: true, ControlBy: []ControllingDevice{{Pin: 17}}},
	}, nil)

	err := kit.MatchControllers()
	if err != nil {
		t.Fatalf("match controllers failed: %v", err)
	}

	input, err := kit.FakeDriver.GetMockInput(17)
	if err != nil {
		t.Fatalf("mock input missing: %v", err)
	}

	input.FirePush(drivers.PushEventSinglePress)
	if !kit.Channels[0].IsOn() {
		t.Error("push event should toggle the channel on")
	}
	input.FirePush(drivers.PushEventSinglePress)
	if kit.Channels[0].IsOn() {
		t.Error("second push should toggle the channel off")
	}
}

func TestSyncDisplayMessages(t *testing.T) {
	kit := testKit(t, []*Channel{
		{Name: "plain", Relay: 1, DisableHomekit: true},
	}, nil)

	kit.syncDisplay()
	assertDisplayMessage(t, kit.Board, board.MessageOff)

	kit.Channels[0].SetValue(true)
	kit.syncDisplay()
	assertDisplayMessage(t, kit.Board, board.MessageOn)
}

func assertDisplayMessage(t testing.TB, b *board.Board, message uint8) {
	t.Helper()

	want := &board.Board{}
	err := want.DisplayMessage(message)
	if err != nil {
		t.Fatalf("building expected message failed: %v", err)
	}

	if b.DisplayWords() != want.DisplayWords() {
		t.Errorf("display words mismatch: got %04x want %04x", b.DisplayWords(), want.DisplayWords())
	}
	if b.ColonEnabled() {
		t.Error("colon should be off while showing a message")
	}
}

func TestSyncDisplayCountdown(t *testing.T) {
	kit := testKit(t, []*Channel{
		{Name: "short", Relay: 1, DelayOff: "5s", DisableHomekit: true},
		{Name: "long", Relay: 2, DelayOff: "90s", DisableHomekit: true},
	}, nil)

	kit.Channels[0].SetValue(true)
	kit.Channels[1].SetValue(true)

	kit.syncDisplay()

	// The soonest countdown wins: just under 5s rounds up to 5.
	want := &board.Board{}
	want.DisplayNumber(5)
	want.SetColon(true)

	if kit.Board.DisplayWords() != want.DisplayWords() {
		t.Errorf("display words mismatch: got %04x want %04x", kit.Board.DisplayWords(), want.DisplayWords())
	}
	if !kit.Board.ColonEnabled() {
		t.Error("first countdown sync should flash the colon on")
	}

	kit.Channels[0].SetValue(false)
	kit.Channels[1].SetValue(false)
	kit.syncDisplay()
	assertDisplayMessage(t, kit.Board, board.MessageOff)
}

func TestKitStartRefresh(t *testing.T) {
	kit := testKit(t, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		kit.StartRefresh(ctx, time.Millisecond)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresh loop did not stop on context cancel")
	}
}

func TestKitClose(t *testing.T) {
	kit := testKit(t, []*Channel{
		{Name: "on at close", Relay: 1, DisableHomekit: true},
	}, nil)

	kit.Channels[0].SetValue(true)

	err := kit.Close()
	if err != nil {
		t.Errorf("close failed: %v", err)
	}
	if kit.Board.IsReady() {
		t.Error("board should not be ready after close")
	}
	if kit.Board.RelayGet(board.RelaysAll) != 0 {
		t.Error("close should clear the relay buffer")
	}
	if kit.FakeDriver.IsReady() {
		t.Error("driver should be closed")
	}
}

func TestPrintIoStatus(t *testing.T) {
	kit := testKit(t, nil, nil)

	buffer := &bytes.Buffer{}
	kit.PrintIoStatus(buffer)

	if !strings.Contains(buffer.String(), "mock_driver") {
		t.Error("status output should name the active driver")
	}
}
