package board

import "testing"

func TestRelayNumToMask(t *testing.T) {
	cases := []struct {
		relayNum uint8
		want     uint8
	}{
		{1, 0x02},
		{2, 0x04},
		{3, 0x08},
		{4, 0x10},
		{5, 0x20},
		{6, 0x40},
		{7, 0x80},
		// board wiring quirk: relay 8 sits on bit 0, and so does
		// anything out of range
		{8, 0x01},
		{0, 0x01},
		{9, 0x01},
		{200, 0x01},
	}

	for _, c := range cases {
		got := RelayNumToMask(c.relayNum)
		if got != c.want {
			t.Errorf("RelayNumToMask(%d): got 0x%02X want 0x%02X", c.relayNum, got, c.want)
		}
	}
}

func TestRelaySet(t *testing.T) {
	cases := []struct {
		name         string
		initial      uint8
		mask, state  uint8
		want         uint8
	}{
		{"single on", 0x00, Relay2, RelayOn, 0x04},
		{"single on by own bit", 0x00, Relay2, Relay2, 0x04},
		{"single off", 0xFF, Relay2, RelayOff, 0xFB},
		{"messy state still off", 0xFF, Relay2, 0xF1, 0xFB},
		{"multiple on", 0x00, Relay1 | Relay3 | Relay6, RelayOn, 0x4A},
		{"even relays off", 0xFF, 0xAA, 0x00, 0x55},
		{"empty mask no-op", 0x5A, RelaysNone, RelayOn, 0x5A},
		{"all off", 0x5A, RelaysAll, RelayOff, 0x00},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := &Board{}
			b.relayBuffer = c.initial

			b.RelaySet(c.mask, c.state)

			if b.relayBuffer != c.want {
				t.Errorf("buffer: got 0x%02X want 0x%02X", b.relayBuffer, c.want)
			}

			// bits in the mask reflect the state, bits outside stay put
			if got := b.RelayGet(c.mask); got != c.state&c.mask {
				t.Errorf("RelayGet(mask): got 0x%02X want 0x%02X", got, c.state&c.mask)
			}
			if got := b.RelayGet(^c.mask); got != c.initial&^c.mask {
				t.Errorf("RelayGet(^mask): got 0x%02X want 0x%02X", got, c.initial&^c.mask)
			}
		})
	}
}

func TestRelaySetN(t *testing.T) {
	b := &Board{}

	b.RelaySetN(3, true)
	if !b.RelayIsOn(3) {
		t.Error("relay 3 should be on")
	}
	if b.RelayGet(RelaysAll) != Relay3 {
		t.Errorf("only relay 3 should be on, buffer: 0x%02X", b.RelayGet(RelaysAll))
	}

	b.RelaySetN(8, true)
	if !b.RelayIsOn(8) {
		t.Error("relay 8 should be on")
	}
	if b.RelayGet(RelaysAll) != Relay3|Relay8 {
		t.Errorf("relays 3 and 8 should be on, buffer: 0x%02X", b.RelayGet(RelaysAll))
	}

	b.RelaySetN(3, false)
	if b.RelayIsOn(3) {
		t.Error("relay 3 should be off")
	}
	if !b.RelayIsOn(8) {
		t.Error("relay 8 should still be on")
	}
}
