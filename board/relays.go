package board

// Relay masks. The relay shift register (U5) outputs are wired to the
// relays as 76543218: relay 8 sits on bit 0, relays 1-7 on bits 1-7.
const (
	Relay1 uint8 = 1 << 1
	Relay2 uint8 = 1 << 2
	Relay3 uint8 = 1 << 3
	Relay4 uint8 = 1 << 4
	Relay5 uint8 = 1 << 5
	Relay6 uint8 = 1 << 6
	Relay7 uint8 = 1 << 7
	Relay8 uint8 = 1 << 0

	RelaysAll  uint8 = 0xFF
	RelaysNone uint8 = 0x00

	RelayOn  uint8 = 0xFF
	RelayOff uint8 = 0x00
)

// RelayNumToMask converts a relay number (1-8, as printed on the board)
// to its shift register bit. Relay numbers 0, 8 and anything above 8
// land on bit 0, matching the board wiring.
func RelayNumToMask(relayNum uint8) uint8 {
	if relayNum >= NumRelays {
		relayNum = 0
	}
	return 1 << relayNum
}

// RelaySet changes the relays selected by mask to the corresponding
// bits of state. Bits outside the mask are left untouched, so a single
// call can switch any combination of relays atomically:
//
//	RelaySet(Relay2, RelayOn)          turns on relay 2
//	RelaySet(Relay1|Relay3, RelayOff)  turns off relays 1 and 3
//	RelaySet(RelaysAll, RelayOff)      turns off everything
//	RelaySet(RelaysNone, ...)          no-op
//
// The new state reaches the hardware on the next Refresh.
func (b *Board) RelaySet(mask uint8, state uint8) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.relayBuffer = (b.relayBuffer &^ mask) | (state & mask)
}

// RelaySetN sets a single relay by number.
func (b *Board) RelaySetN(relayNum uint8, state bool) {
	if state {
		b.RelaySet(RelayNumToMask(relayNum), RelayOn)
	} else {
		b.RelaySet(RelayNumToMask(relayNum), RelayOff)
	}
}

// RelayGet returns the buffered state of the relays selected by mask.
func (b *Board) RelayGet(mask uint8) uint8 {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.relayBuffer & mask
}

// RelayIsOn reports whether a single relay, by number, is on.
func (b *Board) RelayIsOn(relayNum uint8) bool {
	return b.RelayGet(RelayNumToMask(relayNum)) != 0
}
