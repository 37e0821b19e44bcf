package board

import "github.com/pkg/errors"

// updateDigitSelect re-asserts the digit's own select bit. The
// character table stores select bits as 0 (shared across positions),
// so this has to run after every write to a digit word.
func (b *Board) updateDigitSelect(position int) {
	b.displayBuffer[position] |= digitSelect[position]
}

func (b *Board) updateDigit(position int, symbol uint8) {
	b.displayBuffer[position] = characters[symbol]
}

// updateColon mixes the colon LEDs (the DP segments of digits 1 and 2)
// into the buffer. Active low: enabled clears the DP bits, disabled
// sets them. Select bits for both digits are re-asserted afterwards.
func (b *Board) updateColon() {
	if b.displayColon {
		b.displayBuffer[1] &= dpSegmentMask
		b.displayBuffer[2] &= dpSegmentMask
	} else {
		b.displayBuffer[1] |= ^dpSegmentMask
		b.displayBuffer[2] |= ^dpSegmentMask
	}
	b.updateDigitSelect(1)
	b.updateDigitSelect(2)
}

// DisplayCharacter writes one symbol to one digit position (0 is the
// left-most digit). Unknown symbols and positions are rejected instead
// of indexing out of range.
func (b *Board) DisplayCharacter(position int, symbol uint8) error {
	if position < 0 || position >= NumDisplayDigits {
		return errors.Errorf("display position out of range: %d", position)
	}
	if symbol >= numSymbols {
		return errors.Errorf("symbol out of range: %d", symbol)
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	b.updateDigit(position, symbol)
	b.updateDigitSelect(position)
	b.updateColon()
	return nil
}

// DisplayNumber shows a decimal number right-aligned with leading
// zeros. Values above 9999 are silently truncated to the low four
// digits -- board behavior, there is no overflow indication.
func (b *Board) DisplayNumber(number uint16) {
	b.lock.Lock()
	defer b.lock.Unlock()

	for position := NumDisplayDigits - 1; position >= 0; position-- {
		b.updateDigit(position, uint8(number%10))
		b.updateDigitSelect(position)
		number /= 10
	}
	b.updateColon()
}

// DisplayMessage shows one of the canned messages (MessageBlank,
// MessageOn, MessageOff, MessageErr).
func (b *Board) DisplayMessage(message uint8) error {
	if message >= numMessages {
		return errors.Errorf("display message out of range: %d", message)
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	for position := 0; position < NumDisplayDigits; position++ {
		b.updateDigit(position, displayMessages[message][position])
		b.updateDigitSelect(position)
	}
	b.updateColon()
	return nil
}

// SetColon switches the colon LEDs between digits 1 and 2.
func (b *Board) SetColon(enabled bool) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.displayColon = enabled
	b.updateColon()
}

// ToggleColon flips the colon, handy for 500 ms "clock tick" flashing.
func (b *Board) ToggleColon() {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.displayColon = !b.displayColon
	b.updateColon()
}

// ColonEnabled returns the buffered colon state.
func (b *Board) ColonEnabled() bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.displayColon
}

// DisplayWords returns a copy of the raw digit words, as they will be
// shifted out. Mostly useful for diagnostics and tests.
func (b *Board) DisplayWords() [NumDisplayDigits]uint16 {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.displayBuffer
}
