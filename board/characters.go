package board

// Board geometry.
const (
	NumDisplayDigits = 4
	NumRelays        = 8
)

// Symbol ids for DisplayCharacter. Ids 0-9 are the decimal digits.
const (
	SymbolBlank uint8 = 10 + iota
	SymbolO
	SymbolN
	SymbolF
	SymbolE
	SymbolR
	SymbolUnderscore

	numSymbols = 17
)

// Segment patterns for the display shift registers (U3/U4), one 16 bit
// word per symbol. Each pattern is the segment-to-register-pin
// permutation XORed with the active-low mask (common anode display:
// a lit segment is a 0 bit). Digit select bits are stored as 0 here,
// the pattern is shared by all four positions.
var characters = [numSymbols]uint16{
	0x2008, // 0
	0x7A08, // 1
	0xE000, // 2
	0x6200, // 3
	0x3A00, // 4
	0x2210, // 5
	0x2010, // 6
	0x6A08, // 7
	0x2000, // 8
	0x2200, // 9
	0xFA18, // ' '
	0x2008, // O
	0x7810, // n
	0xA810, // F
	0xA010, // E
	0xF810, // r
	0xF218, // _
}

// Digit select bits (K1-K4). Active high: to light a digit its common
// anode driver must be enabled. Position 0 is the left-most digit.
var digitSelect = [NumDisplayDigits]uint16{
	0x0400, // K1 (left-most)
	0x0002, // K2
	0x0004, // K3
	0x0020, // K4 (right-most)
}

// DP segment mask (U3:Q5). On this board only the decimal points of
// digits 1 and 2 are wired, as the upper/lower colon LEDs. Active low,
// same as the other segments.
const dpSegmentMask uint16 = 0xDFFF

// Canned four-symbol messages for DisplayMessage.
const (
	MessageBlank uint8 = iota
	MessageOn
	MessageOff
	MessageErr

	numMessages = 4
)

var displayMessages = [numMessages][NumDisplayDigits]uint8{
	{SymbolBlank, SymbolBlank, SymbolBlank, SymbolBlank}, // '    '
	{SymbolBlank, SymbolBlank, SymbolO, SymbolN},         // '  On'
	{SymbolBlank, SymbolO, SymbolF, SymbolF},             // ' OFF'
	{SymbolBlank, SymbolE, SymbolR, SymbolR},             // ' Err'
}
