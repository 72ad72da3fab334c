package zmodem

import "testing"

func TestNeedsEscapeFixedSet(t *testing.T) {
	fixed := []byte{ZDLE, 0x10, XON, XOFF, 0x90, XON | 0x80, XOFF | 0x80}
	for _, b := range fixed {
		if !needsEscape(b, false) {
			t.Errorf("needsEscape(%#02x, false) = false, want true", b)
		}
		if !needsEscape(b, true) {
			t.Errorf("needsEscape(%#02x, true) = false, want true", b)
		}
	}
}

func TestNeedsEscapeControlOnlyWhenAll(t *testing.T) {
	// 0x01 has bits 5 & 6 clear (b&0x60 == 0) but isn't in the fixed set,
	// so it's only escaped when the caller asks for control escaping.
	if needsEscape(0x01, false) {
		t.Error("needsEscape(0x01, false) = true, want false")
	}
	if !needsEscape(0x01, true) {
		t.Error("needsEscape(0x01, true) = false, want true")
	}
}

func TestNeedsEscapePrintableNeverEscaped(t *testing.T) {
	for _, b := range []byte("Hello, ZMODEM!") {
		if needsEscape(b, true) {
			t.Errorf("needsEscape(%q, true) = true, want false", b)
		}
	}
}

func TestAppendEscapedRoundTrip(t *testing.T) {
	buf := appendEscaped(nil, ZDLE, false)
	if len(buf) != 2 || buf[0] != ZDLE || buf[1] != ZDLE^0x40 {
		t.Errorf("appendEscaped(ZDLE) = %v, want [ZDLE, ZDLE^0x40]", buf)
	}

	buf = appendEscaped(nil, 'A', false)
	if len(buf) != 1 || buf[0] != 'A' {
		t.Errorf("appendEscaped('A') = %v, want ['A']", buf)
	}
}

func TestIsFrameEndByte(t *testing.T) {
	for _, term := range []byte{ZCRCE, ZCRCG, ZCRCQ, ZCRCW} {
		if !isFrameEndByte(term) {
			t.Errorf("isFrameEndByte(%#02x) = false, want true", term)
		}
	}
	if isFrameEndByte('A' ^ 0x40) {
		t.Error("isFrameEndByte treated an ordinary escaped byte as a terminator")
	}
}
