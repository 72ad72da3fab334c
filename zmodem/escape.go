package zmodem

// escapeSet lists the bytes that must be ZDLE-escaped when building a
// BIN/BIN32 frame, per spec: ZDLE itself, XON/XOFF and their 8th-bit-set
// forms, and CAN (which shares in-band framing with a literal ZDLE/CAN
// collision the sender avoids by escaping it outright).
var escapeSet = map[byte]bool{
	ZDLE:        true,
	0x10:        true, // DLE
	XON:         true,
	XOFF:        true,
	0x90:        true, // DLE | 0x80
	XON | 0x80:  true,
	XOFF | 0x80: true,
}

// needsEscape reports whether b must be sent as a ZDLE escape sequence
// rather than literally. When all is true (Config.EscapeControl / the
// peer's ESCCTL request), every control character and its 8th-bit-set
// form is escaped too, not just the fixed XON/XOFF/DLE/ZDLE set.
func needsEscape(b byte, all bool) bool {
	if escapeSet[b] {
		return true
	}
	if !all {
		return false
	}
	return b&0x60 == 0
}

// appendEscaped appends b to dst, ZDLE-escaping it first if required.
func appendEscaped(dst []byte, b byte, all bool) []byte {
	if needsEscape(b, all) {
		return append(dst, ZDLE, b^0x40)
	}
	return append(dst, b)
}

// appendEscapedBytes appends every byte of buf to dst with escaping
// applied per byte.
func appendEscapedBytes(dst []byte, buf []byte, all bool) []byte {
	for _, b := range buf {
		dst = appendEscaped(dst, b, all)
	}
	return dst
}

// isFrameEndByte reports whether the raw byte following a ZDLE (before any
// XOR 0x40) is one of the subpacket terminators ZCRCE/G/Q/W or a rubout
// code, i.e. lies in 0x68..0x6f.
func isFrameEndByte(unescaped byte) bool {
	return unescaped >= 0x68 && unescaped <= 0x6f
}
