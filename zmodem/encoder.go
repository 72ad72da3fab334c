package zmodem

// encodeHexHeader builds a HEX-encoded header frame: prefix, five payload
// bytes as ASCII hex, CRC16 trailer as ASCII hex (big-endian), then
// CR LF XON. This is the only encoding the receiver ever emits; DenySending
// also uses it for its ZFIN. The sender role emits BIN/BIN32 headers only.
func encodeHexHeader(t FrameType, hdr Header) []byte {
	buf := make([]byte, 0, 4+2*5+2+3)
	buf = append(buf, ZPAD, ZPAD, ZDLE, ZHEX)

	payload := [5]byte{byte(t), hdr[0], hdr[1], hdr[2], hdr[3]}
	for _, b := range payload {
		buf = appendHex(buf, b)
	}

	crc := crc16(payload[:])
	buf = appendHex(buf, byte(crc>>8))
	buf = appendHex(buf, byte(crc))

	buf = append(buf, 0x0D, 0x0A, XON)
	return buf
}

// encodeBinHeader builds a BIN (16-bit CRC) or BIN32 (32-bit CRC) header
// frame: prefix, five ZDLE-escaped payload bytes, ZDLE-escaped CRC trailer
// (CRC16 big-endian or CRC32 little-endian). znulls null bytes are emitted
// ahead of the frame for modem turnaround before ZDATA headers.
func encodeBinHeader(t FrameType, hdr Header, use32bit, escapeAll bool, znulls int) []byte {
	buf := make([]byte, 0, znulls+3+2*9)
	if t == ZDATA {
		for i := 0; i < znulls; i++ {
			buf = append(buf, 0)
		}
	}

	buf = append(buf, ZPAD, ZDLE)
	if use32bit {
		buf = append(buf, ZBIN32)
	} else {
		buf = append(buf, ZBIN)
	}

	payload := [5]byte{byte(t), hdr[0], hdr[1], hdr[2], hdr[3]}
	buf = appendEscapedBytes(buf, payload[:], escapeAll)

	if use32bit {
		crc := uint32(crc32Seed)
		for _, b := range payload {
			crc = updateCRC32(crc, b)
		}
		crc = crc32Finalize(crc)
		buf = appendEscaped(buf, byte(crc), escapeAll)
		buf = appendEscaped(buf, byte(crc>>8), escapeAll)
		buf = appendEscaped(buf, byte(crc>>16), escapeAll)
		buf = appendEscaped(buf, byte(crc>>24), escapeAll)
	} else {
		crc := crc16(payload[:])
		buf = appendEscaped(buf, byte(crc>>8), escapeAll)
		buf = appendEscaped(buf, byte(crc), escapeAll)
	}

	return buf
}

// encodeDataSubpacket builds a data subpacket: payload bytes (ZDLE-escaped),
// ZDLE + terminator (raw), then the CRC over payload||terminator (CRC16 or
// CRC32, ZDLE-escaped).
func encodeDataSubpacket(payload []byte, term byte, use32bit, escapeAll bool) []byte {
	buf := make([]byte, 0, len(payload)*2+8)
	buf = appendEscapedBytes(buf, payload, escapeAll)
	buf = append(buf, ZDLE, term)

	if use32bit {
		crc := uint32(crc32Seed)
		for _, b := range payload {
			crc = updateCRC32(crc, b)
		}
		crc = updateCRC32(crc, term)
		crc = crc32Finalize(crc)
		buf = appendEscaped(buf, byte(crc), escapeAll)
		buf = appendEscaped(buf, byte(crc>>8), escapeAll)
		buf = appendEscaped(buf, byte(crc>>16), escapeAll)
		buf = appendEscaped(buf, byte(crc>>24), escapeAll)
	} else {
		crc := crc16(payload)
		crc = updateCRC16(crc, term)
		buf = appendEscaped(buf, byte(crc>>8), escapeAll)
		buf = appendEscaped(buf, byte(crc), escapeAll)
	}

	return buf
}
