package zmodem

// CRC16 implements the CRC16-XMODEM checksum used by HEX and BIN frames:
// polynomial 0x1021, initial value 0, MSB-first, no final XOR.
//
// crc16Table[i] is indexed by (crc>>8) XOR byte; update is
// crc = (crc<<8) XOR table[idx]. This is the classic CCITT/XMODEM table
// construction, computed once at init time rather than hand-copied from a
// reference listing.
var crc16Table [256]uint16

func init() {
	const poly = 0x1021
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		crc16Table[i] = crc
	}
}

// updateCRC16 folds one byte into a running CRC16-XMODEM value.
func updateCRC16(crc uint16, b byte) uint16 {
	return (crc << 8) ^ crc16Table[byte(crc>>8)^b]
}

// crc16 computes the CRC16-XMODEM of buf in a single pass.
func crc16(buf []byte) uint16 {
	var crc uint16
	for _, b := range buf {
		crc = updateCRC16(crc, b)
	}
	return crc
}

// crc16Trailer reports whether hi, lo (wire order big-endian, high byte
// first) are a valid CRC16-XMODEM trailer for payload. It folds the trailer
// bytes into the running CRC of payload and checks for the canonical zero
// residue.
func crc16Trailer(payload []byte, hi, lo byte) bool {
	crc := crc16(payload)
	crc = updateCRC16(crc, hi)
	crc = updateCRC16(crc, lo)
	return crc == 0
}

// CRC32 implements the ZMODEM variant of CRC-32: the standard IEEE
// polynomial 0x04C11DB7 in bit-reversed (reflected) form, initial value
// 0xFFFFFFFF, with the running value inverted at finalization time.
var crc32Table [256]uint32

func init() {
	const poly = 0xEDB88320 // bit-reversed 0x04C11DB7
	for i := 0; i < 256; i++ {
		crc := uint32(i)
		for bit := 0; bit < 8; bit++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ poly
			} else {
				crc >>= 1
			}
		}
		crc32Table[i] = crc
	}
}

// updateCRC32 folds one byte into a running (uninverted) CRC32 value. The
// caller seeds with 0xFFFFFFFF and inverts the final result.
func updateCRC32(crc uint32, b byte) uint32 {
	return (crc >> 8) ^ crc32Table[byte(crc)^b]
}

// crc32Seed is the initial running value for a fresh CRC32 computation.
const crc32Seed = 0xFFFFFFFF

// crc32Finalize applies ZMODEM's final invert to a running CRC32 value.
// The bit-reversed table already produces bits in the wire's LSB-first
// order, so no separate reverse32 step is needed on top of the invert.
func crc32Finalize(crc uint32) uint32 {
	return crc ^ 0xFFFFFFFF
}

// crc32sum computes the finalized ZMODEM CRC32 of buf in a single pass.
func crc32sum(buf []byte) uint32 {
	crc := uint32(crc32Seed)
	for _, b := range buf {
		crc = updateCRC32(crc, b)
	}
	return crc32Finalize(crc)
}

// crc32CheckResidue is the running (pre-finalize) CRC32 value a correct
// payload+trailer sequence reduces to: feeding a correct little-endian
// CRC32 trailer back through updateCRC32 always yields this constant,
// regardless of payload, which is what makes streaming verification
// possible without buffering the whole subpacket twice.
const crc32CheckResidue = 0xDEBB20E3

// crc32TrailerValid reports whether the 4 little-endian trailer bytes
// following payload are a valid ZMODEM CRC32 trailer, by continuing the
// running CRC across the trailer bytes and comparing to the fixed residue.
func crc32TrailerValid(payload []byte, trailer [4]byte) bool {
	crc := uint32(crc32Seed)
	for _, b := range payload {
		crc = updateCRC32(crc, b)
	}
	for _, b := range trailer {
		crc = updateCRC32(crc, b)
	}
	return crc == crc32CheckResidue
}
