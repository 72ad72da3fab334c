package zmodem

// Config collapses the sender/receiver configuration trio the teacher kept
// as three separate structs into one, since a single Engine plays both
// roles depending on which frame it sees first.
type Config struct {
	// Use32BitCRC requests CRC32 framing for the frames this engine emits
	// as a sender; actual use also requires the peer to advertise CANFC32.
	Use32BitCRC bool

	// EscapeControl escapes every control character in frames this
	// engine emits (ESCCTL), matching what it asks of the peer via
	// ZRINIT's own ESCCTL bit.
	EscapeControl bool

	// ZNulls is the number of null padding bytes emitted ahead of a ZDATA
	// header, historically used to give slow modems time to switch from
	// command mode into the data pump.
	ZNulls int

	// Attention is the string an embedder wants echoed to the peer's
	// terminal if the transfer is aborted; empty means none.
	Attention []byte

	// FailLimit is the number of consecutive data-subpacket CRC failures
	// tolerated before the engine gives up and raises ErrFailLimit.
	FailLimit int

	// MaxSubpacket bounds the size of a single outbound data subpacket.
	MaxSubpacket int
}

// DefaultConfig returns the configuration a plain sz/rz-equivalent transfer
// uses: 32-bit CRC when the peer supports it, no forced control escaping,
// no ZNulls padding, a short attention string, five tolerated CRC failures
// per file, and 2 KiB data subpackets.
func DefaultConfig() Config {
	return Config{
		Use32BitCRC:   true,
		EscapeControl: false,
		ZNulls:        0,
		Attention:     []byte{0x03, 0x8E, 0},
		FailLimit:     5,
		MaxSubpacket:  2048,
	}
}
