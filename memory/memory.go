package memory

import "encoding/binary"

// Size is the number of addressable bytes in the virtual memory image.
// Addresses are 16-bit, so the image covers 0x0000 through 0xFFFF.
const Size = 65536

// Image is the flat virtual memory a program is loaded into. It is
// created zeroed and shared read-only by the decoder and disassembler;
// only the loader and the executor write to it.
type Image []byte

// New creates a zeroed memory image of the full address space.
func New() Image {
	return make(Image, Size)
}

// ReadQuad reads a little-endian 64-bit value from the given address.
// The second return value is false if any byte of the quad falls
// outside the image.
func (m Image) ReadQuad(addr uint64) (uint64, bool) {
	if addr >= Size || Size-addr < 8 {
		return 0, false
	}
	return binary.LittleEndian.Uint64(m[addr:]), true
}

// WriteQuad stores a 64-bit value little-endian at the given address.
// Returns false without touching memory if the quad does not fit.
func (m Image) WriteQuad(addr, value uint64) bool {
	if addr >= Size || Size-addr < 8 {
		return false
	}
	binary.LittleEndian.PutUint64(m[addr:], value)
	return true
}
