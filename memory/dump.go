package memory

import (
	"fmt"
	"strings"
)

const bytesPerRow = 16

// Dump renders memory in the range [start, end) as a hex table, one
// row of sixteen bytes per line with a gap after the eighth byte:
//
//	Contents of memory from 0100 to 0121:
//	  0100  30 f4 00 02 00 00 00 00  00 00 00 00 70 08 01 00
//	  ...
//
// Rows begin at start as given; callers wanting aligned rows round
// start down to a sixteen-byte boundary first.
func (m Image) Dump(start, end uint64) string {
	if end > Size {
		end = Size
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Contents of memory from %04x to %04x:\n", start, end)
	for row := start; row < end; row += bytesPerRow {
		fmt.Fprintf(&b, "  %04x ", row)
		for i := uint64(0); i < bytesPerRow && row+i < end; i++ {
			if i == 8 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, " %02x", m[row+i])
		}
		b.WriteByte('\n')
	}
	return b.String()
}
