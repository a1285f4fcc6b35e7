package cpu

import (
	"fmt"
	"strings"
)

// Dump renders the CPU state block: PC, flags and status on the first
// row, then the register file two to a row, all hex fields padded to
// sixteen nibbles.
func (c *CPU) Dump() string {
	var b strings.Builder
	b.WriteString("dump of Y86 CPU:\n")
	fmt.Fprintf(&b, "%6s: %016x   flags: SF%d ZF%d OF%d  %s\n",
		"%rip", c.PC, flagBit(c.SF), flagBit(c.ZF), flagBit(c.OF), c.Stat)
	for i := 0; i < NumRegisters; i += 2 {
		fmt.Fprintf(&b, "%6s: %016x", regNames[i], c.Reg[i])
		if i+1 < NumRegisters {
			fmt.Fprintf(&b, "  %6s: %016x", regNames[i+1], c.Reg[i+1])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func flagBit(f bool) int {
	if f {
		return 1
	}
	return 0
}
