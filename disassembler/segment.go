package disassembler

import (
	"fmt"
	"strings"

	"github.com/minielf/y86/cpu"
	"github.com/minielf/y86/elf"
	"github.com/minielf/y86/memory"
)

// Instruction lines pad the raw bytes to the widest encoding, ten
// bytes of lowercase hex.
const rawWidth = 20

func writeLine(b *strings.Builder, addr uint64, raw []byte, text string) {
	fmt.Fprintf(b, "  0x%04x: %-*s | %s\n", addr, rawWidth, hexBytes(raw), text)
}

func hexBytes(raw []byte) string {
	var b strings.Builder
	for _, by := range raw {
		fmt.Fprintf(&b, "%02x", by)
	}
	return b.String()
}

// Code disassembles one executable segment, labelling the program
// entry point. Decoding stops at the first fault in the segment.
func Code(mem memory.Image, ph *elf.Phdr, hdr *elf.Header) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  .pos 0x%x code\n", ph.VirtAddr)
	c := cpu.New(0)
	c.PC = uint64(ph.VirtAddr)
	end := uint64(ph.VirtAddr) + uint64(ph.FileSize)
	for c.PC < end {
		if c.PC == uint64(hdr.Entry) {
			b.WriteString("_start:\n")
		}
		inst := cpu.Fetch(c, mem)
		if inst.Type == cpu.INVALID {
			writeLine(&b, c.PC, mem[c.PC:c.PC+1], "invalid")
			break
		}
		writeLine(&b, c.PC, mem[c.PC:c.PC+inst.Size], Disassemble(inst))
		c.PC += inst.Size
		// A halt decodes fine; only real faults end the walk.
		if c.Stat == cpu.HLT {
			c.Stat = cpu.AOK
		}
	}
	return b.String()
}

// Data renders one writable data segment as 8-byte .quad groups.
func Data(mem memory.Image, ph *elf.Phdr) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  .pos 0x%x data\n", ph.VirtAddr)
	end := uint64(ph.VirtAddr) + uint64(ph.FileSize)
	for addr := uint64(ph.VirtAddr); addr < end; addr += 8 {
		quad, ok := mem.ReadQuad(addr)
		if !ok {
			break
		}
		writeLine(&b, addr, mem[addr:addr+8], fmt.Sprintf(".quad 0x%x", quad))
	}
	return b.String()
}

// Rodata renders a read-only segment as NUL-terminated strings. The
// first line of each string carries up to ten raw bytes and the
// .string directive; longer strings wrap their remaining bytes ten to
// a line.
func Rodata(mem memory.Image, ph *elf.Phdr) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  .pos 0x%x rodata\n", ph.VirtAddr)
	end := uint64(ph.VirtAddr) + uint64(ph.FileSize)
	addr := uint64(ph.VirtAddr)
	for addr < end {
		str := addr
		for str < end && mem[str] != 0 {
			str++
		}
		n := str - addr // string bytes, excluding the NUL
		total := n
		if str < end {
			total++ // include the terminator in the raw bytes
		}
		first := total
		if first > 10 {
			first = 10
		}
		writeLine(&b, addr, mem[addr:addr+first],
			fmt.Sprintf(".string \"%s\"", mem[addr:addr+n]))
		for off := first; off < total; off += 10 {
			rest := total - off
			if rest > 10 {
				rest = 10
			}
			fmt.Fprintf(&b, "  0x%04x: %s\n", addr+off, hexBytes(mem[addr+off:addr+off+rest]))
		}
		addr += total
		if str == end {
			break
		}
	}
	return b.String()
}
