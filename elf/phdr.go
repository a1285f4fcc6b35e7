package elf

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// PhdrSize is the on-disk size of a program header in bytes.
const PhdrSize = 20

// PhdrMagic is the value every program header must end with.
const PhdrMagic = 0xDEADBEEF

// Segment types.
const (
	TypeData  = 0
	TypeCode  = 1
	TypeStack = 2
)

// Segment permission flags, a 3-bit mask.
const (
	FlagX = 1
	FlagW = 2
	FlagR = 4
)

// Phdr is a Mini-ELF program header, mapping p_filesz bytes at file
// offset p_offset to virtual address p_vaddr.
type Phdr struct {
	Offset   uint32
	FileSize uint32
	VirtAddr uint32
	Type     uint16
	Flags    uint16
	Magic    uint32
}

// ReadPhdr reads and validates one program header at the given file offset.
func ReadPhdr(r io.ReadSeeker, offset int64) (*Phdr, error) {
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return nil, errors.Wrapf(err, "seeking to program header at offset %#x", offset)
	}
	ph := &Phdr{}
	if err := binary.Read(r, binary.LittleEndian, ph); err != nil {
		return nil, errors.Wrapf(err, "reading program header at offset %#x", offset)
	}
	if ph.Magic != PhdrMagic {
		return nil, errors.Errorf("bad program header magic %#08x at offset %#x", ph.Magic, offset)
	}
	return ph, nil
}

// TypeString returns the segment type name.
func (p *Phdr) TypeString() string {
	switch p.Type {
	case TypeData:
		return "DATA"
	case TypeCode:
		return "CODE"
	case TypeStack:
		return "STACK"
	}
	return "?"
}

// FlagString renders the permission mask as three fixed columns,
// e.g. "R X" or "RW " or "  X".
func (p *Phdr) FlagString() string {
	flags := []byte("   ")
	if p.Flags&FlagR != 0 {
		flags[0] = 'R'
	}
	if p.Flags&FlagW != 0 {
		flags[1] = 'W'
	}
	if p.Flags&FlagX != 0 {
		flags[2] = 'X'
	}
	return string(flags)
}

// DumpPhdrs renders the segment table for all program headers.
func DumpPhdrs(phdrs []Phdr) string {
	var b strings.Builder
	b.WriteString(" Segment   Offset   VirtAddr   FileSize   Type    Flag\n")
	for i, ph := range phdrs {
		fmt.Fprintf(&b, "  %02d       0x%04x   0x%04x     0x%04x     %-5s   %s\n",
			i, ph.Offset, ph.VirtAddr, ph.FileSize, ph.TypeString(), ph.FlagString())
	}
	return b.String()
}
