// Package elf reads the Mini-ELF container format: a 16-byte file
// header followed by a table of program headers, each mapping a file
// region into the virtual memory image.
package elf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// HeaderSize is the on-disk size of the file header in bytes.
const HeaderSize = 16

// Magic is the file header magic, the bytes 45 4c 46 00 ("ELF\0")
// read as a little-endian 32-bit value.
const Magic = 0x00464c45

// Header is the Mini-ELF file header. All fields are little-endian
// on disk, in this order.
type Header struct {
	// Version of the container format.
	Version uint16
	// Entry is the virtual address execution starts at.
	Entry uint16
	// PhdrStart is the file offset of the first program header.
	PhdrStart uint16
	// NumPhdr is the number of program headers.
	NumPhdr uint16
	// SymTab is the file offset of the symbol table, 0 if absent.
	SymTab uint16
	// StrTab is the file offset of the string table, 0 if absent.
	StrTab uint16
	// Magic must equal Magic.
	Magic uint32
}

// ReadHeader reads and validates the file header from the start of r.
func ReadHeader(r io.ReadSeeker) (*Header, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "seeking to file header")
	}
	hdr := &Header{}
	if err := binary.Read(r, binary.LittleEndian, hdr); err != nil {
		return nil, errors.Wrap(err, "reading file header")
	}
	if hdr.Magic != Magic {
		return nil, errors.Errorf("bad file header magic %#08x", hdr.Magic)
	}
	return hdr, nil
}

// Bytes returns the header in its on-disk form.
func (h *Header) Bytes() []byte {
	var buf bytes.Buffer
	// Writing a fixed-size struct to a buffer cannot fail.
	binary.Write(&buf, binary.LittleEndian, h)
	return buf.Bytes()
}

// Dump renders the raw header bytes as a single hexdump row.
func (h *Header) Dump() string {
	var b strings.Builder
	b.WriteString("00000000 ")
	for i, by := range h.Bytes() {
		if i == 8 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, " %02x", by)
	}
	b.WriteByte('\n')
	return b.String()
}

// Describe renders the human-readable header report.
func (h *Header) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Mini-ELF version %x\n", h.Version)
	fmt.Fprintf(&b, "Entry point 0x%x\n", h.Entry)
	fmt.Fprintf(&b, "There are %x program headers, starting at offset %d (0x%x)\n",
		h.NumPhdr, h.PhdrStart, h.PhdrStart)
	if h.SymTab != 0 {
		fmt.Fprintf(&b, "There is a symbol table starting at offset %d (0x%x)\n", h.SymTab, h.SymTab)
	} else {
		b.WriteString("There is no symbol table present\n")
	}
	if h.StrTab != 0 {
		fmt.Fprintf(&b, "There is a string table starting at offset %d (0x%x)\n", h.StrTab, h.StrTab)
	} else {
		b.WriteString("There is no string table present\n")
	}
	return b.String()
}
