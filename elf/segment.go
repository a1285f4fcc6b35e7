package elf

import (
	"io"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/minielf/y86/memory"
)

// LoadSegment copies a segment's file contents into the memory image
// at its virtual address. The segment contents are not interpreted;
// p_type and p_flag only matter to the disassembler and the driver.
func LoadSegment(r io.ReadSeeker, mem memory.Image, ph *Phdr) error {
	vaddr := uint64(ph.VirtAddr)
	size := uint64(ph.FileSize)
	if vaddr >= memory.Size || vaddr+size > memory.Size {
		return errors.Errorf("segment [%#x, %#x) exceeds memory", vaddr, vaddr+size)
	}
	if size == 0 {
		return nil
	}
	if _, err := r.Seek(int64(ph.Offset), io.SeekStart); err != nil {
		return errors.Wrapf(err, "seeking to segment at offset %#x", ph.Offset)
	}
	if _, err := io.ReadFull(r, mem[vaddr:vaddr+size]); err != nil {
		return errors.Wrapf(err, "reading %d segment bytes at offset %#x", size, ph.Offset)
	}
	log.WithFields(log.Fields{
		"vaddr": ph.VirtAddr,
		"size":  ph.FileSize,
		"type":  ph.TypeString(),
	}).Debug("segment loaded")
	return nil
}
