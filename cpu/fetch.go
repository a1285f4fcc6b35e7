package cpu

import (
	"encoding/binary"

	"github.com/minielf/y86/memory"
)

// Fetch decodes the instruction at the program counter. On success
// the returned instruction's Size covers every byte consumed; the PC
// itself is never advanced here, that is MemoryWbPC's job.
//
// On failure Fetch records the fault in c.Stat (ADR for out-of-range
// reads, INS for bad encodings) and returns an INVALID instruction
// carrying the raw opcode.
func Fetch(c *CPU, mem memory.Image) Instruction {
	inst := Instruction{Type: INVALID, RA: BadReg, RB: BadReg}
	if mem == nil {
		c.Stat = INS
		return inst
	}
	if c.PC >= memory.Size {
		c.Stat = ADR
		return inst
	}
	inst.Opcode = mem[c.PC]
	fn := inst.Opcode & 0x0f

	switch inst.Opcode & 0xf0 {
	case OpHalt:
		if fn != 0 {
			break
		}
		inst.Type = HALT
		inst.Size = 1
		c.Stat = HLT
		return inst
	case OpNop:
		if fn != 0 {
			break
		}
		inst.Type = NOP
		inst.Size = 1
		return inst
	case OpCmov:
		if fn > uint8(CMOVG) {
			break
		}
		return fetchCmov(c, mem, inst, CmovKind(fn))
	case OpIrmovq:
		if fn != 0 {
			break
		}
		return fetchIrmovq(c, mem, inst)
	case OpRmmovq:
		if fn != 0 {
			break
		}
		return fetchMemMove(c, mem, inst, RMMOVQ)
	case OpMrmovq:
		if fn != 0 {
			break
		}
		return fetchMemMove(c, mem, inst, MRMOVQ)
	case OpOpq:
		if fn > uint8(XOR) {
			break
		}
		return fetchOpq(c, mem, inst, OpKind(fn))
	case OpJump:
		if fn > uint8(JG) {
			break
		}
		return fetchDest(c, mem, inst, JUMP, JumpKind(fn))
	case OpCall:
		if fn != 0 {
			break
		}
		return fetchDest(c, mem, inst, CALL, 0)
	case OpRet:
		if fn != 0 {
			break
		}
		inst.Type = RET
		inst.Size = 1
		return inst
	case OpPushq:
		if fn != 0 {
			break
		}
		return fetchStack(c, mem, inst, PUSHQ)
	case OpPopq:
		if fn != 0 {
			break
		}
		return fetchStack(c, mem, inst, POPQ)
	}

	c.Stat = INS
	return inst
}

// operandsInRange verifies that n trailing operand bytes fit in
// memory, recording an ADR fault if they do not.
func operandsInRange(c *CPU, n uint64) bool {
	if c.PC+n >= memory.Size {
		c.Stat = ADR
		return false
	}
	return true
}

// regByte splits the register specifier byte into its ra and rb nibbles.
func regByte(mem memory.Image, addr uint64) (Register, Register) {
	return Register(mem[addr] >> 4), Register(mem[addr] & 0x0f)
}

// quadAt reads the little-endian immediate starting at addr.
func quadAt(mem memory.Image, addr uint64) uint64 {
	return binary.LittleEndian.Uint64(mem[addr:])
}

func fetchCmov(c *CPU, mem memory.Image, inst Instruction, kind CmovKind) Instruction {
	if !operandsInRange(c, 1) {
		return inst
	}
	ra, rb := regByte(mem, c.PC+1)
	if ra >= BadReg || rb >= BadReg {
		c.Stat = INS
		return inst
	}
	inst.Type = CMOV
	inst.Size = 2
	inst.Cmov = kind
	inst.RA = ra
	inst.RB = rb
	return inst
}

func fetchIrmovq(c *CPU, mem memory.Image, inst Instruction) Instruction {
	if !operandsInRange(c, 9) {
		return inst
	}
	ra, rb := regByte(mem, c.PC+1)
	if ra != BadReg || rb >= BadReg {
		c.Stat = INS
		return inst
	}
	inst.Type = IRMOVQ
	inst.Size = 10
	inst.RB = rb
	inst.Value = quadAt(mem, c.PC+2)
	return inst
}

// fetchMemMove decodes RMMOVQ and MRMOVQ, which share one encoding:
// a register byte then an 8-byte displacement. rb may be BadReg,
// meaning the displacement is an absolute address.
func fetchMemMove(c *CPU, mem memory.Image, inst Instruction, t InstType) Instruction {
	if !operandsInRange(c, 9) {
		return inst
	}
	ra, rb := regByte(mem, c.PC+1)
	if ra >= BadReg {
		c.Stat = INS
		return inst
	}
	inst.Type = t
	inst.Size = 10
	inst.RA = ra
	inst.RB = rb
	inst.D = quadAt(mem, c.PC+2)
	return inst
}

func fetchOpq(c *CPU, mem memory.Image, inst Instruction, op OpKind) Instruction {
	if !operandsInRange(c, 1) {
		return inst
	}
	ra, rb := regByte(mem, c.PC+1)
	if ra >= BadReg || rb >= BadReg {
		c.Stat = INS
		return inst
	}
	inst.Type = OPQ
	inst.Size = 2
	inst.Op = op
	inst.RA = ra
	inst.RB = rb
	return inst
}

// fetchDest decodes JUMP and CALL: an 8-byte absolute target follows
// the opcode directly.
func fetchDest(c *CPU, mem memory.Image, inst Instruction, t InstType, kind JumpKind) Instruction {
	if !operandsInRange(c, 8) {
		return inst
	}
	inst.Type = t
	inst.Size = 9
	inst.Jump = kind
	inst.Dest = quadAt(mem, c.PC+1)
	return inst
}

func fetchStack(c *CPU, mem memory.Image, inst Instruction, t InstType) Instruction {
	if !operandsInRange(c, 1) {
		return inst
	}
	ra, rb := regByte(mem, c.PC+1)
	if ra >= BadReg || rb != BadReg {
		c.Stat = INS
		return inst
	}
	inst.Type = t
	inst.Size = 2
	inst.RA = ra
	return inst
}
