package cpu

import (
	"fmt"

	"github.com/minielf/y86/memory"
)

// DecodeExecute runs the decode and execute pipeline stages for one
// fetched instruction. It computes the ALU result valE, the A-value
// valA (typically a source register), and whether a conditional move
// or branch is taken. No memory is touched and the PC is not moved;
// those belong to MemoryWbPC, kept separate so a tracer can observe
// the state between the stages.
func (c *CPU) DecodeExecute(inst Instruction) (valE, valA uint64, cond bool) {
	switch inst.Type {
	case HALT:
		c.Stat = HLT
	case NOP:
	case CMOV:
		valA = c.ReadReg(inst.RA)
		valE = valA
		cond = c.evalCmov(inst.Cmov)
	case IRMOVQ:
		valE = inst.Value
	case RMMOVQ:
		valA = c.ReadReg(inst.RA)
		valE = inst.D + c.ReadReg(inst.RB)
	case MRMOVQ:
		valE = inst.D + c.ReadReg(inst.RB)
	case OPQ:
		valA = c.ReadReg(inst.RA)
		valE = c.alu(inst.Op, c.ReadReg(inst.RB), valA)
	case JUMP:
		cond = c.evalJump(inst.Jump)
	case CALL:
		valE = c.ReadReg(RSP) - 8
	case RET:
		valA = c.ReadReg(RSP)
		valE = valA + 8
	case PUSHQ:
		valA = c.ReadReg(inst.RA)
		valE = c.ReadReg(RSP) - 8
	case POPQ:
		valA = c.ReadReg(RSP)
		valE = valA + 8
	default:
		// Keep an ADR recorded by fetch; anything else that
		// reaches here failed to decode.
		if c.Stat == AOK {
			c.Stat = INS
		}
	}
	return valE, valA, cond
}

// MemoryWbPC runs the memory, write-back and PC-update stages. Every
// memory access is bounds-checked; a violation records ADR and parks
// the PC at the fault sentinel, except for MRMOVQ which has already
// advanced the PC past the instruction when it faults.
func (c *CPU) MemoryWbPC(mem memory.Image, inst Instruction, valE, valA uint64, cond bool) {
	switch inst.Type {
	case HALT:
		c.SF = false
		c.ZF = false
		c.OF = false
		c.PC += inst.Size
	case NOP:
		c.PC += inst.Size
	case CMOV:
		if cond {
			c.WriteReg(inst.RB, valE)
		}
		c.PC += inst.Size
	case IRMOVQ:
		c.WriteReg(inst.RB, valE)
		c.PC += inst.Size
	case OPQ:
		c.WriteReg(inst.RB, valE)
		c.PC += inst.Size
	case RMMOVQ:
		if !c.store(mem, valE, valA) {
			return
		}
		c.PC += inst.Size
	case MRMOVQ:
		c.PC += inst.Size
		valM, ok := mem.ReadQuad(valE)
		if !ok {
			c.Stat = ADR
			return
		}
		c.WriteReg(inst.RA, valM)
	case JUMP:
		if cond {
			c.PC = inst.Dest
		} else {
			c.PC += inst.Size
		}
	case CALL:
		if !c.store(mem, valE, c.PC+inst.Size) {
			return
		}
		c.WriteReg(RSP, valE)
		c.PC = inst.Dest
	case RET:
		valM, ok := mem.ReadQuad(valA)
		if !ok {
			c.addrFault()
			return
		}
		c.WriteReg(RSP, valE)
		c.PC = valM
	case PUSHQ:
		if !c.store(mem, valE, valA) {
			return
		}
		c.WriteReg(RSP, valE)
		c.PC += inst.Size
	case POPQ:
		valM, ok := mem.ReadQuad(valA)
		if !ok {
			c.addrFault()
			return
		}
		c.WriteReg(RSP, valE)
		c.WriteReg(inst.RA, valM)
		c.PC += inst.Size
	}
}

// store writes a quad and reports each successful store, faulting the
// CPU when the address is out of range.
func (c *CPU) store(mem memory.Image, addr, value uint64) bool {
	if !mem.WriteQuad(addr, value) {
		c.addrFault()
		return false
	}
	fmt.Printf("Memory write to 0x%04x: 0x%x\n", addr, value)
	return true
}
