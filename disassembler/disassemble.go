// Package disassembler renders decoded instructions and loaded
// segments in their canonical textual form.
package disassembler

import (
	"fmt"

	"github.com/minielf/y86/cpu"
)

var cmovNames = [...]string{"rrmovq", "cmovle", "cmovl", "cmove", "cmovne", "cmovge", "cmovg"}
var opNames = [...]string{"addq", "subq", "andq", "xorq"}
var jumpNames = [...]string{"jmp", "jle", "jl", "je", "jne", "jge", "jg"}

// Disassemble renders one instruction. The output depends only on
// the instruction record, never on surrounding memory.
func Disassemble(inst cpu.Instruction) string {
	switch inst.Type {
	case cpu.HALT:
		return "halt"
	case cpu.NOP:
		return "nop"
	case cpu.CMOV:
		if inst.Cmov >= cpu.BADCMOV {
			return "invalid"
		}
		return fmt.Sprintf("%s %s, %s", cmovNames[inst.Cmov], inst.RA, inst.RB)
	case cpu.IRMOVQ:
		return fmt.Sprintf("irmovq 0x%x, %s", inst.Value, inst.RB)
	case cpu.RMMOVQ:
		if inst.RB == cpu.BadReg {
			return fmt.Sprintf("rmmovq %s, 0x%x", inst.RA, inst.D)
		}
		return fmt.Sprintf("rmmovq %s, 0x%x(%s)", inst.RA, inst.D, inst.RB)
	case cpu.MRMOVQ:
		if inst.RB == cpu.BadReg {
			return fmt.Sprintf("mrmovq 0x%x, %s", inst.D, inst.RA)
		}
		return fmt.Sprintf("mrmovq 0x%x(%s), %s", inst.D, inst.RB, inst.RA)
	case cpu.OPQ:
		if inst.Op >= cpu.BADOP {
			return "invalid"
		}
		return fmt.Sprintf("%s %s, %s", opNames[inst.Op], inst.RA, inst.RB)
	case cpu.JUMP:
		if inst.Jump >= cpu.BADJUMP {
			return "invalid"
		}
		return fmt.Sprintf("%s 0x%x", jumpNames[inst.Jump], inst.Dest)
	case cpu.CALL:
		return fmt.Sprintf("call 0x%x", inst.Dest)
	case cpu.RET:
		return "ret"
	case cpu.PUSHQ:
		return fmt.Sprintf("pushq %s", inst.RA)
	case cpu.POPQ:
		return fmt.Sprintf("popq %s", inst.RA)
	}
	return "invalid"
}
