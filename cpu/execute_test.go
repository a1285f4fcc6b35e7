package cpu_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/minielf/y86/cpu"
	"github.com/minielf/y86/memory"
)

// step fetches and executes a single instruction, the way the driver does.
func step(c *cpu.CPU, mem memory.Image) cpu.Instruction {
	inst := cpu.Fetch(c, mem)
	valE, valA, cond := c.DecodeExecute(inst)
	c.MemoryWbPC(mem, inst, valE, valA, cond)
	return inst
}

// run interprets until the status leaves AOK, returning the number of
// executed instructions.
func run(t *testing.T, c *cpu.CPU, mem memory.Image) int {
	t.Helper()
	count := 0
	for c.Stat == cpu.AOK {
		step(c, mem)
		count++
		if c.PC >= memory.Size {
			c.Stat = cpu.ADR
			c.PC = cpu.BadPC
		}
		if count > 1000 {
			t.Fatal("runaway program")
		}
	}
	return count
}

func TestHaltOnly(t *testing.T) {
	c := cpu.New(0)
	count := run(t, c, program(0x00))
	if c.Stat != cpu.HLT || c.PC != 1 || count != 1 {
		t.Errorf("got stat %v pc %d count %d, want HLT/1/1", c.Stat, c.PC, count)
	}
	for r, v := range c.Reg {
		if v != 0 {
			t.Errorf("register %d changed to %#x", r, v)
		}
	}
}

func TestIrmovqThenHalt(t *testing.T) {
	mem := program(0x30, 0xf0, 0x2a, 0, 0, 0, 0, 0, 0, 0, 0x00)
	c := cpu.New(0)
	count := run(t, c, mem)
	if c.Reg[cpu.RAX] != 0x2a || c.PC != 11 || c.Stat != cpu.HLT || count != 2 {
		t.Errorf("got rax %#x pc %d stat %v count %d, want 0x2a/11/HLT/2",
			c.Reg[cpu.RAX], c.PC, c.Stat, count)
	}
}

func TestAddOverflow(t *testing.T) {
	// addq %rcx, %rax with rax at the signed maximum.
	mem := program(0x60, 0x10, 0x00)
	c := cpu.New(0)
	c.Reg[cpu.RAX] = 0x7fffffffffffffff
	c.Reg[cpu.RCX] = 1
	step(c, mem)
	if c.Reg[cpu.RAX] != 0x8000000000000000 {
		t.Errorf("rax: got %#x, want 0x8000000000000000", c.Reg[cpu.RAX])
	}
	if !c.SF || c.ZF || !c.OF {
		t.Errorf("flags: got SF=%v ZF=%v OF=%v, want SF=1 ZF=0 OF=1", c.SF, c.ZF, c.OF)
	}
}

func TestALUFlags(t *testing.T) {
	tests := []struct {
		name       string
		op         byte // low nibble of the opq opcode
		b, a       uint64
		want       uint64
		sf, zf, of bool
	}{
		{"add simple", 0x0, 2, 3, 5, false, false, false},
		{"add wraps unsigned", 0x0, 0xffffffffffffffff, 1, 0, false, true, false},
		{"add negative overflow", 0x0, 0x8000000000000000, 0x8000000000000000, 0, false, true, true},
		{"sub to zero", 0x1, 5, 5, 0, false, true, false},
		{"sub negative", 0x1, 3, 5, 0xfffffffffffffffe, true, false, false},
		{"sub overflow", 0x1, 0x8000000000000000, 1, 0x7fffffffffffffff, false, false, true},
		{"and clears of", 0x2, 0xff00, 0x0ff0, 0x0f00, false, false, false},
		{"and sign bit", 0x2, 0x8000000000000000, 0xffffffffffffffff, 0x8000000000000000, true, false, false},
		{"xor clears of", 0x3, 0xff, 0xff, 0, false, true, false},
	}
	for _, tt := range tests {
		// opq ra=%rax (value a), rb=%rcx (value b): result goes to rb.
		mem := program(0x60|tt.op, 0x01)
		c := cpu.New(0)
		c.Reg[cpu.RAX] = tt.a
		c.Reg[cpu.RCX] = tt.b
		// Start from set flags so clears are observable.
		c.OF = true
		step(c, mem)
		if c.Reg[cpu.RCX] != tt.want {
			t.Errorf("%s: got %#x, want %#x", tt.name, c.Reg[cpu.RCX], tt.want)
		}
		if c.SF != tt.sf || c.ZF != tt.zf || c.OF != tt.of {
			t.Errorf("%s: flags SF=%v ZF=%v OF=%v, want %v/%v/%v",
				tt.name, c.SF, c.ZF, c.OF, tt.sf, tt.zf, tt.of)
		}
	}
}

func TestCallRet(t *testing.T) {
	mem := memory.New()
	// _start: irmovq 0x200, %rsp; call 0x40; halt
	copy(mem, []byte{
		0x30, 0xf4, 0x00, 0x02, 0, 0, 0, 0, 0, 0,
		0x80, 0x40, 0, 0, 0, 0, 0, 0, 0,
		0x00,
	})
	mem[0x40] = 0x00 // callee: halt
	c := cpu.New(0)
	count := run(t, c, mem)

	if c.Stat != cpu.HLT || count != 3 {
		t.Fatalf("got stat %v count %d, want HLT/3", c.Stat, count)
	}
	if c.Reg[cpu.RSP] != 0x1f8 {
		t.Errorf("rsp: got %#x, want 0x1f8", c.Reg[cpu.RSP])
	}
	// The return address (the byte after the call) is on the stack.
	ret, ok := mem.ReadQuad(0x1f8)
	if !ok || ret != 19 {
		t.Errorf("stacked return address: got %#x, want 0x13", ret)
	}
	// The callee halted, so the PC sits one past its halt.
	if c.PC != 0x41 {
		t.Errorf("pc: got %#x, want 0x41", c.PC)
	}
}

func TestRetReturns(t *testing.T) {
	mem := memory.New()
	// irmovq 0x200, %rsp; call 0x40; halt -- callee at 0x40: ret
	copy(mem, []byte{
		0x30, 0xf4, 0x00, 0x02, 0, 0, 0, 0, 0, 0,
		0x80, 0x40, 0, 0, 0, 0, 0, 0, 0,
		0x00,
	})
	mem[0x40] = 0x90
	c := cpu.New(0)
	count := run(t, c, mem)
	if c.Stat != cpu.HLT || count != 4 {
		t.Fatalf("got stat %v count %d, want HLT/4", c.Stat, count)
	}
	if c.Reg[cpu.RSP] != 0x200 {
		t.Errorf("rsp after ret: got %#x, want 0x200", c.Reg[cpu.RSP])
	}
	if c.PC != 20 {
		t.Errorf("pc: got %d, want 20", c.PC)
	}
}

func TestPushPop(t *testing.T) {
	mem := memory.New()
	// irmovq 0x200, %rsp; irmovq 0x42, %rax; pushq %rax; popq %rbx; halt
	copy(mem, []byte{
		0x30, 0xf4, 0x00, 0x02, 0, 0, 0, 0, 0, 0,
		0x30, 0xf0, 0x42, 0, 0, 0, 0, 0, 0, 0,
		0xa0, 0x0f,
		0xb0, 0x3f,
		0x00,
	})
	c := cpu.New(0)
	run(t, c, mem)
	if c.Reg[cpu.RBX] != 0x42 {
		t.Errorf("rbx after push/pop: got %#x, want 0x42", c.Reg[cpu.RBX])
	}
	if c.Reg[cpu.RSP] != 0x200 {
		t.Errorf("rsp balanced: got %#x, want 0x200", c.Reg[cpu.RSP])
	}
	if v, _ := mem.ReadQuad(0x1f8); v != 0x42 {
		t.Errorf("stack slot: got %#x, want 0x42", v)
	}
}

func TestCmov(t *testing.T) {
	tests := []struct {
		name  string
		setup []byte // flag-setting opq
		want  uint64 // rbx afterwards
	}{
		// xorq %r9, %r9 sets ZF, so the move happens.
		{"taken", []byte{0x63, 0x99}, 0x42},
		// addq %rcx, %rcx leaves ZF clear, so it does not.
		{"not taken", []byte{0x60, 0x11}, 0},
	}
	for _, tt := range tests {
		mem := memory.New()
		code := append([]byte{}, tt.setup...)
		code = append(code, 0x23, 0x03, 0x00) // cmove %rax, %rbx; halt
		copy(mem, code)
		c := cpu.New(0)
		c.Reg[cpu.RAX] = 0x42
		c.Reg[cpu.RCX] = 1
		run(t, c, mem)
		if c.Reg[cpu.RBX] != tt.want {
			t.Errorf("%s: rbx got %#x, want %#x", tt.name, c.Reg[cpu.RBX], tt.want)
		}
	}
}

func TestConditions(t *testing.T) {
	// Each case primes the flags with a subtraction rb - ra and then
	// takes (or not) a conditional jump to 0x40.
	tests := []struct {
		name  string
		b, a  uint64
		jump  byte // low nibble of the jump opcode
		taken bool
	}{
		{"jle less", 1, 2, 0x1, true},
		{"jle equal", 2, 2, 0x1, true},
		{"jle greater", 3, 2, 0x1, false},
		{"jl less", 1, 2, 0x2, true},
		{"jl equal", 2, 2, 0x2, false},
		{"je equal", 2, 2, 0x3, true},
		{"je unequal", 1, 2, 0x3, false},
		{"jne unequal", 1, 2, 0x4, true},
		{"jne equal", 2, 2, 0x4, false},
		{"jge greater", 3, 2, 0x5, true},
		{"jge equal", 2, 2, 0x5, true},
		{"jge less", 1, 2, 0x5, false},
		{"jg greater", 3, 2, 0x6, true},
		{"jg equal", 2, 2, 0x6, false},
		{"jmp always", 1, 2, 0x0, true},
	}
	for _, tt := range tests {
		mem := memory.New()
		copy(mem, []byte{
			0x61, 0x01, // subq %rax, %rcx
			0x70 | tt.jump, 0x40, 0, 0, 0, 0, 0, 0, 0,
			0x00,
		})
		mem[0x40] = 0x00
		c := cpu.New(0)
		c.Reg[cpu.RAX] = tt.a
		c.Reg[cpu.RCX] = tt.b
		run(t, c, mem)
		var wantPC uint64 = 12
		if tt.taken {
			wantPC = 0x41
		}
		if c.PC != wantPC {
			t.Errorf("%s: pc got %#x, want %#x", tt.name, c.PC, wantPC)
		}
	}
}

func TestJumpOutOfRange(t *testing.T) {
	mem := program(0x70, 0x00, 0x00, 0x01, 0, 0, 0, 0, 0) // jmp 0x10000
	c := cpu.New(0)
	count := run(t, c, mem)
	if c.Stat != cpu.ADR || c.PC != cpu.BadPC || count != 1 {
		t.Errorf("got stat %v pc %#x count %d, want ADR/sentinel/1", c.Stat, c.PC, count)
	}
}

func TestStoreFaultSetsSentinel(t *testing.T) {
	// rmmovq %rax, 0x10000 stores out of range.
	mem := program(0x40, 0x0f, 0x00, 0x00, 0x01, 0, 0, 0, 0, 0)
	c := cpu.New(0)
	step(c, mem)
	if c.Stat != cpu.ADR || c.PC != cpu.BadPC {
		t.Errorf("got stat %v pc %#x, want ADR with sentinel", c.Stat, c.PC)
	}
}

func TestMrmovqFaultAdvancesPC(t *testing.T) {
	// mrmovq 0x10000, %rax faults after the PC has moved past the
	// instruction, unlike every other memory fault.
	mem := program(0x50, 0x0f, 0x00, 0x00, 0x01, 0, 0, 0, 0, 0)
	c := cpu.New(0)
	step(c, mem)
	if c.Stat != cpu.ADR || c.PC != 10 {
		t.Errorf("got stat %v pc %#x, want ADR with pc 10", c.Stat, c.PC)
	}
	if c.Reg[cpu.RAX] != 0 {
		t.Errorf("rax written despite fault: %#x", c.Reg[cpu.RAX])
	}
}

func TestInvalidOpcodeFaults(t *testing.T) {
	mem := program(0xff)
	c := cpu.New(0)
	inst := cpu.Fetch(c, mem)
	c.DecodeExecute(inst)
	if c.Stat != cpu.INS {
		t.Errorf("stat: got %v, want INS", c.Stat)
	}
	if inst.Opcode != 0xff {
		t.Errorf("opcode: got %#02x, want 0xff", inst.Opcode)
	}
}

func TestDecodeExecutePreservesADR(t *testing.T) {
	// A truncated instruction records ADR in fetch; decode/execute
	// must not downgrade it to INS.
	mem := memory.New()
	mem[memory.Size-1] = 0x30
	c := cpu.New(0)
	c.PC = memory.Size - 1
	inst := cpu.Fetch(c, mem)
	c.DecodeExecute(inst)
	if c.Stat != cpu.ADR {
		t.Errorf("stat: got %v, want ADR", c.Stat)
	}
}

func TestHaltClearsFlags(t *testing.T) {
	// subq %rax, %rcx leaves SF set; the halt that follows clears it.
	mem := program(0x61, 0x01, 0x00)
	c := cpu.New(0)
	c.Reg[cpu.RAX] = 2
	c.Reg[cpu.RCX] = 1
	run(t, c, mem)
	if c.SF || c.ZF || c.OF {
		t.Errorf("flags after halt: SF=%v ZF=%v OF=%v, want all clear", c.SF, c.ZF, c.OF)
	}
}

func TestExecutionPreservesMemory(t *testing.T) {
	// A program with no stores leaves memory untouched.
	mem := program(0x30, 0xf0, 0x2a, 0, 0, 0, 0, 0, 0, 0, 0x10, 0x00)
	snapshot := make(memory.Image, len(mem))
	copy(snapshot, mem)
	c := cpu.New(0)
	run(t, c, mem)
	if diff := cmp.Diff(snapshot, mem); diff != "" {
		t.Errorf("memory changed without stores:\n%s", diff)
	}
}

func TestBadSubKinds(t *testing.T) {
	tests := []struct {
		name string
		inst cpu.Instruction
	}{
		{"bad cmov", cpu.Instruction{Type: cpu.CMOV, Size: 2, Cmov: cpu.BADCMOV, RA: cpu.RAX, RB: cpu.RBX}},
		{"bad op", cpu.Instruction{Type: cpu.OPQ, Size: 2, Op: cpu.BADOP, RA: cpu.RAX, RB: cpu.RBX}},
		{"bad jump", cpu.Instruction{Type: cpu.JUMP, Size: 9, Jump: cpu.BADJUMP}},
	}
	for _, tt := range tests {
		c := cpu.New(0)
		c.DecodeExecute(tt.inst)
		if c.Stat != cpu.INS {
			t.Errorf("%s: stat got %v, want INS", tt.name, c.Stat)
		}
	}
}
