package cpu

// cond evaluates a condition code against the current flags. The
// conditional move and jump encodings share the same ordering, so one
// table serves both.
func (c *CPU) cond(fn uint8) bool {
	switch fn {
	case 0: // unconditional
		return true
	case 1: // le
		return c.ZF || (c.SF != c.OF)
	case 2: // l
		return c.SF != c.OF
	case 3: // e
		return c.ZF
	case 4: // ne
		return !c.ZF
	case 5: // ge
		return c.SF == c.OF
	case 6: // g
		return !c.ZF && c.SF == c.OF
	}
	c.Stat = INS
	return false
}

// evalCmov reports whether a conditional move takes effect.
func (c *CPU) evalCmov(kind CmovKind) bool {
	if kind >= BADCMOV {
		c.Stat = INS
		return false
	}
	return c.cond(uint8(kind))
}

// evalJump reports whether a jump is taken.
func (c *CPU) evalJump(kind JumpKind) bool {
	if kind >= BADJUMP {
		c.Stat = INS
		return false
	}
	return c.cond(uint8(kind))
}
