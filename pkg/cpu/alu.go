package cpu

// 8-bit arithmetic on the accumulator. Half-carry is taken from the
// pre-operation low nibbles, carry from bit 7.

func (c *CPU) add8(v byte, withCarry bool) {
	var cin uint16
	if withCarry && c.Regs.Flag(FlagC) {
		cin = 1
	}
	a := c.Regs.A
	sum := uint16(a) + uint16(v) + cin
	h := uint16(a&0x0F)+uint16(v&0x0F)+cin > 0x0F
	c.Regs.A = byte(sum)
	c.Regs.setFlags(c.Regs.A == 0, false, h, sum > 0xFF)
}

// sub8 implements SUB, SBC and CP. CP passes store=false.
func (c *CPU) sub8(v byte, withCarry, store bool) {
	var cin int
	if withCarry && c.Regs.Flag(FlagC) {
		cin = 1
	}
	a := c.Regs.A
	diff := int(a) - int(v) - cin
	h := int(a&0x0F)-int(v&0x0F)-cin < 0
	res := byte(diff)
	c.Regs.setFlags(res == 0, true, h, diff < 0)
	if store {
		c.Regs.A = res
	}
}

func (c *CPU) and8(v byte) {
	c.Regs.A &= v
	c.Regs.setFlags(c.Regs.A == 0, false, true, false)
}

func (c *CPU) or8(v byte) {
	c.Regs.A |= v
	c.Regs.setFlags(c.Regs.A == 0, false, false, false)
}

func (c *CPU) xor8(v byte) {
	c.Regs.A ^= v
	c.Regs.setFlags(c.Regs.A == 0, false, false, false)
}

// inc8 and dec8 leave the carry flag alone.
func (c *CPU) inc8(v byte) byte {
	res := v + 1
	c.Regs.SetFlag(FlagZ, res == 0)
	c.Regs.SetFlag(FlagN, false)
	c.Regs.SetFlag(FlagH, v&0x0F == 0x0F)
	return res
}

func (c *CPU) dec8(v byte) byte {
	res := v - 1
	c.Regs.SetFlag(FlagZ, res == 0)
	c.Regs.SetFlag(FlagN, true)
	c.Regs.SetFlag(FlagH, v&0x0F == 0)
	return res
}

// addHL adds v to HL: N cleared, H from bit 11, C from bit 15, Z kept.
func (c *CPU) addHL(v uint16) {
	hl := c.Regs.HL()
	sum := uint32(hl) + uint32(v)
	c.Regs.SetFlag(FlagN, false)
	c.Regs.SetFlag(FlagH, (hl&0x0FFF)+(v&0x0FFF) > 0x0FFF)
	c.Regs.SetFlag(FlagC, sum > 0xFFFF)
	c.Regs.SetHL(uint16(sum))
}

// spOffset returns SP plus the sign-extended displacement d and sets flags
// for ADD SP,r8 and LD HL,SP+r8: Z and N cleared, H and C from bits 11 and
// 15 of the 16-bit addition.
func (c *CPU) spOffset(d byte) uint16 {
	off := uint16(int16(int8(d)))
	sp := c.SP
	sum := uint32(sp) + uint32(off)
	h := (sp&0x0FFF)+(off&0x0FFF) > 0x0FFF
	c.Regs.setFlags(false, false, h, sum > 0xFFFF)
	return uint16(sum)
}

// daa corrects A to packed BCD after an addition or subtraction.
func (c *CPU) daa() {
	a := c.Regs.A
	carry := c.Regs.Flag(FlagC)
	if !c.Regs.Flag(FlagN) {
		if carry || a > 0x99 {
			a += 0x60
			carry = true
		}
		if c.Regs.Flag(FlagH) || a&0x0F > 0x09 {
			a += 0x06
		}
	} else {
		if carry {
			a -= 0x60
		}
		if c.Regs.Flag(FlagH) {
			a -= 0x06
		}
	}
	c.Regs.A = a
	c.Regs.SetFlag(FlagZ, a == 0)
	c.Regs.SetFlag(FlagH, false)
	c.Regs.SetFlag(FlagC, carry)
}

// Rotates and shifts. Each returns the result and sets Z from it, clears N
// and H, and loads C with the bit shifted out.

func (c *CPU) shiftFlags(res byte, out bool) byte {
	c.Regs.setFlags(res == 0, false, false, out)
	return res
}

func (c *CPU) rlc(v byte) byte {
	return c.shiftFlags(v<<1|v>>7, v&0x80 != 0)
}

func (c *CPU) rrc(v byte) byte {
	return c.shiftFlags(v>>1|v<<7, v&0x01 != 0)
}

func (c *CPU) rl(v byte) byte {
	var cin byte
	if c.Regs.Flag(FlagC) {
		cin = 1
	}
	return c.shiftFlags(v<<1|cin, v&0x80 != 0)
}

func (c *CPU) rr(v byte) byte {
	var cin byte
	if c.Regs.Flag(FlagC) {
		cin = 0x80
	}
	return c.shiftFlags(v>>1|cin, v&0x01 != 0)
}

func (c *CPU) sla(v byte) byte {
	return c.shiftFlags(v<<1, v&0x80 != 0)
}

func (c *CPU) sra(v byte) byte {
	return c.shiftFlags(v>>1|v&0x80, v&0x01 != 0)
}

func (c *CPU) srl(v byte) byte {
	return c.shiftFlags(v>>1, v&0x01 != 0)
}

func (c *CPU) swap(v byte) byte {
	return c.shiftFlags(v<<4|v>>4, false)
}

// bit tests bit b of v: Z set when the bit is clear, N cleared, H set, C kept.
func (c *CPU) bit(b uint, v byte) {
	c.Regs.SetFlag(FlagZ, v&(1<<b) == 0)
	c.Regs.SetFlag(FlagN, false)
	c.Regs.SetFlag(FlagH, true)
}
