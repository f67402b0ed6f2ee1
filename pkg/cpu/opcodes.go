package cpu

import "fmt"

var (
	r8Names    = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
	r16Names   = [4]string{"BC", "DE", "HL", "SP"}
	stackNames = [4]string{"BC", "DE", "HL", "AF"}
	condNames  = [4]string{"NZ", "Z", "NC", "C"}
)

const hlIndirect = 6

// do adapts a non-branching, non-faulting operation to an execFunc.
func do(f func(c *CPU, arg uint16)) execFunc {
	return func(c *CPU, arg uint16) (bool, error) {
		f(c, arg)
		return false, nil
	}
}

func (c *CPU) cond(i int) bool {
	switch i {
	case 0:
		return !c.Regs.Flag(FlagZ)
	case 1:
		return c.Regs.Flag(FlagZ)
	case 2:
		return !c.Regs.Flag(FlagC)
	default:
		return c.Regs.Flag(FlagC)
	}
}

// cost returns the register form cost, or the (HL) form cost for operand 6.
func cost(i, reg, mem int) int {
	if i == hlIndirect {
		return mem
	}
	return reg
}

func buildBase() {
	buildLoads()
	buildALU()
	buildControl()
	buildMisc()
}

func buildLoads() {
	// LD r,r'. 0x76 would be LD (HL),(HL) and is HALT instead.
	for dst := 0; dst < 8; dst++ {
		for src := 0; src < 8; src++ {
			op := byte(0x40 | dst<<3 | src)
			if op == 0x76 {
				continue
			}
			d, s := dst, src
			cycles := 4
			if d == hlIndirect || s == hlIndirect {
				cycles = 8
			}
			def(op, fmt.Sprintf("LD %s,%s", r8Names[d], r8Names[s]), cycles, "----",
				do(func(c *CPU, _ uint16) { c.set8(d, c.get8(s)) }))
		}
	}

	for i := 0; i < 8; i++ {
		r := i
		def(byte(0x06|r<<3), fmt.Sprintf("LD %s,d8", r8Names[r]), cost(r, 8, 12), "----",
			do(func(c *CPU, arg uint16) { c.set8(r, byte(arg)) }))
	}

	// Indirect accumulator loads through BC, DE and HL with post-step.
	def(0x02, "LD (BC),A", 8, "----", do(func(c *CPU, _ uint16) { c.Memory.Write(c.Regs.BC(), c.Regs.A) }))
	def(0x12, "LD (DE),A", 8, "----", do(func(c *CPU, _ uint16) { c.Memory.Write(c.Regs.DE(), c.Regs.A) }))
	def(0x22, "LD (HL+),A", 8, "----", do(func(c *CPU, _ uint16) {
		hl := c.Regs.HL()
		c.Memory.Write(hl, c.Regs.A)
		c.Regs.SetHL(hl + 1)
	}))
	def(0x32, "LD (HL-),A", 8, "----", do(func(c *CPU, _ uint16) {
		hl := c.Regs.HL()
		c.Memory.Write(hl, c.Regs.A)
		c.Regs.SetHL(hl - 1)
	}))
	def(0x0A, "LD A,(BC)", 8, "----", do(func(c *CPU, _ uint16) { c.Regs.A = c.Memory.Read(c.Regs.BC()) }))
	def(0x1A, "LD A,(DE)", 8, "----", do(func(c *CPU, _ uint16) { c.Regs.A = c.Memory.Read(c.Regs.DE()) }))
	def(0x2A, "LD A,(HL+)", 8, "----", do(func(c *CPU, _ uint16) {
		hl := c.Regs.HL()
		c.Regs.A = c.Memory.Read(hl)
		c.Regs.SetHL(hl + 1)
	}))
	def(0x3A, "LD A,(HL-)", 8, "----", do(func(c *CPU, _ uint16) {
		hl := c.Regs.HL()
		c.Regs.A = c.Memory.Read(hl)
		c.Regs.SetHL(hl - 1)
	}))

	// Zero page and absolute.
	def(0xE0, "LDH (a8),A", 12, "----", do(func(c *CPU, arg uint16) { c.Memory.Write(0xFF00+arg, c.Regs.A) }))
	def(0xF0, "LDH A,(a8)", 12, "----", do(func(c *CPU, arg uint16) { c.Regs.A = c.Memory.Read(0xFF00 + arg) }))
	def(0xE2, "LD (C),A", 8, "----", do(func(c *CPU, _ uint16) { c.Memory.Write(0xFF00+uint16(c.Regs.C), c.Regs.A) }))
	def(0xF2, "LD A,(C)", 8, "----", do(func(c *CPU, _ uint16) { c.Regs.A = c.Memory.Read(0xFF00 + uint16(c.Regs.C)) }))
	def(0xEA, "LD (a16),A", 16, "----", do(func(c *CPU, arg uint16) { c.Memory.Write(arg, c.Regs.A) }))
	def(0xFA, "LD A,(a16)", 16, "----", do(func(c *CPU, arg uint16) { c.Regs.A = c.Memory.Read(arg) }))

	// 16-bit loads.
	for i := 0; i < 4; i++ {
		rr := i
		def(byte(0x01|rr<<4), fmt.Sprintf("LD %s,d16", r16Names[rr]), 12, "----",
			do(func(c *CPU, arg uint16) { c.set16(rr, arg) }))
	}
	def(0x08, "LD (a16),SP", 20, "----", do(func(c *CPU, arg uint16) { c.Memory.Write16(arg, c.SP) }))
	def(0xF9, "LD SP,HL", 8, "----", do(func(c *CPU, _ uint16) { c.SP = c.Regs.HL() }))
	def(0xF8, "LD HL,SP+r8", 12, "00HC", do(func(c *CPU, arg uint16) { c.Regs.SetHL(c.spOffset(byte(arg))) }))

	for i := 0; i < 4; i++ {
		p := Pair((i + 1) % 4) // BC, DE, HL, AF
		def(byte(0xC5|i<<4), "PUSH "+stackNames[i], 16, "----", func(c *CPU, _ uint16) (bool, error) {
			return false, c.push(c.Regs.Get(p))
		})
		flags := "----"
		if p == PairAF {
			flags = "ZNHC"
		}
		def(byte(0xC1|i<<4), "POP "+stackNames[i], 12, flags, do(func(c *CPU, _ uint16) {
			c.Regs.Set(p, c.pop())
		}))
	}
}

func buildALU() {
	type aluOp struct {
		name  string
		flags string
		apply func(c *CPU, v byte)
	}
	ops := [8]aluOp{
		{"ADD A,", "Z0HC", func(c *CPU, v byte) { c.add8(v, false) }},
		{"ADC A,", "Z0HC", func(c *CPU, v byte) { c.add8(v, true) }},
		{"SUB ", "Z1HC", func(c *CPU, v byte) { c.sub8(v, false, true) }},
		{"SBC A,", "Z1HC", func(c *CPU, v byte) { c.sub8(v, true, true) }},
		{"AND ", "Z010", (*CPU).and8},
		{"XOR ", "Z000", (*CPU).xor8},
		{"OR ", "Z000", (*CPU).or8},
		{"CP ", "Z1HC", func(c *CPU, v byte) { c.sub8(v, false, false) }},
	}
	for k, o := range ops {
		apply := o.apply
		for i := 0; i < 8; i++ {
			r := i
			def(byte(0x80|k<<3|r), o.name+r8Names[r], cost(r, 4, 8), o.flags,
				do(func(c *CPU, _ uint16) { apply(c, c.get8(r)) }))
		}
		def(byte(0xC6|k<<3), o.name+"d8", 8, o.flags,
			do(func(c *CPU, arg uint16) { apply(c, byte(arg)) }))
	}

	for i := 0; i < 8; i++ {
		r := i
		def(byte(0x04|r<<3), "INC "+r8Names[r], cost(r, 4, 12), "Z0H-",
			do(func(c *CPU, _ uint16) { c.set8(r, c.inc8(c.get8(r))) }))
		def(byte(0x05|r<<3), "DEC "+r8Names[r], cost(r, 4, 12), "Z1H-",
			do(func(c *CPU, _ uint16) { c.set8(r, c.dec8(c.get8(r))) }))
	}

	for i := 0; i < 4; i++ {
		rr := i
		def(byte(0x03|rr<<4), "INC "+r16Names[rr], 8, "----",
			do(func(c *CPU, _ uint16) { c.set16(rr, c.get16(rr)+1) }))
		def(byte(0x0B|rr<<4), "DEC "+r16Names[rr], 8, "----",
			do(func(c *CPU, _ uint16) { c.set16(rr, c.get16(rr)-1) }))
		def(byte(0x09|rr<<4), "ADD HL,"+r16Names[rr], 8, "-0HC",
			do(func(c *CPU, _ uint16) { c.addHL(c.get16(rr)) }))
	}
	def(0xE8, "ADD SP,r8", 16, "00HC", do(func(c *CPU, arg uint16) { c.SP = c.spOffset(byte(arg)) }))

	// Accumulator rotates always clear Z.
	def(0x07, "RLCA", 4, "000C", do(func(c *CPU, _ uint16) { c.Regs.A = c.rlc(c.Regs.A); c.Regs.SetFlag(FlagZ, false) }))
	def(0x0F, "RRCA", 4, "000C", do(func(c *CPU, _ uint16) { c.Regs.A = c.rrc(c.Regs.A); c.Regs.SetFlag(FlagZ, false) }))
	def(0x17, "RLA", 4, "000C", do(func(c *CPU, _ uint16) { c.Regs.A = c.rl(c.Regs.A); c.Regs.SetFlag(FlagZ, false) }))
	def(0x1F, "RRA", 4, "000C", do(func(c *CPU, _ uint16) { c.Regs.A = c.rr(c.Regs.A); c.Regs.SetFlag(FlagZ, false) }))
}

func buildControl() {
	def(0xC3, "JP a16", 16, "----", do(func(c *CPU, arg uint16) { c.PC = arg }))
	def(0xE9, "JP (HL)", 4, "----", do(func(c *CPU, _ uint16) { c.PC = c.Regs.HL() }))
	def(0x18, "JR r8", 8, "----", do(func(c *CPU, arg uint16) { c.PC += uint16(int8(arg)) }))
	def(0xCD, "CALL a16", 24, "----", func(c *CPU, arg uint16) (bool, error) {
		if err := c.push(c.PC); err != nil {
			return false, err
		}
		c.PC = arg
		return false, nil
	})
	def(0xC9, "RET", 16, "----", do(func(c *CPU, _ uint16) { c.PC = c.pop() }))
	def(0xD9, "RETI", 16, "----", do(func(c *CPU, _ uint16) {
		c.PC = c.pop()
		c.IME = true
	}))

	for i := 0; i < 4; i++ {
		cc := i
		name := condNames[cc]

		def(byte(0xC2|cc<<3), "JP "+name+",a16", 12, "----", func(c *CPU, arg uint16) (bool, error) {
			if !c.cond(cc) {
				return false, nil
			}
			c.PC = arg
			return true, nil
		}).TakenCycles = 16

		// JR costs the same whether or not it branches.
		def(byte(0x20|cc<<3), "JR "+name+",r8", 8, "----", func(c *CPU, arg uint16) (bool, error) {
			if !c.cond(cc) {
				return false, nil
			}
			c.PC += uint16(int8(arg))
			return true, nil
		})

		def(byte(0xC4|cc<<3), "CALL "+name+",a16", 12, "----", func(c *CPU, arg uint16) (bool, error) {
			if !c.cond(cc) {
				return false, nil
			}
			if err := c.push(c.PC); err != nil {
				return false, err
			}
			c.PC = arg
			return true, nil
		}).TakenCycles = 24

		def(byte(0xC0|cc<<3), "RET "+name, 8, "----", func(c *CPU, _ uint16) (bool, error) {
			if !c.cond(cc) {
				return false, nil
			}
			c.PC = c.pop()
			return true, nil
		}).TakenCycles = 20
	}

	for n := 0; n < 8; n++ {
		vector := uint16(n * 8)
		def(byte(0xC7|n<<3), fmt.Sprintf("RST %02XH", vector), 16, "----", func(c *CPU, _ uint16) (bool, error) {
			if err := c.push(c.PC); err != nil {
				return false, err
			}
			c.PC = vector
			return false, nil
		})
	}
}

func buildMisc() {
	def(0x00, "NOP", 4, "----", do(func(*CPU, uint16) {}))
	def(0x76, "HALT", 4, "----", do(func(c *CPU, _ uint16) { c.Halted = true }))
	// STOP is followed by a padding byte.
	def(0x10, "STOP", 4, "----", do(func(c *CPU, _ uint16) { c.Halted = true })).Length = 2
	def(0xF3, "DI", 4, "----", do(func(c *CPU, _ uint16) { c.IME = false }))
	def(0xFB, "EI", 4, "----", do(func(c *CPU, _ uint16) { c.IME = true }))

	def(0x27, "DAA", 4, "Z-0C", do(func(c *CPU, _ uint16) { c.daa() }))
	def(0x2F, "CPL", 4, "-11-", do(func(c *CPU, _ uint16) {
		c.Regs.A = ^c.Regs.A
		c.Regs.SetFlag(FlagN, true)
		c.Regs.SetFlag(FlagH, true)
	}))
	def(0x37, "SCF", 4, "-001", do(func(c *CPU, _ uint16) {
		c.Regs.SetFlag(FlagN, false)
		c.Regs.SetFlag(FlagH, false)
		c.Regs.SetFlag(FlagC, true)
	}))
	def(0x3F, "CCF", 4, "-00C", do(func(c *CPU, _ uint16) {
		c.Regs.SetFlag(FlagN, false)
		c.Regs.SetFlag(FlagH, false)
		c.Regs.SetFlag(FlagC, !c.Regs.Flag(FlagC))
	}))
}

func buildCB() {
	shifts := [8]struct {
		name string
		fn   func(c *CPU, v byte) byte
	}{
		{"RLC", (*CPU).rlc},
		{"RRC", (*CPU).rrc},
		{"RL", (*CPU).rl},
		{"RR", (*CPU).rr},
		{"SLA", (*CPU).sla},
		{"SRA", (*CPU).sra},
		{"SWAP", (*CPU).swap},
		{"SRL", (*CPU).srl},
	}
	for k, s := range shifts {
		fn := s.fn
		flags := "Z00C"
		if s.name == "SWAP" {
			flags = "Z000"
		}
		for i := 0; i < 8; i++ {
			r := i
			defCB(byte(k<<3|r), s.name+" "+r8Names[r], cost(r, 8, 16), flags,
				do(func(c *CPU, _ uint16) { c.set8(r, fn(c, c.get8(r))) }))
		}
	}

	for b := 0; b < 8; b++ {
		bit := uint(b)
		for i := 0; i < 8; i++ {
			r := i
			operands := fmt.Sprintf("%d,%s", b, r8Names[r])
			defCB(byte(0x40|b<<3|r), "BIT "+operands, cost(r, 8, 12), "Z01-",
				do(func(c *CPU, _ uint16) { c.bit(bit, c.get8(r)) }))
			defCB(byte(0x80|b<<3|r), "RES "+operands, cost(r, 8, 16), "----",
				do(func(c *CPU, _ uint16) { c.set8(r, c.get8(r)&^(1<<bit)) }))
			defCB(byte(0xC0|b<<3|r), "SET "+operands, cost(r, 8, 16), "----",
				do(func(c *CPU, _ uint16) { c.set8(r, c.get8(r)|1<<bit) }))
		}
	}
}
