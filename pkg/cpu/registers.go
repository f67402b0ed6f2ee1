package cpu

import "fmt"

// Flag is a bit of the F register.
type Flag byte

const (
	FlagZ Flag = 0x80 // zero
	FlagN Flag = 0x40 // subtract
	FlagH Flag = 0x20 // half-carry
	FlagC Flag = 0x10 // carry
)

// flagMask keeps the four defined flag bits; the low nibble of F is always 0.
const flagMask = 0xF0

// Pair selects a 16-bit register pair.
type Pair int

const (
	PairAF Pair = iota
	PairBC
	PairDE
	PairHL
)

func (p Pair) String() string {
	switch p {
	case PairAF:
		return "AF"
	case PairBC:
		return "BC"
	case PairDE:
		return "DE"
	case PairHL:
		return "HL"
	}
	return fmt.Sprintf("Pair(%d)", int(p))
}

// Registers is the 8-bit register file. Pairs are composed on demand with
// the first-named register as the high byte.
type Registers struct {
	A, F byte
	B, C byte
	D, E byte
	H, L byte
}

func join(hi, lo byte) uint16 {
	return uint16(hi)<<8 | uint16(lo)
}

// Get returns the 16-bit value of pair p.
func (r *Registers) Get(p Pair) uint16 {
	switch p {
	case PairAF:
		return join(r.A, r.F)
	case PairBC:
		return join(r.B, r.C)
	case PairDE:
		return join(r.D, r.E)
	case PairHL:
		return join(r.H, r.L)
	}
	return 0
}

// Set writes v to pair p. Writing AF drops the low nibble of F.
func (r *Registers) Set(p Pair, v uint16) {
	hi, lo := byte(v>>8), byte(v)
	switch p {
	case PairAF:
		r.A, r.F = hi, lo&flagMask
	case PairBC:
		r.B, r.C = hi, lo
	case PairDE:
		r.D, r.E = hi, lo
	case PairHL:
		r.H, r.L = hi, lo
	}
}

func (r *Registers) AF() uint16 { return r.Get(PairAF) }
func (r *Registers) BC() uint16 { return r.Get(PairBC) }
func (r *Registers) DE() uint16 { return r.Get(PairDE) }
func (r *Registers) HL() uint16 { return r.Get(PairHL) }

func (r *Registers) SetAF(v uint16) { r.Set(PairAF, v) }
func (r *Registers) SetBC(v uint16) { r.Set(PairBC, v) }
func (r *Registers) SetDE(v uint16) { r.Set(PairDE, v) }
func (r *Registers) SetHL(v uint16) { r.Set(PairHL, v) }

// Flag reports whether f is set.
func (r *Registers) Flag(f Flag) bool {
	return r.F&byte(f) != 0
}

// SetFlag sets or clears f without touching the other flags.
func (r *Registers) SetFlag(f Flag, on bool) {
	if on {
		r.F |= byte(f)
	} else {
		r.F &^= byte(f)
	}
	r.F &= flagMask
}

// setFlags replaces all four flags at once.
func (r *Registers) setFlags(z, n, h, c bool) {
	var f byte
	if z {
		f |= byte(FlagZ)
	}
	if n {
		f |= byte(FlagN)
	}
	if h {
		f |= byte(FlagH)
	}
	if c {
		f |= byte(FlagC)
	}
	r.F = f
}

// FlagString renders the flags as "ZNHC", with '-' for each clear bit.
func (r *Registers) FlagString() string {
	b := []byte("----")
	for i, f := range []Flag{FlagZ, FlagN, FlagH, FlagC} {
		if r.Flag(f) {
			b[i] = "ZNHC"[i]
		}
	}
	return string(b)
}

func (r Registers) String() string {
	return fmt.Sprintf("AF=%04X BC=%04X DE=%04X HL=%04X %s",
		r.AF(), r.BC(), r.DE(), r.HL(), r.FlagString())
}
