package debugger

import (
	"fmt"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// Breakpoint decides whether execution should stop at a state.
type Breakpoint interface {
	Hit(st State) (bool, error)
	String() string
}

// AddressBreakpoint stops when PC reaches an address.
type AddressBreakpoint struct {
	PC uint16
}

func NewAddressBreakpoint(pc uint16) *AddressBreakpoint {
	return &AddressBreakpoint{PC: pc}
}

func (b *AddressBreakpoint) Hit(st State) (bool, error) {
	return st.PC == b.PC, nil
}

func (b *AddressBreakpoint) String() string {
	return fmt.Sprintf("$%04X", b.PC)
}

// LuaBreakpoint stops when a Lua expression is truthy. The expression sees
// pc, sp, a, f, b, c, d, e, h, l as numbers, ime and halted as booleans,
// and mem(addr) reading a byte.
type LuaBreakpoint struct {
	expr string
	L    *lua.LState
	fn   *lua.LFunction
	st   State
}

// NewLuaBreakpoint compiles expr once.
func NewLuaBreakpoint(expr string) (*LuaBreakpoint, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	fn, err := L.LoadString("return " + expr)
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("compile %q: %w", expr, err)
	}
	b := &LuaBreakpoint{expr: expr, L: L, fn: fn}
	L.SetGlobal("mem", L.NewFunction(b.mem))
	return b, nil
}

func (b *LuaBreakpoint) mem(L *lua.LState) int {
	addr := L.CheckInt(1)
	var v byte
	if b.st.Mem != nil {
		v = b.st.Mem.Read(uint16(addr))
	}
	L.Push(lua.LNumber(v))
	return 1
}

func (b *LuaBreakpoint) Hit(st State) (bool, error) {
	b.st = st
	L := b.L
	for name, v := range map[string]int{
		"pc": int(st.PC), "sp": int(st.SP),
		"a": int(st.A), "f": int(st.F), "b": int(st.B), "c": int(st.C),
		"d": int(st.D), "e": int(st.E), "h": int(st.H), "l": int(st.L),
	} {
		L.SetGlobal(name, lua.LNumber(v))
	}
	L.SetGlobal("ime", lua.LBool(st.IME))
	L.SetGlobal("halted", lua.LBool(st.Halted))

	if err := L.CallByParam(lua.P{Fn: b.fn, NRet: 1, Protect: true}); err != nil {
		return false, err
	}
	ret := L.Get(-1)
	L.Pop(1)
	return lua.LVAsBool(ret), nil
}

func (b *LuaBreakpoint) String() string {
	return b.expr
}

// Close releases the Lua state.
func (b *LuaBreakpoint) Close() {
	b.L.Close()
}

// ParseBreakpoint reads a hex address written $0150 or 0x150. Anything
// else is compiled as a Lua condition.
func ParseBreakpoint(s string) (Breakpoint, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, prefix := range []string{"$", "0x"} {
		if hex, ok := strings.CutPrefix(lower, prefix); ok {
			v, err := strconv.ParseUint(hex, 16, 16)
			if err != nil {
				return nil, fmt.Errorf("breakpoint address %q: %w", s, err)
			}
			return NewAddressBreakpoint(uint16(v)), nil
		}
	}
	return NewLuaBreakpoint(s)
}
