package asm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"dmgcpu/pkg/cpu"
)

// form is one encodable shape of a mnemonic, taken from the CPU's
// descriptor tables. "LD A,d8" has name LD and operands [A d8].
type form struct {
	in       cpu.Instruction
	operands []string
}

// forms maps a mnemonic to its encodable shapes. Shapes whose operands are
// all literal come first so that LD A,(C) is not read as LD A,(a16).
var forms = buildForms()

func buildForms() map[string][]form {
	out := make(map[string][]form)
	for _, in := range cpu.Mnemonics() {
		name, ops := splitMnemonic(in.Mnemonic)
		out[name] = append(out[name], form{in: in, operands: ops})
	}
	for _, fs := range out {
		sort.SliceStable(fs, func(i, j int) bool {
			return fs[i].literal() && !fs[j].literal()
		})
	}
	return out
}

func splitMnemonic(m string) (string, []string) {
	name, rest, ok := strings.Cut(m, " ")
	if !ok {
		return name, nil
	}
	return name, strings.Split(rest, ",")
}

func (f form) literal() bool {
	for _, op := range f.operands {
		if isPlaceholder(op) {
			return false
		}
	}
	return true
}

func isPlaceholder(op string) bool {
	switch op {
	case "d8", "d16", "a16", "r8", "(a8)", "(a16)", "SP+r8":
		return true
	}
	return false
}

// registerNames cannot be used as labels or immediates.
var registerNames = map[string]bool{
	"A": true, "F": true, "B": true, "C": true, "D": true, "E": true, "H": true, "L": true,
	"AF": true, "BC": true, "DE": true, "HL": true, "SP": true, "PC": true,
	"NZ": true, "Z": true, "NC": true, "HL+": true, "HL-": true,
}

type Assembler struct {
	labels map[string]uint16
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]uint16),
	}
}

// Assemble translates SM83 source into a binary image starting at address
// 0 and a source map from instruction address to line number.
func Assemble(code string) ([]byte, map[uint16]int, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) ([]byte, map[uint16]int, error) {
	lines := strings.Split(code, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, nil, err
	}

	return a.pass2(lines)
}

func (a *Assembler) pass1(lines []string) error {
	var address uint32

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		for _, lbl := range p.labels {
			if address > 0xFFFF {
				return fmt.Errorf("label '%s' on line %d points past addressable memory", lbl, lineNo)
			}
			key := normalizeLabel(lbl)
			if registerNames[key] {
				return fmt.Errorf("label '%s' on line %d is a register name", lbl, lineNo)
			}
			if _, exists := a.labels[key]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d", lbl, lineNo)
			}
			a.labels[key] = uint16(address)
		}

		if p.mnemonic == "" {
			continue
		}

		var length uint32
		switch p.mnemonic {
		case ".ORG":
			target, err := parseOrigin(p.operands, lineNo)
			if err != nil {
				return err
			}
			if target < address {
				return fmt.Errorf("cannot move origin backward on line %d", lineNo)
			}
			address = target
			continue
		case ".STRING":
			// 1 byte per character + 1 null byte
			length = uint32(len(p.operands[0]) + 1)
		case ".DB":
			if len(p.operands) == 0 {
				return fmt.Errorf(".DB expects at least one operand on line %d", lineNo)
			}
			length = uint32(len(p.operands))
		case ".WORD":
			if len(p.operands) == 0 {
				return fmt.Errorf(".WORD expects at least one operand on line %d", lineNo)
			}
			length = uint32(2 * len(p.operands))
		default:
			f, err := match(p)
			if err != nil {
				return err
			}
			length = uint32(f.in.Length)
		}

		if address+length > 65536 {
			return fmt.Errorf("program too large near line %d", lineNo)
		}
		address += length
	}

	return nil
}

func (a *Assembler) pass2(lines []string) ([]byte, map[uint16]int, error) {
	program := make([]byte, 0)
	sourceMap := make(map[uint16]int)

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, nil, err
		}

		if p.mnemonic == "" {
			continue
		}

		if p.mnemonic == ".ORG" {
			target, err := parseOrigin(p.operands, lineNo)
			if err != nil {
				return nil, nil, err
			}
			padding := int(target) - len(program)
			if padding < 0 {
				return nil, nil, fmt.Errorf("cannot move origin backward on line %d", lineNo)
			}
			program = append(program, make([]byte, padding)...)
			continue
		}

		sourceMap[uint16(len(program))] = lineNo

		switch p.mnemonic {
		case ".STRING":
			for _, r := range p.operands[0] {
				program = append(program, byte(r))
			}
			program = append(program, 0x00)

		case ".DB":
			for _, op := range p.operands {
				v, err := a.eval(op, lineNo)
				if err != nil {
					return nil, nil, err
				}
				if v < -128 || v > 0xFF {
					return nil, nil, fmt.Errorf("byte out of range on line %d: %s", lineNo, op)
				}
				program = append(program, byte(v))
			}

		case ".WORD":
			for _, op := range p.operands {
				v, err := a.eval(op, lineNo)
				if err != nil {
					return nil, nil, err
				}
				if v < -0x8000 || v > 0xFFFF {
					return nil, nil, fmt.Errorf("word out of range on line %d: %s", lineNo, op)
				}
				program = append(program, byte(v), byte(v>>8))
			}

		default:
			f, err := match(p)
			if err != nil {
				return nil, nil, err
			}
			code, err := a.encode(f, p.operands, uint16(len(program)), lineNo)
			if err != nil {
				return nil, nil, err
			}
			program = append(program, code...)
		}
	}

	return program, sourceMap, nil
}

func parseOrigin(ops []string, lineNo int) (uint32, error) {
	if len(ops) != 1 {
		return 0, fmt.Errorf(".ORG expects exactly one operand on line %d", lineNo)
	}
	target, ok := parseNumber(ops[0])
	if !ok {
		return 0, fmt.Errorf("invalid .ORG value on line %d: %s", lineNo, ops[0])
	}
	if target < 0 || target > 0xFFFF {
		return 0, fmt.Errorf(".ORG out of range on line %d: %s", lineNo, ops[0])
	}
	return uint32(target), nil
}

// match picks the form whose operand shapes fit the parsed line.
func match(p parsedLine) (form, error) {
	candidates, ok := forms[p.mnemonic]
	if !ok {
		return form{}, fmt.Errorf("unknown instruction on line %d: %s", p.lineNo, p.mnemonic)
	}
	for _, f := range candidates {
		if len(f.operands) != len(p.operands) {
			continue
		}
		fits := true
		for i, tmpl := range f.operands {
			if !fitsOperand(tmpl, p.operands[i]) {
				fits = false
				break
			}
		}
		if fits {
			return f, nil
		}
	}
	return form{}, fmt.Errorf("invalid operands for %s on line %d: %s",
		p.mnemonic, p.lineNo, strings.Join(p.operands, ","))
}

func fitsOperand(tmpl, tok string) bool {
	canon := canonical(tok)
	switch tmpl {
	case "d8", "d16", "a16", "r8":
		return isExpr(tok)
	case "(a8)", "(a16)":
		inner, ok := parenthesized(tok)
		return ok && isExpr(inner)
	case "SP+r8":
		if !strings.HasPrefix(canon, "SP+") && !strings.HasPrefix(canon, "SP-") {
			return false
		}
		_, ok := parseNumber(canon[2:])
		return ok
	}
	if canon == tmpl {
		return true
	}
	// RST vectors and bit indexes may be written in any radix.
	want, ok1 := templateNumber(tmpl)
	got, ok2 := parseNumber(tok)
	return ok1 && ok2 && want == got
}

func (a *Assembler) encode(f form, ops []string, addr uint16, lineNo int) ([]byte, error) {
	in := f.in
	code := []byte{in.Opcode}
	if in.Prefixed {
		code = []byte{0xCB, in.Opcode}
	}

	for i, tmpl := range f.operands {
		tok := ops[i]
		switch tmpl {
		case "d16", "a16", "(a16)":
			if inner, ok := parenthesized(tok); ok {
				tok = inner
			}
			v, err := a.eval(tok, lineNo)
			if err != nil {
				return nil, err
			}
			if v < -0x8000 || v > 0xFFFF {
				return nil, fmt.Errorf("immediate out of range on line %d: %s", lineNo, tok)
			}
			code = append(code, byte(v), byte(v>>8))

		case "d8":
			v, err := a.eval(tok, lineNo)
			if err != nil {
				return nil, err
			}
			if v < -128 || v > 0xFF {
				return nil, fmt.Errorf("immediate out of range on line %d: %s", lineNo, tok)
			}
			code = append(code, byte(v))

		case "(a8)":
			inner, _ := parenthesized(tok)
			v, err := a.eval(inner, lineNo)
			if err != nil {
				return nil, err
			}
			if v >= 0xFF00 && v <= 0xFFFF {
				v -= 0xFF00
			}
			if v < 0 || v > 0xFF {
				return nil, fmt.Errorf("high page address out of range on line %d: %s", lineNo, tok)
			}
			code = append(code, byte(v))

		case "r8":
			v, err := a.eval(tok, lineNo)
			if err != nil {
				return nil, err
			}
			if in.Operand == cpu.OperandRel8 {
				// JR targets are absolute; store the displacement.
				v -= int(addr) + in.Length
				if v < -128 || v > 127 {
					return nil, fmt.Errorf("relative jump out of range on line %d: %s", lineNo, tok)
				}
			} else if v < -128 || v > 0xFF {
				return nil, fmt.Errorf("offset out of range on line %d: %s", lineNo, tok)
			}
			code = append(code, byte(v))

		case "SP+r8":
			v, _ := parseNumber(canonical(tok)[2:])
			if v < -128 || v > 127 {
				return nil, fmt.Errorf("offset out of range on line %d: %s", lineNo, tok)
			}
			code = append(code, byte(v))
		}
	}

	// STOP carries a padding byte.
	for len(code) < in.Length {
		code = append(code, 0x00)
	}
	return code, nil
}

// eval resolves a number, character literal or label.
func (a *Assembler) eval(tok string, lineNo int) (int, error) {
	if v, ok := parseNumber(tok); ok {
		return v, nil
	}
	if v, ok := parseChar(tok); ok {
		return v, nil
	}

	if addr, ok := a.labels[normalizeLabel(tok)]; ok {
		return int(addr), nil
	}

	if isIdentifier(tok) {
		return 0, fmt.Errorf("undefined label '%s' on line %d", tok, lineNo)
	}

	return 0, fmt.Errorf("invalid immediate '%s' on line %d", tok, lineNo)
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	// .STRING keeps its quoted text verbatim, including spaces and ';'.
	if directiveIdx := strings.Index(strings.ToUpper(raw), ".STRING"); directiveIdx != -1 {
		preDirective := raw[:directiveIdx]
		if colonIdx := strings.Index(preDirective, ":"); colonIdx != -1 {
			label := strings.TrimSpace(preDirective[:colonIdx])
			if label != "" {
				p.labels = append(p.labels, label)
			}
		}

		opening := strings.Index(raw, "\"")
		closing := strings.LastIndex(raw, "\"")
		if opening != -1 && closing != -1 && opening != closing {
			p.mnemonic = ".STRING"
			content := raw[opening+1 : closing]
			if unquoted, err := strconv.Unquote(`"` + content + `"`); err == nil {
				p.operands = []string{unquoted}
			} else {
				p.operands = []string{content}
			}
			return p, nil
		}
		return p, fmt.Errorf("invalid string literal on line %d", lineNo)
	}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t'") {
			break
		}

		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	mnemonic, rest := line, ""
	if sp := strings.IndexFunc(line, unicode.IsSpace); sp != -1 {
		mnemonic, rest = line[:sp], line[sp+1:]
	}
	p.mnemonic = strings.ToUpper(mnemonic)

	rest = strings.TrimSpace(rest)
	if rest != "" {
		for _, op := range strings.Split(rest, ",") {
			op = strings.TrimSpace(op)
			if op == "" {
				return p, fmt.Errorf("empty operand on line %d", lineNo)
			}
			p.operands = append(p.operands, op)
		}
	}

	return p, nil
}

func stripComments(line string) string {
	semicolon := strings.Index(line, ";")
	doubleSlash := strings.Index(line, "//")

	cut := -1
	if semicolon >= 0 {
		cut = semicolon
	}
	if doubleSlash >= 0 && (cut == -1 || doubleSlash < cut) {
		cut = doubleSlash
	}
	if cut >= 0 {
		return line[:cut]
	}
	return line
}

// canonical upper-cases an operand and drops inner spaces, so "( hl )"
// compares equal to "(HL)".
func canonical(tok string) string {
	return strings.ToUpper(strings.Join(strings.Fields(tok), ""))
}

func parenthesized(tok string) (string, bool) {
	tok = strings.TrimSpace(tok)
	if len(tok) < 3 || tok[0] != '(' || tok[len(tok)-1] != ')' {
		return "", false
	}
	return strings.TrimSpace(tok[1 : len(tok)-1]), true
}

// isExpr reports whether tok can stand for an immediate: a number,
// character literal or label that is not a register name.
func isExpr(tok string) bool {
	if _, ok := parseNumber(tok); ok {
		return true
	}
	if _, ok := parseChar(tok); ok {
		return true
	}
	return isIdentifier(tok) && !registerNames[normalizeLabel(tok)]
}

// parseNumber accepts $FF, 0xFF, 0b1010 and decimal, with an optional sign.
func parseNumber(tok string) (int, bool) {
	s := strings.TrimSpace(tok)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	base := 10
	switch {
	case strings.HasPrefix(s, "$"):
		s, base = s[1:], 16
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		s, base = s[2:], 16
	case strings.HasPrefix(s, "0b"), strings.HasPrefix(s, "0B"):
		s, base = s[2:], 2
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, false
	}
	if neg {
		return -int(v), true
	}
	return int(v), true
}

// templateNumber reads the numeric literals in mnemonics: "38H" and "7".
func templateNumber(tmpl string) (int, bool) {
	if hex, ok := strings.CutSuffix(tmpl, "H"); ok {
		v, err := strconv.ParseUint(hex, 16, 8)
		return int(v), err == nil
	}
	v, err := strconv.ParseUint(tmpl, 10, 8)
	return int(v), err == nil
}

func parseChar(tok string) (int, bool) {
	s := strings.TrimSpace(tok)
	if len(s) < 3 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return 0, false
	}
	r, _, tail, err := strconv.UnquoteChar(s[1:len(s)-1], '\'')
	if err != nil || tail != "" || r > 0xFF {
		return 0, false
	}
	return int(r), true
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}

	return true
}

func normalizeLabel(label string) string {
	return strings.ToUpper(label)
}
