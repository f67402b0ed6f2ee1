package asm

import "testing"

// smallProgram is a counter loop.
const smallProgram = `
    LD B, 10
    XOR A
loop:
    ADD A, B
    DEC B
    JR NZ, loop
    HALT
`

// mediumProgram has several subroutines, labels and a .STRING directive.
const mediumProgram = `
    JP main

; ---- negate A ----
negate:
    CPL
    INC A
    RET

; ---- A = A * 2 ----
double_fn:
    ADD A, A
    RET

; ---- A = A * 3 ----
triple_fn:
    LD B, A
    CALL double_fn
    ADD A, B
    RET

; ---- count B down to zero ----
count_down:
    DEC B
    JR NZ, count_down
    RET

; ---- print the zero-terminated string at HL over serial ----
print:
    LD A, (HL+)
    OR A
    RET Z
    LDH ($01), A
    LD A, $81
    LDH ($02), A
    JR print

main:
    LD SP, $DFFF
    LD A, 7
    CALL negate
    PUSH AF
    LD A, 5
    CALL triple_fn
    LD B, 12
    CALL count_down
    POP BC
    LD ($C000), A
    LD HL, greeting
    CALL print
    HALT

greeting:
    .STRING "Hello, World!"
`

// largeProgram is mediumProgram followed by a block copy, a fill, a bubble
// sort and a multiply, representative of hand-written test ROM code.
const largeProgram = mediumProgram + `
; ---- copy BC bytes from HL to DE ----
memcpy:
    LD A, B
    OR C
    RET Z
    LD A, (HL+)
    LD (DE), A
    INC DE
    DEC BC
    JR memcpy

; ---- fill BC bytes at HL with A ----
memset:
    LD D, A
memset_loop:
    LD A, B
    OR C
    RET Z
    LD A, D
    LD (HL+), A
    DEC BC
    JR memset_loop

; ---- bubble sort C bytes at HL ----
bubble_sort:
    DEC C
    RET Z
bs_outer:
    PUSH HL
    LD B, C
bs_inner:
    LD A, (HL+)
    CP (HL)
    JR C, bs_no_swap
    JR Z, bs_no_swap
    LD D, (HL)
    LD (HL-), A
    LD (HL), D
    INC HL
bs_no_swap:
    DEC B
    JR NZ, bs_inner
    POP HL
    DEC C
    JR NZ, bs_outer
    RET

; ---- HL = B * C ----
multiply:
    LD HL, 0
    LD A, B
    OR A
    RET Z
    LD D, 0
    LD E, C
mul_loop:
    ADD HL, DE
    DEC B
    JR NZ, mul_loop
    RET

; ---- rotate and test bits ----
bits:
    LD A, $A5
    RLCA
    RRA
    SWAP A
    BIT 7, A
    SET 0, A
    RES 7, A
    SRL A
    SLA A
    SRA A
    DAA
    SCF
    CCF
    RET

; ---- interrupt vectors as data ----
vectors:
    .WORD $0040, $0048, $0050, $0058, $0060
    .DB 1, 2, 3, 4, 5, 6, 7, 8
`

func BenchmarkAssemble_Small(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _, err := Assemble(smallProgram)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAssemble_Medium(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _, err := Assemble(mediumProgram)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAssemble_Large(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _, err := Assemble(largeProgram)
		if err != nil {
			b.Fatal(err)
		}
	}
}
