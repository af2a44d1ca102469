package vm

import (
	"strconv"
	"strings"
)

// Instruction is a decoded operation. It only describes the operation; the
// VM gives it meaning.
//
// A and B hold the register or address operands in the order they appear in
// the encoding, Imm holds the immediate operand if the opcode has one:
//
//	MOV     A=reg  Imm
//	MOVR    A=dst  B=src
//	VSTORE  A=addr Imm
//	VSTORER A=addr B=reg
//	VLOADR  A=reg  B=addr
//	SHL/SHR A=reg  Imm
type Instruction struct {
	Op  Opcode
	A   uint8
	B   uint8
	Imm Immediate
}

// Size returns the number of bytes the encoded instruction occupies.
func (i Instruction) Size() int {
	n := 1
	for _, o := range i.layout() {
		if o == operandImm {
			n += i.Imm.Size()
		} else {
			n++
		}
	}
	return n
}

// Encode returns the byte encoding of the instruction. Decoding the result
// yields i again, except that operand fields the opcode does not use are
// cleared.
func (i Instruction) Encode() []byte {
	return i.AppendBytes(make([]byte, 0, i.Size()))
}

// AppendBytes appends the encoded instruction to b.
func (i Instruction) AppendBytes(b []byte) []byte {
	b = append(b, byte(i.Op))
	regs := [2]uint8{i.A, i.B}
	next := 0
	for _, o := range i.layout() {
		if o == operandImm {
			b = i.Imm.AppendBytes(b)
			continue
		}
		b = append(b, regs[next])
		next++
	}
	return b
}

// String returns the instruction as "MNEMONIC operands", e.g. "MOV R0, U8(5)"
// or "VSTORER [3], R1".
func (i Instruction) String() string {
	layout := i.layout()
	if len(layout) == 0 {
		return i.Op.String()
	}

	var sb strings.Builder
	sb.WriteString(i.Op.String())
	regs := [2]uint8{i.A, i.B}
	next := 0
	for n, o := range layout {
		if n == 0 {
			sb.WriteByte(' ')
		} else {
			sb.WriteString(", ")
		}
		switch o {
		case operandReg:
			sb.WriteByte('R')
			sb.WriteString(strconv.Itoa(int(regs[next])))
			next++
		case operandAddr:
			sb.WriteByte('[')
			sb.WriteString(strconv.Itoa(int(regs[next])))
			sb.WriteByte(']')
			next++
		case operandImm:
			sb.WriteString(i.Imm.String())
		}
	}
	return sb.String()
}

func (i Instruction) layout() []operand {
	if !i.Op.Valid() {
		return nil
	}
	return layouts[i.Op]
}
