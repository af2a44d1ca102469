package vm

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Decode decodes the instruction whose opcode byte is at code[pc]. It returns
// the instruction and the number of bytes consumed, which is exactly the
// opcode byte plus the operand bytes the opcode prescribes.
//
// An opcode byte outside the instruction set decodes as NOP and consumes one
// byte. An immediate type tag outside 0-9 decodes as None and consumes only
// the tag byte. Operands running past the end of code fail with ErrTruncated;
// the returned instruction then carries only the opcode.
func Decode(code []byte, pc int) (Instruction, int, error) {
	if pc < 0 || pc >= len(code) {
		return Instruction{}, 0, errors.Wrapf(ErrTruncated, "no opcode at offset %d", pc)
	}

	inst := Instruction{Op: Opcode(code[pc])}
	if !inst.Op.Valid() {
		return Instruction{Op: OpNop}, 1, nil
	}

	cur := pc + 1
	next := 0
	for _, o := range layouts[inst.Op] {
		if o == operandImm {
			imm, n, err := decodeImmediate(code, cur)
			if err != nil {
				return Instruction{Op: inst.Op}, 0, errors.Wrapf(err, "%s at offset %d", inst.Op, pc)
			}
			inst.Imm = imm
			cur += n
			continue
		}
		if cur >= len(code) {
			return Instruction{Op: inst.Op}, 0, errors.Wrapf(ErrTruncated, "%s at offset %d: missing operand", inst.Op, pc)
		}
		if next == 0 {
			inst.A = code[cur]
		} else {
			inst.B = code[cur]
		}
		next++
		cur++
	}
	return inst, cur - pc, nil
}

// decodeImmediate decodes a type tag and its value at code[off].
func decodeImmediate(code []byte, off int) (Immediate, int, error) {
	if off >= len(code) {
		return Immediate{}, 0, errors.Wrap(ErrTruncated, "missing immediate type tag")
	}
	k := Kind(code[off])
	if !k.valid() {
		return None(), 1, nil
	}
	w := k.Width()
	if off+1+w > len(code) {
		return Immediate{}, 0, errors.Wrapf(ErrTruncated, "%s immediate needs %d bytes, have %d", k, w, len(code)-off-1)
	}
	var buf [8]byte
	copy(buf[:], code[off+1:off+1+w])
	return Immediate{k, binary.LittleEndian.Uint64(buf[:])}, 1 + w, nil
}
