package vm

import (
	"bytes"
	"fmt"
)

// Encode concatenates the encodings of insts into a program.
func Encode(insts ...Instruction) []byte {
	n := 0
	for _, inst := range insts {
		n += inst.Size()
	}
	code := make([]byte, 0, n)
	for _, inst := range insts {
		code = inst.AppendBytes(code)
	}
	return code
}

// Offsets returns the byte offset of each instruction's opcode within
// Encode(insts...). Useful when a program needs to load jump targets.
func Offsets(insts ...Instruction) []int {
	offsets := make([]int, len(insts))
	off := 0
	for i, inst := range insts {
		offsets[i] = off
		off += inst.Size()
	}
	return offsets
}

// Disassemble decodes code front to back and lists one instruction per line
// as "offset: text". It follows byte order, not control flow, so it shows
// what the decoder would read starting at offset 0.
func Disassemble(code []byte) (string, error) {
	var buf bytes.Buffer
	for pc := 0; pc < len(code); {
		inst, n, err := Decode(code, pc)
		if err != nil {
			return buf.String(), fmt.Errorf("disassembling at offset %d: %w", pc, err)
		}
		fmt.Fprintf(&buf, "%04d: %s\n", pc, inst)
		pc += n
	}
	return buf.String(), nil
}
