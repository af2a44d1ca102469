package vm

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// operandBytes returns the encoded size of each opcode's operands when every
// immediate is a U8.
var operandBytes = map[Opcode]int{
	OpNop: 0, OpMov: 3, OpMovR: 2, OpJmp: 1, OpJe: 1, OpJne: 1, OpCmp: 2,
	OpPrintR: 1, OpPrintV: 1, OpVStore: 3, OpVLoad: 1, OpAdd: 2, OpSub: 2,
	OpMul: 2, OpDiv: 2, OpVStoreR: 2, OpVLoadR: 2, OpVPush: 2, OpVPushR: 1,
	OpVPop: 1, OpCall: 1, OpRet: 0, OpHalt: 0, OpJg: 1, OpJl: 1, OpAnd: 2,
	OpOr: 2, OpXor: 2, OpShr: 3, OpShl: 3,
}

func TestDecode_ConsumesOperandBytes(t *testing.T) {
	if len(operandBytes) != numOpcodes {
		t.Fatalf("table covers %d opcodes, want %d", len(operandBytes), numOpcodes)
	}
	for op, want := range operandBytes {
		t.Run(op.String(), func(t *testing.T) {
			code := []byte{byte(op)}
			for _, o := range layouts[op] {
				if o == operandImm {
					code = append(code, byte(KindU8), 0x07)
				} else {
					code = append(code, 0x01)
				}
			}
			// trailing bytes must not be consumed
			code = append(code, byte(OpHalt), byte(OpHalt))

			inst, n, err := Decode(code, 0)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if n != 1+want {
				t.Errorf("consumed %d bytes, want %d", n, 1+want)
			}
			if inst.Op != op {
				t.Errorf("decoded %s, want %s", inst.Op, op)
			}
		})
	}
}

func TestDecode_UnknownOpcode(t *testing.T) {
	for b := numOpcodes; b <= 0xFF; b++ {
		inst, n, err := Decode([]byte{byte(b), byte(OpMov), 0, 0}, 0)
		if err != nil {
			t.Fatalf("opcode %d: %v", b, err)
		}
		if inst.Op != OpNop || n != 1 {
			t.Errorf("opcode %d: got %s consuming %d, want NOP consuming 1", b, inst.Op, n)
		}
	}
}

func TestDecode_UnknownTag(t *testing.T) {
	code := []byte{byte(OpMov), 3, 0x2A, byte(OpHalt)}
	inst, n, err := Decode(code, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("consumed %d bytes, want 3", n)
	}
	want := Instruction{Op: OpMov, A: 3, Imm: None()}
	if diff := cmp.Diff(want, inst); diff != "" {
		t.Errorf("instruction mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_Offset(t *testing.T) {
	code := Encode(
		Instruction{Op: OpNop},
		Instruction{Op: OpVStoreR, A: 9, B: 2},
	)
	inst, n, err := Decode(code, 1)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 || inst.Op != OpVStoreR || inst.A != 9 || inst.B != 2 {
		t.Errorf("got %s consuming %d", inst, n)
	}
}

func TestDecode_Truncated(t *testing.T) {
	tests := []struct {
		name string
		code []byte
	}{
		{"missing register", []byte{byte(OpMovR), 1}},
		{"missing tag", []byte{byte(OpMov), 1}},
		{"short value", []byte{byte(OpMov), 1, byte(KindU16), 0x01}},
		{"short vpush", []byte{byte(OpVPush), byte(KindF64), 0, 0, 0, 0}},
		{"missing address", []byte{byte(OpVLoad)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, _, err := Decode(tt.code, 0)
			if !errors.Is(err, ErrTruncated) {
				t.Errorf("expected ErrTruncated, got %v", err)
			}
			if want := Opcode(tt.code[0]); inst.Op != want {
				t.Errorf("inst.Op = %s, want %s", inst.Op, want)
			}
		})
	}

	if _, _, err := Decode([]byte{byte(OpNop)}, 1); !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated past the end, got %v", err)
	}
}

func TestInstruction_EncodeDecode(t *testing.T) {
	insts := []Instruction{
		{Op: OpNop},
		{Op: OpMov, A: 7, Imm: I64(-9)},
		{Op: OpMovR, A: 1, B: 2},
		{Op: OpJmp, A: 3},
		{Op: OpCmp, A: 0, B: 1},
		{Op: OpPrintV, A: 200},
		{Op: OpVStore, A: 12, Imm: F32(2.5)},
		{Op: OpVStoreR, A: 12, B: 4},
		{Op: OpVLoadR, A: 4, B: 12},
		{Op: OpVPush, Imm: U32(123456)},
		{Op: OpVPush, Imm: None()},
		{Op: OpCall, A: 5},
		{Op: OpRet},
		{Op: OpShl, A: 2, Imm: U16(3)},
		{Op: OpHalt},
	}
	code := Encode(insts...)
	offsets := Offsets(insts...)

	var got []Instruction
	for pc := 0; pc < len(code); {
		if len(got) < len(offsets) && pc != offsets[len(got)] {
			t.Fatalf("instruction %d at offset %d, Offsets says %d", len(got), pc, offsets[len(got)])
		}
		inst, n, err := Decode(code, pc)
		if err != nil {
			t.Fatalf("Decode at %d: %v", pc, err)
		}
		if n != inst.Size() {
			t.Errorf("%s: consumed %d, Size() = %d", inst, n, inst.Size())
		}
		got = append(got, inst)
		pc += n
	}
	if diff := cmp.Diff(insts, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestInstruction_EncodeClearsUnusedOperands(t *testing.T) {
	code := Instruction{Op: OpPrintR, A: 2, B: 5, Imm: U8(9)}.Encode()
	if len(code) != 2 {
		t.Fatalf("encoded %d bytes, want 2", len(code))
	}
	inst, _, err := Decode(code, 0)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Instruction{Op: OpPrintR, A: 2}, inst); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestInstruction_String(t *testing.T) {
	tests := []struct {
		inst Instruction
		want string
	}{
		{Instruction{Op: OpMov, A: 0, Imm: U8(5)}, "MOV R0, U8(5)"},
		{Instruction{Op: OpMovR, A: 1, B: 2}, "MOVR R1, R2"},
		{Instruction{Op: OpVStoreR, A: 3, B: 1}, "VSTORER [3], R1"},
		{Instruction{Op: OpVLoadR, A: 2, B: 7}, "VLOADR R2, [7]"},
		{Instruction{Op: OpVStore, A: 0, Imm: I16(-3)}, "VSTORE [0], I16(-3)"},
		{Instruction{Op: OpPrintV, A: 4}, "PRINTV [4]"},
		{Instruction{Op: OpVPush, Imm: None()}, "VPUSH None"},
		{Instruction{Op: OpShl, A: 0, Imm: U16(4)}, "SHL R0, U16(4)"},
		{Instruction{Op: OpRet}, "RET"},
		{Instruction{Op: Opcode(99)}, "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.inst.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestDisassemble(t *testing.T) {
	code := Encode(
		Instruction{Op: OpMov, A: 0, Imm: U8(5)},
		Instruction{Op: OpPrintR, A: 0},
		Instruction{Op: OpHalt},
	)
	got, err := Disassemble(code)
	if err != nil {
		t.Fatal(err)
	}
	want := "0000: MOV R0, U8(5)\n0004: PRINTR R0\n0006: HALT\n"
	if got != want {
		t.Errorf("Disassemble mismatch:\n%s", cmp.Diff(want, got))
	}
}

func TestDisassemble_Truncated(t *testing.T) {
	code := []byte{byte(OpHalt), byte(OpMov), 0, byte(KindU32), 1}
	got, err := Disassemble(code)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	if got != "0000: HALT\n" {
		t.Errorf("partial listing = %q", got)
	}
}
