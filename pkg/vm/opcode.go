package vm

// Opcode represents a VM instruction opcode. It is the first byte of every
// encoded instruction.
type Opcode uint8

const (
	OpNop     Opcode = 0  // do nothing
	OpMov     Opcode = 1  // R[a] = imm
	OpMovR    Opcode = 2  // R[a] = R[b]
	OpJmp     Opcode = 3  // ip = R[a]
	OpJe      Opcode = 4  // ip = R[a] if equal
	OpJne     Opcode = 5  // ip = R[a] if not equal
	OpCmp     Opcode = 6  // equal, greater = R[a] == R[b], R[a] > R[b]
	OpPrintR  Opcode = 7  // trace R[a]
	OpPrintV  Opcode = 8  // trace heap[a]
	OpVStore  Opcode = 9  // heap[a] = imm
	OpVLoad   Opcode = 10 // push heap[a]
	OpAdd     Opcode = 11 // push R[b] + R[a]
	OpSub     Opcode = 12 // push R[b] - R[a]
	OpMul     Opcode = 13 // push R[b] * R[a]
	OpDiv     Opcode = 14 // push R[b] / R[a]
	OpVStoreR Opcode = 15 // heap[a] = R[b]
	OpVLoadR  Opcode = 16 // R[a] = heap[b]
	OpVPush   Opcode = 17 // push imm
	OpVPushR  Opcode = 18 // push R[a]
	OpVPop    Opcode = 19 // R[a] = pop
	OpCall    Opcode = 20 // push U16(next ip); ip = R[a]
	OpRet     Opcode = 21 // ip = pop
	OpHalt    Opcode = 22 // stop
	OpJg      Opcode = 23 // ip = R[a] if greater
	OpJl      Opcode = 24 // ip = R[a] if not greater
	OpAnd     Opcode = 25 // push R[b] & R[a]
	OpOr      Opcode = 26 // push R[b] | R[a]
	OpXor     Opcode = 27 // push R[b] ^ R[a]
	OpShr     Opcode = 28 // push R[a] >> imm
	OpShl     Opcode = 29 // push R[a] << imm

	numOpcodes = 30
)

var opcodeNames = [numOpcodes]string{
	OpNop:     "NOP",
	OpMov:     "MOV",
	OpMovR:    "MOVR",
	OpJmp:     "JMP",
	OpJe:      "JE",
	OpJne:     "JNE",
	OpCmp:     "CMP",
	OpPrintR:  "PRINTR",
	OpPrintV:  "PRINTV",
	OpVStore:  "VSTORE",
	OpVLoad:   "VLOAD",
	OpAdd:     "ADD",
	OpSub:     "SUB",
	OpMul:     "MUL",
	OpDiv:     "DIV",
	OpVStoreR: "VSTORER",
	OpVLoadR:  "VLOADR",
	OpVPush:   "VPUSH",
	OpVPushR:  "VPUSHR",
	OpVPop:    "VPOP",
	OpCall:    "CALL",
	OpRet:     "RET",
	OpHalt:    "HALT",
	OpJg:      "JG",
	OpJl:      "JL",
	OpAnd:     "AND",
	OpOr:      "OR",
	OpXor:     "XOR",
	OpShr:     "SHR",
	OpShl:     "SHL",
}

// String returns the mnemonic of the opcode.
func (o Opcode) String() string {
	if o.Valid() {
		return opcodeNames[o]
	}
	return "UNKNOWN"
}

// Valid reports whether o is a defined opcode.
func (o Opcode) Valid() bool {
	return o < numOpcodes
}

// operand kinds
type operand uint8

const (
	operandReg operand = iota
	operandAddr
	operandImm
)

// layouts lists the operands of each opcode in encoding order. Register and
// address operands fill Instruction.A then Instruction.B; an immediate fills
// Instruction.Imm.
var layouts = [numOpcodes][]operand{
	OpMov:     {operandReg, operandImm},
	OpMovR:    {operandReg, operandReg},
	OpJmp:     {operandReg},
	OpJe:      {operandReg},
	OpJne:     {operandReg},
	OpCmp:     {operandReg, operandReg},
	OpPrintR:  {operandReg},
	OpPrintV:  {operandAddr},
	OpVStore:  {operandAddr, operandImm},
	OpVLoad:   {operandAddr},
	OpAdd:     {operandReg, operandReg},
	OpSub:     {operandReg, operandReg},
	OpMul:     {operandReg, operandReg},
	OpDiv:     {operandReg, operandReg},
	OpVStoreR: {operandAddr, operandReg},
	OpVLoadR:  {operandReg, operandAddr},
	OpVPush:   {operandImm},
	OpVPushR:  {operandReg},
	OpVPop:    {operandReg},
	OpCall:    {operandReg},
	OpJg:      {operandReg},
	OpJl:      {operandReg},
	OpAnd:     {operandReg, operandReg},
	OpOr:      {operandReg, operandReg},
	OpXor:     {operandReg, operandReg},
	OpShr:     {operandReg, operandImm},
	OpShl:     {operandReg, operandImm},
}
