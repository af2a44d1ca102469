package vm

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error definitions
var (
	// Value model
	ErrTypeMismatch         = errors.New("operand type mismatch")
	ErrUnsupportedOperation = errors.New("operation not supported for operand type")
	ErrDivisionByZero       = errors.New("integer division by zero")
	ErrShiftRange           = errors.New("negative shift count")

	// Decoding
	ErrTruncated = errors.New("truncated instruction")

	// Execution
	ErrInvalidRegister     = errors.New("invalid register")
	ErrInvalidAddress      = errors.New("invalid heap address")
	ErrInvalidJumpTarget   = errors.New("invalid jump target type")
	ErrInvalidReturnTarget = errors.New("invalid return target type")
	ErrStackUnderflow      = errors.New("stack underflow")
	ErrReturnAddressRange  = errors.New("return address does not fit in U16")

	// Dispatch
	ErrStepLimitExceeded = errors.New("step limit exceeded")
	ErrMachineFinished   = errors.New("machine already halted or aborted")
)

// Fault is returned by Run when an instruction fails. The machine is left in
// the Aborted state with every side effect applied before the failure intact.
type Fault struct {
	IP     int         // instruction pointer at the time of failure
	Offset int         // offset of the failing instruction's opcode byte
	Inst   Instruction // zero value when decoding failed
	Err    error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("fault at ip=%d (offset %d, %s): %v", f.IP, f.Offset, f.Inst.Op, f.Err)
}

// Unwrap returns the underlying cause.
func (f *Fault) Unwrap() error {
	return f.Err
}
