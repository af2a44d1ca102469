package vm

import "github.com/pkg/errors"

// NumRegisters is the size of the register file (R0-R7).
const NumRegisters = 8

// RegisterFile holds the general purpose registers.
type RegisterFile struct {
	r [NumRegisters]Immediate
}

// NewRegisterFile creates a register file with every register set to U8(0).
func NewRegisterFile() *RegisterFile {
	return &RegisterFile{}
}

// Get returns the value of register i.
func (rf *RegisterFile) Get(i uint8) (Immediate, error) {
	if int(i) >= NumRegisters {
		return Immediate{}, errors.Wrapf(ErrInvalidRegister, "R%d", i)
	}
	return rf.r[i], nil
}

// Set overwrites register i.
func (rf *RegisterFile) Set(i uint8, v Immediate) error {
	if int(i) >= NumRegisters {
		return errors.Wrapf(ErrInvalidRegister, "R%d", i)
	}
	rf.r[i] = v
	return nil
}

// Values returns a copy of all registers in index order.
func (rf *RegisterFile) Values() []Immediate {
	out := make([]Immediate, NumRegisters)
	copy(out, rf.r[:])
	return out
}
