package vm

import "github.com/pkg/errors"

// DataSegment is the fixed-capacity addressable store ("heap"). Every cell
// starts as U8(0). There is no allocation protocol; a program addresses
// cells directly by index.
type DataSegment struct {
	cells []Immediate
}

// NewDataSegment allocates a data segment of the given capacity. A negative
// capacity is treated as zero.
func NewDataSegment(capacity int) *DataSegment {
	if capacity < 0 {
		capacity = 0
	}
	return &DataSegment{cells: make([]Immediate, capacity)}
}

// Cap returns the number of cells.
func (d *DataSegment) Cap() int { return len(d.cells) }

// Load returns the value stored at addr.
func (d *DataSegment) Load(addr int) (Immediate, error) {
	if addr < 0 || addr >= len(d.cells) {
		return Immediate{}, errors.Wrapf(ErrInvalidAddress, "[%d] outside capacity %d", addr, len(d.cells))
	}
	return d.cells[addr], nil
}

// Store writes v at addr.
func (d *DataSegment) Store(addr int, v Immediate) error {
	if addr < 0 || addr >= len(d.cells) {
		return errors.Wrapf(ErrInvalidAddress, "[%d] outside capacity %d", addr, len(d.cells))
	}
	d.cells[addr] = v
	return nil
}

// Values returns a copy of every cell in address order.
func (d *DataSegment) Values() []Immediate {
	out := make([]Immediate, len(d.cells))
	copy(out, d.cells)
	return out
}
