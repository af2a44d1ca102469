package vm

import (
	"math"

	"github.com/pkg/errors"
)

// Execute applies a single instruction to the machine state. It is what Run
// calls for every decoded instruction, and can be used directly to drive the
// machine one operation at a time. Execute does not advance the instruction
// pointer; control transfers overwrite it.
func (vm *VM) Execute(inst Instruction) error {
	switch inst.Op {
	case OpNop:

	case OpMov:
		return vm.regs.Set(inst.A, inst.Imm)

	case OpMovR:
		v, err := vm.regs.Get(inst.B)
		if err != nil {
			return err
		}
		return vm.regs.Set(inst.A, v)

	// ===== Control flow =====
	case OpJmp:
		return vm.jumpIf(true, inst.A)
	case OpJe:
		return vm.jumpIf(vm.equal, inst.A)
	case OpJne:
		return vm.jumpIf(!vm.equal, inst.A)
	case OpJg:
		return vm.jumpIf(vm.greater, inst.A)
	case OpJl:
		// "not greater", so equal values jump too
		return vm.jumpIf(!vm.greater, inst.A)

	case OpCall:
		target, err := vm.regs.Get(inst.A)
		if err != nil {
			return err
		}
		ret := vm.ip + 1
		if ret > math.MaxUint16 {
			return errors.Wrapf(ErrReturnAddressRange, "return address %d", ret)
		}
		vm.push(U16(uint16(ret)))
		return vm.jump(target)

	case OpRet:
		v, err := vm.stack.Pop()
		if err != nil {
			return errors.Wrap(err, "popping return address")
		}
		if _, ok := v.Address(); !ok {
			return errors.Wrapf(ErrInvalidReturnTarget, "%s", v)
		}
		return vm.jump(v)

	case OpHalt:
		vm.running = false

	case OpCmp:
		a, err := vm.regs.Get(inst.A)
		if err != nil {
			return err
		}
		b, err := vm.regs.Get(inst.B)
		if err != nil {
			return err
		}
		// Mismatched kinds leave both flags false.
		vm.equal, vm.greater, _ = Compare(a, b)

	// ===== Output =====
	case OpPrintR:
		v, err := vm.regs.Get(inst.A)
		if err != nil {
			return err
		}
		vm.tracef("  => %s\n", v)

	case OpPrintV:
		v, err := vm.heap.Load(int(inst.A))
		if err != nil {
			return err
		}
		vm.tracef("  => %s\n", v)

	// ===== Data segment =====
	case OpVStore:
		return vm.heap.Store(int(inst.A), inst.Imm)

	case OpVStoreR:
		v, err := vm.regs.Get(inst.B)
		if err != nil {
			return err
		}
		return vm.heap.Store(int(inst.A), v)

	case OpVLoad:
		v, err := vm.heap.Load(int(inst.A))
		if err != nil {
			return err
		}
		vm.push(v)

	case OpVLoadR:
		v, err := vm.heap.Load(int(inst.B))
		if err != nil {
			return err
		}
		return vm.regs.Set(inst.A, v)

	// ===== Stack =====
	case OpVPush:
		vm.push(inst.Imm)

	case OpVPushR:
		v, err := vm.regs.Get(inst.A)
		if err != nil {
			return err
		}
		vm.push(v)

	case OpVPop:
		if _, err := vm.regs.Get(inst.A); err != nil {
			return err
		}
		v, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		return vm.regs.Set(inst.A, v)

	// ===== Arithmetic and bitwise =====
	case OpAdd:
		return vm.binaryRR(addOp, inst)
	case OpSub:
		return vm.binaryRR(subOp, inst)
	case OpMul:
		return vm.binaryRR(mulOp, inst)
	case OpDiv:
		return vm.binaryRR(divOp, inst)
	case OpAnd:
		return vm.binaryRR(andOp, inst)
	case OpOr:
		return vm.binaryRR(orOp, inst)
	case OpXor:
		return vm.binaryRR(xorOp, inst)
	case OpShl:
		return vm.binaryRI(shlOp, inst)
	case OpShr:
		return vm.binaryRI(shrOp, inst)

	default:
		// Decode never produces other opcodes.
		return errors.Errorf("unknown opcode %d", uint8(inst.Op))
	}
	return nil
}

// jumpIf jumps to the address held in register r when cond is true.
func (vm *VM) jumpIf(cond bool, r uint8) error {
	target, err := vm.regs.Get(r)
	if err != nil {
		return err
	}
	if !cond {
		return nil
	}
	return vm.jump(target)
}

// jump sets the instruction pointer. Only U8 and U16 values are addresses.
func (vm *VM) jump(target Immediate) error {
	addr, ok := target.Address()
	if !ok {
		return errors.Wrapf(ErrInvalidJumpTarget, "%s", target)
	}
	vm.ip = addr
	vm.jumped = true
	return nil
}

// binaryRR pushes R[B] op R[A].
func (vm *VM) binaryRR(op operator, inst Instruction) error {
	a, err := vm.regs.Get(inst.A)
	if err != nil {
		return err
	}
	b, err := vm.regs.Get(inst.B)
	if err != nil {
		return err
	}
	return vm.binary(op, b, a)
}

// binaryRI pushes R[A] op Imm.
func (vm *VM) binaryRI(op operator, inst Instruction) error {
	a, err := vm.regs.Get(inst.A)
	if err != nil {
		return err
	}
	return vm.binary(op, a, inst.Imm)
}

// binary applies op to two same-kind values and pushes the result.
func (vm *VM) binary(op operator, x, y Immediate) error {
	r, err := x.binary(op, y)
	if err != nil {
		return err
	}
	vm.push(r)
	return nil
}
