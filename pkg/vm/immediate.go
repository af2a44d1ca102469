package vm

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// Kind identifies the variant held by an Immediate. The numeric kinds double
// as the type tag of an encoded immediate operand.
type Kind uint8

const (
	KindU8 Kind = iota
	KindI8
	KindU16
	KindI16
	KindU32
	KindI32
	KindU64
	KindI64
	KindF32
	KindF64

	// KindNone is the absent value. Any tag outside KindU8..KindF64 decodes
	// to it.
	KindNone Kind = 0xFF
)

var kindNames = [...]string{"U8", "I8", "U16", "I16", "U32", "I32", "U64", "I64", "F32", "F64"}

var kindWidths = [...]int{1, 1, 2, 2, 4, 4, 8, 8, 4, 8}

// String returns the variant name.
func (k Kind) String() string {
	if k.valid() {
		return kindNames[k]
	}
	return "None"
}

// Width returns the number of little-endian value bytes that follow the
// type tag, zero for KindNone.
func (k Kind) Width() int {
	if k.valid() {
		return kindWidths[k]
	}
	return 0
}

// IsInteger reports whether k is one of the integer kinds.
func (k Kind) IsInteger() bool { return k <= KindI64 }

// IsFloat reports whether k is F32 or F64.
func (k Kind) IsFloat() bool { return k == KindF32 || k == KindF64 }

// IsSigned reports whether k is a signed integer kind.
func (k Kind) IsSigned() bool {
	return k == KindI8 || k == KindI16 || k == KindI32 || k == KindI64
}

func (k Kind) valid() bool { return k <= KindF64 }

// Immediate is a scalar machine value: an unsigned or signed integer of
// width 8/16/32/64, a 32 or 64 bit float, or None.
//
// The value is kept as its little-endian bit pattern at the kind's width, so
// two Immediates are == exactly when they have the same kind and bits. The
// zero Immediate is U8(0).
type Immediate struct {
	kind Kind
	bits uint64
}

// U8 returns v as an unsigned 8-bit value.
func U8(v uint8) Immediate { return Immediate{KindU8, uint64(v)} }

// I8 returns v as a signed 8-bit value.
func I8(v int8) Immediate { return Immediate{KindI8, uint64(uint8(v))} }

// U16 returns v as an unsigned 16-bit value.
func U16(v uint16) Immediate { return Immediate{KindU16, uint64(v)} }

// I16 returns v as a signed 16-bit value.
func I16(v int16) Immediate { return Immediate{KindI16, uint64(uint16(v))} }

// U32 returns v as an unsigned 32-bit value.
func U32(v uint32) Immediate { return Immediate{KindU32, uint64(v)} }

// I32 returns v as a signed 32-bit value.
func I32(v int32) Immediate { return Immediate{KindI32, uint64(uint32(v))} }

// U64 returns v as an unsigned 64-bit value.
func U64(v uint64) Immediate { return Immediate{KindU64, v} }

// I64 returns v as a signed 64-bit value.
func I64(v int64) Immediate { return Immediate{KindI64, uint64(v)} }

// F32 returns v as a 32-bit float.
func F32(v float32) Immediate { return Immediate{KindF32, uint64(math.Float32bits(v))} }

// F64 returns v as a 64-bit float.
func F64(v float64) Immediate { return Immediate{KindF64, math.Float64bits(v)} }

// None returns the absent value.
func None() Immediate { return Immediate{kind: KindNone} }

// FromBits builds an Immediate from a raw bit pattern, truncating bits to the
// kind's width. Unknown kinds yield None.
func FromBits(k Kind, bits uint64) Immediate {
	if !k.valid() {
		return None()
	}
	if w := k.Width(); w < 8 {
		bits &= 1<<(uint(w)*8) - 1
	}
	return Immediate{k, bits}
}

// Kind returns the variant.
func (v Immediate) Kind() Kind { return v.kind }

// Bits returns the raw little-endian bit pattern.
func (v Immediate) Bits() uint64 { return v.bits }

// Uint64 returns the value of an unsigned integer kind.
func (v Immediate) Uint64() (uint64, bool) {
	switch v.kind {
	case KindU8, KindU16, KindU32, KindU64:
		return v.bits, true
	}
	return 0, false
}

// Int64 returns the sign-extended value of a signed integer kind.
func (v Immediate) Int64() (int64, bool) {
	switch v.kind {
	case KindI8:
		return int64(int8(v.bits)), true
	case KindI16:
		return int64(int16(v.bits)), true
	case KindI32:
		return int64(int32(v.bits)), true
	case KindI64:
		return int64(v.bits), true
	}
	return 0, false
}

// Float64 returns the value of a floating point kind.
func (v Immediate) Float64() (float64, bool) {
	switch v.kind {
	case KindF32:
		return float64(math.Float32frombits(uint32(v.bits))), true
	case KindF64:
		return math.Float64frombits(v.bits), true
	}
	return 0, false
}

// Address returns the value as a code offset. Only U8 and U16 values are
// valid jump and return targets.
func (v Immediate) Address() (int, bool) {
	if v.kind == KindU8 || v.kind == KindU16 {
		return int(v.bits), true
	}
	return 0, false
}

// String returns the canonical text form, e.g. U8(5), I16(-3), F64(0.5), None.
func (v Immediate) String() string {
	var s string
	switch {
	case v.kind == KindNone:
		return "None"
	case v.kind == KindF32:
		s = strconv.FormatFloat(float64(math.Float32frombits(uint32(v.bits))), 'g', -1, 32)
	case v.kind == KindF64:
		s = strconv.FormatFloat(math.Float64frombits(v.bits), 'g', -1, 64)
	case v.kind.IsSigned():
		i, _ := v.Int64()
		s = strconv.FormatInt(i, 10)
	default:
		s = strconv.FormatUint(v.bits, 10)
	}
	return v.kind.String() + "(" + s + ")"
}

// Size returns the encoded length: one tag byte plus the value width.
func (v Immediate) Size() int { return 1 + v.kind.Width() }

// AppendBytes appends the encoded form of v (type tag followed by the
// little-endian value bytes) to b.
func (v Immediate) AppendBytes(b []byte) []byte {
	b = append(b, byte(v.kind))
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v.bits)
	return append(b, buf[:v.kind.Width()]...)
}

// Compare compares two values of the same kind with the native semantics of
// that width. ok is false when the kinds differ, in which case eq and gt are
// both false. None is never equal to or greater than anything, itself
// included.
func Compare(a, b Immediate) (eq, gt, ok bool) {
	if a.kind != b.kind {
		return false, false, false
	}
	switch a.kind {
	case KindU8, KindU16, KindU32, KindU64:
		eq, gt = order(a.bits, b.bits)
	case KindI8, KindI16, KindI32, KindI64:
		x, _ := a.Int64()
		y, _ := b.Int64()
		eq, gt = order(x, y)
	case KindF32:
		eq, gt = order(math.Float32frombits(uint32(a.bits)), math.Float32frombits(uint32(b.bits)))
	case KindF64:
		eq, gt = order(math.Float64frombits(a.bits), math.Float64frombits(b.bits))
	}
	return eq, gt, true
}

func order[T constraints.Ordered](x, y T) (eq, gt bool) {
	return x == y, x > y
}

type operator uint8

const (
	addOp operator = iota
	subOp
	mulOp
	divOp
	andOp
	orOp
	xorOp
	shlOp
	shrOp
)

var operatorSymbols = [...]string{"+", "-", "*", "/", "&", "|", "^", "<<", ">>"}

func (o operator) String() string { return operatorSymbols[o] }

// Add returns v + w, wrapping on integer overflow.
func (v Immediate) Add(w Immediate) (Immediate, error) { return v.binary(addOp, w) }

// Sub returns v - w, wrapping on integer overflow.
func (v Immediate) Sub(w Immediate) (Immediate, error) { return v.binary(subOp, w) }

// Mul returns v * w, wrapping on integer overflow.
func (v Immediate) Mul(w Immediate) (Immediate, error) { return v.binary(mulOp, w) }

// Div divides v by w. Integer division by zero fails with ErrDivisionByZero;
// float division follows IEEE 754.
func (v Immediate) Div(w Immediate) (Immediate, error) { return v.binary(divOp, w) }

// And returns the bitwise AND of two integers of the same kind.
func (v Immediate) And(w Immediate) (Immediate, error) { return v.binary(andOp, w) }

// Or returns the bitwise OR of two integers of the same kind.
func (v Immediate) Or(w Immediate) (Immediate, error) { return v.binary(orOp, w) }

// Xor returns the bitwise XOR of two integers of the same kind.
func (v Immediate) Xor(w Immediate) (Immediate, error) { return v.binary(xorOp, w) }

// Shl shifts v left by w. Both must be the same integer kind and w must not
// be negative.
func (v Immediate) Shl(w Immediate) (Immediate, error) { return v.binary(shlOp, w) }

// Shr shifts v right by w, arithmetically for signed kinds.
func (v Immediate) Shr(w Immediate) (Immediate, error) { return v.binary(shrOp, w) }

// binary applies op to two values of the same kind.
func (v Immediate) binary(op operator, w Immediate) (Immediate, error) {
	if v.kind != w.kind {
		return Immediate{}, errors.Wrapf(ErrTypeMismatch, "%s %s %s", v.kind, op, w.kind)
	}
	switch v.kind {
	case KindU8:
		return integerOp(op, uint8(v.bits), uint8(w.bits), U8)
	case KindI8:
		return integerOp(op, int8(v.bits), int8(w.bits), I8)
	case KindU16:
		return integerOp(op, uint16(v.bits), uint16(w.bits), U16)
	case KindI16:
		return integerOp(op, int16(v.bits), int16(w.bits), I16)
	case KindU32:
		return integerOp(op, uint32(v.bits), uint32(w.bits), U32)
	case KindI32:
		return integerOp(op, int32(v.bits), int32(w.bits), I32)
	case KindU64:
		return integerOp(op, v.bits, w.bits, U64)
	case KindI64:
		return integerOp(op, int64(v.bits), int64(w.bits), I64)
	case KindF32:
		return floatOp(op, math.Float32frombits(uint32(v.bits)), math.Float32frombits(uint32(w.bits)), F32)
	case KindF64:
		return floatOp(op, math.Float64frombits(v.bits), math.Float64frombits(w.bits), F64)
	}
	return Immediate{}, errors.Wrapf(ErrUnsupportedOperation, "%s on %s", op, v.kind)
}

func integerOp[T constraints.Integer](op operator, x, y T, wrap func(T) Immediate) (Immediate, error) {
	var r T
	switch op {
	case addOp:
		r = x + y
	case subOp:
		r = x - y
	case mulOp:
		r = x * y
	case divOp:
		if y == 0 {
			return Immediate{}, ErrDivisionByZero
		}
		r = x / y
	case andOp:
		r = x & y
	case orOp:
		r = x | y
	case xorOp:
		r = x ^ y
	case shlOp, shrOp:
		if y < 0 {
			return Immediate{}, errors.Wrapf(ErrShiftRange, "shift by %d", int64(y))
		}
		if op == shlOp {
			r = x << y
		} else {
			r = x >> y
		}
	}
	return wrap(r), nil
}

func floatOp[T constraints.Float](op operator, x, y T, wrap func(T) Immediate) (Immediate, error) {
	switch op {
	case addOp:
		return wrap(x + y), nil
	case subOp:
		return wrap(x - y), nil
	case mulOp:
		return wrap(x * y), nil
	case divOp:
		return wrap(x / y), nil
	}
	return Immediate{}, errors.Wrapf(ErrUnsupportedOperation, "%s on floating point", op)
}
