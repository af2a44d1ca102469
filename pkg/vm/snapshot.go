package vm

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// cborEncMode uses canonical mode for deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Snapshot is a copy of the machine state at one point in time. It is meant
// for inspection; a machine cannot be resumed from it.
type Snapshot struct {
	IP        int         `cbor:"ip"`
	Equal     bool        `cbor:"eq"`
	Greater   bool        `cbor:"gt"`
	State     State       `cbor:"state"`
	Steps     int64       `cbor:"steps"`
	Registers []Immediate `cbor:"regs"`
	Stack     []Immediate `cbor:"stack"` // bottom first
	Heap      []Immediate `cbor:"heap"`
}

// Snapshot captures the current machine state.
func (vm *VM) Snapshot() *Snapshot {
	return &Snapshot{
		IP:        vm.ip,
		Equal:     vm.equal,
		Greater:   vm.greater,
		State:     vm.state,
		Steps:     vm.stepCount,
		Registers: vm.regs.Values(),
		Stack:     vm.stack.Values(),
		Heap:      vm.heap.Values(),
	}
}

// Encode serializes the snapshot to CBOR.
func (s *Snapshot) Encode() ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// DecodeSnapshot deserializes a snapshot produced by Snapshot.Encode.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "vm: unmarshal snapshot")
	}
	return &s, nil
}

// immediateWire is the CBOR form of an Immediate: [kind, bits].
type immediateWire struct {
	_    struct{} `cbor:",toarray"`
	Kind uint8
	Bits uint64
}

// MarshalCBOR implements cbor.Marshaler.
func (v Immediate) MarshalCBOR() ([]byte, error) {
	return cborEncMode.Marshal(immediateWire{Kind: uint8(v.kind), Bits: v.bits})
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (v *Immediate) UnmarshalCBOR(data []byte) error {
	var w immediateWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return err
	}
	*v = FromBits(Kind(w.Kind), w.Bits)
	return nil
}

// Equal reports whether v and w have the same kind and bit pattern.
func (v Immediate) Equal(w Immediate) bool { return v == w }

// Dump writes a human readable dump of the machine state to w: a header
// line with ip, flags and state, then the registers, the stack (bottom
// first) and every heap cell that is not U8(0).
func (vm *VM) Dump(w io.Writer) error {
	ew := &errWriter{w: w}
	fmt.Fprintf(ew, "ip=%d equal=%t greater=%t state=%s steps=%d\n",
		vm.ip, vm.equal, vm.greater, vm.state, vm.stepCount)
	for i, v := range vm.regs.Values() {
		fmt.Fprintf(ew, "R%d=%s", i, v)
		if i < NumRegisters-1 {
			io.WriteString(ew, " ")
		}
	}
	io.WriteString(ew, "\nstack:")
	for _, v := range vm.stack.Values() {
		io.WriteString(ew, " "+v.String())
	}
	io.WriteString(ew, "\nheap:")
	for addr, v := range vm.heap.Values() {
		if v == (Immediate{}) {
			continue
		}
		io.WriteString(ew, " ["+strconv.Itoa(addr)+"]="+v.String())
	}
	io.WriteString(ew, "\n")
	return ew.err
}
