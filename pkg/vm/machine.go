// Package vm implements a register based bytecode virtual machine.
//
// The machine has:
//   - 8 general purpose registers (R0-R7), each holding one Immediate
//   - a growable operand stack, also used for call return addresses
//   - a fixed-capacity data segment ("heap") addressed by a single byte
//   - two condition flags, equal and greater, set by CMP
//
// Programs are flat byte slices: an opcode byte followed by its operands.
// Immediates are a type tag followed by the little-endian value bytes.
//
// Basic usage:
//
//	code := vm.Encode(
//		vm.Instruction{Op: vm.OpMov, A: 0, Imm: vm.U8(5)},
//		vm.Instruction{Op: vm.OpPrintR, A: 0},
//		vm.Instruction{Op: vm.OpHalt},
//	)
//	m := vm.NewVM(code, 256)
//	m.SetTrace(os.Stdout)
//	err := m.Run()
//
// After every instruction, including a taken jump, CALL or RET, the
// instruction pointer advances one more byte. Jump targets therefore name
// the byte just before the instruction that should run next. SetExactJumps
// turns this off for control transfers.
package vm

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/tliron/commonlog"
)

// State is the lifecycle state of a VM.
type State uint8

const (
	StateIdle State = iota
	StateRunning
	StateHalted
	StateAborted
)

var stateNames = [...]string{"idle", "running", "halted", "aborted"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

// ExecutionStats contains metrics about VM execution for observability.
type ExecutionStats struct {
	StepsExecuted   int64          // Total instructions executed
	ExecutionTimeNs int64          // Execution time in nanoseconds
	PeakStackDepth  int            // Deepest the operand stack got
	OpCounts        map[string]int // Count of each opcode executed
}

// VM represents the virtual machine.
type VM struct {
	code []byte
	ip   int // offset of the byte being executed

	equal   bool
	greater bool

	regs  *RegisterFile
	stack Stack
	heap  *DataSegment

	running bool
	state   State

	exactJumps bool
	jumped     bool // set by a taken control transfer

	trace       *errWriter
	traceFailed bool
	log         commonlog.Logger

	// Resource limits
	maxSteps  int64
	stepCount int64

	// Observability - execution statistics
	stats        ExecutionStats
	statsEnabled bool
}

// NewVM creates a machine for code with a data segment of heapSize cells.
// The code slice is not copied and must not be modified while the machine
// runs.
func NewVM(code []byte, heapSize int) *VM {
	return &VM{
		code: code,
		regs: NewRegisterFile(),
		heap: NewDataSegment(heapSize),
		log:  commonlog.GetLogger("bvm.vm"),
	}
}

// SetTrace sets the writer that receives the execution trace. A nil writer
// disables tracing. Write errors are reported once through the logger and
// never abort the run.
func (vm *VM) SetTrace(w io.Writer) {
	if w == nil {
		vm.trace = nil
		return
	}
	vm.trace = &errWriter{w: w}
	vm.traceFailed = false
}

// SetLogger replaces the logger. A nil logger restores the default.
func (vm *VM) SetLogger(log commonlog.Logger) {
	if log == nil {
		log = commonlog.GetLogger("bvm.vm")
	}
	vm.log = log
}

// SetMaxSteps sets the maximum number of instructions Run may execute.
// Zero or a negative value means no limit.
func (vm *VM) SetMaxSteps(n int64) {
	vm.maxSteps = n
}

// SetExactJumps controls the pointer advance after a taken JMP, conditional
// jump, CALL or RET. When exact is true, execution resumes at the target
// itself instead of one byte past it.
func (vm *VM) SetExactJumps(exact bool) {
	vm.exactJumps = exact
}

// EnableStats enables execution statistics collection.
// When enabled, the VM tracks steps executed, timing, stack depth and opcode counts.
func (vm *VM) EnableStats() {
	vm.statsEnabled = true
	vm.stats = ExecutionStats{
		OpCounts: make(map[string]int),
	}
}

// Stats returns the execution statistics from the last Run() call.
// Returns nil if stats were not enabled via EnableStats().
func (vm *VM) Stats() *ExecutionStats {
	if !vm.statsEnabled {
		return nil
	}
	return &vm.stats
}

// IP returns the instruction pointer.
func (vm *VM) IP() int { return vm.ip }

// Flags returns the equal and greater condition flags.
func (vm *VM) Flags() (equal, greater bool) { return vm.equal, vm.greater }

// State returns the lifecycle state.
func (vm *VM) State() State { return vm.state }

// Register returns the value of register i.
func (vm *VM) Register(i uint8) (Immediate, error) { return vm.regs.Get(i) }

// Heap returns the data segment.
func (vm *VM) Heap() *DataSegment { return vm.heap }

// Stack returns the operand stack.
func (vm *VM) Stack() *Stack { return &vm.stack }

// Run executes the program until HALT, until the instruction pointer leaves
// the code, or until an instruction fails. It returns nil when the machine
// halts and a *Fault when it aborts. Side effects of a failed instruction
// that happened before the failure are kept.
//
// Calling Run while the machine is already running does nothing. A halted
// or aborted machine cannot be run again.
func (vm *VM) Run() (err error) {
	switch vm.state {
	case StateRunning:
		return nil
	case StateHalted, StateAborted:
		return ErrMachineFinished
	}
	vm.state = StateRunning
	vm.running = true

	var startTime time.Time
	if vm.statsEnabled {
		startTime = time.Now()
	}
	vm.log.Debug("run started", "ip", vm.ip, "size", len(vm.code))

	var (
		pc   int
		inst Instruction
	)
	defer func() {
		if e := recover(); e != nil {
			cause, ok := e.(error)
			if !ok {
				cause = errors.Errorf("%v", e)
			}
			err = vm.abort(pc, inst, errors.Wrapf(cause, "recovered @ip=%d/%d", vm.ip, len(vm.code)))
		}
		if vm.statsEnabled {
			vm.stats.ExecutionTimeNs = time.Since(startTime).Nanoseconds()
		}
		vm.log.Debug("run stopped", "ip", vm.ip, "steps", vm.stepCount, "state", vm.state.String())
	}()

	for vm.running && vm.ip < len(vm.code) {
		pc = vm.ip
		inst = Instruction{}

		// Resource limit check
		if vm.maxSteps > 0 && vm.stepCount >= vm.maxSteps {
			return vm.abort(pc, inst, errors.Wrapf(ErrStepLimitExceeded, "limit %d", vm.maxSteps))
		}

		var n int
		inst, n, err = Decode(vm.code, pc)
		if err != nil {
			return vm.abort(pc, inst, err)
		}
		// The pointer rests on the last operand byte while the instruction runs.
		vm.ip = pc + n - 1
		vm.stepCount++

		// Track opcode execution if stats enabled
		if vm.statsEnabled {
			vm.stats.StepsExecuted++
			vm.stats.OpCounts[inst.Op.String()]++
		}

		vm.tracef("%04d: %s\n", pc, inst)

		vm.jumped = false
		if err = vm.Execute(inst); err != nil {
			return vm.abort(pc, inst, err)
		}
		if vm.exactJumps && vm.jumped {
			continue
		}
		vm.ip++
	}

	vm.running = false
	vm.state = StateHalted
	return nil
}

// abort moves the machine to the aborted state and builds the fault.
func (vm *VM) abort(pc int, inst Instruction, cause error) error {
	vm.running = false
	vm.state = StateAborted
	f := &Fault{IP: vm.ip, Offset: pc, Inst: inst, Err: cause}
	vm.log.Error("run aborted", "ip", f.IP, "offset", f.Offset, "op", inst.Op.String(), "error", cause.Error())
	return f
}

// push puts v on the operand stack, tracking the peak depth.
func (vm *VM) push(v Immediate) {
	vm.stack.Push(v)
	if vm.statsEnabled && vm.stack.Len() > vm.stats.PeakStackDepth {
		vm.stats.PeakStackDepth = vm.stack.Len()
	}
}
