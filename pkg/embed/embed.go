// Package embed provides the Go embedding API for bvm.
//
// Pass program bytes, get the final machine state.
//
// Basic usage:
//
//	code := vm.Encode(
//	    vm.Instruction{Op: vm.OpMov, A: 0, Imm: vm.U8(5)},
//	    vm.Instruction{Op: vm.OpPrintR, A: 0},
//	    vm.Instruction{Op: vm.OpHalt},
//	)
//	result, err := embed.Run(code, embed.WithTrace(os.Stdout))
//
// With a machine profile:
//
//	profile, err := config.Load("bvm.toml")
//	result, err := embed.RunFile("program.bin", embed.WithProfile(profile))
package embed

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/akhildatla/bvm/pkg/config"
	"github.com/akhildatla/bvm/pkg/vm"
)

// DefaultHeapSize is the data segment size used unless WithHeapSize or a
// profile says otherwise.
const DefaultHeapSize = config.DefaultHeapSize

// Common errors
var (
	ErrInstructionLimit = errors.New("instruction limit exceeded")
	ErrFault            = errors.New("execution aborted")
)

// Result is the outcome of a run. It is returned on faults as well, so the
// final state can be inspected.
type Result struct {
	State    vm.State
	Snapshot *vm.Snapshot
	Stats    *vm.ExecutionStats // nil unless stats were enabled
	Fault    *vm.Fault          // nil unless the run aborted
}

// Options configures execution behavior.
type Options struct {
	// HeapSize is the number of data segment cells.
	HeapSize int

	// Trace receives the execution trace. Nil disables tracing unless a
	// profile enables it.
	Trace io.Writer

	// MaxInstructions limits the number of instructions executed.
	// Zero means unlimited.
	MaxInstructions int64

	// ExactJumps resumes execution exactly at jump and return targets.
	ExactJumps bool

	// Stats enables execution statistics.
	Stats bool

	// Logger overrides the VM logger.
	Logger commonlog.Logger

	// Profile is the profile applied by WithProfile, kept for its trace
	// settings.
	Profile *config.Profile
}

// Option is a functional option for configuring execution.
type Option func(*Options)

// WithHeapSize sets the data segment size.
func WithHeapSize(n int) Option {
	return func(o *Options) {
		o.HeapSize = n
	}
}

// WithTrace sets the trace writer.
func WithTrace(w io.Writer) Option {
	return func(o *Options) {
		o.Trace = w
	}
}

// WithMaxInstructions sets instruction limit.
func WithMaxInstructions(n int64) Option {
	return func(o *Options) {
		o.MaxInstructions = n
	}
}

// WithExactJumps disables the extra pointer advance after control transfers.
func WithExactJumps() Option {
	return func(o *Options) {
		o.ExactJumps = true
	}
}

// WithStats enables execution statistics.
func WithStats() Option {
	return func(o *Options) {
		o.Stats = true
	}
}

// WithLogger sets the VM logger.
func WithLogger(l commonlog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithProfile applies the machine settings of a profile. Options given
// after it override individual settings. Run configures logging from the
// profile's [log] section. If the profile enables tracing and no writer is
// set with WithTrace, Run opens the profile's trace destination for the
// duration of the run. A nil profile is ignored.
func WithProfile(p *config.Profile) Option {
	return func(o *Options) {
		if p == nil {
			return
		}
		o.HeapSize = p.Machine.HeapSize
		o.MaxInstructions = p.Machine.MaxSteps
		o.ExactJumps = p.Machine.ExactJumps
		o.Stats = p.Machine.Stats
		o.Profile = p
	}
}

// Run executes code on a fresh machine.
//
// The error wraps ErrInstructionLimit when the instruction limit stopped
// the run, and ErrFault for every other fault; in both cases it also wraps
// the *vm.Fault. The Result is non-nil whenever the machine was started.
//
// Example:
//
//	result, err := embed.Run(code,
//	    embed.WithHeapSize(64),
//	    embed.WithMaxInstructions(10000),
//	    embed.WithStats(),
//	)
func Run(code []byte, opts ...Option) (*Result, error) {
	// Apply options
	options := &Options{
		HeapSize: DefaultHeapSize,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.HeapSize < 0 {
		return nil, fmt.Errorf("%w: %d", config.ErrNegativeHeapSize, options.HeapSize)
	}

	if options.Profile != nil {
		options.Profile.ConfigureLogging()
	}

	trace := options.Trace
	if trace == nil && options.Profile != nil {
		w, err := options.Profile.OpenTrace()
		if err != nil {
			return nil, err
		}
		if w != nil {
			defer w.Close()
			trace = w
		}
	}

	// Create VM with options
	machine := vm.NewVM(code, options.HeapSize)
	if options.Logger != nil {
		machine.SetLogger(options.Logger)
	}
	if trace != nil {
		machine.SetTrace(trace)
	}
	machine.SetMaxSteps(options.MaxInstructions)
	machine.SetExactJumps(options.ExactJumps)
	if options.Stats {
		machine.EnableStats()
	}

	// Execute
	err := machine.Run()
	result := &Result{
		State:    machine.State(),
		Snapshot: machine.Snapshot(),
		Stats:    machine.Stats(),
	}
	commonlog.GetLogger("bvm.embed").Debug("program finished", "size", len(code), "state", result.State.String(), "steps", result.Snapshot.Steps)
	if err != nil {
		errors.As(err, &result.Fault)
		// Map VM errors to embed package errors
		if errors.Is(err, vm.ErrStepLimitExceeded) {
			return result, fmt.Errorf("%w: %w", ErrInstructionLimit, err)
		}
		return result, fmt.Errorf("%w: %w", ErrFault, err)
	}
	return result, nil
}

// RunFile reads a raw program file and executes it.
func RunFile(path string, opts ...Option) (*Result, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Run(code, opts...)
}
