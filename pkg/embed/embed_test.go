package embed

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/commonlog"

	"github.com/akhildatla/bvm/internal/testutil"
	"github.com/akhildatla/bvm/pkg/config"
	"github.com/akhildatla/bvm/pkg/vm"
)

func printFive() []byte {
	return vm.Encode(
		vm.Instruction{Op: vm.OpMov, A: 0, Imm: vm.U8(5)},
		vm.Instruction{Op: vm.OpPrintR, A: 0},
		vm.Instruction{Op: vm.OpHalt},
	)
}

// loop jumps back onto its own JMP forever.
func loop() []byte {
	return vm.Encode(
		vm.Instruction{Op: vm.OpMov, A: 0, Imm: vm.U8(3)},
		vm.Instruction{Op: vm.OpJmp, A: 0},
	)
}

func TestRun_Basic(t *testing.T) {
	var trace testutil.Trace
	result, err := Run(printFive(), WithTrace(&trace))
	require.NoError(t, err)

	assert.Equal(t, vm.StateHalted, result.State)
	assert.Nil(t, result.Fault)
	assert.Nil(t, result.Stats)
	assert.Equal(t, []string{"U8(5)"}, trace.Printed())
	assert.Len(t, result.Snapshot.Heap, DefaultHeapSize)
	assert.Equal(t, vm.U8(5), result.Snapshot.Registers[0])
}

func TestRun_Options(t *testing.T) {
	code := vm.Encode(
		vm.Instruction{Op: vm.OpVStore, A: 3, Imm: vm.I8(-1)},
		vm.Instruction{Op: vm.OpHalt},
	)
	result, err := Run(code, WithHeapSize(4), WithStats(), WithLogger(commonlog.GetLogger("test")))
	require.NoError(t, err)

	assert.Len(t, result.Snapshot.Heap, 4)
	assert.Equal(t, vm.I8(-1), result.Snapshot.Heap[3])
	require.NotNil(t, result.Stats)
	assert.EqualValues(t, 2, result.Stats.StepsExecuted)
}

func TestRun_Fault(t *testing.T) {
	code := vm.Encode(
		vm.Instruction{Op: vm.OpMov, A: 0, Imm: vm.U8(4)},
		vm.Instruction{Op: vm.OpMov, A: 1, Imm: vm.I8(4)},
		vm.Instruction{Op: vm.OpAdd, A: 0, B: 1},
		vm.Instruction{Op: vm.OpHalt},
	)
	result, err := Run(code)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFault)
	assert.ErrorIs(t, err, vm.ErrTypeMismatch)

	var fault *vm.Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, 8, fault.Offset)

	require.NotNil(t, result)
	assert.Equal(t, vm.StateAborted, result.State)
	assert.Same(t, fault, result.Fault)
	assert.Equal(t, vm.I8(4), result.Snapshot.Registers[1])
}

func TestRun_InstructionLimit(t *testing.T) {
	result, err := Run(loop(), WithMaxInstructions(50))
	assert.ErrorIs(t, err, ErrInstructionLimit)
	assert.ErrorIs(t, err, vm.ErrStepLimitExceeded)
	assert.NotErrorIs(t, err, ErrFault)
	require.NotNil(t, result)
	assert.EqualValues(t, 50, result.Snapshot.Steps)
}

func TestRun_ExactJumps(t *testing.T) {
	// Jumping to offset 0 re-runs the VPUSH only with exact jumps; with the
	// default advance it lands on the zero operand bytes, which run as NOPs.
	code := vm.Encode(
		vm.Instruction{Op: vm.OpVPush, Imm: vm.U8(0)},
		vm.Instruction{Op: vm.OpJmp, A: 0},
	)

	result, err := Run(code, WithMaxInstructions(4))
	require.ErrorIs(t, err, ErrInstructionLimit)
	assert.Equal(t, 1, len(result.Snapshot.Stack))

	result, err = Run(code, WithMaxInstructions(4), WithExactJumps())
	require.ErrorIs(t, err, ErrInstructionLimit)
	assert.Equal(t, 2, len(result.Snapshot.Stack))
}

func TestRun_NegativeHeap(t *testing.T) {
	result, err := Run(printFive(), WithHeapSize(-1))
	assert.ErrorIs(t, err, config.ErrNegativeHeapSize)
	assert.Nil(t, result)
}

func TestRun_Profile(t *testing.T) {
	p, err := config.Parse([]byte(`
[machine]
heap-size = 2
max-steps = 10
stats = true
`))
	require.NoError(t, err)

	result, err := Run(loop(), WithProfile(p))
	assert.ErrorIs(t, err, ErrInstructionLimit)
	require.NotNil(t, result)
	assert.Len(t, result.Snapshot.Heap, 2)
	require.NotNil(t, result.Stats)
	assert.EqualValues(t, 10, result.Stats.StepsExecuted)

	// Later options win.
	result, err = Run(loop(), WithProfile(p), WithMaxInstructions(3))
	assert.ErrorIs(t, err, ErrInstructionLimit)
	assert.EqualValues(t, 3, result.Stats.StepsExecuted)
}

func TestRun_NilProfile(t *testing.T) {
	var result *Result
	var err error
	require.NotPanics(t, func() {
		result, err = Run(printFive(), WithHeapSize(3), WithProfile(nil))
	})
	require.NoError(t, err)
	assert.Equal(t, vm.StateHalted, result.State)
	assert.Len(t, result.Snapshot.Heap, 3)
}

func TestRun_ProfileLogging(t *testing.T) {
	t.Cleanup(func() { commonlog.Configure(0, nil) })

	p := config.Default()
	p.Log.Verbosity = 2
	p.Log.Path = testutil.TempPath(t, "bvm.log")

	_, err := Run(printFive(), WithProfile(p))
	require.NoError(t, err)
	assert.FileExists(t, p.Log.Path)
}

func TestRun_ProfileTrace(t *testing.T) {
	p := config.Default()
	p.Trace.Enabled = true
	p.Trace.Path = testutil.TempPath(t, "trace.log")

	_, err := Run(printFive(), WithProfile(p))
	require.NoError(t, err)

	data, err := os.ReadFile(p.Trace.Path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "0000: MOV R0, U8(5)\n"))
	assert.Contains(t, string(data), "  => U8(5)\n")

	// An explicit writer takes precedence over the profile.
	var buf bytes.Buffer
	p.Trace.Path = testutil.TempPath(t, "unused.log")
	_, err = Run(printFive(), WithProfile(p), WithTrace(&buf))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "0006: HALT")
	assert.NoFileExists(t, p.Trace.Path)
}

func TestRunFile(t *testing.T) {
	path := testutil.TempFile(t, printFive(), ".bin")
	var trace testutil.Trace
	result, err := RunFile(path, WithTrace(&trace))
	require.NoError(t, err)
	assert.Equal(t, vm.StateHalted, result.State)
	assert.Equal(t, []string{"U8(5)"}, trace.Printed())

	_, err = RunFile(testutil.TempPath(t, "missing.bin"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
