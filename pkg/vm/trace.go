package vm

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// errWriter keeps returning the first write error.
type errWriter struct {
	w   io.Writer
	err error
}

func (w *errWriter) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	n, err := w.w.Write(p)
	if err != nil {
		w.err = errors.Wrap(err, "write failed")
	}
	return n, w.err
}

// tracef writes one trace line. The first write failure is logged; later
// lines are dropped.
func (vm *VM) tracef(format string, args ...interface{}) {
	if vm.trace == nil {
		return
	}
	fmt.Fprintf(vm.trace, format, args...)
	if vm.trace.err != nil && !vm.traceFailed {
		vm.traceFailed = true
		vm.log.Warning("trace disabled", "ip", vm.ip, "error", vm.trace.err.Error())
	}
}
