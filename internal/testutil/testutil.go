// Package testutil provides testing utilities for bvm tests.
package testutil

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TempFile creates a temporary file with the given content and extension.
// The file is automatically cleaned up when the test finishes.
func TempFile(t *testing.T, content []byte, ext string) string {
	t.Helper()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test"+ext)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

// TempPath returns a path inside a fresh temporary directory without
// creating the file.
func TempPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

// Trace collects an execution trace.
type Trace struct {
	bytes.Buffer
}

// Lines returns the trace split into lines, without the trailing empty line.
func (tr *Trace) Lines() []string {
	s := strings.TrimSuffix(tr.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Printed returns the values written by PRINTR and PRINTV, in order.
func (tr *Trace) Printed() []string {
	var out []string
	for _, line := range tr.Lines() {
		if v, ok := strings.CutPrefix(line, "  => "); ok {
			out = append(out, v)
		}
	}
	return out
}

// ErrBrokenWriter is returned by BrokenWriter.
var ErrBrokenWriter = errors.New("broken writer")

// BrokenWriter fails every write after the first n bytes have been accepted.
type BrokenWriter struct {
	N      int
	Writes int
}

func (w *BrokenWriter) Write(p []byte) (int, error) {
	w.Writes++
	if w.N <= 0 {
		return 0, ErrBrokenWriter
	}
	if len(p) > w.N {
		n := w.N
		w.N = 0
		return n, ErrBrokenWriter
	}
	w.N -= len(p)
	return len(p), nil
}
