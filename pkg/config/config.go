// Package config handles bvm.toml machine profiles.
//
// A profile collects the settings an embedder would otherwise pass to the
// VM one by one:
//
//	[machine]
//	heap-size = 256
//	max-steps = 100000
//	exact-jumps = false
//	stats = true
//
//	[trace]
//	enabled = true
//	path = "trace.log"   # "" or "-" for stdout
//
//	[log]
//	verbosity = 1
//	path = ""            # "" for stderr
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// DefaultHeapSize is used when a profile does not set heap-size. Address
// operands are a single byte, so a larger data segment is unreachable.
const DefaultHeapSize = 256

// Validation errors
var (
	ErrNegativeHeapSize = errors.New("heap-size must not be negative")
	ErrNegativeMaxSteps = errors.New("max-steps must not be negative")
	ErrUnknownKey       = errors.New("unknown key")
)

// Profile represents a bvm.toml machine profile.
type Profile struct {
	Machine Machine `toml:"machine"`
	Trace   Trace   `toml:"trace"`
	Log     Log     `toml:"log"`

	// Path is the file the profile was loaded from (set at load time).
	Path string `toml:"-"`
}

// Machine configures the VM itself.
type Machine struct {
	HeapSize   int   `toml:"heap-size"`
	MaxSteps   int64 `toml:"max-steps"`
	ExactJumps bool  `toml:"exact-jumps"`
	Stats      bool  `toml:"stats"`
}

// Trace configures the execution trace.
type Trace struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	Path      string `toml:"path"`
}

// Default returns the profile used when no file is given.
func Default() *Profile {
	return &Profile{
		Machine: Machine{HeapSize: DefaultHeapSize},
	}
}

// Parse decodes a profile from TOML. Keys that are not set keep their
// defaults, unknown keys are an error.
func Parse(data []byte) (*Profile, error) {
	p := Default()
	md, err := toml.Decode(string(data), p)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(keys, ", "))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Load parses the profile file at path.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.Path = path
	return p, nil
}

// Validate checks the machine settings.
func (p *Profile) Validate() error {
	if p.Machine.HeapSize < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeHeapSize, p.Machine.HeapSize)
	}
	if p.Machine.MaxSteps < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeMaxSteps, p.Machine.MaxSteps)
	}
	return nil
}

// ConfigureLogging sets up the commonlog backend from the [log] section.
func (p *Profile) ConfigureLogging() {
	var path *string
	if p.Log.Path != "" {
		path = &p.Log.Path
	}
	commonlog.Configure(p.Log.Verbosity, path)
}

// OpenTrace opens the trace destination. It returns nil when tracing is
// disabled. Closing the returned writer never closes stdout.
func (p *Profile) OpenTrace() (io.WriteCloser, error) {
	if !p.Trace.Enabled {
		return nil, nil
	}
	if p.Trace.Path == "" || p.Trace.Path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(p.Trace.Path)
	if err != nil {
		return nil, fmt.Errorf("cannot open trace %s: %w", p.Trace.Path, err)
	}
	return f, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
