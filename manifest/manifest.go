// Package manifest handles tuga.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "tuga.toml"

// DefaultBytecodePath is where compiled bytecode goes when nothing else is
// configured.
const DefaultBytecodePath = "bytecodes"

// Manifest represents a tuga.toml project configuration.
type Manifest struct {
	Project     Project     `toml:"project"`
	Diagnostics Diagnostics `toml:"diagnostics"`
	Output      Output      `toml:"output"`
	VM          VMConfig    `toml:"vm"`
	Log         LogConfig   `toml:"log"`

	// Dir is the directory containing the tuga.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name"`
}

// Diagnostics controls whether per-error detail is printed for each stage.
// The category line is printed regardless.
type Diagnostics struct {
	ShowLexerErrors  bool `toml:"show-lexer-errors"`
	ShowParserErrors bool `toml:"show-parser-errors"`
	ShowTypeErrors   bool `toml:"show-type-errors"`
}

// Output configures generated artifacts.
type Output struct {
	Bytecode string `toml:"bytecode"`
	Listing  string `toml:"listing"` // CBOR listing path; empty disables it
}

// VMConfig configures execution.
type VMConfig struct {
	Trace   bool `toml:"trace"`
	Profile bool `toml:"profile"`
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no tuga.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Output.Bytecode == "" {
		m.Output.Bytecode = DefaultBytecodePath
	}
}

// Load parses a tuga.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes tuga.toml content and applies defaults. Unknown keys are
// rejected so that typos do not silently fall back to defaults.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	if m.Log.Verbosity < 0 {
		return nil, fmt.Errorf("log.verbosity must not be negative, got %d", m.Log.Verbosity)
	}
	m.applyDefaults()
	return &m, nil
}

// FindAndLoad walks up from startDir to find a tuga.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Resolve returns p relative to the manifest directory, leaving absolute
// paths and manifests without a directory untouched.
func (m *Manifest) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || m.Dir == "" {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// BytecodePath returns the resolved bytecode output path.
func (m *Manifest) BytecodePath() string {
	return m.Resolve(m.Output.Bytecode)
}

// ListingPath returns the resolved CBOR listing path, or "".
func (m *Manifest) ListingPath() string {
	return m.Resolve(m.Output.Listing)
}

// LogFile returns the resolved log file path, or nil for stderr, in the form
// commonlog.Configure expects.
func (m *Manifest) LogFile() *string {
	if m.Log.File == "" {
		return nil
	}
	p := m.Resolve(m.Log.File)
	return &p
}
