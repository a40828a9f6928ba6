// Package manifest handles inliner.toml configuration.
package manifest

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// FileName is the configuration file looked up next to the input.
const FileName = "inliner.toml"

// Manifest represents an inliner.toml configuration.
type Manifest struct {
	Optimizer Optimizer `toml:"optimizer"`
	Inline    Inline    `toml:"inline"`
	Output    Output    `toml:"output"`
	Journal   Journal   `toml:"journal"`
	Log       Log       `toml:"log"`

	// Dir is the directory containing the inliner.toml file (set at load time).
	// Relative paths in the manifest are resolved against it.
	Dir string `toml:"-"`
}

// Optimizer selects and orders the passes. An empty list means the
// standard order.
type Optimizer struct {
	Passes       []string `toml:"passes"`
	InlineBudget int      `toml:"inline-budget"`
}

// Inline configures the baseline inlining policy. Zero limits mean no limit.
type Inline struct {
	MaxInstructions int      `toml:"max-instructions"`
	MaxLocals       int      `toml:"max-locals"`
	Exclude         []string `toml:"exclude"`
}

// Output configures where the optimized assembly is written.
type Output struct {
	Suffix string `toml:"suffix"`
	Dir    string `toml:"dir"`
}

// Journal configures the run journal. An empty path disables it.
type Journal struct {
	Path string `toml:"path"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no inliner.toml exists.
func Default() *Manifest {
	return &Manifest{Output: Output{Suffix: "inlined"}}
}

// Load parses inliner.toml from the given directory.
func Load(dir string) (*Manifest, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses the configuration file at path.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", path)
	}

	m := Default()
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, errors.Wrapf(err, "parse error in %s", path)
	}

	m.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot resolve path %s", path)
	}

	if err := m.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid %s", path)
	}
	return m, nil
}

// FindAndLoad walks up from startDir to find an inliner.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks values that would otherwise fail later in the run.
func (m *Manifest) Validate() error {
	if m.Optimizer.InlineBudget < 0 {
		return errors.Errorf("optimizer.inline-budget = %d, must not be negative", m.Optimizer.InlineBudget)
	}
	if m.Inline.MaxInstructions < 0 {
		return errors.Errorf("inline.max-instructions = %d, must not be negative", m.Inline.MaxInstructions)
	}
	if m.Inline.MaxLocals < 0 {
		return errors.Errorf("inline.max-locals = %d, must not be negative", m.Inline.MaxLocals)
	}
	seen := make(map[string]bool, len(m.Optimizer.Passes))
	for _, p := range m.Optimizer.Passes {
		if seen[p] {
			return errors.Errorf("optimizer.passes lists %q twice", p)
		}
		seen[p] = true
	}
	return nil
}

// OutputDir returns the configured output directory, or "" to write next
// to the input.
func (m *Manifest) OutputDir() string {
	return m.resolve(m.Output.Dir)
}

// JournalPath returns the journal database path, or "" if disabled.
func (m *Manifest) JournalPath() string {
	return m.resolve(m.Journal.Path)
}

// LogFile returns the log file path, or "" for stderr.
func (m *Manifest) LogFile() string {
	return m.resolve(m.Log.File)
}

func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || m.Dir == "" {
		return p
	}
	return filepath.Join(m.Dir, p)
}
