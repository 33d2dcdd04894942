// Package manifest handles seedcore.toml project configuration.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the configuration file.
const FileName = "seedcore.toml"

// Manifest represents a seedcore.toml configuration. Command-line flags
// override every setting.
type Manifest struct {
	Program Program `toml:"program"`
	Paths   Paths   `toml:"paths"`
	Trace   Trace   `toml:"trace"`
	Exec    Exec    `toml:"exec"`

	// Dir is the directory containing the seedcore.toml file (set at load time).
	Dir string `toml:"-"`
}

// Program names the artifact to run when none is given on the command line.
type Program struct {
	Name     string `toml:"name"`
	Artifact string `toml:"artifact"`
}

// Paths configures where artifacts are looked up and where the protocol goes.
type Paths struct {
	Lib      []string `toml:"lib"`
	Protocol string   `toml:"protocol"`
}

// Trace selects trace letters and log verbosity.
type Trace struct {
	Letters   string `toml:"letters"`
	Verbosity int    `toml:"verbosity"`
}

// Exec configures the interpreter.
type Exec struct {
	Signals     *bool `toml:"signals"`
	Interactive *bool `toml:"interactive"`
	AllowErrors bool  `toml:"allow-errors"`
	MaxDepth    int   `toml:"max-depth"`
}

// SignalsEnabled reports whether signal handling is on. It defaults to true.
func (e Exec) SignalsEnabled() bool {
	return e.Signals == nil || *e.Signals
}

// InteractiveEnabled reports whether interrupts open the diagnostic
// prompt. It defaults to true.
func (e Exec) InteractiveEnabled() bool {
	return e.Interactive == nil || *e.Interactive
}

// Load parses a seedcore.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	if m.Exec.MaxDepth < 0 {
		return nil, fmt.Errorf("%s: max-depth must not be negative", path)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a seedcore.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// LibPaths returns absolute paths for the configured library directories.
func (m *Manifest) LibPaths() []string {
	var paths []string
	for _, d := range m.Paths.Lib {
		paths = append(paths, m.resolve(d))
	}
	return paths
}

// ArtifactPath returns the configured artifact relative to the manifest,
// or "" when none is configured.
func (m *Manifest) ArtifactPath() string {
	if m.Program.Artifact == "" {
		return ""
	}
	return m.resolve(m.Program.Artifact)
}

// ProtocolPath returns the configured protocol file, or "".
func (m *Manifest) ProtocolPath() string {
	if m.Paths.Protocol == "" {
		return ""
	}
	return m.resolve(m.Paths.Protocol)
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// ErrNotFound is returned by FindArtifact when no candidate exists.
var ErrNotFound = errors.New("artifact not found")

// FindArtifact locates name. A path that exists as given wins; otherwise
// a relative name is tried in each library directory in order.
func FindArtifact(name string, libs []string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}
	if !filepath.IsAbs(name) {
		for _, lib := range libs {
			candidate := filepath.Join(lib, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("%s: %w", name, ErrNotFound)
}
