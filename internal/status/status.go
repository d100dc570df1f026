// Package status reads and writes config.status.yaml, the record of how a
// build directory was configured, and detects drift in the generated files.
package status

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the status record's name inside the build directory.
const FileName = "config.status.yaml"

// Record is the snapshot of one successful configuration pass.
type Record struct {
	Version    int        `yaml:"version"`
	Package    string     `yaml:"package"`
	ABI        string     `yaml:"abi"`
	Invocation Invocation `yaml:"invocation"`
	Toolchain  Toolchain  `yaml:"toolchain"`
	Artifacts  []Artifact `yaml:"artifacts"`
}

// Invocation is the input snapshot the pass ran with. Recheck replays it.
type Invocation struct {
	Descriptor string `yaml:"descriptor"`
	Srcdir     string `yaml:"srcdir"`
	Builddir   string `yaml:"builddir"`

	Prefix     string `yaml:"prefix,omitempty"`
	ExecPrefix string `yaml:"exec_prefix,omitempty"`
	Bindir     string `yaml:"bindir,omitempty"`
	Libdir     string `yaml:"libdir,omitempty"`
	Includedir string `yaml:"includedir,omitempty"`
	Host       string `yaml:"host,omitempty"`

	Enable  []string `yaml:"enable,omitempty"`
	Disable []string `yaml:"disable,omitempty"`

	CC       string   `yaml:"cc,omitempty"`
	CPPFlags []string `yaml:"cppflags,omitempty"`
	CFlags   []string `yaml:"cflags,omitempty"`
	LDFlags  []string `yaml:"ldflags,omitempty"`
	Libs     []string `yaml:"libs,omitempty"`
}

// Toolchain records the compiler the pass selected.
type Toolchain struct {
	Compiler string `yaml:"compiler"`
	Vendor   string `yaml:"vendor"`
	Host     string `yaml:"host"`
}

// Artifact records the hash of one generated file.
type Artifact struct {
	Path   string `yaml:"path"`
	Kind   string `yaml:"kind"`
	SHA256 string `yaml:"sha256"`
}

// Marshal renders a record as YAML.
func Marshal(r *Record) ([]byte, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshaling status record: %w", err)
	}
	return data, nil
}

// Load reads and validates the status record in buildDir.
func Load(buildDir string) (*Record, error) {
	path := filepath.Join(buildDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading status record %s: %w", path, err)
	}

	var r Record
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing status record %s: %w", path, err)
	}

	if errs := Validate(&r); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return &r, nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("status record validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Record for semantic correctness.
func Validate(r *Record) []string {
	var errs []string

	if r.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d: only version 1 is supported", r.Version))
	}
	if r.Invocation.Descriptor == "" {
		errs = append(errs, "invocation: 'descriptor' is required")
	}
	if r.Invocation.Builddir == "" {
		errs = append(errs, "invocation: 'builddir' is required")
	}
	if len(r.Artifacts) == 0 {
		errs = append(errs, "no artifacts recorded")
	}

	seen := make(map[string]bool)
	for i, a := range r.Artifacts {
		prefix := fmt.Sprintf("artifact[%d]", i)
		if a.Path != "" {
			prefix = fmt.Sprintf("artifact '%s'", a.Path)
		}
		switch {
		case a.Path == "":
			errs = append(errs, prefix+": 'path' is required")
		case seen[a.Path]:
			errs = append(errs, prefix+": duplicate path")
		default:
			seen[a.Path] = true
		}
		if len(a.SHA256) != sha256.Size*2 {
			errs = append(errs, prefix+": 'sha256' must be 64 hex characters")
		}
	}
	return errs
}

// Drift is one generated file whose content changed since configuration.
type Drift struct {
	Path     string
	Expected string
	Actual   string
}

// Report is the outcome of a drift check.
type Report struct {
	Clean   bool
	Missing []string
	Drifted []Drift
}

// Check hashes every recorded artifact under buildDir and compares it with
// the record.
func Check(buildDir string, r *Record) (*Report, error) {
	rep := &Report{Clean: true}

	for _, a := range r.Artifacts {
		content, err := os.ReadFile(filepath.Join(buildDir, filepath.FromSlash(a.Path)))
		if err != nil {
			if os.IsNotExist(err) {
				rep.Missing = append(rep.Missing, a.Path)
				rep.Clean = false
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", a.Path, err)
		}

		if actual := sha256Hex(content); actual != a.SHA256 {
			rep.Drifted = append(rep.Drifted, Drift{Path: a.Path, Expected: a.SHA256, Actual: actual})
			rep.Clean = false
		}
	}
	return rep, nil
}

func sha256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
