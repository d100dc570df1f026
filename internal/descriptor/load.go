package descriptor

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"

	"github.com/rscada/canconfig/internal/metadata"
)

// Load reads, defaults, and validates a descriptor. Files ending in .hcl
// are decoded as HCL; everything else as YAML.
func Load(path string) (*Descriptor, error) {
	var d Descriptor

	if strings.HasSuffix(path, ".hcl") {
		if err := hclsimple.DecodeFile(path, EvalContext(runtime.GOOS, runtime.GOARCH), &d); err != nil {
			return nil, fmt.Errorf("parsing descriptor %s: %w", path, err)
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading descriptor %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("parsing descriptor %s: %w", path, err)
		}
	}

	ApplyDefaults(&d)

	if errs := Validate(&d); len(errs) > 0 {
		ve := &ValidationError{Errors: errs}
		p := d.Package
		if _, err := metadata.New(p.Name, p.Version, p.Contact, p.Tarname, p.Homepage); err != nil {
			ve.Err = err
		}
		return nil, ve
	}

	return &d, nil
}

// EvalContext exposes the build platform to HCL descriptors as
// platform.os and platform.arch.
func EvalContext(goos, goarch string) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"platform": cty.ObjectVal(map[string]cty.Value{
				"os":   cty.StringVal(goos),
				"arch": cty.StringVal(goarch),
			}),
		},
	}
}

var nonTarChars = regexp.MustCompile(`[^a-z0-9+_.-]+`)

// ApplyDefaults fills optional fields.
func ApplyDefaults(d *Descriptor) {
	if d.Package.Tarname == "" && d.Package.Name != "" {
		d.Package.Tarname = nonTarChars.ReplaceAllString(strings.ToLower(d.Package.Name), "-")
	}
	if d.ConfigHeader == "" {
		d.ConfigHeader = "config.h"
	}
	if d.Manifest == nil {
		var libs []string
		for _, m := range d.Modules {
			if m.Kind == KindLibrary {
				libs = append(libs, m.Dir)
			}
		}
		if len(libs) == 1 {
			d.Manifest = &Manifest{Library: libs[0]}
		}
	}
	if d.Manifest != nil && d.Manifest.File == "" && d.Package.Tarname != "" {
		d.Manifest.File = d.Package.Tarname + ".pc"
	}
}

// ValidationError holds multiple validation failures. Err is the
// *metadata.Error for an incomplete package identity, if any.
type ValidationError struct {
	Errors []string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("descriptor validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

var featureName = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// Validate checks a Descriptor for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(d *Descriptor) []string {
	var errs []string

	if d.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d: only version 1 is supported", d.Version))
	}

	// Package identity. Emptiness is re-checked by the metadata registry;
	// reporting it here keeps every problem in one message.
	for _, f := range []struct{ name, value string }{
		{"name", d.Package.Name},
		{"version", d.Package.Version},
		{"contact", d.Package.Contact},
		{"homepage", d.Package.Homepage},
	} {
		if f.value == "" {
			errs = append(errs, fmt.Sprintf("package: '%s' is required", f.name))
		}
	}

	if d.ABI == nil {
		errs = append(errs, "abi: block is required (current, revision, age)")
	}

	if strings.ContainsAny(d.ConfigHeader, `/\`) {
		errs = append(errs, fmt.Sprintf("config_header '%s' must be a file name, not a path", d.ConfigHeader))
	}

	errs = append(errs, validateModules(d)...)
	errs = append(errs, validateChecks(d.Checks)...)

	// Features.
	featureNames := make(map[string]bool)
	for i, f := range d.Features {
		prefix := fmt.Sprintf("feature[%d]", i)
		if f.Name != "" {
			prefix = fmt.Sprintf("feature '%s'", f.Name)
		}
		switch {
		case f.Name == "":
			errs = append(errs, fmt.Sprintf("%s: 'name' is required", prefix))
		case !featureName.MatchString(f.Name):
			errs = append(errs, fmt.Sprintf("%s: name must be lowercase letters, digits and dashes", prefix))
		case featureNames[f.Name]:
			errs = append(errs, fmt.Sprintf("%s: duplicate feature name '%s'", prefix, f.Name))
		default:
			featureNames[f.Name] = true
		}
	}

	// Manifest. Omitting it is only allowed with a single library module.
	if d.Manifest == nil && len(d.Modules) > 0 {
		errs = append(errs, "manifest: block is required when there is not exactly one library module")
	}
	if m := d.Manifest; m != nil {
		if m.Library == "" {
			errs = append(errs, "manifest: 'library' is required")
		} else if _, ok := d.LibraryModule(m.Library); !ok {
			errs = append(errs, fmt.Sprintf("manifest: references undefined library module '%s'", m.Library))
		}
		if strings.ContainsAny(m.File, `/\`) {
			errs = append(errs, fmt.Sprintf("manifest: file '%s' must be a file name, not a path", m.File))
		}
	}

	return errs
}

func validateModules(d *Descriptor) []string {
	var errs []string

	if len(d.Modules) == 0 {
		errs = append(errs, "at least one module is required")
	}

	dirs := make(map[string]bool)
	for _, m := range d.Modules {
		if m.Dir != "" {
			dirs[m.Dir] = true
		}
	}

	seen := make(map[string]bool)
	for i, m := range d.Modules {
		prefix := fmt.Sprintf("module[%d]", i)
		if m.Dir != "" {
			prefix = fmt.Sprintf("module '%s'", m.Dir)
		}

		switch {
		case m.Dir == "":
			errs = append(errs, fmt.Sprintf("%s: 'dir' is required", prefix))
		case seen[m.Dir]:
			errs = append(errs, fmt.Sprintf("%s: duplicate module dir '%s'", prefix, m.Dir))
		case filepath.IsAbs(m.Dir) || path.Clean(m.Dir) != m.Dir || m.Dir == ".." || strings.HasPrefix(m.Dir, "../"):
			errs = append(errs, fmt.Sprintf("%s: dir must be a clean relative path inside the source tree", prefix))
		}
		seen[m.Dir] = true

		switch m.Kind {
		case KindAggregate:
			if len(m.Subdirs) == 0 {
				errs = append(errs, fmt.Sprintf("%s: aggregate module requires 'subdirs'", prefix))
			}
			for _, sub := range m.Subdirs {
				if !dirs[sub] {
					errs = append(errs, fmt.Sprintf("%s: subdir '%s' is not a declared module", prefix, sub))
				}
				if sub == m.Dir {
					errs = append(errs, fmt.Sprintf("%s: module cannot list itself as a subdir", prefix))
				}
			}
		case KindLibrary:
			if m.Library == "" {
				errs = append(errs, fmt.Sprintf("%s: library module requires 'library' (the name X in libX)", prefix))
			}
			if len(m.Sources) == 0 {
				errs = append(errs, fmt.Sprintf("%s: library module requires 'sources'", prefix))
			}
		case KindProgram:
			if len(m.Programs) == 0 {
				errs = append(errs, fmt.Sprintf("%s: program module requires at least one program", prefix))
			}
			for _, p := range m.Programs {
				if p.Name == "" {
					errs = append(errs, fmt.Sprintf("%s: program 'name' is required", prefix))
				}
				if len(p.Sources) == 0 {
					errs = append(errs, fmt.Sprintf("%s: program '%s' requires 'sources'", prefix, p.Name))
				}
			}
			if m.Uses == "" {
				errs = append(errs, fmt.Sprintf("%s: program module requires 'uses' (the library module it links)", prefix))
			} else if _, ok := d.LibraryModule(m.Uses); !ok {
				errs = append(errs, fmt.Sprintf("%s: 'uses' references undefined library module '%s'", prefix, m.Uses))
			}
		case "":
			errs = append(errs, fmt.Sprintf("%s: 'kind' is required (aggregate, library, program)", prefix))
		default:
			errs = append(errs, fmt.Sprintf("%s: unknown kind '%s' (want aggregate, library, program)", prefix, m.Kind))
		}
	}

	return errs
}

func validateChecks(checks []Check) []string {
	var errs []string

	names := make(map[string]bool)
	for i, c := range checks {
		prefix := fmt.Sprintf("check[%d]", i)
		if c.Name != "" {
			prefix = fmt.Sprintf("check '%s'", c.Name)
		}

		if c.Name == "" {
			errs = append(errs, fmt.Sprintf("%s: 'name' is required", prefix))
		} else if names[c.Name] {
			errs = append(errs, fmt.Sprintf("%s: duplicate check name '%s'", prefix, c.Name))
		} else {
			names[c.Name] = true
		}

		switch c.OnAbsence {
		case OnAbsenceFail, OnAbsenceSkip:
		case "":
			errs = append(errs, fmt.Sprintf("%s: 'on_absence' is required (fail or skip)", prefix))
		default:
			errs = append(errs, fmt.Sprintf("%s: invalid on_absence '%s' (want fail or skip)", prefix, c.OnAbsence))
		}

		switch c.Type {
		case CheckHeader, CheckFunction, CheckCompilerFlag, CheckLinkerFlag:
			if c.Subject == "" {
				errs = append(errs, fmt.Sprintf("%s: type '%s' requires 'subject'", prefix, c.Type))
			}
		case CheckLibrary:
			if c.Subject == "" {
				errs = append(errs, fmt.Sprintf("%s: type 'library' requires 'subject' (the library name)", prefix))
			}
			if c.Function == "" {
				errs = append(errs, fmt.Sprintf("%s: type 'library' requires 'function'", prefix))
			}
		case CheckProgram:
			if len(c.Candidates) == 0 {
				errs = append(errs, fmt.Sprintf("%s: type 'program' requires 'candidates'", prefix))
			}
			if c.Variable == "" {
				errs = append(errs, fmt.Sprintf("%s: type 'program' requires 'variable'", prefix))
			}
		case "":
			errs = append(errs, fmt.Sprintf("%s: 'type' is required", prefix))
		default:
			errs = append(errs, fmt.Sprintf("%s: unknown check type '%s'", prefix, c.Type))
		}
	}

	return errs
}
