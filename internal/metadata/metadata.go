package metadata

import "fmt"

// Package holds the identity of the package being configured.
// Every generated artifact embeds these values, so a Package is immutable
// once constructed.
type Package struct {
	name     string
	version  string
	contact  string
	tarname  string
	homepage string
}

// Error reports a missing mandatory identity field.
type Error struct {
	Field string
}

func (e *Error) Error() string {
	return fmt.Sprintf("package metadata: '%s' must not be empty", e.Field)
}

// New validates and returns package metadata.
func New(name, version, contact, tarname, homepage string) (*Package, error) {
	fields := []struct {
		name  string
		value string
	}{
		{"name", name},
		{"version", version},
		{"contact", contact},
		{"tarname", tarname},
		{"homepage", homepage},
	}
	for _, f := range fields {
		if f.value == "" {
			return nil, &Error{Field: f.name}
		}
	}

	return &Package{
		name:     name,
		version:  version,
		contact:  contact,
		tarname:  tarname,
		homepage: homepage,
	}, nil
}

func (p *Package) Name() string     { return p.name }
func (p *Package) Version() string  { return p.version }
func (p *Package) Contact() string  { return p.contact }
func (p *Package) Tarname() string  { return p.tarname }
func (p *Package) Homepage() string { return p.homepage }

// String returns "name version", the form used in PACKAGE_STRING.
func (p *Package) String() string {
	return p.name + " " + p.version
}

// DistName returns the base name of the source distribution, tarname-version.
func (p *Package) DistName() string {
	return p.tarname + "-" + p.version
}
