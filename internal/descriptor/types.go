package descriptor

// Descriptor is the declarative build description read from
// canconfig.yaml or canconfig.hcl.
type Descriptor struct {
	Version      int       `yaml:"version" hcl:"version"`
	Package      Package   `yaml:"package" hcl:"package,block"`
	ABI          *ABI      `yaml:"abi" hcl:"abi,block"`
	ConfigHeader string    `yaml:"config_header,omitempty" hcl:"config_header,optional"`
	Manifest     *Manifest `yaml:"manifest,omitempty" hcl:"manifest,block"`
	Modules      []Module  `yaml:"modules" hcl:"module,block"`
	Checks       []Check   `yaml:"checks,omitempty" hcl:"check,block"`
	Features     []Feature `yaml:"features,omitempty" hcl:"feature,block"`
}

// Package is the package identity.
type Package struct {
	Name     string `yaml:"name" hcl:"name"`
	Version  string `yaml:"version" hcl:"version"`
	Contact  string `yaml:"contact" hcl:"contact"`
	Tarname  string `yaml:"tarname,omitempty" hcl:"tarname,optional"`
	Homepage string `yaml:"homepage" hcl:"homepage"`
}

// ABI is the declared shared-library interface version. It is not derived
// from Package.Version.
type ABI struct {
	Current  int `yaml:"current" hcl:"current"`
	Revision int `yaml:"revision" hcl:"revision"`
	Age      int `yaml:"age" hcl:"age"`
}

// Module kinds.
const (
	KindAggregate = "aggregate"
	KindLibrary   = "library"
	KindProgram   = "program"
)

// Module is one directory that receives a generated Makefile.
type Module struct {
	Dir  string `yaml:"dir" hcl:"dir,label"`
	Kind string `yaml:"kind" hcl:"kind"`

	// Aggregate modules.
	Subdirs []string `yaml:"subdirs,omitempty" hcl:"subdirs,optional"`

	// Library modules.
	Library string   `yaml:"library,omitempty" hcl:"library,optional"`
	Sources []string `yaml:"sources,omitempty" hcl:"sources,optional"`
	Headers []string `yaml:"headers,omitempty" hcl:"headers,optional"`

	// Program modules. Uses names the library module the programs link.
	Programs []Program `yaml:"programs,omitempty" hcl:"program,block"`
	Uses     string    `yaml:"uses,omitempty" hcl:"uses,optional"`
}

// Program is one executable built in a program module.
type Program struct {
	Name    string   `yaml:"name" hcl:"name,label"`
	Sources []string `yaml:"sources" hcl:"sources"`
}

// Check types.
const (
	CheckHeader       = "header"
	CheckFunction     = "function"
	CheckLibrary      = "library"
	CheckCompilerFlag = "compiler-flag"
	CheckLinkerFlag   = "linker-flag"
	CheckProgram      = "program"
)

// Absence policies. Every check must name one.
const (
	OnAbsenceFail = "fail"
	OnAbsenceSkip = "skip"
)

// Check is one configuration test, run in declaration order.
type Check struct {
	Name string `yaml:"name" hcl:"name,label"`
	Type string `yaml:"type" hcl:"type"`

	// Subject is the header, function, library, or flag under test.
	Subject string `yaml:"subject,omitempty" hcl:"subject,optional"`

	// Function is the symbol linked by a library check.
	Function string `yaml:"function,omitempty" hcl:"function,optional"`

	// Candidates and Variable configure program checks.
	Candidates []string `yaml:"candidates,omitempty" hcl:"candidates,optional"`
	Variable   string   `yaml:"variable,omitempty" hcl:"variable,optional"`

	// Define overrides the generated HAVE_* macro name.
	Define    string `yaml:"define,omitempty" hcl:"define,optional"`
	OnAbsence string `yaml:"on_absence" hcl:"on_absence,optional"`
}

// Feature is an optional capability toggled with --enable/--disable.
type Feature struct {
	Name        string   `yaml:"name" hcl:"name,label"`
	Description string   `yaml:"description,omitempty" hcl:"description,optional"`
	Default     bool     `yaml:"default,omitempty" hcl:"default,optional"`
	Define      string   `yaml:"define,omitempty" hcl:"define,optional"`
	CFlags      []string `yaml:"cflags,omitempty" hcl:"cflags,optional"`
}

// Manifest configures the generated pkg-config file.
type Manifest struct {
	File        string   `yaml:"file,omitempty" hcl:"file,optional"`
	Library     string   `yaml:"library" hcl:"library"`
	Description string   `yaml:"description,omitempty" hcl:"description,optional"`
	Requires    []string `yaml:"requires,omitempty" hcl:"requires,optional"`
}

// LibraryModule returns the library module with the given dir.
func (d *Descriptor) LibraryModule(dir string) (Module, bool) {
	for _, m := range d.Modules {
		if m.Dir == dir && m.Kind == KindLibrary {
			return m, true
		}
	}
	return Module{}, false
}
