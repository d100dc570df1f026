// Package emit renders and writes the generated build artifacts: one
// Makefile per module directory, the config header, and the pkg-config
// manifest.
//
// The renderers are pure. Identical Inputs produce identical bytes; nothing
// rendered depends on the clock, the environment, or map order.
package emit

import (
	"bytes"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/rscada/canconfig/internal/abi"
	"github.com/rscada/canconfig/internal/checks"
	"github.com/rscada/canconfig/internal/descriptor"
	"github.com/rscada/canconfig/internal/metadata"
	"github.com/rscada/canconfig/internal/status"
	"github.com/rscada/canconfig/internal/toolchain"
)

// Inputs is everything the renderers read.
type Inputs struct {
	Package    *metadata.Package
	Tool       *toolchain.Descriptor
	Triple     abi.Triple
	Paths      map[string]string
	Defines    []checks.Define
	Outcomes   []checks.Outcome
	Descriptor *descriptor.Descriptor
}

var funcs = template.FuncMap{
	"objects": objects,
}

var (
	makefileTmpl     = parse("Makefile", makefileTemplate)
	configHeaderTmpl = parse("config header", configHeaderTemplate)
	manifestTmpl     = parse("manifest", manifestTemplate)
	summaryTmpl      = parse("summary", summaryTemplate)
)

func parse(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(funcs).Option("missingkey=error").Parse(text))
}

func execute(t *template.Template, name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	if name == "" {
		err = t.Execute(&buf, data)
	} else {
		err = t.ExecuteTemplate(&buf, name, data)
	}
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", t.Name(), err)
	}
	return buf.Bytes(), nil
}

// objects maps C sources to object names with the given extension.
func objects(sources []string, ext string) []string {
	out := make([]string, len(sources))
	for i, s := range sources {
		out[i] = strings.TrimSuffix(s, path.Ext(s)) + ext
	}
	return out
}

func join(flags []string) string {
	return strings.Join(flags, " ")
}

var makeEscaper = strings.NewReplacer("$", "$$", "#", `\#`)

// makeEscape quotes a value for the right-hand side of a make variable
// assignment.
func makeEscape(s string) string {
	return makeEscaper.Replace(s)
}

// makeJoin escapes each flag and joins them.
func makeJoin(flags []string) string {
	out := make([]string, len(flags))
	for i, f := range flags {
		out[i] = makeEscape(f)
	}
	return join(out)
}

type makeVar struct {
	Name  string
	Value string
}

// ModuleFile is the build-rule file path for a module dir, relative to
// the build directory.
func ModuleFile(dir string) string {
	return path.Join(dir, "Makefile")
}

func topBuilddir(dir string) string {
	if dir == "." {
		return "."
	}
	return strings.TrimSuffix(strings.Repeat("../", strings.Count(dir, "/")+1), "/")
}

func programVars(tool *toolchain.Descriptor) []makeVar {
	vars := map[string]string{"INSTALL": "install", "LIBTOOL": "libtool"}
	for k, v := range tool.Programs {
		vars[k] = makeEscape(v)
	}
	out := make([]makeVar, 0, len(vars))
	for k, v := range vars {
		out = append(out, makeVar{Name: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// archive is the libtool archive name for a library module.
func archive(m descriptor.Module) string {
	return "lib" + m.Library + ".la"
}

// rootFiles are removed by distclean in the top-level Makefile.
func rootFiles(d *descriptor.Descriptor) []string {
	out := []string{d.ConfigHeader}
	if d.Manifest != nil {
		out = append(out, d.Manifest.File)
	}
	return append(out, status.FileName)
}

type makeData struct {
	File        string
	Package     string
	Module      descriptor.Module
	Srcdir      string
	TopSrcdir   string
	TopBuilddir string
	Dirs        []makeVar
	CC          string
	Programs    []makeVar
	CPPFlags    string
	CFlags      string
	LDFlags     string
	Libs        string
	Subdirs     []string
	Archive     string
	PCFile      string
	RootFiles   []string
}

// BuildRules renders the Makefile for module m.
func BuildRules(m descriptor.Module, in Inputs) ([]byte, error) {
	top := topBuilddir(m.Dir)
	srcTop := makeEscape(filepath.ToSlash(in.Paths[checks.PathSrcdir]))

	data := makeData{
		File:        ModuleFile(m.Dir),
		Package:     in.Package.String(),
		Module:      m,
		Srcdir:      path.Join(srcTop, m.Dir),
		TopSrcdir:   srcTop,
		TopBuilddir: top,
		CC:          makeEscape(in.Tool.CompilerPath),
		Programs:    programVars(in.Tool),
		CFlags:      makeJoin(in.Tool.CompilerFlags),
		Libs:        makeJoin(in.Tool.Libs),
	}
	for _, k := range []string{
		checks.PathPrefix, checks.PathExecPrefix, checks.PathBindir,
		checks.PathLibdir, checks.PathIncludedir, checks.PathPkgconfigdir,
	} {
		data.Dirs = append(data.Dirs, makeVar{Name: k, Value: makeEscape(in.Paths[k])})
	}
	if m.Dir == "." {
		data.RootFiles = rootFiles(in.Descriptor)
	}

	cpp := []string{"-I$(top_builddir)", "-I$(srcdir)"}

	switch m.Kind {
	case descriptor.KindAggregate:
		for _, sub := range m.Subdirs {
			rel, err := filepath.Rel(m.Dir, sub)
			if err != nil {
				return nil, fmt.Errorf("module '%s': subdir '%s': %w", m.Dir, sub, err)
			}
			data.Subdirs = append(data.Subdirs, filepath.ToSlash(rel))
		}
		data.LDFlags = makeJoin(in.Tool.LinkerFlags)

	case descriptor.KindLibrary:
		data.Archive = archive(m)
		data.LDFlags = makeJoin(in.Tool.LinkerFlags)
		if mf := in.Descriptor.Manifest; mf != nil && mf.Library == m.Dir {
			data.PCFile = mf.File
		}

	case descriptor.KindProgram:
		lib, ok := in.Descriptor.LibraryModule(m.Uses)
		if !ok {
			return nil, fmt.Errorf("module '%s': uses undefined library module '%s'", m.Dir, m.Uses)
		}
		data.Archive = path.Join(top, lib.Dir, archive(lib))
		data.LDFlags = makeJoin(abi.StripVersionInfo(in.Tool.LinkerFlags))
		cpp = append(cpp, "-I$(top_srcdir)/"+lib.Dir)

	default:
		return nil, fmt.Errorf("module '%s': unknown kind '%s'", m.Dir, m.Kind)
	}

	data.CPPFlags = join(cpp)
	if len(in.Tool.CPPFlags) > 0 {
		data.CPPFlags += " " + makeJoin(in.Tool.CPPFlags)
	}
	return execute(makefileTmpl, m.Kind, data)
}

// identityDefines are the PACKAGE_* macros every config header carries.
func identityDefines(p *metadata.Package) []checks.Define {
	q := cString
	return []checks.Define{
		{Name: "PACKAGE", Value: q(p.Tarname()), Comment: "Name of package"},
		{Name: "PACKAGE_BUGREPORT", Value: q(p.Contact()), Comment: "Define to the address where bug reports for this package should be sent."},
		{Name: "PACKAGE_NAME", Value: q(p.Name()), Comment: "Define to the full name of this package."},
		{Name: "PACKAGE_STRING", Value: q(p.String()), Comment: "Define to the full name and version of this package."},
		{Name: "PACKAGE_TARNAME", Value: q(p.Tarname()), Comment: "Define to the one symbol short name of this package."},
		{Name: "PACKAGE_URL", Value: q(p.Homepage()), Comment: "Define to the home page for this package."},
		{Name: "PACKAGE_VERSION", Value: q(p.Version()), Comment: "Define to the version of this package."},
		{Name: "VERSION", Value: q(p.Version()), Comment: "Version number of package"},
	}
}

// cString quotes s as a C string literal.
func cString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

// ConfigHeader renders the config header. Identity and check defines are
// merged and sorted by name; a check define overrides an identity define
// of the same name.
func ConfigHeader(in Inputs) ([]byte, error) {
	byName := make(map[string]checks.Define)
	for _, d := range identityDefines(in.Package) {
		byName[d.Name] = d
	}
	for _, d := range in.Defines {
		byName[d.Name] = d
	}
	defines := make([]checks.Define, 0, len(byName))
	for _, d := range byName {
		defines = append(defines, d)
	}
	sort.Slice(defines, func(i, j int) bool { return defines[i].Name < defines[j].Name })

	return execute(configHeaderTmpl, "", struct {
		File    string
		Package string
		Defines []checks.Define
	}{in.Descriptor.ConfigHeader, in.Package.String(), defines})
}

// relativize rewrites dir as ${variable}/rest when it lies under base.
func relativize(dir, base, variable string) string {
	if dir == base {
		return "${" + variable + "}"
	}
	if strings.HasPrefix(dir, base+"/") {
		return "${" + variable + "}" + strings.TrimPrefix(dir, base)
	}
	return dir
}

// Manifest renders the pkg-config file.
func Manifest(in Inputs) ([]byte, error) {
	mf := in.Descriptor.Manifest
	if mf == nil {
		return nil, fmt.Errorf("rendering manifest: no manifest declared")
	}
	lib, ok := in.Descriptor.LibraryModule(mf.Library)
	if !ok {
		return nil, fmt.Errorf("rendering manifest: undefined library module '%s'", mf.Library)
	}

	prefix := in.Paths[checks.PathPrefix]
	execPrefix := in.Paths[checks.PathExecPrefix]
	desc := mf.Description
	if desc == "" {
		desc = in.Package.Name() + " library"
	}

	return execute(manifestTmpl, "", map[string]any{
		"File":        mf.File,
		"Package":     in.Package.String(),
		"Contact":     in.Package.Contact(),
		"Prefix":      prefix,
		"ExecPrefix":  relativize(execPrefix, prefix, "prefix"),
		"Libdir":      relativize(in.Paths[checks.PathLibdir], execPrefix, "exec_prefix"),
		"Includedir":  relativize(in.Paths[checks.PathIncludedir], prefix, "prefix"),
		"Name":        in.Package.Name(),
		"Description": desc,
		"URL":         in.Package.Homepage(),
		"Version":     in.Package.Version(),
		"Requires":    strings.Join(mf.Requires, ", "),
		"Library":     lib.Library,
		"LibsPrivate": join(in.Tool.Libs),
	})
}

// Summary renders the human-readable report printed after emission.
func Summary(in Inputs) ([]byte, error) {
	soname := "-"
	if mf := in.Descriptor.Manifest; mf != nil {
		if lib, ok := in.Descriptor.LibraryModule(mf.Library); ok {
			soname, _ = in.Triple.SharedObject(lib.Library, in.Tool.Host)
		}
	}

	return execute(summaryTmpl, "", map[string]any{
		"Package":  in.Package.String(),
		"Srcdir":   in.Paths[checks.PathSrcdir],
		"Builddir": in.Paths[checks.PathBuilddir],
		"Host":     in.Tool.Host,
		"CC":       in.Tool.CompilerPath,
		"CPPFlags": join(in.Tool.CPPFlags),
		"CFlags":   join(in.Tool.CompilerFlags),
		"LDFlags":  join(in.Tool.LinkerFlags),
		"Libs":     join(in.Tool.Libs),
		"Triple":   in.Triple.String(),
		"Soname":   soname,
		"Prefix":   in.Paths[checks.PathPrefix],
		"Outcomes": in.Outcomes,
	})
}
