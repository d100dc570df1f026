package emit

const makefileTemplate = `{{define "head"}}# {{.File}}.  Generated by canconfig for {{.Package}}.  Do not edit.

SHELL = /bin/sh

srcdir = {{.Srcdir}}
top_srcdir = {{.TopSrcdir}}
top_builddir = {{.TopBuilddir}}
VPATH = {{.Srcdir}}
{{range .Dirs}}
{{.Name}} = {{.Value}}{{end}}

CC = {{.CC}}{{range .Programs}}
{{.Name}} = {{.Value}}{{end}}

DEFS = -DHAVE_CONFIG_H
CPPFLAGS = {{.CPPFlags}}
CFLAGS = {{.CFlags}}
LDFLAGS = {{.LDFlags}}
LIBS = {{.Libs}}
{{end}}

{{define "distclean"}}
distclean: clean
	rm -f Makefile{{range .RootFiles}} {{.}}{{end}}
{{end}}

{{define "aggregate"}}{{template "head" .}}
SUBDIRS ={{range .Subdirs}} {{.}}{{end}}

all install clean:
	@for d in $(SUBDIRS); do (cd $$d && $(MAKE) $@) || exit 1; done

distclean:
	@for d in $(SUBDIRS); do (cd $$d && $(MAKE) $@) || exit 1; done
	rm -f Makefile{{range .RootFiles}} {{.}}{{end}}

.PHONY: all install clean distclean
{{end}}

{{define "library"}}{{template "head" .}}
LIBRARY = {{.Archive}}
OBJECTS ={{range objects .Module.Sources ".lo"}} {{.}}{{end}}
HEADERS ={{range .Module.Headers}} {{.}}{{end}}

all: $(LIBRARY)

.SUFFIXES: .c .lo
.c.lo:
	$(LIBTOOL) --tag=CC --mode=compile $(CC) $(DEFS) $(CPPFLAGS) $(CFLAGS) -c -o $@ $<

$(LIBRARY): $(OBJECTS)
	$(LIBTOOL) --tag=CC --mode=link $(CC) $(CFLAGS) $(LDFLAGS) -rpath $(libdir) -o $@ $(OBJECTS) $(LIBS)

install: all
	$(INSTALL) -d $(DESTDIR)$(libdir) $(DESTDIR)$(includedir)
	$(LIBTOOL) --mode=install $(INSTALL) $(LIBRARY) $(DESTDIR)$(libdir)
	for h in $(HEADERS); do $(INSTALL) -m 644 $(srcdir)/$$h $(DESTDIR)$(includedir); done
{{- if .PCFile}}
	$(INSTALL) -d $(DESTDIR)$(pkgconfigdir)
	$(INSTALL) -m 644 $(top_builddir)/{{.PCFile}} $(DESTDIR)$(pkgconfigdir)
{{- end}}

clean:
	$(LIBTOOL) --mode=clean rm -f $(LIBRARY) $(OBJECTS)
{{template "distclean" .}}
.PHONY: all install clean distclean
{{end}}

{{define "program"}}{{template "head" .}}
PROGRAMS ={{range .Module.Programs}} {{.Name}}{{end}}
LIBDEPS = {{.Archive}}

all: $(PROGRAMS)

.SUFFIXES: .c .o
.c.o:
	$(CC) $(DEFS) $(CPPFLAGS) $(CFLAGS) -c -o $@ $<
{{range .Module.Programs}}
{{.Name}}:{{range objects .Sources ".o"}} {{.}}{{end}} $(LIBDEPS)
	$(LIBTOOL) --tag=CC --mode=link $(CC) $(CFLAGS) $(LDFLAGS) -o $@{{range objects .Sources ".o"}} {{.}}{{end}} $(LIBDEPS) $(LIBS)
{{end}}
install: all
	$(INSTALL) -d $(DESTDIR)$(bindir)
	for p in $(PROGRAMS); do $(LIBTOOL) --mode=install $(INSTALL) $$p $(DESTDIR)$(bindir); done

clean:
	$(LIBTOOL) --mode=clean rm -f $(PROGRAMS) *.o
{{template "distclean" .}}
.PHONY: all install clean distclean
{{end}}`

const configHeaderTemplate = `/* {{.File}}.  Generated by canconfig for {{.Package}}.  Do not edit.  */
{{range .Defines}}
{{if .Comment}}/* {{.Comment}} */
{{end}}{{if .Value}}#define {{.Name}} {{.Value}}{{else}}/* #undef {{.Name}} */{{end}}
{{end}}`

const manifestTemplate = `# {{.File}} for {{.Package}}.  Generated by canconfig.
# Bug reports: {{.Contact}}

prefix={{.Prefix}}
exec_prefix={{.ExecPrefix}}
libdir={{.Libdir}}
includedir={{.Includedir}}

Name: {{.Name}}
Description: {{.Description}}
URL: {{.URL}}
Version: {{.Version}}
{{if .Requires}}Requires: {{.Requires}}
{{end}}Libs: -L${libdir} -l{{.Library}}
{{if .LibsPrivate}}Libs.private: {{.LibsPrivate}}
{{end}}Cflags: -I${includedir}
`

const summaryTemplate = `
{{.Package}} has been configured.

  Source location:  {{.Srcdir}}
  Build directory:  {{.Builddir}}
  Host type:        {{.Host}}
  Compiler:         {{.CC}}
  Preprocessor:     {{.CPPFlags}}
  Compiler flags:   {{.CFlags}}
  Linker flags:     {{.LDFlags}}
  Libraries:        {{.Libs}}
  Library ABI:      {{.Triple}} ({{.Soname}})
  Install prefix:   {{.Prefix}}
{{range .Outcomes}}
  checking {{.Name}}... {{.Status}}{{end}}

Now type 'make' to build and 'make install' to install.
`
