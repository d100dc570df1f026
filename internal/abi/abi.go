// Package abi computes the shared-library interface version, which is
// versioned independently from the package release.
//
// A Triple (current, revision, age) says the library implements interface
// versions current-age through current. Consumers linked against any of
// those keep working.
package abi

import (
	"fmt"
	"strings"

	"github.com/rscada/canconfig/internal/toolchain"
)

// VersionInfoFlag is the libtool link flag that carries the triple.
const VersionInfoFlag = "-version-info"

// Triple is a validated shared-library interface version.
type Triple struct {
	Current  int
	Revision int
	Age      int
}

// InvalidTripleError reports a triple outside 0 <= age <= current.
type InvalidTripleError struct {
	Current  int
	Revision int
	Age      int
}

func (e *InvalidTripleError) Error() string {
	switch {
	case e.Current < 0 || e.Revision < 0 || e.Age < 0:
		return fmt.Sprintf("invalid ABI version %d:%d:%d: components must be non-negative", e.Current, e.Revision, e.Age)
	default:
		return fmt.Sprintf("invalid ABI version %d:%d:%d: age %d exceeds current %d", e.Current, e.Revision, e.Age, e.Age, e.Current)
	}
}

// Compute validates and returns a triple.
func Compute(current, revision, age int) (Triple, error) {
	if current < 0 || revision < 0 || age < 0 || age > current {
		return Triple{}, &InvalidTripleError{Current: current, Revision: revision, Age: age}
	}
	return Triple{Current: current, Revision: revision, Age: age}, nil
}

// String renders current:revision:age.
func (t Triple) String() string {
	return fmt.Sprintf("%d:%d:%d", t.Current, t.Revision, t.Age)
}

// Flags returns the link flags encoding the triple.
func (t Triple) Flags() []string {
	return []string{VersionInfoFlag, t.String()}
}

// Apply appends the version-info flags to d's linker flags. Callers apply
// it after every check has run so nothing can follow it.
func (t Triple) Apply(d *toolchain.Descriptor) {
	d.LinkerFlags = append(d.LinkerFlags, t.Flags()...)
}

// Major is the oldest interface version still supported.
func (t Triple) Major() int {
	return t.Current - t.Age
}

// SharedObject returns the soname and the real file name of library lib
// on the given host, following libtool's naming.
func (t Triple) SharedObject(lib, host string) (soname, realname string) {
	if strings.Contains(host, "darwin") {
		soname = fmt.Sprintf("lib%s.%d.dylib", lib, t.Major())
		return soname, soname
	}
	soname = fmt.Sprintf("lib%s.so.%d", lib, t.Major())
	realname = fmt.Sprintf("%s.%d.%d", soname, t.Age, t.Revision)
	return soname, realname
}

// StripVersionInfo returns flags without any -version-info pair. Program
// link lines use it, since the flag only applies to libraries.
func StripVersionInfo(flags []string) []string {
	out := make([]string, 0, len(flags))
	for i := 0; i < len(flags); i++ {
		if flags[i] == VersionInfoFlag {
			i++
			continue
		}
		out = append(out, flags[i])
	}
	return out
}
