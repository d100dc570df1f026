package status

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func hashOf(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func writeBuild(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func record(files map[string]string) *Record {
	r := &Record{
		Version: 1,
		Package: "canopen 0.1.0",
		ABI:     "0:1:0",
		Invocation: Invocation{
			Descriptor: "/src/libcanopen/canconfig.yaml",
			Srcdir:     "/src/libcanopen",
			Builddir:   "/build",
			Prefix:     "/usr/local",
			Enable:     []string{"debug"},
			CC:         "/usr/bin/gcc",
			CFlags:     []string{"-pipe"},
		},
		Toolchain: Toolchain{Compiler: "/usr/bin/gcc", Vendor: "gnu", Host: "x86_64-pc-linux-gnu"},
	}
	for _, rel := range []string{"Makefile", "canopen/Makefile", "config.h"} {
		if c, ok := files[rel]; ok {
			r.Artifacts = append(r.Artifacts, Artifact{Path: rel, Kind: "build-rules", SHA256: hashOf(c)})
		}
	}
	return r
}

func TestMarshalLoad(t *testing.T) {
	files := map[string]string{"Makefile": "all:\n", "config.h": "#define X 1\n"}
	dir := writeBuild(t, files)
	want := record(files)

	data, err := Marshal(want)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Invocation.Descriptor != want.Invocation.Descriptor || got.Invocation.Enable[0] != "debug" {
		t.Errorf("invocation = %+v", got.Invocation)
	}
	if len(got.Artifacts) != 2 {
		t.Errorf("artifacts = %+v", got.Artifacts)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir())
	if err == nil {
		t.Fatal("expected error for unconfigured build directory")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error should wrap ErrNotExist: %v", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	dir := writeBuild(t, map[string]string{
		FileName: "version: 2\nartifacts:\n  - path: Makefile\n    sha256: abc\n  - path: Makefile\n    sha256: abc\n",
	})
	_, err := Load(dir)

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	for _, w := range []string{"unsupported version 2", "'descriptor' is required", "duplicate path", "64 hex"} {
		if !strings.Contains(err.Error(), w) {
			t.Errorf("missing %q in %v", w, err)
		}
	}
}

func TestCheckClean(t *testing.T) {
	files := map[string]string{"Makefile": "all:\n", "canopen/Makefile": "lib:\n", "config.h": "/* */\n"}
	dir := writeBuild(t, files)

	rep, err := Check(dir, record(files))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !rep.Clean {
		t.Errorf("expected clean, got %+v", rep)
	}
}

func TestCheckDetectsDriftAndMissing(t *testing.T) {
	files := map[string]string{"Makefile": "all:\n", "canopen/Makefile": "lib:\n", "config.h": "/* */\n"}
	dir := writeBuild(t, files)
	rec := record(files)

	if err := os.WriteFile(filepath.Join(dir, "config.h"), []byte("#define HAND_EDITED 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, "canopen", "Makefile")); err != nil {
		t.Fatal(err)
	}

	rep, err := Check(dir, rec)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if rep.Clean {
		t.Fatal("expected drift")
	}
	if len(rep.Missing) != 1 || rep.Missing[0] != "canopen/Makefile" {
		t.Errorf("missing = %v", rep.Missing)
	}
	if len(rep.Drifted) != 1 || rep.Drifted[0].Path != "config.h" {
		t.Fatalf("drifted = %+v", rep.Drifted)
	}
	if rep.Drifted[0].Expected != hashOf("/* */\n") {
		t.Errorf("expected hash = %s", rep.Drifted[0].Expected)
	}
}
