package dist

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/klauspost/compress/gzip"

	"github.com/rscada/canconfig/internal/metadata"
)

func pkg(t *testing.T) *metadata.Package {
	t.Helper()
	p, err := metadata.New("canopen", "0.1.0", "info@rscada.se", "libcanopen", "http://www.rscada.se")
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func writeSource(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

type member struct {
	Mode    int64
	Content string
}

func readTarball(t *testing.T, path string) map[string]member {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	tr := tar.NewReader(gz)

	out := make(map[string]member)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if !hdr.ModTime.Equal(time.Unix(0, 0)) {
			t.Errorf("%s: mtime %v, want epoch", hdr.Name, hdr.ModTime)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			t.Fatal(err)
		}
		out[hdr.Name] = member{Mode: hdr.Mode, Content: string(data)}
	}
	return out
}

func TestCreateFromWalk(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, map[string]string{
		"canconfig.yaml":     "version: 1\n",
		"canopen/canopen.c":  "int x;\n",
		".git/HEAD":          "not a repository\n",
		"build/Makefile":     "all:\n",
		"config.h":           "/* generated */\n",
		"old-0.0.1.tar.gz":   "junk",
		"tools/bootstrap.sh": "#!/bin/sh\n",
	})
	if err := os.Chmod(filepath.Join(src, "tools", "bootstrap.sh"), 0755); err != nil {
		t.Fatal(err)
	}

	out, err := Create(context.Background(), Options{
		Srcdir:   src,
		Builddir: filepath.Join(src, "build"),
		Package:  pkg(t),
		Exclude:  []string{"config.h"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if filepath.Base(out) != "libcanopen-0.1.0.tar.gz" {
		t.Errorf("output = %s", out)
	}

	got := readTarball(t, out)
	want := map[string]member{
		"libcanopen-0.1.0/canconfig.yaml":     {Mode: 0644, Content: "version: 1\n"},
		"libcanopen-0.1.0/canopen/canopen.c":  {Mode: 0644, Content: "int x;\n"},
		"libcanopen-0.1.0/tools/bootstrap.sh": {Mode: 0755, Content: "#!/bin/sh\n"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("members = %+v\nwant %+v", got, want)
	}
}

func TestCreateReproducible(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, map[string]string{"a.c": "a", "b/b.c": "b", "c.h": "c"})
	opts := Options{Srcdir: src, Builddir: t.TempDir(), Package: pkg(t)}

	first, err := Create(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := os.ReadFile(first)

	// Touch every file; timestamps must not leak into the archive.
	later := time.Now().Add(time.Hour)
	for _, rel := range []string{"a.c", "b/b.c", "c.h"} {
		if err := os.Chtimes(filepath.Join(src, rel), later, later); err != nil {
			t.Fatal(err)
		}
	}

	second, err := Create(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := os.ReadFile(second)
	if !bytes.Equal(a, b) {
		t.Error("tarballs differ between identical runs")
	}
}

func TestCreateFromGitHead(t *testing.T) {
	src := t.TempDir()
	repo, err := git.PlainInit(src, false)
	if err != nil {
		t.Fatal(err)
	}
	writeSource(t, src, map[string]string{"canopen.c": "int x;\n", "canopen.h": "#pragma once\n"})

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{"canopen.c", "canopen.h"} {
		if _, err := wt.Add(f); err != nil {
			t.Fatal(err)
		}
	}
	sig := &object.Signature{Name: "rSCADA", Email: "info@rscada.se", When: time.Unix(1262304000, 0)}
	if _, err := wt.Commit("import", &git.CommitOptions{Author: sig}); err != nil {
		t.Fatal(err)
	}

	// Untracked and modified files do not reach the tarball.
	writeSource(t, src, map[string]string{"scratch.c": "tmp\n", "canopen.c": "int y;\n"})

	out, err := Create(context.Background(), Options{Srcdir: src, Builddir: t.TempDir(), Package: pkg(t)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got := readTarball(t, out)
	if len(got) != 2 {
		t.Fatalf("members = %v, want the two tracked files", got)
	}
	if got["libcanopen-0.1.0/canopen.c"].Content != "int x;\n" {
		t.Errorf("canopen.c = %q, want the committed content", got["libcanopen-0.1.0/canopen.c"].Content)
	}
}

func TestCreateCanceled(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, map[string]string{"a.c": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	build := t.TempDir()
	if _, err := Create(ctx, Options{Srcdir: src, Builddir: build, Package: pkg(t)}); err == nil {
		t.Fatal("expected context error")
	}
	if _, err := os.Stat(filepath.Join(build, "libcanopen-0.1.0.tar.gz")); !os.IsNotExist(err) {
		t.Error("no tarball should be written")
	}
}
