// Package dist builds the reproducible source tarball, tarname-version.tar.gz.
package dist

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/hashicorp/go-hclog"
	"github.com/klauspost/compress/gzip"

	"github.com/rscada/canconfig/internal/metadata"
	"github.com/rscada/canconfig/internal/sandbox"
)

// epoch is the modification time of every archive entry.
var epoch = time.Unix(0, 0).UTC()

// Options configure Create.
type Options struct {
	Srcdir   string
	Builddir string
	Package  *metadata.Package

	// Exclude lists slash-separated paths, relative to Srcdir, left out of
	// a directory walk. Generated files of an in-tree build go here.
	Exclude []string

	Log hclog.Logger
}

type entry struct {
	name string
	mode int64
	open func() (io.ReadCloser, error)
}

// Create writes the tarball into Builddir and returns its path.
func Create(ctx context.Context, opts Options) (string, error) {
	log := opts.Log
	if log == nil {
		log = hclog.NewNullLogger()
	}

	entries, err := collect(opts, log)
	if err != nil {
		return "", err
	}

	name := opts.Package.DistName() + ".tar.gz"
	var buf bytes.Buffer
	if err := write(ctx, &buf, opts.Package.DistName(), entries); err != nil {
		return "", err
	}

	if err := os.MkdirAll(opts.Builddir, 0755); err != nil {
		return "", fmt.Errorf("creating build directory: %w", err)
	}
	if err := sandbox.WriteFile(opts.Builddir, name, buf.Bytes(), 0644); err != nil {
		return "", err
	}
	out := filepath.Join(opts.Builddir, name)
	log.Info("created source tarball", "path", out, "files", len(entries))
	return out, nil
}

// collect lists the files from git HEAD when Srcdir is a repository root,
// otherwise from a directory walk.
func collect(opts Options, log hclog.Logger) ([]entry, error) {
	repo, err := git.PlainOpen(opts.Srcdir)
	if err != nil {
		if !errors.Is(err, git.ErrRepositoryNotExists) {
			log.Warn("source directory is not a usable repository, walking it", "error", err)
		}
		return fromWalk(opts)
	}
	entries, err := fromGit(repo)
	if err != nil {
		log.Warn("git HEAD unavailable, walking the source tree", "error", err)
		return fromWalk(opts)
	}
	log.Debug("using files tracked at git HEAD", "count", len(entries))
	return entries, nil
}

func fromGit(repo *git.Repository) ([]entry, error) {
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("reading HEAD commit: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("reading HEAD tree: %w", err)
	}

	var entries []entry
	err = tree.Files().ForEach(func(f *object.File) error {
		var mode int64
		switch f.Mode {
		case filemode.Executable:
			mode = 0755
		case filemode.Regular, filemode.Deprecated:
			mode = 0644
		default:
			// Symlinks and submodules are not distributed.
			return nil
		}
		entries = append(entries, entry{name: f.Name, mode: mode, open: f.Reader})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing HEAD tree: %w", err)
	}
	return entries, nil
}

func fromWalk(opts Options) ([]entry, error) {
	excluded := make(map[string]bool, len(opts.Exclude))
	for _, e := range opts.Exclude {
		excluded[e] = true
	}

	absBuild, _ := filepath.Abs(opts.Builddir)
	absSrc, _ := filepath.Abs(opts.Srcdir)

	var entries []entry
	err := filepath.WalkDir(opts.Srcdir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(opts.Srcdir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			if abs, _ := filepath.Abs(p); abs == absBuild && absBuild != absSrc {
				return filepath.SkipDir
			}
			return nil
		}
		if excluded[rel] || !d.Type().IsRegular() || strings.HasSuffix(rel, ".tar.gz") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		mode := int64(0644)
		if info.Mode().Perm()&0111 != 0 {
			mode = 0755
		}
		full := p
		entries = append(entries, entry{
			name: rel,
			mode: mode,
			open: func() (io.ReadCloser, error) { return os.Open(full) },
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", opts.Srcdir, err)
	}
	return entries, nil
}

// write streams entries, sorted by name, under prefix/ into a gzipped tar.
func write(ctx context.Context, w io.Writer, prefix string, entries []entry) error {
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	gz, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := addEntry(tw, path.Join(prefix, e.name), e); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("finishing tar stream: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("finishing gzip stream: %w", err)
	}
	return nil
}

func addEntry(tw *tar.Writer, name string, e entry) error {
	rc, err := e.open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", e.name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("reading %s: %w", e.name, err)
	}

	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Mode:     e.mode,
		Size:     int64(len(data)),
		ModTime:  epoch,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("writing header for %s: %w", e.name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", e.name, err)
	}
	return nil
}
