// Package sandbox confines generated files to the build directory and
// writes them atomically.
package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const tempPattern = ".canconfig-*.tmp"

// Within resolves rel against root and verifies the result (after symlink
// resolution) stays inside root. The returned path is absolute.
func Within(root, rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("path '%s' must be relative to the build directory", rel)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving build directory: %w", err)
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", fmt.Errorf("resolving build directory symlinks: %w", err)
	}

	resolved, err := resolveExisting(filepath.Join(realRoot, rel))
	if err != nil {
		return "", fmt.Errorf("resolving '%s': %w", rel, err)
	}

	if resolved != realRoot && !strings.HasPrefix(resolved, realRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path '%s' resolves to '%s' outside the build directory '%s'", rel, resolved, realRoot)
	}
	return resolved, nil
}

// resolveExisting evaluates symlinks on the longest existing prefix of p
// and re-appends the rest.
func resolveExisting(p string) (string, error) {
	resolved, err := filepath.EvalSymlinks(p)
	if err == nil {
		return resolved, nil
	}
	dir := filepath.Dir(p)
	if dir == p {
		return p, nil
	}
	parent, err := resolveExisting(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(parent, filepath.Base(p)), nil
}

// WriteFile atomically writes one file under root.
func WriteFile(root, rel string, content []byte, perm os.FileMode) error {
	var b Batch
	b.Root = root
	if err := b.Stage(rel, content, perm); err != nil {
		return err
	}
	_, err := b.Commit()
	return err
}

type staged struct {
	tmp    string
	target string
}

// Batch stages files as temporaries next to their targets and renames
// them all on Commit. Nothing is visible under the final names until
// Commit; Discard removes the temporaries.
type Batch struct {
	Root  string
	files []staged
}

// Stage writes content to a temporary file beside rel.
func (b *Batch) Stage(rel string, content []byte, perm os.FileMode) error {
	target, err := Within(b.Root, rel)
	if err != nil {
		return err
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	name := tmp.Name()

	ok := false
	defer func() {
		if !ok {
			_ = tmp.Close()
			_ = os.Remove(name)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", rel, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", rel, err)
	}
	if err := os.Chmod(name, perm); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", rel, err)
	}

	ok = true
	b.files = append(b.files, staged{tmp: name, target: target})
	return nil
}

// Commit renames every staged file into place and returns the final paths
// in staging order. On a rename failure the remaining temporaries are
// removed.
func (b *Batch) Commit() ([]string, error) {
	done := make([]string, 0, len(b.files))
	for i, f := range b.files {
		if err := os.Rename(f.tmp, f.target); err != nil {
			b.files = b.files[i:]
			b.Discard()
			return done, fmt.Errorf("renaming into %s: %w", f.target, err)
		}
		done = append(done, f.target)
	}
	b.files = nil
	return done, nil
}

// Discard removes every staged temporary.
func (b *Batch) Discard() {
	for _, f := range b.files {
		_ = os.Remove(f.tmp)
	}
	b.files = nil
}

// Pending reports how many files are staged.
func (b *Batch) Pending() int {
	return len(b.files)
}
