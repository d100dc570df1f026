package emit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/rscada/canconfig/internal/abi"
	"github.com/rscada/canconfig/internal/checks"
	"github.com/rscada/canconfig/internal/descriptor"
	"github.com/rscada/canconfig/internal/metadata"
	"github.com/rscada/canconfig/internal/sandbox"
	"github.com/rscada/canconfig/internal/toolchain"
)

// Artifact kinds.
const (
	KindBuildRules   = "build-rules"
	KindConfigHeader = "config-header"
	KindManifest     = "manifest"
)

// Artifact is one generated file. Path is relative to the build directory
// and uses forward slashes.
type Artifact struct {
	Path    string
	Kind    string
	Content []byte
	SHA256  string
}

// ArtifactSet is the complete output of one pass.
type ArtifactSet struct {
	Files []Artifact
}

// Count returns the number of artifacts of the given kind.
func (s *ArtifactSet) Count(kind string) int {
	n := 0
	for _, f := range s.Files {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// PreconditionError means Emit was called without a successful
// configuration result.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "cannot emit artifacts: " + e.Reason
}

// AttachFunc renders an extra file written in the same batch as the
// artifacts, such as the status record.
type AttachFunc func(set *ArtifactSet) (name string, content []byte, err error)

// Emitter writes artifacts into BuildDir.
type Emitter struct {
	BuildDir   string
	Descriptor *descriptor.Descriptor

	// Stdout receives the summary. Nil discards it.
	Stdout io.Writer
	Log    hclog.Logger

	Attach AttachFunc
}

func newArtifact(rel, kind string, content []byte) Artifact {
	sum := sha256.Sum256(content)
	return Artifact{Path: rel, Kind: kind, Content: content, SHA256: hex.EncodeToString(sum[:])}
}

// Render produces the artifact set without touching the filesystem.
func Render(in Inputs) (*ArtifactSet, error) {
	set := &ArtifactSet{}

	for _, m := range in.Descriptor.Modules {
		content, err := BuildRules(m, in)
		if err != nil {
			return nil, err
		}
		set.Files = append(set.Files, newArtifact(ModuleFile(m.Dir), KindBuildRules, content))
	}

	header, err := ConfigHeader(in)
	if err != nil {
		return nil, err
	}
	set.Files = append(set.Files, newArtifact(in.Descriptor.ConfigHeader, KindConfigHeader, header))

	manifest, err := Manifest(in)
	if err != nil {
		return nil, err
	}
	set.Files = append(set.Files, newArtifact(in.Descriptor.Manifest.File, KindManifest, manifest))

	return set, nil
}

// Emit renders every artifact and writes them into the build directory.
// All files are staged before any is renamed into place. The summary is
// written to Stdout last.
func (e *Emitter) Emit(res *checks.Result, meta *metadata.Package, tool *toolchain.Descriptor, triple abi.Triple) (*ArtifactSet, error) {
	switch {
	case res == nil:
		return nil, &PreconditionError{Reason: "no configuration result"}
	case !res.Success:
		return nil, &PreconditionError{Reason: fmt.Sprintf("configuration did not succeed (failed check '%s')", res.FailedCheck)}
	case meta == nil || tool == nil || e.Descriptor == nil:
		return nil, &PreconditionError{Reason: "package metadata, toolchain and descriptor are required"}
	}

	log := e.Log
	if log == nil {
		log = hclog.NewNullLogger()
	}

	in := Inputs{
		Package:    meta,
		Tool:       tool,
		Triple:     triple,
		Paths:      res.Paths,
		Defines:    res.Defines,
		Outcomes:   res.Outcomes,
		Descriptor: e.Descriptor,
	}
	set, err := Render(in)
	if err != nil {
		return nil, err
	}
	summary, err := Summary(in)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(e.BuildDir, 0755); err != nil {
		return nil, fmt.Errorf("creating build directory: %w", err)
	}

	batch := sandbox.Batch{Root: e.BuildDir}
	for _, f := range set.Files {
		if err := batch.Stage(f.Path, f.Content, 0644); err != nil {
			batch.Discard()
			return nil, fmt.Errorf("writing %s: %w", f.Path, err)
		}
	}
	if e.Attach != nil {
		name, content, err := e.Attach(set)
		if err != nil {
			batch.Discard()
			return nil, err
		}
		if err := batch.Stage(name, content, 0644); err != nil {
			batch.Discard()
			return nil, fmt.Errorf("writing %s: %w", name, err)
		}
	}
	if _, err := batch.Commit(); err != nil {
		return nil, err
	}

	for _, f := range set.Files {
		log.Info("creating "+f.Path, "kind", f.Kind, "sha256", f.SHA256)
	}

	if e.Stdout != nil {
		if _, err := e.Stdout.Write(summary); err != nil {
			return set, fmt.Errorf("writing summary: %w", err)
		}
	}
	return set, nil
}
