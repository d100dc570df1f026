package canconfig

import (
	"github.com/rscada/canconfig/internal/abi"
	"github.com/rscada/canconfig/internal/checks"
	"github.com/rscada/canconfig/internal/descriptor"
	"github.com/rscada/canconfig/internal/emit"
	"github.com/rscada/canconfig/internal/metadata"
	"github.com/rscada/canconfig/internal/pass"
	"github.com/rscada/canconfig/internal/status"
	"github.com/rscada/canconfig/internal/toolchain"
)

// Type aliases re-export the pass types as the public API.

type Report = pass.Report
type Stage = pass.Stage
type Error = pass.Error
type Env = pass.Env
type Dirs = checks.Dirs
type Outcome = checks.Outcome
type Artifact = emit.Artifact
type Triple = abi.Triple
type InvalidTripleError = abi.InvalidTripleError
type CompilerNotFoundError = toolchain.NotFoundError
type CheckFailedError = checks.CheckFailedError
type MetadataError = metadata.Error
type DescriptorError = descriptor.ValidationError
type PreconditionError = emit.PreconditionError
type DriftReport = status.Report
type Exec = toolchain.Exec

// Pass stages.
const (
	StageInit             = pass.StageInit
	StageProbingToolchain = pass.StageProbingToolchain
	StageComputingVersion = pass.StageComputingVersion
	StageRunningChecks    = pass.StageRunningChecks
	StageEmitting         = pass.StageEmitting
	StageDone             = pass.StageDone
	StageAborted          = pass.StageAborted
)

// CaptureEnv reads CC, CPPFLAGS, CFLAGS, LDFLAGS and LIBS through getenv.
func CaptureEnv(getenv func(string) string) Env {
	return pass.CaptureEnv(getenv)
}
