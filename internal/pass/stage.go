package pass

import "fmt"

// Stage is a state of the configuration pass.
type Stage string

const (
	StageInit             Stage = "init"
	StageProbingToolchain Stage = "probing-toolchain"
	StageComputingVersion Stage = "computing-version"
	StageRunningChecks    Stage = "running-checks"
	StageEmitting         Stage = "emitting"
	StageDone             Stage = "done"
	StageAborted          Stage = "aborted"
)

// IsTerminal reports whether no further transition is possible.
func IsTerminal(s Stage) bool {
	return s == StageDone || s == StageAborted
}

// next is the only forward transition out of each non-terminal stage.
var next = map[Stage]Stage{
	StageInit:             StageProbingToolchain,
	StageProbingToolchain: StageComputingVersion,
	StageComputingVersion: StageRunningChecks,
	StageRunningChecks:    StageEmitting,
	StageEmitting:         StageDone,
}

func isAllowedTransition(from, to Stage) bool {
	if IsTerminal(from) {
		return false
	}
	return to == StageAborted || next[from] == to
}

// Machine tracks the pass through its stages. The zero value starts in
// StageInit.
type Machine struct {
	history []Stage
}

// Current returns the current stage.
func (m *Machine) Current() Stage {
	if len(m.history) == 0 {
		return StageInit
	}
	return m.history[len(m.history)-1]
}

// History returns every stage visited, starting with StageInit.
func (m *Machine) History() []Stage {
	if len(m.history) == 0 {
		return []Stage{StageInit}
	}
	return append([]Stage(nil), m.history...)
}

// Transition moves to stage to, or fails without changing state.
func (m *Machine) Transition(to Stage) error {
	from := m.Current()
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition: %s -> %s", from, to)
	}
	if len(m.history) == 0 {
		m.history = append(m.history, StageInit)
	}
	m.history = append(m.history, to)
	return nil
}
