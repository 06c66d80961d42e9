package build

import "fmt"

// Stage is the progress of one build invocation. Stages only move forward,
// one at a time.
type Stage int

const (
	Unconfigured Stage = iota
	OptionsConfigured
	DependenciesResolved
	Built
	Packaged
	Published
)

var stageNames = [...]string{
	Unconfigured:         "Unconfigured",
	OptionsConfigured:    "OptionsConfigured",
	DependenciesResolved: "DependenciesResolved",
	Built:                "Built",
	Packaged:             "Packaged",
	Published:            "Published",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// session tracks the stage of one invocation.
type session struct {
	stage Stage
}

func (s *session) advance(to Stage) error {
	if to != s.stage+1 {
		return fmt.Errorf("illegal stage transition %s -> %s", s.stage, to)
	}
	s.stage = to
	return nil
}
