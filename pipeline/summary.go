package pipeline

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/relloyd/cdsync/constants"
)

// Phase names the stage of a run an Outcome belongs to.
type Phase string

const (
	PhaseSchema Phase = "schema"
	PhaseSync   Phase = "sync"
	PhaseLoad   Phase = "load"
)

// Outcome is the result of one table in one phase.
type Outcome struct {
	Table    string
	Phase    Phase
	Rows     int64
	Duration time.Duration
	Err      error
}

// Succeeded reports whether the table step completed without error.
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// Kind returns the error kind of a failed outcome.
func (o Outcome) Kind() ErrorKind {
	return KindOf(o.Err)
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	type outcomeJSON struct {
		Table       string  `json:"table"`
		Phase       Phase   `json:"phase"`
		Rows        int64   `json:"rows"`
		DurationSec float64 `json:"durationSec"`
		Kind        string  `json:"kind,omitempty"`
		Error       string  `json:"error,omitempty"`
	}
	j := outcomeJSON{Table: o.Table, Phase: o.Phase, Rows: o.Rows, DurationSec: o.Duration.Seconds()}
	if o.Err != nil {
		j.Kind = o.Kind().String()
		j.Error = o.Err.Error()
	}
	return json.Marshal(j)
}

// Summary collects the outcomes of a run. It is safe for concurrent use.
type Summary struct {
	mu        sync.Mutex
	runID     string
	startTime time.Time
	endTime   time.Time
	state     RunState
	history   []RunState
	fatal     error
	outcomes  []Outcome
}

func newSummary(runID string, start time.Time) *Summary {
	return &Summary{runID: runID, startTime: start, state: StateInit, history: []RunState{StateInit}}
}

// RunID returns the unique id of the run.
func (s *Summary) RunID() string {
	return s.runID
}

// State returns the current run state.
func (s *Summary) State() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns every state the run has been in, in order.
func (s *Summary) History() []RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RunState(nil), s.history...)
}

// Fatal returns the run level error, if any.
func (s *Summary) Fatal() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatal
}

// Outcomes returns a copy of all table outcomes in completion order.
func (s *Summary) Outcomes() []Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Outcome(nil), s.outcomes...)
}

// OutcomesFor returns the outcomes of one phase.
func (s *Summary) OutcomesFor(phase Phase) []Outcome {
	retval := make([]Outcome, 0)
	for _, o := range s.Outcomes() {
		if o.Phase == phase {
			retval = append(retval, o)
		}
	}
	return retval
}

// Failures returns the failed table outcomes.
func (s *Summary) Failures() []Outcome {
	retval := make([]Outcome, 0)
	for _, o := range s.Outcomes() {
		if !o.Succeeded() {
			retval = append(retval, o)
		}
	}
	return retval
}

// ExitCode returns 0 when every table succeeded, 1 when any table failed and 2 on a fatal run error.
func (s *Summary) ExitCode() int {
	if s.Fatal() != nil {
		return constants.ExitCodeFatal
	}
	if len(s.Failures()) > 0 {
		return constants.ExitCodeTableFailures
	}
	return constants.ExitCodeOK
}

// Status returns a one word description of ExitCode.
func (s *Summary) Status() string {
	switch s.ExitCode() {
	case constants.ExitCodeOK:
		return "ok"
	case constants.ExitCodeTableFailures:
		return "partial"
	}
	return "failed"
}

func (s *Summary) add(o Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, o)
}

func (s *Summary) setFatal(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fatal = err
}

// transition moves the run to next. An illegal transition is a programming error and panics.
func (s *Summary) transition(next RunState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.CanTransitionTo(next) {
		panic("illegal run state transition from " + s.state.String() + " to " + next.String())
	}
	s.state = next
	s.history = append(s.history, next)
}

func (s *Summary) finish(end time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endTime = end
}

func (s *Summary) MarshalJSON() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	type summaryJSON struct {
		RunID     string     `json:"runId"`
		StartTime time.Time  `json:"startTime"`
		EndTime   time.Time  `json:"endTime"`
		State     RunState   `json:"state"`
		History   []RunState `json:"history"`
		Fatal     string     `json:"fatal,omitempty"`
		ExitCode  int        `json:"exitCode"`
		Outcomes  []Outcome  `json:"outcomes"`
	}
	j := summaryJSON{RunID: s.runID, StartTime: s.startTime, EndTime: s.endTime, State: s.state, History: s.history, Outcomes: s.outcomes}
	if s.fatal != nil {
		j.Fatal = s.fatal.Error()
		j.ExitCode = constants.ExitCodeFatal
	} else {
		j.ExitCode = constants.ExitCodeOK
		for _, o := range s.outcomes {
			if !o.Succeeded() {
				j.ExitCode = constants.ExitCodeTableFailures
				break
			}
		}
	}
	return json.Marshal(j)
}
