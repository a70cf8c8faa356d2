package pipeline

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/constants"
)

func TestRunStateTransitions(t *testing.T) {
	cases := []struct {
		from, to RunState
		ok       bool
	}{
		{StateInit, StateSchemaFetched, true},
		{StateInit, StateFailed, true},
		{StateInit, StateSyncing, false},
		{StateSchemaFetched, StateSyncing, true},
		{StateSyncing, StateLoading, false}, // the load phase waits for SYNCED.
		{StateSyncing, StateSynced, true},
		{StateSynced, StateLoading, true},
		{StateLoading, StateDone, true},
		{StateFailed, StateDone, true},
		{StateDone, StateInit, false},
		{StateDone, StateFailed, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.ok {
			t.Errorf("%v -> %v: expected %v; got %v", c.from, c.to, c.ok, got)
		}
	}
}

func TestSummaryIllegalTransitionPanics(t *testing.T) {
	s := newSummary("run", time.Now())
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic on INIT -> LOADING")
		}
	}()
	s.transition(StateLoading)
}

func TestSummaryExitCode(t *testing.T) {
	s := newSummary("run", time.Now())
	if s.ExitCode() != constants.ExitCodeOK || s.Status() != "ok" {
		t.Fatalf("expected an empty run to succeed; got %v", s.ExitCode())
	}
	s.add(Outcome{Table: "a", Phase: PhaseSync, Rows: 2})
	s.add(Outcome{Table: "b", Phase: PhaseSync, Err: newTableError(KindFetch, "b", PhaseSync, errors.New("x"))})
	if s.ExitCode() != constants.ExitCodeTableFailures || s.Status() != "partial" {
		t.Fatalf("expected table failures; got %v", s.ExitCode())
	}
	if len(s.Failures()) != 1 || s.Failures()[0].Table != "b" {
		t.Fatalf("unexpected failures %v", s.Failures())
	}
	s.setFatal(newTableError(KindFatal, "", PhaseSchema, errors.New("no schema")))
	if s.ExitCode() != constants.ExitCodeFatal || s.Status() != "failed" {
		t.Fatalf("expected a fatal exit code; got %v", s.ExitCode())
	}
}

func TestSummaryMarshalJSON(t *testing.T) {
	s := newSummary("abc", time.Now())
	s.transition(StateSchemaFetched)
	s.add(Outcome{Table: "a", Phase: PhaseLoad, Rows: 3, Duration: 2 * time.Second})
	s.add(Outcome{Table: "b", Phase: PhaseLoad, Err: newTableError(KindSkipped, "b", PhaseLoad, ErrSyncFailed)})
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		RunID    string   `json:"runId"`
		State    string   `json:"state"`
		History  []string `json:"history"`
		ExitCode int      `json:"exitCode"`
		Outcomes []struct {
			Table       string  `json:"table"`
			Rows        int64   `json:"rows"`
			DurationSec float64 `json:"durationSec"`
			Kind        string  `json:"kind"`
		} `json:"outcomes"`
	}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got.RunID != "abc" || got.State != "SCHEMA_FETCHED" || len(got.History) != 2 || got.ExitCode != 1 {
		t.Fatalf("unexpected summary %s", b)
	}
	if got.Outcomes[0].DurationSec != 2 || got.Outcomes[0].Kind != "" || got.Outcomes[1].Kind != "SkippedError" {
		t.Fatalf("unexpected outcomes %s", b)
	}
}

func TestKindOf(t *testing.T) {
	err := errors.Wrap(newTableError(KindStage, "a", PhaseSync, errors.New("denied")), "outer")
	if KindOf(err) != KindStage {
		t.Fatalf("expected StageError; got %v", KindOf(err))
	}
	if KindOf(errors.New("plain")) != KindUnknown || KindOf(nil) != KindUnknown {
		t.Fatal("expected KindUnknown for unclassified errors")
	}
	if got := err.Error(); got != "outer: StageError: table a: denied" {
		t.Fatalf("unexpected message %q", got)
	}
}
