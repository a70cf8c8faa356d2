package pipeline

import (
	"encoding/json"
)

// RunState is the state of a sync run.
type RunState uint32

const (
	StateInit RunState = iota
	StateSchemaFetched
	StateSyncing
	StateSynced
	StateLoading
	StateDone
	StateFailed
)

func (s RunState) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateSchemaFetched:
		return "SCHEMA_FETCHED"
	case StateSyncing:
		return "SYNCING"
	case StateSynced:
		return "SYNCED"
	case StateLoading:
		return "LOADING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

func (s RunState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

var allowedTransitions = map[RunState][]RunState{
	StateInit:          {StateSchemaFetched, StateFailed},
	StateSchemaFetched: {StateSyncing},
	StateSyncing:       {StateSynced},
	StateSynced:        {StateLoading},
	StateLoading:       {StateDone},
	StateFailed:        {StateDone},
}

// CanTransitionTo reports whether next may follow s.
func (s RunState) CanTransitionTo(next RunState) bool {
	for _, v := range allowedTransitions[s] {
		if v == next {
			return true
		}
	}
	return false
}
