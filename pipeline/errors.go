package pipeline

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies table and run failures.
type ErrorKind int

const (
	KindUnknown   ErrorKind = iota
	KindFetch               // dump API failure.
	KindTransform           // sanitise, parse or column count failure.
	KindStage               // upload to object storage failure.
	KindLoad                // warehouse job failure.
	KindSkipped             // not loaded because the table's sync failed.
	KindFatal               // run level failure before any table is attempted.
)

func (k ErrorKind) String() string {
	switch k {
	case KindFetch:
		return "FetchError"
	case KindTransform:
		return "TransformError"
	case KindStage:
		return "StageError"
	case KindLoad:
		return "LoadError"
	case KindSkipped:
		return "SkippedError"
	case KindFatal:
		return "FatalError"
	}
	return "UnknownError"
}

// ErrSyncFailed is the cause of a KindSkipped load error.
var ErrSyncFailed = errors.New("not loaded because the table sync failed")

// TableError is a classified failure of one table, or of the run when Kind is KindFatal.
type TableError struct {
	Kind  ErrorKind
	Table string
	Phase Phase
	Err   error
}

func (e *TableError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%v: table %v: %v", e.Kind, e.Table, e.Err)
}

func (e *TableError) Unwrap() error {
	return e.Err
}

func newTableError(kind ErrorKind, table string, phase Phase, err error) error {
	return &TableError{Kind: kind, Table: table, Phase: phase, Err: err}
}

// KindOf returns the kind of the first TableError in err's chain, or KindUnknown.
func KindOf(err error) ErrorKind {
	var te *TableError
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindUnknown
}
