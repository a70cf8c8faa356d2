package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/logger"
)

// TableFunc is a fallible per-table operation returning a row count.
type TableFunc func(ctx context.Context) (rows int64, err error)

// RunIsolated runs fn for table and converts every failure, including a panic, into an Outcome.
// A timeout > 0 bounds fn with a context deadline. Nothing fn does can fail the caller.
func RunIsolated(ctx context.Context, log logger.Logger, table string, phase Phase, timeout time.Duration, fn TableFunc) (o Outcome) {
	o = Outcome{Table: table, Phase: phase}
	tlog := log.WithFields(map[string]interface{}{"table": table, "phase": string(phase)})
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			o.Err = newTableError(KindUnknown, table, phase, errors.Errorf("panic: %v", p))
		}
		o.Duration = time.Since(start)
		if o.Err != nil {
			if errors.Is(o.Err, context.DeadlineExceeded) && ctx.Err() == context.DeadlineExceeded {
				tlog.Error("table ", table, " timed out after ", timeout, ": ", o.Err)
			} else {
				tlog.Error("table ", table, " failed in ", phase, " phase: ", o.Err)
			}
		} else {
			tlog.Debug("table ", table, " ", phase, " complete in ", o.Duration)
		}
	}()
	o.Rows, o.Err = fn(ctx)
	if o.Err != nil && KindOf(o.Err) == KindUnknown { // classify by phase when the step did not.
		kind := KindLoad
		if phase == PhaseSync {
			kind = KindFetch
		}
		o.Err = newTableError(kind, table, phase, o.Err)
	}
	return o
}
