package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/constants"
	"github.com/relloyd/cdsync/logger"
	"github.com/relloyd/cdsync/stats"
	tabledefinition "github.com/relloyd/cdsync/table-definition"
	"github.com/rs/xid"
	"golang.org/x/sync/errgroup"
)

// Options tune a Runner. Zero values select the defaults.
type Options struct {
	SchemaVersion string        // defaults to "latest".
	Skip          *SkipPolicy   // defaults to skipping the requests log table and catalog tables.
	SyncWorkers   int           // tables synced concurrently; defaults to 1.
	LoadWorkers   int           // tables loaded concurrently; defaults to 1.
	TableTimeout  time.Duration // per table and phase; 0 means no timeout.
	WorkDir       string        // parent of per-run workspaces; defaults to the OS temp dir.
	KeyPrefix     string        // prepended to staged object keys.
}

// Runner executes sync runs: schema fetch, then the sync phase, then the load phase.
type Runner struct {
	log       logger.Logger
	fetcher   Fetcher
	stager    Stager
	warehouse Warehouse
	stats     *stats.TableStatsManager
	opts      Options
	newRunID  func() string
}

// NewRunner returns a Runner using the supplied collaborators.
// statsMgr may be nil.
func NewRunner(log logger.Logger, fetcher Fetcher, stager Stager, warehouse Warehouse, statsMgr *stats.TableStatsManager, opts Options) (*Runner, error) {
	if fetcher == nil || stager == nil || warehouse == nil {
		return nil, errors.New("runner requires a fetcher, a stager and a warehouse")
	}
	if opts.SchemaVersion == "" {
		opts.SchemaVersion = constants.SchemaVersionLatest
	}
	if opts.Skip == nil {
		p, err := NewSkipPolicy(constants.LogTableNameDefault, constants.ReservedTableSubstring, nil, "")
		if err != nil {
			return nil, err
		}
		opts.Skip = p
	}
	if opts.SyncWorkers < 1 {
		opts.SyncWorkers = constants.DefaultWorkers
	}
	if opts.LoadWorkers < 1 {
		opts.LoadWorkers = constants.DefaultWorkers
	}
	if opts.TableTimeout < 0 {
		return nil, errors.Errorf("invalid table timeout %v", opts.TableTimeout)
	}
	if opts.WorkDir == "" {
		opts.WorkDir = filepath.Join(os.TempDir(), constants.ServiceName)
	}
	if statsMgr == nil {
		statsMgr = stats.NewTableStatsManager(log, stats.SetStatsDumpFrequency(0))
	}
	return &Runner{
		log:       log,
		fetcher:   fetcher,
		stager:    stager,
		warehouse: warehouse,
		stats:     statsMgr,
		opts:      opts,
		newRunID:  func() string { return xid.New().String() },
	}, nil
}

// Run performs one full sync run and returns its Summary. Failures are recorded in the
// Summary rather than returned: a schema fetch failure is fatal, table failures are isolated.
func (r *Runner) Run(ctx context.Context) *Summary {
	sum := newSummary(r.newRunID(), time.Now())
	log := r.log.WithField("runId", sum.RunID())
	move := func(next RunState) {
		sum.transition(next)
		log.Debug("run state ", next)
	}
	log.Info("starting sync run")
	r.stats.StartDumping()
	defer func() {
		r.stats.StopDumping()
		r.stats.EndRun(sum.Status())
		sum.finish(time.Now())
		log.Info("sync run finished: status=", sum.Status(), " failures=", len(sum.Failures()), " state=", sum.State())
	}()

	if rs, ok := r.fetcher.(RunScoped); ok {
		rs.Reset()
	}
	schema, err := r.fetcher.GetSchema(ctx, r.opts.SchemaVersion)
	if err != nil {
		fatal := newTableError(KindFatal, "", PhaseSchema, errors.Wrapf(err, "error fetching schema version %v", r.opts.SchemaVersion))
		sum.setFatal(fatal)
		move(StateFailed)
		log.Error(fatal)
		move(StateDone)
		return sum
	}
	move(StateSchemaFetched)
	log.Info("schema version ", schema.Version, " has ", len(schema.Tables), " tables")

	ws := Workspace{Root: filepath.Join(r.opts.WorkDir, sum.RunID())}
	defer func() {
		if err := ws.Remove(); err != nil {
			log.Warn("unable to remove workspace ", ws.Root, ": ", err)
		}
	}()

	move(StateSyncing)
	order, synced := r.syncPhase(ctx, log, ws, schema, sum)
	move(StateSynced) // barrier: every sync job has returned.

	move(StateLoading)
	r.loadPhase(ctx, log, schema, order, synced, sum)
	move(StateDone)
	return sum
}

// selectTables returns the main loop tables in sorted order with the skip policy applied.
func (r *Runner) selectTables(log logger.Logger, schema tabledefinition.SchemaDescriptor) []tabledefinition.TableColumns {
	retval := make([]tabledefinition.TableColumns, 0, len(schema.Tables))
	for _, name := range schema.TableNames() {
		cols, _ := schema.GetTable(name)
		cols.TableName = name
		skip, reason, err := r.opts.Skip.Skip(cols)
		if err != nil {
			log.Warn("table filter failed for ", name, "; keeping table: ", err)
		}
		if skip {
			log.Debug("skipping table ", name, ": ", reason)
			continue
		}
		retval = append(retval, cols)
	}
	return retval
}

// syncPhase syncs the selected tables and then the log table on a bounded pool.
// It returns the attempted table names in submission order and which of them succeeded.
func (r *Runner) syncPhase(ctx context.Context, log logger.Logger, ws Workspace, schema tabledefinition.SchemaDescriptor, sum *Summary) ([]string, map[string]bool) {
	tables := r.selectTables(log, schema)
	order := make([]string, 0, len(tables)+1)
	synced := make(map[string]bool, len(tables)+1)
	var mu sync.Mutex
	record := func(o Outcome) {
		mu.Lock()
		defer mu.Unlock()
		synced[o.Table] = o.Succeeded()
	}

	g := new(errgroup.Group)
	g.SetLimit(r.opts.SyncWorkers)
	for _, cols := range tables {
		cols := cols
		order = append(order, cols.TableName)
		g.Go(func() error {
			record(r.runTable(ctx, log, sum, cols.TableName, PhaseSync, func(ctx context.Context) (int64, error) {
				return r.SyncTable(ctx, ws, cols)
			}))
			return nil // failures stay in the summary so the group never cancels siblings.
		})
	}
	logTable := r.opts.Skip.LogTable()
	order = append(order, logTable)
	g.Go(func() error {
		record(r.runTable(ctx, log, sum, logTable, PhaseSync, func(ctx context.Context) (int64, error) {
			return r.SyncLogTable(ctx, ws, schema)
		}))
		return nil
	})
	_ = g.Wait()
	return order, synced
}

// loadPhase loads every table that synced in this run. Tables whose sync failed get a skipped outcome.
func (r *Runner) loadPhase(ctx context.Context, log logger.Logger, schema tabledefinition.SchemaDescriptor, order []string, synced map[string]bool, sum *Summary) {
	g := new(errgroup.Group)
	g.SetLimit(r.opts.LoadWorkers)
	for _, name := range order {
		name := name
		if !synced[name] {
			sum.add(Outcome{Table: name, Phase: PhaseLoad, Err: newTableError(KindSkipped, name, PhaseLoad, ErrSyncFailed)})
			r.stats.EndTable(string(PhaseLoad), name, false, 0)
			log.Warn("table ", name, " not loaded: sync failed")
			continue
		}
		cols, _ := schema.GetTable(name)
		cols.TableName = name
		mode := r.WriteModeFor(name)
		g.Go(func() error {
			r.runTable(ctx, log, sum, name, PhaseLoad, func(ctx context.Context) (int64, error) {
				return r.LoadTable(ctx, cols, mode)
			})
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Runner) runTable(ctx context.Context, log logger.Logger, sum *Summary, table string, phase Phase, fn TableFunc) Outcome {
	r.stats.StartTable(string(phase), table)
	o := RunIsolated(ctx, log, table, phase, r.opts.TableTimeout, fn)
	r.stats.EndTable(string(phase), table, o.Succeeded(), o.Rows)
	sum.add(o)
	return o
}
