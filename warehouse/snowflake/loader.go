// Package snowflake loads staged CSV objects into Snowflake through an external stage.
package snowflake

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/logger"
	"github.com/relloyd/cdsync/pipeline"
	tabledefinition "github.com/relloyd/cdsync/table-definition"
)

// Config of the Snowflake warehouse.
type Config struct {
	DSN   string `errorTxt:"Snowflake DSN" mandatory:"yes"`
	Stage string `errorTxt:"Snowflake stage name" mandatory:"yes"` // external stage on the staging bucket.
}

type transacter interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Commit() error
	Rollback() error
}

// database is the part of *sql.DB the loader needs.
type database interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	begin(ctx context.Context) (transacter, error)
	count(ctx context.Context, query string) (int64, error)
	Close() error
}

type sqlDatabase struct {
	*sql.DB
}

func (d sqlDatabase) begin(ctx context.Context) (transacter, error) {
	return d.BeginTx(ctx, nil)
}

func (d sqlDatabase) count(ctx context.Context, query string) (n int64, err error) {
	err = d.QueryRowContext(ctx, query).Scan(&n)
	return
}

// Loader implements pipeline.Warehouse on Snowflake COPY INTO statements.
type Loader struct {
	log    logger.Logger
	db     database
	stage  string
	mapper tabledefinition.Mapper
}

// NewLoader opens and pings the Snowflake connection in cfg.DSN.
func NewLoader(ctx context.Context, log logger.Logger, cfg Config, mapper tabledefinition.Mapper) (*Loader, error) {
	d, err := ParseDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.Stage == "" {
		return nil, errors.New("please supply a value for Snowflake stage name")
	}
	db, err := sql.Open("snowflake", strings.TrimPrefix(cfg.DSN, dsnScheme))
	if err != nil {
		return nil, errors.Wrapf(err, "error opening Snowflake connection %v", d)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "error connecting to Snowflake %v", d)
	}
	log.Info("Successful database connection to Snowflake.")
	return &Loader{log: log, db: sqlDatabase{db}, stage: cfg.Stage, mapper: mapper}, nil
}

// Load creates the table if needed, then deletes (WriteTruncate) and copies the staged file
// in one transaction. The row count is read after commit.
func (l *Loader) Load(ctx context.Context, req pipeline.LoadRequest) (res pipeline.LoadResult, err error) {
	name := req.Table.TableName
	ddl := GetSqlCreateTable(name, tabledefinition.BuildFieldSchema(req.Table, l.mapper))
	l.log.Debug("executing query: ", ddl)
	if _, err := l.db.ExecContext(ctx, ddl); err != nil {
		return res, errors.Wrapf(err, "error executing SQL %q", ddl)
	}
	tx, err := l.db.begin(ctx)
	if err != nil {
		return res, errors.Wrap(err, "error starting transaction")
	}
	rollbackRequired := true
	defer func() {
		if rollbackRequired {
			if rbErr := tx.Rollback(); rbErr != nil {
				l.log.Warn("error during rollback of ", name, ": ", rbErr)
			}
		}
	}()
	for _, stmt := range GetSqlSliceLoad(name, l.stage, req.ObjectKey, req.Mode) {
		l.log.Debug("executing query: ", stmt)
		r, err := tx.ExecContext(ctx, stmt)
		if err != nil {
			return res, errors.Wrapf(err, "error executing SQL %q", stmt)
		}
		if n, e := r.RowsAffected(); e == nil {
			l.log.Debug("rows affected: ", n)
		}
	}
	if err := tx.Commit(); err != nil {
		return res, errors.Wrapf(err, "error committing load of %v", name)
	}
	rollbackRequired = false
	n, err := l.db.count(ctx, GetSqlRowCount(name))
	if err != nil {
		return res, errors.Wrapf(err, "error counting rows of %v", name)
	}
	return pipeline.LoadResult{TableID: quoteIdentifier(name), RowCount: n}, nil
}

// Close closes the database connection.
func (l *Loader) Close() error {
	return l.db.Close()
}
