package snowflake

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/logger"
	"github.com/relloyd/cdsync/pipeline"
	tabledefinition "github.com/relloyd/cdsync/table-definition"
)

type fakeResult int64

func (r fakeResult) LastInsertId() (int64, error) { return 0, errors.New("not supported") }
func (r fakeResult) RowsAffected() (int64, error) { return int64(r), nil }

// fakeDB records statements and fails any statement containing failOn.
type fakeDB struct {
	statements []string
	failOn     string
	committed  bool
	rolledBack bool
	rows       int64
}

func (f *fakeDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	f.statements = append(f.statements, query)
	if f.failOn != "" && strings.Contains(query, f.failOn) {
		return nil, errors.New("sql error")
	}
	return fakeResult(1), nil
}

func (f *fakeDB) Commit() error {
	f.committed = true
	return nil
}

func (f *fakeDB) Rollback() error {
	f.rolledBack = true
	return nil
}

func (f *fakeDB) begin(ctx context.Context) (transacter, error) {
	f.statements = append(f.statements, "begin")
	return f, nil
}

func (f *fakeDB) count(ctx context.Context, query string) (int64, error) {
	f.statements = append(f.statements, query)
	return f.rows, nil
}

func (f *fakeDB) Close() error {
	return nil
}

func userDim() tabledefinition.TableColumns {
	return tabledefinition.TableColumns{TableName: "user_dim", Columns: []tabledefinition.TableColumn{
		{ColName: "id", DataType: "bigint"},
		{ColName: "name", DataType: "varchar"},
		{ColName: "period", DataType: "interval"},
	}}
}

func newTestLoader(db *fakeDB) *Loader {
	return &Loader{
		log:    logger.NewLogger("cdsync", "error", false),
		db:     db,
		stage:  "@canvas_stage",
		mapper: tabledefinition.NewCanvasToSnowflakeDataTypeMapper(nil),
	}
}

func TestLoaderTruncate(t *testing.T) {
	g := NewGomegaWithT(t)
	db := &fakeDB{rows: 3}
	res, err := newTestLoader(db).Load(context.Background(), pipeline.LoadRequest{
		Table: userDim(), Mode: pipeline.WriteTruncate, ObjectKey: "canvas/user_dim.csv",
	})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(res).To(Equal(pipeline.LoadResult{TableID: `"USER_DIM"`, RowCount: 3}))
	g.Expect(db.statements).To(Equal([]string{
		`create table if not exists "USER_DIM" ("ID" FLOAT, "NAME" VARCHAR, "PERIOD" VARCHAR)`,
		"begin",
		`delete from "USER_DIM"`,
		`copy into "USER_DIM" from '@canvas_stage/canvas/user_dim.csv' file_format=(type=csv skip_header=1 field_optionally_enclosed_by='"') force=true`,
		`select count(*) from "USER_DIM"`,
	}))
	g.Expect(db.committed).To(BeTrue())
	g.Expect(db.rolledBack).To(BeFalse())
}

func TestLoaderAppend(t *testing.T) {
	g := NewGomegaWithT(t)
	db := &fakeDB{rows: 10}
	_, err := newTestLoader(db).Load(context.Background(), pipeline.LoadRequest{
		Table: tabledefinition.TableColumns{TableName: "requests", Columns: userDim().Columns}, Mode: pipeline.WriteAppend, ObjectKey: "requests.csv",
	})
	g.Expect(err).ToNot(HaveOccurred())
	for _, stmt := range db.statements {
		g.Expect(stmt).ToNot(HavePrefix("delete"))
	}
	g.Expect(db.statements).To(ContainElement(`copy into "REQUESTS" from '@canvas_stage/requests.csv' file_format=(type=csv skip_header=1 field_optionally_enclosed_by='"') force=true`))
}

func TestLoaderRollsBackOnCopyFailure(t *testing.T) {
	g := NewGomegaWithT(t)
	db := &fakeDB{failOn: "copy into"}
	_, err := newTestLoader(db).Load(context.Background(), pipeline.LoadRequest{Table: userDim(), Mode: pipeline.WriteTruncate, ObjectKey: "user_dim.csv"})
	g.Expect(err).To(MatchError(ContainSubstring("sql error")))
	g.Expect(db.committed).To(BeFalse())
	g.Expect(db.rolledBack).To(BeTrue())
	g.Expect(db.statements[len(db.statements)-1]).To(HavePrefix("copy into"))
}

func TestLoaderCreateTableFailure(t *testing.T) {
	g := NewGomegaWithT(t)
	db := &fakeDB{failOn: "create table"}
	_, err := newTestLoader(db).Load(context.Background(), pipeline.LoadRequest{Table: userDim(), ObjectKey: "user_dim.csv"})
	g.Expect(err).To(HaveOccurred())
	g.Expect(db.statements).To(HaveLen(1))
}

func TestGetSqlQuotedIdentifiers(t *testing.T) {
	g := NewGomegaWithT(t)
	g.Expect(GetSqlRowCount(`"MixedCase"`)).To(Equal(`select count(*) from "MixedCase"`))
	g.Expect(GetSqlSliceLoad("a", "stage/sub", "a.csv", pipeline.WriteAppend)).To(Equal([]string{
		`copy into "A" from '@stage/sub/a.csv' file_format=(type=csv skip_header=1 field_optionally_enclosed_by='"') force=true`,
	}))
}

func TestDSN(t *testing.T) {
	g := NewGomegaWithT(t)
	d := ConnectionDetails{Account: "acct", DBName: "canvas", Schema: "public", User: "loader", Password: "secret", Warehouse: "wh", RoleName: "etl"}
	dsn, err := GetDSN(d)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(dsn).To(HavePrefix("snowflake://"))

	got, err := ParseDSN(dsn)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(got.User).To(Equal("loader"))
	g.Expect(got.DBName).To(Equal("canvas"))
	g.Expect(got.Schema).To(Equal("public"))
	g.Expect(got.Warehouse).To(Equal("wh"))
	g.Expect(got.RoleName).To(Equal("etl"))
	g.Expect(got.String()).ToNot(ContainSubstring("secret"))

	_, err = ParseDSN("postgres://x")
	g.Expect(err).To(HaveOccurred())
	_, err = GetDSN(ConnectionDetails{Account: "acct"})
	g.Expect(err).To(MatchError(ContainSubstring("Snowflake db name")))
}
