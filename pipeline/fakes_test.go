package pipeline_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/pipeline"
	tabledefinition "github.com/relloyd/cdsync/table-definition"
)

// newSchema returns a schema where every table has columns id and name.
func newSchema(tables ...string) tabledefinition.SchemaDescriptor {
	s := tabledefinition.SchemaDescriptor{Version: "test", Tables: map[string]tabledefinition.TableColumns{}}
	for _, t := range tables {
		s.Tables[t] = tabledefinition.TableColumns{TableName: t, Columns: []tabledefinition.TableColumn{
			{ColName: "id", DataType: "bigint"},
			{ColName: "name", DataType: "varchar"},
		}}
	}
	return s
}

// rawRows returns a raw dump with a header and n data rows.
func rawRows(n int) string {
	b := bytes.NewBufferString("raw_id\traw_name\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(b, "%v\t\"name\\N%v\"\n", i, i)
	}
	return b.String()
}

type fakeFetcher struct {
	mu      sync.Mutex
	schema  tabledefinition.SchemaDescriptor
	raw     map[string]string // table -> raw dump content; missing tables get rawRows(1).
	fail    map[string]error
	block   map[string]bool // block until the context is done.
	dirs    map[string]string
	fetched []string
}

func newFakeFetcher(schema tabledefinition.SchemaDescriptor) *fakeFetcher {
	return &fakeFetcher{schema: schema, raw: map[string]string{}, fail: map[string]error{}, block: map[string]bool{}, dirs: map[string]string{}}
}

func (f *fakeFetcher) GetSchema(ctx context.Context, version string) (tabledefinition.SchemaDescriptor, error) {
	return f.schema, nil
}

func (f *fakeFetcher) GetDataForTable(ctx context.Context, tableName string, dir string) (string, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, tableName)
	f.dirs[tableName] = dir
	err := f.fail[tableName]
	block := f.block[tableName]
	content, ok := f.raw[tableName]
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	if !ok {
		content = rawRows(1)
	}
	p := filepath.Join(dir, tableName+".txt")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		return "", err
	}
	return p, nil
}

func (f *fakeFetcher) fetchedTables() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

type fakeStager struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    map[string]error
}

func newFakeStager() *fakeStager {
	return &fakeStager{objects: map[string][]byte{}, fail: map[string]error{}}
}

func (s *fakeStager) Upload(ctx context.Context, localFile string, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[key]; err != nil {
		return err
	}
	b, err := os.ReadFile(localFile)
	if err != nil {
		return err
	}
	s.objects[key] = b
	return nil
}

func (s *fakeStager) URI(key string) string {
	return "mem://bucket/" + key
}

func (s *fakeStager) object(key string) ([][]string, bool) {
	s.mu.Lock()
	b, ok := s.objects[key]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	recs, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	if err != nil {
		return nil, false
	}
	return recs, true
}

func (s *fakeStager) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// fakeWarehouse loads staged objects into in-memory row counts honouring the write mode.
type fakeWarehouse struct {
	mu             sync.Mutex
	stager         *fakeStager
	rows           map[string]int64
	modes          map[string]pipeline.WriteMode
	fail           map[string]error
	stagedAtFirst  int
	loadsAttempted int
}

func newFakeWarehouse(stager *fakeStager) *fakeWarehouse {
	return &fakeWarehouse{stager: stager, rows: map[string]int64{}, modes: map[string]pipeline.WriteMode{}, fail: map[string]error{}, stagedAtFirst: -1}
}

func (w *fakeWarehouse) Load(ctx context.Context, req pipeline.LoadRequest) (pipeline.LoadResult, error) {
	staged := w.stager.count()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.loadsAttempted++
	if w.stagedAtFirst < 0 {
		w.stagedAtFirst = staged
	}
	name := req.Table.TableName
	w.modes[name] = req.Mode
	if err := w.fail[name]; err != nil {
		return pipeline.LoadResult{}, err
	}
	recs, ok := w.stager.object(req.ObjectKey)
	if !ok {
		return pipeline.LoadResult{}, errors.Errorf("object %v not found", req.ObjectKey)
	}
	n := int64(len(recs) - 1)
	if req.Mode == pipeline.WriteAppend {
		w.rows[name] += n
	} else {
		w.rows[name] = n
	}
	return pipeline.LoadResult{TableID: "proj.ds." + name, RowCount: w.rows[name]}, nil
}
