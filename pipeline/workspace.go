package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/constants"
	"github.com/relloyd/cdsync/logger"
)

// Workspace lays out local artifacts for a run. All paths are keyed by table name
// so concurrent table steps never share files.
type Workspace struct {
	Root string
}

// TableDir is the directory owned by a table's sync step for downloads and the raw dump.
func (w Workspace) TableDir(tableName string) string {
	return filepath.Join(w.Root, constants.DataDirName, tableName)
}

// CSVFile is the staged CSV path of a table.
func (w Workspace) CSVFile(tableName string) string {
	return filepath.Join(w.Root, constants.CsvDirName, tableName+constants.StagedObjectExtension)
}

// Remove deletes the whole workspace.
func (w Workspace) Remove() error {
	return os.RemoveAll(w.Root)
}

func checkTableName(tableName string) error {
	if tableName == "" || tableName == "." || tableName == ".." || strings.ContainsAny(tableName, `/\`) {
		return errors.Errorf("invalid table name %q", tableName)
	}
	return nil
}

// removeArtifacts deletes the table directory tree and the staged CSV.
// Missing files are not an error; other failures are only logged.
func removeArtifacts(log logger.Logger, dir string, csvFile string) {
	if err := os.RemoveAll(dir); err != nil {
		log.Warn("unable to remove directory ", dir, ": ", err)
	}
	if err := os.Remove(csvFile); err != nil && !os.IsNotExist(err) {
		log.Warn("unable to remove file ", csvFile, ": ", err)
	}
}
