package file

import (
	"bufio"
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/logger"
)

// CSVFileOutput writes a single comma separated file that starts with a header record.
type CSVFileOutput struct {
	log       logger.Logger
	fileName  string
	file      *os.File
	fWriter   *bufio.Writer
	csvWriter *csv.Writer
	rowCount  int64
	closed    bool
}

// NewCSVFileOutput creates fileName, including any missing parent directories, and writes the header record.
// Any existing file of the same name is truncated.
func NewCSVFileOutput(log logger.Logger, fileName string, header []string) (*CSVFileOutput, error) {
	if err := os.MkdirAll(filepath.Dir(fileName), 0o755); err != nil {
		return nil, errors.Wrapf(err, "error creating directory for CSV file %v", fileName)
	}
	f, err := os.Create(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "error creating CSV file %v", fileName)
	}
	o := &CSVFileOutput{log: log, fileName: fileName, file: f}
	o.fWriter = bufio.NewWriterSize(f, 1<<20)
	o.csvWriter = csv.NewWriter(o.fWriter)
	if err := o.csvWriter.Write(header); err != nil {
		o.Abort()
		return nil, errors.Wrapf(err, "error writing CSV header to %v", fileName)
	}
	log.Debug("created CSV file ", fileName)
	return o, nil
}

// Write saves one data record.
func (o *CSVFileOutput) Write(record []string) error {
	if err := o.csvWriter.Write(record); err != nil {
		return errors.Wrapf(err, "error writing CSV record to %v", o.fileName)
	}
	o.rowCount++
	return nil
}

// RowCount returns the number of data records written, excluding the header.
func (o *CSVFileOutput) RowCount() int64 {
	return o.rowCount
}

// FileName returns the path of the output file.
func (o *CSVFileOutput) FileName() string {
	return o.fileName
}

// Close flushes all buffers and closes the file.
func (o *CSVFileOutput) Close() error {
	if o.closed {
		return nil
	}
	o.closed = true
	o.csvWriter.Flush()
	if err := o.csvWriter.Error(); err != nil {
		_ = o.file.Close()
		return errors.Wrapf(err, "error flushing CSV file %v", o.fileName)
	}
	if err := o.fWriter.Flush(); err != nil {
		_ = o.file.Close()
		return errors.Wrapf(err, "error flushing CSV file %v", o.fileName)
	}
	if err := o.file.Close(); err != nil {
		return errors.Wrapf(err, "error closing CSV file %v", o.fileName)
	}
	o.log.Debug("closed CSV file ", o.fileName, " with ", o.rowCount, " rows")
	return nil
}

// Abort closes and removes the output file.
func (o *CSVFileOutput) Abort() {
	if !o.closed {
		o.closed = true
		_ = o.file.Close()
	}
	if err := os.Remove(o.fileName); err != nil && !os.IsNotExist(err) {
		o.log.Warn("unable to remove CSV file ", o.fileName, ": ", err)
	}
}
