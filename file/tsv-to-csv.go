package file

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/logger"
)

// ColumnCountError reports a record whose field count differs from the schema.
type ColumnCountError struct {
	Line int
	Got  int
	Want int
}

func (e *ColumnCountError) Error() string {
	return fmt.Sprintf("column count mismatch on line %v: found %v fields but the schema has %v columns", e.Line, e.Got, e.Want)
}

// ConvertTSVToCSV streams the tab separated file srcFile into the comma separated file dstFile.
// The first line of srcFile is its header and is replaced by header, matched by position.
// Every record, including the source header, must have len(header) fields or a *ColumnCountError is returned.
// Fields are copied as text without any type conversion.
// On error dstFile is removed. The number of data rows written is returned.
func ConvertTSVToCSV(log logger.Logger, srcFile string, dstFile string, header []string) (rows int64, err error) {
	if len(header) == 0 {
		return 0, errors.Errorf("no header columns supplied for %v", srcFile)
	}
	src, err := os.Open(srcFile)
	if err != nil {
		return 0, errors.Wrapf(err, "error opening TSV file %v", srcFile)
	}
	defer src.Close()

	r := csv.NewReader(src)
	r.Comma = '\t'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1 // counts are checked below to report a ColumnCountError.
	r.ReuseRecord = true

	out, err := NewCSVFileOutput(log, dstFile, header)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			out.Abort()
		}
	}()

	sawHeader := false
	for {
		rec, readErr := r.Read()
		if readErr == io.EOF {
			break
		} else if readErr != nil {
			return out.RowCount(), errors.Wrapf(readErr, "error parsing TSV file %v", srcFile)
		}
		if len(rec) != len(header) {
			line, _ := r.FieldPos(0)
			return out.RowCount(), &ColumnCountError{Line: line, Got: len(rec), Want: len(header)}
		}
		if !sawHeader { // skip the source header now that its width is known to match.
			sawHeader = true
			continue
		}
		if err = out.Write(rec); err != nil {
			return out.RowCount(), err
		}
	}
	if err = out.Close(); err != nil {
		return out.RowCount(), err
	}
	if !sawHeader {
		log.Warn("TSV file ", srcFile, " is empty; wrote header only")
	}
	return out.RowCount(), nil
}
