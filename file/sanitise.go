package file

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/constants"
)

var (
	nullMarker = []byte(constants.NullMarker)
	quote      = []byte(`"`)
)

// SanitiseLine strips every double quote and every null marker from b.
// Removal is repeated until neither remains, so a marker exposed by an earlier
// removal (e.g. `\\NN` or `\"N`) is also removed and SanitiseLine(SanitiseLine(b)) == SanitiseLine(b).
func SanitiseLine(b []byte) []byte {
	for bytes.Contains(b, quote) || bytes.Contains(b, nullMarker) {
		b = bytes.ReplaceAll(b, quote, nil)
		b = bytes.ReplaceAll(b, nullMarker, nil)
	}
	return b
}

// Sanitise streams r to w line by line applying SanitiseLine.
// Line endings are preserved. It returns the number of lines written.
func Sanitise(r io.Reader, w io.Writer) (lines int64, err error) {
	br := bufio.NewReaderSize(r, 1<<20)
	bw := bufio.NewWriterSize(w, 1<<20)
	for {
		line, readErr := br.ReadBytes('\n')
		if len(line) > 0 {
			if _, err = bw.Write(SanitiseLine(line)); err != nil {
				return lines, errors.Wrap(err, "error writing sanitised line")
			}
			lines++
		}
		if readErr == io.EOF {
			break
		} else if readErr != nil {
			return lines, errors.Wrap(readErr, "error reading line to sanitise")
		}
	}
	if err = bw.Flush(); err != nil {
		return lines, errors.Wrap(err, "error flushing sanitised output")
	}
	return lines, nil
}

// SanitiseFile sanitises the file at path in place.
// Output goes to a temp file in the same directory which then replaces the original.
func SanitiseFile(path string) (lines int64, err error) {
	src, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "error opening file %v to sanitise", path)
	}
	defer src.Close()
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".sanitise-*")
	if err != nil {
		return 0, errors.Wrapf(err, "error creating temp file to sanitise %v", path)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	if lines, err = Sanitise(src, tmp); err != nil {
		return lines, errors.Wrapf(err, "error sanitising %v", path)
	}
	if err = tmp.Close(); err != nil {
		return lines, errors.Wrapf(err, "error closing sanitised file for %v", path)
	}
	_ = src.Close()
	if err = os.Rename(tmp.Name(), path); err != nil {
		return lines, errors.Wrapf(err, "error replacing %v with sanitised copy", path)
	}
	return lines, nil
}
