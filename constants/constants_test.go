package constants

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestTimeFormat(t *testing.T) {
	// Check that the global regexp can match constant TimeFormatYearSeconds.
	re := regexp.MustCompile(TimeFormatYearSecondsRegex)
	if !re.MatchString(TimeFormatYearSeconds) {
		t.Fatal("Mismatch between TimeFormatYearSeconds and regexp in constant TimeFormatYearSecondsRegex.")
	}
	if !re.MatchString(time.Now().Format(TimeFormatYearSeconds)) {
		t.Fatal("Formatted time does not match TimeFormatYearSecondsRegex.")
	}
}

func TestLogTableIsNotReserved(t *testing.T) {
	// The log table must never be caught by the catalog filter or it would be skipped twice.
	if strings.Contains(LogTableNameDefault, ReservedTableSubstring) {
		t.Fatal("default log table name contains the reserved catalog substring")
	}
}

func TestExitCodesAreDistinct(t *testing.T) {
	codes := map[int]bool{ExitCodeOK: true, ExitCodeTableFailures: true, ExitCodeFatal: true}
	if len(codes) != 3 {
		t.Fatal("exit codes are not distinct")
	}
}
