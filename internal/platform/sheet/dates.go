package sheet

import (
	"regexp"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

// serialRe matches five-digit Excel day serials (1927-05-18 .. 2173-10-14),
// optionally with a time fraction. Shorter integers are too ambiguous to
// treat as dates.
var serialRe = regexp.MustCompile(`^\d{5}(\.\d+)?$`)

// ParseSerialDate converts an Excel date serial read from a raw cell value.
func ParseSerialDate(s string) (time.Time, bool) {
	if !serialRe.MatchString(s) {
		return time.Time{}, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
