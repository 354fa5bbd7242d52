package patient

import "time"

// SentinelBirthDate is substituted when a birth date cannot be parsed. It is
// not an error path: the pipeline proceeds with this value. Callers that need
// to know the substitution happened must check the ok flag from
// FormatBirthDate, because the sentinel is indistinguishable from a real
// 1900-01-01 birth date once it is in the payload.
const SentinelBirthDate = "01.01.1900"

const (
	isoLayout     = "2006-01-02"
	displayLayout = "02.01.2006"
)

// FormatBirthDate converts a strict YYYY-MM-DD calendar date to DD.MM.YYYY.
// There is no timezone interpretation; the input is a calendar date, not an
// instant. Malformed input, impossible calendar dates, and empty strings all
// yield the sentinel with ok=false.
func FormatBirthDate(isoDate string) (formatted string, ok bool) {
	t, err := time.Parse(isoLayout, isoDate)
	if err != nil {
		return SentinelBirthDate, false
	}
	return t.Format(displayLayout), true
}
