package statement

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

var spanishMonths = map[string]time.Month{
	"ENE": time.January,
	"FEB": time.February,
	"MAR": time.March,
	"ABR": time.April,
	"MAY": time.May,
	"JUN": time.June,
	"JUL": time.July,
	"AGO": time.August,
	"SEP": time.September,
	"OCT": time.October,
	"NOV": time.November,
	"DIC": time.December,
}

// ResolveDate turns a DD/MMM token into a full date using the statement
// month. Statements are issued at month end, so a transaction month later
// than the statement month belongs to the previous year (DIC rows on an
// ENE statement).
func ResolveDate(token string, statementMonth civil.Date) (civil.Date, error) {
	parts := strings.Split(strings.TrimSpace(token), "/")
	if len(parts) != 2 {
		return civil.Date{}, fmt.Errorf("ResolveDate: malformed date token %q", token)
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil || day < 1 || day > 31 {
		return civil.Date{}, fmt.Errorf("ResolveDate: invalid day in token %q", token)
	}

	month, ok := spanishMonths[strings.ToUpper(parts[1])]
	if !ok {
		return civil.Date{}, fmt.Errorf("ResolveDate: unknown month abbreviation %q", parts[1])
	}

	year := statementMonth.Year
	if month > statementMonth.Month {
		year--
	}

	d := civil.Date{Year: year, Month: month, Day: day}
	if !d.IsValid() {
		return civil.Date{}, fmt.Errorf("ResolveDate: %q is not a valid calendar date", token)
	}

	return d, nil
}

// WithinStatementWindow reports whether a resolved transaction date falls
// inside the two months leading up to (and including) the statement month.
// Dates outside the window indicate a resolution mistake, not bad data.
func WithinStatementWindow(d, statementMonth civil.Date) bool {
	end := civil.Date{Year: statementMonth.Year, Month: statementMonth.Month, Day: 1}.AddDays(62)
	start := civil.Date{Year: statementMonth.Year, Month: statementMonth.Month, Day: 1}.AddDays(-62)
	return !d.Before(start) && !d.After(end)
}
