package orderfeed

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"catalogdesk/internal/model"
)

var (
	// DD.MM.YYYY as written by the ERP export; single-digit day/month occur in hand-edited files.
	germanDate = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`)
	// YYYY-MM-DD, optionally followed by a time part that is ignored.
	isoDate = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})(?:[T ].*)?$`)
)

// ParseDate normalizes a feed date. Empty, malformed and impossible dates
// (31.02.2024) all yield ok=false.
func ParseDate(s string) (model.Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.Date{}, false
	}
	var y, m, d string
	if g := germanDate.FindStringSubmatch(s); g != nil {
		d, m, y = g[1], g[2], g[3]
	} else if g := isoDate.FindStringSubmatch(s); g != nil {
		y, m, d = g[1], g[2], g[3]
	} else {
		return model.Date{}, false
	}
	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(m)
	day, _ := strconv.Atoi(d)
	if year < 1 || month < 1 || month > 12 || day < 1 {
		return model.Date{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return model.Date{}, false
	}
	return model.DateOf(t), true
}

// parseOptionalDate is ParseDate in the shape the order struct wants.
func parseOptionalDate(s string) *model.Date {
	d, ok := ParseDate(s)
	if !ok {
		return nil
	}
	return &d
}
