package timeutil

import (
	"os"
	"strings"
	"time"
)

const defaultZoneName = "Asia/Kolkata"

// ZoneName is the IANA name day boundaries are computed in. The database
// session uses the same name so date_trunc agrees with Go.
var ZoneName = zoneName(os.Getenv("APP_TIMEZONE"))

var Local = loadZone(ZoneName)

func zoneName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return defaultZoneName
	}
	if _, err := time.LoadLocation(name); err != nil {
		return defaultZoneName
	}
	return name
}

// loadZone falls back to a fixed IST offset when tzdata is missing.
func loadZone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("IST", 5*60*60+30*60)
	}
	return loc
}

func NowLocal() time.Time {
	return time.Now().In(Local)
}

func StartOfDay(t time.Time) time.Time {
	l := t.In(Local)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, Local)
}

// MondayOf returns midnight of the Monday that starts t's week.
func MondayOf(t time.Time) time.Time {
	d := StartOfDay(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func DateString(t time.Time) string {
	return t.In(Local).Format("2006-01-02")
}

func ParseLocal(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}

	var lastErr error
	for _, layout := range layouts {
		if layout == time.RFC3339 {
			t, err := time.Parse(layout, s)
			if err == nil {
				return t.In(Local), nil
			}
			lastErr = err
			continue
		}
		t, err := time.ParseInLocation(layout, s, Local)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
