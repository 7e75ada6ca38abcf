package readers

import (
	"fmt"
	"strings"
	"time"
)

// zoneOffsets maps time zone abbreviations found in instrument timestamps
// to fixed UTC offsets.
var zoneOffsets = map[string]string{
	"UTC":  "+0000",
	"GMT":  "+0000",
	"WET":  "+0000",
	"WEST": "+0100",
	"BST":  "+0100",
	"IST":  "+0100",
	"CET":  "+0100",
	"CEST": "+0200",
	"EET":  "+0200",
	"EEST": "+0300",
	"NST":  "-0330",
	"NDT":  "-0230",
	"AST":  "-0400",
	"ADT":  "-0300",
	"EST":  "-0500",
	"EDT":  "-0400",
	"CST":  "-0600",
	"CDT":  "-0500",
	"MST":  "-0700",
	"MDT":  "-0600",
	"PST":  "-0800",
	"PDT":  "-0700",
	"AKST": "-0900",
	"AKDT": "-0800",
	"HST":  "-1000",
}

const (
	naiveLayout  = "Mon Jan 2 15:04:05 2006"
	offsetLayout = "Mon Jan 2 15:04:05 -0700 2006"
)

// ParseInstrumentTime parses "<weekday> <month> <day> <HH:MM:SS> [<tz>] <year>"
// into UTC. A missing zone means UTC; a zone may be a known abbreviation or a
// numeric offset such as +0100.
func ParseInstrumentTime(s string) (time.Time, error) {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(s), "Date:"))
	switch len(fields) {
	case 5:
		t, err := time.Parse(naiveLayout, strings.Join(fields, " "))
		if err != nil {
			return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
		}
		return t.UTC(), nil
	case 6:
		zone := fields[4]
		if offset, ok := zoneOffsets[strings.ToUpper(zone)]; ok {
			fields[4] = offset
		}
		t, err := time.Parse(offsetLayout, strings.Join(fields, " "))
		if err != nil {
			return time.Time{}, fmt.Errorf("parse time %q: unrecognised zone %q, "+
				"try replacing it with a UTC offset such as +0100: %w", s, zone, err)
		}
		return t.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("parse time %q: expected \"Mon Jan 2 15:04:05 [zone] 2006\"", s)
	}
}
