// Package acqdate extracts acquisition dates from Sentinel-1 product names
// and splits acquisitions into before/after epochs around a cutoff date.
package acqdate

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Patterns tried in order of specificity.
var (
	// 20230712T052311 as in S1 product identifiers
	reStamp = regexp.MustCompile(`(20\d{2})([01]\d)([0-3]\d)T`)
	// 2023-07-12, 2023_07_12 or 20230712
	reDate = regexp.MustCompile(`(20\d{2})[-_]?([01]\d)[-_]?([0-3]\d)`)
)

// DateLayout is the layout of cutoff dates on the command line and in config.
const DateLayout = "2006-01-02"

// Parse extracts the acquisition date from a file name. Only the base name
// is inspected. The result is midnight UTC of the calendar date.
func Parse(name string) (time.Time, bool) {
	base := filepath.Base(name)
	for _, re := range []*regexp.Regexp{reStamp, reDate} {
		for _, m := range re.FindAllStringSubmatch(base, -1) {
			if d, ok := build(m[1], m[2], m[3]); ok {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

// ParseMetadata accepts the value of an ACQUISITION_DATE style metadata
// item, either RFC 3339 or a bare date.
func ParseMetadata(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return Day(t), true
	}
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ParseCutoff parses a YYYY-MM-DD cutoff date.
func ParseCutoff(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cutoff date %q (want %s): %w", s, DateLayout, err)
	}
	return t, nil
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func build(ys, ms, ds string) (time.Time, bool) {
	y, _ := strconv.Atoi(ys)
	m, _ := strconv.Atoi(ms)
	d, _ := strconv.Atoi(ds)
	if m < 1 || m > 12 || d < 1 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// reject dates time.Date normalised (e.g. Feb 31)
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, false
	}
	return t, true
}

// Epoch names one side of the cutoff.
type Epoch string

const (
	Before Epoch = "before"
	After  Epoch = "after"
)

// Acquisition is a dated input file.
type Acquisition struct {
	Path string
	Date time.Time
}

// EpochOf classifies a date: strictly earlier than the cutoff is Before,
// the cutoff day itself and later is After. Both are compared as UTC
// calendar dates.
func EpochOf(date, cutoff time.Time) Epoch {
	if Day(date).Before(Day(cutoff)) {
		return Before
	}
	return After
}

// Partition splits acquisitions around cutoff. Each side is sorted by date
// then path so downstream averaging is deterministic.
func Partition(items []Acquisition, cutoff time.Time) (before, after []Acquisition) {
	for _, a := range items {
		if EpochOf(a.Date, cutoff) == Before {
			before = append(before, a)
		} else {
			after = append(after, a)
		}
	}
	sortAcq(before)
	sortAcq(after)
	return before, after
}

func sortAcq(a []Acquisition) {
	sort.Slice(a, func(i, j int) bool {
		if !a[i].Date.Equal(a[j].Date) {
			return a[i].Date.Before(a[j].Date)
		}
		return a[i].Path < a[j].Path
	})
}
