package services

import (
	"time"

	"gorm.io/gorm"

	"contactos/internal/admin"
	"contactos/internal/domain"
)

// DateRange is one of the creation date windows offered by FechaCreacionFilter.
type DateRange int

const (
	DateRangeToday DateRange = iota + 1
	DateRangeYesterday
	DateRangeLast7Days
	DateRangeThisMonth
	DateRangeLastMonth
)

var dateRanges = []struct {
	r     DateRange
	key   string
	label string
}{
	{DateRangeToday, "hoy", "Today"},
	{DateRangeYesterday, "ayer", "Yesterday"},
	{DateRangeLast7Days, "ultimos_7_dias", "Last 7 days"},
	{DateRangeThisMonth, "este_mes", "This month"},
	{DateRangeLastMonth, "ultimo_mes", "Last month"},
}

// ParseDateRange maps a query parameter value to its DateRange.
func ParseDateRange(key string) (DateRange, bool) {
	for _, d := range dateRanges {
		if d.key == key {
			return d.r, true
		}
	}
	return 0, false
}

// DateRangeKeys lists the accepted parameter values in display order.
func DateRangeKeys() []string {
	keys := make([]string, len(dateRanges))
	for i, d := range dateRanges {
		keys[i] = d.key
	}
	return keys
}

// Key returns the query parameter value of d.
func (d DateRange) Key() string {
	for _, r := range dateRanges {
		if r.r == d {
			return r.key
		}
	}
	return ""
}

// Bounds returns the half-open window [from, to) of d relative to the
// calendar day of now, in now's location. A zero to means no upper bound.
func (d DateRange) Bounds(now time.Time) (from, to time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	switch d {
	case DateRangeToday:
		return today, today.AddDate(0, 0, 1)
	case DateRangeYesterday:
		return today.AddDate(0, 0, -1), today
	case DateRangeLast7Days:
		return today.AddDate(0, 0, -7), time.Time{}
	case DateRangeThisMonth:
		return firstOfMonth, firstOfMonth.AddDate(0, 1, 0)
	case DateRangeLastMonth:
		month, year := now.Month()-1, now.Year()
		if now.Month() == time.January {
			month, year = time.December, now.Year()-1
		}
		return time.Date(year, month, 1, 0, 0, 0, 0, now.Location()), firstOfMonth
	}
	return time.Time{}, time.Time{}
}

// Contains reports whether t falls inside d's window evaluated at now.
func (d DateRange) Contains(t, now time.Time) bool {
	from, to := d.Bounds(now)
	if t.Before(from) {
		return false
	}
	return to.IsZero() || t.Before(to)
}

// FechaCreacionFilter narrows contacts by creation date.
type FechaCreacionFilter struct {
	loc *time.Location
	now func() time.Time
}

var _ admin.ListFilter = (*FechaCreacionFilter)(nil)

// NewFechaCreacionFilter creates the filter; "today" is now() in loc.
func NewFechaCreacionFilter(loc *time.Location, now func() time.Time) *FechaCreacionFilter {
	if loc == nil {
		loc = time.UTC
	}
	return &FechaCreacionFilter{loc: loc, now: now}
}

func (f *FechaCreacionFilter) Title() string { return "Creation Date" }

func (f *FechaCreacionFilter) ParameterName() string { return domain.ContactColumnCreationDate }

func (f *FechaCreacionFilter) Lookups() []admin.Lookup {
	lookups := make([]admin.Lookup, len(dateRanges))
	for i, d := range dateRanges {
		lookups[i] = admin.Lookup{Value: d.key, Label: d.label}
	}
	return lookups
}

// Queryset restricts db to the selected window. Absent or unknown values
// leave db untouched.
func (f *FechaCreacionFilter) Queryset(db *gorm.DB, value string) *gorm.DB {
	d, ok := ParseDateRange(value)
	if !ok {
		return db
	}
	from, to := d.Bounds(f.now().In(f.loc))
	db = db.Where(domain.ContactColumnCreationDate+" >= ?", from.UTC())
	if !to.IsZero() {
		db = db.Where(domain.ContactColumnCreationDate+" < ?", to.UTC())
	}
	return db
}
