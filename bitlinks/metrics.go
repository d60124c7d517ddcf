package bitlinks

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sundayezeilo/bitly/errx"
)

// TimeUnit is the bucket size of click and referrer metrics.
type TimeUnit string

const (
	Minute TimeUnit = "minute"
	Hour   TimeUnit = "hour"
	Day    TimeUnit = "day"
	Week   TimeUnit = "week"
	Month  TimeUnit = "month"
)

// TimeUnits lists the units accepted by the API, smallest first.
var TimeUnits = []TimeUnit{Minute, Hour, Day, Week, Month}

const (
	DefaultTimeUnit = Day
	// DefaultUnits of -1 asks for every available unit.
	DefaultUnits = -1
	DefaultSize  = 50

	// UnitReferenceLayout is ISO-8601 with a basic (+hhmm) offset.
	UnitReferenceLayout = "2006-01-02T15:04:05-0700"
)

// Valid reports whether u is one of TimeUnits.
func (u TimeUnit) Valid() bool {
	return slices.Contains(TimeUnits, u)
}

type metricsQuery struct {
	unit  TimeUnit
	units int
	size  int
	until *time.Time
}

// MetricsOption adjusts a metrics query.
type MetricsOption func(*metricsQuery)

func WithUnit(u TimeUnit) MetricsOption {
	return func(q *metricsQuery) { q.unit = u }
}

// WithUnits sets how many units to return; -1 means all.
func WithUnits(n int) MetricsOption {
	return func(q *metricsQuery) { q.units = n }
}

// WithSize sets the page size.
func WithSize(n int) MetricsOption {
	return func(q *metricsQuery) { q.size = n }
}

// WithUntil anchors the window at t (sent as unit_reference).
func WithUntil(t time.Time) MetricsOption {
	return func(q *metricsQuery) { q.until = &t }
}

// MetricsParams builds the query shared by all metrics endpoints. unit, units
// and size are always present; unit_reference only when WithUntil was given.
// An unknown unit fails with errx.InvalidTimeUnit.
func MetricsParams(opts ...MetricsOption) (url.Values, error) {
	const op = "bitlinks.MetricsParams"

	q := metricsQuery{
		unit:  DefaultTimeUnit,
		units: DefaultUnits,
		size:  DefaultSize,
	}
	for _, opt := range opts {
		opt(&q)
	}

	if !q.unit.Valid() {
		return nil, errx.E(op, errx.InvalidTimeUnit, fmt.Errorf("unit %s is not one of: %s", q.unit, joinUnits()))
	}

	values := url.Values{}
	values.Set("unit", string(q.unit))
	values.Set("units", strconv.Itoa(q.units))
	values.Set("size", strconv.Itoa(q.size))
	if q.until != nil {
		values.Set("unit_reference", q.until.Format(UnitReferenceLayout))
	}
	return values, nil
}

func joinUnits() string {
	names := make([]string, len(TimeUnits))
	for i, u := range TimeUnits {
		names[i] = string(u)
	}
	return strings.Join(names, ", ")
}
