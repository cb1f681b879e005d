// Package visibility estimates when deep-sky objects are best observed from
// a configured site.
//
// The month heuristic samples each object's altitude at one fixed instant
// per month and keeps the months where the object climbs above a minimum
// altitude. It deliberately ignores atmospheric refraction, precession and
// twilight; it is a capture-planning hint, not an ephemeris.
package visibility

import (
	"math"
	"strings"
	"time"

	"github.com/tphakala/deepsky-go/internal/catalog"
)

// Status is the derived capture state of a catalog object.
type Status string

const (
	StatusCaptured  Status = "captured"
	StatusMissing   Status = "missing"
	StatusSuggested Status = "suggested"
)

// Observer is the observing site. Read-only input supplied by configuration.
type Observer struct {
	Latitude  float64 // degrees, positive north
	Longitude float64 // degrees, positive east
	Elevation float64 // meters
}

// sampleYear anchors the monthly altitude samples. The sidereal position of
// a given calendar date shifts by well under a degree per year, so a fixed
// year keeps the month sets stable across program runs.
const sampleYear = 2025

// MonthSet is a set of calendar months encoded as a bitmask, bit 0 = January.
type MonthSet uint16

// Contains reports whether the month is in the set.
func (s MonthSet) Contains(m time.Month) bool {
	return s&(1<<(int(m)-1)) != 0
}

// Add returns the set with the month added.
func (s MonthSet) Add(m time.Month) MonthSet {
	return s | 1<<(int(m)-1)
}

// Empty reports whether no month qualifies.
func (s MonthSet) Empty() bool { return s == 0 }

// Months returns the members in calendar order.
func (s MonthSet) Months() []time.Month {
	var months []time.Month
	for m := time.January; m <= time.December; m++ {
		if s.Contains(m) {
			months = append(months, m)
		}
	}
	return months
}

// String renders the set in the compact catalog form, e.g. "SepOctNov".
func (s MonthSet) String() string {
	var b strings.Builder
	for _, m := range s.Months() {
		b.WriteString(m.String()[:3])
	}
	return b.String()
}

// Shift returns the set with every month moved by the given offset, wrapping
// around the year.
func (s MonthSet) Shift(offset int) MonthSet {
	var out MonthSet
	for _, m := range s.Months() {
		shifted := time.Month((int(m)-1+offset)%12 + 1)
		if shifted < time.January {
			shifted += 12
		}
		out = out.Add(shifted)
	}
	return out
}

// ParseMonths parses the compact catalog form ("SepOctNov") into a MonthSet.
// Unrecognized three-letter chunks are ignored.
func ParseMonths(text string) MonthSet {
	var out MonthSet
	for i := 0; i+3 <= len(text); i += 3 {
		chunk := text[i : i+3]
		for m := time.January; m <= time.December; m++ {
			if strings.EqualFold(chunk, m.String()[:3]) {
				out = out.Add(m)
				break
			}
		}
	}
	return out
}

// Engine computes best-visibility months for a fixed observer.
// A nil observer makes every computation neutral: no months, no suggestions.
type Engine struct {
	Observer    *Observer
	MinAltitude float64 // degrees; a month qualifies when the sample altitude reaches this
}

// NewEngine returns an Engine. minAltitude at or below zero selects the
// default threshold of 25 degrees.
func NewEngine(observer *Observer, minAltitude float64) *Engine {
	if minAltitude <= 0 {
		minAltitude = 25.0
	}
	return &Engine{Observer: observer, MinAltitude: minAltitude}
}

// BestMonths returns the months in which the object at the given equatorial
// coordinates (degrees) clears MinAltitude at the monthly sample: the 15th
// of each month at 00:00 UTC. Pure function of its inputs; identical inputs
// always yield identical sets. Without an observer the set is empty.
func (e *Engine) BestMonths(raDeg, decDeg float64) MonthSet {
	if e.Observer == nil {
		return 0
	}

	var out MonthSet
	raHours := raDeg / 15.0
	for m := time.January; m <= time.December; m++ {
		date := time.Date(sampleYear, m, 15, 0, 0, 0, 0, time.UTC)
		lst := localSiderealTime(date, e.Observer.Longitude)
		ha := hourAngleDeg(lst, raHours)
		alt := altitudeDeg(e.Observer.Latitude, decDeg, ha)
		if alt >= e.MinAltitude {
			out = out.Add(m)
		}
	}
	return out
}

// AdjustCatalogMonths adapts a catalog-provided best-month override to the
// observer's hemisphere: southern observers see the sky six months out of
// phase with the northern-centric catalog data.
func (e *Engine) AdjustCatalogMonths(months MonthSet) MonthSet {
	if e.Observer == nil || e.Observer.Latitude >= 0 {
		return months
	}
	return months.Shift(6)
}

// BestMonthsFor resolves the best-visibility months of a catalog object.
// A catalog-supplied month override takes precedence over computed months;
// objects without coordinates get an empty set.
func (e *Engine) BestMonthsFor(obj *catalog.Object) MonthSet {
	if obj == nil {
		return 0
	}
	if obj.BestMonths != "" {
		return e.AdjustCatalogMonths(ParseMonths(obj.BestMonths))
	}
	if obj.HasCoordinates() {
		return e.BestMonths(*obj.RADeg, *obj.DecDeg)
	}
	return 0
}

// StatusOf composes scan results with the visibility heuristic. Captured
// wins outright; a missing object is suggested when the current month falls
// inside its best-visibility window.
func (e *Engine) StatusOf(captured bool, bestMonths MonthSet, now time.Time) Status {
	if captured {
		return StatusCaptured
	}
	if e.Observer != nil && bestMonths.Contains(now.Month()) {
		return StatusSuggested
	}
	return StatusMissing
}

// localSiderealTime returns the local sidereal time in hours for the given
// instant and longitude, using the standard GMST polynomial.
func localSiderealTime(date time.Time, longitudeDeg float64) float64 {
	jd := julianDate(date.UTC())
	t := (jd - 2451545.0) / 36525.0
	gmst := 280.46061837 + 360.98564736629*(jd-2451545.0) + 0.000387933*t*t - t*t*t/38710000.0
	gmst = math.Mod(gmst, 360.0)
	if gmst < 0 {
		gmst += 360.0
	}
	lst := math.Mod(gmst+longitudeDeg, 360.0)
	if lst < 0 {
		lst += 360.0
	}
	return lst / 15.0
}

// julianDate converts a UTC instant to a Julian date.
func julianDate(date time.Time) float64 {
	year := date.Year()
	month := int(date.Month())
	day := float64(date.Day()) + (float64(date.Hour())+float64(date.Minute())/60.0)/24.0
	if month <= 2 {
		year--
		month += 12
	}
	a := math.Floor(float64(year) / 100.0)
	b := 2 - a + math.Floor(a/4.0)
	return math.Floor(365.25*float64(year+4716)) + math.Floor(30.6001*float64(month+1)) + day + b - 1524.5
}

// hourAngleDeg returns the hour angle in degrees normalized to [-180, 180).
func hourAngleDeg(lstHours, raHours float64) float64 {
	ha := (lstHours - raHours) * 15.0
	ha = math.Mod(ha+180.0, 360.0)
	if ha < 0 {
		ha += 360.0
	}
	return ha - 180.0
}

// altitudeDeg returns the altitude of a body above the horizon via the
// standard spherical-astronomy altitude formula.
func altitudeDeg(latDeg, decDeg, haDeg float64) float64 {
	latRad := latDeg * math.Pi / 180.0
	decRad := decDeg * math.Pi / 180.0
	haRad := haDeg * math.Pi / 180.0
	sinAlt := math.Sin(latRad)*math.Sin(decRad) + math.Cos(latRad)*math.Cos(decRad)*math.Cos(haRad)
	return math.Asin(sinAlt) * 180.0 / math.Pi
}
