// coords.go - right ascension and declination parsing.
//
// Catalog files in the wild store coordinates as decimal degrees, decimal
// hours (RA) or sexagesimal strings ("00:42:44.3", "+41 16 9"). All forms
// are normalized to decimal degrees here.
package catalog

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var sexagesimalSep = regexp.MustCompile(`[:\s]+`)

// parseRARaw decodes a raw JSON right ascension value to degrees [0, 360).
// Numeric values are degrees; sexagesimal strings are hours by convention.
// Hour-valued numbers belong in the ra_hours field, see parseRAHoursRaw.
// Returns nil when the value is absent or unparseable.
func parseRARaw(raw json.RawMessage) *float64 {
	value, str, ok := decodeCoord(raw)
	if !ok {
		return nil
	}
	if str != "" {
		hours, ok := parseSexagesimal(str)
		if !ok {
			return nil
		}
		deg := normalizeRA(hours * 15.0)
		return &deg
	}
	deg := normalizeRA(value)
	return &deg
}

// parseRAHoursRaw decodes a right ascension given in hours, numeric or
// sexagesimal, to degrees [0, 360).
func parseRAHoursRaw(raw json.RawMessage) *float64 {
	value, str, ok := decodeCoord(raw)
	if !ok {
		return nil
	}
	if str != "" {
		hours, ok := parseSexagesimal(str)
		if !ok {
			return nil
		}
		value = hours
	}
	deg := normalizeRA(value * 15.0)
	return &deg
}

// parseDecRaw decodes a raw JSON declination value to degrees [-90, 90].
// Returns nil when the value is absent, unparseable or out of range.
func parseDecRaw(raw json.RawMessage) *float64 {
	value, str, ok := decodeCoord(raw)
	if !ok {
		return nil
	}
	if str != "" {
		deg, ok := parseSexagesimal(str)
		if !ok {
			return nil
		}
		value = deg
	}
	if value < -90 || value > 90 {
		return nil
	}
	return &value
}

// decodeCoord unpacks a JSON number or string coordinate. The string return
// is non-empty only for string values that are not plain numbers.
func decodeCoord(raw json.RawMessage) (number float64, str string, ok bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, "", false
	}
	if err := json.Unmarshal(raw, &number); err == nil {
		return number, "", true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, "", false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, "", true
	}
	return 0, s, true
}

// parseSexagesimal converts "dd:mm:ss" or "dd mm ss" (optionally signed,
// minutes and seconds optional) to a decimal value.
func parseSexagesimal(text string) (float64, bool) {
	sign := 1.0
	if strings.HasPrefix(text, "-") {
		sign = -1.0
	}
	text = strings.TrimLeft(text, "+-")

	parts := sexagesimalSep.Split(strings.TrimSpace(text), -1)
	if len(parts) == 0 || len(parts) > 3 {
		return 0, false
	}

	var value float64
	divisor := 1.0
	for _, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, false
		}
		value += v / divisor
		divisor *= 60.0
	}
	return sign * value, true
}

// normalizeRA wraps a degree value into [0, 360).
func normalizeRA(deg float64) float64 {
	deg = deg - 360.0*float64(int(deg/360.0))
	if deg < 0 {
		deg += 360.0
	}
	return deg
}
