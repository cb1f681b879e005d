package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRARaw(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    float64
		wantNil bool
	}{
		{"decimal degrees", `10.684`, 10.684, false},
		{"low degree value stays degrees", `5.588`, 5.588, false},
		{"24 degrees not rescaled", `24`, 24, false},
		{"decimal degrees above 24", `83.82`, 83.82, false},
		{"sexagesimal hours", `"00:42:44.3"`, 10.6846, false},
		{"sexagesimal with spaces", `"5 35 17"`, 83.8208, false},
		{"numeric string", `"140.5"`, 140.5, false},
		{"wraps negative", `-10`, 350, false},
		{"wraps above 360", `370`, 10, false},
		{"null", `null`, 0, true},
		{"garbage string", `"north"`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := parseRARaw(json.RawMessage(tt.raw))
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, tt.want, *got, 0.01)
		})
	}
}

func TestParseRAHoursRaw(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    float64
		wantNil bool
	}{
		{"decimal hours", `0.712`, 10.68, false},
		{"m42 hours", `5.588`, 83.82, false},
		{"sexagesimal hours", `"00:42:44.3"`, 10.6846, false},
		{"wraps past 24h", `25`, 15, false},
		{"null", `null`, 0, true},
		{"garbage string", `"noon"`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := parseRAHoursRaw(json.RawMessage(tt.raw))
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, tt.want, *got, 0.01)
		})
	}
}

func TestParseDecRaw(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    float64
		wantNil bool
	}{
		{"decimal degrees", `41.269`, 41.269, false},
		{"negative", `-5.391`, -5.391, false},
		{"sexagesimal signed", `"+41 16 9"`, 41.2692, false},
		{"sexagesimal negative", `"-05:23:28"`, -5.3911, false},
		{"pole", `90`, 90, false},
		{"out of range high", `91`, 0, true},
		{"out of range low", `-90.5`, 0, true},
		{"null", `null`, 0, true},
		{"empty string", `""`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := parseDecRaw(json.RawMessage(tt.raw))
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, tt.want, *got, 0.01)
		})
	}
}

func TestParseSexagesimal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"12:30:00", 12.5, true},
		{"12 30", 12.5, true},
		{"-12:30:00", -12.5, true},
		{"+5", 5, true},
		{"1:2:3:4", 0, false},
		{"abc", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := parseSexagesimal(tt.in)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.InDelta(t, tt.want, got, 0.0001)
			}
		})
	}
}
