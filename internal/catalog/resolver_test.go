package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIndex(t *testing.T) *Index {
	t.Helper()
	return NewIndex([]*Object{
		{ID: "M31", Catalog: Messier, Name: "Andromeda Galaxy"},
		{ID: "M33", Catalog: Messier, Name: "Triangulum Galaxy"},
		{ID: "M101", Catalog: Messier, Name: "Pinwheel Galaxy"},
		{ID: "NGC7000", Catalog: NGC, Name: "North America Nebula"},
		{ID: "NGC70", Catalog: NGC},
		{ID: "IC434", Catalog: IC},
		{ID: "C14", Catalog: Caldwell, Name: "Double Cluster"},
		{ID: "MOON", Catalog: SolarSystem, Name: "Moon"},
		{ID: "JUPITER", Catalog: SolarSystem, Name: "Jupiter"},
	})
}

func TestExtractObjectIDs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		stem string
		want []string
	}{
		{"simple lower case", "m31_final", []string{"M31"}},
		{"upper case", "M31", []string{"M31"}},
		{"ngc with space", "NGC 7000 stack", []string{"NGC7000"}},
		{"ngc with underscore", "ngc_7000_test", []string{"NGC7000"}},
		{"ngc with dash", "ngc-7000", []string{"NGC7000"}},
		{"zero padding stripped", "NGC 0070", []string{"NGC70"}},
		{"ic catalog", "ic434_horsehead", []string{"IC434"}},
		{"caldwell", "C14_double_cluster", []string{"C14"}},
		{"multiple ids leftmost first", "m31_vs_ngc7000", []string{"M31", "NGC7000"}},
		{"glued to preceding letter rejected", "music12", nil},
		{"glued to preceding digit rejected", "4m31", nil},
		{"six digit run rejected", "ngc123456", nil},
		{"five digits accepted", "ngc12345", []string{"NGC12345"}},
		{"no id at all", "flat_frame_2024", nil},
		{"id mid-filename", "final_m101_crop", []string{"M101"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExtractObjectIDs(tt.stem))
		})
	}
}

func TestResolverResolve(t *testing.T) {
	t.Parallel()

	r := NewResolver(testIndex(t), nil)

	tests := []struct {
		name   string
		path   string
		wantID string
		wantOK bool
	}{
		{"basename only", "/library/messier/m31_final.tif", "M31", true},
		{"case insensitive", "NGC7000.fits", "NGC7000", true},
		{"separator variants", "ngc 0070 v2.png", "NGC70", true},
		{"extension ignored", "ngc7000_test.tif", "NGC7000", true},
		{"leftmost member wins", "m31_and_m33_mosaic.tif", "M31", true},
		{"non-member skipped for later member", "m99999_actually_ngc7000.tif", "NGC7000", true},
		{"not in index", "m87.tif", "", false},
		{"directory part never matches", "/m31/flat_frame.tif", "", false},
		{"solar system by name", "jupiter_2024-08-12.png", "JUPITER", true},
		{"solar system name is whole word", "jupiterish.png", "", false},
		{"unresolvable", "darks_600s.tif", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			id, ok := r.Resolve(tt.path)
			require.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestPickCatalogPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		ids    []string
		want   string
		wantOK bool
	}{
		{"messier beats ngc", []string{"NGC7000", "M31"}, "M", true},
		{"ngc beats ic", []string{"IC434", "NGC70"}, "NGC", true},
		{"ic beats caldwell", []string{"C14", "IC434"}, "IC", true},
		{"caldwell alone", []string{"C14"}, "C", true},
		{"empty", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := PickCatalogPrefix(tt.ids)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCatalogForPrefix(t *testing.T) {
	t.Parallel()

	cat, ok := CatalogForPrefix("NGC")
	require.True(t, ok)
	assert.Equal(t, NGC, cat)

	_, ok = CatalogForPrefix("X")
	assert.False(t, ok)
}
