package library

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/deepsky-go/internal/catalog"
	"github.com/tphakala/deepsky-go/internal/conf"
	"github.com/tphakala/deepsky-go/internal/errors"
	"github.com/tphakala/deepsky-go/internal/scanner"
	"github.com/tphakala/deepsky-go/internal/visibility"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestLibrary builds a library over a throwaway filesystem tree: one
// Messier catalog, one catalog image folder and a master folder.
func newTestLibrary(t *testing.T) (*Library, *conf.Settings) {
	t.Helper()

	dir := t.TempDir()
	messierDir := filepath.Join(dir, "messier")
	masterDir := filepath.Join(dir, "master")
	require.NoError(t, os.MkdirAll(messierDir, 0o755))
	require.NoError(t, os.MkdirAll(masterDir, 0o755))

	catalogFile := filepath.Join(dir, "messier_metadata.json")
	content := `[
		{"id": "M31", "name": "Andromeda Galaxy", "ra": 10.684, "dec": 41.269},
		{"id": "M42", "name": "Orion Nebula", "ra": 83.82, "dec": -5.39}
	]`
	require.NoError(t, os.WriteFile(catalogFile, []byte(content), 0o644))

	settings := &conf.Settings{
		Library: conf.LibrarySettings{
			Catalogs: []conf.CatalogConfig{
				{Name: "Messier", MetadataFile: catalogFile, ImageDirs: []string{messierDir}},
			},
			MasterDir:  masterDir,
			ArchiveDir: filepath.Join(dir, "archive"),
			Extensions: []string{".tif"},
		},
		Observer:   conf.ObserverSettings{Latitude: 40.7, Longitude: -74.0},
		Visibility: conf.VisibilitySettings{MonthAltitude: 25},
	}

	lib, err := New(settings, discardLogger())
	require.NoError(t, err)
	return lib, settings
}

func writeImage(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewRequiresCatalogs(t *testing.T) {
	_, err := New(&conf.Settings{}, discardLogger())
	require.Error(t, err)
}

func TestNewAbsorbsMissingCatalogFile(t *testing.T) {
	settings := &conf.Settings{
		Library: conf.LibrarySettings{
			Catalogs: []conf.CatalogConfig{
				{Name: "NGC", MetadataFile: filepath.Join(t.TempDir(), "missing.json")},
			},
		},
	}
	lib, err := New(settings, discardLogger())
	require.NoError(t, err, "a missing catalog file must not be fatal")
	assert.Len(t, lib.LoadErrors, 1)
	assert.Equal(t, 0, lib.Index.Len())
}

func TestScanAndStatuses(t *testing.T) {
	lib, settings := newTestLibrary(t)
	writeImage(t, filepath.Join(settings.Library.Catalogs[0].ImageDirs[0], "m31_final.tif"), "m31")
	writeImage(t, filepath.Join(settings.Library.MasterDir, "darks.tif"), "darks")

	result, err := lib.Scan(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ResolvedCount)
	assert.Len(t, result.Unresolved, 1)

	statuses := lib.Statuses(result, time.Date(2026, time.October, 10, 0, 0, 0, 0, time.UTC))
	require.Len(t, statuses, 2)

	byID := make(map[string]ObjectStatus)
	for _, st := range statuses {
		byID[st.Object.ID] = st
	}
	assert.Equal(t, visibility.StatusCaptured, byID["M31"].Status)
	assert.Equal(t, 1, byID["M31"].ImageCount)
	assert.NotEqual(t, visibility.StatusCaptured, byID["M42"].Status)
}

func TestScanMarksDesignatedThumbnail(t *testing.T) {
	lib, settings := newTestLibrary(t)
	imageDir := settings.Library.Catalogs[0].ImageDirs[0]
	writeImage(t, filepath.Join(imageDir, "m31_a.tif"), "a")
	writeImage(t, filepath.Join(imageDir, "m31_b.tif"), "b")

	store := lib.Store(catalog.Messier)
	require.NotNil(t, store)
	require.NoError(t, store.SaveThumbnail("M31", "m31_b.tif"))

	result, err := lib.Scan(context.Background(), nil)
	require.NoError(t, err)

	records := result.ByObject["M31"]
	require.Len(t, records, 2)
	var thumbs int
	for _, rec := range records {
		if rec.IsThumbnail {
			thumbs++
			assert.Equal(t, "m31_b.tif", filepath.Base(rec.Path))
		}
	}
	assert.Equal(t, 1, thumbs)
}

func TestFindDuplicatesAndArchive(t *testing.T) {
	lib, settings := newTestLibrary(t)
	imageDir := settings.Library.Catalogs[0].ImageDirs[0]
	writeImage(t, filepath.Join(imageDir, "m31_keep.tif"), "identical")
	writeImage(t, filepath.Join(settings.Library.MasterDir, "m31_dupe.tif"), "identical")

	result, err := lib.Scan(context.Background(), nil)
	require.NoError(t, err)

	groups, err := lib.FindDuplicates(context.Background(), result)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "m31_keep.tif", filepath.Base(groups[0].Keeper.Path),
		"catalog-folder copy is the keeper")

	report, err := lib.Archive(context.Background(), groups)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Moved)

	_, err = os.Stat(filepath.Join(settings.Library.ArchiveDir, "m31_dupe.tif"))
	assert.NoError(t, err)
}

func TestAutoSortMovesResolvedMasterFiles(t *testing.T) {
	lib, settings := newTestLibrary(t)
	writeImage(t, filepath.Join(settings.Library.MasterDir, "m42_new.tif"), "m42")

	result, err := lib.Scan(context.Background(), nil)
	require.NoError(t, err)

	report, err := lib.AutoSort(context.Background(), result)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Moved)

	_, err = os.Stat(filepath.Join(settings.Library.Catalogs[0].ImageDirs[0], "m42_new.tif"))
	assert.NoError(t, err)
}

func TestArchiveAndAutoSortRespectRootLock(t *testing.T) {
	lib, settings := newTestLibrary(t)
	imageDir := settings.Library.Catalogs[0].ImageDirs[0]
	writeImage(t, filepath.Join(imageDir, "m31_keep.tif"), "identical")
	writeImage(t, filepath.Join(settings.Library.MasterDir, "m31_dupe.tif"), "identical")

	result, err := lib.Scan(context.Background(), nil)
	require.NoError(t, err)
	groups, err := lib.FindDuplicates(context.Background(), result)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	release, err := scanner.LockRoots(settings.ScannedDirs()...)
	require.NoError(t, err)
	defer release()

	_, err = lib.Archive(context.Background(), groups)
	require.Error(t, err, "archive must not run while the roots are locked")
	assert.True(t, errors.IsCategory(err, errors.CategoryState))
	_, statErr := os.Stat(filepath.Join(settings.Library.MasterDir, "m31_dupe.tif"))
	assert.NoError(t, statErr, "duplicate must still be in place")

	_, err = lib.AutoSort(context.Background(), result)
	require.Error(t, err, "auto-sort must not run while the roots are locked")
	assert.True(t, errors.IsCategory(err, errors.CategoryState))

	release()
	_, err = lib.Archive(context.Background(), groups)
	assert.NoError(t, err, "released roots are claimable again")
}

func TestStoreForResolvesThroughIndex(t *testing.T) {
	lib, _ := newTestLibrary(t)
	assert.NotNil(t, lib.StoreFor("M31"))
	assert.Nil(t, lib.StoreFor("NGC7000"))
}
