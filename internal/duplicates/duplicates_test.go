package duplicates

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/deepsky-go/internal/catalog"
	"github.com/tphakala/deepsky-go/internal/errors"
	"github.com/tphakala/deepsky-go/internal/scanner"
)

// writeRecord creates a file with the given content and returns a scan
// record for it, the way a library scan would have produced one.
func writeRecord(t *testing.T, path, content string, cat catalog.Catalog) *scanner.ImageRecord {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	info, err := os.Stat(path)
	require.NoError(t, err)

	return &scanner.ImageRecord{
		Path:          path,
		FolderCatalog: cat,
		Size:          info.Size(),
		ModTime:       info.ModTime(),
	}
}

func TestHasherCachesByPathMtimeSize(t *testing.T) {
	dir := t.TempDir()
	rec := writeRecord(t, filepath.Join(dir, "m31.tif"), "image-bytes", catalog.Messier)

	h := NewHasher()

	first, err := h.HashFile(rec.Path, rec.ModTime, rec.Size)
	require.NoError(t, err)
	assert.EqualValues(t, 0, h.Hits())
	assert.EqualValues(t, 1, h.Misses())

	second, err := h.HashFile(rec.Path, rec.ModTime, rec.Size)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, h.Hits(), "unchanged file served from cache")
	assert.EqualValues(t, 1, h.Misses())

	// A different mtime invalidates the entry
	_, err = h.HashFile(rec.Path, rec.ModTime.Add(1), rec.Size)
	require.NoError(t, err)
	assert.EqualValues(t, 2, h.Misses())
}

func TestHasherUnreadableFile(t *testing.T) {
	h := NewHasher()
	_, err := h.HashFile(filepath.Join(t.TempDir(), "gone.tif"), time.Time{}, 0)
	require.Error(t, err)
}

func TestFindDuplicatesGroupsIdenticalContent(t *testing.T) {
	dir := t.TempDir()
	a := writeRecord(t, filepath.Join(dir, "messier", "m31_a.tif"), "same", catalog.Messier)
	b := writeRecord(t, filepath.Join(dir, "master", "m31_copy.tif"), "same", "")
	c := writeRecord(t, filepath.Join(dir, "master", "unique.tif"), "different", "")

	d := NewDetector(NewHasher(), nil)
	groups, err := d.FindDuplicates(context.Background(), []*scanner.ImageRecord{a, b, c})
	require.NoError(t, err)

	require.Len(t, groups, 1)
	group := groups[0]
	assert.Len(t, group.Records, 2)
	assert.Same(t, a, group.Keeper, "catalog-folder member beats master copy")
	require.Len(t, group.Candidates(), 1)
	assert.Same(t, b, group.Candidates()[0])
}

func TestFindDuplicatesSkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	a := writeRecord(t, filepath.Join(dir, "a.tif"), "same", "")
	b := writeRecord(t, filepath.Join(dir, "b.tif"), "same", "")
	ghost := &scanner.ImageRecord{Path: filepath.Join(dir, "gone.tif")}

	d := NewDetector(nil, nil)
	groups, err := d.FindDuplicates(context.Background(), []*scanner.ImageRecord{a, ghost, b})
	require.NoError(t, err, "one unreadable file never aborts the run")
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Records, 2)
}

func TestKeeperPolicy(t *testing.T) {
	t.Parallel()

	catalogRec := &scanner.ImageRecord{Path: "/lib/messier/m31.tif", FolderCatalog: catalog.Messier}
	thumb := &scanner.ImageRecord{Path: "/lib/master/m31_thumb.tif", IsThumbnail: true}
	plainA := &scanner.ImageRecord{Path: "/lib/master/a.tif"}
	plainB := &scanner.ImageRecord{Path: "/lib/master/b.tif"}

	tests := []struct {
		name    string
		records []*scanner.ImageRecord
		want    *scanner.ImageRecord
	}{
		{"catalog folder beats thumbnail", []*scanner.ImageRecord{thumb, catalogRec}, catalogRec},
		{"thumbnail beats plain", []*scanner.ImageRecord{plainA, thumb}, thumb},
		{"path breaks ties", []*scanner.ImageRecord{plainB, plainA}, plainA},
		{"order of input is irrelevant", []*scanner.ImageRecord{plainA, catalogRec, thumb}, catalogRec},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Same(t, tt.want, selectKeeper(tt.records))
		})
	}
}

func TestArchiveMovesCandidatesOnly(t *testing.T) {
	dir := t.TempDir()
	keeper := writeRecord(t, filepath.Join(dir, "messier", "m31.tif"), "same", catalog.Messier)
	dupe := writeRecord(t, filepath.Join(dir, "master", "m31_copy.tif"), "same", "")
	archiveDir := filepath.Join(dir, "archive")

	h := NewHasher()
	groups, err := NewDetector(h, nil).FindDuplicates(context.Background(), []*scanner.ImageRecord{keeper, dupe})
	require.NoError(t, err)
	require.Len(t, groups, 1)

	archiver := &Archiver{
		ArchiveDir:  archiveDir,
		ScannedDirs: []string{filepath.Join(dir, "messier"), filepath.Join(dir, "master")},
	}
	report, err := archiver.Archive(context.Background(), groups)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Moved)
	assert.Equal(t, 0, report.Failed)

	// Keeper untouched, duplicate moved with content intact
	_, err = os.Stat(keeper.Path)
	assert.NoError(t, err)
	_, err = os.Stat(dupe.Path)
	assert.True(t, os.IsNotExist(err))

	moved, err := os.ReadFile(filepath.Join(archiveDir, "m31_copy.tif"))
	require.NoError(t, err)
	assert.Equal(t, "same", string(moved))
}

func TestArchiveInsideScannedFolderIsConfigError(t *testing.T) {
	dir := t.TempDir()
	keeper := writeRecord(t, filepath.Join(dir, "master", "a.tif"), "same", "")
	dupe := writeRecord(t, filepath.Join(dir, "master", "b.tif"), "same", "")

	h := NewHasher()
	groups, err := NewDetector(h, nil).FindDuplicates(context.Background(), []*scanner.ImageRecord{keeper, dupe})
	require.NoError(t, err)

	archiver := &Archiver{
		ArchiveDir:  filepath.Join(dir, "master", "archive"),
		ScannedDirs: []string{filepath.Join(dir, "master")},
	}
	_, err = archiver.Archive(context.Background(), groups)
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))

	// Nothing moved
	_, err = os.Stat(keeper.Path)
	assert.NoError(t, err)
	_, err = os.Stat(dupe.Path)
	assert.NoError(t, err)
}

func TestArchiveNameCollisionGetsSuffix(t *testing.T) {
	dir := t.TempDir()
	archiveDir := filepath.Join(dir, "archive")
	require.NoError(t, os.MkdirAll(archiveDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(archiveDir, "m31.tif"), []byte("already here"), 0o644))

	keeper := writeRecord(t, filepath.Join(dir, "messier", "m31.tif"), "same", catalog.Messier)
	dupe := writeRecord(t, filepath.Join(dir, "master", "m31.tif"), "same", "")

	h := NewHasher()
	groups, err := NewDetector(h, nil).FindDuplicates(context.Background(), []*scanner.ImageRecord{keeper, dupe})
	require.NoError(t, err)

	archiver := &Archiver{
		ArchiveDir:  archiveDir,
		ScannedDirs: []string{filepath.Join(dir, "messier"), filepath.Join(dir, "master")},
	}
	report, err := archiver.Archive(context.Background(), groups)
	require.NoError(t, err)
	require.Equal(t, 1, report.Moved)

	content, err := os.ReadFile(filepath.Join(archiveDir, "m31-1.tif"))
	require.NoError(t, err)
	assert.Equal(t, "same", string(content))

	untouched, err := os.ReadFile(filepath.Join(archiveDir, "m31.tif"))
	require.NoError(t, err)
	assert.Equal(t, "already here", string(untouched), "existing archive file never overwritten")
}

func TestSorterMovesResolvedMasterFiles(t *testing.T) {
	dir := t.TempDir()
	masterDir := filepath.Join(dir, "master")
	messierDir := filepath.Join(dir, "messier")
	ngcDir := filepath.Join(dir, "ngc")
	require.NoError(t, os.MkdirAll(messierDir, 0o755))
	require.NoError(t, os.MkdirAll(ngcDir, 0o755))

	resolved := writeRecord(t, filepath.Join(masterDir, "m31_new.tif"), "m31 data", "")
	resolved.ObjectID = "M31"
	unresolved := writeRecord(t, filepath.Join(masterDir, "darks.tif"), "darks", "")
	inPlace := writeRecord(t, filepath.Join(messierDir, "m42.tif"), "m42", catalog.Messier)
	inPlace.ObjectID = "M42"

	sorter := &Sorter{
		MasterDir: masterDir,
		TargetDirs: map[catalog.Catalog]string{
			catalog.Messier: messierDir,
			catalog.NGC:     ngcDir,
		},
		Hasher: NewHasher(),
	}
	report, err := sorter.Sort(context.Background(), []*scanner.ImageRecord{resolved, unresolved, inPlace})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Moved)
	assert.Equal(t, 2, report.Skipped)

	content, err := os.ReadFile(filepath.Join(messierDir, "m31_new.tif"))
	require.NoError(t, err)
	assert.Equal(t, "m31 data", string(content))

	_, err = os.Stat(filepath.Join(masterDir, "darks.tif"))
	assert.NoError(t, err, "unresolved files stay in the master folder")
}

func TestSorterPrefersMessierOnMultiCatalogName(t *testing.T) {
	dir := t.TempDir()
	masterDir := filepath.Join(dir, "master")
	messierDir := filepath.Join(dir, "messier")
	ngcDir := filepath.Join(dir, "ngc")
	require.NoError(t, os.MkdirAll(messierDir, 0o755))
	require.NoError(t, os.MkdirAll(ngcDir, 0o755))

	rec := writeRecord(t, filepath.Join(masterDir, "ngc7000_m31_mosaic.tif"), "mosaic", "")
	rec.ObjectID = "NGC7000"

	sorter := &Sorter{
		MasterDir: masterDir,
		TargetDirs: map[catalog.Catalog]string{
			catalog.Messier: messierDir,
			catalog.NGC:     ngcDir,
		},
		Hasher: NewHasher(),
	}
	report, err := sorter.Sort(context.Background(), []*scanner.ImageRecord{rec})
	require.NoError(t, err)
	require.Equal(t, 1, report.Moved)

	_, err = os.Stat(filepath.Join(messierDir, "ngc7000_m31_mosaic.tif"))
	assert.NoError(t, err, "catalog priority picks Messier over NGC")
}

func TestCopyFallbackVerifiesAndRemovesSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "m31.tif")
	require.NoError(t, os.WriteFile(src, []byte("image bytes"), 0o644))
	wantHash, err := hashContents(src)
	require.NoError(t, err)

	dst := filepath.Join(dir, "archive", "m31.tif")
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))

	require.NoError(t, copyVerifyRemove(src, dst, wantHash))

	moved, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "image bytes", string(moved))
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err), "source removed after verified copy")
}

func TestCopyFallbackKeepsSourceOnHashMismatch(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "m31.tif")
	require.NoError(t, os.WriteFile(src, []byte("image bytes"), 0o644))

	dst := filepath.Join(dir, "archive", "m31.tif")
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))

	err := copyVerifyRemove(src, dst, "0000000000000000000000000000000000000000000000000000000000000000")
	require.Error(t, err)

	_, statErr := os.Stat(src)
	assert.NoError(t, statErr, "source kept when verification fails")
	_, statErr = os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr), "unverified copy removed")
}

func TestNextAvailablePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m31.tif")

	assert.Equal(t, path, nextAvailablePath(path))

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	assert.Equal(t, filepath.Join(dir, "m31-1.tif"), nextAvailablePath(path))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "m31-1.tif"), []byte("x"), 0o644))
	assert.Equal(t, filepath.Join(dir, "m31-2.tif"), nextAvailablePath(path))
}

func TestReportFormatMarksKeeper(t *testing.T) {
	keeper := &scanner.ImageRecord{Path: "/lib/messier/m31.tif", FolderCatalog: catalog.Messier}
	dupe := &scanner.ImageRecord{Path: "/lib/master/m31_copy.tif"}
	group := &Group{Hash: "abcd1234", Records: []*scanner.ImageRecord{keeper, dupe}, Keeper: keeper}

	report := NewReport("run-1", []*Group{group}, nil)
	text := report.Format()

	assert.Contains(t, text, "* /lib/messier/m31.tif")
	assert.Contains(t, text, "- /lib/master/m31_copy.tif")
}
