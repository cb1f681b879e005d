package scanner

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/deepsky-go/internal/errors"
)

func TestLockRootsExclusive(t *testing.T) {
	root := t.TempDir()

	release, err := LockRoots(root)
	require.NoError(t, err)

	_, err = LockRoots(root)
	require.Error(t, err, "second claim on the same root must fail")
	assert.True(t, errors.IsCategory(err, errors.CategoryState))

	release()

	release2, err := LockRoots(root)
	require.NoError(t, err, "root claimable again after release")
	release2()
}

func TestLockRootsAllOrNothing(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")

	releaseA, err := LockRoots(a)
	require.NoError(t, err)
	defer releaseA()

	// b must stay unclaimed when the combined claim fails on a
	_, err = LockRoots(b, a)
	require.Error(t, err)

	releaseB, err := LockRoots(b)
	require.NoError(t, err)
	releaseB()
}

func TestLockRootsReleaseIsIdempotent(t *testing.T) {
	root := t.TempDir()

	release, err := LockRoots(root)
	require.NoError(t, err)
	release()
	release() // second call is a no-op

	release2, err := LockRoots(root)
	require.NoError(t, err)
	release2()
}

func TestLockRootsIgnoresEmpty(t *testing.T) {
	release, err := LockRoots("")
	require.NoError(t, err)
	release()
}
