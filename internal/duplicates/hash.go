// hash.go - streamed content hashing with a per-run cache.
package duplicates

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/tphakala/deepsky-go/internal/errors"
)

// hashChunkSize is the read buffer for streamed hashing; files are never
// loaded whole.
const hashChunkSize = 1 << 20

// Hasher computes SHA-256 content hashes with a cache keyed by
// (path, modification time, size). Any change to a file invalidates its
// cached hash, so repeated duplicate scans over an unchanged library never
// re-read file contents.
type Hasher struct {
	cache  *gocache.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// NewHasher returns a Hasher with an empty cache. Entries never expire;
// staleness is handled by the mtime/size cache key.
func NewHasher() *Hasher {
	return &Hasher{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// HashFile returns the hex SHA-256 of the file contents, from cache when the
// file is unchanged since the last computation.
func (h *Hasher) HashFile(path string, modTime time.Time, size int64) (string, error) {
	key := cacheKey(path, modTime, size)
	if cached, found := h.cache.Get(key); found {
		h.hits.Add(1)
		return cached.(string), nil
	}
	h.misses.Add(1)

	digest, err := hashContents(path)
	if err != nil {
		return "", err
	}

	h.cache.Set(key, digest, gocache.NoExpiration)
	return digest, nil
}

// Hits returns how many hash requests were served from cache.
func (h *Hasher) Hits() int64 { return h.hits.Load() }

// Misses returns how many hash requests required reading file contents.
func (h *Hasher) Misses() int64 { return h.misses.Load() }

func cacheKey(path string, modTime time.Time, size int64) string {
	return fmt.Sprintf("%s|%d|%d", path, modTime.UnixNano(), size)
}

// hashContents streams the file through SHA-256.
func hashContents(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", errors.New(err).
			Category(errors.CategoryHashing).
			Context("path", path).
			Build()
	}
	defer file.Close()

	hasher := sha256.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(hasher, file, buf); err != nil {
		return "", errors.Newf("hashing %s: %w", path, err).
			Category(errors.CategoryHashing).
			Build()
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
