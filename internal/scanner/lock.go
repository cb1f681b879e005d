// lock.go - per-library-root operation locking.
//
// Duplicate scans and archive/auto-sort runs mutate the hash cache and the
// filesystem; two of them against the same library root are unsafe. The lock
// is advisory and in-process: one in-flight operation per canonical root.
package scanner

import (
	"sync"

	"github.com/tphakala/deepsky-go/internal/errors"
)

var (
	lockMu      sync.Mutex
	lockedRoots = make(map[string]bool)
)

// LockRoots claims every given library root for an exclusive operation. If
// any root is already claimed the call fails with a state error and claims
// nothing. The returned release function must be called exactly once.
func LockRoots(roots ...string) (release func(), err error) {
	lockMu.Lock()
	defer lockMu.Unlock()

	canonical := make([]string, 0, len(roots))
	for _, root := range roots {
		if root == "" {
			continue
		}
		canonical = append(canonical, canonicalPath(root))
	}

	for _, root := range canonical {
		if lockedRoots[root] {
			return nil, errors.Newf("a scan or archive operation is already running on %s", root).
				Category(errors.CategoryState).
				Build()
		}
	}
	for _, root := range canonical {
		lockedRoots[root] = true
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			lockMu.Lock()
			defer lockMu.Unlock()
			for _, root := range canonical {
				delete(lockedRoots, root)
			}
		})
	}, nil
}
