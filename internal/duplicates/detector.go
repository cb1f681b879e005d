// Package duplicates finds exact-duplicate images by content hash and
// archives or auto-sorts files under a non-destructive move discipline.
//
// Classification (hashing, grouping, keeper selection) is pure with respect
// to the filesystem; only Archiver and Sorter mutate anything.
package duplicates

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/tphakala/deepsky-go/internal/errors"
	"github.com/tphakala/deepsky-go/internal/scanner"
)

// Group is a set of image records sharing an identical content hash.
// Invariant: at least two members, exactly one keeper.
type Group struct {
	Hash    string
	Records []*scanner.ImageRecord
	Keeper  *scanner.ImageRecord
}

// Candidates returns the group members that are not the keeper, in record
// order. These are the files an archive run moves.
func (g *Group) Candidates() []*scanner.ImageRecord {
	out := make([]*scanner.ImageRecord, 0, len(g.Records)-1)
	for _, rec := range g.Records {
		if rec != g.Keeper {
			out = append(out, rec)
		}
	}
	return out
}

// Detector groups scanned records by content hash.
type Detector struct {
	hasher *Hasher
	log    *slog.Logger
}

// NewDetector returns a Detector. The hasher carries the per-run hash cache
// and may be shared across repeated scans; the logger may be nil.
func NewDetector(hasher *Hasher, log *slog.Logger) *Detector {
	if hasher == nil {
		hasher = NewHasher()
	}
	return &Detector{hasher: hasher, log: log}
}

// FindDuplicates hashes every record and returns groups of two or more
// records with identical contents. Files that cannot be read are skipped and
// logged; a single unreadable file never aborts the run. Cancellation is
// checked between files; an in-flight hash completes first.
func (d *Detector) FindDuplicates(ctx context.Context, records []*scanner.ImageRecord) ([]*Group, error) {
	byHash := make(map[string][]*scanner.ImageRecord)

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, errors.New(err).
				Category(errors.CategoryCancellation).
				Build()
		}

		digest, err := d.hasher.HashFile(rec.Path, rec.ModTime, rec.Size)
		if err != nil {
			if d.log != nil {
				d.log.Warn("skipping unreadable file", "path", rec.Path, "error", err)
			}
			continue
		}
		byHash[digest] = append(byHash[digest], rec)
	}

	var groups []*Group
	for digest, members := range byHash {
		if len(members) < 2 {
			continue
		}
		group := &Group{Hash: digest, Records: members}
		group.Keeper = selectKeeper(members)
		groups = append(groups, group)
	}

	// Deterministic report order: largest groups first, then by hash
	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i].Records) != len(groups[j].Records) {
			return len(groups[i].Records) > len(groups[j].Records)
		}
		return groups[i].Hash < groups[j].Hash
	})

	if d.log != nil {
		d.log.Info("duplicate scan complete",
			"files", len(records),
			"groups", len(groups),
			"cache_hits", d.hasher.Hits(),
			"cache_misses", d.hasher.Misses())
	}
	return groups, nil
}

// selectKeeper picks the group member that stays in place when the rest are
// archived. The policy is deterministic and decides which physical file the
// user keeps: a record inside a recognized catalog folder beats one in the
// master/unsorted folder; among ties the designated thumbnail wins; among
// remaining ties the lexicographically smallest path wins.
func selectKeeper(records []*scanner.ImageRecord) *scanner.ImageRecord {
	keeper := records[0]
	for _, rec := range records[1:] {
		if keeperLess(rec, keeper) {
			keeper = rec
		}
	}
	return keeper
}

// keeperLess reports whether a ranks ahead of b under the keeper policy.
func keeperLess(a, b *scanner.ImageRecord) bool {
	if a.InCatalogFolder() != b.InCatalogFolder() {
		return a.InCatalogFolder()
	}
	if a.IsThumbnail != b.IsThumbnail {
		return a.IsThumbnail
	}
	return strings.Compare(a.Path, b.Path) < 0
}
