// mover.go - non-destructive file moves for archiving and auto-sort.
//
// Moves never delete content without a verified copy: rename when possible,
// otherwise copy, re-hash the copy, and only then remove the source. Name
// collisions get a numeric suffix instead of overwriting.
package duplicates

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/deepsky-go/internal/catalog"
	"github.com/tphakala/deepsky-go/internal/conf"
	"github.com/tphakala/deepsky-go/internal/errors"
	"github.com/tphakala/deepsky-go/internal/scanner"
)

// MoveOutcome classifies a single file move attempt.
type MoveOutcome string

const (
	OutcomeMoved   MoveOutcome = "moved"
	OutcomeSkipped MoveOutcome = "skipped"
	OutcomeFailed  MoveOutcome = "failed"
)

// FileResult is the per-file outcome of an archive or auto-sort run.
type FileResult struct {
	Source  string      `json:"source"`
	Target  string      `json:"target,omitempty"`
	Outcome MoveOutcome `json:"outcome"`
	Err     error       `json:"-"`
	Error   string      `json:"error,omitempty"`
}

// MoveReport aggregates per-file results into operation counts suitable for
// a human-readable summary.
type MoveReport struct {
	Results []FileResult `json:"results"`
	Moved   int          `json:"moved"`
	Skipped int          `json:"skipped"`
	Failed  int          `json:"failed"`
}

func (r *MoveReport) record(res FileResult) {
	if res.Err != nil {
		res.Error = res.Err.Error()
	}
	r.Results = append(r.Results, res)
	switch res.Outcome {
	case OutcomeMoved:
		r.Moved++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	}
}

// Archiver moves non-keeper duplicates into the archive folder.
type Archiver struct {
	ArchiveDir  string
	ScannedDirs []string // every folder a scan may walk, for nesting validation
	Log         *slog.Logger
}

// Archive moves every non-keeper member of the given groups into the archive
// folder. The archive folder must not sit inside any scanned folder; that is
// a configuration error and nothing is moved. A single failed move is
// recorded against its file and does not abort the remaining groups.
// Cancellation is checked between files; an in-flight move completes first.
func (a *Archiver) Archive(ctx context.Context, groups []*Group) (*MoveReport, error) {
	if err := conf.ValidateArchiveDir(a.ArchiveDir, a.ScannedDirs); err != nil {
		return nil, err
	}

	archiveRoot, err := filepath.Abs(a.ArchiveDir)
	if err != nil {
		return nil, errors.ConfigError("cannot resolve archive folder %q: %v", a.ArchiveDir, err)
	}
	if err := os.MkdirAll(archiveRoot, 0o755); err != nil {
		return nil, errors.ConfigError("cannot create archive folder %q: %v", archiveRoot, err)
	}

	report := &MoveReport{}
	for _, group := range groups {
		for _, rec := range group.Candidates() {
			if err := ctx.Err(); err != nil {
				return report, errors.New(err).
					Category(errors.CategoryCancellation).
					Build()
			}

			target := nextAvailablePath(filepath.Join(archiveRoot, filepath.Base(rec.Path)))
			if err := a.move(rec, target, group.Hash); err != nil {
				report.record(FileResult{Source: rec.Path, Target: target, Outcome: OutcomeFailed, Err: err})
				if a.Log != nil {
					a.Log.Warn("archive move failed", "source", rec.Path, "target", target, "error", err)
				}
				continue
			}
			report.record(FileResult{Source: rec.Path, Target: target, Outcome: OutcomeMoved})
		}
	}

	if a.Log != nil {
		a.Log.Info("archive complete", "moved", report.Moved, "skipped", report.Skipped, "failed", report.Failed)
	}
	return report, nil
}

func (a *Archiver) move(rec *scanner.ImageRecord, target, wantHash string) error {
	err := safeMove(rec.Path, target, wantHash)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryArchive).
			FileContext(rec.Path, rec.Size).
			Build()
	}
	return nil
}

// Sorter moves resolved master-folder files into per-catalog folders.
type Sorter struct {
	MasterDir  string
	TargetDirs map[catalog.Catalog]string // catalog -> destination folder
	Hasher     *Hasher
	Log        *slog.Logger
}

// Sort moves each resolved master-folder record into the folder of its
// catalog. When a filename carries IDs from several catalogs, catalog
// priority is Messier, NGC, IC, Caldwell. Files already inside their target
// folder, files with no resolvable catalog and files whose catalog has no
// configured folder are skipped. The same no-overwrite and verified-copy
// guarantees as archiving apply.
func (s *Sorter) Sort(ctx context.Context, records []*scanner.ImageRecord) (*MoveReport, error) {
	report := &MoveReport{}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, errors.New(err).
				Category(errors.CategoryCancellation).
				Build()
		}
		if rec.InCatalogFolder() || rec.ObjectID == "" {
			report.record(FileResult{Source: rec.Path, Outcome: OutcomeSkipped})
			continue
		}

		stem := strings.TrimSuffix(filepath.Base(rec.Path), filepath.Ext(rec.Path))
		prefix, ok := catalog.PickCatalogPrefix(catalog.ExtractObjectIDs(stem))
		if !ok {
			report.record(FileResult{Source: rec.Path, Outcome: OutcomeSkipped})
			continue
		}
		cat, _ := catalog.CatalogForPrefix(prefix)
		targetDir, ok := s.TargetDirs[cat]
		if !ok || targetDir == "" {
			report.record(FileResult{Source: rec.Path, Outcome: OutcomeSkipped})
			continue
		}

		targetAbs, err := filepath.Abs(targetDir)
		if err != nil {
			report.record(FileResult{Source: rec.Path, Outcome: OutcomeFailed, Err: err})
			continue
		}
		if filepath.Dir(rec.Path) == targetAbs {
			report.record(FileResult{Source: rec.Path, Outcome: OutcomeSkipped})
			continue
		}
		if err := os.MkdirAll(targetAbs, 0o755); err != nil {
			report.record(FileResult{Source: rec.Path, Outcome: OutcomeFailed, Err: err})
			continue
		}

		target := nextAvailablePath(filepath.Join(targetAbs, filepath.Base(rec.Path)))
		wantHash, err := s.Hasher.HashFile(rec.Path, rec.ModTime, rec.Size)
		if err != nil {
			report.record(FileResult{Source: rec.Path, Target: target, Outcome: OutcomeFailed, Err: err})
			continue
		}
		if err := safeMove(rec.Path, target, wantHash); err != nil {
			report.record(FileResult{Source: rec.Path, Target: target, Outcome: OutcomeFailed,
				Err: errors.New(err).Category(errors.CategoryAutoSort).Build()})
			if s.Log != nil {
				s.Log.Warn("auto-sort move failed", "source", rec.Path, "target", target, "error", err)
			}
			continue
		}
		report.record(FileResult{Source: rec.Path, Target: target, Outcome: OutcomeMoved})
	}

	if s.Log != nil {
		s.Log.Info("auto-sort complete", "moved", report.Moved, "skipped", report.Skipped, "failed", report.Failed)
	}
	return report, nil
}

// nextAvailablePath appends "-N" before the extension until the path does not
// exist, so archive and sort moves never overwrite.
func nextAvailablePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, counter, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// safeMove moves src to dst without ever leaving the content unrecoverable.
// Rename is tried first; when it fails (cross-device moves, typically) the
// file is copied, the copy is re-hashed and compared against wantHash, and
// only after a verified copy is the source removed.
func safeMove(src, dst, wantHash string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	return copyVerifyRemove(src, dst, wantHash)
}

// copyVerifyRemove is the cross-device half of safeMove: copy, re-hash the
// copy against wantHash, and only then remove the source.
func copyVerifyRemove(src, dst, wantHash string) error {
	if err := copyFile(src, dst); err != nil {
		return err
	}

	gotHash, err := hashContents(dst)
	if err != nil {
		os.Remove(dst)
		return fmt.Errorf("verifying copied file: %w", err)
	}
	if wantHash != "" && gotHash != wantHash {
		os.Remove(dst)
		return fmt.Errorf("copy verification failed for %s: content hash mismatch", dst)
	}

	if err := os.Remove(src); err != nil {
		// The copy is verified; src removal failed, report but the content
		// exists at both locations rather than neither
		return fmt.Errorf("removing source after verified copy: %w", err)
	}
	return nil
}

// copyFile copies src to dst, refusing to overwrite an existing dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
