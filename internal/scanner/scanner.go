// Package scanner walks configured image folders and associates image files
// with catalog objects. Scanning never mutates the filesystem.
package scanner

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/deepsky-go/internal/catalog"
	"github.com/tphakala/deepsky-go/internal/errors"
)

// Folder is one configured folder to scan. Catalog is empty for the master
// (unsorted) folder.
type Folder struct {
	Path    string
	Catalog catalog.Catalog
}

// ImageRecord is one accepted image file found during a scan. Records live
// for the duration of a scan run and are rebuilt on the next one; only notes
// and thumbnail designations survive via the metadata store.
type ImageRecord struct {
	Path          string          // canonical absolute path
	ObjectID      string          // resolved object ID, empty when unresolved
	FolderCatalog catalog.Catalog // catalog of the folder the file was found in, empty for master
	Size          int64
	ModTime       time.Time
	IsThumbnail   bool // file is the designated thumbnail of its object
}

// InCatalogFolder reports whether the record was found inside a recognized
// per-catalog folder rather than the master/unsorted folder.
func (r *ImageRecord) InCatalogFolder() bool {
	return r.FolderCatalog != ""
}

// FolderError records a folder that could not be scanned. Folder access
// failures are reported per folder and never abort the scan of other folders.
type FolderError struct {
	Folder string
	Err    error
}

// Result is the outcome of one scan run.
type Result struct {
	RunID         string                    // unique scan run identifier
	ByObject      map[string][]*ImageRecord // resolved records per canonical object ID
	Unresolved    []string                  // accepted files that resolved to no object
	FolderErrors  []FolderError             // folders that could not be walked
	Files         []*ImageRecord            // every accepted unique file
	ResolvedCount int
	StartedAt     time.Time
	FinishedAt    time.Time
}

// ProgressFunc receives incremental progress: files processed so far, the
// total estimate, and the path just handled. May be nil.
type ProgressFunc func(done, total int, path string)

// Options tunes a scan run.
type Options struct {
	Extensions []string // accepted extensions with leading dot, lower case
	Progress   ProgressFunc
	Logger     *slog.Logger
}

// Scan walks every configured folder, resolves accepted files and groups them
// by object ID. Cancellation is cooperative: the context is checked between
// per-file units of work, so an in-flight file completes before the scan
// honors ctx. A cancelled scan returns the partial result together with a
// cancellation error.
func Scan(ctx context.Context, folders []Folder, resolver *catalog.Resolver, opts Options) (*Result, error) {
	result := &Result{
		RunID:     uuid.NewString(),
		ByObject:  make(map[string][]*ImageRecord),
		StartedAt: time.Now(),
	}

	exts := extensionSet(opts.Extensions)
	log := opts.Logger

	// First pass: estimate the total for progress reporting.
	total := 0
	for _, folder := range folders {
		total += countFiles(folder.Path, exts)
	}

	seen := make(map[string]bool) // canonical path -> already recorded
	done := 0

	for _, folder := range folders {
		err := filepath.WalkDir(folder.Path, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				// Root missing or subtree unreadable: record and move on
				result.FolderErrors = append(result.FolderErrors, FolderError{
					Folder: folder.Path,
					Err: errors.New(walkErr).
						Category(errors.CategoryFileScan).
						Context("folder", folder.Path).
						Build(),
				})
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if !exts[strings.ToLower(filepath.Ext(d.Name()))] {
				return nil
			}

			if err := ctx.Err(); err != nil {
				return context.Canceled
			}

			canonical := canonicalPath(path)
			if seen[canonical] {
				// Same physical file reached again through a symlink or a
				// doubly-configured folder
				return nil
			}
			seen[canonical] = true

			record := &ImageRecord{
				Path:          canonical,
				FolderCatalog: folder.Catalog,
			}
			if info, err := d.Info(); err == nil {
				record.Size = info.Size()
				record.ModTime = info.ModTime()
			}

			if id, ok := resolver.Resolve(path); ok {
				record.ObjectID = id
				result.ByObject[id] = append(result.ByObject[id], record)
				result.ResolvedCount++
			} else {
				result.Unresolved = append(result.Unresolved, canonical)
				if log != nil {
					log.Debug("unresolved file", "path", canonical)
				}
			}
			result.Files = append(result.Files, record)

			done++
			if opts.Progress != nil {
				opts.Progress(done, total, canonical)
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				result.FinishedAt = time.Now()
				return result, errors.New(ctx.Err()).
					Category(errors.CategoryCancellation).
					Context("run_id", result.RunID).
					Build()
			}
			// WalkDir only returns what our callback returns, plus root stat
			// failures on some platforms
			result.FolderErrors = append(result.FolderErrors, FolderError{Folder: folder.Path, Err: err})
		}
	}

	// Deterministic per-object ordering, by base filename
	for id := range result.ByObject {
		records := result.ByObject[id]
		sort.Slice(records, func(i, j int) bool {
			return strings.ToLower(filepath.Base(records[i].Path)) < strings.ToLower(filepath.Base(records[j].Path))
		})
	}
	sort.Strings(result.Unresolved)

	result.FinishedAt = time.Now()
	if log != nil {
		log.Info("scan complete",
			"run_id", result.RunID,
			"files", len(result.Files),
			"resolved", result.ResolvedCount,
			"unresolved", len(result.Unresolved),
			"folder_errors", len(result.FolderErrors))
	}
	return result, nil
}

// MarkThumbnails flags the designated thumbnail record of each object.
// lookup returns the stored thumbnail filename for an object ID, or empty.
// At most one record per object is flagged; when no designation matches, the
// first record in order serves as the implicit thumbnail and stays unflagged.
func (r *Result) MarkThumbnails(lookup func(objectID string) string) {
	if lookup == nil {
		return
	}
	for id, records := range r.ByObject {
		name := lookup(id)
		if name == "" {
			continue
		}
		for _, rec := range records {
			if filepath.Base(rec.Path) == name {
				rec.IsThumbnail = true
				break
			}
		}
	}
}

// Captured reports whether at least one record resolved to the object.
func (r *Result) Captured(objectID string) bool {
	return len(r.ByObject[strings.ToUpper(objectID)]) > 0
}

// countFiles estimates how many accepted files a folder holds. Errors are
// ignored here; the real pass reports them.
func countFiles(root string, exts map[string]bool) int {
	count := 0
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() && exts[strings.ToLower(filepath.Ext(d.Name()))] {
			count++
		}
		return nil
	})
	return count
}

// canonicalPath resolves symlinks and relative segments so the same physical
// file always yields the same key.
func canonicalPath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func extensionSet(extensions []string) map[string]bool {
	set := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		set[strings.ToLower(ext)] = true
	}
	return set
}
