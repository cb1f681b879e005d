// Package library wires the catalog index, resolver, scanner, duplicate
// detector, visibility engine and metadata stores into one image-library
// facade the commands run against.
package library

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/tphakala/deepsky-go/internal/catalog"
	"github.com/tphakala/deepsky-go/internal/conf"
	"github.com/tphakala/deepsky-go/internal/duplicates"
	"github.com/tphakala/deepsky-go/internal/errors"
	"github.com/tphakala/deepsky-go/internal/metadata"
	"github.com/tphakala/deepsky-go/internal/scanner"
	"github.com/tphakala/deepsky-go/internal/visibility"
)

// Library is the assembled image library. Build one with New, then run
// operations against it; the catalog index and metadata stores are loaded
// once and shared.
type Library struct {
	Settings *conf.Settings
	Index    *catalog.Index
	Resolver *catalog.Resolver
	Sky      *visibility.Engine
	Hasher   *duplicates.Hasher

	stores map[catalog.Catalog]*metadata.Store
	log    *slog.Logger

	// LoadErrors collects catalog files that failed to load. Loading
	// continues past them; the affected catalog is simply empty.
	LoadErrors []error
}

// New loads every configured catalog and assembles the library. A catalog
// file that is missing or malformed is recorded in LoadErrors and skipped;
// only configuration-level problems are fatal.
func New(settings *conf.Settings, log *slog.Logger) (*Library, error) {
	if len(settings.Library.Catalogs) == 0 {
		return nil, errors.ConfigError("no catalogs configured")
	}
	if log == nil {
		log = slog.Default()
	}

	lib := &Library{
		Settings: settings,
		Hasher:   duplicates.NewHasher(),
		stores:   make(map[catalog.Catalog]*metadata.Store),
		log:      log,
	}

	var objects []*catalog.Object
	for i := range settings.Library.Catalogs {
		cfg := &settings.Library.Catalogs[i]
		cat := catalog.FromName(cfg.Name)
		objs, err := catalog.LoadFile(cfg.MetadataFile, cat)
		if err != nil {
			lib.LoadErrors = append(lib.LoadErrors, err)
			log.Warn("catalog load failed", "catalog", cfg.Name, "file", cfg.MetadataFile, "error", err)
			continue
		}
		objects = append(objects, objs...)
		log.Debug("catalog loaded", "catalog", cfg.Name, "objects", len(objs))
	}

	lib.Index = catalog.NewIndex(objects)
	lib.Resolver = catalog.NewResolver(lib.Index, log)

	// Stores open the same files again so note edits never touch the
	// in-memory reference objects.
	for i := range settings.Library.Catalogs {
		cfg := &settings.Library.Catalogs[i]
		cat := catalog.FromName(cfg.Name)
		store, err := metadata.Load(cfg.MetadataFile, cat, lib.Index, log)
		if err != nil {
			lib.LoadErrors = append(lib.LoadErrors, err)
			log.Warn("metadata load failed", "catalog", cfg.Name, "error", err)
		}
		lib.stores[cat] = store
	}

	var observer *visibility.Observer
	if settings.HasObserver() {
		observer = &visibility.Observer{
			Latitude:  settings.Observer.Latitude,
			Longitude: settings.Observer.Longitude,
			Elevation: settings.Observer.Elevation,
		}
	}
	lib.Sky = visibility.NewEngine(observer, settings.Visibility.MonthAltitude)

	return lib, nil
}

// Store returns the metadata store of a catalog, or nil.
func (l *Library) Store(cat catalog.Catalog) *metadata.Store {
	return l.stores[cat]
}

// StoreFor returns the metadata store owning the given object ID, resolved
// through the ID's catalog prefix.
func (l *Library) StoreFor(objectID string) *metadata.Store {
	if obj, ok := l.Index.Get(objectID); ok {
		return l.stores[obj.Catalog]
	}
	return nil
}

// Folders returns every folder a scan walks: the per-catalog image folders
// plus the master folder, which carries no catalog.
func (l *Library) Folders() []scanner.Folder {
	var folders []scanner.Folder
	for i := range l.Settings.Library.Catalogs {
		cfg := &l.Settings.Library.Catalogs[i]
		cat := catalog.FromName(cfg.Name)
		for _, dir := range cfg.ImageDirs {
			folders = append(folders, scanner.Folder{Path: dir, Catalog: cat})
		}
	}
	if l.Settings.Library.MasterDir != "" {
		folders = append(folders, scanner.Folder{Path: l.Settings.Library.MasterDir})
	}
	return folders
}

// Scan walks the whole library under an advisory per-root lock, so two
// concurrent invocations against the same folders cannot interleave moves.
func (l *Library) Scan(ctx context.Context, progress scanner.ProgressFunc) (*scanner.Result, error) {
	release, err := scanner.LockRoots(l.Settings.ScannedDirs()...)
	if err != nil {
		return nil, err
	}
	defer release()

	result, err := scanner.Scan(ctx, l.Folders(), l.Resolver, scanner.Options{
		Extensions: l.Settings.Library.Extensions,
		Progress:   progress,
		Logger:     l.log,
	})
	if result != nil {
		result.MarkThumbnails(l.thumbnailFor)
	}
	return result, err
}

// thumbnailFor looks up the designated thumbnail filename of an object
// across the per-catalog stores.
func (l *Library) thumbnailFor(objectID string) string {
	if store := l.StoreFor(objectID); store != nil {
		return store.Thumbnail(objectID)
	}
	return ""
}

// FindDuplicates hashes every scanned file and groups the byte-identical
// ones.
func (l *Library) FindDuplicates(ctx context.Context, result *scanner.Result) ([]*duplicates.Group, error) {
	detector := duplicates.NewDetector(l.Hasher, l.log)
	return detector.FindDuplicates(ctx, result.Files)
}

// Archive moves the non-keeper members of each duplicate group into the
// configured archive folder. It claims the same per-root lock as Scan, so an
// archive run cannot move files out from under an in-flight scan.
func (l *Library) Archive(ctx context.Context, groups []*duplicates.Group) (*duplicates.MoveReport, error) {
	if l.Settings.Library.ArchiveDir == "" {
		return nil, errors.ConfigError("archive folder is not configured")
	}
	release, err := scanner.LockRoots(l.Settings.ScannedDirs()...)
	if err != nil {
		return nil, err
	}
	defer release()

	archiver := &duplicates.Archiver{
		ArchiveDir:  l.Settings.Library.ArchiveDir,
		ScannedDirs: l.Settings.ScannedDirs(),
		Log:         l.log,
	}
	return archiver.Archive(ctx, groups)
}

// AutoSort moves resolved master-folder files into their catalog folders.
// Each catalog's first configured image folder is the sort target. Like
// Archive it runs under the per-root lock.
func (l *Library) AutoSort(ctx context.Context, result *scanner.Result) (*duplicates.MoveReport, error) {
	if l.Settings.Library.MasterDir == "" {
		return nil, errors.ConfigError("master folder is not configured, nothing to sort")
	}
	release, err := scanner.LockRoots(l.Settings.ScannedDirs()...)
	if err != nil {
		return nil, err
	}
	defer release()

	targets := make(map[catalog.Catalog]string)
	for i := range l.Settings.Library.Catalogs {
		cfg := &l.Settings.Library.Catalogs[i]
		if len(cfg.ImageDirs) > 0 {
			targets[catalog.FromName(cfg.Name)] = cfg.ImageDirs[0]
		}
	}

	sorter := &duplicates.Sorter{
		MasterDir:  l.Settings.Library.MasterDir,
		TargetDirs: targets,
		Hasher:     l.Hasher,
		Log:        l.log,
	}
	return sorter.Sort(ctx, result.Files)
}

// ObjectStatus is the derived state of one catalog object after a scan.
type ObjectStatus struct {
	Object     *catalog.Object
	Status     visibility.Status
	BestMonths visibility.MonthSet
	ImageCount int
}

// Statuses derives the capture status of every indexed object from a scan
// result, sorted by object ID.
func (l *Library) Statuses(result *scanner.Result, now time.Time) []ObjectStatus {
	statuses := make([]ObjectStatus, 0, l.Index.Len())
	for _, obj := range l.Index.Objects() {
		months := l.Sky.BestMonthsFor(obj)
		statuses = append(statuses, ObjectStatus{
			Object:     obj,
			Status:     l.Sky.StatusOf(result.Captured(obj.ID), months, now),
			BestMonths: months,
			ImageCount: len(result.ByObject[obj.ID]),
		})
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Object.ID < statuses[j].Object.ID
	})
	return statuses
}
