// conf/validate.go settings validation, including the folder overlap rules
// that guard destructive archive and auto-sort operations.
package conf

import (
	"path/filepath"
	"strings"

	"github.com/tphakala/deepsky-go/internal/errors"
)

// ValidateSettings checks the loaded settings for values that would make the
// engine misbehave. Folder overlap is checked separately by ValidateArchiveDir
// because the archive folder is optional until an archive run is requested.
func ValidateSettings(settings *Settings) error {
	if settings.Observer.Latitude < -90 || settings.Observer.Latitude > 90 {
		return errors.ConfigError("observer latitude %.4f out of range [-90, 90]", settings.Observer.Latitude)
	}
	if settings.Observer.Longitude < -180 || settings.Observer.Longitude > 180 {
		return errors.ConfigError("observer longitude %.4f out of range [-180, 180]", settings.Observer.Longitude)
	}
	if settings.Visibility.MonthAltitude < 0 || settings.Visibility.MonthAltitude >= 90 {
		return errors.ConfigError("visibility month altitude %.1f out of range [0, 90)", settings.Visibility.MonthAltitude)
	}

	for i, ext := range settings.Library.Extensions {
		if !strings.HasPrefix(ext, ".") {
			// Tolerate "jpg" style entries by normalizing rather than failing
			settings.Library.Extensions[i] = "." + ext
		}
		settings.Library.Extensions[i] = strings.ToLower(settings.Library.Extensions[i])
	}

	seen := make(map[string]string)
	for i := range settings.Library.Catalogs {
		c := &settings.Library.Catalogs[i]
		if c.Name == "" {
			return errors.ConfigError("catalog entry %d has no name", i)
		}
		if prev, dup := seen[c.Name]; dup {
			return errors.ConfigError("catalog %q configured twice (metadata files %q and %q)", c.Name, prev, c.MetadataFile)
		}
		seen[c.Name] = c.MetadataFile
	}

	return nil
}

// ValidateArchiveDir verifies that the archive folder is configured and does
// not sit inside (or equal) any scanned folder. Archiving into a scanned
// folder would make archived duplicates reappear on the next scan, so this is
// a hard configuration error and nothing may be moved.
func ValidateArchiveDir(archiveDir string, scannedDirs []string) error {
	if strings.TrimSpace(archiveDir) == "" {
		return errors.ConfigError("no archive folder configured")
	}

	archiveAbs, err := filepath.Abs(archiveDir)
	if err != nil {
		return errors.ConfigError("cannot resolve archive folder %q: %v", archiveDir, err)
	}

	for _, dir := range scannedDirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		dirAbs, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		if pathWithin(archiveAbs, dirAbs) {
			return errors.ConfigError("archive folder %q is inside scanned folder %q", archiveAbs, dirAbs)
		}
	}

	return nil
}

// pathWithin reports whether path is equal to or nested under root.
func pathWithin(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
