// config.go: settings struct for the deep-sky catalog engine and functions to load and save it.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/deepsky-go/internal/errors"
)

//go:embed config.yaml
var configFiles embed.FS

// LogConfig contains settings for engine log files.
type LogConfig struct {
	Enabled bool   // true to write a rotating log file
	Path    string // path to the log file
}

// MainSettings contains top-level application settings.
type MainSettings struct {
	Name string    // instance name, used in reports
	Log  LogConfig // log file settings
}

// CatalogConfig describes one reference catalog and its image folders.
type CatalogConfig struct {
	Name         string   // catalog name, e.g. "Messier"
	MetadataFile string   // path to the catalog metadata JSON file
	ImageDirs    []string `mapstructure:"imagedirs"` // per-catalog image folders
}

// LibrarySettings contains the image library folder configuration.
type LibrarySettings struct {
	Catalogs   []CatalogConfig // reference catalogs
	MasterDir  string          `mapstructure:"masterdir"`  // master/unsorted image folder, may be empty
	ArchiveDir string          `mapstructure:"archivedir"` // duplicate archive folder, may be empty
	AutoSort   bool            `mapstructure:"autosort"`   // move resolved master files into catalog folders
	Extensions []string        // accepted image file extensions, with leading dot
}

// ObserverSettings is the observing site used for visibility calculations.
type ObserverSettings struct {
	Latitude  float64 // degrees, positive north
	Longitude float64 // degrees, positive east
	Elevation float64 // meters above sea level
}

// VisibilitySettings tunes the best-month heuristic.
type VisibilitySettings struct {
	MonthAltitude float64 `mapstructure:"monthaltitude"` // minimum midnight altitude in degrees for a month to qualify
}

// Settings is the root configuration structure.
type Settings struct {
	Debug      bool // true to enable debug level logging
	Main       MainSettings
	Library    LibrarySettings
	Observer   ObserverSettings
	Visibility VisibilitySettings
}

// HasObserver reports whether an observing site has been configured.
// A zero/zero location is treated as unset; the visibility engine stays
// neutral without one.
func (s *Settings) HasObserver() bool {
	return s.Observer.Latitude != 0 || s.Observer.Longitude != 0
}

// ScannedDirs returns every folder a library scan may walk: all per-catalog
// image folders plus the master folder.
func (s *Settings) ScannedDirs() []string {
	var dirs []string
	for i := range s.Library.Catalogs {
		dirs = append(dirs, s.Library.Catalogs[i].ImageDirs...)
	}
	if s.Library.MasterDir != "" {
		dirs = append(dirs, s.Library.MasterDir)
	}
	return dirs
}

// CatalogByName returns the catalog config with the given name, or nil.
func (s *Settings) CatalogByName(name string) *CatalogConfig {
	for i := range s.Library.Catalogs {
		if s.Library.Catalogs[i].Name == name {
			return &s.Library.Catalogs[i]
		}
	}
	return nil
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Set default values for each configuration parameter
	// function defined in defaults.go
	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create config with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig creates a default config file and writes it to the default config path
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")
	defaultConfig := getDefaultConfig()

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("Error reading embedded config file: %v", err)
	}
	return string(data)
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, initializing it if necessary
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// SaveSettings saves the current settings to the configuration file.
// It uses SaveYAMLConfig to handle the atomic write process.
func SaveSettings() error {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()

	if settingsInstance == nil {
		return errors.Newf("no settings loaded, nothing to save").
			Category(errors.CategoryState).
			Build()
	}
	settingsCopy := *settingsInstance

	configPath, err := FindConfigFile()
	if err != nil {
		return fmt.Errorf("error finding config file: %w", err)
	}

	if err := SaveYAMLConfig(configPath, &settingsCopy); err != nil {
		return fmt.Errorf("error saving config: %w", err)
	}

	return nil
}

// FindConfigFile locates the active config.yaml on the default config paths.
func FindConfigFile() (string, error) {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		configPath := filepath.Join(path, "config.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
	}
	return "", errors.Newf("config file not found in default paths").
		Category(errors.CategoryConfiguration).
		Build()
}

// SaveYAMLConfig updates the YAML configuration file with new settings.
// It overwrites the existing file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	// Write to a temporary file first to ensure an atomic replace
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	// Ensure the temporary file is removed in case of any failure
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	// Rename is atomic on most filesystems; fall back to copy & delete when
	// the temp directory sits on a different filesystem
	if err := os.Rename(tempFileName, configPath); err != nil {
		if err := moveFile(tempFileName, configPath); err != nil {
			return fmt.Errorf("error copying config file: %w", err)
		}
	}

	return nil
}
