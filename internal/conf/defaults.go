// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// DefaultMonthAltitude is the minimum altitude in degrees an object must reach
// at the monthly midnight sample for that month to count as best visibility.
// The value matches the heuristic the catalog data was built with; it is not
// an ephemeris-grade cutoff.
const DefaultMonthAltitude = 25.0

// DefaultImageExtensions is the accepted image file extension whitelist.
var DefaultImageExtensions = []string{".jpg", ".jpeg", ".png", ".tif", ".tiff", ".webp", ".bmp"}

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "DeepSky-Go")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/deepsky.log")

	viper.SetDefault("library.masterdir", "")
	viper.SetDefault("library.archivedir", "")
	viper.SetDefault("library.autosort", false)
	viper.SetDefault("library.extensions", DefaultImageExtensions)
	viper.SetDefault("library.catalogs", []map[string]any{
		{"name": "Messier", "metadatafile": "data/messier_metadata.json", "imagedirs": []string{}},
		{"name": "NGC", "metadatafile": "data/ngc_metadata.json", "imagedirs": []string{}},
		{"name": "IC", "metadatafile": "data/ic_metadata.json", "imagedirs": []string{}},
		{"name": "Caldwell", "metadatafile": "data/caldwell_metadata.json", "imagedirs": []string{}},
		{"name": "Solar System", "metadatafile": "data/solar_metadata.json", "imagedirs": []string{}},
	})

	viper.SetDefault("observer.latitude", 0.000)
	viper.SetDefault("observer.longitude", 0.000)
	viper.SetDefault("observer.elevation", 0.0)

	viper.SetDefault("visibility.monthaltitude", DefaultMonthAltitude)
}
