// Package observer provides the observing-site command.
package observer

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/deepsky-go/internal/conf"
)

// Command creates the observer command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "observer",
		Short: "Show or update the observing site",
		Long: `Observer prints the configured observing site. With flags it updates the
site and saves the configuration file, so visibility calculations use the
new location on the next run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runObserver(cmd, settings)
		},
	}

	cmd.Flags().Float64("latitude", settings.Observer.Latitude, "Site latitude in degrees, positive north")
	cmd.Flags().Float64("longitude", settings.Observer.Longitude, "Site longitude in degrees, positive east")
	cmd.Flags().Float64("elevation", settings.Observer.Elevation, "Site elevation in meters")

	return cmd
}

func runObserver(cmd *cobra.Command, settings *conf.Settings) error {
	if settings == nil {
		settings = conf.Setting()
	}

	changed := false
	if cmd.Flags().Changed("latitude") {
		settings.Observer.Latitude, _ = cmd.Flags().GetFloat64("latitude")
		changed = true
	}
	if cmd.Flags().Changed("longitude") {
		settings.Observer.Longitude, _ = cmd.Flags().GetFloat64("longitude")
		changed = true
	}
	if cmd.Flags().Changed("elevation") {
		settings.Observer.Elevation, _ = cmd.Flags().GetFloat64("elevation")
		changed = true
	}

	if changed {
		if err := conf.ValidateSettings(settings); err != nil {
			return err
		}
		if err := conf.SaveSettings(); err != nil {
			return err
		}
		fmt.Println("Observing site saved")
	}

	if !settings.HasObserver() {
		fmt.Println("No observing site configured; visibility calculations stay neutral")
		return nil
	}
	fmt.Printf("Observing site: latitude %.4f, longitude %.4f, elevation %.0f m\n",
		settings.Observer.Latitude, settings.Observer.Longitude, settings.Observer.Elevation)
	return nil
}
