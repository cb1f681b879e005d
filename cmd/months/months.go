// Package months provides the best-month lookup command.
package months

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/deepsky-go/internal/catalog"
	"github.com/tphakala/deepsky-go/internal/conf"
	"github.com/tphakala/deepsky-go/internal/errors"
	"github.com/tphakala/deepsky-go/internal/library"
	"github.com/tphakala/deepsky-go/internal/logging"
	"github.com/tphakala/deepsky-go/internal/visibility"
)

// Command creates the months command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "months <object-id>",
		Short: "Show the best months to capture a catalog object",
		Long: `Months looks up a catalog object and reports the months in which it climbs
high enough above the horizon at the configured observing site, plus
tonight's dark imaging window.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonths(settings, args[0])
		},
	}
	return cmd
}

func runMonths(settings *conf.Settings, objectID string) error {
	lib, err := library.New(settings, logging.ForService("library"))
	if err != nil {
		return err
	}

	id := catalog.CanonicalID(objectID)
	obj, ok := lib.Index.Get(id)
	if !ok {
		return errors.Newf("object %q is not in any configured catalog", objectID).
			Category(errors.CategoryNotFound).
			Build()
	}

	fmt.Printf("%s (%s)\n", obj.DisplayName(), obj.Catalog)
	if obj.Type != "" {
		fmt.Printf("  type: %s\n", obj.Type)
	}
	if obj.HasCoordinates() {
		fmt.Printf("  RA %.3f deg, Dec %+.3f deg\n", *obj.RADeg, *obj.DecDeg)
	}

	if !settings.HasObserver() {
		fmt.Println("  no observing site configured, visibility unavailable")
		return nil
	}

	months := lib.Sky.BestMonthsFor(obj)
	if months.Empty() {
		fmt.Printf("  never reaches %.0f deg altitude from this site\n", lib.Sky.MinAltitude)
	} else {
		fmt.Printf("  best months: %s\n", formatMonths(months))
	}

	sun := visibility.NewSunCalc(settings.Observer.Latitude, settings.Observer.Longitude)
	now := time.Now()
	sunset, sunsetErr := sun.GetSunsetTime(now)
	sunrise, sunriseErr := sun.GetSunriseTime(now.AddDate(0, 0, 1))
	if sunsetErr == nil && sunriseErr == nil {
		fmt.Printf("  sun sets %s, rises %s\n", sunset.Format("15:04"), sunrise.Format("15:04"))
	}
	if dusk, dawn, err := sun.DarkWindow(now); err == nil {
		fmt.Printf("  dark window tonight: %s to %s\n",
			dusk.Format("15:04"), dawn.Format("15:04"))
	}

	return nil
}

func formatMonths(set visibility.MonthSet) string {
	out := ""
	for _, m := range set.Months() {
		if out != "" {
			out += ", "
		}
		out += m.String()
	}
	return out
}
