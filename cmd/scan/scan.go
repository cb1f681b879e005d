// Package scan provides the library scan command.
package scan

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/deepsky-go/internal/conf"
	"github.com/tphakala/deepsky-go/internal/library"
	"github.com/tphakala/deepsky-go/internal/logging"
	"github.com/tphakala/deepsky-go/internal/visibility"
)

// Command creates the scan command.
func Command(settings *conf.Settings) *cobra.Command {
	var listObjects bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the image library and report capture status",
		Long: `Scan walks every configured image folder, matches filenames against the
catalog index and reports which objects are captured, missing or suggested
for the current month.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, settings, listObjects)
		},
	}

	cmd.Flags().BoolVarP(&listObjects, "objects", "l", false, "List the status of every catalog object")

	return cmd
}

func runScan(cmd *cobra.Command, settings *conf.Settings, listObjects bool) error {
	lib, err := library.New(settings, logging.ForService("library"))
	if err != nil {
		return err
	}

	result, err := lib.Scan(cmd.Context(), nil)
	if err != nil {
		return err
	}

	fmt.Printf("Scanned %d files, %d resolved, %d unresolved\n",
		len(result.Files), result.ResolvedCount, len(result.Unresolved))
	for _, fe := range result.FolderErrors {
		fmt.Printf("  folder skipped: %s (%v)\n", fe.Folder, fe.Err)
	}

	statuses := lib.Statuses(result, time.Now())
	var captured, missing, suggested int
	for _, st := range statuses {
		switch st.Status {
		case visibility.StatusCaptured:
			captured++
		case visibility.StatusSuggested:
			suggested++
		default:
			missing++
		}
	}
	fmt.Printf("Objects: %d captured, %d missing, %d suggested this month\n",
		captured, missing, suggested)

	if listObjects {
		for _, st := range statuses {
			months := st.BestMonths.String()
			if months == "" {
				months = "-"
			}
			fmt.Printf("  %-10s %-10s images=%-3d best=%s\n",
				st.Object.ID, st.Status, st.ImageCount, months)
		}
	}

	if settings.Library.AutoSort && settings.Library.MasterDir != "" {
		report, err := lib.AutoSort(cmd.Context(), result)
		if err != nil {
			return err
		}
		fmt.Printf("Auto-sort: %d moved, %d skipped, %d failed\n",
			report.Moved, report.Skipped, report.Failed)
	}

	return nil
}
