// Package sortcmd provides the master-folder sorting command.
package sortcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/deepsky-go/internal/conf"
	"github.com/tphakala/deepsky-go/internal/duplicates"
	"github.com/tphakala/deepsky-go/internal/library"
	"github.com/tphakala/deepsky-go/internal/logging"
)

// Command creates the sort command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sort",
		Short: "Move resolved master-folder images into their catalog folders",
		Long: `Sort scans the master folder and moves every image whose filename resolves
to a known object into the image folder of that object's catalog. Moves are
copy-verified and never overwrite existing files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSort(cmd, settings)
		},
	}
	return cmd
}

func runSort(cmd *cobra.Command, settings *conf.Settings) error {
	lib, err := library.New(settings, logging.ForService("library"))
	if err != nil {
		return err
	}

	result, err := lib.Scan(cmd.Context(), nil)
	if err != nil {
		return err
	}

	report, err := lib.AutoSort(cmd.Context(), result)
	if err != nil {
		return err
	}

	fmt.Printf("Sorted: %d moved, %d skipped, %d failed\n",
		report.Moved, report.Skipped, report.Failed)
	for _, res := range report.Results {
		switch res.Outcome {
		case duplicates.OutcomeMoved:
			fmt.Printf("  %s -> %s\n", res.Source, res.Target)
		case duplicates.OutcomeFailed:
			fmt.Printf("  failed: %s (%s)\n", res.Source, res.Error)
		}
	}
	return nil
}
