// Package duplicates provides the duplicate detection command.
package duplicates

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/deepsky-go/internal/conf"
	dup "github.com/tphakala/deepsky-go/internal/duplicates"
	"github.com/tphakala/deepsky-go/internal/library"
	"github.com/tphakala/deepsky-go/internal/logging"
)

// Command creates the duplicates command.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		archive bool
		output  string
	)

	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Find byte-identical images across the library",
		Long: `Duplicates hashes every image in the library and groups byte-identical
files. With --archive, every non-keeper duplicate is moved into the
configured archive folder; the keeper of each group never moves.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDuplicates(cmd, settings, archive, output)
		},
	}

	cmd.Flags().BoolVar(&archive, "archive", false, "Move non-keeper duplicates to the archive folder")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the duplicate report to this file (plus a .json sibling)")

	return cmd
}

func runDuplicates(cmd *cobra.Command, settings *conf.Settings, archive bool, output string) error {
	lib, err := library.New(settings, logging.ForService("library"))
	if err != nil {
		return err
	}

	result, err := lib.Scan(cmd.Context(), nil)
	if err != nil {
		return err
	}

	groups, err := lib.FindDuplicates(cmd.Context(), result)
	if err != nil {
		return err
	}

	var moveReport *dup.MoveReport
	if archive && len(groups) > 0 {
		moveReport, err = lib.Archive(cmd.Context(), groups)
		if err != nil {
			return err
		}
	}

	report := dup.NewReport(result.RunID, groups, moveReport)
	fmt.Print(report.Format())
	fmt.Printf("Hash cache: %d hits, %d misses\n", lib.Hasher.Hits(), lib.Hasher.Misses())

	if output != "" {
		if err := report.Write(output); err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", output)
	}

	return nil
}
