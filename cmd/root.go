package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/deepsky-go/cmd/duplicates"
	"github.com/tphakala/deepsky-go/cmd/months"
	"github.com/tphakala/deepsky-go/cmd/observer"
	"github.com/tphakala/deepsky-go/cmd/scan"
	"github.com/tphakala/deepsky-go/cmd/sortcmd"
	"github.com/tphakala/deepsky-go/internal/conf"
	"github.com/tphakala/deepsky-go/internal/logging"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "deepsky",
		Short: "Deep-sky image library catalog engine",
		Long: `deepsky keeps an astrophotography image library aligned with the Messier,
NGC, IC and Caldwell catalogs: it scans image folders, resolves object IDs
from filenames, finds duplicates and suggests what to capture next.`,
		SilenceUsage: true,
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(
		scan.Command(settings),
		duplicates.Command(settings),
		sortcmd.Command(settings),
		months.Command(settings),
		observer.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if viper.GetBool("debug") {
			settings.Debug = true
		}
		if settings.Debug {
			logging.SetLevel(slog.LevelDebug)
		}
		return nil
	}

	return rootCmd
}

// setupFlags binds the global flags to viper so command-line arguments take
// precedence over the configuration file.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "Enable debug output")

	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logging.Error("failed to bind debug flag", "error", err)
	}
}
