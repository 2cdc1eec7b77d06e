package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/osm-exports/exportctl/internal/db"
)

// bannerText is the informational notice shown until dismissed.
const bannerText = "We have recently upgraded from OAuth 1.0 to 2.0. Please log out and log in again before use."

func init() {
	rootCmd.AddCommand(bannerCmd)
	bannerCmd.AddCommand(bannerShowCmd)
	bannerCmd.AddCommand(bannerDismissCmd)
	bannerCmd.AddCommand(bannerResetCmd)
}

var bannerCmd = &cobra.Command{
	Use:   "banner",
	Short: "Manage the informational banner",
	Long:  "Show, dismiss, or reset the informational banner. The dismissed flag persists across sessions until reset.",
}

var bannerShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the banner unless it was dismissed",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		dismissed, err := newPrefs(database).BannerDismissed(cmd.Context())
		if err != nil {
			return err
		}
		if dismissed {
			return nil
		}
		fmt.Fprintln(os.Stdout, bannerText)
		return nil
	},
}

var bannerDismissCmd = &cobra.Command{
	Use:   "dismiss",
	Short: "Dismiss the banner",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		return newPrefs(database).SetBannerDismissed(cmd.Context(), true)
	},
}

var bannerResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the dismissed flag",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		return newPrefs(database).SetBannerDismissed(cmd.Context(), false)
	},
}

// newPrefs wraps the preferences repository constructor for command bodies.
func newPrefs(database *db.DB) *db.PrefsRepository {
	return db.NewPrefsRepository(database)
}
