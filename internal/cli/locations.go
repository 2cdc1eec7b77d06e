package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(locationsCmd)
}

var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "List approved location options",
	Long:  "Fetch the external location taxonomy, filtered to approved entries. The result is cached for the life of the process.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()
		options, err := client.LocationOptions(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to fetch location options: %w", err)
		}

		if IsJSONOutput() {
			return WriteOutput(os.Stdout, options)
		}

		writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(writer, "VALUE\tLABEL")
		for _, option := range options {
			fmt.Fprintf(writer, "%s\t%s\n", option.Value, option.Label)
		}
		return writer.Flush()
	},
}
