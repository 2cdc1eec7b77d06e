package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/osm-exports/exportctl/internal/models"
)

var (
	regionUpdateName    string
	regionUpdateProject string
	regionUpdateDesc    string
	regionUpdateFile    string
	regionUpdatePeriod  string
	regionUpdateHour    int
)

func init() {
	regionsCmd.AddCommand(regionsUpdateCmd)

	regionsUpdateCmd.Flags().StringVar(&regionUpdateName, "name", "", "new region name")
	regionsUpdateCmd.Flags().StringVar(&regionUpdateProject, "project", "", "new project name")
	regionsUpdateCmd.Flags().StringVar(&regionUpdateDesc, "description", "", "new description")
	regionsUpdateCmd.Flags().StringVar(&regionUpdateFile, "feature-selection", "", "path to a feature-selection YAML file")
	regionsUpdateCmd.Flags().StringVar(&regionUpdatePeriod, "period", "", "new schedule period")
	regionsUpdateCmd.Flags().IntVar(&regionUpdateHour, "hour", -1, "new schedule hour (UTC, 0-23)")
}

var regionsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update an export region",
	Long:  "Fetch a region, apply the given field edits on top of its current values, and save. Fields not passed keep their server-side values.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseRegionID(args[0])
		if err != nil {
			return err
		}

		ctrl, _, _ := newController()
		if err := ctrl.Activate(ctx, &id); err != nil {
			return fmt.Errorf("failed to fetch region %d: %w", id, err)
		}
		defer ctrl.Deactivate()

		f := ctrl.Form()
		if regionUpdateName != "" {
			f.SetName(regionUpdateName)
		}
		if regionUpdateProject != "" {
			f.SetProject(regionUpdateProject)
		}
		if regionUpdateDesc != "" {
			f.SetDescription(regionUpdateDesc)
		}
		if regionUpdateFile != "" {
			doc, err := os.ReadFile(regionUpdateFile)
			if err != nil {
				return fmt.Errorf("read feature selection: %w", err)
			}
			f.SetFeatureSelection(string(doc))
		}
		if regionUpdatePeriod != "" || regionUpdateHour >= 0 {
			values := f.Values()
			period := values.SchedulePeriod
			hour := values.ScheduleHour
			if regionUpdatePeriod != "" {
				period = models.SchedulePeriod(regionUpdatePeriod)
			}
			if regionUpdateHour >= 0 {
				hour = regionUpdateHour
			}
			f.SetSchedule(period, hour)
		}

		if err := ctrl.Submit(ctx); err != nil {
			return submitFailure(f.SubmitError(), f.FieldErrors(), err)
		}

		fmt.Fprintf(os.Stdout, "Updated export region %d.\n", id)
		return nil
	},
}
