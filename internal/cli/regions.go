package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/osm-exports/exportctl/internal/controller"
	"github.com/osm-exports/exportctl/internal/models"
	"github.com/osm-exports/exportctl/internal/store"
)

var (
	regionsListPage    int
	regionsListFilters []string
	regionsListSave    bool

	regionCreateName    string
	regionCreateProject string
	regionCreateDesc    string
	regionCreateFile    string
	regionCreatePeriod  string
	regionCreateHour    int
	regionCreateFormats []string
	regionCreateGroup   int64

	regionDeleteYes bool
	regionRunWatch  bool
)

func init() {
	rootCmd.AddCommand(regionsCmd)
	regionsCmd.AddCommand(regionsListCmd)
	regionsCmd.AddCommand(regionsShowCmd)
	regionsCmd.AddCommand(regionsCreateCmd)
	regionsCmd.AddCommand(regionsDeleteCmd)
	regionsCmd.AddCommand(regionsRunCmd)

	regionsListCmd.Flags().IntVar(&regionsListPage, "page", 1, "1-based page number")
	regionsListCmd.Flags().StringSliceVar(&regionsListFilters, "filter", nil, "filter as key=value (repeatable)")
	regionsListCmd.Flags().BoolVar(&regionsListSave, "save-filters", false, "persist the filters for future invocations")

	regionsCreateCmd.Flags().StringVar(&regionCreateName, "name", "", "region name (required)")
	regionsCreateCmd.Flags().StringVar(&regionCreateProject, "project", "", "project name")
	regionsCreateCmd.Flags().StringVar(&regionCreateDesc, "description", "", "region description")
	regionsCreateCmd.Flags().StringVar(&regionCreateFile, "feature-selection", "", "path to a feature-selection YAML file (defaults to the starter document)")
	regionsCreateCmd.Flags().StringVar(&regionCreatePeriod, "period", string(models.PeriodDaily), "schedule period")
	regionsCreateCmd.Flags().IntVar(&regionCreateHour, "hour", 0, "schedule hour (UTC, 0-23)")
	regionsCreateCmd.Flags().StringSliceVar(&regionCreateFormats, "format", nil, "export format (repeatable; defaults to shp,geopackage)")
	regionsCreateCmd.Flags().Int64Var(&regionCreateGroup, "group", 0, "partner organization id")
	_ = regionsCreateCmd.MarkFlagRequired("name")

	regionsDeleteCmd.Flags().BoolVar(&regionDeleteYes, "yes", false, "confirm the deletion")
	regionsRunCmd.Flags().BoolVar(&regionRunWatch, "watch", false, "poll run status until the run finishes")
}

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Manage export regions",
	Long:  "List, inspect, create, delete, and run scheduled export regions.",
}

var regionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List export regions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		filters, err := resolveFilters(ctx)
		if err != nil {
			return err
		}

		client := newClient()
		page, err := client.ListRegions(ctx, filters, regionsListPage)
		if err != nil {
			return fmt.Errorf("failed to list regions: %w", err)
		}

		if IsJSONOutput() {
			return WriteOutput(os.Stdout, page)
		}

		if len(page.Results) == 0 {
			fmt.Fprintln(os.Stdout, "No export regions found.")
			return nil
		}

		writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(writer, "ID\tNAME\tSCHEDULE\tLAST RUN\tNEXT RUN")
		for _, region := range page.Results {
			fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%s\n",
				region.ID,
				region.Name,
				formatSchedule(region),
				formatRunTime(region.LastRun),
				formatRunTime(region.NextRun),
			)
		}
		if err := writer.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Page %d, %d region(s) total.\n", regionsListPage, page.Count)
		return nil
	},
}

var regionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one export region and its run history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseRegionID(args[0])
		if err != nil {
			return err
		}

		client := newClient()
		region, err := client.GetRegion(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to fetch region %d: %w", id, err)
		}

		runs, err := client.ListRuns(ctx, region.JobUID)
		if err != nil {
			return fmt.Errorf("failed to fetch runs: %w", err)
		}

		if IsJSONOutput() {
			return WriteOutput(os.Stdout, struct {
				Region *models.ExportRegion `json:"region"`
				Runs   []*models.Run        `json:"runs"`
			}{region, runs})
		}

		printRegion(region)
		printRunHistory(runs)
		return nil
	},
}

var regionsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new export region",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ctrl, _, _ := newController()
		if err := ctrl.Activate(ctx, nil); err != nil {
			return err
		}
		defer ctrl.Deactivate()

		f := ctrl.Form()
		f.SetName(regionCreateName)
		if regionCreateProject != "" {
			f.SetProject(regionCreateProject)
		}
		if regionCreateDesc != "" {
			f.SetDescription(regionCreateDesc)
		}
		if regionCreateFile != "" {
			doc, err := os.ReadFile(regionCreateFile)
			if err != nil {
				return fmt.Errorf("read feature selection: %w", err)
			}
			f.SetFeatureSelection(string(doc))
		}
		f.SetSchedule(models.SchedulePeriod(regionCreatePeriod), regionCreateHour)
		for _, format := range regionCreateFormats {
			f.SetFormat(format, true)
		}
		if regionCreateGroup != 0 {
			group := regionCreateGroup
			f.SetGroup(&group)
		}

		if err := ctrl.Submit(ctx); err != nil {
			return submitFailure(f.SubmitError(), f.FieldErrors(), err)
		}

		fmt.Fprintf(os.Stdout, "Created export region %d.\n", *f.ID())
		return nil
	},
}

var regionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an export region",
	Long:  "Delete an export region. Requires --yes; without it the deletion is only staged and no request is issued.",
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

		ctrl.RequestDelete()
		if !regionDeleteYes {
			ctrl.CancelDelete()
			fmt.Fprintln(os.Stdout, "Deletion requires confirmation; re-run with --yes.")
			return nil
		}

		if err := ctrl.ConfirmDelete(ctx); err != nil {
			return fmt.Errorf("failed to delete region %d: %w", id, err)
		}
		fmt.Fprintf(os.Stdout, "Deleted export region %d.\n", id)
		return nil
	},
}

var regionsRunCmd = &cobra.Command{
	Use:   "run <id>",
	Short: "Trigger a run for an export region",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseRegionID(args[0])
		if err != nil {
			return err
		}

		ctrl, _, runs := newController()
		if err := ctrl.Activate(ctx, &id); err != nil {
			return fmt.Errorf("failed to fetch region %d: %w", id, err)
		}
		defer ctrl.Deactivate()

		if err := ctrl.TriggerRun(ctx); err != nil {
			if errors.Is(err, controller.ErrRunInFlight) {
				return fmt.Errorf("a run is already in flight for region %d", id)
			}
			return fmt.Errorf("failed to trigger run: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Run triggered for region %d.\n", id)

		if !regionRunWatch {
			return nil
		}
		return watchRuns(ctx, ctrl, runs, os.Stdout)
	},
}

// newController wires a controller over fresh stores and the configured
// client.
func newController() (*controller.Controller, *store.RegionStore, *store.RunStore) {
	regions := store.NewRegionStore()
	runs := store.NewRunStore()
	ctrl := controller.New(newClient(), regions, runs,
		controller.WithPollInterval(loadedConfig.Poll.Interval),
	)
	return ctrl, regions, runs
}

// resolveFilters combines persisted filters with --filter flags, persisting
// the result when --save-filters is set.
func resolveFilters(ctx context.Context) (map[string]string, error) {
	database, err := openDatabase()
	if err != nil {
		return nil, err
	}
	defer database.Close()

	prefs := newPrefs(database)
	filters, err := prefs.RegionFilters(ctx)
	if err != nil {
		return nil, err
	}

	for _, pair := range regionsListFilters {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid filter %q, expected key=value", pair)
		}
		filters[key] = value
	}

	if regionsListSave {
		if err := prefs.SetRegionFilters(ctx, filters); err != nil {
			return nil, err
		}
	}
	return filters, nil
}

func parseRegionID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid region id %q", arg)
	}
	return id, nil
}

func submitFailure(summary string, fieldErrors map[string][]string, err error) error {
	if summary == "" {
		return err
	}
	var details []string
	for field, messages := range fieldErrors {
		if field == "non_field_errors" {
			continue
		}
		details = append(details, fmt.Sprintf("%s: %s", field, strings.Join(messages, "; ")))
	}
	if len(details) > 0 {
		return fmt.Errorf("%s (%s)", summary, strings.Join(details, ", "))
	}
	return errors.New(summary)
}

func printRegion(region *models.ExportRegion) {
	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(writer, "ID:\t%d\n", region.ID)
	fmt.Fprintf(writer, "Name:\t%s\n", region.Name)
	if region.ProjectName != "" {
		fmt.Fprintf(writer, "Project:\t%s\n", region.ProjectName)
	}
	if region.Description != "" {
		fmt.Fprintf(writer, "Description:\t%s\n", region.Description)
	}
	fmt.Fprintf(writer, "Job UID:\t%s\n", region.JobUID)
	fmt.Fprintf(writer, "Schedule:\t%s\n", formatSchedule(region))
	fmt.Fprintf(writer, "Formats:\t%s\n", strings.Join(region.ExportFormats, ", "))
	fmt.Fprintf(writer, "Last run:\t%s\n", formatRunTime(region.LastRun))
	fmt.Fprintf(writer, "Next run:\t%s\n", formatRunTime(region.NextRun))
	writer.Flush()
}

// printRunHistory renders up to ten most recent runs, like the service UI.
func printRunHistory(runs []*models.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "\nThis regional export has never been run.")
		return
	}

	if len(runs) > 10 {
		runs = runs[:10]
	}

	fmt.Fprintln(os.Stdout, "\nRun history:")
	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "STARTED\tSTATUS\tELAPSED\tSIZE")
	for _, run := range runs {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
			run.StartedAt.Local().Format(time.RFC822),
			run.Status,
			run.FormatElapsed(),
			models.PrettyBytes(run.SizeBytes),
		)
	}
	writer.Flush()
}

func formatSchedule(region *models.ExportRegion) string {
	if region.SchedulePeriod == models.PeriodDisabled {
		return "disabled"
	}
	return fmt.Sprintf("%s at %02d:00 UTC", region.SchedulePeriod, region.ScheduleHour)
}

func formatRunTime(t *time.Time) string {
	if t == nil {
		return "Never"
	}
	return t.Local().Format(time.RFC822)
}
