package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/osm-exports/exportctl/internal/controller"
	"github.com/osm-exports/exportctl/internal/models"
	"github.com/osm-exports/exportctl/internal/store"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch <id>",
	Short: "Watch a region's active run until it finishes",
	Long:  "Poll run status for a region's job at the configured interval until the most recent run reaches a terminal state.",
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

		return watchRuns(ctx, ctrl, runs, cmd.OutOrStdout())
	},
}

// watchRuns blocks until the active job's latest run is terminal, printing
// status transitions as the poller observes them.
func watchRuns(ctx context.Context, ctrl *controller.Controller, runs *store.RunStore, out io.Writer) error {
	region := ctrl.CurrentRegion()
	if region == nil {
		return controller.ErrNoActiveRegion
	}

	// The poller's first fetch may still be in flight; wait for it to land
	// before deciding the job has no history.
	deadline := time.Now().Add(5 * time.Second)
	for !runs.Seen(region.JobUID) && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}

	latest := runs.Latest(region.JobUID)
	if latest == nil {
		fmt.Fprintln(out, "This regional export has never been run.")
		return nil
	}
	if latest.Status.IsTerminal() {
		fmt.Fprintf(out, "Latest run %s: %s\n", latest.UID, latest.Status)
		return nil
	}

	fmt.Fprintf(out, "Run %s is %s; watching...\n", latest.UID, latest.Status)

	lastStatus := latest.Status
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		latest = runs.Latest(region.JobUID)
		if latest == nil {
			continue
		}
		if latest.Status != lastStatus {
			fmt.Fprintf(out, "Run %s: %s\n", latest.UID, latest.Status)
			lastStatus = latest.Status
		}
		if !ctrl.RunInFlight() && latest.Status.IsTerminal() {
			fmt.Fprintf(out, "Run %s finished: %s (%s, %s)\n",
				latest.UID, latest.Status, latest.FormatElapsed(), models.PrettyBytes(latest.SizeBytes))
			return nil
		}
	}
}
