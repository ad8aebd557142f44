package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/scanline/internal/db"
	"github.com/banshee-data/scanline/internal/lidar/monitor"
	"github.com/banshee-data/scanline/internal/lidar/storage/sqlite"
)

func newRunsCmd(a *app) *cobra.Command {
	var (
		dbPath string
		server string
		limit  int
		remove string
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored segmentation runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			out := cmd.OutOrStdout()

			if server != "" {
				client := monitor.NewClient(nil, server)
				if remove != "" {
					if err := client.DeleteRun(cmd.Context(), remove); err != nil {
						return err
					}
					fmt.Fprintf(out, "deleted run %s\n", remove)
					return nil
				}
				list, err := client.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				printRuns(out, list.Runs)
				return nil
			}

			database, err := db.NewDB(dbPath)
			if err != nil {
				return err
			}
			defer database.Close()
			store := sqlite.NewRunStore(database.DB)

			if remove != "" {
				if err := store.DeleteRun(remove); err != nil {
					return fmt.Errorf("delete run %s: %w", remove, err)
				}
				fmt.Fprintf(out, "deleted run %s\n", remove)
				return nil
			}
			runs, err := store.ListRuns(limit)
			if err != nil {
				return err
			}
			printRuns(out, runs)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "scanline.db", "SQLite run store")
	cmd.Flags().StringVar(&server, "server", "", "List runs from a running scanline server instead")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	cmd.Flags().StringVar(&remove, "delete", "", "Delete the run with this ID instead of listing")
	return cmd
}

func printRuns(w io.Writer, runs []*sqlite.ScanRun) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tCREATED\tSENSOR\tPOINTS\tSEGMENTS\tTHRESHOLD\tDURATION")
	for _, r := range runs {
		created := time.Unix(0, r.CreatedAtNanos).UTC().Format(time.RFC3339)
		sensor := r.SensorID
		if sensor == "" {
			sensor = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%.3f\t%v\n",
			r.RunID, created, sensor, r.PointCount, r.SegmentCount, r.Threshold,
			time.Duration(r.DurationMicros)*time.Microsecond)
	}
	tw.Flush()
}
