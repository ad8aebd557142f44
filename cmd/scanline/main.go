// Command scanline splits 2D laser scans into straight line segments. It
// segments JSON / JSON Lines scan recordings from the command line, serves
// the same operation over HTTP, and manages the SQLite run store.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/banshee-data/scanline/internal/config"
	"github.com/banshee-data/scanline/internal/fsutil"
	"github.com/banshee-data/scanline/internal/lidar"
	"github.com/banshee-data/scanline/internal/monitoring"
	"github.com/banshee-data/scanline/internal/version"
)

// app carries state shared by the subcommands.
type app struct {
	fs fsutil.FileSystem

	configPath string
	logLevel   string

	cfg *config.TuningConfig
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "scanline",
		Short:         "Split 2D laser scans into line segments",
		Long:          `scanline projects planar rangefinder scans into Cartesian points and recursively splits them into straight line segments.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Tuning config JSON file (defaults are used when empty)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "ops", "Layer log level: off, ops, diag or trace")

	root.AddCommand(
		newSegmentCmd(a),
		newServeCmd(a),
		newRunsCmd(a),
		newMigrateCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads the tuning config and routes the layer log streams.
func (a *app) setup(logOut io.Writer) error {
	w, err := lidar.LogWritersForLevel(a.logLevel, logOut)
	if err != nil {
		return err
	}
	lidar.SetLogWriters(w)

	a.cfg = config.DefaultTuningConfig()
	if a.configPath != "" {
		loaded, err := config.LoadTuningConfig(a.configPath)
		if err != nil {
			return err
		}
		a.cfg.Merge(loaded)
		monitoring.Logf("loaded tuning config from %s", a.configPath)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(&app{fs: fsutil.OSFileSystem{}})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
