package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/scanline/internal/db"
	"github.com/banshee-data/scanline/internal/lidar/monitor"
	"github.com/banshee-data/scanline/internal/lidar/pipeline"
	"github.com/banshee-data/scanline/internal/lidar/storage/sqlite"
	"github.com/banshee-data/scanline/internal/monitoring"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		listen        string
		dbPath        string
		statsInterval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve segmentation, stored runs and charts over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, closeDB, err := a.newWebServer(listen, dbPath, statsInterval)
			if err != nil {
				return err
			}
			defer closeDB()
			return ws.Start(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&listen, "listen", ":8082", "HTTP listen address")
	cmd.Flags().StringVar(&dbPath, "db", "scanline.db", "SQLite run store (empty disables storage)")
	cmd.Flags().DurationVar(&statsInterval, "stats-interval", time.Minute, "Throughput logging period (0 disables)")
	return cmd
}

// newWebServer builds the server from the tuning config. The returned func
// closes the database, if one was opened.
func (a *app) newWebServer(listen, dbPath string, statsInterval time.Duration) (*monitor.WebServer, func(), error) {
	cfg := monitor.WebServerConfig{
		Address:       listen,
		NearestK:      a.cfg.GetNearestK(),
		StatsInterval: statsInterval,
	}
	cfg.ChartOptions = monitor.DefaultChartOptions()
	cfg.ChartOptions.AssetsHost = a.cfg.GetChartAssetsHost()

	pcfg := pipeline.SegmentationPipelineConfig{
		DefaultThreshold: a.cfg.GetSplitThreshold(),
		MaxDepth:         a.cfg.GetMaxSplitDepth(),
		Workers:          a.cfg.GetBatchWorkers(),
		Timeout:          a.cfg.GetSplitTimeout(),
	}

	closeDB := func() {}
	if dbPath != "" {
		database, err := db.NewDB(dbPath)
		if err != nil {
			return nil, nil, err
		}
		closeDB = func() {
			if err := database.Close(); err != nil {
				monitoring.Logf("failed to close database: %v", err)
			}
		}
		store := sqlite.NewRunStore(database.DB)
		pcfg.Sink = store
		cfg.Store = store
		cfg.DB = database
		monitoring.Logf("storing runs in %s", dbPath)
	}
	cfg.Pipeline = pipeline.NewSegmentationPipeline(pcfg)

	return monitor.NewWebServer(cfg), closeDB, nil
}
