package monitor

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/scanline/internal/config"
	"github.com/banshee-data/scanline/internal/db"
	"github.com/banshee-data/scanline/internal/httputil"
	"github.com/banshee-data/scanline/internal/lidar/l1scans"
	"github.com/banshee-data/scanline/internal/lidar/pipeline"
	"github.com/banshee-data/scanline/internal/lidar/segindex"
	"github.com/banshee-data/scanline/internal/lidar/storage/sqlite"
	"github.com/banshee-data/scanline/internal/monitoring"
	"github.com/banshee-data/scanline/internal/timeutil"
	"github.com/banshee-data/scanline/internal/version"
)

const (
	defaultRunLimit  = 20
	maxRunLimit      = 500
	defaultNearestK  = 5
	maxNearestK      = 100
	defaultBodyLimit = 16 << 20
	paramsBodyLimit  = 1 << 20
)

// WebServer exposes segmentation over HTTP: segment a posted scan, browse
// stored runs, query nearest segments and render charts.
type WebServer struct {
	address   string
	server    *http.Server
	pipeline  *pipeline.SegmentationPipeline
	store     *sqlite.RunStore
	db        *db.DB
	chartOpts ChartOptions
	nearestK  int
	bodyLimit int64
	stats     *SegmentStats
	statsTick time.Duration
	templates TemplateProvider
}

// WebServerConfig contains configuration options for the web server
type WebServerConfig struct {
	Address  string
	Pipeline *pipeline.SegmentationPipeline
	// Store backs the run endpoints. Nil disables them.
	Store *sqlite.RunStore
	// DB, when set, mounts the /debug/ admin routes.
	DB           *db.DB
	ChartOptions ChartOptions
	NearestK     int
	// MaxBodyBytes caps POSTed scans. Zero uses 16 MiB.
	MaxBodyBytes int64
	// StatsInterval, when > 0, logs throughput at this period while the
	// server runs.
	StatsInterval time.Duration
	// Clock drives uptime and throughput rates. Nil uses the real clock.
	Clock timeutil.Clock
	// Templates renders HTML pages. Nil uses the built-in templates.
	Templates TemplateProvider
}

// NewWebServer creates a new web server with the provided configuration
func NewWebServer(cfg WebServerConfig) *WebServer {
	ws := &WebServer{
		address:   cfg.Address,
		pipeline:  cfg.Pipeline,
		store:     cfg.Store,
		db:        cfg.DB,
		chartOpts: cfg.ChartOptions,
		nearestK:  cfg.NearestK,
		bodyLimit: cfg.MaxBodyBytes,
		stats:     NewSegmentStats(cfg.Clock),
		statsTick: cfg.StatsInterval,
		templates: cfg.Templates,
	}
	if ws.pipeline == nil {
		ws.pipeline = pipeline.NewSegmentationPipeline(pipeline.SegmentationPipelineConfig{})
	}
	if ws.chartOpts == (ChartOptions{}) {
		ws.chartOpts = DefaultChartOptions()
	}
	if ws.templates == nil {
		ws.templates = DefaultTemplates()
	}
	if ws.nearestK <= 0 {
		ws.nearestK = defaultNearestK
	}
	if ws.bodyLimit <= 0 {
		ws.bodyLimit = defaultBodyLimit
	}

	ws.server = &http.Server{
		Addr:              ws.address,
		Handler:           ws.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return ws
}

// Start serves until ctx is cancelled, then shuts down gracefully. It
// returns early if the listener fails.
func (ws *WebServer) Start(ctx context.Context) error {
	if ws.statsTick > 0 {
		go ws.logStatsLoop(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		monitoring.Logf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}

	monitoring.Logf("HTTP server routine stopped")
	return nil
}

func (ws *WebServer) logStatsLoop(ctx context.Context) {
	ticker := time.NewTicker(ws.statsTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ws.stats.LogStats()
		}
	}
}

// Stats returns the server's throughput counters.
func (ws *WebServer) Stats() *SegmentStats {
	return ws.stats
}

// Close stops the server immediately.
func (ws *WebServer) Close() error {
	return ws.server.Close()
}

// Handler returns the routed handler, for embedding or tests.
func (ws *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/{$}", ws.handleStatus)
	mux.HandleFunc("/api/lidar/segment", ws.handleSegment)
	mux.HandleFunc("/api/lidar/params", ws.handleParams)
	mux.HandleFunc("/api/lidar/runs", ws.handleRuns)
	mux.HandleFunc("/api/lidar/runs/{id}", ws.handleRun)
	mux.HandleFunc("/api/lidar/runs/{id}/nearest", ws.handleNearest)
	mux.HandleFunc("/runs", ws.handleRunsPage)
	mux.HandleFunc("/charts/segments", ws.handleSegmentsChart)
	mux.HandleFunc("/charts/segments.png", ws.handleSegmentsPNG)

	if ws.db != nil {
		ws.db.AttachAdminRoutes(mux)
	}

	return mux
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	params := ws.pipeline.Segmenter().GetParams()
	httputil.WriteJSONOK(w, map[string]interface{}{
		"service":    "scanline",
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
		"threshold":  params.Threshold,
		"max_depth":  params.MaxDepth,
		"store":      ws.store != nil,
		"uptime":     ws.stats.GetUptime().Round(time.Second).String(),
		"totals":     ws.stats.GetTotals(),
		"rates":      ws.stats.GetLatestSnapshot(),
	})
}

// handleSegment segments the JSON scan in the request body.
// Query params:
//
//	threshold (optional, metres; defaults to the configured threshold)
func (ws *WebServer) handleSegment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	scan, err := l1scans.Decode(http.MaxBytesReader(w, r.Body, ws.bodyLimit))
	if err != nil {
		ws.stats.AddRejected()
		httputil.BadRequest(w, err.Error())
		return
	}

	var result *pipeline.SegmentationResult
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		threshold, perr := parseFiniteFloat(raw)
		if perr != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid 'threshold' parameter: %v", perr))
			return
		}
		result, err = ws.pipeline.SegmentContext(r.Context(), scan, threshold)
	} else {
		result, err = ws.pipeline.SegmentDefault(r.Context(), scan)
	}
	if err != nil {
		if errors.Is(err, l1scans.ErrInvalidInput) {
			ws.stats.AddRejected()
			httputil.BadRequest(w, err.Error())
			return
		}
		monitoring.Logf("segment request failed: %v", err)
		httputil.InternalServerError(w, err.Error())
		return
	}

	ws.stats.AddResult(len(result.Cloud), len(result.Segments))
	httputil.WriteJSONOK(w, NewResultResponse(result, true))
}

// handleParams reports (GET) or updates (POST) the splitter parameters used
// when a request omits the threshold. POST takes a partial tuning config;
// only split_threshold and max_split_depth apply at runtime.
func (ws *WebServer) handleParams(w http.ResponseWriter, r *http.Request) {
	seg := ws.pipeline.Segmenter()
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, paramsBodyLimit))
		if err != nil {
			httputil.BadRequest(w, fmt.Sprintf("read body: %v", err))
			return
		}
		update, err := config.ParseTuningConfig(data)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		params := seg.GetParams()
		if update.SplitThreshold != nil {
			params.Threshold = *update.SplitThreshold
		}
		if update.MaxSplitDepth != nil {
			params.MaxDepth = *update.MaxSplitDepth
		}
		seg.SetParams(params)
		monitoring.Logf("split params set: threshold=%.4f max_depth=%d", params.Threshold, params.MaxDepth)
	default:
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, NewParamsResponse(seg.GetParams()))
}

// handleRuns lists stored runs, newest first.
// Query params:
//
//	limit (optional, default 20, max 500)
func (ws *WebServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !ws.requireStore(w) {
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	runs, err := ws.store.ListRuns(limit)
	if err != nil {
		monitoring.Logf("list runs failed: %v", err)
		httputil.InternalServerError(w, "failed to list runs")
		return
	}
	httputil.WriteJSONOK(w, RunListResponse{Runs: runs, Count: len(runs)})
}

// handleRun returns (GET) or deletes (DELETE) one stored run.
// Query params for GET:
//
//	points (optional, "false" omits the point cloud)
func (ws *WebServer) handleRun(w http.ResponseWriter, r *http.Request) {
	if !ws.requireStore(w) {
		return
	}
	runID := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		result, ok := ws.loadResult(w, runID)
		if !ok {
			return
		}
		withPoints := r.URL.Query().Get("points") != "false"
		httputil.WriteJSONOK(w, NewResultResponse(result, withPoints))
	case http.MethodDelete:
		if err := ws.store.DeleteRun(runID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				httputil.NotFound(w, fmt.Sprintf("run %q not found", runID))
				return
			}
			monitoring.Logf("delete run %s failed: %v", runID, err)
			httputil.InternalServerError(w, "failed to delete run")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		httputil.MethodNotAllowed(w)
	}
}

// handleNearest returns the k stored segments closest to a query point.
// Query params:
//
//	x, y (required, metres)
//	k (optional, default from config, max 100)
func (ws *WebServer) handleNearest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !ws.requireStore(w) {
		return
	}
	q := r.URL.Query()
	x, err := parseFiniteFloat(q.Get("x"))
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid 'x' parameter: %v", err))
		return
	}
	y, err := parseFiniteFloat(q.Get("y"))
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid 'y' parameter: %v", err))
		return
	}
	k := ws.nearestK
	if raw := q.Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.BadRequest(w, fmt.Sprintf("invalid 'k' parameter: %q", raw))
			return
		}
		k = min(n, maxNearestK)
	}

	result, ok := ws.loadResult(w, r.PathValue("id"))
	if !ok {
		return
	}
	index, err := segindex.Build(result.Cloud, result.Segments)
	if err != nil {
		monitoring.Logf("index run %s failed: %v", result.RunID, err)
		httputil.InternalServerError(w, "failed to index segments")
		return
	}

	matches := index.Nearest(x, y, k)
	out := make([]NearestMatch, len(matches))
	for i, m := range matches {
		out[i] = NearestMatch{
			Index:    m.Index,
			Start:    m.Segment.Start,
			End:      m.Segment.End,
			Distance: m.Distance,
		}
	}
	httputil.WriteJSONOK(w, NearestResponse{
		RunID:   result.RunID,
		X:       x,
		Y:       y,
		K:       k,
		Indexed: index.Len(),
		Matches: out,
	})
}

// handleSegmentsChart renders a stored run as an echarts page.
// Query params:
//
//	run_id (required)
func (ws *WebServer) handleSegmentsChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !ws.requireStore(w) {
		return
	}
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		httputil.BadRequest(w, "missing 'run_id' parameter")
		return
	}
	result, ok := ws.loadResult(w, runID)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := RenderSegmentsChart(&buf, result, ws.chartOpts); err != nil {
		monitoring.Logf("render chart for run %s failed: %v", runID, err)
		httputil.InternalServerError(w, "failed to render chart")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// handleSegmentsPNG renders a stored run as a static PNG.
// Query params:
//
//	run_id (required)
func (ws *WebServer) handleSegmentsPNG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !ws.requireStore(w) {
		return
	}
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		httputil.BadRequest(w, "missing 'run_id' parameter")
		return
	}
	result, ok := ws.loadResult(w, runID)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := NewSegmentPlotter().WriteTo(&buf, result); err != nil {
		monitoring.Logf("plot run %s failed: %v", runID, err)
		httputil.InternalServerError(w, "failed to render plot")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

// runsPage is the data for runs.html.
type runsPage struct {
	Version   string
	Threshold float64
	Count     int
	Runs      []*sqlite.ScanRun
}

// handleRunsPage renders stored runs as an HTML table with chart links.
// Query params:
//
//	limit (optional, default 20, max 500)
func (ws *WebServer) handleRunsPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !ws.requireStore(w) {
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	runs, err := ws.store.ListRuns(limit)
	if err != nil {
		monitoring.Logf("list runs failed: %v", err)
		httputil.InternalServerError(w, "failed to list runs")
		return
	}

	var buf bytes.Buffer
	page := runsPage{
		Version:   version.String(),
		Threshold: ws.pipeline.Segmenter().GetParams().Threshold,
		Count:     len(runs),
		Runs:      runs,
	}
	if err := ws.templates.ExecuteTemplate(&buf, "runs.html", page); err != nil {
		monitoring.Logf("render runs page failed: %v", err)
		httputil.InternalServerError(w, "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (ws *WebServer) requireStore(w http.ResponseWriter) bool {
	if ws.store == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "no run store configured")
		return false
	}
	return true
}

// loadResult fetches a run and its segments, writing the HTTP error itself
// when it fails.
func (ws *WebServer) loadResult(w http.ResponseWriter, runID string) (*pipeline.SegmentationResult, bool) {
	run, err := ws.store.GetRun(runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httputil.NotFound(w, fmt.Sprintf("run %q not found", runID))
			return nil, false
		}
		monitoring.Logf("get run %s failed: %v", runID, err)
		httputil.InternalServerError(w, "failed to load run")
		return nil, false
	}
	rows, err := ws.store.ListSegments(runID)
	if err != nil {
		monitoring.Logf("list segments for run %s failed: %v", runID, err)
		httputil.InternalServerError(w, "failed to load segments")
		return nil, false
	}
	return pipeline.ResultFromRun(run, rows), true
}

// parseLimit reads the optional limit query param, writing a 400 itself
// when it is invalid.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultRunLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		httputil.BadRequest(w, fmt.Sprintf("invalid 'limit' parameter: %q", raw))
		return 0, false
	}
	return min(n, maxRunLimit), true
}

func parseFiniteFloat(raw string) (float64, error) {
	if raw == "" {
		return 0, errors.New("missing")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", raw)
	}
	if !isFinite(v) {
		return 0, fmt.Errorf("%q is not finite", raw)
	}
	return v, nil
}
