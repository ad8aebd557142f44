// Package monitor serves segmentation over HTTP and renders results as
// echarts HTML and gonum/plot PNG. Client is the matching HTTP client used by
// the CLI's --server mode.
package monitor
