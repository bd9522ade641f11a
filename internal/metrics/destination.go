package metrics

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/disk"
)

// Destination is the view of a debug log the collector needs
type Destination interface {
	Path() string
	Degraded() bool
}

// DestinationStats describes the debug log file and the disk it lives on
type DestinationStats struct {
	SizeBytes     int64  `json:"size_bytes"`
	DiskFreeBytes uint64 `json:"disk_free_bytes"`
	DiskTotal     uint64 `json:"disk_total_bytes"`
}

// StatDestination reports the size of the file at path and the free space of
// its directory. A missing file has size 0.
func StatDestination(path string) (*DestinationStats, error) {
	stats := &DestinationStats{}

	info, err := os.Stat(path)
	switch {
	case err == nil:
		stats.SizeBytes = info.Size()
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	usage, err := disk.Usage(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read disk usage for %s: %w", filepath.Dir(path), err)
	}
	stats.DiskFreeBytes = usage.Free
	stats.DiskTotal = usage.Total

	return stats, nil
}

type destinationCollector struct {
	dest      Destination
	sizeBytes *prometheus.Desc
	freeBytes *prometheus.Desc
	degraded  *prometheus.Desc
}

// NewDestinationCollector exposes the state of the debug log file on scrape
func NewDestinationCollector(dest Destination) prometheus.Collector {
	labels := prometheus.Labels{"path": dest.Path()}
	return &destinationCollector{
		dest: dest,
		sizeBytes: prometheus.NewDesc(
			"linelog_destination_size_bytes",
			"Current size of the debug log file",
			nil, labels,
		),
		freeBytes: prometheus.NewDesc(
			"linelog_destination_disk_free_bytes",
			"Free space on the filesystem holding the debug log",
			nil, labels,
		),
		degraded: prometheus.NewDesc(
			"linelog_destination_degraded",
			"1 if the debug log could not be opened and writes are discarded",
			nil, labels,
		),
	}
}

// Describe implements prometheus.Collector
func (dc *destinationCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- dc.sizeBytes
	ch <- dc.freeBytes
	ch <- dc.degraded
}

// Collect implements prometheus.Collector
func (dc *destinationCollector) Collect(ch chan<- prometheus.Metric) {
	degraded := 0.0
	if dc.dest.Degraded() {
		degraded = 1
	}
	ch <- prometheus.MustNewConstMetric(dc.degraded, prometheus.GaugeValue, degraded)

	stats, err := StatDestination(dc.dest.Path())
	if err != nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(dc.sizeBytes, prometheus.GaugeValue, float64(stats.SizeBytes))
	ch <- prometheus.MustNewConstMetric(dc.freeBytes, prometheus.GaugeValue, float64(stats.DiskFreeBytes))
}
