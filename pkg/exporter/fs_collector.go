package exporter

import (
	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/klog/v2"

	"github.com/plgrid/hpc-storage/pkg/utils"
)

var (
	descFSTotal = prometheus.NewDesc(
		"hpc_storage_filesystem_total_bytes",
		"Total size of the project filesystem",
		[]string{"mount_point"}, nil,
	)
	descFSUsed = prometheus.NewDesc(
		"hpc_storage_filesystem_used_bytes",
		"Used space on the project filesystem",
		[]string{"mount_point"}, nil,
	)
)

// FilesystemCollector reports overall space on the project filesystem.
type FilesystemCollector struct {
	mountPoint string
}

func NewFilesystemCollector(mountPoint string) *FilesystemCollector {
	return &FilesystemCollector{mountPoint: mountPoint}
}

func (c *FilesystemCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descFSTotal
	ch <- descFSUsed
}

func (c *FilesystemCollector) Collect(ch chan<- prometheus.Metric) {
	ds, err := utils.GetDiskUsage(c.mountPoint)
	if err != nil {
		klog.ErrorS(err, "Failed to stat project filesystem", "mountPoint", c.mountPoint)
		return
	}
	ch <- prometheus.MustNewConstMetric(descFSTotal, prometheus.GaugeValue, float64(ds.Total), c.mountPoint)
	ch <- prometheus.MustNewConstMetric(descFSUsed, prometheus.GaugeValue, float64(ds.Used), c.mountPoint)
}
