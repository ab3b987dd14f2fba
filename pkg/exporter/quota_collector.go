package exporter

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/plgrid/hpc-storage/pkg/metadata"
)

var (
	descQuotaLimit = prometheus.NewDesc(
		"hpc_storage_quota_limit_gigabytes",
		"Block quota limit in effect per group",
		[]string{"group", "gid", "filesystem"}, nil,
	)
	descQuotaDesired = prometheus.NewDesc(
		"hpc_storage_quota_desired_gigabytes",
		"Grant-derived desired capacity per group, after flooring",
		[]string{"group", "gid", "filesystem"}, nil,
	)
	descGroupOutcome = prometheus.NewDesc(
		"hpc_storage_group_outcome",
		"Outcome of the last reconcile pass per group, 1 for the outcome that applied",
		[]string{"group", "outcome"}, nil,
	)
)

// QuotaCollector exposes the state of the last reconcile pass.
type QuotaCollector struct {
	filesystem string
	store      *metadata.Store
}

func NewQuotaCollector(filesystem string, store *metadata.Store) *QuotaCollector {
	return &QuotaCollector{filesystem: filesystem, store: store}
}

func (c *QuotaCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descQuotaLimit
	ch <- descQuotaDesired
	ch <- descGroupOutcome
}

func (c *QuotaCollector) Collect(ch chan<- prometheus.Metric) {
	for _, st := range c.store.List() {
		ch <- prometheus.MustNewConstMetric(descGroupOutcome, prometheus.GaugeValue, 1,
			st.Group, string(st.Outcome))

		// Skipped groups have no gid and nothing on disk to report.
		if st.Outcome == metadata.OutcomeSkipped {
			continue
		}
		gidStr := strconv.Itoa(st.Gid)
		ch <- prometheus.MustNewConstMetric(descQuotaLimit, prometheus.GaugeValue, float64(st.CurrentGB),
			st.Group, gidStr, c.filesystem)
		ch <- prometheus.MustNewConstMetric(descQuotaDesired, prometheus.GaugeValue, float64(st.DesiredGB),
			st.Group, gidStr, c.filesystem)
	}
}
