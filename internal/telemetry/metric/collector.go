package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// KeyCounter reports the number of stored keys.
type KeyCounter interface {
	Len() int
}

// SizeReporter reports the on-disk size of the append-only log.
type SizeReporter interface {
	TotalSize() (int64, error)
	FileCount() (int, error)
}

// Collector reads store and log statistics at scrape time.
type Collector struct {
	keys KeyCounter
	aof  SizeReporter

	keysDesc     *prometheus.Desc
	aofSizeDesc  *prometheus.Desc
	aofFilesDesc *prometheus.Desc
}

// NewCollector creates a collector. aof may be nil when logging is off.
func NewCollector(keys KeyCounter, aof SizeReporter) *Collector {
	return &Collector{
		keys: keys,
		aof:  aof,
		keysDesc: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "", "keys"),
			"Keys held by the store, including expired keys not yet touched.",
			nil, nil,
		),
		aofSizeDesc: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "aof", "size_bytes"),
			"Combined size of the append-only log segments.",
			nil, nil,
		),
		aofFilesDesc: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "aof", "segments"),
			"Number of append-only log segments on disk.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keysDesc
	if c.aof != nil {
		ch <- c.aofSizeDesc
		ch <- c.aofFilesDesc
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.keys != nil {
		ch <- prometheus.MustNewConstMetric(c.keysDesc, prometheus.GaugeValue, float64(c.keys.Len()))
	}
	if c.aof == nil {
		return
	}
	if size, err := c.aof.TotalSize(); err == nil {
		ch <- prometheus.MustNewConstMetric(c.aofSizeDesc, prometheus.GaugeValue, float64(size))
	}
	if n, err := c.aof.FileCount(); err == nil {
		ch <- prometheus.MustNewConstMetric(c.aofFilesDesc, prometheus.GaugeValue, float64(n))
	}
}
