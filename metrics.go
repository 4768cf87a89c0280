package imgfs

import "github.com/prometheus/client_golang/prometheus"

// Metrics is an optional prometheus registry FS operations increment.
// Grounded on GoogleCloudPlatform-gcsfuse's metrics stack (present in
// the retrieval pack); wired here rather than left aspirational, via
// cmd/imgfs's "serve" subcommand.
type Metrics struct {
	registry *prometheus.Registry
	ops      *prometheus.CounterVec
	blocks   prometheus.Gauge
	inodes   prometheus.Gauge
}

// NewMetrics builds a Metrics registry with its own prometheus.Registry
// (not the global default, so multiple mounted images in one process
// don't collide).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "imgfs",
			Name:      "operations_total",
			Help:      "Count of filesystem operations invoked, by name.",
		}, []string{"op"}),
		blocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "imgfs",
			Name:      "blocks_allocated",
			Help:      "Blocks currently marked allocated in the image.",
		}),
		inodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "imgfs",
			Name:      "inodes_allocated",
			Help:      "Inode-table slots currently marked allocated.",
		}),
	}
	reg.MustRegister(m.ops, m.blocks, m.inodes)
	return m
}

// Registry exposes the underlying prometheus.Registry for an HTTP
// handler (promhttp.HandlerFor) to serve.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) incOp(name string) {
	m.ops.WithLabelValues(name).Inc()
}

// Sample recomputes the allocation gauges by scanning both bitmaps.
// Cheap enough (a few hundred bytes) to call per scrape.
func (fs *FS) Sample() {
	if fs.metrics == nil {
		return
	}
	blocks := 0
	bm := fs.img.hdr.blockBitmap()
	for i := 0; i < BlockCount; i++ {
		if bm.test(i) {
			blocks++
		}
	}
	inodes := 0
	ibm := fs.img.hdr.inodeBitmap()
	for i := 0; i < InodeCount; i++ {
		if ibm.test(i) {
			inodes++
		}
	}
	fs.metrics.blocks.Set(float64(blocks))
	fs.metrics.inodes.Set(float64(inodes))
}
