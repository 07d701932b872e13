package refcrop

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "refcrop"

// Metrics counts crop activity. A nil *Metrics records nothing.
//
// All updates happen on the goroutine driving the Cropper; the registry may
// be scraped from any goroutine.
type Metrics struct {
	crops        prometheus.Counter
	cropsCreated prometheus.Counter
	cropsResized prometheus.Counter
	masked       prometheus.Counter
	adopted      prometheus.Counter
	decodes      prometheus.Counter
	evictions    prometheus.Counter
	cacheEntries prometheus.Gauge
}

// NewMetrics creates the crop metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		crops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "crops_total",
			Help:      "Crops written to an output image.",
		}),
		cropsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "outputs_created_total",
			Help:      "Output images created.",
		}),
		cropsResized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "outputs_resized_total",
			Help:      "Existing output images rescaled to a new crop size.",
		}),
		masked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "masked_pixels_total",
			Help:      "Pixels made transparent by the chroma key.",
		}),
		adopted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sources_adopted_total",
			Help:      "Images adopted as a new crop source.",
		}),
		decodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "decodes_total",
			Help:      "Source images decoded into the pixel cache.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Pixel cache entries dropped after a source change.",
		}),
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Decoded sources held in the pixel cache.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.crops, m.cropsCreated, m.cropsResized, m.masked,
		m.adopted, m.decodes, m.evictions, m.cacheEntries,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) cropApplied(r *Result) {
	if m == nil || r == nil {
		return
	}
	m.crops.Inc()
	if r.Created {
		m.cropsCreated.Inc()
	}
	if r.Resized {
		m.cropsResized.Inc()
	}
	m.masked.Add(float64(r.Masked))
}

func (m *Metrics) sourceAdopted(evicted bool) {
	if m == nil {
		return
	}
	m.adopted.Inc()
	if evicted {
		m.evictions.Inc()
	}
}

func (m *Metrics) cacheState(decoded int, entries int) {
	if m == nil {
		return
	}
	if decoded > 0 {
		m.decodes.Add(float64(decoded))
	}
	m.cacheEntries.Set(float64(entries))
}
