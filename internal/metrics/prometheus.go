// ABOUTME: Prometheus metrics for the playback engine
// ABOUTME: Turns engine events into counters and gauges on a dedicated registry
package metrics

import (
	"net/http"

	"github.com/Resonate-Protocol/pcmstream/pkg/pcmstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all engine metrics
type Metrics struct {
	registry *prometheus.Registry

	ChunksWritten     prometheus.Counter
	BytesWritten      prometheus.Counter
	ChunkRMS          prometheus.Histogram
	LastRMS           prometheus.Gauge
	WriteFailures     prometheus.Counter
	Configures        *prometheus.CounterVec
	Recoveries        *prometheus.CounterVec
	BestEffortFailure *prometheus.CounterVec
	SampleRate        prometheus.Gauge
	Active            prometheus.Gauge
	BridgeRequests    *prometheus.CounterVec
}

// New creates metrics registered on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ChunksWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "pcmstream_chunks_written_total",
			Help: "Total number of PCM chunks submitted to the output device",
		}),
		BytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "pcmstream_bytes_written_total",
			Help: "Total PCM bytes submitted to the output device",
		}),
		ChunkRMS: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pcmstream_chunk_rms",
			Help:    "RMS level of submitted chunks",
			Buckets: []float64{0, 10, 100, 500, 1000, 2500, 5000, 10000, 20000, 32768},
		}),
		LastRMS: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pcmstream_last_chunk_rms",
			Help: "RMS level of the most recent chunk",
		}),
		WriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "pcmstream_write_failures_total",
			Help: "Total number of rejected device writes",
		}),
		Configures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pcmstream_configures_total",
			Help: "Total number of output devices built, by usage",
		}, []string{"usage"}),
		Recoveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pcmstream_recoveries_total",
			Help: "Total number of automatic device rebuilds, by trigger",
		}, []string{"kind"}),
		BestEffortFailure: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pcmstream_best_effort_failures_total",
			Help: "Total number of non-fatal platform call failures, by operation",
		}, []string{"op"}),
		SampleRate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pcmstream_sample_rate_hz",
			Help: "Sample rate of the current output device",
		}),
		Active: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pcmstream_session_active",
			Help: "1 while an output device is playing",
		}),
		BridgeRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pcmstream_bridge_requests_total",
			Help: "Total bridge requests, by message type and result code",
		}, []string{"type", "code"}),
	}
}

// Observe records one engine event. It is safe to use as pcmstream.Config.OnEvent.
func (m *Metrics) Observe(ev pcmstream.Event) {
	switch ev.Kind {
	case pcmstream.EventConfigured:
		m.Configures.WithLabelValues(ev.Usage.String()).Inc()
		m.SampleRate.Set(float64(ev.SampleRate))
		m.Active.Set(1)
	case pcmstream.EventChunkWritten:
		m.ChunksWritten.Inc()
		m.BytesWritten.Add(float64(ev.Bytes))
		m.ChunkRMS.Observe(ev.RMS)
		m.LastRMS.Set(ev.RMS)
	case pcmstream.EventWriteFailed:
		m.WriteFailures.Inc()
	case pcmstream.EventStall:
		m.Recoveries.WithLabelValues("stall").Inc()
	case pcmstream.EventUsageFallback:
		m.Recoveries.WithLabelValues("usage_fallback").Inc()
	case pcmstream.EventBestEffortFailure:
		m.BestEffortFailure.WithLabelValues(ev.Op).Inc()
	case pcmstream.EventStopped, pcmstream.EventReleased:
		m.Active.Set(0)
	}
}

// Request records one bridge request outcome. An empty code counts as "ok".
func (m *Metrics) Request(msgType, code string) {
	if code == "" {
		code = "ok"
	}
	m.BridgeRequests.WithLabelValues(msgType, code).Inc()
}

// Registry returns the registry holding the engine metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
