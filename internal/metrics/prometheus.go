package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the head tracking panner
type Metrics struct {
	// UDP telemetry metrics
	PacketsReceived prometheus.Counter
	FramesDecoded   prometheus.Counter
	MalformedFrames prometheus.Counter
	ReceiveErrors   prometheus.Counter

	// Apply cycle metrics
	ApplyCycles    prometheus.Counter
	ApplyLatency   prometheus.Histogram
	AverageLatency prometheus.Gauge
	ApplyRate      prometheus.Gauge

	// PipeWire metrics
	PlaybackStreams        prometheus.Gauge
	EndpointUpdates        prometheus.Counter
	EndpointUpdateFailures prometheus.Counter
	DiscoveryFailures      prometheus.Counter

	// Tracking state
	SmoothedYaw   prometheus.Gauge
	SmoothedPitch prometheus.Gauge
	ChannelGain   *prometheus.GaugeVec
	Volume        prometheus.Gauge

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them on the default /metrics handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// UDP telemetry metrics
		PacketsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "headpan_packets_received_total",
			Help: "Total number of UDP datagrams received",
		}),
		FramesDecoded: factory.NewCounter(prometheus.CounterOpts{
			Name: "headpan_frames_decoded_total",
			Help: "Total number of telemetry frames decoded and smoothed",
		}),
		MalformedFrames: factory.NewCounter(prometheus.CounterOpts{
			Name: "headpan_malformed_frames_total",
			Help: "Total number of datagrams dropped for invalid size or content",
		}),
		ReceiveErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "headpan_receive_errors_total",
			Help: "Total number of socket receive errors other than timeouts",
		}),

		// Apply cycle metrics
		ApplyCycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "headpan_apply_cycles_total",
			Help: "Total number of map and apply cycles executed",
		}),
		ApplyLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "headpan_apply_duration_seconds",
			Help:    "Wall time spent pushing channel volumes to PipeWire",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
		}),
		AverageLatency: factory.NewGauge(prometheus.GaugeOpts{
			Name: "headpan_apply_duration_average_seconds",
			Help: "Moving average of apply latency over the latency window",
		}),
		ApplyRate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "headpan_apply_rate_hz",
			Help: "Apply cycles per second measured over the last window",
		}),

		// PipeWire metrics
		PlaybackStreams: factory.NewGauge(prometheus.GaugeOpts{
			Name: "headpan_playback_streams",
			Help: "Number of playback streams updated in the last cycle",
		}),
		EndpointUpdates: factory.NewCounter(prometheus.CounterOpts{
			Name: "headpan_endpoint_updates_total",
			Help: "Total number of successful channel volume updates",
		}),
		EndpointUpdateFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "headpan_endpoint_update_failures_total",
			Help: "Total number of failed channel volume updates",
		}),
		DiscoveryFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "headpan_discovery_failures_total",
			Help: "Total number of failed node introspection calls",
		}),

		// Tracking state
		SmoothedYaw: factory.NewGauge(prometheus.GaugeOpts{
			Name: "headpan_smoothed_yaw_degrees",
			Help: "Smoothed yaw at the last apply cycle",
		}),
		SmoothedPitch: factory.NewGauge(prometheus.GaugeOpts{
			Name: "headpan_smoothed_pitch_degrees",
			Help: "Smoothed pitch at the last apply cycle",
		}),
		ChannelGain: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "headpan_channel_gain",
			Help: "Channel volume pushed at the last apply cycle",
		}, []string{"channel"}),
		Volume: factory.NewGauge(prometheus.GaugeOpts{
			Name: "headpan_volume",
			Help: "Overall volume derived from pitch at the last apply cycle",
		}),

		// HTTP API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "headpan_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "headpan_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "headpan_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordPacketReceived increments the datagrams received counter
func (m *Metrics) RecordPacketReceived() {
	m.PacketsReceived.Inc()
}

// RecordFrameDecoded increments the decoded frames counter
func (m *Metrics) RecordFrameDecoded() {
	m.FramesDecoded.Inc()
}

// RecordMalformedFrame increments the malformed frames counter
func (m *Metrics) RecordMalformedFrame() {
	m.MalformedFrames.Inc()
}

// RecordReceiveError increments the receive errors counter
func (m *Metrics) RecordReceiveError() {
	m.ReceiveErrors.Inc()
}

// RecordApply records one apply cycle: its latency, the moving average and the streams updated
func (m *Metrics) RecordApply(latencySeconds, averageSeconds float64, streams int) {
	m.ApplyCycles.Inc()
	m.ApplyLatency.Observe(latencySeconds)
	m.AverageLatency.Set(averageSeconds)
	m.PlaybackStreams.Set(float64(streams))
}

// SetApplyRate sets the measured apply cycles per second
func (m *Metrics) SetApplyRate(fps float64) {
	m.ApplyRate.Set(fps)
}

// RecordEndpointUpdate records the outcome of one channel volume update
func (m *Metrics) RecordEndpointUpdate(success bool) {
	if success {
		m.EndpointUpdates.Inc()
	} else {
		m.EndpointUpdateFailures.Inc()
	}
}

// RecordDiscoveryFailure increments the failed introspection counter
func (m *Metrics) RecordDiscoveryFailure() {
	m.DiscoveryFailures.Inc()
}

// SetTrackingState records the smoothed orientation and the derived audio parameters
func (m *Metrics) SetTrackingState(yaw, pitch, left, right, volume float64) {
	m.SmoothedYaw.Set(yaw)
	m.SmoothedPitch.Set(pitch)
	m.ChannelGain.WithLabelValues("left").Set(left)
	m.ChannelGain.WithLabelValues("right").Set(right)
	m.Volume.Set(volume)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
