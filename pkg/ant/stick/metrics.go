package stick

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/robotalks/ant.go/pkg/ant/comm"
)

// Metrics counts frames passing through a Stick.
// A nil *Metrics is valid and counts nothing.
type Metrics struct {
	FramesRead     *prometheus.CounterVec // labels: msg
	FramesWritten  *prometheus.CounterVec // labels: msg
	FramesDeferred *prometheus.CounterVec // labels: msg
	FramesDropped  *prometheus.CounterVec // labels: msg
	ChannelEvents  *prometheus.CounterVec // labels: event
}

// NewMetrics creates and registers the metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ant_frames_read_total",
			Help: "Frames read from the stick by message id.",
		}, []string{"msg"}),
		FramesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ant_frames_written_total",
			Help: "Frames written to the stick by message id.",
		}, []string{"msg"}),
		FramesDeferred: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ant_frames_deferred_total",
			Help: "Channel frames deferred while waiting for a reply.",
		}, []string{"msg"}),
		FramesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ant_frames_dropped_total",
			Help: "Frames without a registered channel.",
		}, []string{"msg"}),
		ChannelEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ant_channel_events_total",
			Help: "Channel events received.",
		}, []string{"event"}),
	}
	reg.MustRegister(m.FramesRead, m.FramesWritten, m.FramesDeferred, m.FramesDropped, m.ChannelEvents)
	return m
}

func (m *Metrics) read(f comm.Frame) {
	if m != nil {
		m.FramesRead.WithLabelValues(f.ID().String()).Inc()
	}
}

func (m *Metrics) written(f comm.Frame) {
	if m != nil {
		m.FramesWritten.WithLabelValues(f.ID().String()).Inc()
	}
}

func (m *Metrics) deferred(f comm.Frame) {
	if m != nil {
		m.FramesDeferred.WithLabelValues(f.ID().String()).Inc()
	}
}

func (m *Metrics) dropped(f comm.Frame) {
	if m != nil {
		m.FramesDropped.WithLabelValues(f.ID().String()).Inc()
	}
}

func (m *Metrics) event(ev comm.ChannelEvent) {
	if m != nil {
		m.ChannelEvents.WithLabelValues(ev.String()).Inc()
	}
}
