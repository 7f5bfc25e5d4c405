// Package metrics instruments the capture pipeline with Prometheus
// counters and gauges. Counters are package-level and incremented
// directly from the pipeline; values cheaper to compute on scrape than
// to keep updated per packet (ring occupancy, subscriber count) use a
// custom collector instead.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	PacketsDecoded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nasa_packets_decoded_total",
		Help: "Total number of NASA frames successfully decoded.",
	})

	DecodeErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nasa_decode_errors_total",
		Help: "Total number of frame decode failures, by error kind.",
	}, []string{"kind"})

	ResyncEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nasa_resync_events_total",
		Help: "Total number of reassembler resynchronisation events.",
	})

	BytesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nasa_resync_bytes_skipped_total",
		Help: "Total number of bytes discarded while resynchronising.",
	})

	GroupsObserved = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nasa_analyser_groups",
		Help: "Current number of distinct packet signatures observed.",
	})

	SubscriberDrops = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nasa_subscriber_drops_total",
		Help: "Total number of packets dropped because a subscriber's buffer was full.",
	})

	PacketsPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nasa_session_packets_published_total",
		Help: "Total number of packets handed to the live session's sinks and subscribers.",
	})
)

func init() {
	prometheus.MustRegister(
		PacketsDecoded,
		DecodeErrors,
		ResyncEvents,
		BytesSkipped,
		GroupsObserved,
		SubscriberDrops,
		PacketsPublished,
	)
}

// IncDecoded records one successfully decoded packet.
func IncDecoded() { PacketsDecoded.Inc() }

// IncDecodeError records one decode failure of the given kind.
func IncDecodeError(kind string) { DecodeErrors.WithLabelValues(kind).Inc() }

// IncResync records one resync event that skipped n bytes.
func IncResync(skipped int) {
	ResyncEvents.Inc()
	BytesSkipped.Add(float64(skipped))
}

// SetGroupsObserved sets the current unique-group count.
func SetGroupsObserved(n int) { GroupsObserved.Set(float64(n)) }

// IncSubscriberDrop records one dropped subscriber delivery.
func IncSubscriberDrop() { SubscriberDrops.Inc() }

// ScrapeGauge reports a value computed on scrape rather than kept
// updated on every event. Used for history-ring occupancy and active
// subscriber count.
type ScrapeGauge struct {
	desc     *prometheus.Desc
	supplier func() int
}

// NewScrapeGauge wraps supplier as a Prometheus collector reporting name
// with the given help text.
func NewScrapeGauge(name, help string, supplier func() int) *ScrapeGauge {
	return &ScrapeGauge{
		desc:     prometheus.NewDesc(name, help, nil, nil),
		supplier: supplier,
	}
}

func (c *ScrapeGauge) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *ScrapeGauge) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(c.supplier()))
}

// SessionHook adapts session.MetricsHook to the package-level counters
// above, so internal/session never needs to import a metrics library
// directly.
type SessionHook struct{}

func (SessionHook) SubscriberDropped() { IncSubscriberDrop() }
func (SessionHook) PacketPublished()   { PacketsPublished.Inc() }
