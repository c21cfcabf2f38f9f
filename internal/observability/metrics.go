// Package observability exposes the bot's Prometheus metrics.
package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	dialoguesStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "aidlog",
		Subsystem: "dialogue",
		Name:      "started_total",
		Help:      "Dialogues started (create and edit).",
	})
	dialoguesCommitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "aidlog",
		Subsystem: "dialogue",
		Name:      "committed_total",
		Help:      "Dialogues that ended in a committed record.",
	})
	dialoguesCanceled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "aidlog",
		Subsystem: "dialogue",
		Name:      "canceled_total",
		Help:      "Dialogues canceled by the user, a timeout or an internal error.",
	})
	announceFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "aidlog",
		Subsystem: "announce",
		Name:      "failures_total",
		Help:      "Public channel announcements that failed.",
	})
	geocodeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "aidlog",
		Subsystem: "geocode",
		Name:      "failures_total",
		Help:      "Geocoding requests that errored.",
	})
)

func init() {
	prometheus.MustRegister(
		dialoguesStarted,
		dialoguesCommitted,
		dialoguesCanceled,
		announceFailures,
		geocodeFailures,
	)
}

// DialogueStarted counts a new dialogue.
func DialogueStarted() { dialoguesStarted.Inc() }

// DialogueCommitted counts a successful commit.
func DialogueCommitted() { dialoguesCommitted.Inc() }

// DialogueCanceled counts a canceled or aborted dialogue.
func DialogueCanceled() { dialoguesCanceled.Inc() }

// AnnounceFailed counts a failed channel announcement.
func AnnounceFailed() { announceFailures.Inc() }

// GeocodeFailed counts a failed geocoding request.
func GeocodeFailed() { geocodeFailures.Inc() }
