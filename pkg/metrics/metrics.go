package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Attendance holds the counters the attendance service reports.
type Attendance struct {
	CheckIns           *prometheus.CounterVec
	CheckOuts          prometheus.Counter
	Absences           prometheus.Counter
	GeofenceRejections prometheus.Counter
	AlreadyMarked      prometheus.Counter
}

// NewAttendance registers the attendance counters on reg.
func NewAttendance(reg prometheus.Registerer) *Attendance {
	factory := promauto.With(reg)
	return &Attendance{
		CheckIns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "presence",
			Name:      "check_ins_total",
			Help:      "Check-ins recorded, by status.",
		}, []string{"status", "source"}),
		CheckOuts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "presence",
			Name:      "check_outs_total",
			Help:      "Check-outs recorded.",
		}),
		Absences: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "presence",
			Name:      "absences_total",
			Help:      "Days automatically marked absent after the hard cutoff.",
		}),
		GeofenceRejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "presence",
			Name:      "geofence_rejections_total",
			Help:      "Geolocation requests rejected for being outside the allowed area.",
		}),
		AlreadyMarked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "presence",
			Name:      "already_marked_total",
			Help:      "Check-in attempts answered with the existing record of the day.",
		}),
	}
}

// Worker holds the counters the SQS workers report.
type Worker struct {
	Processed *prometheus.CounterVec
}

// NewWorker registers the worker counters on reg.
func NewWorker(reg prometheus.Registerer, queue string) *Worker {
	factory := promauto.With(reg)
	return &Worker{
		Processed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "presence",
			Subsystem:   "worker",
			Name:        "messages_total",
			Help:        "SQS messages handled, by outcome.",
			ConstLabels: prometheus.Labels{"queue": queue},
		}, []string{"outcome"}),
	}
}
