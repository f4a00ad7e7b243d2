package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "school_schedule",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern, method and status.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "school_schedule",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// AttendanceSyncs counts lesson group synchronizations by outcome:
	// skipped, cleared, regrouped or created.
	AttendanceSyncs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "school_schedule",
		Name:      "attendance_syncs_total",
		Help:      "Lesson attendance synchronizations by outcome.",
	}, []string{"outcome"})

	AttendanceRowsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "school_schedule",
		Name:      "attendance_rows_created_total",
		Help:      "Attendance rows created from group membership.",
	})

	AttendanceRowsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "school_schedule",
		Name:      "attendance_rows_deleted_total",
		Help:      "Attendance rows removed when a lesson changed group.",
	})

	DocumentUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "school_schedule",
		Name:      "document_uploads_total",
		Help:      "Document uploads by result.",
	}, []string{"result"})

	DocumentRollbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "school_schedule",
		Name:      "document_rollbacks_total",
		Help:      "Document rows removed after a failed file write.",
	})

	DocumentOrphansRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "school_schedule",
		Name:      "document_orphans_removed_total",
		Help:      "Stored files removed by the orphan sweep.",
	})
)
