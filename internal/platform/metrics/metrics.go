package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	UsersRegistered   prometheus.Counter
	LoginFailures     prometheus.Counter
	DocumentsCreated  prometheus.Counter
	DocumentsSigned   prometheus.Counter
	DocumentsDeleted  prometheus.Counter
	AuditAppendErrors prometheus.Counter
	RequestDuration   *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		UsersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "signet_users_registered_total",
			Help: "Total number of users registered",
		}),
		LoginFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "signet_login_failures_total",
			Help: "Total number of failed login attempts",
		}),
		DocumentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "signet_documents_created_total",
			Help: "Total number of documents uploaded",
		}),
		DocumentsSigned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "signet_documents_signed_total",
			Help: "Total number of documents signed",
		}),
		DocumentsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "signet_documents_deleted_total",
			Help: "Total number of documents deleted",
		}),
		AuditAppendErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "signet_audit_append_errors_total",
			Help: "Audit entries that could not be persisted",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signet_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "status"}),
	}
}

func (m *Metrics) IncrementUsersRegistered() {
	if m != nil {
		m.UsersRegistered.Inc()
	}
}

func (m *Metrics) IncrementLoginFailures() {
	if m != nil {
		m.LoginFailures.Inc()
	}
}

func (m *Metrics) IncrementDocumentsCreated() {
	if m != nil {
		m.DocumentsCreated.Inc()
	}
}

func (m *Metrics) IncrementDocumentsSigned() {
	if m != nil {
		m.DocumentsSigned.Inc()
	}
}

func (m *Metrics) IncrementDocumentsDeleted() {
	if m != nil {
		m.DocumentsDeleted.Inc()
	}
}

func (m *Metrics) IncrementAuditAppendErrors() {
	if m != nil {
		m.AuditAppendErrors.Inc()
	}
}
