package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Membership event metrics
	MembershipEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "muster_membership_events_total",
			Help: "Membership transition events processed, by outcome",
		},
		[]string{"outcome"},
	)

	OpenSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "muster_open_sessions",
			Help: "Users currently inside the monitored room during an active epoch",
		},
	)

	// Epoch metrics
	EpochsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "muster_epochs_started_total",
			Help: "Tracking epochs started",
		},
	)

	EpochsEnded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "muster_epochs_ended_total",
			Help: "Tracking epochs ended, by trigger",
		},
		[]string{"trigger"},
	)

	// Gateway metrics
	GatewayReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "muster_gateway_reconnects_total",
			Help: "Gateway websocket reconnect attempts",
		},
	)

	GatewayDuplicateFrames = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "muster_gateway_duplicate_frames_total",
			Help: "Gateway frames dropped by the event dedup cache",
		},
	)

	// Report metrics
	ReportsUploaded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "muster_reports_uploaded_total",
			Help: "Attendance reports delivered to the sink",
		},
	)

	ReportUploadErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "muster_report_upload_errors_total",
			Help: "Attendance report deliveries that failed",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		MembershipEventsTotal,
		OpenSessions,
		EpochsStarted,
		EpochsEnded,
		GatewayReconnects,
		GatewayDuplicateFrames,
		ReportsUploaded,
		ReportUploadErrors,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
