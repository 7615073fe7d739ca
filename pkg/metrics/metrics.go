// Package metrics exposes process-local Prometheus counters for the
// daemon's own operation (notifications sent, state transitions, scan and
// connect outcomes). It is observability of the daemon, not a user-facing
// configuration surface, and is served over a loopback-only HTTP listener.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "provision_ble_notifications_total",
		Help: "Notifications emitted per characteristic path.",
	}, []string{"characteristic"})

	StateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "provision_state_transitions_total",
		Help: "Provisioning state machine transitions, by resulting state.",
	}, []string{"state"})

	WifiScans = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "provision_wifi_scans_total",
		Help: "Wi-Fi scan attempts, by outcome.",
	}, []string{"outcome"})

	WifiConnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "provision_wifi_connects_total",
		Help: "Wi-Fi connect attempts, by outcome.",
	}, []string{"outcome"})

	Ipv4ReadyEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "provision_ipv4_ready_total",
		Help: "IPv4-ready events observed from the netlink monitor.",
	})
)

// Outcome label values shared across the WifiScans/WifiConnects counters.
const (
	OutcomeSuccess = "success"
	OutcomeBusy    = "busy"
	OutcomeFailed  = "failed"
)

// Server serves /metrics on a loopback address.
type Server struct {
	httpServer *http.Server
}

// NewServer builds a metrics server bound to listen (e.g. "127.0.0.1:9120").
func NewServer(listen string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{httpServer: &http.Server{Addr: listen, Handler: mux}}
}

// Start begins serving in the background. Errors other than a clean
// shutdown are sent on the returned channel.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	return errCh
}

// Stop gracefully shuts the exporter down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
