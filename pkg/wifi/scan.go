package wifi

import (
	"sync/atomic"
	"time"

	"github.com/pidevelop/provision-ble/pkg/logger"
	"github.com/pidevelop/provision-ble/pkg/metrics"
)

// settleDelay is the time given to NetworkManager to populate its AP cache
// after a scan request. Runs inline on the dispatcher; see the design
// note on blocking scan-settle sleeps.
const settleDelay = 700 * time.Millisecond

// scanBackend is the subset of *Client a Scanner needs. Scanner depends on
// this interface rather than the concrete NetworkManager client so the
// busy-guard behavior can be tested without a D-Bus connection.
type scanBackend interface {
	RequestScan() error
	AccessPoints() ([]AccessPoint, error)
}

// Scanner performs one-shot SSID enumeration guarded by a single
// process-wide busy flag, so scans never overlap.
type Scanner struct {
	busy atomic.Bool
	nm   scanBackend
	log  *logger.Logger
}

// NewScanner builds a scanner backed by the given NetworkManager client.
func NewScanner(nm *Client, log *logger.Logger) *Scanner {
	return &Scanner{nm: nm, log: log}
}

// Scan requests a scan, waits for results to settle, enumerates access
// points, and returns the deduplicated, strength-sorted SSID list. If a
// scan is already in progress, returns an empty list immediately and never
// touches the Wi-Fi layer.
func (s *Scanner) Scan() []string {
	if !s.busy.CompareAndSwap(false, true) {
		s.log.Warn("wifi_scan: scan already in progress, ignoring")
		metrics.WifiScans.WithLabelValues(metrics.OutcomeBusy).Inc()
		return nil
	}
	defer s.busy.Store(false)

	if err := s.nm.RequestScan(); err != nil {
		s.log.Warn("wifi_scan: request failed: %v", err)
	}

	time.Sleep(settleDelay)

	aps, err := s.nm.AccessPoints()
	if err != nil {
		s.log.Warn("wifi_scan: enumerate access points: %v", err)
		metrics.WifiScans.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil
	}

	ssids := make([]string, 0, len(aps))
	for _, ap := range aps {
		ssids = append(ssids, ap.SSID)
	}
	metrics.WifiScans.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return ssids
}
