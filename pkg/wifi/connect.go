package wifi

import (
	"github.com/pidevelop/provision-ble/pkg/logger"
	"github.com/pidevelop/provision-ble/pkg/metrics"
)

// connectBackend is the subset of *Client a Connector needs, split out so
// activation-outcome handling can be tested without a D-Bus connection.
type connectBackend interface {
	AddAndActivate(ssid, psk string) ConnectOutcome
}

// Connector submits WPA-PSK connection requests to NetworkManager.
// Association itself is fire-and-forget: success is observed later through
// the IPv4-ready path, not through this call's return value.
type Connector struct {
	nm  connectBackend
	log *logger.Logger
}

// NewConnector builds a connector backed by the given NetworkManager
// client.
func NewConnector(nm *Client, log *logger.Logger) *Connector {
	return &Connector{nm: nm, log: log}
}

// Connect submits ssid/psk for activation and reports whether the
// submission itself was accepted synchronously. It does not block on
// association outcome.
func (c *Connector) Connect(ssid, psk string) (accepted bool) {
	outcome := c.nm.AddAndActivate(ssid, psk)
	if outcome == ConnectRejected {
		c.log.Warn("wifi_connect: activation request for %s rejected synchronously", ssid)
		metrics.WifiConnects.WithLabelValues(metrics.OutcomeFailed).Inc()
		return false
	}
	c.log.Info("wifi_connect: activation request for %s submitted", ssid)
	metrics.WifiConnects.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return true
}
