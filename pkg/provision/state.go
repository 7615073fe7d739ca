// Package provision implements the provisioning state machine, the
// dependency-free command parser, and the notification payload builders
// that together define everything a BLE central observes on the State
// characteristic.
package provision

import (
	"sync"

	"github.com/pidevelop/provision-ble/pkg/logger"
	"github.com/pidevelop/provision-ble/pkg/metrics"
)

// State is one of the five provisioning states surfaced to the central.
type State string

const (
	Unconfigured State = "UNCONFIGURED"
	Scanning     State = "SCANNING"
	ScanComplete State = "SCAN_COMPLETE"
	Connecting   State = "CONNECTING"
	Connected    State = "CONNECTED"
)

// Notifier is the one thing the state machine needs from the GATT layer: a
// way to push bytes out on the State characteristic. Satisfied by
// *ble.Registry's NotifyValue bound to the State path.
type Notifier func(value []byte)

// Machine holds the single process-wide provisioning state plus the last
// known connected ssid/ip, so a late StartNotify can replay it. All methods
// are intended to be called only from the dispatcher goroutine; Machine
// itself does no locking beyond what's needed for State() to be queried
// incidentally (e.g. from a future status command) without racing the
// dispatcher.
type Machine struct {
	mu    sync.Mutex
	state State

	lastSSID string
	lastIP   string

	notify Notifier
	log    *logger.Logger
}

// NewMachine builds a machine in the UNCONFIGURED state, emitting
// notifications through notify.
func NewMachine(log *logger.Logger, notify Notifier) *Machine {
	return &Machine{state: Unconfigured, notify: notify, log: log}
}

// State returns the current provisioning state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	metrics.StateTransitions.WithLabelValues(string(s)).Inc()
}

// WifiScanRequested handles a `wifi_scan` command: transitions to SCANNING
// and emits the transition notification. The caller (command parser) is
// responsible for invoking the scan itself and calling ScanFinished once
// results are in hand.
func (m *Machine) WifiScanRequested() {
	m.setState(Scanning)
	m.notify(StateJSON(Scanning))
}

// ScanFinished emits the raw SSID-list payload (already built by the
// caller, which knows the 200-byte truncation rule) and then transitions to
// SCAN_COMPLETE.
func (m *Machine) ScanFinished(payload []byte) {
	m.notify(payload)
	m.setState(ScanComplete)
	m.notify(StateJSON(ScanComplete))
}

// WifiConnectAccepted handles an accepted `wifi_connect` command:
// transitions to CONNECTING and emits the transition notification.
func (m *Machine) WifiConnectAccepted() {
	m.setState(Connecting)
	m.notify(StateJSON(Connecting))
}

// ConnectRejected reverts to UNCONFIGURED after a synchronous activation
// failure.
func (m *Machine) ConnectRejected() {
	m.setState(Unconfigured)
	m.notify(StateJSON(Unconfigured))
}

// Ipv4Ready handles an IPv4-ready event: transitions to CONNECTED and emits
// the connected payload. Idempotent — repeated calls for the same
// (ssid, ip) re-emit the same bytes, matching the round-trip invariant.
func (m *Machine) Ipv4Ready(ssid, ip string) {
	m.mu.Lock()
	m.lastSSID = ssid
	m.lastIP = ip
	m.mu.Unlock()

	m.setState(Connected)
	m.notify(ConnectedJSON(ssid, ip))
}

// StartNotifyOnState handles a StartNotify on the State characteristic: if
// already CONNECTED, immediately replay the last connected payload;
// otherwise do nothing, per the unchanged-state transition row.
func (m *Machine) StartNotifyOnState() {
	m.mu.Lock()
	state := m.state
	ssid, ip := m.lastSSID, m.lastIP
	m.mu.Unlock()

	if state == Connected {
		m.notify(ConnectedJSON(ssid, ip))
	}
}
