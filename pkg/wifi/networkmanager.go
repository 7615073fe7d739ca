// Package wifi talks to NetworkManager over D-Bus to enumerate access
// points and to request/activate a WPA-PSK connection. It is the
// "network-management daemon" collaborator: scanning and association
// themselves happen in NetworkManager, not here.
package wifi

import (
	"fmt"
	"sort"

	"github.com/godbus/dbus/v5"
	"github.com/pidevelop/provision-ble/pkg/dbusx"
)

const (
	nmBusName       = "org.freedesktop.NetworkManager"
	nmObjectPath    = dbus.ObjectPath("/org/freedesktop/NetworkManager")
	nmIface         = "org.freedesktop.NetworkManager"
	nmDeviceIface   = "org.freedesktop.NetworkManager.Device"
	nmWirelessIface = "org.freedesktop.NetworkManager.Device.Wireless"
	nmAccessPointIface = "org.freedesktop.NetworkManager.AccessPoint"
)

// AccessPoint is the subset of an NM access point's properties this daemon
// cares about.
type AccessPoint struct {
	SSID     string
	Strength uint8
}

// Client wraps the subset of the NetworkManager D-Bus API the daemon needs:
// finding the Wi-Fi device, requesting a scan, enumerating access points,
// reading the active connection's SSID/IPv4, and submitting a
// connect-and-activate request.
type Client struct {
	bus       *dbusx.Client
	ifaceName string
}

// NewClient builds a NetworkManager client for the given Wi-Fi interface
// name (e.g. "wlan0").
func NewClient(bus *dbusx.Client, ifaceName string) *Client {
	return &Client{bus: bus, ifaceName: ifaceName}
}

// devicePath finds the device object whose Interface property matches
// ifaceName, via NetworkManager's GetDeviceByIpIface convenience call.
func (c *Client) devicePath() (dbus.ObjectPath, error) {
	call := c.bus.Call(nmBusName, nmObjectPath, nmIface+".GetDeviceByIpIface", c.ifaceName)
	if call.Err != nil {
		return "", fmt.Errorf("%w: GetDeviceByIpIface(%s): %v", dbusx.ErrCall, c.ifaceName, call.Err)
	}
	var path dbus.ObjectPath
	if err := call.Store(&path); err != nil {
		return "", fmt.Errorf("%w: decode device path: %v", dbusx.ErrCall, err)
	}
	return path, nil
}

// RequestScan asks NetworkManager to refresh its AP list. Best-effort: a
// failure here is logged by the caller and scanning proceeds anyway with
// whatever AP cache NetworkManager already has.
func (c *Client) RequestScan() error {
	dev, err := c.devicePath()
	if err != nil {
		return err
	}
	call := c.bus.Call(nmBusName, dev, nmWirelessIface+".RequestScan", map[string]dbus.Variant{})
	if call.Err != nil {
		return fmt.Errorf("%w: RequestScan: %v", dbusx.ErrCall, call.Err)
	}
	return nil
}

// AccessPoints enumerates the currently known access points on the Wi-Fi
// device, deduplicated by SSID (keeping the strongest signal) and sorted
// descending by strength. Empty SSIDs (hidden networks) are dropped.
func (c *Client) AccessPoints() ([]AccessPoint, error) {
	dev, err := c.devicePath()
	if err != nil {
		return nil, err
	}

	call := c.bus.Call(nmBusName, dev, "org.freedesktop.DBus.Properties.Get", nmWirelessIface, "AccessPoints")
	if call.Err != nil {
		return nil, fmt.Errorf("%w: get AccessPoints: %v", dbusx.ErrCall, call.Err)
	}
	var v dbus.Variant
	if err := call.Store(&v); err != nil {
		return nil, fmt.Errorf("%w: decode AccessPoints variant: %v", dbusx.ErrCall, err)
	}
	paths, ok := v.Value().([]dbus.ObjectPath)
	if !ok {
		return nil, fmt.Errorf("%w: AccessPoints: unexpected variant shape", dbusx.ErrCall)
	}

	raw := make([]AccessPoint, 0, len(paths))
	for _, p := range paths {
		ssid, strength, err := c.readAccessPoint(p)
		if err != nil || ssid == "" {
			continue
		}
		raw = append(raw, AccessPoint{SSID: ssid, Strength: strength})
	}

	return dedupeStrongest(raw), nil
}

// dedupeStrongest collapses duplicate SSIDs to their strongest observed
// signal and returns the result sorted by descending strength. Split out
// from AccessPoints so the dedup/sort rule can be exercised without a D-Bus
// connection.
func dedupeStrongest(aps []AccessPoint) []AccessPoint {
	best := make(map[string]uint8, len(aps))
	for _, ap := range aps {
		if cur, ok := best[ap.SSID]; !ok || ap.Strength > cur {
			best[ap.SSID] = ap.Strength
		}
	}

	out := make([]AccessPoint, 0, len(best))
	for ssid, strength := range best {
		out = append(out, AccessPoint{SSID: ssid, Strength: strength})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strength > out[j].Strength })
	return out
}

func (c *Client) readAccessPoint(path dbus.ObjectPath) (string, uint8, error) {
	props, err := c.getAll(path, nmAccessPointIface)
	if err != nil {
		return "", 0, err
	}
	ssid, _ := props["Ssid"].Value().([]byte)
	strength, _ := props["Strength"].Value().(uint8)
	return string(ssid), strength, nil
}

func (c *Client) getAll(path dbus.ObjectPath, iface string) (map[string]dbus.Variant, error) {
	call := c.bus.Call(nmBusName, path, "org.freedesktop.DBus.Properties.GetAll", iface)
	if call.Err != nil {
		return nil, fmt.Errorf("%w: GetAll %s on %s: %v", dbusx.ErrCall, iface, path, call.Err)
	}
	var props map[string]dbus.Variant
	if err := call.Store(&props); err != nil {
		return nil, fmt.Errorf("%w: decode GetAll: %v", dbusx.ErrCall, err)
	}
	return props, nil
}

// ActiveSSID returns the SSID of the device's current active access point,
// or "unknown" if none is available.
func (c *Client) ActiveSSID() string {
	dev, err := c.devicePath()
	if err != nil {
		return "unknown"
	}
	props, err := c.getAll(dev, nmWirelessIface)
	if err != nil {
		return "unknown"
	}
	apPath, ok := props["ActiveAccessPoint"].Value().(dbus.ObjectPath)
	if !ok || apPath == "" || apPath == "/" {
		return "unknown"
	}
	ssid, _, err := c.readAccessPoint(apPath)
	if err != nil || ssid == "" {
		return "unknown"
	}
	return ssid
}

// FirstIPv4 returns the device's first IPv4 address in string form, or ""
// if the device has none yet.
func (c *Client) FirstIPv4() string {
	dev, err := c.devicePath()
	if err != nil {
		return ""
	}
	devProps, err := c.getAll(dev, nmDeviceIface)
	if err != nil {
		return ""
	}
	ip4Path, ok := devProps["Ip4Config"].Value().(dbus.ObjectPath)
	if !ok || ip4Path == "" || ip4Path == "/" {
		return ""
	}
	ip4Props, err := c.getAll(ip4Path, "org.freedesktop.NetworkManager.IP4Config")
	if err != nil {
		return ""
	}
	addrs, ok := ip4Props["AddressData"].Value().([]map[string]dbus.Variant)
	if !ok || len(addrs) == 0 {
		return ""
	}
	addr, _ := addrs[0]["address"].Value().(string)
	return addr
}

// ConnectOutcome is the synchronous submission result of AddAndActivate.
type ConnectOutcome int

const (
	// ConnectAccepted means the request was accepted; success/failure is
	// observed later via IPv4-ready or is never observed at all.
	ConnectAccepted ConnectOutcome = iota
	// ConnectRejected means the submission itself failed synchronously.
	ConnectRejected
)

// AddAndActivate builds a WPA-PSK connection profile for ssid/psk and
// submits it to NetworkManager. It does not wait for association; the
// return value only reflects whether the submission itself was accepted.
func (c *Client) AddAndActivate(ssid, psk string) ConnectOutcome {
	dev, err := c.devicePath()
	if err != nil {
		return ConnectRejected
	}

	settings := map[string]map[string]dbus.Variant{
		"connection": {
			"id":          dbus.MakeVariant(ssid),
			"type":        dbus.MakeVariant("802-11-wireless"),
			"autoconnect": dbus.MakeVariant(true),
		},
		"802-11-wireless": {
			"ssid": dbus.MakeVariant([]byte(ssid)),
			"mode": dbus.MakeVariant("infrastructure"),
		},
		"802-11-wireless-security": {
			"key-mgmt": dbus.MakeVariant("wpa-psk"),
			"psk":      dbus.MakeVariant(psk),
		},
		"ipv4": {
			"method": dbus.MakeVariant("auto"),
		},
	}

	call := c.bus.Call(nmBusName, nmObjectPath, nmIface+".AddAndActivateConnection",
		settings, dev, dbus.ObjectPath("/"))
	if call.Err != nil {
		return ConnectRejected
	}
	return ConnectAccepted
}
