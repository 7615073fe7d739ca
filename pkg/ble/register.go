package ble

import (
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/pidevelop/provision-ble/pkg/dbusx"
)

// ErrAdapterNotFound is returned when no local adapter exposes both
// GattManager1 and LEAdvertisingManager1.
var ErrAdapterNotFound = errors.New("no adapter with GATT and LE advertising capability")

// FindAdapter probes the BlueZ ObjectManager for an adapter exposing both
// GattManager1 and LEAdvertisingManager1. preferredID (e.g. "hci0"), if
// present among the capable adapters, wins; otherwise one of the capable
// adapters is used, with no fixed order among them (the managed-object map
// is iterated as Go ranges over maps).
func FindAdapter(client *dbusx.Client, preferredID string) (dbus.ObjectPath, error) {
	var managed map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	call := client.Call(BluezBusName, "/", "org.freedesktop.DBus.ObjectManager.GetManagedObjects")
	if call.Err != nil {
		return "", fmt.Errorf("%w: probe adapters: %v", ErrAdapterNotFound, call.Err)
	}
	if err := call.Store(&managed); err != nil {
		return "", fmt.Errorf("%w: decode adapters: %v", ErrAdapterNotFound, err)
	}

	preferred := dbus.ObjectPath("/org/bluez/" + preferredID)
	var fallback dbus.ObjectPath
	for path, ifaces := range managed {
		_, hasGatt := ifaces[GattManagerIface]
		_, hasAdv := ifaces[LEAdvertisingMgrIface]
		if !hasGatt || !hasAdv {
			continue
		}
		if path == preferred {
			return path, nil
		}
		if fallback == "" {
			fallback = path
		}
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", ErrAdapterNotFound
}

// RegisterApplication registers the GATT application root with BlueZ.
// BlueZ walks the whole GetManagedObjects tree as part of this call, which
// can take noticeably longer than a property get/set, so it goes through
// the async path and blocks here only long enough to turn the one
// completion into an ordinary error return for the (synchronous, fatal)
// startup sequence.
func RegisterApplication(client *dbusx.Client, adapter dbus.ObjectPath, appPath dbus.ObjectPath) error {
	return asyncCallSync(client, BluezBusName, adapter, GattManagerIface+".RegisterApplication", "RegisterApplication", appPath, map[string]dbus.Variant{})
}

// RegisterAdvertisement registers the advertisement object with BlueZ.
func RegisterAdvertisement(client *dbusx.Client, adapter dbus.ObjectPath, advPath dbus.ObjectPath) error {
	return asyncCallSync(client, BluezBusName, adapter, LEAdvertisingMgrIface+".RegisterAdvertisement", "RegisterAdvertisement", advPath, map[string]dbus.Variant{})
}

// asyncCallSync submits method through the IPC client's async call path and
// blocks until its single completion arrives, turning it into an ordinary
// error return for callers on the startup path.
func asyncCallSync(client *dbusx.Client, dest string, path dbus.ObjectPath, method, label string, args ...interface{}) error {
	done := make(chan struct {
		ok     bool
		errMsg string
	}, 1)
	client.AsyncCall(dest, path, method, func(ok bool, errMsg string) {
		done <- struct {
			ok     bool
			errMsg string
		}{ok, errMsg}
	}, args...)

	result := <-done
	if !result.ok {
		return fmt.Errorf("%w: %s: %s", dbusx.ErrCall, label, result.errMsg)
	}
	return nil
}

// SetAdapterAlias sets the adapter's advertised name.
func SetAdapterAlias(client *dbusx.Client, adapter dbus.ObjectPath, alias string) error {
	call := client.Call(BluezBusName, adapter, "org.freedesktop.DBus.Properties.Set", AdapterIface, "Alias", dbus.MakeVariant(alias))
	if call.Err != nil {
		return fmt.Errorf("%w: set adapter alias: %v", dbusx.ErrCall, call.Err)
	}
	return nil
}
