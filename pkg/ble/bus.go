package ble

import (
	"github.com/godbus/dbus/v5"
	"github.com/pidevelop/provision-ble/pkg/dbusx"
)

// Bus is the subset of dbusx.Client the GATT tree objects need: exporting
// themselves and emitting property-change signals. Exported objects depend
// on this interface rather than the concrete client so tests can exercise
// read/write/notify logic with a fake bus and no real D-Bus connection.
type Bus interface {
	ExportMethods(path dbus.ObjectPath, iface string, methods map[string]interface{}, props *dbusx.Properties) (*dbusx.ExportHandle, error)
	EmitPropertiesChanged(path dbus.ObjectPath, iface string, changed map[string]dbus.Variant) error
}
