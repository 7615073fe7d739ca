package ble

import (
	"github.com/godbus/dbus/v5"
	"github.com/pidevelop/provision-ble/pkg/dbusx"
	"github.com/pidevelop/provision-ble/pkg/logger"
)

// Advertisement exports the LEAdvertisement1 descriptor the Bluetooth stack
// consumes when starting an advertising set.
type Advertisement struct {
	path        dbus.ObjectPath
	serviceUUID string
	client      Bus
	log         *logger.Logger
}

// NewAdvertisement builds the connectable-peripheral advertisement
// including serviceUUID in its service list.
func NewAdvertisement(client Bus, log *logger.Logger, path dbus.ObjectPath, serviceUUID string) *Advertisement {
	return &Advertisement{path: path, serviceUUID: serviceUUID, client: client, log: log}
}

// Path returns the advertisement's object path.
func (a *Advertisement) Path() dbus.ObjectPath { return a.path }

// Export registers org.bluez.LEAdvertisement1.
func (a *Advertisement) Export() (*dbusx.ExportHandle, error) {
	methods := map[string]interface{}{
		"Release": a.release,
	}
	props := dbusx.NewProperties(LEAdvertisementIface, map[string]func() dbus.Variant{
		"Type":         func() dbus.Variant { return dbus.MakeVariant("peripheral") },
		"ServiceUUIDs": func() dbus.Variant { return dbus.MakeVariant([]string{a.serviceUUID}) },
		"Includes":     func() dbus.Variant { return dbus.MakeVariant([]string{"tx-power", "local-name"}) },
		"Flags":        func() dbus.Variant { return dbus.MakeVariant([]string{"general-discoverable", "le-only"}) },
	})
	return a.client.ExportMethods(a.path, LEAdvertisementIface, methods, props)
}

func (a *Advertisement) release() *dbus.Error {
	a.log.Info("advertisement released by Bluetooth stack")
	return nil
}
