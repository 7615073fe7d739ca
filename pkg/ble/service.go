package ble

import (
	"github.com/godbus/dbus/v5"
	"github.com/pidevelop/provision-ble/pkg/dbusx"
)

// Service is the single primary GATT service exported by the daemon.
type Service struct {
	path   dbus.ObjectPath
	uuid   string
	client Bus
}

// NewService builds the primary service at path.
func NewService(client Bus, path dbus.ObjectPath, uuid string) *Service {
	return &Service{path: path, uuid: uuid, client: client}
}

// Path returns the service's object path.
func (s *Service) Path() dbus.ObjectPath { return s.path }

// Export registers org.bluez.GattService1 properties (no methods: BlueZ
// never calls into a GattService1 object, it only reads its properties via
// GetManagedObjects/Properties.Get).
func (s *Service) Export() (*dbusx.ExportHandle, error) {
	props := dbusx.NewProperties(GattServiceIface, map[string]func() dbus.Variant{
		"UUID":     func() dbus.Variant { return dbus.MakeVariant(s.uuid) },
		"Primary":  func() dbus.Variant { return dbus.MakeVariant(true) },
		"Includes": func() dbus.Variant { return dbus.MakeVariant([]dbus.ObjectPath{}) },
	})
	return s.client.ExportMethods(s.path, GattServiceIface, nil, props)
}
