package ble

import (
	"github.com/godbus/dbus/v5"
	"github.com/pidevelop/provision-ble/pkg/dbusx"
)

// Application is the object-manager root: BlueZ discovers the whole GATT
// tree by calling GetManagedObjects on it once, at RegisterApplication
// time. The set returned is fixed for the process lifetime — there is no
// add/remove support, matching the spec's "constant tree" invariant.
type Application struct {
	path    dbus.ObjectPath
	service *Service
	chars   []*Characteristic
	client  Bus
}

// NewApplication builds the object-manager root for service and its
// characteristics.
func NewApplication(client Bus, path dbus.ObjectPath, service *Service, chars ...*Characteristic) *Application {
	return &Application{path: path, service: service, chars: chars, client: client}
}

// Export registers org.freedesktop.DBus.ObjectManager at the app path.
func (a *Application) Export() (*dbusx.ExportHandle, error) {
	methods := map[string]interface{}{
		"GetManagedObjects": a.getManagedObjects,
	}
	return a.client.ExportMethods(a.path, ObjectManagerIface, methods, nil)
}

func (a *Application) getManagedObjects() (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, *dbus.Error) {
	out := make(map[dbus.ObjectPath]map[string]map[string]dbus.Variant, 1+len(a.chars))

	out[a.service.Path()] = map[string]map[string]dbus.Variant{
		GattServiceIface: {
			"UUID":     dbus.MakeVariant(a.service.uuid),
			"Primary":  dbus.MakeVariant(true),
			"Includes": dbus.MakeVariant([]dbus.ObjectPath{}),
		},
	}

	for _, c := range a.chars {
		out[c.Path()] = map[string]map[string]dbus.Variant{
			GattCharacteristicIfce: {
				"UUID":        dbus.MakeVariant(c.UUID()),
				"Service":     dbus.MakeVariant(a.service.Path()),
				"Flags":       dbus.MakeVariant(c.Flags()),
				"Notifying":   dbus.MakeVariant(c.IsNotifying()),
				"Descriptors": dbus.MakeVariant([]dbus.ObjectPath{}),
			},
		}
	}

	return out, nil
}
