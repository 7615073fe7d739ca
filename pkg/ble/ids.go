// Package ble implements the GATT object tree exported over D-Bus: the
// object-manager root, the single primary service, its three
// characteristics, and the LE advertisement. The identifiers below are
// frozen by the external interface contract and must not change.
package ble

import "github.com/godbus/dbus/v5"

// Service and characteristic UUIDs (frozen).
const (
	ServiceUUID    = "9a7d0000-7c2a-4f8e-9b32-9b3e6d4a0001"
	DeviceInfoUUID = "9a7d0000-7c2a-4f8e-9b32-9b3e6d4a0002"
	StateUUID      = "9a7d0000-7c2a-4f8e-9b32-9b3e6d4a0003"
	CommandUUID    = "9a7d0000-7c2a-4f8e-9b32-9b3e6d4a0004"
)

// Object paths (frozen).
const (
	AppPath            dbus.ObjectPath = "/org/bluez/provision"
	ServicePath        dbus.ObjectPath = "/org/bluez/provision/service0"
	DeviceInfoCharPath dbus.ObjectPath = "/org/bluez/provision/service0/char0"
	StateCharPath      dbus.ObjectPath = "/org/bluez/provision/service0/char1"
	CommandCharPath    dbus.ObjectPath = "/org/bluez/provision/service0/char2"
	AdvertisementPath  dbus.ObjectPath = "/org/bluez/provision/advertisement0"
)

// BlueZ well-known bus name and interfaces.
const (
	BluezBusName           = "org.bluez"
	GattManagerIface       = "org.bluez.GattManager1"
	LEAdvertisingMgrIface  = "org.bluez.LEAdvertisingManager1"
	GattServiceIface       = "org.bluez.GattService1"
	GattCharacteristicIfce = "org.bluez.GattCharacteristic1"
	LEAdvertisementIface   = "org.bluez.LEAdvertisement1"
	AdapterIface           = "org.bluez.Adapter1"
	ObjectManagerIface     = "org.freedesktop.DBus.ObjectManager"
)

// DeviceInfoPayload is the exact static DeviceInfo read value.
const DeviceInfoPayload = `{"Company":"PiDevelop.com","Developer":"james@pidevelop.com","project_name":"Provision BLE"}`
