package ble

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/pidevelop/provision-ble/pkg/dbusx"
	"github.com/pidevelop/provision-ble/pkg/logger"
	"github.com/stretchr/testify/require"
)

// fakeBus records emitted property changes without touching a real D-Bus
// connection, so the characteristic's notify-gating logic can be tested in
// isolation.
type fakeBus struct {
	emitted []emission
}

type emission struct {
	path    dbus.ObjectPath
	iface   string
	changed map[string]dbus.Variant
}

func (f *fakeBus) ExportMethods(path dbus.ObjectPath, iface string, methods map[string]interface{}, props *dbusx.Properties) (*dbusx.ExportHandle, error) {
	return &dbusx.ExportHandle{}, nil
}

func (f *fakeBus) EmitPropertiesChanged(path dbus.ObjectPath, iface string, changed map[string]dbus.Variant) error {
	f.emitted = append(f.emitted, emission{path: path, iface: iface, changed: changed})
	return nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l := logger.New(logger.Config{Level: "debug", File: t.TempDir() + "/test.log"})
	t.Cleanup(l.Close)
	return l
}

func TestNotifyValueNoopWhenNotSubscribed(t *testing.T) {
	bus := &fakeBus{}
	c := NewCharacteristic(bus, testLogger(t), StateCharPath, ServicePath, StateUUID, []string{"read", "notify"})

	c.notifyValue([]byte(`{"state":"SCANNING"}`))

	require.Empty(t, bus.emitted)
	require.Empty(t, c.CachedValue())
}

func TestNotifyValueEmitsWhileSubscribed(t *testing.T) {
	bus := &fakeBus{}
	c := NewCharacteristic(bus, testLogger(t), StateCharPath, ServicePath, StateUUID, []string{"read", "notify"})

	require.Nil(t, c.startNotify())
	c.notifyValue([]byte(`{"state":"SCANNING"}`))

	require.Len(t, bus.emitted, 1)
	require.Equal(t, StateCharPath, bus.emitted[0].path)
	require.Equal(t, []byte(`{"state":"SCANNING"}`), c.CachedValue())
}

func TestNotifyValueOrderingPreserved(t *testing.T) {
	bus := &fakeBus{}
	c := NewCharacteristic(bus, testLogger(t), StateCharPath, ServicePath, StateUUID, []string{"read", "notify"})
	require.Nil(t, c.startNotify())

	c.notifyValue([]byte(`{"state":"SCANNING"}`))
	c.notifyValue([]byte(`{"op":"wifi_scan","ssids":["HomeNet"]}`))
	c.notifyValue([]byte(`{"state":"SCAN_COMPLETE"}`))

	require.Len(t, bus.emitted, 3)
	require.Equal(t, `{"state":"SCANNING"}`, string(bus.emitted[0].changed["Value"].Value().([]byte)))
	require.Equal(t, `{"op":"wifi_scan","ssids":["HomeNet"]}`, string(bus.emitted[1].changed["Value"].Value().([]byte)))
	require.Equal(t, `{"state":"SCAN_COMPLETE"}`, string(bus.emitted[2].changed["Value"].Value().([]byte)))
}

func TestReadValueUsesCallbackAndReturnsNotSupportedWithout(t *testing.T) {
	bus := &fakeBus{}
	withRead := NewCharacteristic(bus, testLogger(t), DeviceInfoCharPath, ServicePath, DeviceInfoUUID, []string{"read"}).
		OnRead(func() []byte { return []byte(DeviceInfoPayload) })

	v, err := withRead.readValue(nil)
	require.Nil(t, err)
	require.Equal(t, DeviceInfoPayload, string(v))

	withoutRead := NewCharacteristic(bus, testLogger(t), CommandCharPath, ServicePath, CommandUUID, []string{"write"})
	_, err2 := withoutRead.readValue(nil)
	require.NotNil(t, err2)
	require.Equal(t, "org.bluez.Error.NotSupported", err2.Name)
}

func TestWriteValueInvokesCallback(t *testing.T) {
	bus := &fakeBus{}
	var got []byte
	c := NewCharacteristic(bus, testLogger(t), CommandCharPath, ServicePath, CommandUUID, []string{"write"}).
		OnWrite(func(value []byte) { got = value })

	err := c.writeValue([]byte(`{"op":"wifi_scan"}`), nil)
	require.Nil(t, err)
	require.Equal(t, `{"op":"wifi_scan"}`, string(got))
}

func TestRegistryNotifyValueWarnsOnUnknownPath(t *testing.T) {
	bus := &fakeBus{}
	c := NewCharacteristic(bus, testLogger(t), StateCharPath, ServicePath, StateUUID, []string{"read", "notify"})
	require.Nil(t, c.startNotify())
	r := NewRegistry(testLogger(t), c)

	// Unknown path: no-op, no panic, nothing emitted.
	r.NotifyValue("/not/a/real/path", []byte("x"))
	require.Empty(t, bus.emitted)

	r.NotifyValue(StateCharPath, []byte(`{"state":"SCANNING"}`))
	require.Len(t, bus.emitted, 1)
}
