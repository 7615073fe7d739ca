package ble

import (
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/pidevelop/provision-ble/pkg/dbusx"
	"github.com/pidevelop/provision-ble/pkg/logger"
	"github.com/pidevelop/provision-ble/pkg/metrics"
)

// ReadFunc produces the current value for a read.
type ReadFunc func() []byte

// WriteFunc handles an incoming write. value is the raw bytes from the
// central; options is ignored per the spec.
type WriteFunc func(value []byte)

// NotifyStateFunc is invoked with true/false when a central starts or stops
// notifications.
type NotifyStateFunc func(enabled bool)

// Characteristic is the generic read/write/notify machinery shared by all
// three exported characteristics. Exactly one instance notifies (State);
// the others simply never flip `notifying` to true.
type Characteristic struct {
	mu sync.Mutex

	path        dbus.ObjectPath
	uuid        string
	servicePath dbus.ObjectPath
	flags       []string

	onRead        ReadFunc
	onWrite       WriteFunc
	onNotifyState NotifyStateFunc

	notifying bool
	cached    []byte

	client Bus
	log    *logger.Logger
}

// NewCharacteristic builds a characteristic at path, belonging to service,
// with the given flags ("read", "write", "notify").
func NewCharacteristic(client Bus, log *logger.Logger, path, service dbus.ObjectPath, uuid string, flags []string) *Characteristic {
	return &Characteristic{
		path:        path,
		uuid:        uuid,
		servicePath: service,
		flags:       flags,
		client:      client,
		log:         log,
	}
}

// OnRead sets the read callback.
func (c *Characteristic) OnRead(fn ReadFunc) *Characteristic { c.onRead = fn; return c }

// OnWrite sets the write callback.
func (c *Characteristic) OnWrite(fn WriteFunc) *Characteristic { c.onWrite = fn; return c }

// OnNotifyStateChange sets the notify-state callback.
func (c *Characteristic) OnNotifyStateChange(fn NotifyStateFunc) *Characteristic {
	c.onNotifyState = fn
	return c
}

// Path returns the characteristic's object path.
func (c *Characteristic) Path() dbus.ObjectPath { return c.path }

// UUID returns the characteristic's UUID.
func (c *Characteristic) UUID() string { return c.uuid }

// Flags returns the characteristic's declared flags.
func (c *Characteristic) Flags() []string { return c.flags }

// Export registers the characteristic's methods and properties on the bus.
// If a read callback is set, the cache is seeded from it immediately so
// property reads are sensible before the first notify.
func (c *Characteristic) Export() (*dbusx.ExportHandle, error) {
	c.mu.Lock()
	if c.onRead != nil {
		c.cached = c.onRead()
	}
	c.mu.Unlock()

	methods := map[string]interface{}{
		"ReadValue":   c.readValue,
		"WriteValue":  c.writeValue,
		"StartNotify": c.startNotify,
		"StopNotify":  c.stopNotify,
	}

	props := dbusx.NewProperties(GattCharacteristicIfce, map[string]func() dbus.Variant{
		"UUID":    func() dbus.Variant { return dbus.MakeVariant(c.uuid) },
		"Service": func() dbus.Variant { return dbus.MakeVariant(c.servicePath) },
		"Flags":   func() dbus.Variant { return dbus.MakeVariant(c.flags) },
		"Value":   func() dbus.Variant { return dbus.MakeVariant(c.CachedValue()) },
		"Notifying": func() dbus.Variant {
			c.mu.Lock()
			defer c.mu.Unlock()
			return dbus.MakeVariant(c.notifying)
		},
	})

	return c.client.ExportMethods(c.path, GattCharacteristicIfce, methods, props)
}

func (c *Characteristic) readValue(options map[string]dbus.Variant) ([]byte, *dbus.Error) {
	if c.onRead == nil {
		return nil, dbus.NewError("org.bluez.Error.NotSupported", nil)
	}
	v := c.onRead()
	c.mu.Lock()
	c.cached = v
	c.mu.Unlock()
	return v, nil
}

func (c *Characteristic) writeValue(value []byte, options map[string]dbus.Variant) *dbus.Error {
	if c.onWrite == nil {
		return dbus.NewError("org.bluez.Error.NotSupported", nil)
	}
	c.onWrite(value)
	return nil
}

func (c *Characteristic) startNotify() *dbus.Error {
	c.mu.Lock()
	c.notifying = true
	c.mu.Unlock()
	if c.onNotifyState != nil {
		c.onNotifyState(true)
	}
	return nil
}

func (c *Characteristic) stopNotify() *dbus.Error {
	c.mu.Lock()
	c.notifying = false
	c.mu.Unlock()
	if c.onNotifyState != nil {
		c.onNotifyState(false)
	}
	return nil
}

// notifyValue replaces the cached value and emits a PropertiesChanged
// signal for Value, but only while a central is actually subscribed. Only
// called through Registry.NotifyValue, which is the entry point described
// by the spec; this keeps the not-found/no-op cases in one place.
func (c *Characteristic) notifyValue(value []byte) {
	c.mu.Lock()
	notifying := c.notifying
	if notifying {
		c.cached = value
	}
	c.mu.Unlock()

	if !notifying {
		return
	}

	changed := map[string]dbus.Variant{"Value": dbus.MakeVariant(value)}
	if err := c.client.EmitPropertiesChanged(c.path, GattCharacteristicIfce, changed); err != nil {
		c.log.Warn("notify %s: %v", c.path, err)
		return
	}
	metrics.NotificationsSent.WithLabelValues(string(c.path)).Inc()
}

// IsNotifying reports whether a central currently subscribes to this
// characteristic.
func (c *Characteristic) IsNotifying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notifying
}

// CachedValue returns the last cached value, or an empty slice if none.
func (c *Characteristic) CachedValue() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached == nil {
		return []byte{}
	}
	return c.cached
}
