package ble

import (
	"github.com/godbus/dbus/v5"
	"github.com/pidevelop/provision-ble/pkg/logger"
)

// Registry maps object paths to their characteristic, so dispatcher code
// that only knows "notify State" can reach the right object. It is built
// once at startup from the fixed tree and never mutated afterward.
type Registry struct {
	chars map[dbus.ObjectPath]*Characteristic
	log   *logger.Logger
}

// NewRegistry indexes the given characteristics by path.
func NewRegistry(log *logger.Logger, chars ...*Characteristic) *Registry {
	r := &Registry{chars: make(map[dbus.ObjectPath]*Characteristic, len(chars)), log: log}
	for _, c := range chars {
		r.chars[c.Path()] = c
	}
	return r
}

// NotifyValue is the notify_value(path, bytes) entry point from the spec:
// if the characteristic isn't found, log a warning and no-op; otherwise
// delegate to it.
func (r *Registry) NotifyValue(path dbus.ObjectPath, value []byte) {
	c, ok := r.chars[path]
	if !ok {
		r.log.Warn("notify_value: unknown characteristic %s", path)
		return
	}
	c.notifyValue(value)
}

// Get returns the characteristic at path, if any.
func (r *Registry) Get(path dbus.ObjectPath) (*Characteristic, bool) {
	c, ok := r.chars[path]
	return c, ok
}
