package dbusx

import "github.com/godbus/dbus/v5"

// Properties is a minimal, hand-rolled implementation of
// org.freedesktop.DBus.Properties backed by per-property getter funcs. BlueZ
// reads service/characteristic/advertisement properties this way; there is
// no generic "properties bag" struct because each exported object defines
// its own small, fixed set of properties.
type Properties struct {
	iface string
	get   map[string]func() dbus.Variant
	set   func(name string, value dbus.Variant) *dbus.Error // optional
}

// NewProperties builds a Properties vtable for a single D-Bus interface.
func NewProperties(iface string, get map[string]func() dbus.Variant) *Properties {
	return &Properties{iface: iface, get: get}
}

// WithSet adds a Set handler. No exported object installs one; without it,
// Set answers PropertyReadOnly.
func (p *Properties) WithSet(set func(name string, value dbus.Variant) *dbus.Error) *Properties {
	p.set = set
	return p
}

func (p *Properties) methodTable() map[string]interface{} {
	return map[string]interface{}{
		"Get":    p.get1,
		"GetAll": p.getAll,
		"Set":    p.setOne,
	}
}

func (p *Properties) get1(iface, name string) (dbus.Variant, *dbus.Error) {
	if iface != "" && iface != p.iface {
		return dbus.Variant{}, dbus.NewError("org.freedesktop.DBus.Error.UnknownInterface", nil)
	}
	fn, ok := p.get[name]
	if !ok {
		return dbus.Variant{}, dbus.NewError("org.freedesktop.DBus.Error.UnknownProperty", nil)
	}
	return fn(), nil
}

func (p *Properties) getAll(iface string) (map[string]dbus.Variant, *dbus.Error) {
	if iface != "" && iface != p.iface {
		return nil, dbus.NewError("org.freedesktop.DBus.Error.UnknownInterface", nil)
	}
	out := make(map[string]dbus.Variant, len(p.get))
	for name, fn := range p.get {
		out[name] = fn()
	}
	return out, nil
}

func (p *Properties) setOne(iface, name string, value dbus.Variant) *dbus.Error {
	if iface != "" && iface != p.iface {
		return dbus.NewError("org.freedesktop.DBus.Error.UnknownInterface", nil)
	}
	if p.set == nil {
		return dbus.NewError("org.freedesktop.DBus.Error.PropertyReadOnly", nil)
	}
	return p.set(name, value)
}
