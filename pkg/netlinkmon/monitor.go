//go:build linux

// Package netlinkmon watches for kernel IPv4 address-change events on a
// dedicated OS thread and posts "ready"/"removed" events for a named
// Wi-Fi interface onto the dispatcher. It never calls the provisioning
// state machine directly — only the cross-context post primitive supplied
// by the caller.
package netlinkmon

import (
	"fmt"
	"net"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/pidevelop/provision-ble/pkg/logger"
)

// EventKind distinguishes the two address-change events this monitor
// surfaces. A typed enum, not an untyped closure, crosses the netlink
// thread/dispatcher boundary.
type EventKind int

const (
	Ipv4Ready EventKind = iota
	Ipv4Removed
)

// Event is posted from the netlink thread to the dispatcher.
type Event struct {
	Kind  EventKind
	Iface string
}

// Poster hands fn off from the netlink goroutine. The daemon supplies one
// that runs fn in place, with onEvent set to the dispatcher's typed
// PostNetlinkEvent, so only an Event value crosses to the dispatcher; the
// netlink thread never touches dispatcher state directly.
type Poster func(fn func())

// Monitor owns a single netlink-route socket bound to the IPv4
// address-change multicast group, read from exclusively by its own
// goroutine for the process lifetime.
type Monitor struct {
	ifaceName string
	post      Poster
	onEvent   func(Event)
	log       *logger.Logger
	stop      chan struct{}
}

// New builds a monitor for ifaceName (e.g. "wlan0"). onEvent is invoked via
// post for every NEWADDR/DELADDR match.
func New(log *logger.Logger, ifaceName string, post Poster, onEvent func(Event)) *Monitor {
	return &Monitor{ifaceName: ifaceName, post: post, onEvent: onEvent, log: log, stop: make(chan struct{})}
}

// Run opens the netlink socket and blocks reading events until Stop is
// called. Intended to be run on its own goroutine (effectively its own OS
// thread for the lifetime of the socket read loop) for the process
// lifetime. Individual recv errors are logged and do not terminate the
// loop.
func (m *Monitor) Run() error {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW, unix.NETLINK_ROUTE)
	if err != nil {
		return fmt.Errorf("netlinkmon: open socket: %w", err)
	}
	defer unix.Close(fd)

	addr := &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: unix.RTMGRP_IPV4_IFADDR}
	if err := unix.Bind(fd, addr); err != nil {
		return fmt.Errorf("netlinkmon: bind: %w", err)
	}

	m.log.Info("netlink monitor watching %s for IPv4 address changes", m.ifaceName)

	buf := make([]byte, 8192)
	for {
		select {
		case <-m.stop:
			return nil
		default:
		}

		n, _, err := unix.Recvfrom(fd, buf, 0)
		if err != nil {
			m.log.Warn("netlinkmon: recv: %v", err)
			continue
		}

		msgs, err := unix.ParseNetlinkMessage(buf[:n])
		if err != nil {
			m.log.Warn("netlinkmon: parse: %v", err)
			continue
		}

		for _, msg := range msgs {
			m.handleMessage(msg)
		}
	}
}

// Stop signals Run to exit. Safe to call once; Run may take up to one
// Recvfrom call to notice.
func (m *Monitor) Stop() { close(m.stop) }

func (m *Monitor) handleMessage(msg unix.NetlinkMessage) {
	switch msg.Header.Type {
	case unix.RTM_NEWADDR:
		m.handleAddr(msg.Data, Ipv4Ready)
	case unix.RTM_DELADDR:
		m.handleAddr(msg.Data, Ipv4Removed)
	}
}

func (m *Monitor) handleAddr(data []byte, kind EventKind) {
	ifa, ifaceName, ok := parseIfAddrMsg(data)
	if !ok || ifa.Family != unix.AF_INET {
		return
	}
	if ifaceName != m.ifaceName {
		return
	}

	if kind == Ipv4Removed {
		m.log.Info("netlinkmon: address removed on %s", ifaceName)
	}

	ev := Event{Kind: kind, Iface: ifaceName}
	m.post(func() { m.onEvent(ev) })
}

// parseIfAddrMsg decodes the ifaddrmsg header and resolves its interface
// index to a name. Returns ok=false if the message is too short to
// contain a full header.
func parseIfAddrMsg(data []byte) (unix.IfAddrmsg, string, bool) {
	if len(data) < unix.SizeofIfAddrmsg {
		return unix.IfAddrmsg{}, "", false
	}
	ifa := *(*unix.IfAddrmsg)(unsafe.Pointer(&data[0]))

	iface, err := net.InterfaceByIndex(int(ifa.Index))
	if err != nil {
		return ifa, "", false
	}
	return ifa, iface.Name, true
}
