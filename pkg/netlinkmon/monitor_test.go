//go:build linux

package netlinkmon

import (
	"net"
	"testing"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/pidevelop/provision-ble/pkg/logger"
	"github.com/stretchr/testify/require"
)

func testMonLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l := logger.New(logger.Config{Level: "debug", File: t.TempDir() + "/test.log"})
	t.Cleanup(l.Close)
	return l
}

func ifaddrmsgBytes(family uint8, index uint32) []byte {
	msg := unix.IfAddrmsg{Family: family, Index: index}
	size := unsafe.Sizeof(msg)
	buf := make([]byte, size)
	*(*unix.IfAddrmsg)(unsafe.Pointer(&buf[0])) = msg
	return buf
}

func TestHandleAddrPostsEventForMatchingInterface(t *testing.T) {
	lo, err := net.InterfaceByName("lo")
	require.NoError(t, err)

	var posted []Event
	m := New(testMonLogger(t), "lo", func(fn func()) { fn() }, func(ev Event) { posted = append(posted, ev) })

	m.handleAddr(ifaddrmsgBytes(unix.AF_INET, uint32(lo.Index)), Ipv4Ready)

	require.Len(t, posted, 1)
	require.Equal(t, Ipv4Ready, posted[0].Kind)
	require.Equal(t, "lo", posted[0].Iface)
}

func TestHandleAddrIgnoresOtherInterfaces(t *testing.T) {
	var posted []Event
	m := New(testMonLogger(t), "wlan0", func(fn func()) { fn() }, func(ev Event) { posted = append(posted, ev) })

	lo, err := net.InterfaceByName("lo")
	require.NoError(t, err)

	m.handleAddr(ifaddrmsgBytes(unix.AF_INET, uint32(lo.Index)), Ipv4Ready)

	require.Empty(t, posted)
}

func TestHandleAddrIgnoresNonIPv4Family(t *testing.T) {
	var posted []Event
	lo, err := net.InterfaceByName("lo")
	require.NoError(t, err)

	m := New(testMonLogger(t), "lo", func(fn func()) { fn() }, func(ev Event) { posted = append(posted, ev) })
	m.handleAddr(ifaddrmsgBytes(unix.AF_INET6, uint32(lo.Index)), Ipv4Ready)

	require.Empty(t, posted)
}

func TestHandleAddrTooShortIsIgnored(t *testing.T) {
	var posted []Event
	m := New(testMonLogger(t), "lo", func(fn func()) { fn() }, func(ev Event) { posted = append(posted, ev) })
	m.handleAddr([]byte{1, 2}, Ipv4Ready)
	require.Empty(t, posted)
}
