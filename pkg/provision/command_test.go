package provision

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseWifiScan(t *testing.T) {
	cmd := Parse(`{"op":"wifi_scan"}`)
	require.Equal(t, OpWifiScan, cmd.Op)
}

func TestParseWifiConnect(t *testing.T) {
	cmd := Parse(`{"op":"wifi_connect","ssid":"HomeNet","psk":"secret"}`)
	require.Equal(t, OpWifiConnect, cmd.Op)
	require.Equal(t, "HomeNet", cmd.SSID)
	require.Equal(t, "secret", cmd.PSK)
}

func TestParseLegacyScanAlias(t *testing.T) {
	cmd := Parse(`{"cmd":"wifi.scan"}`)
	require.Equal(t, OpWifiScan, cmd.Op)
}

func TestParseLegacyConnectAlias(t *testing.T) {
	cmd := Parse(`{"cmd":"wifi.connect","ssid":"HomeNet","psk":"secret"}`)
	require.Equal(t, OpWifiConnect, cmd.Op)
	require.Equal(t, "HomeNet", cmd.SSID)
}

func TestParseUnknownOp(t *testing.T) {
	cmd := Parse(`{"op":"reboot"}`)
	require.Equal(t, Op("reboot"), cmd.Op)
}

func TestParseEmptyPayload(t *testing.T) {
	cmd := Parse(``)
	require.Equal(t, Op(""), cmd.Op)
}

func TestDispatchWifiScan(t *testing.T) {
	log := testLoggerProvision(t)
	var emitted [][]byte
	m := NewMachine(log, func(v []byte) { emitted = append(emitted, v) })

	Dispatch([]byte(`{"op":"wifi_scan"}`), m, func() []string {
		return []string{"HomeNet", "Cafe"}
	}, func(ssid, psk string) bool { t.Fatal("connect should not be called"); return false })

	require.Len(t, emitted, 3)
	require.Equal(t, `{"state":"SCANNING"}`, string(emitted[0]))
	require.Equal(t, `{"op":"wifi_scan","ssids":["HomeNet","Cafe"]}`, string(emitted[1]))
	require.Equal(t, `{"state":"SCAN_COMPLETE"}`, string(emitted[2]))
	require.Equal(t, ScanComplete, m.State())
}

func TestDispatchLegacyScanAliasBehavesLikeWifiScan(t *testing.T) {
	log := testLoggerProvision(t)
	var emitted [][]byte
	m := NewMachine(log, func(v []byte) { emitted = append(emitted, v) })

	Dispatch([]byte(`{"cmd":"wifi.scan"}`), m,
		func() []string { return []string{"HomeNet", "Cafe"} },
		func(ssid, psk string) bool { t.Fatal("connect should not be called"); return false })

	require.Equal(t, []string{
		`{"state":"SCANNING"}`,
		`{"op":"wifi_scan","ssids":["HomeNet","Cafe"]}`,
		`{"state":"SCAN_COMPLETE"}`,
	}, toStrings(emitted))
	require.Equal(t, ScanComplete, m.State())
}

func TestDispatchWifiConnectEmptySSIDNoOp(t *testing.T) {
	log := testLoggerProvision(t)
	var emitted [][]byte
	m := NewMachine(log, func(v []byte) { emitted = append(emitted, v) })

	Dispatch([]byte(`{"op":"wifi_connect","ssid":"","psk":"x"}`), m,
		func() []string { return nil },
		func(ssid, psk string) bool { t.Fatal("connect should not be called"); return false })

	require.Empty(t, emitted)
	require.Equal(t, Unconfigured, m.State())
}

func TestDispatchWifiConnectHappyPath(t *testing.T) {
	log := testLoggerProvision(t)
	var emitted [][]byte
	var gotSSID, gotPSK string
	m := NewMachine(log, func(v []byte) { emitted = append(emitted, v) })

	Dispatch([]byte(`{"op":"wifi_connect","ssid":"HomeNet","psk":"secret"}`), m,
		func() []string { return nil },
		func(ssid, psk string) bool { gotSSID, gotPSK = ssid, psk; return true })

	require.Len(t, emitted, 1)
	require.Equal(t, `{"state":"CONNECTING"}`, string(emitted[0]))
	require.Equal(t, "HomeNet", gotSSID)
	require.Equal(t, "secret", gotPSK)
	require.Equal(t, Connecting, m.State())
}

func TestDispatchWifiConnectRejectedReverts(t *testing.T) {
	log := testLoggerProvision(t)
	var emitted [][]byte
	m := NewMachine(log, func(v []byte) { emitted = append(emitted, v) })

	Dispatch([]byte(`{"op":"wifi_connect","ssid":"HomeNet","psk":"secret"}`), m,
		func() []string { return nil },
		func(ssid, psk string) bool { return false })

	require.Equal(t, []string{
		`{"state":"CONNECTING"}`,
		`{"state":"UNCONFIGURED"}`,
	}, toStrings(emitted))
	require.Equal(t, Unconfigured, m.State())
}

func TestDispatchUnknownOpNoOp(t *testing.T) {
	log := testLoggerProvision(t)
	var emitted [][]byte
	m := NewMachine(log, func(v []byte) { emitted = append(emitted, v) })

	Dispatch([]byte(`{"op":"reboot"}`), m,
		func() []string { return nil },
		func(ssid, psk string) bool { t.Fatal("connect should not be called"); return false })

	require.Empty(t, emitted)
	require.Equal(t, Unconfigured, m.State())
}
