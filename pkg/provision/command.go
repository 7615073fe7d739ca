package provision

import (
	"strings"
	"unicode/utf8"
)

// Op is a recognized command operation.
type Op string

const (
	OpWifiScan    Op = "wifi_scan"
	OpWifiConnect Op = "wifi_connect"
)

// Command is the transient, per-write parsed payload.
type Command struct {
	Op   Op
	SSID string
	PSK  string
}

// ScanHandler performs a Wi-Fi scan and returns the resulting SSID list.
type ScanHandler func() []string

// ConnectHandler submits a Wi-Fi connect request for the given ssid/psk and
// reports whether NetworkManager accepted the submission synchronously.
type ConnectHandler func(ssid, psk string) (accepted bool)

// Dispatch decodes raw as UTF-8 best-effort, extracts the command, and
// calls into the state machine and the scan/connect handlers. Matches
// spec: empty/missing op, or connect with an empty ssid, just logs a
// warning and returns — no state change.
func Dispatch(raw []byte, m *Machine, scan ScanHandler, connect ConnectHandler) {
	text := toUTF8(raw)
	cmd := Parse(text)

	switch cmd.Op {
	case OpWifiScan:
		m.WifiScanRequested()
		ssids := scan()
		m.log.Info("wifi_scan: %d networks found", len(ssids))
		m.ScanFinished(BuildScanPayload(ssids))
	case OpWifiConnect:
		if cmd.SSID == "" {
			m.log.Warn("wifi_connect: empty ssid, ignoring")
			return
		}
		m.WifiConnectAccepted()
		if !connect(cmd.SSID, cmd.PSK) {
			m.ConnectRejected()
		}
	default:
		m.log.Warn("command: unrecognized or missing op in %q", text)
	}
}

// Parse extracts op/ssid/psk from a raw command write using a minimal
// quoted-string extractor — no JSON library. Behavior on nested quotes or
// backslash escapes inside the values themselves is undefined; payloads
// are controlled by the central, and this is a known limitation.
func Parse(text string) Command {
	op := extractField(text, "op")
	if op == "" {
		if legacy := extractField(text, "cmd"); legacy != "" {
			op = legacyOp(legacy)
		}
	}

	cmd := Command{Op: Op(op)}
	if cmd.Op == OpWifiConnect {
		cmd.SSID = extractField(text, "ssid")
		cmd.PSK = extractField(text, "psk")
	}
	return cmd
}

func legacyOp(cmd string) string {
	switch cmd {
	case "wifi.scan":
		return string(OpWifiScan)
	case "wifi.connect":
		return string(OpWifiConnect)
	default:
		return ""
	}
}

// extractField finds "key", then the next ':', then the first quoted
// string after it, and returns its contents verbatim.
func extractField(text, key string) string {
	needle := `"` + key + `"`
	idx := strings.Index(text, needle)
	if idx < 0 {
		return ""
	}
	rest := text[idx+len(needle):]

	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		return ""
	}
	rest = rest[colon+1:]

	open := strings.IndexByte(rest, '"')
	if open < 0 {
		return ""
	}
	rest = rest[open+1:]

	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return ""
	}
	return rest[:end]
}

// toUTF8 decodes raw as UTF-8 best-effort: valid as-is, invalid sequences
// replaced rune-by-rune with the Unicode replacement character.
func toUTF8(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	var b strings.Builder
	b.Grow(len(raw))
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		b.WriteRune(r)
		raw = raw[size:]
	}
	return b.String()
}
