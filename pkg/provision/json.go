package provision

import "strings"

// scanPayloadCap is the single-chunk notification size limit for scan
// results (the frozen 200-byte rule).
const scanPayloadCap = 200

// StateJSON builds the bare `{"state":"..."}` payload for a plain state
// transition.
func StateJSON(s State) []byte {
	var b strings.Builder
	b.WriteString(`{"state":"`)
	b.WriteString(string(s))
	b.WriteString(`"}`)
	return []byte(b.String())
}

// ConnectedJSON builds the `{"state":"CONNECTED","ssid":"...","ip":"..."}`
// payload, with ssid and ip escaped per escapeJSON.
func ConnectedJSON(ssid, ip string) []byte {
	var b strings.Builder
	b.WriteString(`{"state":"CONNECTED","ssid":"`)
	b.WriteString(escapeJSON(ssid))
	b.WriteString(`","ip":"`)
	b.WriteString(escapeJSON(ip))
	b.WriteString(`"}`)
	return []byte(b.String())
}

// BuildScanPayload builds `{"op":"wifi_scan","ssids":[...]}`, appending
// SSIDs one at a time and stopping before adding an entry that would push
// the total (including the closing `]}`) past scanPayloadCap. No entry is
// ever partially included.
func BuildScanPayload(ssids []string) []byte {
	const prefix = `{"op":"wifi_scan","ssids":[`
	const suffix = `]}`

	var b strings.Builder
	b.WriteString(prefix)

	for i, ssid := range ssids {
		entry := `"` + escapeJSON(ssid) + `"`
		if i > 0 {
			entry = "," + entry
		}
		if b.Len()+len(entry)+len(suffix) > scanPayloadCap {
			break
		}
		b.WriteString(entry)
	}

	b.WriteString(suffix)
	return []byte(b.String())
}

// escapeJSON implements the frozen 5-escape rule: backslash, double-quote,
// newline, carriage return, tab are escaped; any other control byte below
// 0x20 is replaced with '?'. This is deliberately not encoding/json.Marshal:
// the wire format is a frozen byte-for-byte contract, and the standard
// library escapes a different (larger) character set, including '<', '>',
// '&', and non-ASCII runes via \uXXXX.
func escapeJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 {
				b.WriteByte('?')
			} else {
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}
