package provision

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateJSON(t *testing.T) {
	require.Equal(t, `{"state":"SCANNING"}`, string(StateJSON(Scanning)))
	require.Equal(t, `{"state":"SCAN_COMPLETE"}`, string(StateJSON(ScanComplete)))
}

func TestConnectedJSONEscapesFields(t *testing.T) {
	out := ConnectedJSON("Home\"Net", "192.168.1.20")
	require.Equal(t, `{"state":"CONNECTED","ssid":"Home\"Net","ip":"192.168.1.20"}`, string(out))
}

func TestEscapeJSONSurvivesArbitraryBytes(t *testing.T) {
	in := "a\\b\"c\nd\re\tf\x01g\x1fh"
	got := escapeJSON(in)
	require.Equal(t, `a\\b\"c\nd\re\tf?g?h`, got)
}

func TestBuildScanPayloadBasic(t *testing.T) {
	out := BuildScanPayload([]string{"HomeNet", "Cafe"})
	require.Equal(t, `{"op":"wifi_scan","ssids":["HomeNet","Cafe"]}`, string(out))
}

func TestBuildScanPayloadTruncation(t *testing.T) {
	long := strings.Repeat("A", 150)
	out := BuildScanPayload([]string{long, long})

	require.LessOrEqual(t, len(out), 200)
	require.Equal(t, `{"op":"wifi_scan","ssids":["`+long+`"]}`, string(out))
}

func TestBuildScanPayloadEmpty(t *testing.T) {
	require.Equal(t, `{"op":"wifi_scan","ssids":[]}`, string(BuildScanPayload(nil)))
}
