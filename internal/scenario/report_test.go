package scenario

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteReportIncludesEveryScenario(t *testing.T) {
	results := []Result{
		{Name: "S1-perfect", Success: true, Sent: 5, AcksReceived: 5, Duration: 10 * time.Millisecond},
		{Name: "S2-noisy", Success: false, Sent: 8, Retransmitted: 3, AcksReceived: 5, Duration: 40 * time.Millisecond},
	}
	var buf bytes.Buffer
	WriteReport(&buf, results)
	out := buf.String()
	require.True(t, strings.Contains(out, "S1-perfect"))
	require.True(t, strings.Contains(out, "S2-noisy"))
	require.True(t, strings.Contains(out, "SCENARIO"))
}
