package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/lungscan/internal/domain/scans"
)

func TestGetUserPrompt_HistoryOrderThenCurrent(t *testing.T) {
	history := []scans.HistoryEntry{
		{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Label: scans.LabelNormal},
		{Timestamp: time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC), Label: scans.LabelBenign},
	}
	p := GetUserPrompt("Alice", scans.LabelMalignant, 0.91, history)

	first := strings.Index(p, "01-01-2024 00:00 : Normal")
	second := strings.Index(p, "02-02-2024 00:00 : Benign")
	current := strings.Index(p, "Current Result: Malignant")
	conf := strings.Index(p, "Confidence: 0.91")

	require.True(t, first >= 0 && second > first, "history lines out of order:\n%s", p)
	require.Greater(t, current, second)
	require.Greater(t, conf, current)
	require.Contains(t, p, "Patient Name: Alice")
}

func TestGetUserPrompt_NoHistory(t *testing.T) {
	p := GetUserPrompt("Bob", scans.LabelNormal, 0.8, nil)
	require.Contains(t, p, "No previous records.")
}

func TestHistoryTranscript(t *testing.T) {
	ts := time.Date(2025, 3, 9, 14, 5, 0, 0, time.UTC)
	got := HistoryTranscript([]scans.HistoryEntry{{Timestamp: ts, Label: scans.LabelBenign}})
	require.Equal(t, "09-03-2025 14:05 : Benign\n", got)
}
