package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/lungscan/internal/domain/scans"
)

// AdvisorySystemPrompt frames the narrative model for scan explanations.
const AdvisorySystemPrompt = "You are a professional lung doctor."

// ChatSystemPrompt frames free-form patient questions.
const ChatSystemPrompt = "You are a medical assistant. Give safe health advice."

// HistoryTranscript renders one "<date> : <label>" line per entry, keeping the given order.
func HistoryTranscript(history []scans.HistoryEntry) string {
	var b strings.Builder
	for _, h := range history {
		b.WriteString(h.Line())
		b.WriteByte('\n')
	}
	return b.String()
}

// GetUserPrompt builds the lung-specialist prompt around the current result and past records.
func GetUserPrompt(name string, label scans.Label, confidence float64, history []scans.HistoryEntry) string {
	past := HistoryTranscript(history)
	if past == "" {
		past = "No previous records.\n"
	}
	return fmt.Sprintf(`You are a lung specialist doctor.

Patient Name: %s

Past Records:
%s
Current Result: %s
Confidence: %.2f

Explain clearly:

1. Lung health before COVID
2. Impact after COVID
3. Current lung condition
4. Possible diseases
5. Treatment plan
6. Lifestyle suggestions

Add disclaimer.
Use simple English.
`, name, past, label, confidence)
}
