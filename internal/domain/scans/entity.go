package scans

import (
	"time"
)

// RecordID tipe untuk PatientRecord
type RecordID int64

// Label enum hasil klasifikasi
type Label string

const (
	LabelNormal    Label = "Normal"
	LabelBenign    Label = "Benign"
	LabelMalignant Label = "Malignant"
)

// Labels is the closed label set in model output order.
var Labels = []Label{LabelNormal, LabelBenign, LabelMalignant}

// Valid reports whether l belongs to the closed label set.
func (l Label) Valid() bool {
	for _, v := range Labels {
		if v == l {
			return true
		}
	}
	return false
}

// HistoryDateLayout matches the dd-mm-yyyy hh:mm format patients see in reports.
const HistoryDateLayout = "02-01-2006 15:04"

// StoredTime is the form every repository persists: UTC, whole seconds.
func StoredTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// Classification value object.
// Heuristic results carry a manufactured plausibility score, model results a
// raw softmax posterior; the two are not calibrated against each other.
type Classification struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
	Heuristic  bool    `json:"heuristic"`
}

// HistoryEntry satu baris riwayat pasien
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Label     Label     `json:"label"`
}

// Line renders the entry as it appears in the advisory transcript.
func (h HistoryEntry) Line() string {
	return h.Timestamp.Format(HistoryDateLayout) + " : " + string(h.Label)
}

// Aggregate Root: PatientRecord. Created once per completed analysis, never mutated.
type PatientRecord struct {
	ID            RecordID  `json:"id"`
	Name          string    `json:"name"`
	Timestamp     time.Time `json:"date"`
	Result        Label     `json:"result"`
	Confidence    float64   `json:"confidence"`
	ImageRef      string    `json:"image"`
	HeatmapRef    string    `json:"heatmap,omitempty"`
	ReportSummary string    `json:"report"`
}
