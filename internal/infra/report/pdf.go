package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	domain "github.com/bryanwahyu/lungscan/internal/domain/scans"
)

const (
	Title        = "AI Lung Health Report"
	DoctorAdvice = "Doctor Advice: Follow up with a pulmonologist for clinical confirmation."
	Disclaimer   = "Disclaimer: AI generated summary. Not a medical diagnosis."

	DefaultPaper    = "A4P"
	DefaultFont     = "Helvetica"
	DefaultFontSize = 12
)

// Renderer builds a one-page PDF per patient record.
type Renderer struct {
	Paper    string
	Font     string
	FontSize int
	// static recommendation pair printed under the result
	Treatment string
	Lifestyle string
}

func NewRenderer(paper, font string, treatment, lifestyle string) *Renderer {
	if paper == "" {
		paper = DefaultPaper
	}
	if font == "" {
		font = DefaultFont
	}
	return &Renderer{Paper: paper, Font: font, FontSize: DefaultFontSize, Treatment: treatment, Lifestyle: lifestyle}
}

type pdfFont struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

type pdfText struct {
	Value string     `json:"value"`
	Pos   [2]float64 `json:"pos"`
	Font  pdfFont    `json:"font"`
}

type pdfContent struct {
	Text []pdfText `json:"text"`
}

type pdfPage struct {
	Content pdfContent `json:"content"`
}

type pdfDoc struct {
	Paper string             `json:"paper"`
	Pages map[string]pdfPage `json:"pages"`
}

// Lines returns the report body in print order.
func (r *Renderer) Lines(rec *domain.PatientRecord) []string {
	return []string{
		"Name: " + rec.Name,
		"Date: " + rec.Timestamp.Format(domain.HistoryDateLayout),
		"Result: " + string(rec.Result),
		fmt.Sprintf("Confidence: %.2f%%", rec.Confidence*100),
		"Treatment: " + r.Treatment,
		"Lifestyle: " + r.Lifestyle,
		DoctorAdvice,
		Disclaimer,
	}
}

// Description is the pdfcpu JSON page description for rec.
func (r *Renderer) Description(rec *domain.PatientRecord) ([]byte, error) {
	const (
		left   = 60.0
		top    = 770.0
		gap    = 26.0
		titleY = 800.0
	)
	texts := []pdfText{{Value: Title, Pos: [2]float64{left, titleY}, Font: pdfFont{Name: r.Font, Size: r.FontSize + 6}}}
	for i, line := range r.Lines(rec) {
		texts = append(texts, pdfText{
			Value: line,
			Pos:   [2]float64{left, top - float64(i)*gap},
			Font:  pdfFont{Name: r.Font, Size: r.FontSize},
		})
	}
	doc := pdfDoc{
		Paper: r.Paper,
		Pages: map[string]pdfPage{"1": {Content: pdfContent{Text: texts}}},
	}
	return json.Marshal(doc)
}

// Render produces the PDF bytes for one record.
func (r *Renderer) Render(ctx context.Context, rec *domain.PatientRecord) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	desc, err := r.Description(rec)
	if err != nil {
		return nil, fmt.Errorf("report description: %w", err)
	}
	var out bytes.Buffer
	if err := api.Create(nil, bytes.NewReader(desc), &out, model.NewDefaultConfiguration()); err != nil {
		return nil, fmt.Errorf("pdfcpu create: %w", err)
	}
	return out.Bytes(), nil
}
