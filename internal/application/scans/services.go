package scans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/lungscan/internal/application"
	appai "github.com/bryanwahyu/lungscan/internal/application/ai"
	"github.com/bryanwahyu/lungscan/internal/domain/imaging"
	"github.com/bryanwahyu/lungscan/internal/domain/scanerrors"
	domain "github.com/bryanwahyu/lungscan/internal/domain/scans"
	imgcodec "github.com/bryanwahyu/lungscan/internal/infra/imaging"
)

const (
	UnknownPatient = "Unknown"

	Treatment  = "Consult Pulmonologist"
	Lifestyle  = "No smoking, daily walking, breathing exercise"
	Disclaimer = "Demo prediction only. This is not a medical diagnosis; consult a qualified physician."
)

// Service implements use-cases untuk analisa scan paru.
// Safe for concurrent use; shared state lives in Repo only.
type Service struct {
	Repo       domain.Repository
	Classifier domain.Classifier
	Overlay    domain.OverlayGenerator
	Artifacts  domain.ArtifactStore
	Advisor    *appai.Service
	Failures   scanerrors.Repository // optional
	MaxPixels  int                   // 0 = imgcodec.DefaultMaxPixels
	Clock      application.Clock
	Logger     *slog.Logger
}

//
// ==== USE CASES ====
//

// Command untuk analisa satu upload
type AnalyzeCommand struct {
	Name     string
	Filename string
	Data     []byte
}

type AnalyzeResult struct {
	Prediction domain.Label    `json:"prediction"`
	Confidence float64         `json:"confidence"`
	Report     string          `json:"report"`
	Treatment  string          `json:"treatment"`
	Lifestyle  string          `json:"lifestyle"`
	Heatmap    string          `json:"heatmap"`
	AIDoctor   string          `json:"ai_doctor"`
	RecordID   domain.RecordID `json:"record_id"`
	Classifier string          `json:"classifier"`
	Disclaimer string          `json:"disclaimer,omitempty"`
}

// Analyze runs decode → classify+overlay → history → advisory → persist.
// Only decode failures are expected; anything else is an unexpected fault and
// is also returned as *PipelineError. A record is appended only on success.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (AnalyzeResult, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		name = UnknownPatient
	}
	log := s.logger().With("patient", name, "file", cmd.Filename)

	if len(cmd.Data) == 0 {
		err := fmt.Errorf("%w: empty upload", domain.ErrInvalidImage)
		return AnalyzeResult{}, s.fail(ctx, name, cmd.Filename, domain.StageReceived, err)
	}

	grid, err := imgcodec.DecodeLimit(cmd.Data, s.MaxPixels)
	if err != nil {
		return AnalyzeResult{}, s.fail(ctx, name, cmd.Filename, domain.StageDecoded, err)
	}
	log.Debug("decoded", "width", grid.Width, "height", grid.Height)

	// classify dan overlay cuma baca grid, jadi bisa paralel
	var (
		cls  domain.Classification
		heat *imaging.PixelGrid
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cls, err = s.Classifier.Classify(gctx, grid)
		return err
	})
	g.Go(func() error {
		var err error
		heat, err = s.Overlay.Overlay(grid)
		return err
	})
	if err := g.Wait(); err != nil {
		return AnalyzeResult{}, s.fail(ctx, name, cmd.Filename, domain.StageClassified, err)
	}

	heatPNG, err := imgcodec.EncodePNG(heat)
	if err != nil {
		return AnalyzeResult{}, s.fail(ctx, name, cmd.Filename, domain.StageClassified, err)
	}

	id := uuid.New().String()
	file := sanitizeFilename(cmd.Filename)
	imageRef, err := s.Artifacts.Put(ctx, fmt.Sprintf("uploads/%s_%s", id, file), cmd.Data, contentTypeFor(file))
	if err != nil {
		return AnalyzeResult{}, s.fail(ctx, name, cmd.Filename, domain.StageClassified, fmt.Errorf("store upload: %w", err))
	}
	heatRef, err := s.Artifacts.Put(ctx, fmt.Sprintf("heatmaps/heat_%s.png", id), heatPNG, "image/png")
	if err != nil {
		return AnalyzeResult{}, s.fail(ctx, name, cmd.Filename, domain.StageClassified, fmt.Errorf("store heatmap: %w", err))
	}

	// history dibaca sebelum advisory; tidak ada lock selama network call
	history, err := s.Repo.QueryByName(ctx, name)
	if err != nil {
		return AnalyzeResult{}, s.fail(ctx, name, cmd.Filename, domain.StageHistory, err)
	}

	advice := s.Advisor.Explain(ctx, appai.ExplainRequest{
		Name:       name,
		Label:      cls.Label,
		Confidence: cls.Confidence,
		History:    history,
	})

	report := "Lung Status : " + string(cls.Label)
	rec, err := s.Repo.Append(ctx, &domain.PatientRecord{
		Name:          name,
		Timestamp:     s.now(),
		Result:        cls.Label,
		Confidence:    cls.Confidence,
		ImageRef:      imageRef,
		HeatmapRef:    heatRef,
		ReportSummary: report,
	})
	if err != nil {
		return AnalyzeResult{}, s.fail(ctx, name, cmd.Filename, domain.StagePersisted, err)
	}

	log.Info("analysis completed",
		"record_id", rec.ID, "result", cls.Label, "confidence", cls.Confidence,
		"classifier", s.Classifier.Name(), "history", len(history))

	res := AnalyzeResult{
		Prediction: cls.Label,
		Confidence: cls.Confidence,
		Report:     report,
		Treatment:  Treatment,
		Lifestyle:  Lifestyle,
		Heatmap:    heatRef,
		AIDoctor:   advice,
		RecordID:   rec.ID,
		Classifier: s.Classifier.Name(),
	}
	if cls.Heuristic {
		res.Disclaimer = Disclaimer
	}
	return res, nil
}

// Chat free-form question ke advisory backend
func (s *Service) Chat(ctx context.Context, msg string) string {
	return s.Advisor.Chat(ctx, msg)
}

// History ambil riwayat satu pasien, urut insert
func (s *Service) History(ctx context.Context, name string) ([]domain.HistoryEntry, error) {
	return s.Repo.QueryByName(ctx, name)
}

// ListAll semua record, urut id
func (s *Service) ListAll(ctx context.Context) ([]*domain.PatientRecord, error) {
	return s.Repo.ListAll(ctx)
}

// Get ambil 1 record by id
func (s *Service) Get(ctx context.Context, id domain.RecordID) (*domain.PatientRecord, error) {
	return s.Repo.Get(ctx, id)
}

// Failures audit trail per pasien, terbaru dulu
func (s *Service) FailuresFor(ctx context.Context, name string, limit int) ([]*scanerrors.ScanError, error) {
	if s.Failures == nil {
		return nil, nil
	}
	return s.Failures.ListByPatient(ctx, name, limit)
}

// fail records the failure best-effort and wraps it for the caller.
func (s *Service) fail(ctx context.Context, name, filename string, stage domain.Stage, err error) error {
	s.logger().Warn("analysis failed", "patient", name, "stage", stage, "error", err)
	if s.Failures != nil {
		details, _ := json.Marshal(map[string]any{
			"invalid_image": errors.Is(err, domain.ErrInvalidImage),
		})
		rec := &scanerrors.ScanError{
			PatientName: name,
			Filename:    filename,
			Stage:       string(stage),
			Message:     err.Error(),
			DetailsJSON: string(details),
			CreatedAt:   s.now(),
		}
		// audit row tetap ditulis walau request sudah cancel
		if serr := s.Failures.Save(context.WithoutCancel(ctx), rec); serr != nil {
			s.logger().Error("save scan failure", "error", serr)
		}
	}
	return &domain.PipelineError{Stage: stage, Err: err}
}

func (s *Service) now() time.Time {
	var t time.Time
	if s.Clock != nil {
		t = s.Clock.Now()
	} else {
		t = time.Now()
	}
	return domain.StoredTime(t)
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// helper
func sanitizeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.ReplaceAll(base, "..", "_")
	base = strings.ReplaceAll(base, " ", "_")
	if base == "" || base == "." || base == "/" || base == "_" {
		return "upload"
	}
	return base
}

func contentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".webp":
		return "image/webp"
	}
	return "application/octet-stream"
}
