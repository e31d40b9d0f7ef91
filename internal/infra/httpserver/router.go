package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appai "github.com/bryanwahyu/lungscan/internal/application/ai"
	appscans "github.com/bryanwahyu/lungscan/internal/application/scans"
	domain "github.com/bryanwahyu/lungscan/internal/domain/scans"
	"github.com/bryanwahyu/lungscan/internal/infra/report"
	"github.com/bryanwahyu/lungscan/internal/infra/storage"
	"github.com/bryanwahyu/lungscan/internal/middleware"
)

const defaultMaxUpload = 16 << 20

type Options struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	APIKeys        map[string]string // client → key; empty disables auth
	Limiter        *middleware.RateLimiter
	HealthCheckers map[string]middleware.HealthChecker
	MaxUploadBytes int64
}

type Router struct {
	scansSvc *appscans.Service
	reports  *report.Renderer
	opts     Options
}

func NewRouter(scansSvc *appscans.Service, reports *report.Renderer, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUpload
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	r := &Router{scansSvc: scansSvc, reports: reports, opts: opts}

	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	mux.Use(middleware.LoggingMiddleware(opts.Logger))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.APIKeyAuth(opts.APIKeys))
	if opts.Limiter != nil {
		mux.Use(middleware.RateLimitMiddleware(opts.Limiter))
	}

	mux.Get("/health", middleware.HealthHandler(opts.HealthCheckers))
	mux.Get("/readyz", middleware.ReadinessHandler)
	mux.Get("/livez", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Post("/predict", r.wrap(r.handlePredict))
	mux.Post("/chat", r.wrap(r.handleChat))
	mux.Get("/history", r.wrap(r.handleHistory))
	mux.Get("/records/{id}", r.wrap(r.handleRecord))
	mux.Get("/failures", r.wrap(r.handleFailures))
	mux.Get("/heatmap/{name}", r.wrap(r.handleHeatmap))
	mux.Get("/generate_pdf/{id}", r.wrap(r.handleReport))

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequest marks input errors raised by handlers.
type badRequest struct{ error }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var br badRequest
		switch {
		case errors.As(err, &br):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": br.Error()})
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, storage.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		default:
			r.opts.Logger.Error("request failed", "path", req.URL.Path, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	}
}

// POST /predict (multipart: file, name)
func (r *Router) handlePredict(w http.ResponseWriter, req *http.Request) error {
	middleware.IncrementAnalyses()
	middleware.IncrementAnalysesRun()
	defer middleware.DecrementAnalysesRun()

	req.Body = http.MaxBytesReader(w, req.Body, r.opts.MaxUploadBytes)
	file, header, err := req.FormFile("file")
	if err != nil {
		middleware.IncrementAnalysesFail()
		if tooLarge(err) {
			writeJSON(w, http.StatusRequestEntityTooLarge,
				failure(fmt.Sprintf("upload exceeds %d bytes", r.opts.MaxUploadBytes)))
			return nil
		}
		writeJSON(w, http.StatusBadRequest, failure("no file uploaded"))
		return nil
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.IncrementAnalysesFail()
		writeJSON(w, http.StatusBadRequest, failure(err.Error()))
		return nil
	}
	name, err := middleware.ValidatePatientName(req.FormValue("name"))
	if err != nil {
		middleware.IncrementAnalysesFail()
		writeJSON(w, http.StatusBadRequest, failure(err.Error()))
		return nil
	}

	res, err := r.scansSvc.Analyze(req.Context(), appscans.AnalyzeCommand{
		Name:     name,
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		middleware.IncrementAnalysesFail()
		code := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidImage) {
			code = http.StatusBadRequest
		}
		writeJSON(w, code, failure(err.Error()))
		return nil
	}
	if res.AIDoctor == appai.FallbackUnavailable || res.AIDoctor == appai.FallbackNotConfigured {
		middleware.IncrementAdvisoryFallbacks()
	}

	res.Heatmap = heatmapURL(res.Heatmap)
	writeJSON(w, http.StatusOK, res)
	return nil
}

// POST /chat {"msg": "..."}
func (r *Router) handleChat(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Msg string `json:"msg"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest{fmt.Errorf("invalid json body: %w", err)}
	}
	msg := middleware.SanitizeString(body.Msg)
	if msg == "" {
		return badRequest{errors.New("msg is required")}
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": r.scansSvc.Chat(req.Context(), msg)})
	return nil
}

// GET /history?name=
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	name := req.URL.Query().Get("name")
	if name == "" {
		list, err := r.scansSvc.ListAll(req.Context())
		if err != nil {
			return err
		}
		if list == nil {
			list = []*domain.PatientRecord{}
		}
		for _, rec := range list {
			rec.HeatmapRef = heatmapURL(rec.HeatmapRef)
		}
		writeJSON(w, http.StatusOK, list)
		return nil
	}

	name, err := middleware.ValidatePatientName(name)
	if err != nil {
		return badRequest{err}
	}
	entries, err := r.scansSvc.History(req.Context(), name)
	if err != nil {
		return err
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Line())
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "history": lines})
	return nil
}

// GET /records/{id}
func (r *Router) handleRecord(w http.ResponseWriter, req *http.Request) error {
	rec, err := r.record(req)
	if err != nil {
		return err
	}
	rec.HeatmapRef = heatmapURL(rec.HeatmapRef)
	writeJSON(w, http.StatusOK, rec)
	return nil
}

// GET /failures?name=&limit=
func (r *Router) handleFailures(w http.ResponseWriter, req *http.Request) error {
	name, err := middleware.ValidatePatientName(req.URL.Query().Get("name"))
	if err != nil {
		return badRequest{err}
	}
	if name == "" {
		return badRequest{errors.New("name is required")}
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.scansSvc.FailuresFor(req.Context(), name, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// GET /heatmap/{name}
func (r *Router) handleHeatmap(w http.ResponseWriter, req *http.Request) error {
	name := chi.URLParam(req, "name")
	if err := middleware.ValidateArtifactName(name); err != nil {
		return badRequest{err}
	}
	rc, err := r.scansSvc.Artifacts.Open(req.Context(), "heatmaps/"+name)
	if err != nil {
		return err
	}
	defer rc.Close()
	w.Header().Set("Content-Type", "image/png")
	_, err = io.Copy(w, rc)
	return err
}

// GET /generate_pdf/{id}
func (r *Router) handleReport(w http.ResponseWriter, req *http.Request) error {
	rec, err := r.record(req)
	if err != nil {
		return err
	}
	pdf, err := r.reports.Render(req.Context(), rec)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="report_%d.pdf"`, rec.ID))
	_, err = w.Write(pdf)
	return err
}

func (r *Router) record(req *http.Request) (*domain.PatientRecord, error) {
	id, err := middleware.ValidateRecordID(chi.URLParam(req, "id"))
	if err != nil {
		return nil, badRequest{err}
	}
	return r.scansSvc.Get(req.Context(), domain.RecordID(id))
}

// heatmapURL maps a stored key to the public /heatmap route.
func heatmapURL(key string) string {
	if key == "" || strings.HasPrefix(key, "/heatmap/") {
		return key
	}
	return "/heatmap/" + path.Base(key)
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func failure(details string) map[string]string {
	return map[string]string{"error": "Failed", "details": details}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
