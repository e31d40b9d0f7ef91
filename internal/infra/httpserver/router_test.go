package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appai "github.com/bryanwahyu/lungscan/internal/application/ai"
	appscans "github.com/bryanwahyu/lungscan/internal/application/scans"
	domai "github.com/bryanwahyu/lungscan/internal/domain/ai"
	"github.com/bryanwahyu/lungscan/internal/infra/classifier"
	"github.com/bryanwahyu/lungscan/internal/infra/db/memory"
	imgcodec "github.com/bryanwahyu/lungscan/internal/infra/imaging"
	"github.com/bryanwahyu/lungscan/internal/infra/report"
	"github.com/bryanwahyu/lungscan/internal/infra/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newTestServerWith(t, nil, Options{})
}

func newTestServerWith(t *testing.T, client domai.Client, opts Options) *httptest.Server {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	svc := &appscans.Service{
		Repo:       memory.NewPatientRepository(),
		Classifier: classifier.NewDemo(rand.New(rand.NewSource(7))),
		Overlay:    imgcodec.NewOverlay(),
		Artifacts:  store,
		Advisor:    appai.NewService(client, time.Second, nil),
		Failures:   memory.NewScanErrorRepository(),
	}
	srv := httptest.NewServer(NewRouter(svc, report.NewRenderer("", "", appscans.Treatment, appscans.Lifestyle), opts))
	t.Cleanup(srv.Close)
	return srv
}

func pngUpload(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 12), G: 80, B: uint8(y * 12), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func postPredict(t *testing.T, srv *httptest.Server, name string, file []byte, withFile bool) (*http.Response, map[string]any) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", name))
	if withFile {
		fw, err := mw.CreateFormFile("file", "scan.png")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/predict", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestPredict_Success(t *testing.T) {
	srv := newTestServer(t)

	resp, out := postPredict(t, srv, "Alice", pngUpload(t), true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, k := range []string{"prediction", "confidence", "report", "treatment", "lifestyle", "heatmap", "ai_doctor", "record_id", "disclaimer"} {
		require.Contains(t, out, k)
	}
	require.Equal(t, appai.FallbackNotConfigured, out["ai_doctor"])
	require.Equal(t, "Lung Status : "+out["prediction"].(string), out["report"])

	heat := out["heatmap"].(string)
	require.True(t, strings.HasPrefix(heat, "/heatmap/heat_"), heat)
	hr, err := http.Get(srv.URL + heat)
	require.NoError(t, err)
	defer hr.Body.Close()
	require.Equal(t, http.StatusOK, hr.StatusCode)
	require.Equal(t, "image/png", hr.Header.Get("Content-Type"))
	_, err = png.Decode(hr.Body)
	require.NoError(t, err)

	pr, err := http.Get(srv.URL + "/generate_pdf/1")
	require.NoError(t, err)
	defer pr.Body.Close()
	require.Equal(t, http.StatusOK, pr.StatusCode)
	require.Equal(t, "application/pdf", pr.Header.Get("Content-Type"))
	require.Contains(t, pr.Header.Get("Content-Disposition"), "report_1.pdf")

	hist, err := http.Get(srv.URL + "/history?name=Alice")
	require.NoError(t, err)
	defer hist.Body.Close()
	var h struct {
		Name    string   `json:"name"`
		History []string `json:"history"`
	}
	require.NoError(t, json.NewDecoder(hist.Body).Decode(&h))
	require.Len(t, h.History, 1)
	require.True(t, strings.HasSuffix(h.History[0], " : "+out["prediction"].(string)))
}

func TestPredict_Failures(t *testing.T) {
	srv := newTestServer(t)

	resp, out := postPredict(t, srv, "Bob", nil, false)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Failed", out["error"])

	resp, out = postPredict(t, srv, "Bob", []byte{}, true)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Failed", out["error"])
	require.Contains(t, out["details"], "invalid image")

	resp, _ = postPredict(t, srv, "Bob", []byte("GIF89a but not really"), true)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	list, err := http.Get(srv.URL + "/history")
	require.NoError(t, err)
	defer list.Body.Close()
	var records []map[string]any
	require.NoError(t, json.NewDecoder(list.Body).Decode(&records))
	require.Empty(t, records)

	fl, err := http.Get(srv.URL + "/failures?name=Bob")
	require.NoError(t, err)
	defer fl.Body.Close()
	var failures []map[string]any
	require.NoError(t, json.NewDecoder(fl.Body).Decode(&failures))
	require.Len(t, failures, 2)
}

func TestLookups(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		path string
		code int
	}{
		{"/records/99", http.StatusNotFound},
		{"/records/abc", http.StatusBadRequest},
		{"/generate_pdf/5", http.StatusNotFound},
		{"/heatmap/heat_123e4567-e89b-12d3-a456-426614174000.png", http.StatusNotFound},
		{"/heatmap/secret.txt", http.StatusBadRequest},
		{"/failures", http.StatusBadRequest},
		{"/livez", http.StatusOK},
		{"/health", http.StatusOK},
		{"/metrics", http.StatusOK},
	}
	for _, tc := range cases {
		resp, err := http.Get(srv.URL + tc.path)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, tc.code, resp.StatusCode, tc.path)
	}
}

func TestChat(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/chat", "application/json", strings.NewReader(`{"msg":"Is jogging good for lungs?"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, appai.FallbackNotConfigured, out["reply"])

	bad, err := http.Post(srv.URL+"/chat", "application/json", strings.NewReader(`{"msg":"   "}`))
	require.NoError(t, err)
	bad.Body.Close()
	require.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

type quotaClient struct{}

func (quotaClient) Complete(context.Context, string, string) (string, error) {
	return "", domai.ErrQuotaExceeded
}

func TestChat_QuotaErrorStillAnswers(t *testing.T) {
	srv := newTestServerWith(t, quotaClient{}, Options{})

	resp, err := http.Post(srv.URL+"/chat", "application/json", strings.NewReader(`{"msg":"How are my lungs?"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, appai.ChatFallbackUnavailable, out["reply"])

	res, body := postPredict(t, srv, "Dana", pngUpload(t), true)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, appai.FallbackUnavailable, body["ai_doctor"])
}

func TestPredict_UploadTooLarge(t *testing.T) {
	srv := newTestServerWith(t, nil, Options{MaxUploadBytes: 512})

	resp, out := postPredict(t, srv, "Eve", bytes.Repeat([]byte{0x89}, 4096), true)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	require.Equal(t, "Failed", out["error"])
	require.Contains(t, out["details"], "exceeds 512 bytes")

	resp, _ = postPredict(t, srv, "Eve", nil, false)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
