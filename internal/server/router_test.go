package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/appealai/ticket-intake/constants"
	"github.com/appealai/ticket-intake/internal/common"
	"github.com/appealai/ticket-intake/internal/export"
	"github.com/appealai/ticket-intake/internal/metrics"
	"github.com/appealai/ticket-intake/internal/pipeline"
	"github.com/appealai/ticket-intake/internal/recognize"
	"github.com/appealai/ticket-intake/internal/upload"
)

type stubEngine struct {
	text string
	err  error
}

func (e *stubEngine) Recognize(_ context.Context, _ upload.Candidate, onProgress recognize.ProgressFunc) (recognize.Result, error) {
	if onProgress != nil {
		onProgress(recognize.Progress{Phase: "Recognizing text", Fraction: 0.5})
	}
	if e.err != nil {
		return recognize.Result{}, e.err
	}
	return recognize.Result{Text: e.text, Method: "stub"}, nil
}

func newTestServer(t *testing.T, image, pdf recognize.Engine) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &common.Config{
		Server: common.Server{Addr: ":0", RatePerSec: 1000, RateBurst: 1000},
		Upload: common.Upload{
			AllowedTypes: constants.DefaultAllowedMediaTypes,
			MaxSizeMB:    1,
		},
		Queue: common.Queue{Workers: 2, Size: 16, ProcessTimeout: 5 * time.Second},
	}

	pm := metrics.NewPipelineMetrics()
	svc := NewService(cfg, pipeline.Engines{Image: image, PDF: pdf}, NewStore(), export.NewService(logger), pm, nil, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		svc.Shutdown(ctx)
	})

	rt := NewRouter(svc, pm.Handler(), cfg.Server, logger)
	ts := httptest.NewServer(rt.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postFile(t *testing.T, ts *httptest.Server, filename, mediaType string, data []byte) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
	hdr["Content-Type"] = []string{mediaType}
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/documents", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	res, err := ts.Client().Do(req)
	require.NoError(t, err)
	return res
}

func decodeJSON(t *testing.T, res *http.Response, out any) {
	t.Helper()
	defer res.Body.Close()
	require.NoError(t, json.NewDecoder(res.Body).Decode(out))
}

func waitSettled(t *testing.T, ts *httptest.Server, runID string) runStatus {
	t.Helper()

	var status runStatus
	require.Eventually(t, func() bool {
		res, err := ts.Client().Get(ts.URL + "/v1/documents/" + runID)
		if err != nil || res.StatusCode != http.StatusOK {
			return false
		}
		decodeJSON(t, res, &status)
		return constants.RunPhase(status.Phase).Terminal()
	}, 3*time.Second, 10*time.Millisecond)
	return status
}

func TestUploadFlowCompletes(t *testing.T) {
	ticket := "PARKING VIOLATION NOTICE\nTicket #AB12345\nAmount Due: $75.00"
	ts := newTestServer(t, &stubEngine{text: ticket}, &stubEngine{text: "pdf text"})

	res := postFile(t, ts, "ticket.jpg", "image/jpeg", []byte("fake-jpeg-bytes"))
	require.Equal(t, http.StatusAccepted, res.StatusCode)

	var accepted map[string]string
	decodeJSON(t, res, &accepted)
	require.NotEmpty(t, accepted["run_id"])

	status := waitSettled(t, ts, accepted["run_id"])
	require.Equal(t, string(constants.PhaseCompleted), status.Phase)
	require.NotNil(t, status.Fields)
	require.Equal(t, "$75.00", status.Fields.Amount)
	require.Equal(t, "Ticket #AB12345", status.Fields.TicketNumber)
	require.False(t, status.NoContent)
	require.Empty(t, status.Message)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	ts := newTestServer(t, &stubEngine{text: "x"}, &stubEngine{text: "x"})

	res := postFile(t, ts, "notes.txt", "text/plain", []byte("hello"))
	defer res.Body.Close()
	require.Equal(t, http.StatusUnsupportedMediaType, res.StatusCode)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	ts := newTestServer(t, &stubEngine{text: "x"}, &stubEngine{text: "x"})

	big := make([]byte, 1*constants.BytesPerMB+1)
	res := postFile(t, ts, "huge.png", "image/png", big)
	defer res.Body.Close()
	require.Equal(t, http.StatusRequestEntityTooLarge, res.StatusCode)
}

// A body far past the limit trips the request reader cap before the
// policy check ever sees the candidate; it must still report too-large,
// not a malformed upload.
func TestUploadRejectsBodyOverReaderCap(t *testing.T) {
	ts := newTestServer(t, &stubEngine{text: "x"}, &stubEngine{text: "x"})

	big := make([]byte, 3*constants.BytesPerMB)
	res := postFile(t, ts, "enormous.png", "image/png", big)
	defer res.Body.Close()
	require.Equal(t, http.StatusRequestEntityTooLarge, res.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.Equal(t, common.UserMessage(common.ErrFileTooLarge), body["error"])
}

func TestEngineFailureSurfacesFriendlyMessage(t *testing.T) {
	engineErr := common.NewAppError("ENGINE_FAILURE", "tesseract exited", common.ErrEngine)
	ts := newTestServer(t, &stubEngine{err: engineErr}, &stubEngine{text: "x"})

	res := postFile(t, ts, "blurry.jpg", "image/jpeg", []byte("bytes"))
	var accepted map[string]string
	decodeJSON(t, res, &accepted)

	status := waitSettled(t, ts, accepted["run_id"])
	require.Equal(t, string(constants.PhaseFailed), status.Phase)
	require.Equal(t, common.UserMessage(engineErr), status.Message)
	require.NotContains(t, status.Message, "tesseract")
}

func TestPDFRoutedToTextLayerEngine(t *testing.T) {
	imageEng := &stubEngine{text: "image text"}
	pdfEng := &stubEngine{text: "pdf layer text"}
	ts := newTestServer(t, imageEng, pdfEng)

	res := postFile(t, ts, "notice.pdf", "application/pdf", []byte("%PDF-1.4"))
	var accepted map[string]string
	decodeJSON(t, res, &accepted)

	status := waitSettled(t, ts, accepted["run_id"])
	require.Equal(t, string(constants.PhaseCompleted), status.Phase)
	require.Equal(t, len("pdf layer text"), status.TextChars)
	require.Contains(t, status.Warnings, pipeline.PDFAdvisory)
}

func TestNoContentRun(t *testing.T) {
	ts := newTestServer(t, &stubEngine{text: ""}, &stubEngine{text: "x"})

	res := postFile(t, ts, "blank.jpg", "image/jpeg", []byte("bytes"))
	var accepted map[string]string
	decodeJSON(t, res, &accepted)

	status := waitSettled(t, ts, accepted["run_id"])
	require.Equal(t, string(constants.PhaseCompleted), status.Phase)
	require.True(t, status.NoContent)
	require.Equal(t, common.NoContentMessage, status.Message)
	require.Nil(t, status.Fields)
}

func TestStatusUnknownRun(t *testing.T) {
	ts := newTestServer(t, &stubEngine{text: "x"}, &stubEngine{text: "x"})

	res, err := ts.Client().Get(ts.URL + "/v1/documents/6f1c0f36-58a1-4fbb-9e17-000000000000")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusNotFound, res.StatusCode)

	res, err = ts.Client().Get(ts.URL + "/v1/documents/not-a-uuid")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestExportSettledRun(t *testing.T) {
	ticket := "Ticket #AB12345\nAmount Due: $75.00"
	ts := newTestServer(t, &stubEngine{text: ticket}, &stubEngine{text: "x"})

	res := postFile(t, ts, "ticket.jpg", "image/jpeg", []byte("bytes"))
	var accepted map[string]string
	decodeJSON(t, res, &accepted)
	waitSettled(t, ts, accepted["run_id"])

	res, err := ts.Client().Get(ts.URL + "/v1/documents/" + accepted["run_id"] + "/export")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		res.Header.Get("Content-Type"))

	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer wb.Close()
	cell, err := wb.GetCellValue("Case Facts", "B1")
	require.NoError(t, err)
	require.Equal(t, accepted["run_id"], cell)
}

func TestHealthzAndRequestID(t *testing.T) {
	ts := newTestServer(t, &stubEngine{text: "x"}, &stubEngine{text: "x"})

	res, err := ts.Client().Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NotEmpty(t, res.Header.Get("X-Request-Id"))
}

func TestUploadRateLimit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &common.Config{
		Server: common.Server{RatePerSec: 0.0001, RateBurst: 1},
		Upload: common.Upload{AllowedTypes: constants.DefaultAllowedMediaTypes, MaxSizeMB: 1},
		Queue:  common.Queue{Workers: 1, Size: 4, ProcessTimeout: time.Second},
	}
	pm := metrics.NewPipelineMetrics()
	svc := NewService(cfg, pipeline.Engines{Image: &stubEngine{text: "x"}, PDF: &stubEngine{text: "x"}}, NewStore(), export.NewService(logger), pm, nil, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		svc.Shutdown(ctx)
	})
	ts := httptest.NewServer(NewRouter(svc, pm.Handler(), cfg.Server, logger).Handler())
	t.Cleanup(ts.Close)

	res := postFile(t, ts, "a.jpg", "image/jpeg", []byte("bytes"))
	res.Body.Close()
	require.Equal(t, http.StatusAccepted, res.StatusCode)

	res = postFile(t, ts, "b.jpg", "image/jpeg", []byte("bytes"))
	defer res.Body.Close()
	require.Equal(t, http.StatusTooManyRequests, res.StatusCode)
}
