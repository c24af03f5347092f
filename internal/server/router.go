package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/appealai/ticket-intake/internal/common"
	"github.com/appealai/ticket-intake/internal/fields"
	"github.com/appealai/ticket-intake/internal/pipeline"
	"github.com/appealai/ticket-intake/internal/upload"
)

// Router exposes the intake API:
//
//	GET  /healthz                    liveness
//	POST /v1/documents               multipart upload, 202 with run id
//	GET  /v1/documents/{id}          run status and extracted fields
//	GET  /v1/documents/{id}/export   case-facts workbook
//	GET  /metrics                    prometheus registry
type Router struct {
	svc     *Service
	metrics http.Handler
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewRouter(svc *Service, metricsHandler http.Handler, srvCfg common.Server, logger *slog.Logger) *Router {
	return &Router{
		svc:     svc,
		metrics: metricsHandler,
		limiter: rate.NewLimiter(rate.Limit(srvCfg.RatePerSec), srvCfg.RateBurst),
		logger:  logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/v1/documents", uploadRateMiddleware(rt.limiter, http.HandlerFunc(rt.uploadDocument)))
	mux.HandleFunc("/v1/documents/", rt.documentByID)
	mux.Handle("/metrics", rt.metrics)
	return requestIDMiddleware(accessLogMiddleware(rt.logger, mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	// cap the multipart parse a little above the policy ceiling so an
	// oversized body is still read far enough to be rejected with 413
	// rather than a connection error
	r.Body = http.MaxBytesReader(w, r.Body, rt.svc.cfg.Upload.MaxSizeBytes()+1<<20)

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		// a body past the reader cap surfaces here as a read error, not a
		// missing part; report it as too large, same as the policy check
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, common.NewAppError("FILE_TOO_LARGE", "request body exceeds the upload limit", common.ErrFileTooLarge))
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	mediaType := fileHeader.Header.Get("Content-Type")
	c, err := upload.FromReader(fileHeader.Filename, mediaType, file)
	if err != nil {
		writeError(w, err)
		return
	}

	runID, err := rt.svc.Submit(r.Context(), c)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": runID.String(),
		"status": "accepted",
	})
}

func (rt *Router) documentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	wantExport := false
	if s, ok := strings.CutSuffix(rest, "/export"); ok {
		rest = s
		wantExport = true
	}
	id, err := uuid.Parse(rest)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "run id must be a uuid"})
		return
	}

	if wantExport {
		rt.exportDocument(w, id)
		return
	}

	snap, err := rt.svc.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse(snap))
}

func (rt *Router) exportDocument(w http.ResponseWriter, id uuid.UUID) {
	data, err := rt.svc.ExportXLSX(id)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "case-facts-"+id.String()+".xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// runStatus is the status document returned for a single run.
type runStatus struct {
	RunID     string             `json:"run_id"`
	Phase     string             `json:"phase"`
	Filename  string             `json:"filename"`
	Progress  *progressStatus    `json:"progress,omitempty"`
	TextChars int                `json:"text_chars,omitempty"`
	Fields    *fields.Fields     `json:"fields,omitempty"`
	NoContent bool               `json:"no_content,omitempty"`
	Warnings  []string           `json:"warnings,omitempty"`
	Message   string             `json:"message,omitempty"`
}

type progressStatus struct {
	Phase    string  `json:"phase"`
	Fraction float64 `json:"fraction"`
}

func statusResponse(snap pipeline.Snapshot) runStatus {
	out := runStatus{
		RunID:     snap.RunID.String(),
		Phase:     string(snap.Phase),
		Filename:  snap.Filename,
		TextChars: len(snap.Text),
		NoContent: snap.NoContent,
		Warnings:  snap.Warnings,
	}
	if !snap.Settled() && snap.Progress.Phase != "" {
		out.Progress = &progressStatus{Phase: snap.Progress.Phase, Fraction: snap.Progress.Fraction}
	}
	if snap.Settled() && !snap.Fields.IsEmpty() {
		fx := snap.Fields
		out.Fields = &fx
	}
	switch {
	case snap.Err != nil:
		out.Message = common.UserMessage(snap.Err)
	case snap.NoContent:
		out.Message = common.NoContentMessage
	}
	return out
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, common.HTTPStatus(err), map[string]string{"error": common.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("write json response", "error", err)
	}
}
