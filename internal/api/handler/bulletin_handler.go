package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	apimw "github.com/octopus/bulletin-digest/internal/api/middleware"
	"github.com/octopus/bulletin-digest/internal/domain"
	"github.com/octopus/bulletin-digest/internal/service"
)

// BulletinService is the subset of service.BulletinService the handlers use.
type BulletinService interface {
	SendAll(ctx context.Context, force bool, digestDelta time.Duration) service.Result
	Ingest(ctx context.Context, notifications []domain.NewBulletinNotification) (int, error)
	ResetFailed(ctx context.Context) (int, error)
	ClearFailed(ctx context.Context) (int, error)
	Stats(ctx context.Context) (map[domain.Status]int, error)
}

// BulletinHandler handles the bulletin run and maintenance endpoints.
type BulletinHandler struct {
	svc    BulletinService
	logger *zap.Logger
}

func NewBulletinHandler(svc BulletinService, logger *zap.Logger) *BulletinHandler {
	return &BulletinHandler{svc: svc, logger: logger}
}

// SendResponse is the JSON form of service.Result.
type SendResponse struct {
	Errors         []string `json:"errors"`
	TotalSent      int      `json:"totalSent"`
	TotalFailed    int      `json:"totalFailed"`
	TotalSkipped   int      `json:"totalSkipped"`
	TotalDiscarded int      `json:"totalDiscarded"`
	EmailsSent     int      `json:"emailsSent"`
	DurationMs     int64    `json:"durationMs"`
}

// NewSendResponse flattens a run result for JSON output.
func NewSendResponse(res service.Result) SendResponse {
	errs := make([]string, len(res.Errors))
	for i, err := range res.Errors {
		errs[i] = err.Error()
	}
	return SendResponse{
		Errors:         errs,
		TotalSent:      res.TotalSent,
		TotalFailed:    res.TotalFailed,
		TotalSkipped:   res.TotalSkipped,
		TotalDiscarded: res.TotalDiscarded,
		EmailsSent:     res.EmailsSent,
		DurationMs:     res.Duration.Milliseconds(),
	}
}

// Send handles POST /api/v1/bulletins/send
//
// The run is synchronous; the response carries the full result, including
// per-user errors. Partial failure is still a 200.
//
// @Summary  Run the bulletin digest now
// @Tags     bulletins
// @Produce  json
// @Param    force  query     bool    false  "Ignore the per-user throttle window"
// @Param    delta  query     string  false  "Throttle window, Go duration (default 165h36m)"
// @Success  200    {object}  SendResponse
// @Failure  400    {object}  map[string]string
// @Failure  409    {object}  SendResponse
// @Router   /api/v1/bulletins/send [post]
func (h *BulletinHandler) Send(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var force bool
	if v := q.Get("force"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "force must be a boolean")
			return
		}
		force = b
	}

	var delta time.Duration
	if v := q.Get("delta"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			respondError(w, http.StatusBadRequest, "delta must be a positive duration such as 48h")
			return
		}
		delta = d
	}

	// The run outlives a dropped client connection; it reconciles what it started.
	res := h.svc.SendAll(context.WithoutCancel(r.Context()), force, delta)

	status := http.StatusOK
	if res.Busy() {
		status = http.StatusConflict
	}
	if len(res.Errors) > 0 && !res.Busy() {
		h.logger.Warn("bulletin run finished with errors",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Int("errors", len(res.Errors)),
		)
	}
	respondJSON(w, status, NewSendResponse(res))
}

// Ingest handles POST /api/v1/bulletins/notifications
//
// @Summary  Store up to 1000 pending bulletin notifications
// @Tags     bulletins
// @Accept   json
// @Produce  json
// @Param    body  body      domain.IngestRequest  true  "Notifications"
// @Success  201   {object}  map[string]int
// @Failure  422   {object}  map[string]string
// @Router   /api/v1/bulletins/notifications [post]
func (h *BulletinHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req domain.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	n, err := h.svc.Ingest(r.Context(), req.Notifications)
	if err != nil {
		h.logger.Warn("ingest bulletins failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]int{"created": n})
}

// ResetFailed handles POST /api/v1/bulletins/failed/reset
//
// @Summary  Return every FAILED bulletin to PENDING
// @Tags     bulletins
// @Produce  json
// @Success  200  {object}  map[string]int
// @Router   /api/v1/bulletins/failed/reset [post]
func (h *BulletinHandler) ResetFailed(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.ResetFailed(r.Context())
	if err != nil {
		h.logger.Error("reset failed bulletins", zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"reset": n})
}

// ClearFailed handles DELETE /api/v1/bulletins/failed
//
// @Summary  Delete every FAILED bulletin
// @Tags     bulletins
// @Produce  json
// @Success  200  {object}  map[string]int
// @Router   /api/v1/bulletins/failed [delete]
func (h *BulletinHandler) ClearFailed(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.ClearFailed(r.Context())
	if err != nil {
		h.logger.Error("clear failed bulletins", zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// Stats handles GET /api/v1/bulletins/stats
//
// @Summary  Bulletin notification counts by status
// @Tags     bulletins
// @Produce  json
// @Success  200  {object}  map[string]int
// @Router   /api/v1/bulletins/stats [get]
func (h *BulletinHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.logger.Error("bulletin stats", zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
