// Package admin is the out-of-core HTTP+WebSocket surface used to trigger
// runs and observe ProcessingRun state (spec's Admin surface, SPEC_FULL's
// glossary addition), grounded on the teacher's
// cashflow/transaction/handler package: a thin Handler wrapping the core,
// RegisterRoutes attaching a gin route group behind the auth middleware.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"txledger/internal/middleware"
	"txledger/internal/module/ingest/historylookup"
	"txledger/internal/module/ingest/run"
	"txledger/internal/module/ingest/txdomain"
	"txledger/internal/shared"
	"txledger/internal/ws"
)

// Handler exposes the Run Coordinator over HTTP and the run-progress hub
// over WebSocket.
type Handler struct {
	coordinator    *run.Coordinator
	historyBuilder *historylookup.Builder
	hub            *ws.Hub
	upgrader       websocket.Upgrader
}

func NewHandler(coordinator *run.Coordinator, historyBuilder *historylookup.Builder, hub *ws.Hub) *Handler {
	return &Handler{
		coordinator:    coordinator,
		historyBuilder: historyBuilder,
		hub:            hub,
		upgrader: websocket.Upgrader{
			// The admin surface is a trusted internal tool, not
			// browser-facing across origins; same-origin checks don't apply.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// RegisterRoutes attaches the admin API behind bearer auth.
func (h *Handler) RegisterRoutes(r *gin.Engine, auth *middleware.AuthMiddleware) {
	admin := r.Group("/api/v1/admin")
	admin.Use(auth.RequireBearer())
	{
		admin.POST("/runs/normalization", h.triggerNormalization)
		admin.POST("/runs/categorization", h.triggerCategorization)
		admin.GET("/ws", h.serveWebSocket)
	}
}

type categorizationRequest struct {
	AllowRecategorization bool `json:"allowRecategorization"`
}

// TriggerNormalization godoc
// @Summary Trigger a normalization run
// @Description Starts run_normalization over all active bank sources; rejected if a normalization run is already in progress
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 202 {object} shared.SuccessResponse[txdomain.ProcessingRun]
// @Failure 409 {object} shared.ErrorResponse
// @Router /api/v1/admin/runs/normalization [post]
func (h *Handler) triggerNormalization(c *gin.Context) {
	h.hub.RunStarted(txdomain.RunTypeNormalisation)
	runRecord, err := h.coordinator.RunNormalization(c.Request.Context(), nil)
	h.hub.RunFinished(runRecord, err)
	if err != nil {
		if _, ok := err.(*run.AlreadyRunningError); ok {
			shared.RespondWithAppError(c, shared.ErrConflict.WithDetails("reason", err.Error()))
			return
		}
		shared.HandleError(c, err)
		return
	}
	shared.RespondWithSuccess(c, http.StatusAccepted, "normalization run finished", runRecord)
}

// TriggerCategorization godoc
// @Summary Trigger a categorization run
// @Description Starts run_categorization over normalised, uncategorised transactions
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body categorizationRequest false "Run options"
// @Success 202 {object} shared.SuccessResponse[txdomain.ProcessingRun]
// @Failure 409 {object} shared.ErrorResponse
// @Router /api/v1/admin/runs/categorization [post]
func (h *Handler) triggerCategorization(c *gin.Context) {
	var req categorizationRequest
	// Body is optional; defaults to allowRecategorization=false.
	_ = c.ShouldBindJSON(&req)

	h.hub.RunStarted(txdomain.RunTypeCategorisation)
	lookup := h.historyBuilder.Build(c.Request.Context(), uuid.New().String())
	runRecord, err := h.coordinator.RunCategorization(c.Request.Context(), req.AllowRecategorization, lookup, nil)
	h.hub.RunFinished(runRecord, err)
	if err != nil {
		if _, ok := err.(*run.AlreadyRunningError); ok {
			shared.RespondWithAppError(c, shared.ErrConflict.WithDetails("reason", err.Error()))
			return
		}
		shared.HandleError(c, err)
		return
	}
	shared.RespondWithSuccess(c, http.StatusAccepted, "categorization run finished", runRecord)
}

// ServeWebSocket godoc
// @Summary Stream run-progress events
// @Description Upgrades to a WebSocket connection broadcasting run_started/run_finished events
// @Tags admin
// @Security BearerAuth
// @Router /api/v1/admin/ws [get]
func (h *Handler) serveWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		middleware.GetLogger(c).Debug("admin: websocket upgrade failed")
		return
	}
	h.hub.Register(conn)
}
