package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"payment-widget/internal/logger"
	"payment-widget/internal/models"
	"payment-widget/internal/monitor"
	"payment-widget/internal/services"
	"payment-widget/internal/utils"
	"payment-widget/internal/widget"
)

const heartbeatInterval = 15 * time.Second

type WidgetHandler struct {
	widgetService *services.WidgetService
	contract      *monitor.ContractMonitor
	log           *logger.Logger
}

func NewWidgetHandler(widgetService *services.WidgetService, contract *monitor.ContractMonitor, log *logger.Logger) *WidgetHandler {
	return &WidgetHandler{
		widgetService: widgetService,
		contract:      contract,
		log:           log,
	}
}

// RegisterRoutes mounts the widget API on rg.
func (h *WidgetHandler) RegisterRoutes(rg *gin.RouterGroup) {
	widgets := rg.Group("/widgets")
	{
		widgets.POST("", h.CreateWidget)
		widgets.GET("/:id", h.GetWidget)
		widgets.PUT("/:id/config", h.UpdateConfig)
		widgets.POST("/:id/card", h.EnterCard)
		widgets.POST("/:id/pay", h.Pay)
		widgets.GET("/:id/outputs", h.GetOutputs)
		widgets.GET("/:id/events", h.StreamEvents)
		widgets.DELETE("/:id", h.DestroyWidget)
	}
}

func (h *WidgetHandler) CreateWidget(c *gin.Context) {
	cfg, ok := h.bindConfig(c)
	if !ok {
		return
	}

	id, view, err := h.widgetService.CreateWidget(c.Request.Context(), cfg)
	if err != nil {
		h.respondError(c, "Widget creation failed", err)
		return
	}

	c.JSON(http.StatusCreated, utils.SuccessResponse("Widget created", gin.H{
		"widget_id": id,
		"view":      view,
	}))
}

func (h *WidgetHandler) GetWidget(c *gin.Context) {
	view, err := h.widgetService.GetView(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Failed to get widget", err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Widget retrieved", view))
}

func (h *WidgetHandler) UpdateConfig(c *gin.Context) {
	cfg, ok := h.bindConfig(c)
	if !ok {
		return
	}

	view, err := h.widgetService.UpdateConfig(c.Request.Context(), c.Param("id"), cfg)
	if err != nil {
		h.respondError(c, "Configuration update failed", err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Configuration applied", view))
}

func (h *WidgetHandler) EnterCard(c *gin.Context) {
	var details models.CardDetails
	if err := c.ShouldBindJSON(&details); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	view, err := h.widgetService.EnterCard(c.Request.Context(), c.Param("id"), details)
	if err != nil {
		h.respondError(c, "Card input rejected", err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Card input received", view))
}

// Pay always answers 200 once an attempt ran; a failed payment is an outcome, not an API error.
func (h *WidgetHandler) Pay(c *gin.Context) {
	outcome, err := h.widgetService.Pay(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Payment could not be started", err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Payment attempt finished", outcome))
}

func (h *WidgetHandler) GetOutputs(c *gin.Context) {
	outputs, err := h.widgetService.GetOutputs(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Failed to get outputs", err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Outputs retrieved", outputs))
}

func (h *WidgetHandler) DestroyWidget(c *gin.Context) {
	if err := h.widgetService.DestroyWidget(c.Param("id")); err != nil {
		h.respondError(c, "Failed to destroy widget", err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Widget destroyed", nil))
}

// StreamEvents sends the current view followed by every widget event as
// server-sent events, until the client leaves or the widget is destroyed.
func (h *WidgetHandler) StreamEvents(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	events, cancel, err := h.widgetService.Subscribe(ctx, id)
	if err != nil {
		h.respondError(c, "Failed to subscribe", err)
		return
	}
	defer cancel()

	view, err := h.widgetService.GetView(ctx, id)
	if err != nil {
		h.respondError(c, "Failed to subscribe", err)
		return
	}

	h.log.LogAPI("STREAM", c.Request.URL.Path, "open", "-")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("view", view)
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				c.SSEvent("closed", gin.H{"widget_id": id})
				return false
			}
			c.SSEvent(string(ev.Type), ev)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Unix())
			return true
		case <-ctx.Done():
			return false
		}
	})
	h.log.LogAPI("STREAM", c.Request.URL.Path, "closed", "-")
}

// bindConfig checks the body against the configuration contract before binding it.
func (h *WidgetHandler) bindConfig(c *gin.Context) (models.WidgetConfig, bool) {
	var cfg models.WidgetConfig

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return cfg, false
	}

	if h.contract != nil {
		valid, violations, err := h.contract.Validate(body)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
			return cfg, false
		}
		if !valid {
			h.log.Warn("API", "Configuration rejected: "+monitor.FormatErrors(violations))
			c.JSON(http.StatusUnprocessableEntity, utils.ErrorResponse("Configuration does not match the contract", monitor.FormatErrors(violations)))
			return cfg, false
		}
	}

	if err := json.Unmarshal(body, &cfg); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return cfg, false
	}
	return cfg, true
}

func (h *WidgetHandler) respondError(c *gin.Context, message string, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("API", message+": "+err.Error())
	}
	c.JSON(status, utils.ErrorResponse(message, err.Error()))
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidWidgetID):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrWidgetNotFound):
		return http.StatusNotFound
	case errors.Is(err, widget.ErrAttemptInFlight), errors.Is(err, services.ErrSubmitLocked):
		return http.StatusConflict
	case errors.Is(err, widget.ErrNotInitialized):
		return http.StatusConflict
	case errors.Is(err, widget.ErrWidgetDestroyed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
