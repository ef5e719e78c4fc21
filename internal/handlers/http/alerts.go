package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Nazarious-ucu/nightjet-alerts/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const timeoutDuration = 10 * time.Second

type alertService interface {
	Create(ctx context.Context, in models.AlertInput) (models.Alert, error)
	List(ctx context.Context) ([]models.Alert, error)
	Delete(ctx context.Context, id string) error
}

type cycleRunner interface {
	RunCycle(ctx context.Context, trigger string) (models.CheckReport, error)
}

type Handler struct {
	Service alertService
	Checker cycleRunner
	trigger string
	log     zerolog.Logger
}

func NewHandler(svc alertService, checker cycleRunner, trigger string, logger zerolog.Logger) *Handler {
	return &Handler{
		Service: svc,
		Checker: checker,
		trigger: trigger,
		log:     logger.With().Str("component", "AlertHandler").Logger(),
	}
}

// CheckResponse is the body of a completed check cycle.
type CheckResponse struct {
	Message string `json:"message"`
	models.CheckReport
}

// Create godoc
// @Summary      Create an alert
// @Description  Watch a NightJet train on a date and get an email once tickets are on sale.
// @Tags         alerts
// @Accept       json
// @Produce      json
// @Param        alert  body      models.AlertInput  true  "Alert to create"
// @Success      201    {object}  models.Alert
// @Failure      400    {object}  map[string]string
// @Failure      500    {object}  map[string]string
// @Router       /alerts [post]
func (h *Handler) Create(c *gin.Context) {
	var in models.AlertInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.log.Debug().Err(err).Msg("failed to bind alert")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	alert, err := h.Service.Create(ctx, in)
	if err != nil {
		if errors.Is(err, models.ErrInvalidAlertDate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Date must be a valid DDMMYYYY date"})
			return
		}
		h.log.Error().Err(err).Ctx(ctx).Msg("failed to create alert")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create alert"})
		return
	}

	c.JSON(http.StatusCreated, alert)
}

// List godoc
// @Summary      List alerts
// @Tags         alerts
// @Produce      json
// @Success      200  {array}   models.Alert
// @Failure      500  {object}  map[string]string
// @Router       /alerts [get]
func (h *Handler) List(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	alerts, err := h.Service.List(ctx)
	if err != nil {
		h.log.Error().Err(err).Ctx(ctx).Msg("failed to list alerts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch alerts"})
		return
	}

	c.JSON(http.StatusOK, alerts)
}

// Check godoc
// @Summary      Run a check cycle
// @Description  Evaluates every due alert once and emails owners whose tickets are on sale.
// @Tags         alerts
// @Produce      json
// @Success      200  {object}  CheckResponse
// @Failure      409  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /alerts/check [get]
func (h *Handler) Check(c *gin.Context) {
	// a client hanging up must not abort a cycle halfway through
	ctx := context.WithoutCancel(c.Request.Context())

	report, err := h.Checker.RunCycle(ctx, h.trigger)
	if err != nil {
		if errors.Is(err, models.ErrCycleInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "Check already in progress"})
			return
		}
		h.log.Error().Err(err).Ctx(ctx).Msg("check cycle failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check alerts"})
		return
	}

	c.JSON(http.StatusOK, CheckResponse{Message: "Alerts checked successfully", CheckReport: report})
}

// Delete godoc
// @Summary      Delete an alert
// @Tags         alerts
// @Param        id   path      string  true  "Alert ID"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /alerts/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	if err := h.Service.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
			return
		}
		h.log.Error().Err(err).Ctx(ctx).Str("alert_id", id).Msg("failed to delete alert")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete alert"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Register mounts the alert routes.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/alerts", h.Create)
	r.GET("/alerts", h.List)
	r.GET("/alerts/check", h.Check)
	r.DELETE("/alerts/:id", h.Delete)
}
