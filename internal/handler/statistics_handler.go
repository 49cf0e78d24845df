package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"catalog/internal/service"
	"catalog/pkg/apperror"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	log               *slog.Logger
}

func NewStatisticsHandler(statisticsService service.StatisticsService, log *slog.Logger) *StatisticsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &StatisticsHandler{statisticsService: statisticsService, log: log}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup, authn gin.HandlerFunc) {
	router.GET("/api/statistics", authn, h.GetStatistics)
}

// @Summary      Get catalog statistics
// @Description  Product and stock totals, per-category counts and the products holding the most stock value
// @Tags         statistics
// @Produce      json
// @Security     BearerAuth
// @Param        top  query     int  false  "Number of ranked products (default 5, max 50)"
// @Success      200  {object}  model.CatalogStatistics
// @Failure      403  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/statistics [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	top := 0
	if raw := c.Query("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(c, h.log, apperror.NewValidation("top", "The top must be at least 1."))
			return
		}
		top = n
	}

	stats, err := h.statisticsService.GetStatistics(c.Request.Context(), actor(c), top)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
