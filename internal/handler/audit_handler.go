package handler

import (
	"log/slog"
	"net/http"

	"catalog/internal/service"
	"catalog/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
	log          *slog.Logger
}

func NewAuditHandler(auditService service.AuditService, log *slog.Logger) *AuditHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuditHandler{auditService: auditService, log: log}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup, authn gin.HandlerFunc) {
	router.GET("/api/audit-logs", authn, h.GetAuditLogs)
}

// GetAuditLogs retrieves paginated records with the acting user joined in
// @Summary      Get audit logs
// @Description  Newest first. Entries written without a signed-in user show "System".
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  pagination.Page[service.AuditLogResponse]
// @Failure      403    {object}  response.Response
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), actor(c), p.Page, p.Limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, pagination.NewPage(logs, total, p, c.Request.URL.Path, c.Request.URL.Query()))
}
