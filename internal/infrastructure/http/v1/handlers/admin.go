package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"refbook/internal/domain/dictionary"
	"refbook/internal/infrastructure/http/v1/dto"
	"refbook/internal/infrastructure/storage/sqlite"
)

// AdminHandler serves the cache, mode and audit endpoints. Routes using it
// sit behind the admin role.
type AdminHandler struct {
	*BaseHandler
	svc     *dictionary.Service
	auditor *sqlite.Auditor
}

// NewAdminHandler creates an admin handler. The auditor may be nil when the
// audit log is disabled; the history endpoint then returns empty lists.
func NewAdminHandler(base *BaseHandler, svc *dictionary.Service, auditor *sqlite.Auditor) *AdminHandler {
	return &AdminHandler{BaseHandler: base, svc: svc, auditor: auditor}
}

// CacheStats reports the cache snapshot.
func (h *AdminHandler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.CacheStats())
}

// CacheClear drops every cached entry.
func (h *AdminHandler) CacheClear(c *gin.Context) {
	h.svc.ClearCache()
	c.Status(http.StatusNoContent)
}

// Mode reports the current mode and journal depth.
func (h *AdminHandler) Mode(c *gin.Context) {
	pending, err := h.svc.PendingCount(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ModeResponse{
		Mode:         string(h.svc.Mode()),
		PendingCount: pending,
	})
}

// SetMode switches between online and offline. Coming back online replays
// the offline journal; the response reports the outcome.
func (h *AdminHandler) SetMode(c *gin.Context) {
	var req dto.ModeRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := h.svc.SetMode(c.Request.Context(), dictionary.Mode(req.Mode))
	if err != nil {
		h.Error(c, err)
		return
	}
	pending, err := h.svc.PendingCount(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ModeResponse{
		Mode:         string(h.svc.Mode()),
		PendingCount: pending,
		Replayed:     res.Replayed,
		Failed:       res.Failed,
	})
}

// History returns the audit trail of one record, newest first.
func (h *AdminHandler) History(c *gin.Context) {
	t, ok := h.DictionaryType(c)
	if !ok {
		return
	}
	if h.auditor == nil {
		c.JSON(http.StatusOK, []dto.AuditEntryResponse{})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := h.auditor.History(c.Request.Context(), t, c.Param("id"), limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	out := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.AuditEntryResponse{
			ID:         e.ID,
			OccurredAt: e.OccurredAt,
			UserID:     e.UserID,
			Action:     string(e.Action),
			Payload:    e.Payload,
		})
	}
	c.JSON(http.StatusOK, out)
}
