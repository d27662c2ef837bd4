package api

import (
	"net/http"

	"github.com/Domenick1991/staybooking/internal/notify"
	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	inbox notify.Inbox
}

func NewNotificationHandler(inbox notify.Inbox) *NotificationHandler {
	return &NotificationHandler{inbox: inbox}
}

func (h *NotificationHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.POST("/:id/read", h.markRead)
}

func (h *NotificationHandler) list(c *gin.Context) {
	limit, err := intQuery(c, "limit", 50)
	if err != nil {
		badRequest(c, err)
		return
	}
	items, err := h.inbox.ListByUser(c.Request.Context(), identityFrom(c).UserID, int64(limit))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *NotificationHandler) markRead(c *gin.Context) {
	if err := h.inbox.MarkRead(c.Request.Context(), identityFrom(c).UserID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
