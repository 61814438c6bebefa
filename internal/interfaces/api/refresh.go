package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type RefreshHandler struct {
	refresher Refresher
}

func NewRefreshHandler(refresher Refresher) *RefreshHandler {
	return &RefreshHandler{refresher: refresher}
}

// Trigger runs one refresh and answers with the committed snapshot.
// A request made while a refresh is running gets 409 at once.
func (h *RefreshHandler) Trigger(c *gin.Context) {
	snap, err := h.refresher.Refresh(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *RefreshHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.refresher.Status())
}
