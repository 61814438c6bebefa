package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"networth/internal/application/service"
	"networth/internal/domain/model"
)

type HoldingHandler struct {
	holdings *service.HoldingService
}

func NewHoldingHandler(holdings *service.HoldingService) *HoldingHandler {
	return &HoldingHandler{holdings: holdings}
}

// List returns the latest version of every holding; ?archived=true
// includes archived ones.
func (h *HoldingHandler) List(c *gin.Context) {
	list, err := h.holdings.List(c.Request.Context(), c.Query("archived") == "true")
	if err != nil {
		fail(c, err)
		return
	}
	if list == nil {
		list = []model.Holding{}
	}
	c.JSON(http.StatusOK, gin.H{"holdings": list, "count": len(list)})
}

func (h *HoldingHandler) Get(c *gin.Context) {
	got, err := h.holdings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, got)
}

func (h *HoldingHandler) Add(c *gin.Context) {
	var in model.Holding
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	created, err := h.holdings.Add(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Edit appends a new version; omitted fields keep their value.
func (h *HoldingHandler) Edit(c *gin.Context) {
	var patch service.HoldingPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	updated, err := h.holdings.Edit(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Archive hides the holding from future snapshots. Past snapshots keep
// referencing the versions they were valued with.
func (h *HoldingHandler) Archive(c *gin.Context) {
	archived, err := h.holdings.Archive(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, archived)
}
