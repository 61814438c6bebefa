package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"networth/internal/application/port"
	"networth/internal/application/service"
	"networth/internal/domain/model"
)

type SnapshotHandler struct {
	snapshots port.SnapshotRepository
	export    *service.ExportService
	exportDir string
}

func NewSnapshotHandler(snapshots port.SnapshotRepository, export *service.ExportService, exportDir string) *SnapshotHandler {
	return &SnapshotHandler{snapshots: snapshots, export: export, exportDir: exportDir}
}

// Latest returns the most recent committed snapshot. It never waits on a
// running refresh.
func (h *SnapshotHandler) Latest(c *gin.Context) {
	snap, err := h.snapshots.Latest(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if snap == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshots yet"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// History accepts category, since and until (RFC3339 or YYYY-MM-DD).
func (h *SnapshotHandler) History(c *gin.Context) {
	q, err := historyQuery(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	snaps, err := h.snapshots.History(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	if snaps == nil {
		snaps = []*model.Snapshot{}
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snaps, "count": len(snaps)})
}

// Export streams history in the requested format as an attachment.
func (h *SnapshotHandler) Export(c *gin.Context) {
	q, err := historyQuery(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	format := c.DefaultQuery("format", "csv")
	f, err := h.export.Export(c.Request.Context(), format, h.exportDir, q)
	if err != nil {
		fail(c, err)
		return
	}
	path := f.Name()
	_ = f.Close()
	defer func() {
		if err := os.Remove(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("remove export file failed")
		}
	}()
	c.FileAttachment(path, filepath.Base(path))
}

func historyQuery(c *gin.Context) (port.HistoryQuery, error) {
	var q port.HistoryQuery
	if cat := strings.ToLower(strings.TrimSpace(c.Query("category"))); cat != "" {
		q.Category = model.AssetClass(cat)
		if !q.Category.Valid() {
			return q, errUnknownCategory(cat)
		}
	}
	var err error
	if q.Since, err = ParseTime(c.Query("since"), false); err != nil {
		return q, err
	}
	if q.Until, err = ParseTime(c.Query("until"), true); err != nil {
		return q, err
	}
	return q, nil
}

// ParseTime reads RFC3339 or a bare date. A bare date used as an upper
// bound covers the whole day.
func ParseTime(s string, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, errBadTime(s)
	}
	if endOfDay {
		return d.Add(24*time.Hour - time.Millisecond), nil
	}
	return d, nil
}
