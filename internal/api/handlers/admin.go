package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/foresight-go/internal/cache"
	"github.com/irfndi/foresight-go/internal/datasource"
	"github.com/irfndi/foresight-go/internal/session"
)

// AdminHandler exposes operational views of sessions and snapshots.
type AdminHandler struct {
	manager   *session.Manager
	janitor   *session.Janitor
	snapshots *cache.RedisSnapshotCache
	breaker   *datasource.Breaker
}

type SessionStatsResponse struct {
	Active    int                       `json:"active"`
	Snapshots []string                  `json:"snapshots"`
	Cache     *cache.SnapshotCacheStats `json:"cache,omitempty"`
}

// NewAdminHandler creates an admin handler. snapshots may be nil when Redis
// is disabled.
func NewAdminHandler(manager *session.Manager, janitor *session.Janitor, snapshots *cache.RedisSnapshotCache) *AdminHandler {
	return &AdminHandler{manager: manager, janitor: janitor, snapshots: snapshots}
}

func (h *AdminHandler) GetSessionStats(c *gin.Context) {
	resp := SessionStatsResponse{
		Active:    h.manager.Len(),
		Snapshots: []string{},
	}
	if h.snapshots != nil {
		ids, err := h.snapshots.SessionIDs(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		if ids != nil {
			resp.Snapshots = ids
		}
		stats := h.snapshots.GetStats()
		resp.Cache = &stats
	}
	c.JSON(http.StatusOK, resp)
}

// WithBreaker exposes the data API circuit breaker.
func (h *AdminHandler) WithBreaker(b *datasource.Breaker) *AdminHandler {
	h.breaker = b
	return h
}

func (h *AdminHandler) GetDataSourceStats(c *gin.Context) {
	if h.breaker == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "circuit breaker disabled", Code: "not_found"})
		return
	}
	c.JSON(http.StatusOK, h.breaker.Stats())
}

func (h *AdminHandler) ResetDataSource(c *gin.Context) {
	if h.breaker == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "circuit breaker disabled", Code: "not_found"})
		return
	}
	h.breaker.Reset()
	c.JSON(http.StatusOK, h.breaker.Stats())
}

// EvictIdle runs one janitor sweep immediately.
func (h *AdminHandler) EvictIdle(c *gin.Context) {
	evicted := h.janitor.RunOnce()
	c.JSON(http.StatusOK, gin.H{
		"evicted":   evicted,
		"remaining": h.manager.Len(),
	})
}
