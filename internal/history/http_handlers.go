package history

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handlers exposes the archive over the REST surface.
type Handlers struct {
	Service *Service
}

// ListForUser handles GET /call-history/user/:email.
func (h *Handlers) ListForUser(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	recs, err := h.Service.ListForUser(c.Request.Context(), c.Param("email"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not load call history"})
		return
	}
	if recs == nil {
		recs = []CallRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "records": recs})
}

// SummaryForUser handles GET /call-history/user/:email/summary.
func (h *Handlers) SummaryForUser(c *gin.Context) {
	sum, err := h.Service.SummaryForUser(c.Request.Context(), c.Param("email"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not build call summary"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "summary": sum})
}
