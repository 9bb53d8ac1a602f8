package signaling

import (
	"context"
	"errors"
	"net/http"

	"helpdesk-live/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers exposes call-session coordination over HTTP.
//
// Response contract: every body carries {"success": bool, ...}. Clients treat
// anything without success:true as a soft failure, so error bodies must still
// be well-formed JSON.
//
// No business logic here; everything delegates to Service.
type Handlers struct {
	Service *Service
}

func (h Handlers) CreateCall(c *gin.Context) {
	log := logger.FromGin(c)

	var req CreateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid body"})
		return
	}

	session, err := h.Service.CreateCall(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		log.Error("create call failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "create failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "call": session})
}

func (h Handlers) Answer(c *gin.Context)  { h.transition(c, h.Service.Answer) }
func (h Handlers) Decline(c *gin.Context) { h.transition(c, h.Service.Decline) }
func (h Handlers) End(c *gin.Context)     { h.transition(c, h.Service.End) }

func (h Handlers) GetCall(c *gin.Context) {
	log := logger.FromGin(c)

	session, err := h.Service.Get(c.Request.Context(), c.Param("call_id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "call not found"})
			return
		}
		log.Error("get call failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "lookup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "call": session})
}

func (h Handlers) ListForUser(c *gin.Context) {
	log := logger.FromGin(c)

	sessions, err := h.Service.ListForUser(c.Request.Context(), c.Param("email"))
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "email required"})
			return
		}
		log.Error("list calls failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "list failed"})
		return
	}
	if sessions == nil {
		sessions = []CallSession{}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "calls": sessions})
}

func (h Handlers) transition(c *gin.Context, op func(ctx context.Context, callID string) (CallSession, error)) {
	log := logger.FromGin(c)

	session, err := op(c.Request.Context(), c.Param("call_id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "call not found"})
			return
		}
		if errors.Is(err, ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "call id required"})
			return
		}
		log.Error("call transition failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "transition failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "call": session})
}
