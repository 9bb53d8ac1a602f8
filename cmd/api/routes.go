package main

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"helpdesk-live/internal/auth"
	"helpdesk-live/internal/history"
	"helpdesk-live/internal/rbac"
	"helpdesk-live/internal/signaling"
	"helpdesk-live/internal/voicenotes"
	"helpdesk-live/pkg/logger"
)

func newRouter(
	log *slog.Logger,
	authMgr *auth.Manager,
	calls signaling.Handlers,
	hist *history.Handlers,
	notes *voicenotes.Handlers,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.Middleware(log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "status": "ok"})
	})

	api := r.Group("/", auth.RequireAccessToken(authMgr), rbac.RequireAgentIdentity())

	// Call-state coordination consumed by polling client instances.
	api.POST("/video-calls", calls.CreateCall)
	api.PUT("/video-calls/:call_id/answer", calls.Answer)
	api.PUT("/video-calls/:call_id/decline", calls.Decline)
	api.PUT("/video-calls/:call_id/end", calls.End)
	api.GET("/video-calls/:call_id", calls.GetCall)
	api.GET("/video-calls/user/:email", calls.ListForUser)

	// Durable archive of terminal sessions.
	api.GET("/call-history/user/:email", hist.ListForUser)
	api.GET("/call-history/user/:email/summary",
		rbac.RequireAnyRole(rbac.RoleSupervisor), hist.SummaryForUser)

	// Voice-note audio and metadata.
	api.POST("/voice-notes/blobs", notes.UploadBlob)
	api.GET("/voice-notes/:id/audio", notes.ServeAudio)
	api.GET("/voice-notes/ticket/:ticket_id", notes.ListForTicket)

	return r
}
