package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/im-archive/internal/archive"
	"github.com/suPer8Hu/im-archive/internal/common"
	"github.com/suPer8Hu/im-archive/internal/config"
	"github.com/suPer8Hu/im-archive/internal/presence"
	"github.com/suPer8Hu/im-archive/internal/store"
)

type Handler struct {
	Cfg         config.Config
	Coord       *archive.Coordinator
	Repo        *store.Repo
	Presence    *presence.Tracker
	Transcripts *archive.TranscriptBuilder
}

func NewHandler(cfg config.Config, coord *archive.Coordinator, repo *store.Repo, tracker *presence.Tracker, transcripts *archive.TranscriptBuilder) *Handler {
	return &Handler{
		Cfg:         cfg,
		Coord:       coord,
		Repo:        repo,
		Presence:    tracker,
		Transcripts: transcripts,
	}
}

func (h *Handler) Ping(c *gin.Context) {
	common.Ok(c, gin.H{"pong": true})
}

func (h *Handler) Healthz(c *gin.Context) {
	c.Status(http.StatusOK)
}
