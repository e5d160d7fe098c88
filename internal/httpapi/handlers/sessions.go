package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/im-archive/internal/archive"
	"github.com/suPer8Hu/im-archive/internal/common"
)

func atOrNow(ms int64) time.Time {
	if ms == 0 {
		return time.Now()
	}
	return time.UnixMilli(ms)
}

func sessionIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10002, "invalid session id")
		return 0, false
	}
	return id, true
}

type createPairSessionReq struct {
	Participants []string `json:"participants" binding:"required"`
	External     bool     `json:"external"`
	StartMS      int64    `json:"start_ms"`
}

func (h *Handler) CreatePairSession(c *gin.Context) {
	var req createPairSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	users := make([]archive.Address, 0, len(req.Participants))
	for _, p := range req.Participants {
		users = append(users, archive.ParseAddress(p))
	}

	s, err := archive.NewPairSession(c.Request.Context(), h.Coord, h.Repo, users, req.External, atOrNow(req.StartMS))
	if err != nil {
		if errors.Is(err, archive.ErrInvalidArgument) {
			common.Fail(c, http.StatusBadRequest, 10003, "a one-to-one session needs exactly two participants")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to create session")
		return
	}
	h.Coord.Track(s)

	common.Ok(c, gin.H{"session_id": s.ID()})
}

type createRoomSessionReq struct {
	Room     string `json:"room" binding:"required"`
	External bool   `json:"external"`
	StartMS  int64  `json:"start_ms"`
}

func (h *Handler) CreateRoomSession(c *gin.Context) {
	var req createRoomSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	s, err := archive.NewRoomSession(c.Request.Context(), h.Coord, h.Repo, h.Presence, req.Room, req.External, atOrNow(req.StartMS))
	if err != nil {
		slog.Error("failed to create room session", "room", req.Room, "err", err)
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to create session")
		return
	}
	h.Coord.Track(s)

	common.Ok(c, gin.H{"session_id": s.ID()})
}

func (h *Handler) GetSession(c *gin.Context) {
	id, ok := sessionIDParam(c)
	if !ok {
		return
	}

	s, err := h.Coord.FindOrLoad(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "session not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	participants := make([]string, 0)
	for _, u := range s.Participants() {
		participants = append(participants, u.String())
	}

	common.Ok(c, gin.H{
		"session_id":    s.ID(),
		"room":          s.Room(),
		"external":      s.External(),
		"start_ms":      s.StartDate().UnixMilli(),
		"last_activity": s.LastActivity().UnixMilli(),
		"message_count": s.MessageCount(),
		"participants":  participants,
	})
}

func (h *Handler) GetParticipations(c *gin.Context) {
	id, ok := sessionIDParam(c)
	if !ok {
		return
	}
	user := c.Query("user")
	if user == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "user required")
		return
	}

	s, err := h.Coord.FindOrLoad(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "session not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	type participationResp struct {
		JoinedMS int64  `json:"joined_ms"`
		LeftMS   int64  `json:"left_ms,omitempty"`
		Nickname string `json:"nickname,omitempty"`
	}
	out := make([]participationResp, 0)
	for _, p := range s.Participations(archive.ParseAddress(user)) {
		pr := participationResp{JoinedMS: p.Joined.UnixMilli(), Nickname: p.Nickname}
		if !p.Left.IsZero() {
			pr.LeftMS = p.Left.UnixMilli()
		}
		out = append(out, pr)
	}

	common.Ok(c, gin.H{"participations": out})
}

func (h *Handler) GetTranscript(c *gin.Context) {
	id, ok := sessionIDParam(c)
	if !ok {
		return
	}

	s, err := h.Coord.FindOrLoad(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "session not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	entries, err := h.Transcripts.Build(c.Request.Context(), s)
	if err != nil {
		slog.Error("failed to build transcript", "session", id, "err", err)
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to build transcript")
		return
	}

	type entryResp struct {
		From      string `json:"from"`
		To        string `json:"to"`
		SentMS    int64  `json:"sent_ms"`
		Body      string `json:"body"`
		Narrative bool   `json:"narrative"`
		PMFor     string `json:"pm_for,omitempty"`
	}
	out := make([]entryResp, 0, len(entries))
	for _, e := range entries {
		er := entryResp{
			From:      e.From.String(),
			To:        e.To.String(),
			SentMS:    e.Sent.UnixMilli(),
			Body:      e.Body,
			Narrative: e.Narrative,
		}
		if !e.PMFor.IsZero() {
			er.PMFor = e.PMFor.String()
		}
		out = append(out, er)
	}

	common.Ok(c, gin.H{"entries": out})
}

// liveSession fetches a session that can still accept events. Stored-only
// sessions are finished; events against them are rejected.
func (h *Handler) liveSession(c *gin.Context) (*archive.Session, bool) {
	id, ok := sessionIDParam(c)
	if !ok {
		return nil, false
	}
	s := h.Coord.Find(id)
	if s == nil {
		common.Fail(c, http.StatusNotFound, 40402, "no live session with that id")
		return nil, false
	}
	return s, true
}

type messageEventReq struct {
	From   string `json:"from" binding:"required"`
	SentMS int64  `json:"sent_ms"`
}

func (h *Handler) MessageReceived(c *gin.Context) {
	s, ok := h.liveSession(c)
	if !ok {
		return
	}
	var req messageEventReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	s.MessageReceived(archive.ParseAddress(req.From), atOrNow(req.SentMS))
	common.Ok(c, gin.H{"message_count": s.MessageCount()})
}

type joinEventReq struct {
	User     string `json:"user" binding:"required"`
	Nickname string `json:"nickname"`
	AtMS     int64  `json:"at_ms"`
}

func (h *Handler) ParticipantJoined(c *gin.Context) {
	s, ok := h.liveSession(c)
	if !ok {
		return
	}
	var req joinEventReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	user := archive.ParseAddress(req.User)
	s.ParticipantJoined(c.Request.Context(), user, req.Nickname, atOrNow(req.AtMS))
	if room := s.Room(); room != "" {
		if err := h.Presence.Joined(c.Request.Context(), room, user, req.Nickname); err != nil {
			slog.Error("failed to update room presence", "room", room, "user", req.User, "err", err)
		}
	}
	common.Ok(c, nil)
}

type leaveEventReq struct {
	User string `json:"user" binding:"required"`
	AtMS int64  `json:"at_ms"`
}

func (h *Handler) ParticipantLeft(c *gin.Context) {
	s, ok := h.liveSession(c)
	if !ok {
		return
	}
	var req leaveEventReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	user := archive.ParseAddress(req.User)
	s.ParticipantLeft(c.Request.Context(), user, atOrNow(req.AtMS))
	if room := s.Room(); room != "" {
		if err := h.Presence.Left(c.Request.Context(), room, user); err != nil {
			slog.Error("failed to update room presence", "room", room, "user", req.User, "err", err)
		}
	}
	common.Ok(c, nil)
}

type endEventReq struct {
	AtMS int64 `json:"at_ms"`
}

func (h *Handler) EndSession(c *gin.Context) {
	s, ok := h.liveSession(c)
	if !ok {
		return
	}
	var req endEventReq
	_ = c.ShouldBindJSON(&req) // allow empty {}

	s.End(c.Request.Context(), atOrNow(req.AtMS))
	h.Coord.Untrack(s.ID())
	common.Ok(c, nil)
}
