package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"volleybot/internal/domain"
)

type scheduleRequest struct {
	Name         string `json:"name" binding:"required"`
	ChatID       string `json:"chat_id" binding:"required"`
	TopicID      int    `json:"message_thread_id"`
	TrainingDay  string `json:"training_day" binding:"required,weekday"`
	PollDay      string `json:"poll_day" binding:"required,weekday"`
	TrainingTime string `json:"training_time" binding:"required,timeofday"`
	Enabled      *bool  `json:"enabled"`
}

type trainingRequest struct {
	Name         string `json:"name" binding:"required"`
	TrainingDate string `json:"training_date" binding:"required,datetime=2006-01-02"`
	TrainingTime string `json:"training_time" binding:"required,timeofday"`
	ChatID       string `json:"chat_id" binding:"required"`
	TopicID      int    `json:"topic_id"`
}

type inviteRequest struct {
	Code      string `json:"code,omitempty"`
	ExpiresIn string `json:"expires_in,omitempty"` // Go duration string
}

type adminIDRequest struct {
	AdminID int64 `json:"admin_id" binding:"required"`
}

type activeFlagRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (s *Server) listUsers(c *gin.Context) {
	users, err := s.store.ListUsers(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (s *Server) setUserActive(c *gin.Context) {
	telegramID, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "telegram_id must be an integer"})
		return
	}
	var req activeFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.SetUserActive(c.Request.Context(), telegramID, *req.Active); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) getTemplate(c *gin.Context) {
	tpl, err := s.store.GetTemplate(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"template": tpl})
}

func (s *Server) putTemplate(c *gin.Context) {
	var tpl domain.PollTemplate
	if err := c.ShouldBindJSON(&tpl); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.SetTemplate(c.Request.Context(), tpl); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) listSchedules(c *gin.Context) {
	schedules, err := s.store.ListSchedules(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": schedules})
}

func (s *Server) addSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rule := domain.ScheduleRule{
		ID:           uuid.NewString(),
		Name:         req.Name,
		ChatID:       req.ChatID,
		TopicID:      req.TopicID,
		TrainingDay:  req.TrainingDay,
		PollDay:      req.PollDay,
		TrainingTime: req.TrainingTime,
		Enabled:      req.Enabled == nil || *req.Enabled,
	}
	if err := s.store.AddSchedule(c.Request.Context(), rule); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"schedule": rule})
}

func (s *Server) updateSchedule(c *gin.Context) {
	var upd domain.ScheduleUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.UpdateSchedule(c.Request.Context(), c.Param("id"), upd); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) removeSchedule(c *gin.Context) {
	if err := s.store.RemoveSchedule(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) listActivePolls(c *gin.Context) {
	polls, err := s.store.ListActivePolls(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"active_polls": polls})
}

func (s *Server) getAdminIDs(c *gin.Context) {
	ids, err := s.store.GetAdminIDs(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"admin_ids": ids})
}

func (s *Server) addAdminID(c *gin.Context) {
	var req adminIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.AddAdminID(c.Request.Context(), req.AdminID); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) removeAdminID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be an integer"})
		return
	}
	ids, err := s.store.GetAdminIDs(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	kept := ids[:0]
	for _, v := range ids {
		if v != id {
			kept = append(kept, v)
		}
	}
	if len(kept) == len(ids) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err := s.store.SetAdminIDs(c.Request.Context(), kept); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) listInvites(c *gin.Context) {
	invites, err := s.store.ListInviteCodes(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invites": invites})
}

func (s *Server) createInvite(c *gin.Context) {
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = uuid.NewString()
	}
	var expiresAt *time.Time
	if req.ExpiresIn != "" {
		d, err := time.ParseDuration(req.ExpiresIn)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "expires_in must be a positive duration"})
			return
		}
		t := time.Now().Add(d)
		expiresAt = &t
	}
	if err := s.store.CreateInviteCode(c.Request.Context(), code, currentUser(c).TelegramID, expiresAt); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"code": code, "expires_at": expiresAt})
}

func (s *Server) revokeInvite(c *gin.Context) {
	ok, err := s.store.RevokeInviteCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) addTraining(c *gin.Context) {
	var req trainingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tr := domain.Training{
		ID: uuid.NewString(),
		OccurrenceKey: domain.OccurrenceKey{
			Date:   req.TrainingDate,
			Time:   req.TrainingTime,
			ChatID: req.ChatID,
		},
		TopicID: req.TopicID,
		Name:    req.Name,
	}
	if err := s.store.AddTraining(c.Request.Context(), tr); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"training": tr})
}

func (s *Server) removeTraining(c *gin.Context) {
	if err := s.store.RemoveTraining(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
