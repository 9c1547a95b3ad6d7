package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"volleybot/internal/domain"
	"volleybot/internal/storage"
	"volleybot/pkg/logx"
)

type occurrenceRequest struct {
	TrainingDate string `json:"training_date" binding:"required,datetime=2006-01-02"`
	TrainingTime string `json:"training_time" binding:"required,timeofday"`
	ChatID       string `json:"chat_id" binding:"required"`
	TopicID      int    `json:"topic_id"`
}

func (r occurrenceRequest) key() domain.OccurrenceKey {
	// Binding already checked the format; normalization keeps "9:00" and
	// "09:00" on the same occurrence.
	tm, err := domain.NormalizeTimeOfDay(r.TrainingTime)
	if err != nil {
		tm = r.TrainingTime
	}
	return domain.OccurrenceKey{Date: r.TrainingDate, Time: tm, ChatID: r.ChatID}
}

// loginRequest carries the widget payload plus an optional invite code; the
// code is not part of the signed payload.
type loginRequest struct {
	TelegramLogin
	InviteCode string `json:"invite_code"`
}

func (s *Server) authTelegram(c *gin.Context) {
	var login loginRequest
	if err := c.ShouldBindJSON(&login); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := VerifyTelegramLogin(s.cfg.BotToken, login.TelegramLogin, time.Now()); err != nil {
		s.log.Warn("telegram login rejected", logx.Int64("telegram_id", login.ID), logx.Err(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "telegram authentication failed"})
		return
	}

	user, err := s.store.UpsertUser(c.Request.Context(), domain.User{
		TelegramID: login.ID,
		FirstName:  login.FirstName,
		LastName:   login.LastName,
		Username:   login.Username,
		PhotoURL:   login.PhotoURL,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	if !user.IsActive && login.InviteCode != "" {
		ok, err := s.store.ConsumeInviteCode(c.Request.Context(), login.InviteCode, user.TelegramID)
		if err != nil {
			s.fail(c, err)
			return
		}
		if ok {
			if err := s.store.SetUserActive(c.Request.Context(), user.TelegramID, true); err != nil {
				s.fail(c, err)
				return
			}
			user.IsActive = true
			s.log.Info("invite code consumed",
				logx.Int64("telegram_id", user.TelegramID))
		}
	}
	if !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "account deactivated"})
		return
	}
	if err := s.setSessionCookies(c, user.TelegramID); err != nil {
		s.fail(c, err)
		return
	}
	s.log.Info("web login", logx.Int64("telegram_id", user.TelegramID))
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (s *Server) authRefresh(c *gin.Context) {
	raw, err := c.Cookie(refreshCookie)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no refresh token"})
		return
	}
	telegramID, err := s.tokens.verify(raw, tokenTypeRefresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	if err := s.setSessionCookies(c, telegramID); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": true})
}

func (s *Server) authMe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": currentUser(c)})
}

func (s *Server) authLogout(c *gin.Context) {
	s.clearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{"logged_out": true})
}

func (s *Server) getCalendar(c *gin.Context) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "year must be an integer"})
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be 1..12"})
		return
	}
	entries, err := s.cal.Month(c.Request.Context(), year, time.Month(month), currentUser(c).TelegramID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"year": year, "month": month, "trainings": entries})
}

func (s *Server) register(c *gin.Context) {
	var req occurrenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := s.store.Register(c.Request.Context(), req.key(), req.TopicID, currentUser(c).TelegramID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": status})
}

func (s *Server) unregister(c *gin.Context) {
	var req occurrenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.Unregister(c.Request.Context(), req.key(), currentUser(c).TelegramID); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) myTrainings(c *gin.Context) {
	regs, err := s.cal.UpcomingForUser(c.Request.Context(), currentUser(c).TelegramID, time.Now())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trainings": regs})
}

func (s *Server) setSessionCookies(c *gin.Context, telegramID int64) error {
	now := time.Now()
	access, err := s.tokens.issue(telegramID, tokenTypeAccess, now)
	if err != nil {
		return err
	}
	refresh, err := s.tokens.issue(telegramID, tokenTypeRefresh, now)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessCookie, access, int(s.cfg.AccessTTL.Seconds()), "/", "", s.cfg.CookieSecure, true)
	c.SetCookie(refreshCookie, refresh, int(s.cfg.RefreshTTL.Seconds()), "/", "", s.cfg.CookieSecure, true)
	return nil
}

func (s *Server) clearSessionCookies(c *gin.Context) {
	c.SetCookie(accessCookie, "", -1, "/", "", s.cfg.CookieSecure, true)
	c.SetCookie(refreshCookie, "", -1, "/", "", s.cfg.CookieSecure, true)
}

// fail maps storage and domain errors to HTTP statuses.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrInvalidWeekday), errors.Is(err, domain.ErrInvalidTimeFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.log.Error("request failed",
			logx.String("path", c.Request.URL.Path),
			logx.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
