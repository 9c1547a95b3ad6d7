package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"volleybot/internal/domain"
	"volleybot/internal/storage"
)

const ctxUserKey = "session_user"

// requireUser authenticates the access cookie and loads the roster row.
// Deactivated users are rejected even with a valid token.
func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(accessCookie)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		telegramID, err := s.tokens.verify(raw, tokenTypeAccess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		user, err := s.store.GetUser(c.Request.Context(), telegramID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "storage error"})
			return
		}
		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account deactivated"})
			return
		}
		c.Set(ctxUserKey, user)
		c.Next()
	}
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user.IsAdmin {
			c.Next()
			return
		}
		// The settings-level admin list grants access too, so an id added
		// from the bot works without a roster edit.
		ids, err := s.store.GetAdminIDs(c.Request.Context())
		if err == nil {
			for _, id := range ids {
				if id == user.TelegramID {
					c.Next()
					return
				}
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
	}
}

func currentUser(c *gin.Context) domain.User {
	u, _ := c.Get(ctxUserKey)
	user, _ := u.(domain.User)
	return user
}
