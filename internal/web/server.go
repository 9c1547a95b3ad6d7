// Package web serves the calendar front-end API. Sessions start from a
// Telegram Login Widget payload and continue on a JWT cookie pair.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"volleybot/internal/calendar"
	"volleybot/internal/domain"
	"volleybot/internal/storage"
	"volleybot/pkg/logx"
)

// Config configures the HTTP server.
type Config struct {
	Addr         string
	BotToken     string
	JWTSecret    string
	AllowOrigins []string
	AccessTTL    time.Duration // default 15m
	RefreshTTL   time.Duration // default 30d
	CookieSecure bool
}

type Server struct {
	cfg    Config
	store  storage.Store
	cal    *calendar.Service
	log    logx.Logger
	tokens tokens
	engine *gin.Engine
	http   *http.Server
}

func NewServer(cfg Config, store storage.Store, cal *calendar.Service, log logx.Logger) *Server {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	s := &Server{
		cfg:    cfg,
		store:  store,
		cal:    cal,
		log:    log.With(logx.String("component", "web")),
		tokens: newTokens(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL),
	}

	registerValidations()

	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	e.Use(gin.Recovery(), s.requestLog())

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.AllowOrigins
		corsCfg.AllowCredentials = true
	} else {
		corsCfg.AllowAllOrigins = true
	}
	e.Use(cors.New(corsCfg))

	s.routes(e)
	s.engine = e
	return s
}

func (s *Server) routes(e *gin.Engine) {
	e.GET("/health", s.health)

	api := e.Group("/api")
	api.POST("/auth/telegram", s.authTelegram)
	api.POST("/auth/refresh", s.authRefresh)
	api.POST("/auth/logout", s.authLogout)

	user := api.Group("", s.requireUser())
	user.GET("/auth/me", s.authMe)
	user.GET("/calendar", s.getCalendar)
	user.POST("/calendar/register", s.register)
	user.POST("/calendar/unregister", s.unregister)
	user.GET("/my-trainings", s.myTrainings)

	admin := api.Group("/admin", s.requireUser(), s.requireAdmin())
	admin.GET("/users", s.listUsers)
	admin.PUT("/users/:telegram_id/active", s.setUserActive)

	admin.GET("/settings/template", s.getTemplate)
	admin.PUT("/settings/template", s.putTemplate)

	admin.GET("/settings/schedules", s.listSchedules)
	admin.POST("/settings/schedules", s.addSchedule)
	admin.PUT("/settings/schedules/:id", s.updateSchedule)
	admin.DELETE("/settings/schedules/:id", s.removeSchedule)

	admin.GET("/settings/active_polls", s.listActivePolls)

	admin.GET("/settings/admin_ids", s.getAdminIDs)
	admin.POST("/settings/admin_ids", s.addAdminID)
	admin.DELETE("/settings/admin_ids/:id", s.removeAdminID)

	admin.GET("/invites", s.listInvites)
	admin.POST("/invites", s.createInvite)
	admin.DELETE("/invites/:code", s.revokeInvite)

	admin.POST("/trainings", s.addTraining)
	admin.DELETE("/trainings/:id", s.removeTraining)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", logx.String("addr", s.cfg.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(shCtx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// registerValidations adds the weekday and time-of-day rules to gin's
// binding validator so request DTOs can declare them in tags.
func registerValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseWeekday(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("timeofday", func(fl validator.FieldLevel) bool {
		_, _, err := domain.ParseTimeOfDay(fl.Field().String())
		return err == nil
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/health" {
			return
		}
		s.log.Debug("request",
			logx.String("method", c.Request.Method),
			logx.String("path", c.Request.URL.Path),
			logx.Int("status", c.Writer.Status()),
			logx.Duration("took", time.Since(start)))
	}
}
