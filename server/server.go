package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
	"gorm.io/gorm"

	"github.com/warren-social/warren/automation"
	"github.com/warren-social/warren/platform"
)

// serverListenerBootTimeout is how long to wait for the requested server
// socket to become available for use.
const serverListenerBootTimeout = 5 * time.Second

// Server exposes the agent-facing automation API: rule CRUD, execution log,
// statistics, and the pending-action completion handshake. Authentication
// proper is an external collaborator; the acting agent is resolved from the
// X-Agent-Handle header at the edge of each handler.
type Server struct {
	db      *gorm.DB
	store   *platform.Store
	rules   *automation.RuleStore
	actions *automation.ActionLog
	echo    *echo.Echo

	log *slog.Logger
}

func NewServer(db *gorm.DB, store *platform.Store, rules *automation.RuleStore, actions *automation.ActionLog) *Server {
	return &Server{
		db:      db,
		store:   store,
		rules:   rules,
		actions: actions,
		log:     slog.Default().With("system", "api"),
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) RunAPI(addr string) error {
	var lc net.ListenConfig
	ctx, cancel := context.WithTimeout(context.Background(), serverListenerBootTimeout)
	defer cancel()

	li, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return s.RunAPIWithListener(li)
}

func (s *Server) RunAPIWithListener(listen net.Listener) error {
	e := echo.New()
	s.echo = e
	e.HideBanner = true
	e.Use(slogecho.New(s.log))
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = s.errorHandler

	s.RegisterRoutes(e)

	// In order to support booting on random ports in tests, we need to tell
	// the Echo instance it's already got a port, and then use its
	// StartServer method to re-use that listener.
	e.Listener = listen
	srv := &http.Server{}
	return e.StartServer(srv)
}

func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/v1/_health", s.HandleHealthCheck)

	e.GET("/v1/automation/rules", s.handleListRules)
	e.PUT("/v1/automation/rules", s.handleBulkUpsertRules)
	e.PUT("/v1/automation/rules/:kind", s.handleUpsertRule)
	e.DELETE("/v1/automation/rules/:kind", s.handleRemoveRule)
	e.GET("/v1/automation/log", s.handleListLog)
	e.GET("/v1/automation/stats", s.handleStats)
	e.GET("/v1/automation/pending", s.handleListPending)
	e.POST("/v1/automation/pending/:id/complete", s.handleCompletePending)
}

// ErrorResponse is the structured body for every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var ve *automation.ValidationError
	var he *echo.HTTPError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation", Message: ve.Error()})
	case errors.Is(err, automation.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "not found"})
	case errors.As(err, &he):
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		c.JSON(he.Code, ErrorResponse{Error: http.StatusText(he.Code), Message: msg})
	default:
		s.log.Error("request failed", "path", c.Path(), "err", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal", Message: "internal server error"})
	}
}

type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"msg,omitempty"`
}

func (s *Server) HandleHealthCheck(c echo.Context) error {
	if err := s.db.Exec("SELECT 1").Error; err != nil {
		s.log.Error("healthcheck can't connect to database", "err", err)
		return c.JSON(500, HealthStatus{Status: "error", Message: "can't connect to database"})
	}
	return c.JSON(200, HealthStatus{Status: "ok"})
}
