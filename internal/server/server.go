package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kanban/internal/board"
)

// Options configures the HTTP surface.
type Options struct {
	StaticDir string
	// JWTSecret verifies HS256 bearer tokens. Empty disables token auth.
	JWTSecret string
	// DevMode accepts the X-User-ID header in place of a token.
	DevMode bool
	// KeepAlive is the interval between SSE comments on idle event streams.
	KeepAlive time.Duration
}

// Server exposes the kanban board over HTTP.
type Server struct {
	engine    *gin.Engine
	boards    *Boards
	logger    *slog.Logger
	staticDir string
	secret    []byte
	devMode   bool
	keepAlive time.Duration
}

// New constructs the HTTP server with routes and middleware configured.
func New(boards *Boards, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 15 * time.Second
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz", "/api/board/events"))

	srv := &Server{
		engine:    router,
		boards:    boards,
		logger:    logger,
		staticDir: opts.StaticDir,
		secret:    []byte(opts.JWTSecret),
		devMode:   opts.DevMode,
		keepAlive: opts.KeepAlive,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	api.GET("/healthz", s.handleHealth)

	authed := api.Group("", s.authenticate())
	{
		authed.GET("/board", s.handleGetBoard)
		authed.GET("/board/events", s.handleEvents)

		lists := authed.Group("/lists")
		{
			lists.POST("", s.handleCreateList)
			lists.PUT(":id", s.handleRenameList)
			lists.DELETE(":id", s.handleDeleteList)
			lists.POST(":id/projects", s.handleCreateProject)
			lists.PUT(":id/projects/:pid", s.handleUpdateProject)
			lists.DELETE(":id/projects/:pid", s.handleDeleteProject)
		}

		authed.POST("/moves", s.handleMoveProject)
	}

	s.mountStatic()
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// store returns the board of the authenticated caller.
func (s *Server) store(c *gin.Context) *board.Store {
	return s.boards.For(c.GetString(userKey))
}

// respondError logs the error and writes {"error": ..., "field": ...}.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	attrs := []any{slog.String("path", c.FullPath()), slog.Int("status", status), slog.String("error", err.Error())}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", attrs...)
	} else {
		s.logger.Debug("request rejected", attrs...)
	}

	body := gin.H{"error": err.Error()}
	var verr *board.ValidationError
	if errors.As(err, &verr) {
		body["error"] = verr.Message
		body["field"] = verr.Field
	}
	c.AbortWithStatusJSON(status, body)
}

// fail responds with the status that matches a board error.
func (s *Server) fail(c *gin.Context, err error) {
	s.respondError(c, board.StatusCode(err), err)
}

func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
