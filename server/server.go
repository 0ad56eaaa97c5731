package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/meysamhadeli/codai-scope/session"
)

const maxExternalFileSize = 1 << 20 // 1MB

// Server exposes a session over HTTP for a browser UI.
type Server struct {
	session  *session.Session
	router   *gin.Engine
	upgrader websocket.Upgrader
	logger   *slog.Logger

	// ReloadTree backs POST /api/tree/reload. It defaults to fetching the tree from the backend.
	ReloadTree func(ctx context.Context) error
}

// NewServer creates a new server driving sess
func NewServer(sess *session.Session, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		session: sess,
		router:  router,
		logger:  logger,
		upgrader: websocket.Upgrader{
			// The UI is served from a local dev server on another port.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	s.ReloadTree = sess.LoadTree

	router.GET("/ws", s.handleWebsocket)

	api := router.Group("/api")
	{
		api.GET("/state", s.handleState)
		api.POST("/tree/reload", s.handleReloadTree)

		api.POST("/scope/include", s.handleSetIncluded)
		api.POST("/scope/select-all", s.handleSelectAll)
		api.POST("/scope/central", s.handleCentral)
		api.POST("/scope/expand", s.handleToggleExpanded)
		api.POST("/scope/external", s.handleIngestExternal)
		api.DELETE("/scope/external", s.handleRemoveExternal)

		api.POST("/channels/total-recall", s.handleTotalRecall)
		api.POST("/channels/search", s.handleSearch)
		api.POST("/channels/total-recall-lite", s.handleTotalRecallLite)
		api.POST("/smart-preselect", s.handleSmartPreselect)

		api.POST("/hypotheses", s.handleRequestHypotheses)
		api.POST("/hypotheses/toggle/:id", s.handleToggleHypothesis)
		api.POST("/hypotheses/apply", s.handleApplyHypotheses)

		api.POST("/context/checked", s.handleSetChecked)
		api.POST("/context/checked-all", s.handleSetAllChecked)
		api.GET("/context/selected", s.handleSelected)
	}

	return s
}

// Handler returns the router, for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the web server
func (s *Server) Run(addr string) error {
	s.logger.Info("listening", "addr", addr)
	return s.router.Run(addr)
}
