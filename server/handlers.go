package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meysamhadeli/codai-scope/backend"
	"github.com/meysamhadeli/codai-scope/context_reconciler"
	"github.com/meysamhadeli/codai-scope/hypothesis_mapper"
	"github.com/meysamhadeli/codai-scope/session"
)

type pathRequest struct {
	Path string `json:"path" binding:"required"`
}

type includeRequest struct {
	Path     string `json:"path" binding:"required"`
	Included bool   `json:"included"`
}

type selectAllRequest struct {
	Included bool `json:"included"`
}

type centralRequest struct {
	Path   string `json:"path" binding:"required"`
	Pinned bool   `json:"pinned"`
}

type externalRequest struct {
	Path    string `json:"path" binding:"required"`
	Content string `json:"content"`
}

type queryRequest struct {
	Query string `json:"query" binding:"required"`
	Mode  string `json:"mode"`
	TopK  int    `json:"topK"`
}

type checkedRequest struct {
	Path    string `json:"path" binding:"required"`
	Checked bool   `json:"checked"`
}

type checkedAllRequest struct {
	Checked bool `json:"checked"`
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "state": s.session.State()})
}

func (s *Server) handleReloadTree(c *gin.Context) {
	if err := s.ReloadTree(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c)
}

func (s *Server) handleSetIncluded(c *gin.Context) {
	var req includeRequest
	if !bind(c, &req) {
		return
	}
	s.session.SetIncluded(req.Path, req.Included)
	s.ok(c)
}

func (s *Server) handleSelectAll(c *gin.Context) {
	var req selectAllRequest
	if !bind(c, &req) {
		return
	}
	s.session.SelectAll(req.Included)
	s.ok(c)
}

func (s *Server) handleCentral(c *gin.Context) {
	var req centralRequest
	if !bind(c, &req) {
		return
	}
	if req.Pinned {
		s.session.PinCentral(req.Path)
	} else {
		s.session.UnpinCentral(req.Path)
	}
	s.ok(c)
}

func (s *Server) handleToggleExpanded(c *gin.Context) {
	var req pathRequest
	if !bind(c, &req) {
		return
	}
	s.session.ToggleExpanded(req.Path)
	s.ok(c)
}

func (s *Server) handleIngestExternal(c *gin.Context) {
	var req externalRequest
	if !bind(c, &req) {
		return
	}
	if len(req.Content) > maxExternalFileSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "external file exceeds maximum size of 1MB"})
		return
	}

	added, err := s.session.IngestExternal(c.Request.Context(), req.Path, []byte(req.Content))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "added": added})
}

func (s *Server) handleRemoveExternal(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "path parameter required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "removed": s.session.RemoveExternal(path)})
}

func (s *Server) handleTotalRecall(c *gin.Context) {
	var req queryRequest
	if !bind(c, &req) {
		return
	}
	result, err := s.session.RunTotalRecall(c.Request.Context(), req.Query, req.Mode)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

func (s *Server) handleSearch(c *gin.Context) {
	var req queryRequest
	if !bind(c, &req) {
		return
	}
	result, err := s.session.RunSearch(c.Request.Context(), req.Query, req.TopK)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

func (s *Server) handleTotalRecallLite(c *gin.Context) {
	var req queryRequest
	if !bind(c, &req) {
		return
	}
	result, err := s.session.RunTotalRecallLite(c.Request.Context(), req.Query)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

func (s *Server) handleSmartPreselect(c *gin.Context) {
	var req queryRequest
	if !bind(c, &req) {
		return
	}
	result, err := s.session.SmartPreselect(c.Request.Context(), req.Query)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"suggestedFiles": result.SuggestedFiles,
		"suggestedDirs":  result.SuggestedDirs,
	})
}

func (s *Server) handleRequestHypotheses(c *gin.Context) {
	var req queryRequest
	if !bind(c, &req) {
		return
	}
	hypotheses, err := s.session.RequestHypotheses(c.Request.Context(), req.Query)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "hypotheses": hypotheses})
}

func (s *Server) handleToggleHypothesis(c *gin.Context) {
	if err := s.session.ToggleHypothesis(c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c)
}

func (s *Server) handleApplyHypotheses(c *gin.Context) {
	result, err := s.session.ApplyHypotheses()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

func (s *Server) handleSetChecked(c *gin.Context) {
	var req checkedRequest
	if !bind(c, &req) {
		return
	}
	if err := s.session.SetChecked(req.Path, req.Checked); err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c)
}

func (s *Server) handleSetAllChecked(c *gin.Context) {
	var req checkedAllRequest
	if !bind(c, &req) {
		return
	}
	s.session.SetAllChecked(req.Checked)
	s.ok(c)
}

func (s *Server) handleSelected(c *gin.Context) {
	selected := s.session.Selected()
	if selected == nil {
		selected = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "selected": selected})
}

func (s *Server) ok(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// fail maps engine errors onto status codes; anything unrecognised is a 500.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, context_reconciler.ErrUnknownItem),
		errors.Is(err, hypothesis_mapper.ErrUnknownHypothesis):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrEmptyContext),
		errors.Is(err, hypothesis_mapper.ErrStaleHypotheses):
		status = http.StatusConflict
	case errors.Is(err, backend.ErrTransport),
		errors.Is(err, backend.ErrMalformedResponse):
		status = http.StatusBadGateway
	}

	s.logger.Warn("request failed", "path", c.FullPath(), "status", status, "error", err)
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return false
	}
	return true
}
