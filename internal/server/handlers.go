package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type queryRequest struct {
	Query   string         `json:"query" binding:"required"`
	Context map[string]any `json:"context"`
}

type groundRequest struct {
	Statement string `json:"statement" binding:"required"`
}

type reasonRequest struct {
	Query   string         `json:"query" binding:"required"`
	Context map[string]any `json:"context"`
	Depth   int            `json:"depth"`
}

type reflectRequest struct {
	Query   string         `json:"query"`
	Context map[string]any `json:"context"`
}

// validateInput enforces the non-empty, length-bounded input contract.
func (s *Server) validateInput(c *gin.Context, input string) bool {
	if strings.TrimSpace(input) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "input must not be blank"})
		return false
	}
	if len(input) > s.maxQueryLength {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "input exceeds maximum length",
			"limit": s.maxQueryLength,
		})
		return false
	}
	return true
}

// handleQuery runs the full pipeline and persists the finished path.
func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !s.validateInput(c, req.Query) {
		return
	}

	path := s.sys.Process(req.Query, req.Context)
	s.metrics.queries.WithLabelValues("query").Inc()

	if s.sink != nil {
		if err := s.sink.SavePath(path); err != nil {
			s.logger.Warn("failed to persist path", zap.String("path_id", path.ID), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, path)
}

func (s *Server) handleGround(c *gin.Context) {
	var req groundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !s.validateInput(c, req.Statement) {
		return
	}

	grounded := s.sys.Grounder().Ground(req.Statement, nil)
	s.metrics.queries.WithLabelValues("ground").Inc()

	c.JSON(http.StatusOK, grounded)
}

func (s *Server) handleReason(c *gin.Context) {
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !s.validateInput(c, req.Query) {
		return
	}
	depth := req.Depth
	if depth == 0 {
		depth = 1
	}

	result := s.sys.Reasoner().ReasonAbout(req.Query, req.Context, depth)
	s.metrics.queries.WithLabelValues("reason").Inc()

	c.JSON(http.StatusOK, result)
}

// handleReflect runs one standalone reflection cycle and persists it.
func (s *Server) handleReflect(c *gin.Context) {
	var req reflectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Query == "" {
		req.Query = "assess current capability"
	}
	if !s.validateInput(c, req.Query) {
		return
	}

	report := s.sys.Reflect(req.Query, req.Context)
	s.metrics.queries.WithLabelValues("reflect").Inc()

	if s.sink != nil {
		if err := s.sink.SaveCycle(report.Cycle); err != nil {
			s.logger.Warn("failed to persist cycle", zap.String("cycle_id", report.Cycle.ID), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.sys.GetMetrics())
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
