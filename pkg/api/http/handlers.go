package http

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/promptmotion/manimatic/internal/domain"
	"go.uber.org/zap"
)

// SubmitRequest represents a generation submission request
type SubmitRequest struct {
	Prompt string `json:"prompt" binding:"required"`
	Model  string `json:"model"`
}

// SubmitResponse represents a generation submission response
type SubmitResponse struct {
	GenerationID string `json:"generation_id"`
	Status       string `json:"status"`
	SubmittedAt  string `json:"submitted_at"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

// handleSubmit handles generation submission
func (s *Server) handleSubmit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	model := domain.Model(req.Model)
	if req.Model == "" {
		model = domain.ModelClaude
	}

	gen, err := s.pipeline.Submit(c.Request.Context(), req.Prompt, model)
	if err != nil {
		s.logger.Error("failed to submit generation", zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: ErrorDetail{
				Code:    "SUBMISSION_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusAccepted, SubmitResponse{
		GenerationID: gen.ID,
		Status:       string(gen.Status),
		SubmittedAt:  gen.SubmittedAt.Format(time.RFC3339),
	})
}

// handleGetStatus handles polling a generation's state
func (s *Server) handleGetStatus(c *gin.Context) {
	gen, err := s.pipeline.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		code := "INTERNAL"
		if errors.Is(err, domain.ErrNotFound) {
			status = http.StatusNotFound
			code = "NOT_FOUND"
		}
		c.JSON(status, ErrorResponse{
			Error: ErrorDetail{
				Code:    code,
				Message: "generation not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gen)
}

// handleGetResult returns the artifact locations of a completed generation.
func (s *Server) handleGetResult(c *gin.Context) {
	gen, err := s.pipeline.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		code := "INTERNAL"
		if errors.Is(err, domain.ErrNotFound) {
			status = http.StatusNotFound
			code = "NOT_FOUND"
		}
		c.JSON(status, ErrorResponse{
			Error: ErrorDetail{
				Code:    code,
				Message: "generation not found",
			},
		})
		return
	}

	if gen.Status != domain.StatusCompleted {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: ErrorDetail{
				Code:    "NOT_COMPLETED",
				Message: fmt.Sprintf("generation is %s", gen.Status),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"generation_id": gen.ID,
		"status":        string(gen.Status),
		"video_url":     "/outputs/" + gen.ID,
		"script_url":    "/scripts/" + gen.ID,
		"narration_url": "/narrations/" + gen.ID,
	})
}

// handleList handles listing past generations
func (s *Server) handleList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	gens, err := s.pipeline.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.logger.Error("failed to list generations", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INTERNAL",
				Message: "failed to list generations",
			},
		})
		return
	}
	if gens == nil {
		gens = []*domain.Generation{}
	}

	c.JSON(http.StatusOK, gin.H{
		"generations": gens,
		"limit":       limit,
		"offset":      offset,
	})
}

// handleCancel handles cancelling a running generation
func (s *Server) handleCancel(c *gin.Context) {
	id := c.Param("id")

	if err := s.pipeline.Cancel(c.Request.Context(), id); err != nil {
		status := http.StatusConflict
		code := "CANCEL_FAILED"
		if errors.Is(err, domain.ErrNotFound) {
			status = http.StatusNotFound
			code = "NOT_FOUND"
		}
		c.JSON(status, ErrorResponse{
			Error: ErrorDetail{
				Code:    code,
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"generation_id": id,
		"status":        string(domain.StatusCancelled),
	})
}

// handleVideo serves a rendered video.
func (s *Server) handleVideo(c *gin.Context) {
	s.serveArtifact(c, ".mp4", "video/mp4")
}

// handleScript serves a generated scene script.
func (s *Server) handleScript(c *gin.Context) {
	s.serveArtifact(c, ".py", "text/plain; charset=utf-8")
}

// handleNarration serves a generated narration script.
func (s *Server) handleNarration(c *gin.Context) {
	s.serveArtifact(c, "_narration.txt", "text/plain; charset=utf-8")
}

// serveArtifact serves one generation artifact from the outputs directory.
// IDs are validated as UUIDs so the path cannot escape it.
func (s *Server) serveArtifact(c *gin.Context, suffix, contentType string) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_ID",
				Message: "generation id must be a UUID",
			},
		})
		return
	}

	path := filepath.Join(s.outputsDir, id+suffix)
	c.Header("Content-Type", contentType)
	c.File(path)
}
