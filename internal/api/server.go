// MIT License
//
// Copyright (c) 2025 Mike Lane
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mikelane/tempus/internal/orchestrator"
	"github.com/mikelane/tempus/internal/preview"
)

// Lifecycle is the slice of the orchestrator the HTTP layer depends on.
type Lifecycle interface {
	Create(ctx context.Context, ttlHours int) (*orchestrator.CreateResult, error)
	Status(ctx context.Context, previewID string) (*orchestrator.StatusDetail, error)
	List(ctx context.Context) ([]orchestrator.StatusDetail, error)
	Extend(ctx context.Context, previewID string, additionalHours int) (*orchestrator.ExtendResult, error)
	Delete(ctx context.Context, previewID string) error
}

// Server serves the preview lifecycle API.
type Server struct {
	lifecycle Lifecycle
	log       *zap.Logger
}

// NewServer creates the HTTP server over the given lifecycle.
func NewServer(lifecycle Lifecycle, log *zap.Logger) *Server {
	return &Server{lifecycle: lifecycle, log: log}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.health)

	// The router does not allow static segments ("create", "health")
	// alongside the :id wildcard, so those two are dispatched inside the
	// wildcard handlers.
	group := router.Group("/preview")
	group.GET("", s.list)
	group.GET("/:id", s.get)
	group.GET("/:id/status", s.get)
	group.POST("/:id", s.create)
	group.POST("/:id/extend", s.extend)
	group.DELETE("/:id", s.delete)

	return router
}

type createRequest struct {
	TTLHours int `json:"ttl_hours"`
}

type extendRequest struct {
	AdditionalHours int `json:"additional_hours"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "tempus"})
}

func (s *Server) previewHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) create(c *gin.Context) {
	if c.Param("id") != "create" {
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
		return
	}

	var req createRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "malformed request body: " + err.Error()})
			return
		}
	}

	result, err := s.lifecycle.Create(c.Request.Context(), req.TTLHours)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) list(c *gin.Context) {
	details, err := s.lifecycle.List(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": details, "total": len(details)})
}

func (s *Server) get(c *gin.Context) {
	if c.Param("id") == "health" {
		s.previewHealth(c)
		return
	}

	detail, err := s.lifecycle.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) extend(c *gin.Context) {
	var req extendRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "malformed request body: " + err.Error()})
			return
		}
	}

	result, err := s.lifecycle.Extend(c.Request.Context(), c.Param("id"), req.AdditionalHours)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) delete(c *gin.Context) {
	id := c.Param("id")
	if err := s.lifecycle.Delete(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "preview_id": id})
}

// respondError maps the domain error taxonomy to HTTP status codes.
func (s *Server) respondError(c *gin.Context, err error) {
	var verr *preview.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"detail": verr.Error()})
	case errors.Is(err, preview.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "preview environment not found"})
	default:
		s.log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
	}
}
