// Package httpapi serves the retrieval and chat services as a JSON API.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/core/ports/driving"
	"github.com/custodia-labs/ragsample/internal/logger"
)

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("httpapi: retrieval service is required")

const shutdownTimeout = 10 * time.Second

// Ports aggregates the driving ports the API exposes.
type Ports struct {
	Retrieval driving.RetrievalService

	// Chat backs /api/ask. Optional.
	Chat driving.ChatService
}

// AskRequest is the body of POST /api/ask.
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	Query      string   `json:"query" binding:"required"`
	MaxResults int      `json:"maxResults"`
	MinScore   *float64 `json:"minScore"`
}

// Segment is a search result.
type Segment struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SearchResponse is the body returned by POST /api/search.
type SearchResponse struct {
	Results []Segment `json:"results"`
	Count   int       `json:"count"`
}

// Server is the HTTP front end.
type Server struct {
	ports  Ports
	engine *gin.Engine
}

// NewServer builds the router.
func NewServer(ports Ports) (*Server, error) {
	if ports.Retrieval == nil {
		return nil, ErrMissingRetrievalService
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(otelgin.Middleware("ragsample"))
	engine.Use(requestLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	engine.Use(cors.New(corsConfig))

	s := &Server{ports: ports, engine: engine}

	engine.GET("/health", s.health)
	api := engine.Group("/api")
	api.POST("/search", s.search)
	if ports.Chat != nil {
		api.POST("/ask", s.ask)
	}
	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	logger.Info("HTTP server listening on %s", lis.Addr())

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "chat": s.ports.Chat != nil})
}

func (s *Server) ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answer, err := s.ports.Chat.Ask(c.Request.Context(), strings.TrimSpace(req.Question))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

func (s *Server) search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	matches, err := s.ports.Retrieval.Retrieve(c.Request.Context(), req.Query, driving.SearchOptions{
		MaxResults: req.MaxResults,
		MinScore:   req.MinScore,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	resp := SearchResponse{Results: make([]Segment, 0, len(matches)), Count: len(matches)}
	for _, m := range matches {
		resp.Results = append(resp.Results, Segment{
			ID:       m.ID,
			Score:    m.Score,
			Text:     m.Segment.Text,
			Metadata: m.Segment.Metadata.Map(),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// Status maps a service error onto an HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrLLMUnavailable),
		errors.Is(err, domain.ErrEmbeddingUnavailable),
		errors.Is(err, domain.ErrStoreUnavailable),
		errors.Is(err, domain.ErrTransport):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	code := Status(err)
	if code >= http.StatusInternalServerError {
		logger.Error("http: %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http: %s %s %d in %v", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
