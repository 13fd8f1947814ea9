// Package rest is the HTTP front door: it parses requests, invokes the
// catalog service and translates results and error kinds to status codes.
// No catalog logic lives here.
package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/acme/imagestore/internal/logging"
	"github.com/acme/imagestore/internal/server/services"
)

// Server serves the public HTTP API.
type Server struct {
	address string
	catalog *services.CatalogService
	logger  logging.Logger
}

// NewServer constructs a Server bound to address.
func NewServer(address string, l logging.Logger, catalog *services.CatalogService) (*Server, error) {
	return &Server{
		address: address,
		logger:  l.With("module", "rest_server"),
		catalog: catalog,
	}, nil
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// the original API answered every request with wildcard CORS headers
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"*"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/", s.health)
	router.POST("/images", s.uploadImage)
	router.GET("/images", s.listImages)
	router.GET("/images/:image_id", s.getImage)
	router.GET("/images/:image_id/download", s.downloadImage)
	router.DELETE("/images/:image_id", s.deleteImage)

	router.NoRoute(func(c *gin.Context) { c.JSON(http.StatusNotFound, gin.H{"error": "not found"}) })

	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
