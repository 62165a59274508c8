// Package server hosts the HTTP front end.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	apiv1 "github.com/prodassist/prodassist/server/router/api/v1"
	"github.com/prodassist/prodassist/server/profile"
)

type Server struct {
	Profile *profile.Profile

	echoServer *echo.Echo
	httpServer *http.Server
}

func NewServer(prof *profile.Profile, api *apiv1.APIV1Service) *Server {
	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/healthz", func(c *echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})
	api.RegisterRoutes(e)

	return &Server{
		Profile:    prof,
		echoServer: e,
		httpServer: &http.Server{Handler: e},
	}
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("server listening", "address", address, "mode", s.Profile.Mode)
	s.httpServer.Addr = address
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	slog.Info("server shutdown")
}
