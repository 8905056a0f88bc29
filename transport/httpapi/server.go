// Package httpapi exposes pipeline control and a live caption feed over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/soocke/lipread-go/domain/history"
	"github.com/soocke/lipread-go/domain/pipeline"
)

// Pipeline is the controller surface the API drives.
type Pipeline interface {
	State() pipeline.State
	LastAccepted() string
	Stats() pipeline.Stats
	SessionID() string
	SelectRegion(id string)
	SelectedRegion() string
	Stop()
}

// HistoryReader lists stored captions.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Options wires the server. Start snapshots the current settings and starts
// the controller; History may be nil.
type Options struct {
	Pipeline Pipeline
	Start    func() error
	History  HistoryReader
	Hub      *Hub
	Logger   *slog.Logger
}

// Server is the HTTP control plane.
type Server struct {
	echo *echo.Echo
	opts Options
	hub  *Hub
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Local overlay pages are served from file:// or other ports.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// New registers routes on a fresh echo instance.
func New(opts Options) *Server {
	hub := opts.Hub
	if hub == nil {
		hub = NewHub(opts.Logger)
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	if opts.Logger != nil {
		logger := opts.Logger
		e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			LogMethod:  true,
			LogURI:     true,
			LogStatus:  true,
			LogLatency: true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				logger.Debug("http request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
				return nil
			},
		}))
	}

	s := &Server{echo: e, opts: opts, hub: hub}
	e.GET("/healthz", s.healthz)
	e.GET("/status", s.status)
	e.POST("/start", s.start)
	e.POST("/stop", s.stop)
	e.POST("/select", s.selectRegion)
	e.GET("/history", s.history)
	e.GET("/ws", s.ws)
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.echo }

// Hub returns the live feed hub.
func (s *Server) Hub() *Hub { return s.hub }

// Run serves on addr until ctx ends.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.echo.Start(addr) }()
	if s.opts.Logger != nil {
		s.opts.Logger.Info("http api listening", "addr", addr)
	}
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

// Sinks returns callbacks that push controller output to websocket clients.
func (s *Server) Sinks() (func(pipeline.Event), func(pipeline.Status)) {
	return func(ev pipeline.Event) { s.hub.Broadcast(NewEventMessage(ev)) },
		func(st pipeline.Status) { s.hub.Broadcast(NewStatusMessage(st)) }
}

type statusResponse struct {
	State          string         `json:"state"`
	SessionID      string         `json:"session_id,omitempty"`
	LastAccepted   string         `json:"last_accepted"`
	SelectedRegion string         `json:"selected_region,omitempty"`
	Stats          pipeline.Stats `json:"stats"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) healthz(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *Server) status(c echo.Context) error {
	p := s.opts.Pipeline
	return c.JSON(http.StatusOK, statusResponse{
		State:          p.State().String(),
		SessionID:      p.SessionID(),
		LastAccepted:   p.LastAccepted(),
		SelectedRegion: p.SelectedRegion(),
		Stats:          p.Stats(),
	})
}

func (s *Server) start(c echo.Context) error {
	if s.opts.Start == nil {
		return c.JSON(http.StatusNotImplemented, errorResponse{Error: "start not available"})
	}
	if err := s.opts.Start(); err != nil {
		if errors.Is(err, pipeline.ErrAlreadyRunning) {
			return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return s.status(c)
}

func (s *Server) stop(c echo.Context) error {
	s.opts.Pipeline.Stop()
	return s.status(c)
}

type selectRequest struct {
	RegionID string `json:"region_id"`
}

func (s *Server) selectRegion(c echo.Context) error {
	var req selectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
	}
	s.opts.Pipeline.SelectRegion(req.RegionID)
	return s.status(c)
}

func (s *Server) history(c echo.Context) error {
	if s.opts.History == nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "history disabled"})
	}
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid limit"})
		}
		limit = min(n, 500)
	}
	entries, err := s.opts.History.Recent(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	return c.JSON(http.StatusOK, entries)
}

func (s *Server) ws(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return nil
	}
	s.hub.serve(conn)
	return nil
}
