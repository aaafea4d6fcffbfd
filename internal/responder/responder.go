// Package responder answers probes sent to this host by peer monitors.
package responder

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/netutil"

	"github.com/doridoridoriand/netsav-go/internal/config"
	logpkg "github.com/doridoridoriand/netsav-go/internal/log"
)

const shutdownTimeout = 5 * time.Second

// Server replies 418 to HEAD, GET and POST on any path and 501 to anything else.
type Server struct {
	opts     config.ServerOptions
	log      zerolog.Logger
	router   *gin.Engine
	mu       sync.Mutex
	listener net.Listener
}

// New builds a responder. Nothing is bound until Listen.
func New(opts config.ServerOptions, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		opts: opts,
		log:  logpkg.Component(logger, "responder"),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.NoRoute(s.reply)
	s.router = router
	return s
}

// Handler returns the request handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Listen binds the configured address. It is separate from Serve so the
// process can drop privileges between binding and serving.
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.opts.Address, strconv.Itoa(s.opts.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("responder listen on %s: %w", addr, err)
	}
	if s.opts.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.opts.MaxConns)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.log.Info().Str("addr", ln.Addr().String()).Int("max_conns", s.opts.MaxConns).Msg("responder listening")
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve handles connections until ctx is cancelled. It binds first when
// Listen was not called.
func (s *Server) Serve(ctx context.Context) error {
	if s.Addr() == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("responder shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("responder serve: %w", err)
	}
}

func (s *Server) reply(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodHead, http.MethodGet, http.MethodPost:
	default:
		c.AbortWithStatus(http.StatusNotImplemented)
		return
	}
	if s.opts.LogClient {
		s.log.Info().
			Str("method", c.Request.Method).
			Str("client", c.Request.RemoteAddr).
			Str("path", c.Request.URL.Path).
			Msg("client query")
	}
	c.Header("Content-Type", "text/plain")
	c.AbortWithStatus(http.StatusTeapot)
}
