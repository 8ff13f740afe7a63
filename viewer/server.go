package viewer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/ethereum-optimism/infra/op-reporter/metrics"
)

const shutdownTimeout = 5 * time.Second

// Server serves a report directory over HTTP
type Server struct {
	log      log.Logger
	dir      string
	addr     string
	listener net.Listener
	server   *http.Server
}

// NewServer creates a server for the files in dir, to listen on addr
func NewServer(logger log.Logger, dir, addr string) *Server {
	if logger == nil {
		logger = log.Root()
	}
	return &Server{
		log:  logger,
		dir:  dir,
		addr: addr,
	}
}

// Handler returns the HTTP handler: the report files, /healthz and /metrics
func (s *Server) Handler() http.Handler {
	hdlr := http.NewServeMux()
	hdlr.HandleFunc("/healthz", s.handleHealthz)
	hdlr.Handle("/metrics", promhttp.Handler())
	hdlr.Handle("/", http.FileServer(http.Dir(s.dir)))
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	return c.Handler(hdlr)
}

// Listen binds the listening socket. Passing port 0 in the address picks a free port.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		metrics.RecordErrorDetails("report server listen", err)
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	return nil
}

// URL returns the address at which file is served. Listen must have been called.
func (s *Server) URL(file string) string {
	host := s.addr
	if s.listener != nil {
		host = s.listener.Addr().String()
	}
	if h, port, err := net.SplitHostPort(host); err == nil && (h == "" || h == "0.0.0.0" || h == "::") {
		host = net.JoinHostPort("localhost", port)
	}
	u := url.URL{Scheme: "http", Host: host, Path: "/" + filepath.ToSlash(file)}
	return u.String()
}

// Serve handles requests until ctx is cancelled, then shuts the server down
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Serving report", "dir", s.dir, "addr", s.listener.Addr().String())
		errCh <- s.server.Serve(s.listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		metrics.RecordErrorDetails("report server", err)
		return fmt.Errorf("report server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down report server: %w", err)
	}
	s.log.Info("Report server stopped")
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.log.Debug("Received health check request", "path", r.URL.Path)
	w.Write([]byte("OK")) //nolint:errcheck
}
