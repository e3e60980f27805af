// server.go — the bundle server's HTTP surface (spec §4.6): serves the
// built virtual entry and any extra entry points, falls back to the
// working directory for static assets the test page references, and
// upgrades the reserved path to the bridge WebSocket.
package bundle

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wrightplay/wrightplay/internal/bridge"
	"github.com/wrightplay/wrightplay/internal/obslog"
	"github.com/wrightplay/wrightplay/internal/util"
)

// BridgePath is the reserved upgrade path the entry script's runtime
// connects to for the bridge WebSocket.
const BridgePath = "/__wrightplay__"

// StatusPath reports the cache's current built-artifact hashes, for a
// watch-mode client or CI harness that wants to confirm a rebuild
// actually landed without dialing the bridge itself.
const StatusPath = "/__wrightplay__/status"

var serverLog = obslog.New("bundle.server")

// ConnHandler is invoked once per accepted bridge connection, with the
// session UUID the browser sent during handshake.
type ConnHandler func(conn *bridge.Conn, sessionUUID string)

// Server is the bundle server's HTTP handler: built JS/CSS out of a
// Cache, static files out of a working directory, and the bridge
// WebSocket upgrade.
type Server struct {
	cache  *Cache
	cwd    string
	onConn ConnHandler
	router *mux.Router
}

// NewServer builds a Server reading built assets from cache and
// falling back to static files under cwd. onConn is called for every
// accepted bridge connection.
func NewServer(cache *Cache, cwd string, onConn ConnHandler) *Server {
	s := &Server{cache: cache, cwd: cwd, onConn: onConn}
	r := mux.NewRouter()
	// Paths reach handleAsset as sent (no mux clean-and-redirect), so
	// one escaping cwd is rejected by serveStatic's guard with a 404.
	r.SkipClean(true)
	r.HandleFunc(StatusPath, s.handleStatus)
	r.HandleFunc(BridgePath, s.handleBridge)
	r.PathPrefix("/").HandlerFunc(s.handleAsset)
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleBridge(w http.ResponseWriter, r *http.Request) {
	conn, sessionUUID, err := bridge.Accept(w, r)
	if err != nil {
		serverLog.WithError(err).Warn("bridge accept failed")
		return
	}
	if s.onConn != nil {
		s.onConn(conn, sessionUUID)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	util.JSONResponse(w, http.StatusOK, map[string]any{
		"hashes": s.cache.Hashes(),
	})
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/" {
		path = "/index.js"
	}
	lookupPath := path[1:]

	if js, contentType, ok := s.cache.Lookup(lookupPath); ok {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(js)
		return
	}

	s.serveStatic(w, r, lookupPath)
}

func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request, rel string) {
	full := filepath.Join(s.cwd, filepath.FromSlash(rel))
	if !isWithinCwd(s.cwd, full) {
		http.NotFound(w, r)
		return
	}
	if _, err := os.Stat(full); err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, full)
}

func isWithinCwd(cwd, full string) bool {
	rel, err := filepath.Rel(cwd, full)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

const shutdownTimeout = 5 * time.Second

// ListenAndServe runs the HTTP server on addr until ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string, s *Server) error {
	httpServer := &http.Server{Addr: addr, Handler: s}
	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
