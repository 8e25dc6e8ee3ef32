// Package server exposes a traversal run over HTTP.
//
// Statistics and the indexed name tree are served as JSON once their ready signal has
// fired. Readiness is pushed to browsers as server-sent events.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/idelchi/diskmanager/internal/diskstat"
)

//go:embed static/index.html
var static embed.FS

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

// Server serves one run.
type Server struct {
	run    *diskstat.Run
	log    *zap.Logger
	expand singleflight.Group
	mux    *http.ServeMux
}

// New creates a Server for run.
func New(run *diskstat.Run, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{run: run, log: log, mux: http.NewServeMux()}

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /api/data", s.handleData)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.HandleFunc("GET /api/stats/{path...}", s.handleStat)
	s.mux.HandleFunc("GET /api/names", s.handleNames)
	s.mux.HandleFunc("GET /api/names/{path...}", s.handleExpand)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)

	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errs := make(chan error, 1)

	go func() {
		s.log.Info("serving", zap.String("url", "http://"+addr), zap.String("run", s.run.ID()))
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("serving on %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, static, "static/index.html")
}

// handleData serves the root summary as {size, files, folders}.
func (s *Server) handleData(w http.ResponseWriter, _ *http.Request) {
	if !ready(s.run.StatsReady()) {
		s.notReady(w, "stats")

		return
	}

	stat, _ := s.run.Accumulator().Stat(s.run.Root())
	if stat == nil {
		stat = &diskstat.Stat{Path: s.run.Root()}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"size":    stat.Size,
		"files":   stat.NumFiles,
		"folders": stat.NumDirs,
	})
}

type statsResponse struct {
	Run      string                    `json:"run"`
	Root     string                    `json:"root"`
	Ready    bool                      `json:"ready"`
	Stats    map[string]*diskstat.Stat `json:"stats"`
	Degraded []diskstat.Failure        `json:"degraded"`
}

// handleStats serves the flat statistics map. Clients that pass partial=1 accept a map
// that is still being filled.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	isReady := ready(s.run.StatsReady())
	partial, _ := strconv.ParseBool(r.URL.Query().Get("partial"))

	if !isReady && !partial {
		s.notReady(w, "stats")

		return
	}

	acc := s.run.Accumulator()

	s.writeJSON(w, http.StatusOK, statsResponse{
		Run:      s.run.ID(),
		Root:     s.run.Root(),
		Ready:    isReady,
		Stats:    acc.Stats(),
		Degraded: acc.Failures(),
	})
}

// handleStat serves the statistic of one directory. Like handleStats it waits for
// StatsReady unless the client passes partial=1.
func (s *Server) handleStat(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	isReady := ready(s.run.StatsReady())
	partial, _ := strconv.ParseBool(r.URL.Query().Get("partial"))

	if !isReady && !partial {
		s.notReady(w, "stats")

		return
	}

	stat, ok := s.run.Accumulator().Stat(path)
	if !ok {
		if !isReady {
			s.notReady(w, "stats")

			return
		}

		s.writeError(w, http.StatusNotFound, fmt.Errorf("no statistic for %q", path))

		return
	}

	s.writeJSON(w, http.StatusOK, stat)
}

func (s *Server) handleNames(w http.ResponseWriter, _ *http.Request) {
	if !ready(s.run.NamesReady()) {
		s.notReady(w, "names")

		return
	}

	s.writeJSON(w, http.StatusOK, s.run.Accumulator().Names())
}

// handleExpand materializes more levels below the escaped path and returns the updated
// indexed name tree. Identical concurrent requests share one expansion.
func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	if !ready(s.run.NamesReady()) {
		s.notReady(w, "names")

		return
	}

	path := r.PathValue("path")

	depth := s.run.NameDepth()
	if raw := r.URL.Query().Get("depth"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid depth %q", raw))

			return
		}

		depth = parsed
	}

	if !within(s.run.Root(), path) {
		s.writeError(w, http.StatusForbidden, fmt.Errorf("path %q is outside of %q", path, s.run.Root()))

		return
	}

	key := path + "\x00" + strconv.Itoa(depth)

	_, err, shared := s.expand.Do(key, func() (any, error) {
		return nil, s.run.Expand(context.WithoutCancel(r.Context()), path, depth)
	})
	if err != nil {
		s.writeError(w, statusFor(err), err)

		return
	}

	s.log.Debug("expanded", zap.String("path", path), zap.Int("depth", depth), zap.Bool("shared", shared))
	s.writeJSON(w, http.StatusOK, s.run.Accumulator().Names())
}

// handleEvents pushes names-ready and stats-ready as server-sent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))

		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	signals := []struct {
		name string
		done <-chan struct{}
	}{
		{"names-ready", s.run.NamesReady()},
		{"stats-ready", s.run.StatsReady()},
	}

	for _, signal := range signals {
		select {
		case <-signal.done:
		case <-r.Context().Done():
			return
		}

		data, _ := json.Marshal(map[string]string{"run": s.run.ID()})
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", signal.name, data)
		flusher.Flush()
	}
}

func (s *Server) notReady(w http.ResponseWriter, what string) {
	w.Header().Set("Retry-After", "1")
	s.writeError(w, http.StatusServiceUnavailable, fmt.Errorf("%s not ready", what))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug("writing response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch diskstat.Classify(err) {
	case diskstat.KindNotFound:
		return http.StatusNotFound
	case diskstat.KindAccessDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func ready(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// within reports whether path is root or lies below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)

	return err == nil && filepath.IsAbs(path) && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
