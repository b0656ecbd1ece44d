// Package devserver is a local implementation of the task backend, backed by
// sqlite. It serves the same endpoints the client talks to.
package devserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/tgienger/stride/internal/db"
	"github.com/tgienger/stride/internal/logger"
)

// Server routes backend requests to the store
type Server struct {
	store  *db.DB
	router *mux.Router
	now    func() time.Time
}

// New creates a server over an open store
func New(store *db.DB) *Server {
	s := &Server{store: store, router: mux.NewRouter(), now: time.Now}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(requestLogger)

	// fixed paths before the {id} patterns
	r.HandleFunc("/tasks", s.listTasks).Methods(http.MethodGet)
	r.HandleFunc("/tasks/", s.listTasks).Methods(http.MethodGet)
	r.HandleFunc("/tasks", s.createTask).Methods(http.MethodPost)
	r.HandleFunc("/tasks/", s.createTask).Methods(http.MethodPost)
	r.HandleFunc("/tasks/categories", s.listCategories).Methods(http.MethodGet)
	r.HandleFunc("/tasks/tag-groups", s.listTagGroups).Methods(http.MethodGet)
	r.HandleFunc("/tasks/tag-groups", s.createTagGroup).Methods(http.MethodPost)
	r.HandleFunc("/tasks/tag-groups/{groupID:[0-9]+}/tags", s.listTags).Methods(http.MethodGet)
	r.HandleFunc("/tasks/tags", s.createTag).Methods(http.MethodPost)
	r.HandleFunc("/tasks/subtasks", s.createSubtask).Methods(http.MethodPost)
	r.HandleFunc("/tasks/subtasks/{taskID:[0-9]+}", s.updateSubtask).Methods(http.MethodPatch)
	r.HandleFunc("/tasks/{taskID:[0-9]+}", s.getTask).Methods(http.MethodGet)
	r.HandleFunc("/tasks/{taskID:[0-9]+}", s.updateTask).Methods(http.MethodPatch)
	r.HandleFunc("/tasks/{taskID:[0-9]+}/generate-subtasks", s.generateSubtasks).Methods(http.MethodPost)
	r.HandleFunc("/records", s.createRecord).Methods(http.MethodPost)
	r.HandleFunc("/records/", s.createRecord).Methods(http.MethodPost)
	r.HandleFunc("/recommend", s.recommend).Methods(http.MethodPost)
	r.HandleFunc("/recommend/", s.recommend).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no route for "+r.Method+" "+r.URL.Path)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method "+r.Method+" not allowed on "+r.URL.Path)
	})
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("devserver: listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("devserver: shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// requestLogger logs each request with its id and echoes the id back
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-ID")
		if id != "" {
			w.Header().Set("X-Request-ID", id)
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("devserver: %s %s -> %d (%s) id=%s", r.Method, r.URL.Path, rec.status, time.Since(start), id)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
