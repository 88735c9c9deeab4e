package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/andreyvit/redisrec"
)

const (
	contentTypeJSON        = "application/json"
	defaultAddr            = ":8080"
	defaultShutdownTimeout = time.Second * 5
	maxBodyBytes           = 1 << 20
)

// SchemaFunc returns the classifier of a table, or an error if the table is
// not served.
type SchemaFunc func(table string) (redisrec.Classifier, error)

// Server exposes record tables of one driver over JSON HTTP.
type Server struct {
	drv     *redisrec.Driver
	schemas SchemaFunc
	addr    string

	mu     sync.Mutex
	tables map[string]*redisrec.Table

	httpServer *http.Server
}

func NewServer(drv *redisrec.Driver, schemas SchemaFunc, addr string) *Server {
	if addr == "" {
		addr = defaultAddr
	}
	return &Server{
		drv:     drv,
		schemas: schemas,
		addr:    addr,
		tables:  make(map[string]*redisrec.Table),
	}
}

// Handler returns the router, for embedding and tests.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	r.Route("/tables/{table}", func(r chi.Router) {
		r.Get("/count", s.handleCount)
		r.Get("/records", s.handleList)
		r.Post("/records", s.handleInsert)
		r.Delete("/records", s.handleDeleteAll)
		r.Get("/records/{id}", s.handleGet)
		r.Patch("/records/{id}", s.handleUpdate)
		r.Delete("/records/{id}", s.handleDelete)
		r.Get("/orphans", s.handleOrphans)
		r.Post("/orphans/sweep", s.handleSweep)
	})

	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- s.httpServer.ListenAndServe()
	}()
	slog.Info("HTTP server started", "addr", s.addr)

	select {
	case err := <-errc:
		return fmt.Errorf("failed to start HTTP server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}

func (s *Server) table(name string) (*redisrec.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tbl := s.tables[name]; tbl != nil {
		return tbl, nil
	}
	cls, err := s.schemas(name)
	if err != nil {
		return nil, err
	}
	tbl, err := s.drv.Table(name, cls)
	if err != nil {
		return nil, err
	}
	s.tables[name] = tbl
	return tbl, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("Error encoding response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= 500 {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	s.writeJSON(w, status, NewErrorResponse(err.Error()))
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, redisrec.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, redisrec.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, redisrec.ErrInvalidID), errors.Is(err, redisrec.ErrInvalidValue), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

// withTable resolves the {table} URL parameter.
func (s *Server) withTable(w http.ResponseWriter, r *http.Request) (*redisrec.Table, bool) {
	tbl, err := s.table(chi.URLParam(r, "table"))
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, NewErrorResponse(err.Error()))
		return nil, false
	}
	return tbl, true
}

func (s *Server) withID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 0 {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse("Invalid record id"))
		return 0, false
	}
	return id, true
}

func readRecord(w http.ResponseWriter, r *http.Request) (redisrec.Record, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(http.MaxBytesReader(w, r.Body, maxBodyBytes)); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	dec := json.NewDecoder(&buf)
	dec.UseNumber()
	var rec redisrec.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: body must be a JSON object", errBadRequest)
	}
	return rec, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, NewOKResponse())
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	tbl, ok := s.withTable(w, r)
	if !ok {
		return
	}
	n, err := tbl.Count(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, NewValueResponse(n))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	tbl, ok := s.withTable(w, r)
	if !ok {
		return
	}
	recs, err := tbl.AllRecords(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []redisrec.Record{}
	}
	s.writeJSON(w, http.StatusOK, NewValueResponse(recs))
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	tbl, ok := s.withTable(w, r)
	if !ok {
		return
	}
	attrs, err := readRecord(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := tbl.Insert(r.Context(), attrs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, NewValueResponse(rec))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	tbl, ok := s.withTable(w, r)
	if !ok {
		return
	}
	id, ok := s.withID(w, r)
	if !ok {
		return
	}
	rec, err := tbl.MustFind(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, NewValueResponse(rec))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	tbl, ok := s.withTable(w, r)
	if !ok {
		return
	}
	id, ok := s.withID(w, r)
	if !ok {
		return
	}
	attrs, err := readRecord(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	attrs[tbl.PrimaryKey()] = id
	rec, err := tbl.Update(r.Context(), attrs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, NewValueResponse(rec))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	tbl, ok := s.withTable(w, r)
	if !ok {
		return
	}
	id, ok := s.withID(w, r)
	if !ok {
		return
	}
	found, err := tbl.Exists(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !found {
		s.writeJSON(w, http.StatusNotFound, NewErrorResponse("Record not found"))
		return
	}
	if err := tbl.HardDelete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, NewSuccessResponse())
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	tbl, ok := s.withTable(w, r)
	if !ok {
		return
	}
	n, err := tbl.HardDeleteAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, NewValueResponse(n))
}

func (s *Server) handleOrphans(w http.ResponseWriter, r *http.Request) {
	tbl, ok := s.withTable(w, r)
	if !ok {
		return
	}
	ids, err := tbl.Orphans(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	s.writeJSON(w, http.StatusOK, NewValueResponse(ids))
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	tbl, ok := s.withTable(w, r)
	if !ok {
		return
	}
	ids, err := tbl.SweepOrphans(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	s.writeJSON(w, http.StatusOK, NewValueResponse(ids))
}
