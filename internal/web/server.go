package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"listd/internal/journal"
	"listd/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/starfederation/datastar-go/datastar"
)

const DefaultMaxBodyBytes = 8 << 20

// Limits are the parameter defaults and caps applied before a request reaches the store.
// Zero values select the store's own defaults.
type Limits struct {
	PageDefault  int
	PageMax      int // 0 = unbounded
	IDsDefault   int
	IDsMax       int
	SliceDefault int
	SliceMax     int
}

type ServerConfig struct {
	Addr         string
	Store        *store.Store
	Journal      *journal.Journal // optional
	Logger       logrus.FieldLogger
	Registry     *prometheus.Registry
	MaxBodyBytes int64
	CORSOrigins  []string
	Limits       Limits
}

type Server struct {
	cfg     ServerConfig
	st      *store.Store
	jr      *journal.Journal
	log     logrus.FieldLogger
	reg     *prometheus.Registry
	metrics *metrics
}

func NewServer(cfg ServerConfig) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	if cfg.Store == nil {
		return nil, errors.New("web: store is nil")
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		cfg.Logger = l
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	l := cfg.Limits
	if l.PageDefault <= 0 {
		l.PageDefault = store.DefaultPageLimit
	}
	if l.IDsMax <= 0 || l.IDsMax > store.MaxIDChunkSize {
		l.IDsMax = store.MaxIDChunkSize
	}
	if l.IDsDefault <= 0 || l.IDsDefault > l.IDsMax {
		l.IDsDefault = min(store.DefaultIDChunkSize, l.IDsMax)
	}
	if l.SliceMax <= 0 || l.SliceMax > store.MaxOrderSliceSize {
		l.SliceMax = store.MaxOrderSliceSize
	}
	if l.SliceDefault <= 0 || l.SliceDefault > l.SliceMax {
		l.SliceDefault = min(store.DefaultOrderSliceSize, l.SliceMax)
	}
	cfg.Limits = l

	return &Server{
		cfg:     cfg,
		st:      cfg.Store,
		jr:      cfg.Journal,
		log:     cfg.Logger,
		reg:     cfg.Registry,
		metrics: newMetrics(cfg.Registry, cfg.Store),
	}, nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /items", s.handleListPage)
	mux.HandleFunc("GET /items/ids", s.handleListIDs)
	mux.HandleFunc("POST /items/save-state", s.handleSaveState)
	mux.HandleFunc("GET /items/get-state", s.handleGetState)
	mux.HandleFunc("GET /items/custom-order", s.handleCustomOrder)
	mux.HandleFunc("GET /items/journal", s.handleJournal)
	return s.withMiddleware(mux)
}

// HTTPServer returns a configured *http.Server for Addr.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleListPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := intParam(q, "limit", s.cfg.Limits.PageDefault)
	if maxLimit := s.cfg.Limits.PageMax; maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	page := s.st.Page(store.PageQuery{
		Search:         q.Get("search"),
		Offset:         intParam(q, "offset", 0),
		Limit:          limit,
		UseStoredOrder: storedOrderParam(q),
	})
	s.respond(w, r, page)
}

func (s *Server) handleListIDs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	size := intParam(q, "size", s.cfg.Limits.IDsDefault)
	if size <= 0 {
		size = s.cfg.Limits.IDsDefault
	}
	if size > s.cfg.Limits.IDsMax {
		size = s.cfg.Limits.IDsMax
	}
	s.respond(w, r, s.st.IDChunk(intParam(q, "chunk", 0), size))
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.st.Summary())
}

func (s *Server) handleCustomOrder(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	count := intParam(q, "count", s.cfg.Limits.SliceDefault)
	if count <= 0 {
		count = s.cfg.Limits.SliceDefault
	}
	if count > s.cfg.Limits.SliceMax {
		count = s.cfg.Limits.SliceMax
	}
	s.respond(w, r, s.st.OrderSlice(intParam(q, "start", 0), count, q.Get("search")))
}

func (s *Server) handleSaveState(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", tooBig.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}

	var req store.SaveStateRequest
	if isDatastar(r) {
		r.Body = io.NopCloser(bytes.NewReader(body))
		err = datastar.ReadSignals(r, &req)
	} else {
		err = json.Unmarshal(body, &req)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, badRequestError{err: err})
		return
	}

	write := req.Write()
	applied := s.st.Apply(write)
	s.metrics.writes.WithLabelValues(applied.Kind.String(), fmt.Sprint(applied.Changed)).Inc()
	s.journalWrite(r.Context(), write, applied, body)

	s.log.WithFields(logrus.Fields{
		"action":   "save_state",
		"kind":     applied.Kind.String(),
		"scope":    applied.Scope,
		"changed":  applied.Changed,
		"revision": applied.Revision,
	}).Debug("applied write")

	if isDatastar(r) {
		sse := datastar.NewSSE(w, r)
		_ = sse.MarshalAndPatchSignals(map[string]any{"saved": true, "revision": applied.Revision})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) journalWrite(ctx context.Context, w store.Write, a store.Applied, body []byte) {
	if s.jr == nil {
		return
	}
	e := journal.Entry{
		Kind:     a.Kind.String(),
		Search:   w.Search,
		ItemID:   w.ItemID,
		Revision: a.Revision,
		Changed:  a.Changed,
	}
	if json.Valid(body) {
		e.Payload = json.RawMessage(body)
	}
	if _, err := s.jr.Append(ctx, e); err != nil {
		s.log.WithError(err).WithField("action", "journal_append").Warn("could not journal write")
	}
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.jr == nil {
		writeError(w, http.StatusNotFound, errors.New("journal disabled"))
		return
	}
	entries, err := s.jr.Tail(r.Context(), intParam(r.URL.Query(), "limit", journal.DefaultTailLimit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, r, map[string]any{"entries": entries})
}
