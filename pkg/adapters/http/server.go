package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/playground"
	"github.com/aretw0/playground/internal/logging"
	"github.com/aretw0/playground/pkg/domain"
	"github.com/aretw0/playground/pkg/registry"
	"github.com/aretw0/playground/pkg/schema"
	"github.com/aretw0/playground/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes live playgrounds over HTTP.
type Server struct {
	Sessions *session.Manager
	Registry *registry.Registry

	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer serves GET /metrics from g.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewHandler creates the HTTP handler. reg is the catalog listed by GET /kinds.
func NewHandler(sessions *session.Manager, reg *registry.Registry, opts ...Option) http.Handler {
	s := &Server{
		Sessions: sessions,
		Registry: reg,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/kinds", s.ListKinds)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/playgrounds", func(r chi.Router) {
		r.Get("/", s.ListPlaygrounds)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetPlayground)
			r.Delete("/", s.DeletePlayground)
			r.Post("/save", s.SavePlayground)

			r.Get("/graph", s.GetGraph)
			r.Put("/graph", s.PutGraph)

			r.Post("/nodes", s.AddNode)
			r.Patch("/nodes/{nodeID}", s.PatchNode)
			r.Delete("/nodes/{nodeID}", s.DeleteNode)

			r.Post("/edges", s.Connect)
			r.Delete("/edges/{edgeID}", s.Disconnect)

			r.Get("/results", s.GetResults)
			r.Get("/results/{nodeID}", s.GetResult)
			r.Get("/events", s.SubscribeEvents)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AddNodeRequest is the body of POST /playgrounds/{id}/nodes.
type AddNodeRequest struct {
	ID       string           `json:"id,omitempty"`
	Kind     string           `json:"kind"`
	Params   map[string]any   `json:"params,omitempty"`
	Position *domain.Position `json:"position,omitempty"`
}

// PatchNodeRequest is the body of PATCH /playgrounds/{id}/nodes/{nodeID}.
type PatchNodeRequest struct {
	Params   map[string]any   `json:"params,omitempty"`
	Position *domain.Position `json:"position,omitempty"`
}

// ConnectRequest is the body of POST /playgrounds/{id}/edges.
type ConnectRequest struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	TargetHandle string `json:"target_handle"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "playground-http",
		"version": strings.TrimSpace(playground.Version),
	})
}

// ListKinds handles the GET /kinds request.
func (s *Server) ListKinds(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Registry.Kinds())
}

// ListPlaygrounds handles the GET /playgrounds request.
func (s *Server) ListPlaygrounds(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.fail(w, "ListPlaygrounds", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// GetPlayground handles the GET /playgrounds/{id} request.
func (s *Server) GetPlayground(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.open(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, sess.Playground())
}

// DeletePlayground handles the DELETE /playgrounds/{id} request.
func (s *Server) DeletePlayground(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, "DeletePlayground", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SavePlayground handles the POST /playgrounds/{id}/save request.
func (s *Server) SavePlayground(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.open(w, r); !ok {
		return
	}
	saved, err := s.Sessions.Save(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "SavePlayground", err)
		return
	}
	s.writeJSON(w, http.StatusOK, saved)
}

// GetGraph handles the GET /playgrounds/{id}/graph request.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.open(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, sess.Engine.Snapshot())
}

// PutGraph handles the PUT /playgrounds/{id}/graph request: it replaces the whole canvas.
func (s *Server) PutGraph(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.open(w, r)
	if !ok {
		return
	}
	var g domain.Graph
	if !s.decode(w, r, &g) {
		return
	}
	if err := sess.Engine.Load(g); err != nil {
		s.fail(w, "PutGraph", err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess.Engine.Snapshot())
}

// AddNode handles the POST /playgrounds/{id}/nodes request.
func (s *Server) AddNode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.open(w, r)
	if !ok {
		return
	}
	var body AddNodeRequest
	if !s.decode(w, r, &body) {
		return
	}

	n := domain.Node{ID: body.ID, Kind: body.Kind, Params: body.Params}
	if body.Position != nil {
		n.Position = *body.Position
	}
	added, err := sess.Engine.Add(n)
	if err != nil {
		s.fail(w, "AddNode", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, added)
}

// PatchNode handles the PATCH /playgrounds/{id}/nodes/{nodeID} request.
func (s *Server) PatchNode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.open(w, r)
	if !ok {
		return
	}
	var body PatchNodeRequest
	if !s.decode(w, r, &body) {
		return
	}

	nodeID := chi.URLParam(r, "nodeID")
	if body.Position != nil {
		if err := sess.Engine.MoveNode(nodeID, *body.Position); err != nil {
			s.fail(w, "PatchNode", err)
			return
		}
	}
	if body.Params != nil {
		if _, err := sess.Engine.UpdateParams(nodeID, body.Params); err != nil {
			s.fail(w, "PatchNode", err)
			return
		}
	}

	n, found := sess.Engine.Store().GetNode(nodeID)
	if !found {
		s.fail(w, "PatchNode", domain.ErrNodeNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, n)
}

// DeleteNode handles the DELETE /playgrounds/{id}/nodes/{nodeID} request.
func (s *Server) DeleteNode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.open(w, r)
	if !ok {
		return
	}
	if err := sess.Engine.RemoveNode(chi.URLParam(r, "nodeID")); err != nil {
		s.fail(w, "DeleteNode", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Connect handles the POST /playgrounds/{id}/edges request.
func (s *Server) Connect(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.open(w, r)
	if !ok {
		return
	}
	var body ConnectRequest
	if !s.decode(w, r, &body) {
		return
	}
	e, err := sess.Engine.Connect(body.Source, body.Target, body.TargetHandle)
	if err != nil {
		s.fail(w, "Connect", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, e)
}

// Disconnect handles the DELETE /playgrounds/{id}/edges/{edgeID} request.
func (s *Server) Disconnect(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.open(w, r)
	if !ok {
		return
	}
	if err := sess.Engine.Disconnect(chi.URLParam(r, "edgeID")); err != nil {
		s.fail(w, "Disconnect", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetResults handles the GET /playgrounds/{id}/results request.
func (s *Server) GetResults(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.open(w, r)
	if !ok {
		return
	}
	results := sess.Engine.Results()
	if results == nil {
		results = []domain.Result{}
	}
	s.writeJSON(w, http.StatusOK, results)
}

// GetResult handles the GET /playgrounds/{id}/results/{nodeID} request.
func (s *Server) GetResult(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.open(w, r)
	if !ok {
		return
	}
	res, found := sess.Engine.Result(chi.URLParam(r, "nodeID"))
	if !found {
		s.fail(w, "GetResult", domain.ErrNodeNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// SubscribeEvents handles the GET /playgrounds/{id}/events request (SSE).
// The first "graph" event carries the full canvas; each later one is a GraphDiff.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}
	sess, ok := s.open(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	diffs := sess.Engine.Watch(ctx)
	s.logger.Info("SSE: Client subscribed", "playground_id", sess.ID)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	initial := domain.Diff(nil, ptr(sess.Engine.Snapshot()))
	if initial != nil {
		if payload, err := json.Marshal(initial); err == nil {
			fmt.Fprintf(w, "event: graph\ndata: %s\n\n", payload)
		}
	}
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("SSE: Client disconnected", "playground_id", sess.ID)
			return
		case diff, ok := <-diffs:
			if !ok {
				return
			}
			payload, err := json.Marshal(diff)
			if err != nil {
				s.logger.Error("SSE: Diff encode failed", "err", err)
				continue
			}
			fmt.Fprintf(w, "event: diff\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// -- Helpers --

func (s *Server) open(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.Sessions.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "Open", err)
		return nil, false
	}
	return sess, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Invalid request body", "path", r.URL.Path, "err", err)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
	} else {
		s.logger.Debug(op+" rejected", "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// StatusOf maps engine errors to HTTP status codes.
func StatusOf(err error) int {
	var verr *schema.ValidationError
	switch {
	case errors.Is(err, domain.ErrNodeNotFound),
		errors.Is(err, domain.ErrEdgeNotFound),
		errors.Is(err, domain.ErrPlaygroundNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSlotOccupied),
		errors.Is(err, domain.ErrCycle),
		errors.Is(err, domain.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownKind),
		errors.Is(err, domain.ErrUnknownSlot),
		errors.Is(err, domain.ErrSelfLoop),
		errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	}
	var werr *domain.WiringError
	if errors.As(err, &werr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func ptr[T any](v T) *T {
	return &v
}
