package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"ruletree/internal/metrics"
	"ruletree/pkg/ruletree"
)

// maxBodyBytes bounds a match request body.
const maxBodyBytes = 1 << 20

type MatchRequest struct {
	Tokens []ruletree.Token `json:"tokens"`
}

type MatchResponse struct {
	Matches []ruletree.RuleID `json:"matches"`
	Count   int               `json:"count"`
	RuleSet string            `json:"ruleset"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ruleSet is one published rule set; name and automaton always change
// together.
type ruleSet struct {
	name string
	auto *ruletree.Automaton
}

// Server answers match queries against the active automaton. Update swaps
// the rule set without blocking in-flight requests.
type Server struct {
	addr    string
	verbose bool

	active atomic.Pointer[ruleSet]
}

func NewServer(addr string, verbose bool) *Server {
	return &Server{addr: addr, verbose: verbose}
}

// Update publishes a freshly compiled rule set.
func (s *Server) Update(name string, auto *ruletree.Automaton) {
	s.active.Store(&ruleSet{name: name, auto: auto})
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/match", s.handleMatch)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Start serves the API until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("api server listen: %w", err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", ln.Addr().String()).Msg("API server listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rs := s.active.Load()
	if rs == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no rule set loaded")
		return
	}

	var req MatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		metrics.ErrorsTotal.WithLabelValues(metrics.ErrorTypeDecode).Inc()
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	done := metrics.ObserveQuery(rs.auto.Mode().String())
	m := rs.auto.Match(req.Tokens)
	done()
	metrics.MatchesTotal.Add(float64(m.Len()))

	if s.verbose {
		log.Debug().Int("tokens", len(req.Tokens)).Int("matches", m.Len()).Msg("Match request")
	}
	s.writeJSON(w, http.StatusOK, MatchResponse{
		Matches: m.IDs(),
		Count:   m.Len(),
		RuleSet: rs.name,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	rs := s.active.Load()
	if rs == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no rule set loaded")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "ruleset": rs.name})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	metrics.HTTPRequestsTotal.WithLabelValues(strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("Failed to write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, errorResponse{Error: msg})
}
