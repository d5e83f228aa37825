package relay

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"prism/internal/domain"
)

// MaxEnvelopeBytes bounds a posted envelope body.
const MaxEnvelopeBytes = 256 << 10

// mailboxPattern matches a 10-byte hex fingerprint.
const mailboxPattern = "{box:[0-9a-f]{20}}"

// Server exposes a Queue over HTTP.
type Server struct {
	queue  Queue
	logger *logrus.Logger
	now    func() time.Time
}

// NewServer returns a relay server over queue. A nil logger uses the
// logrus standard logger.
func NewServer(queue Queue, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{queue: queue, logger: logger, now: time.Now}
}

// Handler returns the relay's routes wrapped in an access log.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/mailbox/"+mailboxPattern, s.handlePost).Methods(http.MethodPost)
	r.HandleFunc("/mailbox/"+mailboxPattern, s.handleFetch).Methods(http.MethodGet)
	r.HandleFunc("/mailbox/"+mailboxPattern+"/ack", s.handleAck).Methods(http.MethodPost)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodGet)
	r.Use(s.accessLog)
	return r
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	box := mux.Vars(r)["box"]
	var env domain.Envelope
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxEnvelopeBytes)).Decode(&env); err != nil {
		http.Error(w, "bad envelope", http.StatusBadRequest)
		return
	}
	if env.Kind != domain.EnvelopePacket && env.Kind != domain.EnvelopeTransport {
		http.Error(w, "unknown envelope kind", http.StatusBadRequest)
		return
	}
	if env.Wire == "" {
		http.Error(w, "empty wire", http.StatusBadRequest)
		return
	}
	if env.Timestamp == 0 {
		env.Timestamp = s.now().UnixMilli()
	}
	if err := s.queue.Push(r.Context(), box, env); err != nil {
		if errors.Is(err, ErrMailboxFull) {
			http.Error(w, err.Error(), http.StatusTooManyRequests)
			return
		}
		s.logger.Errorf("queue push for %s: %v", box, err)
		http.Error(w, "queue unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	box := mux.Vars(r)["box"]
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	envs, err := s.queue.Peek(r.Context(), box, limit)
	if err != nil {
		s.logger.Errorf("queue peek for %s: %v", box, err)
		http.Error(w, "queue unavailable", http.StatusServiceUnavailable)
		return
	}
	if envs == nil {
		envs = []domain.Envelope{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(envs)
}

func (s *Server) handleAck(w http.ResponseWriter, r *http.Request) {
	box := mux.Vars(r)["box"]
	var req ackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil || req.Count < 0 {
		http.Error(w, "bad ack", http.StatusBadRequest)
		return
	}
	if err := s.queue.Drop(r.Context(), box, req.Count); err != nil {
		s.logger.Errorf("queue drop for %s: %v", box, err)
		http.Error(w, "queue unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Info("relay request")
	})
}
