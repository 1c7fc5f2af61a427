package http

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/route-beacon/community-resolver/internal/commspec"
	"github.com/route-beacon/community-resolver/internal/metrics"
	"go.uber.org/zap"
)

// Resolver resolves community strings against the loaded registry.
type Resolver interface {
	Parse(community string) (string, bool, error)
}

// ConsumerStatus is an interface for checking Kafka consumer join state.
type ConsumerStatus interface {
	IsJoined() bool
}

// DBChecker abstracts the database health check for testability.
type DBChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	srv       *http.Server
	resolver  Resolver
	dbChecker DBChecker
	consumer  ConsumerStatus
	annotator bool
	logger    *zap.Logger
}

// NewServer builds the HTTP surface. dbChecker and consumer may be nil
// when the annotation pipeline is disabled; readiness then covers only
// the registry, which is always ready once loaded.
func NewServer(addr string, resolver Resolver, dbChecker DBChecker, consumer ConsumerStatus, annotatorEnabled bool, logger *zap.Logger) *Server {
	s := &Server{
		resolver:  resolver,
		dbChecker: dbChecker,
		consumer:  consumer,
		annotator: annotatorEnabled,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReadyz)
	mux.HandleFunc("/v1/resolve", s.handleResolve)
	mux.Handle("/metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	return s
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("HTTP server listening", zap.String("addr", s.srv.Addr))
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	allOK := true

	if s.annotator {
		// Check PostgreSQL.
		if s.dbChecker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := s.dbChecker.Ping(ctx); err != nil {
				checks["postgres"] = "error"
				allOK = false
			} else {
				checks["postgres"] = "ok"
			}
		} else {
			checks["postgres"] = "error"
			allOK = false
		}

		// Check Kafka consumer.
		if s.consumer != nil && s.consumer.IsJoined() {
			checks["kafka"] = "ok"
		} else {
			checks["kafka"] = "not_joined"
			allOK = false
		}
	}

	w.Header().Set("Content-Type", "application/json")
	status := "ready"
	httpStatus := http.StatusOK
	if !allOK {
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]any{
		"status": status,
		"checks": checks,
	})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	community := r.URL.Query().Get("community")
	if community == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "community query parameter is required"})
		return
	}

	kind, classified := commspec.Classify(community)
	kindLabel := "unknown"
	if classified {
		kindLabel = kind.String()
	}

	start := time.Now()
	resolved, matched, err := s.resolver.Parse(community)
	if classified {
		metrics.ResolveDuration.WithLabelValues(kindLabel).Observe(time.Since(start).Seconds())
	}

	if err != nil {
		metrics.LookupsTotal.WithLabelValues(kindLabel, "error").Inc()
		var formatErr *commspec.FormatError
		if errors.As(err, &formatErr) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		s.logger.Error("resolve failed", zap.String("community", community), zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "internal error"})
		return
	}

	if !matched {
		metrics.LookupsTotal.WithLabelValues(kindLabel, "miss").Inc()
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "no match"})
		return
	}

	metrics.LookupsTotal.WithLabelValues(kindLabel, "match").Inc()
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"community": community,
		"kind":      kindLabel,
		"resolved":  resolved,
	})
}
