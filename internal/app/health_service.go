package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/daylight/internal/config"
	"github.com/dokzlo13/daylight/internal/control"
	"github.com/dokzlo13/daylight/internal/daywindow"
)

// LoopStatus is what the health endpoints report on
type LoopStatus interface {
	State() control.State
	Status() control.Status
	Window() daywindow.Window
}

// HealthService provides HTTP health check endpoints.
type HealthService struct {
	cfg    *config.Config
	server *http.Server
}

// NewHealthService creates a new HealthService.
func NewHealthService(cfg *config.Config) *HealthService {
	return &HealthService{
		cfg: cfg,
	}
}

// Start begins the health check server if enabled.
func (s *HealthService) Start(ctx context.Context, loop LoopStatus) {
	if !s.cfg.Healthcheck.Enabled {
		return
	}

	go s.run(ctx, loop)
}

// Handler returns the health check routes
func (s *HealthService) Handler(loop LoopStatus) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Ready once the target light was found and the loop is stepping
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if loop.State() != control.StateRunning {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":%q}`, loop.State().String())
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		resp := struct {
			control.Status
			StartOfDay time.Time `json:"start_of_day"`
			EndOfDay   time.Time `json:"end_of_day"`
		}{Status: loop.Status()}
		window := loop.Window()
		resp.StartOfDay, resp.EndOfDay = window.Start, window.End

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Warn().Err(err).Msg("Failed to encode status")
		}
	})

	return mux
}

func (s *HealthService) run(ctx context.Context, loop LoopStatus) {
	addr := fmt.Sprintf("%s:%d", s.cfg.Healthcheck.Host, s.cfg.Healthcheck.Port)

	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(loop),
	}

	log.Info().Str("addr", addr).Msg("Starting health check server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Health check server shutdown error")
		}
	}()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("Health check server error")
	}
}
