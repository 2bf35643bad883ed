package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/daylight/internal/config"
	"github.com/dokzlo13/daylight/internal/control"
	"github.com/dokzlo13/daylight/internal/daywindow"
	"github.com/dokzlo13/daylight/internal/geo"
	"github.com/dokzlo13/daylight/internal/preview"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Day window, computed once per run and read-only afterwards
	GeoCalc *geo.Calculator
	Sunrise time.Time
	Sunset  time.Time
	Window  daywindow.Window

	// High-level services
	Hue    *HueService
	Loop   *control.Loop
	Health *HealthService
}

// NewServices resolves today's day window and prepares the services.
// Nothing talks to the bridge until Start.
func NewServices(cfg *config.Config, now time.Time) (*Services, error) {
	s := &Services{cfg: cfg}

	provider, err := geo.NewProvider(cfg.Geo.Provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalid, err)
	}
	s.GeoCalc = geo.NewCalculator(provider)

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalid, err)
	}
	today := now.In(loc)

	s.Sunrise, s.Sunset, err = s.GeoCalc.Resolve(cfg.Coordinate(), today)
	if err != nil {
		return nil, err
	}

	dayCfg, err := cfg.DayWindow()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalid, err)
	}
	s.Window, err = daywindow.Compute(s.Sunrise, s.Sunset, dayCfg, today)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalid, err)
	}

	log.Info().
		Str("provider", s.GeoCalc.Provider()).
		Time("sunrise", s.Sunrise.In(loc)).
		Time("sunset", s.Sunset.In(loc)).
		Str("wake_up", dayCfg.WakeUp.String()).
		Str("bed_time", dayCfg.BedTime.String()).
		Dur("slack", dayCfg.Slack).
		Time("sod", s.Window.Start).
		Time("eod", s.Window.End).
		Msg("Day window computed")

	s.Hue = NewHueService(cfg)
	s.Health = NewHealthService(cfg)

	return s, nil
}

// Start connects to the bridge and starts the control loop and health server.
// The onFatalError callback is called when the loop cannot start (e.g., the target light is missing).
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	// Connect to Hue bridge
	if err := s.Hue.Start(ctx); err != nil {
		return err
	}

	s.Loop = control.New(control.Config{
		LightID:        s.cfg.Hue.Light,
		Interval:       s.cfg.Loop.Interval.Duration(),
		RequestTimeout: s.cfg.Loop.RequestTimeout.Duration(),
		RateLimitRPS:   s.cfg.Loop.RateLimitRPS,
	}, s.Hue.Client, s.Window)

	go func() {
		if err := s.Loop.Run(ctx); err != nil && onFatalError != nil {
			onFatalError(err)
		}
	}()

	s.Health.Start(ctx, s.Loop)

	return nil
}

// Preview writes today's curve table without contacting the bridge.
func (s *Services) Preview(w io.Writer, step time.Duration) error {
	return preview.Render(w, s.Window, preview.Options{
		Step:             step,
		ColorTemperature: true,
		Sunrise:          s.Sunrise,
		Sunset:           s.Sunset,
	})
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Hue != nil {
		s.Hue.Close()
	}
}
