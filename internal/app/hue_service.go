package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/daylight/internal/config"
	"github.com/dokzlo13/daylight/internal/hue"
)

// HueService owns the bridge connection: discovery, authentication and the client.
type HueService struct {
	cfg *config.Config

	Client *hue.Client
}

// NewHueService creates a new HueService; nothing is contacted until Start.
func NewHueService(cfg *config.Config) *HueService {
	return &HueService{cfg: cfg}
}

// Start discovers the bridge if no address is configured and connects to it.
func (s *HueService) Start(ctx context.Context) error {
	if err := s.cfg.ValidateBridge(); err != nil {
		return err
	}

	address, err := s.resolveAddress(ctx)
	if err != nil {
		return err
	}

	// Initialize Hue client with configured timeout
	s.Client = hue.NewClient(address, s.cfg.Hue.Token, s.cfg.Hue.Timeout.Duration(), s.cfg.Hue.Retries)

	// Each retry may use a full request timeout
	connectCtx, cancel := context.WithTimeout(ctx, s.cfg.Hue.Timeout.Duration()*time.Duration(max(1, s.cfg.Hue.Retries)))
	defer cancel()
	if err := s.Client.Connect(connectCtx); err != nil {
		return err
	}
	return nil
}

func (s *HueService) resolveAddress(ctx context.Context) (string, error) {
	if s.cfg.Hue.Bridge != "" {
		return s.cfg.Hue.Bridge, nil
	}

	log.Info().Msg("No bridge address configured, discovering")
	discoverCtx, cancel := context.WithTimeout(ctx, s.cfg.Hue.Timeout.Duration())
	defer cancel()
	return hue.Discover(discoverCtx)
}

// Close releases all resources.
func (s *HueService) Close() {
	if s.Client != nil {
		s.Client.Close()
	}
}
