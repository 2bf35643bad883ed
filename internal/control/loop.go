// Package control runs the loop that keeps a light on the daylight curve.
package control

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/daylight/internal/curve"
	"github.com/dokzlo13/daylight/internal/daywindow"
	"github.com/dokzlo13/daylight/internal/hue"
	"github.com/dokzlo13/daylight/internal/setting"
)

var (
	// ErrDeviceRead wraps failures to fetch the light state
	ErrDeviceRead = errors.New("failed to read light")

	// ErrDeviceWrite wraps failures to dispatch a setting
	ErrDeviceWrite = errors.New("failed to modify the light state")
)

// Bridge is the part of the Hue client the loop needs
type Bridge interface {
	GetLight(ctx context.Context, lightID string) (*hue.Light, error)
	SetLightState(ctx context.Context, lightID string, update hue.LightStateUpdate) error
}

// State is the lifecycle state of a Loop
type State int32

const (
	StateStarting State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Config contains loop settings
type Config struct {
	LightID        string
	Interval       time.Duration // Pause between iterations (default: 1.5s)
	RequestTimeout time.Duration // Bound on each bridge call (default: 5s)
	RateLimitRPS   float64       // Max state writes per second, 0 = unlimited
}

// Status is a snapshot of the loop's progress
type Status struct {
	State         string                 `json:"state"`
	LightID       string                 `json:"light_id"`
	LightName     string                 `json:"light_name,omitempty"`
	Iterations    uint64                 `json:"iterations"`
	ReadFailures  uint64                 `json:"read_failures"`
	WriteFailures uint64                 `json:"write_failures"`
	LastSample    *curve.Sample          `json:"last_sample,omitempty"`
	LastSetting   *setting.DeviceSetting `json:"last_setting,omitempty"`
	LastUpdate    time.Time              `json:"last_update"`
	LastError     string                 `json:"last_error,omitempty"`
}

// Option configures a Loop
type Option func(*Loop)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

// WithParams replaces the default curve parameters
func WithParams(p curve.Params) Option {
	return func(l *Loop) { l.params = p }
}

// Loop periodically evaluates the curves and pushes the result to the light.
// The day window is fixed for the lifetime of the loop.
type Loop struct {
	cfg     Config
	bridge  Bridge
	window  daywindow.Window
	params  curve.Params
	now     func() time.Time
	limiter *rate.Limiter

	state       atomic.Int32
	staleWarned bool

	mu     sync.RWMutex
	status Status
}

// New creates a loop. It does not contact the bridge until Run.
func New(cfg Config, bridge Bridge, window daywindow.Window, opts ...Option) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = 1500 * time.Millisecond
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}

	limit := rate.Inf
	if cfg.RateLimitRPS > 0 {
		limit = rate.Limit(cfg.RateLimitRPS)
	}

	l := &Loop{
		cfg:     cfg,
		bridge:  bridge,
		window:  window,
		params:  curve.DefaultParams(),
		now:     time.Now,
		limiter: rate.NewLimiter(limit, 1),
		status:  Status{LightID: cfg.LightID},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns the current lifecycle state
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Window returns the day window the loop follows
func (l *Loop) Window() daywindow.Window {
	return l.window
}

// Status returns a snapshot of the loop's progress
func (l *Loop) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s := l.status
	s.State = l.State().String()
	return s
}

// Run reads the target light once, failing if it cannot, and then steps
// until ctx is cancelled. Per-iteration failures are logged and skipped.
func (l *Loop) Run(ctx context.Context) error {
	defer l.setState(StateStopped)

	light, err := l.readLight(ctx)
	if err != nil {
		return fmt.Errorf("target light %q: %w", l.cfg.LightID, err)
	}

	l.mu.Lock()
	l.status.LightName = light.Name
	l.mu.Unlock()

	event := log.Info().
		Str("light", l.cfg.LightID).
		Str("name", light.Name).
		Str("type", light.Type).
		Bool("color_temperature", light.SupportsColorTemperature())
	if ct := light.Capabilities.Control.CT; ct != nil {
		event = event.Uint16("ct_min", ct.Min).Uint16("ct_max", ct.Max)
	}
	event.Msg("Target light found")

	l.setState(StateRunning)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.setState(StateStopping)
			log.Info().Msg("Control loop stopping")
			return nil
		case <-timer.C:
		}

		if err := l.Step(ctx); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Msg("Iteration failed")
		}

		timer.Reset(l.cfg.Interval)
	}
}

// Step runs one iteration: read the light, evaluate the curves, map them to
// device units and dispatch. The returned error wraps ErrDeviceRead or
// ErrDeviceWrite.
func (l *Loop) Step(ctx context.Context) error {
	light, err := l.readLight(ctx)
	if err != nil {
		l.record(func(s *Status) {
			s.ReadFailures++
			s.LastError = err.Error()
		})
		return err
	}

	now := l.now()
	l.checkStale(now)

	caps := capabilitiesOf(light)
	sample := l.params.Evaluate(l.window, now, caps.ColorTemperature != nil)
	dev := setting.Map(sample, caps)

	event := log.Info().Time("now", now).Float64("brightness", sample.Brightness).Uint8("bri", dev.Brightness)
	if sample.ColorTemperature != nil {
		event = event.Float64("color_temperature", *sample.ColorTemperature)
	}
	if dev.ColorTemperature != nil {
		event = event.Uint16("ct", *dev.ColorTemperature)
	}
	event.Msg("Daylight sample")

	err = l.dispatch(ctx, dev)
	l.record(func(s *Status) {
		s.Iterations++
		s.LastSample = &sample
		s.LastSetting = &dev
		s.LastUpdate = now
		if err != nil {
			s.WriteFailures++
			s.LastError = err.Error()
		}
	})
	return err
}

func (l *Loop) readLight(ctx context.Context) (*hue.Light, error) {
	reqCtx, cancel := context.WithTimeout(ctx, l.cfg.RequestTimeout)
	defer cancel()

	light, err := l.bridge.GetLight(reqCtx, l.cfg.LightID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceRead, err)
	}
	return light, nil
}

func (l *Loop) dispatch(ctx context.Context, dev setting.DeviceSetting) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceWrite, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, l.cfg.RequestTimeout)
	defer cancel()

	if err := l.bridge.SetLightState(reqCtx, l.cfg.LightID, updateFor(dev)); err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceWrite, err)
	}
	return nil
}

// checkStale warns once when the process outlives the day its window was computed for
func (l *Loop) checkStale(now time.Time) {
	if l.staleWarned || l.window.Date.IsZero() || l.window.IsToday(now) {
		return
	}
	l.staleWarned = true
	log.Warn().
		Time("window_date", l.window.Date).
		Time("now", now).
		Msg("Day window is stale: it was computed for a previous day and is not recomputed, restart to refresh")
}

func (l *Loop) record(fn func(*Status)) {
	l.mu.Lock()
	fn(&l.status)
	l.mu.Unlock()
}

func (l *Loop) setState(s State) {
	l.state.Store(int32(s))
}

func capabilitiesOf(light *hue.Light) setting.Capabilities {
	caps := setting.Capabilities{MaxBrightness: setting.DefaultMaxBrightness}
	if ct := light.Capabilities.Control.CT; ct != nil {
		caps.ColorTemperature = &setting.MiredRange{Min: ct.Min, Max: ct.Max}
	}
	return caps
}

func updateFor(dev setting.DeviceSetting) hue.LightStateUpdate {
	bri := dev.Brightness
	return hue.LightStateUpdate{
		Bri: &bri,
		Ct:  dev.ColorTemperature,
	}
}
