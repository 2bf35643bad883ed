package hue

import (
	"context"
	"errors"
	"fmt"

	"github.com/amimof/huego"
	"github.com/rs/zerolog/log"
)

// ErrNoBridge is returned when discovery finds no bridge on the local network
var ErrNoBridge = errors.New("no Hue bridge found on the local network")

// Discover returns the address of a bridge on the local network
func Discover(ctx context.Context) (string, error) {
	bridges, err := huego.DiscoverAllContext(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoBridge, err)
	}
	if len(bridges) == 0 {
		return "", ErrNoBridge
	}

	// Same pick as a stack pop: the last reported bridge
	bridge := bridges[len(bridges)-1]
	log.Info().Str("host", bridge.Host).Str("id", bridge.ID).Int("found", len(bridges)).Msg("Discovered Hue bridge")
	return bridge.Host, nil
}

// Pair creates a new bridge user and returns its token. The bridge's link
// button must have been pressed shortly before.
func Pair(ctx context.Context, host, deviceType string) (string, error) {
	token, err := huego.New(host, "").CreateUserContext(ctx, deviceType)
	if err != nil {
		return "", fmt.Errorf("failed to create bridge user (is the link button pressed?): %w", err)
	}
	return token, nil
}
