// Package geo resolves natural sunrise and sunset instants for a location.
package geo

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/maypok86/otter/v2"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNoSunriseSunset is returned when the sun does not cross the horizon
	// on the requested date (polar day or polar night).
	ErrNoSunriseSunset = errors.New("no sunrise/sunset for this date/location")

	// ErrInvalidCoordinate is returned for out-of-range latitude or longitude.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)

// Coordinate is a geographic position in decimal degrees
type Coordinate struct {
	Lat float64
	Lon float64
}

// Validate checks that the coordinate is within geographic bounds
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %v not in [-90, 90]", ErrInvalidCoordinate, c.Lat)
	}
	if math.IsNaN(c.Lon) || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: longitude %v not in [-180, 180]", ErrInvalidCoordinate, c.Lon)
	}
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
}

// Times holds the sunrise and sunset of a single day, in UTC
type Times struct {
	Sunrise time.Time
	Sunset  time.Time
}

// Calculator resolves sunrise/sunset through a Provider and memoises results
// per coordinate and calendar date.
type Calculator struct {
	provider Provider
	cache    *otter.Cache[string, Times]
}

// NewCalculator creates a calculator backed by the given provider
func NewCalculator(provider Provider) *Calculator {
	return &Calculator{
		provider: provider,
		cache: otter.Must(&otter.Options[string, Times]{
			MaximumSize: 366,
		}),
	}
}

// Provider returns the name of the underlying provider
func (c *Calculator) Provider() string {
	return c.provider.Name()
}

// Resolve returns sunrise and sunset for the calendar day of date, where the
// day is taken in date's own location. Both instants are in UTC.
//
// If the provider reports no crossing, or a result that does not belong to
// the requested day, ErrNoSunriseSunset is returned. No sentinel bounds are
// substituted.
func (c *Calculator) Resolve(coord Coordinate, date time.Time) (sunrise, sunset time.Time, err error) {
	if err := coord.Validate(); err != nil {
		return time.Time{}, time.Time{}, err
	}

	year, month, day := date.Date()
	cacheKey := fmt.Sprintf("%s,%s", coord, date.Format("2006-01-02"))
	if cached, ok := c.cache.GetIfPresent(cacheKey); ok {
		return cached.Sunrise, cached.Sunset, nil
	}

	rise, set := c.provider.SunriseSunset(coord, year, month, day)
	rise, set = rise.UTC(), set.UTC()
	if !plausible(rise, set, year, month, day) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s on %04d-%02d-%02d (provider %s)",
			ErrNoSunriseSunset, coord, year, month, day, c.provider.Name())
	}

	c.cache.Set(cacheKey, Times{Sunrise: rise, Sunset: set})

	log.Debug().
		Str("provider", c.provider.Name()).
		Str("coord", coord.String()).
		Time("sunrise", rise).
		Time("sunset", set).
		Msg("Resolved sunrise/sunset")

	return rise, set, nil
}

// maxDayOffset bounds how far from the UTC calendar day a local sunrise or
// sunset may fall; it covers every real UTC offset.
const maxDayOffset = 14 * time.Hour

func plausible(rise, set time.Time, year int, month time.Month, day int) bool {
	if rise.IsZero() || set.IsZero() || !rise.Before(set) {
		return false
	}
	lo := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Add(-maxDayOffset)
	hi := time.Date(year, month, day+1, 0, 0, 0, 0, time.UTC).Add(maxDayOffset)
	for _, t := range []time.Time{rise, set} {
		if t.Before(lo) || t.After(hi) {
			return false
		}
	}
	return true
}
