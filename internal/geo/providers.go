package geo

import (
	"fmt"
	"math"
	"time"

	"github.com/nathan-osman/go-sunrise"
	"github.com/sixdouglas/suncalc"
)

// Provider names
const (
	ProviderSunrise = "sunrise"
	ProviderSuncalc = "suncalc"
	ProviderNOAA    = "noaa"
)

// Provider computes the raw sunrise and sunset for a calendar day.
// A zero time means the event does not occur.
type Provider interface {
	Name() string
	SunriseSunset(coord Coordinate, year int, month time.Month, day int) (time.Time, time.Time)
}

// IsProvider reports whether name is a known provider
func IsProvider(name string) bool {
	_, err := NewProvider(name)
	return err == nil
}

// NewProvider returns the provider registered under name
func NewProvider(name string) (Provider, error) {
	switch name {
	case ProviderSunrise:
		return SunriseProvider{}, nil
	case ProviderSuncalc:
		return SuncalcProvider{}, nil
	case ProviderNOAA:
		return NOAAProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown sun provider %q", name)
	}
}

// SunriseProvider uses github.com/nathan-osman/go-sunrise
type SunriseProvider struct{}

func (SunriseProvider) Name() string { return ProviderSunrise }

func (SunriseProvider) SunriseSunset(coord Coordinate, year int, month time.Month, day int) (time.Time, time.Time) {
	return sunrise.SunriseSunset(coord.Lat, coord.Lon, year, month, day)
}

// SuncalcProvider uses github.com/sixdouglas/suncalc
type SuncalcProvider struct{}

func (SuncalcProvider) Name() string { return ProviderSuncalc }

func (SuncalcProvider) SunriseSunset(coord Coordinate, year int, month time.Month, day int) (time.Time, time.Time) {
	// Ask around local solar noon so far east/west longitudes land on the right day
	noon := time.Date(year, month, day, 12, 0, 0, 0, time.UTC).
		Add(-time.Duration(coord.Lon / 15 * float64(time.Hour)))
	times := suncalc.GetTimes(noon, coord.Lat, coord.Lon)
	return times[suncalc.Sunrise].Value, times[suncalc.Sunset].Value
}

// NOAAProvider implements the NOAA sunrise equation directly
type NOAAProvider struct{}

func (NOAAProvider) Name() string { return ProviderNOAA }

func (NOAAProvider) SunriseSunset(coord Coordinate, year int, month time.Month, day int) (time.Time, time.Time) {
	// Julian day - add 0.5 because the NOAA sunrise equation expects JD at noon, not midnight
	jd := toJulianDay(year, month, day) + 0.5
	rise, ok := sunTime(jd, coord.Lat, coord.Lon, -0.833, true)
	if !ok {
		return time.Time{}, time.Time{}
	}
	set, _ := sunTime(jd, coord.Lat, coord.Lon, -0.833, false)
	return rise, set
}

// toJulianDay converts a date to Julian day number
func toJulianDay(year int, month time.Month, day int) float64 {
	y := float64(year)
	m := float64(month)
	d := float64(day)

	if m <= 2 {
		y--
		m += 12
	}

	a := math.Floor(y / 100)
	b := 2 - a + math.Floor(a/4)

	return math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + b - 1524.5
}

// sunTime calculates sunrise or sunset; ok is false when the sun stays
// above or below the given angle all day.
func sunTime(jd, lat, lon, angle float64, rising bool) (time.Time, bool) {
	// Approximate solar noon
	n := jd - 2451545.0 + 0.0008
	jStar := n - lon/360.0

	// Solar mean anomaly
	m := math.Mod(357.5291+0.98560028*jStar, 360.0)
	mRad := m * math.Pi / 180.0

	// Equation of center
	c := 1.9148*math.Sin(mRad) + 0.02*math.Sin(2*mRad) + 0.0003*math.Sin(3*mRad)

	// Ecliptic longitude
	lambda := math.Mod(m+c+180+102.9372, 360.0)
	lambdaRad := lambda * math.Pi / 180.0

	// Solar transit
	jTransit := 2451545.0 + jStar + 0.0053*math.Sin(mRad) - 0.0069*math.Sin(2*lambdaRad)

	// Declination of the sun
	sinDec := math.Sin(lambdaRad) * math.Sin(23.44*math.Pi/180.0)
	dec := math.Asin(sinDec)

	// Hour angle
	latRad := lat * math.Pi / 180.0
	angleRad := angle * math.Pi / 180.0

	cosOmega := (math.Sin(angleRad) - math.Sin(latRad)*math.Sin(dec)) / (math.Cos(latRad) * math.Cos(dec))
	if cosOmega > 1 || cosOmega < -1 || math.IsNaN(cosOmega) {
		return time.Time{}, false
	}

	omega := math.Acos(cosOmega) * 180.0 / math.Pi

	var jTime float64
	if rising {
		jTime = jTransit - omega/360.0
	} else {
		jTime = jTransit + omega/360.0
	}

	return julianToTime(jTime), true
}

// julianToTime converts Julian day to a UTC time.Time
func julianToTime(jd float64) time.Time {
	unixTime := (jd - 2440587.5) * 86400.0
	sec := math.Floor(unixTime)
	return time.Unix(int64(sec), int64((unixTime-sec)*1e9)).UTC()
}
