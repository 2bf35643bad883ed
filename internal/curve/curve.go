// Package curve maps a point in time within a day window to normalized
// brightness and color temperature values.
//
// All functions are pure. Instants are Unix epoch seconds; results are in
// [0, 1]. For color temperature 0 is the warmest and 1 the coldest light.
package curve

import (
	"math"
	"time"

	"github.com/dokzlo13/daylight/internal/daywindow"
)

// Params holds the curve constants
type Params struct {
	// SunriseTransition is how long color temperature takes to go from warmest to coldest
	SunriseTransition int64
	// SunsetTransition is how long color temperature takes to go back to warmest
	SunsetTransition int64
	// FadeTime is how long brightness fades in before and out after the window
	FadeTime int64
	// Baseline is the brightness at the window edges
	Baseline float64
}

// DefaultParams returns the standard curve: 1h sunrise, 2h sunset, 3h fade, 40% baseline
func DefaultParams() Params {
	return Params{
		SunriseTransition: 60 * 60,
		SunsetTransition:  2 * 60 * 60,
		FadeTime:          3 * 60 * 60,
		Baseline:          0.4,
	}
}

var defaultParams = DefaultParams()

// ColorTemperature evaluates the color temperature curve with default parameters
func ColorTemperature(sod, eod, now int64) float64 {
	return defaultParams.ColorTemperature(sod, eod, now)
}

// Brightness evaluates the brightness curve with default parameters
func Brightness(sod, eod, now int64) float64 {
	return defaultParams.Brightness(sod, eod, now)
}

// ColorTemperature is warmest outside [sod, eod], ramps linearly to coldest
// over SunriseTransition, holds, and ramps back over SunsetTransition.
func (p Params) ColorTemperature(sod, eod, now int64) float64 {
	rise := p.SunriseTransition
	set := p.SunsetTransition

	switch {
	case now < sod || now > eod:
		return 0
	case now > sod+rise && now < eod-set:
		return 1
	case now <= sod+rise:
		return clamp(ratio(now-sod, rise))
	default:
		return clamp(ratio(eod-now, set))
	}
}

// Brightness is off at night, fades in to Baseline over FadeTime before sod,
// rises with a cubic ease-out to 1 at midday, mirrors that in the afternoon
// and fades out over FadeTime after eod.
func (p Params) Brightness(sod, eod, now int64) float64 {
	fade := p.FadeTime
	baseline := p.Baseline
	halfday := float64(eod-sod) / 2
	midday := float64(sod) + halfday

	switch {
	case now < sod-fade || now > eod+fade:
		// Night
		return 0
	case now < sod:
		// Fade in
		return clamp((1 - ratio(sod-now, fade)) * baseline)
	case now > eod:
		// Fade out
		return clamp((1 - ratio(now-eod, fade)) * baseline)
	case halfday <= 0:
		return clamp(baseline)
	case float64(now) <= midday:
		// Morning
		return clamp(ease(float64(now-sod)/halfday)*(1-baseline) + baseline)
	default:
		// Afternoon
		return clamp(ease(float64(eod-now)/halfday)*(1-baseline) + baseline)
	}
}

// Sample is one evaluation of both curves. ColorTemperature is nil when the
// target device cannot change color temperature.
type Sample struct {
	Brightness       float64  `json:"brightness"`
	ColorTemperature *float64 `json:"color_temperature,omitempty"`
}

// Evaluate samples both curves at now using default parameters
func Evaluate(w daywindow.Window, now time.Time, withColorTemperature bool) Sample {
	return defaultParams.Evaluate(w, now, withColorTemperature)
}

// Evaluate samples both curves at now
func (p Params) Evaluate(w daywindow.Window, now time.Time, withColorTemperature bool) Sample {
	sod, eod, ts := w.Start.Unix(), w.End.Unix(), now.Unix()

	s := Sample{Brightness: p.Brightness(sod, eod, ts)}
	if withColorTemperature {
		ct := p.ColorTemperature(sod, eod, ts)
		s.ColorTemperature = &ct
	}
	return s
}

// ease is a cubic ease-out: fast at first, levelling off towards 1
func ease(x float64) float64 {
	return 1 - math.Pow(1-x, 3)
}

func ratio(n, d int64) float64 {
	if d <= 0 {
		return 1
	}
	return float64(n) / float64(d)
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
