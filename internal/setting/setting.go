// Package setting converts normalized curve samples into device units.
package setting

import (
	"math"

	"github.com/dokzlo13/daylight/internal/curve"
)

// DefaultMaxBrightness is the top of the Hue brightness scale
const DefaultMaxBrightness = 254

// MiredRange is the color temperature range a device supports, in mired.
// Higher values are warmer.
type MiredRange struct {
	Min uint16 `json:"min"`
	Max uint16 `json:"max"`
}

// Capabilities describes what the target device can do
type Capabilities struct {
	// MaxBrightness is the device's native brightness maximum, 0 means DefaultMaxBrightness
	MaxBrightness uint8
	// ColorTemperature is nil when the device has no color temperature control
	ColorTemperature *MiredRange
}

// DeviceSetting is a state to send to the device
type DeviceSetting struct {
	Brightness       uint8   `json:"bri"`
	ColorTemperature *uint16 `json:"ct,omitempty"`
}

// Map converts a sample to device units. Color temperature is inverted:
// 0 (warmest) maps to the range's Max and 1 (coldest) to its Min. It is
// omitted when either the device or the sample lacks it.
func Map(sample curve.Sample, caps Capabilities) DeviceSetting {
	maxBri := caps.MaxBrightness
	if maxBri == 0 {
		maxBri = DefaultMaxBrightness
	}

	out := DeviceSetting{
		Brightness: uint8(math.Round(unit(sample.Brightness) * float64(maxBri))),
	}

	if r := caps.ColorTemperature; r != nil && sample.ColorTemperature != nil {
		lo, hi := r.Min, r.Max
		if lo > hi {
			lo, hi = hi, lo
		}
		span := float64(hi - lo)
		ct := uint16(math.Round((1-unit(*sample.ColorTemperature))*span)) + lo
		out.ColorTemperature = &ct
	}

	return out
}

func unit(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
