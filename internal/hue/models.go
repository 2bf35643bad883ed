package hue

import (
	"encoding/json"
	"fmt"
)

// LightState represents the current state of a Hue light (v1 API)
type LightState struct {
	On        bool   `json:"on"`
	Bri       uint8  `json:"bri"`
	Ct        uint16 `json:"ct,omitempty"`
	ColorMode string `json:"colormode,omitempty"`
	Reachable bool   `json:"reachable"`
}

// CTRange is a color temperature range in mired
type CTRange struct {
	Min uint16 `json:"min"`
	Max uint16 `json:"max"`
}

// Capabilities describes what a light supports (v1 API)
type Capabilities struct {
	Certified bool `json:"certified"`
	Control   struct {
		MinDimLevel int      `json:"mindimlevel,omitempty"`
		MaxLumen    int      `json:"maxlumen,omitempty"`
		CT          *CTRange `json:"ct,omitempty"`
	} `json:"control"`
}

// Light represents a Hue light (v1 API)
type Light struct {
	ID           string       `json:"-"`
	Name         string       `json:"name"`
	Type         string       `json:"type"`
	ModelID      string       `json:"modelid"`
	UniqueID     string       `json:"uniqueid,omitempty"`
	State        LightState   `json:"state"`
	Capabilities Capabilities `json:"capabilities"`
}

// SupportsColorTemperature reports whether the light has a color temperature range
func (l *Light) SupportsColorTemperature() bool {
	return l.Capabilities.Control.CT != nil
}

// LightStateUpdate is the body of a v1 light state PUT. Nil fields are left untouched.
type LightStateUpdate struct {
	On             *bool   `json:"on,omitempty"`
	Bri            *uint8  `json:"bri,omitempty"`
	Ct             *uint16 `json:"ct,omitempty"`
	TransitionTime *uint16 `json:"transitiontime,omitempty"` // multiples of 100ms
}

// APIError is an error item returned by the v1 API
type APIError struct {
	Type        int    `json:"type"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hue api error %d at %s: %s", e.Type, e.Address, e.Description)
}

// v1 error types worth telling apart
const (
	APIErrorUnauthorized     = 1
	APIErrorResourceNotFound = 3
	APIErrorLinkButton       = 101
)

// apiResponseItem is one element of a v1 array response
type apiResponseItem struct {
	Error   *APIError      `json:"error,omitempty"`
	Success map[string]any `json:"success,omitempty"`
}

// parseAPIError returns the first error item of a v1 array response, or nil
// when the body is not an error array.
func parseAPIError(body []byte) *APIError {
	var items []apiResponseItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil
	}
	for _, item := range items {
		if item.Error != nil {
			return item.Error
		}
	}
	return nil
}
