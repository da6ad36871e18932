// Package telemetry runs the channels of a stick and collects readings
// from heart rate monitors and trainers.
package telemetry

import (
	"fmt"
	"strconv"
	"strings"
)

// None marks a missing reading in Telemetry.
const None = -1

// Telemetry is the current reading. Values come from different devices
// and might not be completely in sync.
type Telemetry struct {
	HeartRate float64 `json:"heart_rate"` // bpm
	Cadence   float64 `json:"cadence"`    // rpm
	Speed     float64 `json:"speed"`      // m/s
	Power     float64 `json:"power"`      // watts
}

// Empty returns Telemetry with all values missing.
func Empty() Telemetry {
	return Telemetry{HeartRate: None, Cadence: None, Speed: None, Power: None}
}

// String implements fmt.Stringer, omitting missing values.
func (t Telemetry) String() string {
	var parts []string
	add := func(name string, val float64) {
		if val >= 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", name, strconv.FormatFloat(val, 'f', -1, 64)))
		}
	}
	add("HR", t.HeartRate)
	add("CAD", t.Cadence)
	add("PWR", t.Power)
	add("SPD", t.Speed)
	return strings.Join(parts, ";")
}
