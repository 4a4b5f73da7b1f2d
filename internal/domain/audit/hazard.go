package audit

import "strings"

// Hazard is the disaster category an audit is scored against.
type Hazard string

const (
	HazardEarthquake Hazard = "earthquake"
	HazardWildfire   Hazard = "wildfire"
	HazardFlood      Hazard = "flood"
	HazardWind       Hazard = "wind"

	// HazardGeneral tags catalog entries that apply to every hazard.
	// It is never a valid primary hazard.
	HazardGeneral Hazard = "general"

	// DefaultHazard is what the assessment engine falls back to when a
	// stored audit carries a hazard it does not recognize.
	DefaultHazard = HazardEarthquake
)

// Hazards lists the recognized primary hazards in display order.
var Hazards = []Hazard{HazardEarthquake, HazardWildfire, HazardFlood, HazardWind}

var hazardAliases = map[string]Hazard{
	"earthquake":     HazardEarthquake,
	"earthquakes":    HazardEarthquake,
	"quake":          HazardEarthquake,
	"seismic":        HazardEarthquake,
	"wildfire":       HazardWildfire,
	"wildfires":      HazardWildfire,
	"fire":           HazardWildfire,
	"flood":          HazardFlood,
	"floods":         HazardFlood,
	"flooding":       HazardFlood,
	"wind":           HazardWind,
	"hurricane":      HazardWind,
	"hurricanes":     HazardWind,
	"tornado":        HazardWind,
	"tornadoes":      HazardWind,
	"cyclone":        HazardWind,
	"typhoon":        HazardWind,
	"hurricane/wind": HazardWind,
}

// ParseHazard normalizes a user supplied hazard, resolving aliases.
// It returns ErrUnrecognizedHazard for anything it cannot map.
func ParseHazard(s string) (Hazard, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if h, ok := hazardAliases[key]; ok {
		return h, nil
	}
	return "", ErrUnrecognizedHazard
}

// Valid reports whether h is one of the four primary hazards.
func (h Hazard) Valid() bool {
	switch h {
	case HazardEarthquake, HazardWildfire, HazardFlood, HazardWind:
		return true
	}
	return false
}

// Label is the human readable name used in reports.
func (h Hazard) Label() string {
	switch h {
	case HazardEarthquake:
		return "Earthquake"
	case HazardWildfire:
		return "Wildfire"
	case HazardFlood:
		return "Flood"
	case HazardWind:
		return "Hurricane / Wind"
	case HazardGeneral:
		return "General preparedness"
	}
	return string(h)
}
