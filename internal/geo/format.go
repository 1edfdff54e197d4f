package geo

import (
	"fmt"
	"math"
)

const (
	// UnknownText is shown wherever a location-derived value cannot be computed.
	UnknownText      = "Unknown"
	minutesPerKm     = 3.0
	mapsDirectionURL = "https://www.google.com/maps/dir/"
)

// FormatDistance renders a distance for display: metres below 1 km, one
// decimal below 10 km, whole kilometres above.
func FormatDistance(km *float64) string {
	if km == nil {
		return UnknownText
	}
	d := *km
	switch {
	case d < 1:
		return fmt.Sprintf("%dm", int(math.Round(d*1000)))
	case d < 10:
		return fmt.Sprintf("%.1fkm", d)
	default:
		return fmt.Sprintf("%dkm", int(math.Round(d)))
	}
}

// EstimateTravelTime is the linear urban-driving approximation used when no
// routing result is available. Advisory only.
func EstimateTravelTime(km float64) string {
	return fmt.Sprintf("~%d mins", int(math.Round(km*minutesPerKm)))
}

// DirectionsURL links to driving directions between two known points.
func DirectionsURL(from, to Location) string {
	if !from.Known || !to.Known {
		return ""
	}
	return fmt.Sprintf("%s%s/%s", mapsDirectionURL, coordString(from), coordString(to))
}

func coordString(l Location) string {
	return fmt.Sprintf("%g,%g", l.Lat, l.Lng)
}

func fallbackName(l Location) string {
	return fmt.Sprintf("%.4f, %.4f", l.Lat, l.Lng)
}
