package geo

import "math"

const earthRadiusKm = 6371.0

// Location is a coordinate pair that may be unknown. An unknown location never
// carries a substitute coordinate.
type Location struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Known bool    `json:"known"`
}

// Unknown is the zero Location.
var Unknown = Location{}

func At(lat, lng float64) Location {
	l := Location{Lat: lat, Lng: lng, Known: true}
	if !l.inRange() {
		return Unknown
	}
	return l
}

// FromPtr builds a Location from nullable columns or request fields.
func FromPtr(lat, lng *float64) Location {
	if lat == nil || lng == nil {
		return Unknown
	}
	return At(*lat, *lng)
}

// Ptr returns the coordinates as nullable values for storage.
func (l Location) Ptr() (*float64, *float64) {
	if !l.Known {
		return nil, nil
	}
	lat, lng := l.Lat, l.Lng
	return &lat, &lng
}

func (l Location) inRange() bool {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lng) {
		return false
	}
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// DistanceKm returns the great-circle distance between two points. ok is false
// when either point is unknown.
func DistanceKm(from, to Location) (km float64, ok bool) {
	if !from.Known || !to.Known {
		return 0, false
	}
	return haversineKm(from.Lat, from.Lng, to.Lat, to.Lng), true
}

// DistancePtr is DistanceKm for nullable storage: nil when unknown.
func DistancePtr(from, to Location) *float64 {
	km, ok := DistanceKm(from, to)
	if !ok {
		return nil
	}
	return &km
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}
