package valueobjects

import (
	"fmt"
	"math"

	"github.com/wayfarer-app/wayfarer-backend/errors"
)

// GeoPoint represents a validated geographic coordinate pair.
type GeoPoint struct {
	latitude  float64
	longitude float64
}

// NewGeoPoint creates a GeoPoint, rejecting out-of-range coordinates.
func NewGeoPoint(lat, lng float64) (*GeoPoint, error) {
	if err := validateCoordinates(lat, lng); err != nil {
		return nil, err
	}
	return &GeoPoint{latitude: lat, longitude: lng}, nil
}

func (g GeoPoint) Latitude() float64 {
	return g.latitude
}

func (g GeoPoint) Longitude() float64 {
	return g.longitude
}

// DistanceTo calculates the distance to another point in meters using the
// Haversine formula.
func (g GeoPoint) DistanceTo(other GeoPoint) float64 {
	const earthRadius = 6371000 // meters

	lat1 := degreesToRadians(g.latitude)
	lng1 := degreesToRadians(g.longitude)
	lat2 := degreesToRadians(other.latitude)
	lng2 := degreesToRadians(other.longitude)

	dlat := lat2 - lat1
	dlng := lng2 - lng1

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dlng/2)*math.Sin(dlng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

func (g GeoPoint) String() string {
	return fmt.Sprintf("(%f, %f)", g.latitude, g.longitude)
}

// ValidateCoordinates checks a raw latitude/longitude pair without building
// a GeoPoint, for callers validating payload fields in place.
func ValidateCoordinates(lat, lng float64) error {
	return validateCoordinates(lat, lng)
}

func validateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return errors.ValidationFailed(
			"invalid latitude",
			fmt.Sprintf("latitude %f is outside valid range [-90, 90]", lat),
		)
	}
	if lng < -180 || lng > 180 {
		return errors.ValidationFailed(
			"invalid longitude",
			fmt.Sprintf("longitude %f is outside valid range [-180, 180]", lng),
		)
	}
	return nil
}

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
