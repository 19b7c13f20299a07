package geo

import (
	"fmt"
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/jftuga/geodist"
)

// BoundingBox defines the corners of a lat/lon box
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains checks whether the given latitude and longitude are within the bounding box
func (b *BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Point is a plain latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// ComputeBoundingBox computes the bounding box of the given points.
func ComputeBoundingBox(points []Point) (BoundingBox, error) {
	if len(points) == 0 {
		return BoundingBox{}, fmt.Errorf("no points to compute bounding box")
	}

	box := BoundingBox{
		MinLat: math.MaxFloat64,
		MaxLat: -math.MaxFloat64,
		MinLon: math.MaxFloat64,
		MaxLon: -math.MaxFloat64,
	}
	for _, p := range points {
		box.MinLat = math.Min(box.MinLat, p.Lat)
		box.MaxLat = math.Max(box.MaxLat, p.Lat)
		box.MinLon = math.Min(box.MinLon, p.Lon)
		box.MaxLon = math.Max(box.MaxLon, p.Lon)
	}
	return box, nil
}

// Centroid returns the arithmetic mean of the points' latitudes and longitudes,
// which is what the map uses as its initial view center.
func Centroid(points []Point) (Point, error) {
	if len(points) == 0 {
		return Point{}, fmt.Errorf("no points to compute centroid")
	}
	var sumLat, sumLon float64
	for _, p := range points {
		sumLat += p.Lat
		sumLon += p.Lon
	}
	n := float64(len(points))
	return Point{Lat: sumLat / n, Lon: sumLon / n}, nil
}

// IsValidLatLon returns true if the given latitude and longitude values
// fall within the valid geographic coordinate bounds.
//
// Latitude must be between -90 and 90 degrees, and longitude must be
// between -180 and 180 degrees.
//
// Note: This function treats the coordinate (0,0) as invalid, even though it
// is a valid location in the Gulf of Guinea. Spreadsheets exported with empty
// coordinates commonly carry zeros instead.
func IsValidLatLon(lat, lon float64) bool {
	if lat == 0 && lon == 0 {
		return false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	return true
}

// earthRadiusInKm represents the mean radius of the Earth in kilometers.
//
// Reference: NASA Planetary Fact Sheet – Earth
// https://nssdc.gsfc.nasa.gov/planetary/factsheet/earthfact.html
const earthRadiusInKm = 6371.0

// GreatCircleDistanceKm returns the spherical distance between two points using s2.
func GreatCircleDistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * earthRadiusInKm
}

// GeodesicDistanceKm returns the distance in kilometers between two points on the
// WGS-84 ellipsoid (Vincenty inverse formula).
//
// Vincenty does not converge for nearly antipodal points; those fall back to the
// spherical distance, which is irrelevant at the 1 km scale the analyzer works at.
func GeodesicDistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	_, km, err := geodist.VincentyDistance(
		geodist.Coord{Lat: lat1, Lon: lon1},
		geodist.Coord{Lat: lat2, Lon: lon2},
	)
	if err != nil {
		return GreatCircleDistanceKm(lat1, lon1, lat2, lon2)
	}
	return km
}

// capPadding widens the spherical search cap so that the ellipsoidal distance, which can
// differ from the spherical one by up to ~0.7%, never falls outside it.
const capPadding = 1.02

// Prefilter is a conservative lat/lng rectangle around a point. Any point whose geodesic
// distance to the center is within the radius is inside the rectangle; points outside it
// can be skipped without computing the exact distance.
type Prefilter struct {
	rect     s2.Rect
	disabled bool
}

// NewPrefilter builds the bounding rectangle of a spherical cap of radiusKm around (lat, lon).
// An out-of-range center yields a prefilter that lets every point through.
func NewPrefilter(lat, lon, radiusKm float64) Prefilter {
	ll := s2.LatLngFromDegrees(lat, lon)
	if !ll.IsValid() {
		return Prefilter{disabled: true}
	}
	angle := s1.Angle(radiusKm * capPadding / earthRadiusInKm)
	return Prefilter{rect: s2.CapFromCenterAngle(s2.PointFromLatLng(ll), angle).RectBound()}
}

// MayContain reports whether (lat, lon) can be within the radius. Out-of-range input
// cannot be judged by the rectangle and always passes.
func (p Prefilter) MayContain(lat, lon float64) bool {
	if p.disabled {
		return true
	}
	ll := s2.LatLngFromDegrees(lat, lon)
	if !ll.IsValid() {
		return true
	}
	return p.rect.ContainsLatLng(ll)
}
