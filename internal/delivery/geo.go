package delivery

import (
	"math"
	"strings"

	"github.com/noah-isme/backend-pizza/internal/money"
)

const earthRadiusKm = 6371

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Address is a delivery address. Coordinates are set once the address has
// been resolved.
type Address struct {
	ID        string   `json:"id,omitempty"`
	Street    string   `json:"street" validate:"required"`
	City      string   `json:"city" validate:"required"`
	State     string   `json:"state"`
	ZipCode   string   `json:"zipCode"`
	Country   string   `json:"country" validate:"required"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	IsDefault bool     `json:"isDefault,omitempty"`
}

// Location returns the resolved coordinates, if any.
func (a Address) Location() (Location, bool) {
	if a.Latitude == nil || a.Longitude == nil {
		return Location{}, false
	}
	return Location{Lat: *a.Latitude, Lng: *a.Longitude}, true
}

// WithLocation returns a copy of a carrying loc.
func (a Address) WithLocation(loc Location) Address {
	lat, lng := loc.Lat, loc.Lng
	a.Latitude = &lat
	a.Longitude = &lng
	return a
}

// String renders the address as a single geocodable line.
func (a Address) String() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Street, a.City, a.State, a.ZipCode, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Distance returns the great-circle distance in km between a and b, rounded
// to two decimals.
func Distance(a, b Location) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return math.Round(earthRadiusKm*c*100) / 100
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

// Fee returns round2(base + distanceKm × perKm). distanceKm must not be
// negative.
func Fee(distanceKm float64, base, perKm money.Money) money.Money {
	return money.Round2(base.Add(money.FromFloat(distanceKm).Mul(perKm)))
}

// Schedule holds the store's delivery parameters.
type Schedule struct {
	Origin   Location
	RadiusKm float64
	BaseFee  money.Money
	PerKmFee money.Money
}

// WithinRadius reports whether dest is inside the delivery radius.
func (s Schedule) WithinRadius(dest Location) bool {
	return Distance(s.Origin, dest) <= s.RadiusKm
}

// Fee prices a delivery of distanceKm with the schedule's parameters.
func (s Schedule) Fee(distanceKm float64) money.Money {
	return Fee(distanceKm, s.BaseFee, s.PerKmFee)
}
