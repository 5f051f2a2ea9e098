package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/noah-isme/backend-pizza/internal/resilience"
)

// ErrUnresolvedAddress is returned when an address cannot be turned into
// coordinates.
var ErrUnresolvedAddress = errors.New("delivery: could not resolve address")

// Geocoder resolves addresses to coordinates and back.
type Geocoder interface {
	Geocode(ctx context.Context, addr Address) (Location, error)
	ReverseGeocode(ctx context.Context, loc Location) (Address, error)
}

// HTTPGeocoder talks to a geocoding endpoint that speaks the Google Geocoding
// JSON format.
type HTTPGeocoder struct {
	Client  resilience.HTTPClient
	BaseURL string
	APIKey  string
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location Location `json:"location"`
		} `json:"geometry"`
		Components []struct {
			LongName string   `json:"long_name"`
			Types    []string `json:"types"`
		} `json:"address_components"`
	} `json:"results"`
}

// Geocode resolves addr. Any transport failure or empty result is reported as
// ErrUnresolvedAddress wrapping the cause.
func (g HTTPGeocoder) Geocode(ctx context.Context, addr Address) (Location, error) {
	q := url.Values{}
	q.Set("address", addr.String())
	res, err := g.call(ctx, q)
	if err != nil {
		return Location{}, err
	}
	return res.Results[0].Geometry.Location, nil
}

// ReverseGeocode resolves loc to a postal address.
func (g HTTPGeocoder) ReverseGeocode(ctx context.Context, loc Location) (Address, error) {
	q := url.Values{}
	q.Set("latlng", strconv.FormatFloat(loc.Lat, 'f', -1, 64)+","+strconv.FormatFloat(loc.Lng, 'f', -1, 64))
	res, err := g.call(ctx, q)
	if err != nil {
		return Address{}, err
	}
	var addr Address
	var street []string
	for _, c := range res.Results[0].Components {
		for _, typ := range c.Types {
			switch typ {
			case "street_number", "route":
				street = append(street, c.LongName)
			case "locality":
				addr.City = c.LongName
			case "administrative_area_level_1":
				addr.State = c.LongName
			case "postal_code":
				addr.ZipCode = c.LongName
			case "country":
				addr.Country = c.LongName
			}
		}
	}
	addr.Street = strings.Join(street, " ")
	return addr.WithLocation(loc), nil
}

func (g HTTPGeocoder) call(ctx context.Context, q url.Values) (geocodeResponse, error) {
	var out geocodeResponse
	if g.APIKey != "" {
		q.Set("key", g.APIKey)
	}
	endpoint := g.BaseURL
	if strings.Contains(endpoint, "?") {
		endpoint += "&" + q.Encode()
	} else {
		endpoint += "?" + q.Encode()
	}
	if err := g.Client.GetJSON(ctx, endpoint, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrUnresolvedAddress, err)
	}
	if out.Status != "OK" || len(out.Results) == 0 {
		return out, fmt.Errorf("%w: status %s", ErrUnresolvedAddress, out.Status)
	}
	return out, nil
}
