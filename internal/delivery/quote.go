package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pizza/internal/money"
	"github.com/noah-isme/backend-pizza/internal/obs"
)

// ErrOutsideRadius is returned when the destination is farther than the
// store delivers.
var ErrOutsideRadius = errors.New("delivery: address outside delivery radius")

// Quote is a priced delivery to a resolved address.
type Quote struct {
	Address    Address     `json:"address"`
	DistanceKm float64     `json:"distanceKm"`
	Fee        money.Money `json:"fee"`
}

// Quoter resolves addresses and prices deliveries from the store.
type Quoter struct {
	schedule Schedule
	geocoder Geocoder
	logger   zerolog.Logger
}

// NewQuoter constructs a Quoter. geocoder may be nil when every address is
// expected to carry coordinates.
func NewQuoter(schedule Schedule, geocoder Geocoder, logger zerolog.Logger) *Quoter {
	return &Quoter{schedule: schedule, geocoder: geocoder, logger: logger}
}

// Schedule returns the delivery parameters in use.
func (q *Quoter) Schedule() Schedule { return q.schedule }

// Quote resolves addr when it has no coordinates, checks the radius and
// computes the fee. No fee is produced on failure.
func (q *Quoter) Quote(ctx context.Context, addr Address) (Quote, error) {
	loc, ok := addr.Location()
	if !ok {
		if q.geocoder == nil {
			obs.ObserveDeliveryQuote("unresolved")
			return Quote{}, ErrUnresolvedAddress
		}
		resolved, err := q.geocoder.Geocode(ctx, addr)
		if err != nil {
			obs.ObserveDeliveryQuote("unresolved")
			q.logger.Warn().Err(err).Str("address", addr.String()).Msg("delivery_geocode_failed")
			if !errors.Is(err, ErrUnresolvedAddress) {
				err = fmt.Errorf("%w: %v", ErrUnresolvedAddress, err)
			}
			return Quote{}, err
		}
		loc = resolved
		addr = addr.WithLocation(loc)
	}

	distance := Distance(q.schedule.Origin, loc)
	if distance > q.schedule.RadiusKm {
		obs.ObserveDeliveryQuote("outside_radius")
		return Quote{}, fmt.Errorf("%w: %.2f km > %.2f km", ErrOutsideRadius, distance, q.schedule.RadiusKm)
	}
	obs.ObserveDeliveryQuote("ok")
	return Quote{Address: addr, DistanceKm: distance, Fee: q.schedule.Fee(distance)}, nil
}
