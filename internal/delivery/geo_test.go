package delivery_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pizza/internal/delivery"
	"github.com/noah-isme/backend-pizza/internal/money"
)

var store = delivery.Location{Lat: 4.6097, Lng: -74.0817}

func TestFee(t *testing.T) {
	fee := delivery.Fee(5, money.MustParse("2"), money.MustParse("0.5"))
	require.Equal(t, "4.50", money.Format(fee))

	fee = delivery.Fee(0, money.MustParse("2"), money.MustParse("0.5"))
	require.Equal(t, "2.00", money.Format(fee))

	// 2 + 0.95*0.5 = 2.475 rounds half-up
	fee = delivery.Fee(0.95, money.MustParse("2"), money.MustParse("0.5"))
	require.Equal(t, "2.48", money.Format(fee))
}

func TestDistance(t *testing.T) {
	require.Zero(t, delivery.Distance(store, store))

	d := delivery.Distance(store, delivery.Location{Lat: 4.6150, Lng: -74.0750})
	require.InDelta(t, 0.95, d, 0.01)

	back := delivery.Distance(delivery.Location{Lat: 4.6150, Lng: -74.0750}, store)
	require.Equal(t, d, back)
}

func TestWithinRadius(t *testing.T) {
	s := delivery.Schedule{Origin: store, RadiusKm: 10}
	require.True(t, s.WithinRadius(delivery.Location{Lat: 4.6150, Lng: -74.0750}))
	require.False(t, s.WithinRadius(delivery.Location{Lat: 4.7110, Lng: -74.0721}))
}

func TestAddressString(t *testing.T) {
	addr := delivery.Address{Street: "Cra 7 # 12-34", City: "Bogotá", Country: "Colombia"}
	require.Equal(t, "Cra 7 # 12-34, Bogotá, Colombia", addr.String())

	_, ok := addr.Location()
	require.False(t, ok)

	loc, ok := addr.WithLocation(store).Location()
	require.True(t, ok)
	require.Equal(t, store, loc)
}
