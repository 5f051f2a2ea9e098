package order

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPaid, StatusPreparing, true},
		{StatusPreparing, StatusReady, true},
		{StatusReady, StatusInDelivery, true},
		{StatusInDelivery, StatusDelivered, true},
		{StatusPaid, StatusReady, true},
		{StatusPending, StatusCancelled, true},
		{StatusInDelivery, StatusCancelled, true},
		{StatusPaid, StatusPending, false},
		{StatusReady, StatusReady, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPaid, false},
		{StatusPending, Status("shipped"), false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			err := Transition(tc.from, tc.to)
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	require.True(t, StatusDelivered.Terminal())
	require.True(t, StatusCancelled.Terminal())
	require.False(t, StatusReady.Terminal())
	require.True(t, StatusCancelled.Valid())
	require.False(t, Status("").Valid())
}
