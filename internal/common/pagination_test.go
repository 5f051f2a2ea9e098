package common_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pizza/internal/common"
)

func TestParseWindow(t *testing.T) {
	cases := []struct {
		query string
		want  common.Window
	}{
		{"", common.Window{Limit: 20}},
		{"?limit=5&offset=10", common.Window{Limit: 5, Offset: 10}},
		{"?limit=500&offset=-1", common.Window{Limit: 20}},
		{"?limit=abc", common.Window{Limit: 20}},
		{"?limit=10&page=3", common.Window{Limit: 10, Offset: 20}},
		{"?limit=10&page=3&offset=4", common.Window{Limit: 10, Offset: 4}},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/orders"+tc.query, nil)
		require.Equal(t, tc.want, common.ParseWindow(req, 20, 100), tc.query)
	}
}

func TestClientIPStripsPort(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5123"
	require.Equal(t, "10.0.0.9", common.ClientIP(req))
	req.RemoteAddr = "10.0.0.9"
	require.Equal(t, "10.0.0.9", common.ClientIP(req))
	require.Equal(t, "", common.ClientIP(nil))
}
