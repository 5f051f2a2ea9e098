package common

import (
	"net/http"
	"strconv"
)

// Window is a limit/offset slice of a listing.
type Window struct {
	Limit  int
	Offset int
}

// Pagination is returned next to listings.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// QueryInt reads an integer query parameter. Missing or malformed values
// yield fallback.
func QueryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// ParseWindow reads limit and offset from the query. A limit outside
// 1..max falls back to def. Clients may send page instead of offset.
func ParseWindow(r *http.Request, def, max int) Window {
	limit := QueryInt(r, "limit", def)
	if limit <= 0 || limit > max {
		limit = def
	}
	offset := QueryInt(r, "offset", 0)
	if page := QueryInt(r, "page", 0); page > 1 && r.URL.Query().Get("offset") == "" {
		offset = (page - 1) * limit
	}
	if offset < 0 {
		offset = 0
	}
	return Window{Limit: limit, Offset: offset}
}
