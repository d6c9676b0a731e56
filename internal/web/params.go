package web

import (
	"net/url"
	"strconv"
	"strings"
)

// intParam reads an integer query parameter. Leading digits are honored ("12px" is 12); a missing or
// non-numeric value yields def.
func intParam(q url.Values, key string, def int) int {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return def
	}
	end := 0
	if raw[0] == '-' || raw[0] == '+' {
		end = 1
	}
	start := end
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == start {
		return def
	}
	n, err := strconv.Atoi(raw[:end])
	if err != nil {
		return def
	}
	return n
}

// storedOrderParam is true unless useStoredOrder is present and not the literal "true".
func storedOrderParam(q url.Values) bool {
	if !q.Has("useStoredOrder") {
		return true
	}
	return q.Get("useStoredOrder") == "true"
}
