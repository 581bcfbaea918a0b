package helpers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// ParsePathParams returns the {id0}, {id1}, ... route parameters in order,
// path-unescaped.
func ParsePathParams(r *http.Request) ([]string, error) {
	var params []string
	for i := 0; ; i++ {
		raw := chi.URLParam(r, fmt.Sprintf("id%d", i))
		if raw == "" {
			return params, nil
		}
		value, err := url.PathUnescape(raw)
		if err != nil {
			return nil, err
		}
		params = append(params, value)
	}
}

// ParseUintParam parses a numeric path parameter such as a user id.
func ParseUintParam(value string) (uint, bool) {
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, false
	}
	return uint(parsed), true
}

// CourseIDParam restores the '+' separators of a course key path parameter
// that a client sent form-encoded as spaces.
func CourseIDParam(value string) string {
	return strings.ReplaceAll(value, " ", "+")
}
