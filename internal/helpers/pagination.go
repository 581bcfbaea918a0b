package helpers

import (
	"net/url"
	"strconv"

	"figures/internal/configuration"
	"figures/internal/models"
)

// PageBounds applies the default and maximum page size.
func PageBounds(params models.PageQueryParams) (limit int, offset int) {
	limit = params.Limit
	if limit <= 0 {
		limit = configuration.DefaultPageLimit
	}
	if limit > configuration.MaxPageLimit {
		limit = configuration.MaxPageLimit
	}
	offset = params.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// NewPage wraps results in the list envelope. Next and previous links keep
// every other query parameter of the request.
func NewPage[T any](requestURL *url.URL, count int64, limit int, offset int, results []T) models.Page[T] {
	if results == nil {
		results = []T{}
	}
	page := models.Page[T]{Count: count, Results: results}
	if requestURL == nil {
		return page
	}

	if int64(offset+limit) < count {
		next := pageURL(requestURL, limit, offset+limit)
		page.Next = &next
	}
	if offset > 0 {
		previous := offset - limit
		if previous < 0 {
			previous = 0
		}
		prev := pageURL(requestURL, limit, previous)
		page.Previous = &prev
	}
	return page
}

func pageURL(requestURL *url.URL, limit int, offset int) string {
	u := *requestURL
	query := u.Query()
	query.Set("limit", strconv.Itoa(limit))
	if offset == 0 {
		query.Del("offset")
	} else {
		query.Set("offset", strconv.Itoa(offset))
	}
	u.RawQuery = query.Encode()
	return u.String()
}
