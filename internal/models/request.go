package models

import (
	"context"
	"net/url"
)

type SiteKey struct{}

// RequestScope is what a handler knows about the caller: its claims, the
// site resolved from the request host, and the request URL for paging links.
type RequestScope struct {
	Claims UserClaims
	Site   Site
	URL    *url.URL
	ctx    context.Context
}

func NewRequestScope(ctx context.Context, claims UserClaims, site Site, u *url.URL) RequestScope {
	return RequestScope{Claims: claims, Site: site, URL: u, ctx: ctx}
}

// Context is the request context, or a background context outside a request.
func (s RequestScope) Context() context.Context {
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}
