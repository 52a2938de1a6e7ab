package ratelimit

import (
	"net/http"
	"strings"
)

// unlimited is returned for probes that must never be throttled.
var unlimited = EndpointConfig{}

// MatchEndpoint returns the configuration governing a request, or nil when only
// the default applies. An exact path wins; otherwise the longest configured
// prefix ending in "/" wins (e.g. "/analyze/" covers "/analyze/stock/stream").
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if path == "/health" && method == http.MethodGet {
		cfg := unlimited
		return &cfg
	}

	var best *EndpointConfig
	for i := range configs {
		c := &configs[i]
		if c.Method != method {
			continue
		}
		if c.Path == path {
			return c
		}
		if strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) {
			if best == nil || len(c.Path) > len(best.Path) {
				best = c
			}
		}
	}
	return best
}
