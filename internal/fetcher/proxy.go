package fetcher

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
)

// proxyPool picks a proxy uniformly at random for every request.
type proxyPool struct {
	urls []*url.URL
}

func newProxyPool(raw []string) (*proxyPool, error) {
	pool := &proxyPool{}
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}

		u, err := url.Parse(normalizeProxy(r))
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", r, err)
		}
		pool.urls = append(pool.urls, u)
	}

	return pool, nil
}

// normalizeProxy adds the http scheme to bare host:port entries.
func normalizeProxy(p string) string {
	if strings.Contains(p, "://") {
		return p
	}

	return "http://" + p
}

func (p *proxyPool) empty() bool {
	return p == nil || len(p.urls) == 0
}

// pick returns nil when the pool is empty, meaning a direct connection.
func (p *proxyPool) pick() *url.URL {
	if p.empty() {
		return nil
	}

	return p.urls[rand.IntN(len(p.urls))] //nolint:gosec // load spreading, not security
}

// Proxy satisfies http.Transport.Proxy.
func (p *proxyPool) Proxy(_ *http.Request) (*url.URL, error) {
	return p.pick(), nil
}
