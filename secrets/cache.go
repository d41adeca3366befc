package secrets

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/echefulouis/DeepFake/interfaces"
)

// CachingProvider keeps the last credential returned by an upstream provider
// for a fixed TTL. A failed fetch clears the entry and Invalidate forces the
// next call to refetch.
type CachingProvider struct {
	upstream interfaces.CredentialProvider
	ttl      time.Duration
	now      func() time.Time
	log      *slog.Logger

	mu        sync.Mutex
	value     string
	expiresAt time.Time
}

// NewCachingProvider wraps upstream. A non-positive ttl returns upstream unchanged.
func NewCachingProvider(upstream interfaces.CredentialProvider, ttl time.Duration, log *slog.Logger) interfaces.CredentialProvider {
	if ttl <= 0 {
		return upstream
	}
	if log == nil {
		log = slog.Default()
	}
	return &CachingProvider{
		upstream: upstream,
		ttl:      ttl,
		now:      time.Now,
		log:      log,
	}
}

// Credential returns the cached value while it is fresh and fetches otherwise.
// Concurrent callers wait for a single in-flight fetch.
func (c *CachingProvider) Credential(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.value != "" && c.now().Before(c.expiresAt) {
		return c.value, nil
	}

	value, err := c.upstream.Credential(ctx)
	if err != nil {
		c.value = ""
		c.expiresAt = time.Time{}
		return "", err
	}

	c.value = value
	c.expiresAt = c.now().Add(c.ttl)
	c.log.Debug("Cached credential", slog.String("provider", c.upstream.Name()), slog.Duration("ttl", c.ttl))
	return value, nil
}

// Invalidate drops the cached credential.
func (c *CachingProvider) Invalidate() {
	c.mu.Lock()
	c.value = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()

	c.upstream.Invalidate()
}

// Name returns the upstream name with a cache marker.
func (c *CachingProvider) Name() string {
	return "cached-" + c.upstream.Name()
}
