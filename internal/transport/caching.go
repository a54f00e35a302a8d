package transport

import (
	"net/http"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"github.com/rs/zerolog"

	"github.com/visionhq/vision-desktop/internal/logger"
)

// NewCachingHTTPClient creates an HTTP client with cache-aware transport for
// the direct backend. Cacheable GETs (resource covers, avatars, external
// project metadata) are served from disk between runs; with an empty
// cacheDir the cache lives in memory only.
func NewCachingHTTPClient(cacheDir string, log zerolog.Logger) *http.Client {
	var cache httpcache.Cache
	if cacheDir == "" {
		cache = httpcache.NewMemoryCache()
	} else {
		cache = diskcache.New(cacheDir)
	}

	transport := httpcache.NewTransport(cache)

	return &http.Client{
		Transport: logger.NewHTTPRequests(log, transport),
	}
}
