package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/agastya-health/clinic-admin/internal/application/services"
	"github.com/agastya-health/clinic-admin/internal/domain/providers"
	"github.com/agastya-health/clinic-admin/internal/infrastructure/observability"
)

// CacheConfig holds cache configuration for specific routes
type CacheConfig struct {
	TTLSeconds int
	Enabled    bool
	// Group names the metric series and picks the key prefix
	Group string
	// KeyPrefix returns the invalidation prefix for a request; false skips caching
	KeyPrefix func(r *http.Request) (string, bool)
}

// CacheMiddleware provides HTTP response caching
type CacheMiddleware struct {
	cache        providers.CacheProvider
	metrics      *observability.Metrics
	routeConfigs map[string]CacheConfig
}

// NewCacheMiddleware creates a new cache middleware. Only blog reads are cached;
// appointment and availability reads always go to the database.
func NewCacheMiddleware(cache providers.CacheProvider, metrics *observability.Metrics) *CacheMiddleware {
	return &CacheMiddleware{
		cache:   cache,
		metrics: metrics,
		routeConfigs: map[string]CacheConfig{
			"/api/blogs":        {TTLSeconds: 300, Enabled: true, Group: "blogs", KeyPrefix: blogsKeyPrefix},
			"/api/blogs/search": {TTLSeconds: 120, Enabled: true, Group: "blogs", KeyPrefix: blogsKeyPrefix},
		},
	}
}

func blogsKeyPrefix(*http.Request) (string, bool) {
	return services.BlogCachePrefix, true
}

// Middleware returns the cache middleware handler
func (m *CacheMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || m.cache == nil {
			next.ServeHTTP(w, r)
			return
		}

		config, ok := m.routeConfigs[r.URL.Path]
		if !ok || !config.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		prefix, ok := config.KeyPrefix(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		cacheKey := prefix + hashRequest(r)

		cached, err := m.cache.Get(r.Context(), cacheKey)
		if err == nil {
			observability.RecordCacheHit(r.Context(), m.metrics, config.Group)
			w.Header().Set("X-Cache", "HIT")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(cached)
			return
		}
		if !errors.Is(err, providers.ErrCacheMiss) {
			log.Warn().Err(err).Str("key", cacheKey).Msg("Cache read failed")
		}

		observability.RecordCacheMiss(r.Context(), m.metrics, config.Group)
		w.Header().Set("X-Cache", "MISS")

		recorder := &responseRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			body:           &bytes.Buffer{},
		}
		next.ServeHTTP(recorder, r)

		if recorder.statusCode == http.StatusOK && recorder.body.Len() > 0 {
			if err := m.cache.Set(r.Context(), cacheKey, recorder.body.Bytes(), config.TTLSeconds); err != nil {
				log.Warn().Err(err).Str("key", cacheKey).Msg("Failed to cache response")
			}
		}
	})
}

// hashRequest hashes the path and the normalized query
func hashRequest(r *http.Request) string {
	key := r.URL.Path
	if query := r.URL.Query(); len(query) > 0 {
		// Encode sorts by key.
		key += "?" + query.Encode()
	}
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// responseRecorder captures the response for caching
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
	written    bool
}

// WriteHeader captures the status code
func (r *responseRecorder) WriteHeader(statusCode int) {
	if !r.written {
		r.statusCode = statusCode
		r.ResponseWriter.WriteHeader(statusCode)
		r.written = true
	}
}

// Write captures the response body and writes to the client
func (r *responseRecorder) Write(data []byte) (int, error) {
	if !r.written {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(data)
	return r.ResponseWriter.Write(data)
}
