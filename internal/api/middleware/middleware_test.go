package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agastya-health/clinic-admin/internal/api/middleware"
	"github.com/agastya-health/clinic-admin/internal/domain/providers"
)

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	return v, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *memoryCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
	return nil
}

func (c *memoryCache) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.items))
	for k := range c.items {
		out = append(out, k)
	}
	return out
}

func countingHandler(calls *int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	})
}

func TestCacheMiddleware_MissThenHit(t *testing.T) {
	cache := newMemoryCache()
	calls := 0
	handler := middleware.NewCacheMiddleware(cache, nil).Middleware(countingHandler(&calls, `{"success":true,"data":[]}`))

	url := "/api/blogs/search?q=diabetes"

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, url, nil))
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, url, nil))
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"success":true,"data":[]}`, second.Body.String())

	assert.Equal(t, 1, calls)
	keys := cache.keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "http:cache:blogs:"))
}

func TestCacheMiddleware_QueryOrderSharesEntry(t *testing.T) {
	cache := newMemoryCache()
	calls := 0
	handler := middleware.NewCacheMiddleware(cache, nil).Middleware(countingHandler(&calls, `{}`))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/blogs?category=a&authorName=b", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/blogs?authorName=b&category=a", nil))

	assert.Equal(t, 1, calls)
}

func TestCacheMiddleware_Bypass(t *testing.T) {
	tests := []struct {
		name   string
		method string
		url    string
	}{
		{"write request", http.MethodPost, "/api/blogs"},
		{"uncached route", http.MethodGet, "/api/appointments"},
		{"availability", http.MethodGet, "/api/appointments/availableSlots?doctorID=7&date=2024-05-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newMemoryCache()
			calls := 0
			handler := middleware.NewCacheMiddleware(cache, nil).Middleware(countingHandler(&calls, `{}`))

			for i := 0; i < 2; i++ {
				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.url, nil))
				assert.Empty(t, rec.Header().Get("X-Cache"))
			}
			assert.Equal(t, 2, calls)
			assert.Empty(t, cache.keys())
		})
	}
}

func TestCacheMiddleware_ErrorsNotCached(t *testing.T) {
	cache := newMemoryCache()
	handler := middleware.NewCacheMiddleware(cache, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":"No blogs found"}`))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/blogs?category=cardiology", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, cache.keys())
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("listed origin is echoed", func(t *testing.T) {
		handler := middleware.CORSMiddleware([]string{"https://admin.example.com", " https://clinic.example.com"})(next)
		req := httptest.NewRequest(http.MethodGet, "/api/appointments", nil)
		req.Header.Set("Origin", "https://clinic.example.com")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.Equal(t, "https://clinic.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	})

	t.Run("unknown origin gets no allow header", func(t *testing.T) {
		handler := middleware.CORSMiddleware([]string{"https://admin.example.com"})(next)
		req := httptest.NewRequest(http.MethodGet, "/api/appointments", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("empty list allows any origin", func(t *testing.T) {
		handler := middleware.CORSMiddleware(nil)(next)
		req := httptest.NewRequest(http.MethodGet, "/api/blogs", nil)
		req.Header.Set("Origin", "https://anywhere.example.com")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		handler := middleware.CORSMiddleware(nil)(next)
		req := httptest.NewRequest(http.MethodOptions, "/api/appointments", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
	})
}

func TestResponseOptimization_SkipsStreams(t *testing.T) {
	handler := middleware.ResponseOptimization(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.3"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/appointments/5/slip", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Empty(t, rec.Header().Get("ETag"))
	assert.Equal(t, "%PDF-1.3", rec.Body.String())
}

func TestResponseOptimization_ETag(t *testing.T) {
	handler := middleware.ResponseOptimization(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"count":0,"appointments":[]}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/appointments", nil))
	require.Equal(t, http.StatusOK, first.Code)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Equal(t, "private, no-cache, must-revalidate", first.Header().Get("Cache-Control"))

	req := httptest.NewRequest(http.MethodGet, "/api/appointments", nil)
	req.Header.Set("If-None-Match", etag)
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)

	assert.Equal(t, http.StatusNotModified, second.Code)
	assert.Empty(t, second.Body.String())
}
