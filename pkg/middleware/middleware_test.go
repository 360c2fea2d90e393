package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"modular-shop-backend/pkg/config"
	"modular-shop-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestContentTypeJSON(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		status      int
	}{
		{"json body", http.MethodPost, `{}`, "application/json; charset=utf-8", http.StatusOK},
		{"form body", http.MethodPost, `a=b`, "application/x-www-form-urlencoded", http.StatusBadRequest},
		{"missing type", http.MethodPut, `{}`, "", http.StatusBadRequest},
		{"no body", http.MethodPost, "", "", http.StatusOK},
		{"get ignored", http.MethodGet, "", "text/plain", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, "/products", body)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			ContentTypeJSON(ok).ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestMaxBodySize(t *testing.T) {
	var readErr error
	h := MaxBodySize(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64)))
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Error(t, readErr)
}

func TestRecovery(t *testing.T) {
	var logs bytes.Buffer
	log := logrus.New()
	log.SetOutput(&logs)
	log.SetFormatter(&logrus.JSONFormatter{})

	boom := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	t.Run("quiet", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Recovery(log, false)(boom).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), utils.CodeInternal)
		assert.NotContains(t, rec.Body.String(), "boom")
		assert.Contains(t, logs.String(), "panic recovered")
	})

	t.Run("verbose", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Recovery(log, true)(boom).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Contains(t, rec.Body.String(), "boom")
	})
}

func TestLogger(t *testing.T) {
	var logs bytes.Buffer
	log := logrus.New()
	log.SetOutput(&logs)
	log.SetFormatter(&logrus.JSONFormatter{})

	h := Logger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	out := logs.String()
	assert.Contains(t, out, `"status":404`)
	assert.Contains(t, out, `"path":"/missing"`)
	assert.Contains(t, out, `"user":"anonymous"`)
	assert.Contains(t, out, `"level":"warning"`)
}

func TestNormalize(t *testing.T) {
	var gotPath, gotHost string
	h := Normalize()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotHost = r.URL.Path, r.Host
	}))

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	req.URL.Path = "/products  "
	req.Header.Set("X-Forwarded-Host", "shop.example.com")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "/products", gotPath)
	assert.Equal(t, "shop.example.com", gotHost)
}

func TestIsOriginAllowed(t *testing.T) {
	allowed := []string{"https://shop.example.com", "https://*.preview.example.com"}

	assert.True(t, isOriginAllowed("https://shop.example.com", allowed))
	assert.True(t, isOriginAllowed("https://pr-12.preview.example.com", allowed))
	assert.False(t, isOriginAllowed("https://evil.com", allowed))
	assert.False(t, isOriginAllowed("", allowed))
	assert.True(t, isOriginAllowed("http://anything", []string{"*"}))
}

func TestCORS_Preflight(t *testing.T) {
	cfg := &config.Config{AllowedOrigins: []string{"https://shop.example.com"}}
	h := CORS(cfg)(ok)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/products", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://shop.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestMetrics(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Get("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products/"+id, nil))
	}

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `shop_http_requests_total{method="GET",route="/products/{id}",status="404"} 3`)
	assert.Contains(t, body, "shop_http_request_duration_seconds_count")
}
