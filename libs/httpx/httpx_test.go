package httpx

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestChainOrderAndNilSkip(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(okHandler(), mark("a"), nil, mark("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if strings.Join(order, ",") != "a,b" {
		t.Fatalf("expected a,b got %v", order)
	}
}

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Middleware()(okHandler())

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/public/bookings", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		return rw.Code
	}
	if send() != http.StatusOK || send() != http.StatusOK {
		t.Fatal("expected first two requests to pass")
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
	now = now.Add(61 * time.Second)
	if code := send(); code != http.StatusOK {
		t.Fatalf("expected window reset, got %d", code)
	}
}

func TestRateLimiterBucketsPerRoute(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Middleware()(okHandler())

	send := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		return rw
	}
	if rw := send("/api/v1/admin/login"); rw.Code != http.StatusOK || rw.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("expected first login to pass with 0 remaining, got %d %v", rw.Code, rw.Header())
	}
	now = now.Add(20 * time.Second)
	rw := send("/api/v1/admin/login")
	if rw.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second login to be limited, got %d", rw.Code)
	}
	if rw.Header().Get("Retry-After") != "40" {
		t.Fatalf("expected Retry-After 40, got %q", rw.Header().Get("Retry-After"))
	}
	if rw := send("/api/v1/public/bookings"); rw.Code != http.StatusOK {
		t.Fatalf("expected booking bucket to be independent of login, got %d", rw.Code)
	}
}

func TestLimitKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", nil)
	req.RemoteAddr = "203.0.113.7:999"
	if got := limitKey(req); got != "api.v1.admin.login:203.0.113.7" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := routeBucket("/"); got != "root" {
		t.Fatalf("unexpected root bucket %q", got)
	}
}

func TestRateLimiterWindowResetsExactly(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Middleware()(okHandler())
	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/public/bookings", nil)
		req.RemoteAddr = "10.0.0.2:5555"
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		return rw.Code
	}
	if send() != http.StatusOK {
		t.Fatal("expected first request to pass")
	}
	now = now.Add(time.Minute)
	if code := send(); code != http.StatusOK {
		t.Fatalf("expected window reset, got %d", code)
	}
}

func TestClientKeyPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	if got := clientKey(req); got != "10.0.0.1" {
		t.Fatalf("expected remote host, got %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientKey(req); got != "203.0.113.7" {
		t.Fatalf("expected forwarded client, got %q", got)
	}
}

func TestOnlyPaths(t *testing.T) {
	block := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
	}
	h := OnlyPaths(block, "/api/")(okHandler())

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/api/v1/x", nil))
	if rw.Code != http.StatusTeapot {
		t.Fatalf("expected middleware on /api/, got %d", rw.Code)
	}
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rw.Code != http.StatusOK {
		t.Fatalf("expected passthrough, got %d", rw.Code)
	}
	if OnlyPaths(nil, "/") != nil {
		t.Fatal("expected nil middleware passthrough")
	}
}

func TestRequestIDPropagation(t *testing.T) {
	var seen string
	h := WithRequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if seen != "abc-123" || rw.Header().Get(RequestIDHeader) != "abc-123" {
		t.Fatalf("expected propagated id, got %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "has space")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "has space" || len(seen) != 32 {
		t.Fatalf("expected fresh id, got %q", seen)
	}
}

func TestAccessLogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	status := http.StatusOK
	h := WithAccessLog(logger, "/healthz")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if buf.Len() != 0 {
		t.Fatalf("expected quiet health check to be skipped at info level, got %s", buf.String())
	}

	status = http.StatusConflict
	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/bookings", nil)
	req.RemoteAddr = "198.51.100.4:1000"
	h.ServeHTTP(httptest.NewRecorder(), req)
	out := buf.String()
	for _, want := range []string{`"level":"WARN"`, `"status":409`, `"bucket":"api.v1.public.bookings"`, `"client":"198.51.100.4"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}

	buf.Reset()
	status = http.StatusServiceUnavailable
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Fatalf("expected failing health check to be logged, got %s", buf.String())
	}
}

func TestAccessLogRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}), WithRequestID, WithAccessLog(logger))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	out := buf.String()
	if !strings.Contains(out, `"status":500`) || !strings.Contains(out, `"level":"ERROR"`) {
		t.Fatalf("unexpected log line %s", out)
	}
}

func TestCORSRulesPerRouteGroup(t *testing.T) {
	h := WithCORS(CORSPolicy{
		MaxAge: time.Minute,
		Rules: []CORSRule{
			{
				PathPrefix:     "/api/v1/public/",
				AllowedOrigins: []string{"https://shop.example/"},
				AllowedMethods: []string{"GET", "POST"},
			},
			{
				PathPrefix:     "/api/v1/admin/",
				AllowedOrigins: []string{"https://office.example"},
				AllowedHeaders: []string{"Authorization"},
				ExposedHeaders: []string{"Content-Disposition"},
			},
		},
	})(okHandler())

	preflight := func(path, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", "GET")
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		return rw
	}

	rw := preflight("/api/v1/public/slots", "https://shop.example")
	if rw.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rw.Code)
	}
	if rw.Header().Get("Access-Control-Allow-Origin") != "https://shop.example" {
		t.Fatalf("unexpected allow origin %q", rw.Header().Get("Access-Control-Allow-Origin"))
	}
	if rw.Header().Get("Access-Control-Max-Age") != "60" || rw.Header().Get("Access-Control-Allow-Methods") != "GET, POST" {
		t.Fatalf("unexpected preflight headers %v", rw.Header())
	}

	// The widget's origin is not trusted on admin routes.
	rw = preflight("/api/v1/admin/bookings", "https://shop.example")
	if rw.Code != http.StatusOK || rw.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("expected no CORS grant for the public origin on admin routes, got %d %v", rw.Code, rw.Header())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/bookings/export", nil)
	req.Header.Set("Origin", "https://office.example")
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Header().Get("Access-Control-Allow-Origin") != "https://office.example" {
		t.Fatalf("expected admin origin to be allowed, got %v", rw.Header())
	}
	if rw.Header().Get("Access-Control-Expose-Headers") != "Content-Disposition" {
		t.Fatalf("expected Content-Disposition exposed, got %q", rw.Header().Get("Access-Control-Expose-Headers"))
	}
	if rw.Header().Get("Access-Control-Allow-Methods") != "" {
		t.Fatal("expected preflight-only headers to be omitted on a simple request")
	}

	// Paths outside every rule pass through untouched.
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://shop.example")
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("expected no CORS headers outside the rules")
	}
}

func TestCORSWithoutOriginsIsNoop(t *testing.T) {
	h := WithCORS(CORSPolicy{Rules: []CORSRule{{PathPrefix: "/", AllowedOrigins: []string{" "}}}})(okHandler())
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/public/slots", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK || len(rw.Header()) != 0 {
		t.Fatalf("expected passthrough, got %d %v", rw.Code, rw.Header())
	}
}
