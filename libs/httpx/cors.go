package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSRule applies to requests whose path starts with PathPrefix. An empty
// prefix matches every path; a rule with no origins never matches.
type CORSRule struct {
	PathPrefix       string
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
}

// CORSPolicy is an ordered list of rules; the first matching prefix wins.
type CORSPolicy struct {
	Rules  []CORSRule
	MaxAge time.Duration
}

type compiledCORSRule struct {
	prefix      string
	origins     []string
	methods     string
	headers     string
	exposed     string
	credentials bool
}

// WithCORS emits CORS headers per route group. With no usable rule it is a
// no-op.
func WithCORS(p CORSPolicy) Middleware {
	var rules []compiledCORSRule
	for _, r := range p.Rules {
		origins := normalizeOrigins(r.AllowedOrigins)
		if len(origins) == 0 {
			continue
		}
		rules = append(rules, compiledCORSRule{
			prefix:      r.PathPrefix,
			origins:     origins,
			methods:     strings.Join(normalizeList(r.AllowedMethods), ", "),
			headers:     strings.Join(normalizeList(r.AllowedHeaders), ", "),
			exposed:     strings.Join(normalizeList(r.ExposedHeaders), ", "),
			credentials: r.AllowCredentials,
		})
	}
	if len(rules) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	maxAge := strconv.Itoa(int(p.MaxAge.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			rule, ok := matchRule(rules, r.URL.Path)
			if origin == "" || !ok {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")
			allowOrigin, ok := rule.allow(origin)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			h.Set("Access-Control-Allow-Origin", allowOrigin)
			if rule.credentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if rule.exposed != "" {
				h.Set("Access-Control-Expose-Headers", rule.exposed)
			}

			if r.Method != http.MethodOptions || r.Header.Get("Access-Control-Request-Method") == "" {
				next.ServeHTTP(w, r)
				return
			}
			if rule.methods != "" {
				h.Set("Access-Control-Allow-Methods", rule.methods)
			}
			if rule.headers != "" {
				h.Set("Access-Control-Allow-Headers", rule.headers)
			}
			if p.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", maxAge)
			}
			h.Add("Vary", "Access-Control-Request-Method")
			h.Add("Vary", "Access-Control-Request-Headers")
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func matchRule(rules []compiledCORSRule, path string) (compiledCORSRule, bool) {
	for _, r := range rules {
		if strings.HasPrefix(path, r.prefix) {
			return r, true
		}
	}
	return compiledCORSRule{}, false
}

// allow returns the Access-Control-Allow-Origin value for origin. A wildcard
// is echoed back as the concrete origin when credentials are allowed.
func (r compiledCORSRule) allow(origin string) (string, bool) {
	for _, candidate := range r.origins {
		if candidate == "*" {
			if r.credentials {
				return origin, true
			}
			return "*", true
		}
		if strings.EqualFold(candidate, origin) {
			return origin, true
		}
	}
	return "", false
}

// normalizeOrigins drops blanks and trailing slashes so "https://shop.example/"
// in config matches the browser's "https://shop.example".
func normalizeOrigins(values []string) []string {
	out := normalizeList(values)
	for i, v := range out {
		out[i] = strings.TrimSuffix(v, "/")
	}
	return out
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
