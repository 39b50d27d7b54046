// Package gateway is the thin routing layer in front of the services: it
// picks an instance per logical service name round-robin and forwards the
// request unchanged.
package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const apiPrefix = "/api/v1/"

type service struct {
	name    string
	urls    []string
	counter atomic.Uint64
}

// next rotates through the configured instances.
func (s *service) next() string {
	if len(s.urls) == 1 {
		return s.urls[0]
	}
	n := s.counter.Add(1) - 1
	return s.urls[n%uint64(len(s.urls))]
}

// Router forwards /api/v1/{service}/... to a backend instance.
type Router struct {
	services map[string]*service
	client   *http.Client
	probe    *http.Client
	logger   *zap.Logger
}

func NewRouter(backends map[string][]string, forwardTimeout, probeTimeout time.Duration, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	services := make(map[string]*service, len(backends))
	for name, urls := range backends {
		services[name] = &service{name: name, urls: urls}
	}
	return &Router{
		services: services,
		client:   &http.Client{Timeout: forwardTimeout},
		probe:    &http.Client{Timeout: probeTimeout},
		logger:   logger,
	}
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest, ok := strings.CutPrefix(r.URL.Path, apiPrefix)
	if !ok || rest == "" {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}

	if rest == "health" {
		rt.handleHealth(w, r)
		return
	}

	name, tail, _ := strings.Cut(rest, "/")
	svc, ok := rt.services[name]
	if !ok {
		writeJSONError(w, http.StatusNotFound, "unknown service")
		return
	}

	target := svc.next() + "/" + name
	if tail != "" {
		target += "/" + tail
	}
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	rt.forward(w, r, svc.name, target)
}

func (rt *Router) forward(w http.ResponseWriter, r *http.Request, name, target string) {
	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, "service temporarily unavailable")
		return
	}
	copyHeaders(req.Header, r.Header)

	resp, err := rt.client.Do(req)
	if err != nil {
		rt.logger.Error("proxy request failed",
			zap.String("service", name),
			zap.String("target", target),
			zap.Error(err),
		)
		writeJSONError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
		return
	}
	defer resp.Body.Close()

	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)

	rt.logger.Info("proxied request",
		zap.String("service", name),
		zap.String("method", r.Method),
		zap.String("target", target),
		zap.Int("status", resp.StatusCode),
	)
}

// handleHealth probes every configured instance of every service.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := struct {
		Gateway  string              `json:"gateway"`
		Services map[string][]string `json:"services"`
	}{
		Gateway:  "healthy",
		Services: make(map[string][]string, len(rt.services)),
	}

	for name, svc := range rt.services {
		states := make([]string, 0, len(svc.urls))
		for _, base := range svc.urls {
			states = append(states, rt.probeInstance(r.Context(), base))
		}
		status.Services[name] = states
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(status)
}

func (rt *Router) probeInstance(ctx context.Context, base string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/health", nil)
	if err != nil {
		return "unreachable"
	}
	resp, err := rt.probe.Do(req)
	if err != nil {
		return "unreachable"
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode == http.StatusOK {
		return "healthy"
	}
	return "unhealthy"
}

// hopByHopHeaders apply to a single connection and must not cross the proxy.
var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

func copyHeaders(dst, src http.Header) {
	dropped := make(map[string]struct{}, len(hopByHopHeaders))
	for name := range hopByHopHeaders {
		dropped[name] = struct{}{}
	}
	for _, value := range src.Values("Connection") {
		for _, name := range strings.Split(value, ",") {
			dropped[http.CanonicalHeaderKey(strings.TrimSpace(name))] = struct{}{}
		}
	}

	for key, values := range src {
		if _, skip := dropped[http.CanonicalHeaderKey(key)]; skip {
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg})
}
