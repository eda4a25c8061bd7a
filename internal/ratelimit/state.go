package ratelimit

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/chand1012/personal-site/internal/model"
)

const (
	headerLimit     = "X-RateLimit-Limit"
	headerRemaining = "X-RateLimit-Remaining"
	headerReset     = "X-RateLimit-Reset"
	headerUsed      = "X-RateLimit-Used"
)

// State holds the most recent rate-limit information seen by one transport.
type State struct {
	mu    sync.Mutex
	info  model.RateLimitInfo
	known bool
}

// Update parses the rate-limit headers of a response. Headers are matched
// case-insensitively through http.Header canonicalisation. When limit,
// remaining or reset is missing the previous state is kept and returned.
func (s *State) Update(h http.Header) (model.RateLimitInfo, bool) {
	info, ok := parseHeaders(h)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		s.info = info
		s.known = true
	}
	return s.info, s.known
}

// Snapshot returns the last observed info and whether any was observed.
func (s *State) Snapshot() (model.RateLimitInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info, s.known
}

func parseHeaders(h http.Header) (model.RateLimitInfo, bool) {
	limit, okLimit := headerInt(h, headerLimit)
	remaining, okRemaining := headerInt(h, headerRemaining)
	reset, okReset := headerInt(h, headerReset)
	if !okLimit || !okRemaining || !okReset {
		return model.RateLimitInfo{}, false
	}
	used, _ := headerInt(h, headerUsed)
	return model.RateLimitInfo{
		Limit:     int(limit),
		Remaining: int(remaining),
		Reset:     reset,
		Used:      int(used),
	}, true
}

func headerInt(h http.Header, key string) (int64, bool) {
	v := h.Get(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
