package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"signet/pkg/requestcontext"
)

type InMemoryLimiterSuite struct {
	suite.Suite
	now     time.Time
	limiter *InMemory
}

func TestInMemoryLimiterSuite(t *testing.T) {
	suite.Run(t, new(InMemoryLimiterSuite))
}

func (s *InMemoryLimiterSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.limiter = NewInMemory(WithClock(func() time.Time { return s.now }))
}

func (s *InMemoryLimiterSuite) allow(key string, limit int, window time.Duration) *Result {
	result, err := s.limiter.Allow(context.Background(), key, limit, window)
	s.Require().NoError(err)
	return result
}

func (s *InMemoryLimiterSuite) TestConsumesSlots() {
	for i := 3; i >= 1; i-- {
		result := s.allow("ip-1", 3, time.Minute)
		s.True(result.Allowed)
		s.Equal(i-1, result.Remaining)
	}

	result := s.allow("ip-1", 3, time.Minute)
	s.False(result.Allowed)
	s.Equal(s.now.Add(time.Minute), result.ResetAt)
}

func (s *InMemoryLimiterSuite) TestKeysAreIndependent() {
	for i := 0; i < 3; i++ {
		s.allow("ip-1", 3, time.Minute)
	}
	s.False(s.allow("ip-1", 3, time.Minute).Allowed)
	s.True(s.allow("ip-2", 3, time.Minute).Allowed)
}

func (s *InMemoryLimiterSuite) TestWindowSlides() {
	s.allow("ip-1", 2, time.Minute)
	s.now = s.now.Add(30 * time.Second)
	s.allow("ip-1", 2, time.Minute)
	s.False(s.allow("ip-1", 2, time.Minute).Allowed)

	// The first hit ages out halfway through; exactly one slot opens.
	s.now = s.now.Add(31 * time.Second)
	s.True(s.allow("ip-1", 2, time.Minute).Allowed)
	s.False(s.allow("ip-1", 2, time.Minute).Allowed)
}

func TestMiddleware(t *testing.T) {
	newHandler := func(limit int) http.Handler {
		limiter := NewInMemory()
		mw := NewMiddleware(limiter, limit, time.Minute, slog.New(slog.DiscardHandler))
		return mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
	}

	doRequest := func(handler http.Handler, ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req = req.WithContext(requestcontext.WithClientIP(req.Context(), ip))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	t.Run("within limit passes through with headers", func(t *testing.T) {
		handler := newHandler(2)
		rr := doRequest(handler, "203.0.113.7")
		require.Equal(t, http.StatusNoContent, rr.Code)
		require.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, "1", rr.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("over limit gets 429 with retry hint", func(t *testing.T) {
		handler := newHandler(1)
		doRequest(handler, "203.0.113.7")
		rr := doRequest(handler, "203.0.113.7")
		require.Equal(t, http.StatusTooManyRequests, rr.Code)
		require.NotEmpty(t, rr.Header().Get("Retry-After"))
		require.Contains(t, rr.Body.String(), "too many requests")
	})

	t.Run("other clients unaffected", func(t *testing.T) {
		handler := newHandler(1)
		doRequest(handler, "203.0.113.7")
		rr := doRequest(handler, "198.51.100.2")
		require.Equal(t, http.StatusNoContent, rr.Code)
	})
}

type failingLimiter struct{}

func (failingLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	return nil, context.DeadlineExceeded
}

func TestMiddlewareFailsOpen(t *testing.T) {
	mw := NewMiddleware(failingLimiter{}, 1, time.Minute, slog.New(slog.DiscardHandler))
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
}
