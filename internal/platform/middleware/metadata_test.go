package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"signet/pkg/requestcontext"
)

func TestClientIPFromRequest(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "direct connection",
			remoteAddr: "203.0.113.9:51234",
			want:       "203.0.113.9",
		},
		{
			name:       "x-forwarded-for single",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.7"},
			want:       "198.51.100.7",
		},
		{
			name:       "x-forwarded-for chain takes first",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.7, 10.0.0.2, 10.0.0.3"},
			want:       "198.51.100.7",
		},
		{
			name:       "x-real-ip fallback",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Real-IP": "198.51.100.8"},
			want:       "198.51.100.8",
		},
		{
			name:       "ipv6 remote addr",
			remoteAddr: "[::1]:51234",
			want:       "[::1]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tt.want, clientIPFromRequest(req))
		})
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	t.Run("browser agents reduce to browser, version and os", func(t *testing.T) {
		raw := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
		got := normalizeUserAgent(raw)
		require.Contains(t, got, "Chrome/120")
		require.NotContains(t, got, "AppleWebKit")
	})

	t.Run("non-browser agents recorded verbatim", func(t *testing.T) {
		require.Equal(t, "curl/8.4.0", normalizeUserAgent("curl/8.4.0"))
	})

	t.Run("empty stays empty", func(t *testing.T) {
		require.Equal(t, "", normalizeUserAgent(""))
	})
}

func TestClientMetadataMiddleware(t *testing.T) {
	var gotIP, gotUA string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP = requestcontext.ClientIP(r.Context())
		gotUA = requestcontext.UserAgent(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:51234"
	req.Header.Set("User-Agent", "curl/8.4.0")

	ClientMetadata(next).ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "203.0.113.9", gotIP)
	require.Equal(t, "curl/8.4.0", gotUA)
}
