package httpx

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/mmk-storefront/internal/errors"
)

func TestBrowserDetection(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		accept string
		want   bool
	}{
		{name: "html page", path: "/dashboard", accept: "text/html,application/xhtml+xml", want: true},
		{name: "no accept header", path: "/dashboard", want: true},
		{name: "json client on page route", path: "/dashboard", accept: "application/json", want: false},
		{name: "api route with html accept", path: "/api/orders", accept: "text/html", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got bool
			h := BrowserDetection()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = IsBrowserRequest(r)
			}))
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecover(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	h := Recover(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, logs.String(), `"error":"boom"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal","message":"internal error"}`, rec.Body.String())
}

func TestLogging_RecordsStatus(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/brew", nil))

	assert.Contains(t, logs.String(), `"status":418`)
	assert.Contains(t, logs.String(), `"path":"/brew"`)
	assert.Contains(t, logs.String(), `"level":"INFO"`)
}

func TestLogging_ServerErrorsLogAtError(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Contains(t, logs.String(), `"level":"ERROR"`)
	assert.Contains(t, logs.String(), `"status":503`)
	assert.Contains(t, logs.String(), `"bytes":5`)
}

func jsonHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	})
}

func TestCompression(t *testing.T) {
	payload := `{"orders":[]}`
	mw := Compression(CompressionConfig{Level: gzip.BestSpeed, Logger: discardLogger()})

	t.Run("gzip when accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		req.Header.Set("Accept-Encoding", "br, gzip;q=0.8")
		rec := httptest.NewRecorder()
		mw(jsonHandler(payload)).ServeHTTP(rec, req)

		require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
		assert.Equal(t, "Accept-Encoding", rec.Header().Get("Vary"))
		zr, err := gzip.NewReader(rec.Body)
		require.NoError(t, err)
		got, err := io.ReadAll(zr)
		require.NoError(t, err)
		assert.Equal(t, payload, string(got))
	})

	t.Run("plain when not accepted", func(t *testing.T) {
		for _, enc := range []string{"", "br", "gzip;q=0"} {
			req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
			if enc != "" {
				req.Header.Set("Accept-Encoding", enc)
			}
			rec := httptest.NewRecorder()
			mw(jsonHandler(payload)).ServeHTTP(rec, req)

			assert.Empty(t, rec.Header().Get("Content-Encoding"), enc)
			assert.Equal(t, payload, rec.Body.String(), enc)
		}
	})

	t.Run("incompressible type", func(t *testing.T) {
		h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
		})
		req := httptest.NewRequest(http.MethodGet, "/logo.png", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		mw(h).ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Content-Encoding"))
	})

	t.Run("no content", func(t *testing.T) {
		h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNoContent)
		})
		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		mw(h).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Header().Get("Content-Encoding"))
	})
}

func TestSafeRedirectPath(t *testing.T) {
	tests := map[string]string{
		"":                      "/",
		"/":                     "/",
		"/merchant/?tab=1":      "/merchant/?tab=1",
		"dashboard":             "/",
		"https://evil.example/": "/",
		"//evil.example":        "/",
		"/\\evil.example":       "/",
		"javascript:alert(1)":   "/",
		"  /dashboard  ":        "/dashboard",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeRedirectPath(in), in)
	}
}

func TestWriteAppError_StatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{err: apperrors.Validation("bad"), code: http.StatusBadRequest},
		{err: apperrors.Unauthenticated("who"), code: http.StatusUnauthorized},
		{err: apperrors.Forbidden("no"), code: http.StatusForbidden},
		{err: apperrors.Wrap(errors.New("dial"), apperrors.ErrCodeUnavailable, "down"), code: http.StatusServiceUnavailable},
		{err: errors.New("raw"), code: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		WriteAppError(rec, tt.err)
		assert.Equal(t, tt.code, rec.Code, tt.err.Error())
	}

	rec := httptest.NewRecorder()
	WriteAppError(rec, errors.New("secret detail"))
	assert.NotContains(t, rec.Body.String(), "secret detail")
}
