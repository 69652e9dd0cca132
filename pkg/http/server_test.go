package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

type echoRoutes func(e *echo.Echo)

func (f echoRoutes) RegisterRoutes(e *echo.Echo) { f(e) }

func serve(s *Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestHealthOK(t *testing.T) {
	s := NewServer(nil)
	rec := serve(s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHealthFailingCheck(t *testing.T) {
	s := NewServer(nil, WithHealthCheck("runs", func(context.Context) error { return errors.New("db closed") }))
	rec := serve(s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "db closed") {
		t.Fatalf("expected failing check in body, got %s", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := NewServer(nil)
	serve(s, http.MethodGet, "/health", "")
	rec := serve(s, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "candlenet_http_requests_total") {
		t.Fatal("expected http request counter in metrics output")
	}
}

func TestRateLimit(t *testing.T) {
	s := NewServer(nil, WithRateLimit(denyAll{}))
	rec := serve(s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	env := decode(t, rec)
	if len(env.Errors) != 1 || env.Errors[0].Code != "ERR_TOO_MANY_REQUESTS" {
		t.Fatalf("unexpected errors %+v", env.Errors)
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return env
}

type sampleRequest struct {
	Symbol string `json:"symbol" validate:"required"`
	Limit  int    `json:"limit" default:"10" validate:"lte=100"`
}

func TestBind(t *testing.T) {
	var got sampleRequest
	s := NewServer(echoRoutes(func(e *echo.Echo) {
		e.POST("/x", func(c echo.Context) error {
			got = sampleRequest{}
			if err := Bind(c, &got); err != nil {
				return err
			}
			return OK(c, got)
		})
	}))

	rec := serve(s, http.MethodPost, "/x", `{"limit":500}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	env := decode(t, rec)
	if len(env.Errors) != 2 {
		t.Fatalf("expected two validation errors, got %+v", env.Errors)
	}
	if env.Errors[0].Field != "symbol" || env.Errors[0].Code != "ERR_REQUIRED" {
		t.Fatalf("unexpected first error %+v", env.Errors[0])
	}
	if env.Errors[1].Message != "limit must be at most 100" {
		t.Fatalf("unexpected limit message %q", env.Errors[1].Message)
	}

	rec = serve(s, http.MethodPost, "/x", `{"symbol":"BTC"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got.Limit != 10 {
		t.Fatalf("expected default limit 10, got %d", got.Limit)
	}

	if rec := serve(s, http.MethodPost, "/x", `{"symbol":`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}

var errMissing = errors.New("missing model")

func TestErrorMapping(t *testing.T) {
	m := NewErrorMap().On(errMissing, http.StatusNotFound, "ERR_MODEL_NOT_FOUND")
	s := NewServer(echoRoutes(func(e *echo.Echo) {
		e.GET("/missing", func(c echo.Context) error {
			return m.Map(fmt.Errorf("load BTC/15m: %w", errMissing))
		})
		e.GET("/boom", func(c echo.Context) error {
			return m.Map(errors.New("disk on fire"))
		})
		e.GET("/panic", func(c echo.Context) error {
			panic("nil map")
		})
	}))

	rec := serve(s, http.MethodGet, "/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if env := decode(t, rec); env.Errors[0].Code != "ERR_MODEL_NOT_FOUND" {
		t.Fatalf("unexpected errors %+v", env.Errors)
	}

	rec = serve(s, http.MethodGet, "/boom", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "disk on fire") {
		t.Fatalf("internal cause leaked: %s", rec.Body.String())
	}

	if rec := serve(s, http.MethodGet, "/panic", ""); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := NewServer(nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/predict", nil)
	req.Header.Set(echo.HeaderOrigin, "http://dash.local")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "http://dash.local" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodPost) {
		t.Fatalf("expected POST in allowed methods")
	}
}
