package errmodel

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFromPassthrough(t *testing.T) {
	orig := Storage("upsert_failed", "disk full", nil, errors.New("io: short write"))
	got := From(fmt.Errorf("wrapped: %w", orig))
	if got != orig {
		t.Fatalf("From did not unwrap to the original *Error")
	}
	if len(got.Causes) != 1 || got.Causes[0].Code != "internal" {
		t.Fatalf("cause not captured: %+v", got.Causes)
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{NotFound("profile not found", nil), http.StatusNotFound},
		{Validation("invalid_pubkey", "bad pubkey", nil), http.StatusBadRequest},
		{Policy("unauthorized", "missing bearer token", nil), http.StatusUnauthorized},
		{Uninitialized("store not opened"), http.StatusInternalServerError},
		{Model("chat_failed", "upstream error", nil, nil), http.StatusBadGateway},
		{System("internal", "boom", nil, nil), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := HTTPStatus(c.err); got != c.want {
			t.Fatalf("HTTPStatus(%s/%s)=%d want %d", c.err.Category, c.err.Code, got, c.want)
		}
	}
}

func TestWriteHTTPEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/profile/abc", nil)
	WriteHTTP(rec, req, NotFound("profile not found", map[string]any{"pubkey": "abc"}))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type=%q", ct)
	}
	if !strings.Contains(rec.Body.String(), `"not_found"`) {
		t.Fatalf("body missing code: %s", rec.Body.String())
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(NotFound("x", nil)) {
		t.Fatal("expected not_found")
	}
	if IsNotFound(Uninitialized("y")) {
		t.Fatal("uninitialized must not be not_found")
	}
	if IsNotFound(nil) {
		t.Fatal("nil must not be not_found")
	}
}
