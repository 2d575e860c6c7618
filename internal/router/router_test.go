package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizeIdempotentAndEquivalent(t *testing.T) {
	cases := []string{"/v1/chat", "/api/chat", "/chat", "/v1/api/chat"}
	for _, c := range cases {
		if got := Normalize(c); got != "/chat" {
			t.Fatalf("Normalize(%q) = %q, want /chat", c, got)
		}
	}
	for _, c := range cases {
		once := Normalize(c)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("Normalize not idempotent for %q: %q vs %q", c, once, twice)
		}
	}
}

func TestNormalizeRoot(t *testing.T) {
	if got := Normalize("/v1"); got != "/" {
		t.Fatalf("Normalize(/v1) = %q, want /", got)
	}
}

func ok(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

func TestHeadAlwaysNoContent(t *testing.T) {
	h := New(CORSConfig{}, Handlers{
		Banner: ok, Health: ok, Models: ok, Tags: ok,
		ChatCompletions: ok, Messages: ok, Chat: ok, Show: ok,
		MCPHealth: ok, MCPTools: ok, MCPCall: ok,
	})
	req := httptest.NewRequest(http.MethodHead, "/anything/at/all", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("HEAD expected 204, got %d", w.Code)
	}
}

func TestCORSDisabledByDefault(t *testing.T) {
	h := New(CORSConfig{}, Handlers{Health: ok, Banner: ok, Models: ok, Tags: ok, ChatCompletions: ok, Messages: ok, Chat: ok, Show: ok, MCPHealth: ok, MCPTools: ok, MCPCall: ok})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("expected no CORS headers when allow-list is empty")
	}
}

func TestCORSWildcard(t *testing.T) {
	h := New(CORSConfig{AllowOrigins: []string{"*"}}, Handlers{Health: ok, Banner: ok, Models: ok, Tags: ok, ChatCompletions: ok, Messages: ok, Chat: ok, Show: ok, MCPHealth: ok, MCPTools: ok, MCPCall: ok})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := New(CORSConfig{AllowOrigins: []string{"https://example.com"}}, Handlers{Health: ok, Banner: ok, Models: ok, Tags: ok, ChatCompletions: ok, Messages: ok, Chat: ok, Show: ok, MCPHealth: ok, MCPTools: ok, MCPCall: ok})
	req := httptest.NewRequest(http.MethodOptions, "/v1/chat/completions", nil)
	req.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != defaultAllowMethods {
		t.Fatalf("expected default methods, got %q", got)
	}
}
