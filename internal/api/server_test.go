package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestToAPIErrorCodes(t *testing.T) {
	cases := []struct {
		status int
		err    error
		code   string
	}{
		{http.StatusInternalServerError, fmt.Errorf("relation \"notes\" does not exist"), "NF-DB-5001"},
		{http.StatusInternalServerError, fmt.Errorf("dial tcp: connection refused"), "NF-DB-5002"},
		{http.StatusInternalServerError, fmt.Errorf("generate answer: 429 too many requests"), "NF-LLM-5003"},
		{http.StatusInternalServerError, fmt.Errorf("generate answer: insufficient_quota"), "NF-LLM-5003"},
		{http.StatusInternalServerError, fmt.Errorf("iterate files: read failed"), "NF-API-5000"},
		{http.StatusInternalServerError, fmt.Errorf("boom"), "NF-API-5000"},
		{http.StatusBadRequest, fmt.Errorf("invalid json: eof"), "NF-API-4001"},
		{http.StatusNotFound, fmt.Errorf("not found"), "NF-API-4004"},
		{http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"), "NF-API-4005"},
	}
	for _, c := range cases {
		if got := toAPIError(c.status, c.err); got.Code != c.code {
			t.Fatalf("status %d err %v: got code %s want %s", c.status, c.err, got.Code, c.code)
		}
	}
}

func TestToAPIErrorNoContentMessage(t *testing.T) {
	got := toAPIError(http.StatusBadRequest, fmt.Errorf("no content provided"))
	if got.Message != "The collection has no indexed content yet. Upload documents first." {
		t.Fatalf("unexpected message: %q", got.Message)
	}
}

func TestWithCORSPreflight(t *testing.T) {
	h := withCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("preflight should not reach the handler")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/collections", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS origin header")
	}
}
